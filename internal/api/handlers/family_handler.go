package handlers

import (
	"net/http"

	"github.com/Marga-Ghale/ora-family-backend/internal/models"
	"github.com/Marga-Ghale/ora-family-backend/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type FamilyHandler struct {
	familyService service.FamilyService
	log           *logrus.Entry
}

func (h *FamilyHandler) Get(c *gin.Context) {
	a, found := actor(c)
	if !found {
		return
	}

	family, err := h.familyService.Get(c.Request.Context(), a)
	if err != nil {
		handleError(c, h.log, err)
		return
	}

	ok(c, toFamilyResponse(family))
}

func (h *FamilyHandler) Deactivate(c *gin.Context) {
	a, found := actor(c)
	if !found {
		return
	}

	var req models.DeactivateFamilyRequest
	if !bind(c, &req) {
		return
	}

	if err := h.familyService.Deactivate(c.Request.Context(), a, req.Email, req.Password); err != nil {
		handleError(c, h.log, err)
		return
	}

	respond(c, http.StatusOK, "Family account deactivated", nil)
}
