package handlers

import (
	"net/http"

	"github.com/Marga-Ghale/ora-family-backend/internal/models"
	"github.com/Marga-Ghale/ora-family-backend/internal/service"
	"github.com/Marga-Ghale/ora-family-backend/internal/types"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// CategoryHandler serves both task and wishlist categories; the route
// group picks the kind.
type CategoryHandler struct {
	categoryService service.CategoryService
	log             *logrus.Entry
}

func (h *CategoryHandler) Create(kind types.CategoryKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		a, found := actor(c)
		if !found {
			return
		}

		var req models.CategoryRequest
		if !bind(c, &req) {
			return
		}

		cat, err := h.categoryService.Create(c.Request.Context(), a, kind, service.CategoryInput{
			Title:       req.Title,
			Description: req.Description,
		})
		if err != nil {
			handleError(c, h.log, err)
			return
		}

		created(c, "Category created successfully", toCategoryResponse(cat))
	}
}

func (h *CategoryHandler) List(kind types.CategoryKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		a, found := actor(c)
		if !found {
			return
		}

		list, err := h.categoryService.List(c.Request.Context(), a, kind)
		if err != nil {
			handleError(c, h.log, err)
			return
		}

		response := make([]models.CategoryResponse, len(list))
		for i, cat := range list {
			response[i] = toCategoryResponse(cat)
		}
		ok(c, response)
	}
}

func (h *CategoryHandler) Update(kind types.CategoryKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		a, found := actor(c)
		if !found {
			return
		}

		var req models.CategoryRequest
		if !bind(c, &req) {
			return
		}

		cat, err := h.categoryService.Update(c.Request.Context(), a, kind, c.Param("id"), service.CategoryInput{
			Title:       req.Title,
			Description: req.Description,
		})
		if err != nil {
			handleError(c, h.log, err)
			return
		}

		ok(c, toCategoryResponse(cat))
	}
}

func (h *CategoryHandler) Delete(kind types.CategoryKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		a, found := actor(c)
		if !found {
			return
		}

		if err := h.categoryService.Delete(c.Request.Context(), a, kind, c.Param("id")); err != nil {
			handleError(c, h.log, err)
			return
		}

		c.Status(http.StatusNoContent)
	}
}
