package handlers

import (
	"net/http"

	"github.com/Marga-Ghale/ora-family-backend/internal/models"
	"github.com/Marga-Ghale/ora-family-backend/internal/repository"
	"github.com/Marga-Ghale/ora-family-backend/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ============================================
// Redeem Handler
// ============================================

type RedeemHandler struct {
	redeemService service.RedeemService
	log           *logrus.Entry
}

func (h *RedeemHandler) Request(c *gin.Context) {
	a, found := actor(c)
	if !found {
		return
	}

	var req models.RedeemRequestBody
	if !bind(c, &req) {
		return
	}

	rr, err := h.redeemService.Request(c.Request.Context(), a, service.RedeemInput{
		WishlistItemID: req.WishlistItemID,
		RequestDetails: req.RequestDetails,
		PointCost:      req.PointDeduction,
	})
	if err != nil {
		handleError(c, h.log, err)
		return
	}

	created(c, "Redemption request submitted and waiting for parent approval", toRedeemResponse(rr))
}

func (h *RedeemHandler) Review(c *gin.Context) {
	a, found := actor(c)
	if !found {
		return
	}

	var req models.RedeemReviewRequest
	if !bind(c, &req) {
		return
	}

	rr, err := h.redeemService.Review(c.Request.Context(), a, c.Param("id"), *req.Approved, req.RejectionReason)
	if err != nil {
		handleError(c, h.log, err)
		return
	}

	message := "Redemption request rejected"
	if *req.Approved {
		message = "Redemption request approved, waiting for the requester to accept"
	}
	respond(c, http.StatusOK, message, toRedeemResponse(rr))
}

func (h *RedeemHandler) Respond(c *gin.Context) {
	a, found := actor(c)
	if !found {
		return
	}

	var req models.RedeemRespondRequest
	if !bind(c, &req) {
		return
	}

	rr, err := h.redeemService.Respond(c.Request.Context(), a, c.Param("id"), *req.Accept)
	if err != nil {
		handleError(c, h.log, err)
		return
	}

	message := "Redemption declined"
	if *req.Accept {
		message = "Redemption accepted and points deducted"
	}
	respond(c, http.StatusOK, message, toRedeemResponse(rr))
}

func (h *RedeemHandler) Cancel(c *gin.Context) {
	a, found := actor(c)
	if !found {
		return
	}

	rr, err := h.redeemService.Cancel(c.Request.Context(), a, c.Param("id"))
	if err != nil {
		handleError(c, h.log, err)
		return
	}

	respond(c, http.StatusOK, "Redemption request cancelled", toRedeemResponse(rr))
}

func (h *RedeemHandler) listing(fetch func(*gin.Context, service.Actor) ([]*repository.RedeemRequest, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		a, found := actor(c)
		if !found {
			return
		}
		list, err := fetch(c, a)
		if err != nil {
			handleError(c, h.log, err)
			return
		}
		ok(c, toRedeemList(list))
	}
}

func (h *RedeemHandler) Mine() gin.HandlerFunc {
	return h.listing(func(c *gin.Context, a service.Actor) ([]*repository.RedeemRequest, error) {
		return h.redeemService.Mine(c.Request.Context(), a)
	})
}

func (h *RedeemHandler) Pending() gin.HandlerFunc {
	return h.listing(func(c *gin.Context, a service.Actor) ([]*repository.RedeemRequest, error) {
		return h.redeemService.Pending(c.Request.Context(), a)
	})
}

func (h *RedeemHandler) All() gin.HandlerFunc {
	return h.listing(func(c *gin.Context, a service.Actor) ([]*repository.RedeemRequest, error) {
		return h.redeemService.All(c.Request.Context(), a)
	})
}

func (h *RedeemHandler) Awaiting() gin.HandlerFunc {
	return h.listing(func(c *gin.Context, a service.Actor) ([]*repository.RedeemRequest, error) {
		return h.redeemService.AwaitingAcceptance(c.Request.Context(), a)
	})
}
