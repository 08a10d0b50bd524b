package handlers

import (
	"net/http"

	"github.com/Marga-Ghale/ora-family-backend/internal/models"
	"github.com/Marga-Ghale/ora-family-backend/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ============================================
// Wishlist Handler
// ============================================

type WishlistHandler struct {
	wishlistService service.WishlistService
	log             *logrus.Entry
}

func itemInput(req models.WishlistItemRequest) service.WishlistItemInput {
	return service.WishlistItemInput{
		ItemName:       req.ItemName,
		Description:    req.Description,
		RequiredPoints: req.RequiredPoints,
		CategoryID:     req.CategoryID,
		Priority:       req.Priority,
	}
}

func (h *WishlistHandler) Mine(c *gin.Context) {
	a, found := actor(c)
	if !found {
		return
	}

	view, err := h.wishlistService.MyWishlist(c.Request.Context(), a)
	if err != nil {
		handleError(c, h.log, err)
		return
	}

	ok(c, toWishlistResponse(view))
}

func (h *WishlistHandler) Member(c *gin.Context) {
	a, found := actor(c)
	if !found {
		return
	}

	view, err := h.wishlistService.MemberWishlist(c.Request.Context(), a, c.Param("email"))
	if err != nil {
		handleError(c, h.log, err)
		return
	}

	ok(c, toWishlistResponse(view))
}

func (h *WishlistHandler) AddItem(c *gin.Context) {
	a, found := actor(c)
	if !found {
		return
	}

	var req models.WishlistItemRequest
	if !bind(c, &req) {
		return
	}

	item, err := h.wishlistService.AddItem(c.Request.Context(), a, itemInput(req))
	if err != nil {
		handleError(c, h.log, err)
		return
	}

	created(c, "Item added to your wishlist", toWishlistItemResponse(item))
}

func (h *WishlistHandler) AddItemForMember(c *gin.Context) {
	a, found := actor(c)
	if !found {
		return
	}

	var req models.WishlistItemRequest
	if !bind(c, &req) {
		return
	}

	item, owner, err := h.wishlistService.AddItemForMember(c.Request.Context(), a, c.Param("email"), itemInput(req))
	if err != nil {
		handleError(c, h.log, err)
		return
	}

	created(c, "Item added to "+owner.Username+"'s wishlist", toWishlistItemResponse(item))
}

func (h *WishlistHandler) UpdateItem(c *gin.Context) {
	a, found := actor(c)
	if !found {
		return
	}

	var req models.UpdateWishlistItemRequest
	if !bind(c, &req) {
		return
	}

	item, err := h.wishlistService.UpdateItem(c.Request.Context(), a, c.Param("id"), service.UpdateWishlistItemInput{
		ItemName:       req.ItemName,
		Description:    req.Description,
		RequiredPoints: req.RequiredPoints,
		CategoryID:     req.CategoryID,
		Priority:       req.Priority,
	})
	if err != nil {
		handleError(c, h.log, err)
		return
	}

	ok(c, toWishlistItemResponse(item))
}

func (h *WishlistHandler) Prioritize(c *gin.Context) {
	a, found := actor(c)
	if !found {
		return
	}

	var req models.PrioritizeRequest
	if !bind(c, &req) {
		return
	}

	priorities := make([]service.ItemPriority, len(req.ItemPriorities))
	for i, p := range req.ItemPriorities {
		priorities[i] = service.ItemPriority{ItemID: p.ItemID, Priority: p.Priority}
	}

	items, err := h.wishlistService.Prioritize(c.Request.Context(), a, priorities)
	if err != nil {
		handleError(c, h.log, err)
		return
	}

	respond(c, http.StatusOK, "Wishlist priorities updated", toWishlistItemList(items))
}

func (h *WishlistHandler) RemoveItem(c *gin.Context) {
	a, found := actor(c)
	if !found {
		return
	}

	if err := h.wishlistService.RemoveItem(c.Request.Context(), a, c.Param("id")); err != nil {
		handleError(c, h.log, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *WishlistHandler) Progress(c *gin.Context) {
	a, found := actor(c)
	if !found {
		return
	}

	p, err := h.wishlistService.Progress(c.Request.Context(), a, c.Param("id"))
	if err != nil {
		handleError(c, h.log, err)
		return
	}

	ok(c, models.ItemProgressResponse{
		Item:               toWishlistItemResponse(p.Item),
		CurrentPoints:      p.CurrentPoints,
		ProgressPercentage: p.Percentage,
		PointsNeeded:       p.PointsNeeded,
		CanRedeem:          p.CanRedeem,
	})
}
