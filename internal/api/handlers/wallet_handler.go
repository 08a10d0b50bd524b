package handlers

import (
	"github.com/Marga-Ghale/ora-family-backend/internal/models"
	"github.com/Marga-Ghale/ora-family-backend/internal/repository"
	"github.com/Marga-Ghale/ora-family-backend/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ============================================
// Wallet Handler
// ============================================

type WalletHandler struct {
	walletService service.WalletService
	log           *logrus.Entry
}

func (h *WalletHandler) Me(c *gin.Context) {
	a, found := actor(c)
	if !found {
		return
	}

	wallet, err := h.walletService.GetMyWallet(c.Request.Context(), a)
	if err != nil {
		handleError(c, h.log, err)
		return
	}

	ok(c, toWalletResponse(wallet))
}

func (h *WalletHandler) Member(c *gin.Context) {
	a, found := actor(c)
	if !found {
		return
	}

	wallet, err := h.walletService.GetMemberWallet(c.Request.Context(), a, c.Param("email"))
	if err != nil {
		handleError(c, h.log, err)
		return
	}

	ok(c, toWalletResponse(wallet))
}

func (h *WalletHandler) Adjust(c *gin.Context) {
	a, found := actor(c)
	if !found {
		return
	}

	var req models.ManualAdjustRequest
	if !bind(c, &req) {
		return
	}

	res, err := h.walletService.ManualAdjust(c.Request.Context(), a, service.ManualAdjustInput{
		MemberEmail: req.MemberEmail,
		Points:      req.Points,
		Description: req.Description,
	})
	if err != nil {
		handleError(c, h.log, err)
		return
	}

	created(c, "Points updated successfully", models.AdjustResponse{
		Wallet: toWalletResponse(res.Wallet),
		Entry:  toHistoryResponse(res.Entry),
	})
}

func (h *WalletHandler) Initialize(c *gin.Context) {
	a, found := actor(c)
	if !found {
		return
	}

	res, err := h.walletService.InitializeWallets(c.Request.Context(), a)
	if err != nil {
		handleError(c, h.log, err)
		return
	}

	ok(c, res)
}

func (h *WalletHandler) Ranking(c *gin.Context) {
	a, found := actor(c)
	if !found {
		return
	}

	ranking, err := h.walletService.Ranking(c.Request.Context(), a)
	if err != nil {
		handleError(c, h.log, err)
		return
	}

	ok(c, ranking)
}

func (h *WalletHandler) Reconcile(c *gin.Context) {
	a, found := actor(c)
	if !found {
		return
	}

	entries, err := h.walletService.ReconcileFamily(c.Request.Context(), a)
	if err != nil {
		handleError(c, h.log, err)
		return
	}

	ok(c, entries)
}

// ============================================
// Point History
// ============================================

func (h *WalletHandler) history(fetch func(*gin.Context, service.Actor) ([]*repository.PointHistoryEntry, error)) gin.HandlerFunc {
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
		ok(c, toHistoryList(list))
	}
}

func (h *WalletHandler) MyHistory() gin.HandlerFunc {
	return h.history(func(c *gin.Context, a service.Actor) ([]*repository.PointHistoryEntry, error) {
		return h.walletService.MyHistory(c.Request.Context(), a)
	})
}

func (h *WalletHandler) MemberHistory() gin.HandlerFunc {
	return h.history(func(c *gin.Context, a service.Actor) ([]*repository.PointHistoryEntry, error) {
		return h.walletService.MemberHistory(c.Request.Context(), a, c.Param("email"))
	})
}

func (h *WalletHandler) FamilyHistory() gin.HandlerFunc {
	return h.history(func(c *gin.Context, a service.Actor) ([]*repository.PointHistoryEntry, error) {
		return h.walletService.FamilyHistory(c.Request.Context(), a)
	})
}
