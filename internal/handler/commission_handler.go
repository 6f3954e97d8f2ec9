package handler

import (
	"net/http"
	"strconv"

	"junyue/internal/domain"
	"junyue/internal/middleware"
	"junyue/internal/repository"

	"github.com/gin-gonic/gin"
)

type CommissionHandler struct {
	commissionRepo *repository.CommissionRepository
	userRepo       *repository.UserRepository
}

func NewCommissionHandler(commissionRepo *repository.CommissionRepository, userRepo *repository.UserRepository) *CommissionHandler {
	return &CommissionHandler{commissionRepo: commissionRepo, userRepo: userRepo}
}

// ListMine returns the caller's earned commissions with pending/paid totals
// and their current referral fan-out.
func (h *CommissionHandler) ListMine(c *gin.Context) {
	userID := middleware.GetUserID(c)
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	list, err := h.commissionRepo.ListByUser(userID, limit, (page-1)*limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list commissions"})
		return
	}
	pending, err := h.commissionRepo.SumByUser(userID, domain.CommissionStatusPending)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to total commissions"})
		return
	}
	paid, err := h.commissionRepo.SumByUser(userID, domain.CommissionStatusPaid)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to total commissions"})
		return
	}
	inviteCount, _ := h.userRepo.CountInvitees(userID)

	c.JSON(http.StatusOK, gin.H{
		"commissions":   list,
		"pending_total": pending,
		"paid_total":    paid,
		"invite_count":  inviteCount,
		"page":          page,
		"limit":         limit,
	})
}
