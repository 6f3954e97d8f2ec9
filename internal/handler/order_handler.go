package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"junyue/internal/domain"
	"junyue/internal/middleware"
	"junyue/internal/models"
	"junyue/internal/repository"
	"junyue/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type OrderHandler struct {
	orderSvc  *service.OrderService
	orderRepo *repository.OrderRepository
}

func NewOrderHandler(orderSvc *service.OrderService, orderRepo *repository.OrderRepository) *OrderHandler {
	return &OrderHandler{orderSvc: orderSvc, orderRepo: orderRepo}
}

type createOrderRequest struct {
	TechnicianID    uint            `json:"technician_id" binding:"required"`
	ServiceType     string          `json:"service_type" binding:"required"`
	ServiceDuration int             `json:"service_duration" binding:"required,min=30"`
	TotalAmount     decimal.Decimal `json:"total_amount" binding:"required"`
	ServiceAddress  string          `json:"service_address" binding:"required"`
	ContactInfo     string          `json:"contact_info" binding:"required"`
	ScheduledTime   time.Time       `json:"scheduled_time" binding:"required"`
}

func (h *OrderHandler) Create(c *gin.Context) {
	customerID := middleware.GetUserID(c)
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.TotalAmount.Cmp(decimal.Zero) <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "total_amount must be positive"})
		return
	}
	order, err := h.orderSvc.Create(customerID, service.CreateOrderInput{
		TechnicianID:    req.TechnicianID,
		ServiceType:     req.ServiceType,
		ServiceDuration: req.ServiceDuration,
		TotalAmount:     req.TotalAmount.Round(2),
		ServiceAddress:  req.ServiceAddress,
		ContactInfo:     req.ContactInfo,
		ScheduledTime:   req.ScheduledTime,
	})
	if err != nil {
		if errors.Is(err, service.ErrTechnicianUnavailable) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create order"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"order": order})
}

// ListMine returns orders where the caller is either side, with the contact
// info each viewer is allowed to see.
func (h *OrderHandler) ListMine(c *gin.Context) {
	userID := middleware.GetUserID(c)
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}
	status := c.Query("status")

	orders, total, err := h.orderRepo.ListByParticipant(userID, status, limit, (page-1)*limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list orders"})
		return
	}
	views := make([]gin.H, 0, len(orders))
	for i := range orders {
		views = append(views, h.orderView(&orders[i], userID))
	}
	c.JSON(http.StatusOK, gin.H{
		"orders": views,
		"pagination": gin.H{
			"page":  page,
			"limit": limit,
			"total": total,
		},
	})
}

type confirmFinalRequest struct {
	Amount        decimal.Decimal `json:"amount" binding:"required"`
	PaymentMethod string          `json:"payment_method" binding:"omitempty,oneof=CASH TRANSFER YUNGOU"`
	Notes         string          `json:"notes" binding:"max=255"`
}

// ConfirmFinal records the technician-collected final payment and completes
// the order.
func (h *OrderHandler) ConfirmFinal(c *gin.Context) {
	technicianID := middleware.GetUserID(c)
	orderID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}
	var req confirmFinalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	method := req.PaymentMethod
	if method == "" {
		method = domain.PaymentMethodCash
	}
	order, payment, err := h.orderSvc.RecordFinalPayment(uint(orderID), technicianID, req.Amount, method, req.Notes)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrNotYourOrder):
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrAlreadyFinalized):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrAmountMismatch), errors.Is(err, service.ErrWrongOrderState):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to confirm final payment"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order, "payment": payment})
}

func (h *OrderHandler) Cancel(c *gin.Context) {
	customerID := middleware.GetUserID(c)
	orderID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}
	order, err := h.orderSvc.Cancel(uint(orderID), customerID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrNotYourOrder):
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrWrongOrderState):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to cancel order"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

func (h *OrderHandler) orderView(order *models.Order, viewerID uint) gin.H {
	return gin.H{
		"order":        order,
		"contact_info": h.orderSvc.DisplayContact(order, viewerID),
	}
}
