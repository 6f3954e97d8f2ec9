package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"junyue/config"
	"junyue/internal/domain"
	"junyue/internal/middleware"
	"junyue/internal/models"
	"junyue/internal/repository"
	"junyue/internal/service"
	"junyue/pkg/gateway"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	qrcode "github.com/skip2/go-qrcode"
	"gorm.io/gorm"
)

type PaymentHandler struct {
	cfg         *config.Config
	gw          *gateway.Client
	orderRepo   *repository.OrderRepository
	paymentRepo *repository.PaymentRepository
}

func NewPaymentHandler(cfg *config.Config, gw *gateway.Client, orderRepo *repository.OrderRepository, paymentRepo *repository.PaymentRepository) *PaymentHandler {
	return &PaymentHandler{cfg: cfg, gw: gw, orderRepo: orderRepo, paymentRepo: paymentRepo}
}

type depositRequest struct {
	OrderID uint `json:"order_id" binding:"required"`
}

// CreateDeposit creates the deposit payment intent for a PENDING order owned
// by the caller. The local PENDING Payment row exists before the gateway is
// called; a confirmed gateway failure rolls it back, an unknown outcome
// (timeout) leaves it PENDING for reconciliation via query.
func (h *PaymentHandler) CreateDeposit(c *gin.Context) {
	userID := middleware.GetUserID(c)
	var req depositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := h.orderRepo.GetByID(req.OrderID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": service.ErrOrderNotFound.Error()})
		return
	}
	if order.CustomerID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": service.ErrNotYourOrder.Error()})
		return
	}
	if order.Status != domain.OrderStatusPending {
		c.JSON(http.StatusConflict, gin.H{"error": service.ErrWrongOrderState.Error()})
		return
	}

	outTradeNo := fmt.Sprintf("%s-D%s", order.OrderNumber, strings.ToUpper(uuid.NewString()[:4]))
	payment, reused, err := h.prepareDepositRow(order, outTradeNo)
	if err != nil {
		if errors.Is(err, service.ErrDepositExists) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create payment"})
		return
	}

	attach, _ := json.Marshal(callbackAttach{PaymentID: payment.ID, OrderID: order.ID})
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.cfg.Gateway.Timeout)
	defer cancel()
	res, err := h.gw.CreatePayment(ctx, gateway.CreateRequest{
		OutTradeNo: outTradeNo,
		Amount:     order.DepositAmount,
		Body:       fmt.Sprintf("Deposit for %s (%s)", order.OrderNumber, order.ServiceType),
		Attach:     string(attach),
	})
	if err != nil {
		var gwErr *gateway.Error
		if errors.As(err, &gwErr) {
			// Confirmed rejection: leave no trace of this attempt.
			h.rollbackDepositRow(payment, reused)
			log.Printf("[payment] gateway rejected deposit for order=%s: %v", order.OrderNumber, err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "payment gateway rejected the request"})
			return
		}
		// Timeout or transport failure: the intent may exist at the gateway.
		// The row stays PENDING; callers should query before retrying.
		log.Printf("[payment] gateway outcome unknown for order=%s out_trade_no=%s: %v", order.OrderNumber, outTradeNo, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "payment gateway unavailable, retry later"})
		return
	}

	qr := res.QRCode
	if qr == "" && res.PaymentURL != "" {
		if png, err := qrcode.Encode(res.PaymentURL, qrcode.Medium, 256); err == nil {
			qr = "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"payment_id":   payment.ID,
		"amount":       payment.Amount,
		"payment_url":  res.PaymentURL,
		"qr_code":      qr,
		"out_trade_no": outTradeNo,
	})
}

// prepareDepositRow returns the PENDING deposit row for the order, reusing a
// FAILED attempt when one exists. The (order_id, type) unique index means a
// concurrent create surfaces as a duplicate-key error here, never as a
// second row.
func (h *PaymentHandler) prepareDepositRow(order *models.Order, outTradeNo string) (*models.Payment, bool, error) {
	existing, err := h.paymentRepo.GetByOrderAndType(order.ID, domain.PaymentTypeDeposit)
	if err == nil {
		if existing.Status != domain.PaymentStatusFailed {
			return nil, false, service.ErrDepositExists
		}
		existing.Status = domain.PaymentStatusPending
		existing.OutTradeNo = outTradeNo
		existing.Amount = order.DepositAmount
		existing.TransactionID = ""
		if err := h.paymentRepo.Update(existing); err != nil {
			return nil, false, err
		}
		return existing, true, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}
	payment := &models.Payment{
		OrderID:       order.ID,
		Amount:        order.DepositAmount,
		Type:          domain.PaymentTypeDeposit,
		Status:        domain.PaymentStatusPending,
		PaymentMethod: domain.PaymentMethodYunGou,
		OutTradeNo:    outTradeNo,
	}
	if err := h.paymentRepo.Create(payment); err != nil {
		// A concurrent request slipped in between the check and the insert;
		// the unique index made this one lose. Confirm and report in-flight.
		if _, lookupErr := h.paymentRepo.GetByOrderAndType(order.ID, domain.PaymentTypeDeposit); lookupErr == nil {
			return nil, false, service.ErrDepositExists
		}
		return nil, false, err
	}
	return payment, false, nil
}

func (h *PaymentHandler) rollbackDepositRow(payment *models.Payment, reused bool) {
	if reused {
		payment.Status = domain.PaymentStatusFailed
		if err := h.paymentRepo.Update(payment); err != nil {
			log.Printf("[payment] mark payment=%d FAILED after gateway rejection: %v", payment.ID, err)
		}
		return
	}
	if err := h.paymentRepo.Delete(payment); err != nil {
		log.Printf("[payment] rollback payment=%d after gateway rejection: %v", payment.ID, err)
	}
}
