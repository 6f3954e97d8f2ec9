package handler

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"junyue/internal/domain"
	"junyue/internal/models"
	"junyue/internal/monitoring"
	"junyue/internal/repository"
	"junyue/internal/service"
	"junyue/pkg/gateway"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Gateway-mandated acknowledgment tokens. Anything but the literal success
// body makes the gateway redeliver.
const (
	callbackAckSuccess = "SUCCESS"
	callbackAckFail    = "FAIL"
)

// callbackAttach is the correlation payload we hand the gateway at intent
// creation; it comes back verbatim in the callback.
type callbackAttach struct {
	PaymentID uint `json:"payment_id"`
	OrderID   uint `json:"order_id"`
}

// CallbackHandler is the single entry point for gateway payment
// notifications. Every gate rejects without touching state; only the final
// transaction writes, and it writes exactly once per payment.
type CallbackHandler struct {
	db            *gorm.DB
	gw            *gateway.Client
	paymentRepo   *repository.PaymentRepository
	orderRepo     *repository.OrderRepository
	orderSvc      *service.OrderService
	commissionSvc *service.CommissionService
}

func NewCallbackHandler(db *gorm.DB, gw *gateway.Client, paymentRepo *repository.PaymentRepository, orderRepo *repository.OrderRepository, orderSvc *service.OrderService, commissionSvc *service.CommissionService) *CallbackHandler {
	return &CallbackHandler{db: db, gw: gw, paymentRepo: paymentRepo, orderRepo: orderRepo, orderSvc: orderSvc, commissionSvc: commissionSvc}
}

// Handle processes a YunGou payment notification. Delivery is at-least-once
// and unordered; replays acknowledge success without re-applying side
// effects.
func (h *CallbackHandler) Handle(c *gin.Context) {
	if err := c.Request.ParseForm(); err != nil {
		log.Printf("[callback] bad form: %v", err)
		h.reject(c)
		return
	}
	params := make(map[string]string, len(c.Request.PostForm))
	for k, v := range c.Request.PostForm {
		if len(v) > 0 {
			params[k] = v[0]
		}
	}

	result, err := h.gw.ParseCallback(params)
	if err != nil {
		// May indicate tampering; keep the audit trail.
		log.Printf("[callback] rejected: out_trade_no=%s err=%v", params["out_trade_no"], err)
		h.reject(c)
		return
	}

	var att callbackAttach
	if err := json.Unmarshal([]byte(result.Attach), &att); err != nil || att.PaymentID == 0 {
		log.Printf("[callback] unparseable attach %q for out_trade_no=%s", result.Attach, result.OutTradeNo)
		h.reject(c)
		return
	}

	payment, err := h.paymentRepo.GetByID(att.PaymentID)
	if err != nil {
		log.Printf("[callback] unknown payment id=%d out_trade_no=%s", att.PaymentID, result.OutTradeNo)
		h.reject(c)
		return
	}

	if !gateway.FenToYuan(result.TotalFee).Equal(payment.Amount) {
		log.Printf("[callback] amount mismatch: payment=%d expected=%s got=%d fen", payment.ID, payment.Amount, result.TotalFee)
		h.reject(c)
		return
	}

	if payment.Status == domain.PaymentStatusPaid {
		monitoring.GatewayCallbacksTotal.WithLabelValues("replayed").Inc()
		c.String(http.StatusOK, callbackAckSuccess)
		return
	}

	replayed := false
	err = h.db.Transaction(func(tx *gorm.DB) error {
		locked, err := h.paymentRepo.GetByIDForUpdate(tx, payment.ID)
		if err != nil {
			return err
		}
		if locked.Status == domain.PaymentStatusPaid {
			// Lost the race against a concurrent delivery.
			replayed = true
			return nil
		}
		now := time.Now()
		locked.Status = domain.PaymentStatusPaid
		locked.TransactionID = result.TransactionID
		locked.PaidAt = &now
		if err := tx.Save(locked).Error; err != nil {
			return err
		}
		if locked.Type == domain.PaymentTypeDeposit {
			return h.orderSvc.MarkDepositConfirmed(tx, locked.OrderID)
		}
		return nil
	})
	if err != nil {
		log.Printf("[callback] apply failed: payment=%d err=%v", payment.ID, err)
		h.reject(c)
		return
	}

	if replayed {
		monitoring.GatewayCallbacksTotal.WithLabelValues("replayed").Inc()
		c.String(http.StatusOK, callbackAckSuccess)
		return
	}

	monitoring.GatewayCallbacksTotal.WithLabelValues("confirmed").Inc()
	monitoring.PaymentsConfirmedTotal.WithLabelValues(payment.Type).Inc()
	log.Printf("[callback] payment=%d confirmed, txn=%s", payment.ID, result.TransactionID)

	// Commission is a non-fatal side effect: the deposit confirmation above
	// is already committed and must not be unwound by a commission failure.
	if payment.Type == domain.PaymentTypeDeposit {
		h.recordCommission(payment)
	}

	c.String(http.StatusOK, callbackAckSuccess)
}

func (h *CallbackHandler) recordCommission(payment *models.Payment) {
	order, err := h.orderRepo.GetByID(payment.OrderID)
	if err != nil {
		monitoring.CommissionFailuresTotal.Inc()
		log.Printf("[commission] order lookup failed for payment=%d: %v", payment.ID, err)
		return
	}
	commission, err := h.commissionSvc.ComputeAndRecord(order)
	if err != nil {
		monitoring.CommissionFailuresTotal.Inc()
		log.Printf("[commission] order=%s failed, needs reconciliation: %v", order.OrderNumber, err)
		return
	}
	if commission != nil {
		monitoring.CommissionsRecordedTotal.Inc()
	}
}

func (h *CallbackHandler) reject(c *gin.Context) {
	monitoring.GatewayCallbacksTotal.WithLabelValues("rejected").Inc()
	c.String(http.StatusOK, callbackAckFail)
}
