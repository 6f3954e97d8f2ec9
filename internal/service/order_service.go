package service

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"junyue/internal/domain"
	"junyue/internal/models"
	"junyue/internal/repository"
	"junyue/pkg/privacy"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// finalAmountTolerance absorbs currency rounding when a technician declares
// the collected final amount.
var finalAmountTolerance = decimal.New(1, -2) // 0.01

// OrderService owns the order state machine:
// PENDING -> CONFIRMED -> COMPLETED, with CANCELLED reachable from
// PENDING/CONFIRMED. Deposit and final amounts are frozen at creation.
type OrderService struct {
	db        *gorm.DB
	orderRepo *repository.OrderRepository
	techRepo  *repository.TechnicianRepository
	cipher    *privacy.Cipher
}

func NewOrderService(db *gorm.DB, orderRepo *repository.OrderRepository, techRepo *repository.TechnicianRepository, cipher *privacy.Cipher) *OrderService {
	return &OrderService{db: db, orderRepo: orderRepo, techRepo: techRepo, cipher: cipher}
}

type CreateOrderInput struct {
	TechnicianID    uint
	ServiceType     string
	ServiceDuration int
	TotalAmount     decimal.Decimal
	ServiceAddress  string
	ContactInfo     string
	ScheduledTime   time.Time
}

// Create books an order against a verified, currently available technician.
// The 50/50 deposit/final split is computed here; final = total - deposit, so
// the two always sum to the total exactly.
func (s *OrderService) Create(customerID uint, in CreateOrderInput) (*models.Order, error) {
	profile, err := s.techRepo.GetByUserID(in.TechnicianID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTechnicianUnavailable
		}
		return nil, err
	}
	if !profile.IsVerified || !profile.IsAvailable {
		return nil, ErrTechnicianUnavailable
	}

	deposit := in.TotalAmount.Mul(decimal.New(5, -1)).Round(2)
	final := in.TotalAmount.Sub(deposit)

	contact := in.ContactInfo
	if s.cipher != nil && contact != "" {
		enc, err := s.cipher.Encrypt(contact)
		if err != nil {
			return nil, fmt.Errorf("encrypt contact info: %w", err)
		}
		contact = enc
	}

	order := &models.Order{
		OrderNumber:     generateOrderNumber(),
		CustomerID:      customerID,
		TechnicianID:    in.TechnicianID,
		ServiceType:     in.ServiceType,
		ServiceDuration: in.ServiceDuration,
		TotalAmount:     in.TotalAmount,
		DepositAmount:   deposit,
		FinalAmount:     final,
		ServiceAddress:  in.ServiceAddress,
		ContactInfo:     contact,
		ScheduledTime:   in.ScheduledTime,
		Status:          domain.OrderStatusPending,
	}
	if err := s.orderRepo.Create(order); err != nil {
		return nil, err
	}
	return order, nil
}

// MarkDepositConfirmed advances PENDING -> CONFIRMED inside the caller's
// transaction. Calling it on an already CONFIRMED order is a no-op.
func (s *OrderService) MarkDepositConfirmed(tx *gorm.DB, orderID uint) error {
	order, err := s.orderRepo.GetByIDForUpdate(tx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrOrderNotFound
		}
		return err
	}
	switch order.Status {
	case domain.OrderStatusConfirmed:
		return nil
	case domain.OrderStatusPending:
		return tx.Model(order).Update("status", domain.OrderStatusConfirmed).Error
	default:
		return fmt.Errorf("%w: %s", ErrWrongOrderState, order.Status)
	}
}

// RecordFinalPayment settles the second stage: the technician declares the
// amount collected out-of-band. State transition, FINAL payment row and
// order-counter increment commit as one transaction.
func (s *OrderService) RecordFinalPayment(orderID, technicianID uint, declared decimal.Decimal, method, notes string) (*models.Order, *models.Payment, error) {
	var (
		order   *models.Order
		payment *models.Payment
	)
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		order, err = s.orderRepo.GetByIDForUpdate(tx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return err
		}
		if order.TechnicianID != technicianID {
			return ErrNotYourOrder
		}
		var existing models.Payment
		err = tx.Where("order_id = ? AND type = ?", orderID, domain.PaymentTypeFinal).First(&existing).Error
		if err == nil {
			return ErrAlreadyFinalized
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if order.Status != domain.OrderStatusConfirmed {
			return fmt.Errorf("%w: %s", ErrWrongOrderState, order.Status)
		}
		if declared.Sub(order.FinalAmount).Abs().Cmp(finalAmountTolerance) > 0 {
			return ErrAmountMismatch
		}

		now := time.Now()
		payment = &models.Payment{
			OrderID:       orderID,
			Amount:        order.FinalAmount,
			Type:          domain.PaymentTypeFinal,
			Status:        domain.PaymentStatusPaid,
			PaymentMethod: method,
			OutTradeNo:    order.OrderNumber + "-F",
			Notes:         notes,
			PaidAt:        &now,
		}
		if err := tx.Create(payment).Error; err != nil {
			return err
		}

		order.Status = domain.OrderStatusCompleted
		order.CompletedAt = &now
		if err := tx.Save(order).Error; err != nil {
			return err
		}

		return tx.Model(&models.TechnicianProfile{}).
			Where("user_id = ?", technicianID).
			UpdateColumn("order_count", gorm.Expr("order_count + 1")).Error
	})
	if err != nil {
		return nil, nil, err
	}
	log.Printf("[order] final payment recorded: order=%s amount=%s method=%s", order.OrderNumber, payment.Amount, method)
	return order, payment, nil
}

// Cancel moves a PENDING or CONFIRMED order to CANCELLED. Refund of an
// already-paid deposit is handled out of band.
func (s *OrderService) Cancel(orderID, customerID uint) (*models.Order, error) {
	var order *models.Order
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		order, err = s.orderRepo.GetByIDForUpdate(tx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return err
		}
		if order.CustomerID != customerID {
			return ErrNotYourOrder
		}
		if order.Status != domain.OrderStatusPending && order.Status != domain.OrderStatusConfirmed {
			return fmt.Errorf("%w: %s", ErrWrongOrderState, order.Status)
		}
		order.Status = domain.OrderStatusCancelled
		return tx.Save(order).Error
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// DisplayContact returns the contact info the viewer is allowed to see: the
// technician gets the plaintext once the deposit is confirmed, everyone else
// a masked form.
func (s *OrderService) DisplayContact(order *models.Order, viewerID uint) string {
	plain, err := s.cipher.Decrypt(order.ContactInfo)
	if err != nil {
		log.Printf("[order] decrypt contact for order=%s failed: %v", order.OrderNumber, err)
		return "****"
	}
	confirmed := order.Status == domain.OrderStatusConfirmed || order.Status == domain.OrderStatusCompleted
	if viewerID == order.TechnicianID && confirmed {
		return plain
	}
	return privacy.Mask(plain)
}

func generateOrderNumber() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:4])
	return fmt.Sprintf("SPA%d%s", time.Now().UnixMilli(), suffix)
}
