package service

import (
	"errors"
	"log"

	"junyue/internal/domain"
	"junyue/internal/models"
	"junyue/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AgentClassifier decides whether a referrer is settled on the agent ladder.
type AgentClassifier func(u *models.User) bool

// CommissionService computes referral commissions when a deposit payment is
// confirmed. Only the direct referrer (level 1) is rewarded.
type CommissionService struct {
	userRepo       *repository.UserRepository
	commissionRepo *repository.CommissionRepository
	classify       AgentClassifier
}

func NewCommissionService(userRepo *repository.UserRepository, commissionRepo *repository.CommissionRepository, classify AgentClassifier) *CommissionService {
	if classify == nil {
		classify = func(u *models.User) bool { return u.IsAgent }
	}
	return &CommissionService{userRepo: userRepo, commissionRepo: commissionRepo, classify: classify}
}

// ordinaryRatePercent maps referral fan-out to a commission percentage for
// ordinary referrers. Step boundaries are inclusive-lower.
func ordinaryRatePercent(inviteCount int64) int64 {
	switch {
	case inviteCount >= 100:
		return 20
	case inviteCount >= 51:
		return 15
	case inviteCount >= 11:
		return 12
	case inviteCount >= 3:
		return 10
	default:
		return 0
	}
}

// agentRatePercent is the higher ladder for agent referrers.
func agentRatePercent(inviteCount int64) int64 {
	switch {
	case inviteCount >= 500:
		return 40
	case inviteCount >= 200:
		return 35
	case inviteCount >= 100:
		return 30
	case inviteCount >= 50:
		return 25
	default:
		return 20
	}
}

// ComputeAndRecord walks one level up the referral chain from the order's
// customer and records the applicable commission. It is safe to call again
// for the same order: an existing (beneficiary, order) row short-circuits,
// and the unique index catches the insert race. A customer without a
// referrer is a no-op, not an error.
func (s *CommissionService) ComputeAndRecord(order *models.Order) (*models.Commission, error) {
	customer, err := s.userRepo.GetByID(order.CustomerID)
	if err != nil {
		return nil, err
	}
	if customer.InviterID == nil {
		return nil, nil
	}
	inviter, err := s.userRepo.GetByID(*customer.InviterID)
	if err != nil {
		return nil, err
	}
	inviteCount, err := s.userRepo.CountInvitees(inviter.ID)
	if err != nil {
		return nil, err
	}

	var percent int64
	commissionType := domain.CommissionTypeCustomerInvite
	if s.classify(inviter) {
		percent = agentRatePercent(inviteCount)
		commissionType = domain.CommissionTypeAgentCommission
	} else {
		percent = ordinaryRatePercent(inviteCount)
	}
	if percent == 0 {
		return nil, nil
	}

	if existing, err := s.commissionRepo.GetByUserAndOrder(inviter.ID, order.ID); err == nil {
		log.Printf("[commission] order=%s already granted to user=%d, skipping", order.OrderNumber, inviter.ID)
		return existing, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	pct := decimal.NewFromInt(percent)
	commission := &models.Commission{
		UserID:     inviter.ID,
		OrderID:    order.ID,
		Amount:     order.DepositAmount.Mul(pct).Div(decimal.NewFromInt(100)).Round(2),
		Percentage: pct,
		Type:       commissionType,
		Status:     domain.CommissionStatusPending,
		Level:      1,
	}
	if err := s.commissionRepo.Create(commission); err != nil {
		// A concurrent callback may have inserted first; the unique index
		// turns the race into a duplicate-key error.
		if existing, lookupErr := s.commissionRepo.GetByUserAndOrder(inviter.ID, order.ID); lookupErr == nil {
			return existing, nil
		}
		return nil, err
	}
	log.Printf("[commission] order=%s user=%d rate=%d%% amount=%s type=%s", order.OrderNumber, inviter.ID, percent, commission.Amount, commissionType)
	return commission, nil
}
