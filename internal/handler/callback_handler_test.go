package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"junyue/internal/domain"
	"junyue/internal/models"
	"junyue/internal/repository"
	"junyue/internal/service"
	"junyue/internal/testutil"
	"junyue/pkg/gateway"
	"junyue/pkg/privacy"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testGatewayKey = "callback_test_key"

type callbackFixture struct {
	db     *gorm.DB
	router *gin.Engine
}

func newCallbackFixture(t *testing.T) *callbackFixture {
	gin.SetMode(gin.TestMode)
	db := testutil.NewDB(t)

	userRepo := repository.NewUserRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	commissionRepo := repository.NewCommissionRepository(db)
	techRepo := repository.NewTechnicianRepository(db)
	cipher := privacy.NewCipher("callback-test-cipher")

	gw := gateway.NewClient("test_mch", testGatewayKey, "http://gateway.invalid", "http://app.invalid/callback", time.Second)
	orderSvc := service.NewOrderService(db, orderRepo, techRepo, cipher)
	commissionSvc := service.NewCommissionService(userRepo, commissionRepo, nil)

	h := NewCallbackHandler(db, gw, paymentRepo, orderRepo, orderSvc, commissionSvc)
	r := gin.New()
	r.POST("/api/v1/payments/callback/yungou", h.Handle)
	return &callbackFixture{db: db, router: r}
}

func (f *callbackFixture) seedUser(t *testing.T, phone, role string, inviterID *uint) *models.User {
	t.Helper()
	u := &models.User{
		Phone:      phone,
		Nickname:   "u" + phone,
		Role:       role,
		InviteCode: "c" + phone,
		InviterID:  inviterID,
	}
	require.NoError(t, f.db.Create(u).Error)
	return u
}

// seedPendingDeposit creates an order with its pending DEPOSIT payment row,
// the state the system is in right after a deposit intent was created.
func (f *callbackFixture) seedPendingDeposit(t *testing.T, customerID, technicianID uint, total string) (*models.Order, *models.Payment) {
	t.Helper()
	totalDec := decimal.RequireFromString(total)
	deposit := totalDec.Mul(decimal.New(5, -1)).Round(2)
	order := &models.Order{
		OrderNumber:     fmt.Sprintf("SPA%d%d", time.Now().UnixMilli(), customerID),
		CustomerID:      customerID,
		TechnicianID:    technicianID,
		ServiceType:     "massage",
		ServiceDuration: 90,
		TotalAmount:     totalDec,
		DepositAmount:   deposit,
		FinalAmount:     totalDec.Sub(deposit),
		ScheduledTime:   time.Now().Add(time.Hour),
		Status:          domain.OrderStatusPending,
	}
	require.NoError(t, f.db.Create(order).Error)
	payment := &models.Payment{
		OrderID:       order.ID,
		Amount:        deposit,
		Type:          domain.PaymentTypeDeposit,
		Status:        domain.PaymentStatusPending,
		PaymentMethod: domain.PaymentMethodYunGou,
		OutTradeNo:    order.OrderNumber + "-D1",
	}
	require.NoError(t, f.db.Create(payment).Error)
	return order, payment
}

// signedCallbackForm builds a gateway notification form for a payment,
// signed with the shared key. Overrides are applied before signing unless
// the override targets the sign field itself.
func signedCallbackForm(t *testing.T, order *models.Order, payment *models.Payment, feeFen int64, overrides map[string]string) url.Values {
	t.Helper()
	attach, err := json.Marshal(callbackAttach{PaymentID: payment.ID, OrderID: order.ID})
	require.NoError(t, err)
	params := map[string]string{
		"out_trade_no":   payment.OutTradeNo,
		"transaction_id": "wx_" + payment.OutTradeNo,
		"total_fee":      fmt.Sprintf("%d", feeFen),
		"trade_state":    "SUCCESS",
		"time_end":       time.Now().Format("20060102150405"),
		"attach":         string(attach),
	}
	var forcedSign string
	for k, v := range overrides {
		if k == "sign" {
			forcedSign = v
			continue
		}
		params[k] = v
	}
	sign := gateway.Sign(params, testGatewayKey)
	if forcedSign != "" {
		sign = forcedSign
	}
	form := url.Values{}
	for k, v := range params {
		form.Set(k, v)
	}
	form.Set("sign", sign)
	return form
}

func (f *callbackFixture) post(t *testing.T, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/callback/yungou", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestCallbackConfirmsDepositAndOrder(t *testing.T) {
	f := newCallbackFixture(t)
	tech := f.seedUser(t, "800", domain.RoleTechnician, nil)
	cust := f.seedUser(t, "801", domain.RoleCustomer, nil)
	order, payment := f.seedPendingDeposit(t, cust.ID, tech.ID, "300.00")

	w := f.post(t, signedCallbackForm(t, order, payment, 15000, nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "SUCCESS", w.Body.String())

	var gotPayment models.Payment
	require.NoError(t, f.db.First(&gotPayment, payment.ID).Error)
	assert.Equal(t, domain.PaymentStatusPaid, gotPayment.Status)
	assert.Equal(t, "wx_"+payment.OutTradeNo, gotPayment.TransactionID)
	require.NotNil(t, gotPayment.PaidAt)

	var gotOrder models.Order
	require.NoError(t, f.db.First(&gotOrder, order.ID).Error)
	assert.Equal(t, domain.OrderStatusConfirmed, gotOrder.Status)
}

func TestCallbackReplayIsIdempotent(t *testing.T) {
	f := newCallbackFixture(t)
	tech := f.seedUser(t, "810", domain.RoleTechnician, nil)
	inviter := f.seedUser(t, "811", domain.RoleCustomer, nil)
	cust := f.seedUser(t, "812", domain.RoleCustomer, &inviter.ID)
	for i := 0; i < 4; i++ {
		f.seedUser(t, fmt.Sprintf("813%d", i), domain.RoleCustomer, &inviter.ID)
	}
	order, payment := f.seedPendingDeposit(t, cust.ID, tech.ID, "300.00")

	form := signedCallbackForm(t, order, payment, 15000, nil)
	for i := 0; i < 5; i++ {
		w := f.post(t, form)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "SUCCESS", w.Body.String(), "delivery %d", i)
	}

	var paymentCount int64
	f.db.Model(&models.Payment{}).Where("order_id = ? AND status = ?", order.ID, domain.PaymentStatusPaid).Count(&paymentCount)
	assert.Equal(t, int64(1), paymentCount)

	var commissionCount int64
	f.db.Model(&models.Commission{}).Where("order_id = ?", order.ID).Count(&commissionCount)
	assert.Equal(t, int64(1), commissionCount)

	var gotOrder models.Order
	require.NoError(t, f.db.First(&gotOrder, order.ID).Error)
	assert.Equal(t, domain.OrderStatusConfirmed, gotOrder.Status)
}

func TestCallbackRejectsAmountMismatch(t *testing.T) {
	f := newCallbackFixture(t)
	tech := f.seedUser(t, "820", domain.RoleTechnician, nil)
	cust := f.seedUser(t, "821", domain.RoleCustomer, nil)
	order, payment := f.seedPendingDeposit(t, cust.ID, tech.ID, "300.00")

	// one fen short of the expected 15000
	w := f.post(t, signedCallbackForm(t, order, payment, 14999, nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "FAIL", w.Body.String())

	var gotPayment models.Payment
	require.NoError(t, f.db.First(&gotPayment, payment.ID).Error)
	assert.Equal(t, domain.PaymentStatusPending, gotPayment.Status)

	var gotOrder models.Order
	require.NoError(t, f.db.First(&gotOrder, order.ID).Error)
	assert.Equal(t, domain.OrderStatusPending, gotOrder.Status)

	var commissionCount int64
	f.db.Model(&models.Commission{}).Count(&commissionCount)
	assert.Zero(t, commissionCount)
}

func TestCallbackRejectsBadSignature(t *testing.T) {
	f := newCallbackFixture(t)
	tech := f.seedUser(t, "830", domain.RoleTechnician, nil)
	cust := f.seedUser(t, "831", domain.RoleCustomer, nil)
	order, payment := f.seedPendingDeposit(t, cust.ID, tech.ID, "300.00")

	w := f.post(t, signedCallbackForm(t, order, payment, 15000, map[string]string{
		"sign": "00000000000000000000000000000000",
	}))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "FAIL", w.Body.String())

	var gotPayment models.Payment
	require.NoError(t, f.db.First(&gotPayment, payment.ID).Error)
	assert.Equal(t, domain.PaymentStatusPending, gotPayment.Status)
}

func TestCallbackRejectsFailedTradeState(t *testing.T) {
	f := newCallbackFixture(t)
	tech := f.seedUser(t, "840", domain.RoleTechnician, nil)
	cust := f.seedUser(t, "841", domain.RoleCustomer, nil)
	order, payment := f.seedPendingDeposit(t, cust.ID, tech.ID, "300.00")

	w := f.post(t, signedCallbackForm(t, order, payment, 15000, map[string]string{
		"trade_state": "CLOSED",
	}))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "FAIL", w.Body.String())
}

func TestCallbackRejectsUnknownPayment(t *testing.T) {
	f := newCallbackFixture(t)
	tech := f.seedUser(t, "850", domain.RoleTechnician, nil)
	cust := f.seedUser(t, "851", domain.RoleCustomer, nil)
	order, payment := f.seedPendingDeposit(t, cust.ID, tech.ID, "300.00")

	ghost := *payment
	ghost.ID = payment.ID + 1000
	w := f.post(t, signedCallbackForm(t, order, &ghost, 15000, nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "FAIL", w.Body.String())
}

// TestSettlementEndToEnd walks one order through the full settlement path:
// a 300.00 booking, the 150.00 deposit confirmed by gateway callback, the
// referrer at a fan-out of five credited 10 percent of the deposit, then the
// technician settling the 150.00 final payment in cash.
func TestSettlementEndToEnd(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := testutil.NewDB(t)

	userRepo := repository.NewUserRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	commissionRepo := repository.NewCommissionRepository(db)
	techRepo := repository.NewTechnicianRepository(db)
	cipher := privacy.NewCipher("e2e-cipher-key")

	gw := gateway.NewClient("test_mch", testGatewayKey, "http://gateway.invalid", "http://app.invalid/callback", time.Second)
	orderSvc := service.NewOrderService(db, orderRepo, techRepo, cipher)
	commissionSvc := service.NewCommissionService(userRepo, commissionRepo, nil)

	h := NewCallbackHandler(db, gw, paymentRepo, orderRepo, orderSvc, commissionSvc)
	r := gin.New()
	r.POST("/api/v1/payments/callback/yungou", h.Handle)

	inviter := &models.User{Phone: "900", Nickname: "inviter", Role: domain.RoleCustomer, InviteCode: "c900"}
	require.NoError(t, db.Create(inviter).Error)
	for i := 0; i < 4; i++ {
		u := &models.User{Phone: fmt.Sprintf("90%d", i+1), Nickname: "filler", Role: domain.RoleCustomer, InviteCode: fmt.Sprintf("c90%d", i+1), InviterID: &inviter.ID}
		require.NoError(t, db.Create(u).Error)
	}
	customer := &models.User{Phone: "910", Nickname: "customer", Role: domain.RoleCustomer, InviteCode: "c910", InviterID: &inviter.ID}
	require.NoError(t, db.Create(customer).Error)
	techUser := &models.User{Phone: "920", Nickname: "tech", Role: domain.RoleTechnician, InviteCode: "c920"}
	require.NoError(t, db.Create(techUser).Error)
	require.NoError(t, db.Create(&models.TechnicianProfile{
		UserID: techUser.ID, City: "Shanghai", Services: "massage",
		PricePerHour: decimal.RequireFromString("200.00"),
		IsVerified:   true, IsAvailable: true,
	}).Error)

	order, err := orderSvc.Create(customer.ID, service.CreateOrderInput{
		TechnicianID:    techUser.ID,
		ServiceType:     "massage",
		ServiceDuration: 90,
		TotalAmount:     decimal.RequireFromString("300.00"),
		ServiceAddress:  "1 Example Rd",
		ContactInfo:     "13812345678",
		ScheduledTime:   time.Now().Add(2 * time.Hour),
	})
	require.NoError(t, err)
	require.True(t, order.DepositAmount.Equal(decimal.RequireFromString("150.00")))
	require.True(t, order.FinalAmount.Equal(decimal.RequireFromString("150.00")))

	payment := &models.Payment{
		OrderID:       order.ID,
		Amount:        order.DepositAmount,
		Type:          domain.PaymentTypeDeposit,
		Status:        domain.PaymentStatusPending,
		PaymentMethod: domain.PaymentMethodYunGou,
		OutTradeNo:    order.OrderNumber + "-Dab12",
	}
	require.NoError(t, paymentRepo.Create(payment))

	form := signedCallbackForm(t, order, payment, 15000, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/callback/yungou", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "SUCCESS", w.Body.String())

	var gotOrder models.Order
	require.NoError(t, db.First(&gotOrder, order.ID).Error)
	assert.Equal(t, domain.OrderStatusConfirmed, gotOrder.Status)

	var commission models.Commission
	require.NoError(t, db.Where("order_id = ?", order.ID).First(&commission).Error)
	assert.Equal(t, inviter.ID, commission.UserID)
	assert.True(t, commission.Amount.Equal(decimal.RequireFromString("15.00")), "got %s", commission.Amount)
	assert.Equal(t, domain.CommissionTypeCustomerInvite, commission.Type)
	assert.Equal(t, domain.CommissionStatusPending, commission.Status)

	completed, finalPayment, err := orderSvc.RecordFinalPayment(order.ID, techUser.ID, decimal.RequireFromString("150.00"), domain.PaymentMethodCash, "")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCompleted, completed.Status)
	assert.True(t, finalPayment.Amount.Add(order.DepositAmount).Equal(order.TotalAmount))

	var profile models.TechnicianProfile
	require.NoError(t, db.Where("user_id = ?", techUser.ID).First(&profile).Error)
	assert.Equal(t, 1, profile.OrderCount)
}
