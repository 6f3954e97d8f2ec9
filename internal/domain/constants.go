package domain

const (
	RoleCustomer   = "CUSTOMER"
	RoleTechnician = "TECHNICIAN"
	RoleAdmin      = "ADMIN"
)

const (
	OrderStatusPending   = "PENDING"
	OrderStatusConfirmed = "CONFIRMED"
	OrderStatusCompleted = "COMPLETED"
	OrderStatusCancelled = "CANCELLED"
)

const (
	PaymentTypeDeposit = "DEPOSIT"
	PaymentTypeFinal   = "FINAL"
)

const (
	PaymentStatusPending = "PENDING"
	PaymentStatusPaid    = "PAID"
	PaymentStatusFailed  = "FAILED"
)

const (
	PaymentMethodYunGou   = "YUNGOU"
	PaymentMethodCash     = "CASH"
	PaymentMethodTransfer = "TRANSFER"
)

const (
	CommissionTypeCustomerInvite  = "CUSTOMER_INVITE"
	CommissionTypeAgentCommission = "AGENT_COMMISSION"
)

const (
	CommissionStatusPending = "PENDING"
	CommissionStatusPaid    = "PAID"
)
