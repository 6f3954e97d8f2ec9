package service

import "errors"

var (
	ErrPhoneExists           = errors.New("phone already registered")
	ErrInvalidCreds          = errors.New("invalid phone or password")
	ErrTechnicianUnavailable = errors.New("technician is not available for booking")
	ErrOrderNotFound         = errors.New("order not found")
	ErrNotYourOrder          = errors.New("order belongs to another user")
	ErrWrongOrderState       = errors.New("order is not in the required state")
	ErrAlreadyFinalized      = errors.New("final payment already recorded for this order")
	ErrAmountMismatch        = errors.New("declared amount does not match the order amount")
	ErrUnknownPayment        = errors.New("payment record not found")
	ErrDepositExists         = errors.New("deposit payment already created for this order")
)
