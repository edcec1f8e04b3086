package service

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	ErrValidation   = errors.New("validation")   // 400
	ErrUnauthorized = errors.New("unauthorized") // 401
	ErrForbidden    = errors.New("forbidden")    // 403
	ErrNotFound     = errors.New("not found")    // 404
	ErrConflict     = errors.New("conflict")     // 409
)

const (
	CodeValidation = "VALIDATION_ERROR"

	CodeVoucherNotFound   = "VOUCHER_NOT_FOUND"
	CodeVoucherInactive   = "VOUCHER_INACTIVE"
	CodeVoucherNotStarted = "VOUCHER_NOT_STARTED"
	CodeVoucherExpired    = "VOUCHER_EXPIRED"
	CodeVoucherUsageLimit = "VOUCHER_USAGE_LIMIT"
	CodeVoucherUserLimit  = "VOUCHER_USER_LIMIT"
	CodeVoucherMinOrder   = "VOUCHER_MIN_ORDER"

	CodeCartEmpty          = "CART_EMPTY"
	CodeSessionRequired    = "SESSION_REQUIRED"
	CodeProductUnavailable = "PRODUCT_UNAVAILABLE"
	CodeInsufficientStock  = "INSUFFICIENT_STOCK"
	CodeInvalidShipping    = "INVALID_SHIPPING"
	CodeInvalidContact     = "INVALID_CONTACT"
	CodeInvalidTransition  = "INVALID_STATUS_TRANSITION"

	CodeInvalidPaymentState = "INVALID_PAYMENT_STATE"
	CodePaymentPending      = "PAYMENT_PENDING_EXISTS"
	CodeOrderAlreadyPaid    = "ORDER_ALREADY_PAID"
	CodeInvalidSlip         = "INVALID_SLIP"
	CodeReasonRequired      = "REASON_REQUIRED"
)

// CodedError is a failure the client can act on. It unwraps to Kind so
// callers can still match the sentinel.
type CodedError struct {
	Code    string
	Message string
	Kind    error
}

func (e *CodedError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *CodedError) Unwrap() error {
	return e.Kind
}

func invalid(code, msg string) error {
	return &CodedError{Code: code, Message: msg, Kind: ErrValidation}
}

func invalidf(format string, args ...any) error {
	return invalid(CodeValidation, fmt.Sprintf(format, args...))
}

func conflict(code, msg string) error {
	return &CodedError{Code: code, Message: msg, Kind: ErrConflict}
}

// notFound turns a missing row into ErrNotFound and passes anything else through.
func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	}
	return err
}

func isDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
