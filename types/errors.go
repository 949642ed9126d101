package types

import (
	"errors"
	"fmt"
)

// ARPayError is the coded error returned by every package of this module.
type ARPayError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e *ARPayError) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return e.Message
}

// Is matches any ARPayError carrying the same code.
func (e *ARPayError) Is(target error) bool {
	var t *ARPayError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Error codes
const (
	ErrInvalidAddress      = "INVALID_ADDRESS"
	ErrInvalidAmount       = "INVALID_AMOUNT"
	ErrInvalidRequest      = "INVALID_REQUEST"
	ErrUnknownNetwork      = "UNKNOWN_NETWORK"
	ErrRouteNotSupported   = "ROUTE_NOT_SUPPORTED"
	ErrWalletNotConnected  = "WALLET_NOT_CONNECTED"
	ErrUnsupportedNetwork  = "UNSUPPORTED_NETWORK"
	ErrUserRejected        = "USER_REJECTED"
	ErrInsufficientFunds   = "INSUFFICIENT_FUNDS"
	ErrConfirmationTimeout = "CONFIRMATION_TIMEOUT"
	ErrTransactionReverted = "TRANSACTION_REVERTED"
	ErrCancelled           = "CANCELLED"
	ErrPersistenceFailure  = "PERSISTENCE_FAILURE"
	ErrNotFound            = "NOT_FOUND"
	ErrAlreadyTerminal     = "ALREADY_TERMINAL"
	ErrSubmissionFailed    = "SUBMISSION_FAILED"
	ErrConfigError         = "CONFIG_ERROR"
)

// NewError builds a coded error with a formatted message.
func NewError(code, format string, args ...interface{}) *ARPayError {
	return &ARPayError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// ErrorCode extracts the code of the first ARPayError in err's chain.
func ErrorCode(err error) string {
	var e *ARPayError
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsCode reports whether err carries code.
func IsCode(err error, code string) bool {
	return err != nil && ErrorCode(err) == code
}

var userMessages = map[string]string{
	ErrUserRejected:        "You declined the payment in your wallet.",
	ErrInsufficientFunds:   "Your wallet does not hold enough funds to complete this payment.",
	ErrConfirmationTimeout: "Payment submitted. We could not confirm it yet; it may still complete.",
	ErrWalletNotConnected:  "Connect a wallet to pay.",
	ErrUnsupportedNetwork:  "Your wallet could not switch to the payment network.",
	ErrTransactionReverted: "The payment transaction failed on chain.",
	ErrCancelled:           "Payment cancelled.",
	ErrRouteNotSupported:   "Payments between these networks are not supported.",
}

// UserMessage returns the end-user text for a failure code.
func UserMessage(code string) string {
	if msg, ok := userMessages[code]; ok {
		return msg
	}
	return "The payment could not be completed."
}
