package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	// Structural: the command stream is malformed or out of order.
	RootTransactionRequired ErrorCode = "root_transaction_required"
	InvalidTransition       ErrorCode = "invalid_transition"
	UnexpectedTransaction   ErrorCode = "unexpected_transaction"
	UnexpectedClient        ErrorCode = "unexpected_client"

	// Balance: the command is well formed but a business rule rejects it.
	InsufficientFunds         ErrorCode = "insufficient_funds"
	AccountLocked             ErrorCode = "account_locked"
	ClientMismatch            ErrorCode = "client_mismatch"
	InvalidOpeningTransaction ErrorCode = "invalid_opening_transaction"

	InvalidInput    ErrorCode = "invalid_input"
	InvalidAmount   ErrorCode = "invalid_amount"
	AccountNotFound ErrorCode = "account_not_found"

	StorageError  ErrorCode = "storage_error"
	InternalError ErrorCode = "internal_error"
)

// Kind groups error codes by where the fault lies.
type Kind string

const (
	KindStructural     Kind = "structural"
	KindBalance        Kind = "balance"
	KindInput          Kind = "input"
	KindInfrastructure Kind = "infrastructure"
)

func (c ErrorCode) Kind() Kind {
	switch c {
	case RootTransactionRequired, InvalidTransition, UnexpectedTransaction, UnexpectedClient:
		return KindStructural
	case InsufficientFunds, AccountLocked, ClientMismatch, InvalidOpeningTransaction:
		return KindBalance
	case InvalidInput, InvalidAmount, AccountNotFound:
		return KindInput
	default:
		return KindInfrastructure
	}
}

type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
}

func (e AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches any *AppError carrying the same code, so callers can use
// errors.Is(err, ErrInsufficientFunds) regardless of message or details.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func NewAppError(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

func NewAppErrorf(code ErrorCode, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// WithDetails returns a copy so that predefined errors are never mutated.
func (e *AppError) WithDetails(details string) *AppError {
	cp := *e
	cp.Details = details
	return &cp
}

func (e *AppError) HTTPStatus() int {
	switch e.Code.Kind() {
	case KindStructural:
		return http.StatusConflict
	case KindBalance:
		return http.StatusUnprocessableEntity
	}

	switch e.Code {
	case AccountNotFound:
		return http.StatusNotFound
	case InvalidInput, InvalidAmount:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// AsAppError finds the first *AppError in err's chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// CodeOf returns the code of the first *AppError in err's chain, or
// InternalError when there is none.
func CodeOf(err error) ErrorCode {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	return InternalError
}

// Predefined errors for common cases
var (
	ErrRootTransactionRequired   = NewAppError(RootTransactionRequired, "transactions must start with a deposit or withdrawal")
	ErrUnexpectedTransaction     = NewAppError(UnexpectedTransaction, "command does not refer to the stored transaction")
	ErrUnexpectedClient          = NewAppError(UnexpectedClient, "transaction belongs to another client")
	ErrInvalidTransition         = NewAppError(InvalidTransition, "invalid transaction transition")
	ErrInsufficientFunds         = NewAppError(InsufficientFunds, "insufficient funds")
	ErrAccountLocked             = NewAppError(AccountLocked, "account is locked")
	ErrClientMismatch            = NewAppError(ClientMismatch, "transaction client does not match account")
	ErrInvalidOpeningTransaction = NewAppError(InvalidOpeningTransaction, "an account can only be opened by a deposit")
	ErrAccountNotFound           = NewAppError(AccountNotFound, "account not found")
	ErrAmountRequired            = NewAppError(InvalidAmount, "amount is required")
)
