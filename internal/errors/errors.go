package errors

import (
	"errors"
	"fmt"
)

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

const (
	CodeValidation          = "E100"
	CodeStorage             = "E200"
	CodeNetworkFailure      = "E300"
	CodeProviderError       = "E310"
	CodeInvalidCredentials  = "E320"
	CodeState               = "E400"
	CodeNotAuthenticated    = "E401"
	CodeInsufficientBalance = "E410"
	CodeAlreadyClaimed      = "E420"
	CodeUnknownItem         = "E430"
)

// AppError is the error type surfaced by the core. UserMessage is a
// translation key; Params are the values substituted into it.
type AppError struct {
	Code        string
	Message     string
	UserMessage string
	Params      []any
	Severity    Severity
	Retryable   bool
	cause       error
}

func (e *AppError) Error() string {
	if e == nil {
		return ""
	}

	return e.Message
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.cause
}

func (e *AppError) Cause() error {
	return e.Unwrap()
}

// Is matches another AppError by code so errors.Is works against the
// sentinel values below.
func (e *AppError) Is(target error) bool {
	var other *AppError
	if !errors.As(target, &other) || other == nil || e == nil {
		return false
	}

	return other.Code == e.Code && other.cause == nil && len(other.Params) == 0
}

// Sentinels usable with errors.Is.
var (
	ErrValidation          = &AppError{Code: CodeValidation}
	ErrStorage             = &AppError{Code: CodeStorage}
	ErrNetworkFailure      = &AppError{Code: CodeNetworkFailure}
	ErrProviderError       = &AppError{Code: CodeProviderError}
	ErrInvalidCredentials  = &AppError{Code: CodeInvalidCredentials}
	ErrState               = &AppError{Code: CodeState}
	ErrNotAuthenticated    = &AppError{Code: CodeNotAuthenticated}
	ErrInsufficientBalance = &AppError{Code: CodeInsufficientBalance}
	ErrAlreadyClaimed      = &AppError{Code: CodeAlreadyClaimed}
	ErrUnknownItem         = &AppError{Code: CodeUnknownItem}
)

// CodeOf returns the AppError code in err, or "" when err carries none.
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr != nil {
		return appErr.Code
	}

	return ""
}

func NewValidationError(msg string) *AppError {
	return &AppError{
		Code:        CodeValidation,
		Message:     msg,
		UserMessage: "errors.validation",
		Params:      []any{msg},
		Severity:    SeverityLow,
	}
}

func NewStorageError(record string, cause error) *AppError {
	var underlyingMsg string
	if cause != nil {
		underlyingMsg = cause.Error()
	}

	return &AppError{
		Code:        CodeStorage,
		Message:     fmt.Sprintf("storage error on %s: %s", record, underlyingMsg),
		UserMessage: "errors.storage",
		Severity:    SeverityHigh,
		Retryable:   true,
		cause:       cause,
	}
}

func NewNetworkError(operation string, cause error) *AppError {
	return &AppError{
		Code:        CodeNetworkFailure,
		Message:     fmt.Sprintf("network failure during %s", operation),
		UserMessage: "errors.network",
		Severity:    SeverityMedium,
		Retryable:   true,
		cause:       cause,
	}
}

func NewProviderError(provider string, cause error) *AppError {
	return &AppError{
		Code:        CodeProviderError,
		Message:     fmt.Sprintf("provider %s rejected the request", provider),
		UserMessage: "errors.provider",
		Params:      []any{provider},
		Severity:    SeverityMedium,
		cause:       cause,
	}
}

func NewInvalidCredentialsError() *AppError {
	return &AppError{
		Code:        CodeInvalidCredentials,
		Message:     "invalid credentials",
		UserMessage: "errors.invalid_credentials",
		Severity:    SeverityLow,
	}
}

func NewStateError(msg string) *AppError {
	return &AppError{
		Code:        CodeState,
		Message:     msg,
		UserMessage: "errors.state",
		Severity:    SeverityMedium,
	}
}

func NewNotAuthenticatedError(action string) *AppError {
	return &AppError{
		Code:        CodeNotAuthenticated,
		Message:     fmt.Sprintf("%s requires an authenticated session", action),
		UserMessage: "errors.login_required",
		Severity:    SeverityLow,
	}
}

func NewInsufficientBalanceError(required, balance int64) *AppError {
	return &AppError{
		Code:        CodeInsufficientBalance,
		Message:     fmt.Sprintf("insufficient balance: need %d, have %d", required, balance),
		UserMessage: "errors.insufficient_balance",
		Params:      []any{required},
		Severity:    SeverityLow,
	}
}

func NewAlreadyClaimedError(reward string, nextEligible string) *AppError {
	msg := fmt.Sprintf("reward %s already claimed", reward)
	key := "errors.already_claimed"
	params := []any{reward}
	if nextEligible != "" {
		msg = fmt.Sprintf("%s, next eligible at %s", msg, nextEligible)
		key = "errors.already_claimed_until"
		params = append(params, nextEligible)
	}

	return &AppError{
		Code:        CodeAlreadyClaimed,
		Message:     msg,
		UserMessage: key,
		Params:      params,
		Severity:    SeverityLow,
	}
}

func NewUnknownItemError(kind, id string) *AppError {
	return &AppError{
		Code:        CodeUnknownItem,
		Message:     fmt.Sprintf("unknown %s %q", kind, id),
		UserMessage: "errors.unknown_item",
		Params:      []any{kind, id},
		Severity:    SeverityLow,
	}
}
