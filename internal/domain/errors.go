package domain

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrInsufficientHistory a candle series is too short for the configured indicators.
	ErrInsufficientHistory = errors.New("insufficient history")
	// ErrDegenerateRisk sizing inputs cannot produce a valid order (ATR <= 0, quantity rounds to zero).
	ErrDegenerateRisk = errors.New("degenerate risk")
	// ErrGatewayRejected the venue definitively refused an order.
	ErrGatewayRejected = errors.New("gateway rejected order")
	// ErrTransport a network or venue failure whose outcome is unknown or retryable.
	ErrTransport = errors.New("transport failure")
	// ErrConfiguration invalid configuration, fatal at startup.
	ErrConfiguration = errors.New("configuration error")
	// ErrInvalidTransition a position state change that is not allowed.
	ErrInvalidTransition = errors.New("invalid position transition")
	// ErrRiskBudgetExceeded the ledger cannot reserve the requested risk amount.
	ErrRiskBudgetExceeded = errors.New("risk budget exceeded")
)

// ErrorKind is a coarse label used for reporting and metrics.
type ErrorKind string

const (
	ErrorKindInsufficientHistory ErrorKind = "insufficient_history"
	ErrorKindDegenerateRisk      ErrorKind = "degenerate_risk"
	ErrorKindGatewayRejected     ErrorKind = "gateway_rejected"
	ErrorKindTransport           ErrorKind = "transport_failure"
	ErrorKindConfiguration       ErrorKind = "configuration"
	ErrorKindCanceled            ErrorKind = "canceled"
	ErrorKindInternal            ErrorKind = "internal"
)

// KindOf classifies err into one of the known error kinds.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInsufficientHistory):
		return ErrorKindInsufficientHistory
	case errors.Is(err, ErrDegenerateRisk):
		return ErrorKindDegenerateRisk
	case errors.Is(err, ErrGatewayRejected):
		return ErrorKindGatewayRejected
	case errors.Is(err, ErrTransport):
		return ErrorKindTransport
	case errors.Is(err, ErrConfiguration):
		return ErrorKindConfiguration
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ErrorKindCanceled
	default:
		return ErrorKindInternal
	}
}

// RejectedError is returned by gateways when the venue refused the order.
type RejectedError struct {
	Reason string
}

func (e *RejectedError) Error() string {
	return "order rejected: " + e.Reason
}

// Is makes RejectedError match ErrGatewayRejected.
func (e *RejectedError) Is(target error) bool {
	return target == ErrGatewayRejected
}

// Rejected builds a RejectedError with a formatted reason.
func Rejected(format string, args ...any) error {
	return &RejectedError{Reason: fmt.Sprintf(format, args...)}
}
