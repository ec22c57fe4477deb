package domain

import "github.com/shopspring/decimal"

// ExecutionKind outcome class of an execution attempt.
type ExecutionKind string

const (
	ExecutionFilled   ExecutionKind = "filled"
	ExecutionRejected ExecutionKind = "rejected"
	ExecutionSkipped  ExecutionKind = "skipped"

	// ExecutionPending means the venue outcome could not be established; new entries stay blocked
	// until a later Lookup resolves it.
	ExecutionPending ExecutionKind = "pending"
)

// Skip reasons.
const (
	SkipNoSignal            = "no-signal"
	SkipPositionOpen        = "position-open"
	SkipDuplicateSubmission = "duplicate-submission"
	SkipBarAlreadyTraded    = "bar-already-traded"
	SkipRiskBudgetExhausted = "risk-budget-exhausted"
	SkipOrderUnresolved     = "order-unresolved"
)

// ExecutionResult outcome of TradeExecutor.Execute.
type ExecutionResult struct {
	Kind      ExecutionKind
	Order     *Order
	Token     IdempotencyToken
	FillPrice decimal.Decimal
	Reason    string
	Err       error
}

// Filled builds a fill result.
func Filled(order *Order, token IdempotencyToken, fillPrice decimal.Decimal) ExecutionResult {
	return ExecutionResult{Kind: ExecutionFilled, Order: order, Token: token, FillPrice: fillPrice}
}

// RejectedResult builds a rejection carrying the cause.
func RejectedResult(order *Order, token IdempotencyToken, err error) ExecutionResult {
	reason := ""
	if err != nil {
		reason = err.Error()
	}
	return ExecutionResult{Kind: ExecutionRejected, Order: order, Token: token, Reason: reason, Err: err}
}

// PendingResult builds an unresolved outcome carrying the last venue error.
func PendingResult(order *Order, token IdempotencyToken, err error) ExecutionResult {
	res := RejectedResult(order, token, err)
	res.Kind = ExecutionPending
	return res
}

// Skipped builds a skip result.
func Skipped(reason string) ExecutionResult {
	return ExecutionResult{Kind: ExecutionSkipped, Reason: reason}
}

func (r ExecutionResult) IsFilled() bool   { return r.Kind == ExecutionFilled }
func (r ExecutionResult) IsRejected() bool { return r.Kind == ExecutionRejected }
func (r ExecutionResult) IsSkipped() bool  { return r.Kind == ExecutionSkipped }
func (r ExecutionResult) IsPending() bool  { return r.Kind == ExecutionPending }
