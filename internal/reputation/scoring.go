// Package reputation derives bounded score deltas from settled task outcomes
// and applies them to agents through an idempotent, concurrency-safe ledger.
package reputation

import "math"

// Task outcome tags carried by settlement notifications. Anything
// unrecognized is treated as a failure.
const (
	OutcomeSuccess = "success"
	OutcomePartial = "partial"
	OutcomeFailed  = "failed"
)

const (
	// defaultAmount substitutes for payment amounts that are not finite
	// positive numbers.
	defaultAmount = 0.05
	// successCap bounds the credit from a single successful settlement so
	// one oversized payment cannot dominate an agent's score.
	successCap = 0.1
	// failedPenalty is the fixed debit for a failed task.
	failedPenalty = -0.05
)

// Delta maps a task outcome and claimed payment amount to a signed score
// delta. It is pure and total: any input yields a finite number.
//
// Partial deltas are deliberately uncapped per event; the ledger clamps the
// resulting score, not the delta.
func Delta(outcome string, amount float64) float64 {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		amount = defaultAmount
	}
	switch outcome {
	case OutcomeSuccess:
		return math.Min(successCap, amount/10)
	case OutcomePartial:
		return amount / 20
	default:
		return failedPenalty
	}
}
