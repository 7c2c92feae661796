package engine

import (
	"fmt"
)

// ConfigurationError reports a missing or invalid rule set. Evaluation must
// surface it rather than defaulting to a pass.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Reason
}

// DataIntegrityError reports malformed account data (negative balance,
// equity below zero, broken timestamps). The calculators never clamp these
// into plausible defaults.
type DataIntegrityError struct {
	Field  string
	Reason string
}

func (e *DataIntegrityError) Error() string {
	return fmt.Sprintf("data integrity error: %s: %s", e.Field, e.Reason)
}

// EvaluationError wraps any error raised during Evaluate together with the
// affected account, so one broken account can be reported without blocking
// the rest of a sweep.
type EvaluationError struct {
	AccountID uint64
	Err       error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("evaluation failed for account %d: %v", e.AccountID, e.Err)
}

func (e *EvaluationError) Unwrap() error {
	return e.Err
}
