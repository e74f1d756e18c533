// Package pipeline drives one delivery run: fetch pending queue rows,
// validate and group them, then either quarantine the run's invalid batches
// or deliver every batch to the hot folder and reconcile row status.
package pipeline

import (
	"errors"
	"fmt"
	"time"
)

// Exit classifications at the process boundary.
const (
	ExitOK         = 0 // delivered everything, or nothing to do
	ExitValidation = 1 // validation failure, nothing delivered
	ExitDelivery   = 2 // delivery failure after retries
	ExitUnexpected = 3 // unhandled internal error
)

// NewRunID derives the run identifier used to scope archive and quarantine
// folders for one orchestrator invocation.
func NewRunID(t time.Time) string {
	return t.Format("20060102-150405")
}

// ValidationRunError aborts a run at the validation gate: no batch in the
// run was delivered, the affected batches were quarantined and blocked.
type ValidationRunError struct {
	Batches int // number of quarantined batches
}

func (e *ValidationRunError) Error() string {
	return fmt.Sprintf("validation failed: %d batch(es) quarantined, nothing delivered", e.Batches)
}

// DeliveryRunError aborts a run after the copy retry budget is exhausted.
// Batches delivered earlier in the same run keep their Sent status.
type DeliveryRunError struct {
	BatchID  string
	FileName string
	Cause    string
}

func (e *DeliveryRunError) Error() string {
	return fmt.Sprintf("delivery of batch %s (%s) failed: %s", e.BatchID, e.FileName, e.Cause)
}

// Classify maps a run outcome to its exit classification.
func Classify(err error) int {
	if err == nil {
		return ExitOK
	}
	var ve *ValidationRunError
	if errors.As(err, &ve) {
		return ExitValidation
	}
	var de *DeliveryRunError
	if errors.As(err, &de) {
		return ExitDelivery
	}
	return ExitUnexpected
}
