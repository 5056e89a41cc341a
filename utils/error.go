package utils

import (
	"errors"
	"time"
)

// Sentinel errors for the accounting core. Callers match with errors.Is;
// wrap with fmt.Errorf("%w: ...") to attach ids and amounts.
var (
	ErrorRecordNotFound   = errors.New("record not found")
	ErrorPeriodClosed     = errors.New("fiscal period closed")
	ErrorUnbalanced       = errors.New("transaction is unbalanced")
	ErrorOverApplication  = errors.New("applied amount exceeds remaining amount")
	ErrorImmutablePosting = errors.New("posted transaction cannot be changed")
	ErrorAlreadyApproved  = errors.New("document already approved")
	ErrorConflict         = errors.New("concurrent write conflict")
	ErrorPrecisionLoss    = errors.New("precision loss")
	ErrorInvalidSegment   = errors.New("invalid account segment")
	ErrorConfiguration    = errors.New("configuration error")
)

const conflictRetryLimit = 3

// RetryOnConflict re-runs fn while it fails with ErrorConflict, with bounded
// backoff. Every other error surfaces untouched.
func RetryOnConflict(fn func() error) error {
	var err error
	for attempt := 0; attempt < conflictRetryLimit; attempt++ {
		err = fn()
		if err == nil || !errors.Is(err, ErrorConflict) {
			return err
		}
		time.Sleep(time.Millisecond * time.Duration(20<<attempt))
	}
	return err
}
