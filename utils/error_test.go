package utils_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/propertybooks/accounting_backend/utils"
)

func TestRetryOnConflictRetriesThenSucceeds(t *testing.T) {
	calls := 0
	err := utils.RetryOnConflict(func() error {
		calls++
		if calls < 3 {
			return fmt.Errorf("%w: counter moved", utils.ErrorConflict)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("retry: got %v, want nil", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestRetryOnConflictGivesUp(t *testing.T) {
	calls := 0
	err := utils.RetryOnConflict(func() error {
		calls++
		return fmt.Errorf("%w: counter moved", utils.ErrorConflict)
	})
	if !errors.Is(err, utils.ErrorConflict) {
		t.Fatalf("exhausted retry: got %v, want ErrorConflict", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestRetryOnConflictPassesThroughOtherErrors(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	err := utils.RetryOnConflict(func() error {
		calls++
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("got %v, want boom", err)
	}
	if calls != 1 {
		t.Fatalf("non-conflict error retried: calls = %d, want 1", calls)
	}
}

func TestRetryOnConflictStopsOnOverApplication(t *testing.T) {
	calls := 0
	err := utils.RetryOnConflict(func() error {
		calls++
		return fmt.Errorf("%w: amount 50 exceeds due 40", utils.ErrorOverApplication)
	})
	if !errors.Is(err, utils.ErrorOverApplication) {
		t.Fatalf("got %v, want ErrorOverApplication", err)
	}
	if calls != 1 {
		t.Fatalf("sentinel error retried: calls = %d, want 1", calls)
	}
}
