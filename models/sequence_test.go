package models_test

import (
	"sort"
	"sync"
	"testing"

	"github.com/propertybooks/accounting_backend/models"
)

func TestNextSequenceMonotonic(t *testing.T) {
	f := setupFixture(t)

	key := models.SequenceScopeKey(f.tenant.ID, models.SequenceTypeLedger, 2026)
	for want := int64(1); want <= 3; want++ {
		got, err := models.NextSequence(f.ctx, key)
		if err != nil {
			t.Fatalf("next sequence: %v", err)
		}
		if got != want {
			t.Fatalf("sequence = %d, want %d", got, want)
		}
	}
}

func TestNextSequenceScopesAreIndependent(t *testing.T) {
	f := setupFixture(t)

	a := models.SequenceScopeKey(f.tenant.ID, models.SequenceTypeInvoice, 2026)
	b := models.SequenceScopeKey(f.tenant.ID, models.SequenceTypeInvoice, 2027)
	c := models.SequenceScopeKey(f.tenant.ID, models.SequenceTypeBill, 2026)

	for i := 0; i < 2; i++ {
		if _, err := models.NextSequence(f.ctx, a); err != nil {
			t.Fatalf("next sequence: %v", err)
		}
	}
	for _, key := range []string{b, c} {
		got, err := models.NextSequence(f.ctx, key)
		if err != nil {
			t.Fatalf("next sequence: %v", err)
		}
		if got != 1 {
			t.Fatalf("fresh scope %s started at %d, want 1", key, got)
		}
	}
}

func TestNextSequenceConcurrentUniqueness(t *testing.T) {
	f := setupFixture(t)

	const workers = 20
	key := models.SequenceScopeKey(f.tenant.ID, models.SequenceTypeLedger, 2026)

	var mu sync.Mutex
	var wg sync.WaitGroup
	values := make([]int64, 0, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := models.NextSequence(f.ctx, key)
			if err != nil {
				t.Errorf("next sequence: %v", err)
				return
			}
			mu.Lock()
			values = append(values, v)
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(values) != workers {
		t.Fatalf("got %d values, want %d", len(values), workers)
	}
	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })
	for i, v := range values {
		if v != int64(i+1) {
			t.Fatalf("values not dense and unique: %v", values)
		}
	}
}
