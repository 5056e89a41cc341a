package models

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/propertybooks/accounting_backend/config"
	"github.com/propertybooks/accounting_backend/utils"
	"gorm.io/gorm"
)

// Sequence is the durable single-row counter behind document and ledger
// transaction numbers. One row per scope key; numbers are monotonic and never
// repeat. Gaps are acceptable when a surrounding document transaction rolls
// back, duplicates are not.
type Sequence struct {
	ID        int       `gorm:"primary_key" json:"id"`
	ScopeKey  string    `gorm:"uniqueIndex;size:120;not null" json:"scope_key"`
	Value     int64     `gorm:"not null;default:0" json:"value"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// sequenceMutex serializes issuance in-process; the compare-and-swap UPDATE
// below still protects against other processes.
var sequenceMutex sync.Mutex

const sequenceRetryLimit = 5

// SequenceScopeKey builds "tenant:TYPE:fiscalYear". Scopes are deliberately
// narrow so contention stays local to one tenant and year.
func SequenceScopeKey(tenantId string, docType string, fiscalYear int) string {
	return fmt.Sprintf("%s:%s:%d", tenantId, docType, fiscalYear)
}

// NextSequence issues the next number for the scope. On a write conflict it
// retries with bounded backoff before surfacing ErrorConflict.
func NextSequence(ctx context.Context, scopeKey string) (int64, error) {
	if strings.TrimSpace(scopeKey) == "" {
		return 0, fmt.Errorf("%w: empty sequence scope", utils.ErrorConfiguration)
	}

	sequenceMutex.Lock()
	defer sequenceMutex.Unlock()

	db := config.GetDB()
	for attempt := 0; attempt < sequenceRetryLimit; attempt++ {
		var seq Sequence
		err := db.WithContext(ctx).Where("scope_key = ?", scopeKey).First(&seq).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			seq = Sequence{ScopeKey: scopeKey, Value: 0}
			if cerr := db.WithContext(ctx).Create(&seq).Error; cerr != nil {
				// concurrent creator won the insert; re-read and race on the update
				if rerr := db.WithContext(ctx).Where("scope_key = ?", scopeKey).First(&seq).Error; rerr != nil {
					return 0, rerr
				}
			}
		} else if err != nil {
			return 0, err
		}

		next := seq.Value + 1
		res := db.WithContext(ctx).Model(&Sequence{}).
			Where("scope_key = ? AND value = ?", scopeKey, seq.Value).
			Update("value", next)
		if res.Error != nil {
			return 0, res.Error
		}
		if res.RowsAffected == 1 {
			return next, nil
		}
		time.Sleep(time.Millisecond * time.Duration(10<<attempt))
	}
	return 0, fmt.Errorf("%w: sequence %s", utils.ErrorConflict, scopeKey)
}

// fiscalYearFor labels a date with the calendar year its fiscal year starts in.
func fiscalYearFor(date time.Time, fiscalYearStartMonth int) int {
	if fiscalYearStartMonth <= 1 {
		return date.Year()
	}
	if int(date.Month()) >= fiscalYearStartMonth {
		return date.Year()
	}
	return date.Year() - 1
}

// nextTransactionNumber issues the scoped sequence for a document type and
// formats the human-readable number, e.g. "INV-2026-14".
func nextTransactionNumber(ctx context.Context, tenant *Tenant, docType string, date time.Time) (int64, string, error) {
	fy := fiscalYearFor(date, tenant.FiscalYearStartMonth)
	seqNo, err := NextSequence(ctx, SequenceScopeKey(tenant.ID, docType, fy))
	if err != nil {
		return 0, "", err
	}
	prefix, ok := transactionPrefixes[docType]
	if !ok {
		return 0, "", fmt.Errorf("%w: unknown document type %s", utils.ErrorConfiguration, docType)
	}
	return seqNo, fmt.Sprintf("%s%d-%d", prefix, fy, seqNo), nil
}
