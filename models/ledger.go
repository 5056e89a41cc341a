package models

import (
	"context"
	"fmt"
	"time"

	"github.com/propertybooks/accounting_backend/config"
	"github.com/propertybooks/accounting_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// LedgerHeader is one atomic posting. Draft headers may be temporarily
// unbalanced inside an edit session; a posted header is immutable and always
// balanced. Voiding creates a reversing header, history is never rewritten.
type LedgerHeader struct {
	ID                int             `gorm:"primary_key" json:"id"`
	TenantId          string          `gorm:"index;not null" json:"tenant_id"`
	TransactionNumber string          `gorm:"size:255;not null" json:"transaction_number"`
	SequenceNo        int64           `gorm:"not null" json:"sequence_no"`
	FiscalDate        time.Time       `gorm:"index;not null" json:"fiscal_date" binding:"required"`
	Module            LedgerModule    `gorm:"size:10;not null;index" json:"module" binding:"required"`
	Description       string          `gorm:"type:text" json:"description"`
	IsPosted          *bool           `gorm:"not null;default:false;index" json:"is_posted"`
	IsReversed        *bool           `gorm:"not null;default:false" json:"is_reversed"`
	ReversesHeaderId  int             `gorm:"index;default:null" json:"reverses_header_id"`
	TotalDebit        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_debit"`
	TotalCredit       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_credit"`
	Lines             []LedgerLine    `gorm:"foreignKey:HeaderId" json:"lines"`
	CreatedAt         time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// LedgerLine carries a debit amount and a credit amount; exactly one is
// non-zero, both stored non-negative. Lines live and die with their header.
type LedgerLine struct {
	ID          int             `gorm:"primary_key" json:"id"`
	HeaderId    int             `gorm:"index;not null" json:"header_id"`
	AccountId   int             `gorm:"index;not null" json:"account_id" binding:"required"`
	Description string          `gorm:"size:255" json:"description"`
	Debit       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"debit"`
	Credit      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"credit"`
}

type NewLedgerHeader struct {
	FiscalDate  time.Time       `json:"fiscal_date" binding:"required"`
	Module      LedgerModule    `json:"module" binding:"required"`
	Description string          `json:"description"`
	Lines       []NewLedgerLine `json:"lines"`
}

type NewLedgerLine struct {
	AccountId   int             `json:"account_id" binding:"required"`
	Description string          `json:"description"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
}

func (h LedgerHeader) posted() bool   { return h.IsPosted != nil && *h.IsPosted }
func (h LedgerHeader) reversed() bool { return h.IsReversed != nil && *h.IsReversed }

func (input *NewLedgerLine) validate() error {
	if input.Debit.IsNegative() || input.Credit.IsNegative() {
		return fmt.Errorf("debit and credit must be non-negative")
	}
	if input.Debit.IsZero() == input.Credit.IsZero() {
		return fmt.Errorf("exactly one of debit or credit must have value")
	}
	return nil
}

func receiveLedgerLines(ctx context.Context, tenantId string, inputs []NewLedgerLine, headerId int) ([]LedgerLine, error) {
	lines := make([]LedgerLine, 0, len(inputs))
	for _, input := range inputs {
		if err := input.validate(); err != nil {
			return nil, err
		}
		if err := validatePostingAccount(ctx, tenantId, input.AccountId); err != nil {
			return nil, err
		}
		lines = append(lines, LedgerLine{
			HeaderId:    headerId,
			AccountId:   input.AccountId,
			Description: input.Description,
			Debit:       input.Debit.Round(GeneralScale),
			Credit:      input.Credit.Round(GeneralScale),
		})
	}
	return lines, nil
}

func ledgerTotals(lines []LedgerLine) (decimal.Decimal, decimal.Decimal) {
	totalDebit := decimal.Zero
	totalCredit := decimal.Zero
	for _, line := range lines {
		totalDebit = totalDebit.Add(line.Debit)
		totalCredit = totalCredit.Add(line.Credit)
	}
	return totalDebit, totalCredit
}

// OpenLedgerHeader creates a draft header. The fiscal period is checked here
// (read-then-act) and again inside the posting transaction.
func OpenLedgerHeader(ctx context.Context, input *NewLedgerHeader) (*LedgerHeader, error) {
	tenantId, err := tenantFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if !input.Module.IsValid() {
		return nil, configErr("invalid ledger module %q", input.Module)
	}
	tenant, err := GetTenantById(ctx, tenantId)
	if err != nil {
		return nil, err
	}
	if err := ValidatePeriodOpen(ctx, tenantId, input.FiscalDate, input.Module); err != nil {
		return nil, err
	}
	lines, err := receiveLedgerLines(ctx, tenantId, input.Lines, 0)
	if err != nil {
		return nil, err
	}

	seqNo, number, err := nextTransactionNumber(ctx, tenant, SequenceTypeLedger, input.FiscalDate)
	if err != nil {
		return nil, err
	}

	header := LedgerHeader{
		TenantId:          tenantId,
		TransactionNumber: number,
		SequenceNo:        seqNo,
		FiscalDate:        input.FiscalDate,
		Module:            input.Module,
		Description:       input.Description,
		Lines:             lines,
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&header).Error; err != nil {
		return nil, err
	}
	return &header, nil
}

// AddLedgerLine appends to a draft header. Appending to a posted header
// fails ErrorImmutablePosting.
func AddLedgerLine(ctx context.Context, headerId int, input *NewLedgerLine) (*LedgerLine, error) {
	tenantId, err := tenantFromContext(ctx)
	if err != nil {
		return nil, err
	}
	header, err := utils.FetchModel[LedgerHeader](ctx, tenantId, headerId)
	if err != nil {
		return nil, err
	}
	if header.posted() {
		return nil, fmt.Errorf("%w: header %d", utils.ErrorImmutablePosting, headerId)
	}
	lines, err := receiveLedgerLines(ctx, tenantId, []NewLedgerLine{*input}, headerId)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	tx := db.Begin()
	if err := touchDraftHeader(tx, ctx, headerId); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.WithContext(ctx).Create(&lines[0]).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &lines[0], nil
}

// touchDraftHeader takes the header's row lock inside the transaction so
// line changes serialize against posting. Zero rows means the header was
// posted in the meantime.
func touchDraftHeader(tx *gorm.DB, ctx context.Context, headerId int) error {
	res := tx.WithContext(ctx).Model(&LedgerHeader{}).
		Where("id = ? AND is_posted = ?", headerId, false).
		UpdateColumn("updated_at", time.Now())
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: header %d", utils.ErrorImmutablePosting, headerId)
	}
	return nil
}

func RemoveLedgerLine(ctx context.Context, headerId int, lineId int) error {
	tenantId, err := tenantFromContext(ctx)
	if err != nil {
		return err
	}
	header, err := utils.FetchModel[LedgerHeader](ctx, tenantId, headerId)
	if err != nil {
		return err
	}
	if header.posted() {
		return fmt.Errorf("%w: header %d", utils.ErrorImmutablePosting, headerId)
	}
	db := config.GetDB()
	tx := db.Begin()
	if err := touchDraftHeader(tx, ctx, headerId); err != nil {
		tx.Rollback()
		return err
	}
	res := tx.WithContext(ctx).Where("header_id = ?", headerId).Delete(&LedgerLine{}, lineId)
	if res.Error != nil {
		tx.Rollback()
		return res.Error
	}
	if res.RowsAffected == 0 {
		tx.Rollback()
		return utils.ErrorRecordNotFound
	}
	return tx.Commit().Error
}

// PostLedgerHeader recomputes totals, verifies debit == credit exactly, and
// flips is_posted. Posting is irreversible; the fiscal period is re-checked
// inside the same transaction to close the close-vs-post race.
func PostLedgerHeader(ctx context.Context, headerId int) (*LedgerHeader, error) {
	tenantId, err := tenantFromContext(ctx)
	if err != nil {
		return nil, err
	}
	header, err := utils.FetchModel[LedgerHeader](ctx, tenantId, headerId)
	if err != nil {
		return nil, err
	}
	if header.posted() {
		return nil, fmt.Errorf("%w: header %d already posted", utils.ErrorImmutablePosting, headerId)
	}

	db := config.GetDB()
	tx := db.Begin()
	// Flipping is_posted first takes the row lock, so a racing line change
	// either commits before the read below or fails its draft check after
	// this transaction ends.
	res := tx.WithContext(ctx).Model(&LedgerHeader{}).
		Where("id = ? AND is_posted = ?", headerId, false).
		Update("is_posted", true)
	if res.Error != nil {
		tx.Rollback()
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		tx.Rollback()
		return nil, fmt.Errorf("%w: header %d", utils.ErrorConflict, headerId)
	}
	if err := validatePeriodOpen(tx, ctx, tenantId, header.FiscalDate, header.Module); err != nil {
		tx.Rollback()
		return nil, err
	}

	var lines []LedgerLine
	if err := tx.WithContext(ctx).Where("header_id = ?", headerId).Order("id").Find(&lines).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if len(lines) == 0 {
		tx.Rollback()
		return nil, fmt.Errorf("%w: header %d has no lines", utils.ErrorUnbalanced, headerId)
	}
	totalDebit, totalCredit := ledgerTotals(lines)
	if !totalDebit.Equal(totalCredit) {
		tx.Rollback()
		return nil, fmt.Errorf("%w: header %d debit %s != credit %s",
			utils.ErrorUnbalanced, headerId, totalDebit, totalCredit)
	}
	if err := tx.WithContext(ctx).Model(&LedgerHeader{}).Where("id = ?", headerId).
		Updates(map[string]interface{}{
			"TotalDebit":  totalDebit,
			"TotalCredit": totalCredit,
		}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return utils.FetchModel[LedgerHeader](ctx, tenantId, headerId, "Lines")
}

// VoidLedgerHeader creates and posts a reversing header with every line's
// debit/credit swapped, dated on or after the original, and flags the
// original reversed. The original is never deleted.
func VoidLedgerHeader(ctx context.Context, headerId int, voidDate time.Time) (*LedgerHeader, error) {
	tenantId, err := tenantFromContext(ctx)
	if err != nil {
		return nil, err
	}
	tenant, err := GetTenantById(ctx, tenantId)
	if err != nil {
		return nil, err
	}
	header, err := utils.FetchModel[LedgerHeader](ctx, tenantId, headerId, "Lines")
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	tx := db.Begin()
	voiding, err := voidLedgerHeaderTx(tx, ctx, tenant, header, voidDate)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return voiding, nil
}

func voidLedgerHeaderTx(tx *gorm.DB, ctx context.Context, tenant *Tenant, header *LedgerHeader, voidDate time.Time) (*LedgerHeader, error) {
	if !header.posted() {
		return nil, fmt.Errorf("%w: header %d is not posted", utils.ErrorImmutablePosting, header.ID)
	}
	if header.reversed() {
		return nil, fmt.Errorf("%w: header %d is already reversed", utils.ErrorImmutablePosting, header.ID)
	}
	if voidDate.IsZero() {
		voidDate = header.FiscalDate
	}
	if voidDate.Before(header.FiscalDate) {
		return nil, fmt.Errorf("void date %s before original fiscal date %s",
			voidDate.Format("2006-01-02"), header.FiscalDate.Format("2006-01-02"))
	}

	swapped := make([]NewLedgerLine, 0, len(header.Lines))
	for _, line := range header.Lines {
		swapped = append(swapped, NewLedgerLine{
			AccountId:   line.AccountId,
			Description: line.Description,
			Debit:       line.Credit,
			Credit:      line.Debit,
		})
	}
	voiding, err := postBalancedEntry(tx, ctx, tenant, voidDate, header.Module,
		"Void of "+header.TransactionNumber, swapped)
	if err != nil {
		return nil, err
	}

	res := tx.WithContext(ctx).Model(&LedgerHeader{}).
		Where("id = ? AND is_reversed = ?", header.ID, false).
		Update("is_reversed", true)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: header %d", utils.ErrorConflict, header.ID)
	}
	if err := tx.WithContext(ctx).Model(&LedgerHeader{}).
		Where("id = ?", voiding.ID).
		Update("reverses_header_id", header.ID).Error; err != nil {
		return nil, err
	}
	voiding.ReversesHeaderId = header.ID
	return voiding, nil
}

// postBalancedEntry opens, fills and posts a header inside the caller's
// transaction. Used by the document and settlement engines so a document and
// its posting commit or roll back together. All validation happens before
// the insert; the sequence number is issued outside the transaction (gaps on
// rollback are acceptable, duplicates are not).
func postBalancedEntry(tx *gorm.DB, ctx context.Context, tenant *Tenant, date time.Time, module LedgerModule, description string, inputs []NewLedgerLine) (*LedgerHeader, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("%w: posting has no lines", utils.ErrorUnbalanced)
	}
	lines, err := receiveLedgerLines(ctx, tenant.ID, inputs, 0)
	if err != nil {
		return nil, err
	}
	totalDebit, totalCredit := ledgerTotals(lines)
	if !totalDebit.Equal(totalCredit) {
		return nil, fmt.Errorf("%w: debit %s != credit %s", utils.ErrorUnbalanced, totalDebit, totalCredit)
	}
	if err := validatePeriodOpen(tx, ctx, tenant.ID, date, module); err != nil {
		return nil, err
	}

	seqNo, number, err := nextTransactionNumber(ctx, tenant, SequenceTypeLedger, date)
	if err != nil {
		return nil, err
	}

	posted := true
	header := LedgerHeader{
		TenantId:          tenant.ID,
		TransactionNumber: number,
		SequenceNo:        seqNo,
		FiscalDate:        date,
		Module:            module,
		Description:       description,
		IsPosted:          &posted,
		TotalDebit:        totalDebit,
		TotalCredit:       totalCredit,
		Lines:             lines,
	}
	if err := tx.WithContext(ctx).Create(&header).Error; err != nil {
		return nil, err
	}
	return &header, nil
}

// signedDebitLine books amount as a debit, flipping to the credit side when
// the amount is negative (rebate lines); stored amounts stay non-negative.
func signedDebitLine(accountId int, description string, amount Money) NewLedgerLine {
	if amount.IsNegative() {
		return NewLedgerLine{AccountId: accountId, Description: description, Credit: amount.Decimal().Neg()}
	}
	return NewLedgerLine{AccountId: accountId, Description: description, Debit: amount.Decimal()}
}

func signedCreditLine(accountId int, description string, amount Money) NewLedgerLine {
	if amount.IsNegative() {
		return NewLedgerLine{AccountId: accountId, Description: description, Debit: amount.Decimal().Neg()}
	}
	return NewLedgerLine{AccountId: accountId, Description: description, Credit: amount.Decimal()}
}

func GetLedgerHeader(ctx context.Context, id int) (*LedgerHeader, error) {
	tenantId, err := tenantFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return utils.FetchModel[LedgerHeader](ctx, tenantId, id, "Lines")
}
