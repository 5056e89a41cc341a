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

// Bill is the payable mirror of Invoice: vendor document, expense-side line
// defaults, payable control account, AP period gating.
type Bill struct {
	ID                int             `gorm:"primary_key" json:"id"`
	TenantId          string          `gorm:"index;not null" json:"tenant_id"`
	VendorId          int             `gorm:"index;not null" json:"vendor_id" binding:"required"`
	PropertyId        int             `gorm:"index;default:null" json:"property_id"`
	Kind              DocumentKind    `gorm:"size:10;not null;default:'Standard'" json:"kind"`
	Status            DocumentStatus  `gorm:"size:15;not null;default:'Draft';index" json:"status"`
	BillNumber        string          `gorm:"size:255;not null" json:"bill_number"`
	SequenceNo        int64           `gorm:"not null" json:"sequence_no"`
	IssueDate         time.Time       `gorm:"not null" json:"issue_date" binding:"required"`
	DueDate           time.Time       `gorm:"not null" json:"due_date"`
	Notes             string          `gorm:"type:text" json:"notes"`
	AmountBeforeTaxes decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount_before_taxes"`
	TaxAmount         decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"tax_amount"`
	TotalAmount       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_amount"`
	DueAmount         decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"due_amount"`
	LedgerHeaderId    int             `gorm:"default:null" json:"ledger_header_id"`
	Lines             []BillLine      `gorm:"foreignKey:BillId" json:"lines"`
	CreatedAt         time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type BillLine struct {
	ID          int             `gorm:"primary_key" json:"id"`
	BillId      int             `gorm:"index;not null" json:"bill_id"`
	ProductId   int             `gorm:"default:null" json:"product_id"`
	Description string          `gorm:"size:255" json:"description"`
	Qty         decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"qty"`
	UnitRate    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_rate"`
	AccountId   int             `gorm:"not null" json:"account_id"`
	TaxGroupId  int             `gorm:"default:null" json:"tax_group_id"`
	Amount      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount"`
	TaxAmount   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"tax_amount"`
}

type NewBill struct {
	VendorId     int                 `json:"vendor_id" binding:"required"`
	PropertyId   int                 `json:"property_id"`
	Kind         DocumentKind        `json:"kind"`
	IssueDate    time.Time           `json:"issue_date" binding:"required"`
	DueDate      *time.Time          `json:"due_date"`
	PaymentTerms PaymentTerms        `json:"payment_terms"`
	CustomDays   int                 `json:"custom_days"`
	Notes        string              `json:"notes"`
	Lines        []DocumentLineInput `json:"lines"`
}

func (b Bill) draft() bool { return b.Status == DocumentStatusDraft }

func (input *NewBill) validate(ctx context.Context, tenantId string) error {
	if input.Kind == "" {
		input.Kind = DocumentKindStandard
	}
	if !input.Kind.IsValid() {
		return configErr("invalid document kind %q", input.Kind)
	}
	if err := utils.ValidateResourceId[Vendor](ctx, tenantId, input.VendorId); err != nil {
		return configErr("vendor not found")
	}
	if input.PropertyId > 0 {
		if err := utils.ValidateResourceId[Property](ctx, tenantId, input.PropertyId); err != nil {
			return configErr("property not found")
		}
	}
	return nil
}

func (input *NewBill) resolveDueDate(ctx context.Context, tenantId string) (time.Time, error) {
	if input.DueDate != nil {
		return *input.DueDate, nil
	}
	terms := input.PaymentTerms
	customDays := input.CustomDays
	if terms == "" {
		vendor, err := utils.FetchModel[Vendor](ctx, tenantId, input.VendorId)
		if err != nil {
			return time.Time{}, err
		}
		terms = vendor.PaymentTerms
		customDays = vendor.CustomDays
	}
	return *calculateDueDate(input.IssueDate, terms, customDays), nil
}

func newBillLines(lines []computedLine, billId int) []BillLine {
	out := make([]BillLine, 0, len(lines))
	for _, line := range lines {
		out = append(out, BillLine{
			BillId:      billId,
			ProductId:   line.ProductId,
			Description: line.Description,
			Qty:         line.Qty,
			UnitRate:    line.UnitRate,
			AccountId:   line.AccountId,
			TaxGroupId:  line.TaxGroupId,
			Amount:      line.Amount.Decimal(),
			TaxAmount:   line.TaxAmount.Decimal(),
		})
	}
	return out
}

func CreateBill(ctx context.Context, input *NewBill) (*Bill, error) {
	tenantId, err := tenantFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx, tenantId); err != nil {
		return nil, err
	}
	tenant, err := GetTenantById(ctx, tenantId)
	if err != nil {
		return nil, err
	}
	dueDate, err := input.resolveDueDate(ctx, tenantId)
	if err != nil {
		return nil, err
	}
	computed, totals, err := computeDocumentLines(ctx, tenantId, input.IssueDate, sidePurchase, input.Lines)
	if err != nil {
		return nil, err
	}

	seqNo, number, err := nextTransactionNumber(ctx, tenant, SequenceTypeBill, input.IssueDate)
	if err != nil {
		return nil, err
	}

	bill := Bill{
		TenantId:          tenantId,
		VendorId:          input.VendorId,
		PropertyId:        input.PropertyId,
		Kind:              input.Kind,
		Status:            DocumentStatusDraft,
		BillNumber:        number,
		SequenceNo:        seqNo,
		IssueDate:         input.IssueDate,
		DueDate:           dueDate,
		Notes:             input.Notes,
		AmountBeforeTaxes: totals.AmountBeforeTaxes.Decimal(),
		TaxAmount:         totals.TaxAmount.Decimal(),
		TotalAmount:       totals.TotalAmount.Decimal(),
		DueAmount:         totals.TotalAmount.Rescale(PaymentScale).Decimal(),
		Lines:             newBillLines(computed, 0),
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&bill).Error; err != nil {
		return nil, err
	}
	return &bill, nil
}

func fetchDraftBill(ctx context.Context, tenantId string, id int) (*Bill, error) {
	bill, err := utils.FetchModel[Bill](ctx, tenantId, id, "Lines")
	if err != nil {
		return nil, err
	}
	if !bill.draft() {
		return nil, fmt.Errorf("%w: bill %d is %s", utils.ErrorImmutablePosting, id, bill.Status)
	}
	return bill, nil
}

func recomputeBillTotals(ctx context.Context, tenantId string, bill *Bill) error {
	inputs := make([]DocumentLineInput, 0, len(bill.Lines))
	for _, line := range bill.Lines {
		inputs = append(inputs, DocumentLineInput{
			ProductId:   line.ProductId,
			Description: line.Description,
			Qty:         line.Qty,
			UnitRate:    line.UnitRate,
			AccountId:   line.AccountId,
			TaxGroupId:  line.TaxGroupId,
		})
	}
	computed, totals, err := computeDocumentLines(ctx, tenantId, bill.IssueDate, sidePurchase, inputs)
	if err != nil {
		return err
	}
	for i := range bill.Lines {
		bill.Lines[i].Amount = computed[i].Amount.Decimal()
		bill.Lines[i].TaxAmount = computed[i].TaxAmount.Decimal()
	}
	bill.AmountBeforeTaxes = totals.AmountBeforeTaxes.Decimal()
	bill.TaxAmount = totals.TaxAmount.Decimal()
	bill.TotalAmount = totals.TotalAmount.Decimal()
	bill.DueAmount = totals.TotalAmount.Rescale(PaymentScale).Decimal()
	return nil
}

// updateBillTotalsTx only lands on a still-draft bill; a concurrent approval
// makes the predicate miss and the whole line change rolls back.
func updateBillTotalsTx(tx *gorm.DB, ctx context.Context, bill *Bill) error {
	res := tx.WithContext(ctx).Model(&Bill{}).
		Where("id = ? AND status = ?", bill.ID, DocumentStatusDraft).
		Updates(map[string]interface{}{
			"AmountBeforeTaxes": bill.AmountBeforeTaxes,
			"TaxAmount":         bill.TaxAmount,
			"TotalAmount":       bill.TotalAmount,
			"DueAmount":         bill.DueAmount,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: bill %d", utils.ErrorImmutablePosting, bill.ID)
	}
	return nil
}

func AddBillLine(ctx context.Context, billId int, input *DocumentLineInput) (*Bill, error) {
	tenantId, err := tenantFromContext(ctx)
	if err != nil {
		return nil, err
	}
	bill, err := fetchDraftBill(ctx, tenantId, billId)
	if err != nil {
		return nil, err
	}
	computed, _, err := computeDocumentLines(ctx, tenantId, bill.IssueDate, sidePurchase, []DocumentLineInput{*input})
	if err != nil {
		return nil, err
	}
	bill.Lines = append(bill.Lines, newBillLines(computed, billId)...)
	if err := recomputeBillTotals(ctx, tenantId, bill); err != nil {
		return nil, err
	}

	db := config.GetDB()
	tx := db.Begin()
	if err := tx.WithContext(ctx).Create(&bill.Lines[len(bill.Lines)-1]).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := updateBillTotalsTx(tx, ctx, bill); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return utils.FetchModel[Bill](ctx, tenantId, billId, "Lines")
}

func RemoveBillLine(ctx context.Context, billId int, lineId int) (*Bill, error) {
	tenantId, err := tenantFromContext(ctx)
	if err != nil {
		return nil, err
	}
	bill, err := fetchDraftBill(ctx, tenantId, billId)
	if err != nil {
		return nil, err
	}
	kept := bill.Lines[:0]
	found := false
	for _, line := range bill.Lines {
		if line.ID == lineId {
			found = true
			continue
		}
		kept = append(kept, line)
	}
	if !found {
		return nil, utils.ErrorRecordNotFound
	}
	bill.Lines = kept
	if err := recomputeBillTotals(ctx, tenantId, bill); err != nil {
		return nil, err
	}

	db := config.GetDB()
	tx := db.Begin()
	res := tx.WithContext(ctx).Where("bill_id = ?", billId).Delete(&BillLine{}, lineId)
	if res.Error != nil {
		tx.Rollback()
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		tx.Rollback()
		return nil, utils.ErrorRecordNotFound
	}
	if err := updateBillTotalsTx(tx, ctx, bill); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return utils.FetchModel[Bill](ctx, tenantId, billId, "Lines")
}

// ApproveBill posts debit expense (per line) plus purchase tax against the
// payable control account, then locks the bill. Credit bills post flipped.
func ApproveBill(ctx context.Context, id int) (*Bill, error) {
	tenantId, err := tenantFromContext(ctx)
	if err != nil {
		return nil, err
	}
	tenant, err := GetTenantById(ctx, tenantId)
	if err != nil {
		return nil, err
	}
	bill, err := utils.FetchModel[Bill](ctx, tenantId, id)
	if err != nil {
		return nil, err
	}
	if !bill.draft() {
		return nil, fmt.Errorf("%w: bill %d", utils.ErrorAlreadyApproved, id)
	}
	if err := utils.ValidateResourceId[Vendor](ctx, tenantId, bill.VendorId); err != nil {
		return nil, configErr("vendor not found")
	}
	if bill.DueDate.IsZero() || bill.DueDate.Before(bill.IssueDate) {
		return nil, configErr("bill %d has an invalid due date", id)
	}

	db := config.GetDB()
	tx := db.Begin()
	// Moving to Approved first takes the row lock; a racing line change
	// either commits before the line read below or fails its draft check
	// after this transaction ends.
	res := tx.WithContext(ctx).Model(&Bill{}).
		Where("id = ? AND status = ?", id, DocumentStatusDraft).
		Update("status", DocumentStatusApproved)
	if res.Error != nil {
		tx.Rollback()
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		tx.Rollback()
		return nil, fmt.Errorf("%w: bill %d", utils.ErrorAlreadyApproved, id)
	}
	if err := tx.WithContext(ctx).Where("bill_id = ?", id).Order("id").Find(&bill.Lines).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if len(bill.Lines) == 0 {
		tx.Rollback()
		return nil, configErr("bill %d has no lines", id)
	}
	if err := recomputeBillTotals(ctx, tenantId, bill); err != nil {
		tx.Rollback()
		return nil, err
	}
	controlAccount, err := tenant.payableControlAccount()
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	taxAccount := 0
	if !bill.TaxAmount.IsZero() {
		if taxAccount, err = tenant.purchaseTaxAccount(); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	computed := make([]computedLine, 0, len(bill.Lines))
	for _, line := range bill.Lines {
		computed = append(computed, computedLine{
			AccountId:   line.AccountId,
			Description: line.Description,
			Amount:      NewMoney(line.Amount, GeneralScale),
			TaxAmount:   NewMoney(line.TaxAmount, GeneralScale),
		})
	}
	totals := documentTotals{
		AmountBeforeTaxes: NewMoney(bill.AmountBeforeTaxes, GeneralScale),
		TaxAmount:         NewMoney(bill.TaxAmount, GeneralScale),
		TotalAmount:       NewMoney(bill.TotalAmount, GeneralScale),
	}
	entries := buildDocumentPostingLines(sidePurchase, bill.Kind, controlAccount, taxAccount, computed, totals, bill.BillNumber)

	header, err := postBalancedEntry(tx, ctx, tenant, bill.IssueDate, LedgerModulePayables, "Bill "+bill.BillNumber, entries)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.WithContext(ctx).Model(&Bill{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"LedgerHeaderId":    header.ID,
			"AmountBeforeTaxes": bill.AmountBeforeTaxes,
			"TaxAmount":         bill.TaxAmount,
			"TotalAmount":       bill.TotalAmount,
			"DueAmount":         bill.DueAmount,
		}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return utils.FetchModel[Bill](ctx, tenantId, id, "Lines")
}

func UpdateBillNotes(ctx context.Context, id int, notes string) (*Bill, error) {
	tenantId, err := tenantFromContext(ctx)
	if err != nil {
		return nil, err
	}
	bill, err := utils.FetchModel[Bill](ctx, tenantId, id)
	if err != nil {
		return nil, err
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Model(bill).Update("notes", notes).Error; err != nil {
		return nil, err
	}
	return utils.FetchModel[Bill](ctx, tenantId, id, "Lines")
}

func GetBill(ctx context.Context, id int) (*Bill, error) {
	tenantId, err := tenantFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return utils.FetchModel[Bill](ctx, tenantId, id, "Lines")
}
