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

// Invoice is a receivable document. The total/tax/due columns are redundant
// and recomputed by the engine on every mutation; they are never written
// directly by callers. A Credit invoice nets against the customer balance
// and can be applied to other invoices instead of being paid.
type Invoice struct {
	ID                int             `gorm:"primary_key" json:"id"`
	TenantId          string          `gorm:"index;not null" json:"tenant_id"`
	CustomerId        int             `gorm:"index;not null" json:"customer_id" binding:"required"`
	PropertyId        int             `gorm:"index;default:null" json:"property_id"`
	Kind              DocumentKind    `gorm:"size:10;not null;default:'Standard'" json:"kind"`
	Status            DocumentStatus  `gorm:"size:15;not null;default:'Draft';index" json:"status"`
	InvoiceNumber     string          `gorm:"size:255;not null" json:"invoice_number"`
	SequenceNo        int64           `gorm:"not null" json:"sequence_no"`
	IssueDate         time.Time       `gorm:"not null" json:"issue_date" binding:"required"`
	DueDate           time.Time       `gorm:"not null" json:"due_date"`
	Notes             string          `gorm:"type:text" json:"notes"`
	AmountBeforeTaxes decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount_before_taxes"`
	TaxAmount         decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"tax_amount"`
	TotalAmount       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_amount"`
	DueAmount         decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"due_amount"`
	LedgerHeaderId    int             `gorm:"default:null" json:"ledger_header_id"`
	Lines             []InvoiceLine   `gorm:"foreignKey:InvoiceId" json:"lines"`
	CreatedAt         time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type InvoiceLine struct {
	ID          int             `gorm:"primary_key" json:"id"`
	InvoiceId   int             `gorm:"index;not null" json:"invoice_id"`
	ProductId   int             `gorm:"default:null" json:"product_id"`
	Description string          `gorm:"size:255" json:"description"`
	Qty         decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"qty"`
	UnitRate    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_rate"`
	AccountId   int             `gorm:"not null" json:"account_id"`
	TaxGroupId  int             `gorm:"default:null" json:"tax_group_id"`
	Amount      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount"`
	TaxAmount   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"tax_amount"`
}

type NewInvoice struct {
	CustomerId   int                 `json:"customer_id" binding:"required"`
	PropertyId   int                 `json:"property_id"`
	Kind         DocumentKind        `json:"kind"`
	IssueDate    time.Time           `json:"issue_date" binding:"required"`
	DueDate      *time.Time          `json:"due_date"`
	PaymentTerms PaymentTerms        `json:"payment_terms"`
	CustomDays   int                 `json:"custom_days"`
	Notes        string              `json:"notes"`
	Lines        []DocumentLineInput `json:"lines"`
}

func (inv Invoice) draft() bool { return inv.Status == DocumentStatusDraft }

// validate input for create. Period gating happens at approval, but a
// locked-period issue date is rejected up front to fail fast.
func (input *NewInvoice) validate(ctx context.Context, tenantId string) error {
	if input.Kind == "" {
		input.Kind = DocumentKindStandard
	}
	if !input.Kind.IsValid() {
		return configErr("invalid document kind %q", input.Kind)
	}
	if err := utils.ValidateResourceId[Customer](ctx, tenantId, input.CustomerId); err != nil {
		return configErr("customer not found")
	}
	if input.PropertyId > 0 {
		if err := utils.ValidateResourceId[Property](ctx, tenantId, input.PropertyId); err != nil {
			return configErr("property not found")
		}
	}
	return nil
}

func (input *NewInvoice) resolveDueDate(ctx context.Context, tenantId string) (time.Time, error) {
	if input.DueDate != nil {
		return *input.DueDate, nil
	}
	terms := input.PaymentTerms
	customDays := input.CustomDays
	if terms == "" {
		customer, err := utils.FetchModel[Customer](ctx, tenantId, input.CustomerId)
		if err != nil {
			return time.Time{}, err
		}
		terms = customer.PaymentTerms
		customDays = customer.CustomDays
	}
	return *calculateDueDate(input.IssueDate, terms, customDays), nil
}

func newInvoiceLines(lines []computedLine, invoiceId int) []InvoiceLine {
	out := make([]InvoiceLine, 0, len(lines))
	for _, line := range lines {
		out = append(out, InvoiceLine{
			InvoiceId:   invoiceId,
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

func CreateInvoice(ctx context.Context, input *NewInvoice) (*Invoice, error) {
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
	computed, totals, err := computeDocumentLines(ctx, tenantId, input.IssueDate, sideSales, input.Lines)
	if err != nil {
		return nil, err
	}

	seqNo, number, err := nextTransactionNumber(ctx, tenant, SequenceTypeInvoice, input.IssueDate)
	if err != nil {
		return nil, err
	}

	invoice := Invoice{
		TenantId:          tenantId,
		CustomerId:        input.CustomerId,
		PropertyId:        input.PropertyId,
		Kind:              input.Kind,
		Status:            DocumentStatusDraft,
		InvoiceNumber:     number,
		SequenceNo:        seqNo,
		IssueDate:         input.IssueDate,
		DueDate:           dueDate,
		Notes:             input.Notes,
		AmountBeforeTaxes: totals.AmountBeforeTaxes.Decimal(),
		TaxAmount:         totals.TaxAmount.Decimal(),
		TotalAmount:       totals.TotalAmount.Decimal(),
		DueAmount:         totals.TotalAmount.Rescale(PaymentScale).Decimal(),
		Lines:             newInvoiceLines(computed, 0),
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&invoice).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

// fetchDraftInvoice loads an invoice for line mutation; anything past Draft
// is immutable except note fields.
func fetchDraftInvoice(ctx context.Context, tenantId string, id int) (*Invoice, error) {
	invoice, err := utils.FetchModel[Invoice](ctx, tenantId, id, "Lines")
	if err != nil {
		return nil, err
	}
	if !invoice.draft() {
		return nil, fmt.Errorf("%w: invoice %d is %s", utils.ErrorImmutablePosting, id, invoice.Status)
	}
	return invoice, nil
}

// recomputeInvoiceTotals re-derives every redundant column from the stored
// lines, in the caller's transaction.
func recomputeInvoiceTotals(ctx context.Context, tenantId string, invoice *Invoice) error {
	inputs := make([]DocumentLineInput, 0, len(invoice.Lines))
	for _, line := range invoice.Lines {
		inputs = append(inputs, DocumentLineInput{
			ProductId:   line.ProductId,
			Description: line.Description,
			Qty:         line.Qty,
			UnitRate:    line.UnitRate,
			AccountId:   line.AccountId,
			TaxGroupId:  line.TaxGroupId,
		})
	}
	computed, totals, err := computeDocumentLines(ctx, tenantId, invoice.IssueDate, sideSales, inputs)
	if err != nil {
		return err
	}
	for i := range invoice.Lines {
		invoice.Lines[i].Amount = computed[i].Amount.Decimal()
		invoice.Lines[i].TaxAmount = computed[i].TaxAmount.Decimal()
	}
	invoice.AmountBeforeTaxes = totals.AmountBeforeTaxes.Decimal()
	invoice.TaxAmount = totals.TaxAmount.Decimal()
	invoice.TotalAmount = totals.TotalAmount.Decimal()
	invoice.DueAmount = totals.TotalAmount.Rescale(PaymentScale).Decimal()
	return nil
}

func AddInvoiceLine(ctx context.Context, invoiceId int, input *DocumentLineInput) (*Invoice, error) {
	tenantId, err := tenantFromContext(ctx)
	if err != nil {
		return nil, err
	}
	invoice, err := fetchDraftInvoice(ctx, tenantId, invoiceId)
	if err != nil {
		return nil, err
	}
	computed, _, err := computeDocumentLines(ctx, tenantId, invoice.IssueDate, sideSales, []DocumentLineInput{*input})
	if err != nil {
		return nil, err
	}
	invoice.Lines = append(invoice.Lines, newInvoiceLines(computed, invoiceId)...)
	if err := recomputeInvoiceTotals(ctx, tenantId, invoice); err != nil {
		return nil, err
	}

	db := config.GetDB()
	tx := db.Begin()
	if err := tx.WithContext(ctx).Create(&invoice.Lines[len(invoice.Lines)-1]).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := updateInvoiceTotalsTx(tx, ctx, invoice); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return utils.FetchModel[Invoice](ctx, tenantId, invoiceId, "Lines")
}

func RemoveInvoiceLine(ctx context.Context, invoiceId int, lineId int) (*Invoice, error) {
	tenantId, err := tenantFromContext(ctx)
	if err != nil {
		return nil, err
	}
	invoice, err := fetchDraftInvoice(ctx, tenantId, invoiceId)
	if err != nil {
		return nil, err
	}
	kept := invoice.Lines[:0]
	found := false
	for _, line := range invoice.Lines {
		if line.ID == lineId {
			found = true
			continue
		}
		kept = append(kept, line)
	}
	if !found {
		return nil, utils.ErrorRecordNotFound
	}
	invoice.Lines = kept
	if err := recomputeInvoiceTotals(ctx, tenantId, invoice); err != nil {
		return nil, err
	}

	db := config.GetDB()
	tx := db.Begin()
	res := tx.WithContext(ctx).Where("invoice_id = ?", invoiceId).Delete(&InvoiceLine{}, lineId)
	if res.Error != nil {
		tx.Rollback()
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		tx.Rollback()
		return nil, utils.ErrorRecordNotFound
	}
	if err := updateInvoiceTotalsTx(tx, ctx, invoice); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return utils.FetchModel[Invoice](ctx, tenantId, invoiceId, "Lines")
}

// updateInvoiceTotalsTx only lands on a still-draft invoice; a concurrent
// approval makes the predicate miss and the whole line change rolls back.
func updateInvoiceTotalsTx(tx *gorm.DB, ctx context.Context, invoice *Invoice) error {
	res := tx.WithContext(ctx).Model(&Invoice{}).
		Where("id = ? AND status = ?", invoice.ID, DocumentStatusDraft).
		Updates(map[string]interface{}{
			"AmountBeforeTaxes": invoice.AmountBeforeTaxes,
			"TaxAmount":         invoice.TaxAmount,
			"TotalAmount":       invoice.TotalAmount,
			"DueAmount":         invoice.DueAmount,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: invoice %d", utils.ErrorImmutablePosting, invoice.ID)
	}
	return nil
}

// ApproveInvoice posts the balanced receivable entry and moves the invoice
// out of Draft. The document and its posting commit or roll back together.
// Re-approval fails ErrorAlreadyApproved.
func ApproveInvoice(ctx context.Context, id int) (*Invoice, error) {
	tenantId, err := tenantFromContext(ctx)
	if err != nil {
		return nil, err
	}
	tenant, err := GetTenantById(ctx, tenantId)
	if err != nil {
		return nil, err
	}
	invoice, err := utils.FetchModel[Invoice](ctx, tenantId, id)
	if err != nil {
		return nil, err
	}
	if !invoice.draft() {
		return nil, fmt.Errorf("%w: invoice %d", utils.ErrorAlreadyApproved, id)
	}
	if err := utils.ValidateResourceId[Customer](ctx, tenantId, invoice.CustomerId); err != nil {
		return nil, configErr("customer not found")
	}
	if invoice.DueDate.IsZero() || invoice.DueDate.Before(invoice.IssueDate) {
		return nil, configErr("invoice %d has an invalid due date", id)
	}

	db := config.GetDB()
	tx := db.Begin()
	// Moving to Approved first takes the row lock; a racing line change
	// either commits before the line read below or fails its draft check
	// after this transaction ends.
	res := tx.WithContext(ctx).Model(&Invoice{}).
		Where("id = ? AND status = ?", id, DocumentStatusDraft).
		Update("status", DocumentStatusApproved)
	if res.Error != nil {
		tx.Rollback()
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		tx.Rollback()
		return nil, fmt.Errorf("%w: invoice %d", utils.ErrorAlreadyApproved, id)
	}
	if err := tx.WithContext(ctx).Where("invoice_id = ?", id).Order("id").Find(&invoice.Lines).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if len(invoice.Lines) == 0 {
		tx.Rollback()
		return nil, configErr("invoice %d has no lines", id)
	}
	if err := recomputeInvoiceTotals(ctx, tenantId, invoice); err != nil {
		tx.Rollback()
		return nil, err
	}
	controlAccount, err := tenant.receivableControlAccount()
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	taxAccount := 0
	if !invoice.TaxAmount.IsZero() {
		if taxAccount, err = tenant.salesTaxAccount(); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	computed := computedLinesFromInvoice(invoice)
	totals := documentTotals{
		AmountBeforeTaxes: NewMoney(invoice.AmountBeforeTaxes, GeneralScale),
		TaxAmount:         NewMoney(invoice.TaxAmount, GeneralScale),
		TotalAmount:       NewMoney(invoice.TotalAmount, GeneralScale),
	}
	entries := buildDocumentPostingLines(sideSales, invoice.Kind, controlAccount, taxAccount, computed, totals, invoice.InvoiceNumber)

	header, err := postBalancedEntry(tx, ctx, tenant, invoice.IssueDate, LedgerModuleReceivables, "Invoice "+invoice.InvoiceNumber, entries)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.WithContext(ctx).Model(&Invoice{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"LedgerHeaderId":    header.ID,
			"AmountBeforeTaxes": invoice.AmountBeforeTaxes,
			"TaxAmount":         invoice.TaxAmount,
			"TotalAmount":       invoice.TotalAmount,
			"DueAmount":         invoice.DueAmount,
		}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return utils.FetchModel[Invoice](ctx, tenantId, id, "Lines")
}

func computedLinesFromInvoice(invoice *Invoice) []computedLine {
	computed := make([]computedLine, 0, len(invoice.Lines))
	for _, line := range invoice.Lines {
		computed = append(computed, computedLine{
			AccountId:   line.AccountId,
			Description: line.Description,
			Amount:      NewMoney(line.Amount, GeneralScale),
			TaxAmount:   NewMoney(line.TaxAmount, GeneralScale),
		})
	}
	return computed
}

// UpdateInvoiceNotes is the only mutation allowed after approval; amounts on
// an approved document are immutable.
func UpdateInvoiceNotes(ctx context.Context, id int, notes string) (*Invoice, error) {
	tenantId, err := tenantFromContext(ctx)
	if err != nil {
		return nil, err
	}
	invoice, err := utils.FetchModel[Invoice](ctx, tenantId, id)
	if err != nil {
		return nil, err
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Model(invoice).Update("notes", notes).Error; err != nil {
		return nil, err
	}
	return utils.FetchModel[Invoice](ctx, tenantId, id, "Lines")
}

func GetInvoice(ctx context.Context, id int) (*Invoice, error) {
	tenantId, err := tenantFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return utils.FetchModel[Invoice](ctx, tenantId, id, "Lines")
}
