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

// DocumentApply records one settlement: a payment or credit document applied
// against an invoice or bill. Applies are never deleted; unapplying voids the
// record and books the offsetting ledger entry.
type DocumentApply struct {
	ID             int             `gorm:"primary_key" json:"id"`
	TenantId       string          `gorm:"index;not null" json:"tenant_id"`
	SourceKind     ApplySourceKind `gorm:"size:20;not null" json:"source_kind"`
	SourceId       int             `gorm:"index;not null" json:"source_id"`
	TargetKind     ApplyTargetKind `gorm:"size:10;not null" json:"target_kind"`
	TargetId       int             `gorm:"index;not null" json:"target_id"`
	Amount         decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`
	ApplyDate      time.Time       `gorm:"not null" json:"apply_date"`
	IsVoid         *bool           `gorm:"default:false" json:"is_void"`
	LedgerHeaderId int             `gorm:"default:null" json:"ledger_header_id"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (a DocumentApply) void() bool { return a.IsVoid != nil && *a.IsVoid }

type NewApply struct {
	SourceKind ApplySourceKind `json:"source_kind" binding:"required"`
	SourceId   int             `json:"source_id" binding:"required"`
	TargetId   int             `json:"target_id" binding:"required"`
	Amount     decimal.Decimal `json:"amount" binding:"required"`
	ApplyDate  time.Time       `json:"apply_date" binding:"required"`
}

// ApplyAllocation is one target's share in a batch application.
type ApplyAllocation struct {
	TargetId int             `json:"target_id" binding:"required"`
	Amount   decimal.Decimal `json:"amount" binding:"required"`
}

// applySourceHandler is the per-kind behavior behind ApplyPayment. Payment
// sources draw down amount_left and post a clearing-to-control entry; credit
// document sources draw down their own due_amount and post nothing, their
// value already moved through the ledger at approval.
type applySourceHandler struct {
	targetKind ApplyTargetKind
	module     LedgerModule
	amountLeft func(ctx context.Context, tenantId string, id int) (decimal.Decimal, error)
	consume    func(tx *gorm.DB, ctx context.Context, id int, amount, expected decimal.Decimal) error
	restore    func(tx *gorm.DB, ctx context.Context, tenantId string, id int, amount decimal.Decimal) error
	entries    func(tenant *Tenant, amount Money, description string) ([]NewLedgerLine, error)
}

var applySourceHandlers = map[ApplySourceKind]applySourceHandler{
	ApplySourceCustomerPayment: {
		targetKind: ApplyTargetInvoice,
		module:     LedgerModuleReceivables,
		amountLeft: customerPaymentLeft,
		consume:    consumeCustomerPaymentLeft,
		restore:    restoreCustomerPaymentLeft,
		entries:    customerPaymentApplyEntries,
	},
	ApplySourceVendorPayment: {
		targetKind: ApplyTargetBill,
		module:     LedgerModulePayables,
		amountLeft: vendorPaymentLeft,
		consume:    consumeVendorPaymentLeft,
		restore:    restoreVendorPaymentLeft,
		entries:    vendorPaymentApplyEntries,
	},
	ApplySourceCreditInvoice: {
		targetKind: ApplyTargetInvoice,
		module:     LedgerModuleReceivables,
		amountLeft: creditInvoiceLeft,
		consume:    consumeInvoiceDue,
		restore:    restoreInvoiceDue,
	},
	ApplySourceCreditBill: {
		targetKind: ApplyTargetBill,
		module:     LedgerModulePayables,
		amountLeft: creditBillLeft,
		consume:    consumeBillDue,
		restore:    restoreBillDue,
	},
}

func customerPaymentLeft(ctx context.Context, tenantId string, id int) (decimal.Decimal, error) {
	payment, err := utils.FetchModel[CustomerPayment](ctx, tenantId, id)
	if err != nil {
		return decimal.Zero, err
	}
	return payment.AmountLeft, nil
}

func consumeCustomerPaymentLeft(tx *gorm.DB, ctx context.Context, id int, amount, expected decimal.Decimal) error {
	res := tx.WithContext(ctx).Model(&CustomerPayment{}).
		Where("id = ? AND amount_left = ?", id, expected).
		Update("amount_left", expected.Sub(amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: customer payment %d", utils.ErrorConflict, id)
	}
	return nil
}

func restoreCustomerPaymentLeft(tx *gorm.DB, ctx context.Context, tenantId string, id int, amount decimal.Decimal) error {
	return tx.WithContext(ctx).Model(&CustomerPayment{}).Where("id = ?", id).
		Update("amount_left", gorm.Expr("amount_left + ?", amount)).Error
}

func customerPaymentApplyEntries(tenant *Tenant, amount Money, description string) ([]NewLedgerLine, error) {
	clearing, err := tenant.unappliedReceiptsAccount()
	if err != nil {
		return nil, err
	}
	control, err := tenant.receivableControlAccount()
	if err != nil {
		return nil, err
	}
	return []NewLedgerLine{
		signedDebitLine(clearing, description, amount),
		signedCreditLine(control, description, amount),
	}, nil
}

func vendorPaymentLeft(ctx context.Context, tenantId string, id int) (decimal.Decimal, error) {
	payment, err := utils.FetchModel[VendorPayment](ctx, tenantId, id)
	if err != nil {
		return decimal.Zero, err
	}
	return payment.AmountLeft, nil
}

func consumeVendorPaymentLeft(tx *gorm.DB, ctx context.Context, id int, amount, expected decimal.Decimal) error {
	res := tx.WithContext(ctx).Model(&VendorPayment{}).
		Where("id = ? AND amount_left = ?", id, expected).
		Update("amount_left", expected.Sub(amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: vendor payment %d", utils.ErrorConflict, id)
	}
	return nil
}

func restoreVendorPaymentLeft(tx *gorm.DB, ctx context.Context, tenantId string, id int, amount decimal.Decimal) error {
	return tx.WithContext(ctx).Model(&VendorPayment{}).Where("id = ?", id).
		Update("amount_left", gorm.Expr("amount_left + ?", amount)).Error
}

func vendorPaymentApplyEntries(tenant *Tenant, amount Money, description string) ([]NewLedgerLine, error) {
	clearing, err := tenant.unappliedPaymentsAccount()
	if err != nil {
		return nil, err
	}
	control, err := tenant.payableControlAccount()
	if err != nil {
		return nil, err
	}
	return []NewLedgerLine{
		signedDebitLine(control, description, amount),
		signedCreditLine(clearing, description, amount),
	}, nil
}

func creditInvoiceLeft(ctx context.Context, tenantId string, id int) (decimal.Decimal, error) {
	invoice, err := utils.FetchModel[Invoice](ctx, tenantId, id)
	if err != nil {
		return decimal.Zero, err
	}
	if invoice.Kind != DocumentKindCredit {
		return decimal.Zero, configErr("invoice %d is not a credit invoice", id)
	}
	if invoice.draft() {
		return decimal.Zero, configErr("credit invoice %d is not approved", id)
	}
	return invoice.DueAmount, nil
}

func creditBillLeft(ctx context.Context, tenantId string, id int) (decimal.Decimal, error) {
	bill, err := utils.FetchModel[Bill](ctx, tenantId, id)
	if err != nil {
		return decimal.Zero, err
	}
	if bill.Kind != DocumentKindCredit {
		return decimal.Zero, configErr("bill %d is not a credit bill", id)
	}
	if bill.draft() {
		return decimal.Zero, configErr("credit bill %d is not approved", id)
	}
	return bill.DueAmount, nil
}

// target-side state, shared with credit document sources.

func invoiceDue(ctx context.Context, tenantId string, id int) (due, total decimal.Decimal, status DocumentStatus, err error) {
	invoice, err := utils.FetchModel[Invoice](ctx, tenantId, id)
	if err != nil {
		return decimal.Zero, decimal.Zero, "", err
	}
	return invoice.DueAmount, invoice.TotalAmount, invoice.Status, nil
}

func consumeInvoiceDue(tx *gorm.DB, ctx context.Context, id int, amount, expected decimal.Decimal) error {
	var invoice Invoice
	if err := tx.WithContext(ctx).First(&invoice, id).Error; err != nil {
		return err
	}
	newDue := expected.Sub(amount)
	res := tx.WithContext(ctx).Model(&Invoice{}).
		Where("id = ? AND due_amount = ?", id, expected).
		Updates(map[string]interface{}{
			"DueAmount": newDue,
			"Status":    deriveDocumentStatus(newDue, invoice.TotalAmount),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: invoice %d", utils.ErrorConflict, id)
	}
	return nil
}

// restoreInvoiceDue re-derives status from the restored due, so the update
// carries a due_amount predicate; a concurrent writer surfaces as
// ErrorConflict into the caller's retry.
func restoreInvoiceDue(tx *gorm.DB, ctx context.Context, tenantId string, id int, amount decimal.Decimal) error {
	var invoice Invoice
	if err := tx.WithContext(ctx).Where("tenant_id = ?", tenantId).First(&invoice, id).Error; err != nil {
		return err
	}
	newDue := invoice.DueAmount.Add(amount)
	res := tx.WithContext(ctx).Model(&Invoice{}).
		Where("id = ? AND due_amount = ?", id, invoice.DueAmount).
		Updates(map[string]interface{}{
			"DueAmount": newDue,
			"Status":    deriveDocumentStatus(newDue, invoice.TotalAmount),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: invoice %d", utils.ErrorConflict, id)
	}
	return nil
}

func billDue(ctx context.Context, tenantId string, id int) (due, total decimal.Decimal, status DocumentStatus, err error) {
	bill, err := utils.FetchModel[Bill](ctx, tenantId, id)
	if err != nil {
		return decimal.Zero, decimal.Zero, "", err
	}
	return bill.DueAmount, bill.TotalAmount, bill.Status, nil
}

func consumeBillDue(tx *gorm.DB, ctx context.Context, id int, amount, expected decimal.Decimal) error {
	var bill Bill
	if err := tx.WithContext(ctx).First(&bill, id).Error; err != nil {
		return err
	}
	newDue := expected.Sub(amount)
	res := tx.WithContext(ctx).Model(&Bill{}).
		Where("id = ? AND due_amount = ?", id, expected).
		Updates(map[string]interface{}{
			"DueAmount": newDue,
			"Status":    deriveDocumentStatus(newDue, bill.TotalAmount),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: bill %d", utils.ErrorConflict, id)
	}
	return nil
}

func restoreBillDue(tx *gorm.DB, ctx context.Context, tenantId string, id int, amount decimal.Decimal) error {
	var bill Bill
	if err := tx.WithContext(ctx).Where("tenant_id = ?", tenantId).First(&bill, id).Error; err != nil {
		return err
	}
	newDue := bill.DueAmount.Add(amount)
	res := tx.WithContext(ctx).Model(&Bill{}).
		Where("id = ? AND due_amount = ?", id, bill.DueAmount).
		Updates(map[string]interface{}{
			"DueAmount": newDue,
			"Status":    deriveDocumentStatus(newDue, bill.TotalAmount),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: bill %d", utils.ErrorConflict, id)
	}
	return nil
}

func targetDue(ctx context.Context, tenantId string, kind ApplyTargetKind, id int) (decimal.Decimal, decimal.Decimal, DocumentStatus, error) {
	switch kind {
	case ApplyTargetInvoice:
		return invoiceDue(ctx, tenantId, id)
	case ApplyTargetBill:
		return billDue(ctx, tenantId, id)
	}
	return decimal.Zero, decimal.Zero, "", configErr("unknown apply target kind %q", kind)
}

func consumeTargetDue(tx *gorm.DB, ctx context.Context, kind ApplyTargetKind, id int, amount, expected decimal.Decimal) error {
	if kind == ApplyTargetBill {
		return consumeBillDue(tx, ctx, id, amount, expected)
	}
	return consumeInvoiceDue(tx, ctx, id, amount, expected)
}

func restoreTargetDue(tx *gorm.DB, ctx context.Context, tenantId string, kind ApplyTargetKind, id int, amount decimal.Decimal) error {
	if kind == ApplyTargetBill {
		return restoreBillDue(tx, ctx, tenantId, id, amount)
	}
	return restoreInvoiceDue(tx, ctx, tenantId, id, amount)
}

func (input *NewApply) validate(ctx context.Context, tenantId string, handler applySourceHandler) (decimal.Decimal, decimal.Decimal, error) {
	amount := input.Amount.Round(PaymentScale)
	if !amount.IsPositive() {
		return decimal.Zero, decimal.Zero, configErr("applied amount must be positive")
	}
	if !amount.Equal(input.Amount) {
		return decimal.Zero, decimal.Zero, fmt.Errorf("%w: applied amount %s has more than %d decimal places",
			utils.ErrorPrecisionLoss, input.Amount, PaymentScale)
	}
	left, err := handler.amountLeft(ctx, tenantId, input.SourceId)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	if amount.GreaterThan(left) {
		return decimal.Zero, decimal.Zero, fmt.Errorf("%w: amount %s exceeds remaining %s on %s %d",
			utils.ErrorOverApplication, amount, left, input.SourceKind, input.SourceId)
	}
	due, _, status, err := targetDue(ctx, tenantId, handler.targetKind, input.TargetId)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	if status == DocumentStatusDraft {
		return decimal.Zero, decimal.Zero, configErr("%s %d is not approved", handler.targetKind, input.TargetId)
	}
	if amount.GreaterThan(due) {
		return decimal.Zero, decimal.Zero, fmt.Errorf("%w: amount %s exceeds due %s on %s %d",
			utils.ErrorOverApplication, amount, due, handler.targetKind, input.TargetId)
	}
	if (input.SourceKind == ApplySourceCreditInvoice || input.SourceKind == ApplySourceCreditBill) &&
		input.SourceId == input.TargetId {
		return decimal.Zero, decimal.Zero, configErr("cannot apply a credit document to itself")
	}
	return left, due, nil
}

// ApplyPayment applies a payment or credit document to a single invoice or
// bill. The remaining-balance decrements are optimistic compare-and-swap
// updates; a concurrent apply that wins the race surfaces as ErrorConflict
// and the whole operation is retried from a fresh read.
func ApplyPayment(ctx context.Context, input *NewApply) (*DocumentApply, error) {
	tenantId, err := tenantFromContext(ctx)
	if err != nil {
		return nil, err
	}
	handler, ok := applySourceHandlers[input.SourceKind]
	if !ok {
		return nil, configErr("unknown apply source kind %q", input.SourceKind)
	}
	tenant, err := GetTenantById(ctx, tenantId)
	if err != nil {
		return nil, err
	}

	var apply *DocumentApply
	err = utils.RetryOnConflict(func() error {
		left, due, err := input.validate(ctx, tenantId, handler)
		if err != nil {
			return err
		}
		amount := input.Amount.Round(PaymentScale)

		db := config.GetDB()
		tx := db.Begin()
		created, err := applyOneTx(tx, ctx, tenant, handler, input.SourceKind, input.SourceId,
			input.TargetId, amount, left, due, input.ApplyDate)
		if err != nil {
			tx.Rollback()
			return err
		}
		if err := tx.Commit().Error; err != nil {
			return err
		}
		apply = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return apply, nil
}

// applyOneTx performs the writes for a single application inside the caller's
// transaction: period gate, both CAS decrements, the apply record and, for
// payment sources, the clearing-to-control posting.
func applyOneTx(tx *gorm.DB, ctx context.Context, tenant *Tenant, handler applySourceHandler,
	sourceKind ApplySourceKind, sourceId, targetId int, amount, sourceLeft, dueLeft decimal.Decimal,
	applyDate time.Time) (*DocumentApply, error) {

	if err := validatePeriodOpen(tx, ctx, tenant.ID, applyDate, handler.module); err != nil {
		return nil, err
	}
	if err := handler.consume(tx, ctx, sourceId, amount, sourceLeft); err != nil {
		return nil, err
	}
	if err := consumeTargetDue(tx, ctx, handler.targetKind, targetId, amount, dueLeft); err != nil {
		return nil, err
	}

	apply := DocumentApply{
		TenantId:   tenant.ID,
		SourceKind: sourceKind,
		SourceId:   sourceId,
		TargetKind: handler.targetKind,
		TargetId:   targetId,
		Amount:     amount,
		ApplyDate:  applyDate,
	}
	if handler.entries != nil {
		description := fmt.Sprintf("Apply %s %d to %s %d", sourceKind, sourceId, handler.targetKind, targetId)
		lines, err := handler.entries(tenant, NewMoney(amount, PaymentScale).Rescale(GeneralScale), description)
		if err != nil {
			return nil, err
		}
		header, err := postBalancedEntry(tx, ctx, tenant, applyDate, handler.module, description, lines)
		if err != nil {
			return nil, err
		}
		apply.LedgerHeaderId = header.ID
	}
	if err := tx.WithContext(ctx).Create(&apply).Error; err != nil {
		return nil, err
	}
	return &apply, nil
}

// ApplyAcrossMultiple settles one source against several targets atomically.
// Every allocation, including the summed draw on the source, is validated
// before the first write; any failure leaves nothing applied.
func ApplyAcrossMultiple(ctx context.Context, sourceKind ApplySourceKind, sourceId int,
	allocations []ApplyAllocation, applyDate time.Time) ([]DocumentApply, error) {

	tenantId, err := tenantFromContext(ctx)
	if err != nil {
		return nil, err
	}
	handler, ok := applySourceHandlers[sourceKind]
	if !ok {
		return nil, configErr("unknown apply source kind %q", sourceKind)
	}
	if len(allocations) == 0 {
		return nil, configErr("no allocations given")
	}
	tenant, err := GetTenantById(ctx, tenantId)
	if err != nil {
		return nil, err
	}

	var applied []DocumentApply
	err = utils.RetryOnConflict(func() error {
		left, err := handler.amountLeft(ctx, tenantId, sourceId)
		if err != nil {
			return err
		}
		total := decimal.Zero
		dues := make([]decimal.Decimal, len(allocations))
		seen := make(map[int]bool, len(allocations))
		for i, alloc := range allocations {
			if seen[alloc.TargetId] {
				return configErr("target %d allocated twice", alloc.TargetId)
			}
			seen[alloc.TargetId] = true
			one := NewApply{
				SourceKind: sourceKind,
				SourceId:   sourceId,
				TargetId:   alloc.TargetId,
				Amount:     alloc.Amount,
				ApplyDate:  applyDate,
			}
			if _, dues[i], err = one.validate(ctx, tenantId, handler); err != nil {
				return err
			}
			total = total.Add(alloc.Amount.Round(PaymentScale))
		}
		if total.GreaterThan(left) {
			return fmt.Errorf("%w: allocations total %s exceeds remaining %s on %s %d",
				utils.ErrorOverApplication, total, left, sourceKind, sourceId)
		}

		db := config.GetDB()
		tx := db.Begin()
		created := make([]DocumentApply, 0, len(allocations))
		remaining := left
		for i, alloc := range allocations {
			amount := alloc.Amount.Round(PaymentScale)
			apply, err := applyOneTx(tx, ctx, tenant, handler, sourceKind, sourceId,
				alloc.TargetId, amount, remaining, dues[i], applyDate)
			if err != nil {
				tx.Rollback()
				return err
			}
			created = append(created, *apply)
			remaining = remaining.Sub(amount)
		}
		if err := tx.Commit().Error; err != nil {
			return err
		}
		applied = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return applied, nil
}

// UnapplySettlement voids an apply record, restores the source and target
// balances and reverses the application's ledger entry. The record stays in
// place as an audit trail.
func UnapplySettlement(ctx context.Context, applyId int) (*DocumentApply, error) {
	tenantId, err := tenantFromContext(ctx)
	if err != nil {
		return nil, err
	}
	tenant, err := GetTenantById(ctx, tenantId)
	if err != nil {
		return nil, err
	}

	err = utils.RetryOnConflict(func() error {
		apply, err := utils.FetchModel[DocumentApply](ctx, tenantId, applyId)
		if err != nil {
			return err
		}
		if apply.void() {
			return fmt.Errorf("%w: apply %d is already void", utils.ErrorImmutablePosting, applyId)
		}
		handler, ok := applySourceHandlers[apply.SourceKind]
		if !ok {
			return configErr("unknown apply source kind %q", apply.SourceKind)
		}

		db := config.GetDB()
		tx := db.Begin()
		res := tx.WithContext(ctx).Model(&DocumentApply{}).
			Where("id = ? AND is_void = ?", applyId, false).
			Update("is_void", true)
		if res.Error != nil {
			tx.Rollback()
			return res.Error
		}
		if res.RowsAffected == 0 {
			tx.Rollback()
			return fmt.Errorf("%w: apply %d", utils.ErrorConflict, applyId)
		}
		if err := handler.restore(tx, ctx, tenantId, apply.SourceId, apply.Amount); err != nil {
			tx.Rollback()
			return err
		}
		if err := restoreTargetDue(tx, ctx, tenantId, handler.targetKind, apply.TargetId, apply.Amount); err != nil {
			tx.Rollback()
			return err
		}
		if apply.LedgerHeaderId != 0 {
			header, err := utils.FetchModel[LedgerHeader](ctx, tenantId, apply.LedgerHeaderId, "Lines")
			if err != nil {
				tx.Rollback()
				return err
			}
			if _, err := voidLedgerHeaderTx(tx, ctx, tenant, header, time.Time{}); err != nil {
				tx.Rollback()
				return err
			}
		}
		return tx.Commit().Error
	})
	if err != nil {
		return nil, err
	}
	return utils.FetchModel[DocumentApply](ctx, tenantId, applyId)
}

func GetDocumentApply(ctx context.Context, id int) (*DocumentApply, error) {
	tenantId, err := tenantFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return utils.FetchModel[DocumentApply](ctx, tenantId, id)
}

// AppliesForTarget lists the active applies against a document, newest first.
func AppliesForTarget(ctx context.Context, kind ApplyTargetKind, targetId int) ([]DocumentApply, error) {
	tenantId, err := tenantFromContext(ctx)
	if err != nil {
		return nil, err
	}
	var applies []DocumentApply
	db := config.GetDB()
	err = db.WithContext(ctx).
		Where("tenant_id = ? AND target_kind = ? AND target_id = ? AND is_void = ?", tenantId, kind, targetId, false).
		Order("id desc").Find(&applies).Error
	if err != nil {
		return nil, err
	}
	return applies, nil
}
