package models_test

import (
	"errors"
	"testing"
	"time"

	"github.com/propertybooks/accounting_backend/models"
	"github.com/propertybooks/accounting_backend/utils"
)

func approvedInvoice(t *testing.T, f *fixture, customerId int, rate string) *models.Invoice {
	t.Helper()
	invoice, err := models.CreateInvoice(f.ctx, &models.NewInvoice{
		CustomerId: customerId,
		IssueDate:  date(2026, time.March, 1),
		Lines: []models.DocumentLineInput{
			{Description: "Rent", Qty: dec("1"), UnitRate: dec(rate), AccountId: f.income},
		},
	})
	if err != nil {
		t.Fatalf("create invoice: %v", err)
	}
	approved, err := models.ApproveInvoice(f.ctx, invoice.ID)
	if err != nil {
		t.Fatalf("approve invoice: %v", err)
	}
	return approved
}

func receipt(t *testing.T, f *fixture, customerId int, amount string) *models.CustomerPayment {
	t.Helper()
	payment, err := models.CreateCustomerPayment(f.ctx, &models.NewCustomerPayment{
		CustomerId:       customerId,
		DepositAccountId: f.bank,
		PaymentDate:      date(2026, time.March, 5),
		Amount:           dec(amount),
	})
	if err != nil {
		t.Fatalf("create payment: %v", err)
	}
	return payment
}

func TestCustomerPaymentPostsToClearing(t *testing.T) {
	f := setupFixture(t)
	customerId := f.seedCustomer(t, "Acme Tenants")

	payment := receipt(t, f, customerId, "100")
	if payment.PaymentNumber != "RCT-2026-1" {
		t.Fatalf("payment number = %s, want RCT-2026-1", payment.PaymentNumber)
	}
	if payment.AmountLeft.String() != "100" {
		t.Fatalf("amount left = %s, want 100", payment.AmountLeft)
	}

	header, err := models.GetLedgerHeader(f.ctx, payment.LedgerHeaderId)
	if err != nil {
		t.Fatalf("load posting: %v", err)
	}
	if header.Module != models.LedgerModuleBank {
		t.Fatalf("module = %s, want BANK", header.Module)
	}
	var bankDebit, clearingCredit bool
	for _, line := range header.Lines {
		if line.AccountId == f.bank && line.Debit.String() == "100" {
			bankDebit = true
		}
		if line.AccountId == f.unappliedReceipts && line.Credit.String() == "100" {
			clearingCredit = true
		}
	}
	if !bankDebit || !clearingCredit {
		t.Fatalf("receipt posting wrong: %+v", header.Lines)
	}
}

func TestApplyPaymentSettlesInvoice(t *testing.T) {
	f := setupFixture(t)
	customerId := f.seedCustomer(t, "Acme Tenants")
	invoice := approvedInvoice(t, f, customerId, "100")
	payment := receipt(t, f, customerId, "100")

	first, err := models.ApplyPayment(f.ctx, &models.NewApply{
		SourceKind: models.ApplySourceCustomerPayment,
		SourceId:   payment.ID,
		TargetId:   invoice.ID,
		Amount:     dec("60"),
		ApplyDate:  date(2026, time.March, 6),
	})
	if err != nil {
		t.Fatalf("first apply: %v", err)
	}
	if first.LedgerHeaderId == 0 {
		t.Fatalf("payment apply should post a ledger entry")
	}

	midInvoice, err := models.GetInvoice(f.ctx, invoice.ID)
	if err != nil {
		t.Fatalf("reload invoice: %v", err)
	}
	if midInvoice.DueAmount.String() != "40" || midInvoice.Status != models.DocumentStatusPartialPaid {
		t.Fatalf("after 60: due=%s status=%s, want 40 PartialPaid", midInvoice.DueAmount, midInvoice.Status)
	}

	if _, err := models.ApplyPayment(f.ctx, &models.NewApply{
		SourceKind: models.ApplySourceCustomerPayment,
		SourceId:   payment.ID,
		TargetId:   invoice.ID,
		Amount:     dec("40"),
		ApplyDate:  date(2026, time.March, 7),
	}); err != nil {
		t.Fatalf("second apply: %v", err)
	}

	settled, err := models.GetInvoice(f.ctx, invoice.ID)
	if err != nil {
		t.Fatalf("reload invoice: %v", err)
	}
	if !settled.DueAmount.IsZero() || settled.Status != models.DocumentStatusPaid {
		t.Fatalf("after 100: due=%s status=%s, want 0 Paid", settled.DueAmount, settled.Status)
	}

	drained, err := models.GetCustomerPayment(f.ctx, payment.ID)
	if err != nil {
		t.Fatalf("reload payment: %v", err)
	}
	if !drained.AmountLeft.IsZero() {
		t.Fatalf("amount left = %s, want 0", drained.AmountLeft)
	}

	_, err = models.ApplyPayment(f.ctx, &models.NewApply{
		SourceKind: models.ApplySourceCustomerPayment,
		SourceId:   payment.ID,
		TargetId:   invoice.ID,
		Amount:     dec("0.01"),
		ApplyDate:  date(2026, time.March, 8),
	})
	if !errors.Is(err, utils.ErrorOverApplication) {
		t.Fatalf("third apply: got %v, want ErrorOverApplication", err)
	}
}

func TestApplyPaymentLedgerMovesClearingToControl(t *testing.T) {
	f := setupFixture(t)
	customerId := f.seedCustomer(t, "Acme Tenants")
	invoice := approvedInvoice(t, f, customerId, "80")
	payment := receipt(t, f, customerId, "80")

	apply, err := models.ApplyPayment(f.ctx, &models.NewApply{
		SourceKind: models.ApplySourceCustomerPayment,
		SourceId:   payment.ID,
		TargetId:   invoice.ID,
		Amount:     dec("80"),
		ApplyDate:  date(2026, time.March, 6),
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	header, err := models.GetLedgerHeader(f.ctx, apply.LedgerHeaderId)
	if err != nil {
		t.Fatalf("load posting: %v", err)
	}
	if header.Module != models.LedgerModuleReceivables {
		t.Fatalf("module = %s, want AR", header.Module)
	}
	var clearingDebit, controlCredit bool
	for _, line := range header.Lines {
		if line.AccountId == f.unappliedReceipts && line.Debit.String() == "80" {
			clearingDebit = true
		}
		if line.AccountId == f.receivable && line.Credit.String() == "80" {
			controlCredit = true
		}
	}
	if !clearingDebit || !controlCredit {
		t.Fatalf("apply posting wrong: %+v", header.Lines)
	}
}

func TestApplyRejectsDraftAndOverdraw(t *testing.T) {
	f := setupFixture(t)
	customerId := f.seedCustomer(t, "Acme Tenants")
	payment := receipt(t, f, customerId, "50")

	draft, err := models.CreateInvoice(f.ctx, &models.NewInvoice{
		CustomerId: customerId,
		IssueDate:  date(2026, time.March, 1),
		Lines: []models.DocumentLineInput{
			{Description: "Rent", Qty: dec("1"), UnitRate: dec("100"), AccountId: f.income},
		},
	})
	if err != nil {
		t.Fatalf("create draft invoice: %v", err)
	}
	_, err = models.ApplyPayment(f.ctx, &models.NewApply{
		SourceKind: models.ApplySourceCustomerPayment,
		SourceId:   payment.ID,
		TargetId:   draft.ID,
		Amount:     dec("10"),
		ApplyDate:  date(2026, time.March, 6),
	})
	if !errors.Is(err, utils.ErrorConfiguration) {
		t.Fatalf("apply to draft: got %v, want ErrorConfiguration", err)
	}

	invoice := approvedInvoice(t, f, customerId, "100")
	_, err = models.ApplyPayment(f.ctx, &models.NewApply{
		SourceKind: models.ApplySourceCustomerPayment,
		SourceId:   payment.ID,
		TargetId:   invoice.ID,
		Amount:     dec("60"),
		ApplyDate:  date(2026, time.March, 6),
	})
	if !errors.Is(err, utils.ErrorOverApplication) {
		t.Fatalf("overdraw source: got %v, want ErrorOverApplication", err)
	}
}

func TestApplyAcrossMultipleAllOrNothing(t *testing.T) {
	f := setupFixture(t)
	customerId := f.seedCustomer(t, "Acme Tenants")
	invoiceA := approvedInvoice(t, f, customerId, "100")
	invoiceB := approvedInvoice(t, f, customerId, "50")
	payment := receipt(t, f, customerId, "300")

	// Second allocation exceeds invoiceB's due; nothing may be written.
	_, err := models.ApplyAcrossMultiple(f.ctx, models.ApplySourceCustomerPayment, payment.ID,
		[]models.ApplyAllocation{
			{TargetId: invoiceA.ID, Amount: dec("100")},
			{TargetId: invoiceB.ID, Amount: dec("80")},
		}, date(2026, time.March, 6))
	if !errors.Is(err, utils.ErrorOverApplication) {
		t.Fatalf("batch with bad allocation: got %v, want ErrorOverApplication", err)
	}
	untouched, err := models.GetInvoice(f.ctx, invoiceA.ID)
	if err != nil {
		t.Fatalf("reload invoice A: %v", err)
	}
	if untouched.DueAmount.String() != "100" {
		t.Fatalf("invoice A touched by failed batch: due=%s", untouched.DueAmount)
	}
	paymentAfter, err := models.GetCustomerPayment(f.ctx, payment.ID)
	if err != nil {
		t.Fatalf("reload payment: %v", err)
	}
	if paymentAfter.AmountLeft.String() != "300" {
		t.Fatalf("payment touched by failed batch: left=%s", paymentAfter.AmountLeft)
	}

	applies, err := models.ApplyAcrossMultiple(f.ctx, models.ApplySourceCustomerPayment, payment.ID,
		[]models.ApplyAllocation{
			{TargetId: invoiceA.ID, Amount: dec("100")},
			{TargetId: invoiceB.ID, Amount: dec("50")},
		}, date(2026, time.March, 6))
	if err != nil {
		t.Fatalf("batch apply: %v", err)
	}
	if len(applies) != 2 {
		t.Fatalf("batch created %d applies, want 2", len(applies))
	}
	for _, id := range []int{invoiceA.ID, invoiceB.ID} {
		settled, err := models.GetInvoice(f.ctx, id)
		if err != nil {
			t.Fatalf("reload invoice %d: %v", id, err)
		}
		if settled.Status != models.DocumentStatusPaid {
			t.Fatalf("invoice %d status = %s, want Paid", id, settled.Status)
		}
	}
	remaining, err := models.GetCustomerPayment(f.ctx, payment.ID)
	if err != nil {
		t.Fatalf("reload payment: %v", err)
	}
	if remaining.AmountLeft.String() != "150" {
		t.Fatalf("amount left = %s, want 150", remaining.AmountLeft)
	}
}

func TestUnapplyRestoresBalancesAndReversesPosting(t *testing.T) {
	f := setupFixture(t)
	customerId := f.seedCustomer(t, "Acme Tenants")
	invoice := approvedInvoice(t, f, customerId, "100")
	payment := receipt(t, f, customerId, "100")

	apply, err := models.ApplyPayment(f.ctx, &models.NewApply{
		SourceKind: models.ApplySourceCustomerPayment,
		SourceId:   payment.ID,
		TargetId:   invoice.ID,
		Amount:     dec("100"),
		ApplyDate:  date(2026, time.March, 6),
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	voided, err := models.UnapplySettlement(f.ctx, apply.ID)
	if err != nil {
		t.Fatalf("unapply: %v", err)
	}
	if voided.IsVoid == nil || !*voided.IsVoid {
		t.Fatalf("apply record not voided")
	}

	restoredInvoice, err := models.GetInvoice(f.ctx, invoice.ID)
	if err != nil {
		t.Fatalf("reload invoice: %v", err)
	}
	if restoredInvoice.DueAmount.String() != "100" || restoredInvoice.Status != models.DocumentStatusApproved {
		t.Fatalf("invoice after unapply: due=%s status=%s, want 100 Approved",
			restoredInvoice.DueAmount, restoredInvoice.Status)
	}
	restoredPayment, err := models.GetCustomerPayment(f.ctx, payment.ID)
	if err != nil {
		t.Fatalf("reload payment: %v", err)
	}
	if restoredPayment.AmountLeft.String() != "100" {
		t.Fatalf("payment after unapply: left=%s, want 100", restoredPayment.AmountLeft)
	}

	applyHeader, err := models.GetLedgerHeader(f.ctx, apply.LedgerHeaderId)
	if err != nil {
		t.Fatalf("reload apply posting: %v", err)
	}
	if applyHeader.IsReversed == nil || !*applyHeader.IsReversed {
		t.Fatalf("apply posting not reversed")
	}

	if _, err := models.UnapplySettlement(f.ctx, apply.ID); !errors.Is(err, utils.ErrorImmutablePosting) {
		t.Fatalf("second unapply: got %v, want ErrorImmutablePosting", err)
	}

	active, err := models.AppliesForTarget(f.ctx, models.ApplyTargetInvoice, invoice.ID)
	if err != nil {
		t.Fatalf("list applies: %v", err)
	}
	if len(active) != 0 {
		t.Fatalf("voided apply still listed as active")
	}
}

func TestUnapplyEachOfSeveralAppliesRestoresFullDue(t *testing.T) {
	f := setupFixture(t)
	customerId := f.seedCustomer(t, "Acme Tenants")
	invoice := approvedInvoice(t, f, customerId, "100")
	payment := receipt(t, f, customerId, "100")

	var applies []*models.DocumentApply
	for _, amount := range []string{"60", "40"} {
		apply, err := models.ApplyPayment(f.ctx, &models.NewApply{
			SourceKind: models.ApplySourceCustomerPayment,
			SourceId:   payment.ID,
			TargetId:   invoice.ID,
			Amount:     dec(amount),
			ApplyDate:  date(2026, time.March, 6),
		})
		if err != nil {
			t.Fatalf("apply %s: %v", amount, err)
		}
		applies = append(applies, apply)
	}
	settled, err := models.GetInvoice(f.ctx, invoice.ID)
	if err != nil {
		t.Fatalf("reload invoice: %v", err)
	}
	if settled.Status != models.DocumentStatusPaid {
		t.Fatalf("status = %s, want Paid", settled.Status)
	}

	for _, apply := range applies {
		if _, err := models.UnapplySettlement(f.ctx, apply.ID); err != nil {
			t.Fatalf("unapply %d: %v", apply.ID, err)
		}
	}
	restored, err := models.GetInvoice(f.ctx, invoice.ID)
	if err != nil {
		t.Fatalf("reload invoice: %v", err)
	}
	if restored.DueAmount.String() != "100" || restored.Status != models.DocumentStatusApproved {
		t.Fatalf("after both unapplies: due=%s status=%s, want 100 Approved",
			restored.DueAmount, restored.Status)
	}
	restoredPayment, err := models.GetCustomerPayment(f.ctx, payment.ID)
	if err != nil {
		t.Fatalf("reload payment: %v", err)
	}
	if restoredPayment.AmountLeft.String() != "100" {
		t.Fatalf("payment after unapplies: left=%s, want 100", restoredPayment.AmountLeft)
	}
}

func TestCreditInvoiceAppliesWithoutPosting(t *testing.T) {
	f := setupFixture(t)
	customerId := f.seedCustomer(t, "Acme Tenants")
	invoice := approvedInvoice(t, f, customerId, "100")

	credit, err := models.CreateInvoice(f.ctx, &models.NewInvoice{
		CustomerId: customerId,
		Kind:       models.DocumentKindCredit,
		IssueDate:  date(2026, time.March, 2),
		Lines: []models.DocumentLineInput{
			{Description: "Overcharge credit", Qty: dec("1"), UnitRate: dec("30"), AccountId: f.income},
		},
	})
	if err != nil {
		t.Fatalf("create credit invoice: %v", err)
	}
	if _, err := models.ApproveInvoice(f.ctx, credit.ID); err != nil {
		t.Fatalf("approve credit invoice: %v", err)
	}

	apply, err := models.ApplyPayment(f.ctx, &models.NewApply{
		SourceKind: models.ApplySourceCreditInvoice,
		SourceId:   credit.ID,
		TargetId:   invoice.ID,
		Amount:     dec("30"),
		ApplyDate:  date(2026, time.March, 6),
	})
	if err != nil {
		t.Fatalf("apply credit: %v", err)
	}
	if apply.LedgerHeaderId != 0 {
		t.Fatalf("credit apply posted a ledger entry; its value already moved at approval")
	}

	target, err := models.GetInvoice(f.ctx, invoice.ID)
	if err != nil {
		t.Fatalf("reload target: %v", err)
	}
	if target.DueAmount.String() != "70" {
		t.Fatalf("target due = %s, want 70", target.DueAmount)
	}
	source, err := models.GetInvoice(f.ctx, credit.ID)
	if err != nil {
		t.Fatalf("reload credit: %v", err)
	}
	if !source.DueAmount.IsZero() || source.Status != models.DocumentStatusPaid {
		t.Fatalf("credit after apply: due=%s status=%s, want 0 Paid", source.DueAmount, source.Status)
	}
}

func TestVendorPaymentSettlesBill(t *testing.T) {
	f := setupFixture(t)
	vendorId := f.seedVendor(t, "FixIt Maintenance")

	bill, err := models.CreateBill(f.ctx, &models.NewBill{
		VendorId:  vendorId,
		IssueDate: date(2026, time.April, 1),
		Lines: []models.DocumentLineInput{
			{Description: "Repairs", Qty: dec("1"), UnitRate: dec("120"), AccountId: f.expense},
		},
	})
	if err != nil {
		t.Fatalf("create bill: %v", err)
	}
	if _, err := models.ApproveBill(f.ctx, bill.ID); err != nil {
		t.Fatalf("approve bill: %v", err)
	}

	payment, err := models.CreateVendorPayment(f.ctx, &models.NewVendorPayment{
		VendorId:         vendorId,
		DepositAccountId: f.bank,
		PaymentDate:      date(2026, time.April, 5),
		Amount:           dec("120"),
	})
	if err != nil {
		t.Fatalf("create vendor payment: %v", err)
	}
	if payment.PaymentNumber != "PMT-2026-1" {
		t.Fatalf("payment number = %s, want PMT-2026-1", payment.PaymentNumber)
	}

	apply, err := models.ApplyPayment(f.ctx, &models.NewApply{
		SourceKind: models.ApplySourceVendorPayment,
		SourceId:   payment.ID,
		TargetId:   bill.ID,
		Amount:     dec("120"),
		ApplyDate:  date(2026, time.April, 6),
	})
	if err != nil {
		t.Fatalf("apply vendor payment: %v", err)
	}

	header, err := models.GetLedgerHeader(f.ctx, apply.LedgerHeaderId)
	if err != nil {
		t.Fatalf("load posting: %v", err)
	}
	var controlDebit, clearingCredit bool
	for _, line := range header.Lines {
		if line.AccountId == f.payable && line.Debit.String() == "120" {
			controlDebit = true
		}
		if line.AccountId == f.unappliedPayments && line.Credit.String() == "120" {
			clearingCredit = true
		}
	}
	if !controlDebit || !clearingCredit {
		t.Fatalf("vendor apply posting wrong: %+v", header.Lines)
	}

	settled, err := models.GetBill(f.ctx, bill.ID)
	if err != nil {
		t.Fatalf("reload bill: %v", err)
	}
	if settled.Status != models.DocumentStatusPaid {
		t.Fatalf("bill status = %s, want Paid", settled.Status)
	}
}
