package models

import (
	"context"
	"time"

	"github.com/propertybooks/accounting_backend/utils"
	"github.com/shopspring/decimal"
)

// documentSide selects which product default account a line falls back to.
type documentSide int

const (
	sideSales documentSide = iota
	sidePurchase
)

// DocumentLineInput is one line of an invoice or bill. UnitRate is signed;
// negative rates (rebates) flow through totals and tax unchanged.
type DocumentLineInput struct {
	ProductId   int             `json:"product_id"`
	Description string          `json:"description"`
	Qty         decimal.Decimal `json:"qty"`
	UnitRate    decimal.Decimal `json:"unit_rate"`
	AccountId   int             `json:"account_id"`
	TaxGroupId  int             `json:"tax_group_id"`
}

type computedLine struct {
	ProductId   int
	Description string
	Qty         decimal.Decimal
	UnitRate    decimal.Decimal
	AccountId   int
	TaxGroupId  int
	Amount      Money
	TaxAmount   Money
}

type documentTotals struct {
	AmountBeforeTaxes Money
	TaxAmount         Money
	TotalAmount       Money
}

// computeDocumentLines applies product defaults, prices each line and runs
// the tax engine per line. The redundant total columns on documents are
// always recomputed from this, never trusted from the caller.
func computeDocumentLines(ctx context.Context, tenantId string, issueDate time.Time, side documentSide, inputs []DocumentLineInput) ([]computedLine, documentTotals, error) {
	totals := documentTotals{
		AmountBeforeTaxes: ZeroMoney(GeneralScale),
		TaxAmount:         ZeroMoney(GeneralScale),
		TotalAmount:       ZeroMoney(GeneralScale),
	}
	lines := make([]computedLine, 0, len(inputs))

	for _, input := range inputs {
		line := computedLine{
			ProductId:   input.ProductId,
			Description: input.Description,
			Qty:         input.Qty,
			UnitRate:    input.UnitRate,
			AccountId:   input.AccountId,
			TaxGroupId:  input.TaxGroupId,
		}
		if line.Qty.IsZero() {
			line.Qty = decimal.NewFromInt(1)
		}

		if input.ProductId > 0 {
			product, err := utils.FetchModel[Product](ctx, tenantId, input.ProductId)
			if err != nil {
				return nil, totals, configErr("product %d not found", input.ProductId)
			}
			if line.AccountId == 0 {
				if side == sideSales {
					line.AccountId = product.SalesAccountId
				} else {
					line.AccountId = product.ExpenseAccountId
				}
			}
			if line.UnitRate.IsZero() {
				line.UnitRate = product.UnitRate
			}
			if line.TaxGroupId == 0 {
				line.TaxGroupId = product.TaxGroupId
			}
			if line.Description == "" {
				line.Description = product.Name
			}
		}
		if line.AccountId == 0 {
			return nil, totals, configErr("document line has no account")
		}
		if err := utils.ValidateResourceId[Account](ctx, tenantId, line.AccountId); err != nil {
			return nil, totals, configErr("account %d not found", line.AccountId)
		}

		line.Amount = NewMoney(line.Qty.Mul(line.UnitRate), GeneralScale)
		line.TaxAmount = ZeroMoney(GeneralScale)
		if line.TaxGroupId > 0 {
			taxes, err := ResolveTaxes(ctx, line.TaxGroupId, issueDate)
			if err != nil {
				return nil, totals, err
			}
			line.TaxAmount, err = ComputeLineTax(line.Amount, taxes)
			if err != nil {
				return nil, totals, err
			}
		}

		var err error
		if totals.AmountBeforeTaxes, err = totals.AmountBeforeTaxes.Add(line.Amount); err != nil {
			return nil, totals, err
		}
		if totals.TaxAmount, err = totals.TaxAmount.Add(line.TaxAmount); err != nil {
			return nil, totals, err
		}
		lines = append(lines, line)
	}

	var err error
	totals.TotalAmount, err = totals.AmountBeforeTaxes.Add(totals.TaxAmount)
	if err != nil {
		return nil, totals, err
	}
	return lines, totals, nil
}

// buildDocumentPostingLines produces the balanced entry for document
// approval: control account against per-line accounts plus tax. Sales
// documents debit the control account, purchase documents credit it, and
// Credit documents post with orientation flipped so they net against the
// counterparty balance. Zero amounts are skipped.
func buildDocumentPostingLines(side documentSide, kind DocumentKind, controlAccountId int, taxAccountId int, lines []computedLine, totals documentTotals, description string) []NewLedgerLine {
	controlSide := signedDebitLine
	detailSide := signedCreditLine
	if side == sidePurchase {
		controlSide, detailSide = detailSide, controlSide
	}
	if kind == DocumentKindCredit {
		controlSide, detailSide = detailSide, controlSide
	}

	entries := make([]NewLedgerLine, 0, len(lines)+2)
	if !totals.TotalAmount.IsZero() {
		entries = append(entries, controlSide(controlAccountId, description, totals.TotalAmount))
	}
	for _, line := range lines {
		if line.Amount.IsZero() {
			continue
		}
		entries = append(entries, detailSide(line.AccountId, line.Description, line.Amount))
	}
	if !totals.TaxAmount.IsZero() {
		entries = append(entries, detailSide(taxAccountId, "Tax on "+description, totals.TaxAmount))
	}
	return entries
}

// deriveDocumentStatus keeps document status consistent with due_amount:
// Paid at or below zero, PartialPaid when partly settled, Approved otherwise.
func deriveDocumentStatus(due decimal.Decimal, total decimal.Decimal) DocumentStatus {
	if due.Sign() <= 0 {
		return DocumentStatusPaid
	}
	if due.LessThan(total.Round(PaymentScale)) {
		return DocumentStatusPartialPaid
	}
	return DocumentStatusApproved
}
