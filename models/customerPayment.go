package models

import (
	"context"
	"time"

	"github.com/propertybooks/accounting_backend/config"
	"github.com/propertybooks/accounting_backend/utils"
	"github.com/shopspring/decimal"
)

// CustomerPayment is a receipt from a customer. It is created against a
// deposit account and later applied to invoices; amount_left tracks the
// unapplied remainder at payment scale.
type CustomerPayment struct {
	ID               int             `gorm:"primary_key" json:"id"`
	TenantId         string          `gorm:"index;not null" json:"tenant_id"`
	CustomerId       int             `gorm:"index;not null" json:"customer_id" binding:"required"`
	DepositAccountId int             `gorm:"not null" json:"deposit_account_id" binding:"required"`
	PaymentNumber    string          `gorm:"size:255;not null" json:"payment_number"`
	SequenceNo       int64           `gorm:"not null" json:"sequence_no"`
	PaymentDate      time.Time       `gorm:"not null" json:"payment_date" binding:"required"`
	Amount           decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`
	AmountLeft       decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount_left"`
	Reference        string          `gorm:"size:255" json:"reference"`
	Notes            string          `gorm:"type:text" json:"notes"`
	LedgerHeaderId   int             `gorm:"default:null" json:"ledger_header_id"`
	CreatedAt        time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewCustomerPayment struct {
	CustomerId       int             `json:"customer_id" binding:"required"`
	DepositAccountId int             `json:"deposit_account_id" binding:"required"`
	PaymentDate      time.Time       `json:"payment_date" binding:"required"`
	Amount           decimal.Decimal `json:"amount" binding:"required"`
	Reference        string          `json:"reference"`
	Notes            string          `json:"notes"`
}

func (input *NewCustomerPayment) validate(ctx context.Context, tenantId string) error {
	if !input.Amount.IsPositive() {
		return configErr("payment amount must be positive")
	}
	if err := utils.ValidateResourceId[Customer](ctx, tenantId, input.CustomerId); err != nil {
		return configErr("customer not found")
	}
	return validatePostingAccount(ctx, tenantId, input.DepositAccountId)
}

// CreateCustomerPayment books the receipt: debit the deposit account, credit
// the unapplied receipts clearing account. Application later moves the
// applied portion from clearing to the receivable control account.
func CreateCustomerPayment(ctx context.Context, input *NewCustomerPayment) (*CustomerPayment, error) {
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
	clearingAccount, err := tenant.unappliedReceiptsAccount()
	if err != nil {
		return nil, err
	}
	amount := NewMoney(input.Amount, PaymentScale)

	seqNo, number, err := nextTransactionNumber(ctx, tenant, SequenceTypeCustomerPayment, input.PaymentDate)
	if err != nil {
		return nil, err
	}

	entries := []NewLedgerLine{
		signedDebitLine(input.DepositAccountId, "Receipt "+number, amount.Rescale(GeneralScale)),
		signedCreditLine(clearingAccount, "Receipt "+number, amount.Rescale(GeneralScale)),
	}

	db := config.GetDB()
	tx := db.Begin()
	header, err := postBalancedEntry(tx, ctx, tenant, input.PaymentDate, LedgerModuleBank, "Receipt "+number, entries)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	payment := CustomerPayment{
		TenantId:         tenantId,
		CustomerId:       input.CustomerId,
		DepositAccountId: input.DepositAccountId,
		PaymentNumber:    number,
		SequenceNo:       seqNo,
		PaymentDate:      input.PaymentDate,
		Amount:           amount.Decimal(),
		AmountLeft:       amount.Decimal(),
		Reference:        input.Reference,
		Notes:            input.Notes,
		LedgerHeaderId:   header.ID,
	}
	if err := tx.WithContext(ctx).Create(&payment).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func GetCustomerPayment(ctx context.Context, id int) (*CustomerPayment, error) {
	tenantId, err := tenantFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return utils.FetchModel[CustomerPayment](ctx, tenantId, id)
}
