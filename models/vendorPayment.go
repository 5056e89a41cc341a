package models

import (
	"context"
	"time"

	"github.com/propertybooks/accounting_backend/config"
	"github.com/propertybooks/accounting_backend/utils"
	"github.com/shopspring/decimal"
)

// VendorPayment is a disbursement to a vendor, the payable mirror of
// CustomerPayment.
type VendorPayment struct {
	ID               int             `gorm:"primary_key" json:"id"`
	TenantId         string          `gorm:"index;not null" json:"tenant_id"`
	VendorId         int             `gorm:"index;not null" json:"vendor_id" binding:"required"`
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

type NewVendorPayment struct {
	VendorId         int             `json:"vendor_id" binding:"required"`
	DepositAccountId int             `json:"deposit_account_id" binding:"required"`
	PaymentDate      time.Time       `json:"payment_date" binding:"required"`
	Amount           decimal.Decimal `json:"amount" binding:"required"`
	Reference        string          `json:"reference"`
	Notes            string          `json:"notes"`
}

func (input *NewVendorPayment) validate(ctx context.Context, tenantId string) error {
	if !input.Amount.IsPositive() {
		return configErr("payment amount must be positive")
	}
	if err := utils.ValidateResourceId[Vendor](ctx, tenantId, input.VendorId); err != nil {
		return configErr("vendor not found")
	}
	return validatePostingAccount(ctx, tenantId, input.DepositAccountId)
}

// CreateVendorPayment books the disbursement: credit the deposit account,
// debit the unapplied payments clearing account.
func CreateVendorPayment(ctx context.Context, input *NewVendorPayment) (*VendorPayment, error) {
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
	clearingAccount, err := tenant.unappliedPaymentsAccount()
	if err != nil {
		return nil, err
	}
	amount := NewMoney(input.Amount, PaymentScale)

	seqNo, number, err := nextTransactionNumber(ctx, tenant, SequenceTypeVendorPayment, input.PaymentDate)
	if err != nil {
		return nil, err
	}

	entries := []NewLedgerLine{
		signedDebitLine(clearingAccount, "Payment "+number, amount.Rescale(GeneralScale)),
		signedCreditLine(input.DepositAccountId, "Payment "+number, amount.Rescale(GeneralScale)),
	}

	db := config.GetDB()
	tx := db.Begin()
	header, err := postBalancedEntry(tx, ctx, tenant, input.PaymentDate, LedgerModuleBank, "Payment "+number, entries)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	payment := VendorPayment{
		TenantId:         tenantId,
		VendorId:         input.VendorId,
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

func GetVendorPayment(ctx context.Context, id int) (*VendorPayment, error) {
	tenantId, err := tenantFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return utils.FetchModel[VendorPayment](ctx, tenantId, id)
}
