package models

import (
	"context"
	"errors"
	"time"

	"github.com/propertybooks/accounting_backend/config"
	"github.com/propertybooks/accounting_backend/utils"
)

// Tenant is one property-management organization. The control-account links
// tell the posting engines where receivable/payable and tax balances live.
type Tenant struct {
	ID                         string    `gorm:"primary_key;size:64" json:"id"`
	Name                       string    `gorm:"size:255;not null" json:"name" binding:"required"`
	FiscalYearStartMonth       int       `gorm:"not null;default:1" json:"fiscal_year_start_month"`
	ReceivableAccountId        int       `json:"receivable_account_id"`
	PayableAccountId           int       `json:"payable_account_id"`
	SalesTaxAccountId          int       `json:"sales_tax_account_id"`
	PurchaseTaxAccountId       int       `json:"purchase_tax_account_id"`
	UnappliedReceiptsAccountId int       `json:"unapplied_receipts_account_id"`
	UnappliedPaymentsAccountId int       `json:"unapplied_payments_account_id"`
	IsActive                   *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt                  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt                  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func GetTenantById(ctx context.Context, id string) (*Tenant, error) {
	db := config.GetDB()
	var tenant Tenant
	if err := db.WithContext(ctx).Where("id = ?", id).First(&tenant).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &tenant, nil
}

func GetTenant(ctx context.Context) (*Tenant, error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, errors.New("tenant id is required")
	}
	return GetTenantById(ctx, tenantId)
}

// receivableControlAccount and friends fail ErrorConfiguration when the
// chart-of-accounts link is missing; postings must never guess an account.
func (t *Tenant) receivableControlAccount() (int, error) {
	if t.ReceivableAccountId == 0 {
		return 0, configErr("tenant has no receivable control account")
	}
	return t.ReceivableAccountId, nil
}

func (t *Tenant) payableControlAccount() (int, error) {
	if t.PayableAccountId == 0 {
		return 0, configErr("tenant has no payable control account")
	}
	return t.PayableAccountId, nil
}

func (t *Tenant) salesTaxAccount() (int, error) {
	if t.SalesTaxAccountId == 0 {
		return 0, configErr("tenant has no sales tax account")
	}
	return t.SalesTaxAccountId, nil
}

func (t *Tenant) purchaseTaxAccount() (int, error) {
	if t.PurchaseTaxAccountId == 0 {
		return 0, configErr("tenant has no purchase tax account")
	}
	return t.PurchaseTaxAccountId, nil
}

func (t *Tenant) unappliedReceiptsAccount() (int, error) {
	if t.UnappliedReceiptsAccountId == 0 {
		return 0, configErr("tenant has no unapplied receipts account")
	}
	return t.UnappliedReceiptsAccountId, nil
}

func (t *Tenant) unappliedPaymentsAccount() (int, error) {
	if t.UnappliedPaymentsAccountId == 0 {
		return 0, configErr("tenant has no unapplied payments account")
	}
	return t.UnappliedPaymentsAccountId, nil
}
