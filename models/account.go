package models

import (
	"context"
	"time"

	"github.com/propertybooks/accounting_backend/config"
	"github.com/propertybooks/accounting_backend/utils"
)

// Account is one GL account, identified within a tenant by its segment-built
// code. Accounts with postings are never hard-deleted, only disabled.
type Account struct {
	ID        int             `gorm:"primary_key" json:"id"`
	TenantId  string          `gorm:"index;not null" json:"tenant_id"`
	Code      string          `gorm:"index;size:100;not null" json:"code" binding:"required"`
	Name      string          `gorm:"index;size:255;not null" json:"name" binding:"required"`
	MainType  AccountMainType `gorm:"size:10;not null;default:'Expense';index" json:"main_type" binding:"required"`
	BankId    int             `gorm:"default:null" json:"bank_id"`
	FundId    int             `gorm:"default:null" json:"fund_id"`
	TaxId     int             `gorm:"default:null" json:"tax_id"`
	IsActive  *bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewAccount struct {
	Code     string          `json:"code" binding:"required"`
	Name     string          `json:"name" binding:"required"`
	MainType AccountMainType `json:"main_type" binding:"required"`
	BankId   int             `json:"bank_id"`
	FundId   int             `json:"fund_id"`
	TaxId    int             `json:"tax_id"`
}

// validate input for both create & update. (id = 0 for create)

func (input *NewAccount) validate(ctx context.Context, tenantId string, id int) error {
	if !input.MainType.IsValid() {
		return configErr("invalid account type %q", input.MainType)
	}
	if err := utils.ValidateUnique[Account](ctx, tenantId, "code", input.Code, id); err != nil {
		return err
	}
	if err := utils.ValidateUnique[Account](ctx, tenantId, "name", input.Name, id); err != nil {
		return err
	}
	if input.TaxId > 0 {
		if err := utils.ValidateResourceId[Tax](ctx, tenantId, input.TaxId); err != nil {
			return configErr("tax not found")
		}
	}
	return nil
}

func CreateAccount(ctx context.Context, input *NewAccount) (*Account, error) {
	tenantId, err := tenantFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx, tenantId, 0); err != nil {
		return nil, err
	}

	account := Account{
		TenantId: tenantId,
		Code:     input.Code,
		Name:     input.Name,
		MainType: input.MainType,
		BankId:   input.BankId,
		FundId:   input.FundId,
		TaxId:    input.TaxId,
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func UpdateAccount(ctx context.Context, id int, input *NewAccount) (*Account, error) {
	tenantId, err := tenantFromContext(ctx)
	if err != nil {
		return nil, err
	}
	account, err := utils.FetchModel[Account](ctx, tenantId, id)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx, tenantId, id); err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Model(account).Updates(map[string]interface{}{
		"Code":     input.Code,
		"Name":     input.Name,
		"MainType": input.MainType,
		"BankId":   input.BankId,
		"FundId":   input.FundId,
		"TaxId":    input.TaxId,
	}).Error
	if err != nil {
		return nil, err
	}
	return utils.FetchModel[Account](ctx, tenantId, id)
}

// DeactivateAccount disables an account. Accounts referenced by ledger lines
// cannot be removed, so disabling is the only retirement path.
func DeactivateAccount(ctx context.Context, id int) (*Account, error) {
	tenantId, err := tenantFromContext(ctx)
	if err != nil {
		return nil, err
	}
	account, err := utils.FetchModel[Account](ctx, tenantId, id)
	if err != nil {
		return nil, err
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Model(account).Update("is_active", false).Error; err != nil {
		return nil, err
	}
	return utils.FetchModel[Account](ctx, tenantId, id)
}

func GetAccount(ctx context.Context, id int) (*Account, error) {
	tenantId, err := tenantFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return utils.FetchModel[Account](ctx, tenantId, id)
}

// validatePostingAccount rejects postings to unknown or disabled accounts.
func validatePostingAccount(ctx context.Context, tenantId string, accountId int) error {
	count, err := utils.ResourceCountWhere[Account](ctx, tenantId, "id = ? AND is_active = ?", accountId, true)
	if err != nil {
		return err
	}
	if count <= 0 {
		return configErr("account %d not found or disabled", accountId)
	}
	return nil
}
