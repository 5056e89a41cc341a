package models

import (
	"context"
	"time"

	"github.com/propertybooks/accounting_backend/config"
	"github.com/propertybooks/accounting_backend/utils"
	"github.com/shopspring/decimal"
)

// Product is a catalog item (rent, utilities, service fees). Its default
// account and unit rate fill in document lines that omit them.
type Product struct {
	ID               int             `gorm:"primary_key" json:"id"`
	TenantId         string          `gorm:"index;not null" json:"tenant_id"`
	Name             string          `gorm:"index;size:255;not null" json:"name" binding:"required"`
	SalesAccountId   int             `gorm:"default:null" json:"sales_account_id"`
	ExpenseAccountId int             `gorm:"default:null" json:"expense_account_id"`
	UnitRate         decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_rate"`
	TaxGroupId       int             `gorm:"default:null" json:"tax_group_id"`
	IsActive         *bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt        time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewProduct struct {
	Name             string          `json:"name" binding:"required"`
	SalesAccountId   int             `json:"sales_account_id"`
	ExpenseAccountId int             `json:"expense_account_id"`
	UnitRate         decimal.Decimal `json:"unit_rate"`
	TaxGroupId       int             `json:"tax_group_id"`
}

func (input *NewProduct) validate(ctx context.Context, tenantId string, id int) error {
	if err := utils.ValidateUnique[Product](ctx, tenantId, "name", input.Name, id); err != nil {
		return err
	}
	if input.SalesAccountId > 0 {
		if err := utils.ValidateResourceId[Account](ctx, tenantId, input.SalesAccountId); err != nil {
			return configErr("sales account not found")
		}
	}
	if input.ExpenseAccountId > 0 {
		if err := utils.ValidateResourceId[Account](ctx, tenantId, input.ExpenseAccountId); err != nil {
			return configErr("expense account not found")
		}
	}
	if input.TaxGroupId > 0 {
		if err := utils.ValidateResourceId[TaxGroup](ctx, tenantId, input.TaxGroupId); err != nil {
			return configErr("tax group not found")
		}
	}
	return nil
}

func CreateProduct(ctx context.Context, input *NewProduct) (*Product, error) {
	tenantId, err := tenantFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx, tenantId, 0); err != nil {
		return nil, err
	}

	product := Product{
		TenantId:         tenantId,
		Name:             input.Name,
		SalesAccountId:   input.SalesAccountId,
		ExpenseAccountId: input.ExpenseAccountId,
		UnitRate:         input.UnitRate,
		TaxGroupId:       input.TaxGroupId,
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func GetProduct(ctx context.Context, id int) (*Product, error) {
	tenantId, err := tenantFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return utils.FetchModel[Product](ctx, tenantId, id)
}
