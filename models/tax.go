package models

import (
	"context"
	"time"

	"github.com/propertybooks/accounting_backend/config"
	"github.com/propertybooks/accounting_backend/utils"
	"github.com/shopspring/decimal"
)

// Tax is a single rate with a validity window. A tax outside its window is
// simply not applied; resolution never fails because nothing is active.
type Tax struct {
	ID        int             `gorm:"primary_key" json:"id"`
	TenantId  string          `gorm:"index;not null" json:"tenant_id"`
	Name      string          `gorm:"size:100;not null" json:"name" binding:"required"`
	Rate      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"rate" binding:"required"`
	ValidFrom *time.Time      `json:"valid_from"`
	ValidTo   *time.Time      `json:"valid_to"`
	IsActive  *bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// TaxGroup aggregates taxes; each member contributes an independent,
// additive tax line (no compounding).
type TaxGroup struct {
	ID        int       `gorm:"primary_key" json:"id"`
	TenantId  string    `gorm:"index;not null" json:"tenant_id"`
	Name      string    `gorm:"size:100;not null" json:"name" binding:"required"`
	IsActive  *bool     `gorm:"not null;default:true" json:"is_active"`
	Taxes     []Tax     `gorm:"many2many:group_taxes" json:"taxes"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewTax struct {
	Name      string          `json:"name" binding:"required"`
	Rate      decimal.Decimal `json:"rate" binding:"required"`
	ValidFrom *time.Time      `json:"valid_from"`
	ValidTo   *time.Time      `json:"valid_to"`
}

type NewTaxGroup struct {
	Name   string `json:"name" binding:"required"`
	TaxIds []int  `json:"tax_ids" binding:"required"`
}

func (t *Tax) activeOn(asOf time.Time) bool {
	if t.IsActive == nil || !*t.IsActive {
		return false
	}
	if t.ValidFrom != nil && asOf.Before(*t.ValidFrom) {
		return false
	}
	if t.ValidTo != nil && asOf.After(*t.ValidTo) {
		return false
	}
	return true
}

// validate input for both create & update. (id = 0 for create)

func (input *NewTax) validate(ctx context.Context, tenantId string, id int) error {
	if err := utils.ValidateUnique[Tax](ctx, tenantId, "name", input.Name, id); err != nil {
		return err
	}
	if input.ValidFrom != nil && input.ValidTo != nil && input.ValidTo.Before(*input.ValidFrom) {
		return configErr("tax validity window is inverted")
	}
	return nil
}

func CreateTax(ctx context.Context, input *NewTax) (*Tax, error) {
	tenantId, err := tenantFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx, tenantId, 0); err != nil {
		return nil, err
	}

	tax := Tax{
		TenantId:  tenantId,
		Name:      input.Name,
		Rate:      input.Rate,
		ValidFrom: input.ValidFrom,
		ValidTo:   input.ValidTo,
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&tax).Error; err != nil {
		return nil, err
	}
	return &tax, nil
}

func UpdateTax(ctx context.Context, id int, input *NewTax) (*Tax, error) {
	tenantId, err := tenantFromContext(ctx)
	if err != nil {
		return nil, err
	}
	tax, err := utils.FetchModel[Tax](ctx, tenantId, id)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx, tenantId, id); err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Model(tax).Updates(map[string]interface{}{
		"Name":      input.Name,
		"Rate":      input.Rate,
		"ValidFrom": input.ValidFrom,
		"ValidTo":   input.ValidTo,
	}).Error
	if err != nil {
		return nil, err
	}
	return utils.FetchModel[Tax](ctx, tenantId, id)
}

// DeactivateTax retires a rate without touching documents that already used
// it. Taxes are never hard-deleted once referenced.
func DeactivateTax(ctx context.Context, id int) (*Tax, error) {
	tenantId, err := tenantFromContext(ctx)
	if err != nil {
		return nil, err
	}
	tax, err := utils.FetchModel[Tax](ctx, tenantId, id)
	if err != nil {
		return nil, err
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Model(tax).Update("is_active", false).Error; err != nil {
		return nil, err
	}
	return utils.FetchModel[Tax](ctx, tenantId, id)
}

func (input *NewTaxGroup) validate(ctx context.Context, tenantId string, id int) error {
	if err := utils.ValidateUnique[TaxGroup](ctx, tenantId, "name", input.Name, id); err != nil {
		return err
	}
	if len(input.TaxIds) == 0 {
		return configErr("tax group needs at least one tax")
	}
	if err := utils.ValidateResourcesId[Tax, int](ctx, tenantId, input.TaxIds); err != nil {
		return configErr("tax not found")
	}
	return nil
}

func CreateTaxGroup(ctx context.Context, input *NewTaxGroup) (*TaxGroup, error) {
	tenantId, err := tenantFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx, tenantId, 0); err != nil {
		return nil, err
	}

	taxes := make([]Tax, 0, len(input.TaxIds))
	for _, taxId := range input.TaxIds {
		taxes = append(taxes, Tax{ID: taxId})
	}
	group := TaxGroup{
		TenantId: tenantId,
		Name:     input.Name,
		Taxes:    taxes,
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&group).Error; err != nil {
		return nil, err
	}
	return utils.FetchModel[TaxGroup](ctx, tenantId, group.ID, "Taxes")
}

func GetTaxGroup(ctx context.Context, id int) (*TaxGroup, error) {
	tenantId, err := tenantFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return utils.FetchModel[TaxGroup](ctx, tenantId, id, "Taxes")
}

// ResolveTaxes returns the group's taxes active on asOf, in member order.
// Unknown group is a configuration error; a date outside every validity
// window resolves to an empty set, not an error.
func ResolveTaxes(ctx context.Context, taxGroupId int, asOf time.Time) ([]*Tax, error) {
	tenantId, err := tenantFromContext(ctx)
	if err != nil {
		return nil, err
	}
	group, err := utils.FetchModel[TaxGroup](ctx, tenantId, taxGroupId, "Taxes")
	if err != nil {
		return nil, configErr("tax group %d not found", taxGroupId)
	}

	active := make([]*Tax, 0, len(group.Taxes))
	for i := range group.Taxes {
		tax := &group.Taxes[i]
		if tax.activeOn(asOf) {
			active = append(active, tax)
		}
	}
	return active, nil
}

// ComputeLineTax computes round(pretax * rate, scale) per tax and sums.
// Negative pretax amounts (rebates) propagate sign through unchanged.
func ComputeLineTax(pretax Money, taxes []*Tax) (Money, error) {
	oneHundred := decimal.NewFromInt(100)
	total := ZeroMoney(pretax.Scale())
	for _, tax := range taxes {
		amount := pretax.Mul(tax.Rate.Div(oneHundred))
		var err error
		total, err = total.Add(amount)
		if err != nil {
			return Money{}, err
		}
	}
	return total, nil
}
