package models

import (
	"context"
	"fmt"
	"time"

	"github.com/propertybooks/accounting_backend/config"
	"github.com/propertybooks/accounting_backend/utils"
	"gorm.io/gorm"
)

// FiscalPeriod is a tenant-scoped date range with an independent open flag
// per ledger module. A posting dated inside a period closed for its module is
// rejected; a date no period covers is treated as closed.
type FiscalPeriod struct {
	ID        int       `gorm:"primary_key" json:"id"`
	TenantId  string    `gorm:"index;not null" json:"tenant_id"`
	Name      string    `gorm:"size:100;not null" json:"name" binding:"required"`
	StartDate time.Time `gorm:"not null" json:"start_date" binding:"required"`
	EndDate   time.Time `gorm:"not null" json:"end_date" binding:"required"`
	GlOpen    *bool     `gorm:"not null;default:true" json:"gl_open"`
	ArOpen    *bool     `gorm:"not null;default:true" json:"ar_open"`
	ApOpen    *bool     `gorm:"not null;default:true" json:"ap_open"`
	BankOpen  *bool     `gorm:"not null;default:true" json:"bank_open"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewFiscalPeriod struct {
	Name      string    `json:"name" binding:"required"`
	StartDate time.Time `json:"start_date" binding:"required"`
	EndDate   time.Time `json:"end_date" binding:"required"`
}

func (p *FiscalPeriod) openFor(module LedgerModule) bool {
	var flag *bool
	switch module {
	case LedgerModuleGeneral:
		flag = p.GlOpen
	case LedgerModuleReceivables:
		flag = p.ArOpen
	case LedgerModulePayables:
		flag = p.ApOpen
	case LedgerModuleBank:
		flag = p.BankOpen
	default:
		return false
	}
	return flag != nil && *flag
}

// validatePeriodOpen runs against the caller's transaction so the posting
// engines can re-check immediately before commit (a period closing while a
// post is in flight is resolved by this second check).
func validatePeriodOpen(tx *gorm.DB, ctx context.Context, tenantId string, date time.Time, module LedgerModule) error {
	var period FiscalPeriod
	err := tx.WithContext(ctx).
		Where("tenant_id = ? AND start_date <= ? AND end_date >= ?", tenantId, date, date).
		First(&period).Error
	if err != nil {
		return fmt.Errorf("%w: no fiscal period covers %s", utils.ErrorPeriodClosed, date.Format("2006-01-02"))
	}
	if !period.openFor(module) {
		return fmt.Errorf("%w: period %s is closed for %s (date %s)",
			utils.ErrorPeriodClosed, period.Name, module, date.Format("2006-01-02"))
	}
	return nil
}

// ValidatePeriodOpen is the read-then-act check used before any durable
// write; posting re-checks inside its own transaction.
func ValidatePeriodOpen(ctx context.Context, tenantId string, date time.Time, module LedgerModule) error {
	return validatePeriodOpen(config.GetDB(), ctx, tenantId, date, module)
}

func (input *NewFiscalPeriod) validate(ctx context.Context, tenantId string, id int) error {
	if !input.EndDate.After(input.StartDate) {
		return configErr("fiscal period end date must be after start date")
	}
	if err := utils.ValidateUnique[FiscalPeriod](ctx, tenantId, "name", input.Name, id); err != nil {
		return err
	}
	// overlapping periods would make the open/closed check ambiguous
	var cond string
	var args []interface{}
	if id > 0 {
		cond = "start_date <= ? AND end_date >= ? AND NOT id = ?"
		args = []interface{}{input.EndDate, input.StartDate, id}
	} else {
		cond = "start_date <= ? AND end_date >= ?"
		args = []interface{}{input.EndDate, input.StartDate}
	}
	count, err := utils.ResourceCountWhere[FiscalPeriod](ctx, tenantId, cond, args...)
	if err != nil {
		return err
	}
	if count > 0 {
		return configErr("fiscal period overlaps an existing period")
	}
	return nil
}

func CreateFiscalPeriod(ctx context.Context, input *NewFiscalPeriod) (*FiscalPeriod, error) {
	tenantId, err := tenantFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx, tenantId, 0); err != nil {
		return nil, err
	}

	period := FiscalPeriod{
		TenantId:  tenantId,
		Name:      input.Name,
		StartDate: input.StartDate,
		EndDate:   input.EndDate,
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&period).Error; err != nil {
		return nil, err
	}
	return &period, nil
}

// SetFiscalPeriodFlag opens or closes one module of a period. Closing never
// touches postings already made; it only gates new ones.
func SetFiscalPeriodFlag(ctx context.Context, id int, module LedgerModule, open bool) (*FiscalPeriod, error) {
	tenantId, err := tenantFromContext(ctx)
	if err != nil {
		return nil, err
	}
	period, err := utils.FetchModel[FiscalPeriod](ctx, tenantId, id)
	if err != nil {
		return nil, err
	}

	var column string
	switch module {
	case LedgerModuleGeneral:
		column = "gl_open"
	case LedgerModuleReceivables:
		column = "ar_open"
	case LedgerModulePayables:
		column = "ap_open"
	case LedgerModuleBank:
		column = "bank_open"
	default:
		return nil, configErr("invalid ledger module %q", module)
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(period).Update(column, open).Error; err != nil {
		return nil, err
	}
	return utils.FetchModel[FiscalPeriod](ctx, tenantId, id)
}

func GetFiscalPeriod(ctx context.Context, id int) (*FiscalPeriod, error) {
	tenantId, err := tenantFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return utils.FetchModel[FiscalPeriod](ctx, tenantId, id)
}
