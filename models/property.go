package models

import (
	"context"
	"time"

	"github.com/propertybooks/accounting_backend/config"
	"github.com/propertybooks/accounting_backend/utils"
)

// Property is a managed building or estate. Documents and payments may be
// tagged with one for per-property reporting.
type Property struct {
	ID        int       `gorm:"primary_key" json:"id"`
	TenantId  string    `gorm:"index;not null" json:"tenant_id"`
	Code      string    `gorm:"index;size:50;not null" json:"code" binding:"required"`
	Name      string    `gorm:"size:255;not null" json:"name" binding:"required"`
	IsActive  *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewProperty struct {
	Code string `json:"code" binding:"required"`
	Name string `json:"name" binding:"required"`
}

func CreateProperty(ctx context.Context, input *NewProperty) (*Property, error) {
	tenantId, err := tenantFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := utils.ValidateUnique[Property](ctx, tenantId, "code", input.Code, 0); err != nil {
		return nil, err
	}

	property := Property{
		TenantId: tenantId,
		Code:     input.Code,
		Name:     input.Name,
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&property).Error; err != nil {
		return nil, err
	}
	return &property, nil
}

func GetProperty(ctx context.Context, id int) (*Property, error) {
	tenantId, err := tenantFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return utils.FetchModel[Property](ctx, tenantId, id)
}
