package models

import (
	"context"
	"time"

	"github.com/propertybooks/accounting_backend/config"
	"github.com/propertybooks/accounting_backend/utils"
)

type Customer struct {
	ID           int          `gorm:"primary_key" json:"id"`
	TenantId     string       `gorm:"index;not null" json:"tenant_id"`
	Name         string       `gorm:"index;size:255;not null" json:"name" binding:"required"`
	Email        string       `gorm:"size:255" json:"email"`
	PaymentTerms PaymentTerms `gorm:"size:30;default:'DueOnReceipt'" json:"payment_terms"`
	CustomDays   int          `json:"custom_days"`
	IsActive     *bool        `gorm:"not null;default:true" json:"is_active"`
	CreatedAt    time.Time    `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time    `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewCustomer struct {
	Name         string       `json:"name" binding:"required"`
	Email        string       `json:"email"`
	PaymentTerms PaymentTerms `json:"payment_terms"`
	CustomDays   int          `json:"custom_days"`
}

func CreateCustomer(ctx context.Context, input *NewCustomer) (*Customer, error) {
	tenantId, err := tenantFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := utils.ValidateUnique[Customer](ctx, tenantId, "name", input.Name, 0); err != nil {
		return nil, err
	}

	terms := input.PaymentTerms
	if terms == "" {
		terms = PaymentTermsDueOnReceipt
	}
	customer := Customer{
		TenantId:     tenantId,
		Name:         input.Name,
		Email:        input.Email,
		PaymentTerms: terms,
		CustomDays:   input.CustomDays,
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&customer).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

func GetCustomer(ctx context.Context, id int) (*Customer, error) {
	tenantId, err := tenantFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return utils.FetchModel[Customer](ctx, tenantId, id)
}
