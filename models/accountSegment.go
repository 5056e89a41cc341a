package models

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/propertybooks/accounting_backend/config"
	"github.com/propertybooks/accounting_backend/utils"
)

// SegmentPosition declares one positional component of the composite account
// code (e.g. property, then natural account, then sub-account) with a fixed
// value length.
type SegmentPosition struct {
	ID         int       `gorm:"primary_key" json:"id"`
	TenantId   string    `gorm:"index;not null" json:"tenant_id"`
	Position   int       `gorm:"index;not null" json:"position" binding:"required"`
	Name       string    `gorm:"size:100;not null" json:"name" binding:"required"`
	Length     int       `gorm:"not null" json:"length" binding:"required"`
	IsRequired *bool     `gorm:"not null;default:true" json:"is_required"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// SegmentValue is one allowed value for a position.
type SegmentValue struct {
	ID        int       `gorm:"primary_key" json:"id"`
	TenantId  string    `gorm:"index;not null" json:"tenant_id"`
	Position  int       `gorm:"index;not null" json:"position" binding:"required"`
	Value     string    `gorm:"size:50;not null" json:"value" binding:"required"`
	Name      string    `gorm:"size:255" json:"name"`
	IsActive  *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewSegmentPosition struct {
	Position   int    `json:"position" binding:"required"`
	Name       string `json:"name" binding:"required"`
	Length     int    `json:"length" binding:"required"`
	IsRequired *bool  `json:"is_required"`
}

type NewSegmentValue struct {
	Position int    `json:"position" binding:"required"`
	Value    string `json:"value" binding:"required"`
	Name     string `json:"name"`
}

type SegmentInput struct {
	Position int    `json:"position" binding:"required"`
	Value    string `json:"value" binding:"required"`
}

type ResolveAccountInput struct {
	Segments []SegmentInput  `json:"segments" binding:"required"`
	Name     string          `json:"name"`
	MainType AccountMainType `json:"main_type"`
}

func segmentErr(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", utils.ErrorInvalidSegment, fmt.Sprintf(format, args...))
}

func CreateSegmentPosition(ctx context.Context, input *NewSegmentPosition) (*SegmentPosition, error) {
	tenantId, err := tenantFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if input.Length <= 0 {
		return nil, configErr("segment length must be positive")
	}
	if err := utils.ValidateUnique[SegmentPosition](ctx, tenantId, "position", input.Position, 0); err != nil {
		return nil, err
	}

	required := input.IsRequired
	if required == nil {
		t := true
		required = &t
	}
	position := SegmentPosition{
		TenantId:   tenantId,
		Position:   input.Position,
		Name:       input.Name,
		Length:     input.Length,
		IsRequired: required,
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&position).Error; err != nil {
		return nil, err
	}
	return &position, nil
}

func CreateSegmentValue(ctx context.Context, input *NewSegmentValue) (*SegmentValue, error) {
	tenantId, err := tenantFromContext(ctx)
	if err != nil {
		return nil, err
	}
	count, err := utils.ResourceCountWhere[SegmentPosition](ctx, tenantId, "position = ?", input.Position)
	if err != nil {
		return nil, err
	}
	if count <= 0 {
		return nil, configErr("segment position %d not declared", input.Position)
	}
	count, err = utils.ResourceCountWhere[SegmentValue](ctx, tenantId, "position = ? AND value = ?", input.Position, input.Value)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, configErr("segment value %q already declared for position %d", input.Value, input.Position)
	}

	value := SegmentValue{
		TenantId: tenantId,
		Position: input.Position,
		Value:    input.Value,
		Name:     input.Name,
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&value).Error; err != nil {
		return nil, err
	}
	return &value, nil
}

// DeactivateSegmentValue retires a value; already-resolved accounts keep it.
func DeactivateSegmentValue(ctx context.Context, id int) (*SegmentValue, error) {
	tenantId, err := tenantFromContext(ctx)
	if err != nil {
		return nil, err
	}
	value, err := utils.FetchModel[SegmentValue](ctx, tenantId, id)
	if err != nil {
		return nil, err
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Model(value).Update("is_active", false).Error; err != nil {
		return nil, err
	}
	return utils.FetchModel[SegmentValue](ctx, tenantId, id)
}

// ResolveAccountSegments validates the ordered segment values and resolves or
// creates the backing account idempotently: the same segment combination
// always yields the same account.
func ResolveAccountSegments(ctx context.Context, input *ResolveAccountInput) (*Account, error) {
	tenantId, err := tenantFromContext(ctx)
	if err != nil {
		return nil, err
	}

	positions, err := utils.FetchAllModels[SegmentPosition](ctx, tenantId)
	if err != nil || len(positions) == 0 {
		return nil, configErr("no segment positions declared")
	}
	sort.Slice(positions, func(i, j int) bool { return positions[i].Position < positions[j].Position })

	byPosition := make(map[int]string, len(input.Segments))
	for _, seg := range input.Segments {
		if _, dup := byPosition[seg.Position]; dup {
			return nil, segmentErr("duplicate segment position %d", seg.Position)
		}
		byPosition[seg.Position] = seg.Value
	}

	parts := make([]string, 0, len(positions))
	names := make([]string, 0, len(positions))
	for _, pos := range positions {
		value, present := byPosition[pos.Position]
		delete(byPosition, pos.Position)
		if !present {
			if pos.IsRequired != nil && *pos.IsRequired {
				return nil, segmentErr("missing required segment %q (position %d)", pos.Name, pos.Position)
			}
			continue
		}
		if len(value) != pos.Length {
			return nil, segmentErr("segment %q value %q must be %d characters", pos.Name, value, pos.Length)
		}
		var segValue SegmentValue
		db := config.GetDB()
		err := db.WithContext(ctx).
			Where("tenant_id = ? AND position = ? AND value = ?", tenantId, pos.Position, value).
			First(&segValue).Error
		if err != nil {
			return nil, segmentErr("unknown value %q for segment %q", value, pos.Name)
		}
		if segValue.IsActive == nil || !*segValue.IsActive {
			return nil, segmentErr("value %q for segment %q is inactive", value, pos.Name)
		}
		parts = append(parts, value)
		if segValue.Name != "" {
			names = append(names, segValue.Name)
		}
	}
	if len(byPosition) > 0 {
		for position := range byPosition {
			return nil, segmentErr("segment position %d not declared", position)
		}
	}

	code := strings.Join(parts, "-")

	db := config.GetDB()
	var account Account
	err = db.WithContext(ctx).Where("tenant_id = ? AND code = ?", tenantId, code).First(&account).Error
	if err == nil {
		return &account, nil
	}

	mainType := input.MainType
	if mainType == "" {
		mainType = AccountMainTypeExpense
	}
	if !mainType.IsValid() {
		return nil, configErr("invalid account type %q", mainType)
	}
	name := input.Name
	if name == "" {
		name = strings.Join(names, " / ")
	}
	if name == "" {
		name = code
	}

	account = Account{
		TenantId: tenantId,
		Code:     code,
		Name:     name,
		MainType: mainType,
	}
	if cerr := db.WithContext(ctx).Create(&account).Error; cerr != nil {
		// a concurrent resolver may have created the same combination
		if rerr := db.WithContext(ctx).Where("tenant_id = ? AND code = ?", tenantId, code).First(&account).Error; rerr != nil {
			return nil, cerr
		}
	}
	return &account, nil
}
