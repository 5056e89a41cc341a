package models_test

import (
	"errors"
	"testing"

	"github.com/propertybooks/accounting_backend/models"
	"github.com/propertybooks/accounting_backend/utils"
)

func seedSegmentScheme(t *testing.T, f *fixture) {
	t.Helper()
	required := true
	optional := false
	positions := []models.NewSegmentPosition{
		{Position: 1, Name: "Property", Length: 3, IsRequired: &required},
		{Position: 2, Name: "Fund", Length: 2, IsRequired: &required},
		{Position: 3, Name: "Department", Length: 2, IsRequired: &optional},
	}
	for i := range positions {
		if _, err := models.CreateSegmentPosition(f.ctx, &positions[i]); err != nil {
			t.Fatalf("create position %d: %v", positions[i].Position, err)
		}
	}
	values := []models.NewSegmentValue{
		{Position: 1, Value: "100", Name: "Main Street"},
		{Position: 2, Value: "01", Name: "Operating"},
		{Position: 3, Value: "20", Name: "Maintenance"},
	}
	for i := range values {
		if _, err := models.CreateSegmentValue(f.ctx, &values[i]); err != nil {
			t.Fatalf("create value %s: %v", values[i].Value, err)
		}
	}
}

func TestResolveAccountSegmentsIsIdempotent(t *testing.T) {
	f := setupFixture(t)
	seedSegmentScheme(t, f)

	input := &models.ResolveAccountInput{
		Segments: []models.SegmentInput{
			{Position: 1, Value: "100"},
			{Position: 2, Value: "01"},
		},
	}
	first, err := models.ResolveAccountSegments(f.ctx, input)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if first.Code != "100-01" {
		t.Fatalf("code = %s, want 100-01", first.Code)
	}

	second, err := models.ResolveAccountSegments(f.ctx, input)
	if err != nil {
		t.Fatalf("resolve again: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("second resolve created a new account (%d != %d)", second.ID, first.ID)
	}
}

func TestResolveAccountSegmentsOptionalOmitted(t *testing.T) {
	f := setupFixture(t)
	seedSegmentScheme(t, f)

	account, err := models.ResolveAccountSegments(f.ctx, &models.ResolveAccountInput{
		Segments: []models.SegmentInput{
			{Position: 1, Value: "100"},
			{Position: 2, Value: "01"},
			{Position: 3, Value: "20"},
		},
	})
	if err != nil {
		t.Fatalf("resolve with optional: %v", err)
	}
	if account.Code != "100-01-20" {
		t.Fatalf("code = %s, want 100-01-20", account.Code)
	}
}

func TestResolveAccountSegmentsRejections(t *testing.T) {
	f := setupFixture(t)
	seedSegmentScheme(t, f)

	cases := []struct {
		name     string
		segments []models.SegmentInput
	}{
		{"missing required", []models.SegmentInput{{Position: 1, Value: "100"}}},
		{"wrong length", []models.SegmentInput{{Position: 1, Value: "1000"}, {Position: 2, Value: "01"}}},
		{"unknown value", []models.SegmentInput{{Position: 1, Value: "999"}, {Position: 2, Value: "01"}}},
		{"undeclared position", []models.SegmentInput{{Position: 1, Value: "100"}, {Position: 2, Value: "01"}, {Position: 9, Value: "77"}}},
		{"duplicate position", []models.SegmentInput{{Position: 1, Value: "100"}, {Position: 1, Value: "100"}, {Position: 2, Value: "01"}}},
	}
	for _, tc := range cases {
		_, err := models.ResolveAccountSegments(f.ctx, &models.ResolveAccountInput{Segments: tc.segments})
		if !errors.Is(err, utils.ErrorInvalidSegment) {
			t.Errorf("%s: got %v, want ErrorInvalidSegment", tc.name, err)
		}
	}
}

func TestResolveAccountSegmentsInactiveValue(t *testing.T) {
	f := setupFixture(t)
	seedSegmentScheme(t, f)

	var value models.SegmentValue
	if err := f.db.Where("tenant_id = ? AND position = ? AND value = ?", f.tenant.ID, 2, "01").
		First(&value).Error; err != nil {
		t.Fatalf("find segment value: %v", err)
	}
	if _, err := models.DeactivateSegmentValue(f.ctx, value.ID); err != nil {
		t.Fatalf("deactivate value: %v", err)
	}

	_, err := models.ResolveAccountSegments(f.ctx, &models.ResolveAccountInput{
		Segments: []models.SegmentInput{
			{Position: 1, Value: "100"},
			{Position: 2, Value: "01"},
		},
	})
	if !errors.Is(err, utils.ErrorInvalidSegment) {
		t.Fatalf("inactive value: got %v, want ErrorInvalidSegment", err)
	}
}
