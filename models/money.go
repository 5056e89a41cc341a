package models

import (
	"fmt"

	"github.com/propertybooks/accounting_backend/utils"
	"github.com/shopspring/decimal"
)

// Two scales are used throughout the core: GeneralScale for GL amounts
// (mirrors the decimal(20,4) ledger columns) and PaymentScale for
// customer-facing due/paid amounts.
const (
	GeneralScale int32 = 4
	PaymentScale int32 = 2
)

// Money is a fixed-precision monetary value with a declared scale.
// All rounding in the core is half-up (decimal.Round semantics); the policy
// is pinned here so tax and allocation math stay consistent.
//
// Arithmetic between two Money values requires equal scale; conversions are
// explicit via Rescale.
type Money struct {
	amount decimal.Decimal
	scale  int32
}

func NewMoney(d decimal.Decimal, scale int32) Money {
	return Money{amount: d.Round(scale), scale: scale}
}

func NewMoneyFromString(s string, scale int32) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, err
	}
	return NewMoney(d, scale), nil
}

func ZeroMoney(scale int32) Money {
	return Money{amount: decimal.Zero, scale: scale}
}

func (m Money) Decimal() decimal.Decimal { return m.amount }
func (m Money) Scale() int32             { return m.scale }
func (m Money) IsZero() bool             { return m.amount.IsZero() }
func (m Money) IsNegative() bool         { return m.amount.IsNegative() }
func (m Money) IsPositive() bool         { return m.amount.IsPositive() }

func (m Money) checkScale(other Money) error {
	if m.scale != other.scale {
		return fmt.Errorf("%w: scale %d vs %d", utils.ErrorPrecisionLoss, m.scale, other.scale)
	}
	return nil
}

func (m Money) Add(other Money) (Money, error) {
	if err := m.checkScale(other); err != nil {
		return Money{}, err
	}
	return Money{amount: m.amount.Add(other.amount), scale: m.scale}, nil
}

func (m Money) Sub(other Money) (Money, error) {
	if err := m.checkScale(other); err != nil {
		return Money{}, err
	}
	return Money{amount: m.amount.Sub(other.amount), scale: m.scale}, nil
}

// Mul multiplies by a quantity and rounds half-up back to the scale.
func (m Money) Mul(qty decimal.Decimal) Money {
	return Money{amount: m.amount.Mul(qty).Round(m.scale), scale: m.scale}
}

// Div fails with ErrorPrecisionLoss when the quotient does not terminate at
// the scale. Callers that accept rounding use DivRound.
func (m Money) Div(divisor decimal.Decimal) (Money, error) {
	if divisor.IsZero() {
		return Money{}, fmt.Errorf("%w: division by zero", utils.ErrorPrecisionLoss)
	}
	q := m.amount.DivRound(divisor, m.scale)
	if !q.Mul(divisor).Round(m.scale).Equal(m.amount) {
		return Money{}, fmt.Errorf("%w: %s / %s does not terminate at scale %d",
			utils.ErrorPrecisionLoss, m.amount, divisor, m.scale)
	}
	return Money{amount: q, scale: m.scale}, nil
}

// DivRound divides and rounds half-up to the scale.
func (m Money) DivRound(divisor decimal.Decimal) (Money, error) {
	if divisor.IsZero() {
		return Money{}, fmt.Errorf("%w: division by zero", utils.ErrorPrecisionLoss)
	}
	return Money{amount: m.amount.DivRound(divisor, m.scale), scale: m.scale}, nil
}

// Rescale converts to another scale, rounding half-up.
func (m Money) Rescale(scale int32) Money {
	return Money{amount: m.amount.Round(scale), scale: scale}
}

func (m Money) Cmp(other Money) (int, error) {
	if err := m.checkScale(other); err != nil {
		return 0, err
	}
	return m.amount.Cmp(other.amount), nil
}

// Allocate distributes the value across len(ratios) shares proportionally.
// Rounding drift is corrected on the last non-zero-ratio share so the parts
// always sum exactly to the whole. Sign of the total flows through unchanged.
func (m Money) Allocate(ratios []decimal.Decimal) ([]Money, error) {
	if len(ratios) == 0 {
		return nil, fmt.Errorf("%w: allocate needs at least one ratio", utils.ErrorConfiguration)
	}
	sum := decimal.Zero
	last := -1
	for i, r := range ratios {
		if r.IsNegative() {
			return nil, fmt.Errorf("%w: negative allocation ratio", utils.ErrorConfiguration)
		}
		if r.IsPositive() {
			last = i
		}
		sum = sum.Add(r)
	}
	if !sum.IsPositive() {
		return nil, fmt.Errorf("%w: allocation ratios sum to zero", utils.ErrorConfiguration)
	}

	parts := make([]Money, len(ratios))
	remainder := m.amount
	for i, r := range ratios {
		if i == last {
			parts[i] = Money{amount: remainder, scale: m.scale}
			remainder = decimal.Zero
			continue
		}
		share := m.amount.Mul(r).DivRound(sum, m.scale)
		parts[i] = Money{amount: share, scale: m.scale}
		remainder = remainder.Sub(share)
	}
	return parts, nil
}

func (m Money) String() string {
	return m.amount.StringFixed(m.scale)
}
