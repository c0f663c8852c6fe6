package pricing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriceLine(t *testing.T) {
	tests := []struct {
		name         string
		rule         Rule
		quantity     int
		wantFinal    int64
		wantDiscount int64
		wantTier     *DiscountTier
	}{
		{
			name:      "no tiers",
			rule:      Rule{Service: "C", UnitPrice: 15},
			quantity:  4,
			wantFinal: 60,
		},
		{
			name:      "below threshold",
			rule:      Rule{Service: "A", UnitPrice: 10, Tiers: []DiscountTier{{Threshold: 3, BundlePrice: 25}}},
			quantity:  2,
			wantFinal: 20,
		},
		{
			name:         "exact threshold",
			rule:         Rule{Service: "A", UnitPrice: 10, Tiers: []DiscountTier{{Threshold: 3, BundlePrice: 25}}},
			quantity:     3,
			wantFinal:    25,
			wantDiscount: 5,
			wantTier:     &DiscountTier{Threshold: 3, BundlePrice: 25},
		},
		{
			name:         "groups and remainder",
			rule:         Rule{Service: "A", UnitPrice: 10, Tiers: []DiscountTier{{Threshold: 3, BundlePrice: 25}}},
			quantity:     7,
			wantFinal:    60,
			wantDiscount: 10,
			wantTier:     &DiscountTier{Threshold: 3, BundlePrice: 25},
		},
		{
			// 4 units: the first tier qualifies and wins over the cheaper second one.
			name: "first qualifying tier wins",
			rule: Rule{Service: "X", UnitPrice: 10, Tiers: []DiscountTier{
				{Threshold: 2, BundlePrice: 15},
				{Threshold: 4, BundlePrice: 20},
			}},
			quantity:     4,
			wantFinal:    30,
			wantDiscount: 10,
			wantTier:     &DiscountTier{Threshold: 2, BundlePrice: 15},
		},
		{
			name: "unsorted tiers skip unmet thresholds",
			rule: Rule{Service: "X", UnitPrice: 10, Tiers: []DiscountTier{
				{Threshold: 5, BundlePrice: 30},
				{Threshold: 2, BundlePrice: 15},
			}},
			quantity:     3,
			wantFinal:    25,
			wantDiscount: 5,
			wantTier:     &DiscountTier{Threshold: 2, BundlePrice: 15},
		},
		{
			name:         "bundle dearer than units yields negative discount",
			rule:         Rule{Service: "X", UnitPrice: 5, Tiers: []DiscountTier{{Threshold: 2, BundlePrice: 12}}},
			quantity:     2,
			wantFinal:    12,
			wantDiscount: -2,
			wantTier:     &DiscountTier{Threshold: 2, BundlePrice: 12},
		},
		{
			name:         "free bundle",
			rule:         Rule{Service: "X", UnitPrice: 7, Tiers: []DiscountTier{{Threshold: 1, BundlePrice: 0}}},
			quantity:     3,
			wantFinal:    0,
			wantDiscount: 21,
			wantTier:     &DiscountTier{Threshold: 1, BundlePrice: 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PriceLine(tt.rule, tt.quantity)
			require.NoError(t, err)

			assert.Equal(t, tt.rule.Service, got.Service)
			assert.Equal(t, tt.quantity, got.Quantity)
			assert.Equal(t, tt.rule.UnitPrice*int64(tt.quantity), got.OriginalPrice)
			assert.Equal(t, tt.wantFinal, got.FinalPrice)
			assert.Equal(t, tt.wantDiscount, got.Discount)
			assert.Equal(t, tt.wantTier, got.Tier)
			assert.Equal(t, got.OriginalPrice-got.Discount, got.FinalPrice)
		})
	}
}

func TestPriceLine_Overflow(t *testing.T) {
	tests := []struct {
		name     string
		rule     Rule
		quantity int
	}{
		{
			name:     "original price",
			rule:     Rule{Service: "C", UnitPrice: 15},
			quantity: 1_000_000_000_000_000_000,
		},
		{
			name:     "max quantity",
			rule:     Rule{Service: "C", UnitPrice: 2},
			quantity: math.MaxInt,
		},
		{
			name:     "bundle groups",
			rule:     Rule{Service: "X", UnitPrice: 1, Tiers: []DiscountTier{{Threshold: 1, BundlePrice: math.MaxInt64}}},
			quantity: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := PriceLine(tt.rule, tt.quantity)
			require.ErrorIs(t, err, ErrPriceOverflow)

			var overflow *PriceOverflowError
			require.ErrorAs(t, err, &overflow)
			assert.Equal(t, tt.rule.Service, overflow.Service)
			assert.Equal(t, tt.quantity, overflow.Quantity)
		})
	}
}

func TestPriceLine_LargeButRepresentable(t *testing.T) {
	got, err := PriceLine(Rule{Service: "F", UnitPrice: 8, Tiers: []DiscountTier{{Threshold: 2, BundlePrice: 15}}}, 1<<40)
	require.NoError(t, err)

	assert.Equal(t, int64(8)<<40, got.OriginalPrice)
	assert.Equal(t, int64(15)<<39, got.FinalPrice)
	assert.Equal(t, got.OriginalPrice-got.Discount, got.FinalPrice)
}
