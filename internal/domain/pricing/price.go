package pricing

import (
	"math"
	"math/bits"
)

// PriceLine prices quantity units of a service under rule. The first tier
// whose threshold is met applies; later tiers are not considered even if
// they would be cheaper. It returns *PriceOverflowError when a price does
// not fit in int64.
func PriceLine(rule Rule, quantity int) (LineSummary, error) {
	overflow := &PriceOverflowError{Service: rule.Service, Quantity: quantity}

	original, ok := mulPrice(rule.UnitPrice, int64(quantity))
	if !ok {
		return LineSummary{}, overflow
	}
	line := LineSummary{
		Service:       rule.Service,
		Quantity:      quantity,
		UnitPrice:     rule.UnitPrice,
		OriginalPrice: original,
		FinalPrice:    original,
	}

	tier, ok := firstQualifyingTier(rule.Tiers, quantity)
	if !ok {
		return line, nil
	}

	final, ok := bundledPrice(tier, rule.UnitPrice, quantity)
	if !ok {
		return LineSummary{}, overflow
	}
	line.FinalPrice = final
	line.Discount = original - final
	line.Tier = &tier
	return line, nil
}

// firstQualifyingTier returns the first tier in list order with
// Threshold <= quantity.
func firstQualifyingTier(tiers []DiscountTier, quantity int) (DiscountTier, bool) {
	for _, t := range tiers {
		if t.Threshold <= quantity {
			return t, true
		}
	}
	return DiscountTier{}, false
}

// bundledPrice bills complete groups at the bundle price and the remainder
// at unit price.
func bundledPrice(tier DiscountTier, unitPrice int64, quantity int) (int64, bool) {
	groups, ok := mulPrice(tier.BundlePrice, int64(quantity/tier.Threshold))
	if !ok {
		return 0, false
	}
	rest, ok := mulPrice(unitPrice, int64(quantity%tier.Threshold))
	if !ok {
		return 0, false
	}
	return addPrice(groups, rest)
}

// mulPrice multiplies two non-negative amounts, reporting false on overflow.
func mulPrice(a, b int64) (int64, bool) {
	hi, lo := bits.Mul64(uint64(a), uint64(b))
	if hi != 0 || lo > math.MaxInt64 {
		return 0, false
	}
	return int64(lo), true
}

// addPrice adds two non-negative amounts, reporting false on overflow.
func addPrice(a, b int64) (int64, bool) {
	if a > math.MaxInt64-b {
		return 0, false
	}
	return a + b, true
}
