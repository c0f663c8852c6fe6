package catalog

import (
	"github.com/go-faster/jx"

	"github.com/xenking/checkout-pricing/internal/domain/pricing"
)

// EncodeJSON writes rules in the JSON catalog file format.
func EncodeJSON(e *jx.Encoder, rules []pricing.Rule) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("services", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, r := range rules {
					encodeRule(e, r)
				}
			})
		})
	})
}

func encodeRule(e *jx.Encoder, r pricing.Rule) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("service", func(e *jx.Encoder) { e.Str(string(r.Service)) })
		e.Field("unitPrice", func(e *jx.Encoder) { e.Int64(r.UnitPrice) })
		e.Field("discountTiers", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, t := range r.Tiers {
					EncodeTier(e, t)
				}
			})
		})
	})
}

// EncodeTier writes a single discount tier object.
func EncodeTier(e *jx.Encoder, t pricing.DiscountTier) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("thresholdQuantity", func(e *jx.Encoder) { e.Int(t.Threshold) })
		e.Field("bundlePrice", func(e *jx.Encoder) { e.Int64(t.BundlePrice) })
	})
}
