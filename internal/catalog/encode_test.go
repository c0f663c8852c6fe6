package catalog

import (
	"bytes"
	"testing"

	"github.com/go-faster/jx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/checkout-pricing/internal/domain/pricing"
)

func TestEncodeJSON(t *testing.T) {
	var e jx.Encoder
	EncodeJSON(&e, []pricing.Rule{
		{Service: "B", UnitPrice: 12, Tiers: []pricing.DiscountTier{{Threshold: 2, BundlePrice: 20}}},
		{Service: "C", UnitPrice: 15},
	})

	assert.JSONEq(t, `{"services":[
		{"service":"B","unitPrice":12,"discountTiers":[{"thresholdQuantity":2,"bundlePrice":20}]},
		{"service":"C","unitPrice":15,"discountTiers":[]}
	]}`, e.String())
}

func TestEncodeJSON_DecodesBack(t *testing.T) {
	var e jx.Encoder
	EncodeJSON(&e, pricing.DefaultRules())

	got, err := Decode(bytes.NewReader(e.Bytes()), FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, pricing.DefaultRules(), got)
}
