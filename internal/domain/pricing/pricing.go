// Package pricing implements the checkout pricing engine: an immutable
// catalog of per-service unit prices with volume discount tiers, and a
// per-session cart that prices scanned services against it.
package pricing

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
)

// ServiceCode identifies a purchasable service. Codes compare by exact match.
type ServiceCode string

// DiscountTier bills every complete group of Threshold units at BundlePrice.
// Units left over after grouping are billed at the unit price.
type DiscountTier struct {
	Threshold   int
	BundlePrice int64
}

// Rule is the catalog entry for a single service. Tiers are checked in
// declaration order and the first one whose threshold is met applies.
type Rule struct {
	Service   ServiceCode
	UnitPrice int64
	Tiers     []DiscountTier
}

// Line is a single cart entry.
type Line struct {
	Service  ServiceCode
	Quantity int
}

// LineSummary is the priced form of a Line.
type LineSummary struct {
	Service       ServiceCode
	Quantity      int
	UnitPrice     int64
	OriginalPrice int64
	FinalPrice    int64
	Discount      int64
	// Tier is the applied discount tier, nil when the line is billed at unit price.
	Tier *DiscountTier
}

// Summary holds checkout totals. FinalPrice always equals
// OriginalPrice - TotalDiscount.
type Summary struct {
	OriginalPrice int64
	FinalPrice    int64
	TotalDiscount int64
	Lines         []LineSummary
}

// Source provides catalog rules from some backing store.
type Source interface {
	Load(ctx context.Context) ([]Rule, error)
}

// StaticSource serves a fixed list of rules.
type StaticSource []Rule

// Load returns the rules as given.
func (s StaticSource) Load(context.Context) ([]Rule, error) {
	return s, nil
}

var (
	// ErrUnknownService matches any *UnknownServiceError.
	ErrUnknownService = errors.New("unknown service")
	// ErrInvalidConfiguration matches any *ConfigurationError.
	ErrInvalidConfiguration = errors.New("invalid pricing configuration")
	// ErrInvalidQuantity is returned by Checkout.Add for quantities below 1.
	ErrInvalidQuantity = errors.New("quantity must be greater than 0")
	// ErrQuantityOverflow is returned when a line quantity would exceed math.MaxInt.
	ErrQuantityOverflow = errors.New("quantity overflow")
	// ErrPriceOverflow matches any *PriceOverflowError.
	ErrPriceOverflow = errors.New("price overflow")
)

// UnknownServiceError indicates a scanned service has no catalog rule.
type UnknownServiceError struct {
	Service ServiceCode
}

func (e *UnknownServiceError) Error() string {
	return fmt.Sprintf("service %q not found in catalog", string(e.Service))
}

// Is reports whether target is ErrUnknownService.
func (e *UnknownServiceError) Is(target error) bool {
	return target == ErrUnknownService
}

// PriceOverflowError indicates a line or checkout total that does not fit
// in int64 minor units. Service is empty when only the checkout total
// overflows.
type PriceOverflowError struct {
	Service  ServiceCode
	Quantity int
}

func (e *PriceOverflowError) Error() string {
	if e.Service == "" {
		return "checkout total exceeds the representable price range"
	}
	return fmt.Sprintf("price of %d x %q exceeds the representable price range", e.Quantity, string(e.Service))
}

// Is reports whether target is ErrPriceOverflow.
func (e *PriceOverflowError) Is(target error) bool {
	return target == ErrPriceOverflow
}

// ConfigurationError indicates an invalid catalog rule.
type ConfigurationError struct {
	Service ServiceCode
	Reason  string
}

func (e *ConfigurationError) Error() string {
	if e.Service == "" {
		return "invalid catalog: " + e.Reason
	}
	return fmt.Sprintf("invalid catalog rule for service %q: %s", string(e.Service), e.Reason)
}

// Is reports whether target is ErrInvalidConfiguration.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrInvalidConfiguration
}

// DefaultRules returns the reference catalog.
func DefaultRules() []Rule {
	return []Rule{
		{Service: "A", UnitPrice: 10, Tiers: []DiscountTier{{Threshold: 3, BundlePrice: 25}}},
		{Service: "B", UnitPrice: 12, Tiers: []DiscountTier{{Threshold: 2, BundlePrice: 20}}},
		{Service: "C", UnitPrice: 15},
		{Service: "D", UnitPrice: 25},
		{Service: "F", UnitPrice: 8, Tiers: []DiscountTier{{Threshold: 2, BundlePrice: 15}}},
	}
}
