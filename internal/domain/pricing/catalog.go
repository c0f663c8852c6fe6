package pricing

import (
	"context"
	"fmt"
	"math"

	"github.com/go-faster/errors"
)

// MaxThreshold is the largest accepted tier threshold, the range of the
// stored threshold column.
const MaxThreshold = math.MaxInt32

// Catalog is an immutable set of pricing rules keyed by service code.
// It is safe for concurrent use.
type Catalog struct {
	rules map[ServiceCode]Rule
	order []ServiceCode
}

// NewCatalog validates rules and builds a Catalog. It returns a
// *ConfigurationError for empty or duplicate service codes, negative
// prices and non-positive tier thresholds.
func NewCatalog(rules ...Rule) (*Catalog, error) {
	c := &Catalog{
		rules: make(map[ServiceCode]Rule, len(rules)),
		order: make([]ServiceCode, 0, len(rules)),
	}
	for _, r := range rules {
		if err := validateRule(r); err != nil {
			return nil, err
		}
		if _, ok := c.rules[r.Service]; ok {
			return nil, &ConfigurationError{Service: r.Service, Reason: "duplicate service code"}
		}
		c.rules[r.Service] = cloneRule(r)
		c.order = append(c.order, r.Service)
	}
	return c, nil
}

// LoadCatalog reads rules from src and builds a validated Catalog.
func LoadCatalog(ctx context.Context, src Source) (*Catalog, error) {
	rules, err := src.Load(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load rules")
	}
	return NewCatalog(rules...)
}

func validateRule(r Rule) error {
	if r.Service == "" {
		return &ConfigurationError{Reason: "empty service code"}
	}
	if r.UnitPrice < 0 {
		return &ConfigurationError{Service: r.Service, Reason: "negative unit price"}
	}
	for i, t := range r.Tiers {
		if t.Threshold <= 0 {
			return &ConfigurationError{
				Service: r.Service,
				Reason:  fmt.Sprintf("tier %d: threshold must be greater than 0", i),
			}
		}
		if t.Threshold > MaxThreshold {
			return &ConfigurationError{
				Service: r.Service,
				Reason:  fmt.Sprintf("tier %d: threshold exceeds %d", i, MaxThreshold),
			}
		}
		if t.BundlePrice < 0 {
			return &ConfigurationError{
				Service: r.Service,
				Reason:  fmt.Sprintf("tier %d: negative bundle price", i),
			}
		}
	}
	return nil
}

func cloneRule(r Rule) Rule {
	if r.Tiers != nil {
		r.Tiers = append([]DiscountTier(nil), r.Tiers...)
	}
	return r
}

// Lookup returns the rule for code. A nil Catalog has no rules.
func (c *Catalog) Lookup(code ServiceCode) (Rule, bool) {
	r, ok := c.lookup(code)
	if !ok {
		return Rule{}, false
	}
	return cloneRule(r), true
}

func (c *Catalog) lookup(code ServiceCode) (Rule, bool) {
	if c == nil {
		return Rule{}, false
	}
	r, ok := c.rules[code]
	return r, ok
}

// Rules returns all rules in declaration order.
func (c *Catalog) Rules() []Rule {
	if c == nil {
		return nil
	}
	out := make([]Rule, len(c.order))
	for i, code := range c.order {
		out[i] = cloneRule(c.rules[code])
	}
	return out
}

// Len returns the number of rules.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.order)
}
