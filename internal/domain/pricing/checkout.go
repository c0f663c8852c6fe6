package pricing

import (
	"math"

	"github.com/go-faster/errors"
)

// Checkout accumulates scanned services for one session and prices them
// against a Catalog. It is not safe for concurrent use; give every session
// its own Checkout.
type Checkout struct {
	catalog *Catalog
	qty     map[ServiceCode]int
	order   []ServiceCode
	// overflowed is the first code whose quantity Scan could not raise.
	overflowed *ServiceCode
}

// NewCheckout returns an empty Checkout backed by catalog. A nil catalog
// behaves as an empty one: every scanned code is unknown to Total.
func NewCheckout(catalog *Catalog) *Checkout {
	return &Checkout{
		catalog: catalog,
		qty:     make(map[ServiceCode]int),
	}
}

// Scan records one unit of code. The catalog is not consulted here, so an
// unknown code only fails later in Total. A scan past math.MaxInt units
// leaves the quantity unchanged and makes Total fail with
// ErrQuantityOverflow.
func (c *Checkout) Scan(code ServiceCode) {
	if !c.add(code, 1) && c.overflowed == nil {
		c.overflowed = &code
	}
}

// Add records quantity units of code at once. It returns
// ErrQuantityOverflow, leaving the cart unchanged, when the line quantity
// would exceed math.MaxInt.
func (c *Checkout) Add(code ServiceCode, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}
	if !c.add(code, quantity) {
		return ErrQuantityOverflow
	}
	return nil
}

func (c *Checkout) add(code ServiceCode, n int) bool {
	q, ok := c.qty[code]
	if q > math.MaxInt-n {
		return false
	}
	if !ok {
		c.order = append(c.order, code)
	}
	c.qty[code] = q + n
	return true
}

// Quantity returns the scanned quantity of code, zero if never scanned.
func (c *Checkout) Quantity(code ServiceCode) int {
	return c.qty[code]
}

// Lines returns the cart lines in first-scan order.
func (c *Checkout) Lines() []Line {
	lines := make([]Line, len(c.order))
	for i, code := range c.order {
		lines[i] = Line{Service: code, Quantity: c.qty[code]}
	}
	return lines
}

// Len returns the number of distinct services in the cart.
func (c *Checkout) Len() int {
	return len(c.order)
}

// Empty reports whether nothing has been scanned yet.
func (c *Checkout) Empty() bool {
	return len(c.order) == 0
}

// Total prices the current cart. Lines are priced independently in
// first-scan order. It returns *UnknownServiceError when a scanned code is
// missing from the catalog and *PriceOverflowError when a price does not
// fit in int64.
func (c *Checkout) Total() (Summary, error) {
	if c.overflowed != nil {
		return Summary{}, errors.Wrapf(ErrQuantityOverflow, "service %q", string(*c.overflowed))
	}

	s := Summary{Lines: make([]LineSummary, 0, len(c.order))}
	for _, code := range c.order {
		rule, ok := c.catalog.lookup(code)
		if !ok {
			return Summary{}, &UnknownServiceError{Service: code}
		}
		line, err := PriceLine(rule, c.qty[code])
		if err != nil {
			return Summary{}, err
		}

		if s.OriginalPrice, ok = addPrice(s.OriginalPrice, line.OriginalPrice); !ok {
			return Summary{}, &PriceOverflowError{}
		}
		if s.FinalPrice, ok = addPrice(s.FinalPrice, line.FinalPrice); !ok {
			return Summary{}, &PriceOverflowError{}
		}
		s.Lines = append(s.Lines, line)
	}
	s.TotalDiscount = s.OriginalPrice - s.FinalPrice
	return s, nil
}
