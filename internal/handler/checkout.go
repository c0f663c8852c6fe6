package handler

import (
	"context"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"

	"github.com/xenking/checkout-pricing/internal/catalog"
	"github.com/xenking/checkout-pricing/internal/domain/pricing"
)

// checkoutItem is one entry of the request "items" array. A bare string is
// a single scan; an object carries an explicit quantity.
type checkoutItem struct {
	service  pricing.ServiceCode
	quantity int
}

// PriceCheckout scans the requested items into a fresh checkout and
// returns its price summary.
//
// Request:  {"items": ["B", "B", {"service": "F", "quantity": 2}]}
// Response: {"originalPrice", "finalPrice", "totalDiscount", "lines": [...]}
func (h *Handler) PriceCheckout(w http.ResponseWriter, r *http.Request) {
	items, err := decodeCheckoutRequest(jx.Decode(http.MaxBytesReader(w, r.Body, maxBodyBytes), 4096))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	summary, err := h.price(r.Context(), items)
	if err != nil {
		var usErr *pricing.UnknownServiceError
		switch {
		case errors.Is(err, pricing.ErrInvalidQuantity), errors.Is(err, pricing.ErrQuantityOverflow):
			writeError(w, r, http.StatusBadRequest, err.Error())
		case errors.As(err, &usErr):
			writeError(w, r, http.StatusUnprocessableEntity, usErr.Error())
		case errors.Is(err, pricing.ErrPriceOverflow):
			writeError(w, r, http.StatusUnprocessableEntity, err.Error())
		default:
			writeError(w, r, http.StatusInternalServerError, err.Error())
		}
		return
	}

	var e jx.Encoder
	encodeSummary(&e, summary)
	writeJSON(w, http.StatusOK, e.Bytes())
}

func (h *Handler) price(ctx context.Context, items []checkoutItem) (_ pricing.Summary, rerr error) {
	ctx, span := h.tracer.Start(ctx, "checkout.Price")
	defer func() {
		if rerr != nil {
			span.RecordError(rerr)
			span.SetStatus(codes.Error, rerr.Error())
		}
		span.End()
	}()

	co := pricing.NewCheckout(h.catalog)
	for _, item := range items {
		if err := co.Add(item.service, item.quantity); err != nil {
			return pricing.Summary{}, errors.Wrapf(err, "item %q", string(item.service))
		}
	}

	summary, err := co.Total()
	if err != nil {
		return pricing.Summary{}, err
	}

	discounted := attribute.Bool("discounted", summary.TotalDiscount > 0)
	span.SetAttributes(
		attribute.Int("checkout.lines", co.Len()),
		attribute.Int64("checkout.final_price", summary.FinalPrice),
		discounted,
	)
	h.priced.Add(ctx, 1, metric.WithAttributes(discounted))
	h.discount.Record(ctx, summary.TotalDiscount)

	return summary, nil
}

func decodeCheckoutRequest(d *jx.Decoder) ([]checkoutItem, error) {
	var items []checkoutItem
	err := d.Obj(func(d *jx.Decoder, key string) error {
		if key != "items" {
			return d.Skip()
		}
		if d.Next() == jx.Null {
			return d.Null()
		}
		return d.Arr(func(d *jx.Decoder) error {
			item, err := decodeCheckoutItem(d)
			if err != nil {
				return errors.Wrapf(err, "items[%d]", len(items))
			}
			items = append(items, item)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	if d.Next() != jx.Invalid {
		return nil, errors.New("unexpected data after request object")
	}
	return items, nil
}

func decodeCheckoutItem(d *jx.Decoder) (checkoutItem, error) {
	item := checkoutItem{quantity: 1}
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return item, err
		}
		item.service = pricing.ServiceCode(s)
	case jx.Object:
		if err := d.Obj(func(d *jx.Decoder, key string) error {
			var err error
			switch key {
			case "service":
				var s string
				s, err = d.Str()
				item.service = pricing.ServiceCode(s)
			case "quantity":
				item.quantity, err = d.Int()
			default:
				err = d.Skip()
			}
			return err
		}); err != nil {
			return item, err
		}
		if item.service == "" {
			return item, errors.New("service is required")
		}
	default:
		return item, errors.Errorf("expected string or object, got %s", d.Next())
	}
	return item, nil
}

func encodeSummary(e *jx.Encoder, s pricing.Summary) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("originalPrice", func(e *jx.Encoder) { e.Int64(s.OriginalPrice) })
		e.Field("finalPrice", func(e *jx.Encoder) { e.Int64(s.FinalPrice) })
		e.Field("totalDiscount", func(e *jx.Encoder) { e.Int64(s.TotalDiscount) })
		e.Field("lines", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, l := range s.Lines {
					encodeLine(e, l)
				}
			})
		})
	})
}

func encodeLine(e *jx.Encoder, l pricing.LineSummary) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("service", func(e *jx.Encoder) { e.Str(string(l.Service)) })
		e.Field("quantity", func(e *jx.Encoder) { e.Int(l.Quantity) })
		e.Field("unitPrice", func(e *jx.Encoder) { e.Int64(l.UnitPrice) })
		e.Field("originalPrice", func(e *jx.Encoder) { e.Int64(l.OriginalPrice) })
		e.Field("finalPrice", func(e *jx.Encoder) { e.Int64(l.FinalPrice) })
		e.Field("discount", func(e *jx.Encoder) { e.Int64(l.Discount) })
		if l.Tier != nil {
			e.Field("tier", func(e *jx.Encoder) { catalog.EncodeTier(e, *l.Tier) })
		}
	})
}
