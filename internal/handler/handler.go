// Package handler serves the checkout pricing HTTP API.
package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/checkout-pricing/internal/catalog"
	"github.com/xenking/checkout-pricing/internal/domain/pricing"
)

const instrumentationName = "github.com/xenking/checkout-pricing/internal/handler"

// maxBodyBytes bounds checkout request bodies.
const maxBodyBytes = 1 << 20

// Handler prices checkout requests against a fixed catalog. Every request
// gets its own pricing.Checkout.
type Handler struct {
	catalog *pricing.Catalog
	tracer  trace.Tracer

	priced   metric.Int64Counter
	discount metric.Int64Histogram
}

// NewHandler constructs a Handler and registers its instruments.
func NewHandler(c *pricing.Catalog, mp metric.MeterProvider, tp trace.TracerProvider) (*Handler, error) {
	meter := mp.Meter(instrumentationName)

	priced, err := meter.Int64Counter("checkout.priced",
		metric.WithDescription("Number of priced checkouts"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create priced counter")
	}
	discount, err := meter.Int64Histogram("checkout.discount",
		metric.WithDescription("Total discount per priced checkout"),
		metric.WithUnit("{minor_unit}"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create discount histogram")
	}

	return &Handler{
		catalog:  c,
		tracer:   tp.Tracer(instrumentationName),
		priced:   priced,
		discount: discount,
	}, nil
}

// Register mounts the API routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/catalog", h.GetCatalog)
	mux.HandleFunc("POST /api/checkout", h.PriceCheckout)
}

// GetCatalog returns the catalog in the JSON catalog file format.
func (h *Handler) GetCatalog(w http.ResponseWriter, _ *http.Request) {
	var e jx.Encoder
	catalog.EncodeJSON(&e, h.catalog.Rules())
	writeJSON(w, http.StatusOK, e.Bytes())
}

func writeJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	if status >= http.StatusInternalServerError {
		zctx.From(r.Context()).Error("Request failed", zap.String("error", message))
		message = http.StatusText(status)
	}

	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("code", func(e *jx.Encoder) { e.Int(status) })
		e.Field("message", func(e *jx.Encoder) { e.Str(message) })
	})
	writeJSON(w, status, e.Bytes())
}
