package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/checkout-pricing/internal/domain/pricing"
)

const (
	listServicesSQL = `SELECT code, unit_price FROM services ORDER BY position, code`

	listTiersSQL = `SELECT service_code, threshold, bundle_price
		FROM discount_tiers ORDER BY service_code, position`

	deleteServicesSQL = `DELETE FROM services`

	insertServiceSQL = `INSERT INTO services (code, unit_price, position) VALUES ($1, $2, $3)`

	insertTierSQL = `INSERT INTO discount_tiers (service_code, position, threshold, bundle_price)
		VALUES ($1, $2, $3, $4)`
)

var _ pricing.Source = (*CatalogRepository)(nil)

// CatalogRepository reads and replaces the pricing catalog.
type CatalogRepository struct {
	pool *pgxpool.Pool
}

// NewCatalogRepository returns a CatalogRepository that uses the given pool.
func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

type serviceRow struct {
	code      string
	unitPrice decimal.Decimal
}

type tierRow struct {
	service     string
	threshold   int32
	bundlePrice decimal.Decimal
}

// Load returns all rules ordered by catalog position, each with its tiers
// in position order. Stored prices with a fractional part are rejected
// with a *pricing.ConfigurationError.
func (r *CatalogRepository) Load(ctx context.Context) ([]pricing.Rule, error) {
	rows, err := r.pool.Query(ctx, listServicesSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list services")
	}
	services, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (serviceRow, error) {
		var s serviceRow
		err := row.Scan(&s.code, &s.unitPrice)
		return s, err
	})
	if err != nil {
		return nil, errors.Wrap(err, "scan services")
	}

	rows, err = r.pool.Query(ctx, listTiersSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list discount tiers")
	}
	tiers, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (tierRow, error) {
		var t tierRow
		err := row.Scan(&t.service, &t.threshold, &t.bundlePrice)
		return t, err
	})
	if err != nil {
		return nil, errors.Wrap(err, "scan discount tiers")
	}

	byService := make(map[string][]pricing.DiscountTier, len(services))
	for _, t := range tiers {
		price, err := minorUnits(t.bundlePrice, t.service, "bundle price")
		if err != nil {
			return nil, err
		}
		byService[t.service] = append(byService[t.service], pricing.DiscountTier{
			Threshold:   int(t.threshold),
			BundlePrice: price,
		})
	}

	rules := make([]pricing.Rule, len(services))
	for i, s := range services {
		price, err := minorUnits(s.unitPrice, s.code, "unit price")
		if err != nil {
			return nil, err
		}
		rules[i] = pricing.Rule{
			Service:   pricing.ServiceCode(s.code),
			UnitPrice: price,
			Tiers:     byService[s.code],
		}
	}
	return rules, nil
}

// Replace validates rules and swaps the stored catalog for them in a
// single transaction.
func (r *CatalogRepository) Replace(ctx context.Context, rules []pricing.Rule) error {
	if _, err := pricing.NewCatalog(rules...); err != nil {
		return err
	}

	batch := &pgx.Batch{}
	batch.Queue(deleteServicesSQL)
	for i, rule := range rules {
		batch.Queue(insertServiceSQL, string(rule.Service), decimal.NewFromInt(rule.UnitPrice), i)
		for j, t := range rule.Tiers {
			batch.Queue(insertTierSQL, string(rule.Service), j, t.Threshold, decimal.NewFromInt(t.BundlePrice))
		}
	}

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return errors.Wrap(err, "replace catalog")
	}
	return nil
}

// minorUnits converts a stored NUMERIC price to integer minor units.
func minorUnits(d decimal.Decimal, service, field string) (int64, error) {
	v := d.IntPart()
	if !d.Equal(decimal.NewFromInt(v)) {
		return 0, &pricing.ConfigurationError{
			Service: pricing.ServiceCode(service),
			Reason:  field + " " + d.String() + " is not a whole number of minor units",
		}
	}
	return v, nil
}
