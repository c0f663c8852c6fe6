// Command catalog-import loads catalog files into PostgreSQL, replacing the
// stored catalog.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/checkout-pricing/internal/catalog"
	"github.com/xenking/checkout-pricing/internal/domain/pricing"
	"github.com/xenking/checkout-pricing/internal/storage/postgres"
)

func main() {
	var (
		databaseURL string
		dryRun      bool
	)
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.BoolVar(&dryRun, "dry-run", false, "validate the catalog files without writing to the database")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] [catalog files...]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	lg, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintln(os.Stderr, "create logger:", err)
		os.Exit(1)
	}
	defer func() { _ = lg.Sync() }()

	files := flag.Args()
	if len(files) == 0 {
		files = []string{"db/seed/catalog.yaml"}
	}
	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" && !dryRun {
		lg.Error("Database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, lg, databaseURL, files, dryRun); err != nil {
		lg.Error("Import failed", zap.Error(err))
		os.Exit(1)
	}
	lg.Info("Import completed")
}

func run(ctx context.Context, lg *zap.Logger, databaseURL string, files []string, dryRun bool) error {
	lg.Info("Reading catalog files", zap.Strings("files", files))

	c, err := pricing.LoadCatalog(ctx, catalog.NewFileSource(files...))
	if err != nil {
		return errors.Wrap(err, "load catalog files")
	}
	lg.Info("Catalog is valid", zap.Int("services", c.Len()))
	if dryRun {
		return nil
	}

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	lg.Info("Running migrations")
	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := postgres.NewCatalogRepository(pool).Replace(ctx, c.Rules()); err != nil {
		return errors.Wrap(err, "replace catalog")
	}
	lg.Info("Catalog stored", zap.Int("services", c.Len()))
	return nil
}
