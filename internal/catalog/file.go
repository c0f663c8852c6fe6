package catalog

import (
	"context"
	"io"
	"os"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/checkout-pricing/internal/domain/pricing"
)

var _ pricing.Source = (*FileSource)(nil)

// FileSource loads rules from one or more catalog files. Files are read
// concurrently and merged in the order given; a service defined in two
// files is rejected when the catalog is built.
type FileSource struct {
	paths []string
}

// NewFileSource returns a FileSource over paths.
func NewFileSource(paths ...string) *FileSource {
	return &FileSource{paths: paths}
}

// Load reads every file and returns the concatenated rules.
func (s *FileSource) Load(ctx context.Context) ([]pricing.Rule, error) {
	if len(s.paths) == 0 {
		return nil, errors.New("no catalog files given")
	}

	results := make([][]pricing.Rule, len(s.paths))
	g, ctx := errgroup.WithContext(ctx)
	for i, path := range s.paths {
		g.Go(func() error {
			rules, err := ReadFile(ctx, path)
			if err != nil {
				return err
			}
			results[i] = rules
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var merged []pricing.Rule
	for _, rules := range results {
		merged = append(merged, rules...)
	}
	return merged, nil
}

// ReadFile decodes a single catalog file.
func ReadFile(ctx context.Context, path string) ([]pricing.Rule, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	format, gz, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if gz {
		zr, err := pgzip.NewReader(f)
		if err != nil {
			return nil, errors.Wrapf(err, "create gzip reader for %s", path)
		}
		defer func() { _ = zr.Close() }()
		r = zr
	}

	rules, err := Decode(r, format)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	return rules, nil
}
