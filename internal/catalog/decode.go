// Package catalog reads pricing rules from YAML or JSON catalog files,
// optionally gzip-compressed.
package catalog

import (
	"io"
	"path/filepath"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"gopkg.in/yaml.v3"

	"github.com/xenking/checkout-pricing/internal/domain/pricing"
)

// Format is a catalog file encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatFromPath detects the encoding from the file extension, ignoring a
// trailing ".gz". The second result reports gzip compression.
func FormatFromPath(path string) (Format, bool, error) {
	name := strings.ToLower(filepath.Base(path))
	gz := strings.HasSuffix(name, ".gz")
	name = strings.TrimSuffix(name, ".gz")

	switch filepath.Ext(name) {
	case ".yaml", ".yml":
		return FormatYAML, gz, nil
	case ".json":
		return FormatJSON, gz, nil
	default:
		return "", false, errors.Errorf("unsupported catalog file extension: %q", path)
	}
}

type fileTier struct {
	ThresholdQuantity int   `yaml:"thresholdQuantity"`
	BundlePrice       int64 `yaml:"bundlePrice"`
}

type fileRule struct {
	Service       string     `yaml:"service"`
	UnitPrice     int64      `yaml:"unitPrice"`
	DiscountTiers []fileTier `yaml:"discountTiers"`
}

type fileCatalog struct {
	Services []fileRule `yaml:"services"`
}

func (f fileCatalog) rules() []pricing.Rule {
	out := make([]pricing.Rule, len(f.Services))
	for i, s := range f.Services {
		r := pricing.Rule{
			Service:   pricing.ServiceCode(s.Service),
			UnitPrice: s.UnitPrice,
		}
		for _, t := range s.DiscountTiers {
			r.Tiers = append(r.Tiers, pricing.DiscountTier{
				Threshold:   t.ThresholdQuantity,
				BundlePrice: t.BundlePrice,
			})
		}
		out[i] = r
	}
	return out
}

// Decode reads catalog rules from r. Rules are returned unvalidated; build
// a pricing.Catalog to validate them.
func Decode(r io.Reader, format Format) ([]pricing.Rule, error) {
	var (
		f   fileCatalog
		err error
	)
	switch format {
	case FormatYAML:
		err = yaml.NewDecoder(r).Decode(&f)
		if errors.Is(err, io.EOF) {
			err = nil
		}
	case FormatJSON:
		err = decodeJSON(jx.Decode(r, 4096), &f)
	default:
		return nil, errors.Errorf("unsupported catalog format: %q", format)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s catalog", format)
	}
	return f.rules(), nil
}

func decodeJSON(d *jx.Decoder, f *fileCatalog) error {
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		if key != "services" {
			return d.Skip()
		}
		if d.Next() == jx.Null {
			return d.Null()
		}
		return d.Arr(func(d *jx.Decoder) error {
			var s fileRule
			if err := decodeJSONRule(d, &s); err != nil {
				return errors.Wrapf(err, "services[%d]", len(f.Services))
			}
			f.Services = append(f.Services, s)
			return nil
		})
	}); err != nil {
		return err
	}
	if d.Next() != jx.Invalid {
		return errors.New("unexpected data after catalog object")
	}
	return nil
}

func decodeJSONRule(d *jx.Decoder, s *fileRule) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "service":
			s.Service, err = d.Str()
		case "unitPrice":
			s.UnitPrice, err = d.Int64()
		case "discountTiers":
			if d.Next() == jx.Null {
				return d.Null()
			}
			err = d.Arr(func(d *jx.Decoder) error {
				var t fileTier
				if err := decodeJSONTier(d, &t); err != nil {
					return err
				}
				s.DiscountTiers = append(s.DiscountTiers, t)
				return nil
			})
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrap(err, key)
		}
		return nil
	})
}

func decodeJSONTier(d *jx.Decoder, t *fileTier) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "thresholdQuantity":
			t.ThresholdQuantity, err = d.Int()
		case "bundlePrice":
			t.BundlePrice, err = d.Int64()
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrap(err, key)
		}
		return nil
	})
}
