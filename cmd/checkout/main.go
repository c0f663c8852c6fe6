// Command checkout prices scanned services from the command line.
//
// With service codes as arguments it scans them into one checkout and
// prints the breakdown; without arguments it runs the reference examples.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/checkout-pricing/internal/catalog"
	"github.com/xenking/checkout-pricing/internal/domain/pricing"
)

// example is a named list of scans.
type example struct {
	title string
	scans []pricing.ServiceCode
}

var examples = []example{
	{title: "multipurchase discount", scans: []pricing.ServiceCode{"B", "B"}},
	{title: "no multipurchase discount", scans: []pricing.ServiceCode{"F", "C"}},
	{title: "mix of discounted and full price", scans: []pricing.ServiceCode{"F", "F", "B"}},
}

func main() {
	var catalogFiles string
	flag.StringVar(&catalogFiles, "catalog", "", "comma-separated catalog files (.yaml, .json, optionally .gz); built-in catalog when empty")
	flag.Parse()

	lg, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintln(os.Stderr, "create logger:", err)
		os.Exit(1)
	}
	defer func() { _ = lg.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	var files []string
	if catalogFiles != "" {
		files = strings.Split(catalogFiles, ",")
	}

	if err := run(ctx, os.Stdout, files, flag.Args()); err != nil {
		lg.Error("Checkout failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, w io.Writer, files, args []string) error {
	var src pricing.Source = pricing.StaticSource(pricing.DefaultRules())
	if len(files) > 0 {
		src = catalog.NewFileSource(files...)
	}
	c, err := pricing.LoadCatalog(ctx, src)
	if err != nil {
		return errors.Wrap(err, "load catalog")
	}

	runs := examples
	if len(args) > 0 {
		scans := make([]pricing.ServiceCode, len(args))
		for i, a := range args {
			scans[i] = pricing.ServiceCode(a)
		}
		runs = []example{{title: "checkout", scans: scans}}
	}

	for i, ex := range runs {
		if i > 0 {
			fmt.Fprintln(w)
		}
		if err := printExample(w, c, ex); err != nil {
			return errors.Wrapf(err, "price %s", ex.title)
		}
	}
	return nil
}

func printExample(w io.Writer, c *pricing.Catalog, ex example) error {
	co := pricing.NewCheckout(c)
	for _, code := range ex.scans {
		co.Scan(code)
	}
	s, err := co.Total()
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "%s\n", ex.title)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, l := range s.Lines {
		offer := "-"
		if l.Tier != nil {
			offer = fmt.Sprintf("%d for %d", l.Tier.Threshold, l.Tier.BundlePrice)
		}
		fmt.Fprintf(tw, "  %d x %s\t%d\t%s\t%d\n", l.Quantity, l.Service, l.OriginalPrice, offer, l.FinalPrice)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "original price: %d\n", s.OriginalPrice)
	if s.TotalDiscount == 0 {
		fmt.Fprintln(w, "no applicable discount")
	} else {
		fmt.Fprintf(w, "discount applied: %d\n", s.TotalDiscount)
	}
	fmt.Fprintf(w, "final price: %d\n", s.FinalPrice)
	return nil
}
