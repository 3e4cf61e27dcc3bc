package main

import (
	"fmt"
	"os"
	"sync/atomic"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.arnest.dev/scan/product"
	"golang.org/x/sync/errgroup"
)

type cmdCatalogSearch struct {
	Name    string `long:"name" short:"n" description:"Case-insensitive substring of product names to match"`
	Barcode string `long:"barcode" short:"b" description:"Exact barcode to match"`
}

type cmdCatalogImport struct {
	Concurrency int  `long:"concurrency" default:"4" description:"Maximum number of concurrent saves"`
	Skip        bool `long:"skip-saved" description:"Skip products which are already saved, rather than replacing them"`
}

func init() {
	commands.AddCommand("", "catalog", "Interact with the product catalog", "", &struct{}{})

	commands.AddCommand("catalog", "search", "Search the product catalog", `
Search catalog products by barcode, or by name. Name queries must have at
least two characters.

Match products having an exact barcode:
>    savedctl catalog search --barcode 4607001770071

Match products having "soap" within their name:
>    savedctl catalog search --name soap
`, &cmdCatalogSearch{})

	commands.AddCommand("catalog", "import", "Save all catalog products", `
Save every catalog product with its classification. Saves are issued
concurrently, up to --concurrency at a time.
`, &cmdCatalogImport{})
}

func (cmd *cmdCatalogSearch) Execute([]string) error {
	var _, done = startup()
	defer done()

	var repo, s = mustRepository(true)
	defer s.Close()

	switch {
	case cmd.Barcode != "":
		if p, ok := repo.SearchByBarcode(cmd.Barcode); ok {
			return writeProducts(os.Stdout, []product.Product{p}, repo.Classify)
		}
		return writeProducts(os.Stdout, nil, repo.Classify)
	case cmd.Name != "":
		return writeProducts(os.Stdout, repo.SearchByName(cmd.Name), repo.Classify)
	default:
		return errors.New("expected one of --name or --barcode")
	}
}

func (cmd *cmdCatalogImport) Execute([]string) error {
	var ctx, done = startup()
	defer done()

	var repo, s = mustRepository(true)
	defer s.Close()

	var grp, grpCtx = errgroup.WithContext(ctx)
	if cmd.Concurrency < 1 {
		cmd.Concurrency = 1
	}
	grp.SetLimit(cmd.Concurrency)

	var saved, skipped int64
	for _, p := range repo.Catalog().All() {
		var p = p
		grp.Go(func() error {
			if cmd.Skip {
				if found, err := repo.IsSaved(grpCtx, p.Barcode); err != nil {
					return err
				} else if found {
					atomic.AddInt64(&skipped, 1)
					return nil
				}
			}
			if err := repo.SaveProduct(grpCtx, p, repo.Classify(p)); err != nil {
				return err
			}
			atomic.AddInt64(&saved, 1)
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"saved":   saved,
		"skipped": skipped,
	}).Info("imported catalog")
	fmt.Printf("Saved %d products (%d skipped).\n", saved, skipped)

	return nil
}
