package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	mbp "go.arnest.dev/scan/mainboilerplate"
	"go.arnest.dev/scan/product"
)

type cmdSave struct {
	Status string `long:"status" choice:"SAFE" choice:"MODERATE" choice:"RISKY" description:"Safety status to save with. Defaults to the product's classification"`
	Args   struct {
		Barcode string `positional-arg-name:"barcode" required:"true"`
	} `positional-args:"true"`
}

type cmdRemove struct {
	Args struct {
		Barcode string `positional-arg-name:"barcode" required:"true"`
	} `positional-args:"true"`
}

type cmdExists struct {
	Args struct {
		Barcode string `positional-arg-name:"barcode" required:"true"`
	} `positional-args:"true"`
}

type cmdList struct {
	Format string `long:"format" short:"o" choice:"table" choice:"yaml" choice:"json" default:"table" description:"Output format"`
}

type cmdWatch struct {
	Format string `long:"format" short:"o" choice:"table" choice:"yaml" choice:"json" default:"table" description:"Output format"`
	Count  int    `long:"count" description:"Exit after this many snapshots. Zero watches until interrupted"`
}

type cmdSummary struct{}

type cmdExport struct {
	Output string `long:"output" default:"-" description:"Path to write the export to. Use '-' for stdout"`
}

func init() {
	commands.AddCommand("", "save", "Save a catalog product", `
Save the catalog product of a barcode. A product already saved under the
barcode is replaced.

Unless --status is given, the product is saved with its classification.
`, &cmdSave{})

	commands.AddCommand("", "remove", "Remove a saved product", `
Remove the saved product of a barcode. Removing an unsaved barcode succeeds
and changes nothing.
`, &cmdRemove{})

	commands.AddCommand("", "exists", "Test whether a product is saved", `
Print whether a product of the barcode is saved. The exit status is zero
either way.
`, &cmdExists{})

	commands.AddCommand("", "list", "List saved products", `
List saved products, in the order they were saved.

Results can be output in a variety of --format options:
table: Prints as a table.
yaml:  Prints a YAML list of products.
json:  Prints products encoded as JSON, one per line.
`, &cmdList{})

	commands.AddCommand("", "watch", "Watch saved products", `
Print saved products, and then print them again each time they change,
until interrupted or --count snapshots have been printed.
`, &cmdWatch{})

	commands.AddCommand("", "summary", "Summarize saved products by status", `
Print the number of saved products of each safety status.
`, &cmdSummary{})

	commands.AddCommand("", "export", "Export saved products as text", `
Write a plain-text report of saved products, suitable for sharing.
Nothing is written if no products are saved.
`, &cmdExport{})
}

func (cmd *cmdSave) Execute([]string) error {
	var ctx, done = startup()
	defer done()

	var repo, s = mustRepository(true)
	defer s.Close()

	var p, ok = repo.SearchByBarcode(cmd.Args.Barcode)
	if !ok {
		return errors.Errorf("barcode %s is not in the catalog", cmd.Args.Barcode)
	}
	var status = repo.Classify(p)
	if cmd.Status != "" {
		var err error
		status, err = product.ParseSafetyStatus(cmd.Status)
		mbp.Must(err, "invalid --status")
	}

	if err := repo.SaveProduct(ctx, p, status); err != nil {
		return err
	}
	fmt.Printf("Saved %s (%s) as %s.\n", p.Name, p.Barcode, status.Label())
	return nil
}

func (cmd *cmdRemove) Execute([]string) error {
	var ctx, done = startup()
	defer done()

	var repo, s = mustRepository(false)
	defer s.Close()

	return repo.RemoveProduct(ctx, cmd.Args.Barcode)
}

func (cmd *cmdExists) Execute([]string) error {
	var ctx, done = startup()
	defer done()

	var repo, s = mustRepository(false)
	defer s.Close()

	var found, err = repo.IsSaved(ctx, cmd.Args.Barcode)
	if err != nil {
		return err
	}
	fmt.Println(found)
	return nil
}

func (cmd *cmdList) Execute([]string) error {
	var ctx, done = startup()
	defer done()

	var repo, s = mustRepository(false)
	defer s.Close()

	var saved, err = repo.ListSaved(ctx)
	if err != nil {
		return err
	}
	return writeSaved(os.Stdout, cmd.Format, saved)
}

func (cmd *cmdWatch) Execute([]string) error {
	var ctx, done = startup()
	defer done()

	var repo, s = mustRepository(false)
	defer s.Close()

	var stream, err = repo.WatchSaved()
	if err != nil {
		return err
	}
	defer stream.Close()

	log.WithField("id", stream.ID()).Debug("watching saved products")

	var last time.Time
	for n := 0; cmd.Count == 0 || n != cmd.Count; n++ {
		saved, err := stream.Next(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		} else if err != nil {
			return err
		}

		var now = time.Now()
		if last.IsZero() {
			fmt.Printf("%s saved products:\n", humanize.Comma(int64(len(saved))))
		} else {
			fmt.Printf("%s saved products (changed %s):\n",
				humanize.Comma(int64(len(saved))), humanize.RelTime(last, now, "after the previous snapshot", "later"))
		}
		last = now

		if err = writeSaved(os.Stdout, cmd.Format, saved); err != nil {
			return err
		}
	}
	return nil
}

func (cmd *cmdSummary) Execute([]string) error {
	var ctx, done = startup()
	defer done()

	var repo, s = mustRepository(false)
	defer s.Close()

	var saved, err = repo.ListSaved(ctx)
	if err != nil {
		return err
	}
	return writeSummary(os.Stdout, product.Summarize(saved))
}

func (cmd *cmdExport) Execute([]string) error {
	var ctx, done = startup()
	defer done()

	var repo, s = mustRepository(false)
	defer s.Close()

	var saved, err = repo.ListSaved(ctx)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err = product.WriteExport(&buf, saved); err != nil {
		return err
	}

	if cmd.Output == "-" {
		_, err = os.Stdout.Write(buf.Bytes())
		return err
	} else if err = os.WriteFile(cmd.Output, buf.Bytes(), 0644); err != nil {
		return errors.WithMessage(err, "writing export")
	}
	log.WithFields(log.Fields{
		"path":     cmd.Output,
		"products": len(saved),
		"size":     humanize.Bytes(uint64(buf.Len())),
	}).Info("wrote export")

	return nil
}
