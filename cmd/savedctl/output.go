package main

import (
	"encoding/json"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"go.arnest.dev/scan/product"
	"gopkg.in/yaml.v2"
)

// writeSaved writes |saved| to |w| in |format|: "table", "yaml" or "json".
func writeSaved(w io.Writer, format string, saved []product.Saved) error {
	switch format {
	case "yaml":
		var b, err = yaml.Marshal(saved)
		if err != nil {
			return err
		}
		_, err = w.Write(b)
		return err
	case "json":
		var enc = json.NewEncoder(w)
		for _, s := range saved {
			if err := enc.Encode(s); err != nil {
				return err
			}
		}
		return nil
	default:
		var rows = make([][]string, 0, len(saved))
		for _, s := range saved {
			rows = append(rows, []string{s.Barcode, s.Name, s.Status.Label(), strconv.Itoa(len(s.ImageURLs))})
		}
		return writeTable(w, []string{"Barcode", "Name", "Status", "Images"}, rows)
	}
}

// writeProducts writes catalog Products to |w| as a table, with the
// SafetyStatus each would be saved with.
func writeProducts(w io.Writer, products []product.Product, classify func(product.Product) product.SafetyStatus) error {
	var rows = make([][]string, 0, len(products))
	for _, p := range products {
		rows = append(rows, []string{p.Barcode, p.Name, classify(p).Label(), truncate(p.Composition, 40)})
	}
	return writeTable(w, []string{"Barcode", "Name", "Status", "Composition"}, rows)
}

// writeSummary writes the Summary to |w| as a table.
func writeSummary(w io.Writer, s product.Summary) error {
	return writeTable(w, []string{"Status", "Count"}, [][]string{
		{product.Safe.Label(), strconv.Itoa(s.Safe)},
		{product.Moderate.Label(), strconv.Itoa(s.Moderate)},
		{product.Risky.Label(), strconv.Itoa(s.Risky)},
		{"Total", strconv.Itoa(s.Total)},
	})
}

func writeTable(w io.Writer, headers []string, rows [][]string) error {
	var table = tablewriter.NewWriter(w)
	table.Header(headers)

	for _, row := range rows {
		if err := table.Append(row); err != nil {
			return err
		}
	}
	return table.Render()
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > n {
		return string(r[:n-3]) + "..."
	}
	return s
}
