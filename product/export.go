package product

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Summary counts Saved products by SafetyStatus.
type Summary struct {
	Total    int `json:"total" yaml:"total"`
	Safe     int `json:"safe" yaml:"safe"`
	Moderate int `json:"moderate" yaml:"moderate"`
	Risky    int `json:"risky" yaml:"risky"`
}

// Summarize returns the Summary of |saved|.
func Summarize(saved []Saved) Summary {
	var s = Summary{Total: len(saved)}
	for _, p := range saved {
		switch p.Status {
		case Safe:
			s.Safe++
		case Moderate:
			s.Moderate++
		case Risky:
			s.Risky++
		}
	}
	return s
}

// ExportTitle heads a plain-text export.
const ExportTitle = "Saved products - ArnestScan"

var exportRule = strings.Repeat("=", 40)
var exportSeparator = strings.Repeat("-", 40)

// WriteExport writes a plain-text listing of |saved| to |w|, suitable for
// sharing. Nothing is written if |saved| is empty.
func WriteExport(w io.Writer, saved []Saved) error {
	if len(saved) == 0 {
		return nil
	}
	var bw = bufio.NewWriter(w)

	fmt.Fprintf(bw, "%s\n%s\n\n", ExportTitle, exportRule)
	for _, p := range saved {
		fmt.Fprintf(bw, "%s\n", p.Name)
		fmt.Fprintf(bw, "Barcode: %s\n", p.Barcode)
		fmt.Fprintf(bw, "Status: %s\n", p.Status.Label())
		fmt.Fprintf(bw, "Composition: %s\n", p.Composition)
		fmt.Fprintf(bw, "%s\n\n", exportSeparator)
	}
	return bw.Flush()
}
