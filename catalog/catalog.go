// Package catalog loads the read-only product catalog which scanned
// barcodes are resolved against.
package catalog

import (
	"encoding/csv"
	"io"
	"strings"
	"unicode/utf16"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"go.arnest.dev/scan/product"
)

// Catalog is an immutable, ordered collection of Products.
type Catalog struct {
	products  []product.Product
	byBarcode map[string]int
}

// New returns a Catalog of the Products, in order.
func New(products ...product.Product) *Catalog {
	var c = &Catalog{byBarcode: make(map[string]int)}
	for _, p := range products {
		c.add(p)
	}
	return c
}

// Load parses the catalog CSV at |path| of |fs|.
func Load(fs afero.Fs, path string) (*Catalog, error) {
	var f, err = fs.Open(path)
	if err != nil {
		return nil, errors.WithMessage(err, "opening catalog")
	}
	defer f.Close()

	c, err := Parse(f)
	if err != nil {
		return nil, errors.WithMessagef(err, "parsing catalog %s", path)
	}
	log.WithFields(log.Fields{
		"path":     path,
		"products": c.Len(),
	}).Debug("loaded catalog")

	return c, nil
}

// Parse a catalog CSV from |r|. The first record is a header, and is
// skipped. Each further record has fields name, barcode, image URLs
// (separated by product.ImageURLSeparator) and composition. Records having
// fewer fields, or an empty name, are skipped. Where barcodes repeat, the
// first Product of the barcode is the one found by ByBarcode.
//
// Fields follow RFC 4180 quoting. A quote within an unquoted field is kept
// literally and does not protect a following comma, so `abc "x, y" def`
// is two fields. Quote any field which holds a comma.
func Parse(r io.Reader) (*Catalog, error) {
	var cr = csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var c = New()

	if _, err := cr.Read(); err == io.EOF {
		return c, nil
	} else if err != nil {
		return nil, err
	}
	for {
		var fields, err = cr.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, err
		} else if len(fields) < 4 {
			continue
		}

		var p = product.Product{
			Name:        strings.TrimSpace(fields[0]),
			Barcode:     strings.TrimSpace(fields[1]),
			ImageURLs:   product.SplitImageURLs(fields[2]),
			Composition: strings.TrimSpace(fields[3]),
		}
		if p.Name == "" {
			continue
		}
		c.add(p)
	}
	return c, nil
}

func (c *Catalog) add(p product.Product) {
	if _, ok := c.byBarcode[p.Barcode]; !ok {
		c.byBarcode[p.Barcode] = len(c.products)
	}
	c.products = append(c.products, p)
}

// Len returns the number of Products in the Catalog.
func (c *Catalog) Len() int { return len(c.products) }

// All returns all Products, in catalog order. The caller must not modify it.
func (c *Catalog) All() []product.Product { return c.products }

// ByBarcode returns the Product of |barcode|.
func (c *Catalog) ByBarcode(barcode string) (product.Product, bool) {
	if ind, ok := c.byBarcode[barcode]; ok {
		return c.products[ind], true
	}
	return product.Product{}, false
}

// SearchName returns Products whose name contains |query|, ignoring case.
func (c *Catalog) SearchName(query string) []product.Product {
	var lower = strings.ToLower(query)
	var out []product.Product

	for _, p := range c.products {
		if strings.Contains(strings.ToLower(p.Name), lower) {
			out = append(out, p)
		}
	}
	return out
}

// StubSafety returns a placeholder SafetyStatus of |barcode|, pending real
// composition analysis. It's deterministic: the absolute 32-bit string hash
// of the barcode, modulo three, selects Safe, Moderate or Risky. The hash is
// that of Java's String.hashCode, over UTF-16 code units, so classifications
// agree with those shown by the mobile application.
func StubSafety(barcode string) product.SafetyStatus {
	var h int32
	for _, u := range utf16.Encode([]rune(barcode)) {
		h = 31*h + int32(u)
	}
	if h < 0 {
		h = -h
	}
	switch h % 3 {
	case 0:
		return product.Safe
	case 1:
		return product.Moderate
	default:
		return product.Risky
	}
}
