package store

import (
	"database/sql"

	"github.com/pkg/errors"
)

// Table identifies a table of the store, and is the unit of change tracking
// for Subscriptions.
type Table string

// SavedProductsTable holds SavedProducts keyed on barcode.
const SavedProductsTable Table = "saved_products"

// Columns of SavedProductsTable.
const (
	ColumnBarcode      = "barcode"
	ColumnName         = "name"
	ColumnImageURLs    = "imageUrls"
	ColumnComposition  = "composition"
	ColumnSafetyStatus = "safetyStatus"
)

// productColumns are the columns of SavedProductsTable, in bind order.
var productColumns = [...]string{
	ColumnBarcode,
	ColumnName,
	ColumnImageURLs,
	ColumnComposition,
	ColumnSafetyStatus,
}

// SavedProduct is a product saved by the user, identified by its barcode.
// Values returned from reads are copies owned by the caller.
type SavedProduct struct {
	Barcode string `json:"barcode" yaml:"barcode"`
	Name    string `json:"name" yaml:"name"`
	// ImageURLs is a serialized list of image URLs.
	ImageURLs   string `json:"imageUrls" yaml:"imageUrls"`
	Composition string `json:"composition" yaml:"composition"`
	// SafetyStatus is a serialized safety classification.
	SafetyStatus string `json:"safetyStatus" yaml:"safetyStatus"`
}

// encodeProduct returns the bind arguments of |p|, ordered as productColumns.
func encodeProduct(p SavedProduct) []interface{} {
	return []interface{}{p.Barcode, p.Name, p.ImageURLs, p.Composition, p.SafetyStatus}
}

// fields returns pointers to the fields of |p|, ordered as productColumns.
func (p *SavedProduct) fields() [len(productColumns)]*string {
	return [...]*string{&p.Barcode, &p.Name, &p.ImageURLs, &p.Composition, &p.SafetyStatus}
}

// columnIndex maps each of productColumns to its offset within a result row.
type columnIndex [len(productColumns)]int

func newColumnIndex(columns []string) (columnIndex, error) {
	var out columnIndex

	for i, name := range productColumns {
		out[i] = -1
		for j, c := range columns {
			if c == name {
				out[i] = j
				break
			}
		}
		if out[i] == -1 {
			return out, &DecodeError{Column: name}
		}
	}
	return out, nil
}

// decodeProducts reads all remaining |rows| into SavedProducts. Columns are
// located by name, so the result may carry them in any order (and may carry
// additional columns, which are ignored). The caller retains ownership of
// |rows| and must close it.
func decodeProducts(rows *sql.Rows) ([]SavedProduct, error) {
	var columns, err = rows.Columns()
	if err != nil {
		return nil, err
	}
	ind, err := newColumnIndex(columns)
	if err != nil {
		return nil, err
	}

	var raw = make([]interface{}, len(columns))
	var dest = make([]interface{}, len(columns))
	for i := range raw {
		dest[i] = &raw[i]
	}

	var out = make([]SavedProduct, 0, 8)
	for rows.Next() {
		if err = rows.Scan(dest...); err != nil {
			return nil, err
		}
		var p SavedProduct
		for i, f := range p.fields() {
			if *f, err = textValue(productColumns[i], raw[ind[i]]); err != nil {
				return nil, err
			}
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func textValue(column string, v interface{}) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case []byte:
		return string(t), nil
	case nil:
		return "", &DecodeError{Column: column, Err: errors.New("unexpected NULL")}
	default:
		return "", &DecodeError{Column: column, Err: errors.Errorf("expected TEXT, got %T", v)}
	}
}
