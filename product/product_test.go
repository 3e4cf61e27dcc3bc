package product

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"go.arnest.dev/scan/store"
)

func TestSavedMappingRoundTrip(t *testing.T) {
	var p = Product{
		Name:        "Soap",
		Barcode:     "001",
		ImageURLs:   []string{"https://img/1.jpg", "https://img/2.jpg"},
		Composition: "water, fragrance",
	}
	var sp = ToSaved(p, Risky)

	require.Equal(t, store.SavedProduct{
		Barcode:      "001",
		Name:         "Soap",
		ImageURLs:    "https://img/1.jpg / https://img/2.jpg",
		Composition:  "water, fragrance",
		SafetyStatus: "RISKY",
	}, sp)
	require.Equal(t, Saved{Product: p, Status: Risky}, FromSaved(sp))
}

func TestFromSavedFallbacks(t *testing.T) {
	var saved = FromSaved(store.SavedProduct{
		Barcode:      "002",
		ImageURLs:    " / https://img/1.jpg /  / ",
		SafetyStatus: "safe", // Statuses are case-sensitive.
	})
	require.Equal(t, Moderate, saved.Status)
	require.Equal(t, []string{"https://img/1.jpg"}, saved.ImageURLs)

	require.Nil(t, FromSaved(store.SavedProduct{}).ImageURLs)
}

func TestParseSafetyStatus(t *testing.T) {
	for _, s := range []SafetyStatus{Safe, Moderate, Risky} {
		var out, err = ParseSafetyStatus(string(s))
		require.NoError(t, err)
		require.Equal(t, s, out)
	}
	var _, err = ParseSafetyStatus("UNKNOWN")
	require.EqualError(t, err, `invalid safety status "UNKNOWN"`)
}

func TestSummarize(t *testing.T) {
	var saved = FromSavedAll([]store.SavedProduct{
		{Barcode: "1", SafetyStatus: "SAFE"},
		{Barcode: "2", SafetyStatus: "RISKY"},
		{Barcode: "3", SafetyStatus: "SAFE"},
		{Barcode: "4", SafetyStatus: "bogus"},
	})
	require.Equal(t, Summary{Total: 4, Safe: 2, Moderate: 1, Risky: 1}, Summarize(saved))
	require.Equal(t, Summary{}, Summarize(nil))
}

func TestWriteExport(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteExport(&buf, nil))
	require.Empty(t, buf.String())

	require.NoError(t, WriteExport(&buf, []Saved{
		{Product: Product{Name: "Soap", Barcode: "001", Composition: "water"}, Status: Safe},
		{Product: Product{Name: "Gel", Barcode: "002", Composition: "alcohol"}, Status: Risky},
	}))
	require.Equal(t, `Saved products - ArnestScan
========================================

Soap
Barcode: 001
Status: Safe
Composition: water
----------------------------------------

Gel
Barcode: 002
Status: Risky
Composition: alcohol
----------------------------------------

`, buf.String())
}
