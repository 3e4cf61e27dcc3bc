package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.arnest.dev/scan/product"
	"gopkg.in/yaml.v2"
)

var fixture = []product.Saved{
	{
		Product: product.Product{
			Name:        "Lavender Soap",
			Barcode:     "4600001",
			ImageURLs:   []string{"https://img/1.jpg", "https://img/2.jpg"},
			Composition: "water, lavender oil",
		},
		Status: product.Safe,
	},
	{
		Product: product.Product{Name: "Shampoo", Barcode: "4600002", Composition: "water"},
		Status:  product.Risky,
	},
}

func TestWriteSavedTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeSaved(&buf, "table", fixture))

	var out = buf.String()
	for _, s := range []string{"4600001", "Lavender Soap", "Safe", "4600002", "Shampoo", "Risky"} {
		require.Contains(t, out, s)
	}
	require.True(t, strings.Index(out, "Lavender Soap") < strings.Index(out, "Shampoo"))
}

func TestWriteSavedYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeSaved(&buf, "yaml", fixture))

	var decoded []map[string]interface{}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 2)
	require.Equal(t, "Lavender Soap", decoded[0]["name"])
	require.Equal(t, "SAFE", decoded[0]["safetyStatus"])
	require.NotContains(t, decoded[1], "imageUrls")
}

func TestWriteSavedJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeSaved(&buf, "json", fixture))

	var lines = strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var decoded product.Saved
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &decoded))
	require.Equal(t, fixture[1], decoded)
}

func TestWriteSummary(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeSummary(&buf, product.Summarize(fixture)))

	var out = buf.String()
	for _, s := range []string{"Safe", "Moderate", "Risky", "Total", "2"} {
		require.Contains(t, out, s)
	}
}

func TestWriteProductsClassifies(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeProducts(&buf, []product.Product{fixture[0].Product},
		func(product.Product) product.SafetyStatus { return product.Moderate }))

	require.Contains(t, buf.String(), "Moderate")
	require.Contains(t, buf.String(), "water, lavender oil")
}

func TestTruncate(t *testing.T) {
	require.Equal(t, "short", truncate("short", 10))
	require.Equal(t, "a b c", truncate("a\n b\t c", 10))
	require.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}
