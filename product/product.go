// Package product models scanned products and their safety classification,
// and maps them to and from store.SavedProducts.
package product

import (
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.arnest.dev/scan/store"
)

// SafetyStatus classifies the safety of a Product's composition.
type SafetyStatus string

const (
	Safe     SafetyStatus = "SAFE"
	Moderate SafetyStatus = "MODERATE"
	Risky    SafetyStatus = "RISKY"
)

// ImageURLSeparator joins image URLs of a stored Product.
const ImageURLSeparator = " / "

// ParseSafetyStatus parses a serialized SafetyStatus.
func ParseSafetyStatus(s string) (SafetyStatus, error) {
	switch v := SafetyStatus(s); v {
	case Safe, Moderate, Risky:
		return v, nil
	default:
		return "", errors.Errorf("invalid safety status %q", s)
	}
}

// Label returns a human-readable label of the SafetyStatus.
func (s SafetyStatus) Label() string {
	switch s {
	case Safe:
		return "Safe"
	case Moderate:
		return "Moderate"
	case Risky:
		return "Risky"
	default:
		return string(s)
	}
}

// Product is a product of the catalog.
type Product struct {
	Name        string   `json:"name" yaml:"name"`
	Barcode     string   `json:"barcode" yaml:"barcode"`
	ImageURLs   []string `json:"imageUrls,omitempty" yaml:"imageUrls,omitempty"`
	Composition string   `json:"composition" yaml:"composition"`
}

// Saved is a Product saved with its SafetyStatus.
type Saved struct {
	Product `yaml:",inline"`
	Status  SafetyStatus `json:"safetyStatus" yaml:"safetyStatus"`
}

// ToSaved maps a Product and its SafetyStatus to a store.SavedProduct.
func ToSaved(p Product, status SafetyStatus) store.SavedProduct {
	return store.SavedProduct{
		Barcode:      p.Barcode,
		Name:         p.Name,
		ImageURLs:    strings.Join(p.ImageURLs, ImageURLSeparator),
		Composition:  p.Composition,
		SafetyStatus: string(status),
	}
}

// FromSaved maps a store.SavedProduct to a Saved. A stored SafetyStatus
// which doesn't parse is treated as Moderate.
func FromSaved(sp store.SavedProduct) Saved {
	var status, err = ParseSafetyStatus(sp.SafetyStatus)
	if err != nil {
		log.WithFields(log.Fields{
			"barcode": sp.Barcode,
			"err":     err,
		}).Debug("defaulting unrecognized safety status")
		status = Moderate
	}
	return Saved{
		Product: Product{
			Name:        sp.Name,
			Barcode:     sp.Barcode,
			ImageURLs:   SplitImageURLs(sp.ImageURLs),
			Composition: sp.Composition,
		},
		Status: status,
	}
}

// FromSavedAll maps each of |sps| with FromSaved.
func FromSavedAll(sps []store.SavedProduct) []Saved {
	var out = make([]Saved, len(sps))
	for i := range sps {
		out[i] = FromSaved(sps[i])
	}
	return out
}

// SplitImageURLs splits serialized image URLs, dropping blank entries.
func SplitImageURLs(s string) []string {
	var out []string
	for _, u := range strings.Split(s, ImageURLSeparator) {
		if u = strings.TrimSpace(u); u != "" {
			out = append(out, u)
		}
	}
	return out
}
