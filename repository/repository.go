// Package repository composes the product Catalog with the saved-product
// Store, exposing the operations of the scanner application.
package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.arnest.dev/scan/catalog"
	"go.arnest.dev/scan/product"
	"go.arnest.dev/scan/store"
)

// MinNameQueryLen is the minimum length of a name query. Shorter queries
// match nothing.
const MinNameQueryLen = 2

// Repository resolves catalog Products and manages saved Products.
type Repository struct {
	catalog *catalog.Catalog
	store   *store.Store
}

// New returns a Repository of the Catalog and Store.
func New(c *catalog.Catalog, s *store.Store) *Repository {
	return &Repository{catalog: c, store: s}
}

// Catalog returns the Repository's Catalog.
func (r *Repository) Catalog() *catalog.Catalog { return r.catalog }

// SearchByBarcode returns the catalog Product of |barcode|.
func (r *Repository) SearchByBarcode(barcode string) (product.Product, bool) {
	return r.catalog.ByBarcode(barcode)
}

// SearchByName returns catalog Products whose name contains |query|,
// ignoring case. Queries shorter than MinNameQueryLen return nil.
func (r *Repository) SearchByName(query string) []product.Product {
	if len([]rune(query)) < MinNameQueryLen {
		return nil
	}
	return r.catalog.SearchName(query)
}

// Classify returns the SafetyStatus of the Product.
func (r *Repository) Classify(p product.Product) product.SafetyStatus {
	return catalog.StubSafety(p.Barcode)
}

// SaveProduct saves the Product with its SafetyStatus, replacing any
// Product previously saved under its barcode.
func (r *Repository) SaveProduct(ctx context.Context, p product.Product, status product.SafetyStatus) error {
	if err := r.store.Insert(ctx, product.ToSaved(p, status)); err != nil {
		return errors.WithMessagef(err, "saving %s", p.Barcode)
	}
	log.WithFields(log.Fields{
		"barcode": p.Barcode,
		"status":  status,
	}).Debug("saved product")

	return nil
}

// RemoveProduct removes the saved Product of |barcode|, if any.
func (r *Repository) RemoveProduct(ctx context.Context, barcode string) error {
	if err := r.store.DeleteByBarcode(ctx, barcode); err != nil {
		return errors.WithMessagef(err, "removing %s", barcode)
	}
	return nil
}

// IsSaved returns whether a Product of |barcode| is saved.
func (r *Repository) IsSaved(ctx context.Context, barcode string) (bool, error) {
	return r.store.Exists(ctx, barcode)
}

// ListSaved returns all saved Products, in order of saving.
func (r *Repository) ListSaved(ctx context.Context) ([]product.Saved, error) {
	var sps, err = r.store.QueryAll(ctx)
	if err != nil {
		return nil, err
	}
	return product.FromSavedAll(sps), nil
}

// WatchSaved returns a SavedStream of all saved Products.
func (r *Repository) WatchSaved() (*SavedStream, error) {
	var ps, err = r.store.WatchAll()
	if err != nil {
		return nil, err
	}
	return &SavedStream{ps: ps}, nil
}

// SavedStream is a live view of saved Products.
type SavedStream struct {
	ps *store.ProductStream
}

// ID identifies the SavedStream.
func (s *SavedStream) ID() uuid.UUID { return s.ps.ID() }

// Next returns the current saved Products on its first call, and thereafter
// blocks until they change. See store.ProductStream.Next.
func (s *SavedStream) Next(ctx context.Context) ([]product.Saved, error) {
	var sps, err = s.ps.Next(ctx)
	if err != nil {
		return nil, err
	}
	return product.FromSavedAll(sps), nil
}

// Close the SavedStream.
func (s *SavedStream) Close() { s.ps.Close() }
