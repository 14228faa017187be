package engine

import (
	"github.com/mytua/wcsync/internal/woocommerce"
	"github.com/mytua/wcsync/pkg/models"
)

// UpdateMode selects which fields an update touches and when an
// existing product is rewritten at all.
type UpdateMode string

const (
	// ModeAll rewrites every field when anything changed.
	ModeAll UpdateMode = "all"
	// ModeImages touches only the image gallery.
	ModeImages UpdateMode = "images"
	// ModeDescription touches only the description.
	ModeDescription UpdateMode = "description"
	// ModeMissing updates a product only when it lacks a name,
	// description, images or a price.
	ModeMissing UpdateMode = "missing"
)

// decide maps a record plus its current catalog state to an action.
// entry is nil when the SKU does not exist remotely. Images are
// resolved before this runs, so fingerprints can include the gallery.
func (e *Engine) decide(rec *models.ProductRecord, entry *models.CatalogEntry, images models.ResolvedImage) models.SyncAction {
	if entry == nil {
		return models.SyncAction{Kind: models.ActionCreate, Record: rec, Images: images}
	}

	// skip_existing wins over every update mode.
	if e.opts.SkipExisting {
		return models.SyncAction{
			Kind:   models.ActionSkip,
			Record: rec,
			Reason: "already exists",
		}
	}

	update := models.SyncAction{
		Kind:     models.ActionUpdate,
		Record:   rec,
		Images:   images,
		RemoteID: entry.RemoteID,
	}

	switch e.opts.UpdateMode {
	case ModeImages:
		if images.Empty() {
			return models.SyncAction{Kind: models.ActionSkip, Record: rec, Reason: "no local images"}
		}
		if models.ImageFingerprint(images.URLs) == models.ImageFingerprint(entry.ImageURLs) {
			return models.SyncAction{Kind: models.ActionSkip, Record: rec, Reason: "images unchanged"}
		}
		update.ImagesOnly = true
		return update

	case ModeDescription:
		want := woocommerce.BuildDescription(rec)
		if models.DescriptionFingerprint(want) == models.DescriptionFingerprint(entry.Description) {
			return models.SyncAction{Kind: models.ActionSkip, Record: rec, Reason: "description unchanged"}
		}
		update.DescriptionOnly = true
		return update

	case ModeMissing:
		if entry.Name != "" && entry.Description != "" && len(entry.ImageURLs) > 0 && entry.Price != "" {
			return models.SyncAction{Kind: models.ActionSkip, Record: rec, Reason: "product complete"}
		}
		return update

	default: // ModeAll
		if desiredFingerprint(rec, images.URLs) == entry.Fingerprint() {
			return models.SyncAction{Kind: models.ActionSkip, Record: rec, Reason: "unchanged"}
		}
		return update
	}
}

// desiredFingerprint is the fingerprint the catalog entry would carry
// after a full update, including the rendered description.
func desiredFingerprint(rec *models.ProductRecord, urls []string) string {
	want := models.CatalogEntry{
		Name:        rec.FullName(),
		Stock:       rec.StockQuantity,
		Description: woocommerce.BuildDescription(rec),
		ImageURLs:   urls,
	}
	if rec.HasPrice() {
		want.Price = rec.Price.String()
	}
	return want.Fingerprint()
}

// needsImages reports whether the eventual action for this record can
// use the image gallery, so the resolver stage knows what to upload.
func (e *Engine) needsImages(entry *models.CatalogEntry) bool {
	if entry == nil {
		return true // create always carries images
	}
	if e.opts.SkipExisting {
		return false
	}
	return e.opts.UpdateMode != ModeDescription
}
