package models

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ProductRecord is one normalized row of the input feed. Records are
// immutable once produced by the CSV adapter.
type ProductRecord struct {
	SKU             string           `json:"sku"`
	Name            string           `json:"name"`
	Brand           string           `json:"brand,omitempty"`
	Category        string           `json:"category,omitempty"`
	Description     string           `json:"description,omitempty"`
	Characteristics []Characteristic `json:"characteristics,omitempty"`
	Price           *decimal.Decimal `json:"price,omitempty"`
	StockQuantity   *int             `json:"stock_quantity,omitempty"`

	// Row is the 1-based line number in the source file, kept for
	// error reporting only.
	Row int `json:"row,omitempty"`
}

// Characteristic is a single attribute name/value pair. A slice keeps
// the feed's column order, which a map would lose.
type Characteristic struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// HasPrice reports whether the record carries a usable price. Zero and
// negative prices count as absent, matching the feed convention where
// "0" means "not priced yet".
func (r *ProductRecord) HasPrice() bool {
	return r.Price != nil && r.Price.IsPositive()
}

// FullName returns the display name with the brand prefixed when the
// brand is not already part of the name.
func (r *ProductRecord) FullName() string {
	if r.Brand == "" {
		return r.Name
	}
	if strings.Contains(strings.ToLower(r.Name), strings.ToLower(r.Brand)) {
		return r.Name
	}
	return r.Brand + " " + r.Name
}

// ResolvedImage is the result of image resolution for one SKU. The
// first entry of each slice is the featured image; order is preserved.
// URLs never has more entries than LocalPaths.
type ResolvedImage struct {
	SKU        string   `json:"sku"`
	LocalPaths []string `json:"local_paths,omitempty"`
	URLs       []string `json:"urls,omitempty"`
}

// Empty reports whether no local image matched the SKU.
func (ri ResolvedImage) Empty() bool {
	return len(ri.LocalPaths) == 0
}

// FeaturedURL returns the primary image URL, or "" when none resolved.
func (ri ResolvedImage) FeaturedURL() string {
	if len(ri.URLs) == 0 {
		return ""
	}
	return ri.URLs[0]
}

// CatalogEntry is the remote state for one SKU as seen by the catalog
// client.
type CatalogEntry struct {
	SKU         string   `json:"sku"`
	RemoteID    int64    `json:"remote_id"`
	Name        string   `json:"name,omitempty"`
	Price       string   `json:"price,omitempty"`
	Stock       *int     `json:"stock,omitempty"`
	Description string   `json:"description,omitempty"`
	ImageURLs   []string `json:"image_urls,omitempty"`
}

// Fingerprint derives the comparison key used to decide whether an
// update would be a no-op. It covers name, price, stock, description
// and the image URL set, in a fixed order.
func (e *CatalogEntry) Fingerprint() string {
	stock := ""
	if e.Stock != nil {
		stock = strconv.Itoa(*e.Stock)
	}
	return fingerprint(e.Name, normalizePrice(e.Price), stock, e.Description, e.ImageURLs)
}

// DescriptionFingerprint narrows the comparison to the description
// field only.
func DescriptionFingerprint(description string) string {
	return fingerprint(description)
}

// ImageFingerprint narrows the comparison to the image URL set only.
func ImageFingerprint(urls []string) string {
	return fingerprint(urls)
}

// normalizePrice strips trailing zeros so "9.90" and "9.9000" compare
// equal between the API's string prices and decimal formatting.
func normalizePrice(price string) string {
	d, err := decimal.NewFromString(price)
	if err != nil || !d.IsPositive() {
		return ""
	}
	return d.String()
}

func fingerprint(parts ...any) string {
	h := sha256.New()
	for _, p := range parts {
		switch v := p.(type) {
		case string:
			h.Write([]byte(v))
		case []string:
			for _, s := range v {
				h.Write([]byte(s))
				h.Write([]byte{0})
			}
		}
		h.Write([]byte{0x1f})
	}
	return hex.EncodeToString(h.Sum(nil))
}
