package woocommerce

import (
	"fmt"
	"html"
	"strings"

	"github.com/mytua/wcsync/pkg/models"
)

// Wire types for the WooCommerce REST v3 product endpoints.

type wcProduct struct {
	ID                int64     `json:"id,omitempty"`
	Name              string    `json:"name,omitempty"`
	Type              string    `json:"type,omitempty"`
	SKU               string    `json:"sku,omitempty"`
	RegularPrice      string    `json:"regular_price,omitempty"`
	Description       string    `json:"description,omitempty"`
	ShortDescription  string    `json:"short_description,omitempty"`
	Status            string    `json:"status,omitempty"`
	CatalogVisibility string    `json:"catalog_visibility,omitempty"`
	ManageStock       *bool     `json:"manage_stock,omitempty"`
	StockQuantity     *int      `json:"stock_quantity,omitempty"`
	Categories        []wcRef   `json:"categories,omitempty"`
	Images            []wcImage `json:"images,omitempty"`
	MetaData          []wcMeta  `json:"meta_data,omitempty"`

	// Error is set per item in batch responses.
	Error *wcItemError `json:"error,omitempty"`
}

type wcRef struct {
	ID int64 `json:"id"`
}

type wcImage struct {
	ID       int64  `json:"id,omitempty"`
	Src      string `json:"src,omitempty"`
	Position int    `json:"position"`
	Alt      string `json:"alt,omitempty"`
}

type wcMeta struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type wcItemError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type wcCategory struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug,omitempty"`
}

type wcBatchRequest struct {
	Create []wcProduct `json:"create,omitempty"`
	Update []wcProduct `json:"update,omitempty"`
}

type wcBatchResponse struct {
	Create []wcProduct `json:"create,omitempty"`
	Update []wcProduct `json:"update,omitempty"`
}

// toEntry converts an API product into the catalog entry shape the
// engine fingerprints.
func toEntry(p wcProduct) *models.CatalogEntry {
	entry := &models.CatalogEntry{
		SKU:         p.SKU,
		RemoteID:    p.ID,
		Name:        p.Name,
		Price:       p.RegularPrice,
		Stock:       p.StockQuantity,
		Description: p.Description,
	}
	for _, img := range p.Images {
		entry.ImageURLs = append(entry.ImageURLs, img.Src)
	}
	return entry
}

// buildProduct assembles the create/update payload for one record.
// URLs are attached in order; the first becomes the featured image.
func buildProduct(rec *models.ProductRecord, urls []string, categoryID int64) wcProduct {
	manageStock := rec.StockQuantity != nil
	p := wcProduct{
		Name:              rec.FullName(),
		Type:              "simple",
		SKU:               rec.SKU,
		Description:       BuildDescription(rec),
		ShortDescription:  shortDescription(rec),
		Status:            "publish",
		CatalogVisibility: "visible",
		ManageStock:       &manageStock,
	}
	if rec.HasPrice() {
		p.RegularPrice = rec.Price.String()
	}
	if manageStock {
		p.StockQuantity = rec.StockQuantity
	}
	if categoryID > 0 {
		p.Categories = []wcRef{{ID: categoryID}}
	}
	for i, u := range urls {
		p.Images = append(p.Images, wcImage{Src: u, Position: i, Alt: rec.FullName()})
	}
	if rec.Brand != "" {
		p.MetaData = append(p.MetaData,
			wcMeta{Key: "_product_brand", Value: rec.Brand},
			wcMeta{Key: "brand", Value: rec.Brand},
		)
	}
	return p
}

// BuildDescription renders the product description: a heading, the
// free-text description, and the characteristics as a table. Kept
// deterministic so remote descriptions fingerprint-compare cleanly.
func BuildDescription(rec *models.ProductRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<h3>%s</h3>\n", html.EscapeString(rec.FullName()))

	if rec.Description != "" {
		fmt.Fprintf(&b, "<p>%s</p>\n", html.EscapeString(rec.Description))
	}

	if len(rec.Characteristics) > 0 {
		b.WriteString("<h4>Technical Specifications</h4>\n<table>\n")
		for _, c := range rec.Characteristics {
			fmt.Fprintf(&b, "<tr><td>%s</td><td>%s</td></tr>\n",
				html.EscapeString(c.Name), html.EscapeString(c.Value))
		}
		b.WriteString("</table>\n")
	}

	var info []string
	if rec.Brand != "" {
		info = append(info, "<strong>Brand:</strong> "+html.EscapeString(rec.Brand))
	}
	info = append(info, "<strong>SKU:</strong> "+html.EscapeString(rec.SKU))
	b.WriteString("<p>" + strings.Join(info, "<br>") + "</p>\n")

	return b.String()
}

func shortDescription(rec *models.ProductRecord) string {
	name := rec.Name
	if len(name) > 100 {
		name = name[:100]
	}
	return name
}

// slugify derives a category slug the way the storefront expects.
func slugify(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.ReplaceAll(s, " ", "-")
	s = strings.ReplaceAll(s, "/", "-")
	return s
}
