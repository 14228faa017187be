package models

import (
	"testing"

	"github.com/shopspring/decimal"
)

func price(s string) *decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return &d
}

func TestHasPrice(t *testing.T) {
	testCases := []struct {
		name string
		rec  ProductRecord
		want bool
	}{
		{"positive price", ProductRecord{Price: price("12.50")}, true},
		{"zero price means unpriced", ProductRecord{Price: price("0")}, false},
		{"negative price means unpriced", ProductRecord{Price: price("-1")}, false},
		{"no price", ProductRecord{}, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.rec.HasPrice(); got != tc.want {
				t.Errorf("HasPrice() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestFullName(t *testing.T) {
	testCases := []struct {
		name string
		rec  ProductRecord
		want string
	}{
		{"brand prefixed", ProductRecord{Name: "Impact Drill", Brand: "Makita"}, "Makita Impact Drill"},
		{"brand already present", ProductRecord{Name: "Makita Impact Drill", Brand: "Makita"}, "Makita Impact Drill"},
		{"brand case insensitive", ProductRecord{Name: "MAKITA drill", Brand: "Makita"}, "MAKITA drill"},
		{"no brand", ProductRecord{Name: "Impact Drill"}, "Impact Drill"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.rec.FullName(); got != tc.want {
				t.Errorf("FullName() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestFingerprintPriceNormalization(t *testing.T) {
	a := CatalogEntry{Name: "X", Price: "9.90"}
	b := CatalogEntry{Name: "X", Price: "9.9000"}
	if a.Fingerprint() != b.Fingerprint() {
		t.Error("trailing zeros in the price changed the fingerprint")
	}

	c := CatalogEntry{Name: "X", Price: "9.91"}
	if a.Fingerprint() == c.Fingerprint() {
		t.Error("different prices produced the same fingerprint")
	}

	// Zero and absent prices compare equal.
	d := CatalogEntry{Name: "X", Price: "0"}
	e := CatalogEntry{Name: "X"}
	if d.Fingerprint() != e.Fingerprint() {
		t.Error("zero price should fingerprint like no price")
	}
}

func TestFingerprintFieldBoundaries(t *testing.T) {
	// Adjacent fields must not bleed into each other.
	a := CatalogEntry{Name: "ab", Description: "c"}
	b := CatalogEntry{Name: "a", Description: "bc"}
	if a.Fingerprint() == b.Fingerprint() {
		t.Error("field contents bled across the separator")
	}
}

func TestImageFingerprint(t *testing.T) {
	if ImageFingerprint([]string{"a", "b"}) == ImageFingerprint([]string{"b", "a"}) {
		t.Error("image order should matter")
	}
	if ImageFingerprint([]string{"ab"}) == ImageFingerprint([]string{"a", "b"}) {
		t.Error("url boundaries should matter")
	}
	if ImageFingerprint(nil) != ImageFingerprint([]string{}) {
		t.Error("nil and empty url sets should fingerprint equal")
	}
}

func TestResolvedImage(t *testing.T) {
	var empty ResolvedImage
	if !empty.Empty() {
		t.Error("zero value should be empty")
	}
	if empty.FeaturedURL() != "" {
		t.Error("empty resolution has no featured url")
	}

	ri := ResolvedImage{
		LocalPaths: []string{"/tmp/a.jpg", "/tmp/b.jpg"},
		URLs:       []string{"https://img/a.jpg", "https://img/b.jpg"},
	}
	if ri.Empty() {
		t.Error("resolved image with paths should not be empty")
	}
	if ri.FeaturedURL() != "https://img/a.jpg" {
		t.Errorf("FeaturedURL() = %q", ri.FeaturedURL())
	}
}

func TestRunSummaryTotal(t *testing.T) {
	s := RunSummary{Created: 1, Updated: 2, Skipped: 3, Failed: 4}
	if s.Total() != 10 {
		t.Errorf("Total() = %d, want 10", s.Total())
	}
}
