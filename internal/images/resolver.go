// Package images finds local product images by SKU and turns them into
// public URLs via the remote store, converting to web-friendly JPEG on
// the way when needed.
package images

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/mytua/wcsync/pkg/models"
)

// Uploader is the remote store dependency; satisfied by
// *sftpstore.Store.
type Uploader interface {
	EnsureUploaded(ctx context.Context, localPath, remoteDir string, force bool) (string, error)
}

// extPriority orders extensions for choosing the featured image.
// Lower is better; unknown image extensions rank last.
var extPriority = map[string]int{
	".jpg":  0,
	".jpeg": 1,
	".png":  2,
	".webp": 3,
	".gif":  4,
}

// Resolver matches images in a local directory against SKUs and
// uploads them. The directory listing is read once per resolver and
// is safe to share across concurrent Resolve calls.
type Resolver struct {
	dir       string
	remoteDir string
	uploader  Uploader
	converter *Converter

	loadOnce sync.Once
	loadErr  error
	entries  []string // filenames, read-only after loadOnce
}

// NewResolver creates a resolver over one images directory. remoteDir
// is the directory under the store's base path (usually "products").
// converter may be nil to upload files untouched.
func NewResolver(dir, remoteDir string, uploader Uploader, converter *Converter) *Resolver {
	return &Resolver{dir: dir, remoteDir: remoteDir, uploader: uploader, converter: converter}
}

// Resolve finds the images for one SKU and ensures they are uploaded.
// No local match is not an error: it yields an empty ResolvedImage and
// the caller decides whether that matters. An upload failure returns
// the partial result along with the error.
func (r *Resolver) Resolve(ctx context.Context, sku string) (models.ResolvedImage, error) {
	resolved := models.ResolvedImage{SKU: sku}

	matches, err := r.Match(sku)
	if err != nil {
		return resolved, err
	}
	if len(matches) == 0 {
		return resolved, nil
	}

	for _, name := range matches {
		resolved.LocalPaths = append(resolved.LocalPaths, filepath.Join(r.dir, name))
	}

	for _, local := range resolved.LocalPaths {
		if err := ctx.Err(); err != nil {
			return resolved, err
		}
		src := local
		if r.converter != nil {
			prepared, err := r.converter.Prepare(local)
			if err != nil {
				return resolved, err
			}
			src = prepared
		}
		url, err := r.uploader.EnsureUploaded(ctx, src, r.remoteDir, false)
		if err != nil {
			return resolved, err
		}
		resolved.URLs = append(resolved.URLs, url)
	}
	return resolved, nil
}

// Match returns the matching filenames for a SKU, featured image first.
// A file matches when its stem, reduced to lowercase alphanumerics,
// equals the reduced SKU, or equals it plus a dash/underscore suffix
// (gallery variants like B2-alt.png). Exact-stem matches are ranked by
// extension priority; everything else sorts by filename.
func (r *Resolver) Match(sku string) ([]string, error) {
	key := NormalizeSKU(sku)
	if key == "" {
		return nil, nil
	}
	if err := r.load(); err != nil {
		return nil, err
	}

	var exact, variants []string
	for _, name := range r.entries {
		ext := strings.ToLower(filepath.Ext(name))
		if _, ok := extPriority[ext]; !ok {
			continue
		}
		stem := NormalizeSKU(strings.TrimSuffix(name, filepath.Ext(name)))
		switch {
		case stem == key:
			exact = append(exact, name)
		case strings.HasPrefix(stem, key) && isVariant(name, key):
			variants = append(variants, name)
		}
	}
	if len(exact) == 0 && len(variants) == 0 {
		return nil, nil
	}

	sort.Slice(exact, func(i, j int) bool {
		pi := extPriority[strings.ToLower(filepath.Ext(exact[i]))]
		pj := extPriority[strings.ToLower(filepath.Ext(exact[j]))]
		if pi != pj {
			return pi < pj
		}
		return exact[i] < exact[j]
	})
	sort.Strings(variants)

	return append(exact, variants...), nil
}

func (r *Resolver) load() error {
	r.loadOnce.Do(func() {
		entries, err := os.ReadDir(r.dir)
		if err != nil {
			r.loadErr = err
			return
		}
		for _, e := range entries {
			if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
				continue
			}
			r.entries = append(r.entries, e.Name())
		}
	})
	return r.loadErr
}

// isVariant checks that the filename continues past the SKU with a
// separator, so SKU "B2" matches "B2-alt.png" but not "B21.png".
func isVariant(name, key string) bool {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	consumed := 0
	for i, r := range stem {
		if isAlnum(r) {
			consumed += len(string(toLower(r)))
		}
		if consumed >= len(key) {
			rest := stem[i+utf8RuneLen(r):]
			return strings.HasPrefix(rest, "-") || strings.HasPrefix(rest, "_")
		}
	}
	return false
}

func utf8RuneLen(r rune) int { return len(string(r)) }

// NormalizeSKU reduces a SKU to the form used for filename matching:
// lowercase, letters and digits only. Cyrillic letters count.
func NormalizeSKU(sku string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(sku) {
		if isAlnum(r) {
			b.WriteRune(toLower(r))
		}
	}
	return b.String()
}

func isAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9') ||
		(r >= 'а' && r <= 'я') || (r >= 'А' && r <= 'Я') || r == 'ё' || r == 'Ё'
}

func toLower(r rune) rune {
	switch {
	case r >= 'A' && r <= 'Z':
		return r + ('a' - 'A')
	case r >= 'А' && r <= 'Я':
		return r + ('а' - 'А')
	case r == 'Ё':
		return 'ё'
	}
	return r
}
