package images

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
)

const jpegQuality = 90

// Converter prepares images for the web server: non-JPEG sources are
// re-encoded as JPEG and oversized images are downscaled. Prepared
// files are spooled into a temp directory that lives for the run.
type Converter struct {
	spoolDir string
	maxEdge  int
}

// NewConverter creates a converter. maxEdge bounds the longer image
// side; 0 disables downscaling.
func NewConverter(maxEdge int) (*Converter, error) {
	dir, err := os.MkdirTemp("", "wcsync-images-*")
	if err != nil {
		return nil, fmt.Errorf("create image spool: %w", err)
	}
	return &Converter{spoolDir: dir, maxEdge: maxEdge}, nil
}

// Prepare returns a path suitable for upload. JPEG files within the
// size bound pass through untouched; everything else is converted into
// the spool directory.
func (c *Converter) Prepare(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	isJPEG := ext == ".jpg" || ext == ".jpeg"

	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("open image %s: %w", path, err)
	}

	bounds := img.Bounds()
	oversized := c.maxEdge > 0 && (bounds.Dx() > c.maxEdge || bounds.Dy() > c.maxEdge)
	if isJPEG && !oversized {
		return path, nil
	}

	if oversized {
		img = imaging.Fit(img, c.maxEdge, c.maxEdge, imaging.Lanczos)
	}

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	out := filepath.Join(c.spoolDir, stem+".jpg")
	if err := imaging.Save(img, out, imaging.JPEGQuality(jpegQuality)); err != nil {
		return "", fmt.Errorf("convert image %s: %w", path, err)
	}
	return out, nil
}

// Close removes the spool directory.
func (c *Converter) Close() error {
	return os.RemoveAll(c.spoolDir)
}
