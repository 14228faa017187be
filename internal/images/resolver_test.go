package images

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeSKU(t *testing.T) {
	testCases := []struct {
		in   string
		want string
	}{
		{"B2", "b2"},
		{" B-2/X ", "b2x"},
		{"АР-15", "ар15"},
		{"Ёлка", "ёлка"},
		{"", ""},
	}

	for _, tc := range testCases {
		if got := NormalizeSKU(tc.in); got != tc.want {
			t.Errorf("NormalizeSKU(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func touchFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
	}
}

func TestMatch(t *testing.T) {
	dir := t.TempDir()
	touchFiles(t, dir,
		"B2.png", "B2.jpg", "B2-alt.png", "B2_back.jpg",
		"B21.png", "B2.txt", ".B2.jpg", "C3.jpg",
	)

	r := NewResolver(dir, "products", nil, nil)

	t.Run("featured image first, variants after", func(t *testing.T) {
		got, err := r.Match("B2")
		require.NoError(t, err)
		// Exact stems ranked jpg before png; variants sorted by name.
		// B21.png must not match; neither do non-images or dotfiles.
		assert.Equal(t, []string{"B2.jpg", "B2.png", "B2-alt.png", "B2_back.jpg"}, got)
	})

	t.Run("sku with separators matches plain stem", func(t *testing.T) {
		got, err := r.Match("b-2")
		require.NoError(t, err)
		assert.Contains(t, got, "B2.jpg")
	})

	t.Run("no match yields nothing", func(t *testing.T) {
		got, err := r.Match("ZZ9")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("empty sku yields nothing", func(t *testing.T) {
		got, err := r.Match("")
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestMatchConcurrent(t *testing.T) {
	dir := t.TempDir()
	touchFiles(t, dir, "B2.jpg", "B2-alt.png", "C3.jpg")

	r := NewResolver(dir, "products", nil, nil)

	// One resolver is shared by the sync worker pool; the first calls
	// race to read the directory listing.
	var wg sync.WaitGroup
	results := make([][]string, 8)
	errs := make([]error, 8)
	for i := range results {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = r.Match("B2")
		}()
	}
	wg.Wait()

	for i := range results {
		require.NoError(t, errs[i])
		assert.Equal(t, []string{"B2.jpg", "B2-alt.png"}, results[i])
	}
}

type fakeUploader struct {
	uploads []string
	fail    error
}

func (f *fakeUploader) EnsureUploaded(_ context.Context, localPath, remoteDir string, _ bool) (string, error) {
	if f.fail != nil {
		return "", f.fail
	}
	f.uploads = append(f.uploads, localPath)
	return "https://img.example.com/" + remoteDir + "/" + filepath.Base(localPath), nil
}

func writeJPEG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.White)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, jpeg.Encode(f, img, nil))
}

func TestResolveUploadsMatches(t *testing.T) {
	dir := t.TempDir()
	writeJPEG(t, filepath.Join(dir, "B2.jpg"), 10, 10)
	writeJPEG(t, filepath.Join(dir, "B2-alt.jpg"), 10, 10)

	up := &fakeUploader{}
	r := NewResolver(dir, "products", up, nil)

	resolved, err := r.Resolve(context.Background(), "B2")
	require.NoError(t, err)
	assert.False(t, resolved.Empty())
	assert.Len(t, up.uploads, 2)
	assert.Equal(t, "https://img.example.com/products/B2.jpg", resolved.FeaturedURL())
	assert.Len(t, resolved.URLs, 2)
}

func TestResolveNoMatchIsNotAnError(t *testing.T) {
	dir := t.TempDir()

	up := &fakeUploader{}
	r := NewResolver(dir, "products", up, nil)

	resolved, err := r.Resolve(context.Background(), "B2")
	require.NoError(t, err)
	assert.True(t, resolved.Empty())
	assert.Empty(t, up.uploads)
}

func TestResolveUploadFailureReturnsPartial(t *testing.T) {
	dir := t.TempDir()
	writeJPEG(t, filepath.Join(dir, "B2.jpg"), 10, 10)

	up := &fakeUploader{fail: fmt.Errorf("connection reset")}
	r := NewResolver(dir, "products", up, nil)

	resolved, err := r.Resolve(context.Background(), "B2")
	require.Error(t, err)
	assert.Len(t, resolved.LocalPaths, 1)
	assert.Empty(t, resolved.URLs)
}

func TestConverterDownscalesAndConverts(t *testing.T) {
	dir := t.TempDir()

	conv, err := NewConverter(100)
	require.NoError(t, err)
	defer conv.Close()

	t.Run("small jpeg passes through", func(t *testing.T) {
		src := filepath.Join(dir, "small.jpg")
		writeJPEG(t, src, 50, 50)

		out, err := conv.Prepare(src)
		require.NoError(t, err)
		assert.Equal(t, src, out)
	})

	t.Run("oversized jpeg is downscaled into the spool", func(t *testing.T) {
		src := filepath.Join(dir, "big.jpg")
		writeJPEG(t, src, 300, 150)

		out, err := conv.Prepare(src)
		require.NoError(t, err)
		assert.NotEqual(t, src, out)

		f, err := os.Open(out)
		require.NoError(t, err)
		defer f.Close()
		cfg, _, err := image.DecodeConfig(f)
		require.NoError(t, err)
		assert.Equal(t, 100, cfg.Width)
		assert.Equal(t, 50, cfg.Height)
	})
}
