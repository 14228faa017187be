// Package csvfeed reads a supplier CSV export and produces canonical
// product records. The file is consumed in a single pass; re-open the
// file to read it again.
package csvfeed

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"

	"github.com/mytua/wcsync/internal/fieldmap"
	"github.com/mytua/wcsync/pkg/models"
)

// RowErrorKind tags the reason a row could not become a record.
type RowErrorKind string

const (
	MissingRequiredField RowErrorKind = "missing_required_field"
	DuplicateSKU         RowErrorKind = "duplicate_sku"
	Malformed            RowErrorKind = "malformed"
)

// RowError reports a single bad input row. The caller decides whether
// to skip-and-log or abort; the adapter never aborts the file for a
// row-scoped problem.
type RowError struct {
	Row  int
	SKU  string
	Kind RowErrorKind
	Msg  string
}

func (e *RowError) Error() string {
	if e.SKU != "" {
		return fmt.Sprintf("row %d (sku %s): %s: %s", e.Row, e.SKU, e.Kind, e.Msg)
	}
	return fmt.Sprintf("row %d: %s: %s", e.Row, e.Kind, e.Msg)
}

// Result is one row outcome: either a record or a row error, never
// both.
type Result struct {
	Record *models.ProductRecord
	Err    *RowError
}

// Options configures the adapter.
type Options struct {
	// FallbackEncoding is tried when the file is not valid UTF-8.
	// Supported: "windows-1251" (default), "cp1251", "iso-8859-1".
	FallbackEncoding string

	// Mapper overrides the default field mapper, mainly for tests.
	Mapper *fieldmap.Mapper
}

// Reader streams canonical records from one CSV file.
type Reader struct {
	cr      *csv.Reader
	headers []string
	fields  []fieldmap.Field
	row     int
	seen    map[string]int
}

// Open reads and decodes the file, locates the required columns and
// returns a row iterator. Encoding detection failure, an unreadable
// file, or a header without sku/name columns are file-level errors.
func Open(path string, opts Options) (*Reader, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read feed: %w", err)
	}

	decoded, err := decode(raw, opts.FallbackEncoding)
	if err != nil {
		return nil, err
	}

	cr := csv.NewReader(bytes.NewReader(decoded))
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	headers, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("feed is empty: %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(headers) > 0 {
		headers[0] = strings.TrimPrefix(headers[0], "\ufeff")
	}

	mapper := opts.Mapper
	if mapper == nil {
		mapper = fieldmap.New()
	}
	fields := mapper.ResolveAll(headers)

	if !hasField(fields, fieldmap.FieldSKU) || !hasField(fields, fieldmap.FieldName) {
		return nil, fmt.Errorf("feed header has no recognizable sku/name columns: %v", headers)
	}

	return &Reader{
		cr:      cr,
		headers: headers,
		fields:  fields,
		row:     1,
		seen:    make(map[string]int),
	}, nil
}

// Headers returns the raw header row after BOM stripping.
func (r *Reader) Headers() []string { return r.headers }

// Next returns the next row result. io.EOF signals the end of the feed.
func (r *Reader) Next() (Result, error) {
	for {
		cells, err := r.cr.Read()
		if err == io.EOF {
			return Result{}, io.EOF
		}
		r.row++
		if err != nil {
			return Result{Err: &RowError{Row: r.row, Kind: Malformed, Msg: err.Error()}}, nil
		}
		if blankRow(cells) {
			continue
		}
		return r.adapt(cells), nil
	}
}

// All drains the reader, mostly for tests and small feeds.
func (r *Reader) All() ([]Result, error) {
	var results []Result
	for {
		res, err := r.Next()
		if err == io.EOF {
			return results, nil
		}
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
}

func (r *Reader) adapt(cells []string) Result {
	rec := &models.ProductRecord{Row: r.row}

	for i, field := range r.fields {
		if i >= len(cells) {
			break // missing trailing columns are tolerated
		}
		value := cleanValue(cells[i])
		switch field {
		case fieldmap.FieldSKU:
			rec.SKU = value
		case fieldmap.FieldName:
			rec.Name = value
		case fieldmap.FieldBrand:
			rec.Brand = value
		case fieldmap.FieldCategory:
			rec.Category = value
		case fieldmap.FieldDescription:
			rec.Description = value
		case fieldmap.FieldCharacteristics:
			if value != "" {
				rec.Characteristics = append(rec.Characteristics,
					models.Characteristic{Name: r.headers[i], Value: value})
			}
		case fieldmap.FieldPrice:
			if d, err := decimal.NewFromString(value); err == nil {
				rec.Price = &d
			}
		case fieldmap.FieldStockQuantity:
			if n, err := strconv.Atoi(value); err == nil && n >= 0 {
				rec.StockQuantity = &n
			}
		case fieldmap.Unmapped:
			// Passthrough columns merge into characteristics so no
			// data is dropped.
			if value != "" {
				rec.Characteristics = append(rec.Characteristics,
					models.Characteristic{Name: r.headers[i], Value: value})
			}
		}
	}

	if rec.SKU == "" {
		return Result{Err: &RowError{Row: r.row, Kind: MissingRequiredField, Msg: "empty sku"}}
	}
	if rec.Name == "" {
		return Result{Err: &RowError{Row: r.row, SKU: rec.SKU, Kind: MissingRequiredField, Msg: "empty name"}}
	}

	key := strings.ToLower(rec.SKU)
	if first, dup := r.seen[key]; dup {
		return Result{Err: &RowError{
			Row:  r.row,
			SKU:  rec.SKU,
			Kind: DuplicateSKU,
			Msg:  fmt.Sprintf("sku already seen at row %d", first),
		}}
	}
	r.seen[key] = r.row

	return Result{Record: rec}
}

// decode returns the file content as UTF-8, applying the fallback
// legacy encoding when the raw bytes are not valid UTF-8.
func decode(raw []byte, fallback string) ([]byte, error) {
	if utf8.Valid(raw) {
		return raw, nil
	}

	var enc encoding.Encoding
	switch strings.ToLower(fallback) {
	case "", "windows-1251", "cp1251":
		enc = charmap.Windows1251
	case "iso-8859-1", "latin1":
		enc = charmap.ISO8859_1
	default:
		return nil, fmt.Errorf("unsupported fallback encoding: %s", fallback)
	}

	decoded, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return nil, fmt.Errorf("decode feed as %s: %w", fallback, err)
	}
	return decoded, nil
}

// cleanValue trims a cell and blanks the textual null tokens some
// exports emit.
func cleanValue(s string) string {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "nan", "none", "null":
		return ""
	}
	return s
}

func blankRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func hasField(fields []fieldmap.Field, want fieldmap.Field) bool {
	for _, f := range fields {
		if f == want {
			return true
		}
	}
	return false
}
