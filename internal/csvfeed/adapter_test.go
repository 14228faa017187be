package csvfeed

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

func writeFeed(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "feed.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestOpenRejectsHeaderWithoutRequiredColumns(t *testing.T) {
	path := writeFeed(t, "Color,Weight\nred,5\n")

	_, err := Open(path, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sku/name")
}

func TestOpenRejectsEmptyFile(t *testing.T) {
	path := writeFeed(t, "")

	_, err := Open(path, Options{})
	require.Error(t, err)
}

func TestReadTypicalFeed(t *testing.T) {
	path := writeFeed(t, "Артикул,Название,Бренд,Цена,Остаток\n"+
		"A1,Перфоратор,Makita,12990.50,3\n"+
		"A2,Дрель,Bosch,0,10\n")

	r, err := Open(path, Options{})
	require.NoError(t, err)

	results, err := r.All()
	require.NoError(t, err)
	require.Len(t, results, 2)

	first := results[0].Record
	require.NotNil(t, first)
	assert.Equal(t, "A1", first.SKU)
	assert.Equal(t, "Перфоратор", first.Name)
	assert.Equal(t, "Makita", first.Brand)
	require.NotNil(t, first.Price)
	assert.Equal(t, "12990.5", first.Price.String())
	require.NotNil(t, first.StockQuantity)
	assert.Equal(t, 3, *first.StockQuantity)
	assert.Equal(t, 2, first.Row)

	// Zero price parses but does not count as priced.
	second := results[1].Record
	require.NotNil(t, second)
	assert.False(t, second.HasPrice())
}

func TestReadStripsBOM(t *testing.T) {
	path := writeFeed(t, "\ufeffSKU,Name\nB1,Widget\n")

	r, err := Open(path, Options{})
	require.NoError(t, err)
	assert.Equal(t, "SKU", r.Headers()[0])
}

func TestReadWindows1251Fallback(t *testing.T) {
	utf8Feed := "Артикул,Название\nC1,Отвёртка\n"
	encoded, err := charmap.Windows1251.NewEncoder().String(utf8Feed)
	require.NoError(t, err)

	path := writeFeed(t, encoded)

	r, err := Open(path, Options{})
	require.NoError(t, err)

	results, err := r.All()
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.NotNil(t, results[0].Record)
	assert.Equal(t, "Отвёртка", results[0].Record.Name)
}

func TestRowErrors(t *testing.T) {
	path := writeFeed(t, "SKU,Name\n"+
		",No Sku Here\n"+
		"D1,\n"+
		"D2,Fine Product\n"+
		"d2,Duplicate Of D2\n")

	r, err := Open(path, Options{})
	require.NoError(t, err)

	results, err := r.All()
	require.NoError(t, err)
	require.Len(t, results, 4)

	require.NotNil(t, results[0].Err)
	assert.Equal(t, MissingRequiredField, results[0].Err.Kind)
	assert.Equal(t, 2, results[0].Err.Row)

	require.NotNil(t, results[1].Err)
	assert.Equal(t, MissingRequiredField, results[1].Err.Kind)
	assert.Equal(t, "D1", results[1].Err.SKU)

	require.NotNil(t, results[2].Record)

	// Duplicate detection is case-insensitive; the first row wins.
	require.NotNil(t, results[3].Err)
	assert.Equal(t, DuplicateSKU, results[3].Err.Kind)
	assert.Contains(t, results[3].Err.Msg, "row 4")
}

func TestBlankRowsAndNullTokensSkipped(t *testing.T) {
	path := writeFeed(t, "SKU,Name,Brand\n"+
		"E1,Thing,nan\n"+
		",,\n"+
		"E2,Other,NULL\n")

	r, err := Open(path, Options{})
	require.NoError(t, err)

	results, err := r.All()
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "", results[0].Record.Brand)
	assert.Equal(t, "", results[1].Record.Brand)
}

func TestUnmappedColumnsBecomeCharacteristics(t *testing.T) {
	path := writeFeed(t, "SKU,Name,Мощность,Вес\nF1,Болгарка,900 Вт,2.1 кг\n")

	r, err := Open(path, Options{})
	require.NoError(t, err)

	results, err := r.All()
	require.NoError(t, err)
	require.Len(t, results, 1)

	rec := results[0].Record
	require.NotNil(t, rec)
	require.Len(t, rec.Characteristics, 2)
	assert.Equal(t, "Мощность", rec.Characteristics[0].Name)
	assert.Equal(t, "900 Вт", rec.Characteristics[0].Value)
}
