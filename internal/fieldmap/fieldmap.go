// Package fieldmap normalizes feed column headers into the canonical
// product schema. Supplier exports name the same columns differently
// (and in different languages), so each canonical field carries an
// ordered list of accepted synonyms.
package fieldmap

import "strings"

// Field is a canonical product field name.
type Field string

const (
	FieldSKU             Field = "sku"
	FieldName            Field = "name"
	FieldBrand           Field = "brand"
	FieldCategory        Field = "category"
	FieldDescription     Field = "description"
	FieldCharacteristics Field = "characteristics"
	FieldPrice           Field = "price"
	FieldStockQuantity   Field = "stock_quantity"

	// Unmapped marks a header with no canonical equivalent. Its values
	// are preserved as passthrough characteristics, never dropped.
	Unmapped Field = ""
)

// aliases maps each canonical field to its accepted header synonyms,
// in match-priority order. Matching is case-insensitive and trimmed.
var aliases = []struct {
	field Field
	names []string
}{
	{FieldSKU, []string{"Артикул", "SKU", "Код", "Code", "Article"}},
	{FieldName, []string{"Название", "Name", "Наименование", "Title", "Product Name"}},
	{FieldBrand, []string{"Бренд", "Brand", "Производитель", "Manufacturer"}},
	{FieldCategory, []string{"Категория", "Category", "Группа", "Group", "Type"}},
	{FieldDescription, []string{"Описание", "Description", "Desc", "Short Description"}},
	{FieldCharacteristics, []string{"Характеристики", "Characteristics", "Specs", "Technical Data", "Properties"}},
	{FieldPrice, []string{"Цена", "Price", "Cost", "Amount", "РРЦ"}},
	{FieldStockQuantity, []string{"Остаток", "Stock", "Quantity", "Qty", "В наличии"}},
}

// Mapper resolves headers to canonical fields. The alias table is
// static; resolution is deterministic for the process lifetime.
type Mapper struct {
	exact map[string]Field
}

// New builds a mapper from the built-in alias table.
func New() *Mapper {
	m := &Mapper{exact: make(map[string]Field)}
	for _, a := range aliases {
		for _, name := range a.names {
			key := normalize(name)
			if _, taken := m.exact[key]; !taken {
				m.exact[key] = a.field
			}
		}
	}
	return m
}

// Resolve maps a raw header to its canonical field. Exact synonym
// matches win; otherwise a substring fallback over the alias table is
// tried in table order. Headers that resolve to nothing return
// Unmapped.
func (m *Mapper) Resolve(header string) Field {
	key := normalize(header)
	if key == "" {
		return Unmapped
	}
	if f, ok := m.exact[key]; ok {
		return f
	}
	for _, a := range aliases {
		for _, name := range a.names {
			alias := normalize(name)
			if strings.Contains(key, alias) || strings.Contains(alias, key) {
				return a.field
			}
		}
	}
	return Unmapped
}

// ResolveAll maps a full header row to canonical fields, first match
// per field winning. The returned slice is parallel to headers.
func (m *Mapper) ResolveAll(headers []string) []Field {
	fields := make([]Field, len(headers))
	seen := make(map[Field]bool)
	for i, h := range headers {
		f := m.Resolve(h)
		if f != Unmapped && seen[f] {
			// A later duplicate of an already-mapped field is kept as
			// a passthrough characteristic instead of overwriting.
			f = Unmapped
		}
		fields[i] = f
		if f != Unmapped {
			seen[f] = true
		}
	}
	return fields
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
