package fieldmap

import "testing"

func TestResolve(t *testing.T) {
	m := New()

	testCases := []struct {
		name   string
		header string
		want   Field
	}{
		{"exact english sku", "SKU", FieldSKU},
		{"exact russian sku", "Артикул", FieldSKU},
		{"case insensitive", "sku", FieldSKU},
		{"surrounding whitespace", "  Price  ", FieldPrice},
		{"russian name", "Название", FieldName},
		{"russian price", "Цена", FieldPrice},
		{"stock synonym", "Qty", FieldStockQuantity},
		{"substring match", "Цена, руб.", FieldPrice},
		{"brand substring", "Brand Name", FieldBrand},
		{"unknown header", "Warehouse Zone", Unmapped},
		{"empty header", "", Unmapped},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := m.Resolve(tc.header); got != tc.want {
				t.Errorf("Resolve(%q) = %q, want %q", tc.header, got, tc.want)
			}
		})
	}
}

func TestResolveAll(t *testing.T) {
	m := New()

	t.Run("maps a typical russian header row", func(t *testing.T) {
		headers := []string{"Артикул", "Название", "Бренд", "Цена", "Остаток", "Описание"}
		want := []Field{FieldSKU, FieldName, FieldBrand, FieldPrice, FieldStockQuantity, FieldDescription}

		got := m.ResolveAll(headers)
		if len(got) != len(want) {
			t.Fatalf("got %d fields, want %d", len(got), len(want))
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("header %q resolved to %q, want %q", headers[i], got[i], want[i])
			}
		}
	})

	t.Run("duplicate of a mapped field becomes passthrough", func(t *testing.T) {
		got := m.ResolveAll([]string{"SKU", "Артикул", "Name"})
		if got[0] != FieldSKU {
			t.Errorf("first sku column resolved to %q", got[0])
		}
		if got[1] != Unmapped {
			t.Errorf("duplicate sku column resolved to %q, want passthrough", got[1])
		}
		if got[2] != FieldName {
			t.Errorf("name column resolved to %q", got[2])
		}
	})
}
