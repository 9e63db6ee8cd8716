package taxonomy_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/DeafMist/waste-radar/internal/taxonomy"
)

func TestDefaultIsValid(t *testing.T) {
	tax := taxonomy.Default()
	require.NoError(t, tax.Validate())
	require.Equal(t, []string{"A", "B", "C", "D", "E", "F", "G", "H"}, tax.Codes())
	require.Equal(t, "Other Non-Hazardous Waste", tax.FallbackCategory().Name)

	g, ok := tax.Lookup("G")
	require.True(t, ok)
	require.NotEmpty(t, g.Subcategories)

	_, ok = tax.Lookup("Z")
	require.False(t, ok)
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taxonomy.yaml")
	data := `
categories:
  - code: X
    name: Metal Scrap
    keywords: [steel, copper]
  - code: Y
    name: Everything Else
    keywords: [misc]
    subcategories:
      - code: Y1
        name: Rubber
        keywords: [tyre, rubber]
fallback: Y
supply_keywords: [selling]
demand_keywords: [buying]
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	tax, err := taxonomy.Load(path)
	require.NoError(t, err)
	require.Equal(t, []string{"X", "Y"}, tax.Codes())
	require.Equal(t, "Y", tax.Fallback)
	require.Equal(t, []string{"selling"}, tax.SupplyKeywords)

	y, ok := tax.Lookup("Y")
	require.True(t, ok)
	require.Len(t, y.Subcategories, 1)
	require.Equal(t, "Rubber", y.Subcategories[0].Name)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := taxonomy.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		tax  taxonomy.Taxonomy
	}{
		{name: "empty", tax: taxonomy.Taxonomy{Fallback: "H"}},
		{
			name: "duplicate code",
			tax: taxonomy.Taxonomy{
				Categories: []taxonomy.Category{{Code: "A"}, {Code: "A"}},
				Fallback:   "A",
			},
		},
		{
			name: "subcategory clashes with parent",
			tax: taxonomy.Taxonomy{
				Categories: []taxonomy.Category{{Code: "A", Subcategories: []taxonomy.Subcategory{{Code: "A"}}}},
				Fallback:   "A",
			},
		},
		{
			name: "unknown fallback",
			tax: taxonomy.Taxonomy{
				Categories: []taxonomy.Category{{Code: "A"}},
				Fallback:   "H",
			},
		},
		{
			name: "blank code",
			tax: taxonomy.Taxonomy{
				Categories: []taxonomy.Category{{Code: " ", Name: "blank"}},
				Fallback:   " ",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorIs(t, tt.tax.Validate(), taxonomy.ErrInvalid)
		})
	}
}
