// Package taxonomy holds the static waste-category and requirement keyword
// tables the classifiers are built from.
package taxonomy

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalid is returned when a taxonomy fails validation.
var ErrInvalid = errors.New("invalid taxonomy")

// Subcategory is a nested refinement of a top-level category.
type Subcategory struct {
	Code     string   `yaml:"code"`
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// Category is a top-level waste category.
type Category struct {
	Code          string        `yaml:"code"`
	Name          string        `yaml:"name"`
	Keywords      []string      `yaml:"keywords"`
	Subcategories []Subcategory `yaml:"subcategories,omitempty"`
}

// Taxonomy is the full classification table. Categories are kept in
// canonical order; ties are always resolved towards the earlier entry.
type Taxonomy struct {
	Categories     []Category `yaml:"categories"`
	Fallback       string     `yaml:"fallback"`
	SupplyKeywords []string   `yaml:"supply_keywords"`
	DemandKeywords []string   `yaml:"demand_keywords"`
}

// Default returns the built-in taxonomy.
func Default() *Taxonomy {
	return &Taxonomy{
		Categories: []Category{
			{Code: "A", Name: "Plastic Waste", Keywords: []string{"plastic", "polymer", "pet", "packaging material"}},
			{Code: "B", Name: "E-waste", Keywords: []string{"electronic", "e-waste", "computer", "phone"}},
			{Code: "C", Name: "Bio-medical Waste", Keywords: []string{"medical", "hospital", "clinical", "biomedical"}},
			{Code: "D", Name: "Construction and Demolition Waste", Keywords: []string{"construction", "demolition", "building", "debris"}},
			{Code: "E", Name: "Battery Waste", Keywords: []string{"battery", "batteries", "ups", "cell"}},
			{Code: "F", Name: "Radioactive Waste", Keywords: []string{"radioactive", "nuclear", "radiation"}},
			{
				Code:     "G",
				Name:     "Other Hazardous Waste",
				Keywords: []string{"chemical", "pesticide", "herbicide", "asbestos", "sludge"},
				Subcategories: []Subcategory{
					{Code: "G1", Name: "Chemical Waste", Keywords: []string{"chemical", "solvent", "acid"}},
					{Code: "G2", Name: "Agrochemical Waste", Keywords: []string{"pesticide", "herbicide", "fertilizer"}},
					{Code: "G3", Name: "Asbestos Waste", Keywords: []string{"asbestos"}},
					{Code: "G4", Name: "Industrial Sludge", Keywords: []string{"sludge", "effluent"}},
				},
			},
			{
				Code:     "H",
				Name:     "Other Non-Hazardous Waste",
				Keywords: []string{"food waste", "paper", "cardboard", "textile", "glass", "wood"},
				Subcategories: []Subcategory{
					{Code: "H1", Name: "Food and Organic Waste", Keywords: []string{"food waste", "organic", "compost"}},
					{Code: "H2", Name: "Paper and Cardboard", Keywords: []string{"paper", "cardboard"}},
					{Code: "H3", Name: "Textile Waste", Keywords: []string{"textile", "fabric", "garment"}},
					{Code: "H4", Name: "Glass Waste", Keywords: []string{"glass"}},
					{Code: "H5", Name: "Wood Waste", Keywords: []string{"wood", "timber", "pallet"}},
				},
			},
		},
		Fallback:       "H",
		SupplyKeywords: []string{"offering", "available", "providing", "supply", "service provider"},
		DemandKeywords: []string{"needed", "seeking", "looking for", "required", "wanted"},
	}
}

// Load reads a YAML taxonomy file and validates it.
func Load(path string) (*Taxonomy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read taxonomy: %w", err)
	}

	var t Taxonomy
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("decode taxonomy: %w", err)
	}
	if t.Fallback == "" {
		t.Fallback = "H"
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// Validate checks that codes are unique and that the fallback code exists.
func (t *Taxonomy) Validate() error {
	if len(t.Categories) == 0 {
		return fmt.Errorf("%w: no categories", ErrInvalid)
	}

	seen := make(map[string]struct{})
	for _, c := range t.Categories {
		if strings.TrimSpace(c.Code) == "" {
			return fmt.Errorf("%w: category %q has empty code", ErrInvalid, c.Name)
		}
		if _, dup := seen[c.Code]; dup {
			return fmt.Errorf("%w: duplicate code %q", ErrInvalid, c.Code)
		}
		seen[c.Code] = struct{}{}

		for _, s := range c.Subcategories {
			if strings.TrimSpace(s.Code) == "" {
				return fmt.Errorf("%w: subcategory %q of %s has empty code", ErrInvalid, s.Name, c.Code)
			}
			if _, dup := seen[s.Code]; dup {
				return fmt.Errorf("%w: duplicate code %q", ErrInvalid, s.Code)
			}
			seen[s.Code] = struct{}{}
		}
	}

	if _, ok := t.Lookup(t.Fallback); !ok {
		return fmt.Errorf("%w: fallback code %q is not a top-level category", ErrInvalid, t.Fallback)
	}
	return nil
}

// Lookup finds a top-level category by code.
func (t *Taxonomy) Lookup(code string) (Category, bool) {
	for _, c := range t.Categories {
		if c.Code == code {
			return c, true
		}
	}
	return Category{}, false
}

// FallbackCategory returns the category used when nothing matches.
func (t *Taxonomy) FallbackCategory() Category {
	c, _ := t.Lookup(t.Fallback)
	return c
}

// Codes lists the top-level codes in canonical order.
func (t *Taxonomy) Codes() []string {
	out := make([]string, 0, len(t.Categories))
	for _, c := range t.Categories {
		out = append(out, c.Code)
	}
	return out
}
