package elasticsearch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBuildSearchBodyMatchAll(t *testing.T) {
	body := buildSearchBody(SearchParams{})

	require.Equal(t, 0, body["from"])
	require.Equal(t, defaultSize, body["size"])

	boolQuery := body["query"].(map[string]any)["bool"].(map[string]any)
	require.Equal(t, []map[string]any{{"match_all": map[string]any{}}}, boolQuery["must"])
	require.NotContains(t, boolQuery, "filter")
	require.Equal(t, []map[string]any{{"timestamp": map[string]any{"order": "desc"}}}, body["sort"])
}

func TestBuildSearchBodyFilters(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	body := buildSearchBody(SearchParams{
		Query:           "battery pickup",
		Category:        "c",
		RequirementType: "Supply",
		Source:          "tavily",
		Start:           &start,
		From:            -5,
		Size:            1000,
		Sort:            "waste_category:asc",
	})

	require.Equal(t, 0, body["from"])
	require.Equal(t, maxSize, body["size"])

	boolQuery := body["query"].(map[string]any)["bool"].(map[string]any)
	must := boolQuery["must"].([]map[string]any)
	require.Len(t, must, 1)
	require.Contains(t, must[0], "multi_match")

	filters := boolQuery["filter"].([]map[string]any)
	require.Equal(t, []map[string]any{
		{"term": map[string]any{"waste_category": "C"}},
		{"term": map[string]any{"requirement_type": "supply"}},
		{"term": map[string]any{"source": "tavily"}},
		{"range": map[string]any{"timestamp": map[string]any{"gte": "2025-01-01T00:00:00Z"}}},
	}, filters)
	require.Equal(t, []map[string]any{{"waste_category": map[string]any{"order": "asc"}}}, body["sort"])
}

func TestParseSort(t *testing.T) {
	tests := []struct {
		raw   string
		field string
		order string
	}{
		{"", "timestamp", "desc"},
		{"timestamp:asc", "timestamp", "asc"},
		{"requirement_type", "requirement_type", "desc"},
		{"content:asc", "timestamp", "asc"},
		{"source:sideways", "source", "desc"},
	}

	for _, tt := range tests {
		field, order := parseSort(tt.raw)
		require.Equal(t, tt.field, field, tt.raw)
		require.Equal(t, tt.order, order, tt.raw)
	}
}

func TestPostsMappingUsesKeywordsForFilters(t *testing.T) {
	props := postsMapping()["mappings"].(map[string]any)["properties"].(map[string]any)
	for _, field := range []string{"waste_category", "waste_subcategory", "requirement_type", "source", "keywords"} {
		require.Equal(t, map[string]any{"type": "keyword"}, props[field], field)
	}
	require.Equal(t, map[string]any{"type": "date"}, props["timestamp"])
}
