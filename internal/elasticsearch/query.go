package elasticsearch

import (
	"strings"
	"time"
)

const (
	defaultSize = 20
	maxSize     = 200
)

// SearchParams narrow the posts search query.
type SearchParams struct {
	Query           string
	Category        string
	Subcategory     string
	RequirementType string
	Keywords        []string
	Source          string
	From            int
	Size            int
	Sort            string
	Start           *time.Time
	End             *time.Time
}

var sortable = map[string]bool{
	"timestamp":         true,
	"waste_category":    true,
	"requirement_type":  true,
	"source":            true,
	"waste_subcategory": true,
}

func keyword() map[string]any {
	return map[string]any{"type": "keyword"}
}

func postsMapping() map[string]any {
	props := map[string]any{
		"url":                    keyword(),
		"title":                  map[string]any{"type": "text"},
		"content":                map[string]any{"type": "text"},
		"requirement_type":       keyword(),
		"waste_category":         keyword(),
		"waste_category_name":    keyword(),
		"waste_subcategory":      keyword(),
		"waste_subcategory_name": keyword(),
		"poster_name":            map[string]any{"type": "text"},
		"poster_designation":     map[string]any{"type": "text"},
		"poster_company":         map[string]any{"type": "text"},
		"activity_id":            keyword(),
		"keywords":               keyword(),
		"source":                 keyword(),
		"fingerprint":            keyword(),
		"timestamp":              map[string]any{"type": "date"},
	}
	return map[string]any{
		"settings": map[string]any{
			"number_of_shards":   1,
			"number_of_replicas": 0,
		},
		"mappings": map[string]any{
			"properties": props,
		},
	}
}

func buildSearchBody(params SearchParams) map[string]any {
	if params.Size <= 0 {
		params.Size = defaultSize
	}
	if params.Size > maxSize {
		params.Size = maxSize
	}
	if params.From < 0 {
		params.From = 0
	}

	must := make([]map[string]any, 0, 1)
	filters := make([]map[string]any, 0, 5)

	if params.Query != "" {
		must = append(must, map[string]any{
			"multi_match": map[string]any{
				"query":  params.Query,
				"fields": []string{"title^2", "content", "poster_company"},
			},
		})
	}

	terms := [][2]string{
		{"waste_category", strings.ToUpper(params.Category)},
		{"waste_subcategory", strings.ToUpper(params.Subcategory)},
		{"requirement_type", strings.ToLower(params.RequirementType)},
		{"source", params.Source},
	}
	for _, t := range terms {
		if t[1] == "" {
			continue
		}
		filters = append(filters, map[string]any{
			"term": map[string]any{t[0]: t[1]},
		})
	}

	if len(params.Keywords) > 0 {
		filters = append(filters, map[string]any{
			"terms": map[string]any{
				"keywords": params.Keywords,
			},
		})
	}

	if params.Start != nil || params.End != nil {
		rangeQuery := map[string]any{}
		if params.Start != nil {
			rangeQuery["gte"] = params.Start.UTC().Format(time.RFC3339)
		}
		if params.End != nil {
			rangeQuery["lte"] = params.End.UTC().Format(time.RFC3339)
		}
		filters = append(filters, map[string]any{
			"range": map[string]any{
				"timestamp": rangeQuery,
			},
		})
	}

	boolQuery := map[string]any{}
	if len(must) > 0 {
		boolQuery["must"] = must
	}
	if len(filters) > 0 {
		boolQuery["filter"] = filters
	}
	if len(must) == 0 && len(filters) == 0 {
		boolQuery["must"] = []map[string]any{
			{"match_all": map[string]any{}},
		}
	}

	field, order := parseSort(params.Sort)

	return map[string]any{
		"from":             params.From,
		"size":             params.Size,
		"track_total_hits": true,
		"query": map[string]any{
			"bool": boolQuery,
		},
		"sort": []map[string]any{
			{field: map[string]any{"order": order}},
		},
	}
}

// parseSort turns "field:order" into a sortable keyword field and direction.
// Unknown fields fall back to timestamp, unknown directions to desc.
func parseSort(raw string) (string, string) {
	field, order, _ := strings.Cut(strings.TrimSpace(raw), ":")
	field = strings.ToLower(strings.TrimSpace(field))
	order = strings.ToLower(strings.TrimSpace(order))

	if !sortable[field] {
		field = "timestamp"
	}
	if order != "asc" {
		order = "desc"
	}
	return field, order
}

func categoryCountsBody() map[string]any {
	return map[string]any{
		"size": 0,
		"aggs": map[string]any{
			"categories": map[string]any{
				"terms": map[string]any{
					"field": "waste_category",
					"size":  100,
				},
			},
		},
	}
}
