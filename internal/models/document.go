package models

import "time"

// PostDocument represents the canonical structure stored in Elasticsearch.
type PostDocument struct {
	ID                   string          `json:"id"`
	URL                  string          `json:"url"`
	Title                string          `json:"title"`
	Content              string          `json:"content"`
	RequirementType      RequirementType `json:"requirement_type,omitempty"`
	WasteCategory        string          `json:"waste_category"`
	WasteCategoryName    string          `json:"waste_category_name"`
	WasteSubcategory     string          `json:"waste_subcategory,omitempty"`
	WasteSubcategoryName string          `json:"waste_subcategory_name,omitempty"`
	PosterName           string          `json:"poster_name,omitempty"`
	PosterDesignation    string          `json:"poster_designation,omitempty"`
	PosterCompany        string          `json:"poster_company,omitempty"`
	ActivityID           string          `json:"activity_id,omitempty"`
	Keywords             []string        `json:"keywords"`
	Source               string          `json:"source"`
	Fingerprint          string          `json:"fingerprint"`
	Timestamp            time.Time       `json:"timestamp"`
}

// NewPostDocument flattens a classified post into its index representation.
func NewPostDocument(id string, p ClassifiedPost, keywords []string, fingerprint string) PostDocument {
	return PostDocument{
		ID:                   id,
		URL:                  p.URL,
		Title:                p.Title,
		Content:              p.Content,
		RequirementType:      p.RequirementType,
		WasteCategory:        p.Category.Code,
		WasteCategoryName:    p.Category.Name,
		WasteSubcategory:     p.Category.SubCode,
		WasteSubcategoryName: p.Category.SubName,
		PosterName:           p.Poster.Name,
		PosterDesignation:    p.Poster.Designation,
		PosterCompany:        p.Poster.Company,
		ActivityID:           p.ActivityID,
		Keywords:             keywords,
		Source:               p.Source,
		Fingerprint:          fingerprint,
		Timestamp:            p.ScrapedAt,
	}
}
