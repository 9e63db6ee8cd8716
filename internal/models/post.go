package models

import "time"

// RequirementType tells whether a post offers or asks for a service.
type RequirementType string

const (
	RequirementSupply RequirementType = "supply"
	RequirementDemand RequirementType = "demand"
)

// Poster carries whatever the source knows about the author. The pipeline
// never derives these fields, it only passes them through.
type Poster struct {
	Name        string `json:"name,omitempty"`
	Designation string `json:"designation,omitempty"`
	Company     string `json:"company,omitempty"`
}

// Post is a raw post as returned by a fetch collaborator. URL is the identity key.
type Post struct {
	URL        string    `json:"url"`
	Content    string    `json:"content"`
	Title      string    `json:"title,omitempty"`
	Poster     Poster    `json:"poster"`
	Source     string    `json:"source,omitempty"`
	ActivityID string    `json:"activity_id,omitempty"`
	ScrapedAt  time.Time `json:"scraped_at"`
}

// CategoryRef points at a top-level waste category and, optionally, one of
// its subcategories.
type CategoryRef struct {
	Code    string `json:"code"`
	Name    string `json:"name"`
	SubCode string `json:"sub_code,omitempty"`
	SubName string `json:"sub_name,omitempty"`
}

// Classification is what a classifier derives from post text.
type Classification struct {
	RequirementType RequirementType `json:"requirement_type,omitempty"`
	Category        CategoryRef     `json:"waste_category"`
}

// ClassifiedPost is a Post enriched with its classification.
type ClassifiedPost struct {
	Post
	Classification
}

// CategoryCounts maps a top-level category code to the number of posts in it.
type CategoryCounts map[string]int
