package classifier

import (
	"context"
	"strings"

	ahocorasick "github.com/cloudflare/ahocorasick"

	"github.com/DeafMist/waste-radar/internal/models"
	"github.com/DeafMist/waste-radar/internal/taxonomy"
)

// Lexical scores text by counting which trigger keywords it contains. All
// keyword lists are compiled into one Aho-Corasick automaton, so a text is
// scanned once regardless of taxonomy size.
type Lexical struct {
	tax      *taxonomy.Taxonomy
	matcher  *ahocorasick.Matcher
	keywords []string
}

// NewLexical compiles the taxonomy's keyword lists.
func NewLexical(tax *taxonomy.Taxonomy) *Lexical {
	seen := make(map[string]struct{})
	var keywords []string
	add := func(list []string) {
		for _, kw := range list {
			kw = normalizeKeyword(kw)
			if kw == "" {
				continue
			}
			if _, ok := seen[kw]; ok {
				continue
			}
			seen[kw] = struct{}{}
			keywords = append(keywords, kw)
		}
	}

	add(tax.SupplyKeywords)
	add(tax.DemandKeywords)
	for _, c := range tax.Categories {
		add(c.Keywords)
		for _, s := range c.Subcategories {
			add(s.Keywords)
		}
	}

	l := &Lexical{tax: tax, keywords: keywords}
	if len(keywords) > 0 {
		l.matcher = ahocorasick.NewStringMatcher(keywords)
	}
	return l
}

// Name implements Classifier.
func (l *Lexical) Name() string { return ModeLexical }

// Classify implements Classifier. It never fails.
func (l *Lexical) Classify(_ context.Context, content, title string) (models.Classification, error) {
	hits := l.match(joinText(content, title))
	return models.Classification{
		RequirementType: l.requirement(hits),
		Category:        l.category(hits),
	}, nil
}

// RequirementType scores only the supply/demand label.
func (l *Lexical) RequirementType(content, title string) models.RequirementType {
	return l.requirement(l.match(joinText(content, title)))
}

func (l *Lexical) match(text string) map[string]struct{} {
	hits := make(map[string]struct{})
	if l.matcher == nil || text == "" {
		return hits
	}
	for _, idx := range l.matcher.MatchThreadSafe([]byte(strings.ToLower(text))) {
		if idx >= 0 && idx < len(l.keywords) {
			hits[l.keywords[idx]] = struct{}{}
		}
	}
	return hits
}

// requirement returns supply only on a strict majority; ties, including
// zero/zero, go to demand.
func (l *Lexical) requirement(hits map[string]struct{}) models.RequirementType {
	if count(hits, l.tax.SupplyKeywords) > count(hits, l.tax.DemandKeywords) {
		return models.RequirementSupply
	}
	return models.RequirementDemand
}

func (l *Lexical) category(hits map[string]struct{}) models.CategoryRef {
	best, bestScore := -1, 0
	for i, c := range l.tax.Categories {
		if score := count(hits, c.Keywords); score > bestScore {
			best, bestScore = i, score
		}
	}
	if best < 0 {
		return fallbackRef(l.tax)
	}

	c := l.tax.Categories[best]
	ref := models.CategoryRef{Code: c.Code, Name: c.Name}

	sub, subScore := -1, 0
	for i, s := range c.Subcategories {
		if score := count(hits, s.Keywords); score > subScore {
			sub, subScore = i, score
		}
	}
	if sub >= 0 {
		ref.SubCode = c.Subcategories[sub].Code
		ref.SubName = c.Subcategories[sub].Name
	}
	return ref
}

// count returns how many distinct keywords of list were found.
func count(hits map[string]struct{}, list []string) int {
	n := 0
	seen := make(map[string]struct{}, len(list))
	for _, kw := range list {
		kw = normalizeKeyword(kw)
		if _, dup := seen[kw]; dup {
			continue
		}
		seen[kw] = struct{}{}
		if _, ok := hits[kw]; ok {
			n++
		}
	}
	return n
}

func normalizeKeyword(kw string) string {
	return strings.ToLower(strings.TrimSpace(kw))
}
