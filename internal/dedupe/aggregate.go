// Package dedupe collapses repeated posts: Aggregate for finished batches and
// Cache for the streaming worker.
package dedupe

import "github.com/DeafMist/waste-radar/internal/models"

// Aggregate keeps one record per URL, the last one in input order, and counts
// the surviving records per top-level waste category. Subcategories are
// counted under their parent and categories without posts are absent from
// the counts.
//
// The returned slice lists URLs in order of first appearance; callers must
// not rely on that order.
func Aggregate(records []models.ClassifiedPost) ([]models.ClassifiedPost, models.CategoryCounts) {
	slot := make(map[string]int, len(records))
	out := make([]models.ClassifiedPost, 0, len(records))

	for _, r := range records {
		if i, ok := slot[r.URL]; ok {
			out[i] = r
			continue
		}
		slot[r.URL] = len(out)
		out = append(out, r)
	}

	counts := make(models.CategoryCounts)
	for _, r := range out {
		counts[r.Category.Code]++
	}
	return out, counts
}
