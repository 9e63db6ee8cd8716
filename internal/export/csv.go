// Package export writes classified posts as CSV snapshots.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/DeafMist/waste-radar/internal/models"
)

// FilePrefix starts every snapshot file name.
const FilePrefix = "waste_management_data_"

// Columns is the fixed header of every export.
var Columns = []string{
	"post_content",
	"post_url",
	"requirement_type",
	"waste_category",
	"waste_category_name",
	"waste_subcategory",
	"waste_subcategory_name",
	"poster_name",
	"poster_designation",
	"poster_company",
	"activity_id",
}

// WriteCSV writes the header followed by one row per post.
func WriteCSV(w io.Writer, posts []models.ClassifiedPost) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, p := range posts {
		if err := cw.Write(row(p)); err != nil {
			return fmt.Errorf("write row %s: %w", p.URL, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func row(p models.ClassifiedPost) []string {
	return []string{
		p.Content,
		p.URL,
		string(p.RequirementType),
		p.Category.Code,
		p.Category.Name,
		p.Category.SubCode,
		p.Category.SubName,
		p.Poster.Name,
		p.Poster.Designation,
		p.Poster.Company,
		p.ActivityID,
	}
}

// FileName returns the snapshot name for a run started at now.
func FileName(now time.Time) string {
	return FilePrefix + now.Format("20060102_150405") + ".csv"
}

// SaveSnapshot writes posts to a timestamped file under dir and returns its
// path. Nothing is written for an empty batch and the path is "".
func SaveSnapshot(dir string, posts []models.ClassifiedPost, now time.Time) (string, error) {
	if len(posts) == 0 {
		return "", nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	path := filepath.Join(dir, FileName(now))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create snapshot: %w", err)
	}

	if err := WriteCSV(f, posts); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close snapshot: %w", err)
	}
	return path, nil
}
