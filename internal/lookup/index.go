// Package lookup provides typo-tolerant search over stored barcode records.
package lookup

import (
	"context"

	"github.com/akvl/barstamp/internal/models"
)

// Entry is the searchable projection of a barcode record.
type Entry struct {
	DocumentID string `json:"document_id"`
	Barcode    string `json:"barcode"`
	SourceFile string `json:"source_file"`
}

// EntryFromRecord builds the indexed projection of rec.
func EntryFromRecord(rec *models.BarcodeRecord) *Entry {
	return &Entry{
		DocumentID: rec.DocumentID,
		Barcode:    rec.Barcode,
		SourceFile: rec.SourceFile,
	}
}

// Options are optional search parameters. Nil means exact matching.
type Options struct {
	// FuzzyEnabled enables fuzzy matching for typo tolerance.
	FuzzyEnabled bool
	// Fuzziness is the maximum Levenshtein edit distance (1 or 2).
	// Default is 2 when FuzzyEnabled is true.
	Fuzziness int
}

// Result is a single search hit.
type Result struct {
	DocumentID string
	Score      float64
}

// Index defines record lookup operations.
type Index interface {
	Index(ctx context.Context, entry *Entry) error
	Search(ctx context.Context, query string, limit int, opts *Options) ([]*Result, error)
	Delete(ctx context.Context, documentID string) error
	// DocCount returns the total number of indexed records.
	DocCount() (uint64, error)
	Close() error
}
