package lookup

import (
	"context"
	"fmt"
	"time"

	"github.com/akvl/barstamp/internal/models"
	"github.com/akvl/barstamp/internal/store"
)

const defaultFindLimit = 10

// Finder answers find queries by searching the index and hydrating the
// matched records from the store.
type Finder struct {
	index Index
	store store.Store
}

// NewFinder creates a finder over the given index and store.
func NewFinder(idx Index, st store.Store) *Finder {
	return &Finder{index: idx, store: st}
}

// Find searches for records matching the query. When the exact query has no
// hits and fuzzy matching was not requested, the search is retried fuzzily
// and the response marked AutoFuzzy.
func (f *Finder) Find(ctx context.Context, q *models.FindQuery) (*models.FindResponse, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultFindLimit
	}
	start := time.Now()

	opts := &Options{FuzzyEnabled: q.Fuzzy, Fuzziness: q.Fuzziness}
	results, err := f.index.Search(ctx, q.Query, limit, opts)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	autoFuzzy := false
	if len(results) == 0 && !q.Fuzzy {
		opts.FuzzyEnabled = true
		results, err = f.index.Search(ctx, q.Query, limit, opts)
		if err != nil {
			return nil, fmt.Errorf("fuzzy search: %w", err)
		}
		autoFuzzy = len(results) > 0
	}

	response := &models.FindResponse{
		QueryTime: time.Since(start).Milliseconds(),
		AutoFuzzy: autoFuzzy,
	}
	for _, res := range results {
		rec, err := f.store.GetRecord(ctx, res.DocumentID)
		if err != nil {
			// Index entry outlived its record; skip it.
			continue
		}
		response.Hits = append(response.Hits, &models.FindHit{Score: res.Score, Record: rec})
	}
	response.Total = len(response.Hits)
	return response, nil
}
