// Package lookup provides the Bleve implementation of Index.
package lookup

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	blevequery "github.com/blevesearch/bleve/v2/search/query"
)

// BleveIndex implements Index using Bleve.
type BleveIndex struct {
	index bleve.Index
}

// NewBleveIndex creates or opens a Bleve index at path.
// An existing index is opened and reused so that unchanged spreadsheets do not
// need re-importing. If the mapping changes in code, remove the index
// directory to force a full re-import.
func NewBleveIndex(path string) (*BleveIndex, error) {
	im := bleve.NewIndexMapping()

	entryMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	// Standard analyzer (lowercase + tokenize, no stemming): identifiers and
	// barcode values are codes, stemming would mangle them.
	textFieldMapping.Analyzer = standard.Name
	entryMapping.AddFieldMappingsAt("document_id", textFieldMapping)
	entryMapping.AddFieldMappingsAt("barcode", textFieldMapping)
	entryMapping.AddFieldMappingsAt("source_file", textFieldMapping)
	im.AddDocumentMapping("entry", entryMapping)
	im.DefaultType = "entry"
	im.DefaultMapping = entryMapping

	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open lookup index: %w", openErr)
		}
		return &BleveIndex{index: index}, nil
	}

	index, err := bleve.New(path, im)
	if err != nil {
		return nil, fmt.Errorf("failed to create lookup index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

// Index indexes an entry keyed by its document ID. Re-indexing the same ID replaces it.
func (b *BleveIndex) Index(ctx context.Context, entry *Entry) error {
	return b.index.Index(entry.DocumentID, entry)
}

// Delete removes the entry for documentID.
func (b *BleveIndex) Delete(ctx context.Context, documentID string) error {
	return b.index.Delete(documentID)
}

// Search runs a match query over all entry fields and returns up to limit results.
// With opts.FuzzyEnabled, each query term matches within the configured edit distance.
func (b *BleveIndex) Search(ctx context.Context, query string, limit int, opts *Options) ([]*Result, error) {
	fuzzyEnabled := false
	fuzziness := 2
	if opts != nil {
		fuzzyEnabled = opts.FuzzyEnabled
		if opts.Fuzziness > 0 {
			fuzziness = opts.Fuzziness
		}
	}

	var q blevequery.Query
	if fuzzyEnabled {
		q = buildFuzzyQuery(query, fuzziness)
	} else {
		q = bleve.NewMatchQuery(query)
	}
	req := bleve.NewSearchRequest(q)
	req.Size = limit
	results, err := b.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("lookup search failed: %w", err)
	}
	out := make([]*Result, len(results.Hits))
	for i, hit := range results.Hits {
		out[i] = &Result{DocumentID: hit.ID, Score: hit.Score}
	}
	return out, nil
}

// DocCount returns the total number of indexed entries.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}

// Close closes the index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}

// buildFuzzyQuery creates a disjunction of FuzzyQueries, one per query term.
func buildFuzzyQuery(queryStr string, fuzziness int) blevequery.Query {
	terms := strings.Fields(strings.ToLower(queryStr))
	if len(terms) == 0 {
		return bleve.NewMatchNoneQuery()
	}
	queries := make([]blevequery.Query, 0, len(terms))
	for _, term := range terms {
		fq := bleve.NewFuzzyQuery(term)
		fq.SetFuzziness(fuzziness)
		queries = append(queries, fq)
	}
	if len(queries) == 1 {
		return queries[0]
	}
	return bleve.NewDisjunctionQuery(queries...)
}
