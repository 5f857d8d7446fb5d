// Package store defines the persistence interface for barcode records.
package store

import (
	"context"
	"errors"

	"github.com/akvl/barstamp/internal/models"
)

// ErrNotFound is returned when a record or source fingerprint does not exist.
var ErrNotFound = errors.New("not found")

// Store defines barcode record persistence operations.
// DocumentID is the unique key; an upsert for an existing key overwrites the
// stored record (last-write-wins).
type Store interface {
	// Record operations
	UpsertRecord(ctx context.Context, rec *models.BarcodeRecord) error
	BatchUpsertRecords(ctx context.Context, recs []*models.BarcodeRecord) error
	GetRecord(ctx context.Context, documentID string) (*models.BarcodeRecord, error)
	ListRecords(ctx context.Context, offset, limit int) ([]*models.BarcodeRecord, error)
	ListRecordsBySource(ctx context.Context, sourceFile string) ([]*models.BarcodeRecord, error)
	DeleteRecord(ctx context.Context, documentID string) error
	DeleteRecordsBySource(ctx context.Context, sourceFile string) (int64, error)

	// Source fingerprints for incremental import (skip unchanged spreadsheets)
	GetSourceFile(ctx context.Context, path string) (*models.SourceFingerprint, error)
	PutSourceFile(ctx context.Context, fp *models.SourceFingerprint) error
	DeleteSourceFile(ctx context.Context, path string) error

	// Stats
	CountRecords(ctx context.Context) (int64, error)

	Close() error
}
