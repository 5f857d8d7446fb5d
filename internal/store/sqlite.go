// Package store provides the SQLite implementation of the Store interface.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/akvl/barstamp/internal/models"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS records (
		document_id TEXT PRIMARY KEY,
		barcode TEXT NOT NULL,
		source_file TEXT NOT NULL,
		sheet_name TEXT,
		row_number INTEGER,
		image BLOB,
		image_format TEXT,
		imported_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_records_source_file ON records(source_file);

	CREATE TABLE IF NOT EXISTS source_files (
		path TEXT PRIMARY KEY,
		mtime TEXT NOT NULL,
		size INTEGER NOT NULL
	);
	`
	_, err := db.Exec(schema)
	return err
}

// UpsertRecord inserts or overwrites the record for rec.DocumentID.
// On overwrite the original imported_at is preserved and updated_at refreshed.
func (s *SQLiteStore) UpsertRecord(ctx context.Context, rec *models.BarcodeRecord) error {
	now := time.Now()
	if rec.ImportedAt.IsZero() {
		rec.ImportedAt = now
	}
	rec.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO records (document_id, barcode, source_file, sheet_name, row_number, image, image_format, imported_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(document_id) DO UPDATE SET
			barcode = excluded.barcode,
			source_file = excluded.source_file,
			sheet_name = excluded.sheet_name,
			row_number = excluded.row_number,
			image = excluded.image,
			image_format = excluded.image_format,
			updated_at = excluded.updated_at`,
		rec.DocumentID, rec.Barcode, rec.SourceFile, rec.SheetName, rec.RowNumber,
		rec.Image, rec.ImageFormat, rec.ImportedAt, rec.UpdatedAt,
	)
	return err
}

// BatchUpsertRecords upserts multiple records in a transaction.
func (s *SQLiteStore) BatchUpsertRecords(ctx context.Context, recs []*models.BarcodeRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO records (document_id, barcode, source_file, sheet_name, row_number, image, image_format, imported_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(document_id) DO UPDATE SET
			barcode = excluded.barcode,
			source_file = excluded.source_file,
			sheet_name = excluded.sheet_name,
			row_number = excluded.row_number,
			image = excluded.image,
			image_format = excluded.image_format,
			updated_at = excluded.updated_at`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now()
	for _, rec := range recs {
		if rec.ImportedAt.IsZero() {
			rec.ImportedAt = now
		}
		rec.UpdatedAt = now
		if _, err := stmt.ExecContext(ctx,
			rec.DocumentID, rec.Barcode, rec.SourceFile, rec.SheetName, rec.RowNumber,
			rec.Image, rec.ImageFormat, rec.ImportedAt, rec.UpdatedAt,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetRecord returns the record for documentID.
func (s *SQLiteStore) GetRecord(ctx context.Context, documentID string) (*models.BarcodeRecord, error) {
	var rec models.BarcodeRecord
	var sheet, imgFormat sql.NullString
	var row sql.NullInt64

	err := s.db.QueryRowContext(ctx,
		`SELECT document_id, barcode, source_file, sheet_name, row_number, image, image_format, imported_at, updated_at
		 FROM records WHERE document_id = ?`, documentID,
	).Scan(&rec.DocumentID, &rec.Barcode, &rec.SourceFile, &sheet, &row, &rec.Image, &imgFormat, &rec.ImportedAt, &rec.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("record %s: %w", documentID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	rec.SheetName = sheet.String
	rec.RowNumber = int(row.Int64)
	rec.ImageFormat = imgFormat.String
	return &rec, nil
}

// ListRecords returns records ordered by most recently updated.
func (s *SQLiteStore) ListRecords(ctx context.Context, offset, limit int) ([]*models.BarcodeRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT document_id, barcode, source_file, sheet_name, row_number, image, image_format, imported_at, updated_at
		 FROM records ORDER BY updated_at DESC, document_id LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []*models.BarcodeRecord
	for rows.Next() {
		var rec models.BarcodeRecord
		var sheet, imgFormat sql.NullString
		var row sql.NullInt64
		if err := rows.Scan(&rec.DocumentID, &rec.Barcode, &rec.SourceFile, &sheet, &row, &rec.Image, &imgFormat, &rec.ImportedAt, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		rec.SheetName = sheet.String
		rec.RowNumber = int(row.Int64)
		rec.ImageFormat = imgFormat.String
		recs = append(recs, &rec)
	}
	return recs, rows.Err()
}

// ListRecordsBySource returns all records imported from sourceFile.
func (s *SQLiteStore) ListRecordsBySource(ctx context.Context, sourceFile string) ([]*models.BarcodeRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT document_id, barcode, source_file, sheet_name, row_number, image, image_format, imported_at, updated_at
		 FROM records WHERE source_file = ? ORDER BY row_number, document_id`,
		sourceFile,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []*models.BarcodeRecord
	for rows.Next() {
		var rec models.BarcodeRecord
		var sheet, imgFormat sql.NullString
		var row sql.NullInt64
		if err := rows.Scan(&rec.DocumentID, &rec.Barcode, &rec.SourceFile, &sheet, &row, &rec.Image, &imgFormat, &rec.ImportedAt, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		rec.SheetName = sheet.String
		rec.RowNumber = int(row.Int64)
		rec.ImageFormat = imgFormat.String
		recs = append(recs, &rec)
	}
	return recs, rows.Err()
}

// DeleteRecord removes the record for documentID.
func (s *SQLiteStore) DeleteRecord(ctx context.Context, documentID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE document_id = ?`, documentID)
	return err
}

// DeleteRecordsBySource removes all records imported from sourceFile and its fingerprint.
// Returns the number of records removed.
func (s *SQLiteStore) DeleteRecordsBySource(ctx context.Context, sourceFile string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE source_file = ?`, sourceFile)
	if err != nil {
		return 0, err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM source_files WHERE path = ?`, sourceFile); err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// GetSourceFile returns the stored fingerprint for path, or an error if none exists.
func (s *SQLiteStore) GetSourceFile(ctx context.Context, path string) (*models.SourceFingerprint, error) {
	var fp models.SourceFingerprint
	err := s.db.QueryRowContext(ctx,
		`SELECT path, mtime, size FROM source_files WHERE path = ?`, path,
	).Scan(&fp.Path, &fp.Mtime, &fp.Size)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("source file %s: %w", path, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &fp, nil
}

// PutSourceFile stores or replaces the fingerprint for fp.Path.
func (s *SQLiteStore) PutSourceFile(ctx context.Context, fp *models.SourceFingerprint) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO source_files (path, mtime, size) VALUES (?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET mtime = excluded.mtime, size = excluded.size`,
		fp.Path, fp.Mtime, fp.Size,
	)
	return err
}

// DeleteSourceFile removes the fingerprint for path. Records imported from it
// are not touched, so the next import of the same path re-reads the file.
func (s *SQLiteStore) DeleteSourceFile(ctx context.Context, path string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM source_files WHERE path = ?`, path)
	return err
}

// CountRecords returns the total number of stored records.
func (s *SQLiteStore) CountRecords(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
