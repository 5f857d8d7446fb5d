// Package models defines core data structures for barcode records, imports, and annotation.
package models

import "time"

// BarcodeRecord is one stored barcode keyed by document identifier.
// A later import for the same DocumentID overwrites the earlier record (last-write-wins).
type BarcodeRecord struct {
	DocumentID  string    `json:"document_id" db:"document_id"`
	Barcode     string    `json:"barcode" db:"barcode"`
	SourceFile  string    `json:"source_file" db:"source_file"`
	SheetName   string    `json:"sheet_name,omitempty" db:"sheet_name"`
	RowNumber   int       `json:"row_number,omitempty" db:"row_number"`
	Image       []byte    `json:"-" db:"image"`
	ImageFormat string    `json:"image_format,omitempty" db:"image_format"`
	ImportedAt  time.Time `json:"imported_at" db:"imported_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// HasImage reports whether the record carries a barcode picture pulled from the workbook.
func (r *BarcodeRecord) HasImage() bool {
	return len(r.Image) > 0
}

// SourceFingerprint identifies a previously imported spreadsheet.
// Mtime is stored as a string to avoid JSON float64 precision loss (UnixNano exceeds 53 bits).
type SourceFingerprint struct {
	Path  string `json:"path"`
	Mtime string `json:"mtime"`
	Size  int64  `json:"size"`
}
