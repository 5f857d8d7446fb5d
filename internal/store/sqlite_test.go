package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/akvl/barstamp/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStore_UpsertGetDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := &models.BarcodeRecord{
		DocumentID: "DOC-1",
		Barcode:    "111222",
		SourceFile: "/in/export.xlsx",
		SheetName:  "Sheet1",
		RowNumber:  2,
	}
	if err := s.UpsertRecord(ctx, rec); err != nil {
		t.Fatal(err)
	}
	if rec.ImportedAt.IsZero() || rec.UpdatedAt.IsZero() {
		t.Error("timestamps should be set on upsert")
	}

	got, err := s.GetRecord(ctx, "DOC-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Barcode != "111222" || got.SourceFile != "/in/export.xlsx" || got.RowNumber != 2 {
		t.Errorf("got %+v", got)
	}

	if err := s.DeleteRecord(ctx, "DOC-1"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetRecord(ctx, "DOC-1"); err == nil {
		t.Error("expected error after delete")
	}
}

func TestSQLiteStore_UpsertLastWriteWins(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := &models.BarcodeRecord{DocumentID: "DOC-1", Barcode: "111222", SourceFile: "a.xlsx"}
	if err := s.UpsertRecord(ctx, first); err != nil {
		t.Fatal(err)
	}
	second := &models.BarcodeRecord{DocumentID: "DOC-1", Barcode: "999000", SourceFile: "b.xlsx"}
	if err := s.UpsertRecord(ctx, second); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetRecord(ctx, "DOC-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Barcode != "999000" || got.SourceFile != "b.xlsx" {
		t.Errorf("later import should overwrite: %+v", got)
	}
	n, err := s.CountRecords(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("expected 1 record, got %d", n)
	}
}

func TestSQLiteStore_BatchUpsertAndList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	recs := []*models.BarcodeRecord{
		{DocumentID: "DOC-1", Barcode: "111222", SourceFile: "a.xlsx"},
		{DocumentID: "DOC-2", Barcode: "333444", SourceFile: "a.xlsx"},
		{DocumentID: "DOC-1", Barcode: "555666", SourceFile: "a.xlsx"},
	}
	if err := s.BatchUpsertRecords(ctx, recs); err != nil {
		t.Fatal(err)
	}

	n, _ := s.CountRecords(ctx)
	if n != 2 {
		t.Errorf("duplicate key within batch should collapse: got %d records", n)
	}
	got, err := s.GetRecord(ctx, "DOC-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Barcode != "555666" {
		t.Errorf("last row in batch should win: got %s", got.Barcode)
	}

	list, err := s.ListRecords(ctx, 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Errorf("expected 2 records, got %d", len(list))
	}
}

func TestSQLiteStore_ImageRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	img := []byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a}
	rec := &models.BarcodeRecord{
		DocumentID:  "DOC-IMG",
		Barcode:     "777888",
		SourceFile:  "a.xlsx",
		Image:       img,
		ImageFormat: "png",
	}
	if err := s.UpsertRecord(ctx, rec); err != nil {
		t.Fatal(err)
	}
	got, err := s.GetRecord(ctx, "DOC-IMG")
	if err != nil {
		t.Fatal(err)
	}
	if !got.HasImage() || string(got.Image) != string(img) || got.ImageFormat != "png" {
		t.Errorf("image round trip failed: %+v", got)
	}
}

func TestSQLiteStore_ListRecordsBySource(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_ = s.BatchUpsertRecords(ctx, []*models.BarcodeRecord{
		{DocumentID: "DOC-2", Barcode: "2", SourceFile: "a.xlsx", RowNumber: 3},
		{DocumentID: "DOC-1", Barcode: "1", SourceFile: "a.xlsx", RowNumber: 2},
		{DocumentID: "DOC-3", Barcode: "3", SourceFile: "b.xlsx", RowNumber: 2},
	})

	recs, err := s.ListRecordsBySource(ctx, "a.xlsx")
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	if recs[0].DocumentID != "DOC-1" || recs[1].DocumentID != "DOC-2" {
		t.Errorf("expected row order, got %s then %s", recs[0].DocumentID, recs[1].DocumentID)
	}
}

func TestSQLiteStore_DeleteRecordsBySource(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_ = s.BatchUpsertRecords(ctx, []*models.BarcodeRecord{
		{DocumentID: "DOC-1", Barcode: "1", SourceFile: "a.xlsx"},
		{DocumentID: "DOC-2", Barcode: "2", SourceFile: "a.xlsx"},
		{DocumentID: "DOC-3", Barcode: "3", SourceFile: "b.xlsx"},
	})
	_ = s.PutSourceFile(ctx, &models.SourceFingerprint{Path: "a.xlsx", Mtime: "1", Size: 10})

	n, err := s.DeleteRecordsBySource(ctx, "a.xlsx")
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("expected 2 removed, got %d", n)
	}
	if _, err := s.GetSourceFile(ctx, "a.xlsx"); err == nil {
		t.Error("fingerprint should be removed with the source")
	}
	if _, err := s.GetRecord(ctx, "DOC-3"); err != nil {
		t.Error("records from other sources should survive")
	}
}

func TestSQLiteStore_SourceFingerprints(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.GetSourceFile(ctx, "/in/export.xlsx"); err == nil {
		t.Error("expected error for unknown source")
	}
	fp := &models.SourceFingerprint{Path: "/in/export.xlsx", Mtime: "1700000000000000000", Size: 2048}
	if err := s.PutSourceFile(ctx, fp); err != nil {
		t.Fatal(err)
	}
	got, err := s.GetSourceFile(ctx, "/in/export.xlsx")
	if err != nil {
		t.Fatal(err)
	}
	if got.Mtime != fp.Mtime || got.Size != fp.Size {
		t.Errorf("got %+v", got)
	}

	fp.Size = 4096
	if err := s.PutSourceFile(ctx, fp); err != nil {
		t.Fatal(err)
	}
	got, _ = s.GetSourceFile(ctx, "/in/export.xlsx")
	if got.Size != 4096 {
		t.Errorf("fingerprint should be replaced: %+v", got)
	}
}

func TestSQLiteStore_DeleteSourceFile(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_ = s.UpsertRecord(ctx, &models.BarcodeRecord{DocumentID: "DOC-1", Barcode: "1", SourceFile: "a.xlsx"})
	_ = s.PutSourceFile(ctx, &models.SourceFingerprint{Path: "a.xlsx", Mtime: "1", Size: 10})

	if err := s.DeleteSourceFile(ctx, "a.xlsx"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetSourceFile(ctx, "a.xlsx"); !errors.Is(err, ErrNotFound) {
		t.Errorf("fingerprint should be gone, got %v", err)
	}
	if _, err := s.GetRecord(ctx, "DOC-1"); err != nil {
		t.Errorf("records must survive fingerprint removal: %v", err)
	}
}
