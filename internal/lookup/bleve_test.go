package lookup

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestIndex(t *testing.T) *BleveIndex {
	t.Helper()
	idx, err := NewBleveIndex(filepath.Join(t.TempDir(), "lookup"))
	if err != nil {
		t.Fatalf("NewBleveIndex: %v", err)
	}
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func TestBleveIndex_SearchByBarcode(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	if err := idx.Index(ctx, &Entry{DocumentID: "DOC-1", Barcode: "111222", SourceFile: "export_may.xlsx"}); err != nil {
		t.Fatalf("Index: %v", err)
	}
	if err := idx.Index(ctx, &Entry{DocumentID: "DOC-2", Barcode: "333444", SourceFile: "export_may.xlsx"}); err != nil {
		t.Fatalf("Index: %v", err)
	}

	results, err := idx.Search(ctx, "111222", 10, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("expected a hit for the barcode value")
	}
	if results[0].DocumentID != "DOC-1" {
		t.Errorf("first result = %q, want DOC-1", results[0].DocumentID)
	}

	n, err := idx.DocCount()
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("DocCount = %d, want 2", n)
	}
}

func TestBleveIndex_FuzzySearchToleratesTypo(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	if err := idx.Index(ctx, &Entry{DocumentID: "DOC-1", Barcode: "987654", SourceFile: "shipments.xlsx"}); err != nil {
		t.Fatalf("Index: %v", err)
	}

	// "shipmants" is one edit away from "shipments".
	results, err := idx.Search(ctx, "shipmants", 10, &Options{FuzzyEnabled: true})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("expected fuzzy hit despite the typo")
	}

	exact, err := idx.Search(ctx, "shipmants", 10, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(exact) != 0 {
		t.Errorf("exact search should not match the typo, got %d hits", len(exact))
	}
}

func TestBleveIndex_ReindexReplacesAndDeleteRemoves(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	_ = idx.Index(ctx, &Entry{DocumentID: "DOC-1", Barcode: "111222", SourceFile: "a.xlsx"})
	_ = idx.Index(ctx, &Entry{DocumentID: "DOC-1", Barcode: "999000", SourceFile: "b.xlsx"})

	n, _ := idx.DocCount()
	if n != 1 {
		t.Errorf("re-index should replace, DocCount = %d", n)
	}
	results, err := idx.Search(ctx, "999000", 10, nil)
	if err != nil || len(results) == 0 {
		t.Fatalf("expected hit for replacement barcode, err=%v", err)
	}

	if err := idx.Delete(ctx, "DOC-1"); err != nil {
		t.Fatal(err)
	}
	results, _ = idx.Search(ctx, "999000", 10, nil)
	if len(results) != 0 {
		t.Errorf("expected no hits after delete, got %d", len(results))
	}
}

func TestBleveIndex_OpenExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lookup")

	idx, err := NewBleveIndex(path)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	_ = idx.Index(ctx, &Entry{DocumentID: "DOC-1", Barcode: "111222", SourceFile: "a.xlsx"})
	if err := idx.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := NewBleveIndex(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	n, err := reopened.DocCount()
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("reopened index should keep entries, DocCount = %d", n)
	}
}
