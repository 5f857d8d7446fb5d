package importer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/akvl/barstamp/internal/config"
	"github.com/akvl/barstamp/internal/lookup"
	"github.com/akvl/barstamp/internal/store"
)

func testImportConfig() *config.ImportConfig {
	return &config.ImportConfig{
		IDColumn:      "A",
		BarcodeColumn: "D",
		Extensions:    []string{".xlsx"},
	}
}

func newTestImporter(t *testing.T) (*Importer, store.Store, lookup.Index) {
	t.Helper()
	dir := t.TempDir()
	st, err := store.NewSQLiteStore(filepath.Join(dir, "barcodes.db"))
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	idx, err := lookup.NewBleveIndex(filepath.Join(dir, "lookup"))
	if err != nil {
		t.Fatalf("create index: %v", err)
	}
	t.Cleanup(func() {
		idx.Close()
		st.Close()
	})
	return NewImporter(st, idx, testImportConfig()), st, idx
}

// writeWorkbook writes an xlsx with a header row followed by the given data
// rows. Each data row is [document_id, barcode] placed in columns A and D.
func writeWorkbook(t *testing.T, path string, rows [][2]string) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	f.SetCellValue("Sheet1", "A1", "Document")
	f.SetCellValue("Sheet1", "D1", "Barcode")
	for i, row := range rows {
		idCell, _ := excelize.CoordinatesToCellName(1, i+2)
		bcCell, _ := excelize.CoordinatesToCellName(4, i+2)
		if row[0] != "" {
			f.SetCellValue("Sheet1", idCell, row[0])
		}
		if row[1] != "" {
			f.SetCellValue("Sheet1", bcCell, row[1])
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save workbook: %v", err)
	}
}

func TestImportFileStoresAndIndexesRecords(t *testing.T) {
	imp, st, idx := newTestImporter(t)
	path := filepath.Join(t.TempDir(), "export.xlsx")
	writeWorkbook(t, path, [][2]string{
		{"INV-001", "4600000000017"},
		{"INV-002", "4600000000024"},
	})

	report, err := imp.ImportFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ImportFile: %v", err)
	}
	if report.Imported != 2 {
		t.Fatalf("Imported = %d, want 2", report.Imported)
	}
	if report.Failed() {
		t.Fatalf("unexpected report error: %s", report.Error)
	}

	rec, err := st.GetRecord(context.Background(), "INV-001")
	if err != nil {
		t.Fatalf("GetRecord: %v", err)
	}
	if rec.Barcode != "4600000000017" {
		t.Errorf("Barcode = %q, want 4600000000017", rec.Barcode)
	}
	if rec.RowNumber != 2 {
		t.Errorf("RowNumber = %d, want 2", rec.RowNumber)
	}

	results, err := idx.Search(context.Background(), "4600000000024", 10, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].DocumentID != "INV-002" {
		t.Errorf("search results = %+v, want INV-002", results)
	}
}

func TestImportFileNormalizesDocumentID(t *testing.T) {
	imp, st, _ := newTestImporter(t)
	path := filepath.Join(t.TempDir(), "export.xlsx")
	writeWorkbook(t, path, [][2]string{
		{"  inv   042 ", "4600000000031"},
	})

	if _, err := imp.ImportFile(context.Background(), path); err != nil {
		t.Fatalf("ImportFile: %v", err)
	}
	rec, err := st.GetRecord(context.Background(), "INV 042")
	if err != nil {
		t.Fatalf("GetRecord by normalized id: %v", err)
	}
	if rec.Barcode != "4600000000031" {
		t.Errorf("Barcode = %q, want 4600000000031", rec.Barcode)
	}
}

func TestImportFileReportsSkippedRows(t *testing.T) {
	imp, _, _ := newTestImporter(t)
	path := filepath.Join(t.TempDir(), "export.xlsx")
	writeWorkbook(t, path, [][2]string{
		{"INV-001", "4600000000017"},
		{"INV-002", ""},
		{"", "4600000000048"},
	})

	report, err := imp.ImportFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ImportFile: %v", err)
	}
	if report.Imported != 1 {
		t.Errorf("Imported = %d, want 1", report.Imported)
	}
	if len(report.Skipped) != 2 {
		t.Errorf("Skipped = %+v, want 2 rows", report.Skipped)
	}
}

func TestImportFileSkipsUnchanged(t *testing.T) {
	imp, _, _ := newTestImporter(t)
	path := filepath.Join(t.TempDir(), "export.xlsx")
	writeWorkbook(t, path, [][2]string{
		{"INV-001", "4600000000017"},
	})

	first, err := imp.ImportFile(context.Background(), path)
	if err != nil {
		t.Fatalf("first import: %v", err)
	}
	if first.Unchanged {
		t.Fatal("first import reported unchanged")
	}

	second, err := imp.ImportFile(context.Background(), path)
	if err != nil {
		t.Fatalf("second import: %v", err)
	}
	if !second.Unchanged {
		t.Error("second import did not skip unchanged file")
	}
	if second.Imported != 0 {
		t.Errorf("second import Imported = %d, want 0", second.Imported)
	}
}

func TestImportFileRejectsUnknownExtension(t *testing.T) {
	imp, _, _ := newTestImporter(t)
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("not a workbook"), 0644); err != nil {
		t.Fatal(err)
	}

	report, err := imp.ImportFile(context.Background(), path)
	if err == nil {
		t.Fatal("expected error for .txt file")
	}
	if !report.Failed() {
		t.Error("report does not carry the error")
	}
}

func TestImportDirectoryContinuesPastBadFile(t *testing.T) {
	imp, _, _ := newTestImporter(t)
	dir := t.TempDir()
	writeWorkbook(t, filepath.Join(dir, "good.xlsx"), [][2]string{
		{"INV-001", "4600000000017"},
	})
	if err := os.WriteFile(filepath.Join(dir, "broken.xlsx"), []byte("garbage"), 0644); err != nil {
		t.Fatal(err)
	}

	run, err := imp.ImportDirectory(context.Background(), dir)
	if err != nil {
		t.Fatalf("ImportDirectory: %v", err)
	}
	if len(run.Files) != 2 {
		t.Fatalf("Files = %d, want 2", len(run.Files))
	}
	if run.Imported != 1 {
		t.Errorf("Imported = %d, want 1", run.Imported)
	}
	if run.Failed != 1 {
		t.Errorf("Failed = %d, want 1", run.Failed)
	}
	if run.RunID == "" {
		t.Error("missing run ID")
	}
}

func TestImportDirectoryIgnoresOtherExtensions(t *testing.T) {
	imp, _, _ := newTestImporter(t)
	dir := t.TempDir()
	writeWorkbook(t, filepath.Join(dir, "export.xlsx"), [][2]string{
		{"INV-001", "4600000000017"},
	})
	if err := os.WriteFile(filepath.Join(dir, "readme.md"), []byte("ignore me"), 0644); err != nil {
		t.Fatal(err)
	}

	run, err := imp.ImportDirectory(context.Background(), dir)
	if err != nil {
		t.Fatalf("ImportDirectory: %v", err)
	}
	if len(run.Files) != 1 {
		t.Errorf("Files = %d, want 1", len(run.Files))
	}
}

func TestImportFilesSelective(t *testing.T) {
	imp, st, _ := newTestImporter(t)
	dir := t.TempDir()
	first := filepath.Join(dir, "first.xlsx")
	second := filepath.Join(dir, "second.xlsx")
	writeWorkbook(t, first, [][2]string{{"INV-001", "4600000000017"}})
	writeWorkbook(t, second, [][2]string{{"INV-002", "4600000000024"}})

	run := imp.ImportFiles(context.Background(), []string{second})
	if len(run.Files) != 1 || run.Imported != 1 {
		t.Fatalf("run = %+v, want one imported file", run)
	}
	if _, err := st.GetRecord(context.Background(), "INV-001"); err == nil {
		t.Error("INV-001 imported but was not selected")
	}
	if _, err := st.GetRecord(context.Background(), "INV-002"); err != nil {
		t.Errorf("INV-002 missing: %v", err)
	}
}
