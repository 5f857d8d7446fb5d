package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/akvl/barstamp/internal/lookup"
	"github.com/akvl/barstamp/internal/models"
	"github.com/akvl/barstamp/internal/store"
)

func TestBuildFindQuery(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected string
	}{
		{"single word", []string{"4600000000017"}, "4600000000017"},
		{"multiple words", []string{"INV", "042"}, "INV 042"},
		{"single quoted phrase", []string{"INV 042"}, "INV 042"},
		{"empty args", []string{}, ""},
		{"blank args", []string{"  ", "  "}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := buildFindQuery(tt.args)
			if got != tt.expected {
				t.Errorf("buildFindQuery(%v) = %q, want %q", tt.args, got, tt.expected)
			}
		})
	}
}

func TestParseOutputFormat(t *testing.T) {
	if _, err := parseOutputFormat("text"); err != nil {
		t.Errorf("text: %v", err)
	}
	if _, err := parseOutputFormat("json"); err != nil {
		t.Errorf("json: %v", err)
	}
	if _, err := parseOutputFormat("yaml"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestDropSourceEntriesKeepsStoreRecords(t *testing.T) {
	dir := t.TempDir()
	st, err := store.NewSQLiteStore(filepath.Join(dir, "barcodes.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	idx, err := lookup.NewBleveIndex(filepath.Join(dir, "lookup"))
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()
	components := &Components{Store: st, Index: idx}

	ctx := context.Background()
	src := filepath.Join(dir, "august.xlsx")
	now := time.Now()
	rec := &models.BarcodeRecord{
		DocumentID: "INV-001",
		Barcode:    "4600000000017",
		SourceFile: src,
		ImportedAt: now,
		UpdatedAt:  now,
	}
	if err := st.UpsertRecord(ctx, rec); err != nil {
		t.Fatal(err)
	}
	if err := idx.Index(ctx, lookup.EntryFromRecord(rec)); err != nil {
		t.Fatal(err)
	}
	if err := st.PutSourceFile(ctx, &models.SourceFingerprint{Path: src, Mtime: "1", Size: 1}); err != nil {
		t.Fatal(err)
	}

	if err := dropSourceEntries(ctx, components, src); err != nil {
		t.Fatalf("dropSourceEntries: %v", err)
	}

	if _, err := st.GetRecord(ctx, "INV-001"); err != nil {
		t.Errorf("record must survive source removal: %v", err)
	}
	if n, _ := idx.DocCount(); n != 0 {
		t.Errorf("lookup entries = %d, want 0", n)
	}
	if _, err := st.GetSourceFile(ctx, src); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("fingerprint should be dropped, got %v", err)
	}
}

func TestLoadConfig_prefersCwdConfigWhenDefaultPath(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
debug: true
server:
  host: "localhost"
  port: 8080
storage:
  database_path: "test.db"
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	origWd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.Chdir(origWd) }()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, err := loadConfig(defaultConfigPath)
	if err != nil {
		t.Fatal(err)
	}
	// On macOS, cwd can be /private/var/... while configPath from t.TempDir() is /var/...; compare canonical paths.
	resolvedCanon, _ := filepath.EvalSymlinks(resolved)
	configPathCanon, _ := filepath.EvalSymlinks(configPath)
	if resolvedCanon != configPathCanon {
		t.Errorf("resolved path = %s, want %s", resolved, configPath)
	}
	if !cfg.Debug {
		t.Error("debug should be true from cwd config.yaml")
	}
}

func TestLoadConfig_usesExplicitPath(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: "127.0.0.1"
  port: 9000
storage:
  database_path: "test.db"
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		t.Fatal(err)
	}
	if resolved != configPath {
		t.Errorf("resolved path = %s, want %s", resolved, configPath)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
}
