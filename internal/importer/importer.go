// Package importer loads accounting spreadsheet exports into the barcode store.
package importer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/akvl/barstamp/internal/config"
	"github.com/akvl/barstamp/internal/docid"
	"github.com/akvl/barstamp/internal/extract"
	"github.com/akvl/barstamp/internal/lookup"
	"github.com/akvl/barstamp/internal/models"
	"github.com/akvl/barstamp/internal/store"
)

// Importer parses spreadsheet exports and upserts their rows into the store
// and the lookup index.
type Importer struct {
	store  store.Store
	index  lookup.Index
	config *config.ImportConfig
	logger *zap.Logger // optional; when set, logs debug events
}

// Option configures an Importer.
type Option func(*Importer)

// WithLogger sets a logger for debug output (file imported, file skipped, etc.).
func WithLogger(l *zap.Logger) Option {
	return func(imp *Importer) { imp.logger = l }
}

// NewImporter creates an importer with the given dependencies.
// index may be nil; when nil, records are stored but not indexed for lookup.
func NewImporter(st store.Store, idx lookup.Index, cfg *config.ImportConfig, opts ...Option) *Importer {
	imp := &Importer{
		store:  st,
		index:  idx,
		config: cfg,
	}
	for _, opt := range opts {
		opt(imp)
	}
	return imp
}

func (imp *Importer) layout() extract.Layout {
	return extract.Layout{
		Sheet:         imp.config.Sheet,
		HeaderRows:    imp.config.HeaderRowsOrDefault(),
		IDColumn:      imp.config.IDColumn,
		BarcodeColumn: imp.config.BarcodeColumn,
		ExtractImages: imp.config.ExtractImagesOrDefault(),
	}
}

// ImportFile imports one spreadsheet. The returned report is always non-nil;
// when the file cannot be imported as a whole, the report's Error field is set
// and the error is also returned. Skips re-reading if the file matches the
// stored fingerprint (incremental import).
func (imp *Importer) ImportFile(ctx context.Context, path string) (*models.FileImportReport, error) {
	report := &models.FileImportReport{File: path}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fail(report, fmt.Errorf("absolute path: %w", err))
	}
	report.File = absPath

	ext := strings.ToLower(filepath.Ext(absPath))
	if len(imp.config.Extensions) > 0 && !extensionAllowed(ext, imp.config.Extensions) {
		return fail(report, fmt.Errorf("extension %q not in allowed list", ext))
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return fail(report, fmt.Errorf("stat file: %w", err))
	}
	if !info.Mode().IsRegular() {
		return fail(report, fmt.Errorf("not a regular file: %s", absPath))
	}

	if imp.isUnchanged(ctx, absPath, info) {
		report.Unchanged = true
		if imp.logger != nil {
			imp.logger.Debug("importer skipping unchanged file", zap.String("path", absPath))
		}
		return report, nil
	}

	data, err := extract.ParseFile(absPath, imp.layout())
	if err != nil {
		return fail(report, fmt.Errorf("parse workbook: %w", err))
	}
	report.Sheet = data.Sheet
	report.Skipped = data.Skipped

	now := time.Now()
	recs := make([]*models.BarcodeRecord, 0, len(data.Rows))
	for _, row := range data.Rows {
		recs = append(recs, &models.BarcodeRecord{
			DocumentID:  docid.Normalize(row.DocumentID),
			Barcode:     row.Barcode,
			SourceFile:  absPath,
			SheetName:   data.Sheet,
			RowNumber:   row.Number,
			Image:       row.Image,
			ImageFormat: row.ImageFormat,
			ImportedAt:  now,
			UpdatedAt:   now,
		})
	}
	if err := imp.store.BatchUpsertRecords(ctx, recs); err != nil {
		return fail(report, fmt.Errorf("store records: %w", err))
	}
	if imp.index != nil {
		for _, rec := range recs {
			if err := imp.index.Index(ctx, lookup.EntryFromRecord(rec)); err != nil {
				return fail(report, fmt.Errorf("index record %s: %w", rec.DocumentID, err))
			}
		}
	}
	if err := imp.store.PutSourceFile(ctx, &models.SourceFingerprint{
		Path:  absPath,
		Mtime: strconv.FormatInt(info.ModTime().UnixNano(), 10),
		Size:  info.Size(),
	}); err != nil {
		return fail(report, fmt.Errorf("store fingerprint: %w", err))
	}

	report.Imported = len(recs)
	if imp.logger != nil {
		imp.logger.Debug("importer file imported",
			zap.String("path", absPath),
			zap.Int("records", len(recs)),
			zap.Int("skipped_rows", len(data.Skipped)))
	}
	return report, nil
}

// isUnchanged reports whether the file matches its stored fingerprint.
func (imp *Importer) isUnchanged(ctx context.Context, absPath string, info os.FileInfo) bool {
	fp, err := imp.store.GetSourceFile(ctx, absPath)
	if err != nil || fp == nil {
		return false
	}
	return fp.Mtime == strconv.FormatInt(info.ModTime().UnixNano(), 10) && fp.Size == info.Size()
}

// ImportDirectory walks dir recursively and imports each regular file whose
// extension is in the configured list. One file's failure is recorded in the
// batch report and does not abort the rest. Returns an error only when the
// directory itself cannot be read.
func (imp *Importer) ImportDirectory(ctx context.Context, dir string) (*models.ImportReport, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absDir)
	if err != nil {
		return nil, fmt.Errorf("stat directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", absDir)
	}

	run := newRun()
	start := time.Now()
	err = filepath.WalkDir(absDir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if len(imp.config.Extensions) > 0 && !extensionAllowed(ext, imp.config.Extensions) {
			return nil
		}
		// Resolve symlinks so only regular files are imported
		finfo, statErr := os.Stat(path)
		if statErr != nil || !finfo.Mode().IsRegular() {
			return nil
		}
		fr, _ := imp.ImportFile(ctx, path)
		run.Add(*fr)
		return nil
	})
	finish(run, start)
	if err != nil {
		return run, fmt.Errorf("walk directory: %w", err)
	}
	return run, nil
}

// ImportFiles imports an explicit list of spreadsheet paths (selective mode).
// Per-file failures are recorded in the report; the batch always completes.
func (imp *Importer) ImportFiles(ctx context.Context, paths []string) *models.ImportReport {
	run := newRun()
	start := time.Now()
	for _, p := range paths {
		if ctx.Err() != nil {
			break
		}
		fr, _ := imp.ImportFile(ctx, p)
		run.Add(*fr)
	}
	finish(run, start)
	return run
}

func newRun() *models.ImportReport {
	return &models.ImportReport{RunID: uuid.New().String()}
}

func finish(r *models.ImportReport, start time.Time) {
	r.Duration = time.Since(start)
	r.DurationMS = r.Duration.Milliseconds()
}

func fail(r *models.FileImportReport, err error) (*models.FileImportReport, error) {
	r.Error = err.Error()
	return r, err
}

func extensionAllowed(ext string, allowed []string) bool {
	extNorm := strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, a := range allowed {
		if strings.ToLower(strings.TrimPrefix(a, ".")) == extNorm {
			return true
		}
	}
	return false
}
