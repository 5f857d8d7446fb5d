// Package annotate stamps stored barcodes onto target PDF documents.
package annotate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/akvl/barstamp/internal/config"
	"github.com/akvl/barstamp/internal/docid"
	"github.com/akvl/barstamp/internal/models"
	"github.com/akvl/barstamp/internal/store"
	"github.com/akvl/barstamp/pkg/utils"
)

const defaultWorkers = 4

// Annotator matches target documents against stored barcode records and writes
// stamped copies. It never writes to the store and never modifies an input
// that has no match.
type Annotator struct {
	store   store.Store
	stamper Stamper
	config  *config.AnnotateConfig
	matcher *docid.Matcher // optional; first-page text fallback
	logger  *zap.Logger    // optional
}

// Option configures an Annotator.
type Option func(*Annotator)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(a *Annotator) { a.logger = l }
}

// NewAnnotator creates an annotator. When cfg.IDPattern is set, documents whose
// file name does not identify them are matched against their first-page text.
func NewAnnotator(st store.Store, stamper Stamper, cfg *config.AnnotateConfig, opts ...Option) (*Annotator, error) {
	a := &Annotator{
		store:   st,
		stamper: stamper,
		config:  cfg,
	}
	if cfg.IDPattern != "" {
		m, err := docid.NewMatcher(cfg.IDPattern)
		if err != nil {
			return nil, fmt.Errorf("id pattern: %w", err)
		}
		a.matcher = m
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Run annotates every PDF under docsDir. Per-document failures are recorded in
// the report and do not stop the run. Returns an error only when docsDir cannot
// be read or the output directory cannot be created.
func (a *Annotator) Run(ctx context.Context, docsDir string) (*models.AnnotateReport, error) {
	absDir, err := filepath.Abs(docsDir)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	outputDir := a.config.OutputDir
	if outputDir == "" {
		outputDir = filepath.Join(absDir, "annotated")
	}

	files, err := collectPDFs(absDir, outputDir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(outputDir, 0750); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	if a.config.ArchiveDir != "" {
		if err := os.MkdirAll(a.config.ArchiveDir, 0750); err != nil {
			return nil, fmt.Errorf("create archive directory: %w", err)
		}
	}

	report := &models.AnnotateReport{RunID: uuid.New().String()}
	start := time.Now()

	workers := a.config.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)

	items := make([]models.ItemReport, len(files))
	for i, path := range files {
		i, path := i, path
		eg.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			items[i] = a.processFile(gctx, path, absDir, outputDir)
			return nil
		})
	}
	if err := eg.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return nil, err
	}

	for _, item := range items {
		if item.File == "" {
			continue
		}
		report.Items = append(report.Items, item)
		switch item.Status {
		case models.StatusDone:
			report.Done++
		case models.StatusSkipped:
			report.Skipped++
		case models.StatusFailed:
			report.Failed++
		}
	}
	report.Duration = time.Since(start)
	report.DurationMS = report.Duration.Milliseconds()
	if a.logger != nil {
		a.logger.Debug("annotate run complete",
			zap.String("run_id", report.RunID),
			zap.Int("done", report.Done),
			zap.Int("skipped", report.Skipped),
			zap.Int("failed", report.Failed))
	}
	return report, nil
}

func (a *Annotator) processFile(ctx context.Context, path, docsDir, outputDir string) models.ItemReport {
	item := models.ItemReport{File: path}

	rec, id, err := a.findRecord(ctx, path)
	item.DocumentID = id
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			item.Status = models.StatusSkipped
			item.Error = "no barcode found"
			return item
		}
		item.Status = models.StatusFailed
		item.Error = err.Error()
		return item
	}
	item.Barcode = rec.Barcode

	outPath := filepath.Join(outputDir, fmt.Sprintf("%s_%s.pdf", outputStem(docsDir, path), utils.SafeFileName(rec.Barcode)))

	if rec.HasImage() {
		err = a.stamper.StampImage(path, outPath, rec.Image)
	} else {
		err = a.stamper.StampText(path, outPath, rec.Barcode)
	}
	if err != nil {
		item.Status = models.StatusFailed
		item.Error = err.Error()
		return item
	}
	item.Status = models.StatusDone
	item.Output = outPath

	if a.config.ArchiveDir != "" {
		if err := moveFile(path, filepath.Join(a.config.ArchiveDir, filepath.Base(path))); err != nil && a.logger != nil {
			a.logger.Warn("archive failed", zap.String("path", path), zap.Error(err))
		}
	}
	return item
}

// outputStem derives the output file stem from path relative to docsDir.
// Same-named documents in different subdirectories keep distinct output paths.
func outputStem(docsDir, path string) string {
	rel, err := filepath.Rel(docsDir, path)
	if err != nil {
		rel = filepath.Base(path)
	}
	stem := strings.TrimSuffix(rel, filepath.Ext(rel))
	return strings.ReplaceAll(stem, string(filepath.Separator), "_")
}

// findRecord resolves the document identifier for path and looks it up. When
// the file name yields no record and an ID pattern is configured, the
// first-page text is tried before giving up.
func (a *Annotator) findRecord(ctx context.Context, path string) (*models.BarcodeRecord, string, error) {
	id := docid.FromPath(path)
	rec, err := a.store.GetRecord(ctx, id)
	if err == nil {
		return rec, id, nil
	}
	if !errors.Is(err, store.ErrNotFound) || a.matcher == nil {
		return nil, id, err
	}

	content, readErr := os.ReadFile(path)
	if readErr != nil {
		return nil, id, fmt.Errorf("read document: %w", readErr)
	}
	contentID, matchErr := a.matcher.FromContent(content)
	if matchErr != nil || contentID == "" {
		return nil, id, err
	}
	rec, err = a.store.GetRecord(ctx, contentID)
	if err != nil {
		return nil, contentID, err
	}
	return rec, contentID, nil
}

// collectPDFs walks dir and returns every regular .pdf file, skipping the
// output directory so reruns do not annotate their own results.
func collectPDFs(dir, outputDir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if path == outputDir {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.EqualFold(filepath.Ext(path), ".pdf") {
			return nil
		}
		info, statErr := os.Stat(path)
		if statErr != nil || !info.Mode().IsRegular() {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk documents: %w", err)
	}
	sort.Strings(files)
	return files, nil
}

// moveFile renames src to dst, falling back to copy-and-remove across filesystems.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}
