// Package cli provides report output helpers for the barstamp command.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/akvl/barstamp/internal/models"
	"github.com/akvl/barstamp/pkg/utils"
)

// OutputFormat is the format for report output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// WriteImportReport writes an import run report to w in the given format.
func WriteImportReport(w io.Writer, report *models.ImportReport, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, report)
	}
	fmt.Fprintf(w, "\nImported %d records from %d files in %dms (%d failed)\n\n",
		report.Imported, len(report.Files), report.DurationMS, report.Failed)
	for _, fr := range report.Files {
		switch {
		case fr.Failed():
			fmt.Fprintf(w, "  FAIL  %s: %s\n", fr.File, fr.Error)
		case fr.Unchanged:
			fmt.Fprintf(w, "  skip  %s (unchanged)\n", fr.File)
		default:
			fmt.Fprintf(w, "  ok    %s: %d records", fr.File, fr.Imported)
			if len(fr.Skipped) > 0 {
				fmt.Fprintf(w, ", %d rows skipped", len(fr.Skipped))
			}
			fmt.Fprintln(w)
		}
		for _, row := range fr.Skipped {
			fmt.Fprintf(w, "          row %d: %s\n", row.Row, row.Reason)
		}
	}
	return nil
}

// WriteAnnotateReport writes an annotation run report to w in the given format.
func WriteAnnotateReport(w io.Writer, report *models.AnnotateReport, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, report)
	}
	fmt.Fprintf(w, "\nAnnotated %d documents in %dms (%d without barcode, %d failed)\n\n",
		report.Done, report.DurationMS, report.Skipped, report.Failed)
	for _, item := range report.Items {
		switch item.Status {
		case models.StatusDone:
			fmt.Fprintf(w, "  ok    %s -> %s\n", item.File, item.Output)
		case models.StatusSkipped:
			fmt.Fprintf(w, "  skip  %s (%s)\n", item.File, item.Error)
		case models.StatusFailed:
			fmt.Fprintf(w, "  FAIL  %s: %s\n", item.File, item.Error)
		}
	}
	return nil
}

// WriteFindResults writes lookup results to w in the given format.
// Use OutputJSON for parseable output consumable by other apps.
func WriteFindResults(w io.Writer, response *models.FindResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, response)
	}
	fmt.Fprintf(w, "\nFound %d records in %dms", response.Total, response.QueryTime)
	if response.AutoFuzzy {
		fmt.Fprintf(w, " (fuzzy retry)")
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w)
	for _, hit := range response.Hits {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "Score: %.4f\n", hit.Score)
		fmt.Fprintf(w, "Document: %s\n", hit.Record.DocumentID)
		fmt.Fprintf(w, "Barcode:  %s\n", hit.Record.Barcode)
		fmt.Fprintf(w, "Source:   %s", utils.Truncate(hit.Record.SourceFile, 80))
		if hit.Record.SheetName != "" {
			fmt.Fprintf(w, " (%s, row %d)", hit.Record.SheetName, hit.Record.RowNumber)
		}
		fmt.Fprintln(w)
		fmt.Fprintln(w)
	}
	return nil
}

// PrintFindResults prints lookup results to stdout in text format.
func PrintFindResults(response *models.FindResponse) {
	_ = WriteFindResults(os.Stdout, response, OutputText)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
