package models

import "time"

// SkippedRow is a spreadsheet row that could not produce a record.
type SkippedRow struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// FileImportReport is the result of importing one spreadsheet.
type FileImportReport struct {
	File     string       `json:"file"`
	Sheet    string       `json:"sheet,omitempty"`
	Imported int          `json:"imported"`
	Skipped  []SkippedRow `json:"skipped,omitempty"`
	// Unchanged is true when the file matched a stored fingerprint and was not re-read.
	Unchanged bool   `json:"unchanged,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Failed reports whether the file as a whole could not be imported.
func (r *FileImportReport) Failed() bool {
	return r.Error != ""
}

// ImportReport aggregates a batch or selective import run.
type ImportReport struct {
	RunID    string             `json:"run_id"`
	Files    []FileImportReport `json:"files"`
	Imported int                `json:"imported"`
	Failed   int                `json:"failed"`
	Duration time.Duration      `json:"-"`
	// DurationMS mirrors Duration for JSON consumers.
	DurationMS int64 `json:"duration_ms"`
}

// Add appends a file report and updates the batch totals.
func (r *ImportReport) Add(fr FileImportReport) {
	r.Files = append(r.Files, fr)
	r.Imported += fr.Imported
	if fr.Failed() {
		r.Failed++
	}
}

// ItemStatus is the terminal state of one annotated document.
type ItemStatus string

const (
	// StatusDone means the barcode was stamped and the output written.
	StatusDone ItemStatus = "done"
	// StatusSkipped means no barcode was found for the document; the input is untouched.
	StatusSkipped ItemStatus = "skipped"
	// StatusFailed means the document could not be processed (corrupt file, write failure).
	StatusFailed ItemStatus = "failed"
)

// ItemReport is the result of annotating one target document.
type ItemReport struct {
	File       string     `json:"file"`
	DocumentID string     `json:"document_id"`
	Status     ItemStatus `json:"status"`
	Barcode    string     `json:"barcode,omitempty"`
	Output     string     `json:"output,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// AnnotateReport aggregates an annotation run.
type AnnotateReport struct {
	RunID      string        `json:"run_id"`
	Items      []ItemReport  `json:"items"`
	Done       int           `json:"done"`
	Skipped    int           `json:"skipped"`
	Failed     int           `json:"failed"`
	Duration   time.Duration `json:"-"`
	DurationMS int64         `json:"duration_ms"`
}

// Unmatched returns the reports of documents that had no barcode in the store.
func (r *AnnotateReport) Unmatched() []ItemReport {
	var out []ItemReport
	for _, it := range r.Items {
		if it.Status == StatusSkipped {
			out = append(out, it)
		}
	}
	return out
}
