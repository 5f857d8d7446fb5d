// Package docid derives the document identifier used to match a target
// document against stored barcode records.
package docid

import (
	"bytes"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/akvl/barstamp/pkg/utils"
)

// Normalize canonicalizes an identifier: trimmed, internal whitespace
// collapsed, upper-cased. Spreadsheet rows and file stems go through the same
// normalization so that matching is insensitive to case and spacing.
func Normalize(s string) string {
	return strings.ToUpper(utils.CollapseSpaces(s))
}

// FromPath returns the identifier for a target document file: its normalized
// file stem. Same stem always yields the same identifier, matching how the
// accounting export names its rows.
func FromPath(path string) string {
	return Normalize(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
}

// Matcher extracts an identifier from document text with a configured pattern.
// When the pattern has a capture group, the first group is the identifier;
// otherwise the whole match is.
type Matcher struct {
	re *regexp.Regexp
}

// NewMatcher compiles pattern. An empty pattern is an error; callers should
// skip content matching entirely when no pattern is configured.
func NewMatcher(pattern string) (*Matcher, error) {
	if pattern == "" {
		return nil, fmt.Errorf("empty id pattern")
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compile id pattern: %w", err)
	}
	return &Matcher{re: re}, nil
}

// MatchText returns the identifier found in text, or "" when there is none.
func (m *Matcher) MatchText(text string) string {
	groups := m.re.FindStringSubmatch(text)
	if groups == nil {
		return ""
	}
	match := groups[0]
	if len(groups) > 1 {
		match = groups[1]
	}
	return Normalize(match)
}

// FromContent scans the first page of a PDF for the pattern. Used as a
// fallback when file names are opaque. Returns "" when the page has no match.
func (m *Matcher) FromContent(content []byte) (string, error) {
	text, err := firstPageText(content)
	if err != nil {
		return "", err
	}
	return m.MatchText(text), nil
}

func firstPageText(content []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("open PDF: %w", err)
	}
	if r.NumPage() < 1 {
		return "", nil
	}
	page := r.Page(1)
	if page.V.IsNull() {
		return "", nil
	}
	text, err := page.GetPlainText(nil)
	if err != nil {
		return "", fmt.Errorf("extract first page: %w", err)
	}
	return text, nil
}
