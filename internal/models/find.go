package models

// FindQuery is a record lookup request.
type FindQuery struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
	// Fuzzy enables typo-tolerant matching (edit distance up to Fuzziness).
	Fuzzy     bool `json:"fuzzy"`
	Fuzziness int  `json:"fuzziness,omitempty"`
}

// FindHit is one lookup result with its matched record.
type FindHit struct {
	Score  float64        `json:"score"`
	Record *BarcodeRecord `json:"record"`
}

// FindResponse is the result of a record lookup.
type FindResponse struct {
	Hits      []*FindHit `json:"hits"`
	Total     int        `json:"total"`
	QueryTime int64      `json:"query_time_ms"`
	// AutoFuzzy is true when the exact query had no hits and fuzzy matching was retried.
	AutoFuzzy bool `json:"auto_fuzzy,omitempty"`
}
