package entities

import (
	"fmt"
	"strings"
)

// Severity ranks an inspection result. The zero value is SeverityNull,
// which sorts below every real severity.
type Severity int

const (
	SeverityNull Severity = iota
	SeverityOK
	SeverityInfo
	SeverityVerify
	SeverityBad
)

var severityNames = map[Severity]string{
	SeverityNull:   "NULL",
	SeverityOK:     "OK",
	SeverityInfo:   "INFO",
	SeverityVerify: "VERIFY",
	SeverityBad:    "BAD",
}

func (s Severity) String() string {
	if name, ok := severityNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

// ParseSeverity converts a severity name (case-insensitive) to a Severity
func ParseSeverity(name string) (Severity, error) {
	want := strings.ToUpper(strings.TrimSpace(name))
	for s, n := range severityNames {
		if n == want {
			return s, nil
		}
	}
	return SeverityNull, fmt.Errorf("unknown severity %q", name)
}

// MarshalText implements encoding.TextMarshaler
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (s *Severity) UnmarshalText(text []byte) error {
	parsed, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// WaiverAuth names who may override a failing result. It is orthogonal
// to Severity.
type WaiverAuth int

const (
	WaiverNull WaiverAuth = iota
	NotWaivable
	WaivableByAnyone
	WaivableBySecurity
)

func (w WaiverAuth) String() string {
	switch w {
	case NotWaivable:
		return "Not Waivable"
	case WaivableByAnyone:
		return "Anyone"
	case WaivableBySecurity:
		return "Security"
	default:
		return ""
	}
}

// MarshalText implements encoding.TextMarshaler
func (w WaiverAuth) MarshalText() ([]byte, error) {
	return []byte(w.String()), nil
}

// InspectionResult is one finding produced by an inspection.
// Severity and WaiverAuth are always set together by the producing rule.
type InspectionResult struct {
	Header     string     `json:"header"`
	Severity   Severity   `json:"severity"`
	WaiverAuth WaiverAuth `json:"waiver_authorization,omitempty"`
	Message    string     `json:"message,omitempty"`
	Details    string     `json:"details,omitempty"`
	Remedy     string     `json:"remedy,omitempty"`
	Arch       string     `json:"arch,omitempty"`
	File       string     `json:"file,omitempty"`
}

// Report is the ordered, append-only sequence of inspection results
type Report struct {
	RunID   string
	results []InspectionResult
}

// NewReport creates an empty report
func NewReport(runID string) *Report {
	return &Report{RunID: runID}
}

// Add appends a result. It never fails and never deduplicates.
func (r *Report) Add(result InspectionResult) {
	r.results = append(r.results, result)
}

// Results returns the results in insertion order
func (r *Report) Results() []InspectionResult {
	out := make([]InspectionResult, len(r.results))
	copy(out, r.results)
	return out
}

// Len returns the number of results recorded so far
func (r *Report) Len() int {
	return len(r.results)
}

// Since returns the results appended after the first n
func (r *Report) Since(n int) []InspectionResult {
	if n >= len(r.results) {
		return nil
	}
	return r.Results()[n:]
}

// Result headers of the inspections this module ships
const (
	HeaderScriptlets = "scriptlets"
	HeaderUnicode    = "unicode"
)
