package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/segmentio/encoding/json"

	orchestrators "github.com/ochairo/pkginspect/internal/domain-orchestrators"
	"github.com/ochairo/pkginspect/internal/domain/entities"
)

const (
	formatText = "text"
	formatJSON = "json"
)

var severityColors = map[entities.Severity]*color.Color{
	entities.SeverityOK:     color.New(color.FgGreen),
	entities.SeverityInfo:   color.New(color.FgCyan),
	entities.SeverityVerify: color.New(color.FgYellow, color.Bold),
	entities.SeverityBad:    color.New(color.FgRed, color.Bold),
}

func colorSeverity(s entities.Severity) string {
	if c, ok := severityColors[s]; ok {
		return c.Sprint(s.String())
	}
	return s.String()
}

// renderLint writes results in the lint layout: one underlined section per
// inspection header, with numbered messages inside each section
func renderLint(w io.Writer, results []entities.InspectionResult) error {
	var b strings.Builder
	header := ""
	count := 0

	for i, r := range results {
		if i == 0 || r.Header != header {
			if i > 0 {
				b.WriteString("\n")
			}
			header = r.Header
			count = 1
			fmt.Fprintf(&b, "%s:\n%s\n", header, strings.Repeat("-", len(header)+1))
		}

		if r.Message != "" {
			fmt.Fprintf(&b, "%d) %s\n\n", count, r.Message)
			count++
		}

		fmt.Fprintf(&b, "Result: %s\n", colorSeverity(r.Severity))
		if r.WaiverAuth > entities.WaiverNull {
			fmt.Fprintf(&b, "Waiver Authorization: %s\n\n", r.WaiverAuth)
		}
		if r.Details != "" {
			fmt.Fprintf(&b, "Details:\n%s\n\n", r.Details)
		}
		if r.Remedy != "" {
			fmt.Fprintf(&b, "Suggested Remedy:\n%s\n", r.Remedy)
		}
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// jsonReport is the machine-readable report layout
type jsonReport struct {
	RunID         string                      `json:"run_id"`
	Passed        bool                        `json:"passed"`
	FinalSeverity entities.Severity           `json:"final_severity"`
	Inspections   []jsonOutcome               `json:"inspections"`
	Results       []entities.InspectionResult `json:"results"`
}

type jsonOutcome struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
}

func renderJSON(w io.Writer, results []entities.InspectionResult, run *orchestrators.RunResult) error {
	report := jsonReport{
		RunID:         run.RunID,
		Passed:        run.Passed,
		FinalSeverity: run.FinalSeverity,
		Inspections:   make([]jsonOutcome, 0, len(run.Outcomes)),
		Results:       results,
	}
	for _, o := range run.Outcomes {
		report.Inspections = append(report.Inspections, jsonOutcome{Name: o.Name, Passed: o.Passed})
	}
	if report.Results == nil {
		report.Results = []entities.InspectionResult{}
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON report: %w", err)
	}
	_, err = w.Write(append(data, '\n'))
	return err
}
