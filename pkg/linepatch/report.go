package linepatch

import (
	"fmt"
	"strings"
)

// Outcome describes how an operation was resolved against the buffer.
type Outcome string

const (
	// OutcomeApplied means the target line was found at or after the cursor.
	OutcomeApplied Outcome = "applied"
	// OutcomeWrapped means the target line was only found by searching again
	// from the top of the buffer.
	OutcomeWrapped Outcome = "wrapped"
	// OutcomeAppended means a replace target was missing and the new line was
	// appended to the end of the buffer instead.
	OutcomeAppended Outcome = "appended"
	// OutcomeSkipped means a delete target was missing and nothing changed.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeInserted means an insert placed its line at the cursor.
	OutcomeInserted Outcome = "inserted"
)

// StepStatus records the outcome of one operation. Number is 1-based and Line
// is the 0-based buffer index affected, or -1 when nothing changed.
type StepStatus struct {
	Number  int           `json:"number"`
	Type    OperationType `json:"type"`
	Outcome Outcome       `json:"outcome"`
	Line    int           `json:"line"`
}

// Report is the result of applying a diff together with per-operation details.
type Report struct {
	Text  string       `json:"text"`
	EOL   string       `json:"eol"`
	Steps []StepStatus `json:"steps"`

	changed bool
}

// Changed reports whether Text differs from the original. Line ending
// normalisation counts as a change; a replace with an identical line does not.
func (r Report) Changed() bool {
	return r.changed
}

// Count returns how many steps ended with the given outcome.
func (r Report) Count(outcome Outcome) int {
	n := 0
	for _, step := range r.Steps {
		if step.Outcome == outcome {
			n++
		}
	}
	return n
}

// FormatReport renders a short human readable summary of a Report. Operations
// that matched normally are listed together; every fallback gets its own line.
func FormatReport(r Report) string {
	if len(r.Steps) == 0 {
		return "No operations found in diff."
	}
	var applied []string
	var notes []string
	for _, step := range r.Steps {
		switch step.Outcome {
		case OutcomeApplied, OutcomeInserted:
			applied = append(applied, fmt.Sprintf("%d", step.Number))
		case OutcomeWrapped:
			applied = append(applied, fmt.Sprintf("%d", step.Number))
			notes = append(notes, fmt.Sprintf("Operation %d: %s target found above the cursor at line %d.", step.Number, step.Type, step.Line+1))
		case OutcomeAppended:
			notes = append(notes, fmt.Sprintf("Operation %d: replace target not found; appended at line %d.", step.Number, step.Line+1))
		case OutcomeSkipped:
			notes = append(notes, fmt.Sprintf("Operation %d: %s target not found; skipped.", step.Number, step.Type))
		}
	}

	parts := make([]string, 0, 1+len(notes))
	if len(applied) > 0 {
		parts = append(parts, fmt.Sprintf("Operations applied: %s.", strings.Join(applied, ", ")))
	}
	parts = append(parts, notes...)
	return strings.Join(parts, "\n")
}
