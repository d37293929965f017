// Package preview renders an original buffer next to its patched version,
// standing in for an editor's side-by-side diff tab.
package preview

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/asynkron/justpaste/pkg/linepatch"
)

// RowKind classifies a row of a Comparison.
type RowKind string

const (
	RowEqual  RowKind = "equal"
	RowDelete RowKind = "delete"
	RowInsert RowKind = "insert"
	RowChange RowKind = "change"
)

// Row is one line of a comparison. LeftNo and RightNo are 1-based line numbers
// and zero when the side has no line.
type Row struct {
	Kind    RowKind `json:"kind"`
	Left    string  `json:"left,omitempty"`
	Right   string  `json:"right,omitempty"`
	LeftNo  int     `json:"left_no,omitempty"`
	RightNo int     `json:"right_no,omitempty"`
}

// Comparison is a line-level alignment of two texts.
type Comparison struct {
	Rows []Row `json:"rows"`
}

// Changed reports whether any row differs between the two sides.
func (c Comparison) Changed() bool {
	for _, row := range c.Rows {
		if row.Kind != RowEqual {
			return true
		}
	}
	return false
}

// Compare aligns original and patched line by line. Line endings are ignored;
// a trailing newline does not produce an extra empty row.
func Compare(original, patched string) Comparison {
	left := displayLines(original)
	right := displayLines(patched)

	dmp := diffmatchpatch.New()
	runesLeft, runesRight, lineArray := dmp.DiffLinesToRunes(terminate(left), terminate(right))
	diffs := dmp.DiffMainRunes(runesLeft, runesRight, false)
	diffs = dmp.DiffCleanupMerge(diffs)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	// Every line was newline terminated before hashing, so each hydrated
	// diff text ends with "\n".
	decode := func(text string) []string {
		if text == "" {
			return nil
		}
		return strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	}

	var (
		rows    []Row
		dels    []string
		ins     []string
		leftNo  = 1
		rightNo = 1
	)
	flush := func() {
		paired := min(len(dels), len(ins))
		for i := 0; i < paired; i++ {
			rows = append(rows, Row{Kind: RowChange, Left: dels[i], Right: ins[i], LeftNo: leftNo, RightNo: rightNo})
			leftNo++
			rightNo++
		}
		for _, line := range dels[paired:] {
			rows = append(rows, Row{Kind: RowDelete, Left: line, LeftNo: leftNo})
			leftNo++
		}
		for _, line := range ins[paired:] {
			rows = append(rows, Row{Kind: RowInsert, Right: line, RightNo: rightNo})
			rightNo++
		}
		dels, ins = nil, nil
	}

	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			flush()
			for _, line := range decode(d.Text) {
				rows = append(rows, Row{Kind: RowEqual, Left: line, Right: line, LeftNo: leftNo, RightNo: rightNo})
				leftNo++
				rightNo++
			}
		case diffmatchpatch.DiffDelete:
			dels = append(dels, decode(d.Text)...)
		case diffmatchpatch.DiffInsert:
			ins = append(ins, decode(d.Text)...)
		}
	}
	flush()

	return Comparison{Rows: rows}
}

func displayLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := linepatch.SplitLines(text)
	if len(lines) > 1 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func terminate(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}
