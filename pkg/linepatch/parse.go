package linepatch

import "strings"

// OperationType identifies the kind of edit described by a diff line pair.
type OperationType string

const (
	// OperationReplace represents a "-old" line immediately followed by "+new".
	OperationReplace OperationType = "replace"
	// OperationDelete represents a "-old" line with no "+" line after it.
	OperationDelete OperationType = "delete"
	// OperationInsert represents a "+new" line not consumed by a replace.
	OperationInsert OperationType = "insert"
)

// Operation is a single edit instruction parsed from diff text.
//
// Old is set for replace and delete operations, New for replace and insert
// operations.
type Operation struct {
	Type OperationType `json:"type"`
	Old  string        `json:"old,omitempty"`
	New  string        `json:"new,omitempty"`
}

// Parse converts diff text into the ordered operations it describes. Lines that
// start with neither "+" nor "-" are skipped. Parse never fails; empty input
// yields no operations.
func Parse(diffText string) []Operation {
	if diffText == "" {
		return nil
	}
	lines := SplitLines(diffText)

	var operations []Operation
	for i := 0; i < len(lines); i++ {
		line := lines[i]
		switch {
		case strings.HasPrefix(line, "-"):
			old := line[1:]
			if i+1 < len(lines) && strings.HasPrefix(lines[i+1], "+") {
				operations = append(operations, Operation{Type: OperationReplace, Old: old, New: lines[i+1][1:]})
				i++
				continue
			}
			operations = append(operations, Operation{Type: OperationDelete, Old: old})
		case strings.HasPrefix(line, "+"):
			operations = append(operations, Operation{Type: OperationInsert, New: line[1:]})
		}
	}
	return operations
}
