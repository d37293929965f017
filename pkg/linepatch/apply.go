package linepatch

// state is the working copy of one document while operations are applied.
// It never outlives a single ApplyOperations call.
type state struct {
	lines  []string
	cursor int
}

func newState(original string) *state {
	return &state{lines: SplitLines(original)}
}

// Apply parses diffText and applies the resulting operations to original. The
// result uses "\r\n" if original contains it anywhere and "\n" otherwise.
func Apply(original, diffText string) string {
	return ApplyWithReport(original, diffText).Text
}

// ApplyWithReport behaves like Apply and additionally records how each
// operation was resolved.
func ApplyWithReport(original, diffText string) Report {
	return ApplyOperations(original, Parse(diffText))
}

// ApplyOperations applies already parsed operations to original.
func ApplyOperations(original string, operations []Operation) Report {
	eol := DetectEOL(original)
	st := newState(original)

	steps := make([]StepStatus, 0, len(operations))
	for index, op := range operations {
		step := applyOperation(st, op)
		step.Number = index + 1
		steps = append(steps, step)
	}

	text := JoinLines(st.lines, eol)
	return Report{
		Text:    text,
		EOL:     eol,
		Steps:   steps,
		changed: text != original,
	}
}

func applyOperation(st *state, op Operation) StepStatus {
	step := StepStatus{Type: op.Type, Line: -1}

	switch op.Type {
	case OperationReplace:
		pos, outcome := findLine(st.lines, op.Old, st.cursor)
		if pos == -1 {
			st.lines = append(st.lines, op.New)
			st.cursor = len(st.lines)
			step.Outcome = OutcomeAppended
			step.Line = len(st.lines) - 1
			return step
		}
		st.lines[pos] = op.New
		st.cursor = pos + 1
		step.Outcome = outcome
		step.Line = pos
	case OperationDelete:
		pos, outcome := findLine(st.lines, op.Old, st.cursor)
		if pos == -1 {
			step.Outcome = OutcomeSkipped
			return step
		}
		st.lines = splice(st.lines, pos, 1, nil)
		st.cursor = pos
		step.Outcome = outcome
		step.Line = pos
	case OperationInsert:
		pos := clamp(st.cursor, 0, len(st.lines))
		st.lines = splice(st.lines, pos, 0, []string{op.New})
		st.cursor = pos + 1
		step.Outcome = OutcomeInserted
		step.Line = pos
	default:
		step.Outcome = OutcomeSkipped
	}
	return step
}

// findLine looks for an exact match of value starting at cursor and, failing
// that, from the top of the buffer. The outcome tells which pass matched.
func findLine(lines []string, value string, cursor int) (int, Outcome) {
	if pos := indexOfLine(lines, value, cursor); pos != -1 {
		return pos, OutcomeApplied
	}
	if pos := indexOfLine(lines, value, 0); pos != -1 {
		return pos, OutcomeWrapped
	}
	return -1, OutcomeSkipped
}

func indexOfLine(lines []string, value string, from int) int {
	for i := clamp(from, 0, len(lines)); i < len(lines); i++ {
		if lines[i] == value {
			return i
		}
	}
	return -1
}

func splice(target []string, index, deleteCount int, replacement []string) []string {
	if deleteCount == 0 && len(replacement) == 0 {
		return target
	}
	result := make([]string, 0, len(target)-deleteCount+len(replacement))
	result = append(result, target[:index]...)
	result = append(result, replacement...)
	result = append(result, target[index+deleteCount:]...)
	return result
}

func clamp(value, lo, hi int) int {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}
