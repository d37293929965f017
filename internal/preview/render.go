package preview

import (
	"fmt"
	"strings"

	glam "github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// Unified renders the comparison with " ", "-" and "+" prefixes. Changed lines
// come out as "-old" / "+new" pairs, which is also what linepatch reads as a
// replace.
func Unified(c Comparison) string {
	var b strings.Builder
	for _, row := range c.Rows {
		switch row.Kind {
		case RowEqual:
			b.WriteString(" " + row.Left + "\n")
		case RowDelete:
			b.WriteString("-" + row.Left + "\n")
		case RowInsert:
			b.WriteString("+" + row.Right + "\n")
		case RowChange:
			b.WriteString("-" + row.Left + "\n")
			b.WriteString("+" + row.Right + "\n")
		}
	}
	return b.String()
}

// Markdown wraps the unified rendering in a fenced diff block.
func Markdown(c Comparison) string {
	return "```diff\n" + Unified(c) + "```\n"
}

// Options configure Render.
type Options struct {
	// Style is a glamour style name or path ("dark", "light", "notty").
	Style string
	// Width is the word wrap column.
	Width int
}

// Render renders the comparison as a highlighted diff block for terminals.
func Render(c Comparison, opts Options) (string, error) {
	style := opts.Style
	if style == "" {
		style = "dark"
	}
	width := opts.Width
	if width < 10 {
		width = 10
	}
	r, err := glam.NewTermRenderer(
		glam.WithStylePath(style),
		glam.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create renderer: %w", err)
	}
	out, err := r.Render(Markdown(c))
	if err != nil {
		return "", fmt.Errorf("failed to render preview: %w", err)
	}
	return out, nil
}

var (
	removedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	addedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("70"))
	equalStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	gutterStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
)

const (
	numberWidth = 4
	separator   = " │ "
)

// SideBySide renders original on the left and patched on the right within
// width terminal columns. Long lines are truncated.
func SideBySide(c Comparison, width int) string {
	column := (width - runewidth.StringWidth(separator)) / 2
	if column < numberWidth+4 {
		column = numberWidth + 4
	}
	text := column - numberWidth - 1

	var b strings.Builder
	for _, row := range c.Rows {
		var leftStyle, rightStyle lipgloss.Style
		switch row.Kind {
		case RowEqual:
			leftStyle, rightStyle = equalStyle, equalStyle
		case RowDelete:
			leftStyle, rightStyle = removedStyle, equalStyle
		case RowInsert:
			leftStyle, rightStyle = equalStyle, addedStyle
		default:
			leftStyle, rightStyle = removedStyle, addedStyle
		}
		b.WriteString(cell(row.LeftNo, row.Left, text, leftStyle))
		b.WriteString(gutterStyle.Render(separator))
		b.WriteString(cell(row.RightNo, row.Right, text, rightStyle))
		b.WriteString("\n")
	}
	return b.String()
}

func cell(number int, content string, width int, style lipgloss.Style) string {
	gutter := strings.Repeat(" ", numberWidth)
	if number > 0 {
		gutter = fmt.Sprintf("%*d", numberWidth, number)
	}
	content = strings.ReplaceAll(content, "\t", "    ")
	content = runewidth.FillRight(runewidth.Truncate(content, width, "…"), width)
	return gutterStyle.Render(gutter) + " " + style.Render(content)
}
