package linepatch

import "strings"

const (
	// EOLUnix is the "\n" line ending.
	EOLUnix = "\n"
	// EOLWindows is the "\r\n" line ending.
	EOLWindows = "\r\n"
)

// DetectEOL picks the line ending used when joining a patched document: "\r\n"
// if the text contains it anywhere, "\n" otherwise.
func DetectEOL(text string) string {
	if strings.Contains(text, EOLWindows) {
		return EOLWindows
	}
	return EOLUnix
}

// SplitLines splits text on "\n" and "\r\n". A lone "\r" is kept as content.
// The result always has at least one element, mirroring strings.Split.
func SplitLines(text string) []string {
	lines := strings.Split(text, "\n")
	for i, line := range lines[:len(lines)-1] {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}

// JoinLines joins lines with eol.
func JoinLines(lines []string, eol string) string {
	return strings.Join(lines, eol)
}
