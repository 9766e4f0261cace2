package pipeline

import "strings"

func trimNewline(s string) string {
	return strings.TrimRight(s, "\r\n")
}

// lastLine returns the final non-empty line of s, which for scan errors is
// the line that decided the outcome.
func lastLine(s string) string {
	s = strings.TrimRight(s, "\r\n")
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
