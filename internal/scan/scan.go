// Package scan watches a live line-oriented byte stream, such as a device's
// serial console, for the first line that proves success or failure.
package scan

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/encoding/unicode"
)

const chunkSize = 256

// MismatchError reports that a line matched one of the negative patterns.
type MismatchError struct {
	Log  string // everything read up to and including the offending chunk
	Line string
}

func (e *MismatchError) Error() string {
	return e.Log + "negative match: " + e.Line
}

// ReadError reports that the source failed before any pattern matched.
type ReadError struct {
	Log string
	Err error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("could not read from source: %v\nlog so far:\n%s", e.Err, e.Log)
}

func (e *ReadError) Unwrap() error { return e.Err }

// ScanUntil reads src until a complete line contains one of the positive
// patterns, returning the accumulated log, or one of the negative patterns,
// returning a *MismatchError. Positive patterns are checked first on every
// line, so a line matching both sets counts as a success.
//
// Invalid UTF-8 is replaced rather than rejected and NUL bytes are dropped.
// ScanUntil has no timeout of its own: it blocks until src matches, errors
// or reaches EOF (reported as a *ReadError).
func ScanUntil(src io.Reader, positive, negative []string) (string, error) {
	dec := unicode.UTF8.NewDecoder()
	buf := make([]byte, chunkSize)
	carry := 0

	var full strings.Builder
	pending := ""

	for {
		// Reads never exceed chunkSize, so at most one chunk is left unread
		// in the caller's source when a line matches.
		n, err := src.Read(buf[carry:])
		data := buf[:carry+n]
		complete := len(data)
		if err == nil {
			complete = completePrefix(data)
		}

		if complete > 0 {
			text, derr := dec.Bytes(data[:complete])
			if derr != nil {
				text = []byte(strings.ToValidUTF8(string(data[:complete]), "\uFFFD"))
			}
			chunk := strings.ReplaceAll(string(text), "\x00", "")
			full.WriteString(chunk)
			pending += chunk

			for {
				line, rest, ok := strings.Cut(pending, "\n")
				if !ok {
					break
				}
				pending = rest
				line = strings.TrimSuffix(line, "\r")
				log.Trace().Str("line", line).Msg("scan")

				if containsAny(line, positive) {
					return full.String(), nil
				}
				if containsAny(line, negative) {
					return "", &MismatchError{Log: full.String(), Line: line}
				}
			}
		}
		carry = copy(buf, data[complete:])

		if err != nil {
			return "", &ReadError{Log: full.String(), Err: err}
		}
	}
}

// completePrefix returns the length of p without a trailing rune that is
// cut off mid-sequence.
func completePrefix(p []byte) int {
	for i := len(p) - 1; i >= 0 && i > len(p)-utf8.UTFMax; i-- {
		if utf8.RuneStart(p[i]) {
			if !utf8.FullRune(p[i:]) {
				return i
			}
			return len(p)
		}
	}
	return len(p)
}

func containsAny(line string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(line, p) {
			return true
		}
	}
	return false
}
