package scan

import (
	"bufio"
	"fmt"
	"io"
	"io/fs"
	"strings"
	"unicode/utf8"
)

// Marker is the literal substring whose presence on a line flags a file
const Marker = "TODO"

// InvalidUTF8 selects how the line reader treats invalid byte sequences
type InvalidUTF8 int

const (
	// DropInvalid removes invalid byte sequences before matching
	DropInvalid InvalidUTF8 = iota
	// ReplaceInvalid substitutes the Unicode replacement character
	ReplaceInvalid
)

// Scanner reads candidate files line by line looking for the marker
type Scanner struct {
	FS      fs.FS
	Invalid InvalidUTF8
}

// ScanFile returns the first marker finding in a file, or nil if the file
// is clean. Reading stops at the first matching line. Line length is
// unbounded; minified sources with multi-megabyte lines scan fine.
func (s *Scanner) ScanFile(path string) (*Finding, error) {
	f, err := s.FS.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	r := bufio.NewReaderSize(f, 64*1024)

	lineno := 0
	for {
		line, readErr := r.ReadString('\n')
		if len(line) > 0 {
			lineno++
			line = strings.TrimSuffix(line, "\n")
			line = strings.TrimSuffix(line, "\r")
			if strings.Contains(sanitizeLine(line, s.Invalid), Marker) {
				return &Finding{Path: path, Line: lineno}, nil
			}
		}
		if readErr == io.EOF {
			return nil, nil
		}
		if readErr != nil {
			return nil, fmt.Errorf("failed to read file: %w", readErr)
		}
	}
}

// sanitizeLine applies the invalid-byte policy to a raw line
func sanitizeLine(line string, policy InvalidUTF8) string {
	if utf8.ValidString(line) {
		return line
	}

	var b strings.Builder
	b.Grow(len(line))
	for i := 0; i < len(line); {
		r, size := utf8.DecodeRuneInString(line[i:])
		if r == utf8.RuneError && size == 1 {
			if policy == ReplaceInvalid {
				b.WriteRune(utf8.RuneError)
			}
			i++
			continue
		}
		b.WriteString(line[i : i+size])
		i += size
	}
	return b.String()
}
