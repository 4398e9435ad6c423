package confpatch

import (
	"bytes"
	"strings"
)

// line is one line of a document. eol holds its original terminator: "\n",
// "\r\n" or "" for an unterminated last line.
type line struct {
	text string
	eol  string
}

func (l line) String() string {
	return l.text + l.eol
}

// splitLines splits content into lines, keeping every terminator so the
// document can be reproduced byte for byte.
func splitLines(content []byte) []line {
	lines := make([]line, 0, bytes.Count(content, []byte{'\n'})+1)

	s := string(content)
	for s != "" {
		i := strings.IndexByte(s, '\n')
		if i < 0 {
			lines = append(lines, line{text: s})

			break
		}
		lines = append(lines, newLine(s[:i+1]))
		s = s[i+1:]
	}

	return lines
}

func newLine(raw string) line {
	text, eol := splitEOL(raw)

	return line{text: text, eol: eol}
}

func splitEOL(raw string) (string, string) {
	if strings.HasSuffix(raw, "\r\n") {
		return raw[:len(raw)-2], "\r\n"
	}
	if strings.HasSuffix(raw, "\n") {
		return raw[:len(raw)-1], "\n"
	}

	return raw, ""
}

// documentEOL returns the terminator used for new lines: the one of the first
// terminated line, "\n" if there is none.
func documentEOL(lines []line) string {
	for _, l := range lines {
		if l.eol != "" {
			return l.eol
		}
	}

	return "\n"
}

// joinLines serializes the lines. The result always ends with a terminator.
func joinLines(lines []line, eol string) []byte {
	var buf bytes.Buffer
	for _, l := range lines {
		buf.WriteString(l.text)
		if l.eol == "" {
			buf.WriteString(eol)

			continue
		}
		buf.WriteString(l.eol)
	}

	return buf.Bytes()
}
