package confpatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitLines(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		name   string
		in     string
		out    []line
		joined string
	}{
		{name: "empty", in: "", out: []line{}, joined: ""},
		{name: "single unterminated", in: "a", out: []line{{text: "a"}}, joined: "a\n"},
		{name: "terminated", in: "a\nb\n", out: []line{{text: "a", eol: "\n"}, {text: "b", eol: "\n"}}, joined: "a\nb\n"},
		{name: "blank lines", in: "\n\n", out: []line{{eol: "\n"}, {eol: "\n"}}, joined: "\n\n"},
		{name: "crlf", in: "a\r\nb", out: []line{{text: "a", eol: "\r\n"}, {text: "b"}}, joined: "a\r\nb\n"},
		{name: "mixed", in: "a\nb\r\n", out: []line{{text: "a", eol: "\n"}, {text: "b", eol: "\r\n"}}, joined: "a\nb\r\n"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			lines := splitLines([]byte(tc.in))
			assert.Equal(t, tc.out, lines)
			assert.Equal(t, tc.joined, string(joinLines(lines, "\n")))
		})
	}
}

func TestJoinLinesTerminatesLastLine(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "a\nb\n", string(joinLines(splitLines([]byte("a\nb")), "\n")))
	assert.Equal(t, "a\r\nb\r\n", string(joinLines(splitLines([]byte("a\r\nb")), "\r\n")))
	assert.Empty(t, joinLines(nil, "\n"))
}

func TestDocumentEOL(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "\n", documentEOL(nil))
	assert.Equal(t, "\n", documentEOL(splitLines([]byte("a"))))
	assert.Equal(t, "\r\n", documentEOL(splitLines([]byte("a\r\nb\n"))))
	assert.Equal(t, "\n", documentEOL(splitLines([]byte("a\nb\r\n"))))
}
