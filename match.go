package confpatch

import (
	"regexp"
	"strings"
)

// MatchResult describes a line that represents a setting, commented or not.
type MatchResult struct {
	// Commented is true if the line started with one or more comment markers.
	Commented bool
	// Prefix is the rewritten line up to and including the key (or match fields)
	// and the separator. Comment markers of a commented line are not part of it.
	Prefix string
	// Tail is the rest of the line: the old value and any trailing comment.
	Tail string

	comment string
}

// Comment returns the trailing inline comment of the tail, including the
// whitespace in front of it, or "" if there is none.
func (m MatchResult) Comment() string {
	return m.comment
}

// OldValue returns the tail without the trailing comment.
func (m MatchResult) OldValue() string {
	return strings.TrimSuffix(m.Tail, m.comment)
}

// matcher is a compiled pattern for one setting. Normal lines follow
//
//	INDENT MARKS* WS KEY \s* SETTER \s* TAIL
//
// and Records lines follow
//
//	INDENT MARKS* WS F1 \s+ F2 \s+ ... Fn SEP \s* TAIL
//
// where INDENT and WS are runs of blanks, MARKS is the comment marker and SEP a
// single whitespace character. All literals are quoted, and Go regexps match
// in linear time, so keys from untrusted input can not blow up the scan.
type matcher struct {
	re          *regexp.Regexp
	commentChar string
	separated   bool // records: a separator group follows the fields
}

const (
	groupIndent = 1
	groupMarks  = 2
	groupKey    = 4
)

func newMatcher(s Setting, o Options) *matcher {
	if o.Format == Records {
		return newRecordsMatcher(s.Key(), o.CommentChar)
	}

	return newNormalMatcher(s[0], o.CommentChar, o.SetterChar)
}

func linePrelude(commentChar string) string {
	return `^([ \t]*)((?:` + regexp.QuoteMeta(commentChar) + `)*)([ \t]*)`
}

// newNormalMatcher builds the matcher for a "key = value" line.
func newNormalMatcher(key, commentChar, setterChar string) *matcher {
	expr := linePrelude(commentChar) +
		`(` + regexp.QuoteMeta(key) + `\s*` + regexp.QuoteMeta(setterChar) + `\s*)` +
		`(.*)$`

	return &matcher{
		re:          regexp.MustCompile(expr),
		commentChar: commentChar,
	}
}

// newRecordsMatcher builds the matcher for a line starting with the given
// positional fields. The whitespace between the last field and the old value
// collapses to its first character.
func newRecordsMatcher(fields []string, commentChar string) *matcher {
	fields = matchFields(fields)
	quoted := make([]string, 0, len(fields))
	for _, f := range fields {
		quoted = append(quoted, regexp.QuoteMeta(f))
	}

	expr := linePrelude(commentChar) +
		`(` + strings.Join(quoted, `\s+`) + `)` +
		`(\s)\s*(.*)$`

	return &matcher{
		re:          regexp.MustCompile(expr),
		commentChar: commentChar,
		separated:   true,
	}
}

// match applies the matcher to a line body without its terminator.
func (m *matcher) match(text string) (MatchResult, bool) {
	sm := m.re.FindStringSubmatchIndex(text)
	if sm == nil {
		return MatchResult{}, false
	}
	group := func(n int) string {
		if sm[2*n] < 0 {
			return ""
		}

		return text[sm[2*n]:sm[2*n+1]]
	}

	commented := group(groupMarks) != ""
	prefix := text[:sm[2*groupKey+1]]
	if commented {
		prefix = group(groupIndent) + group(groupKey)
	}
	if m.separated {
		prefix += group(groupKey + 1)
	}

	tail := group(m.re.NumSubexp())
	_, comment := splitTrailingComment(tail, m.commentChar)

	return MatchResult{
		Commented: commented,
		Prefix:    prefix,
		Tail:      tail,
		comment:   comment,
	}, true
}

// Match reports whether line represents the setting s, commented or not, and
// returns the pieces needed to rewrite it. A trailing line terminator is ignored.
func Match(line string, s Setting, o Options) (MatchResult, bool, error) {
	o = o.withDefaults()
	if err := validateSetting(s, o.Format); err != nil {
		return MatchResult{}, false, err
	}

	text, _ := splitEOL(line)
	m, ok := newMatcher(s, o).match(text)

	return m, ok, nil
}

// splitTrailingComment separates the old value from a trailing comment. The
// comment starts at the first comment marker that begins the tail or follows a
// blank; the blanks in front of it belong to the comment.
func splitTrailingComment(tail, commentChar string) (string, string) {
	for i := 0; i+len(commentChar) <= len(tail); i++ {
		if !strings.HasPrefix(tail[i:], commentChar) {
			continue
		}
		if i > 0 && !isBlank(tail[i-1]) {
			continue
		}

		start := i
		for start > 0 && isBlank(tail[start-1]) {
			start--
		}

		return tail[:start], tail[start:]
	}

	return tail, ""
}

func isBlank(c byte) bool {
	return c == ' ' || c == '\t'
}
