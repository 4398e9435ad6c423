package confpatch

import (
	"github.com/gopasspw/gopass/pkg/debug"
)

// Result is the outcome of a patch run.
type Result struct {
	// Content is the patched document. It always ends with a line terminator.
	Content []byte
	// Changed is false if no line was rewritten, commented or appended. An
	// unchanged document is never written back.
	Changed bool
	// Applied holds the settings that found an authoritative line, in request order.
	Applied []Setting
	// Appended holds the settings that matched nothing and were appended.
	Appended []Setting
	// Events holds every decision in the order it was taken.
	Events []Event
}

// appliedSet tracks the settings that already have their authoritative line
// in the current pass.
type appliedSet map[string]struct{}

func (a appliedSet) has(s Setting) bool {
	_, found := a[s.id()]

	return found
}

func (a appliedSet) add(s Setting) {
	a[s.id()] = struct{}{}
}

// Patch rewrites content so every setting is represented by exactly one active
// line holding its value.
//
// The document is scanned once from top to bottom. For every line each setting
// is tried in request order. The first line that represents a setting, commented
// or not, becomes its authoritative line: it is uncommented and gets the new
// value while a trailing inline comment is kept. Later active lines for the same
// setting are commented out, later commented ones are left alone. Settings that
// matched no line are appended after the last line in request order.
//
// Lines are never removed or reordered. Patch does no I/O.
func Patch(content []byte, settings []Setting, opts Options) (*Result, error) {
	opts = opts.withDefaults()

	settings, err := validateSettings(settings, opts.Format)
	if err != nil {
		return nil, err
	}

	return patch(content, settings, opts), nil
}

// patch expects validated settings and defaulted options.
func patch(content []byte, settings []Setting, opts Options) *Result {
	res := &Result{}
	emit := func(e Event) {
		res.Events = append(res.Events, e)
		if e.Changed() {
			res.Changed = true
		}
		opts.Reporter.Report(e)
	}

	matchers := make([]*matcher, len(settings))
	for i, s := range settings {
		matchers[i] = newMatcher(s, opts)
	}

	lines := splitLines(content)
	eol := documentEOL(lines)
	applied := make(appliedSet, len(settings))

	for n := range lines {
		for i, s := range settings {
			l := lines[n]

			m, ok := matchers[i].match(l.text)
			if !ok {
				continue
			}

			emit(Event{Kind: EventFound, Setting: s, Line: n + 1, Before: l.text})

			if !applied.has(s) {
				lines[n].text = rewrite(m, s.Value())
				if l.eol == "" {
					lines[n].eol = eol
				}
				applied.add(s)
				res.Applied = append(res.Applied, s)
				emit(Event{Kind: EventReplaced, Setting: s, Line: n + 1, Before: l.text, After: lines[n].text})

				continue
			}

			if m.Commented {
				emit(Event{Kind: EventLeftCommented, Setting: s, Line: n + 1, Before: l.text})

				continue
			}

			lines[n].text = opts.CommentChar + l.text
			emit(Event{Kind: EventCommentedDuplicate, Setting: s, Line: n + 1, Before: l.text, After: lines[n].text})
		}
	}

	for _, s := range settings {
		if applied.has(s) {
			continue
		}
		lines = append(lines, line{text: s.line(opts), eol: eol})
		res.Appended = append(res.Appended, s)
		emit(Event{Kind: EventAppended, Setting: s, Line: len(lines), After: lines[len(lines)-1].text})
	}

	res.Content = joinLines(lines, eol)

	debug.V(2).Log("patched %d lines: %d applied, %d appended, changed: %t", len(lines), len(res.Applied), len(res.Appended), res.Changed)

	return res
}

// rewrite builds the authoritative line from the matched prefix, the new value
// and the preserved trailing comment.
func rewrite(m MatchResult, value string) string {
	comment := m.Comment()
	if comment != "" && !isBlank(comment[0]) {
		comment = " " + comment
	}

	return m.Prefix + value + comment
}
