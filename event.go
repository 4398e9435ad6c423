package confpatch

import (
	"fmt"

	"github.com/gopasspw/gopass/pkg/debug"
)

// EventKind is the kind of decision taken for a line.
type EventKind int

const (
	// EventFound is reported for every line that represents a setting.
	EventFound EventKind = iota
	// EventReplaced is reported when a line becomes the authoritative line of a setting.
	EventReplaced
	// EventLeftCommented is reported for commented duplicates that stay as they are.
	EventLeftCommented
	// EventCommentedDuplicate is reported when an active duplicate is commented out.
	EventCommentedDuplicate
	// EventAppended is reported for a setting that matched no line and was added.
	EventAppended
)

var eventKindNames = map[EventKind]string{
	EventFound:              "found",
	EventReplaced:           "replaced",
	EventLeftCommented:      "left-commented",
	EventCommentedDuplicate: "commented-duplicate",
	EventAppended:           "appended",
}

func (k EventKind) String() string {
	if s, found := eventKindNames[k]; found {
		return s
	}

	return fmt.Sprintf("EventKind(%d)", int(k))
}

// Event describes one decision of a patch run.
type Event struct {
	Kind    EventKind
	Setting Setting
	// Line is the 1-based number of the line in the output document.
	Line int
	// Before and After hold the line without its terminator. Before is empty
	// for appended lines.
	Before string
	After  string
}

// Changed reports whether the event altered the document.
func (e Event) Changed() bool {
	switch e.Kind {
	case EventAppended:
		return true
	case EventReplaced, EventCommentedDuplicate:
		return e.Before != e.After
	default:
		return false
	}
}

func (e Event) String() string {
	switch e.Kind {
	case EventFound, EventLeftCommented:
		return fmt.Sprintf("%s %s line %d: %q", e.Kind, e.Setting, e.Line, e.Before)
	default:
		return fmt.Sprintf("%s %s line %d: %q -> %q", e.Kind, e.Setting, e.Line, e.Before, e.After)
	}
}

// Reporter receives the decision events of a patch run. The patcher never
// writes to the console itself; callers render events as they see fit.
type Reporter interface {
	Report(Event)
}

// ReporterFunc adapts a function to the Reporter interface.
type ReporterFunc func(Event)

// Report calls f(e).
func (f ReporterFunc) Report(e Event) {
	f(e)
}

// MultiReporter forwards every event to all reporters in order.
type MultiReporter []Reporter

// Report implements Reporter.
func (m MultiReporter) Report(e Event) {
	for _, r := range m {
		if r == nil {
			continue
		}
		r.Report(e)
	}
}

type debugReporter struct{}

func (debugReporter) Report(e Event) {
	debug.V(1).Log("%s", e)
}
