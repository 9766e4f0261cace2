// Package logbus carries human-readable status updates from the test worker
// to a single renderer.
package logbus

// Kind identifies the type of an Event.
type Kind int

const (
	KindSuccess Kind = iota
	KindError
	KindInProgress
	KindAction
	KindFill
	KindReset
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindError:
		return "error"
	case KindInProgress:
		return "in_progress"
	case KindAction:
		return "action"
	case KindFill:
		return "fill"
	case KindReset:
		return "reset"
	}
	return "unknown"
}

// Color is the wash used by a Fill event.
type Color int

const (
	Green Color = iota
	Red
)

// Event is one status update. Text is empty for Fill and Reset, Color is
// only meaningful for Fill.
type Event struct {
	Kind  Kind
	Text  string
	Color Color
}
