package logbus

// History is the list of events currently visible to the operator.
type History struct {
	events []Event
}

// Apply folds ev into the history. Reset clears it. Any event other than
// InProgress first drops the run of InProgress events at the tail, so
// transient "Measuring..." lines never pile up.
func (h *History) Apply(ev Event) {
	switch ev.Kind {
	case KindReset:
		h.events = h.events[:0]
		return
	case KindInProgress:
	default:
		for n := len(h.events); n > 0 && h.events[n-1].Kind == KindInProgress; n-- {
			h.events = h.events[:n-1]
		}
	}
	h.events = append(h.events, ev)
}

// Visible returns a copy of the current events, oldest first.
func (h *History) Visible() []Event {
	out := make([]Event, len(h.events))
	copy(out, h.events)
	return out
}

// Len returns the number of visible events.
func (h *History) Len() int { return len(h.events) }

// FillColor reports the wash color when the last visible event is a Fill.
func FillColor(events []Event) (Color, bool) {
	if n := len(events); n > 0 && events[n-1].Kind == KindFill {
		return events[n-1].Color, true
	}
	return 0, false
}
