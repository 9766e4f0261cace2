package logbus

import "sync"

const (
	successPrefix = "✓ "
	errorPrefix   = "╳ "
)

// Renderer draws the visible history. Render must treat events as read-only.
type Renderer interface {
	Render(events []Event)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(events []Event)

func (f RendererFunc) Render(events []Event) { f(events) }

// Bus owns the event channel.
type Bus struct {
	ch        chan Event
	closeOnce sync.Once
}

// New creates a Bus whose channel holds up to buffer pending events. Senders
// block once the buffer is full until the consumer catches up.
func New(buffer int) *Bus {
	if buffer < 0 {
		buffer = 0
	}
	return &Bus{ch: make(chan Event, buffer)}
}

// Producer returns a send handle. Handles are cheap values and may be copied
// freely across goroutines.
func (b *Bus) Producer() Producer {
	return Producer{ch: b.ch}
}

// Consumer returns the receive side. Only one goroutine may run it.
func (b *Bus) Consumer() *Consumer {
	return &Consumer{ch: b.ch}
}

// Close stops the consumer once queued events have drained. Producers must
// not send after Close.
func (b *Bus) Close() {
	b.closeOnce.Do(func() { close(b.ch) })
}

// Producer sends events onto the bus. The zero Producer discards everything,
// which keeps collaborators usable without a renderer.
type Producer struct {
	ch chan<- Event
}

func (p Producer) send(ev Event) {
	if p.ch == nil {
		return
	}
	p.ch <- ev
}

func (p Producer) Success(text string)    { p.send(Event{Kind: KindSuccess, Text: successPrefix + text}) }
func (p Producer) Error(text string)      { p.send(Event{Kind: KindError, Text: errorPrefix + text}) }
func (p Producer) InProgress(text string) { p.send(Event{Kind: KindInProgress, Text: text}) }
func (p Producer) Action(text string)     { p.send(Event{Kind: KindAction, Text: text}) }
func (p Producer) Fill(c Color)           { p.send(Event{Kind: KindFill, Color: c}) }
func (p Producer) Reset()                 { p.send(Event{Kind: KindReset}) }

// Consumer drains the bus into a History.
type Consumer struct {
	ch      <-chan Event
	history History
}

// Run receives events until the bus is closed, re-rendering after each one.
func (c *Consumer) Run(r Renderer) {
	for ev := range c.ch {
		c.history.Apply(ev)
		r.Render(c.history.Visible())
	}
}
