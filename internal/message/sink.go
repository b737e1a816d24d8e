// Package message delivers narrative combat text to combatants' output channels.
package message

import (
	"log/slog"
	"sync"
	"time"
)

// Sink receives narrative lines addressed to a combatant.
// Implementations must not block and must not call back into the engine.
type Sink interface {
	Send(recipientID, text string)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(recipientID, text string)

// Send implements Sink.
func (f SinkFunc) Send(recipientID, text string) { f(recipientID, text) }

// Discard drops every line.
var Discard Sink = SinkFunc(func(string, string) {})

// ToBoth sends text to both participants of an exchange.
func ToBoth(s Sink, aID, bID, text string) {
	s.Send(aID, text)
	if bID != aID {
		s.Send(bID, text)
	}
}

// Fanout sends every line to all sinks in order.
type Fanout []Sink

// Send implements Sink.
func (f Fanout) Send(recipientID, text string) {
	for _, s := range f {
		s.Send(recipientID, text)
	}
}

// LogSink writes lines to slog at debug level.
type LogSink struct {
	Logger *slog.Logger
}

// Send implements Sink.
func (l LogSink) Send(recipientID, text string) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("combat text", "to", recipientID, "text", text)
}

// Message is one recorded line.
type Message struct {
	To   string
	Text string
	At   time.Time
}

// Recorder keeps every line in memory. Safe for concurrent use.
type Recorder struct {
	mu   sync.Mutex
	msgs []Message
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Send implements Sink.
func (r *Recorder) Send(recipientID, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, Message{To: recipientID, Text: text, At: time.Now()})
}

// Messages returns a copy of all recorded lines.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.msgs))
	copy(out, r.msgs)
	return out
}

// For returns the texts addressed to recipientID, in order.
func (r *Recorder) For(recipientID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, m := range r.msgs {
		if m.To == recipientID {
			out = append(out, m.Text)
		}
	}
	return out
}

// Reset drops all recorded lines.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = r.msgs[:0]
}
