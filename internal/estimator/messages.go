package estimator

import "sync"

// MessageKind classifies a user-visible message.
type MessageKind string

const (
	MessageError   MessageKind = "error"
	MessageSuccess MessageKind = "success"
	MessageInfo    MessageKind = "info"
)

// Generic texts shown to shoppers. Failure causes are logged, never displayed.
const (
	TextLoadFailure    = "Something went wrong loading the estimator. Please refresh the page and try again."
	TextNetworkFailure = "We couldn't reach the estimator. Please try again."
	TextAdded          = "Product added to your estimate."
)

// Message is one notice on the message surface.
type Message struct {
	ID   uint64
	Kind MessageKind
	Text string
}

// MessageSink draws and removes messages.
type MessageSink interface {
	Show(Message)
	Remove(Message)
}

// Messenger keeps at most one message on screen; a new one replaces the old.
type Messenger struct {
	mu      sync.Mutex
	sink    MessageSink
	seq     uint64
	current *Message
}

// NewMessenger creates a messenger. sink may be nil.
func NewMessenger(sink MessageSink) *Messenger {
	return &Messenger{sink: sink}
}

// Show removes any current message and displays the new one.
func (m *Messenger) Show(kind MessageKind, text string) Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil && m.sink != nil {
		m.sink.Remove(*m.current)
	}
	m.seq++
	msg := Message{ID: m.seq, Kind: kind, Text: text}
	m.current = &msg
	if m.sink != nil {
		m.sink.Show(msg)
	}
	return msg
}

// Clear removes the current message, if any.
func (m *Messenger) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return
	}
	if m.sink != nil {
		m.sink.Remove(*m.current)
	}
	m.current = nil
}

// Current returns the message on screen.
func (m *Messenger) Current() (Message, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return Message{}, false
	}
	return *m.current, true
}
