package estimator

import "sync"

// VariantFound is delivered by the host when the shopper settles on a variant.
type VariantFound struct {
	ID int64
	// EnabledFlag is the raw estimator flag of the variant ("yes"/"no"); nil when the variant
	// does not carry one.
	EnabledFlag *string
}

// SelectionReset is delivered by the host when the variant selection is cleared.
type SelectionReset struct{}

// OpenRequest asks whoever owns the modal to open it for a product. Done, when set, receives
// the outcome.
type OpenRequest struct {
	ProductID int64
	Done      func(error)
}

// IdentityChange is published by the IdentityBinder after every mutation.
type IdentityChange struct {
	Target  int64
	Enabled bool
	Reset   bool
}

// Topic is a synchronous, ordered fan-out of one payload type.
type Topic[T any] struct {
	mu       sync.RWMutex
	nextID   int
	handlers []subscription[T]
}

type subscription[T any] struct {
	id int
	fn func(T)
}

// Subscribe registers fn and returns a function that removes it.
func (t *Topic[T]) Subscribe(fn func(T)) func() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextID++
	id := t.nextID
	t.handlers = append(t.handlers, subscription[T]{id: id, fn: fn})
	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		for i, s := range t.handlers {
			if s.id == id {
				t.handlers = append(t.handlers[:i:i], t.handlers[i+1:]...)
				return
			}
		}
	}
}

// Publish calls every handler in subscription order on the caller's goroutine. Handlers may
// publish further signals.
func (t *Topic[T]) Publish(v T) {
	t.mu.RLock()
	handlers := make([]subscription[T], len(t.handlers))
	copy(handlers, t.handlers)
	t.mu.RUnlock()
	for _, s := range handlers {
		s.fn(v)
	}
}

// Len returns the number of subscribers.
func (t *Topic[T]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.handlers)
}

// Bus groups the signals exchanged between estimator components on one page.
type Bus struct {
	VariantFound    Topic[VariantFound]
	SelectionReset  Topic[SelectionReset]
	OpenRequested   Topic[OpenRequest]
	IdentityChanged Topic[IdentityChange]
}

// NewBus returns an empty bus.
func NewBus() *Bus { return &Bus{} }
