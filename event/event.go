// Package event provides a typed listener list with synchronous, in-order
// delivery and explicit unsubscription. It replaces ad-hoc callback slices so
// every producer in treesync (documents, coordinators, the manager) exposes
// notifications the same way.
package event

import "sync"

// Subscription is returned by Subscribe and removes the listener when
// disposed. Dispose is idempotent.
type Subscription interface {
	Dispose()
}

// SubscriptionFunc adapts a plain function into a Subscription.
type SubscriptionFunc func()

// Dispose calls f.
func (f SubscriptionFunc) Dispose() { f() }

// Emitter fans a value out to every registered listener. Listeners are called
// synchronously on the goroutine that calls Fire, in registration order.
// Listeners may subscribe or unsubscribe from inside a callback; changes take
// effect on the next Fire.
type Emitter[T any] struct {
	mu        sync.RWMutex
	nextID    uint64
	listeners []listener[T]
	closed    bool
}

type listener[T any] struct {
	id uint64
	fn func(T)
}

// Subscribe registers fn and returns a Subscription that removes it.
// Subscribing to a closed emitter returns a no-op subscription.
func (e *Emitter[T]) Subscribe(fn func(T)) Subscription {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return SubscriptionFunc(func() {})
	}
	e.nextID++
	id := e.nextID
	e.listeners = append(e.listeners, listener[T]{id: id, fn: fn})

	var once sync.Once
	return SubscriptionFunc(func() {
		once.Do(func() { e.remove(id) })
	})
}

func (e *Emitter[T]) remove(id uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, l := range e.listeners {
		if l.id == id {
			// Copy so a Fire already iterating the old slice is unaffected.
			next := make([]listener[T], 0, len(e.listeners)-1)
			next = append(next, e.listeners[:i]...)
			next = append(next, e.listeners[i+1:]...)
			e.listeners = next
			return
		}
	}
}

// Fire delivers v to every listener registered at the time of the call.
func (e *Emitter[T]) Fire(v T) {
	e.mu.RLock()
	listeners := e.listeners
	e.mu.RUnlock()

	for _, l := range listeners {
		l.fn(v)
	}
}

// Len returns the number of registered listeners.
func (e *Emitter[T]) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.listeners)
}

// Close drops every listener; later Subscribe calls are no-ops.
func (e *Emitter[T]) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	e.listeners = nil
}

// Group collects subscriptions so they can be disposed together.
type Group struct {
	mu   sync.Mutex
	subs []Subscription
}

// Add appends subscriptions to the group.
func (g *Group) Add(subs ...Subscription) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.subs = append(g.subs, subs...)
}

// Dispose disposes every subscription in reverse order and empties the group.
func (g *Group) Dispose() {
	g.mu.Lock()
	subs := g.subs
	g.subs = nil
	g.mu.Unlock()

	for i := len(subs) - 1; i >= 0; i-- {
		subs[i].Dispose()
	}
}
