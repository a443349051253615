// Package hooks is the host's named-event system: subscribers register a
// callback under an event name at a numeric priority, and dispatch runs them
// in ascending priority order, insertion order breaking ties.
package hooks

import (
	"context"
	"sort"
	"sync"
)

// DefaultPriority is the priority used by host code that does not care.
const DefaultPriority = 10

// Event is the bundle handed to every callback. Filters read and replace
// Value; actions only look at Args.
type Event struct {
	Name  string
	Value any
	Args  []any
}

// Arg returns the i-th argument, or nil when out of range.
func (e *Event) Arg(i int) any {
	if i < 0 || i >= len(e.Args) {
		return nil
	}
	return e.Args[i]
}

// Callback is a subscriber.
type Callback func(ctx context.Context, e *Event)

// Subscription describes one registered callback.
type Subscription struct {
	Name     string
	Priority int
	seq      uint64
	cb       Callback
}

// Registry maps event names to priority-ordered subscriber lists.
type Registry struct {
	mu   sync.RWMutex
	subs map[string][]Subscription
	seq  uint64
}

func NewRegistry() *Registry {
	return &Registry{subs: make(map[string][]Subscription)}
}

// AddFilter subscribes cb to name at the given priority.
func (r *Registry) AddFilter(name string, cb Callback, priority int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	list := append(r.subs[name], Subscription{Name: name, Priority: priority, seq: r.seq, cb: cb})
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Priority != list[j].Priority {
			return list[i].Priority < list[j].Priority
		}
		return list[i].seq < list[j].seq
	})
	r.subs[name] = list
}

// AddAction is AddFilter for callbacks that ignore Event.Value.
func (r *Registry) AddAction(name string, cb Callback, priority int) {
	r.AddFilter(name, cb, priority)
}

// RemoveAll drops every subscriber of name.
func (r *Registry) RemoveAll(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.subs, name)
}

// HasHooks reports whether name has at least one subscriber.
func (r *Registry) HasHooks(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs[name]) > 0
}

// Subscriptions returns the subscribers of name in execution order.
func (r *Registry) Subscriptions(name string) []Subscription {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Subscription(nil), r.subs[name]...)
}

// ApplyFilters runs every subscriber of name, threading value through
// Event.Value, and returns the final value.
func (r *Registry) ApplyFilters(ctx context.Context, name string, value any, args ...any) any {
	e := &Event{Name: name, Value: value, Args: args}
	r.run(ctx, e)
	return e.Value
}

// DoAction runs every subscriber of name with args. Pointer arguments may be
// mutated in place by subscribers.
func (r *Registry) DoAction(ctx context.Context, name string, args ...any) {
	r.run(ctx, &Event{Name: name, Args: args})
}

func (r *Registry) run(ctx context.Context, e *Event) {
	// Dispatch over a snapshot so callbacks may register further hooks.
	for _, s := range r.Subscriptions(e.Name) {
		s.cb(ctx, e)
	}
}
