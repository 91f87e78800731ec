package overrides

import "sync"

// Stream is the read side of an Observable.
type Stream[T any] interface {
	// Value returns a copy of the latest value.
	Value() T
	// Subscribe registers fn, delivers the latest value to it and then every
	// later emission in order. The returned func unsubscribes.
	Subscribe(fn func(T)) (unsubscribe func())
}

// Observable holds a current value and a subscriber list. Emissions are
// delivered in publish order. A publish issued from inside a subscriber, or
// while another goroutine is delivering, is queued and delivered by the
// goroutine already draining.
type Observable[T any] struct {
	mu       sync.Mutex
	value    T
	version  uint64
	clone    func(T) T
	subs     []*subscriber[T]
	nextID   uint64
	queue    []delivery[T]
	draining bool
}

type subscriber[T any] struct {
	id     uint64
	fn     func(T)
	mu     sync.Mutex
	active bool
	// next is the lowest version still deliverable.
	next uint64
}

type delivery[T any] struct {
	targets []*subscriber[T]
	version uint64
	value   T
}

var _ Stream[int] = (*Observable[int])(nil)

// NewObservable seeds an Observable with initial. clone may be nil for value
// types; otherwise it is applied on every read and delivery.
func NewObservable[T any](initial T, clone func(T) T) *Observable[T] {
	if clone == nil {
		clone = func(v T) T { return v }
	}
	return &Observable[T]{value: clone(initial), clone: clone}
}

func (o *Observable[T]) Value() T {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.clone(o.value)
}

func (o *Observable[T]) Subscribe(fn func(T)) func() {
	if fn == nil {
		return func() {}
	}
	o.mu.Lock()
	o.nextID++
	sub := &subscriber[T]{id: o.nextID, fn: fn, active: true}
	o.subs = append(o.subs, sub)
	replay := delivery[T]{targets: []*subscriber[T]{sub}, version: o.version, value: o.clone(o.value)}
	if o.draining {
		// Another drain is in progress; replay before returning.
		o.mu.Unlock()
		sub.deliver(replay.version, replay.value)
		return func() { o.unsubscribe(sub) }
	}
	o.queue = append(o.queue, replay)
	o.startDrain()
	return func() { o.unsubscribe(sub) }
}

// Publish replaces the current value and notifies subscribers.
func (o *Observable[T]) Publish(value T) {
	o.mu.Lock()
	o.publishLocked(o.version+1, value)
}

// publishAt publishes value only when version is newer than the last
// published version. It reports whether the value was accepted.
func (o *Observable[T]) publishAt(version uint64, value T) bool {
	o.mu.Lock()
	if version <= o.version {
		o.mu.Unlock()
		return false
	}
	o.publishLocked(version, value)
	return true
}

// publishLocked expects o.mu held and releases it.
func (o *Observable[T]) publishLocked(version uint64, value T) {
	o.version = version
	o.value = o.clone(value)
	if len(o.subs) == 0 {
		o.mu.Unlock()
		return
	}
	targets := append([]*subscriber[T](nil), o.subs...)
	o.queue = append(o.queue, delivery[T]{targets: targets, version: version, value: o.clone(o.value)})
	o.startDrain()
}

// startDrain expects o.mu held and releases it.
func (o *Observable[T]) startDrain() {
	if o.draining {
		o.mu.Unlock()
		return
	}
	o.draining = true
	o.mu.Unlock()
	o.drain()
}

func (o *Observable[T]) drain() {
	for {
		o.mu.Lock()
		if len(o.queue) == 0 {
			o.draining = false
			o.mu.Unlock()
			return
		}
		next := o.queue[0]
		o.queue = o.queue[1:]
		o.mu.Unlock()

		for _, target := range next.targets {
			target.deliver(next.version, o.clone(next.value))
		}
	}
}

func (o *Observable[T]) unsubscribe(target *subscriber[T]) {
	target.mu.Lock()
	target.active = false
	target.mu.Unlock()

	o.mu.Lock()
	defer o.mu.Unlock()
	for i, sub := range o.subs {
		if sub.id == target.id {
			o.subs = append(o.subs[:i:i], o.subs[i+1:]...)
			return
		}
	}
}

// SubscriberCount returns the number of active subscribers.
func (o *Observable[T]) SubscriberCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.subs)
}

// deliver calls fn unless the subscriber is gone or already saw a newer
// version.
func (s *subscriber[T]) deliver(version uint64, value T) {
	s.mu.Lock()
	ok := s.active && version >= s.next
	if ok {
		s.next = version + 1
	}
	s.mu.Unlock()
	if ok {
		s.fn(value)
	}
}
