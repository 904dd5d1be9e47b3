// Package notify is a small synchronous observer list.
package notify

// Subject delivers values to subscribers in subscription order, on the
// publishing goroutine. The zero value is ready to use.
type Subject[T any] struct {
	subs   []subscription[T]
	nextID int
}

type subscription[T any] struct {
	id int
	fn func(T)
}

// Subscribe registers fn and returns a func that removes it. Calling the
// returned func more than once is harmless.
func (s *Subject[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	id := s.nextID
	s.nextID++
	s.subs = append(s.subs, subscription[T]{id: id, fn: fn})
	return func() { s.remove(id) }
}

func (s *Subject[T]) remove(id int) {
	for i, sub := range s.subs {
		if sub.id == id {
			s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
			return
		}
	}
}

// Publish calls every subscriber with v. Subscribers added or removed
// during Publish take effect on the next call.
func (s *Subject[T]) Publish(v T) {
	subs := s.subs
	for _, sub := range subs {
		sub.fn(v)
	}
}

func (s *Subject[T]) Len() int { return len(s.subs) }
