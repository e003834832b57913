package app

import "sync"

// AlertQueue collects user-facing alerts until the UI drains them.
type AlertQueue struct {
	mu      sync.Mutex
	pending []string
	notify  func()
}

// NewAlertQueue creates a queue. notify, when set, runs after each alert.
func NewAlertQueue(notify func()) *AlertQueue {
	return &AlertQueue{notify: notify}
}

// Alert queues a message.
func (q *AlertQueue) Alert(msg string) {
	q.mu.Lock()
	q.pending = append(q.pending, msg)
	q.mu.Unlock()
	if q.notify != nil {
		q.notify()
	}
}

// Drain returns and clears the queued messages.
func (q *AlertQueue) Drain() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.pending
	q.pending = nil
	if out == nil {
		return []string{}
	}
	return out
}

// Len returns the number of queued messages.
func (q *AlertQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// broadcaster fans change notifications out to subscribers. A slow
// subscriber only ever has one notification pending.
type broadcaster struct {
	mu   sync.Mutex
	next int
	subs map[int]chan struct{}
}

func newBroadcaster() *broadcaster {
	return &broadcaster{subs: make(map[int]chan struct{})}
}

func (b *broadcaster) subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

func (b *broadcaster) publish() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (b *broadcaster) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
