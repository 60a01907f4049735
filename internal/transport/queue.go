package transport

import "sync"

// eventQueue is an unbounded FIFO between the read loop and event delivery.
// It doubles its ring when full so a slow handler never stalls reads and
// never loses events.
type eventQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	buf    []Event
	head   int
	count  int
	closed bool
}

func newEventQueue(capacity int) *eventQueue {
	if capacity < 1 {
		capacity = 1
	}
	q := &eventQueue{buf: make([]Event, capacity)}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Send appends ev. Returns false if the queue is closed.
func (q *eventQueue) Send(ev Event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	if q.count == len(q.buf) {
		q.grow()
	}

	q.buf[(q.head+q.count)%len(q.buf)] = ev
	q.count++
	q.cond.Signal()
	return true
}

// Receive blocks until an event is available. After Close it drains the
// remaining events, then returns false.
func (q *eventQueue) Receive() (Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.count == 0 && !q.closed {
		q.cond.Wait()
	}
	if q.count == 0 {
		return Event{}, false
	}

	ev := q.buf[q.head]
	q.buf[q.head] = Event{}
	q.head = (q.head + 1) % len(q.buf)
	q.count--
	return ev, true
}

// Close wakes all receivers. Safe to call more than once.
func (q *eventQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.cond.Broadcast()
}

// Len returns the number of queued events.
func (q *eventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// grow doubles the ring. Must be called with lock held.
func (q *eventQueue) grow() {
	next := make([]Event, len(q.buf)*2)
	n := copy(next, q.buf[q.head:])
	copy(next[n:], q.buf[:q.head])
	q.buf = next
	q.head = 0
}
