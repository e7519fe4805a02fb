package internal

import "github.com/eapache/queue"

// OutboundQueue is the Outbound Queue of spec.md §4.8: while the driver is
// CONNECTING, sends are pushed here; the instant the driver reaches OPEN
// it drains the queue FIFO into the frame codec before any further event
// is emitted. Grounded on the teacher's internal/mq.go hand-rolled linked
// list Queue, with github.com/eapache/queue's ring buffer swapped in for
// the backing store since momentics-hioload-ws already depends on it for
// the same kind of job queue.
type OutboundQueue struct {
	q *queue.Queue
}

func NewOutboundQueue() *OutboundQueue {
	return &OutboundQueue{q: queue.New()}
}

// Push appends a record to the tail of the queue.
func (o *OutboundQueue) Push(v any) {
	o.q.Add(v)
}

// Len reports the number of records currently queued.
func (o *OutboundQueue) Len() int {
	return o.q.Length()
}

// Drain removes and returns every queued record in FIFO order, leaving
// the queue empty.
func (o *OutboundQueue) Drain() []any {
	n := o.q.Length()
	if n == 0 {
		return nil
	}
	out := make([]any, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, o.q.Remove())
	}
	return out
}
