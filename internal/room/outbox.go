package room

import "sync"

// Outbox is a client's private delivery queue. Broadcasting code pushes
// encoded frames without ever blocking; the connection's delivery task drains
// them in order. Pushes after Close are dropped.
type Outbox struct {
	mu     sync.Mutex
	queue  [][]byte
	closed bool
	ready  chan struct{}
}

// NewOutbox returns an empty, open outbox.
func NewOutbox() *Outbox {
	return &Outbox{ready: make(chan struct{}, 1)}
}

// Push queues payload for delivery. It reports whether the payload was
// accepted; a closed outbox silently refuses it.
func (o *Outbox) Push(payload []byte) bool {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return false
	}
	o.queue = append(o.queue, payload)
	o.mu.Unlock()

	o.signal()
	return true
}

// Ready is signalled whenever frames were queued or the outbox was closed.
func (o *Outbox) Ready() <-chan struct{} {
	return o.ready
}

// Drain removes and returns everything queued so far. closed reports whether
// the outbox has been closed, in which case no further frames will arrive.
func (o *Outbox) Drain() (frames [][]byte, closed bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	frames = o.queue
	o.queue = nil
	return frames, o.closed
}

// Close stops accepting frames. Frames already queued are still delivered.
// Closing twice is a no-op.
func (o *Outbox) Close() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true
	o.mu.Unlock()

	o.signal()
}

// Closed reports whether Close has been called.
func (o *Outbox) Closed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.closed
}

// Len returns the number of frames waiting for delivery.
func (o *Outbox) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.queue)
}

func (o *Outbox) signal() {
	select {
	case o.ready <- struct{}{}:
	default:
	}
}
