package runtime

import "sync"

// sendRequest is one deferred delivery, queued from any thread and
// dispatched later on the loop thread.
type sendRequest struct {
	target ID
	msg    Message
	next   *sendRequest
}

// ingress is the thread-safe inbox of deferred send requests: a singly
// linked list guarded by a mutex, accepting submissions from any thread
// (cross-thread "tell" calls, stop/fail requests, timer firings). drain detaches
// the whole list atomically under the lock and hands it back for dispatch
// outside the lock.
type ingress struct {
	mu   sync.Mutex
	head *sendRequest
	tail *sendRequest
}

func newIngress() *ingress {
	return &ingress{}
}

// push appends a send request. Safe to call from any goroutine.
func (g *ingress) push(target ID, msg Message) {
	node := &sendRequest{target: target, msg: msg}

	g.mu.Lock()
	if g.tail == nil {
		g.head = node
	} else {
		g.tail.next = node
	}
	g.tail = node
	g.mu.Unlock()
}

// drain atomically detaches the entire pending list and returns its head;
// walk it via node.next. Returns nil if nothing was pending.
func (g *ingress) drain() *sendRequest {
	g.mu.Lock()
	head := g.head
	g.head = nil
	g.tail = nil
	g.mu.Unlock()

	return head
}

// empty reports whether the ingress currently has no pending requests. It
// takes the lock, so it's safe from any goroutine, but callers on the hot
// path should prefer drain().
func (g *ingress) empty() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.head == nil
}
