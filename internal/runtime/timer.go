package runtime

import (
	"sync"
	"time"
)

// timerEntry is a pending delivery with a monotonic due time in
// milliseconds, kept in a singly linked list sorted non-decreasing by due
// time.
type timerEntry struct {
	id       uint64
	due      int64
	target   ID
	data     []byte
	tag      uint32
	interval int64 // > 0 for SendEvery tickers; re-armed after firing
	next     *timerEntry

	// acctBuf is the buffer returned by Allocator.Alloc when this entry was
	// admitted; freed back through Allocator.Free when the entry is
	// cancelled or fires for the last time. See the Allocator doc comment
	// in config.go.
	acctBuf []byte
}

// timerService owns a sorted list of pending timers and a helper goroutine
// that sleeps until the next one is due, then posts a send request into the
// ingress. It is the only background goroutine in the runtime besides the
// loop itself.
type timerService struct {
	mu     sync.Mutex
	head   *timerEntry
	nextID uint64
	live   int

	stopCh chan struct{}
	wake   chan struct{}
	wg     sync.WaitGroup

	ingress *ingress

	// allocator gates admission of new timer entries. Nil until a Loop
	// assigns it from Config.Allocator; treated as systemAllocator{} in
	// that case so timerService remains usable when constructed directly,
	// as the tests do.
	allocator Allocator

	// now returns the current monotonic time in milliseconds. Overridable
	// in tests so timer ordering can be verified without real sleeps.
	now func() int64
}

// clockBase anchors defaultNowMs; time.Since reads the monotonic clock.
var clockBase = time.Now()

func defaultNowMs() int64 {
	return time.Since(clockBase).Milliseconds()
}

func newTimerService(ig *ingress) *timerService {
	return &timerService{
		stopCh:  make(chan struct{}),
		wake:    make(chan struct{}, 1),
		ingress: ig,
		now:     defaultNowMs,
	}
}

// start launches the helper goroutine. Must be called exactly once.
func (ts *timerService) start() {
	ts.wg.Add(1)
	go ts.loop()
}

func (ts *timerService) signalWake() {
	select {
	case ts.wake <- struct{}{}:
	default:
	}
}

// scheduleAfter inserts a new timer entry due delayMs from now, positioned
// so that equal-due entries preserve arrival order (strict < comparison). If
// the allocator declines to admit the entry, an id is still minted (so
// CancelTimer on it is a harmless no-op) but the entry is never armed —
// silently dropped, matching the best-effort semantics the rest of the
// asynchronous delivery paths already use.
func (ts *timerService) scheduleAfter(target ID, delayMs int64, data []byte, tag uint32, intervalMs int64) uint64 {
	if delayMs < 0 {
		delayMs = 0
	}

	buf := ts.allocatorOrDefault().Alloc(timerEntryAllocSize)

	ts.mu.Lock()
	ts.nextID++
	id := ts.nextID

	if buf == nil {
		ts.mu.Unlock()
		return id
	}

	entry := &timerEntry{
		id:       id,
		due:      ts.now() + delayMs,
		target:   target,
		data:     data,
		tag:      tag,
		interval: intervalMs,
		acctBuf:  buf,
	}
	ts.insertLocked(entry)
	wasHead := ts.head == entry
	ts.live++
	ts.mu.Unlock()

	if wasHead {
		ts.signalWake()
	}

	return id
}

// allocatorOrDefault returns ts.allocator, falling back to the system heap
// when the timerService was constructed directly rather than through
// NewLoop.
func (ts *timerService) allocatorOrDefault() Allocator {
	if ts.allocator == nil {
		return systemAllocator{}
	}
	return ts.allocator
}

// insertLocked must be called with ts.mu held. It walks the list and splices
// entry in before the first element whose due time is strictly greater,
// which preserves FIFO order among entries that share a due time.
func (ts *timerService) insertLocked(entry *timerEntry) {
	if ts.head == nil || entry.due < ts.head.due {
		entry.next = ts.head
		ts.head = entry
		return
	}

	prev := ts.head
	for prev.next != nil && !(entry.due < prev.next.due) {
		prev = prev.next
	}
	entry.next = prev.next
	prev.next = entry
}

// cancel removes a pending timer by id. Returns ErrTimerInvalid if the timer
// is not present — including the case where it already fired.
func (ts *timerService) cancel(id uint64) error {
	ts.mu.Lock()

	if ts.head == nil {
		ts.mu.Unlock()
		return ErrTimerInvalid
	}

	if ts.head.id == id {
		removed := ts.head
		ts.head = ts.head.next
		ts.live--
		ts.mu.Unlock()

		ts.allocatorOrDefault().Free(removed.acctBuf)

		// Wake the helper goroutine in case it is sleeping on a timer
		// armed for the entry we just removed; it will recompute
		// against the new head once woken.
		ts.signalWake()
		return nil
	}

	prev := ts.head
	for prev.next != nil {
		if prev.next.id == id {
			removed := prev.next
			prev.next = prev.next.next
			ts.live--
			ts.mu.Unlock()
			ts.allocatorOrDefault().Free(removed.acctBuf)
			return nil
		}
		prev = prev.next
	}

	ts.mu.Unlock()
	return ErrTimerInvalid
}

// pending reports the number of timers currently scheduled.
func (ts *timerService) pending() int {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.live
}

// loop is the helper goroutine's body: lock, wait for work or for the head
// to become due, detach and dispatch, repeat.
func (ts *timerService) loop() {
	defer ts.wg.Done()

	for {
		ts.mu.Lock()
		head := ts.head
		if head == nil {
			ts.mu.Unlock()
			select {
			case <-ts.wake:
				continue
			case <-ts.stopCh:
				return
			}
		}

		delay := head.due - ts.now()
		if delay <= 0 {
			ts.head = head.next
			ts.live--
			ts.mu.Unlock()

			ts.fire(head)
			continue
		}
		ts.mu.Unlock()

		timer := time.NewTimer(time.Duration(delay) * time.Millisecond)
		select {
		case <-timer.C:
		case <-ts.wake:
			timer.Stop()
		case <-ts.stopCh:
			timer.Stop()
			return
		}
	}
}

// fire submits the fired entry's delivery into the async ingress and, for a
// repeating entry, re-arms it from its original interval.
func (ts *timerService) fire(entry *timerEntry) {
	ts.ingress.push(entry.target, Message{Data: entry.data, Tag: entry.tag})

	if entry.interval > 0 {
		ts.mu.Lock()
		entry.due = ts.now() + entry.interval
		ts.insertLocked(entry)
		wasHead := ts.head == entry
		ts.live++
		ts.mu.Unlock()

		if wasHead {
			ts.signalWake()
		}

		return
	}

	ts.allocatorOrDefault().Free(entry.acctBuf)
}

// shutdown stops the helper goroutine and frees any remaining entries. Safe
// to call once; the timer service is not reusable afterward.
func (ts *timerService) shutdown() {
	close(ts.stopCh)
	ts.wg.Wait()

	ts.mu.Lock()
	for e := ts.head; e != nil; e = e.next {
		ts.allocatorOrDefault().Free(e.acctBuf)
	}
	ts.head = nil
	ts.live = 0
	ts.mu.Unlock()
}
