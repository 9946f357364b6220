package runtime

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/lightningnetwork/lnd/fn/v2"
)

// Stats is a point-in-time snapshot of scheduler activity, refreshed once per
// tick and safe to read concurrently with Run via Loop.Stats.
type Stats struct {
	Ticks              uint64
	MessagesProcessed  uint64
	ActorsAlive        int
	ActorsRunnable     int
	TimersPending      int
	WatchersRegistered int
}

// SpawnConfig describes a new actor at spawn time.
type SpawnConfig struct {
	// Behavior is mandatory; Spawn fails with ErrInvalidArg if nil.
	Behavior Behavior

	// State is the opaque handle passed back to Behavior.Receive via
	// ActorContext.State. It may be nil.
	State any

	// Name is an optional human-readable label, used only in logging.
	Name string

	// Supervisor, if present, is the actor that receives a synthesized
	// notification when this actor terminates.
	Supervisor fn.Option[ID]

	// MailboxCap overrides Config.DefaultMailboxCap for this actor alone.
	// Zero means "use the default."
	MailboxCap int
}

// Loop is the single-threaded cooperative scheduler: it owns the actor
// table, run queue, mailbox contents, timer service, and I/O watcher, and
// drives them all from the one goroutine that calls Run. Only SendAsync,
// StopAsync, FailAsync, and RequestStop are safe to call from any goroutine —
// they cross into the loop thread via the thread-safe ingress queue — along
// with Stats, which reads an atomically published snapshot. Every
// other method, including Spawn, Send, WatchFD, and UnwatchFD, mutates loop
// state directly with no synchronization and must only be called from the
// loop thread: before Run starts, or from within a Behavior's Receive via
// ActorContext.Loop.
type Loop struct {
	cfg Config

	table   *Table
	runq    *runQueue
	ingress *ingress
	timers  *timerService
	io      *ioWatcher

	running       atomic.Bool
	stopRequested atomic.Bool

	stats atomic.Pointer[Stats]
}

// NewLoop constructs a Loop from cfg, filling in defaults for any zero
// fields. The actor table and run queue are fixed-capacity, sized once here
// to cfg.MaxActors; that one-time backing allocation is itself gated on
// cfg.Allocator, same as every per-actor structure Spawn admits afterward. If
// the allocator declines even this, the Loop is still returned but with zero
// room for actors: every subsequent Spawn fails with ErrMaxActors rather than
// NewLoop itself failing, since NewLoop has no error return to report it
// through.
func NewLoop(cfg Config) *Loop {
	cfg = cfg.Normalize()

	maxActors := cfg.MaxActors
	if cfg.Allocator.Alloc(maxActors*(tableSlotAllocSize+runQueueSlotAllocSize)) == nil {
		maxActors = 0
	}

	l := &Loop{
		cfg:   cfg,
		table: NewTable(maxActors),
		runq:  newRunQueue(maxActors),
		io:    newIOWatcher(cfg.MaxIOWatchers),
	}
	l.io.allocator = cfg.Allocator
	l.ingress = newIngress()
	l.timers = newTimerService(l.ingress)
	l.timers.allocator = cfg.Allocator
	l.stats.Store(&Stats{})

	return l
}

// Spawn reserves a table slot for a new actor and returns its stable ID.
// The actor becomes eligible for dispatch as soon as a message reaches its
// mailbox. Fails with ErrNoMemory if Config.Allocator declines to admit the
// new actor record or its mailbox. Must be called from the loop thread: before
// Run starts, or from within a Behavior's Receive.
func (l *Loop) Spawn(cfg SpawnConfig) (ID, error) {
	if cfg.Behavior == nil {
		return nilID, newError(KindInvalidArg, "spawn requires a non-nil Behavior")
	}

	mbCap := cfg.MailboxCap
	if mbCap <= 0 {
		mbCap = l.cfg.DefaultMailboxCap
	}

	recBuf := l.cfg.Allocator.Alloc(actorRecordAllocSize)
	if recBuf == nil {
		return nilID, ErrNoMemory
	}

	mbBuf := l.cfg.Allocator.Alloc(mbCap * mailboxSlotAllocSize)
	if mbBuf == nil {
		l.cfg.Allocator.Free(recBuf)
		return nilID, ErrNoMemory
	}

	mb := newMailbox(mbCap)
	mb.acctBuf = mbBuf

	rec := &actorRecord{
		name:     cfg.Name,
		behavior: cfg.Behavior,
		state:    cfg.State,
		mailbox:  mb,
		parent:   cfg.Supervisor,
		status:   StatusRunning,
		acctBuf:  recBuf,
	}

	id, err := l.table.Insert(rec)
	if err != nil {
		l.cfg.Allocator.Free(recBuf)
		l.cfg.Allocator.Free(mbBuf)
		return nilID, err
	}

	log.DebugS(context.Background(), "actor spawned", "id", id, "name", cfg.Name)

	return id, nil
}

// Send delivers msg to target synchronously: a direct mailbox push with no
// queuing. This must only be called from the loop thread — in practice,
// from within a Behavior's Receive via
// ActorContext.Loop. It fails with ErrNoSuchActor if target doesn't resolve
// to a live actor, or ErrMailboxFull if target's mailbox is at capacity.
func (l *Loop) Send(target ID, msg Message) error {
	rec, ok := l.table.Lookup(target)
	if !ok {
		return ErrNoSuchActor
	}
	if rec.status.terminal() {
		return ErrNoSuchActor
	}
	if err := rec.mailbox.push(msg); err != nil {
		return err
	}
	l.runq.enqueue(rec)
	return nil
}

// SendAsync queues msg for delivery to target via the thread-safe ingress.
// Safe to call from any goroutine, including outside the loop thread.
// Queuing always succeeds; delivery itself may still silently drop the
// message at drain time if target no longer resolves or its mailbox is
// full, matching the dispatch-failure semantics for other asynchronous
// sources (timers, I/O readiness).
func (l *Loop) SendAsync(target ID, msg Message) {
	l.ingress.push(target, msg)
}

// SendAfter arms a one-shot timer that delivers msg-shaped data to target
// after delayMs. Returns an identifier usable with CancelTimer.
func (l *Loop) SendAfter(target ID, delayMs int64, data []byte, tag uint32) uint64 {
	return l.timers.scheduleAfter(target, delayMs, data, tag, 0)
}

// SendEvery arms a repeating timer that re-delivers every intervalMs until
// cancelled.
func (l *Loop) SendEvery(target ID, intervalMs int64, data []byte, tag uint32) uint64 {
	return l.timers.scheduleAfter(target, intervalMs, data, tag, intervalMs)
}

// CancelTimer cancels a pending timer by id. Returns ErrTimerInvalid if the
// timer already fired, was already cancelled, or never existed.
func (l *Loop) CancelTimer(id uint64) error {
	return l.timers.cancel(id)
}

// WatchFD registers fd for readiness notifications delivered to owner as
// Message values tagged TagIOReady. owner must currently resolve to a live
// actor. Must be called from the loop thread: before Run starts, or from
// within a Behavior's Receive.
func (l *Loop) WatchFD(fd int, owner ID, interest Interest) error {
	if _, ok := l.table.Lookup(owner); !ok {
		return ErrNoSuchActor
	}
	return l.io.register(fd, owner, interest)
}

// UnwatchFD removes fd's registration. Returns ErrIONotWatched if fd is not
// currently registered. Must be called from the loop thread: before Run
// starts, or from within a Behavior's Receive.
func (l *Loop) UnwatchFD(fd int) error {
	return l.io.unregister(fd)
}

// ActorStop requests a clean shutdown of id. Idempotent: stopping an actor
// already stopping or failed is a no-op; an actor already torn down no longer
// resolves and yields ErrNoSuchActor. Teardown happens the
// next time the actor is visited by the scheduler, which this call
// guarantees by enqueueing it if necessary.
func (l *Loop) ActorStop(id ID) error {
	return l.setTerminalStatus(id, StatusStopping)
}

// ActorFail requests id be torn down as failed, which is reported to its
// supervisor (if any) exactly like an organically failed Receive. Idempotent
// like ActorStop.
func (l *Loop) ActorFail(id ID) error {
	return l.setTerminalStatus(id, StatusFailed)
}

func (l *Loop) setTerminalStatus(id ID, status Status) error {
	rec, ok := l.table.Lookup(id)
	if !ok {
		return ErrNoSuchActor
	}
	if rec.status.terminal() {
		return nil
	}

	rec.status = status
	l.runq.enqueue(rec)

	return nil
}

// StopAsync requests a clean shutdown of id from any goroutine, via the same
// thread-safe ingress SendAsync uses. Unlike ActorStop, queuing always
// succeeds; the request is silently dropped at drain time if id no longer
// resolves, matching SendAsync's best-effort semantics.
func (l *Loop) StopAsync(id ID) {
	l.ingress.push(id, Message{Tag: tagStopRequest, Data: encodeStopRequest(StatusStopping)})
}

// FailAsync is StopAsync's failed-teardown counterpart, for callers outside
// the loop thread that want id reported to its supervisor as failed rather
// than stopped cleanly.
func (l *Loop) FailAsync(id ID) {
	l.ingress.push(id, Message{Tag: tagStopRequest, Data: encodeStopRequest(StatusFailed)})
}

// RequestStop asks Run to return at the next tick boundary, regardless of
// whether the loop would otherwise consider itself idle. It also wakes the
// timer helper goroutine so shutdown isn't deferred behind a long sleep.
func (l *Loop) RequestStop() {
	l.stopRequested.Store(true)
	l.timers.signalWake()
}

// Idle reports whether the loop would consider itself quiescent right now,
// without ticking: no live actors, nothing runnable, nothing pending in the
// ingress, no armed timers, and no registered watchers.
func (l *Loop) Idle() bool {
	return l.table.Live() == 0 &&
		l.runq.Empty() &&
		l.ingress.empty() &&
		l.timers.pending() == 0 &&
		l.io.count() == 0
}

// Stats returns the most recently published snapshot of scheduler activity.
func (l *Loop) Stats() Stats {
	return *l.stats.Load()
}

// Run drives the scheduler until either natural quiescence (Idle becomes
// true) or RequestStop is called, whichever comes first. It returns
// ErrLoopClosed if already running or if called again after a prior Run has
// returned. Run must only ever be called from one goroutine at a time; it is
// that goroutine which becomes "the loop thread" for the duration of the
// call.
func (l *Loop) Run() error {
	// running is never cleared: the timer service cannot be restarted once
	// shut down, so a Loop runs at most once.
	if !l.running.CompareAndSwap(false, true) {
		return ErrLoopClosed
	}

	l.timers.start()
	defer l.timers.shutdown()

	var stats Stats

	for {
		l.drainIngress()
		_ = l.io.poll(0, l.localDeliver)

		processed := l.dispatchTick()

		stats.Ticks++
		stats.MessagesProcessed += uint64(processed)
		stats.ActorsAlive = l.table.Live()
		stats.ActorsRunnable = l.runq.Len()
		stats.TimersPending = l.timers.pending()
		stats.WatchersRegistered = l.io.count()
		snapshot := stats
		l.stats.Store(&snapshot)

		if l.stopRequested.Load() {
			log.DebugS(context.Background(), "loop stopping on request")
			return nil
		}

		if l.runq.Empty() {
			if l.Idle() {
				log.DebugS(context.Background(), "loop quiescent, exiting")
				return nil
			}

			_ = l.io.poll(l.cfg.IOPollTimeoutMs, l.localDeliver)
			time.Sleep(time.Millisecond)
		}
	}
}

// drainIngress detaches the whole pending ingress list and locally delivers
// each request, silently dropping any whose target no longer resolves.
func (l *Loop) drainIngress() {
	for node := l.ingress.drain(); node != nil; node = node.next {
		l.localDeliver(node.target, node.msg)
	}
}

// localDeliver performs a best-effort, loop-thread-only delivery: mailbox
// full or target gone both silently drop the message, for any asynchronous
// source alike (timers, I/O readiness, cross-thread sends). A
// tagStopRequest entry (from StopAsync/FailAsync) is applied directly as a
// terminal-status transition instead of being pushed onto the mailbox.
func (l *Loop) localDeliver(target ID, msg Message) {
	if msg.Tag == tagStopRequest {
		if status, ok := decodeStopRequest(msg.Data); ok {
			_ = l.setTerminalStatus(target, status)
		}
		return
	}

	rec, ok := l.table.Lookup(target)
	if !ok {
		return
	}
	if rec.status.terminal() {
		return
	}
	if err := rec.mailbox.push(msg); err != nil {
		return
	}
	l.runq.enqueue(rec)
}

// dispatchTick processes up to MaxActorsPerTick actors from the run queue,
// each draining up to MaxMsgsPerActor messages from its own mailbox, and
// returns the number of messages processed across all of them.
func (l *Loop) dispatchTick() int {
	processed := 0

	for i := 0; i < l.cfg.MaxActorsPerTick && !l.runq.Empty(); i++ {
		rec, ok := l.runq.dequeue()
		if !ok {
			break
		}

		// A record can be re-enqueued by its own Receive (e.g. a
		// supervisor that fails itself while handling a child's
		// termination) after it has already been dequeued once this
		// tick. Confirm it's still actually live before touching it,
		// so a stale ring-buffer entry for an already-torn-down actor
		// is silently dropped instead of reprocessed.
		if live, ok := l.table.Lookup(rec.id); !ok || live != rec {
			continue
		}

		if rec.status.terminal() {
			l.teardown(rec)
			continue
		}

		for batch := 0; batch < l.cfg.MaxMsgsPerActor; batch++ {
			msg, ok := rec.mailbox.pop()
			if !ok {
				break
			}

			processed++
			verdict := l.invoke(rec, msg)

			switch verdict {
			case VerdictStop:
				rec.status = StatusStopping
			case VerdictFail:
				rec.status = StatusFailed
			}

			if rec.status.terminal() {
				break
			}
		}

		if rec.status.terminal() {
			l.teardown(rec)
		} else if !rec.mailbox.Empty() {
			l.runq.enqueue(rec)
		}
	}

	return processed
}

// invoke calls rec's Behavior with a fresh ActorContext and writes back any
// state mutation the Behavior made via SetState.
func (l *Loop) invoke(rec *actorRecord, msg Message) Verdict {
	ctx := &ActorContext{self: rec.id, state: rec.state, loop: l}
	verdict := rec.behavior.Receive(ctx, msg)
	rec.state = ctx.state
	return verdict
}

// teardown releases an actor that has reached a terminal status: its
// watchers are dropped, its supervisor (if any) is notified, its own
// children (if it is itself a supervisor) are force-removed, and its table
// slot is freed. Any messages still queued in its mailbox are discarded.
func (l *Loop) teardown(rec *actorRecord) {
	l.io.removeOwner(rec.id)

	if rec.supervisor != nil {
		l.reapSupervisedChildren(rec.supervisor)
	}

	rec.parent.WhenSome(func(parentID ID) {
		if parent, ok := l.table.Lookup(parentID); ok && !parent.status.terminal() {
			notify := Message{Data: encodeChildTerminated(rec.id, rec.status), Tag: tagChildTerminated}
			if err := parent.mailbox.push(notify); err == nil {
				l.runq.enqueue(parent)
			}
		}
	})

	log.DebugS(context.Background(), "actor torn down", "id", rec.id, "status", rec.status)

	l.table.Remove(rec.id)
	rec.status = StatusStopped

	l.cfg.Allocator.Free(rec.mailbox.acctBuf)
	l.cfg.Allocator.Free(rec.acctBuf)
}

// reapSupervisedChildren force-removes every currently live child of a
// supervisor that is itself being torn down. There is no one left to notify
// restart decisions to, so this bypasses the normal termination-message
// path and frees the slots directly.
func (l *Loop) reapSupervisedChildren(st *supervisorState) {
	for _, cs := range st.children {
		if !cs.current.Valid() {
			continue
		}

		if childRec, ok := l.table.Lookup(cs.current); ok {
			l.io.removeOwner(childRec.id)
			l.table.Remove(childRec.id)
			childRec.status = StatusStopped
			l.cfg.Allocator.Free(childRec.mailbox.acctBuf)
			l.cfg.Allocator.Free(childRec.acctBuf)
		}

		cs.current = nilID
	}
}
