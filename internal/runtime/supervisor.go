package runtime

import (
	"context"

	"github.com/lightningnetwork/lnd/fn/v2"
)

// Strategy governs which siblings are restarted when one child of a
// supervisor terminates.
type Strategy int

const (
	// StrategyOneForOne restarts only the terminated child.
	StrategyOneForOne Strategy = iota

	// StrategyOneForAll terminates and restarts every child.
	StrategyOneForAll

	// StrategyRestForOne terminates and restarts the failed child and
	// every child declared after it in spec order.
	StrategyRestForOne
)

// RestartMode governs whether an individual child is restarted at all.
type RestartMode int

const (
	// RestartPermanent always restarts, on clean stop or failure alike.
	RestartPermanent RestartMode = iota

	// RestartTransient restarts only on failure, not on a clean stop.
	RestartTransient

	// RestartTemporary never restarts.
	RestartTemporary
)

// BackoffKind selects how the delay before a restart grows across
// consecutive restarts of the same child.
type BackoffKind int

const (
	// BackoffNone restarts immediately.
	BackoffNone BackoffKind = iota

	// BackoffConstant always delays by RestartDelayMs.
	BackoffConstant

	// BackoffExponential doubles the delay per consecutive restart of the
	// same child, starting from RestartDelayMs, capped at MaxBackoffMs.
	BackoffExponential
)

// ChildSpec declares one child a supervisor creates at spawn time and may
// later restart.
type ChildSpec struct {
	Behavior   func() Behavior // factory, invoked fresh on every (re)start
	State      func() any      // factory for the child's initial state
	Name       string
	Restart    RestartMode
	MailboxCap int
}

// SupervisorConfig parameterizes a supervisor's restart behavior.
type SupervisorConfig struct {
	Children []ChildSpec

	Strategy Strategy

	// Supervisor, if present, is an existing supervisor that itself
	// oversees this new supervisor, exactly as ChildSpec's children are
	// overseen. It lets a failure cascade upward through more than one
	// level: if this supervisor exceeds its own Intensity and fails, its
	// parent supervisor receives the same termination notification any
	// supervised actor produces. The parent only restarts children declared
	// in its own Children list, so a supervisor attached through this field
	// is not re-created.
	Supervisor fn.Option[ID]

	// Backoff selects the delay growth curve; BackoffKind default (zero
	// value) is BackoffNone.
	Backoff BackoffKind

	// RestartDelayMs is the base delay for BackoffConstant and the first
	// delay for BackoffExponential.
	RestartDelayMs int64

	// MaxBackoffMs caps the exponential backoff delay.
	MaxBackoffMs int64

	// Intensity is the maximum number of restarts tolerated within
	// PeriodMs before the supervisor itself fails.
	Intensity int

	// PeriodMs is the sliding window length the intensity limiter counts
	// restarts over.
	PeriodMs int64
}

// childState is the supervisor's bookkeeping for one declared child: its
// spec, current live identifier (nilID between termination and restart),
// and consecutive-restart counter used to compute exponential backoff.
type childState struct {
	spec                ChildSpec
	current             ID
	consecutiveRestarts int
	pendingTimerID      uint64
}

// supervisorState is the per-supervisor-actor bookkeeping referenced from
// actorRecord.supervisor. It is mutated only from within the supervisor's
// own Receive, which only ever runs on the loop thread.
type supervisorState struct {
	cfg      SupervisorConfig
	children []*childState

	// restartLog holds the monotonic-ms timestamps of restarts within the
	// current sliding window, oldest first.
	restartLog []int64
}

// supervisorBehavior is the Behavior every supervisor actor runs. It never
// runs user message logic of its own; it exists purely to react to the
// synthesized child-lifecycle messages the runtime posts to its mailbox.
type supervisorBehavior struct{}

// NewSupervisor spawns a supervisor actor configured by cfg and immediately
// spawns its declared children as its own supervised actors. It returns the
// supervisor's own id.
func (l *Loop) NewSupervisor(cfg SupervisorConfig) (ID, error) {
	if len(cfg.Children) == 0 {
		return nilID, newError(KindInvalidArg, "supervisor requires at least one child spec")
	}
	if cfg.RestartDelayMs <= 0 {
		cfg.RestartDelayMs = DefaultRestartDelayMs
	}
	if cfg.MaxBackoffMs <= 0 {
		cfg.MaxBackoffMs = DefaultMaxBackoffMs
	}

	supID, err := l.Spawn(SpawnConfig{
		Behavior:   supervisorBehavior{},
		Name:       "supervisor",
		Supervisor: cfg.Supervisor,
	})
	if err != nil {
		return nilID, err
	}

	rec, _ := l.table.Lookup(supID)
	st := &supervisorState{cfg: cfg}
	rec.supervisor = st
	rec.state = st

	for i, spec := range cfg.Children {
		cs := &childState{spec: spec}
		st.children = append(st.children, cs)
		if err := l.startChild(supID, st, i); err != nil {
			log.WarnS(context.Background(), "supervisor failed to start child", err, "supervisor", supID, "child_index", i)
		}
	}

	return supID, nil
}

// ChildID resolves the live identifier of the child declared at index idx of
// sup's ChildSpec list, letting a host address "child at index i" by its
// declared position rather than needing to thread the identifier a prior
// restart minted back through to the caller. Returns ErrNoSuchActor if sup
// doesn't resolve to a live supervisor, or ErrInvalidArg if idx is out of
// range. Returns the zero ID with no error if the child is between
// termination and restart (e.g. waiting out backoff).
func (l *Loop) ChildID(sup ID, idx int) (ID, error) {
	rec, ok := l.table.Lookup(sup)
	if !ok || rec.supervisor == nil {
		return nilID, ErrNoSuchActor
	}

	st := rec.supervisor
	if idx < 0 || idx >= len(st.children) {
		return nilID, newError(KindInvalidArg, "child index %d out of range [0,%d)", idx, len(st.children))
	}

	return st.children[idx].current, nil
}

func (l *Loop) startChild(supID ID, st *supervisorState, idx int) error {
	cs := st.children[idx]

	id, err := l.Spawn(SpawnConfig{
		Behavior:   cs.spec.Behavior(),
		State:      childInitialState(cs.spec),
		Name:       cs.spec.Name,
		Supervisor: fn.Some(supID),
		MailboxCap: cs.spec.MailboxCap,
	})
	if err != nil {
		return err
	}

	cs.current = id
	return nil
}

func childInitialState(spec ChildSpec) any {
	if spec.State == nil {
		return nil
	}
	return spec.State()
}

// Receive implements Behavior for every supervisor actor. It only ever
// observes the two synthesized tags the runtime addresses to a supervisor's
// own mailbox.
func (supervisorBehavior) Receive(ctx *ActorContext, msg Message) Verdict {
	st, ok := ctx.State().(*supervisorState)
	if !ok {
		return VerdictOK
	}

	switch msg.Tag {
	case tagChildTerminated:
		handleChildTerminated(ctx, st, msg)
	case tagBackoffElapsed:
		handleBackoffElapsed(ctx, st, msg)
	}

	return VerdictOK
}

func handleChildTerminated(ctx *ActorContext, st *supervisorState, msg Message) {
	childID, status, ok := decodeChildTerminated(msg.Data)
	if !ok {
		return
	}

	idx := indexOfChild(st, childID)
	if idx < 0 {
		return
	}

	if !shouldRestart(st.children[idx].spec.Restart, status) {
		st.children[idx].current = nilID
		st.children[idx].consecutiveRestarts = 0
		return
	}

	restartSet := affectedIndices(st, idx)
	for _, i := range restartSet {
		if i != idx {
			// Sibling swept in by one-for-all/rest-for-one: stop it
			// outright so its own termination notification doesn't
			// double-trigger a restart pass.
			if live := st.children[i].current; live.Valid() {
				_ = ctx.Loop().ActorStop(live)
			}
		}
		st.children[i].current = nilID
	}

	if !recordRestart(ctx, st) {
		return
	}

	for _, i := range restartSet {
		armRestart(ctx, st, i)
	}
}

func handleBackoffElapsed(ctx *ActorContext, st *supervisorState, msg Message) {
	idx, ok := decodeBackoffElapsed(msg.Data)
	if !ok || idx < 0 || idx >= len(st.children) {
		return
	}

	supID := ctx.Self()
	if err := ctx.Loop().startChild(supID, st, idx); err != nil {
		log.WarnS(context.Background(), "supervisor restart failed", err, "supervisor", supID, "child_index", idx)
	}
}

// indexOfChild finds the declared child slot currently holding childID.
func indexOfChild(st *supervisorState, childID ID) int {
	for i, cs := range st.children {
		if cs.current == childID {
			return i
		}
	}
	return -1
}

// shouldRestart applies the per-child RestartMode against the terminated
// status.
func shouldRestart(mode RestartMode, status Status) bool {
	switch mode {
	case RestartPermanent:
		return true
	case RestartTransient:
		return status == StatusFailed
	default: // RestartTemporary
		return false
	}
}

// affectedIndices expands the failed child's index into the full set of
// child indices that must be restarted under the supervisor's Strategy.
func affectedIndices(st *supervisorState, failedIdx int) []int {
	switch st.cfg.Strategy {
	case StrategyOneForAll:
		out := make([]int, len(st.children))
		for i := range out {
			out[i] = i
		}
		return out
	case StrategyRestForOne:
		out := make([]int, 0, len(st.children)-failedIdx)
		for i := failedIdx; i < len(st.children); i++ {
			out = append(out, i)
		}
		return out
	default: // StrategyOneForOne
		return []int{failedIdx}
	}
}

// recordRestart applies the sliding intensity window. If admitting this
// restart would exceed cfg.Intensity within cfg.PeriodMs, the supervisor
// itself is failed (cascading to its own supervisor, if any) and false is
// returned so callers skip arming any restart timers.
func recordRestart(ctx *ActorContext, st *supervisorState) bool {
	if st.cfg.Intensity <= 0 {
		return true
	}

	now := nowMsForIntensity()
	cutoff := now - st.cfg.PeriodMs

	kept := st.restartLog[:0]
	for _, t := range st.restartLog {
		if t >= cutoff {
			kept = append(kept, t)
		}
	}
	st.restartLog = kept

	if len(st.restartLog)+1 > st.cfg.Intensity {
		log.ErrorS(context.Background(), "supervisor exceeded restart intensity", ErrMaxActors, "supervisor", ctx.Self())
		_ = ctx.Loop().ActorFail(ctx.Self())
		return false
	}

	st.restartLog = append(st.restartLog, now)
	return true
}

// armRestart schedules the actual restart of child index idx, honoring the
// supervisor's backoff curve. BackoffNone restarts inline; BackoffConstant
// and BackoffExponential arm a timer whose firing is the restart trigger.
func armRestart(ctx *ActorContext, st *supervisorState, idx int) {
	cs := st.children[idx]
	delay := backoffDelay(st.cfg, cs)

	if delay <= 0 {
		if err := ctx.Loop().startChild(ctx.Self(), st, idx); err != nil {
			log.WarnS(context.Background(), "supervisor restart failed", err, "supervisor", ctx.Self(), "child_index", idx)
		}
		return
	}

	cs.pendingTimerID = ctx.Loop().SendAfter(ctx.Self(), delay, encodeBackoffElapsed(idx), tagBackoffElapsed)
}

func backoffDelay(cfg SupervisorConfig, cs *childState) int64 {
	switch cfg.Backoff {
	case BackoffConstant:
		return cfg.RestartDelayMs
	case BackoffExponential:
		delay := cfg.RestartDelayMs
		for i := 0; i < cs.consecutiveRestarts; i++ {
			delay *= 2
			if delay >= cfg.MaxBackoffMs {
				delay = cfg.MaxBackoffMs
				break
			}
		}
		cs.consecutiveRestarts++
		return delay
	default: // BackoffNone
		return 0
	}
}

// nowMsForIntensity is the sliding-window clock for the intensity limiter.
// Kept distinct from the timer service's own clock hook since the two are
// never required to agree bit-for-bit, only to both be monotonic
// milliseconds.
var nowMsForIntensity = defaultNowMs
