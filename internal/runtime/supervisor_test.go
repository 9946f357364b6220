package runtime

import (
	"testing"

	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/stretchr/testify/require"
)

type alwaysFailBehavior struct{}

func (alwaysFailBehavior) Receive(_ *ActorContext, _ Message) Verdict { return VerdictFail }

type noopBehavior struct{}

func (noopBehavior) Receive(_ *ActorContext, _ Message) Verdict { return VerdictOK }

// drainAll runs dispatch ticks until the run queue empties, for tests that
// drive the loop step by step instead of calling Run.
func drainAll(l *Loop) {
	for !l.runq.Empty() {
		l.dispatchTick()
	}
}

func supervisorStateOf(t *testing.T, l *Loop, id ID) *supervisorState {
	t.Helper()
	rec, ok := l.table.Lookup(id)
	require.True(t, ok)
	require.NotNil(t, rec.supervisor)
	return rec.supervisor
}

// TestSupervisorOneForOneRestart is end-to-end scenario 5's non-timed core:
// a permanent child that always fails gets restarted with a fresh identity
// each time, one-for-one leaving siblings untouched.
func TestSupervisorOneForOneRestart(t *testing.T) {
	t.Parallel()

	l := NewLoop(DefaultConfig())

	supID, err := l.NewSupervisor(SupervisorConfig{
		Children: []ChildSpec{
			{Behavior: func() Behavior { return alwaysFailBehavior{} }, Restart: RestartPermanent},
		},
		Strategy:       StrategyOneForOne,
		Backoff:        BackoffNone,
		Intensity:      10,
		PeriodMs:       10_000,
		RestartDelayMs: 10,
	})
	require.NoError(t, err)

	st := supervisorStateOf(t, l, supID)
	firstChild := st.children[0].current
	require.True(t, firstChild.Valid())

	require.NoError(t, l.Send(firstChild, Message{}))
	drainAll(l)

	secondChild := st.children[0].current
	require.True(t, secondChild.Valid())
	require.NotEqual(t, firstChild, secondChild, "restart must hand the child a fresh identity")

	_, ok := l.table.Lookup(firstChild)
	require.False(t, ok, "the failed child's old id must no longer resolve")

	_, ok = l.table.Lookup(secondChild)
	require.True(t, ok)
}

// TestSupervisorOneForAllRestartsSiblings verifies that StrategyOneForAll
// tears down and restarts every declared child when any one of them fails,
// not just the one that failed.
func TestSupervisorOneForAllRestartsSiblings(t *testing.T) {
	t.Parallel()

	l := NewLoop(DefaultConfig())

	supID, err := l.NewSupervisor(SupervisorConfig{
		Children: []ChildSpec{
			{Behavior: func() Behavior { return alwaysFailBehavior{} }, Restart: RestartPermanent},
			{Behavior: func() Behavior { return noopBehavior{} }, Restart: RestartPermanent},
		},
		Strategy:       StrategyOneForAll,
		Backoff:        BackoffNone,
		Intensity:      10,
		PeriodMs:       10_000,
		RestartDelayMs: 10,
	})
	require.NoError(t, err)

	st := supervisorStateOf(t, l, supID)
	failingChild := st.children[0].current
	siblingChild := st.children[1].current

	require.NoError(t, l.Send(failingChild, Message{}))
	drainAll(l)

	_, ok := l.table.Lookup(failingChild)
	require.False(t, ok)
	_, ok = l.table.Lookup(siblingChild)
	require.False(t, ok, "one-for-all must also tear down the untouched sibling")

	require.True(t, st.children[0].current.Valid())
	require.True(t, st.children[1].current.Valid())
	require.NotEqual(t, failingChild, st.children[0].current)
	require.NotEqual(t, siblingChild, st.children[1].current)
}

// TestSupervisorTemporaryNeverRestarts verifies a temporary child is torn
// down for good on failure.
func TestSupervisorTemporaryNeverRestarts(t *testing.T) {
	t.Parallel()

	l := NewLoop(DefaultConfig())

	supID, err := l.NewSupervisor(SupervisorConfig{
		Children: []ChildSpec{
			{Behavior: func() Behavior { return alwaysFailBehavior{} }, Restart: RestartTemporary},
		},
		Strategy:       StrategyOneForOne,
		Intensity:      10,
		PeriodMs:       10_000,
		RestartDelayMs: 10,
	})
	require.NoError(t, err)

	st := supervisorStateOf(t, l, supID)
	child := st.children[0].current

	require.NoError(t, l.Send(child, Message{}))
	drainAll(l)

	require.False(t, st.children[0].current.Valid(), "a temporary child must not be restarted")
	_, ok := l.table.Lookup(child)
	require.False(t, ok)
}

// TestSupervisorIntensityLimiterFailsSupervisor drives repeated one-for-one
// failures past the configured intensity window and verifies the
// supervisor itself is torn down as failed, per the intensity invariant.
func TestSupervisorIntensityLimiterFailsSupervisor(t *testing.T) {
	t.Parallel()

	l := NewLoop(DefaultConfig())

	const intensity = 3

	supID, err := l.NewSupervisor(SupervisorConfig{
		Children: []ChildSpec{
			{Behavior: func() Behavior { return alwaysFailBehavior{} }, Restart: RestartPermanent},
		},
		Strategy:       StrategyOneForOne,
		Backoff:        BackoffNone,
		Intensity:      intensity,
		PeriodMs:       10_000,
		RestartDelayMs: 10,
	})
	require.NoError(t, err)

	st := supervisorStateOf(t, l, supID)

	for i := 0; i < intensity+2; i++ {
		child := st.children[0].current
		if !child.Valid() {
			break
		}
		require.NoError(t, l.Send(child, Message{}))
		drainAll(l)
	}

	_, ok := l.table.Lookup(supID)
	require.False(t, ok, "exceeding the intensity window must fail the supervisor itself")
}

// TestChildIDResolvesCurrentIdentity verifies the public ChildID accessor
// tracks the same identity a restart hands to childState.current, and that it
// rejects bad inputs as documented.
func TestChildIDResolvesCurrentIdentity(t *testing.T) {
	t.Parallel()

	l := NewLoop(DefaultConfig())

	supID, err := l.NewSupervisor(SupervisorConfig{
		Children: []ChildSpec{
			{Behavior: func() Behavior { return alwaysFailBehavior{} }, Restart: RestartPermanent},
			{Behavior: func() Behavior { return noopBehavior{} }, Restart: RestartPermanent},
		},
		Strategy:       StrategyOneForOne,
		Backoff:        BackoffNone,
		Intensity:      10,
		PeriodMs:       10_000,
		RestartDelayMs: 10,
	})
	require.NoError(t, err)

	st := supervisorStateOf(t, l, supID)

	firstChild, err := l.ChildID(supID, 0)
	require.NoError(t, err)
	require.Equal(t, st.children[0].current, firstChild)

	require.NoError(t, l.Send(firstChild, Message{}))
	drainAll(l)

	restarted, err := l.ChildID(supID, 0)
	require.NoError(t, err)
	require.True(t, restarted.Valid())
	require.NotEqual(t, firstChild, restarted, "ChildID must observe the post-restart identity")

	unaffected, err := l.ChildID(supID, 1)
	require.NoError(t, err)
	require.Equal(t, st.children[1].current, unaffected)

	_, err = l.ChildID(supID, 2)
	require.Error(t, err, "out-of-range index must fail")

	_, err = l.ChildID(nilID, 0)
	require.Error(t, err, "an id that doesn't resolve to a supervisor must fail")
}

// TestNestedSupervisionWiresParent verifies a supervisor can itself be
// supervised: SupervisorConfig.Supervisor is wired through to the new
// supervisor actor's own parent field exactly as ChildSpec's ordinary
// children get theirs, so its eventual termination cascades upward as the
// same synthesized notification an ordinary child's termination produces.
func TestNestedSupervisionWiresParent(t *testing.T) {
	t.Parallel()

	l := NewLoop(DefaultConfig())

	const innerIntensity = 2

	outerID, err := l.NewSupervisor(SupervisorConfig{
		Children: []ChildSpec{
			{Behavior: func() Behavior { return noopBehavior{} }, Restart: RestartPermanent},
		},
		Strategy:       StrategyOneForOne,
		Intensity:      10,
		PeriodMs:       10_000,
		RestartDelayMs: 10,
	})
	require.NoError(t, err)

	innerID, err := l.NewSupervisor(SupervisorConfig{
		Children: []ChildSpec{
			{Behavior: func() Behavior { return alwaysFailBehavior{} }, Restart: RestartPermanent},
		},
		Strategy:       StrategyOneForOne,
		Backoff:        BackoffNone,
		Intensity:      innerIntensity,
		PeriodMs:       10_000,
		RestartDelayMs: 10,
		Supervisor:     fn.Some(outerID),
	})
	require.NoError(t, err)

	innerRec, ok := l.table.Lookup(innerID)
	require.True(t, ok)
	require.Equal(t, fn.Some(outerID), innerRec.parent, "the inner supervisor's parent must be wired like an ordinary child's")

	innerSt := supervisorStateOf(t, l, innerID)

	for i := 0; i < innerIntensity+2; i++ {
		child := innerSt.children[0].current
		if !child.Valid() {
			break
		}
		require.NoError(t, l.Send(child, Message{}))
		drainAll(l)
	}

	_, ok = l.table.Lookup(innerID)
	require.False(t, ok, "the inner supervisor must have failed and been torn down once its own intensity limit was exceeded")

	outerRec, ok := l.table.Lookup(outerID)
	require.True(t, ok, "the outer supervisor survives and observes the cascade, unaffected by its own unrelated declared children")
	require.False(t, outerRec.status.terminal())
}

// TestBackoffExponentialGrowth is the pure-function core of end-to-end
// scenario 5's timing: consecutive restarts of the same child double the
// delay from RestartDelayMs, capped at MaxBackoffMs.
func TestBackoffExponentialGrowth(t *testing.T) {
	t.Parallel()

	cfg := SupervisorConfig{
		Backoff:        BackoffExponential,
		RestartDelayMs: 100,
		MaxBackoffMs:   1600,
	}
	cs := &childState{}

	var got []int64
	for i := 0; i < 6; i++ {
		got = append(got, backoffDelay(cfg, cs))
	}

	require.Equal(t, []int64{100, 200, 400, 800, 1600, 1600}, got)
}

func TestBackoffConstantAndNone(t *testing.T) {
	t.Parallel()

	constCfg := SupervisorConfig{Backoff: BackoffConstant, RestartDelayMs: 250}
	cs := &childState{}
	require.EqualValues(t, 250, backoffDelay(constCfg, cs))
	require.EqualValues(t, 250, backoffDelay(constCfg, cs))

	noneCfg := SupervisorConfig{Backoff: BackoffNone, RestartDelayMs: 250}
	require.EqualValues(t, 0, backoffDelay(noneCfg, &childState{}))
}
