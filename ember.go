package ember

import (
	"github.com/btcsuite/btclog/v2"

	"github.com/roasbeef/ember/internal/runtime"
)

// Core types are plain aliases of their internal/runtime counterparts: the
// runtime package holds the implementation, this package is its public
// name. Keeping them as aliases (rather than wrapper structs) means every
// method internal/runtime defines on Loop, ActorContext, and so on is
// usable here with no forwarding boilerplate to keep in sync.
type (
	// Loop is the cooperative scheduler. See NewLoop.
	Loop = runtime.Loop

	// ID is a stable, generation-tagged actor identifier.
	ID = runtime.ID

	// Message is the unit of communication between actors.
	Message = runtime.Message

	// Behavior is the capability user code implements to react to
	// messages delivered to one actor.
	Behavior = runtime.Behavior

	// BehaviorFunc adapts a plain function to Behavior.
	BehaviorFunc = runtime.BehaviorFunc

	// ActorContext is handed to a Behavior on every dispatch.
	ActorContext = runtime.ActorContext

	// Verdict is the lifecycle outcome a Behavior returns.
	Verdict = runtime.Verdict

	// Status is an actor's lifecycle state.
	Status = runtime.Status

	// Config holds the tunables for a Loop.
	Config = runtime.Config

	// SpawnConfig describes a new actor at spawn time.
	SpawnConfig = runtime.SpawnConfig

	// Allocator is a caller-suppliable memory accounting hook.
	Allocator = runtime.Allocator

	// Interest is a bitmask of readiness events for a watched descriptor.
	Interest = runtime.Interest

	// Stats is a point-in-time snapshot of scheduler activity.
	Stats = runtime.Stats

	// Strategy governs which siblings restart when a supervised child
	// terminates.
	Strategy = runtime.Strategy

	// RestartMode governs whether an individual child restarts at all.
	RestartMode = runtime.RestartMode

	// BackoffKind selects how the restart delay grows across consecutive
	// restarts of the same child.
	BackoffKind = runtime.BackoffKind

	// ChildSpec declares one child a supervisor creates and restarts.
	ChildSpec = runtime.ChildSpec

	// SupervisorConfig parameterizes a supervisor's restart behavior.
	SupervisorConfig = runtime.SupervisorConfig

	// Kind identifies a distinct error category.
	Kind = runtime.Kind

	// Error is the sealed error type every fallible operation returns.
	Error = runtime.Error
)

// Verdict values.
const (
	VerdictOK   = runtime.VerdictOK
	VerdictStop = runtime.VerdictStop
	VerdictFail = runtime.VerdictFail
)

// Status values.
const (
	StatusInit     = runtime.StatusInit
	StatusRunning  = runtime.StatusRunning
	StatusStopping = runtime.StatusStopping
	StatusStopped  = runtime.StatusStopped
	StatusFailed   = runtime.StatusFailed
)

// Interest values.
const (
	InterestRead  = runtime.InterestRead
	InterestWrite = runtime.InterestWrite
)

// TagIOReady is the reserved tag value identifying a synthesized I/O
// readiness message. User code should not reuse it for its own messages.
const TagIOReady = runtime.TagIOReady

// Strategy values.
const (
	StrategyOneForOne  = runtime.StrategyOneForOne
	StrategyOneForAll  = runtime.StrategyOneForAll
	StrategyRestForOne = runtime.StrategyRestForOne
)

// RestartMode values.
const (
	RestartPermanent = runtime.RestartPermanent
	RestartTransient = runtime.RestartTransient
	RestartTemporary = runtime.RestartTemporary
)

// BackoffKind values.
const (
	BackoffNone        = runtime.BackoffNone
	BackoffConstant    = runtime.BackoffConstant
	BackoffExponential = runtime.BackoffExponential
)

// Default tunables, re-exported from internal/runtime for hosts that want
// to override just one field of DefaultConfig.
const (
	DefaultMaxActors        = runtime.DefaultMaxActors
	DefaultMailboxCapacity  = runtime.DefaultMailboxCapacity
	DefaultMaxMsgsPerActor  = runtime.DefaultMaxMsgsPerActor
	DefaultMaxActorsPerTick = runtime.DefaultMaxActorsPerTick
	DefaultMaxIOWatchers    = runtime.DefaultMaxIOWatchers
	DefaultIOPollTimeoutMs  = runtime.DefaultIOPollTimeoutMs
	DefaultRestartDelayMs   = runtime.DefaultRestartDelayMs
	DefaultMaxBackoffMs     = runtime.DefaultMaxBackoffMs
	DefaultCleanupBudgetMs  = runtime.DefaultCleanupBudgetMs
)

// Sentinel errors, one per Kind, usable with errors.Is.
var (
	ErrNoMemory     = runtime.ErrNoMemory
	ErrInvalidArg   = runtime.ErrInvalidArg
	ErrLoopClosed   = runtime.ErrLoopClosed
	ErrNoSuchActor  = runtime.ErrNoSuchActor
	ErrMailboxFull  = runtime.ErrMailboxFull
	ErrTimerInvalid = runtime.ErrTimerInvalid
	ErrIORegFailed  = runtime.ErrIORegFailed
	ErrIONotWatched = runtime.ErrIONotWatched
	ErrMaxActors    = runtime.ErrMaxActors
)

// NewLoop constructs a Loop from cfg, filling in defaults for any zero
// fields. Use DefaultConfig() for a cfg with every field already at its
// documented default.
func NewLoop(cfg Config) *Loop { return runtime.NewLoop(cfg) }

// DefaultConfig returns a Config populated with the documented defaults.
func DefaultConfig() Config { return runtime.DefaultConfig() }

// UseLogger sets the backend used by the runtime's structured log calls.
func UseLogger(backend btclog.Logger) { runtime.UseLogger(backend) }

// DisableLog disables all logging output from the runtime.
func DisableLog() { runtime.DisableLog() }
