package runtime

// Verdict is the lifecycle outcome a Behavior returns after processing one
// message.
type Verdict int

const (
	// VerdictOK means the actor continues running normally.
	VerdictOK Verdict = iota

	// VerdictStop means the actor should begin a clean shutdown. Any
	// remaining queued messages are discarded, not delivered.
	VerdictStop

	// VerdictFail means the actor should be torn down as failed. If it is
	// supervised, this is reported to its parent supervisor.
	VerdictFail
)

// Behavior is the single capability user code implements: given a context
// and a message, decide what happens next. Any polymorphism over "kind of
// actor" is expressed through the opaque state handle carried on the
// context, not through the Behavior type itself.
type Behavior interface {
	Receive(ctx *ActorContext, msg Message) Verdict
}

// BehaviorFunc adapts a plain function to the Behavior interface, mirroring
// the function-behavior convenience constructor this runtime is grounded on.
type BehaviorFunc func(ctx *ActorContext, msg Message) Verdict

// Receive implements Behavior.
func (f BehaviorFunc) Receive(ctx *ActorContext, msg Message) Verdict {
	return f(ctx, msg)
}

// ActorContext is handed to a Behavior on every dispatch. It carries the
// actor's own identity and opaque state, plus a narrow callback surface into
// the owning Loop so a behavior can send further messages, arm timers, or
// watch descriptors — all legal because Receive only ever runs on the loop's
// own thread.
type ActorContext struct {
	self  ID
	state any
	loop  *Loop
}

// Self returns this actor's own stable identifier.
func (c *ActorContext) Self() ID { return c.self }

// State returns the actor's opaque state handle, established at spawn time
// and owned exclusively by the behavior.
func (c *ActorContext) State() any { return c.state }

// SetState replaces the actor's opaque state handle.
func (c *ActorContext) SetState(s any) { c.state = s }

// Loop returns the owning Loop, for behaviors that need to spawn children,
// send to other actors, or arm timers/watchers as a side effect of
// processing a message.
func (c *ActorContext) Loop() *Loop { return c.loop }
