// Package actorutil provides higher-level helpers built on top of the
// ember runtime's public API: round-robin worker pools and fan-out
// helpers. Everything here is driven by a single Loop's cooperative
// scheduler — there are no per-actor goroutines to manage.
package actorutil

import (
	"fmt"
	"sync/atomic"

	"github.com/roasbeef/ember/internal/runtime"
)

// Pool distributes messages across a fixed set of same-shaped actors using
// round-robin selection, spreading load across a set of worker identities
// that all run on the owning Loop's single thread.
type Pool struct {
	id  string
	ids []runtime.ID

	next atomic.Uint64

	loop *runtime.Loop
}

// PoolConfig holds configuration for creating a new worker pool.
type PoolConfig struct {
	// ID names the pool, used only to label its members in logs.
	ID string

	// Size is the number of actor instances to spawn.
	Size int

	// Factory creates a fresh Behavior for each pool member. Called once
	// per member at construction time.
	Factory func(idx int) runtime.Behavior

	// State, if non-nil, produces each member's initial opaque state.
	State func(idx int) any

	// MailboxCap overrides the Loop's default mailbox capacity for every
	// pool member.
	MailboxCap int
}

// NewPool spawns cfg.Size actors on loop, each built from cfg.Factory, and
// returns a Pool that round-robins Send/SendAsync across them.
func NewPool(loop *runtime.Loop, cfg PoolConfig) (*Pool, error) {
	if cfg.Size <= 0 {
		cfg.Size = 1
	}

	p := &Pool{
		id:   cfg.ID,
		ids:  make([]runtime.ID, cfg.Size),
		loop: loop,
	}

	for i := 0; i < cfg.Size; i++ {
		var state any
		if cfg.State != nil {
			state = cfg.State(i)
		}

		id, err := loop.Spawn(runtime.SpawnConfig{
			Behavior:   cfg.Factory(i),
			State:      state,
			Name:       fmt.Sprintf("%s-%d", cfg.ID, i),
			MailboxCap: cfg.MailboxCap,
		})
		if err != nil {
			return nil, fmt.Errorf("actorutil: spawning pool member %d: %w", i, err)
		}
		p.ids[i] = id
	}

	return p, nil
}

// ID returns the pool's label.
func (p *Pool) ID() string { return p.id }

// Size returns the number of actors in the pool.
func (p *Pool) Size() int { return len(p.ids) }

// IDs returns a copy of the pool's member identifiers.
func (p *Pool) IDs() []runtime.ID {
	out := make([]runtime.ID, len(p.ids))
	copy(out, p.ids)
	return out
}

// nextID selects the next member in round-robin order.
func (p *Pool) nextID() runtime.ID {
	idx := p.next.Add(1) % uint64(len(p.ids))
	return p.ids[idx]
}

// Send delivers msg to the next member synchronously; see
// runtime.Loop.Send for calling-thread requirements.
func (p *Pool) Send(msg runtime.Message) error {
	return p.loop.Send(p.nextID(), msg)
}

// SendAsync delivers msg to the next member via the thread-safe ingress.
func (p *Pool) SendAsync(msg runtime.Message) {
	p.loop.SendAsync(p.nextID(), msg)
}

// Broadcast queues msg for delivery to every member of the pool.
func (p *Pool) Broadcast(msg runtime.Message) {
	for _, id := range p.ids {
		p.loop.SendAsync(id, msg)
	}
}

// Stop requests a clean shutdown of every member of the pool via the
// thread-safe ingress. Safe to call from any goroutine.
func (p *Pool) Stop() {
	for _, id := range p.ids {
		p.loop.StopAsync(id)
	}
}
