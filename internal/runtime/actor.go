package runtime

import "github.com/lightningnetwork/lnd/fn/v2"

// Status is the lifecycle state of an actor.
type Status int

const (
	StatusInit Status = iota
	StatusRunning
	StatusStopping
	StatusStopped
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusInit:
		return "init"
	case StatusRunning:
		return "running"
	case StatusStopping:
		return "stopping"
	case StatusStopped:
		return "stopped"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// terminal reports whether the status requires teardown before any further
// message is delivered.
func (s Status) terminal() bool {
	return s == StatusStopping || s == StatusFailed
}

// actorRecord is the runtime's internal representation of a spawned actor.
// It is solely owned by the Loop; storage is released only after teardown
// completes. All fields are touched exclusively from the loop thread.
type actorRecord struct {
	id   ID
	name string

	behavior Behavior
	state    any
	mailbox  *mailbox

	parent fn.Option[ID]
	status Status

	supervisor *supervisorState // non-nil iff this actor is itself a supervisor

	inRunQueue bool

	// acctBuf is the buffer returned by Config.Allocator.Alloc when this
	// record was admitted at Spawn time; freed back through Allocator.Free
	// at teardown. See the Allocator doc comment in config.go.
	acctBuf []byte
}

// Table is the generation-tagged actor table: three parallel arrays (slot
// pointers, per-slot generations, and a free-index stack).
type Table struct {
	slots []*actorRecord
	gens  []uint32
	free  []uint32 // stack; free[len-1] is popped next
	live  int
}

// NewTable allocates a table with room for maxActors concurrently live
// actors.
func NewTable(maxActors int) *Table {
	t := &Table{
		slots: make([]*actorRecord, maxActors),
		gens:  make([]uint32, maxActors),
		free:  make([]uint32, maxActors),
	}

	// Generations start at 1 (0 is reserved to mark "never issued").
	// The free stack is initialized in descending order so slot 0 is
	// handed out first.
	for i := range t.gens {
		t.gens[i] = 1
	}
	for i := 0; i < maxActors; i++ {
		t.free[i] = uint32(maxActors - 1 - i)
	}

	return t
}

// Cap returns the table's fixed capacity.
func (t *Table) Cap() int {
	return len(t.slots)
}

// Live returns the number of currently live actors.
func (t *Table) Live() int {
	return t.live
}

// Insert reserves a free slot, stamps rec with its (index, generation), and
// stores the pointer. Fails with ErrMaxActors when the table is full.
func (t *Table) Insert(rec *actorRecord) (ID, error) {
	if len(t.free) == 0 {
		return nilID, ErrMaxActors
	}

	idx := t.free[len(t.free)-1]
	t.free = t.free[:len(t.free)-1]

	id := ID{index: idx, generation: t.gens[idx]}
	rec.id = id
	t.slots[idx] = rec
	t.live++

	return id, nil
}

// Lookup resolves id to its actor record. It returns false for any id whose
// generation doesn't match the slot's current generation, whether that's
// because the slot was never issued, was reused, or is out of bounds.
func (t *Table) Lookup(id ID) (*actorRecord, bool) {
	if int(id.index) >= len(t.slots) {
		return nil, false
	}
	if t.gens[id.index] != id.generation {
		return nil, false
	}

	rec := t.slots[id.index]
	if rec == nil {
		return nil, false
	}

	return rec, true
}

// Remove clears the slot occupied by id, bumps its generation so stale
// identifiers can never alias a future occupant, and returns the slot to the
// free stack. It is a no-op returning false if id does not currently
// resolve.
func (t *Table) Remove(id ID) bool {
	rec, ok := t.Lookup(id)
	if !ok {
		return false
	}

	idx := id.index
	t.slots[idx] = nil
	t.gens[idx]++ // wrapping arithmetic is fine; collisions are astronomically rare
	t.free = append(t.free, idx)
	t.live--

	_ = rec

	return true
}

// All returns every currently live actor record. The slice is a fresh copy
// so callers may safely mutate the table while iterating it.
func (t *Table) All() []*actorRecord {
	out := make([]*actorRecord, 0, t.live)
	for _, rec := range t.slots {
		if rec != nil {
			out = append(out, rec)
		}
	}
	return out
}
