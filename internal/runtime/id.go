package runtime

import "fmt"

// ID is a stable actor identifier composed of a slot index and a
// generation counter. The generation is bumped every time a slot is reused,
// so a stale ID can never alias a different, later actor occupying the same
// slot. IDs are opaque and should only be compared for equality.
type ID struct {
	index      uint32
	generation uint32
}

// nilID is the zero-value ID, never issued by Insert and therefore always
// invalid. It's returned alongside errors so callers never need to special-
// case a nil pointer.
var nilID = ID{}

// Valid reports whether this ID could plausibly have been issued by a
// Table (generation is never zero for an issued slot).
func (id ID) Valid() bool {
	return id.generation != 0
}

// String renders the ID as "index:generation", useful for log lines.
func (id ID) String() string {
	return fmt.Sprintf("%d:%d", id.index, id.generation)
}
