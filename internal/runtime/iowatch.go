package runtime

import (
	"encoding/binary"

	"golang.org/x/sys/unix"
)

// Interest is a bitmask of readiness events an actor wants to hear about for
// a descriptor.
type Interest uint8

const (
	InterestRead Interest = 1 << iota
	InterestWrite
)

// watcherEntry is one registered (descriptor, owner, interest) triple.
type watcherEntry struct {
	fd       int
	owner    ID
	interest Interest
}

// ioWatcher maintains a flat, descriptor-indexed array of watcher entries
// and a parallel poll-descriptor array. Lookup during
// registration/unregistration is linear by design: the set is expected to
// be small relative to actor counts — large-scale I/O multiplexing is the
// embedding host's job, this layer only bridges readiness into the actor
// mailbox world.
type ioWatcher struct {
	entries []watcherEntry
	pollfds []unix.PollFd
	dirty   bool

	// allocator gates growth of entries past its initial capacity. Nil
	// until a Loop assigns it from Config.Allocator; treated as
	// systemAllocator{} in that case so ioWatcher remains usable when
	// constructed directly, as the tests do.
	allocator Allocator
}

func newIOWatcher(initialCap int) *ioWatcher {
	if initialCap <= 0 {
		initialCap = 1
	}
	return &ioWatcher{
		entries: make([]watcherEntry, 0, initialCap),
	}
}

func (w *ioWatcher) indexOf(fd int) int {
	for i := range w.entries {
		if w.entries[i].fd == fd {
			return i
		}
	}
	return -1
}

// register adds or overwrites the watcher for fd. If fd is already watched,
// its owner/interest are overwritten in place. Otherwise a new slot is
// appended, doubling capacity on overflow. Growth past the initial capacity
// is gated on the allocator; fails with ErrNoMemory if it declines.
func (w *ioWatcher) register(fd int, owner ID, interest Interest) error {
	if fd < 0 {
		return newError(KindIORegFailed, "negative descriptor %d", fd)
	}

	if idx := w.indexOf(fd); idx >= 0 {
		w.entries[idx].owner = owner
		w.entries[idx].interest = interest
		w.dirty = true
		return nil
	}

	if len(w.entries) == cap(w.entries) {
		newCap := 2*cap(w.entries) + 1
		if w.allocatorOrDefault().Alloc(newCap*watcherSlotAllocSize) == nil {
			return ErrNoMemory
		}

		grown := make([]watcherEntry, len(w.entries), newCap)
		copy(grown, w.entries)
		w.entries = grown
	}

	w.entries = append(w.entries, watcherEntry{fd: fd, owner: owner, interest: interest})
	w.dirty = true

	return nil
}

// allocatorOrDefault returns w.allocator, falling back to the system heap
// when the ioWatcher was constructed directly rather than through NewLoop.
func (w *ioWatcher) allocatorOrDefault() Allocator {
	if w.allocator == nil {
		return systemAllocator{}
	}
	return w.allocator
}

// unregister removes the watcher for fd, compacting the array by swapping
// with the last element. Fails with ErrIONotWatched if fd is absent.
func (w *ioWatcher) unregister(fd int) error {
	idx := w.indexOf(fd)
	if idx < 0 {
		return ErrIONotWatched
	}

	last := len(w.entries) - 1
	w.entries[idx] = w.entries[last]
	w.entries = w.entries[:last]
	w.dirty = true

	return nil
}

// removeOwner drops every watcher belonging to owner, used when an actor is
// torn down.
func (w *ioWatcher) removeOwner(owner ID) {
	out := w.entries[:0]
	for _, e := range w.entries {
		if e.owner == owner {
			w.dirty = true
			continue
		}
		out = append(out, e)
	}
	w.entries = out
}

func (w *ioWatcher) count() int {
	return len(w.entries)
}

// rebuild regenerates the parallel poll-descriptor array from the current
// entries, applying the interest-to-poll mapping: READ -> IN|ERR|HUP|NVAL,
// WRITE -> OUT|ERR|HUP|NVAL.
func (w *ioWatcher) rebuild() {
	if cap(w.pollfds) < len(w.entries) {
		w.pollfds = make([]unix.PollFd, len(w.entries))
	} else {
		w.pollfds = w.pollfds[:len(w.entries)]
	}

	for i, e := range w.entries {
		var events int16
		if e.interest&InterestRead != 0 {
			events |= unix.POLLIN | unix.POLLERR | unix.POLLHUP | unix.POLLNVAL
		}
		if e.interest&InterestWrite != 0 {
			events |= unix.POLLOUT | unix.POLLERR | unix.POLLHUP | unix.POLLNVAL
		}
		w.pollfds[i] = unix.PollFd{Fd: int32(e.fd), Events: events}
	}

	w.dirty = false
}

// readinessFromRevents maps raw poll revents back to Interest bits: any of
// IN/ERR/HUP/NVAL implies READ; OUT implies WRITE.
func readinessFromRevents(revents int16) Interest {
	var r Interest
	if revents&(unix.POLLIN|unix.POLLERR|unix.POLLHUP|unix.POLLNVAL) != 0 {
		r |= InterestRead
	}
	if revents&unix.POLLOUT != 0 {
		r |= InterestWrite
	}
	return r
}

// encodeReadiness packs a synthesized readiness payload: a little-endian
// int32 descriptor followed by a one-byte readiness mask.
func encodeReadiness(fd int, mask Interest) []byte {
	buf := make([]byte, 5)
	binary.LittleEndian.PutUint32(buf, uint32(fd))
	buf[4] = byte(mask)
	return buf
}

// poll rebuilds the poll array if dirty, issues one poll(2) call bounded by
// timeoutMs, and for each descriptor with signaled readiness synthesizes a
// message handed to deliver (the Loop passes localDeliver, since polling
// always happens on the loop thread). Delivery failures drop the
// synthesized payload.
func (w *ioWatcher) poll(timeoutMs int, deliver func(owner ID, msg Message)) error {
	if len(w.entries) == 0 {
		return nil
	}

	if w.dirty {
		w.rebuild()
	}

	n, err := unix.Poll(w.pollfds, timeoutMs)
	if err != nil {
		if err == unix.EINTR {
			return nil
		}
		return err
	}
	if n == 0 {
		return nil
	}

	for i, pfd := range w.pollfds {
		if pfd.Revents == 0 {
			continue
		}

		mask := readinessFromRevents(pfd.Revents)
		if mask == 0 {
			continue
		}

		entry := w.entries[i]
		msg := Message{
			Data: encodeReadiness(entry.fd, mask),
			Tag:  TagIOReady,
		}
		deliver(entry.owner, msg)
	}

	return nil
}
