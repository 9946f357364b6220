package actorutil

import (
	"fmt"

	"github.com/roasbeef/ember/internal/runtime"
)

// TellAll queues msg for delivery to every id in ids, via the thread-safe
// ingress. Useful for broadcasting a configuration change or shutdown
// signal to a known set of actors.
func TellAll(loop *runtime.Loop, ids []runtime.ID, msg runtime.Message) {
	for _, id := range ids {
		loop.SendAsync(id, msg)
	}
}

// FanOut sends a distinct message to each id, pairing ids[i] with msgs[i].
// ids and msgs must have the same length.
func FanOut(loop *runtime.Loop, ids []runtime.ID, msgs []runtime.Message) error {
	if len(ids) != len(msgs) {
		return fmt.Errorf("actorutil: ids and msgs must have the same length (%d != %d)", len(ids), len(msgs))
	}

	for i, id := range ids {
		loop.SendAsync(id, msgs[i])
	}

	return nil
}

// StopAll requests a clean shutdown of every id in ids via the thread-safe
// ingress, so it may be called from any goroutine. Queuing always succeeds;
// an id that no longer resolves is silently skipped at drain time, matching
// StopAsync's best-effort semantics.
func StopAll(loop *runtime.Loop, ids []runtime.ID) {
	for _, id := range ids {
		loop.StopAsync(id)
	}
}
