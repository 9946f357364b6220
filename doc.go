// Package ember is an embeddable, single-process actor runtime: a
// cooperative scheduler that dispatches lightweight, isolated actors
// communicating by asynchronous message passing, plus the supervision
// machinery to restart them when they fail.
//
// The runtime is single-threaded by design. A Loop's Run method must be
// called from exactly one goroutine, and every Behavior's Receive method
// runs to completion on that same goroutine — behaviors must not block.
// Only SendAsync, StopAsync, FailAsync, and RequestStop are safe to call from
// other goroutines (plus Stats, which reads an atomically published
// snapshot); they cross into the loop thread through the thread-safe
// ingress also used by timers. Spawning actors, arming
// timers directly, and watching file descriptors all mutate loop state with
// no synchronization and must only be called from the loop thread itself:
// before Run starts, or from within a Behavior's Receive.
//
// Message payloads (the Data field of Message) are opaque byte slices.
// Ownership is the caller's by convention: the runtime never copies,
// retains past delivery, or frees a payload.
//
// A minimal host looks like:
//
//	loop := ember.NewLoop(ember.DefaultConfig())
//	id, err := loop.Spawn(ember.SpawnConfig{Behavior: myBehavior{}})
//	if err != nil {
//		// handle spawn failure
//	}
//	go func() {
//		time.Sleep(time.Second)
//		loop.RequestStop()
//	}()
//	if err := loop.Run(); err != nil {
//		// handle loop-closed
//	}
package ember
