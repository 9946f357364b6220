package commands

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/roasbeef/ember"
	"github.com/roasbeef/ember/internal/actorutil"
)

var (
	benchActors   int
	benchMessages int
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Load a worker pool with messages and report throughput",
	Long: `bench spawns a pool of identical actors, floods them with
messages round-robin, and reports how long the loop took to drain
everything. Each run is tagged with a uuid purely for log correlation
when comparing runs across invocations.`,
	RunE: runBench,
}

func init() {
	benchCmd.Flags().IntVar(
		&benchActors, "actors", 8,
		"Number of pool members to spawn",
	)
	benchCmd.Flags().IntVar(
		&benchMessages, "messages", 100_000,
		"Number of messages to flood the pool with",
	)
}

func runBench(cmd *cobra.Command, args []string) error {
	runID := uuid.New()
	fmt.Printf("bench run=%s actors=%d messages=%d\n", runID, benchActors, benchMessages)

	loop := ember.NewLoop(baseConfig())

	var behaviors []*counterBehavior
	pool, err := actorutil.NewPool(loop, actorutil.PoolConfig{
		ID:   "bench-" + runID.String(),
		Size: benchActors,
		Factory: func(int) ember.Behavior {
			b := &counterBehavior{}
			behaviors = append(behaviors, b)
			return b
		},
	})
	if err != nil {
		return fmt.Errorf("creating bench pool: %w", err)
	}

	done := make(chan error, 1)
	go func() { done <- loop.Run() }()

	start := time.Now()
	for i := 0; i < benchMessages; i++ {
		pool.SendAsync(ember.Message{Tag: tagPing})
	}

	for loop.Stats().MessagesProcessed < uint64(benchMessages) {
		time.Sleep(time.Millisecond)
	}
	elapsed := time.Since(start)

	stats := loop.Stats()
	throughput := float64(benchMessages) / elapsed.Seconds()
	fmt.Printf(
		"run=%s elapsed=%s throughput=%.0f msg/s ticks=%d\n",
		runID, elapsed, throughput, stats.Ticks,
	)

	pool.Stop()
	loop.RequestStop()

	return <-done
}
