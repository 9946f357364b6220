package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roasbeef/ember"
)

var spawnMessages int

var spawnCmd = &cobra.Command{
	Use:   "spawn",
	Short: "Spawn a single actor, send it some messages, and print stats",
	Long: `spawn is the smallest possible demonstration of the runtime:
one actor, a handful of messages, driven through Run.`,
	RunE: runSpawn,
}

func init() {
	spawnCmd.Flags().IntVar(
		&spawnMessages, "messages", 10,
		"Number of messages to send before requesting a clean stop",
	)
}

func runSpawn(cmd *cobra.Command, args []string) error {
	loop := ember.NewLoop(baseConfig())

	id, err := loop.Spawn(ember.SpawnConfig{
		Behavior: counterBehavior{},
		Name:     "spawn-demo",
	})
	if err != nil {
		return fmt.Errorf("spawning demo actor: %w", err)
	}

	done := make(chan error, 1)
	go func() { done <- loop.Run() }()

	for i := 0; i < spawnMessages; i++ {
		loop.SendAsync(id, ember.Message{Tag: tagPing})
	}

	for loop.Stats().MessagesProcessed < uint64(spawnMessages) {
		time.Sleep(time.Millisecond)
	}

	stats := loop.Stats()
	fmt.Printf(
		"ticks=%d messages_processed=%d actors_alive=%d\n",
		stats.Ticks, stats.MessagesProcessed, stats.ActorsAlive,
	)

	loop.StopAsync(id)
	loop.RequestStop()

	return <-done
}
