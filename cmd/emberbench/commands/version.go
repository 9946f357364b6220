package commands

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Version is the emberbench release tag, overridable via -ldflags at build
// time (e.g. -X github.com/roasbeef/ember/cmd/emberbench/commands.Version=v0.1.0).
var Version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Display version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("emberbench %s go=%s\n", Version, runtime.Version())
	},
}
