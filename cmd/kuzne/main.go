// Command kuzne boots the kernel on the emulated platform, loading programs
// from a host directory.
package main

import (
	"fmt"
	"os"

	"github.com/ceyert/kuzne/kernel/kmain"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "kuzne",
	Short: "Run the kuzne kernel on an emulated CPU",
	Long: `kuzne boots the kernel against an emulated 32-bit CPU. Programs are
read from a host directory mounted as drive 0, the init program is started
in user mode and timer ticks drive the round-robin scheduler.`,
	Version:       kmain.Version.String(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
