package cli

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "sbcall",
	Short: "SkillBridge call client for two-party mentoring sessions",
	Long: `sbcall joins a SkillBridge mentoring session as a headless call
participant. With a signaling server configured it negotiates a real WebRTC
peer connection; without one it runs the call in loopback mode, which is
handy for demos and for soak-testing the signaling deployment.`,
}

// Execute runs the CLI. It is called once from main. An interrupt cancels
// the command context so a running call hangs up cleanly, sending its
// best-effort leave before the process exits.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		PrintError(err.Error())
		os.Exit(1)
	}
}
