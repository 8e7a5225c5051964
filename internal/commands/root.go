// Package commands provides the CLI commands for the tutor.
package commands

import (
	"os"

	"github.com/spf13/cobra"

	"llm-tutor/internal/config"
)

// Version is set at build time.
var Version = "0.1.0"

// NewRootCmd builds the tutor command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "tutor",
		Short: "LLM tutor backend and terminal client",
		Long: `tutor runs the thesis-assistant backend, which executes the configured
Python scripts per request, and a terminal chat client for it.

Examples:
  tutor serve                       Start the HTTP backend on HTTP_PORT
  tutor chat                        Open the chat client against TUTOR_URL
  tutor ask "Erstelle mir eine Gliederung zu: KI"`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.PersistentFlags().String("config", os.Getenv("TUTOR_CONFIG"), "YAML config file; environment variables override it")

	root.AddCommand(newServeCmd())
	root.AddCommand(newChatCmd())
	root.AddCommand(newAskCmd())
	return root
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the --config file, if any, and the environment.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return config.LoadFile(path)
}
