package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	version string
	commit  string
	date    string

	configPath string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "scrim",
	Short: "Scrim - AI-driven educational simulation engine",
	Long: `Scrim turns a professor's scenario text into an interactive educational
simulation: a pipeline of AI agents builds an immutable scenario blueprint,
and at runtime an in-character advisor serves student turns while a
director agent steers the conversation toward the learning goals.

State persists in Redis; the LLM provider credential comes from the
GEMINI_API_KEY environment variable.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called once from main.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "scrim.yml", "Path to the scrim configuration file")
}
