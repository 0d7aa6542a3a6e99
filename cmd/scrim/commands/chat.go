package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/scrimlabs/scrim/internal/resolver"
	"github.com/scrimlabs/scrim/internal/tui"
)

var chatCmd = &cobra.Command{
	Use:   "chat <simulation-id>",
	Short: "Chat with a simulation interactively",
	Long: `Open an interactive terminal session against a built simulation. A new
session starts with the advisor's opener; the transcript persists to the
store as you go.

The simulation id may be a unique prefix (at least 6 characters).`,
	Args: cobra.ExactArgs(1),
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	rt, err := newRuntime(ctx, true)
	if err != nil {
		return err
	}
	defer rt.Close()

	simulationID, err := resolver.ResolveSimulationID(ctx, rt.store, args[0])
	if err != nil {
		return err
	}
	record, err := rt.store.GetSimulation(ctx, simulationID)
	if err != nil {
		return err
	}

	defer rt.manager.Shutdown()
	return tui.Run(rt.manager, simulationID, record.Name)
}
