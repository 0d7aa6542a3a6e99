package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/scrimlabs/scrim/internal/resolver"
)

var (
	respondSimulation string
	respondSession    string
)

var respondCmd = &cobra.Command{
	Use:   "respond <message...>",
	Short: "Send one student message and print the reply",
	Long: `Drive a single turn of a session from the command line. With
--simulation and no --session, a new session is started and its id printed
for reuse. Intended for scripting; use "scrim chat" for interactive work.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRespond,
}

func init() {
	respondCmd.Flags().StringVar(&respondSimulation, "simulation", "", "Simulation id (or unique prefix)")
	respondCmd.Flags().StringVar(&respondSession, "session", "", "Existing session id (or unique prefix)")
	rootCmd.AddCommand(respondCmd)
}

func runRespond(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	if respondSimulation == "" && respondSession == "" {
		return fmt.Errorf("either --simulation or --session is required")
	}

	rt, err := newRuntime(ctx, true)
	if err != nil {
		return err
	}
	defer rt.Close()

	simulationID := ""
	if respondSimulation != "" {
		simulationID, err = resolver.ResolveSimulationID(ctx, rt.store, respondSimulation)
		if err != nil {
			return err
		}
	}
	sessionID := ""
	if respondSession != "" {
		sessionID, err = resolver.ResolveSessionID(ctx, rt.store, respondSession)
		if err != nil {
			return err
		}
	}

	result, err := rt.manager.Respond(ctx, simulationID, sessionID, strings.Join(args, " "))
	if err != nil {
		return err
	}
	rt.manager.Shutdown()

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
