package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/scrimlabs/scrim/internal/printer"
	"github.com/scrimlabs/scrim/internal/resolver"
	"github.com/scrimlabs/scrim/internal/transcript"
)

var (
	exportFormat string
	exportOut    string
)

var exportCmd = &cobra.Command{
	Use:   "export <session-id>",
	Short: "Export a session transcript",
	Long: `Render a session's conversation history as JSON or plain text.

The session id may be a unique prefix (at least 6 characters).`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "json", "Export format: json or text")
	exportCmd.Flags().StringVarP(&exportOut, "output", "o", "", "Write to file instead of stdout")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	format, err := transcript.ParseFormat(exportFormat)
	if err != nil {
		return err
	}

	rt, err := newRuntime(ctx, false)
	if err != nil {
		return err
	}
	defer rt.Close()

	sessionID, err := resolver.ResolveSessionID(ctx, rt.store, args[0])
	if err != nil {
		return err
	}

	session, err := rt.store.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	simulation, err := rt.store.GetSimulation(ctx, session.SimulationID)
	if err != nil {
		simulation = nil
	}

	body, err := transcript.Render(session, simulation, format)
	if err != nil {
		return err
	}

	if exportOut == "" {
		fmt.Println(string(body))
		return nil
	}
	if err := os.WriteFile(exportOut, body, 0o644); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	printer.Success("Exported session %s to %s\n", sessionID[:8], exportOut)
	return nil
}
