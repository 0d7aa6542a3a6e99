package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/scrimlabs/scrim/internal/orchestrator"
	"github.com/scrimlabs/scrim/internal/printer"
)

var (
	newFile     string
	newName     string
	newTemplate bool
)

var newCmd = &cobra.Command{
	Use:   "new",
	Short: "Build a new simulation from scenario text",
	Long: `Run the full build pipeline on a scenario: parse, generate the outline,
validate it, and finalize the immutable blueprint. Reads the scenario from
--file, or from stdin when no file is given.`,
	RunE: runNew,
}

func init() {
	newCmd.Flags().StringVarP(&newFile, "file", "f", "", "Path to the scenario text file (default: stdin)")
	newCmd.Flags().StringVar(&newName, "name", "", "Simulation name (default: the generated title)")
	newCmd.Flags().BoolVar(&newTemplate, "template", false, "Mark the simulation as a reusable template")
	rootCmd.AddCommand(newCmd)
}

func runNew(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	scenario, err := readScenario()
	if err != nil {
		return err
	}
	if strings.TrimSpace(scenario) == "" {
		return printer.Error("Empty scenario", "No scenario text was provided.",
			[]string{"pass a file with -f scenario.txt", "or pipe text on stdin"})
	}

	rt, err := newRuntime(ctx, true)
	if err != nil {
		return err
	}
	defer rt.Close()

	printer.Info("Building simulation...\n")
	record, err := rt.manager.CreateSimulation(ctx, orchestrator.CreateRequest{
		Name:       newName,
		Scenario:   scenario,
		IsTemplate: newTemplate,
	})
	if err != nil {
		return printer.Error("Build failed", err.Error(), nil)
	}

	printer.Success("Built %q\n", record.Name)
	printer.Info("  id:    %s\n", record.ID)
	printer.Info("  goals: %d  rules: %d  encounters: %d\n",
		len(record.Blueprint.Goals), len(record.Blueprint.Rules), len(record.Blueprint.Encounters))
	for _, g := range record.Blueprint.Goals {
		printer.Info("  - [%s] %s\n", g.ID, g.Description)
	}
	fmt.Println()
	printer.Info("Start a session with: scrim chat %s\n", record.ID[:8])
	return nil
}

func readScenario() (string, error) {
	if newFile != "" {
		data, err := os.ReadFile(newFile)
		if err != nil {
			return "", fmt.Errorf("failed to read scenario file: %w", err)
		}
		return string(data), nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read scenario from stdin: %w", err)
	}
	return string(data), nil
}
