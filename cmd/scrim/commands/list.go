package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/scrimlabs/scrim/internal/printer"
)

var (
	listJSON      bool
	listTemplates bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored simulations",
	Long: `List the simulations persisted in the store, newest first.

Use --json for machine-readable output and --templates to show only
reusable templates.`,
	RunE: runList,
}

func init() {
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")
	listCmd.Flags().BoolVar(&listTemplates, "templates", false, "Only list templates")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	rt, err := newRuntime(ctx, false)
	if err != nil {
		return err
	}
	defer rt.Close()

	var isTemplate *bool
	if listTemplates {
		t := true
		isTemplate = &t
	}

	records, err := rt.manager.Simulations(ctx, isTemplate)
	if err != nil {
		return err
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})

	if listJSON {
		out, err := json.MarshalIndent(records, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	if len(records) == 0 {
		printer.Info("No simulations found.\n")
		return nil
	}
	for _, r := range records {
		marker := " "
		if r.IsTemplate {
			marker = "T"
		}
		sessions, _ := rt.store.SessionsForSimulation(ctx, r.ID)
		printer.Info("%s  %s  %-30s  goals=%d sessions=%d  %s\n",
			marker, r.ID[:8], truncateName(r.Name, 30), len(r.Blueprint.Goals),
			len(sessions), r.CreatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}

func truncateName(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit-1] + "…"
}
