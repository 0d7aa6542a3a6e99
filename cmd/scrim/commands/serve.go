package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/scrimlabs/scrim/internal/printer"
	"github.com/scrimlabs/scrim/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Scrim HTTP server",
	Long: `Start the HTTP server exposing the professor setup surface, the student
turn loop, and operational endpoints. Blocks until interrupted; in-flight
director evaluations are drained on shutdown.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	rt, err := newRuntime(ctx, true)
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := rt.store.Ping(ctx); err != nil {
		return printer.Error("Store unreachable", err.Error(),
			[]string{"check SCRIM_STORE_URL and that Redis is running"})
	}

	srv := server.New(rt.manager, rt.cfg.ListenAddr)
	if err := srv.Start(); err != nil {
		return err
	}
	printer.Success("Scrim listening on %s (instance %q)\n", rt.cfg.ListenAddr, rt.cfg.Instance)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	printer.Info("Shutting down...\n")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
