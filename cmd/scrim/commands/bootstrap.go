package commands

import (
	"context"
	"fmt"

	"github.com/scrimlabs/scrim/internal/config"
	"github.com/scrimlabs/scrim/internal/oracle"
	"github.com/scrimlabs/scrim/internal/orchestrator"
	"github.com/scrimlabs/scrim/internal/printer"
	"github.com/scrimlabs/scrim/internal/store"
)

// runtime bundles everything a command needs to talk to the engine.
type runtime struct {
	cfg     *config.ScrimConfig
	store   *store.Client
	manager *orchestrator.Manager
}

func (r *runtime) Close() {
	_ = r.store.Close()
}

// newRuntime loads configuration and wires the store, oracle, and manager.
// Commands that never call the oracle can pass needOracle=false and run
// without a credential.
func newRuntime(ctx context.Context, needOracle bool) (*runtime, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, printer.Error("Invalid configuration", err.Error(), nil)
	}

	opts, err := cfg.RedisOptions()
	if err != nil {
		return nil, err
	}
	st, err := store.NewClient(opts, cfg.Instance)
	if err != nil {
		return nil, err
	}

	var llm oracle.Oracle
	if needOracle {
		if cfg.APIKey == "" {
			_ = st.Close()
			return nil, printer.Error(
				"Missing LLM credential",
				fmt.Sprintf("The %s environment variable is not set.", config.EnvAPIKey),
				[]string{fmt.Sprintf("export %s=<your key> and retry", config.EnvAPIKey)},
			)
		}
		llm, err = oracle.NewGemini(ctx, cfg.APIKey)
		if err != nil {
			_ = st.Close()
			return nil, err
		}
	}

	manager := orchestrator.NewManager(st, llm, orchestrator.Models{
		Fast:    cfg.Models.Fast,
		Quality: cfg.Models.Quality,
	})
	return &runtime{cfg: cfg, store: st, manager: manager}, nil
}
