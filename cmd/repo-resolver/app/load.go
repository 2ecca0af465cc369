package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sdkforge/repo-resolver/internal/config"
	"github.com/sdkforge/repo-resolver/internal/fetch"
	"github.com/sdkforge/repo-resolver/internal/logger"
	"github.com/sdkforge/repo-resolver/internal/service"
	"github.com/sdkforge/repo-resolver/internal/source"
	"github.com/sdkforge/repo-resolver/internal/status"
	"github.com/sdkforge/repo-resolver/internal/telemetry"
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Resolve the configured sources once and exit",
	Long: `Load fetches and resolves every source in the configuration file,
persists the per-source status, and prints a summary. With --source only
the named source is loaded.`,
	RunE: runLoad,
}

func init() {
	loadCmd.Flags().String("config", "", "Path to configuration file (YAML format, required)")
	loadCmd.Flags().String("source", "", "Load only the source with this name")
	loadCmd.Flags().Bool("json", false, "Print outcomes as JSON")

	err := viper.BindPFlag("load.config", loadCmd.Flags().Lookup("config"))
	if err != nil {
		logger.Fatalf("Failed to bind config flag: %v", err)
	}

	if err := loadCmd.MarkFlagRequired("config"); err != nil {
		logger.Fatalf("Failed to mark config flag as required: %v", err)
	}
}

// buildResolver assembles the service from a loaded configuration. Shared
// by the load and serve commands.
func buildResolver(cfg *config.Config, metrics *telemetry.LoadMetrics) (*service.Resolver, error) {
	defs := make([]service.Definition, 0, len(cfg.Sources))
	for _, src := range cfg.Sources {
		defs = append(defs, service.Definition{
			URL:   src.URL,
			Name:  src.Name,
			Trust: src.Trust(),
		})
	}

	style := source.UpgradeStyleStandalone
	if cfg.GetUpgradeStyle() == config.UpgradeStyleEmbedded {
		style = source.UpgradeStyleEmbedded
	}

	loader := source.NewLoader(
		fetch.NewHTTPFetcher(fetch.DefaultTimeout),
		source.WithLogger(logger.Named("loader")),
		source.WithUpgradeStyle(style),
	)

	return service.New(loader, defs,
		service.WithLogger(logger.Named("service")),
		service.WithForceHTTP(cfg.ForceHTTP),
		service.WithStatusPersistence(status.NewFilePersistence(cfg.GetStateDir())),
		service.WithMetrics(metrics),
	)
}

func runLoad(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	cfg, err := config.LoadConfig(config.WithConfigPath(viper.GetString("load.config")))
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	svc, err := buildResolver(cfg, nil)
	if err != nil {
		return fmt.Errorf("failed to create resolver: %w", err)
	}

	only, _ := cmd.Flags().GetString("source")
	asJSON, _ := cmd.Flags().GetBool("json")

	outcomes := make(map[string]*source.Outcome)
	if only != "" {
		out, err := svc.LoadSource(ctx, only, source.NewLogMonitor(logger.Named("load")))
		if err != nil {
			return fmt.Errorf("failed to load source %q: %w", only, err)
		}
		outcomes[only] = out
	} else {
		outcomes, err = svc.LoadAll(ctx)
		if err != nil {
			return fmt.Errorf("failed to load sources: %w", err)
		}
	}

	if asJSON {
		if err := json.NewEncoder(os.Stdout).Encode(outcomes); err != nil {
			return fmt.Errorf("failed to encode outcomes: %w", err)
		}
	} else {
		for name, out := range outcomes {
			fmt.Printf("--- %s\n%s\n", name, out.Description)
			if out.Error != "" {
				fmt.Printf("%s\n", out.Error)
			}
		}
	}

	failed := 0
	for _, out := range outcomes {
		if out.Packages == nil {
			failed++
		}
	}
	if failed == len(outcomes) && len(outcomes) > 0 {
		return fmt.Errorf("all %d sources failed to load", failed)
	}

	logger.Infof("Loaded %d/%d sources", len(outcomes)-failed, len(outcomes))
	return nil
}
