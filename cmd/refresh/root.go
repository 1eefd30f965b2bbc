package main

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/dom/tft-catalog/internal/config"
	"github.com/dom/tft-catalog/internal/domain"
	"github.com/dom/tft-catalog/internal/repository"
	"github.com/dom/tft-catalog/internal/repository/postgres"
	"github.com/dom/tft-catalog/internal/service"
	"github.com/spf13/cobra"
)

type refreshOptions struct {
	configPath string
	strict     bool
	only       []string
	version    string
}

func newRootCmd() *cobra.Command {
	opts := &refreshOptions{}

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Fetch the TFT champion and item catalogs and write them to disk",
		Long: `Fetch the TFT champion and item catalogs from Data Dragon, filter and
enrich them, and write one JSON file per catalog. When DATABASE_URL is set the
catalogs are mirrored into Postgres as well.

Failures are logged and the command still exits 0 unless --strict is given.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRefresh(cmd.Context(), opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "Path to the catalog YAML file (overrides CATALOG_CONFIG)")
	flags.BoolVar(&opts.strict, "strict", false, "Exit non-zero when any step fails")
	flags.StringSliceVar(&opts.only, "only", nil, "Refresh only these kinds: champion, item")
	flags.StringVar(&opts.version, "ddragon-version", "", `Data Dragon version or "latest" (overrides DDRAGON_VERSION)`)

	return cmd
}

func runRefresh(ctx context.Context, opts *refreshOptions) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if opts.configPath != "" {
		if cfg.Kinds, err = config.LoadKinds(opts.configPath); err != nil {
			return err
		}
	}
	if opts.version != "" {
		cfg.DataDragonVersion = opts.version
	}
	if opts.strict {
		cfg.RefreshStrict = true
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	kinds, err := parseKinds(opts.only)
	if err != nil {
		return err
	}

	var repos *repository.Repositories
	if cfg.DatabaseURL != "" {
		db, err := postgres.NewConnection(cfg.DatabaseURL)
		if err != nil {
			log.Printf("ERROR [refresh] failed to connect to database: %v", err)
			if cfg.RefreshStrict {
				return err
			}
		} else {
			repos = postgres.NewRepositories(db)
		}
	}

	services := service.NewServices(repos, cfg)
	result, err := services.Refresh.Run(ctx, kinds...)
	if err != nil {
		return err
	}

	parts := make([]string, 0, len(result.Counts))
	for _, kind := range domain.Kinds {
		if n, ok := result.Counts[kind]; ok {
			parts = append(parts, fmt.Sprintf("%s=%d", kind, n))
		}
	}
	log.Printf("Refresh finished run=%s version=%s %s", result.RunID, result.Version, strings.Join(parts, " "))
	return nil
}

func parseKinds(names []string) ([]domain.Kind, error) {
	kinds := make([]domain.Kind, 0, len(names))
	for _, name := range names {
		kind := domain.Kind(strings.ToLower(strings.TrimSpace(name)))
		if !kind.Valid() {
			return nil, fmt.Errorf("unknown catalog kind %q (want champion or item)", name)
		}
		kinds = append(kinds, kind)
	}
	return kinds, nil
}
