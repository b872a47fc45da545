package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/hyperjump/artcollector/internal/catalog"
	"github.com/hyperjump/artcollector/internal/cli"
	"github.com/hyperjump/artcollector/internal/config"
	"github.com/hyperjump/artcollector/internal/models"
	"github.com/hyperjump/artcollector/internal/search"
	"github.com/hyperjump/artcollector/internal/server"
	"github.com/hyperjump/artcollector/internal/storage"
	"github.com/hyperjump/artcollector/internal/ui"
	"github.com/hyperjump/artcollector/pkg/utils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// setup loads the config and builds a logger for a command.
func setup(flags *globalFlags) (*config.Config, string, *zap.Logger, error) {
	cfg, path, err := loadConfig(flags.configPath)
	if err != nil {
		return nil, "", nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := utils.NewLogger(cfg.Debug || flags.debug)
	if err != nil {
		return nil, "", nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return cfg, path, logger, nil
}

func newServerCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "server",
		Short: "Start the web search interface",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, path, logger, err := setup(flags)
			if err != nil {
				return err
			}
			defer logger.Sync()
			logger.Info("config loaded",
				zap.String("config_path", path),
				zap.String("source", cfg.Catalog.Source),
				zap.Bool("debug", cfg.Debug || flags.debug),
			)

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			components, err := initializeComponents(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer components.Close()
			if err := components.startWatch(ctx, cfg, logger); err != nil {
				return fmt.Errorf("failed to start watcher: %w", err)
			}

			srv, err := server.NewServer(components.Catalog, &cfg.Server, utils.Named(logger, "server"))
			if err != nil {
				return err
			}
			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()

			select {
			case err := <-errCh:
				return fmt.Errorf("server failed: %w", err)
			case <-ctx.Done():
			}
			logger.Info("Shutting down...")
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			return srv.Stop(shutdownCtx)
		},
	}
}

func newSearchCmd(flags *globalFlags) *cobra.Command {
	var century, classification, output string
	cmd := &cobra.Command{
		Use:   "search [keywords...]",
		Short: "Run one search and print the results",
		Long: `Run one search cycle in the terminal: load the reference lists, apply the
filters and keywords, submit, and print the results.

Keywords are all remaining arguments joined by spaces. Filters take a name from
'artcollector references', or "any".

Examples:
  artcollector search vase
  artcollector search --classification Sculpture vase
  artcollector search --century "19th century" --output json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := cli.ParseOutputFormat(output)
			if err != nil {
				return err
			}
			cfg, _, logger, err := setup(flags)
			if err != nil {
				return err
			}
			defer logger.Sync()

			components, err := initializeComponents(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer components.Close()

			input := models.QueryInput{
				Century:        century,
				Classification: classification,
				QueryString:    buildQueryString(args),
			}
			// Keep JSON on stdout parseable.
			loadingOut := cmd.OutOrStdout()
			if format == cli.OutputJSON {
				loadingOut = cmd.ErrOrStderr()
			}
			results := runSearchCycle(cmd.Context(), components.Catalog, input, loadingOut, logger)
			return cli.WriteResults(cmd.OutOrStdout(), results, format)
		},
	}
	cmd.Flags().StringVar(&century, "century", models.AnyFilter, "century name to filter by")
	cmd.Flags().StringVar(&classification, "classification", models.AnyFilter, "classification name to filter by")
	cmd.Flags().StringVarP(&output, "output", "o", string(cli.OutputText), "output format: text or json")
	return cmd
}

// buildQueryString joins positional arguments into the keyword query.
func buildQueryString(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// runSearchCycle drives one orchestrated search with a terminal container and
// returns the container's results afterwards. The loading view is printed to
// loadingOut when the flag rises.
func runSearchCycle(ctx context.Context, cat search.Catalog, input models.QueryInput, loadingOut io.Writer, logger *zap.Logger) []models.ResultRecord {
	page := ui.NewPage()
	wasLoading := false
	page.OnChange(func(s ui.State) {
		if s.Loading && !wasLoading {
			fmt.Fprintln(loadingOut, ui.LoadingText)
		}
		wasLoading = s.Loading
	})

	orch := search.NewOrchestrator(cat, page.Setters(), search.WithLogger(utils.Named(logger, "search")))
	orch.Mount(ctx)
	warnUnknownFilter(logger, "century", input.Century, orch.CenturyList())
	warnUnknownFilter(logger, "classification", input.Classification, orch.ClassificationList())

	orch.SetCentury(input.Century)
	orch.SetClassification(input.Classification)
	orch.SetQueryString(input.QueryString)
	orch.Submit(ctx)
	return page.Snapshot().Results
}

func warnUnknownFilter(logger *zap.Logger, field, value string, items []models.ReferenceItem) {
	if !models.IsFiltered(value) || len(items) == 0 || search.FindReference(value, items) {
		return
	}
	fields := []zap.Field{zap.String("field", field), zap.String("value", value)}
	if name, ok := search.SuggestReference(value, items); ok {
		fields = append(fields, zap.String("did_you_mean", name))
	}
	logger.Warn("filter value is not in the reference list", fields...)
}

func newReferencesCmd(flags *globalFlags) *cobra.Command {
	var output string
	var refresh bool
	cmd := &cobra.Command{
		Use:   "references",
		Short: "List the century and classification reference lists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := cli.ParseOutputFormat(output)
			if err != nil {
				return err
			}
			cfg, _, logger, err := setup(flags)
			if err != nil {
				return err
			}
			defer logger.Sync()

			components, err := initializeComponents(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer components.Close()

			if refresh {
				if components.References == nil {
					return errors.New("--refresh needs the remote source with storage.disk_cache enabled")
				}
				if err := components.References.Refresh(cmd.Context()); err != nil {
					return err
				}
			}
			centuries, classifications, err := fetchReferences(cmd.Context(), components.Catalog)
			if err != nil {
				return err
			}
			return cli.WriteReferences(cmd.OutOrStdout(), centuries, classifications, format)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", string(cli.OutputText), "output format: text or json")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "drop the cached lists and fetch them again")
	return cmd
}

// fetchReferences loads both lists concurrently.
func fetchReferences(ctx context.Context, cat search.Catalog) (centuries, classifications []models.ReferenceItem, err error) {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		centuries, err = cat.FetchAllCenturies(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		classifications, err = cat.FetchAllClassifications(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return centuries, classifications, nil
}

func newImportCmd(flags *globalFlags) *cobra.Command {
	var indexPath string
	cmd := &cobra.Command{
		Use:   "import <collection.json>",
		Short: "Index a local collection file for offline search",
		Long: `Index a local collection file. The file holds {"records": [...]} with optional
"centuries" and "classifications" lists; missing lists are derived from the records.

Point catalog.source at "local" and catalog.collection_path at the file to
serve it with 'artcollector server'.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, logger, err := setup(flags)
			if err != nil {
				return err
			}
			defer logger.Sync()

			if indexPath == "" {
				indexPath = cfg.Catalog.IndexPath
			}
			if indexPath == "" {
				indexPath = filepath.Join(filepath.Dir(cfg.Storage.DatabasePath), "collection.bleve")
			}
			if err := os.MkdirAll(filepath.Dir(indexPath), 0755); err != nil {
				return fmt.Errorf("failed to create index directory: %w", err)
			}

			local := catalog.NewLocalCatalog(indexPath, catalog.WithLocalLogger(utils.Named(logger, "catalog")))
			defer local.Close()
			if err := local.Load(cmd.Context(), args[0]); err != nil {
				return err
			}
			centuries, classifications, err := fetchReferences(cmd.Context(), local)
			if err != nil {
				return err
			}
			n, _ := local.Count()
			fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d records (%d centuries, %d classifications) into %s\n",
				n, len(centuries), len(classifications), indexPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&indexPath, "index", "", "index directory (default: catalog.index_path or next to the database)")
	return cmd
}

func newStatusCmd(flags *globalFlags) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the configured source and the reference cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := cli.ParseOutputFormat(output)
			if err != nil {
				return err
			}
			cfg, _, logger, err := setup(flags)
			if err != nil {
				return err
			}
			defer logger.Sync()

			report, err := collectStatus(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			return cli.WriteStatus(cmd.OutOrStdout(), report, format)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", string(cli.OutputText), "output format: text or json")
	return cmd
}

func collectStatus(ctx context.Context, cfg *config.Config) (cli.Status, error) {
	report := cli.Status{
		Source:       cfg.Catalog.Source,
		DatabasePath: cfg.Storage.DatabasePath,
	}
	if cfg.Catalog.Source == config.SourceLocal {
		report.CollectionPath = cfg.Catalog.CollectionPath
	} else {
		report.BaseURL = cfg.API.BaseURL
	}

	if _, err := os.Stat(cfg.Storage.DatabasePath); err == nil {
		store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
		if err != nil {
			return report, err
		}
		defer store.Close()
		lists, err := store.Lists(ctx)
		if err != nil {
			return report, err
		}
		for _, l := range lists {
			report.CachedLists = append(report.CachedLists, cli.ListStatus{
				Kind: string(l.Kind), Items: l.Items, FetchedAt: l.FetchedAt,
			})
		}
	}

	bytes, err := storage.DiskUsageBytes(cfg.Storage.DatabasePath, cfg.Catalog.IndexPath)
	if err != nil {
		return report, err
	}
	report.DiskUsageBytes = bytes
	return report, nil
}
