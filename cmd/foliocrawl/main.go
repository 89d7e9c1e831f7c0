package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/folio/internal/config"
	"github.com/IshaanNene/folio/internal/crawler"
	"github.com/IshaanNene/folio/internal/fetcher"
	"github.com/IshaanNene/folio/internal/observability"
	"github.com/IshaanNene/folio/internal/rules"
	"github.com/IshaanNene/folio/internal/storage"
	"github.com/IshaanNene/folio/internal/types"
)

var (
	cfgFile     string
	verbose     bool
	startURL    string
	outputPath  string
	delay       string
	maxPages    int
	rulesPath   string
	fetcherType string
	manifest    bool
	sqlitePath  string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "foliocrawl",
		Short: "Download every page of a paginated article series",
		Long: `foliocrawl starts at the first page of a series, extracts the content
region and title, follows the "next" link and writes one standalone HTML
document per page, named after the number in the page title.

Every flag is optional; the compiled-in defaults reproduce the original
crawl target.`,
		Version:       config.Version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runCrawl,
	}

	rootCmd.Flags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.Flags().StringVarP(&startURL, "start-url", "u", "", "first page of the series")
	rootCmd.Flags().StringVarP(&outputPath, "output", "o", "", "output directory")
	rootCmd.Flags().StringVar(&delay, "delay", "", "politeness delay between pages (e.g. 1s)")
	rootCmd.Flags().IntVarP(&maxPages, "max-pages", "m", 0, "stop after this many pages (0 = unlimited)")
	rootCmd.Flags().StringVarP(&rulesPath, "rules", "r", "", "rule set YAML file applied to every page")
	rootCmd.Flags().StringVar(&fetcherType, "fetcher", "", "fetcher: http, browser")
	rootCmd.Flags().BoolVar(&manifest, "manifest", false, "also write "+storage.ManifestName)
	rootCmd.Flags().StringVar(&sqlitePath, "sqlite", "", "also store pages in this SQLite database")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// runCrawl executes the crawl.
func runCrawl(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := applyCLIOverrides(cfg); err != nil {
		return err
	}

	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := config.NewLogger(cfg.Logging, verbose, os.Stderr)

	var rs *rules.RuleSet
	if cfg.Crawler.RulesetPath != "" {
		rs, err = rules.Load(cfg.Crawler.RulesetPath)
		if err != nil {
			return err
		}
		logger.Info("rule set loaded", "path", cfg.Crawler.RulesetPath, "name", rs.Name)
	}

	stats := observability.NewStats(logger)
	if cfg.Metrics.Enabled {
		if err := stats.StartServer(cfg.Metrics.Port, cfg.Metrics.Path); err != nil {
			logger.Warn("failed to start metrics server", "error", err)
		}
	}

	f, err := fetcher.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("create fetcher: %w", err)
	}
	defer f.Close()

	sink, err := storage.New(&cfg.Storage, logger)
	if err != nil {
		return fmt.Errorf("create storage: %w", err)
	}
	defer func() {
		if err := sink.Close(); err != nil {
			logger.Error("storage close failed", "error", err)
		}
	}()

	pipe := crawler.NewPipeline(&cfg.Crawler, rs, stats, logger)
	c, err := crawler.New(&cfg.Crawler, f, pipe, sink, stats, logger)
	if err != nil {
		return err
	}

	// Handle graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	summary, err := c.Run(ctx, cfg.Crawler.StartURL)
	printSummary(summary, stats, cfg)
	if errors.Is(err, types.ErrCrawlStopped) {
		logger.Info("crawl stopped by signal")
		return nil
	}
	return err
}

func printSummary(summary crawler.Summary, stats *observability.Stats, cfg *config.Config) {
	snap := stats.Snapshot()
	fmt.Printf("\nCrawl finished in %s\n", summary.Duration.Round(time.Millisecond))
	fmt.Printf("   Pages:     %d saved", summary.Pages)
	if summary.Pages > 0 {
		fmt.Printf(" (%s … %s)", summary.FirstID, summary.LastID)
	}
	fmt.Println()
	fmt.Printf("   Fetches:   %v ok, %v failed\n", snap["pages_fetched"], snap["fetch_errors"])
	fmt.Printf("   Data:      %v bytes downloaded\n", snap["bytes_downloaded"])
	fmt.Printf("   Output:    %s\n", cfg.Storage.OutputPath)
	if summary.LastURL != "" {
		fmt.Printf("   Last URL:  %s\n", summary.LastURL)
	}
}

// applyCLIOverrides applies command-line flag values to the config.
func applyCLIOverrides(cfg *config.Config) error {
	if startURL != "" {
		cfg.Crawler.StartURL = startURL
	}
	if outputPath != "" {
		cfg.Storage.OutputPath = outputPath
	}
	if delay != "" {
		d, err := time.ParseDuration(delay)
		if err != nil {
			return fmt.Errorf("invalid --delay %q: %w", delay, err)
		}
		cfg.Crawler.PolitenessDelay = d
	}
	if maxPages > 0 {
		cfg.Crawler.MaxPages = maxPages
	}
	if rulesPath != "" {
		cfg.Crawler.RulesetPath = rulesPath
	}
	if fetcherType != "" {
		cfg.Fetcher.Type = fetcherType
	}
	if manifest {
		cfg.Storage.Manifest = true
	}
	if sqlitePath != "" {
		cfg.Storage.SQLitePath = sqlitePath
	}
	return nil
}
