package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration from file, environment, and defaults.
// Priority (highest to lowest): env vars > config file > defaults. CLI flags
// are applied by the caller afterwards.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	setDefaults(v, cfg)

	v.SetEnvPrefix("FOLIO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("folio")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".folio"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || configPath != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// A configured list replaces the compiled-in specs instead of merging
	// into them element by element.
	if v.IsSet("crawler.removal_specs") {
		cfg.Crawler.RemovalSpecs = nil
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// setDefaults registers default values in viper so that env overrides work
// for keys absent from the config file.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("crawler.start_url", cfg.Crawler.StartURL)
	v.SetDefault("crawler.content_selector", cfg.Crawler.ContentSelector)
	v.SetDefault("crawler.next_selector", cfg.Crawler.NextSelector)
	v.SetDefault("crawler.title_selector", cfg.Crawler.TitleSelector)
	v.SetDefault("crawler.politeness_delay", cfg.Crawler.PolitenessDelay)
	v.SetDefault("crawler.ruleset", cfg.Crawler.RulesetPath)
	v.SetDefault("crawler.max_pages", cfg.Crawler.MaxPages)

	v.SetDefault("fetcher.type", cfg.Fetcher.Type)
	v.SetDefault("fetcher.user_agent", cfg.Fetcher.UserAgent)
	v.SetDefault("fetcher.request_timeout", cfg.Fetcher.RequestTimeout)
	v.SetDefault("fetcher.follow_redirects", cfg.Fetcher.FollowRedirects)
	v.SetDefault("fetcher.max_redirects", cfg.Fetcher.MaxRedirects)
	v.SetDefault("fetcher.max_body_size", cfg.Fetcher.MaxBodySize)
	v.SetDefault("fetcher.stealth", cfg.Fetcher.Stealth)

	v.SetDefault("sanitizer.ruleset", cfg.Sanitizer.RulesetPath)
	v.SetDefault("sanitizer.format", cfg.Sanitizer.Format)
	v.SetDefault("sanitizer.pretty", cfg.Sanitizer.Pretty)
	v.SetDefault("sanitizer.policy", cfg.Sanitizer.Policy)

	v.SetDefault("storage.output_path", cfg.Storage.OutputPath)
	v.SetDefault("storage.manifest", cfg.Storage.Manifest)
	v.SetDefault("storage.sqlite_path", cfg.Storage.SQLitePath)
	v.SetDefault("storage.mongo_uri", cfg.Storage.MongoURI)
	v.SetDefault("storage.mongo_database", cfg.Storage.MongoDatabase)
	v.SetDefault("storage.mongo_collection", cfg.Storage.MongoCollection)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)

	v.SetDefault("metrics.enabled", cfg.Metrics.Enabled)
	v.SetDefault("metrics.port", cfg.Metrics.Port)
	v.SetDefault("metrics.path", cfg.Metrics.Path)
}
