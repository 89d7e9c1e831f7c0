package config

import (
	"time"

	"github.com/IshaanNene/folio/internal/rules"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Config is the root configuration shared by foliocrawl and folioclean.
type Config struct {
	Crawler   CrawlerConfig   `mapstructure:"crawler"   yaml:"crawler"`
	Fetcher   FetcherConfig   `mapstructure:"fetcher"   yaml:"fetcher"`
	Sanitizer SanitizerConfig `mapstructure:"sanitizer" yaml:"sanitizer"`
	Storage   StorageConfig   `mapstructure:"storage"   yaml:"storage"`
	Logging   LoggingConfig   `mapstructure:"logging"   yaml:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"   yaml:"metrics"`
}

// CrawlerConfig describes the series to walk.
type CrawlerConfig struct {
	StartURL        string              `mapstructure:"start_url"        yaml:"start_url"`
	ContentSelector string              `mapstructure:"content_selector" yaml:"content_selector"`
	NextSelector    string              `mapstructure:"next_selector"    yaml:"next_selector"`
	TitleSelector   string              `mapstructure:"title_selector"   yaml:"title_selector"`
	PolitenessDelay time.Duration       `mapstructure:"politeness_delay" yaml:"politeness_delay"`
	RemovalSpecs    []rules.RemovalSpec `mapstructure:"removal_specs"    yaml:"removal_specs"`
	RulesetPath     string              `mapstructure:"ruleset"          yaml:"ruleset"`
	MaxPages        int                 `mapstructure:"max_pages"        yaml:"max_pages"`
}

// FetcherConfig controls the page fetcher.
type FetcherConfig struct {
	Type            string        `mapstructure:"type"             yaml:"type"`
	UserAgent       string        `mapstructure:"user_agent"       yaml:"user_agent"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"  yaml:"request_timeout"`
	FollowRedirects bool          `mapstructure:"follow_redirects" yaml:"follow_redirects"`
	MaxRedirects    int           `mapstructure:"max_redirects"    yaml:"max_redirects"`
	MaxBodySize     int64         `mapstructure:"max_body_size"    yaml:"max_body_size"`
	Stealth         bool          `mapstructure:"stealth"          yaml:"stealth"`
}

// SanitizerConfig controls folioclean output.
type SanitizerConfig struct {
	RulesetPath string `mapstructure:"ruleset" yaml:"ruleset"`
	Format      string `mapstructure:"format"  yaml:"format"`
	Pretty      bool   `mapstructure:"pretty"  yaml:"pretty"`
	Policy      string `mapstructure:"policy"  yaml:"policy"`
}

// StorageConfig controls where crawled pages go.
type StorageConfig struct {
	OutputPath      string `mapstructure:"output_path"      yaml:"output_path"`
	Manifest        bool   `mapstructure:"manifest"         yaml:"manifest"`
	SQLitePath      string `mapstructure:"sqlite_path"      yaml:"sqlite_path"`
	MongoURI        string `mapstructure:"mongo_uri"        yaml:"mongo_uri"`
	MongoDatabase   string `mapstructure:"mongo_database"   yaml:"mongo_database"`
	MongoCollection string `mapstructure:"mongo_collection" yaml:"mongo_collection"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// MetricsConfig controls the Prometheus text endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Port    int    `mapstructure:"port"    yaml:"port"`
	Path    string `mapstructure:"path"    yaml:"path"`
}

// DefaultConfig returns the compiled-in configuration.
func DefaultConfig() *Config {
	return &Config{
		Crawler: CrawlerConfig{
			StartURL:        "https://offqc1.rssing.com/chan-7703398/article1.html",
			ContentSelector: "div.cs-single-post-content > div",
			NextSelector:    `a[title="Next Article"]`,
			TitleSelector:   "title",
			PolitenessDelay: 1 * time.Second,
			RemovalSpecs:    rules.DefaultRemovalSpecs(),
		},
		Fetcher: FetcherConfig{
			Type:            "http",
			RequestTimeout:  30 * time.Second,
			FollowRedirects: true,
			MaxRedirects:    10,
			MaxBodySize:     10 * 1024 * 1024, // 10MB
		},
		Sanitizer: SanitizerConfig{
			Format: "html",
			Policy: "none",
		},
		Storage: StorageConfig{
			OutputPath:      "output",
			MongoDatabase:   "folio",
			MongoCollection: "pages",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
			Path:    "/metrics",
		},
	}
}
