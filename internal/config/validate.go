package config

import (
	"fmt"
	"net/url"

	"github.com/IshaanNene/folio/internal/parser"
)

// Validate checks the configuration for invalid values.
func Validate(cfg *Config) error {
	if err := ValidateURL(cfg.Crawler.StartURL); err != nil {
		return fmt.Errorf("crawler.start_url: %w", err)
	}
	for key, expr := range map[string]string{
		"crawler.content_selector": cfg.Crawler.ContentSelector,
		"crawler.next_selector":    cfg.Crawler.NextSelector,
	} {
		if expr == "" {
			return fmt.Errorf("%s must be set", key)
		}
		if _, err := parser.Compile(expr); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}
	if cfg.Crawler.TitleSelector != "" {
		if _, err := parser.Compile(cfg.Crawler.TitleSelector); err != nil {
			return fmt.Errorf("crawler.title_selector: %w", err)
		}
	}
	for i, spec := range cfg.Crawler.RemovalSpecs {
		if spec.Selector == "" {
			return fmt.Errorf("crawler.removal_specs[%d].selector must be set", i)
		}
		if _, err := parser.Compile(spec.Selector); err != nil {
			return fmt.Errorf("crawler.removal_specs[%d]: %w", i, err)
		}
		if spec.Contains != "" && spec.Attribute == "" {
			return fmt.Errorf("crawler.removal_specs[%d]: contains needs an attribute", i)
		}
	}
	if cfg.Crawler.PolitenessDelay < 0 {
		return fmt.Errorf("crawler.politeness_delay must be >= 0")
	}
	if cfg.Crawler.MaxPages < 0 {
		return fmt.Errorf("crawler.max_pages must be >= 0, got %d", cfg.Crawler.MaxPages)
	}

	if cfg.Fetcher.Type != "http" && cfg.Fetcher.Type != "browser" {
		return fmt.Errorf("fetcher.type must be 'http' or 'browser', got %q", cfg.Fetcher.Type)
	}
	if cfg.Fetcher.RequestTimeout <= 0 {
		return fmt.Errorf("fetcher.request_timeout must be > 0")
	}
	if cfg.Fetcher.MaxBodySize <= 0 {
		return fmt.Errorf("fetcher.max_body_size must be > 0")
	}
	if cfg.Fetcher.MaxRedirects < 0 {
		return fmt.Errorf("fetcher.max_redirects must be >= 0")
	}

	if err := ValidateSanitizer(&cfg.Sanitizer); err != nil {
		return err
	}

	if cfg.Storage.OutputPath == "" {
		return fmt.Errorf("storage.output_path must be set")
	}
	if cfg.Storage.MongoURI != "" && (cfg.Storage.MongoDatabase == "" || cfg.Storage.MongoCollection == "") {
		return fmt.Errorf("storage.mongo_database and storage.mongo_collection are required with storage.mongo_uri")
	}

	return ValidateAmbient(cfg)
}

// ValidateSanitizer checks only the sections folioclean depends on.
func ValidateSanitizer(cfg *SanitizerConfig) error {
	if cfg.Format != "html" && cfg.Format != "markdown" {
		return fmt.Errorf("sanitizer.format must be 'html' or 'markdown', got %q", cfg.Format)
	}
	validPolicies := map[string]bool{"none": true, "ugc": true, "strict": true}
	if !validPolicies[cfg.Policy] {
		return fmt.Errorf("sanitizer.policy must be none/ugc/strict, got %q", cfg.Policy)
	}
	return nil
}

// ValidateAmbient checks logging and metrics settings.
func ValidateAmbient(cfg *Config) error {
	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be debug/info/warn/error, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be 'text' or 'json', got %q", cfg.Logging.Format)
	}

	if cfg.Metrics.Enabled {
		if cfg.Metrics.Port < 1 || cfg.Metrics.Port > 65535 {
			return fmt.Errorf("metrics.port must be 1-65535, got %d", cfg.Metrics.Port)
		}
	}
	return nil
}

// ValidateURL checks if a URL string is valid for crawling.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	return nil
}
