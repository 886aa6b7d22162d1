// Package config loads the sharescan HCL configuration file.
package config

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/hclsimple"
)

// Config is the top-level configuration. Zero values mean "use the default";
// command-line flags override anything set here.
type Config struct {
	// Credentials is the path to a service-account key file.
	Credentials string `hcl:"credentials,optional"`
	// Subject is the user to impersonate via domain-wide delegation.
	Subject string `hcl:"subject,optional"`
	// Application names this installation in remote-side audit logs.
	Application string `hcl:"application,optional"`

	Crawl   *CrawlConfig   `hcl:"crawl,block"`
	Analyze *AnalyzeConfig `hcl:"analyze,block"`
}

type CrawlConfig struct {
	// Concurrency caps concurrent branch expansions.
	Concurrency int `hcl:"concurrency,optional"`
	// PageSize caps items per listing page (remote maximum 1000).
	PageSize int `hcl:"page_size,optional"`
	// RetrySeconds bounds the total time spent retrying one transient
	// failure. Zero keeps the backoff default.
	RetrySeconds int `hcl:"retry_seconds,optional"`
}

type AnalyzeConfig struct {
	// Concurrency caps concurrent node evaluations.
	Concurrency int `hcl:"concurrency,optional"`
	// Separator joins path segments in the output stream.
	Separator string `hcl:"separator,optional"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Application: "sharescan",
		Crawl:       &CrawlConfig{Concurrency: 1500, PageSize: 1000},
		Analyze:     &AnalyzeConfig{Concurrency: 1000, Separator: "/"},
	}
}

// Load reads path and fills unset values with defaults. A missing file is an
// error; callers decide whether a config file is required at all.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file: %w", err)
	}
	var cfg Config
	if err := hclsimple.DecodeFile(path, nil, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	def := Default()
	if c.Application == "" {
		c.Application = def.Application
	}
	if c.Crawl == nil {
		c.Crawl = def.Crawl
	} else {
		if c.Crawl.Concurrency <= 0 {
			c.Crawl.Concurrency = def.Crawl.Concurrency
		}
		if c.Crawl.PageSize <= 0 {
			c.Crawl.PageSize = def.Crawl.PageSize
		}
	}
	if c.Analyze == nil {
		c.Analyze = def.Analyze
	} else {
		if c.Analyze.Concurrency <= 0 {
			c.Analyze.Concurrency = def.Analyze.Concurrency
		}
		if c.Analyze.Separator == "" {
			c.Analyze.Separator = def.Analyze.Separator
		}
	}
}
