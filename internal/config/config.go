// Package config loads the planner configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/napolitain/upgrade-planner/internal/api"
	"github.com/napolitain/upgrade-planner/internal/cost"
	"github.com/napolitain/upgrade-planner/internal/efficiency"
	"github.com/napolitain/upgrade-planner/internal/models"
)

// MaxSyndicateLevel is the highest syndicate level in the game
const MaxSyndicateLevel = 65

type API struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
	Rate    float64       `yaml:"rate"`
	Burst   int           `yaml:"burst"`
}

// Config is the planner configuration. DataDir takes precedence over the API.
type Config struct {
	DataDir        string                      `yaml:"data_dir"`
	API            API                         `yaml:"api"`
	CacheTTL       time.Duration               `yaml:"cache_ttl"`
	Systems        []string                    `yaml:"systems"`
	Buckets        efficiency.BucketRules      `yaml:"buckets"`
	AuctionScores  map[models.ResourceID]int64 `yaml:"auction_scores"`
	OpsLevel       int                         `yaml:"ops_level"`
	SyndicateLevel int                         `yaml:"syndicate_level"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		API: API{
			BaseURL: api.DefaultBaseURL,
			Timeout: 10 * time.Second,
			Rate:    10,
			Burst:   10,
		},
		Systems:       efficiency.DefaultSystems(),
		Buckets:       efficiency.DefaultBucketRules(),
		AuctionScores: cost.DefaultAuctionScores(),
	}
}

// Load reads a YAML file over the defaults and validates the result
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.DataDir == "" && c.API.BaseURL == "" {
		errs = append(errs, errors.New("config: either data_dir or api.base_url is required"))
	}
	if c.API.Timeout < 0 {
		errs = append(errs, fmt.Errorf("config: api.timeout must not be negative, got %s", c.API.Timeout))
	}
	if c.API.Rate < 0 || c.API.Burst < 0 {
		errs = append(errs, errors.New("config: api.rate and api.burst must not be negative"))
	}
	if c.CacheTTL < 0 {
		errs = append(errs, fmt.Errorf("config: cache_ttl must not be negative, got %s", c.CacheTTL))
	}
	if len(c.Systems) == 0 {
		errs = append(errs, errors.New("config: at least one buff system is required"))
	}
	for _, rule := range c.Buckets.Prefixes {
		if rule.System == "" || rule.Prefix == "" || rule.Bucket == "" {
			errs = append(errs, fmt.Errorf("config: incomplete bucket prefix rule %+v", rule))
		}
	}
	if c.OpsLevel < 0 || c.OpsLevel > efficiency.MaxOpsLevel {
		errs = append(errs, fmt.Errorf("config: ops_level must be within 0..%d, got %d", efficiency.MaxOpsLevel, c.OpsLevel))
	}
	if c.SyndicateLevel < 0 || c.SyndicateLevel > MaxSyndicateLevel {
		errs = append(errs, fmt.Errorf("config: syndicate_level must be within 0..%d, got %d", MaxSyndicateLevel, c.SyndicateLevel))
	}
	return errors.Join(errs...)
}

// Client returns the API client described by the configuration
func (c *Config) Client() *api.Client {
	return api.New(c.API.BaseURL,
		api.WithHTTPClient(&http.Client{Timeout: c.API.Timeout}),
		api.WithRateLimit(c.API.Rate, c.API.Burst),
	)
}
