// Package cfg loads the optional TOML configuration file.
package cfg

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pelletier/go-toml"

	"github.com/salesforce/dockerfile-image-update-sub000/internal/ratelimit"
	"github.com/salesforce/dockerfile-image-update-sub000/internal/retry"
)

// TokenEnvVar is the environment variable that is read when the config
// does not contain a GitHub API token.
const TokenEnvVar = "GITHUB_TOKEN"

type Config struct {
	GithubAPIToken string      `toml:"github_api_token"`
	GithubAPIURL   string      `toml:"github_api_url"`
	LogFormat      string      `toml:"log_format"`
	LogLevel       string      `toml:"log_level"`
	LogTimeKey     string      `toml:"log_time_key"`
	Store          string      `toml:"store"`
	Workers        int         `toml:"workers"`
	MetricsFile    string      `toml:"metrics_file"`
	RateLimit      RateLimit   `toml:"rate_limit"`
	Retry          Retry       `toml:"retry"`
	PullRequest    PullRequest `toml:"pull_request"`
}

type RateLimit struct {
	Enabled bool `toml:"enabled"`
	// PRCreations is the maximum number of pull request creations per
	// period, in the format "<count>-per-<duration>", e.g. "30-per-1h".
	PRCreations     string `toml:"pr_creations"`
	TokenAddingRate string `toml:"token_adding_rate"`
}

type Retry struct {
	Attempts uint   `toml:"attempts"`
	Delay    string `toml:"delay"`
	// PRDelay is the delay between pull request creation attempts.
	PRDelay string `toml:"pr_delay"`
}

type PullRequest struct {
	Title         string `toml:"title"`
	Body          string `toml:"body"`
	CommitMessage string `toml:"commit_message"`
}

// Default returns the configuration that is used when no configuration
// file exists.
func Default() *Config {
	return &Config{
		LogFormat:  "logfmt",
		LogLevel:   "info",
		LogTimeKey: "time_iso8601",
		Workers:    4,
		RateLimit: RateLimit{
			Enabled:         true,
			PRCreations:     fmt.Sprintf("%d-per-%s", ratelimit.DefLimit, ratelimit.DefPeriod),
			TokenAddingRate: ratelimit.DefTokenAddingRate.String(),
		},
		Retry: Retry{
			Attempts: retry.DefAttempts,
			Delay:    retry.DefDelay.String(),
			PRDelay:  (30 * time.Second).String(),
		},
	}
}

// Load reads a TOML configuration from reader. Settings that are not
// defined in it have their default value.
func Load(reader io.Reader) (*Config, error) {
	result := Default()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}

	if err := toml.Unmarshal(data, result); err != nil {
		return nil, err
	}

	result.applyEnv()

	return result, nil
}

// LoadFile loads the configuration file at path. If path is empty, the
// default configuration is returned.
func LoadFile(path string) (*Config, error) {
	if path == "" {
		result := Default()
		result.applyEnv()
		return result, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Load(f)
}

func (r *Config) applyEnv() {
	if r.GithubAPIToken == "" {
		r.GithubAPIToken = os.Getenv(TokenEnvVar)
	}
}

func (r *Config) Marshal(writer io.Writer) error {
	return toml.NewEncoder(writer).Encode(r)
}

// RateLimiter returns the configured limiter for pull request creations.
// If rate limiting is disabled nil is returned.
func (r *Config) RateLimiter() (*ratelimit.RateLimiter, error) {
	if !r.RateLimit.Enabled {
		return nil, nil
	}

	limit, period, err := ratelimit.Parse(r.RateLimit.PRCreations)
	if err != nil {
		return nil, fmt.Errorf("rate_limit.pr_creations: %w", err)
	}

	addingRate, err := time.ParseDuration(r.RateLimit.TokenAddingRate)
	if err != nil {
		return nil, fmt.Errorf("rate_limit.token_adding_rate: %w", err)
	}

	return ratelimit.New(limit, period, addingRate)
}

// Retryers returns the retryer for content operations and the retryer for
// pull request creations.
func (r *Config) Retryers() (contentRetryer, prRetryer *retry.Retryer, err error) {
	delay, err := time.ParseDuration(r.Retry.Delay)
	if err != nil {
		return nil, nil, fmt.Errorf("retry.delay: %w", err)
	}

	prDelay, err := time.ParseDuration(r.Retry.PRDelay)
	if err != nil {
		return nil, nil, fmt.Errorf("retry.pr_delay: %w", err)
	}

	return retry.New(r.Retry.Attempts, delay), retry.New(r.Retry.Attempts, prDelay), nil
}

// RetryDelay returns the parsed retry.delay setting.
func (r *Config) RetryDelay() (time.Duration, error) {
	return time.ParseDuration(r.Retry.Delay)
}
