package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"thermite-middleware/lib/configutil"
	"thermite-middleware/lib/restyutil"
	"thermite-middleware/lib/retry"
)

type TirecoConfig struct {
	BaseUrl string `json:"base_url"`
	ApiKey  string `json:"api_key"`
}

type WtdConfig struct {
	BaseUrl string `json:"base_url"`
	// "basic" or "bearer"
	AuthType string `json:"auth_type"`
	Username string `json:"username"`
	// the bearer token when auth_type is "bearer"
	Password string `json:"password"`
}

type WtwdConfig struct {
	BaseUrl           string  `json:"base_url"`
	Username          string  `json:"username"`
	Password          string  `json:"password"`
	RequestsPerSecond float64 `json:"requests_per_second"`
}

type ShopifyConfig struct {
	ApiKey   string `json:"api_key"`
	Password string `json:"password"`
	StoreUrl string `json:"store_url"`
}

type RetryConfig struct {
	Attempts       int     `json:"attempts"`
	BackoffSeconds float64 `json:"backoff_seconds"`
}

type Config struct {
	Tireco  TirecoConfig  `json:"tireco"`
	Wtd     WtdConfig     `json:"wtd"`
	Wtwd    WtwdConfig    `json:"wtwd"`
	Shopify ShopifyConfig `json:"shopify"`
	Retry   RetryConfig   `json:"retry"`
}

// envConfig reads the variables that override the config file, unset
// variables leave the file's values alone.
func envConfig(getenv func(string) string) Config {
	cfg := Config{
		Tireco: TirecoConfig{
			BaseUrl: getenv("TIRECO_BASE_URL"),
			ApiKey:  getenv("TIRECO_API_KEY"),
		},
		Wtd: WtdConfig{
			BaseUrl:  getenv("WTD_BASE_URL"),
			AuthType: getenv("WTD_AUTH_TYPE"),
			Username: getenv("WTD_USERNAME"),
			Password: getenv("WTD_PASSWORD"),
		},
		Wtwd: WtwdConfig{
			BaseUrl:  getenv("WTWD_BASE_URL"),
			Username: getenv("WTWD_USERNAME"),
			Password: getenv("WTWD_PASSWORD"),
		},
		Shopify: ShopifyConfig{
			ApiKey:   getenv("SHOPIFY_API_KEY"),
			Password: getenv("SHOPIFY_PASSWORD"),
			StoreUrl: getenv("SHOPIFY_STORE_URL"),
		},
	}
	if attempts, err := strconv.Atoi(getenv("RETRY_ATTEMPTS")); err == nil {
		cfg.Retry.Attempts = attempts
	}
	if backoff, err := strconv.ParseFloat(getenv("RETRY_BACKOFF_SECONDS"), 64); err == nil {
		cfg.Retry.BackoffSeconds = backoff
	}
	return cfg
}

// loadConfig merges, from least to most prioritized: the config file, its
// .local variant, then the environment (after loading .env).
func loadConfig(path string) (Config, error) {
	cfg, err := configutil.ReadConfig[Config](path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("read %s: %w", path, err)
	}

	err = configutil.LoadEnv(".env")
	if err != nil {
		return Config{}, err
	}
	return configutil.Overlay(cfg, envConfig(os.Getenv))
}

func (c Config) policy() retry.Policy {
	policy := retry.Default
	if c.Retry.Attempts > 0 {
		policy.Attempts = c.Retry.Attempts
	}
	if c.Retry.BackoffSeconds > 0 {
		policy.Base = time.Duration(c.Retry.BackoffSeconds * float64(time.Second))
	}
	return policy
}

// dumpOutput is where a client's http transcripts go, nil when no dump
// directory was given.
func dumpOutput(dir, prefix string) (restyutil.InstrumentOutput, error) {
	if dir == "" {
		return nil, nil
	}
	out, err := restyutil.NewFilesystemOutput(dir, prefix)
	if err != nil {
		return nil, err
	}
	return out, nil
}
