// Package config resolves the command line, environment, and settings file
// into one runnable harvest configuration. Precedence is flags first, then
// environment variables, then the settings file, then built-in defaults.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"

	"github.com/FranksOps/auger/internal/fingerprint"
	"github.com/FranksOps/auger/internal/infer"
)

// Config holds a fully resolved run configuration.
type Config struct {
	APIKey       string
	CSEID        string
	Organization string

	EmailFormat string
	EmailPolicy string

	OutputPath  string
	MetricsPath string
	Store       string
	StoreDSN    string

	RolesPreset string
	RolesFile   string
	RoleTerms   []string

	APIURL            string
	RequestsPerSecond float64
	Jitter            float64
	ThrottleBackoff   time.Duration
	MaxPages          int
	Timeout           time.Duration
	Fingerprint       string
	Proxy             string
	ProxyFile         string
	UAFile            string
	FlushInterval     time.Duration

	MetricsPort int
	LogLevel    string
	LogFormat   string

	SettingsPath string
}

// Load parses args, folds in the environment and the settings file, resolves
// the role term list, and validates the result. The returned error is
// flag.ErrHelp when help was requested.
func Load(args []string) (*Config, error) {
	cfg := &Config{}

	fs := flag.NewFlagSet("auger", flag.ContinueOnError)
	fs.StringVar(&cfg.APIKey, "api-key", envOr("AUGER_API_KEY", ""), "Google API key (env: AUGER_API_KEY)")
	fs.StringVar(&cfg.CSEID, "cse-id", envOr("AUGER_CSE_ID", ""), "custom search engine ID (env: AUGER_CSE_ID)")
	fs.StringVar(&cfg.Organization, "org", "", "target organization name, searched as an exact phrase")
	fs.StringVar(&cfg.EmailFormat, "email-format", "", "email pattern with {first}, {last}, {f}, {l} placeholders, e.g. {f}{last}@example.com")
	fs.StringVar(&cfg.EmailPolicy, "email-policy", string(infer.PolicyMulti), "surname choice for names with three or more words: single or multi")
	fs.StringVar(&cfg.OutputPath, "output", "employees.json", "result path for the json and csv stores")
	fs.StringVar(&cfg.MetricsPath, "metrics", "metrics.json", "run metrics output path")
	fs.StringVar(&cfg.Store, "store", envOr("AUGER_STORE", ""), "storage backend: json, csv, sqlite, or postgres (env: AUGER_STORE) (default json)")
	fs.StringVar(&cfg.StoreDSN, "store-dsn", envOr("AUGER_STORE_DSN", ""), "DSN for the sqlite and postgres backends (env: AUGER_STORE_DSN)")
	fs.StringVar(&cfg.RolesPreset, "roles-preset", "", "built-in role term list: us or es (default us)")
	fs.StringVar(&cfg.RolesFile, "roles-file", "", "YAML file with a custom roles list, overrides the preset")
	fs.StringVar(&cfg.SettingsPath, "settings", "", "settings file (default ./settings.yaml when present)")
	fs.StringVar(&cfg.APIURL, "api-url", "", "override the search API endpoint")
	fs.Float64Var(&cfg.RequestsPerSecond, "rps", 1.0, "search request rate limit")
	fs.Float64Var(&cfg.Jitter, "jitter", 0, "rate limiter jitter fraction, 0.0 to 1.0")
	fs.DurationVar(&cfg.ThrottleBackoff, "throttle-backoff", 10*time.Second, "pause after a throttled API response")
	fs.IntVar(&cfg.MaxPages, "max-pages", 10, "maximum result pages per query")
	fs.DurationVar(&cfg.Timeout, "timeout", 30*time.Second, "per-request timeout")
	fs.StringVar(&cfg.Fingerprint, "fingerprint", string(fingerprint.ProfileGo), "TLS fingerprint profile: chrome, firefox, safari, go, or random")
	fs.StringVar(&cfg.Proxy, "proxy", envOr("AUGER_PROXY", ""), "proxy URL for outbound requests (env: AUGER_PROXY)")
	fs.StringVar(&cfg.ProxyFile, "proxy-file", "", "file with one proxy URL per line")
	fs.StringVar(&cfg.UAFile, "ua-file", "", "file with one user agent per line")
	fs.DurationVar(&cfg.FlushInterval, "flush-interval", 30*time.Second, "how often buffered results are persisted mid-run")
	fs.IntVar(&cfg.MetricsPort, "metrics-port", 0, "Prometheus metrics port, 0 disables the endpoint")
	fs.StringVar(&cfg.LogLevel, "log-level", envOr("AUGER_LOG_LEVEL", "info"), "log level: debug, info, warn, or error (env: AUGER_LOG_LEVEL)")
	fs.StringVar(&cfg.LogFormat, "log-format", envOr("AUGER_LOG_FORMAT", "text"), "log format: text or json (env: AUGER_LOG_FORMAT)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if err := cfg.loadSettings(); err != nil {
		return nil, err
	}

	// Defaults for fields the settings file may supply.
	if cfg.Store == "" {
		cfg.Store = "json"
	}
	if cfg.RolesPreset == "" {
		cfg.RolesPreset = "us"
	}

	if cfg.RolesFile != "" {
		terms, err := loadRolesFile(cfg.RolesFile)
		if err != nil {
			return nil, err
		}
		cfg.RoleTerms = terms
	} else {
		terms, err := Preset(cfg.RolesPreset)
		if err != nil {
			return nil, err
		}
		cfg.RoleTerms = terms
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadSettings fills still-empty fields from the settings file. An explicit
// -settings path must exist; the default ./settings.yaml is optional.
func (c *Config) loadSettings() error {
	v := viper.New()
	if c.SettingsPath != "" {
		v.SetConfigFile(c.SettingsPath)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("settings")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		if c.SettingsPath == "" {
			var notFound viper.ConfigFileNotFoundError
			if errors.As(err, &notFound) {
				return nil
			}
		}
		return fmt.Errorf("read settings file: %w", err)
	}

	if c.APIKey == "" {
		c.APIKey = v.GetString("api_key")
	}
	if c.CSEID == "" {
		c.CSEID = v.GetString("cse_id")
	}
	if c.EmailFormat == "" {
		c.EmailFormat = v.GetString("email_format")
	}
	if c.Store == "" {
		c.Store = v.GetString("store")
	}
	if c.StoreDSN == "" {
		c.StoreDSN = v.GetString("store_dsn")
	}
	if c.RolesPreset == "" {
		c.RolesPreset = v.GetString("roles_preset")
	}
	return nil
}

// loadRolesFile reads a custom role term list from a YAML file with a
// top-level "roles" sequence. The bare organization query always runs first,
// so an empty leading term is added when the file does not start with one.
func loadRolesFile(path string) ([]string, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read roles file: %w", err)
	}

	terms := v.GetStringSlice("roles")
	if len(terms) == 0 {
		return nil, fmt.Errorf("roles file %s has no roles list", path)
	}
	if terms[0] != "" {
		terms = append([]string{""}, terms...)
	}
	return terms, nil
}

// Validate checks the resolved configuration for missing or inconsistent
// values.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return errors.New("api key is required (-api-key, AUGER_API_KEY, or api_key in the settings file)")
	}
	if c.CSEID == "" {
		return errors.New("search engine id is required (-cse-id, AUGER_CSE_ID, or cse_id in the settings file)")
	}
	if c.Organization == "" {
		return errors.New("target organization is required (-org)")
	}
	if !infer.Policy(c.EmailPolicy).Valid() {
		return fmt.Errorf("unknown email policy %q (single or multi)", c.EmailPolicy)
	}

	switch c.Store {
	case "json", "csv":
	case "sqlite", "postgres":
		if c.StoreDSN == "" {
			return fmt.Errorf("store %q requires -store-dsn", c.Store)
		}
	default:
		return fmt.Errorf("unknown store %q (json, csv, sqlite, or postgres)", c.Store)
	}

	if _, err := fingerprint.Parse(c.Fingerprint); err != nil {
		return err
	}
	if c.RequestsPerSecond <= 0 {
		return errors.New("rps must be positive")
	}
	if c.Jitter < 0 || c.Jitter > 1 {
		return errors.New("jitter must be between 0.0 and 1.0")
	}
	if c.MaxPages <= 0 {
		return errors.New("max-pages must be positive")
	}
	if c.MetricsPort < 0 || c.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics port %d", c.MetricsPort)
	}
	return nil
}

// envOr returns the value of the environment variable key, or fallback when
// it is unset or empty.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
