package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the application configuration, loaded once per run and threaded
// explicitly through every component.
type Config struct {
	Providers ProvidersConfig    `yaml:"providers"`
	Scanner   ScannerConfig      `yaml:"scanner"`
	Analysis  AnalysisConfig     `yaml:"analysis"`
	Store     StoreConfig        `yaml:"store"`
	Web       WebConfig          `yaml:"web"`
	Daemon    DaemonConfig       `yaml:"daemon"`
	Profiles  map[string]Profile `yaml:"profiles"` // overrides/additions to the built-ins
}

// ProvidersConfig holds market-data provider settings
type ProvidersConfig struct {
	Tradier     ProviderConfig `yaml:"tradier"`
	Yahoo       ProviderConfig `yaml:"yahoo"`
	Finnhub     ProviderConfig `yaml:"finnhub"`
	DailyBudget int            `yaml:"daily_budget"` // max paid API requests per day, 0 = unlimited
}

// ProviderConfig holds individual provider settings
type ProviderConfig struct {
	Token     string `yaml:"token"`
	RateLimit int    `yaml:"rate_limit"` // requests per minute
}

// ScannerConfig holds earnings-scan settings
type ScannerConfig struct {
	Workers   int           `yaml:"workers"`
	Timeout   time.Duration `yaml:"timeout"`
	DaysAhead int           `yaml:"days_ahead"` // earnings window to scan
}

// AnalysisConfig holds per-run analysis defaults
type AnalysisConfig struct {
	Profile    string  `yaml:"profile"`
	RiskBudget float64 `yaml:"risk_budget"` // max dollars at risk per position
}

// StoreConfig holds run-persistence settings
type StoreConfig struct {
	Path string `yaml:"path"`
}

// WebConfig holds report API settings
type WebConfig struct {
	Port      int    `yaml:"port"`
	JWTSecret string `yaml:"jwt_secret"` // empty disables auth
}

// DaemonConfig holds scheduled-scan settings
type DaemonConfig struct {
	Schedule string `yaml:"schedule"` // cron expression
	Universe string `yaml:"universe"`
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Providers: ProvidersConfig{
			Tradier: ProviderConfig{
				Token:     os.Getenv("TRADIER_TOKEN"),
				RateLimit: 60,
			},
			Yahoo: ProviderConfig{
				RateLimit: 30,
			},
			Finnhub: ProviderConfig{
				Token:     os.Getenv("FINNHUB_TOKEN"),
				RateLimit: 60,
			},
			DailyBudget: 2000,
		},
		Scanner: ScannerConfig{
			Workers:   8,
			Timeout:   5 * time.Minute,
			DaysAhead: 7,
		},
		Analysis: AnalysisConfig{
			Profile:    "balanced",
			RiskBudget: 2000,
		},
		Store: StoreConfig{
			Path: "ivcrush.db",
		},
		Web: WebConfig{
			Port:      8750,
			JWTSecret: os.Getenv("IVCRUSH_JWT_SECRET"),
		},
		Daemon: DaemonConfig{
			Schedule: "0 8 * * MON-FRI", // pre-market, before the 09:30 open
			Universe: "liquid100",
		},
	}
}

// Load reads configuration from a YAML file on top of the defaults.
// A missing file is not an error; env vars win over file values.
func Load(path string) (*Config, error) {
	// a local .env is optional
	_ = godotenv.Load()

	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if token := os.Getenv("TRADIER_TOKEN"); token != "" {
		cfg.Providers.Tradier.Token = token
	}
	if token := os.Getenv("FINNHUB_TOKEN"); token != "" {
		cfg.Providers.Finnhub.Token = token
	}
	if secret := os.Getenv("IVCRUSH_JWT_SECRET"); secret != "" {
		cfg.Web.JWTSecret = secret
	}

	return cfg, nil
}

// Profile resolves a named profile, preferring file-defined profiles over
// the built-ins, and validates it before handing it out.
func (c *Config) Profile(name string) (Profile, error) {
	if name == "" {
		name = c.Analysis.Profile
	}

	profile, ok := c.Profiles[name]
	if !ok {
		profile, ok = BuiltinProfiles()[name]
	}
	if !ok {
		return Profile{}, &ValidationError{Field: "profile", Reason: fmt.Sprintf("unknown profile %q", name)}
	}

	if profile.Name == "" {
		profile.Name = name
	}
	if err := profile.Validate(); err != nil {
		return Profile{}, err
	}
	return profile, nil
}
