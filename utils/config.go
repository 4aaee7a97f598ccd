package utils

import (
	"strings"
	"time"

	"github.com/JeremyLoy/config"
	"github.com/rotisserie/eris"
)

type Config struct {
	Port           string `config:"PORT"`
	DatabaseURL    string `config:"DATABASE_URL"`
	AllowedOrigins string `config:"ALLOWED_ORIGINS"`
	LogLevel       string `config:"LOG_LEVEL"`
	LogPretty      bool   `config:"LOG_PRETTY"`

	ManagerSessionTTL    string `config:"MANAGER_SESSION_TTL"`
	PendingMatchTTL      string `config:"PENDING_MATCH_TTL"`
	PendingSweepInterval string `config:"PENDING_SWEEP_INTERVAL"`
	ArchiveInterval      string `config:"ARCHIVE_INTERVAL"`

	CloudflareAccountID string `config:"CLOUDFLARE_ACCOUNT_ID"`
	R2AccessKeyID       string `config:"R2_ACCESS_KEY_ID"`
	R2AccessKeySecret   string `config:"R2_ACCESS_KEY_SECRET"`
	R2BucketName        string `config:"R2_BUCKET_NAME"`
}

func defaultConfig() Config {
	return Config{
		Port:                 "5200",
		AllowedOrigins:       "http://localhost:3000",
		LogLevel:             "info",
		ManagerSessionTTL:    "12h",
		PendingMatchTTL:      "6h",
		PendingSweepInterval: "10m",
		ArchiveInterval:      "1m",
	}
}

// LoadConfig reads the environment over the defaults. Call godotenv first
// if a .env file should be honoured.
func LoadConfig() (Config, error) {
	cfg := defaultConfig()
	if err := config.FromEnv().To(&cfg); err != nil {
		return Config{}, eris.Wrap(err, "failed to read config from environment")
	}
	if cfg.DatabaseURL == "" {
		return Config{}, eris.New("DATABASE_URL environment variable not set")
	}
	for _, d := range []string{cfg.ManagerSessionTTL, cfg.PendingMatchTTL, cfg.PendingSweepInterval, cfg.ArchiveInterval} {
		if _, err := time.ParseDuration(d); err != nil {
			return Config{}, eris.Wrapf(err, "invalid duration %q", d)
		}
	}
	return cfg, nil
}

// Origins returns the comma-separated ALLOWED_ORIGINS with spaces trimmed.
func (c Config) Origins() string {
	parts := strings.Split(c.AllowedOrigins, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return strings.Join(parts, ",")
}

func (c Config) ArchiveEnabled() bool {
	return c.R2BucketName != "" && c.CloudflareAccountID != ""
}

// Duration parses a field already checked by LoadConfig.
func Duration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}
