// config/config.go
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Game     GameConfig
	Report   ReportConfig
	R2       R2Config
}

type ServerConfig struct {
	Port           string
	AllowedOrigins string
	AdminToken     string // empty disables the diagnostic routes
	TicketGuard    string // "none" or "keyed"
}

type DatabaseConfig struct {
	Driver      string // "postgres", "sqlite" or "memory"
	DSN         string
	AutoMigrate bool
}

type GameConfig struct {
	CampaignName  string
	PublicBaseURL string
	Sentences     []string
}

type ReportConfig struct {
	Interval time.Duration // 0 disables the report job
}

// R2Config holds the S3-compatible bucket used for report snapshots.
type R2Config struct {
	AccountID       string
	AccessKeyID     string
	AccessKeySecret string
	Bucket          string
}

// Enabled reports whether enough credentials are set to upload snapshots.
func (r R2Config) Enabled() bool {
	return r.AccountID != "" && r.AccessKeyID != "" && r.AccessKeySecret != "" && r.Bucket != ""
}

const (
	GuardNone  = "none"
	GuardKeyed = "keyed"
)

// DefaultSentence is the campaign sentence typed by players.
const DefaultSentence = "차앤박 더마앤서 액티브 부스트 PDRN 앰플"

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	autoMigrate, err := strconv.ParseBool(getEnv("AUTO_MIGRATE", "true"))
	if err != nil {
		return nil, fmt.Errorf("invalid AUTO_MIGRATE: %w", err)
	}

	interval, err := time.ParseDuration(getEnv("REPORT_INTERVAL", "10m"))
	if err != nil {
		return nil, fmt.Errorf("invalid REPORT_INTERVAL: %w", err)
	}
	if interval < 0 {
		return nil, fmt.Errorf("invalid REPORT_INTERVAL: must not be negative")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", "5200"),
			AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
			AdminToken:     os.Getenv("ADMIN_TOKEN"),
			TicketGuard:    strings.ToLower(getEnv("TICKET_GUARD", GuardNone)),
		},
		Database: DatabaseConfig{
			Driver:      strings.ToLower(getEnv("DB_DRIVER", "postgres")),
			DSN:         os.Getenv("DATABASE_URL"),
			AutoMigrate: autoMigrate,
		},
		Game: GameConfig{
			CampaignName:  getEnv("CAMPAIGN_NAME", "Typing Challenge"),
			PublicBaseURL: getEnv("PUBLIC_BASE_URL", "http://localhost:3000"),
			Sentences:     []string{DefaultSentence},
		},
		Report: ReportConfig{
			Interval: interval,
		},
		R2: R2Config{
			AccountID:       os.Getenv("CLOUDFLARE_ACCOUNT_ID"),
			AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
			AccessKeySecret: os.Getenv("R2_ACCESS_KEY_SECRET"),
			Bucket:          os.Getenv("R2_BUCKET_NAME"),
		},
	}

	if extra := os.Getenv("TARGET_SENTENCES"); extra != "" {
		var sentences []string
		for _, s := range strings.Split(extra, "|") {
			if s = strings.TrimSpace(s); s != "" {
				sentences = append(sentences, s)
			}
		}
		if len(sentences) > 0 {
			cfg.Game.Sentences = sentences
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings that cannot be defaulted.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite", "memory":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}
	if c.Database.DSN == "" && c.Database.Driver != "memory" {
		return fmt.Errorf("DATABASE_URL environment variable not set")
	}
	switch c.Server.TicketGuard {
	case GuardNone, GuardKeyed:
	default:
		return fmt.Errorf("unsupported TICKET_GUARD %q", c.Server.TicketGuard)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// splitList trims each comma-separated entry, the form fiber's CORS config expects.
func splitList(raw string) string {
	parts := strings.Split(raw, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ",")
}
