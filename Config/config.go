// Package Config reads the console settings from the environment, after
// loading a .env file when one is present.
package Config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port      string
	DBDriver  string
	DBDSN     string
	JWTSecret string
	LogLevel  string
	LogDir    string

	SlackToken    string
	SlackAppToken string
	SlackChannel  string

	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	SMTPFrom     string
	DigestTo     []string

	FirebaseCredentials string
	CatalogPath         string
	TemplatesDir        string
	EnableCron          bool
}

// Load reads the .env files given (".env" when none) and then the
// environment. Missing .env files are not an error; variables already set
// in the environment win over the file.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("error loading %s: %w", f, err)
		}
	}

	cfg := &Config{
		Port:                env("PORT", "3001"),
		DBDriver:            env("DB_DRIVER", "sqlite"),
		DBDSN:               env("DB_DSN", "database.db"),
		JWTSecret:           os.Getenv("JWT_SECRET"),
		LogLevel:            env("LOG_LEVEL", "info"),
		LogDir:              env("LOG_DIR", "logs"),
		SlackToken:          os.Getenv("SLACK_BOT_TOKEN"),
		SlackAppToken:       os.Getenv("SLACK_APP_TOKEN"),
		SlackChannel:        os.Getenv("SLACK_CHANNEL_ID"),
		SMTPHost:            os.Getenv("SMTP_HOST"),
		SMTPUser:            os.Getenv("SMTP_USER"),
		SMTPPassword:        os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:            os.Getenv("SMTP_FROM"),
		DigestTo:            list(os.Getenv("DIGEST_TO")),
		FirebaseCredentials: os.Getenv("FIREBASE_CREDENTIALS"),
		CatalogPath:         os.Getenv("CATALOG_PATH"),
		TemplatesDir:        env("TEMPLATES_DIR", "./Templates"),
	}

	port, err := strconv.Atoi(env("SMTP_PORT", "587"))
	if err != nil {
		return nil, fmt.Errorf("SMTP_PORT: %w", err)
	}
	cfg.SMTPPort = port

	cfg.EnableCron, err = strconv.ParseBool(env("ENABLE_CRON", "true"))
	if err != nil {
		return nil, fmt.Errorf("ENABLE_CRON: %w", err)
	}

	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET not set")
	}
	if cfg.SMTPFrom == "" {
		cfg.SMTPFrom = cfg.SMTPUser
	}
	return cfg, nil
}

// SlackEnabled reports whether a bot token and channel are configured.
func (c *Config) SlackEnabled() bool {
	return c.SlackToken != "" && c.SlackChannel != ""
}

// SlackCommandsEnabled reports whether the socket mode listener can run.
func (c *Config) SlackCommandsEnabled() bool {
	return c.SlackEnabled() && c.SlackAppToken != ""
}

func (c *Config) SMTPEnabled() bool {
	return c.SMTPHost != "" && c.SMTPUser != ""
}

func env(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func list(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
