package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

const defaultJWTSecret = "your-default-secret-key-change-in-production"

// Config holds the server settings, all read from the environment.
type Config struct {
	Port           string
	DatabasePath   string
	JWTSecret      string
	UploadDir      string
	StaticDir      string
	AllowedOrigins []string
	SMTP           SMTP

	// DevLoginLinks returns magic links in the login response.
	DevLoginLinks bool
}

// SMTP holds the relay used to mail magic links. Mail is disabled when
// Host is empty.
type SMTP struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

// Load reads envFile into the environment when it exists, then builds the
// config from environment variables with defaults for anything unset.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	cfg := &Config{
		Port:           getenv("PORT", "3001"),
		DatabasePath:   getenv("DATABASE_PATH", "./kanban.db"),
		JWTSecret:      getenv("JWT_SECRET", defaultJWTSecret),
		UploadDir:      getenv("UPLOAD_DIR", "./uploads"),
		StaticDir:      getenv("STATIC_DIR", "./public"),
		AllowedOrigins: splitList(getenv("ALLOWED_ORIGINS", "*")),
		SMTP: SMTP{
			Host:     getenv("SMTP_HOST", ""),
			Port:     getenv("SMTP_PORT", "587"),
			Username: getenv("SMTP_USERNAME", ""),
			Password: getenv("SMTP_PASSWORD", ""),
			From:     getenv("SMTP_FROM", ""),
		},
		DevLoginLinks: getenv("DEV_LOGIN_LINKS", "false") == "true",
	}

	if cfg.JWTSecret == defaultJWTSecret {
		log.Println("Warning: JWT_SECRET is not set, using the development default")
	}
	if cfg.SMTP.Host == "" && !cfg.DevLoginLinks {
		log.Println("Warning: neither SMTP_HOST nor DEV_LOGIN_LINKS is set, logins cannot be delivered")
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
