package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "DATABASE_PATH", "JWT_SECRET", "UPLOAD_DIR", "STATIC_DIR", "ALLOWED_ORIGINS", "SMTP_HOST", "SMTP_PORT", "DEV_LOGIN_LINKS"} {
		t.Setenv(key, "")
	}

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "3001", cfg.Port)
	assert.Equal(t, "./kanban.db", cfg.DatabasePath)
	assert.Equal(t, defaultJWTSecret, cfg.JWTSecret)
	assert.Equal(t, "./uploads", cfg.UploadDir)
	assert.Equal(t, "./public", cfg.StaticDir)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.Empty(t, cfg.SMTP.Host)
	assert.Equal(t, "587", cfg.SMTP.Port)
	assert.False(t, cfg.DevLoginLinks)
}

func TestLoad_EnvFile(t *testing.T) {
	for _, key := range []string{"PORT", "DATABASE_PATH", "JWT_SECRET", "UPLOAD_DIR", "STATIC_DIR", "ALLOWED_ORIGINS", "SMTP_HOST", "SMTP_PORT", "DEV_LOGIN_LINKS"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	envFile := filepath.Join(t.TempDir(), ".env")
	content := "PORT=8080\nJWT_SECRET=\"s3cret\"\nALLOWED_ORIGINS=https://a.example, https://b.example\nSMTP_HOST=smtp.example.com\nDEV_LOGIN_LINKS=true\n"
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0o600))

	cfg, err := Load(envFile)
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "s3cret", cfg.JWTSecret)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, "smtp.example.com", cfg.SMTP.Host)
	assert.True(t, cfg.DevLoginLinks)
}
