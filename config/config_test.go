package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testYAML = `
env:
  serviceName: accounts-test
  log:
    level: info
http:
  port: 9090
  timeouts:
    readTimeout: 3s
postgres:
  dsn: ""
  master:
    host: db
    port: "5432"
    userName: svc
    password: "p@ss word"
  database: accounts
auth:
  secretKey: yaml-secret
  algorithm: ""
  accessTokenExpireMinutes: 0
pagination:
  defaultLimit: 0
  maxLimit: 50
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "accounts.yaml"), []byte(body), 0o600))

	return dir
}

func TestLoadWithEnv_ReadsYAML(t *testing.T) {
	dir := writeConfig(t, testYAML)

	cfg, err := LoadWithEnv[Config]("accounts", dir)
	require.NoError(t, err)

	assert.Equal(t, "accounts-test", cfg.Env.ServiceName)
	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, 3*time.Second, cfg.HTTP.Timeouts.ReadTimeout)
	require.NotNil(t, cfg.Postgres)
	assert.Equal(t, "db", cfg.Postgres.Master.Host)
	require.NotNil(t, cfg.Auth)
	assert.Equal(t, "yaml-secret", cfg.Auth.SecretKey)
}

func TestLoadWithEnv_EnvironmentOverridesYAML(t *testing.T) {
	dir := writeConfig(t, testYAML)
	t.Setenv("AUTH_SECRETKEY", "env-secret")
	t.Setenv("AUTH_ACCESSTOKENEXPIREMINUTES", "5")
	t.Setenv("POSTGRES_DSN", "postgres://override/db")

	cfg, err := LoadWithEnv[Config]("accounts", dir)
	require.NoError(t, err)

	assert.Equal(t, "env-secret", cfg.Auth.SecretKey)
	assert.Equal(t, 5, cfg.Auth.AccessTokenExpireMinutes)
	assert.Equal(t, "postgres://override/db", cfg.Postgres.PrimaryDSN())
}

func TestLoadWithEnv_MissingFile(t *testing.T) {
	_, err := LoadWithEnv[Config]("does-not-exist", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestNormalize_AppliesDefaults(t *testing.T) {
	dir := writeConfig(t, testYAML)

	cfg, err := LoadWithEnv[Config]("accounts", dir)
	require.NoError(t, err)
	require.NoError(t, cfg.normalize())

	assert.Equal(t, defaultMaxRequestBodySize, cfg.HTTP.MaxRequestBodySize)
	assert.Equal(t, "HS256", cfg.Auth.Algorithm)
	assert.Equal(t, 30*time.Minute, cfg.Auth.AccessTokenTTL())
	assert.Equal(t, 50, cfg.Pagination.MaxLimit)
	assert.Equal(t, 50, cfg.Pagination.DefaultLimit)
}

func TestNormalize_RequiresSecret(t *testing.T) {
	cfg := &Config{
		Postgres: &PostgresConfig{},
		Auth:     &AuthConfig{SecretKey: "  "},
	}

	err := cfg.normalize()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "auth.secretKey")
}

func TestNormalize_RequiresPostgres(t *testing.T) {
	cfg := &Config{Auth: &AuthConfig{SecretKey: "s"}}

	require.Error(t, cfg.normalize())
}

func TestNormalize_ReplicasFromEnv(t *testing.T) {
	t.Setenv("POSTGRES_REPLICAS_0_HOST", "replica-a")
	t.Setenv("POSTGRES_REPLICAS_0_PORT", "5433")
	t.Setenv("POSTGRES_REPLICAS_1_HOST", "replica-b")
	t.Setenv("POSTGRES_REPLICAS_1_PORT", "5434")

	cfg := &Config{
		Postgres: &PostgresConfig{Database: "accounts"},
		Auth:     &AuthConfig{SecretKey: "s"},
	}
	require.NoError(t, cfg.normalize())

	require.Len(t, cfg.Postgres.Replicas, 2)
	assert.Equal(t, "replica-b", cfg.Postgres.Replicas[1].Host)
	assert.Len(t, cfg.Postgres.ReplicaDSNs(), 2)
}

func TestPostgresConfig_PrimaryDSN(t *testing.T) {
	pg := &PostgresConfig{
		Master: ConnectionConfig{
			Host:     "db",
			Port:     "5432",
			UserName: "svc",
			Password: "p@ss",
		},
		Database: "accounts",
	}

	assert.Equal(t, "postgres://svc:p%40ss@db:5432/accounts?sslmode=disable", pg.PrimaryDSN())

	pg.SSLMode = "require"
	assert.Contains(t, pg.PrimaryDSN(), "sslmode=require")

	pg.DSN = "postgres://explicit"
	assert.Equal(t, "postgres://explicit", pg.PrimaryDSN())
}
