package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagarc03/cannedreports"
	"github.com/sagarc03/cannedreports/config"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	// Load with no config files should use defaults
	cfg, err := config.Load(nil, nil)
	require.NoError(t, err)

	assert.Equal(t, 5708, cfg.Server.Port)
	assert.Equal(t, int64(0), cfg.Server.MaxUploadSize)
	assert.Equal(t, 30, cfg.Server.ShutdownTimeout)
	assert.False(t, cfg.Authorization.EnableAuthorization)
	assert.Equal(t, cannedreports.DefaultUserRole, cfg.Authorization.UserRole)
	assert.Equal(t, cannedreports.DefaultManagerRole, cfg.Authorization.ManagerRole)
	assert.Equal(t, cannedreports.StoreS3, cfg.StoreType())
	assert.Equal(t, "canned-reports", cfg.Store.Bucket)
	assert.Equal(t, "./data", cfg.Store.Path)
	assert.Equal(t, "canned_reports", cfg.Store.Table)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.IsProd())
}

func TestLoad_ConfigFile(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
env: prod
server:
  port: 8080
  max_upload_size: 1048576
authorization:
  enable_authorization: true
  user_role: analyst
  manager_role: publisher
store:
  type: s3
  bucket: monthly-reports
  region: eu-west-1
  endpoint: http://localhost:9000
  access_key_id: minio
  secret_access_key: minio123
log:
  level: debug
`)

	cfg, err := config.Load([]string{path}, nil)
	require.NoError(t, err)

	assert.True(t, cfg.IsProd())
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Log.Level)

	manager := cfg.Manager()
	assert.True(t, manager.EnableAuthorization)
	assert.Equal(t, "analyst", manager.UserRole)
	assert.Equal(t, "publisher", manager.ManagerRole)

	s3 := cfg.S3()
	assert.Equal(t, "monthly-reports", s3.Bucket)
	assert.Equal(t, "eu-west-1", s3.Region)
	assert.Equal(t, "http://localhost:9000", s3.Endpoint)
	assert.Equal(t, "minio", s3.AccessKeyID)
	assert.Equal(t, "minio123", s3.SecretAccessKey)

	assert.Equal(t, int64(1048576), cfg.Handler().MaxUploadSize)
}

func TestLoad_ConfigFileMerge(t *testing.T) {
	base := writeConfig(t, "base.yaml", `
server:
  port: 5708
store:
  type: sqlite
  dsn: reports.db
  table: reports
log:
  level: info
`)
	override := writeConfig(t, "override.yaml", `
server:
  port: 9000
store:
  table: team_reports
`)

	// Load with merge (later files override earlier)
	cfg, err := config.Load([]string{base, override}, nil)
	require.NoError(t, err)

	// Overridden values
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "team_reports", cfg.Store.Table)

	// Preserved values from base
	db := cfg.Database()
	assert.Equal(t, "sqlite", db.Type)
	assert.Equal(t, "reports.db", db.DSN)
	assert.Equal(t, "team_reports", db.Table)
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "invalid port",
			content: "server:\n  port: 99999\n",
		},
		{
			name:    "unknown store type",
			content: "store:\n  type: ftp\n",
		},
		{
			name:    "s3 without bucket",
			content: "store:\n  type: s3\n  bucket: \"\"\n",
		},
		{
			name:    "sqlite without dsn",
			content: "store:\n  type: sqlite\n  dsn: \"\"\n",
		},
		{
			name:    "postgres with invalid table",
			content: "store:\n  type: postgres\n  dsn: postgres://localhost/reports\n  table: Reports-Table\n",
		},
		{
			name:    "invalid log level",
			content: "log:\n  level: verbose\n",
		},
		{
			name:    "invalid env",
			content: "env: staging\n",
		},
		{
			name:    "empty manager role",
			content: "authorization:\n  manager_role: \"\"\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, "config.yaml", tt.content)

			_, err := config.Load([]string{path}, nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "validate config")
		})
	}
}

func TestLoad_FilesystemIgnoresBucket(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
store:
  type: filesystem
  bucket: ""
  path: /var/lib/reports
`)

	cfg, err := config.Load([]string{path}, nil)
	require.NoError(t, err)
	assert.Equal(t, cannedreports.StoreFilesystem, cfg.StoreType())
	assert.Equal(t, "/var/lib/reports", cfg.Store.Path)
}

func TestLoad_WithInlineKeys(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
authorization:
  enable_authorization: true
  keys:
    inline:
      - key_id: default
        secret: secret-one
      - key_id: rotated
        secret: secret-two
    file: /etc/cannedreports/keys.json
`)

	cfg, err := config.Load([]string{path}, nil)
	require.NoError(t, err)

	keys := cfg.Authorization.Keys
	require.Len(t, keys.Inline, 2)
	assert.Equal(t, "default", keys.Inline[0].KeyID)
	assert.Equal(t, "secret-one", keys.Inline[0].Secret)
	assert.Equal(t, "rotated", keys.Inline[1].KeyID)
	assert.Equal(t, "secret-two", keys.Inline[1].Secret)
	assert.Equal(t, "/etc/cannedreports/keys.json", keys.File)
}

func TestLoad_WithCORS(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
cors:
  enabled: true
  allowed_origins:
    - https://example.com
    - https://app.example.com
  allowed_methods:
    - GET
    - PUT
  allowed_headers:
    - Content-Type
  max_age: 600
`)

	cfg, err := config.Load([]string{path}, nil)
	require.NoError(t, err)

	assert.True(t, cfg.CORS.Enabled)
	assert.Equal(t, []string{"https://example.com", "https://app.example.com"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, []string{"GET", "PUT"}, cfg.CORS.AllowedMethods)
	assert.Equal(t, []string{"Content-Type"}, cfg.CORS.AllowedHeaders)
	assert.Equal(t, 600, cfg.CORS.MaxAge)
	assert.Equal(t, cfg.CORS, cfg.Handler().CORS)
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	t.Setenv("CANNEDREPORTS_SERVER_PORT", "9090")
	t.Setenv("CANNEDREPORTS_STORE_TYPE", "postgres")
	t.Setenv("CANNEDREPORTS_STORE_DSN", "postgres://localhost/reports")
	t.Setenv("CANNEDREPORTS_AUTHORIZATION_ENABLE_AUTHORIZATION", "true")

	cfg, err := config.Load(nil, nil)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, cannedreports.StorePostgres, cfg.StoreType())
	assert.Equal(t, "postgres://localhost/reports", cfg.Store.DSN)
	assert.True(t, cfg.Authorization.EnableAuthorization)
}

func TestLoad_FlagsOverrideEnv(t *testing.T) {
	t.Setenv("CANNEDREPORTS_SERVER_PORT", "9090")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("port", 5708, "")
	flags.String("store-type", "", "")
	flags.String("storage-path", "", "")
	flags.String("db-dsn", "", "")
	require.NoError(t, flags.Parse([]string{"--port", "7000", "--store-type", "filesystem", "--storage-path", "/srv/reports"}))

	cfg, err := config.Load(nil, flags)
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, cannedreports.StoreFilesystem, cfg.StoreType())
	assert.Equal(t, "/srv/reports", cfg.Store.Path)
	// Unchanged flags do not shadow defaults.
	assert.Equal(t, "cannedreports.db", cfg.Store.DSN)
}

func TestContext(t *testing.T) {
	_, err := config.FromContext(context.Background())
	require.Error(t, err)

	cfg, err := config.Load(nil, nil)
	require.NoError(t, err)

	got, err := config.FromContext(config.WithContext(context.Background(), cfg))
	require.NoError(t, err)
	assert.Same(t, cfg, got)
}
