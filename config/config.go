package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sagarc03/cannedreports"
	"github.com/sagarc03/cannedreports/database"
	reportshttp "github.com/sagarc03/cannedreports/http"
	"github.com/sagarc03/cannedreports/keybackend"
	"github.com/sagarc03/cannedreports/s3store"
)

// EnvPrefix is the prefix of environment variables overriding config keys.
const EnvPrefix = "CANNEDREPORTS"

// configKey is the context key for storing the loaded configuration.
type configKey struct{}

// WithContext returns a new context with the config stored.
func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// FromContext retrieves the config from context.
// Returns an error if config is not found.
func FromContext(ctx context.Context) (*Config, error) {
	cfg, ok := ctx.Value(configKey{}).(*Config)
	if !ok || cfg == nil {
		return nil, errors.New("config not found in context")
	}
	return cfg, nil
}

// Config is the root configuration struct for the report server.
type Config struct {
	Env           string                 `mapstructure:"env" validate:"omitempty,oneof=dev development prod production"`
	Server        ServerConfig           `mapstructure:"server"`
	Authorization AuthorizationConfig    `mapstructure:"authorization"`
	Store         StoreConfig            `mapstructure:"store"`
	CORS          reportshttp.CORSConfig `mapstructure:"cors"`
	Log           LogConfig              `mapstructure:"log"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            int   `mapstructure:"port" validate:"required,min=1,max=65535"`
	MaxUploadSize   int64 `mapstructure:"max_upload_size" validate:"min=0"`
	ShutdownTimeout int   `mapstructure:"shutdown_timeout" validate:"min=1"` // seconds
}

// AuthorizationConfig controls role checks on incoming requests.
type AuthorizationConfig struct {
	EnableAuthorization bool                  `mapstructure:"enable_authorization"`
	UserRole            string                `mapstructure:"user_role" validate:"required"`
	ManagerRole         string                `mapstructure:"manager_role" validate:"required"`
	Keys                keybackend.KeysConfig `mapstructure:"keys"`
}

// StoreConfig selects and configures the report store. Only the fields of
// the selected type are used.
type StoreConfig struct {
	Type string `mapstructure:"type" validate:"required,oneof=s3 filesystem sqlite postgres"`

	// s3
	Bucket          string `mapstructure:"bucket" validate:"required_if=Type s3"`
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint" validate:"omitempty,url"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UsePathStyle    bool   `mapstructure:"use_path_style"`

	// filesystem
	Path string `mapstructure:"path" validate:"required_if=Type filesystem"`

	// sqlite, postgres
	DSN   string `mapstructure:"dsn" validate:"required_if=Type sqlite,required_if=Type postgres"`
	Table string `mapstructure:"table" validate:"required_if=Type sqlite,required_if=Type postgres"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
}

// IsProd reports whether the production log format is wanted.
func (c *Config) IsProd() bool {
	return c.Env == "prod" || c.Env == "production"
}

// StoreType returns the selected backend.
func (c *Config) StoreType() cannedreports.StoreType {
	return cannedreports.StoreType(c.Store.Type)
}

// S3 returns the settings for s3store.New.
func (c *Config) S3() s3store.Config {
	return s3store.Config{
		Bucket:          c.Store.Bucket,
		Region:          c.Store.Region,
		Endpoint:        c.Store.Endpoint,
		AccessKeyID:     c.Store.AccessKeyID,
		SecretAccessKey: c.Store.SecretAccessKey,
		UsePathStyle:    c.Store.UsePathStyle,
	}
}

// Database returns the settings for database.Connect.
func (c *Config) Database() database.Config {
	return database.Config{
		Type:  c.Store.Type,
		DSN:   c.Store.DSN,
		Table: c.Store.Table,
	}
}

// Manager returns the ReportsManager settings.
func (c *Config) Manager() cannedreports.ManagerConfig {
	return cannedreports.ManagerConfig{
		EnableAuthorization: c.Authorization.EnableAuthorization,
		UserRole:            c.Authorization.UserRole,
		ManagerRole:         c.Authorization.ManagerRole,
	}
}

// Handler returns the HTTP handler settings.
func (c *Config) Handler() *reportshttp.HandlerConfig {
	return &reportshttp.HandlerConfig{
		MaxUploadSize: c.Server.MaxUploadSize,
		CORS:          c.CORS,
	}
}

// flagToViperKey maps CLI flag names to viper configuration keys.
var flagToViperKey = map[string]string{
	"store-type":    "store.type",
	"bucket":        "store.bucket",
	"region":        "store.region",
	"endpoint":      "store.endpoint",
	"storage-path":  "store.path",
	"db-dsn":        "store.dsn",
	"db-table":      "store.table",
	"port":          "server.port",
	"authorization": "authorization.enable_authorization",
	"log-level":     "log.level",
}

// bindFlags binds CLI flags to viper keys with custom name mapping.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		// Use custom mapping if it exists, otherwise use flag name as-is
		viperKey := f.Name
		if mapped, ok := flagToViperKey[viperKey]; ok {
			viperKey = mapped
		}

		// Only bind if the flag was explicitly set
		if f.Changed {
			_ = v.BindPFlag(viperKey, f)
		}
	})
}

// setDefaults configures default values on the viper instance.
func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "dev")

	v.SetDefault("server.port", 5708)
	v.SetDefault("server.max_upload_size", 0) // 0 means no limit
	v.SetDefault("server.shutdown_timeout", 30)

	v.SetDefault("authorization.enable_authorization", false)
	v.SetDefault("authorization.user_role", cannedreports.DefaultUserRole)
	v.SetDefault("authorization.manager_role", cannedreports.DefaultManagerRole)

	v.SetDefault("store.type", string(cannedreports.StoreS3))
	v.SetDefault("store.bucket", "canned-reports")
	v.SetDefault("store.region", "")
	v.SetDefault("store.endpoint", "")
	v.SetDefault("store.access_key_id", "")
	v.SetDefault("store.secret_access_key", "")
	v.SetDefault("store.use_path_style", false)
	v.SetDefault("store.path", "./data")
	v.SetDefault("store.dsn", "cannedreports.db")
	v.SetDefault("store.table", "canned_reports")

	v.SetDefault("cors.enabled", false)
	v.SetDefault("log.level", "info")
}

// Load reads configuration and returns a validated Config struct.
// Order of precedence (highest to lowest): flags > env > config files > defaults
//
// Parameters:
//   - configFiles: list of config file paths (later files override earlier ones)
//   - flags: cobra flag set for flag binding (can be nil)
func Load(configFiles []string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	// 1. Set defaults
	setDefaults(v)

	// 2. Read config files
	if len(configFiles) > 0 {
		v.SetConfigFile(configFiles[0])
		if err := v.ReadInConfig(); err != nil {
			slog.Warn("error reading config file", "file", configFiles[0], "err", err)
		}

		for _, cf := range configFiles[1:] {
			v.SetConfigFile(cf)
			if err := v.MergeInConfig(); err != nil {
				slog.Warn("error merging config file", "file", cf, "err", err)
			}
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")

		if err := v.ReadInConfig(); err != nil {
			var configNotFound viper.ConfigFileNotFoundError
			if !errors.As(err, &configNotFound) {
				slog.Warn("error reading config file", "err", err)
			}
		}
	}

	// 3. Bind environment variables
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 4. Bind flags (if provided)
	if flags != nil {
		bindFlags(v, flags)
	}

	// 5. Unmarshal into Config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// 6. Validate using go-playground/validator
	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	if cfg.StoreType().IsSQL() {
		if err := (cannedreports.Tables{Reports: cfg.Store.Table}).Validate(); err != nil {
			return nil, fmt.Errorf("validate config: %w", err)
		}
	}

	return &cfg, nil
}
