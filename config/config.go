package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const EnvPrefix = "FOLIO"

// Keys that are commonly supplied only through the environment. Viper only
// overlays environment values onto keys it already knows about, so secrets
// living in optional blocks have to be bound explicitly.
var envOnlyKeys = []string{
	"auth.jwt_secret",
	"database.dsn",
	"media.s3.access_key_id",
	"media.s3.secret_key_id",
	"media.s3.region",
	"media.s3.bucket",
	"media.s3.endpoint",
	"media.filesystem.path",
	"rebuild.github.owner",
	"rebuild.github.repo",
	"rebuild.github.token",
	"rebuild.cloudflare.account_id",
	"rebuild.cloudflare.project",
	"rebuild.cloudflare.api_token",
	"mail.smtp.host",
	"mail.smtp.port",
	"mail.smtp.username",
	"mail.smtp.password",
	"mail.smtp.from",
	"mail.smtp.from_name",
	"mail.smtp.to",
	"mail.imap.host",
	"mail.imap.port",
	"mail.imap.username",
	"mail.imap.password",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("debug", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("server.address", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.request_timeout", 2*time.Minute)
	v.SetDefault("server.limits.max_json_body", 1<<20)
	v.SetDefault("server.limits.max_file_size", 20<<20)
	v.SetDefault("server.limits.max_files", 3)
	v.SetDefault("server.limits.strict_uploads", false)
	v.SetDefault("server.limits.requests_per_minute", 600)

	v.SetDefault("auth.jwt_ttl", 7*24*time.Hour)

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.migrate", true)

	v.SetDefault("media.strategy", "noop")
	v.SetDefault("media.target_width", 1600)
	v.SetDefault("media.quality", 78)
	v.SetDefault("media.accepted_mime_prefixes", []string{"image/", "video/mp4"})
	v.SetDefault("media.project_key_pattern", "projects/{parent}/{timestamp}-{index}-{slug}")
	v.SetDefault("media.studio_key_pattern", "studio/{timestamp}-{index}-{slug}")

	v.SetDefault("rebuild.strategy", "noop")
	v.SetDefault("rebuild.debounce", 10*time.Second)
	v.SetDefault("rebuild.reason", "content-updated")

	v.SetDefault("keepalive.schedule", "@every 6h")
}

func (c *Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterValidation("abspath", ValidateAbsPath)
	validate.RegisterValidation("mimeprefix", ValidateMimePrefix)
	validate.RegisterValidation("pathpattern", ValidatePathPattern)

	if err := validate.Struct(c); err != nil {
		return err
	}

	return nil
}

// LoadConfig reads the optional YAML file at path, overlays FOLIO_* environment
// variables (after loading a .env file when one exists) and validates the result.
func LoadConfig(file string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range envOnlyKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind env for %q: %w", key, err)
		}
	}

	if strings.TrimSpace(file) != "" {
		v.SetConfigFile(file)
		v.SetConfigType("yaml")

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %q: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (s *Server) BindAddress() string {
	return fmt.Sprintf("%v:%v", s.Address, s.Port)
}
