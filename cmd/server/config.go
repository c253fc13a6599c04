package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type config struct {
	ListenAddr         string `yaml:"listen_addr" envconfig:"LISTEN_ADDR" validate:"required"`
	TLSCertFile        string `yaml:"tls_cert" envconfig:"TLS_CERT" validate:"required_with=TLSKeyFile"`
	TLSKeyFile         string `yaml:"tls_key" envconfig:"TLS_KEY" validate:"required_with=TLSCertFile"`
	LogLevel           string `yaml:"log_level" envconfig:"LOG_LEVEL" validate:"oneof=trace debug info warn error"`
	LogFormat          string `yaml:"log_format" envconfig:"LOG_FORMAT" validate:"oneof=pretty json"`
	Production         bool   `yaml:"production" envconfig:"PRODUCTION"`
	DBUrl              string `yaml:"db_url" envconfig:"DB_URL" validate:"omitempty,url"`
	MigrationsDir      string `yaml:"migrations_dir" envconfig:"MIGRATIONS_DIR"`
	AuditLogFile       string `yaml:"audit_log_file" envconfig:"AUDIT_LOG_FILE" validate:"required"`
	AuthSecret         string `yaml:"auth_secret" envconfig:"AUTH_SECRET" validate:"required,min=16"`
	AuthIssuer         string `yaml:"auth_issuer" envconfig:"AUTH_ISSUER"`
	Bucket             string `yaml:"bucket" envconfig:"BUCKET" validate:"required"`
	BucketHost         string `yaml:"bucket_host" envconfig:"BUCKET_HOST" validate:"omitempty,hostname"`
	GCSCredentialsFile string `yaml:"gcs_credentials_file" envconfig:"GCS_CREDENTIALS_FILE"`
	SignerEmail        string `yaml:"signer_email" envconfig:"SIGNER_EMAIL" validate:"omitempty,email"`
	RedisAddr          string `yaml:"redis_addr" envconfig:"REDIS_ADDR" validate:"omitempty,hostname_port"`
	RateLimitRPS       int    `yaml:"rate_limit_rps" envconfig:"RATE_LIMIT_RPS" validate:"gte=1"`
	MaxUploadMB        int64  `yaml:"max_upload_mb" envconfig:"MAX_UPLOAD_MB" validate:"gte=1"`
	TrustProxy         bool   `yaml:"trust_proxy" envconfig:"TRUST_PROXY"`
}

func defaultConfig() config {
	return config{
		ListenAddr:    ":8080",
		LogLevel:      "info",
		LogFormat:     "pretty",
		MigrationsDir: "migrations",
		AuditLogFile:  "audit.log",
		AuthIssuer:    "examvault",
		BucketHost:    "storage.googleapis.com",
		RateLimitRPS:  100,
		MaxUploadMB:   32,
	}
}

// loadConfig layers defaults, the YAML file at path (optional) and
// EXAMVAULT_* environment variables, then validates the result.
func loadConfig(path string) (config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	if err := envconfig.Process("EXAMVAULT", &cfg); err != nil {
		return cfg, fmt.Errorf("reading environment: %w", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
