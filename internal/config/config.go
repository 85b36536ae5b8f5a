package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port                 string `mapstructure:"PORT"`
	DatabaseDriver       string `mapstructure:"DATABASE_DRIVER"`
	DatabaseURL          string `mapstructure:"DATABASE_URL"`
	LogLevel             string `mapstructure:"LOG_LEVEL"`
	BaseURL              string `mapstructure:"BASE_URL"`
	JWTSecret            string `mapstructure:"JWT_SECRET"`
	Production           bool   `mapstructure:"PRODUCTION"`
	PostmarkToken        string `mapstructure:"POSTMARK_TOKEN"`
	FromEmail            string `mapstructure:"FROM_EMAIL"`
	AWSRegion            string `mapstructure:"AWS_REGION"`
	AWSAccessKeyID       string `mapstructure:"AWS_ACCESS_KEY_ID"`
	AWSSecretAccessKey   string `mapstructure:"AWS_SECRET_ACCESS_KEY"`
	SMSOriginationNumber string `mapstructure:"SMS_ORIGINATION_NUMBER"`
	ImageBucket          string `mapstructure:"IMAGE_BUCKET"`
	S3Endpoint           string `mapstructure:"S3_ENDPOINT"`
	DiscordBotToken      string `mapstructure:"DISCORD_BOT_TOKEN"`
	DiscordChannelID     string `mapstructure:"DISCORD_CHANNEL_ID"`
}

var ErrMissingJWTSecret = errors.New("SIGNUPS_JWT_SECRET is required")

var keys = []string{
	"PORT", "DATABASE_DRIVER", "DATABASE_URL", "LOG_LEVEL", "BASE_URL", "JWT_SECRET", "PRODUCTION",
	"POSTMARK_TOKEN", "FROM_EMAIL",
	"AWS_REGION", "AWS_ACCESS_KEY_ID", "AWS_SECRET_ACCESS_KEY", "SMS_ORIGINATION_NUMBER", "IMAGE_BUCKET", "S3_ENDPOINT",
	"DISCORD_BOT_TOKEN", "DISCORD_CHANNEL_ID",
}

// Load reads configuration from SIGNUPS_* environment variables.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SIGNUPS")

	v.SetDefault("PORT", "8080")
	v.SetDefault("DATABASE_DRIVER", "sqlite")
	v.SetDefault("DATABASE_URL", "signups.db")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("AWS_REGION", "us-east-1")
	v.SetDefault("PRODUCTION", false)

	for _, k := range keys {
		if err := v.BindEnv(k); err != nil {
			return nil, fmt.Errorf("bind %s: %w", k, err)
		}
	}
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:" + cfg.Port
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	if cfg.JWTSecret == "" {
		return nil, ErrMissingJWTSecret
	}
	switch cfg.DatabaseDriver {
	case "sqlite", "postgres":
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}
	return &cfg, nil
}
