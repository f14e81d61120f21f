package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"storybook-order-service/database"
	aws_pkg "storybook-order-service/pkg/aws"
	"storybook-order-service/services"
)

type Config struct {
	Port                  string
	Env                   string
	Postgres              database.PostgresConfig
	StripeSecretKey       string
	StripeWebhookSecret   string
	FrontendURL           string
	DefaultCurrency       string
	MaxFixedDiscountCents int64
	OrderTopicArn         string
	SMTPHost              string
	SMTPPort              string
	SMTPUser              string
	SMTPPass              string
	SMTPFrom              string
	RedisURL              string
	JWTSecret             string
	CloudWatchEnabled     bool
	CloudWatchNamespace   string
	AllowedOrigins        []string
	UseAWSSecrets         bool
}

// LoadConfig reads the environment, overlays AWS Secrets Manager credentials
// when AWS_USE_SECRETS=true and validates the result.
func LoadConfig(ctx context.Context) (*Config, error) {
	cfg := &Config{
		Port: getEnv("PORT", "8091"),
		Env:  getEnv("APP_ENV", "development"),
		Postgres: database.PostgresConfig{
			User:     os.Getenv("POSTGRES_USER"),
			Password: os.Getenv("POSTGRES_PASSWORD"),
			DB:       os.Getenv("POSTGRES_DB"),
			Host:     os.Getenv("POSTGRES_HOST"),
			Port:     getEnv("POSTGRES_PORT", "5432"),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
			TimeZone: getEnv("POSTGRES_TIMEZONE", "UTC"),
		},
		StripeSecretKey:     os.Getenv("STRIPE_API_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		FrontendURL:         getEnv("FRONTEND_URL", "http://localhost:3000"),
		DefaultCurrency:     strings.ToLower(getEnv("DEFAULT_CURRENCY", "usd")),
		OrderTopicArn:       os.Getenv("ORDER_SNS_TOPIC_ARN"),
		SMTPHost:            os.Getenv("SMTP_HOST"),
		SMTPPort:            getEnv("SMTP_PORT", "587"),
		SMTPUser:            os.Getenv("SMTP_USER"),
		SMTPPass:            os.Getenv("SMTP_PASS"),
		SMTPFrom:            os.Getenv("SMTP_FROM"),
		RedisURL:            os.Getenv("REDIS_URL"),
		JWTSecret:           os.Getenv("JWT_SECRET"),
		CloudWatchEnabled:   os.Getenv("CLOUDWATCH_ENABLED") == "true",
		CloudWatchNamespace: getEnv("CLOUDWATCH_NAMESPACE", "StorybookOrders"),
		AllowedOrigins:      splitList(getEnv("CORS_ALLOWED_ORIGINS", getEnv("FRONTEND_URL", "http://localhost:3000"))),
		UseAWSSecrets:       os.Getenv("AWS_USE_SECRETS") == "true",
	}

	maxDiscount, err := strconv.ParseInt(getEnv("MAX_FIXED_DISCOUNT_CENTS", strconv.FormatInt(services.DefaultMaxFixedDiscountCents, 10)), 10, 64)
	if err != nil || maxDiscount <= 0 {
		return nil, fmt.Errorf("MAX_FIXED_DISCOUNT_CENTS must be a positive integer")
	}
	cfg.MaxFixedDiscountCents = maxDiscount

	if cfg.UseAWSSecrets {
		awsCfg, err := aws_pkg.LoadAWSConfig(ctx)
		if err != nil {
			return nil, err
		}
		applySecrets(ctx, cfg, aws_pkg.NewSecretsClient(awsCfg))
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

type secretSource interface {
	GetSecretMap(ctx context.Context, name string) (map[string]string, error)
}

// applySecrets overrides credentials with any non-empty values found. A
// missing secret leaves the environment values in place.
func applySecrets(ctx context.Context, cfg *Config, src secretSource) {
	if m, err := src.GetSecretMap(ctx, "storybook/DB_CREDENTIALS"); err == nil {
		override(&cfg.Postgres.User, m["POSTGRES_USER"])
		override(&cfg.Postgres.Password, m["POSTGRES_PASSWORD"])
		override(&cfg.Postgres.DB, m["POSTGRES_DB"])
		override(&cfg.Postgres.Host, m["POSTGRES_HOST"])
		override(&cfg.Postgres.Port, m["POSTGRES_PORT"])
	}
	if m, err := src.GetSecretMap(ctx, "storybook/STRIPE"); err == nil {
		override(&cfg.StripeSecretKey, m["STRIPE_API_KEY"])
		override(&cfg.StripeWebhookSecret, m["STRIPE_WEBHOOK_SECRET"])
	}
}

func (c *Config) validate() error {
	if c.Postgres.User == "" || c.Postgres.Password == "" || c.Postgres.DB == "" || c.Postgres.Host == "" {
		return fmt.Errorf("database config incomplete")
	}
	if c.StripeSecretKey == "" {
		return fmt.Errorf("STRIPE_API_KEY is required")
	}
	if c.StripeWebhookSecret == "" {
		return fmt.Errorf("STRIPE_WEBHOOK_SECRET is required")
	}
	return nil
}

func override(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
