package config

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/farellandr/ticketgate/internal/helpers"
	"github.com/farellandr/ticketgate/internal/mailer"
	"github.com/farellandr/ticketgate/internal/repository"
	"github.com/redis/go-redis/v9"
	"github.com/xendit/xendit-go/v6"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Config struct {
	// Server
	Port            string
	Environment     string
	PublicBaseURL   string
	ShutdownTimeout time.Duration

	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBMaxConns int

	// Payment provider
	XenditSecretKey     string
	XenditCallbackToken string

	// Admin access
	AdminPassword string
	JWTSecret     string
	TokenTTL      time.Duration

	// Email
	EmailAPIKey   string
	EmailSMTPAddr string
	EmailSMTPUser string
	EmailFrom     string
	EmailFromName string

	RedisURL    string
	CatalogFile string

	// DisplayTimezone is the IANA zone used for times shown to gate staff.
	DisplayTimezone string
}

func LoadConfig() (*Config, error) {
	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		Environment:     getEnv("ENVIRONMENT", "development"),
		PublicBaseURL:   strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),
		ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", "10s"),

		DBHost:     os.Getenv("DB_HOST"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),
		DBMaxConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 10),

		XenditSecretKey:     os.Getenv("XENDIT_SECRET_KEY"),
		XenditCallbackToken: os.Getenv("XENDIT_CALLBACK_TOKEN"),

		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		TokenTTL:      getEnvAsDuration("ADMIN_TOKEN_TTL", "12h"),

		EmailAPIKey:   os.Getenv("EMAIL_API_KEY"),
		EmailSMTPAddr: getEnv("EMAIL_SMTP_HOST", "smtp.resend.com:587"),
		EmailSMTPUser: getEnv("EMAIL_SMTP_USER", "resend"),
		EmailFrom:     getEnv("EMAIL_FROM", "tickets@resend.dev"),
		EmailFromName: getEnv("EMAIL_FROM_NAME", ""),

		RedisURL:    os.Getenv("REDIS_URL"),
		CatalogFile: os.Getenv("CATALOG_FILE"),

		DisplayTimezone: getEnv("DISPLAY_TIMEZONE", "UTC"),
	}

	if cfg.JWTSecret == "" {
		secret, err := randomSecret()
		if err != nil {
			return nil, fmt.Errorf("generate jwt secret: %w", err)
		}
		cfg.JWTSecret = secret
	}

	return cfg, nil
}

// Validate reports every required key that is unset.
func (cfg *Config) Validate() error {
	required := []struct {
		key   string
		value string
	}{
		{"XENDIT_SECRET_KEY", cfg.XenditSecretKey},
		{"DB_HOST", cfg.DBHost},
		{"DB_USER", cfg.DBUser},
		{"DB_NAME", cfg.DBName},
		{"EMAIL_API_KEY", cfg.EmailAPIKey},
		{"ADMIN_PASSWORD", cfg.AdminPassword},
	}

	var missing []string
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			missing = append(missing, r.key)
		}
	}
	if len(missing) > 0 {
		return helpers.NewError(helpers.KindMisconfigured,
			"Server configuration is incomplete. Missing: "+strings.Join(missing, ", ")+".")
	}
	return nil
}

func (cfg *Config) DisplayLocation() (*time.Location, error) {
	loc, err := time.LoadLocation(cfg.DisplayTimezone)
	if err != nil {
		return nil, helpers.WrapError(helpers.KindMisconfigured,
			"DISPLAY_TIMEZONE is not a known time zone: "+cfg.DisplayTimezone+".", err)
	}
	return loc, nil
}

func (cfg *Config) Production() bool {
	return cfg.Environment == "production"
}

func (cfg *Config) Mailer() mailer.Config {
	return mailer.Config{
		SMTPAddr: cfg.EmailSMTPAddr,
		Username: cfg.EmailSMTPUser,
		APIKey:   cfg.EmailAPIKey,
		From:     cfg.EmailFrom,
		FromName: cfg.EmailFromName,
	}
}

func InitXenditClient(cfg *Config) (*xendit.APIClient, error) {
	if cfg.XenditSecretKey == "" {
		return nil, helpers.NewError(helpers.KindMisconfigured, "Payment provider is not configured.")
	}
	client := xendit.NewClient(cfg.XenditSecretKey)

	return client, nil
}

func (cfg *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort,
	)
}

func InitDatabase(cfg *Config) (*gorm.DB, error) {
	gormConfig := &gorm.Config{}
	if cfg.Production() {
		gormConfig.Logger = logger.Default.LogMode(logger.Warn)
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), gormConfig)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(cfg.DBMaxConns)

	if err := repository.Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

// InitRedis returns nil when no REDIS_URL is configured. Both redis:// URLs
// and bare host:port addresses are accepted.
func InitRedis(ctx context.Context, cfg *Config) (*redis.Client, error) {
	if cfg.RedisURL == "" {
		return nil, nil
	}

	var opts *redis.Options
	if strings.Contains(cfg.RedisURL, "://") {
		parsed, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{Addr: cfg.RedisURL}
	}

	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return client, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
