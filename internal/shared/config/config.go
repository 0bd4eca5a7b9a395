package config

import (
	"fmt"
	"strconv"
	"time"

	"github.com/PatchLore/midnight-typer/internal/shared/utils"

	"github.com/joho/godotenv"
)

type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	Frontend     FrontendConfig
	Logging      LoggingConfig
	RateLimit    RateLimitConfig
	Claims       ClaimsConfig
	Payment      PaymentConfig
	TreePlanting TreePlantingConfig
	Email        EmailConfig
	Certificate  CertificateConfig
}

type ServerConfig struct {
	Port         string
	URL          string
	Environment  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	MigrationsPath  string
}

type RedisConfig struct {
	Enabled  bool
	URL      string
	Host     string
	Port     string
	Password string
	DB       int
}

type FrontendConfig struct {
	URL       string
	CORSDebug bool
}

type LoggingConfig struct {
	Level      string
	Format     string
	JSONFormat bool
}

// RateLimitConfig controls the global per-IP limiter in front of the API.
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerSecond float64
	BurstSize         int
	TrustProxy        bool
}

// ClaimsConfig controls the claim workflow: the per-user fixed-window
// limiter on claim initiation, the time budget for external side effects,
// and the slot refund policy applied when a claim is canceled before the
// payment confirms.
type ClaimsConfig struct {
	WindowDuration     time.Duration
	MaxPerWindow       int
	SideEffectTimeout  time.Duration
	RefundSlotOnCancel bool
}

type PaymentConfig struct {
	SecretKey     string
	WebhookSecret string
	PriceID       string
	SuccessURL    string
	CancelURL     string
}

type TreePlantingConfig struct {
	Enabled   bool
	APIKey    string
	APIURL    string
	ProjectID string
	Timeout   time.Duration
}

type EmailConfig struct {
	APIKey string
	From   string
}

type CertificateConfig struct {
	StorageDir    string
	PublicBaseURL string
}

var GlobalConfig *Config

func Init() error {
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using system environment variables")
	}

	config, err := load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := config.validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	GlobalConfig = config
	return nil
}

func load() (*Config, error) {
	config := &Config{
		Server:       loadServerConfig(),
		Database:     loadDatabaseConfig(),
		Redis:        loadRedisConfig(),
		Frontend:     loadFrontendConfig(),
		Logging:      loadLoggingConfig(),
		RateLimit:    loadRateLimitConfig(),
		Claims:       loadClaimsConfig(),
		Payment:      loadPaymentConfig(),
		TreePlanting: loadTreePlantingConfig(),
		Email:        loadEmailConfig(),
		Certificate:  loadCertificateConfig(),
	}

	return config, nil
}

func loadServerConfig() ServerConfig {
	readTimeout, _ := strconv.Atoi(utils.GetEnv("SERVER_READ_TIMEOUT_SECONDS", "15"))
	writeTimeout, _ := strconv.Atoi(utils.GetEnv("SERVER_WRITE_TIMEOUT_SECONDS", "15"))
	idleTimeout, _ := strconv.Atoi(utils.GetEnv("SERVER_IDLE_TIMEOUT_SECONDS", "60"))

	return ServerConfig{
		Port:         utils.GetEnv("SERVER_PORT", "8080"),
		URL:          utils.GetEnv("SERVER_URL", "http://localhost:8080"),
		Environment:  utils.GetEnv("ENVIRONMENT", "development"),
		ReadTimeout:  time.Duration(readTimeout) * time.Second,
		WriteTimeout: time.Duration(writeTimeout) * time.Second,
		IdleTimeout:  time.Duration(idleTimeout) * time.Second,
	}
}

func loadDatabaseConfig() DatabaseConfig {
	maxOpenConns, _ := strconv.Atoi(utils.GetEnv("DB_MAX_OPEN_CONNS", "25"))
	maxIdleConns, _ := strconv.Atoi(utils.GetEnv("DB_MAX_IDLE_CONNS", "5"))
	connMaxLifetime, _ := strconv.Atoi(utils.GetEnv("DB_CONN_MAX_LIFETIME_MINUTES", "5"))

	return DatabaseConfig{
		Host:            utils.GetEnv("DB_HOST", "localhost"),
		Port:            utils.GetEnv("DB_PORT", "5432"),
		User:            utils.GetEnv("DB_USER", "postgres"),
		Password:        utils.GetEnv("DB_PASSWORD", "postgres"),
		Name:            utils.GetEnv("DB_NAME", "midnight_typer"),
		SSLMode:         utils.GetEnv("DB_SSLMODE", "disable"),
		MaxOpenConns:    maxOpenConns,
		MaxIdleConns:    maxIdleConns,
		ConnMaxLifetime: time.Duration(connMaxLifetime) * time.Minute,
		MigrationsPath:  utils.GetEnv("DB_MIGRATIONS_PATH", "migrations"),
	}
}

func loadRedisConfig() RedisConfig {
	enabled := utils.GetEnv("REDIS_ENABLED", "false") == "true"
	db, _ := strconv.Atoi(utils.GetEnv("REDIS_DB", "0"))

	return RedisConfig{
		Enabled:  enabled,
		URL:      utils.GetEnv("REDIS_URL", ""),
		Host:     utils.GetEnv("REDIS_HOST", "localhost"),
		Port:     utils.GetEnv("REDIS_PORT", "6379"),
		Password: utils.GetEnv("REDIS_PASSWORD", ""),
		DB:       db,
	}
}

func loadFrontendConfig() FrontendConfig {
	corsDebug := utils.GetEnv("CORS_DEBUG", "") == "true"

	return FrontendConfig{
		URL:       utils.GetEnv("FRONTEND_URL", "http://localhost:3000"),
		CORSDebug: corsDebug,
	}
}

func loadLoggingConfig() LoggingConfig {
	environment := utils.GetEnv("ENVIRONMENT", "development")
	jsonFormat := environment == "production"

	return LoggingConfig{
		Level:      utils.GetEnv("LOG_LEVEL", "debug"),
		Format:     utils.GetEnv("LOG_FORMAT", "text"),
		JSONFormat: jsonFormat,
	}
}

func loadRateLimitConfig() RateLimitConfig {
	enabled := utils.GetEnv("RATE_LIMIT_ENABLED", "true") == "true"
	requestsPerSecond, _ := strconv.ParseFloat(utils.GetEnv("RATE_LIMIT_REQUESTS_PER_SECOND", "10"), 64)
	burstSize, _ := strconv.Atoi(utils.GetEnv("RATE_LIMIT_BURST_SIZE", "20"))
	trustProxy := utils.GetEnv("RATE_LIMIT_TRUST_PROXY", "") == "true"

	return RateLimitConfig{
		Enabled:           enabled,
		RequestsPerSecond: requestsPerSecond,
		BurstSize:         burstSize,
		TrustProxy:        trustProxy,
	}
}

func loadClaimsConfig() ClaimsConfig {
	windowMinutes, _ := strconv.Atoi(utils.GetEnv("CLAIM_WINDOW_MINUTES", "15"))
	maxPerWindow, _ := strconv.Atoi(utils.GetEnv("CLAIM_MAX_PER_WINDOW", "5"))
	sideEffectTimeout, _ := strconv.Atoi(utils.GetEnv("CLAIM_SIDE_EFFECT_TIMEOUT_SECONDS", "10"))
	refundSlot := utils.GetEnv("CLAIM_REFUND_SLOT_ON_CANCEL", "false") == "true"

	return ClaimsConfig{
		WindowDuration:     time.Duration(windowMinutes) * time.Minute,
		MaxPerWindow:       maxPerWindow,
		SideEffectTimeout:  time.Duration(sideEffectTimeout) * time.Second,
		RefundSlotOnCancel: refundSlot,
	}
}

func loadPaymentConfig() PaymentConfig {
	frontendURL := utils.GetEnv("FRONTEND_URL", "http://localhost:3000")

	return PaymentConfig{
		SecretKey:     utils.GetEnv("STRIPE_SECRET_KEY", ""),
		WebhookSecret: utils.GetEnv("STRIPE_WEBHOOK_SECRET", ""),
		PriceID:       utils.GetEnv("STRIPE_PRICE_ID", ""),
		SuccessURL:    utils.GetEnv("PAYMENT_SUCCESS_URL", frontendURL+"/galaxy/success?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:     utils.GetEnv("PAYMENT_CANCEL_URL", frontendURL+"/galaxy"),
	}
}

func loadTreePlantingConfig() TreePlantingConfig {
	environment := utils.GetEnv("ENVIRONMENT", "development")
	enabled := environment == "production" || utils.GetEnv("TREE_PLANTING_ENABLED", "") == "true"
	timeout, _ := strconv.Atoi(utils.GetEnv("TREE_PLANTING_TIMEOUT_SECONDS", "10"))

	return TreePlantingConfig{
		Enabled:   enabled,
		APIKey:    utils.GetEnv("THEGOOD_API_KEY", ""),
		APIURL:    utils.GetEnv("THEGOOD_API_URL", "https://api.thegoodapi.com/v1/trees"),
		ProjectID: utils.GetEnv("TREE_PLANTING_PROJECT_ID", "midnight-typer-forest"),
		Timeout:   time.Duration(timeout) * time.Second,
	}
}

func loadEmailConfig() EmailConfig {
	return EmailConfig{
		APIKey: utils.GetEnv("RESEND_API_KEY", ""),
		From:   utils.GetEnv("EMAIL_FROM", "Cosmos Cartography <noreply@cosmos.cartography>"),
	}
}

func loadCertificateConfig() CertificateConfig {
	serverURL := utils.GetEnv("SERVER_URL", "http://localhost:8080")

	return CertificateConfig{
		StorageDir:    utils.GetEnv("CERTIFICATE_STORAGE_DIR", "certificates"),
		PublicBaseURL: utils.GetEnv("CERTIFICATE_PUBLIC_BASE_URL", serverURL+"/certificates"),
	}
}

func (c *Config) validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("SERVER_PORT is required")
	}

	if c.Server.URL == "" {
		return fmt.Errorf("SERVER_URL is required")
	}

	if c.Database.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}

	if c.Database.Name == "" {
		return fmt.Errorf("DB_NAME is required")
	}

	if c.Claims.WindowDuration <= 0 {
		return fmt.Errorf("CLAIM_WINDOW_MINUTES must be positive")
	}

	if c.Claims.MaxPerWindow <= 0 {
		return fmt.Errorf("CLAIM_MAX_PER_WINDOW must be positive")
	}

	if c.Server.Environment == "production" && c.Payment.SecretKey == "" {
		return fmt.Errorf("STRIPE_SECRET_KEY is required in production")
	}

	return nil
}

func (c *Config) ConnectionString() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}
