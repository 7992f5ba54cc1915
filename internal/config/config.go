package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"genieq-api/internal/pkg/jwt"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	AppMode   string
	Port      string
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Cookie    CookieConfig
	Gateway   GatewayConfig
	Reconcile ReconcileConfig
	SeedData  bool
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

// RedisConfig holds the staging store connection. An empty Addr selects the
// in-process store.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret           string
	AccessTokenMins  int
	RefreshTokenDays int
}

// AccessTTL returns the access token lifetime
func (j JWTConfig) AccessTTL() time.Duration {
	return time.Duration(j.AccessTokenMins) * time.Minute
}

// RefreshTTL returns the refresh token lifetime
func (j JWTConfig) RefreshTTL() time.Duration {
	return time.Duration(j.RefreshTokenDays) * 24 * time.Hour
}

// CookieConfig holds cookie configuration
type CookieConfig struct {
	Secure bool
	Domain string
}

// GatewayConfig holds the card gateway settings
type GatewayConfig struct {
	BaseURL        string
	SecretKey      string
	TimeoutSeconds int
	WebhookSecret  string
}

// Timeout returns the per-call gateway timeout
func (g GatewayConfig) Timeout() time.Duration {
	return time.Duration(g.TimeoutSeconds) * time.Second
}

// ReconcileConfig holds the stuck-payment sweep settings
type ReconcileConfig struct {
	Enabled       bool
	Schedule      string
	MinAgeMinutes int
}

// MinAge returns how old a PROCESSING record must be before the sweep looks at it
func (r ReconcileConfig) MinAge() time.Duration {
	return time.Duration(r.MinAgeMinutes) * time.Minute
}

// Global config instance
var AppConfig *Config

// Load reads configuration from .env file and environment variables
func Load() (*Config, error) {
	// Load .env file (ignore error if file doesn't exist in production)
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	// Trim spaces for Windows compatibility
	appMode := strings.TrimSpace(getEnv("APP_MODE", "dev"))
	if appMode != "dev" && appMode != "prod" {
		return nil, fmt.Errorf("invalid APP_MODE: '%s' (must be 'dev' or 'prod')", appMode)
	}

	config := &Config{
		AppMode:   appMode,
		Port:      getEnv("PORT", "3000"),
		Database:  loadDatabaseConfig(appMode),
		Redis:     loadRedisConfig(),
		JWT:       loadJWTConfig(appMode),
		Cookie:    loadCookieConfig(appMode),
		Gateway:   loadGatewayConfig(),
		Reconcile: loadReconcileConfig(),
		SeedData:  getBool("SEED_DATA", appMode == "dev"),
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	AppConfig = config

	log.Printf("✅ Configuration loaded successfully [MODE: %s]", appMode)
	return config, nil
}

func (c *Config) validate() error {
	if len(c.JWT.Secret) < jwt.MinSecretLength {
		return fmt.Errorf("%sJWT_SECRET must be at least %d characters", c.prefix(), jwt.MinSecretLength)
	}
	if c.JWT.AccessTokenMins <= 0 || c.JWT.RefreshTokenDays <= 0 {
		return fmt.Errorf("ACCESS_TOKEN_MINUTES and REFRESH_TOKEN_DAYS must be positive")
	}
	if c.Gateway.TimeoutSeconds <= 0 {
		return fmt.Errorf("GATEWAY_TIMEOUT_SECONDS must be positive")
	}
	if c.IsProd() && c.Gateway.SecretKey == "" {
		return fmt.Errorf("TOSS_SECRET_KEY is required in prod")
	}
	if c.IsProd() && !c.Cookie.Secure {
		return fmt.Errorf("PROD_COOKIE_SECURE cannot be false in prod")
	}
	return nil
}

func (c *Config) prefix() string {
	return modePrefix(c.AppMode)
}

func modePrefix(mode string) string {
	if mode == "prod" {
		return "PROD_"
	}
	return "DEV_"
}

// loadDatabaseConfig loads database config based on mode
func loadDatabaseConfig(mode string) DatabaseConfig {
	prefix := modePrefix(mode)

	return DatabaseConfig{
		Host:     getEnv(prefix+"DB_HOST", "localhost"),
		Port:     getEnv(prefix+"DB_PORT", "3306"),
		User:     getEnv(prefix+"DB_USER", "root"),
		Password: getEnv(prefix+"DB_PASS", ""),
		DBName:   getEnv(prefix+"DB_NAME", "genieq"),
	}
}

func loadRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:     getEnv("REDIS_ADDR", ""),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       getInt("REDIS_DB", 0),
	}
}

// loadJWTConfig loads JWT config based on mode
func loadJWTConfig(mode string) JWTConfig {
	return JWTConfig{
		Secret:           getEnv(modePrefix(mode)+"JWT_SECRET", ""),
		AccessTokenMins:  getInt("ACCESS_TOKEN_MINUTES", 15),
		RefreshTokenDays: getInt("REFRESH_TOKEN_DAYS", 7),
	}
}

// loadCookieConfig loads cookie config based on mode. Only dev may switch
// Secure off; validate rejects it in prod.
func loadCookieConfig(mode string) CookieConfig {
	return CookieConfig{
		Secure: getBool(modePrefix(mode)+"COOKIE_SECURE", true),
		Domain: getEnv("COOKIE_DOMAIN", ""),
	}
}

func loadGatewayConfig() GatewayConfig {
	return GatewayConfig{
		BaseURL:        strings.TrimRight(getEnv("TOSS_BASE_URL", "https://api.tosspayments.com"), "/"),
		SecretKey:      getEnv("TOSS_SECRET_KEY", ""),
		TimeoutSeconds: getInt("GATEWAY_TIMEOUT_SECONDS", 10),
		WebhookSecret:  getEnv("TOSS_WEBHOOK_SECRET", ""),
	}
}

func loadReconcileConfig() ReconcileConfig {
	return ReconcileConfig{
		Enabled:       getBool("RECONCILE_ENABLED", true),
		Schedule:      getEnv("RECONCILE_SCHEDULE", "@every 5m"),
		MinAgeMinutes: getInt("RECONCILE_MIN_AGE_MINUTES", 10),
	}
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	n, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return n
}

func getBool(key string, defaultValue bool) bool {
	b, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return b
}

// IsDev returns true if running in development mode
func (c *Config) IsDev() bool {
	return c.AppMode == "dev"
}

// IsProd returns true if running in production mode
func (c *Config) IsProd() bool {
	return c.AppMode == "prod"
}

// GetAllowedOrigins returns allowed origins for CORS
func (c *Config) GetAllowedOrigins() string {
	origins := getEnv("ALLOWED_ORIGINS", "")
	if origins == "" {
		if c.IsDev() {
			return "*"
		}
		return "https://genieq.app"
	}
	return origins
}
