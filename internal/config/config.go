package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server config
	Server ServerConfig

	// CSRF config
	Security SecurityConfig

	// Gemini + Wikipedia config
	APIs APIConfig

	// gallery database, optional
	Database DatabaseConfig

	// upload and cache limits
	Limits LimitsConfig

	LogLevel slog.Level
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            string
	Environment     string // development, staging, production
	BaseURL         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// Addr returns the listen address for http.Server.
func (s ServerConfig) Addr() string {
	if strings.HasPrefix(s.Port, ":") {
		return s.Port
	}
	return ":" + s.Port
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	CSRFSecret     string
	TrustedOrigins []string
	SecureCookies  bool // true in production
}

// APIConfig holds external API configuration.
type APIConfig struct {
	// GoogleAPIKey may be empty at startup. The identify endpoint reports
	// the missing key per request instead of refusing to boot.
	GoogleAPIKey         string
	GeminiModel          string
	GeminiTimeout        time.Duration
	WikipediaBaseURL     string
	SpeciesImagesEnabled bool
}

// DatabaseConfig holds PostgreSQL connection settings.
// An empty URL disables the sightings gallery.
type DatabaseConfig struct {
	URL string
}

// Enabled reports whether a database was configured.
func (d DatabaseConfig) Enabled() bool {
	return d.URL != ""
}

// LimitsConfig holds upload and cache settings.
type LimitsConfig struct {
	MaxUploadBytes   int64
	IdentifyCacheTTL time.Duration
	GalleryPageSize  int
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

func Load() (*Config, error) {
	// .env is a local development convenience, a missing file is fine
	_ = godotenv.Load()

	cfg := &Config{}
	var errs []error

	cfg.Server = ServerConfig{
		Port:            getEnvOrDefault("SERVER_PORT", "8080"),
		Environment:     getEnvOrDefault("APP_ENV", "development"),
		BaseURL:         getEnvOrDefault("BASE_URL", "http://localhost:8080"),
		ReadTimeout:     getDuration("SERVER_READ_TIMEOUT", 15*time.Second, &errs),
		WriteTimeout:    getDuration("SERVER_WRITE_TIMEOUT", 90*time.Second, &errs),
		IdleTimeout:     getDuration("SERVER_IDLE_TIMEOUT", 60*time.Second, &errs),
		ShutdownTimeout: getDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second, &errs),
	}

	cfg.Security = SecurityConfig{
		CSRFSecret:     os.Getenv("CSRF_SECRET"),
		TrustedOrigins: strings.Fields(getEnvOrDefault("CSRF_TRUSTED_ORIGINS", "")),
		SecureCookies:  cfg.Server.Environment == "production",
	}
	if cfg.Security.CSRFSecret == "" && cfg.IsDevelopment() {
		cfg.Security.CSRFSecret = randomSecret()
	}

	cfg.APIs = APIConfig{
		GoogleAPIKey:         strings.TrimSpace(os.Getenv("GOOGLE_API_KEY")),
		GeminiModel:          getEnvOrDefault("GEMINI_MODEL", "gemini-1.5-flash"),
		GeminiTimeout:        getDuration("GEMINI_TIMEOUT", 60*time.Second, &errs),
		WikipediaBaseURL:     strings.TrimRight(getEnvOrDefault("WIKIPEDIA_API_BASE_URL", "https://en.wikipedia.org/api/rest_v1"), "/"),
		SpeciesImagesEnabled: getBool("SPECIES_IMAGES_ENABLED", true, &errs),
	}

	cfg.Database = DatabaseConfig{
		URL: os.Getenv("DATABASE_URL"),
	}

	maxUploadMB := getInt("MAX_UPLOAD_MB", 10, &errs)
	cfg.Limits = LimitsConfig{
		MaxUploadBytes:   int64(maxUploadMB) << 20,
		IdentifyCacheTTL: getDuration("IDENTIFY_CACHE_TTL", 30*time.Minute, &errs),
		GalleryPageSize:  getInt("GALLERY_PAGE_SIZE", 24, &errs),
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(getEnvOrDefault("LOG_LEVEL", "info"))); err != nil {
		errs = append(errs, fmt.Errorf("invalid LOG_LEVEL: %w", err))
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration parsing failed:\n%w", errors.Join(errs...))
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate checks that all required configuration is present and valid.
func (c *Config) validate() error {
	var errs []error

	// CSRF secret must be set and sufficiently long
	if c.Security.CSRFSecret == "" {
		errs = append(errs, errors.New("CSRF_SECRET is required"))
	} else if len(c.Security.CSRFSecret) < 32 {
		errs = append(errs, errors.New("CSRF_SECRET must be at least 32 characters"))
	}

	if strings.TrimSpace(c.APIs.GeminiModel) == "" {
		errs = append(errs, errors.New("GEMINI_MODEL must not be empty"))
	}

	if c.Limits.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("MAX_UPLOAD_MB must be positive"))
	}
	if c.Limits.IdentifyCacheTTL < 0 {
		errs = append(errs, errors.New("IDENTIFY_CACHE_TTL must not be negative"))
	}
	if c.Limits.GalleryPageSize < 1 || c.Limits.GalleryPageSize > 100 {
		errs = append(errs, errors.New("GALLERY_PAGE_SIZE must be between 1 and 100"))
	}

	// Validate environment is a known value
	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.Server.Environment] {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of: development, staging, production (got: %s)", c.Server.Environment))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n%w", errors.Join(errs...))
	}

	return nil
}

// getEnvOrDefault returns the .env value or a default.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration, errs *[]error) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
		return defaultValue
	}
	return d
}

func getInt(key string, defaultValue int, errs *[]error) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
		return defaultValue
	}
	return n
}

func getBool(key string, defaultValue bool, errs *[]error) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
		return defaultValue
	}
	return b
}

// randomSecret generates a throwaway CSRF key for local development.
// Tokens issued with it do not survive a restart.
func randomSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("failed to generate CSRF secret: %v", err))
	}
	return hex.EncodeToString(b)
}

// MustLoad is like Load but panics on error.
// Used in main() where its required to fail fast
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}
