// ============================================================================
// backend/internal/shared/config.go
// Environment-driven configuration for the gateway, seeder and CLI
// ============================================================================

package shared

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultHTTPPort          = "8080"
	DefaultHealthPort        = "50054"
	DefaultDatabaseName      = "GradeFetch"
	DefaultCalendarFile      = "config/grading_periods.yaml"
	DefaultSchoolTimezone    = "America/Chicago"
	DefaultLowScoreThreshold = 70.0
	DefaultRequestTimeout    = 10 * time.Second
)

// ServiceConfig is what every binary reads from the environment.
type ServiceConfig struct {
	ServiceName string
	Environment string // development, staging, production

	MongoDB MongoConfig
	Grading GradingConfig

	// Upper bound on one engine query, storage round trips included
	RequestTimeout time.Duration
}

// GradingConfig names the school calendar and alert defaults.
type GradingConfig struct {
	CalendarFile      string
	SchoolTimezone    string
	LowScoreThreshold float64
}

// GatewayConfig adds the listeners and CORS policy of the HTTP gateway.
type GatewayConfig struct {
	ServiceConfig
	HTTPPort   string
	HealthPort string

	CORS CORSConfig
}

// CORSConfig is handed to go-chi/cors as is.
type CORSConfig struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	AllowCredentials bool
	MaxAge           int // seconds
}

// ============================================================================
// Loading
// ============================================================================

// LoadEnv loads variables from a .env file into the process environment.
// Variables already set win. A missing file is reported but not fatal for callers.
func LoadEnv(envFile string) error {
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		log.Printf("WARN: %s file not found, using system environment variables", envFile)
		return err
	}
	log.Printf("INFO: Loaded environment from %s", envFile)
	return nil
}

// LoadServiceConfig reads the common configuration. MONGO_URI is only
// required when requireMongo is set; the CLI can run from fixtures instead.
func LoadServiceConfig(serviceName string, requireMongo bool) (*ServiceConfig, error) {
	uri := GetEnv("MONGO_URI", "")
	if requireMongo {
		if err := RequireEnv("MONGO_URI"); err != nil {
			return nil, err
		}
	}

	return &ServiceConfig{
		ServiceName:    serviceName,
		Environment:    strings.ToLower(GetEnv("ENVIRONMENT", "development")),
		RequestTimeout: GetDurationEnv("REQUEST_TIMEOUT", DefaultRequestTimeout),
		MongoDB: MongoConfig{
			URI:            uri,
			Database:       GetEnv("MONGO_DB_NAME", DefaultDatabaseName),
			ConnectTimeout: GetDurationEnv("MONGO_CONNECT_TIMEOUT", 20*time.Second),
			MaxPoolSize:    uint64(GetIntEnv("MONGO_MAX_POOL_SIZE", 20)),
			MinPoolSize:    uint64(GetIntEnv("MONGO_MIN_POOL_SIZE", 2)),
			MaxIdleTime:    GetDurationEnv("MONGO_MAX_IDLE_TIME", time.Minute),
		},
		Grading: GradingConfig{
			CalendarFile:      GetEnv("CALENDAR_FILE", DefaultCalendarFile),
			SchoolTimezone:    GetEnv("SCHOOL_TIMEZONE", DefaultSchoolTimezone),
			LowScoreThreshold: GetFloatEnv("LOW_SCORE_THRESHOLD", DefaultLowScoreThreshold),
		},
	}, nil
}

// LoadGatewayConfig reads the service configuration plus listeners and CORS.
func LoadGatewayConfig() (*GatewayConfig, error) {
	base, err := LoadServiceConfig("gateway", true)
	if err != nil {
		return nil, err
	}

	return &GatewayConfig{
		ServiceConfig: *base,
		HTTPPort:      GetEnv("HTTP_PORT", DefaultHTTPPort),
		HealthPort:    GetEnv("HEALTH_PORT", DefaultHealthPort),
		CORS: CORSConfig{
			AllowedOrigins:   GetStringSliceEnv("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
			AllowedMethods:   GetStringSliceEnv("CORS_ALLOWED_METHODS", []string{"GET", "OPTIONS"}),
			AllowedHeaders:   GetStringSliceEnv("CORS_ALLOWED_HEADERS", []string{"Content-Type"}),
			AllowCredentials: GetBoolEnv("CORS_ALLOW_CREDENTIALS", false),
			MaxAge:           GetIntEnv("CORS_MAX_AGE", 300),
		},
	}, nil
}

// LoadLocation resolves the configured school timezone.
func (c GradingConfig) LoadLocation() (*time.Location, error) {
	loc, err := time.LoadLocation(c.SchoolTimezone)
	if err != nil {
		return nil, fmt.Errorf("invalid SCHOOL_TIMEZONE %q: %w", c.SchoolTimezone, err)
	}
	return loc, nil
}

// ============================================================================
// Environment Variable Helpers
// ============================================================================

// envValue parses key with parse. Unset keys and unparsable values yield
// defaultValue; the latter is logged.
func envValue[T any](key string, defaultValue T, parse func(string) (T, error)) T {
	raw, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return defaultValue
	}
	value, err := parse(strings.TrimSpace(raw))
	if err != nil {
		log.Printf("WARN: Invalid value for %s: %q, using default: %v", key, raw, defaultValue)
		return defaultValue
	}
	return value
}

// GetEnv retrieves an environment variable or returns a default value
func GetEnv(key, defaultValue string) string {
	return envValue(key, defaultValue, func(s string) (string, error) { return s, nil })
}

func GetIntEnv(key string, defaultValue int) int {
	return envValue(key, defaultValue, strconv.Atoi)
}

func GetFloatEnv(key string, defaultValue float64) float64 {
	return envValue(key, defaultValue, func(s string) (float64, error) { return strconv.ParseFloat(s, 64) })
}

func GetBoolEnv(key string, defaultValue bool) bool {
	return envValue(key, defaultValue, strconv.ParseBool)
}

// GetDurationEnv reads a Go duration such as "30s" or "5m".
func GetDurationEnv(key string, defaultValue time.Duration) time.Duration {
	return envValue(key, defaultValue, time.ParseDuration)
}

// GetStringSliceEnv reads a comma-separated list, dropping empty items.
func GetStringSliceEnv(key string, defaultValue []string) []string {
	return envValue(key, defaultValue, func(s string) ([]string, error) {
		var items []string
		for _, part := range strings.Split(s, ",") {
			if item := strings.TrimSpace(part); item != "" {
				items = append(items, item)
			}
		}
		if len(items) == 0 {
			return nil, errors.New("empty list")
		}
		return items, nil
	})
}

// RequireEnv reports every key in keys that is unset or blank.
func RequireEnv(keys ...string) error {
	var missing []string
	for _, key := range keys {
		if strings.TrimSpace(os.Getenv(key)) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return nil
}

// ============================================================================
// Validation
// ============================================================================

// ValidateServiceConfig checks the grading inputs and, when a URI is set, the database.
func ValidateServiceConfig(config *ServiceConfig) error {
	var errs []error
	if config.ServiceName == "" {
		errs = append(errs, errors.New("service name is required"))
	}
	if config.MongoDB.URI != "" && config.MongoDB.Database == "" {
		errs = append(errs, errors.New("MONGO_DB_NAME is required"))
	}
	if config.Grading.CalendarFile == "" {
		errs = append(errs, errors.New("CALENDAR_FILE is required"))
	}
	if t := config.Grading.LowScoreThreshold; t < 0 || t > 100 {
		errs = append(errs, fmt.Errorf("LOW_SCORE_THRESHOLD must be between 0 and 100, got %g", t))
	}
	if config.RequestTimeout <= 0 {
		errs = append(errs, errors.New("REQUEST_TIMEOUT must be positive"))
	}
	if _, err := config.Grading.LoadLocation(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ValidateGatewayConfig also requires Mongo and two distinct listener ports.
func ValidateGatewayConfig(config *GatewayConfig) error {
	errs := []error{ValidateServiceConfig(&config.ServiceConfig)}
	if config.MongoDB.URI == "" {
		errs = append(errs, errors.New("MONGO_URI is required"))
	}
	if config.HTTPPort == "" || config.HealthPort == "" {
		errs = append(errs, errors.New("HTTP_PORT and HEALTH_PORT are required"))
	} else if config.HTTPPort == config.HealthPort {
		errs = append(errs, fmt.Errorf("HTTP_PORT and HEALTH_PORT must differ, both are %s", config.HTTPPort))
	}
	return errors.Join(errs...)
}

// ============================================================================
// Display
// ============================================================================

// IsDevelopment reports whether ENVIRONMENT is development.
func IsDevelopment(config *ServiceConfig) bool {
	return config.Environment == "development"
}

// PrintConfig logs the effective configuration. The Mongo URI is never printed.
func PrintConfig(config *ServiceConfig) {
	log.Printf("INFO: [%s] environment=%s timeout=%v", config.ServiceName, config.Environment, config.RequestTimeout)
	log.Printf("INFO: [%s] mongo database=%s pool=%d-%d", config.ServiceName,
		config.MongoDB.Database, config.MongoDB.MinPoolSize, config.MongoDB.MaxPoolSize)
	log.Printf("INFO: [%s] calendar=%s timezone=%s low_score=%g", config.ServiceName,
		config.Grading.CalendarFile, config.Grading.SchoolTimezone, config.Grading.LowScoreThreshold)
}

// PrintGatewayConfig logs the gateway configuration.
func PrintGatewayConfig(config *GatewayConfig) {
	PrintConfig(&config.ServiceConfig)
	log.Printf("INFO: [%s] http=:%s health=:%s", config.ServiceName, config.HTTPPort, config.HealthPort)
	log.Printf("INFO: [%s] cors origins=%v methods=%v credentials=%t", config.ServiceName,
		config.CORS.AllowedOrigins, config.CORS.AllowedMethods, config.CORS.AllowCredentials)
}
