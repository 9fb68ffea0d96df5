package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/case-enrichment-etl/internal/domain"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Cache backends.
const (
	CacheMemory   = "memory"
	CacheRedis    = "redis"
	CacheSQLite   = "sqlite"
	CachePostgres = "postgres"
)

// Providers.
const (
	GeocoderMapbox = "mapbox"
	GeocoderGoogle = "google"

	WeatherDarkSky   = "darksky"
	WeatherOpenMeteo = "openmeteo"
)

// Config holds all run settings, populated from environment variables.
type Config struct {
	InputPath       string
	OutputPath      string
	LogLevel        string
	LogFormat       string
	MetricsAddr     string
	PushgatewayURL  string
	ShutdownTimeout time.Duration
	Concurrency     int

	// Cache configuration.
	CacheBackend     string
	CacheKeyPrefix   string
	CacheMemorySize  int
	RedisURL         string
	CacheSQLitePath  string
	CacheDatabaseURL string

	// Remote lookups.
	LookupTimeout   time.Duration
	RateLimitRPS    float64
	BreakerFailures int

	Geocoder         string
	MapboxToken      string
	GoogleAPIKey     string
	WeatherProvider  string
	WeatherAPIKey    string
	WeatherBaseURL   string
	CountriesBaseURL string

	// Enrichment rules.
	WindowMonth      time.Time
	WindowHour       int
	MinTotalCases    float64
	RowCasesFloor    float64
	CapitalOverrides domain.CapitalOverrides

	// Optional Kafka record sink; disabled when no brokers are set.
	KafkaBrokers []string
	KafkaTopic   string
}

// Load reads configuration from environment variables, applying defaults where unset.
// A .env file in the working directory is loaded first when present; variables
// already set in the environment take precedence.
func Load() (*Config, error) {
	return load(true)
}

// LoadWithoutCredentials is Load minus the provider credential checks, for runs
// that never call a provider.
func LoadWithoutCredentials() (*Config, error) {
	return load(false)
}

func load(requireCredentials bool) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	lookupTimeout, err := parsePositiveDuration("LOOKUP_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	concurrency, err := parsePositiveInt("CONCURRENCY", 1)
	if err != nil {
		return nil, err
	}
	memorySize, err := parsePositiveInt("CACHE_MEMORY_SIZE", 10000)
	if err != nil {
		return nil, err
	}
	breakerFailures, err := parsePositiveInt("BREAKER_FAILURES", 5)
	if err != nil {
		return nil, err
	}

	rps, err := strconv.ParseFloat(sharedcfg.EnvOrDefault("RATE_LIMIT_RPS", "5"), 64)
	if err != nil || rps <= 0 {
		return nil, errors.New("invalid RATE_LIMIT_RPS")
	}
	minTotal, err := strconv.ParseFloat(sharedcfg.EnvOrDefault("MIN_TOTAL_CASES", strconv.Itoa(domain.DefaultMinTotalCases)), 64)
	if err != nil || minTotal < 0 {
		return nil, errors.New("invalid MIN_TOTAL_CASES")
	}
	floor, err := strconv.ParseFloat(sharedcfg.EnvOrDefault("ROW_CASES_FLOOR", "4"), 64)
	if err != nil || floor < 0 {
		return nil, errors.New("invalid ROW_CASES_FLOOR")
	}

	month, err := domain.ParseMonth(sharedcfg.EnvOrDefault("WEATHER_WINDOW_MONTH", "2020-02"))
	if err != nil {
		return nil, errors.New("invalid WEATHER_WINDOW_MONTH")
	}
	hour, err := strconv.Atoi(sharedcfg.EnvOrDefault("WEATHER_WINDOW_HOUR", "12"))
	if err != nil || hour < 0 || hour > 23 {
		return nil, errors.New("invalid WEATHER_WINDOW_HOUR")
	}

	overrides, err := LoadCapitalOverrides(os.Getenv("CAPITAL_OVERRIDES_FILE"))
	if err != nil {
		return nil, err
	}

	var brokers []string
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		brokers = sharedcfg.ParseBrokers(v)
	}

	cfg := &Config{
		InputPath:       sharedcfg.EnvOrDefault("INPUT_PATH", "full_data.csv"),
		OutputPath:      sharedcfg.EnvOrDefault("OUTPUT_PATH", "result.csv"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		MetricsAddr:     os.Getenv("METRICS_ADDR"),
		PushgatewayURL:  os.Getenv("PUSHGATEWAY_URL"),
		ShutdownTimeout: shutdownTimeout,
		Concurrency:     concurrency,

		CacheBackend:     strings.ToLower(sharedcfg.EnvOrDefault("CACHE_BACKEND", CacheRedis)),
		CacheKeyPrefix:   sharedcfg.EnvOrDefault("CACHE_KEY_PREFIX", "enrich:"),
		CacheMemorySize:  memorySize,
		RedisURL:         sharedcfg.EnvOrDefault("REDIS_URL", "redis://localhost:6379/0"),
		CacheSQLitePath:  sharedcfg.EnvOrDefault("CACHE_SQLITE_PATH", "cache.db"),
		CacheDatabaseURL: os.Getenv("CACHE_DATABASE_URL"),

		LookupTimeout:   lookupTimeout,
		RateLimitRPS:    rps,
		BreakerFailures: breakerFailures,

		Geocoder:         strings.ToLower(sharedcfg.EnvOrDefault("GEOCODER", GeocoderMapbox)),
		MapboxToken:      os.Getenv("MAPBOX_TOKEN"),
		GoogleAPIKey:     os.Getenv("GOOGLE_API_KEY"),
		WeatherProvider:  strings.ToLower(sharedcfg.EnvOrDefault("WEATHER_PROVIDER", WeatherDarkSky)),
		WeatherAPIKey:    os.Getenv("WEATHER_API_KEY"),
		WeatherBaseURL:   os.Getenv("WEATHER_BASE_URL"),
		CountriesBaseURL: sharedcfg.EnvOrDefault("COUNTRIES_BASE_URL", "https://restcountries.com/v3.1"),

		WindowMonth:      month,
		WindowHour:       hour,
		MinTotalCases:    minTotal,
		RowCasesFloor:    floor,
		CapitalOverrides: overrides,

		KafkaBrokers: brokers,
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "enriched-countries"),
	}

	if err := cfg.validate(requireCredentials); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate(requireCredentials bool) error {
	switch c.CacheBackend {
	case CacheMemory, CacheRedis, CacheSQLite:
	case CachePostgres:
		if c.CacheDatabaseURL == "" {
			return errors.New("CACHE_BACKEND is postgres but CACHE_DATABASE_URL is not set")
		}
	default:
		return fmt.Errorf("invalid CACHE_BACKEND %q", c.CacheBackend)
	}

	switch c.Geocoder {
	case GeocoderMapbox:
		if requireCredentials && c.MapboxToken == "" {
			return errors.New("GEOCODER is mapbox but MAPBOX_TOKEN is not set")
		}
	case GeocoderGoogle:
		if requireCredentials && c.GoogleAPIKey == "" {
			return errors.New("GEOCODER is google but GOOGLE_API_KEY is not set")
		}
	default:
		return fmt.Errorf("invalid GEOCODER %q", c.Geocoder)
	}

	switch c.WeatherProvider {
	case WeatherDarkSky:
		if requireCredentials && c.WeatherAPIKey == "" {
			return errors.New("WEATHER_PROVIDER is darksky but WEATHER_API_KEY is not set")
		}
	case WeatherOpenMeteo:
	default:
		return fmt.Errorf("invalid WEATHER_PROVIDER %q", c.WeatherProvider)
	}

	if c.KafkaEnabled() && c.KafkaTopic == "" {
		return errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}
	return nil
}

// KafkaEnabled reports whether the Kafka record sink is configured.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// LoadCapitalOverrides reads a YAML map of country label to capital and merges
// it over the built-in overrides. An empty path returns the built-ins.
func LoadCapitalOverrides(path string) (domain.CapitalOverrides, error) {
	defaults := domain.DefaultCapitalOverrides()
	if path == "" {
		return defaults, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read CAPITAL_OVERRIDES_FILE: %w", err)
	}

	var extra map[string]string
	if err := yaml.Unmarshal(data, &extra); err != nil {
		return nil, fmt.Errorf("parse CAPITAL_OVERRIDES_FILE: %w", err)
	}
	return defaults.Merge(extra), nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parsePositiveInt(key string, def int) (int, error) {
	n, err := strconv.Atoi(sharedcfg.EnvOrDefault(key, strconv.Itoa(def)))
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}
