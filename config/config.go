package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	USDA          USDAConfig
	OpenFoodFacts OpenFoodFactsConfig `mapstructure:"openfoodfacts"`
	Cache         CacheConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// DatabaseConfig holds the SQLite database location
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// USDAConfig holds USDA FoodData Central API configuration
type USDAConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// OpenFoodFactsConfig holds Open Food Facts API configuration
type OpenFoodFactsConfig struct {
	SearchURL  string        `mapstructure:"search_url"`
	ProductURL string        `mapstructure:"product_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// CacheConfig holds the per-namespace cache TTLs
type CacheConfig struct {
	USDATTL          time.Duration `mapstructure:"usda_ttl"`
	OpenFoodFactsTTL time.Duration `mapstructure:"openfoodfacts_ttl"`
	CustomTTL        time.Duration `mapstructure:"custom_ttl"`
	SearchTTL        time.Duration `mapstructure:"search_ttl"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/nutriscope/")

	// Environment variable settings
	v.SetEnvPrefix("NUTRISCOPE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set default values
	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; using environment variables and defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	// Database defaults
	v.SetDefault("database.path", "./data/food-cache.db")

	// USDA defaults. The api_key default registers the key so the env
	// variable binds through Unmarshal.
	v.SetDefault("usda.api_key", "")
	v.SetDefault("usda.base_url", "https://api.nal.usda.gov/fdc/v1")
	v.SetDefault("usda.timeout", "10s")

	// Open Food Facts defaults
	v.SetDefault("openfoodfacts.search_url", "https://world.openfoodfacts.org/cgi/search.pl")
	v.SetDefault("openfoodfacts.product_url", "https://world.openfoodfacts.org/api/v2/product")
	v.SetDefault("openfoodfacts.timeout", "10s")

	// Cache TTL defaults: long for authoritative government data, medium
	// for crowd-sourced data, short for search results, long for
	// user-declared custom foods.
	v.SetDefault("cache.usda_ttl", "720h")
	v.SetDefault("cache.openfoodfacts_ttl", "168h")
	v.SetDefault("cache.custom_ttl", "2160h")
	v.SetDefault("cache.search_ttl", "24h")
}

// validate validates the configuration
func validate(config *Config) error {
	if config.USDA.APIKey == "" {
		return fmt.Errorf("USDA API key is required (set NUTRISCOPE_USDA_API_KEY)")
	}

	if config.Database.Path == "" {
		return fmt.Errorf("database path must not be empty")
	}

	for name, ttl := range map[string]time.Duration{
		"cache.usda_ttl":          config.Cache.USDATTL,
		"cache.openfoodfacts_ttl": config.Cache.OpenFoodFactsTTL,
		"cache.custom_ttl":        config.Cache.CustomTTL,
		"cache.search_ttl":        config.Cache.SearchTTL,
	} {
		if ttl <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}

	return nil
}
