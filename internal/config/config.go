package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	CORS     CORSConfig
	Auth     AuthConfig
	Export   ExportConfig
	Presets  PresetsConfig
	Search   SearchConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string
	Env  string
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string
	PoolMin  int
	PoolMax  int
}

// CORSConfig holds CORS configuration.
type CORSConfig struct {
	Origins []string
}

// AuthConfig holds Cognito token verification configuration.
// Issuer and JWKS URLs are derived from the region and user pool ID.
type AuthConfig struct {
	Region          string
	UserPoolID      string
	ClientID        string
	JWKSCacheTTLMin int
}

// ExportConfig holds CSV export limits.
type ExportConfig struct {
	MaxRows int
}

// PresetsConfig holds the location of the preset store file.
type PresetsConfig struct {
	FilePath string
}

// SearchConfig holds pagination bounds for parcel queries.
type SearchConfig struct {
	DefaultPageSize int
	MaxPageSize     int
}

// Load reads configuration from environment variables.
// It uses viper to read values and provides sensible defaults for development.
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults for development
	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_NAME", "parcelsearch")
	v.SetDefault("DB_USER", "takehome")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_POOL_MIN", 2)
	v.SetDefault("DB_POOL_MAX", 10)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173")
	v.SetDefault("AWS_REGION", "us-east-2")
	v.SetDefault("JWKS_CACHE_TTL_MINUTES", 60)
	v.SetDefault("MAX_EXPORT_ROWS", 5000)
	v.SetDefault("PRESETS_FILE", "data/user_preferences.json")
	v.SetDefault("DEFAULT_PAGE_SIZE", 1000)
	v.SetDefault("MAX_PAGE_SIZE", 10000)

	// Bind environment variables
	v.AutomaticEnv()

	// Build configuration
	cfg := &Config{
		Server: ServerConfig{
			Port: v.GetString("PORT"),
			Env:  v.GetString("ENV"),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			Name:     v.GetString("DB_NAME"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			SSLMode:  v.GetString("DB_SSLMODE"),
			PoolMin:  v.GetInt("DB_POOL_MIN"),
			PoolMax:  v.GetInt("DB_POOL_MAX"),
		},
		CORS: CORSConfig{
			Origins: parseOrigins(v.GetString("CORS_ORIGINS")),
		},
		Auth: AuthConfig{
			Region:          v.GetString("AWS_REGION"),
			UserPoolID:      v.GetString("COGNITO_USER_POOL_ID"),
			ClientID:        v.GetString("COGNITO_CLIENT_ID"),
			JWKSCacheTTLMin: v.GetInt("JWKS_CACHE_TTL_MINUTES"),
		},
		Export: ExportConfig{
			MaxRows: v.GetInt("MAX_EXPORT_ROWS"),
		},
		Presets: PresetsConfig{
			FilePath: v.GetString("PRESETS_FILE"),
		},
		Search: SearchConfig{
			DefaultPageSize: v.GetInt("DEFAULT_PAGE_SIZE"),
			MaxPageSize:     v.GetInt("MAX_PAGE_SIZE"),
		},
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration is present and valid.
func (c *Config) Validate() error {
	// Validate server config
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	// Validate database config
	if c.Database.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}
	if c.Database.Port == "" {
		return fmt.Errorf("DB_PORT is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("DB_NAME is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("DB_USER is required")
	}
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.Database.PoolMin < 0 {
		return fmt.Errorf("DB_POOL_MIN must be non-negative")
	}
	if c.Database.PoolMax < 1 {
		return fmt.Errorf("DB_POOL_MAX must be at least 1")
	}
	if c.Database.PoolMin > c.Database.PoolMax {
		return fmt.Errorf("DB_POOL_MIN must be less than or equal to DB_POOL_MAX")
	}

	// Validate CORS config
	if len(c.CORS.Origins) == 0 {
		return fmt.Errorf("CORS_ORIGINS is required")
	}

	// Validate auth config
	if c.Auth.UserPoolID == "" {
		return fmt.Errorf("COGNITO_USER_POOL_ID is required")
	}
	if c.Auth.ClientID == "" {
		return fmt.Errorf("COGNITO_CLIENT_ID is required")
	}
	if c.Auth.JWKSCacheTTLMin < 1 {
		return fmt.Errorf("JWKS_CACHE_TTL_MINUTES must be at least 1")
	}

	// Validate limits
	if c.Export.MaxRows < 1 {
		return fmt.Errorf("MAX_EXPORT_ROWS must be at least 1")
	}
	if c.Presets.FilePath == "" {
		return fmt.Errorf("PRESETS_FILE is required")
	}
	if c.Search.DefaultPageSize < 1 {
		return fmt.Errorf("DEFAULT_PAGE_SIZE must be at least 1")
	}
	if c.Search.MaxPageSize < c.Search.DefaultPageSize {
		return fmt.Errorf("MAX_PAGE_SIZE must be greater than or equal to DEFAULT_PAGE_SIZE")
	}

	return nil
}

// Issuer returns the Cognito issuer URL for the configured user pool.
func (a AuthConfig) Issuer() string {
	return fmt.Sprintf("https://cognito-idp.%s.amazonaws.com/%s", a.Region, a.UserPoolID)
}

// JWKSURL returns the JWKS document URL for the configured user pool.
func (a AuthConfig) JWKSURL() string {
	return a.Issuer() + "/.well-known/jwks.json"
}

// parseOrigins splits a comma-separated string of origins into a slice.
func parseOrigins(origins string) []string {
	if origins == "" {
		return []string{}
	}

	parts := strings.Split(origins, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
