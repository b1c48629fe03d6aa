package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const devJWTSecret = "default_super_secret_key"

// Config holds every runtime setting of the API server and the CLI
type Config struct {
	Port    string `mapstructure:"port"`
	GinMode string `mapstructure:"gin_mode"`

	DBHost     string `mapstructure:"db_host"`
	DBPort     string `mapstructure:"db_port"`
	DBUser     string `mapstructure:"db_user"`
	DBPassword string `mapstructure:"db_password"`
	DBName     string `mapstructure:"db_name"`
	DBSSLMode  string `mapstructure:"db_sslmode"`

	JWTSecret       string        `mapstructure:"jwt_secret"`
	AccessTokenTTL  time.Duration `mapstructure:"access_token_ttl"`
	RefreshTokenTTL time.Duration `mapstructure:"refresh_token_ttl"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	RedisAddr          string        `mapstructure:"redis_addr"`
	RedisPassword      string        `mapstructure:"redis_password"`
	RedisDB            int           `mapstructure:"redis_db"`
	PermissionCacheTTL time.Duration `mapstructure:"permission_cache_ttl"`

	CORSOrigins string `mapstructure:"cors_origins"`

	SeedOnStart       bool   `mapstructure:"seed_on_start"`
	SeedAdminEmail    string `mapstructure:"seed_admin_email"`
	SeedAdminPassword string `mapstructure:"seed_admin_password"`
	SeedAdminName     string `mapstructure:"seed_admin_name"`
}

// Load reads configs/.env (if present) and the process environment.
// Environment variables win over the .env file.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{"configs/.env"}
	}
	// a missing .env is fine: containers get their settings from the environment
	_ = godotenv.Load(envFiles...)

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if cfg.JWTSecret == "" {
		if cfg.IsRelease() {
			return nil, fmt.Errorf("JWT_SECRET is required in release mode")
		}
		cfg.JWTSecret = devJWTSecret
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	defaults := map[string]interface{}{
		"port":                 "8080",
		"gin_mode":             "debug",
		"db_host":              "localhost",
		"db_port":              "5432",
		"db_user":              "postgres",
		"db_password":          "postgres",
		"db_name":              "zyllen",
		"db_sslmode":           "disable",
		"jwt_secret":           "",
		"access_token_ttl":     15 * time.Minute,
		"refresh_token_ttl":    7 * 24 * time.Hour,
		"log_level":            "info",
		"log_format":           "json",
		"redis_addr":           "",
		"redis_password":       "",
		"redis_db":             0,
		"permission_cache_ttl": 5 * time.Minute,
		"cors_origins":         "http://localhost:3000,http://localhost:5173",
		"seed_on_start":        false,
		"seed_admin_email":     "admin@zyllen.com",
		"seed_admin_password":  "admin123",
		"seed_admin_name":      "Administrador",
	}
	for key, value := range defaults {
		// BindEnv makes AutomaticEnv keys visible to Unmarshal
		_ = v.BindEnv(key, strings.ToUpper(key))
		v.SetDefault(key, value)
	}
}

// DSN builds the postgres connection URL
func (c *Config) DSN() string {
	return "postgres://" + c.DBUser + ":" + c.DBPassword + "@" + c.DBHost + ":" + c.DBPort + "/" + c.DBName + "?sslmode=" + c.DBSSLMode
}

// IsRelease reports whether gin runs in release mode
func (c *Config) IsRelease() bool {
	return c.GinMode == "release"
}

// AllowedOrigins splits CORS_ORIGINS into a list
func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
