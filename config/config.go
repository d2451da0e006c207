// Package config loads application settings from a .env file and environment variables.
// Environment variables always take precedence over .env file values.
package config

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration. The same SQLite file carries
// the raw archive and every normalized table, so DBPath is the only
// storage setting.
type Config struct {
	// Path to the SQLite database file.
	DBPath string

	// JWT signing secret (required by the API server).
	JWTSecret string

	// Server
	Debug bool
	Port  string
}

// Load reads configuration for the API server from a .env file (if
// present) and then from environment variables. Environment variables
// always win.
func Load() *Config {
	cfg := load()
	if cfg.JWTSecret == "" {
		log.Fatal("config: JWT_SECRET must be set")
	}
	return cfg
}

// LoadBatch reads configuration for the batch tools (rebuild, inspect,
// adduser), which touch the database but serve no HTTP and need no JWT
// secret.
func LoadBatch() *Config {
	return load()
}

func load() *Config {
	v := newViper()

	v.SetDefault("DB_PATH", "jv_data.db")
	v.SetDefault("PORT", ":9000")
	v.SetDefault("DEBUG", false)

	return &Config{
		DBPath:    v.GetString("DB_PATH"),
		JWTSecret: v.GetString("JWT_SECRET"),
		Debug:     v.GetBool("DEBUG"),
		Port:      v.GetString("PORT"),
	}
}

// JWTKey returns the JWT signing key as a byte slice.
func (c *Config) JWTKey() []byte {
	return []byte(c.JWTSecret)
}

func newViper() *viper.Viper {
	// Silently load .env – OK if the file doesn't exist (production uses real env vars).
	if err := godotenv.Load(); err != nil {
		log.Println("config: no .env file found, using environment variables only")
	}

	v := viper.New()
	v.AutomaticEnv()
	return v
}
