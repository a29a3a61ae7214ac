package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Env holds process-level settings read from the environment.
type Env struct {
	ConfigPath  string `envconfig:"CONFIG" default:"config.toml"`
	MarketsPath string `envconfig:"MARKETS" default:"data/markets.toml"`
	DBDriver    string `envconfig:"DB_DRIVER" default:"sqlite"`
	DBDSN       string `envconfig:"DB_DSN" default:"data/nascraft.db"`
	APIPort     int    `envconfig:"API_PORT" default:"8080"`
	AdminKey    string `envconfig:"ADMIN_KEY"`
}

// LoadEnv reads NASCRAFT_* variables, after loading .env when present.
func LoadEnv() (*Env, error) {
	_ = godotenv.Load()

	var env Env
	if err := envconfig.Process("nascraft", &env); err != nil {
		return nil, err
	}
	return &env, nil
}

// WatchEnv configures the market steward.
type WatchEnv struct {
	APIURL    string        `envconfig:"API_URL" default:"http://localhost:8080"`
	AdminKey  string        `envconfig:"ADMIN_KEY"`
	Interval  time.Duration `envconfig:"WATCH_INTERVAL" default:"1m"`
	Threshold float64       `envconfig:"WATCH_THRESHOLD" default:"25"` // percent
	DryRun    bool          `envconfig:"WATCH_DRY_RUN"`
}

// LoadWatchEnv reads the steward's NASCRAFT_* variables.
func LoadWatchEnv() (*WatchEnv, error) {
	_ = godotenv.Load()

	var env WatchEnv
	if err := envconfig.Process("nascraft", &env); err != nil {
		return nil, err
	}
	return &env, nil
}
