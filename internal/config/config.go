// Package config loads simulator settings from YAML with environment
// overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/umuterturk/investment-game/internal/clock"
	"github.com/umuterturk/investment-game/internal/params"
)

type Config struct {
	Game    GameConfig    `yaml:"game" json:"game"`
	Player  PlayerConfig  `yaml:"player" json:"player"`
	Loop    LoopConfig    `yaml:"loop" json:"loop"`
	Storage StorageConfig `yaml:"storage" json:"storage"`
	API     APIConfig     `yaml:"api" json:"api"`
}

type GameConfig struct {
	// Seed 0 picks a random seed at startup.
	Seed       int64  `yaml:"seed" json:"seed"`
	StartYear  int    `yaml:"start_year" json:"start_year"`
	StartMonth int    `yaml:"start_month" json:"start_month"` // 1-12
	StartAge   int    `yaml:"start_age" json:"start_age"`
	EndAge     int    `yaml:"end_age" json:"end_age"`
	RefData    string `yaml:"ref_data" json:"ref_data"` // empty uses the embedded UK tables
}

type PlayerConfig struct {
	Name           string  `yaml:"name" json:"name"`
	Cash           float64 `yaml:"cash" json:"cash"`
	Salary         float64 `yaml:"salary" json:"salary"`
	Region         string  `yaml:"region" json:"region"`
	WorkRegion     string  `yaml:"work_region" json:"work_region"`
	LivingExpenses float64 `yaml:"living_expenses" json:"living_expenses"`
	Married        bool    `yaml:"married" json:"married"`
	Children       int     `yaml:"children" json:"children"`
}

type LoopConfig struct {
	TickInterval time.Duration `yaml:"tick_interval" json:"tick_interval"`
	FastFactor   float64       `yaml:"fast_factor" json:"fast_factor"`
	AutoStart    bool          `yaml:"auto_start" json:"auto_start"`
	// SaveEveryMonths autosaves on the first of every Nth month; 0 disables.
	SaveEveryMonths int `yaml:"save_every_months" json:"save_every_months"`
}

type StorageConfig struct {
	DBPath string `yaml:"db_path" json:"db_path"`
	Slot   string `yaml:"slot" json:"slot"`
}

type APIConfig struct {
	Port     int    `yaml:"port" json:"port"`
	AdminKey string `yaml:"admin_key" json:"-"`
	// TickRate bounds manual tick requests per client per minute.
	TickRate int `yaml:"tick_rate" json:"tick_rate"`
}

// Default returns the settings of a fresh game: a 25-year-old in London at
// the start of the 2005/06 tax year.
func Default() Config {
	return Config{
		Game: GameConfig{
			StartYear:  2005,
			StartMonth: 4,
			StartAge:   25,
			EndAge:     45,
		},
		Player: PlayerConfig{
			Name:           "Player",
			Cash:           5000,
			Salary:         24000,
			Region:         "London",
			LivingExpenses: params.BaseLivingExpenses,
		},
		Loop: LoopConfig{
			TickInterval:    time.Second,
			FastFactor:      20,
			SaveEveryMonths: 1,
		},
		Storage: StorageConfig{
			DBPath: "data/lifesim.db",
			Slot:   "default",
		},
		API: APIConfig{
			Port:     8080,
			TickRate: 5,
		},
	}
}

// Load reads path over the defaults. Fields missing from the file keep
// their default values.
func Load(path string) (Config, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// ApplyEnv overrides settings from LIFESIM_* environment variables.
func (c *Config) ApplyEnv() {
	c.Game.Seed = envInt64OrDefault("LIFESIM_SEED", c.Game.Seed)
	c.Game.RefData = envOrDefault("LIFESIM_REFDATA", c.Game.RefData)
	c.Game.EndAge = envIntOrDefault("LIFESIM_END_AGE", c.Game.EndAge)
	c.Storage.DBPath = envOrDefault("LIFESIM_DB", c.Storage.DBPath)
	c.Storage.Slot = envOrDefault("LIFESIM_SLOT", c.Storage.Slot)
	c.API.Port = envIntOrDefault("LIFESIM_PORT", c.API.Port)
	c.API.AdminKey = envOrDefault("LIFESIM_ADMIN_KEY", c.API.AdminKey)
	if v := os.Getenv("LIFESIM_TICK_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Loop.TickInterval = d
		}
	}
}

// Validate rejects settings the engine cannot start from.
func (c Config) Validate() error {
	switch {
	case c.Game.StartMonth < 1 || c.Game.StartMonth > 12:
		return fmt.Errorf("game.start_month %d out of range 1-12", c.Game.StartMonth)
	case c.Game.StartAge <= 0:
		return fmt.Errorf("game.start_age must be positive")
	case c.Game.EndAge > 0 && c.Game.EndAge <= c.Game.StartAge:
		return fmt.Errorf("game.end_age %d must be above start_age %d", c.Game.EndAge, c.Game.StartAge)
	case c.Player.Cash < 0 || c.Player.Salary < 0:
		return fmt.Errorf("player cash and salary must not be negative")
	case c.Loop.TickInterval <= 0:
		return fmt.Errorf("loop.tick_interval must be positive")
	}
	return nil
}

// StartDate is the first day of the configured start month.
func (c Config) StartDate() clock.Date {
	return clock.Date{Day: 1, Month: c.Game.StartMonth - 1, Year: c.Game.StartYear}
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envIntOrDefault(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func envInt64OrDefault(key string, defaultVal int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return defaultVal
}
