package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Log         LogConfig         `mapstructure:"log"`
	Progression ProgressionConfig `mapstructure:"progression"`
	Client      ClientConfig      `mapstructure:"client"`
}

type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type AuthConfig struct {
	SessionSecret string        `mapstructure:"session_secret"`
	JWTSecret     string        `mapstructure:"jwt_secret"`
	TokenTTL      time.Duration `mapstructure:"token_ttl"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Reward amounts are fixed per quest type, never derived.
type QuestReward struct {
	XP     int `mapstructure:"xp"`
	Points int `mapstructure:"points"`
}

type QuestsConfig struct {
	Daily  QuestReward `mapstructure:"daily"`
	Weekly QuestReward `mapstructure:"weekly"`
}

// ActionsConfig caps the XP a client may claim for a single action.
type ActionsConfig struct {
	DefaultXP  int            `mapstructure:"default_xp"`
	DefaultMax int            `mapstructure:"default_max"`
	Limits     map[string]int `mapstructure:"limits"`
}

type ProgressionConfig struct {
	Timezone    string        `mapstructure:"timezone"`
	CatalogPath string        `mapstructure:"catalog_path"`
	Quests      QuestsConfig  `mapstructure:"quests"`
	Actions     ActionsConfig `mapstructure:"actions"`
}

// ClientConfig holds the animation timings used by the terminal client.
type ClientConfig struct {
	BaseURL             string        `mapstructure:"base_url"`
	CounterDuration     time.Duration `mapstructure:"counter_duration"`
	LevelUpDelay        time.Duration `mapstructure:"level_up_delay"`
	LevelUpDuration     time.Duration `mapstructure:"level_up_duration"`
	AchievementInterval time.Duration `mapstructure:"achievement_interval"`
	NoticeDuration      time.Duration `mapstructure:"notice_duration"`
}

// Location resolves the configured server timezone. Calendar dates for
// quests and streaks are computed in this zone.
func (p ProgressionConfig) Location() (*time.Location, error) {
	name := strings.TrimSpace(p.Timezone)
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", name, err)
	}
	return loc, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000", "http://localhost:8080"})

	v.SetDefault("database.path", "./gamify.db")

	v.SetDefault("auth.session_secret", "your-secret-key-change-this-in-production")
	v.SetDefault("auth.jwt_secret", "your-jwt-secret-change-this-in-production")
	v.SetDefault("auth.token_ttl", 24*time.Hour)

	v.SetDefault("log.level", "info")

	v.SetDefault("progression.timezone", "Local")
	v.SetDefault("progression.catalog_path", "")
	v.SetDefault("progression.quests.daily.xp", 25)
	v.SetDefault("progression.quests.daily.points", 1)
	v.SetDefault("progression.quests.weekly.xp", 100)
	v.SetDefault("progression.quests.weekly.points", 5)
	v.SetDefault("progression.actions.default_xp", 5)
	v.SetDefault("progression.actions.default_max", 100)

	v.SetDefault("client.base_url", "http://localhost:8080")
	v.SetDefault("client.counter_duration", 800*time.Millisecond)
	v.SetDefault("client.level_up_delay", 300*time.Millisecond)
	v.SetDefault("client.level_up_duration", 2*time.Second)
	v.SetDefault("client.achievement_interval", 2*time.Second)
	v.SetDefault("client.notice_duration", 3*time.Second)
}

// Load reads config.yaml (and config.local.yaml on top of it) from the
// working directory or ./config, then applies GAMIFY_* environment overrides.
// Missing config files are not an error; defaults apply.
func Load() (*Config, error) {
	return load(viper.New(), ".", "./config")
}

func load(v *viper.Viper, paths ...string) (*Config, error) {
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	setDefaults(v)

	// Allow environment variables
	v.SetEnvPrefix("GAMIFY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found, use defaults
	} else {
		// Read local config file for overrides (ignored by git)
		v.SetConfigName("config.local")
		if err := v.MergeInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to merge local config: %w", err)
			}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	return &config, nil
}
