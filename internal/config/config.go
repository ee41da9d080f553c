package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config keeps runtime settings for the service.
type Config struct {
	TelegramToken string
	DatabaseURL   string
	LatchDir      string
	TaskLimit     int
	Location      *time.Location
}

// Load reads configuration from DOMANI_* environment variables with sane
// defaults.
func Load() (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("DOMANI")
	v.AutomaticEnv()

	v.SetDefault("database_url", "domani.db")
	v.SetDefault("latch_dir", "latches")
	v.SetDefault("task_limit", 50)
	v.SetDefault("timezone", "")

	cfg := Config{
		TelegramToken: strings.TrimSpace(v.GetString("telegram_token")),
		DatabaseURL:   strings.TrimSpace(v.GetString("database_url")),
		LatchDir:      strings.TrimSpace(v.GetString("latch_dir")),
		TaskLimit:     v.GetInt("task_limit"),
	}

	cfg.Location = time.Local
	if tz := strings.TrimSpace(v.GetString("timezone")); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return cfg, fmt.Errorf("invalid DOMANI_TIMEZONE %q: %w", tz, err)
		}
		cfg.Location = loc
	}

	if cfg.TaskLimit < 0 {
		cfg.TaskLimit = 0
	}

	if cfg.TelegramToken == "" {
		return cfg, fmt.Errorf("DOMANI_TELEGRAM_TOKEN is required")
	}

	return cfg, nil
}
