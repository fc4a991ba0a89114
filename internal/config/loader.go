package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures environment driven configuration values for the scheduling
// service.
type Config struct {
	HTTPPort       int
	SQLiteDSN      string
	HorizonDays    int
	WorkStartHour  int
	WorkEndHour    int
	MaxSuggestions int
	GatewayTimeout time.Duration
}

// Load parses configuration values from the current process environment.
//
// Every field has a default; set values are validated and invalid entries are
// reported together so operators can fix all of them in one pass.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:       8080,
		SQLiteDSN:      "file:schedulai.db?_foreign_keys=on",
		HorizonDays:    7,
		WorkStartHour:  9,
		WorkEndHour:    17,
		MaxSuggestions: 3,
		GatewayTimeout: 5 * time.Second,
	}

	invalid := make([]string, 0, 2)

	intVar := func(name string, minimum int, target *int) {
		value := strings.TrimSpace(os.Getenv(name))
		if value == "" {
			return
		}
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed < minimum {
			invalid = append(invalid, name)
			return
		}
		*target = parsed
	}

	intVar("SCHEDULAI_HTTP_PORT", 1, &cfg.HTTPPort)
	intVar("SCHEDULAI_HORIZON_DAYS", 1, &cfg.HorizonDays)
	intVar("SCHEDULAI_WORK_START_HOUR", 0, &cfg.WorkStartHour)
	intVar("SCHEDULAI_WORK_END_HOUR", 1, &cfg.WorkEndHour)
	intVar("SCHEDULAI_MAX_SUGGESTIONS", 1, &cfg.MaxSuggestions)

	if dsn := strings.TrimSpace(os.Getenv("SCHEDULAI_SQLITE_DSN")); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	if timeoutValue := strings.TrimSpace(os.Getenv("SCHEDULAI_GATEWAY_TIMEOUT")); timeoutValue != "" {
		timeout, err := time.ParseDuration(timeoutValue)
		if err != nil || timeout <= 0 {
			invalid = append(invalid, "SCHEDULAI_GATEWAY_TIMEOUT")
		} else {
			cfg.GatewayTimeout = timeout
		}
	}

	if cfg.WorkStartHour >= cfg.WorkEndHour || cfg.WorkEndHour > 24 {
		invalid = append(invalid, "SCHEDULAI_WORK_START_HOUR/SCHEDULAI_WORK_END_HOUR")
	}

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment variable values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}
