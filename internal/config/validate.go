package config

import (
	"errors"
	"fmt"
	"time"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateRemote(); err != nil {
		return err
	}
	if err := c.validateDispatch(); err != nil {
		return err
	}
	if err := c.validateSchedule(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateRemote() error {
	if !c.Remote.Enabled {
		return nil
	}
	if c.Remote.BaseURL == "" {
		return errors.New("remote.base_url must be set when remote.enabled is true")
	}
	if c.Remote.Username == "" || c.Remote.Password == "" {
		return errors.New("remote.username and remote.password must be set when remote.enabled is true")
	}
	return nil
}

func (c *Config) validateDispatch() error {
	seen := make(map[int]struct{}, len(c.Dispatch.Thresholds))
	for _, days := range c.Dispatch.Thresholds {
		if days < 0 {
			return fmt.Errorf("dispatch.thresholds: %d is negative", days)
		}
		if _, dup := seen[days]; dup {
			return fmt.Errorf("dispatch.thresholds: %d listed twice", days)
		}
		seen[days] = struct{}{}
	}
	return nil
}

func (c *Config) validateSchedule() error {
	if _, err := time.Parse("15:04", c.Schedule.CheckTime); err != nil {
		return fmt.Errorf("schedule.check_time %q must be HH:MM", c.Schedule.CheckTime)
	}
	if _, err := time.LoadLocation(c.Schedule.Timezone); err != nil {
		return fmt.Errorf("schedule.timezone: %w", err)
	}
	if c.Schedule.RetryAttempts < 0 {
		return errors.New("schedule.retry_attempts must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

// Location resolves the configured IANA timezone. Call after Validate.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Schedule.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// CheckClock returns the configured daily check time split into hour and minute.
func (c *Config) CheckClock() (hour, minute int) {
	parsed, err := time.Parse("15:04", c.Schedule.CheckTime)
	if err != nil {
		return 9, 0
	}
	return parsed.Hour(), parsed.Minute()
}
