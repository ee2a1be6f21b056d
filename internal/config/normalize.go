package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeRemote()
	c.normalizeMessaging()
	c.normalizeDispatch()
	c.normalizeSchedule()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	return nil
}

func (c *Config) normalizeRemote() {
	c.Remote.BaseURL = strings.TrimRight(strings.TrimSpace(c.Remote.BaseURL), "/")
	c.Remote.Username = strings.TrimSpace(c.Remote.Username)
	if c.Remote.RequestTimeout <= 0 {
		c.Remote.RequestTimeout = defaultRemoteRequestTimeout
	}
	if c.Remote.TokenTTL <= 0 {
		c.Remote.TokenTTL = defaultRemoteTokenTTL
	}
}

func (c *Config) normalizeMessaging() {
	c.Messaging.BotToken = strings.TrimSpace(c.Messaging.BotToken)
	c.Messaging.APIBase = strings.TrimRight(strings.TrimSpace(c.Messaging.APIBase), "/")
	if c.Messaging.APIBase == "" {
		c.Messaging.APIBase = defaultMessagingAPIBase
	}
	if c.Messaging.RequestTimeout <= 0 {
		c.Messaging.RequestTimeout = defaultMessagingTimeout
	}
}

func (c *Config) normalizeDispatch() {
	if len(c.Dispatch.Thresholds) == 0 {
		c.Dispatch.Thresholds = defaultThresholds()
	}
	channels := make([]string, 0, len(c.Dispatch.OperatorChannels))
	for _, ch := range c.Dispatch.OperatorChannels {
		if ch = strings.TrimSpace(ch); ch != "" {
			channels = append(channels, ch)
		}
	}
	c.Dispatch.OperatorChannels = channels
}

func (c *Config) normalizeSchedule() {
	c.Schedule.CheckTime = strings.TrimSpace(c.Schedule.CheckTime)
	if c.Schedule.CheckTime == "" {
		c.Schedule.CheckTime = defaultScheduleCheckTime
	}
	c.Schedule.Timezone = strings.TrimSpace(c.Schedule.Timezone)
	if c.Schedule.Timezone == "" {
		c.Schedule.Timezone = defaultScheduleTimezone
	}
	if c.Schedule.RetryDelay <= 0 {
		c.Schedule.RetryDelay = defaultScheduleRetryDelay
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
