// Package config loads and validates runtime configuration for urtpstream,
// following the teacher's cmd/client/config pattern: viper defaults, a
// config file overlay, and a few required-field checks enforced at load
// time rather than deep in the pipeline.
package config

import (
	"fmt"
	"log/slog"

	"github.com/spf13/viper"
)

// setDefaults installs the defaults enumerated in SPEC_FULL.md §6.2,
// following the teacher's viperdefaults.go convention of one SetDefault
// call per key.
func setDefaults() {
	viper.SetDefault("transport", "udp")
	viper.SetDefault("link", "ethernet")
	viper.SetDefault("coding", "pcm16")
	viper.SetDefault("fixedTone", false)
	viper.SetDefault("gainShift", -1)
	viper.SetDefault("streamDurationMs", 0)
	viper.SetDefault("localFile", "")
	viper.SetDefault("loglevel", "info")
	viper.SetDefault("logfile", "")
	viper.SetDefault("ringSize", 150)
	viper.SetDefault("retryWaitSeconds", 5)
}

// Config is the resolved, validated view of the streaming endpoint's
// runtime configuration.
type Config struct {
	Transport string // "udp" or "tcp"
	Link      string // informational only in this desktop port
	Coding    string // "pcm16", "unicam8", "unicam10"

	FixedTone bool
	GainShift int // -1 for auto

	StreamDurationMs int

	ServerHost string
	ServerPort int
	LocalFile  string

	LogLevel string
	LogFile  string

	RingSize         int
	RetryWaitSeconds int
}

// Load reads configFilePath (if it exists) over the defaults and returns a
// validated Config. A missing config file is not an error: the service can
// run on defaults plus command-line overrides of server host/port are not
// supported, so server.host/server.port must come from the file.
func Load(configFilePath string) (Config, error) {
	setDefaults()

	viper.SetConfigFile(configFilePath)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			slog.Info("no config file found, using defaults", "configFilePath", configFilePath)
		} else {
			return Config{}, fmt.Errorf("config: read %s: %w", configFilePath, err)
		}
	}

	c := Config{
		Transport:        viper.GetString("transport"),
		Link:             viper.GetString("link"),
		Coding:           viper.GetString("coding"),
		FixedTone:        viper.GetBool("fixedTone"),
		GainShift:        viper.GetInt("gainShift"),
		StreamDurationMs: viper.GetInt("streamDurationMs"),
		ServerHost:       viper.GetString("server.host"),
		ServerPort:       viper.GetInt("server.port"),
		LocalFile:        viper.GetString("localFile"),
		LogLevel:         viper.GetString("loglevel"),
		LogFile:          viper.GetString("logfile"),
		RingSize:         viper.GetInt("ringSize"),
		RetryWaitSeconds: viper.GetInt("retryWaitSeconds"),
	}

	if err := c.validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) validate() error {
	switch c.Transport {
	case "udp", "tcp":
	default:
		return fmt.Errorf("config: unknown transport %q", c.Transport)
	}
	switch c.Coding {
	case "pcm16", "unicam8", "unicam10":
	default:
		return fmt.Errorf("config: unknown coding %q", c.Coding)
	}
	if c.GainShift != -1 && (c.GainShift < 0 || c.GainShift > 12) {
		return fmt.Errorf("config: gainShift %d out of range [-1, 12]", c.GainShift)
	}
	if c.LocalFile == "" && c.ServerHost == "" {
		return fmt.Errorf("config: server.host is required unless localFile is set")
	}
	if c.RingSize <= 0 {
		return fmt.Errorf("config: ringSize must be positive, got %d", c.RingSize)
	}
	return nil
}
