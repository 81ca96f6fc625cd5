package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the agent process settings loaded from agent.yaml.
// The kiosk runtime configuration (API URL, identity, download path) is a
// separate JSON document managed by Store, because the backend can change
// it out-of-band.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Data    DataConfig    `mapstructure:"data"`
	Logging LoggingConfig `mapstructure:"logging"`
	Channel ChannelConfig `mapstructure:"channel"`
}

type ServerConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
}

type DataConfig struct {
	// Dir holds config.json, the log directory and the default download
	// directory.
	Dir string `mapstructure:"dir"`
	// Timezone is the IANA zone used for date-only comparisons and log
	// file day boundaries. Stores operate on local calendar dates, so
	// this is intentionally not UTC.
	Timezone string `mapstructure:"timezone"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
	// Dir overrides the log directory; empty means <data.dir>/logs.
	Dir string `mapstructure:"dir"`
}

type ChannelConfig struct {
	ReconnectSeconds int `mapstructure:"reconnect_seconds"`
	HeartbeatSeconds int `mapstructure:"heartbeat_seconds"`
}

// Load reads agent.yaml from the given directory (or the working
// directory when empty), applying defaults and KIOSK_AGENT_* environment
// overrides. A missing file is not an error; defaults apply.
func Load(dir string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("agent")
	v.SetConfigType("yaml")
	if dir != "" {
		v.AddConfigPath(dir)
	}
	v.AddConfigPath(".")

	v.SetEnvPrefix("KIOSK_AGENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.enabled", true)
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8190)

	v.SetDefault("data.dir", "./data")
	v.SetDefault("data.timezone", "Asia/Seoul")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.dir", "")

	v.SetDefault("channel.reconnect_seconds", 10)
	v.SetDefault("channel.heartbeat_seconds", 30)
}

// LogDir resolves the effective log directory.
func (c *Config) LogDir() string {
	if c.Logging.Dir != "" {
		return c.Logging.Dir
	}
	return c.Data.Dir + "/logs"
}
