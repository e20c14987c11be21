// Package config loads connection definitions for the spider CLI and for
// applications that want file-based configuration.
//
// A settings file (YAML, JSON or TOML) looks like:
//
//	default: local
//	connections:
//	  local:
//	    driver: sqlite
//	    path: ./graph.db
//	  graph:
//	    driver: neo4j
//	    host: localhost
//	    username: neo4j
//	log:
//	  level: info
//
// Environment variables override file values that exist:
// SPIDER_CONNECTIONS_LOCAL_PATH replaces connections.local.path. Viper
// folds keys to lower case, so connection names are case-insensitive.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/roach88/spider/connection"
	"github.com/roach88/spider/driver"
)

// DefaultEnvPrefix prefixes environment overrides.
const DefaultEnvPrefix = "SPIDER"

// LogSettings configures the CLI logger.
type LogSettings struct {
	Level  string `mapstructure:"level" json:"level,omitempty"`
	Format string `mapstructure:"format" json:"format,omitempty"`
}

// Settings is a loaded settings file.
type Settings struct {
	Default     string                   `mapstructure:"default" json:"default"`
	Connections map[string]driver.Config `mapstructure:"connections" json:"connections,omitempty"`
	Log         LogSettings              `mapstructure:"log" json:"log,omitempty"`
}

// ErrNoConfig is returned when no settings file is given or found.
var ErrNoConfig = errors.New("no settings file")

// Load reads path, applies environment overrides with envPrefix (empty
// means DefaultEnvPrefix), and validates the result.
func Load(path, envPrefix string) (*Settings, error) {
	if path == "" {
		return nil, ErrNoConfig
	}
	if envPrefix == "" {
		envPrefix = DefaultEnvPrefix
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("default", connection.DefaultName)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read settings %s: %w", path, err)
	}
	return decode(v)
}

func decode(v *viper.Viper) (*Settings, error) {
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}

	if err := Validate(&s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Manager returns a connection manager over the loaded definitions.
func (s *Settings) Manager(opts ...connection.Option) *connection.Manager {
	return connection.NewManager(s.Default, s.Connections, opts...)
}
