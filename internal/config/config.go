// Package config layers kinsim settings from flags, KINSIM_* environment
// variables, a kinsim.yaml file and built-in defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	EnvPrefix  = "KINSIM"
	ConfigName = "kinsim"

	DefaultDataDir   = ".kinsim/runs"
	DefaultLogLevel  = "info"
	DefaultLogFormat = "console"
)

// Keys, as used with viper and for flag binding.
const (
	KeyData      = "data"
	KeyLogLevel  = "log.level"
	KeyLogFormat = "log.format"
	KeyTrace     = "trace"
)

type Settings struct {
	Data  string      `mapstructure:"data"`
	Log   LogSettings `mapstructure:"log"`
	Trace bool        `mapstructure:"trace"`
}

type LogSettings struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func DefaultSettings() Settings {
	return Settings{
		Data: DefaultDataDir,
		Log: LogSettings{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

// NewViper returns a viper instance with kinsim's defaults, search paths
// and environment binding. cfgFile, when set, replaces the search.
func NewViper(cfgFile string) *viper.Viper {
	v := viper.New()

	d := DefaultSettings()
	v.SetDefault(KeyData, d.Data)
	v.SetDefault(KeyLogLevel, d.Log.Level)
	v.SetDefault(KeyLogFormat, d.Log.Format)
	v.SetDefault(KeyTrace, d.Trace)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(ConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", ConfigName))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the config file, if one is found, and decodes the merged
// settings. A missing file from the default search is not an error; a
// missing explicit file is.
func Load(v *viper.Viper) (Settings, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Settings{}, fmt.Errorf("config: %w", err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("config: %w", err)
	}
	return s, nil
}
