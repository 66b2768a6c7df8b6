/*
tiktoken-prefetch stages tokenizer vocabularies for offline use.
Copyright (C) 2025  Mayer & Ott GbR

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU Affero General Public License as
published by the Free Software Foundation, either version 3 of the
License, or (at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU Affero General Public License for more details.

You should have received a copy of the GNU Affero General Public Licen
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bloodmagesoftware/tiktoken-prefetch/cachedir"
	"github.com/bloodmagesoftware/tiktoken-prefetch/encodings"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	AppName   = "tiktoken-prefetch"
	EnvPrefix = "TIKPREFETCH"

	KeyCacheDir        = "cache_dir"
	KeyCacheDirEnvs    = "cache_dir_envs"
	KeyDefaultCacheDir = "default_cache_dir"
	KeyEncodings       = "encodings"
	KeyLogLevel        = "log_level"
)

// Config is read by viper from flags, TIKPREFETCH_* variables and
// config.yaml, in that order of precedence.
type Config struct {
	// CacheDir, when set, bypasses the environment lookup.
	CacheDir        string   `mapstructure:"cache_dir"`
	CacheDirEnvs    []string `mapstructure:"cache_dir_envs"`
	DefaultCacheDir string   `mapstructure:"default_cache_dir"`
	Encodings       []string `mapstructure:"encodings"`
	LogLevel        string   `mapstructure:"log_level"`
}

func getConfigDir() (string, error) {
	userConfigDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config dir: %w", err)
	}
	return filepath.Join(userConfigDir, AppName), nil
}

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"cache-dir": KeyCacheDir,
	"encodings": KeyEncodings,
	"log-level": KeyLogLevel,
}

// Load reads the configuration. configPath may be empty, in which case
// config.yaml is looked up in the working directory and the user config
// directory and a missing file is not an error. Flags present in flags are
// bound to their keys.
func Load(configPath string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		if dir, err := getConfigDir(); err == nil {
			v.AddConfigPath(dir)
		}
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetDefault(KeyCacheDir, "")
	v.SetDefault(KeyCacheDirEnvs, cachedir.DefaultCandidates())
	v.SetDefault(KeyDefaultCacheDir, cachedir.DefaultDir())
	v.SetDefault(KeyEncodings, encodings.Defaults())
	v.SetDefault(KeyLogLevel, zerolog.LevelInfoValue)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	c.CacheDirEnvs = compact(c.CacheDirEnvs)
	c.Encodings = compact(c.Encodings)
	if err := cachedir.ValidateCandidates(c.CacheDirEnvs); err != nil {
		return fmt.Errorf("invalid %s: %w", KeyCacheDirEnvs, err)
	}
	if len(c.Encodings) == 0 {
		return fmt.Errorf("%s must name at least one encoding", KeyEncodings)
	}
	if c.DefaultCacheDir == "" {
		return fmt.Errorf("%s must not be empty", KeyDefaultCacheDir)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

func (c *Config) Level() (zerolog.Level, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("invalid %s %q: %w", KeyLogLevel, c.LogLevel, err)
	}
	return lvl, nil
}

// Resolver builds a cache directory resolver from the configured variables.
func (c *Config) Resolver(env cachedir.Environ) *cachedir.Resolver {
	return &cachedir.Resolver{
		Candidates: c.CacheDirEnvs,
		Default:    c.DefaultCacheDir,
		Env:        env,
	}
}

func compact(in []string) []string {
	out := in[:0:0]
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
