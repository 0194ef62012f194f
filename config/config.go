// Package config layers defaults, an optional JSONC config file, the
// environment and command-line flags into one Config.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/tailscale/hujson"
)

const (
	// DefaultFile is read from the working directory when no --config is given
	DefaultFile = ".gerrit-dash.jsonc"

	// EnvPrefix prefixes every environment override, e.g. GERRIT_DASH_ESCAPE
	EnvPrefix = "GERRIT_DASH"
)

// Config holds every setting a command can read
type Config struct {
	Template          string `mapstructure:"template"`
	TemplateFile      string `mapstructure:"template-file"`
	TemplateDirectory string `mapstructure:"template-directory"`
	Escape            string `mapstructure:"escape"`
	BaseURL           string `mapstructure:"base-url"`
	Verbose           bool   `mapstructure:"verbose"`

	Tracker   string          `mapstructure:"tracker"`
	Launchpad LaunchpadConfig `mapstructure:"launchpad"`
	GitHub    GitHubConfig    `mapstructure:"github"`

	// File is the config file that was read, empty if none
	File string `mapstructure:"-"`
}

type LaunchpadConfig struct {
	ServiceRoot string        `mapstructure:"service-root"`
	CacheDir    string        `mapstructure:"cache-dir"`
	CacheTTL    time.Duration `mapstructure:"cache-ttl"`
	Concurrency int           `mapstructure:"concurrency"`
	Retries     int           `mapstructure:"retries"`
}

type GitHubConfig struct {
	Token           string `mapstructure:"token"`
	BaseURL         string `mapstructure:"base-url"`
	InProgressLabel string `mapstructure:"in-progress-label"`
	PriorityPrefix  string `mapstructure:"priority-prefix"`
}

var defaults = map[string]any{
	"template":           "single.txt",
	"template-file":      "",
	"template-directory": "",
	"escape":             "comma",
	"base-url":           "",
	"verbose":            false,
	"tracker":            "launchpad",

	"launchpad.service-root": "https://api.launchpad.net/1.0",
	"launchpad.cache-dir":    DefaultCacheDir(),
	"launchpad.cache-ttl":    time.Hour,
	"launchpad.concurrency":  10,
	"launchpad.retries":      3,

	"github.token":             "",
	"github.base-url":          "",
	"github.in-progress-label": "in progress",
	"github.priority-prefix":   "priority/",
}

// flagKeys are the settings a command-line flag of the same name overrides
var flagKeys = []string{
	"template", "template-file", "template-directory",
	"escape", "base-url", "verbose", "tracker",
}

// DefaultCacheDir is where Launchpad responses are kept between runs
func DefaultCacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "gerrit-dash", "launchpad")
}

// Load builds the configuration. path names the config file and must exist
// when set; otherwise DefaultFile is read if present. flags may be nil.
func Load(afs afero.Fs, path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}

	file := path
	if file == "" {
		file = DefaultFile
	}
	data, err := afero.ReadFile(afs, file)
	switch {
	case err == nil:
		if err := readJSONC(v, data); err != nil {
			return nil, fmt.Errorf("invalid config file %s: %w", file, err)
		}
	case path == "" && errors.Is(err, fs.ErrNotExist):
		file = ""
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("github.token", EnvPrefix+"_GITHUB_TOKEN", "GITHUB_TOKEN"); err != nil {
		return nil, err
	}

	if flags != nil {
		for _, key := range flagKeys {
			if f := flags.Lookup(key); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, err
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	cfg.File = file
	return &cfg, nil
}

// readJSONC accepts comments and trailing commas
func readJSONC(v *viper.Viper, data []byte) error {
	std, err := hujson.Standardize(data)
	if err != nil {
		return err
	}
	v.SetConfigType("json")
	return v.ReadConfig(bytes.NewReader(std))
}
