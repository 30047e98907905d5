// Package config loads site and server settings from an HCL file, a .env
// file and ANNALIST_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/hashicorp/hcl/v2/hclsimple"
	"github.com/joho/godotenv"
)

// DefaultFile is read when no config file is named and it exists.
const DefaultFile = "annalist.hcl"

// DefaultEnvFile is loaded when no env file is named and it exists.
const DefaultEnvFile = ".env"

// ErrNotFound is returned when a named config file does not exist.
var ErrNotFound = errors.New("settings not found")

// Config holds the settings for one site.
type Config struct {
	// BaseDir is the base data directory; the site lives in its
	// annalist_site subdirectory.
	BaseDir   string
	BaseURI   string
	Host      string
	Listen    string
	ReadOnly  bool
	Watch     bool
	IndexPath string
	LogLevel  string
	LogFormat string
}

type fileConfig struct {
	Site   *siteBlock   `hcl:"site,block"`
	Server *serverBlock `hcl:"server,block"`
	Index  *indexBlock  `hcl:"index,block"`
	Log    *logBlock    `hcl:"log,block"`
}

type siteBlock struct {
	BaseDir string `hcl:"base_dir,optional"`
	BaseURI string `hcl:"base_uri,optional"`
	Host    string `hcl:"host,optional"`
}

type serverBlock struct {
	Listen   string `hcl:"listen,optional"`
	ReadOnly bool   `hcl:"read_only,optional"`
	Watch    bool   `hcl:"watch,optional"`
}

type indexBlock struct {
	Path string `hcl:"path,optional"`
}

type logBlock struct {
	Level  string `hcl:"level,optional"`
	Format string `hcl:"format,optional"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		BaseDir:   ".",
		BaseURI:   "http://localhost:8000/annalist/",
		Listen:    ":8000",
		LogLevel:  "info",
		LogFormat: "json",
	}
}

// Load returns the default settings overlaid with the config file at path,
// then the env file, then the environment. An empty path reads DefaultFile
// if it exists; a named file that does not exist is an error wrapping
// ErrNotFound. The same rule applies to envFile and DefaultEnvFile.
func Load(path, envFile string) (*Config, error) {
	cfg := Default()

	if path == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			path = DefaultFile
		}
	} else if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	if path != "" {
		var fc fileConfig
		if err := hclsimple.DecodeFile(path, nil, &fc); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		cfg.apply(&fc)
	}

	if envFile == "" {
		if _, err := os.Stat(DefaultEnvFile); err == nil {
			envFile = DefaultEnvFile
		}
	} else if _, err := os.Stat(envFile); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", envFile, ErrNotFound)
	}
	dotenv := map[string]string{}
	if envFile != "" {
		var err error
		if dotenv, err = godotenv.Read(envFile); err != nil {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	// The process environment wins over the env file.
	getenv := func(key string) string {
		if v, ok := os.LookupEnv(key); ok {
			return v
		}
		return dotenv[key]
	}
	if err := cfg.applyEnv(getenv); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) apply(fc *fileConfig) {
	if s := fc.Site; s != nil {
		setString(&c.BaseDir, s.BaseDir)
		setString(&c.BaseURI, s.BaseURI)
		setString(&c.Host, s.Host)
	}
	if s := fc.Server; s != nil {
		setString(&c.Listen, s.Listen)
		c.ReadOnly = s.ReadOnly
		c.Watch = s.Watch
	}
	if s := fc.Index; s != nil {
		setString(&c.IndexPath, s.Path)
	}
	if s := fc.Log; s != nil {
		setString(&c.LogLevel, s.Level)
		setString(&c.LogFormat, s.Format)
	}
}

func (c *Config) applyEnv(getenv func(string) string) error {
	setString(&c.BaseDir, getenv("ANNALIST_BASE_DIR"))
	setString(&c.BaseURI, getenv("ANNALIST_BASE_URI"))
	setString(&c.Host, getenv("ANNALIST_HOST"))
	setString(&c.Listen, getenv("ANNALIST_LISTEN"))
	setString(&c.IndexPath, getenv("ANNALIST_INDEX"))
	setString(&c.LogLevel, getenv("ANNALIST_LOG_LEVEL"))
	setString(&c.LogFormat, getenv("ANNALIST_LOG_FORMAT"))
	for key, dst := range map[string]*bool{
		"ANNALIST_READ_ONLY": &c.ReadOnly,
		"ANNALIST_WATCH":     &c.Watch,
	} {
		v := getenv(key)
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = b
	}
	return nil
}

func setString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

// SiteBaseURI returns the base URI with a trailing '/'.
func (c *Config) SiteBaseURI() string {
	if strings.HasSuffix(c.BaseURI, "/") {
		return c.BaseURI
	}
	return c.BaseURI + "/"
}
