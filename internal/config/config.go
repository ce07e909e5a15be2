// Package config loads process configuration from defaults, an optional YAML
// file and PARSNIP_* environment variables, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/omar16100/parsnip/internal/models"
)

// EnvPrefix prefixes every environment override, e.g. PARSNIP_STORAGE_BACKEND.
const EnvPrefix = "PARSNIP"

// Backend names accepted by storage.backend.
const (
	BackendBadger = "badger"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

type Config struct {
	Storage        StorageConfig `mapstructure:"storage"`
	Log            LogConfig     `mapstructure:"log"`
	Server         ServerConfig  `mapstructure:"server"`
	DefaultProject string        `mapstructure:"default_project" validate:"required,projectname"`
}

type StorageConfig struct {
	Backend    string `mapstructure:"backend" validate:"oneof=badger sqlite memory"`
	DataDir    string `mapstructure:"data_dir" validate:"required_unless=Backend memory"`
	SyncWrites bool   `mapstructure:"sync_writes"` // badger only
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=text json logfmt"`
}

type ServerConfig struct {
	Transport string `mapstructure:"transport" validate:"oneof=stdio http"`
	Addr      string `mapstructure:"addr" validate:"required_if=Transport http"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("projectname", func(fl validator.FieldLevel) bool {
		return models.ValidProjectName(fl.Field().String())
	})
}

// DefaultDataDir is $HOME/.parsnip, or ./.parsnip when no home is known.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".parsnip"
	}
	return filepath.Join(home, ".parsnip")
}

// New returns a viper instance carrying the defaults and environment binding.
// Callers may bind flags to it before passing it to Load.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault("storage.backend", BackendSQLite)
	v.SetDefault("storage.data_dir", DefaultDataDir())
	v.SetDefault("storage.sync_writes", true)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("server.transport", "stdio")
	v.SetDefault("server.addr", ":8081")
	v.SetDefault("default_project", "default")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the optional config file into v, then decodes and validates the
// result. An empty path skips the file.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Storage.DataDir = expandHome(cfg.Storage.DataDir)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every field against its allowed values.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: invalid value %q (%s)", fe.Namespace(), fmt.Sprint(fe.Value()), fe.Tag()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
