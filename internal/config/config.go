package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/letsssgooo/funle/internal/lib/slogcustom"
	"github.com/letsssgooo/funle/internal/token"
)

// Драйверы хранилища
const (
	DriverMemory   = "memory"
	DriverBolt     = "bolt"
	DriverPostgres = "postgres"
)

const envPrefix = "FUNLE_"

// Config — настройки сервиса.
type Config struct {
	HTTPAddr string        `yaml:"http_addr"`
	LogLevel string        `yaml:"log_level"`
	Token    TokenConfig   `yaml:"token"`
	Storage  StorageConfig `yaml:"storage"`
}

type TokenConfig struct {
	Secret     string        `yaml:"secret"`
	AccessTTL  time.Duration `yaml:"access_ttl"`
	RefreshTTL time.Duration `yaml:"refresh_ttl"`
}

type StorageConfig struct {
	Driver      string `yaml:"driver"`
	BoltPath    string `yaml:"bolt_path"`
	PostgresDSN string `yaml:"postgres_dsn"`
}

// Default возвращает настройки по умолчанию.
func Default() Config {
	return Config{
		HTTPAddr: ":8080",
		LogLevel: "info",
		Token: TokenConfig{
			AccessTTL:  token.DefaultAccessTTL,
			RefreshTTL: token.DefaultRefreshTTL,
		},
		Storage: StorageConfig{
			Driver:   DriverMemory,
			BoltPath: "data/funle.db",
		},
	}
}

// Имена флагов
const (
	flagConfig      = "config"
	flagEnvFile     = "env-file"
	flagHTTPAddr    = "http-addr"
	flagLogLevel    = "log-level"
	flagDriver      = "storage-driver"
	flagBoltPath    = "bolt-path"
	flagPostgresDSN = "postgres-dsn"
	flagAccessTTL   = "access-ttl"
	flagRefreshTTL  = "refresh-ttl"
)

// BindFlags регистрирует флаги конфигурации в flags.
// Секрет через флаг не передается, чтобы он не попадал в список процессов.
func BindFlags(flags *pflag.FlagSet) {
	d := Default()

	flags.String(flagConfig, "", "path to YAML config file")
	flags.String(flagEnvFile, ".env", "path to .env file")
	flags.String(flagHTTPAddr, d.HTTPAddr, "HTTP listen address")
	flags.String(flagLogLevel, d.LogLevel, "log level: debug|info|warn|error")
	flags.String(flagDriver, d.Storage.Driver, "storage driver: memory|bolt|postgres")
	flags.String(flagBoltPath, d.Storage.BoltPath, "path to bbolt database file")
	flags.String(flagPostgresDSN, "", "postgres connection string")
	flags.Duration(flagAccessTTL, d.Token.AccessTTL, "access token lifetime")
	flags.Duration(flagRefreshTTL, d.Token.RefreshTTL, "refresh token lifetime")
}

// LookupEnv ищет переменную окружения, например os.LookupEnv.
type LookupEnv func(key string) (string, bool)

// Load собирает конфигурацию. Приоритет от низшего к высшему: значения по
// умолчанию, YAML файл, .env файл, переменные окружения FUNLE_*, флаги.
// flags может быть nil, lookup по умолчанию os.LookupEnv.
func Load(flags *pflag.FlagSet, lookup LookupEnv) (Config, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	cfg := Default()

	envFile, err := stringSetting(flags, flagEnvFile, lookup, envPrefix+"ENV_FILE", ".env")
	if err != nil {
		return Config{}, err
	}
	dotenv, err := readDotenv(envFile)
	if err != nil {
		return Config{}, err
	}
	env := func(key string) (string, bool) {
		if v, ok := lookup(envPrefix + key); ok {
			return v, true
		}
		v, ok := dotenv[envPrefix+key]
		return v, ok
	}

	path, err := stringSetting(flags, flagConfig, env, "CONFIG", "")
	if err != nil {
		return Config{}, err
	}
	if path != "" {
		if err = loadYAML(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err = applyEnv(&cfg, env); err != nil {
		return Config{}, err
	}
	if flags != nil {
		if err = applyFlags(&cfg, flags); err != nil {
			return Config{}, err
		}
	}

	return cfg, nil
}

func stringSetting(flags *pflag.FlagSet, flag string, env LookupEnv, key, def string) (string, error) {
	if flags != nil && flags.Changed(flag) {
		return flags.GetString(flag)
	}
	if v, ok := env(key); ok {
		return v, nil
	}

	return def, nil
}

func readDotenv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	values, err := godotenv.Read(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read env file %s: %w", path, err)
	}

	return values, nil
}

func loadYAML(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err = dec.Decode(cfg); err != nil {
		return fmt.Errorf("decode config %s: %w", path, err)
	}

	return nil
}

func applyEnv(cfg *Config, env LookupEnv) error {
	strs := map[string]*string{
		"HTTP_ADDR":      &cfg.HTTPAddr,
		"LOG_LEVEL":      &cfg.LogLevel,
		"TOKEN_SECRET":   &cfg.Token.Secret,
		"STORAGE_DRIVER": &cfg.Storage.Driver,
		"BOLT_PATH":      &cfg.Storage.BoltPath,
		"POSTGRES_DSN":   &cfg.Storage.PostgresDSN,
	}
	for key, dst := range strs {
		if v, ok := env(key); ok {
			*dst = v
		}
	}

	durations := map[string]*time.Duration{
		"ACCESS_TTL":  &cfg.Token.AccessTTL,
		"REFRESH_TTL": &cfg.Token.RefreshTTL,
	}
	for key, dst := range durations {
		v, ok := env(key)
		if !ok {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", envPrefix, key, err)
		}
		*dst = d
	}

	return nil
}

func applyFlags(cfg *Config, flags *pflag.FlagSet) error {
	strs := map[string]*string{
		flagHTTPAddr:    &cfg.HTTPAddr,
		flagLogLevel:    &cfg.LogLevel,
		flagDriver:      &cfg.Storage.Driver,
		flagBoltPath:    &cfg.Storage.BoltPath,
		flagPostgresDSN: &cfg.Storage.PostgresDSN,
	}
	for name, dst := range strs {
		if !flags.Changed(name) {
			continue
		}
		v, err := flags.GetString(name)
		if err != nil {
			return err
		}
		*dst = v
	}

	durations := map[string]*time.Duration{
		flagAccessTTL:  &cfg.Token.AccessTTL,
		flagRefreshTTL: &cfg.Token.RefreshTTL,
	}
	for name, dst := range durations {
		if !flags.Changed(name) {
			continue
		}
		v, err := flags.GetDuration(name)
		if err != nil {
			return err
		}
		*dst = v
	}

	return nil
}

// Validate проверяет, что конфигурации достаточно для запуска.
func (c Config) Validate() error {
	var problems []string

	if c.Token.Secret == "" {
		problems = append(problems, "token secret is empty")
	}
	if c.Token.AccessTTL < time.Second {
		problems = append(problems, "access ttl must be at least 1s")
	}
	if c.Token.RefreshTTL < time.Second {
		problems = append(problems, "refresh ttl must be at least 1s")
	}
	if _, err := slogcustom.ParseLevel(c.LogLevel); err != nil {
		problems = append(problems, err.Error())
	}

	switch c.Storage.Driver {
	case DriverMemory:
	case DriverBolt:
		if c.Storage.BoltPath == "" {
			problems = append(problems, "bolt path is empty")
		}
	case DriverPostgres:
		if c.Storage.PostgresDSN == "" {
			problems = append(problems, "postgres dsn is empty")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown storage driver %q", c.Storage.Driver))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}

	return nil
}
