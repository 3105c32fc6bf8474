package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/vbncursed/vkr/pass-service/internal/barcode"
	"github.com/vbncursed/vkr/pass-service/internal/logging"
)

// Config — настройки процесса. Порядок: значения по умолчанию, затем
// YAML-файл (--config или CONFIG_FILE), затем переменные окружения.
type Config struct {
	Bind           string        `yaml:"bind"`
	DatabaseURL    string        `yaml:"database_url"`
	EnableSwagger  bool          `yaml:"enable_swagger"`
	PersistTimeout time.Duration `yaml:"persist_timeout"`
	// CatalogSeed — YAML с бизнесами, клиентами и офферами для запуска без БД
	CatalogSeed string `yaml:"catalog_seed"`

	Log          LogConfig    `yaml:"log"`
	Redis        RedisConfig  `yaml:"redis"`
	Certificates CertConfig   `yaml:"certificates"`
	Pass         PassConfig   `yaml:"pass"`
	Push         PushConfig   `yaml:"push"`
	Wallet       WalletConfig `yaml:"wallet"`
	Assets       AssetsConfig `yaml:"assets"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// CertConfig — либо P12, либо пара PEM-файлов; цепочка WWDR обязательна
type CertConfig struct {
	P12Path     string `yaml:"p12_path"`
	P12Password string `yaml:"p12_password"`
	CertPath    string `yaml:"cert_path"`
	KeyPath     string `yaml:"key_path"`
	ChainPath   string `yaml:"chain_path"`
}

type PassConfig struct {
	PassTypeIdentifier string `yaml:"pass_type_identifier"`
	TeamIdentifier     string `yaml:"team_identifier"`
	OrganizationName   string `yaml:"organization_name"`
	WebServiceURL      string `yaml:"web_service_url"`
	BarcodeEncoding    string `yaml:"barcode_encoding"`
	BarcodePrefix      string `yaml:"barcode_prefix"`
	OfferHashSalt      string `yaml:"offer_hash_salt"`
	TokenSecret        string `yaml:"token_secret"`
}

type PushConfig struct {
	Limit  int           `yaml:"limit"`
	Window time.Duration `yaml:"window"`
}

// WalletConfig — лимит запросов кошелька на один IP
type WalletConfig struct {
	RateLimit  int           `yaml:"rate_limit"`
	RateWindow time.Duration `yaml:"rate_window"`
}

type AssetsConfig struct {
	FetchTimeout  time.Duration `yaml:"fetch_timeout"`
	FetchMaxBytes int64         `yaml:"fetch_max_bytes"`
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// Default — значения для локального запуска
func Default() Config {
	return Config{
		Bind:           ":8081",
		DatabaseURL:    "",
		PersistTimeout: 5 * time.Second,
		Log:            LogConfig{Level: "info", Format: string(logging.FormatJSON)},
		Redis:          RedisConfig{Prefix: "pass-service:rl:"},
		Pass: PassConfig{
			OrganizationName: "Loyalty",
			BarcodeEncoding:  string(barcode.EncodingASCII),
			BarcodePrefix:    "LP1:",
		},
		Push:   PushConfig{Limit: 10, Window: 24 * time.Hour},
		Wallet: WalletConfig{RateLimit: 60, RateWindow: time.Minute},
		Assets: AssetsConfig{FetchTimeout: 3 * time.Second, FetchMaxBytes: 2 << 20},
	}
}

// Load разбирает флаги args (без имени программы), читает файл и окружение.
func Load(args []string) (Config, error) {
	fs := pflag.NewFlagSet("pass-service", pflag.ContinueOnError)
	path := fs.String("config", getenv("CONFIG_FILE", ""), "path to YAML config file")
	bind := fs.String("bind", "", "listen address, overrides BIND")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg := Default()
	if *path != "" {
		if err := loadFile(*path, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if *bind != "" {
		cfg.Bind = *bind
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func applyEnv(c *Config) error {
	strs := map[string]*string{
		"BIND":                 &c.Bind,
		"DATABASE_URL":         &c.DatabaseURL,
		"CATALOG_SEED":         &c.CatalogSeed,
		"LOG_LEVEL":            &c.Log.Level,
		"LOG_FORMAT":           &c.Log.Format,
		"REDIS_ADDR":           &c.Redis.Addr,
		"REDIS_PASSWORD":       &c.Redis.Password,
		"REDIS_PREFIX":         &c.Redis.Prefix,
		"PASS_P12_PATH":        &c.Certificates.P12Path,
		"PASS_P12_PASSWORD":    &c.Certificates.P12Password,
		"PASS_CERT_PATH":       &c.Certificates.CertPath,
		"PASS_KEY_PATH":        &c.Certificates.KeyPath,
		"PASS_CHAIN_PATH":      &c.Certificates.ChainPath,
		"PASS_TYPE_IDENTIFIER": &c.Pass.PassTypeIdentifier,
		"PASS_TEAM_IDENTIFIER": &c.Pass.TeamIdentifier,
		"PASS_ORGANIZATION":    &c.Pass.OrganizationName,
		"PASS_WEB_SERVICE_URL": &c.Pass.WebServiceURL,
		"BARCODE_ENCODING":     &c.Pass.BarcodeEncoding,
		"BARCODE_PREFIX":       &c.Pass.BarcodePrefix,
		"OFFER_HASH_SALT":      &c.Pass.OfferHashSalt,
		"TOKEN_SECRET":         &c.Pass.TokenSecret,
	}
	for key, dst := range strs {
		*dst = getenv(key, *dst)
	}

	ints := map[string]*int{
		"REDIS_DB":          &c.Redis.DB,
		"PUSH_LIMIT":        &c.Push.Limit,
		"WALLET_RATE_LIMIT": &c.Wallet.RateLimit,
	}
	for key, dst := range ints {
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: %s: %w", key, err)
		}
		*dst = n
	}
	if v := os.Getenv("FETCH_MAX_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("config: FETCH_MAX_BYTES: %w", err)
		}
		c.Assets.FetchMaxBytes = n
	}

	durs := map[string]*time.Duration{
		"PERSIST_TIMEOUT":    &c.PersistTimeout,
		"PUSH_WINDOW":        &c.Push.Window,
		"WALLET_RATE_WINDOW": &c.Wallet.RateWindow,
		"FETCH_TIMEOUT":      &c.Assets.FetchTimeout,
	}
	for key, dst := range durs {
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: %s: %w", key, err)
		}
		*dst = d
	}

	if v := os.Getenv("ENABLE_SWAGGER"); v != "" {
		c.EnableSwagger = strings.EqualFold(v, "true") || v == "1"
	}
	return nil
}

// Validate проверяет форматы; наличие сертификатов проверяет загрузчик
// при старте.
func (c Config) Validate() error {
	var errs []error
	if _, err := barcode.ParseEncoding(c.Pass.BarcodeEncoding); err != nil {
		errs = append(errs, err)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if c.Pass.TokenSecret != "" && len(c.Pass.TokenSecret) < barcode.MinSecretSize {
		errs = append(errs, fmt.Errorf("token_secret must be at least %d bytes", barcode.MinSecretSize))
	}
	if c.Push.Limit <= 0 || c.Push.Window <= 0 {
		errs = append(errs, errors.New("push limit and window must be positive"))
	}
	if c.PersistTimeout <= 0 {
		errs = append(errs, errors.New("persist_timeout must be positive"))
	}
	if c.Certificates.P12Path != "" && (c.Certificates.CertPath != "" || c.Certificates.KeyPath != "") {
		errs = append(errs, errors.New("set either p12_path or cert_path/key_path, not both"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// LogValue скрывает секреты при логировании конфигурации.
func (c Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("bind", c.Bind),
		slog.Bool("database", c.DatabaseURL != ""),
		slog.String("redis", c.Redis.Addr),
		slog.String("pass_type_identifier", c.Pass.PassTypeIdentifier),
		slog.String("team_identifier", c.Pass.TeamIdentifier),
		slog.String("web_service_url", c.Pass.WebServiceURL),
		slog.String("barcode_encoding", c.Pass.BarcodeEncoding),
		slog.Bool("p12", c.Certificates.P12Path != ""),
		slog.Int("push_limit", c.Push.Limit),
		slog.Duration("push_window", c.Push.Window),
		slog.Int("wallet_rate_limit", c.Wallet.RateLimit),
		slog.Bool("swagger", c.EnableSwagger),
	)
}
