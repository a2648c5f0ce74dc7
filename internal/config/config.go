// Package config loads runtime configuration from defaults, environment
// variables (MEDEXTRACT_ prefix) and command line flags, in increasing
// precedence.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/clinovia/medextract/internal/ocr"
)

const (
	DefaultListenAddr  = ":8080"
	DefaultRedisAddr   = "127.0.0.1:6379"
	DefaultStorageRoot = "./data/documents"
	DefaultLogLevel    = "info"
	DefaultConcurrency = 4
)

// Config holds every knob the daemons and CLIs share.
type Config struct {
	ListenAddr  string
	DatabaseURL string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	StorageRoot string

	OCREngine   string // "tesseract" (exec) or "gosseract"
	Pdftoppm    string
	Tesseract   string
	OCRLanguage string
	OCRDPI      int
	OCRMaxPages int

	MatchThreshold float64

	WorkerConcurrency int

	// SeedTemplates is an optional JSON file of disease templates
	// upserted at daemon start; empty disables seeding.
	SeedTemplates string

	LogLevel  string
	LogFormat string // "json" or "text"
}

// Load reads configuration for daemon binaries: defaults, then
// environment, then flags. Call once per process; it parses the
// process-wide flag set.
func Load() (*Config, error) {
	setDefaults()

	viper.SetEnvPrefix("MEDEXTRACT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	defineFlags()
	pflag.Parse()
	if err := bindFlags(); err != nil {
		return nil, err
	}

	cfg := fromViper()
	if cfg.StorageRoot != "" {
		if abs, err := filepath.Abs(cfg.StorageRoot); err == nil {
			cfg.StorageRoot = abs
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func setDefaults() {
	viper.SetDefault("listen.addr", DefaultListenAddr)
	viper.SetDefault("database.url", "")
	viper.SetDefault("redis.addr", DefaultRedisAddr)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("storage.root", DefaultStorageRoot)
	viper.SetDefault("ocr.engine", ocr.EngineTesseract)
	viper.SetDefault("ocr.pdftoppm", "pdftoppm")
	viper.SetDefault("ocr.tesseract", "tesseract")
	viper.SetDefault("ocr.language", "eng")
	viper.SetDefault("ocr.dpi", 300)
	viper.SetDefault("ocr.maxpages", ocr.DefaultMaxPages)
	viper.SetDefault("match.threshold", 0.0) // 0 -> matcher default
	viper.SetDefault("worker.concurrency", DefaultConcurrency)
	viper.SetDefault("templates.seed", "")
	viper.SetDefault("log.level", DefaultLogLevel)
	viper.SetDefault("log.format", "json")
}

func defineFlags() {
	pflag.String("listen-addr", DefaultListenAddr, "HTTP listen address")
	pflag.String("database-url", "", "PostgreSQL connection string")
	pflag.String("redis-addr", DefaultRedisAddr, "Redis address for queue and run locks")
	pflag.String("storage-root", DefaultStorageRoot, "Directory for stored PDF documents")
	pflag.String("ocr-engine", ocr.EngineTesseract, "OCR engine: tesseract or gosseract")
	pflag.String("ocr-language", "eng", "OCR language")
	pflag.Int("ocr-dpi", 300, "Rasterization DPI for scanned PDFs")
	pflag.Int("worker-concurrency", DefaultConcurrency, "Concurrent extraction tasks per worker")
	pflag.String("templates-seed", "", "JSON file of disease templates to seed at start")
	pflag.String("log-level", DefaultLogLevel, "Log level: debug, info, warn, error")
}

func bindFlags() error {
	binds := map[string]string{
		"listen.addr":        "listen-addr",
		"database.url":       "database-url",
		"redis.addr":         "redis-addr",
		"storage.root":       "storage-root",
		"ocr.engine":         "ocr-engine",
		"ocr.language":       "ocr-language",
		"ocr.dpi":            "ocr-dpi",
		"worker.concurrency": "worker-concurrency",
		"templates.seed":     "templates-seed",
		"log.level":          "log-level",
	}
	for key, flag := range binds {
		if err := viper.BindPFlag(key, pflag.Lookup(flag)); err != nil {
			return fmt.Errorf("bind flag %s: %w", flag, err)
		}
	}
	return nil
}

func fromViper() *Config {
	return &Config{
		ListenAddr:        viper.GetString("listen.addr"),
		DatabaseURL:       viper.GetString("database.url"),
		RedisAddr:         viper.GetString("redis.addr"),
		RedisPassword:     viper.GetString("redis.password"),
		RedisDB:           viper.GetInt("redis.db"),
		StorageRoot:       viper.GetString("storage.root"),
		OCREngine:         viper.GetString("ocr.engine"),
		Pdftoppm:          viper.GetString("ocr.pdftoppm"),
		Tesseract:         viper.GetString("ocr.tesseract"),
		OCRLanguage:       viper.GetString("ocr.language"),
		OCRDPI:            viper.GetInt("ocr.dpi"),
		OCRMaxPages:       viper.GetInt("ocr.maxpages"),
		MatchThreshold:    viper.GetFloat64("match.threshold"),
		WorkerConcurrency: viper.GetInt("worker.concurrency"),
		SeedTemplates:     viper.GetString("templates.seed"),
		LogLevel:          viper.GetString("log.level"),
		LogFormat:         viper.GetString("log.format"),
	}
}

// Validate rejects configurations no binary could run with.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("database URL is required (MEDEXTRACT_DATABASE_URL or --database-url)")
	}
	if c.RedisAddr == "" {
		return errors.New("redis address is required")
	}
	if c.StorageRoot == "" {
		return errors.New("storage root is required")
	}
	switch c.OCREngine {
	case ocr.EngineTesseract, ocr.EngineGosseract:
	default:
		return fmt.Errorf("unknown OCR engine %q", c.OCREngine)
	}
	if c.OCRDPI <= 0 {
		return fmt.Errorf("OCR DPI must be positive, got %d", c.OCRDPI)
	}
	if c.OCRMaxPages <= 0 {
		return fmt.Errorf("OCR max pages must be positive, got %d", c.OCRMaxPages)
	}
	if c.MatchThreshold < 0 || c.MatchThreshold >= 100 {
		return fmt.Errorf("match threshold must be in [0, 100), got %g", c.MatchThreshold)
	}
	if c.WorkerConcurrency <= 0 {
		return fmt.Errorf("worker concurrency must be positive, got %d", c.WorkerConcurrency)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	return nil
}
