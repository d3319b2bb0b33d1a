// Package config provides configuration management for mercury-sync.
// Values come from built-in defaults, an optional YAML file and the
// environment (including a .env file), with the environment taking precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Mercury MercuryConfig `yaml:"mercury" envPrefix:"MERCURY_"`
	Ledger  LedgerConfig  `yaml:"ledger" envPrefix:"LEDGER_"`
	Debug   bool          `yaml:"debug" env:"DEBUG"`
}

// MercuryConfig represents Mercury API configuration.
type MercuryConfig struct {
	APIKey      string        `yaml:"api_key" env:"API_KEY"`
	APIURL      string        `yaml:"api_url" env:"API_URL"`
	PageSize    int           `yaml:"page_size" env:"PAGE_SIZE"`
	Timeout     time.Duration `yaml:"timeout" env:"TIMEOUT"`
	ForceIPv4   bool          `yaml:"force_ipv4" env:"FORCE_IPV4"`
	Concurrency int           `yaml:"concurrency" env:"CONCURRENCY"`
}

// LedgerConfig represents Beancount ledger configuration.
type LedgerConfig struct {
	File                 string `yaml:"file" env:"FILE"`
	Root                 string `yaml:"root" env:"ROOT"`       // Monthly import files; default {dir of File}/mercury
	DBPath               string `yaml:"db_path" env:"DB_PATH"` // Run history; default {Root}/.sync/sync.db
	UncategorizedAccount string `yaml:"uncategorized_account" env:"UNCATEGORIZED_ACCOUNT"`
	Currency             string `yaml:"currency" env:"CURRENCY"`
}

// MaxPageSize is the largest page the Mercury API serves.
const MaxPageSize = 500

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Mercury: MercuryConfig{
			APIURL:      "https://api.mercury.com/api/v1",
			PageSize:    MaxPageSize,
			Timeout:     30 * time.Second,
			Concurrency: 4,
		},
		Ledger: LedgerConfig{
			File:                 "./main.beancount",
			UncategorizedAccount: "Expenses:FIXME",
			Currency:             "USD",
		},
	}
}

// Load loads configuration.
// configFile is an optional YAML file. envFile is an optional .env file;
// when empty, .env in the current directory is loaded if present.
func Load(configFile, envFile string) (*Config, error) {
	// Load .env file
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("failed to load .env file: %w", err)
		}
	} else {
		// Try to load .env from current directory (ignore error if not found)
		_ = godotenv.Load()
	}

	var config Config
	if configFile != "" {
		fileConfig, err := readFile(configFile)
		if err != nil {
			return nil, err
		}
		config = *fileConfig
	}

	// Only variables that are set overwrite file values, including false and 0.
	if err := env.Parse(&config); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := mergo.Merge(&config, Defaults()); err != nil {
		return nil, fmt.Errorf("failed to merge defaults: %w", err)
	}

	return &config, nil
}

func readFile(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(raw, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return &config, nil
}

// Validate validates the configuration.
// It checks that every required field is set and that values are in range.
func (c *Config) Validate(required ...[]string) error {
	var missing []string

	for _, path := range required {
		if len(path) < 2 {
			continue
		}

		var value string
		switch path[0] {
		case "mercury":
			switch path[1] {
			case "apiKey":
				value = c.Mercury.APIKey
			case "apiUrl":
				value = c.Mercury.APIURL
			}
		case "ledger":
			switch path[1] {
			case "file":
				value = c.Ledger.File
			case "root":
				value = c.Ledger.Root
			case "dbPath":
				value = c.Ledger.DBPath
			case "uncategorizedAccount":
				value = c.Ledger.UncategorizedAccount
			}
		}

		if value == "" {
			missing = append(missing, strings.Join(path, "."))
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %v\nPlease check your config file, .env file or environment variables", missing)
	}

	var errs []error
	if c.Mercury.PageSize < 1 || c.Mercury.PageSize > MaxPageSize {
		errs = append(errs, fmt.Errorf("mercury.pageSize must be between 1 and %d, got %d", MaxPageSize, c.Mercury.PageSize))
	}
	if c.Mercury.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("mercury.concurrency must be positive, got %d", c.Mercury.Concurrency))
	}
	return errors.Join(errs...)
}
