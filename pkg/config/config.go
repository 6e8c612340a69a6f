// Copyright (C) 2025, Gridmine Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/gridmine/gridmine/pkg/bank"
	"github.com/gridmine/gridmine/pkg/ledger"
	"github.com/gridmine/gridmine/pkg/pricing"
	"github.com/gridmine/gridmine/pkg/sale"
)

// Config is loaded in three layers: defaults, then an optional YAML file,
// then GRIDMINE_* environment variables.
type Config struct {
	BindAddr         string `yaml:"bindAddr"         split_words:"true"`
	DataDir          string `yaml:"dataDir"          split_words:"true"`
	DBBackend        string `yaml:"dbBackend"        envconfig:"DB_BACKEND"`
	LogLevel         string `yaml:"logLevel"         split_words:"true"`
	SnapshotInterval string `yaml:"snapshotInterval" split_words:"true"`

	Capacity        int    `yaml:"capacity"`
	BasePrice       string `yaml:"basePrice"       split_words:"true"`
	PeriodSeconds   int64  `yaml:"periodSeconds"   split_words:"true"`
	PriceMultiplier string `yaml:"priceMultiplier" split_words:"true"`
	FloorPrice      string `yaml:"floorPrice"      split_words:"true"`
	BaseRate        string `yaml:"baseRate"        split_words:"true"`
	Curve           string `yaml:"curve"`
	HalfLifeSeconds int64  `yaml:"halfLifeSeconds" split_words:"true"`

	Treasury string `yaml:"treasury"`
	Admin    string `yaml:"admin"`

	// SaleDestination is "treasury", "burn", or an explicit account.
	SaleDestination string `yaml:"saleDestination" split_words:"true"`
}

// Load builds the configuration from defaults, the YAML file at path (if
// non-empty), and the environment.
func Load(path string) (*Config, error) {
	cfg := &Config{
		BindAddr:         ":8080",
		DataDir:          "/var/lib/gridmine",
		DBBackend:        "badger",
		LogLevel:         "info",
		SnapshotInterval: "30s",
		Capacity:         1000,
		BasePrice:        "0.001",
		PeriodSeconds:    604800,
		PriceMultiplier:  "1.2",
		FloorPrice:       "0.001",
		BaseRate:         "1",
		Curve:            "linear",
		Treasury:         "treasury",
		Admin:            "admin",
		SaleDestination:  "burn",
	}

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := envconfig.Process("gridmine", cfg); err != nil {
		return nil, fmt.Errorf("processing environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Capacity <= 0 {
		return errors.New("capacity must be positive")
	}
	if c.PeriodSeconds <= 0 {
		return errors.New("periodSeconds must be positive")
	}
	switch c.Curve {
	case "linear", "exponential":
	default:
		return fmt.Errorf("unknown curve %q", c.Curve)
	}
	if _, err := time.ParseDuration(c.SnapshotInterval); err != nil {
		return fmt.Errorf("bad snapshotInterval: %w", err)
	}
	for name, v := range map[string]string{
		"basePrice":       c.BasePrice,
		"priceMultiplier": c.PriceMultiplier,
		"floorPrice":      c.FloorPrice,
		"baseRate":        c.BaseRate,
	} {
		if _, err := decimal.NewFromString(v); err != nil {
			return fmt.Errorf("bad %s: %w", name, err)
		}
	}
	return nil
}

// SnapshotEvery returns the parsed snapshot interval.
func (c *Config) SnapshotEvery() time.Duration {
	d, _ := time.ParseDuration(c.SnapshotInterval)
	return d
}

func (c *Config) curve() pricing.Curve {
	if c.Curve == "exponential" {
		return pricing.ExponentialCurve{
			HalfLife: time.Duration(c.HalfLifeSeconds) * time.Second,
		}
	}
	return pricing.LinearCurve{}
}

// LedgerConfig translates the loaded values into the ledger's config.
func (c *Config) LedgerConfig() ledger.Config {
	basePrice, _ := decimal.NewFromString(c.BasePrice)
	multiplier, _ := decimal.NewFromString(c.PriceMultiplier)
	floor, _ := decimal.NewFromString(c.FloorPrice)
	rate, _ := decimal.NewFromString(c.BaseRate)

	return ledger.Config{
		Capacity:        c.Capacity,
		BasePrice:       basePrice,
		Period:          time.Duration(c.PeriodSeconds) * time.Second,
		PriceMultiplier: multiplier,
		FloorPrice:      floor,
		BaseRate:        rate,
		Treasury:        c.Treasury,
		Admin:           c.Admin,
		Curve:           c.curve(),
	}
}

// SaleConfig translates the loaded values into the standalone sale's config.
func (c *Config) SaleConfig() sale.Config {
	basePrice, _ := decimal.NewFromString(c.BasePrice)
	multiplier, _ := decimal.NewFromString(c.PriceMultiplier)
	floor, _ := decimal.NewFromString(c.FloorPrice)

	destination := c.SaleDestination
	switch destination {
	case "burn":
		destination = bank.BurnSink
	case "treasury":
		destination = c.Treasury
	}

	return sale.Config{
		BasePrice:       basePrice,
		Period:          time.Duration(c.PeriodSeconds) * time.Second,
		PriceMultiplier: multiplier,
		FloorPrice:      floor,
		Destination:     destination,
		Curve:           c.curve(),
	}
}
