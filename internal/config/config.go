// Package config loads and validates the YAML files the quantflow CLI
// consumes, and exports their JSON schemas for editor tooling.
package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"gopkg.in/yaml.v2"

	"github.com/tehqua/QuantFlow/internal/engine"
	"github.com/tehqua/QuantFlow/internal/types"
	"github.com/tehqua/QuantFlow/pkg/errors"
)

// Data provider names accepted by DataConfig.
const (
	ProviderBinance   = "binance"
	ProviderPolygon   = "polygon"
	ProviderSynthetic = "synthetic"
)

// StrategyConfig names a registered strategy and carries its own YAML
// configuration as an opaque string handed to the strategy factory.
type StrategyConfig struct {
	Name   string `yaml:"name" json:"name" jsonschema:"title=Strategy Name,description=Registered strategy name" validate:"required"`
	Config string `yaml:"config" json:"config" jsonschema:"title=Strategy Config,description=Strategy-specific YAML configuration"`
}

// DataConfig selects where backtest bars come from.
type DataConfig struct {
	Provider string    `yaml:"provider" json:"provider" jsonschema:"description=Bar data provider,enum=binance,enum=polygon,enum=synthetic" validate:"required,oneof=binance polygon synthetic"`
	Start    time.Time `yaml:"start" json:"start" jsonschema:"description=Range start (inclusive)"`
	End      time.Time `yaml:"end" json:"end" jsonschema:"description=Range end (exclusive)"`

	// Seed and Bars apply only to the synthetic provider.
	Seed int64 `yaml:"seed" json:"seed" jsonschema:"description=Random seed for synthetic bars,default=1"`
	Bars int   `yaml:"bars" json:"bars" jsonschema:"description=Number of synthetic bars to generate,default=500" validate:"gte=0"`
}

// BacktestConfig is the full input for one backtest run.
type BacktestConfig struct {
	Engine   engine.Config  `yaml:"engine" json:"engine" jsonschema:"description=Run parameters"`
	Strategy StrategyConfig `yaml:"strategy" json:"strategy" jsonschema:"description=Strategy selection"`
	Data     DataConfig     `yaml:"data" json:"data" jsonschema:"description=Bar data source"`

	// Output is an optional YAML path the result is written to in addition
	// to the store.
	Output string `yaml:"output" json:"output" jsonschema:"description=Optional result YAML output path"`
}

// LiveConfig is the full input for one live session.
type LiveConfig struct {
	Engine   engine.Config  `yaml:"engine" json:"engine" jsonschema:"description=Run parameters"`
	Strategy StrategyConfig `yaml:"strategy" json:"strategy" jsonschema:"description=Strategy selection"`

	Mode types.TradingMode `yaml:"mode" json:"mode" jsonschema:"description=Trading mode,enum=PAPER,enum=LIVE,default=PAPER" validate:"required,oneof=PAPER LIVE"`

	// Credentials may be left empty in the file and supplied via the
	// BINANCE_API_KEY / BINANCE_API_SECRET environment variables instead.
	Credentials types.Credentials `yaml:"credentials" json:"credentials" jsonschema:"description=Exchange API credentials (LIVE mode only)"`

	UseTestnet bool `yaml:"use_testnet" json:"use_testnet" jsonschema:"description=Route LIVE orders to the Binance testnet,default=false"`
}

// Environment variables consulted when LiveConfig credentials are empty.
const (
	EnvAPIKey    = "BINANCE_API_KEY"
	EnvAPISecret = "BINANCE_API_SECRET"
)

// Validate validates the backtest config, including the nested engine
// config and the provider-specific fields.
func (c *BacktestConfig) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid backtest config", err)
	}

	if err := c.Engine.Validate(); err != nil {
		return err
	}

	switch c.Data.Provider {
	case ProviderSynthetic:
		if c.Data.Bars <= 0 {
			return errors.New(errors.ErrCodeInvalidConfiguration, "synthetic provider requires a positive bar count")
		}
	default:
		if !c.Data.End.After(c.Data.Start) {
			return errors.New(errors.ErrCodeInvalidConfiguration, "data range end must be after start")
		}
	}

	return nil
}

// Validate validates the live config. Credential presence is not checked
// here; the session controller enforces it when a LIVE session starts.
func (c *LiveConfig) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid live config", err)
	}

	return c.Engine.Validate()
}

// ResolveCredentials returns the configured credentials, falling back to
// the environment for any empty field.
func (c *LiveConfig) ResolveCredentials() types.Credentials {
	credentials := c.Credentials

	if credentials.APIKey == "" {
		credentials.APIKey = os.Getenv(EnvAPIKey)
	}

	if credentials.APISecret == "" {
		credentials.APISecret = os.Getenv(EnvAPISecret)
	}

	return credentials
}

// LoadBacktestConfig reads and validates a backtest config file.
func LoadBacktestConfig(path string) (*BacktestConfig, error) {
	var config BacktestConfig
	if err := loadYAML(path, &config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// LoadLiveConfig reads and validates a live session config file.
func LoadLiveConfig(path string) (*LiveConfig, error) {
	var config LiveConfig
	if err := loadYAML(path, &config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func loadYAML(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to read config file %s", path)
	}

	if err := yaml.Unmarshal(data, out); err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to parse config file %s", path)
	}

	return nil
}

// ToJSONSchema converts a config struct to its JSON schema.
func ToJSONSchema[T any](t T) (string, error) {
	r := new(jsonschema.Reflector)
	r.DoNotReference = true
	schema := r.Reflect(t)

	out, err := json.Marshal(schema)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to marshal schema", err)
	}

	return string(out), nil
}

// BacktestConfigSchema returns the JSON schema for BacktestConfig.
func BacktestConfigSchema() (string, error) {
	return ToJSONSchema(BacktestConfig{})
}

// LiveConfigSchema returns the JSON schema for LiveConfig.
func LiveConfigSchema() (string, error) {
	return ToJSONSchema(LiveConfig{})
}
