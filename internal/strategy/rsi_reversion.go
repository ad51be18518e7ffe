package strategy

import (
	"github.com/go-playground/validator/v10"
	"github.com/tehqua/QuantFlow/internal/types"
	"github.com/tehqua/QuantFlow/pkg/errors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"
)

// RSIReversionName is the registry name of the built-in mean reversion
// strategy.
const RSIReversionName = "rsi_reversion"

type rsiReversionConfig struct {
	Period     int     `yaml:"period" validate:"required,gt=1"`
	Oversold   float64 `yaml:"oversold" validate:"required,gt=0,lt=100"`
	Overbought float64 `yaml:"overbought" validate:"required,gt=0,lt=100"`
	Quantity   float64 `yaml:"quantity" validate:"required,gt=0"`
}

// RSIReversion buys when RSI drops below the oversold threshold and closes
// the long when RSI rises above the overbought threshold.
type RSIReversion struct {
	config rsiReversionConfig
}

var _ Strategy = (*RSIReversion)(nil)

// NewRSIReversion builds the strategy from YAML config.
func NewRSIReversion(config string) (Strategy, error) {
	cfg := rsiReversionConfig{
		Period:     14,
		Oversold:   30,
		Overbought: 70,
		Quantity:   1,
	}

	if err := yaml.Unmarshal([]byte(config), &cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStrategyConfigError, "failed to parse rsi_reversion config", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStrategyConfigError, "invalid rsi_reversion config", err)
	}

	if cfg.Oversold >= cfg.Overbought {
		return nil, errors.Newf(errors.ErrCodeStrategyConfigError, "oversold %f must be below overbought %f", cfg.Oversold, cfg.Overbought)
	}

	return &RSIReversion{config: cfg}, nil
}

func (s *RSIReversion) Name() string {
	return RSIReversionName
}

func (s *RSIReversion) APIVersion() string {
	return "1.0.0"
}

func (s *RSIReversion) Init(ctx *Context) error {
	ctx.Logger().Info("rsi_reversion initialized",
		zap.Int("period", s.config.Period),
		zap.Float64("oversold", s.config.Oversold),
		zap.Float64("overbought", s.config.Overbought))

	return nil
}

func (s *RSIReversion) OnBar(ctx *Context) ([]types.OrderIntent, error) {
	closes, err := ctx.History().Closes(s.config.Period + 1)
	if err != nil {
		if errors.IsInsufficientDataError(err) {
			return nil, nil // still warming up
		}

		return nil, err
	}

	rsi := relativeStrengthIndex(closes)
	position := ctx.Position()

	if rsi < s.config.Oversold && position.IsNone() {
		return []types.OrderIntent{{
			Side:     types.SideBuy,
			Quantity: s.config.Quantity,
		}}, nil
	}

	if rsi > s.config.Overbought && position.IsSome() && position.Unwrap().Side == types.SideBuy {
		return []types.OrderIntent{{
			Side:     types.SideSell,
			Quantity: position.Unwrap().Quantity,
		}}, nil
	}

	return nil, nil
}

// relativeStrengthIndex computes a simple-average RSI over the whole window.
// closes must hold period+1 values.
func relativeStrengthIndex(closes []float64) float64 {
	var gains, losses float64

	for i := 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			gains += change
		} else {
			losses -= change
		}
	}

	if losses == 0 {
		if gains == 0 {
			return 50
		}

		return 100
	}

	rs := gains / losses

	return 100 - 100/(1+rs)
}
