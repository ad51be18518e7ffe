package types

// TradingMode selects whether orders are simulated locally or routed to a
// real exchange.
type TradingMode string

const (
	TradingModePaper TradingMode = "PAPER"
	TradingModeLive  TradingMode = "LIVE"
)

// SessionState is the lifecycle state of a live session.
type SessionState string

const (
	SessionStateIdle    SessionState = "IDLE"
	SessionStateRunning SessionState = "RUNNING"
)

// Credentials are the exchange API credentials for live trading. Both fields
// must be non-empty before a LIVE session may start.
type Credentials struct {
	APIKey    string `yaml:"api_key" json:"api_key"`
	APISecret string `yaml:"api_secret" json:"api_secret"`
}

// IsComplete reports whether both key and secret are present.
func (c Credentials) IsComplete() bool {
	return c.APIKey != "" && c.APISecret != ""
}
