package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeInvalidBar           ErrorCode = 102
	ErrCodeInvalidTakeProfit    ErrorCode = 103
	ErrCodeInvalidStopLoss      ErrorCode = 104
	ErrCodeInvalidOrder         ErrorCode = 105
	ErrCodeInvalidQuantity      ErrorCode = 106
	ErrCodeInvalidTimeframe     ErrorCode = 107
	ErrCodeInvalidSymbol        ErrorCode = 108
	ErrCodeMissingParameter     ErrorCode = 109
	ErrCodeOutOfOrderBar        ErrorCode = 110
	ErrCodeInvalidVersion       ErrorCode = 111

	// Data/Feed errors (200-299)
	ErrCodeDataNotFound          ErrorCode = 200
	ErrCodeDataSourceUnavailable ErrorCode = 201
	ErrCodeQueryFailed           ErrorCode = 202
	ErrCodeHistoricalDataFailed  ErrorCode = 203
	ErrCodeStreamInterrupted     ErrorCode = 204
	ErrCodeStreamClosed          ErrorCode = 205
	ErrCodeInvalidProvider       ErrorCode = 206
	ErrCodeDataParseFailed       ErrorCode = 207

	// Strategy errors (300-399)
	ErrCodeStrategyNotFound     ErrorCode = 300
	ErrCodeStrategyConfigError  ErrorCode = 301
	ErrCodeStrategyInitFailed   ErrorCode = 302
	ErrCodeStrategyRuntimeError ErrorCode = 303
	ErrCodeVersionMismatch      ErrorCode = 304

	// Trading/Ledger errors (400-499)
	ErrCodeOrderFailed      ErrorCode = 400
	ErrCodePositionNotFound ErrorCode = 401
	ErrCodeExecutorFailed   ErrorCode = 402

	// Session errors (500-599)
	ErrCodeMissingCredentials ErrorCode = 500
	ErrCodeSessionRunning     ErrorCode = 501
	ErrCodeSessionNotRunning  ErrorCode = 502
	ErrCodeRunConfigError     ErrorCode = 503
	ErrCodeRunInitFailed      ErrorCode = 504

	// Persistence errors (600-699)
	ErrCodeStoreInitFailed ErrorCode = 600
	ErrCodeStoreWriteError ErrorCode = 601
	ErrCodeStoreReadError  ErrorCode = 602
	ErrCodeResultNotFound  ErrorCode = 603
)
