// Package enginemock holds generated gomock mocks for the engine's ports.
package enginemock

//go:generate mockgen -destination=./barsource_mock.go -package=enginemock github.com/tehqua/QuantFlow/internal/engine/barsource BarSource
//go:generate mockgen -destination=./executor_mock.go -package=enginemock github.com/tehqua/QuantFlow/internal/exchange OrderExecutor
