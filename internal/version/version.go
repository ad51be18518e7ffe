package version

// Version is the current version of the QuantFlow library.
// This value is set at build time using ldflags:
// -ldflags "-X github.com/tehqua/QuantFlow/internal/version.Version=1.2.3"
// A value of "main" indicates a development build and skips compatibility
// checks.
var Version = "v1.0.0"

// StrategyAPIVersion is the version of the strategy contract the engine
// exposes. Strategies declare the version they were written against and the
// registry rejects incompatible ones.
var StrategyAPIVersion = "v1.0.0"

// GetVersion returns the current version of the library.
func GetVersion() string {
	return Version
}
