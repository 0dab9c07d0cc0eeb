package simconfig

import "fmt"

// ConfigError is the single structured error type every simulation
// configuration failure is translated into. Block identifies the config
// block the user has to fix, e.g.
// simprod.config.tier.stp.l200p03.simconfig.birds-nest-K40.
type ConfigError struct {
	Block string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("in config block '%s': %v", e.Block, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// NewConfigError wraps err (or a formatted message) with a block path.
func NewConfigError(block string, err error) *ConfigError {
	return &ConfigError{Block: block, Err: err}
}

// Errorf builds a ConfigError from a format string.
func Errorf(block, format string, args ...any) *ConfigError {
	return &ConfigError{Block: block, Err: fmt.Errorf(format, args...)}
}

// NotImplementedError signals a declared but unsupported configuration
// feature. It is distinct from ConfigError: the configuration is valid,
// the pipeline just cannot act on it yet.
type NotImplementedError struct {
	Feature string
}

func (e *NotImplementedError) Error() string {
	return fmt.Sprintf("%s is not implemented", e.Feature)
}
