package memcache

import (
	"github.com/lericson/pylibmc/errors"
)

// Returned when a client or pool is set up with arguments that can never
// work (bad server specs, unknown behaviors, non-positive capacities, ...).
type InvalidConfigurationError struct {
	err errors.Error
}

func (e *InvalidConfigurationError) Error() string {
	return e.err.Error()
}

func (e *InvalidConfigurationError) Unwrap() error {
	return e.err
}

func NewInvalidConfigurationError(
	format string,
	args ...interface{}) error {

	return &InvalidConfigurationError{err: errors.Newf(format, args...)}
}

// Same as NewInvalidConfigurationError, but wraps the error which made the
// configuration invalid.
func WrapInvalidConfigurationError(
	err error,
	format string,
	args ...interface{}) error {

	return &InvalidConfigurationError{err: errors.Wrapf(err, format, args...)}
}

func IsInvalidConfiguration(err error) bool {
	var target *InvalidConfigurationError
	return errors.As(err, &target)
}
