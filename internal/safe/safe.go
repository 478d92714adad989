// Package safe is the single place where recoverable-by-design failures are
// swallowed. Calls at host-OS and content-scripting boundaries go through
// Do or Ignore; everything else returns its errors. Panics are not
// recovered here: they are programming errors and surface at the loop.
package safe

import "log/slog"

// Do runs fn and logs a returned error at debug level under op. It reports
// whether fn succeeded.
func Do(logger *slog.Logger, op string, fn func() error) bool {
	if err := fn(); err != nil {
		Ignore(logger, op, err)
		return false
	}
	return true
}

// Ignore logs err at debug level when it is non-nil.
func Ignore(logger *slog.Logger, op string, err error) {
	if err == nil || logger == nil {
		return
	}
	logger.Debug("ignored failure", "op", op, "error", err)
}
