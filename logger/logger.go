package logger

import "github.com/retroenv/retrogolib/log"

// New returns the structured logger used across the monitor, with the
// level picked from the flags. Debug wins over quiet.
func New(debug, quiet bool) *log.Logger {
	cfg := log.DefaultConfig()
	if debug {
		cfg.Level = log.DebugLevel
	} else if quiet {
		cfg.Level = log.ErrorLevel
	}
	return log.NewWithConfig(cfg)
}
