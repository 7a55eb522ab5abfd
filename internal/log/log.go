// Package log provides the process-wide logger.
package log

import (
	"sync"
)

// Logger is the leveled, structured logger used across the capture engine.
// It has no Fatal or Panic levels.
type Logger interface {
	Trace(args ...interface{})
	Tracef(format string, args ...interface{})

	Debug(args ...interface{})
	Debugf(format string, args ...interface{})

	Info(args ...interface{})
	Infof(format string, args ...interface{})

	Warn(args ...interface{})
	Warnf(format string, args ...interface{})

	Error(args ...interface{})
	Errorf(format string, args ...interface{})

	// WithField and friends return a child logger; the receiver is unchanged.
	WithField(field string, value interface{}) Logger
	WithFields(fields map[string]interface{}) Logger
	WithError(err error) Logger

	IsTraceEnabled() bool
	IsDebugEnabled() bool
	IsInfoEnabled() bool
}

var (
	once   sync.Once
	mu     sync.RWMutex
	logger Logger = defaultLogger()
)

// GetLogger returns the global logger. Before Init it writes info and above
// to stderr with the default pattern.
func GetLogger() Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// Init replaces the global logger. Only the first call has an effect.
func Init(cfg *Config) error {
	var err error
	once.Do(func() {
		var l Logger
		l, err = New(cfg)
		if err != nil {
			return
		}
		mu.Lock()
		logger = l
		mu.Unlock()
	})
	return err
}
