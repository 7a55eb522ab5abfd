package log

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

// logrusAdapter implements Logger over a logrus entry.
type logrusAdapter struct {
	entry *logrus.Entry
}

// New builds a logger from cfg without touching the global one.
func New(cfg *Config) (Logger, error) {
	c := Config{}
	if cfg != nil {
		c = *cfg
	}
	c.ApplyDefaults()

	level, err := logrus.ParseLevel(c.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", c.Level, err)
	}

	out := NewMultiWriter()
	for _, a := range c.Appenders {
		if err := out.AddAppender(a); err != nil {
			return nil, err
		}
	}

	l := logrus.New()
	l.SetLevel(level)
	l.SetOutput(out)
	l.SetReportCaller(c.Caller)

	switch c.Format {
	case FormatPattern:
		l.SetFormatter(&formatter{pattern: c.Pattern, time: c.Time})
	case FormatJSON:
		l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: c.Time})
	default:
		return nil, fmt.Errorf("unsupported log format: %s (must be pattern or json)", c.Format)
	}

	return &logrusAdapter{entry: logrus.NewEntry(l)}, nil
}

func defaultLogger() Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&formatter{pattern: DefaultPattern, time: DefaultTime})
	return &logrusAdapter{entry: logrus.NewEntry(l)}
}

func (l *logrusAdapter) Trace(args ...interface{})                 { l.entry.Trace(args...) }
func (l *logrusAdapter) Tracef(format string, args ...interface{}) { l.entry.Tracef(format, args...) }

func (l *logrusAdapter) Debug(args ...interface{})                 { l.entry.Debug(args...) }
func (l *logrusAdapter) Debugf(format string, args ...interface{}) { l.entry.Debugf(format, args...) }

func (l *logrusAdapter) Info(args ...interface{})                 { l.entry.Info(args...) }
func (l *logrusAdapter) Infof(format string, args ...interface{}) { l.entry.Infof(format, args...) }

func (l *logrusAdapter) Warn(args ...interface{})                 { l.entry.Warn(args...) }
func (l *logrusAdapter) Warnf(format string, args ...interface{}) { l.entry.Warnf(format, args...) }

func (l *logrusAdapter) Error(args ...interface{})                 { l.entry.Error(args...) }
func (l *logrusAdapter) Errorf(format string, args ...interface{}) { l.entry.Errorf(format, args...) }

func (l *logrusAdapter) WithField(field string, value interface{}) Logger {
	return &logrusAdapter{entry: l.entry.WithField(field, value)}
}
func (l *logrusAdapter) WithFields(fields map[string]interface{}) Logger {
	return &logrusAdapter{entry: l.entry.WithFields(fields)}
}
func (l *logrusAdapter) WithError(err error) Logger {
	return &logrusAdapter{entry: l.entry.WithError(err)}
}

func (l *logrusAdapter) IsTraceEnabled() bool {
	return l.entry.Logger.IsLevelEnabled(logrus.TraceLevel)
}
func (l *logrusAdapter) IsDebugEnabled() bool {
	return l.entry.Logger.IsLevelEnabled(logrus.DebugLevel)
}
func (l *logrusAdapter) IsInfoEnabled() bool {
	return l.entry.Logger.IsLevelEnabled(logrus.InfoLevel)
}
