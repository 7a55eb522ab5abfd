package log

import (
	"fmt"
	"io"
	"os"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/natefinch/lumberjack.v2"
)

type MultiWriter struct {
	writers []io.Writer
}

func (m *MultiWriter) Write(p []byte) (n int, err error) {
	for _, w := range m.writers {
		_, e := w.Write(p)
		if e != nil {
			err = e
		}
	}
	return len(p), err
}

func (m *MultiWriter) Add(writer io.Writer) *MultiWriter {
	m.writers = append(m.writers, writer)
	return m
}

// Len returns the number of attached writers.
func (m *MultiWriter) Len() int {
	return len(m.writers)
}

func NewMultiWriter() *MultiWriter {
	return &MultiWriter{writers: make([]io.Writer, 0)}
}

type FileAppenderOpt struct {
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

func (m *MultiWriter) AddFileAppender(options FileAppenderOpt) *MultiWriter {
	writer := &lumberjack.Logger{
		Filename:   options.Filename,
		MaxSize:    options.MaxSize,    // megabytes
		MaxBackups: options.MaxBackups, // number of backups
		MaxAge:     options.MaxAge,     // days
		Compress:   options.Compress,   // compress the backups
	}
	m.writers = append(m.writers, writer)
	return m
}

// AddAppender attaches the output described by cfg.
func (m *MultiWriter) AddAppender(cfg AppenderConfig) error {
	switch cfg.Type {
	case AppenderConsole:
		// stdout carries captured records
		m.Add(os.Stderr)
	case AppenderFile:
		var opt FileAppenderOpt
		if err := mapstructure.WeakDecode(cfg.Options, &opt); err != nil {
			return fmt.Errorf("decode file appender options: %w", err)
		}
		if opt.Filename == "" {
			return fmt.Errorf("file appender requires 'filename'")
		}
		m.AddFileAppender(opt)
	default:
		return fmt.Errorf("unknown appender type: %q", cfg.Type)
	}
	return nil
}
