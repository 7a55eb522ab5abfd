package log

const (
	DefaultPattern = "%time [%level] %caller: %msg %field%n"
	DefaultTime    = "2006-01-02 15:04:05.000"
	DefaultLevel   = "info"

	FormatPattern = "pattern"
	FormatJSON    = "json"

	AppenderConsole = "console"
	AppenderFile    = "file"
)

// Config configures the logger. Appenders default to a single console appender.
type Config struct {
	Level     string           `mapstructure:"level" yaml:"level"`
	Format    string           `mapstructure:"format" yaml:"format"`
	Pattern   string           `mapstructure:"pattern" yaml:"pattern"`
	Time      string           `mapstructure:"time" yaml:"time"`
	Caller    bool             `mapstructure:"caller" yaml:"caller"`
	Appenders []AppenderConfig `mapstructure:"appenders" yaml:"appenders"`
}

// AppenderConfig selects one output. Options are decoded per type,
// e.g. into FileAppenderOpt for "file".
type AppenderConfig struct {
	Type    string                 `mapstructure:"type" yaml:"type"`
	Options map[string]interface{} `mapstructure:"options" yaml:"options,omitempty"`
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Level == "" {
		c.Level = DefaultLevel
	}
	if c.Format == "" {
		c.Format = FormatPattern
	}
	if c.Pattern == "" {
		c.Pattern = DefaultPattern
	}
	if c.Time == "" {
		c.Time = DefaultTime
	}
	if len(c.Appenders) == 0 {
		c.Appenders = []AppenderConfig{{Type: AppenderConsole}}
	}
}
