// Package logging wraps zap behind a small Logger interface so the rest of
// the tool logs structured events without carrying zap types around.
package logging

import (
	"strings"

	"go.uber.org/zap/zapcore"
)

// Config controls the logger output. The zero value plus defaults gives a
// console logger on stdout, which is what the CLI wants; a File turns on a
// rotating log file next to it.
type Config struct {
	// Level is the minimum level (debug, info, warn, error, fatal).
	Level string `mapstructure:"level" json:"level,omitempty" yaml:"level" default:"info"`

	// Format selects the encoder: console or json.
	Format string `mapstructure:"format" json:"format,omitempty" yaml:"format" default:"console"`

	// File is an optional log file path. Empty disables file output.
	File string `mapstructure:"file" json:"file,omitempty" yaml:"file"`

	// Terminal mirrors every entry to stdout. Only meaningful with File
	// set; without a file the terminal is the sole sink regardless.
	Terminal bool `mapstructure:"terminal" json:"terminal,omitempty" yaml:"terminal" default:"true"`

	// ShowCaller adds the calling file and line to each entry.
	ShowCaller bool `mapstructure:"show_caller" json:"show_caller,omitempty" yaml:"show_caller"`

	// Rotation settings for the log file, in megabytes / days / count.
	MaxSize    int  `mapstructure:"max_size" json:"max_size,omitempty" yaml:"max_size" default:"50"`
	MaxAge     int  `mapstructure:"max_age" json:"max_age,omitempty" yaml:"max_age" default:"7"`
	MaxBackups int  `mapstructure:"max_backups" json:"max_backups,omitempty" yaml:"max_backups" default:"5"`
	Compress   bool `mapstructure:"compress" json:"compress,omitempty" yaml:"compress"`

	// TimeFormat is the Go layout for timestamps.
	TimeFormat string `mapstructure:"time_format" json:"time_format,omitempty" yaml:"time_format" default:"2006/01/02 - 15:04:05"`
}

// DefaultConfig returns the conventional CLI configuration.
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		Format:     "console",
		Terminal:   true,
		MaxSize:    50,
		MaxAge:     7,
		MaxBackups: 5,
		TimeFormat: "2006/01/02 - 15:04:05",
	}
}

// TransportLevel converts the string level to zapcore.Level.
func (c Config) TransportLevel() zapcore.Level {
	switch strings.ToLower(c.Level) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "fatal":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.Level == "" {
		c.Level = def.Level
	}
	if c.Format == "" {
		c.Format = def.Format
	}
	if c.MaxSize == 0 {
		c.MaxSize = def.MaxSize
	}
	if c.MaxAge == 0 {
		c.MaxAge = def.MaxAge
	}
	if c.MaxBackups == 0 {
		c.MaxBackups = def.MaxBackups
	}
	if c.TimeFormat == "" {
		c.TimeFormat = def.TimeFormat
	}
	if c.File == "" {
		c.Terminal = true
	}
}
