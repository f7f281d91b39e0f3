package logging

import (
	"os"
	"path/filepath"

	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// newWriteSyncer builds the output sink: stdout, a rotating file, or both.
func newWriteSyncer(config Config) zapcore.WriteSyncer {
	if config.File == "" {
		return zapcore.AddSync(os.Stdout)
	}

	_ = os.MkdirAll(filepath.Dir(config.File), 0o755)
	file := zapcore.AddSync(&lumberjack.Logger{
		Filename:   config.File,
		MaxSize:    config.MaxSize,
		MaxAge:     config.MaxAge,
		MaxBackups: config.MaxBackups,
		Compress:   config.Compress,
		LocalTime:  true,
	})

	if config.Terminal {
		return zapcore.NewMultiWriteSyncer(zapcore.AddSync(os.Stdout), file)
	}
	return file
}
