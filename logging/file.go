package logging

import (
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// FileOptions configure the rotating log file of NewLoggerWithFile.
type FileOptions struct {
	Path string
	// MaxSizeMB is the size at which the file is rotated. Zero means 100.
	MaxSizeMB  int
	MaxBackups int
}

// NewLoggerWithFile returns a logger that writes to stdout like NewLogger
// and also writes JSON lines to a rotating file. The returned closer releases
// the file.
func NewLoggerWithFile(name string, level zapcore.Level, opts FileOptions) (Logger, io.Closer) {
	config := NewLoggerConfig()
	config.Level = zap.NewAtomicLevelAt(level)

	rotator := &lumberjack.Logger{
		Filename:   opts.Path,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		Compress:   true,
	}
	fileEncoder := config.EncoderConfig
	fileEncoder.EncodeLevel = zapcore.CapitalLevelEncoder
	fileCore := zapcore.NewCore(zapcore.NewJSONEncoder(fileEncoder), zapcore.AddSync(rotator), config.Level)

	base := zap.Must(config.Build()).WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewTee(core, fileCore)
	}))
	return &impl{
		name:          name,
		level:         config.Level,
		SugaredLogger: base.Sugar().Named(name),
	}, rotator
}
