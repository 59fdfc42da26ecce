// Package logger builds the logr.Logger instances the rest of the library
// takes as collaborators, backed by zap with an adjustable console level.
package logger

import (
	"os"
	"runtime"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	verbosityFlagName      = "verbosity"
	verbosityFlagShortName = "v"
)

type Logger struct {
	logr.Logger
	name        string
	atomicLevel zap.AtomicLevel
	flush       func()
}

// New returns a named logger writing human-readable output to stderr.
func New(name string) *Logger {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if runtime.GOOS == "windows" {
		encoderConfig.LineEnding = "\r\n"
	}
	consoleEncoder := zapcore.NewConsoleEncoder(encoderConfig)

	consoleAtomicLevel := zap.NewAtomicLevel()
	core := zapcore.NewCore(consoleEncoder, zapcore.Lock(os.Stderr), consoleAtomicLevel)
	zapLogger := zap.New(core)

	return &Logger{
		Logger:      zapr.NewLogger(zapLogger).WithName(name),
		name:        name,
		atomicLevel: consoleAtomicLevel,
		flush: func() {
			_ = zapLogger.Sync()
		},
	}
}

func (l *Logger) WithName(name string) *Logger {
	l.Logger = l.Logger.WithName(name)
	return l
}

func (l *Logger) SetLevel(level zapcore.Level) {
	l.atomicLevel.SetLevel(level)
}

func (l *Logger) Flush() {
	l.flush()
}

// AddLevelFlag registers a verbosity flag that adjusts the console level.
func (l *Logger) AddLevelFlag(fs *pflag.FlagSet) {
	levelVal := NewLevelFlagValue(func(level zapcore.Level) {
		l.SetLevel(level)
	})
	fs.VarP(&levelVal, verbosityFlagName, verbosityFlagShortName,
		"Logging verbosity level: 'debug', 'info', 'error', or a positive integer for increasing debug verbosity.")
}
