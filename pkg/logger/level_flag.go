package logger

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var levelStrings = map[string]zapcore.Level{
	"debug": zap.DebugLevel,
	"info":  zap.InfoLevel,
	"error": zap.ErrorLevel,
}

type LevelFlagValue struct {
	onLevelAvailable func(zapcore.Level)
	value            string
}

func NewLevelFlagValue(onLevelAvailable func(zapcore.Level)) LevelFlagValue {
	return LevelFlagValue{
		onLevelAvailable: onLevelAvailable,
	}
}

func StringToLevel(value string, defaultLevel zapcore.Level) (zapcore.Level, error) {
	if level, namedLevel := levelStrings[strings.ToLower(value)]; namedLevel {
		return level, nil
	}

	logLevel, err := strconv.Atoi(value)
	if err != nil || logLevel <= 0 {
		return defaultLevel, fmt.Errorf("invalid log level %q", value)
	}

	// Zap has the levels backwards.
	return zapcore.Level(int8(-1 * logLevel)), nil
}

func (lfv *LevelFlagValue) Set(flagValue string) error {
	level, err := StringToLevel(flagValue, zapcore.InfoLevel)
	if err != nil {
		return err
	}
	lfv.onLevelAvailable(level)
	lfv.value = flagValue
	return nil
}

func (lfv *LevelFlagValue) String() string {
	return lfv.value
}

func (*LevelFlagValue) Type() string {
	return "level"
}

var _ pflag.Value = &LevelFlagValue{}
