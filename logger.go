package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// newLogger builds the program logger. Console output goes to stderr because
// stdout carries host commands in serve mode.
func newLogger(conf LogConfig, debug bool) (*zap.Logger, error) {
	level := conf.Level
	if debug {
		level = "debug"
	}

	var enabler zapcore.LevelEnabler
	switch level {
	case "debug":
		enabler = zapcore.DebugLevel
	case "normal":
		enabler = zapcore.InfoLevel
	default:
		return zap.NewNop(), nil
	}

	ec := zap.NewDevelopmentEncoderConfig()
	ec.EncodeCaller = nil
	ec.EncodeLevel = zapcore.CapitalLevelEncoder
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(ec), zapcore.Lock(os.Stderr), enabler),
	}

	if conf.Destination != "" {
		f, err := os.OpenFile(conf.Destination, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()), zapcore.Lock(f), enabler))
	}
	return zap.New(zapcore.NewTee(cores...)), nil
}
