package main

import (
	"os"
	"strings"

	"kheops-album-tools/cli"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func newLogger(env, level string) *zap.Logger {
	var cfg zap.Config
	switch strings.ToUpper(env) {
	case "DEVELOPMENT":
		cfg = zap.NewDevelopmentConfig()
	default:
		cfg = zap.NewProductionConfig()
	}

	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err == nil {
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}

	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func main() {
	app := cli.New(newLogger)
	if err := app.RootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
