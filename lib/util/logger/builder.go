// Copyright 2024 Tantora, Inc.
// SPDX-License-Identifier: Apache-2.0

package logger

import (
	"os"

	"github.com/tantora/mariawire/lib/util/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	defaultLogMaxSize = 300 // MB
	defaultLogMaxDays = 3
)

// Config configures the process-wide logger.
type Config struct {
	// Encoder is "tidb" console style when empty, or "json".
	Encoder string
	// Level is a zap level string, "info" when empty.
	Level string
	// Filename enables rotating file output when non-empty.
	Filename string
	MaxSize  int
	MaxDays  int
}

// Build creates a zap logger from the config. The returned closer flushes
// buffered entries and must be called on shutdown.
func Build(cfg Config) (*zap.Logger, func() error, error) {
	level := zap.InfoLevel
	if len(cfg.Level) > 0 {
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			return nil, nil, errors.Wrapf(err, "unknown log level %q", cfg.Level)
		}
	}

	var encoder zapcore.Encoder
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	if cfg.Encoder == "json" {
		encoder = zapcore.NewJSONEncoder(encCfg)
	} else {
		encoder = zapcore.NewConsoleEncoder(encCfg)
	}

	var syncer zapcore.WriteSyncer
	closer := func() error { return nil }
	if len(cfg.Filename) > 0 {
		maxSize := cfg.MaxSize
		if maxSize <= 0 {
			maxSize = defaultLogMaxSize
		}
		maxDays := cfg.MaxDays
		if maxDays <= 0 {
			maxDays = defaultLogMaxDays
		}
		rotator := &lumberjack.Logger{
			Filename: cfg.Filename,
			MaxSize:  maxSize,
			MaxAge:   maxDays,
		}
		syncer = zapcore.AddSync(rotator)
		closer = rotator.Close
	} else {
		syncer = zapcore.Lock(os.Stdout)
	}

	lg := zap.New(zapcore.NewCore(encoder, syncer, level),
		zap.ErrorOutput(syncer), zap.AddStacktrace(zap.FatalLevel))
	return lg, closer, nil
}
