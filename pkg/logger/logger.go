package logger

import (
	"os"
	"path/filepath"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"

	"github.com/fatflowers/roulette/pkg/config"
)

func New(cfg *config.Config) (*zap.SugaredLogger, error) {
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if cfg != nil && cfg.Log.Level != "" {
		if err := level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
			return nil, err
		}
	}

	zcfg := zap.NewProductionConfig()
	zcfg.Level = level
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zcfg.EncoderConfig.TimeKey = "time"
	l, err := zcfg.Build()
	if err != nil {
		return nil, err
	}

	if cfg != nil && cfg.Log.Path != "" {
		l = l.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
			return zapcore.NewTee(core, fileCore(cfg.Log, zcfg.EncoderConfig, level))
		}))
	}
	return l.Sugar(), nil
}

// fileCore writes the same JSON lines to a rotating file.
func fileCore(lc config.LogConfig, enc zapcore.EncoderConfig, level zapcore.LevelEnabler) zapcore.Core {
	if dir := filepath.Dir(lc.Path); dir != "" {
		_ = os.MkdirAll(dir, 0o755)
	}
	lj := &lumberjack.Logger{
		Filename:   lc.Path,
		MaxSize:    orDefault(lc.MaxSizeMB, 100),
		MaxBackups: orDefault(lc.MaxBackups, 3),
		MaxAge:     orDefault(lc.MaxAgeDays, 7),
		Compress:   lc.Compress,
	}
	return zapcore.NewCore(zapcore.NewJSONEncoder(enc), zapcore.AddSync(lj), level)
}

func orDefault(v, d int) int {
	if v <= 0 {
		return d
	}
	return v
}

var Module = fx.Options(
	fx.Provide(New),
)
