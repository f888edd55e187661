package config

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// InitLogger builds the global zap logger. With file output enabled, JSON lines
// go to a rotated file while the console keeps the human readable encoder.
func InitLogger(cfg LoggerConfig) (*zap.Logger, error) {
	var zapConfig zap.Config
	if cfg.Mode == "production" {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}
	zapConfig.OutputPaths = []string{"stdout"}

	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(cfg.Level)); err == nil {
		zapConfig.Level = zap.NewAtomicLevelAt(lvl)
	}

	var logger *zap.Logger
	if cfg.FileEnable {
		rotator := &lumberjack.Logger{
			Filename:   cfg.Filename,
			MaxSize:    64,
			MaxBackups: 7,
			MaxAge:     7,
			Compress:   false,
		}
		core := zapcore.NewTee(
			zapcore.NewCore(
				zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
				zapcore.AddSync(rotator),
				zapConfig.Level,
			),
			zapcore.NewCore(
				zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
				zapcore.AddSync(os.Stdout),
				zapConfig.Level,
			),
		)
		logger = zap.New(core, zap.AddCaller())
	} else {
		var err error
		logger, err = zapConfig.Build(zap.AddCaller())
		if err != nil {
			return nil, err
		}
	}

	zap.ReplaceGlobals(logger)
	return logger, nil
}
