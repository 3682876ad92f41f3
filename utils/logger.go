package utils

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log is the process-wide sugared logger. InitLogger replaces it in main;
// the default keeps tests and early init quiet but functional.
var Log = zap.NewNop().Sugar()

func InitLogger(env string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if env == "local" || env == "" {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build(zap.Fields(
		zap.String("service", "fantasy-sports-system"),
		zap.String("env", env),
	))
	if err != nil {
		return nil, err
	}
	Log = logger.Sugar()
	return logger, nil
}
