package winmix

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger creates a console logger suitable for winmix tooling. Verbose
// enables debug-level output, which includes every platform round trip.
func NewLogger(verbose bool) (*zap.SugaredLogger, error) {
	loggerConfig := zap.NewDevelopmentConfig()
	loggerConfig.Encoding = "console"
	loggerConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	loggerConfig.DisableCaller = true

	if !verbose {
		loggerConfig.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	logger, err := loggerConfig.Build()
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	return logger.Sugar(), nil
}
