package utils

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log is the shared structured logger. It defaults to a no-op logger so
// tests can run without calling InitializeLogger.
var Log = zap.NewNop()

// InitializeLogger builds the bot-wide zap logger. env "local" switches to
// the human-readable development encoder.
func InitializeLogger(env string) error {
	cfg := zap.NewProductionConfig()
	if env == "local" {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	l, err := cfg.Build(zap.Fields(zap.String("service", "betbot")))
	if err != nil {
		return err
	}
	Log = l
	return nil
}

// SyncLogger flushes buffered log entries on shutdown.
func SyncLogger() {
	_ = Log.Sync()
}

// BotLogf provides area-tagged formatted logging for component issues.
func BotLogf(area string, format string, args ...interface{}) {
	Log.Sugar().With("area", area).Infof(format, args...)
}
