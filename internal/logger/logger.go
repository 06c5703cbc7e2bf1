package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the process-wide logger. It is a no-op until Initialize runs so
// packages can log safely from tests and from code paths reached before main
// configures output.
var Logger *zap.SugaredLogger

func init() {
	Logger = zap.NewNop().Sugar()
}

// Initialize builds the global logger. JSON output is meant for log
// collectors; the console encoder is for humans.
func Initialize(level string, jsonOutput bool) error {
	lvl, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		lvl = zapcore.InfoLevel
	}

	var zapLogger *zap.Logger
	if jsonOutput {
		config := zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(lvl)
		config.OutputPaths = []string{"stdout"}
		config.ErrorOutputPaths = []string{"stderr"}
		zapLogger, err = config.Build()
		if err != nil {
			return err
		}
	} else {
		encoderConfig := zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapLogger = zap.New(
			zapcore.NewCore(
				zapcore.NewConsoleEncoder(encoderConfig),
				zapcore.AddSync(os.Stdout),
				lvl,
			),
		)
	}

	Logger = zapLogger.Sugar()
	return nil
}

// Sync flushes buffered log entries.
func Sync() {
	_ = Logger.Sync()
}
