package log

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu          sync.RWMutex
	logger      = zap.NewNop()
	level       = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	initialised bool
)

// Init builds the process logger. Calling it again only swaps the level, so
// loggers handed out earlier keep working after a config reload.
func Init(lvl, service, version string) *zap.Logger {
	mu.Lock()
	defer mu.Unlock()

	level.SetLevel(parseLevel(lvl))
	if initialised {
		return logger
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if strings.EqualFold(os.Getenv("LOG_FORMAT"), "console") {
		encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), level)
	logger = zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)).With(
		zap.String("service", service),
		zap.String("version", version),
	)
	zap.ReplaceGlobals(logger)
	initialised = true
	return logger
}

// L returns the process logger.
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// Named returns a child logger tagged with a component name.
func Named(component string) *zap.Logger {
	return L().Named(component)
}

// Level reports the active level.
func Level() zapcore.Level {
	return level.Level()
}

func parseLevel(lvl string) zapcore.Level {
	parsed, err := zapcore.ParseLevel(strings.TrimSpace(lvl))
	if err != nil {
		return zapcore.InfoLevel
	}
	return parsed
}
