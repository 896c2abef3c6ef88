package logging

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	Critical = 50
	Fatal    = Critical
	Error    = 40
	Warning  = 30
	Info     = 20
	Debug    = 10
	NotSet   = 0
)

// Output formats accepted by Configure.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

var (
	LogLevel      int = Warning
	logLevelMutex sync.Mutex

	sugar = mustBuild(FormatConsole)
)

func init() {
	localEnv := os.Getenv("LOCAL")
	if strings.ToLower(localEnv) == "true" || localEnv == "1" {
		SetLogLevel(Debug)
	}
}

// Configure replaces the zap backend with one using the given output format
// ("console" or "json") and applies the level by name.
func Configure(level, format string) error {
	lvl, err := ParseLevel(level)
	if err != nil {
		return err
	}

	logger, err := build(format)
	if err != nil {
		return err
	}

	logLevelMutex.Lock()
	sugar = logger
	LogLevel = lvl
	logLevelMutex.Unlock()
	return nil
}

// ParseLevel maps a level name to its numeric value.
func ParseLevel(name string) (int, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "warn", "warning":
		return Warning, nil
	case "debug":
		return Debug, nil
	case "info":
		return Info, nil
	case "error":
		return Error, nil
	case "critical":
		return Critical, nil
	default:
		return NotSet, fmt.Errorf("invalid log level: %s (must be debug, info, warn, error or critical)", name)
	}
}

func build(format string) (*zap.SugaredLogger, error) {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder

	var encoder zapcore.Encoder
	switch format {
	case "", FormatConsole:
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	case FormatJSON:
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	default:
		return nil, fmt.Errorf("invalid log format: %s (must be console or json)", format)
	}

	// Level filtering happens in the facade, so the core accepts everything.
	core := zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), zapcore.DebugLevel)
	return zap.New(core).Sugar(), nil
}

func mustBuild(format string) *zap.SugaredLogger {
	logger, err := build(format)
	if err != nil {
		panic(err)
	}
	return logger
}

func SetLogLevel(level int) {
	logLevelMutex.Lock()
	defer logLevelMutex.Unlock()
	LogLevel = level
}

// Sync flushes any buffered log entries.
func Sync() {
	logLevelMutex.Lock()
	defer logLevelMutex.Unlock()
	_ = sugar.Sync()
}

func Debugf(format string, v ...interface{}) {
	logLevelMutex.Lock()
	defer logLevelMutex.Unlock()
	if LogLevel <= Debug {
		sugar.Debugf(format, v...)
	}
}

func Infof(format string, v ...interface{}) {
	logLevelMutex.Lock()
	defer logLevelMutex.Unlock()
	if LogLevel <= Info {
		sugar.Infof(format, v...)
	}
}

func Warningf(format string, v ...interface{}) {
	logLevelMutex.Lock()
	defer logLevelMutex.Unlock()
	if LogLevel <= Warning {
		sugar.Warnf(format, v...)
	}
}

func Errorf(format string, v ...interface{}) {
	logLevelMutex.Lock()
	defer logLevelMutex.Unlock()
	if LogLevel <= Error {
		sugar.Errorf(format, v...)
	}
}

func Criticalf(format string, v ...interface{}) {
	logLevelMutex.Lock()
	defer logLevelMutex.Unlock()
	if LogLevel <= Critical {
		sugar.DPanicf(format, v...)
	}
}

func Fatalf(format string, v ...interface{}) {
	sugar.Fatalf(format, v...)
}
