package logger

import (
	"os"
	"strings"
	"sync"

	"github.com/gdownersigma/c21-commodities/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	mu     sync.Mutex
	global *zap.SugaredLogger
)

func init() {
	// Console-only logger until the configuration has been parsed.
	global = newLogger(config.LoggerConfig{Level: "INFO", Console: true})

	config.GlobalConfigCallback.AddCallback(func(cfg config.GlobalConfig) {
		mu.Lock()
		defer mu.Unlock()
		global = newLogger(cfg.LoggerConfig())
	})
}

func newLogger(cfg config.LoggerConfig) *zap.SugaredLogger {
	level := zapcore.InfoLevel
	if parsed, err := zapcore.ParseLevel(strings.ToLower(cfg.Level)); err == nil {
		level = parsed
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "timestamp"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	cores := make([]zapcore.Core, 0, 2)
	if cfg.File != "" {
		maxSize := cfg.MaxFileSize
		if maxSize <= 0 {
			maxSize = 100
		}
		rotated := &lumberjack.Logger{
			Filename:  cfg.File,
			MaxSize:   maxSize,
			MaxAge:    7,
			Compress:  true,
			LocalTime: true,
		}
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(encoderCfg),
			zapcore.AddSync(rotated),
			level,
		))
	}
	if cfg.Console || cfg.File == "" {
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(encoderCfg),
			zapcore.AddSync(os.Stdout),
			level,
		))
	}

	return zap.New(
		zapcore.NewTee(cores...),
		zap.AddCaller(),
		zap.AddCallerSkip(2),
		zap.AddStacktrace(zapcore.ErrorLevel),
	).Sugar()
}

func log() *zap.SugaredLogger {
	mu.Lock()
	defer mu.Unlock()
	return global
}

func Debug(format string, args ...interface{}) {
	log().Debugf(format, args...)
}

func Info(format string, args ...interface{}) {
	log().Infof(format, args...)
}

func Warn(format string, args ...interface{}) {
	log().Warnf(format, args...)
}

func Error(format string, args ...interface{}) {
	log().Errorf(format, args...)
}

func Fatal(format string, args ...interface{}) {
	log().Fatalf(format, args...)
}
