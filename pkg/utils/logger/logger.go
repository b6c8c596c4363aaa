package logger

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps a named zap SugaredLogger
type Logger struct {
	*zap.SugaredLogger
}

var (
	root *Logger
	once sync.Once
)

// Init configures the process-wide logger. Console encoding in development,
// JSON in production. Safe to call more than once; the first call wins.
func Init(level, env string) {
	once.Do(func() {
		encoderConfig := zapcore.EncoderConfig{
			TimeKey:        "ts",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.LowercaseLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.SecondsDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		}

		var encoder zapcore.Encoder
		if env == "production" {
			encoder = zapcore.NewJSONEncoder(encoderConfig)
		} else {
			encoder = zapcore.NewConsoleEncoder(encoderConfig)
		}

		logLevel := zapcore.InfoLevel
		if parsed, err := zapcore.ParseLevel(level); err == nil {
			logLevel = parsed
		}

		core := zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), zap.NewAtomicLevelAt(logLevel))
		root = &Logger{zap.New(core, zap.AddCaller()).Sugar()}
	})
}

// GetLogger returns a logger named after the component requesting it
func GetLogger(name string) *Logger {
	if root == nil {
		Init("info", "development")
	}
	return &Logger{root.Named(name)}
}

// With returns a logger with additional structured context
func (l *Logger) With(args ...interface{}) *Logger {
	return &Logger{l.SugaredLogger.With(args...)}
}

// WithField returns a logger with a single field added to the context
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{l.SugaredLogger.With(key, value)}
}
