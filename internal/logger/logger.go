package logger

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync/atomic"
)

// Level is a log severity level
type Level int32

const (
	TraceLevel Level = iota
	DebugLevel
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
)

var currentLevel atomic.Int32

func init() {
	currentLevel.Store(int32(InfoLevel))
}

// ParseLevel converts a level name to a Level
func ParseLevel(name string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "trace":
		return TraceLevel, nil
	case "debug":
		return DebugLevel, nil
	case "info", "":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	case "fatal":
		return FatalLevel, nil
	}
	return InfoLevel, fmt.Errorf("unknown log level: %q", name)
}

// SetLevel sets the minimum level that will be emitted
func SetLevel(l Level) {
	currentLevel.Store(int32(l))
}

// GetLevel returns the current minimum level
func GetLevel() Level {
	return Level(currentLevel.Load())
}

func enabled(l Level) bool {
	return l >= GetLevel()
}

func emit(l Level, tag, format string, args ...any) {
	if !enabled(l) {
		return
	}
	log.Printf("[%s] %s", tag, fmt.Sprintf(format, args...))
}

// Tracef logs at trace level
func Tracef(format string, args ...any) { emit(TraceLevel, "TRACE", format, args...) }

// Debugf logs at debug level
func Debugf(format string, args ...any) { emit(DebugLevel, "DEBUG", format, args...) }

// Infof logs at info level
func Infof(format string, args ...any) { emit(InfoLevel, "INFO", format, args...) }

// Warnf logs at warn level
func Warnf(format string, args ...any) { emit(WarnLevel, "WARN", format, args...) }

// Errorf logs at error level
func Errorf(format string, args ...any) { emit(ErrorLevel, "ERROR", format, args...) }

// Fatalf logs at fatal level and exits
func Fatalf(format string, args ...any) {
	emit(FatalLevel, "FATAL", format, args...)
	os.Exit(1)
}
