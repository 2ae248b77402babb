// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logger is a small leveled console logger with colored output,
// used by the entrypoints and middleware. Handlers and services in the
// hexagonal layer take a *slog.Logger instead.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

const (
	reset  = "\033[0m"
	red    = "\033[31m"
	green  = "\033[32m"
	yellow = "\033[33m"
	cyan   = "\033[36m"
	gray   = "\033[90m"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "?"
	}
}

func (l Level) color() string {
	switch l {
	case LevelDebug:
		return gray
	case LevelInfo:
		return green
	case LevelWarn:
		return yellow
	case LevelError:
		return red
	default:
		return reset
	}
}

var (
	mu       sync.Mutex
	out      io.Writer = os.Stdout
	minLevel           = levelFromEnv()
)

func levelFromEnv() Level {
	switch os.Getenv("CB_LOG_LEVEL") {
	case "debug":
		return LevelDebug
	case "warn":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// SetOutput redirects log output, mainly for tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = w
}

// SetLevel overrides the threshold loaded from CB_LOG_LEVEL.
func SetLevel(l Level) {
	mu.Lock()
	defer mu.Unlock()
	minLevel = l
}

func emit(level Level, context, format string, args ...interface{}) {
	mu.Lock()
	defer mu.Unlock()
	if level < minLevel {
		return
	}

	message := fmt.Sprintf(format, args...)
	ts := time.Now().Format("2006-01-02 15:04:05")
	if context != "" {
		fmt.Fprintf(out, "%s[%s]%s %s[%s]%s %s[%s]%s %s\n",
			gray, ts, reset,
			level.color(), level, reset,
			cyan, context, reset,
			message)
		return
	}
	fmt.Fprintf(out, "%s[%s]%s %s[%s]%s %s\n",
		gray, ts, reset,
		level.color(), level, reset,
		message)
}

func Debug(format string, args ...interface{}) {
	emit(LevelDebug, "", format, args...)
}

func DebugCtx(context, format string, args ...interface{}) {
	emit(LevelDebug, context, format, args...)
}

func Info(format string, args ...interface{}) {
	emit(LevelInfo, "", format, args...)
}

func InfoCtx(context, format string, args ...interface{}) {
	emit(LevelInfo, context, format, args...)
}

func Warn(format string, args ...interface{}) {
	emit(LevelWarn, "", format, args...)
}

func WarnCtx(context, format string, args ...interface{}) {
	emit(LevelWarn, context, format, args...)
}

func Error(format string, args ...interface{}) {
	emit(LevelError, "", format, args...)
}

func ErrorCtx(context, format string, args ...interface{}) {
	emit(LevelError, context, format, args...)
}
