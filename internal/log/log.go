// Package log is the structured logging facade used across the device
// manager. It wraps zerolog so callers only deal with a level, a message
// and key/value pairs.
package log

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
	With().Timestamp().Logger()

// Configure sets the global log level and output format.
// Level is one of trace, debug, info, warn, error; format is console or json.
func Configure(level, format string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = zerolog.InfoLevel
	}

	var l zerolog.Logger
	switch format {
	case "json":
		l = zerolog.New(os.Stderr)
	default:
		l = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
	logger = l.Level(lvl).With().Timestamp().Logger()
}

// Trace logs a message at trace level with key/value pairs.
func Trace(msg string, kv ...any) { emit(logger.Trace(), msg, kv) }

// Debug logs a message at debug level with key/value pairs.
func Debug(msg string, kv ...any) { emit(logger.Debug(), msg, kv) }

// Info logs a message at info level with key/value pairs.
func Info(msg string, kv ...any) { emit(logger.Info(), msg, kv) }

// Warn logs a message at warn level with key/value pairs.
func Warn(msg string, kv ...any) { emit(logger.Warn(), msg, kv) }

// Error logs a message at error level with key/value pairs.
func Error(msg string, kv ...any) { emit(logger.Error(), msg, kv) }

func emit(ev *zerolog.Event, msg string, kv []any) {
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprint(kv[i])
		}
		switch v := kv[i+1].(type) {
		case string:
			ev = ev.Str(key, v)
		case error:
			ev = ev.AnErr(key, v)
		case int:
			ev = ev.Int(key, v)
		case bool:
			ev = ev.Bool(key, v)
		default:
			ev = ev.Interface(key, v)
		}
	}
	ev.Msg(msg)
}
