package logger

import (
	"io"
	"log/syslog"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
)

var once sync.Once
var zLogger zerolog.Logger
var DebugMode bool

type LevelWriter zerolog.LevelWriter

type LevelWriterAdapter struct {
	zerolog.LevelWriterAdapter
	Level zerolog.Level
}

// zerolog allows for logging at the following levels (from highest to lowest):
// panic (zerolog.PanicLevel, 5)
// fatal (zerolog.FatalLevel, 4)
// error (zerolog.ErrorLevel, 3)
// warn (zerolog.WarnLevel, 2)
// info (zerolog.InfoLevel, 1)
// debug (zerolog.DebugLevel, 0)
// trace (zerolog.TraceLevel, -1)

// GetLogger returns a logger instance, initializing it if necessary
func GetLogger() zerolog.Logger {
	// ensure that the logger is only created once
	once.Do(func() {
		zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

		// create console writer
		var output io.Writer = zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
		}
		tmpLogger := zerolog.New(output).With().Timestamp().Logger()

		logLevel := Level(tmpLogger)

		var writers []io.Writer

		if syslogAddress := os.Getenv("SYSLOG_ADDRESS"); syslogAddress != "" {
			zsyslog, err := syslog.Dial("udp", syslogAddress, syslog.LOG_KERN|syslog.LOG_EMERG|syslog.LOG_ERR|syslog.LOG_INFO|syslog.LOG_CRIT|syslog.LOG_WARNING|syslog.LOG_NOTICE|syslog.LOG_DEBUG, "netgauge")
			if err != nil {
				tmpLogger.Err(err).Str("address", syslogAddress).Msg("unable to connect to syslog, logging to the console only")
			} else {
				// create leveled writer to syslog
				var syslogWriter LevelWriter = LevelWriterAdapter{Level: logLevel, LevelWriterAdapter: zerolog.LevelWriterAdapter{Writer: zsyslog}}
				writers = append(writers, &zerolog.FilteredLevelWriter{
					Writer: syslogWriter,
					Level:  logLevel,
				})
			}
		}

		// create leveled writer to the console
		var stdWriter LevelWriter = LevelWriterAdapter{Level: logLevel, LevelWriterAdapter: zerolog.LevelWriterAdapter{Writer: output}}
		writers = append(writers, &zerolog.FilteredLevelWriter{
			Writer: stdWriter,
			Level:  logLevel,
		})

		output = zerolog.MultiLevelWriter(writers...)
		zLogger = zerolog.New(output).With().Timestamp().Logger()
	})
	return zLogger
}

// Level returns the level set by LOG_LEVEL, or debug if DebugMode is set or APP_ENV is dev.
// An unset or invalid LOG_LEVEL falls back to info.
func Level(warn zerolog.Logger) zerolog.Level {
	if DebugMode || os.Getenv("APP_ENV") == "dev" {
		return zerolog.DebugLevel
	}

	levelStr := os.Getenv("LOG_LEVEL")
	if levelStr == "" {
		return zerolog.InfoLevel
	}
	level, err := strconv.Atoi(levelStr)
	if err != nil || level < int(zerolog.TraceLevel) || level > int(zerolog.PanicLevel) {
		warn.Warn().Str("LOG_LEVEL", levelStr).Msg("invalid log level, reverting to info")
		return zerolog.InfoLevel
	}
	return zerolog.Level(level)
}

func (lw LevelWriterAdapter) WriteLevel(l zerolog.Level, p []byte) (n int, err error) {
	if l >= lw.Level {
		return lw.Write(p)
	}
	return 0, nil
}
