// Package obs provides the structured logging setup shared by
// basecache and eventqueue, grounded in
// observability/{logging.go,zerologhook/zerolog_hook_file.go}: a
// github.com/rs/zerolog.Logger writing either to the console or to a
// gopkg.in/natefinch/lumberjack.v2-rotated file, selected by whether a
// rotation target is configured.
package obs

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// FileConfig configures log rotation via lumberjack. A zero value
// means "no rotation target", which selects console output instead.
type FileConfig struct {
	Filename   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// Config configures the package-level logger.
type Config struct {
	Level       string // "debug", "info", "warn", "error"
	ServiceName string
	File        FileConfig // zero value selects console output
}

// Logger adapts a zerolog.Logger to the minimal Warnf/Debugf/Errorf
// surface basecache.Cache and eventqueue.Dispatcher expect, so
// neither package needs to import zerolog directly.
type Logger struct {
	zl zerolog.Logger
}

// New builds a Logger from cfg.
func New(cfg Config) *Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	var writer = os.Stdout
	var sink interface{ Write([]byte) (int, error) } = writer
	if cfg.File.Filename != "" {
		sink = newRotatingWriter(cfg.File)
	}

	zl := zerolog.New(sink).Level(parseLevel(cfg.Level)).With().
		Timestamp().
		Str("service", cfg.ServiceName).
		Logger()

	return &Logger{zl: zl}
}

func newRotatingWriter(fc FileConfig) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   fc.Filename,
		MaxSize:    fc.MaxSizeMB,
		MaxBackups: fc.MaxBackups,
		MaxAge:     fc.MaxAgeDays,
		Compress:   fc.Compress,
	}
}

func (l *Logger) Debugf(format string, args ...any) { l.zl.Debug().Msgf(format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.zl.Warn().Msgf(format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.zl.Error().Msgf(format, args...) }

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
