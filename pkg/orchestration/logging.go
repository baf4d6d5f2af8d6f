package orchestration

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the narrow logging contract the core depends on, so callers can
// plug in their own structured logger without the core importing a
// concrete implementation everywhere.
type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// logrusLogger adapts a *logrus.Logger to the Logger interface, the default
// the CLI wires up.
type logrusLogger struct {
	entry *logrus.Entry
}

// NewLogger builds the default Logger: logrus with text formatting to w.
// It does no rotation of its own; NewRotatingLogger passes a lumberjack
// writer in as w. fields are attached to every log line, typically a job id
// and workflow name.
func NewLogger(w io.Writer, level logrus.Level, fields logrus.Fields) Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(level)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return &logrusLogger{entry: l.WithFields(fields)}
}

// NewRotatingLogger builds a Logger that writes to path, rotated by size via
// lumberjack, for long-running daemon use where NewLogger's plain io.Writer
// would grow unbounded.
func NewRotatingLogger(path string, maxSizeMB, maxBackups, maxAgeDays int, level logrus.Level, fields logrus.Fields) Logger {
	rotator := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
		Compress:   true,
	}
	return NewLogger(rotator, level, fields)
}

// NewStderrLogger builds the Logger the CLI uses interactively.
func NewStderrLogger(level logrus.Level) Logger {
	return NewLogger(os.Stderr, level, logrus.Fields{})
}

func (l *logrusLogger) Infof(format string, args ...any)  { l.entry.Infof(format, args...) }
func (l *logrusLogger) Warnf(format string, args ...any)  { l.entry.Warnf(format, args...) }
func (l *logrusLogger) Errorf(format string, args ...any) { l.entry.Errorf(format, args...) }
