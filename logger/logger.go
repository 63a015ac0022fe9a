package logger

import (
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	InfoLogger  = logrus.New()
	WarnLogger  = logrus.New()
	ErrorLogger = logrus.New()
)

// InitLoggers configures the three loggers. When LOG_DIR is set each level also
// writes to its own rotating file under that directory.
func InitLoggers() {
	level, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		level = logrus.InfoLevel
	}

	dir := os.Getenv("LOG_DIR")

	setup(InfoLogger, level, dir, "info.log", os.Stdout)
	setup(WarnLogger, level, dir, "warn.log", os.Stdout)
	setup(ErrorLogger, level, dir, "error.log", os.Stderr)
}

func setup(l *logrus.Logger, level logrus.Level, dir, file string, console io.Writer) {
	l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})
	l.SetLevel(level)

	if dir == "" {
		l.SetOutput(console)
		return
	}

	l.SetOutput(io.MultiWriter(console, &lumberjack.Logger{
		Filename:   filepath.Join(dir, file),
		MaxSize:    50, // megabytes
		MaxBackups: 5,
		MaxAge:     30, // days
		Compress:   true,
	}))
}

// Silence discards all output. Used by tests.
func Silence() {
	for _, l := range []*logrus.Logger{InfoLogger, WarnLogger, ErrorLogger} {
		l.SetOutput(io.Discard)
	}
}
