package logging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"
)

var ErrLogDir = errors.New("invalid log directory")

// New creates a logger writing to w. format is "text" or "json".
func New(level logrus.Level, format string, w io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.Out = w
	logger.Level = level
	if strings.ToLower(format) == "json" {
		logger.Formatter = &logrus.JSONFormatter{}
	} else {
		logger.Formatter = &logrus.TextFormatter{FullTimestamp: true}
	}
	return logger
}

// ParseLevel maps a level name to a logrus level. Unknown names give info.
func ParseLevel(s string) logrus.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return logrus.TraceLevel
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// AddFileRotation also writes every entry to daily rotated files in dir,
// keeping count of them.
func AddFileRotation(logger *logrus.Logger, dir string, count uint) error {
	if len(dir) == 0 {
		return fmt.Errorf("%w: empty path", ErrLogDir)
	}
	if !filepath.IsAbs(dir) {
		var err error
		if dir, err = filepath.Abs(dir); err != nil {
			return fmt.Errorf("%w: %v", ErrLogDir, err)
		}
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("%w: %v", ErrLogDir, err)
	}

	writer, err := rotatelogs.New(
		filepath.Join(dir, "rtkern-%Y%m%d.log"),
		rotatelogs.WithLinkName(filepath.Join(dir, "rtkern.log")),
		rotatelogs.WithRotationTime(24*time.Hour),
		rotatelogs.WithRotationCount(count),
	)
	if err != nil {
		return fmt.Errorf("could not create rotated log: %w", err)
	}

	logger.Hooks.Add(lfshook.NewHook(lfshook.WriterMap{
		logrus.TraceLevel: writer,
		logrus.DebugLevel: writer,
		logrus.InfoLevel:  writer,
		logrus.WarnLevel:  writer,
		logrus.ErrorLevel: writer,
		logrus.FatalLevel: writer,
		logrus.PanicLevel: writer,
	}, &logrus.JSONFormatter{}))
	return nil
}
