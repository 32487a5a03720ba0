// Package log configures the process-wide logrus logger.
package log

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Fields type, used to pass to `WithFields`.
type Fields = logrus.Fields

// Entry is the logging handle handed to components.
type Entry = logrus.Entry

// Silent is the File value that drops every log line.
const Silent = "/dev/null"

// Rotation bounds the rotated log file.
type Rotation struct {
	SizeMB   int
	Keep     int
	AgeDays  int
	Compress bool
}

// DefaultRotation keeps about two weeks of compressed logs.
var DefaultRotation = Rotation{SizeMB: 32, Keep: 16, AgeDays: 15, Compress: true}

// Options select where and how the standard logger writes.
type Options struct {
	// File is a rotated log file, Silent, or empty for stderr.
	File  string
	Level string
	// Sorted writes fields in key order after the message.
	Sorted   bool
	Rotation Rotation
}

// Setup applies opts to the standard logger. The logger is left untouched
// when the level is invalid.
func Setup(opts Options) error {
	lvl := logrus.InfoLevel
	if opts.Level != "" {
		l, err := logrus.ParseLevel(opts.Level)
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		lvl = l
	}

	logrus.SetLevel(lvl)
	logrus.SetOutput(opts.writer())
	if opts.Sorted {
		logrus.SetFormatter(sortedFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{})
	}
	return nil
}

func (o Options) writer() io.Writer {
	switch name := strings.TrimSpace(o.File); name {
	case "":
		return os.Stderr
	case Silent:
		return io.Discard
	default:
		rot := o.Rotation
		if rot == (Rotation{}) {
			rot = DefaultRotation
		}
		return &lumberjack.Logger{
			Filename:   name,
			MaxSize:    rot.SizeMB,
			MaxBackups: rot.Keep,
			MaxAge:     rot.AgeDays,
			Compress:   rot.Compress,
		}
	}
}

// WithFields returns an entry of the standard logger.
func WithFields(fields Fields) *Entry {
	return logrus.WithFields(fields)
}

// Discard returns an entry that drops everything, for tests and library use.
func Discard() *Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

// sortedFormatter writes one line per entry:
//
//	2006-01-02 15:04:05.000 INFO  message  key=value key=value
//
// with the keys in sorted order and string values quoted only when they
// contain spaces or quotes.
type sortedFormatter struct{}

func (sortedFormatter) Format(e *logrus.Entry) ([]byte, error) {
	b := e.Buffer
	if b == nil {
		b = &bytes.Buffer{}
	}
	fmt.Fprintf(b, "%s %-5s %s", e.Time.Format("2006-01-02 15:04:05.000"), strings.ToUpper(e.Level.String()), e.Message)

	keys := make([]string, 0, len(e.Data))
	for k := range e.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) > 0 {
		b.WriteString(" ")
	}
	for _, k := range keys {
		b.WriteByte(' ')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(fieldValue(e.Data[k]))
	}
	b.WriteByte('\n')
	return b.Bytes(), nil
}

func fieldValue(v interface{}) string {
	if err, ok := v.(error); ok {
		v = err.Error()
	}
	s, ok := v.(string)
	if !ok {
		return fmt.Sprint(v)
	}
	if s == "" || strings.ContainsAny(s, " \t\"=") {
		return fmt.Sprintf("%q", s)
	}
	return s
}
