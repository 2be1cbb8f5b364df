// Package logger is a small structured logging facade over log/slog.
//
// The process holds one global logger, set up by Init or InitWithFormat and
// fetched with Get. Components take a child via Named so every entry carries
// the dotted name of the component that wrote it and a file:line source.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Logger defines the logging interface.
type Logger interface {
	Info(ctx context.Context, msg string, fields ...Field)
	Error(ctx context.Context, msg string, fields ...Field)
	Debug(ctx context.Context, msg string, fields ...Field)
	Warn(ctx context.Context, msg string, fields ...Field)
	// Fatal logs at error level and terminates the process.
	Fatal(ctx context.Context, msg string, fields ...Field)

	// Named returns a child logger; names nest as parent.child.
	Named(name string) Logger
}

// Field is one structured attribute of an entry.
type Field = slog.Attr

func String(key, val string) Field                 { return slog.String(key, val) }
func Int(key string, val int) Field                { return slog.Int(key, val) }
func Float64(key string, val float64) Field        { return slog.Float64(key, val) }
func Bool(key string, val bool) Field              { return slog.Bool(key, val) }
func Duration(key string, val time.Duration) Field { return slog.Duration(key, val) }
func Any(key string, val any) Field                { return slog.Any(key, val) }

// Error records err under the "error" key.
func Error(err error) Field { return slog.Any("error", err) }

// Output formats accepted by InitWithFormat.
const (
	FormatText = "text"
	FormatJSON = "json"
)

const (
	nameKey   = "logger"
	sourceKey = "source"
)

var (
	global atomic.Pointer[slogLogger]
	level  slog.LevelVar

	// exit is swapped in tests that exercise Fatal.
	exit = os.Exit

	workDir = sync.OnceValue(func() string {
		wd, _ := os.Getwd()
		return wd
	})
)

var handlers = map[string]func(io.Writer, *slog.HandlerOptions) slog.Handler{
	"":         func(w io.Writer, o *slog.HandlerOptions) slog.Handler { return slog.NewTextHandler(w, o) },
	FormatText: func(w io.Writer, o *slog.HandlerOptions) slog.Handler { return slog.NewTextHandler(w, o) },
	FormatJSON: func(w io.Writer, o *slog.HandlerOptions) slog.Handler { return slog.NewJSONHandler(w, o) },
}

type slogLogger struct {
	handler slog.Handler
	name    string
}

func (l *slogLogger) Named(name string) Logger {
	if l.name != "" {
		name = l.name + "." + name
	}
	return &slogLogger{handler: l.handler, name: name}
}

func (l *slogLogger) Info(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, slog.LevelInfo, msg, fields)
}

func (l *slogLogger) Error(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, slog.LevelError, msg, fields)
}

func (l *slogLogger) Debug(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, slog.LevelDebug, msg, fields)
}

func (l *slogLogger) Warn(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, slog.LevelWarn, msg, fields)
}

func (l *slogLogger) Fatal(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, slog.LevelError, msg, fields)
	exit(1)
}

// log must be called directly from one of the level methods; the caller
// lookup skips runtime.Callers, log and the level method.
func (l *slogLogger) log(ctx context.Context, lvl slog.Level, msg string, fields []Field) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !l.handler.Enabled(ctx, lvl) {
		return
	}
	var pcs [1]uintptr
	runtime.Callers(3, pcs[:])

	r := slog.NewRecord(time.Now(), lvl, msg, pcs[0])
	if l.name != "" {
		r.AddAttrs(slog.String(nameKey, l.name))
	}
	r.AddAttrs(fields...)
	r.AddAttrs(slog.String(sourceKey, source(pcs[0])))
	_ = l.handler.Handle(ctx, r)
}

// source renders pc as file:line relative to the working directory.
func source(pc uintptr) string {
	frame, _ := runtime.CallersFrames([]uintptr{pc}).Next()
	if frame.File == "" {
		return "unknown:0"
	}
	file := filepath.Base(frame.File)
	if wd := workDir(); wd != "" {
		if rel, err := filepath.Rel(wd, frame.File); err == nil {
			file = rel
		}
	}
	return file + ":" + strconv.Itoa(frame.Line)
}

// Init installs a text logger on stdout.
func Init() error {
	return InitWithFormat(FormatText)
}

// InitWithFormat installs a logger writing format ("text" or "json") to
// stdout. The level is reset to info.
func InitWithFormat(format string) error {
	return initWriter(os.Stdout, format)
}

func initWriter(w io.Writer, format string) error {
	newHandler, ok := handlers[strings.ToLower(strings.TrimSpace(format))]
	if !ok {
		return fmt.Errorf("unknown log format %q", format)
	}
	level.Set(slog.LevelInfo)
	global.Store(&slogLogger{handler: newHandler(w, &slog.HandlerOptions{Level: &level})})
	return nil
}

// Get returns the global logger. It panics before Init.
func Get() Logger {
	l := global.Load()
	if l == nil {
		panic("logger: Get called before Init")
	}
	return l
}

// Named is Get().Named(name).
func Named(name string) Logger {
	return Get().Named(name)
}

// Sync exists for callers that defer a flush; slog handlers write through.
func Sync() error {
	return nil
}

// SetLevel changes the minimum level of the global logger.
func SetLevel(lvl slog.Level) { level.Set(lvl) }

// SetLevelString parses debug, info, warn (or warning) and error, ignoring
// case. An empty string means info.
func SetLevelString(s string) error {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "":
		s = "info"
	case "warning":
		s = "warn"
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return fmt.Errorf("unknown log level %q", s)
	}
	SetLevel(lvl)
	return nil
}
