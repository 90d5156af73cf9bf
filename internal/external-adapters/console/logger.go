// Package console provides a terminal implementation of interfaces.Logger.
package console

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"

	"github.com/ochairo/pkginspect/internal/domain/interfaces"
)

// Level orders log messages by importance
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR"}

func (l Level) String() string {
	if l < LevelDebug || l > LevelError {
		return "UNKNOWN"
	}
	return levelNames[l]
}

// ParseLevel converts a level name (case-insensitive) to a Level
func ParseLevel(name string) (Level, error) {
	want := strings.ToUpper(strings.TrimSpace(name))
	for i, n := range levelNames {
		if n == want {
			return Level(i), nil
		}
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", name)
}

var levelColors = [...]*color.Color{
	color.New(color.FgHiBlack),
	color.New(color.FgCyan),
	color.New(color.FgYellow),
	color.New(color.FgRed, color.Bold),
}

// Logger writes "LEVEL: message key=value ..." lines
type Logger struct {
	mu    sync.Mutex
	out   io.Writer
	level Level
}

// NewLogger creates a logger writing to out. A nil out means stderr.
func NewLogger(out io.Writer, level Level) *Logger {
	if out == nil {
		out = color.Error
	}
	return &Logger{out: out, level: level}
}

// Debug logs debug-level messages
func (l *Logger) Debug(msg string, fields ...interfaces.Field) {
	l.log(LevelDebug, msg, fields)
}

// Info logs informational messages
func (l *Logger) Info(msg string, fields ...interfaces.Field) {
	l.log(LevelInfo, msg, fields)
}

// Warn logs warning messages
func (l *Logger) Warn(msg string, fields ...interfaces.Field) {
	l.log(LevelWarn, msg, fields)
}

// Error logs error messages
func (l *Logger) Error(msg string, fields ...interfaces.Field) {
	l.log(LevelError, msg, fields)
}

func (l *Logger) log(level Level, msg string, fields []interfaces.Field) {
	if level < l.level {
		return
	}

	var b strings.Builder
	b.WriteString(msg)
	for _, f := range fields {
		b.WriteByte(' ')
		b.WriteString(f.Key)
		b.WriteByte('=')
		b.WriteString(formatValue(f.Value))
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = levelColors[level].Fprint(l.out, level.String()+":")
	_, _ = fmt.Fprintf(l.out, " %s\n", b.String())
}

// formatValue quotes values containing whitespace so lines stay parseable
func formatValue(v interface{}) string {
	s := fmt.Sprint(v)
	if s == "" || strings.ContainsAny(s, " \t\n\"=") {
		return fmt.Sprintf("%q", s)
	}
	return s
}
