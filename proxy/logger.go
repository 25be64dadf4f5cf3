package proxy

import (
	"fmt"
	"io"
	"log"
)

// Logger emits the "LEVEL message" lines described in spec ¤6. INFO/DEBUG
// lines are gated on verbose; WARN and ERROR always print.
type Logger struct {
	out     *log.Logger
	verbose bool
}

// NewLogger builds a Logger writing to w.
func NewLogger(w io.Writer, verbose bool) *Logger {
	return &Logger{out: log.New(w, "", log.LstdFlags), verbose: verbose}
}

func (l *Logger) Info(format string, args ...interface{}) {
	if l == nil || !l.verbose {
		return
	}
	l.out.Print("INFO " + fmt.Sprintf(format, args...))
}

func (l *Logger) Debug(format string, args ...interface{}) {
	if l == nil || !l.verbose {
		return
	}
	l.out.Print("DEBUG " + fmt.Sprintf(format, args...))
}

func (l *Logger) Warn(format string, args ...interface{}) {
	if l == nil {
		return
	}
	l.out.Print("WARN " + fmt.Sprintf(format, args...))
}

func (l *Logger) Error(format string, args ...interface{}) {
	if l == nil {
		return
	}
	l.out.Print("ERROR " + fmt.Sprintf(format, args...))
}
