package logging

import (
	"io"
	stdlog "log"
	"os"
	"strings"
	"sync"

	chlog "github.com/charmbracelet/log"
	"github.com/muesli/termenv"
)

var (
	mu            sync.Mutex
	defaultLogger *chlog.Logger
)

type Options struct {
	Level   string
	Format  string // "text" | "json" | "logfmt"
	Verbose bool
	// Color: "auto" | "always" | "never"
	Color string
}

// New builds a logger writing to w. Unknown levels fall back to info.
func New(w io.Writer, opts Options) *chlog.Logger {
	l := chlog.NewWithOptions(w, chlog.Options{ReportTimestamp: true, Prefix: "dbfixture"})

	if opts.Verbose {
		l.SetLevel(chlog.DebugLevel)
	} else {
		l.SetLevel(ParseLevel(opts.Level))
	}

	switch strings.ToLower(opts.Format) {
	case "json":
		l.SetFormatter(chlog.JSONFormatter)
	case "logfmt":
		l.SetFormatter(chlog.LogfmtFormatter)
	default:
		switch strings.ToLower(opts.Color) {
		case "always":
			l.SetColorProfile(termenv.TrueColor)
		case "never":
			l.SetColorProfile(termenv.Ascii)
		}
	}
	return l
}

func ParseLevel(level string) chlog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return chlog.DebugLevel
	case "warn", "warning":
		return chlog.WarnLevel
	case "error":
		return chlog.ErrorLevel
	}
	return chlog.InfoLevel
}

// Init installs a stderr logger as the default and routes the standard
// library logger through it. The returned func restores the standard logger.
func Init(opts Options) func() {
	l := New(os.Stderr, opts)

	prevWriter := stdlog.Writer()
	prevFlags := stdlog.Flags()
	prevPrefix := stdlog.Prefix()
	stdlog.SetFlags(0)
	stdlog.SetPrefix("")
	stdlog.SetOutput(&stdLogAdapter{L: l})

	mu.Lock()
	defaultLogger = l
	mu.Unlock()

	return func() {
		stdlog.SetOutput(prevWriter)
		stdlog.SetFlags(prevFlags)
		stdlog.SetPrefix(prevPrefix)
	}
}

func L() *chlog.Logger {
	mu.Lock()
	defer mu.Unlock()
	if defaultLogger == nil {
		defaultLogger = New(os.Stderr, Options{Level: "warn"})
	}
	return defaultLogger
}

type stdLogAdapter struct{ L *chlog.Logger }

func (w *stdLogAdapter) Write(p []byte) (int, error) {
	msg := strings.TrimRight(string(p), "\r\n")
	if msg != "" {
		w.L.Info(msg)
	}
	return len(p), nil
}
