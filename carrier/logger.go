package carrier

import (
	"io"
	"log"
	"os"
)

// Log levels for NewLogger, ordered least to most verbose.
const (
	LogLevelSilent = iota
	LogLevelError
	LogLevelInfo
	LogLevelDebug
)

// Logger is the logging surface every carrier component writes to. It is
// supplied by the caller rather than constructed internally, so a single
// process running several carriers (or embedding the carrier in a larger
// service) can route all of them through one sink.
type Logger interface {
	Debugf(format string, v ...interface{})
	Infof(format string, v ...interface{})
	Errorf(format string, v ...interface{})
}

type basicLogger struct {
	debug *log.Logger
	info  *log.Logger
	err   *log.Logger
}

var _ Logger = (*basicLogger)(nil)

// NewLogger returns a Logger writing to stdout, filtered to level and below,
// with every line prefixed by prepend (typically the carrier's own peer id).
func NewLogger(level int, prepend string) Logger {
	output := os.Stdout

	logErr, logInfo, logDebug := func() (io.Writer, io.Writer, io.Writer) {
		switch {
		case level >= LogLevelDebug:
			return output, output, output
		case level >= LogLevelInfo:
			return output, output, io.Discard
		case level >= LogLevelError:
			return output, io.Discard, io.Discard
		default:
			return io.Discard, io.Discard, io.Discard
		}
	}()

	return &basicLogger{
		debug: log.New(logDebug, "DEBUG: "+prepend, log.Ldate|log.Ltime),
		info:  log.New(logInfo, "INFO: "+prepend, log.Ldate|log.Ltime),
		err:   log.New(logErr, "ERROR: "+prepend, log.Ldate|log.Ltime),
	}
}

func (l *basicLogger) Debugf(format string, v ...interface{}) { l.debug.Printf(format, v...) }
func (l *basicLogger) Infof(format string, v ...interface{})  { l.info.Printf(format, v...) }
func (l *basicLogger) Errorf(format string, v ...interface{}) { l.err.Printf(format, v...) }

// nopLogger discards everything; used as the default when no Logger is supplied.
type nopLogger struct{}

func (nopLogger) Debugf(string, ...interface{}) {}
func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}
