package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

var (
	Log = New(os.Stderr, false)
)

// New returns a console logger writing to out with the project's level format.
func New(out io.Writer, noColor bool) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{
		Out:           out,
		NoColor:       noColor,
		TimeFormat:    "15:04:05.999Z07:00",
		FormatMessage: func(i interface{}) string { return fmt.Sprintf("→ %s", i) },
		FormatLevel: func(i interface{}) string {
			var l string
			if ll, ok := i.(string); ok {
				switch ll {
				case zerolog.LevelTraceValue:
					l = colorize("[TRACE]", 35, noColor)
				case zerolog.LevelDebugValue:
					l = colorize("[DEBUG]", 34, noColor)
				case zerolog.LevelInfoValue:
					l = colorize("[INFO] ", 37, noColor)
				case zerolog.LevelWarnValue:
					l = colorize("[WARN] ", 33, noColor)
				case zerolog.LevelErrorValue:
					l = colorize(colorize("[ERROR]", 31, noColor), 1, noColor)
				case zerolog.LevelFatalValue:
					l = colorize(colorize("[FATAL]", 31, noColor), 1, noColor)
				case zerolog.LevelPanicValue:
					l = colorize(colorize("[PANIC]", 31, noColor), 1, noColor)
				default:
					l = colorize("[???]", 1, noColor)
				}
			} else {
				if i == nil {
					l = colorize("[???]", 1, noColor)
				} else {
					l = strings.ToUpper(fmt.Sprintf("%s", i))[0:3]
				}
			}
			return l
		},
	}).With().Timestamp().Logger().Level(zerolog.InfoLevel)
}

// GetLogger returns a child of Log tagged with the given component name.
func GetLogger(component string) zerolog.Logger {
	return Log.With().Str("component", component).Logger()
}

// SetVerbose switches the global logger between info and debug level.
func SetVerbose(verbose bool) {
	if verbose {
		Log = Log.Level(zerolog.DebugLevel)
	} else {
		Log = Log.Level(zerolog.InfoLevel)
	}
}

func colorize(s interface{}, c int, disabled bool) string {
	if disabled {
		return fmt.Sprintf("%s", s)
	}
	return fmt.Sprintf("\x1b[%dm%v\x1b[0m", c, s)
}
