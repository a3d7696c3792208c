package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// SetupGlobalLevel parses and applies the global log level. It panics on an
// unknown level name, which is always a deployment configuration error.
func SetupGlobalLevel(level string) {
	if err := TrySetupGlobalLevel(level); err != nil {
		panic(err)
	}
}

func TrySetupGlobalLevel(level string) error {
	l, err := zerolog.ParseLevel(level)
	if err != nil {
		return err
	}
	zerolog.SetGlobalLevel(l)
	return nil
}

// SetLogSeverityFromEnv applies LOG_LEVEL; defaults to INFO.
func SetLogSeverityFromEnv() {
	if lvl, err := zerolog.ParseLevel(os.Getenv("LOG_LEVEL")); err != nil {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		zerolog.SetGlobalLevel(lvl)
	}
}

func newConsoleWriter() io.Writer {
	return zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.DateTime,
		PartsOrder: []string{
			zerolog.TimestampFieldName,
			zerolog.LevelFieldName,
			FieldComponent,
			zerolog.CallerFieldName,
			zerolog.MessageFieldName,
		},
		FieldsExclude: []string{FieldComponent},
	}
}

// NewLogger returns a component-tagged console logger.
func NewLogger(component string) zerolog.Logger {
	return zerolog.New(newConsoleWriter()).
		With().
		Str(FieldComponent, component).
		Caller().
		Timestamp().
		Logger()
}

// NewLoggerWithWriter returns a component-tagged logger writing to the given
// writer. Used by tests to capture output.
func NewLoggerWithWriter(component string, writer io.Writer) zerolog.Logger {
	return zerolog.New(writer).
		With().
		Str(FieldComponent, component).
		Timestamp().
		Logger()
}
