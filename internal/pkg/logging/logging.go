package logging

import (
	"context"
	"fmt"
	"os"
	"path"

	stdlog "log"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

/*
 *  Diagnostics logging for the CLI and its backend requests
 */

type ctxKey int

const (
	requestIDKey ctxKey = iota
)

// WithRequestID returns a context that carries the ID of a backend request
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestID returns the request ID stored in ctx, if any
func RequestID(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(requestIDKey).(string)
	return id, ok
}

type logger struct {
	entry   *logrus.Entry
	logFile *os.File
}

// The one singleton logger
var gLogger logger
var gInvocationID string

// Logger returns the global logger, tagged with the request ID from ctx
func Logger(ctx context.Context) *logrus.Entry {
	if id, ok := RequestID(ctx); ok {
		return gLogger.entry.WithField("reqid", id)
	}

	return gLogger.entry
}

func baseFields() logrus.Fields {
	return logrus.Fields{
		"pid":        os.Getpid(),
		"exe":        path.Base(os.Args[0]),
		"invocation": gInvocationID,
	}
}

func init() {
	viper.SetDefault("logging.location", "stderr")
	viper.SetDefault("logging.format", "text")
	viper.SetDefault("logging.level", "warning")

	gInvocationID = uuid.New().String()
	gLogger.entry = logrus.WithFields(baseFields())
}

// Configure sets the log level and output location/format.  A debug flag
// overrides the configured level.
func Configure(cfg *viper.Viper) error {
	switch loc := cfg.GetString("logging.location"); loc {
	case "stdout":
		logrus.SetOutput(os.Stdout)
		gLogger.entry = logrus.WithFields(logrus.Fields{})
	case "stderr":
		logrus.SetOutput(os.Stderr)
		gLogger.entry = logrus.WithFields(logrus.Fields{})
	default:
		file, err := os.OpenFile(loc, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
		if err != nil {
			return err
		}

		gLogger.entry.Debugf("Switching log to %s", loc)
		logrus.SetOutput(file)

		if gLogger.logFile != nil {
			gLogger.logFile.Close()
		}
		gLogger.logFile = file

		// a shared log file needs to tell invocations apart
		gLogger.entry = logrus.WithFields(baseFields())
	}

	if cfg.GetBool("logging.debug") {
		logrus.SetLevel(logrus.DebugLevel)
	} else {
		level := cfg.GetString("logging.level")
		val, err := logrus.ParseLevel(level)
		if err != nil {
			return fmt.Errorf("bad log level: [%s]", level)
		}
		logrus.SetLevel(val)
	}

	if cfg.GetString("logging.format") == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}

	// Override the standard system logger
	stdlog.SetOutput(Logger(nil).WriterLevel(logrus.DebugLevel))

	return nil
}
