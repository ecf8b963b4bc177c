package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

var zlog zerolog.Logger

// Init initializes the structured zerolog logger.
// Development environments get pretty console output, everything else
// gets JSON for log shipping.
func Init(env string) {
	var w io.Writer

	if env == "development" || env == "dev" || env == "local" {
		w = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	} else {
		w = os.Stdout
	}

	zlog = zerolog.New(w).With().
		Timestamp().
		Str("service", "sitewand-backend").
		Logger()

	zerolog.TimeFieldFormat = time.RFC3339
}

// Get returns the global zerolog logger
func Get() *zerolog.Logger {
	return &zlog
}

// WithRequestID returns a logger with request_id field
func WithRequestID(requestID string) zerolog.Logger {
	return zlog.With().Str("request_id", requestID).Logger()
}

// WithSiteID returns a logger with site_id field
func WithSiteID(siteID string) zerolog.Logger {
	return zlog.With().Str("site_id", siteID).Logger()
}
