package util

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hsarchitect/folio/config"
)

type loggerKeyType struct{}

var loggerKey = loggerKeyType{}

// NewLogger builds the process logger. Debug mode switches to the console writer.
func NewLogger(cfg config.Log, debug bool, out io.Writer) zerolog.Logger {
	if out == nil {
		out = os.Stdout
	}

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	if debug {
		level = zerolog.DebugLevel
	}

	if debug || cfg.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	return zerolog.New(out).Level(level).With().Timestamp().Str("service", "folio").Logger()
}

// RequestLogger holds request-scoped context to enrich logs.
type RequestLogger struct {
	logger zerolog.Logger
}

// WithRequest creates a request-scoped logger carrying method, path, request id and user.
func WithRequest(l zerolog.Logger, r *http.Request, user string) *RequestLogger {
	c := l.With().
		Str("method", r.Method).
		Str("path", r.URL.Path)

	if id := middleware.GetReqID(r.Context()); id != "" {
		c = c.Str("request_id", id)
	}
	if user != "" {
		c = c.Str("user", user)
	}

	return &RequestLogger{logger: c.Logger()}
}

// WithUser returns a copy of the request logger tagged with the authenticated user.
func (rl *RequestLogger) WithUser(user string) *RequestLogger {
	return &RequestLogger{logger: rl.logger.With().Str("user", user).Logger()}
}

// ContextWithLogger stores the request logger in context for downstream handlers.
func ContextWithLogger(ctx context.Context, rl *RequestLogger) context.Context {
	return context.WithValue(ctx, loggerKey, rl)
}

func (rl *RequestLogger) Debugf(format string, v ...any) { rl.logger.Debug().Msg(fmt.Sprintf(format, v...)) }
func (rl *RequestLogger) Infof(format string, v ...any)  { rl.logger.Info().Msg(fmt.Sprintf(format, v...)) }
func (rl *RequestLogger) Warnf(format string, v ...any)  { rl.logger.Warn().Msg(fmt.Sprintf(format, v...)) }
func (rl *RequestLogger) Errorf(format string, v ...any) { rl.logger.Error().Msg(fmt.Sprintf(format, v...)) }

// Zerolog exposes the underlying logger for structured fields.
func (rl *RequestLogger) Zerolog() *zerolog.Logger {
	return &rl.logger
}

// FromContext retrieves a request logger from context when available.
func FromContext(ctx context.Context) *RequestLogger {
	if ctx == nil {
		return nil
	}

	if rl, ok := ctx.Value(loggerKey).(*RequestLogger); ok {
		return rl
	}

	return nil
}

// ForRequest returns the logger stored on the request, falling back to the global logger.
func ForRequest(r *http.Request) *RequestLogger {
	if rl := FromContext(r.Context()); rl != nil {
		return rl
	}

	return WithRequest(log.Logger, r, "")
}
