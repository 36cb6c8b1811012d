package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/hsarchitect/folio/server/util"
)

// Logger attaches a request-scoped logger to the context, both as a RequestLogger and
// as the zerolog context logger, and logs each completed request with its status.
func Logger(l zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rl := util.WithRequest(l, r, "")
			ctx := util.ContextWithLogger(r.Context(), rl)
			ctx = rl.Zerolog().WithContext(ctx)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			ev := rl.Zerolog().Info()
			if status >= http.StatusInternalServerError {
				ev = rl.Zerolog().Error()
			}
			ev.Int("status", status).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Str("remote", util.ClientIP(r)).
				Msg("request completed")
		})
	}
}
