package server

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/oklog/ulid/v2"
	"github.com/raine/listing-digest/internal/logging"
	"github.com/raine/listing-digest/internal/pipeline"
	"github.com/rs/zerolog/log"
)

const requestIDHeader = "X-Request-ID"

// requestLogger attaches a request-scoped logger carrying a ULID request id
// to the context and logs one line per request.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := ulid.Make().String()

		logger := log.With().Str("requestID", id).Logger()
		ctx := logger.WithContext(r.Context())

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		ww.Header().Set(requestIDHeader, id)

		next.ServeHTTP(ww, r.WithContext(ctx))

		logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

// recoverJSON turns a handler panic into a structured error response. When
// the handler has already started its response only the panic is logged.
func recoverJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww, ok := w.(middleware.WrapResponseWriter)
		if !ok {
			ww = middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		}

		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			logging.FromContext(r.Context()).Error().
				Interface("panic", rec).
				Int("status", ww.Status()).
				Bytes("stack", debug.Stack()).
				Msg("handler panicked")
			if ww.Status() != 0 {
				return
			}
			writeJSON(ww, http.StatusInternalServerError, pipeline.Fail(fmt.Sprintf(pipeline.MsgUnexpectedErr, rec)))
		}()
		next.ServeHTTP(ww, r)
	})
}
