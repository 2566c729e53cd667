package otel

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/SaketSinghRajput/honeycomb/internal/otel"

// MiddlewareWithStatus returns a chi middleware that starts a span per request
// and injects trace context so downstream handlers (e.g. engage -> ProcessTurn)
// appear as children of the HTTP span. The span records the response status
// code and is marked Error for 5xx responses.
func MiddlewareWithStatus() func(next http.Handler) http.Handler {
	tr := Tracer(tracerName)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := tr.Start(r.Context(), r.Method+" "+r.URL.Path,
				trace.WithAttributes(
					attribute.String("http.request.method", r.Method),
					attribute.String("url.path", r.URL.Path),
				))
			ww := &statusWriter{ResponseWriter: w, code: http.StatusOK}
			next.ServeHTTP(ww, r.WithContext(ctx))

			// chi fills in the route pattern during routing, so it is only
			// reliable after the handler chain has run.
			if route := routePattern(r); route != "" {
				span.SetName(r.Method + " " + route)
				span.SetAttributes(attribute.String("http.route", route))
			}
			span.SetAttributes(attribute.Int("http.response.status_code", ww.code))
			if ww.code >= 500 {
				span.SetStatus(codes.Error, http.StatusText(ww.code))
			}
			span.End()
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (s *statusWriter) WriteHeader(code int) {
	s.code = code
	s.ResponseWriter.WriteHeader(code)
}

// routePattern returns the chi route pattern (e.g. "/api/v1/sessions/{id}")
// when available, otherwise the request path.
func routePattern(r *http.Request) string {
	if ctx := chi.RouteContext(r.Context()); ctx != nil && ctx.RoutePattern() != "" {
		return ctx.RoutePattern()
	}
	return r.URL.Path
}
