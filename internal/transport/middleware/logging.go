package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/middleware"

	"github.com/frahmantamala/identity-management/pkg/logger"
)

// ctxLog prefers the request-scoped logger, which carries the trace id
// injected by RequestID, over the process-wide one.
func ctxLog(r *http.Request, base *slog.Logger) *slog.Logger {
	if l := logger.From(r.Context()); l != nil {
		return l
	}
	return base
}

// redactedFields are JSON keys and header names whose values never reach the
// logs. Every request through this service carries credentials or tokens at
// some point, so the list errs on the side of redacting.
var redactedFields = []string{
	"password",
	"password_hash",
	"token",
	"access_token",
	"authorization",
	"cookie",
	"set-cookie",
	"secret",
	"session",
	"credential",
}

const maxLoggedBody = 2 << 10

// LoggingMiddleware logs one line per request and one per response. Request
// bodies are redacted field by field. Successful response bodies are never
// logged at all, since they carry session tokens and identity records; only
// error bodies are, redacted.
func LoggingMiddleware(fallback *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			log := ctxLog(r, fallback)

			reqID := middleware.GetReqID(r.Context())

			var bodyBytes []byte
			if r.Body != nil {
				bodyBytes, _ = io.ReadAll(io.LimitReader(r.Body, maxLoggedBody))
				r.Body = io.NopCloser(io.MultiReader(bytes.NewReader(bodyBytes), r.Body))
			}

			log.Info("incoming request",
				"request_id", reqID,
				"method", r.Method,
				"path", r.URL.Path,
				"query", r.URL.RawQuery,
				"remote_addr", r.RemoteAddr,
				"user_agent", r.UserAgent(),
				"headers", redactHeaders(r.Header),
				"body", redactBody(bodyBytes),
			)

			ww := &responseWriter{
				ResponseWriter: w,
				body:           &bytes.Buffer{},
			}

			next.ServeHTTP(ww, r)

			status := ww.statusCode
			if status == 0 {
				status = http.StatusOK
			}

			level := slog.LevelInfo
			if status >= 500 {
				level = slog.LevelError
			} else if status >= 400 {
				level = slog.LevelWarn
			}

			attrs := []any{
				"request_id", reqID,
				"status_code", status,
				"duration_ms", time.Since(start).Milliseconds(),
				"response_size", ww.body.Len(),
			}
			if status >= 400 {
				attrs = append(attrs, "body", redactBody(ww.body.Bytes()))
			}

			log.Log(r.Context(), level, "response", attrs...)
		})
	}
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
	body       *bytes.Buffer
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if rw.body.Len() < maxLoggedBody {
		rw.body.Write(b)
	}
	return rw.ResponseWriter.Write(b)
}

func isRedacted(name string) bool {
	lower := strings.ToLower(name)
	for _, field := range redactedFields {
		if strings.Contains(lower, field) {
			return true
		}
	}
	return false
}

func redactHeaders(headers http.Header) map[string]string {
	out := make(map[string]string, len(headers))
	for name, values := range headers {
		if isRedacted(name) {
			out[name] = "[REDACTED]"
		} else {
			out[name] = strings.Join(values, ", ")
		}
	}
	return out
}

// redactBody replaces sensitive JSON fields with a placeholder. Bodies that
// do not parse as JSON are dropped wholesale rather than guessed at.
func redactBody(body []byte) string {
	if len(body) == 0 {
		return ""
	}

	var data interface{}
	if err := json.Unmarshal(body, &data); err != nil {
		return "[NON-JSON BODY]"
	}

	redacted, err := json.Marshal(redactJSON(data))
	if err != nil {
		return "[UNLOGGABLE BODY]"
	}
	return string(redacted)
}

func redactJSON(data interface{}) interface{} {
	switch v := data.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for key, value := range v {
			if isRedacted(key) {
				out[key] = "[REDACTED]"
			} else {
				out[key] = redactJSON(value)
			}
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = redactJSON(item)
		}
		return out
	default:
		return v
	}
}
