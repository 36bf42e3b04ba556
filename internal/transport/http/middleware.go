package http

import (
	"net"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pawstay/pawstay/services/api/internal/auth"
)

// RequestLogger logs request details and latency. Responses of 500 and above
// are logged at error level together with the recorded cause.
func RequestLogger(next http.Handler, log logrus.FieldLogger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		entry := log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start).String(),
		})
		if rec.userID != "" {
			entry = entry.WithField("user_id", rec.userID)
		}
		if rec.status >= http.StatusInternalServerError {
			if rec.err != nil {
				entry = entry.WithError(rec.err)
			}
			entry.Error("request failed")
			return
		}
		entry.Info("request")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	userID string
	err    error
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func recordError(w http.ResponseWriter, err error) {
	if rec, ok := w.(*statusRecorder); ok {
		rec.err = err
	}
}

func recordUser(w http.ResponseWriter, userID string) {
	if rec, ok := w.(*statusRecorder); ok {
		rec.userID = userID
	}
}

// RequireAuth rejects requests without a valid bearer token and puts the
// caller's identity on the request context.
func RequireAuth(v *auth.Verifier, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		id, err := v.Verify(r.Header.Get("Authorization"))
		if err != nil {
			w.Header().Set("WWW-Authenticate", `Bearer realm="pawstay"`)
			writeError(w, http.StatusUnauthorized, codeUnauthorized, "unauthorized")
			return
		}
		recordUser(w, id.UserID)
		next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
	})
}

// RequireAdmin only lets admins through. It must run after RequireAuth.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := auth.FromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, codeUnauthorized, "unauthorized")
			return
		}
		if !id.IsAdmin() {
			writeError(w, http.StatusForbidden, codeForbidden, "forbidden")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ForMethod routes requests with the given method through wrapped and all
// others straight to next.
func ForMethod(method string, wrapped, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == method {
			wrapped.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RateLimitKey identifies callers by user id, falling back to the remote
// address for unauthenticated requests.
func RateLimitKey(r *http.Request) string {
	if id, ok := auth.FromContext(r.Context()); ok {
		return "user:" + id.UserID
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}

// RateLimited writes the response for requests over their limit.
func RateLimited(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusTooManyRequests, codeRateLimited, "too many requests")
}

func identity(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	id, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, codeUnauthorized, "unauthorized")
		return auth.Identity{}, false
	}
	return id, true
}
