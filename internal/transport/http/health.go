package http

import (
	"context"
	stdhttp "net/http"
	"time"
)

const healthCheckTimeout = 2 * time.Second

// HandleHealth reports liveness, and readiness of storage when check is set.
func HandleHealth(check func(ctx context.Context) error) stdhttp.HandlerFunc {
	return func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		if check != nil {
			ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
			defer cancel()
			if err := check(ctx); err != nil {
				recordError(w, err)
				writeError(w, stdhttp.StatusServiceUnavailable, codeStorageUnavailable, "storage unavailable")
				return
			}
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(stdhttp.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}
