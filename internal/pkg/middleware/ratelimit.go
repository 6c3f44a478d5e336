package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"time"

	apperror "gostore/internal/errors"
	"gostore/internal/pkg/cache"
	"gostore/internal/pkg/logger"
)

// RateLimiter limita as requisições por IP em uma janela fixa guardada no Redis.
// Se o Redis falhar, a requisição segue.
func RateLimiter(client cache.Client, limit int, duration time.Duration, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				ip = r.RemoteAddr
			}
			key := "rate-limit:" + ip
			ctx := r.Context()

			count, err := client.IncrWindow(ctx, key, duration)
			if err != nil {
				log.Warn("Rate limit indisponível; requisição liberada.", map[string]interface{}{"error": err.Error()})
				next.ServeHTTP(w, r)
				return
			}

			if count > int64(limit) {
				w.Header().Set("Retry-After", strconv.Itoa(int(duration.Seconds())))
				writeError(w, apperror.NewValidationError("Limite de requisições excedido."), http.StatusTooManyRequests)
				return
			}

			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(int64(limit)-count, 10))
			next.ServeHTTP(w, r)
		})
	}
}

// writeError responde no mesmo formato de erro dos handlers.
func writeError(w http.ResponseWriter, err error, status int) {
	_, category, message := apperror.MapToHTTPStatus(err)
	if status == http.StatusTooManyRequests {
		category = "RATE_LIMITED"
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"code":     status,
		"category": category,
		"message":  message,
	})
}
