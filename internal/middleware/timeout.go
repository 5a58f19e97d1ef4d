package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"finance-auth/internal/model"
)

// Timeout bounds handler run time. The handler's context is cancelled at the
// deadline and the client gets a 503 with the usual error envelope.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	message, _ := json.Marshal(model.APIResponse{
		Success: false,
		Error:   &model.APIError{Code: "REQUEST_TIMEOUT", Message: "request timed out"},
	})

	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, timeout, string(message))
	}
}
