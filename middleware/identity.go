package middleware

import (
	"encoding/json"
	"net"
	"net/http"

	goIntake "github.com/MrEthical07/goIntake"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// ClientContext copies the client IP and chi request id into the request
// context so engine audit events carry them.
func ClientContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := goIntake.WithClientIP(r.Context(), ClientIP(r))
		if id := chimw.GetReqID(ctx); id != "" {
			ctx = goIntake.WithRequestID(ctx, id)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClientIP returns r.RemoteAddr without its port.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type errorBody struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"requestId,omitempty"`
}

func writeError(w http.ResponseWriter, r *http.Request, status int, message, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{
		Error:     message,
		Code:      code,
		RequestID: chimw.GetReqID(r.Context()),
	})
}
