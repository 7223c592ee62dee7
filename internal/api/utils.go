package api

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"

	"chatkitlab/internal/session"
	"chatkitlab/pkg/problems"
)

func writeJSON(w http.ResponseWriter, v any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, kind session.Kind) {
	writeJSON(w, problems.New(string(kind), kind.Message()), kind.Status())
}

// clientIdentity is the network origin used when the browser sent no device
// id. RemoteAddr has already been rewritten by chi's RealIP middleware.
func clientIdentity(r *http.Request) string {
	addr := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
