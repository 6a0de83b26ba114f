package httpapi

import (
	"context"
	"crypto/subtle"
	"io"
	"net/http"
	"net/url"
)

// handleReload implements spec.md §4.8: 404 unless the shared secret
// matches, 204 on success. The secret is compared in constant time since
// it is effectively a bearer credential over plain HTTP in some
// deployments.
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<16))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	values, err := url.ParseQuery(string(body))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	secret := values.Get("secret")

	if s.ReloadSecret == "" || subtle.ConstantTimeCompare([]byte(secret), []byte(s.ReloadSecret)) != 1 {
		http.NotFound(w, r)
		return
	}

	// Use a background context: the reload outlives this request, and an
	// object-store listing call cancelled mid-flight would abort it for no
	// reason once the response is written.
	s.Catalog.Reload(context.Background())
	w.WriteHeader(http.StatusNoContent)
}
