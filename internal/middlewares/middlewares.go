package middlewares

import (
	"net/http"

	"github.com/debankfi/debank/internal/sessions"
	"github.com/debankfi/debank/internal/store"
	datastar "github.com/starfederation/datastar/sdk/go"
)

// IsDatastar reports whether r was issued by the datastar client.
func IsDatastar(r *http.Request) bool {
	return r.Header.Get("Datastar-Request") == "true"
}

// WithState adds a snapshot of the store to the request context.
func WithState(st *store.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r = r.WithContext(sessions.WithState(r.Context(), st.State()))
			next.ServeHTTP(w, r)
		})
	}
}

// RequireSession sends the browser home unless a wallet is connected and no
// alert is blocking the page. It must run after WithState.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, ok := sessions.GetState(r.Context())
		if ok && s.Session != nil && s.Alert == nil {
			next.ServeHTTP(w, r)
			return
		}

		if IsDatastar(r) {
			sse := datastar.NewSSE(w, r)
			sse.Redirect("/")
			return
		}
		http.Redirect(w, r, "/", http.StatusSeeOther)
	})
}
