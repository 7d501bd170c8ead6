package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/debankfi/debank/internal/debank"
	"github.com/debankfi/debank/internal/store"
)

// Connect unlocks the wallet with the submitted passphrase. Wallet failures
// show up as the blocking alert, a request from a stale prompt gets a flash.
func Connect(logger *slog.Logger, runner Runner, rs *Responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		if err := runner.Authorize(r.Context(), r.PostForm.Get("passphrase")); err != nil {
			logger.LogAttrs(
				r.Context(),
				slog.LevelWarn,
				"failed to authorize wallet",
				slog.String("error", err.Error()),
			)
			rs.respond(w, r, lifecycleMessage(err))
			return
		}
		rs.respond(w, r, "")
	}
}

func Reject(runner Runner, rs *Responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := runner.Reject(r.Context()); err != nil {
			rs.respond(w, r, lifecycleMessage(err))
			return
		}
		rs.respond(w, r, "")
	}
}

// Retry dismisses the alert and detects the wallet again.
func Retry(logger *slog.Logger, runner Runner, rs *Responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := runner.Retry(r.Context()); err != nil {
			logger.LogAttrs(
				r.Context(),
				slog.LevelWarn,
				"failed to connect wallet",
				slog.String("error", err.Error()),
			)
			rs.respond(w, r, lifecycleMessage(err))
			return
		}
		rs.respond(w, r, "")
	}
}

func Theme(rs *Responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rs.Store.Dispatch(store.ToggleTheme{})
		rs.respond(w, r, "")
	}
}

// lifecycleMessage is the flash for a connect request that was turned away.
// Wallet and provider failures are already on the page as the alert.
func lifecycleMessage(err error) string {
	switch {
	case errors.Is(err, debank.ErrNotAwaitingAuthorization), errors.Is(err, debank.ErrConnected):
		return "Your wallet is already connected."
	case errors.Is(err, debank.ErrSendInFlight):
		return "Another transaction is still pending. Wait for it to be mined."
	default:
		return ""
	}
}
