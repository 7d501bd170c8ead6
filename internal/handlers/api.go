package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/debankfi/debank/internal/events"
	"github.com/debankfi/debank/internal/sessions"
)

// APISession returns the state snapshot as JSON.
func APISession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, _ := sessions.GetState(r.Context())

		data, err := json.Marshal(s)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	}
}

// APIHistory returns the journal of the connected account.
func APIHistory(logger *slog.Logger, journal Journal) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, _ := sessions.GetState(r.Context())
		if s.Session == nil {
			w.WriteHeader(http.StatusConflict)
			return
		}

		entries, err := journal.Entries(r.Context(), s.Session.User.Address)
		if err != nil {
			logger.LogAttrs(r.Context(), slog.LevelError, "failed to read journal", slog.String("error", err.Error()))
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		if entries == nil {
			entries = []events.Entry{}
		}

		data, err := json.Marshal(entries)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	}
}
