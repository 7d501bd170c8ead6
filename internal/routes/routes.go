package routes

import (
	"log/slog"

	"github.com/debankfi/debank/internal/assets"
	"github.com/debankfi/debank/internal/handlers"
	"github.com/debankfi/debank/internal/middlewares"
	"github.com/debankfi/debank/internal/sessions"
	"github.com/debankfi/debank/internal/store"
	"github.com/go-chi/chi/v5"
)

func AddRoutes(mux *chi.Mux, logger *slog.Logger, st *store.Store, runner handlers.Runner, journal handlers.Journal, feed handlers.StateFeed, flashes *sessions.Flashes) {
	assets.HttpHandler(mux)

	withState := middlewares.WithState(st)
	page := handlers.Page(logger, journal, flashes)
	rs := &handlers.Responder{Logger: logger, Store: st, Journal: journal, Flashes: flashes}
	mux.NotFound(withState(page).ServeHTTP)

	mux.Group(func(mux chi.Router) {
		mux.Use(withState)

		mux.Get("/", page)
		mux.Get("/about", page)
		mux.Get("/history", page)
		mux.Get("/updates", handlers.Updates(logger, st, feed, journal))

		mux.Get("/api/session", handlers.APISession())
		mux.Get("/api/history", handlers.APIHistory(logger, journal))

		mux.Post("/connect", handlers.Connect(logger, runner, rs))
		mux.Post("/connect/reject", handlers.Reject(runner, rs))
		mux.Post("/retry", handlers.Retry(logger, runner, rs))
		mux.Post("/theme", handlers.Theme(rs))

		mux.Group(func(mux chi.Router) {
			mux.Use(middlewares.RequireSession)

			mux.Post("/reload", handlers.Reload(logger, runner, rs))
			mux.Post("/actions/{action}", handlers.Action(logger, runner, rs))
		})
	})
}
