package web

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/debankfi/debank/internal/config"
	"github.com/debankfi/debank/internal/contracts"
	"github.com/debankfi/debank/internal/debank"
	"github.com/debankfi/debank/internal/events"
	"github.com/debankfi/debank/internal/handlers"
	"github.com/debankfi/debank/internal/provider"
	"github.com/debankfi/debank/internal/routes"
	"github.com/debankfi/debank/internal/sessions"
	"github.com/debankfi/debank/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Run sets up all needed dependencies for the server, early returning with
// an error if one occurs.
func Run(ctx context.Context, getenv func(string) string, stdout, stderr io.Writer) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Create logger
	logger := slog.New(slog.NewJSONHandler(stdout, nil))

	// Create config
	cfg, err := config.Load(getenv)
	if err != nil {
		return err
	}
	key, err := cfg.Key()
	if err != nil {
		return err
	}
	flashes := sessions.NewFlashes(key, cfg.Prod())

	// Start embedded NATS server
	bus, err := events.Start(ctx, cfg.EventsDir)
	if err != nil {
		return err
	}

	st := NewStore(cfg)
	Announce(logger, st, bus)

	// A broken build dir is reported once the wallet tries to bind
	manifest, manifestErr := contracts.LoadManifest(os.DirFS(cfg.BuildDir))
	if manifestErr != nil {
		logger.LogAttrs(ctx, slog.LevelError, "failed to load contract manifest",
			slog.String("dir", cfg.BuildDir),
			slog.String("error", manifestErr.Error()),
		)
	}

	svc := debank.New(ctx, debank.Deps{
		Store:  st,
		Logger: logger,
		Detect: func(ctx context.Context) (debank.Wallet, error) {
			b, err := provider.Detect(ctx, cfg.Provider, provider.Dial)
			if err != nil {
				return nil, err
			}
			return b, nil
		},
		Bind: func(_ context.Context, w debank.Wallet, networkID uint64) (contracts.Token, contracts.Bank, error) {
			if manifestErr != nil {
				return nil, nil, manifestErr
			}
			return manifest.Bind(w, networkID)
		},
		Journal: bus,
	})
	go func() {
		if err := svc.Start(ctx); err != nil {
			logger.LogAttrs(ctx, slog.LevelWarn, "wallet not connected", slog.String("error", err.Error()))
		}
	}()

	// Create and run server
	srv := NewServer(logger, st, svc, bus, flashes)
	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		BaseContext: func(l net.Listener) context.Context {
			return ctx
		},
	}
	go func() {
		logger.LogAttrs(
			ctx,
			slog.LevelInfo,
			"server started",
			slog.String("PORT", httpServer.Addr),
		)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Fprintf(stderr, "error listening and serving: %s\n", err)
		}
	}()

	// Handle graceful shutdown
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			fmt.Fprintf(stderr, "error shutting down http server: %s\n", err)
		}
		// pending sends give up on their receipts once ctx is done
		svc.Wait()
		if err := bus.Shutdown(shutdownCtx); err != nil {
			fmt.Fprintf(stderr, "error shutting down nats server: %s\n", err)
		}
	}()
	wg.Wait()
	return nil
}

// NewStore creates the store in its starting state, with the configured
// theme applied.
func NewStore(cfg config.Config) *store.Store {
	st := store.New(store.Initial())
	if cfg.Theme != "" {
		st.Dispatch(store.SetTheme{Theme: store.Theme(cfg.Theme)})
	}
	return st
}

// Announce publishes every store change on the bus so open pages re-render.
func Announce(logger *slog.Logger, st *store.Store, bus *events.Bus) func() {
	return st.Subscribe(func(_, next store.State, a store.Action) {
		err := bus.NotifyState(events.StateChange{
			Action:  a.Type(),
			Loading: next.Loading,
			At:      time.Now().UTC(),
		})
		if err != nil {
			logger.LogAttrs(context.Background(), slog.LevelWarn, "failed to announce state change",
				slog.String("action", a.Type()),
				slog.String("error", err.Error()),
			)
		}
	})
}

// Bus is what the HTTP layer needs from the event bus.
type Bus interface {
	handlers.Journal
	handlers.StateFeed
}

func NewServer(logger *slog.Logger, st *store.Store, runner handlers.Runner, bus Bus, flashes *sessions.Flashes) http.Handler {
	mux := chi.NewMux()

	mux.Use(middleware.Logger)
	mux.Use(middleware.Recoverer)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	mux.Use(middleware.Heartbeat("/heartbeat"))
	mux.Use(Compressor(2))

	routes.AddRoutes(mux, logger, st, runner, bus, bus, flashes)

	return mux
}

// Compress is an adapter middleware from Chi that compresses
// the response body of a given content types to a data format based
// on Accept-Encoding request header. Adapted to include Brotli encoding.
//
// NOTE: make sure to set the Content-Type header on your response
// otherwise this middleware will not compress the response body.
//
// Passing a compression level of 2-5 is sensible value.
func Compressor(level int) func(next http.Handler) http.Handler {
	compressor := middleware.NewCompressor(level)
	compressor.SetEncoder("br", func(w io.Writer, level int) io.Writer {
		return brotli.NewWriterV2(w, level)
	})

	return compressor.Handler
}
