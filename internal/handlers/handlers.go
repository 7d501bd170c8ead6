package handlers

import (
	"context"
	"log/slog"
	"math/big"
	"net/http"
	"net/url"
	"strings"

	"github.com/debankfi/debank/internal/events"
	"github.com/debankfi/debank/internal/middlewares"
	"github.com/debankfi/debank/internal/sessions"
	"github.com/debankfi/debank/internal/store"
	"github.com/debankfi/debank/web/pages"
	"github.com/ethereum/go-ethereum/common"
	"github.com/nats-io/nats.go"
	datastar "github.com/starfederation/datastar/sdk/go"
)

// Runner performs the console's operations. Sends return as soon as the
// store shows them as pending.
type Runner interface {
	Authorize(ctx context.Context, passphrase string) error
	Reject(ctx context.Context) error
	Retry(ctx context.Context) error
	Reload(ctx context.Context) error
	DepositETH(ctx context.Context, amount *big.Int) (string, error)
	WithdrawETH(ctx context.Context) (string, error)
	BorrowDBC(ctx context.Context, amount *big.Int) (string, error)
	ApproveDBC(ctx context.Context) (string, error)
	ReturnDBC(ctx context.Context) (string, error)
}

type Journal interface {
	Entries(ctx context.Context, account common.Address) ([]events.Entry, error)
}

type StateFeed interface {
	SubscribeState(ch chan *nats.Msg) (*nats.Subscription, error)
}

// Page renders the page for the request path from the state snapshot.
func Page(logger *slog.Logger, journal Journal, flashes *sessions.Flashes) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, _ := sessions.GetState(r.Context())
		v := pages.View{
			State:   s,
			Path:    r.URL.Path,
			Flashes: flashes.Pop(w, r),
		}
		v.History = history(r.Context(), logger, journal, v)

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if v.Route() == pages.RouteNotFound {
			w.WriteHeader(http.StatusNotFound)
		}
		err := pages.Document(v).Render(w)
		if err != nil {
			panic(err)
		}
	}
}

// Updates streams the app fragment again whenever the store changes.
func Updates(logger *slog.Logger, st *store.Store, feed StateFeed, journal Journal) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Query().Get("path")

		stateChan := make(chan *nats.Msg, 16)
		sub, err := feed.SubscribeState(stateChan)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		defer sub.Unsubscribe()

		sse := datastar.NewSSE(w, r)

		// first merge covers anything dispatched before the subscription
		merge := func() {
			v := pages.View{State: st.State(), Path: path}
			v.History = history(r.Context(), logger, journal, v)
			sse.MergeFragments(fragment(v))
		}
		merge()

		for {
			select {
			case <-stateChan:
				merge()
			case <-r.Context().Done():
				return
			}
		}
	}
}

func history(ctx context.Context, logger *slog.Logger, journal Journal, v pages.View) []events.Entry {
	if journal == nil || v.Route() != pages.RouteHistory || v.State.Session == nil {
		return nil
	}
	entries, err := journal.Entries(ctx, v.State.Session.User.Address)
	if err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "failed to read journal", slog.String("error", err.Error()))
		return nil
	}
	return entries
}

func fragment(v pages.View) string {
	var b strings.Builder
	if err := pages.App(v).Render(&b); err != nil {
		panic(err)
	}
	return b.String()
}

// Responder finishes POSTs. Datastar requests get the app fragment for the
// page they came from, plain form posts are redirected home with the message
// flashed.
type Responder struct {
	Logger  *slog.Logger
	Store   *store.Store
	Journal Journal
	Flashes *sessions.Flashes
}

func (rs *Responder) respond(w http.ResponseWriter, r *http.Request, msg string) {
	if middlewares.IsDatastar(r) {
		v := pages.View{State: rs.Store.State(), Path: refererPath(r)}
		v.History = history(r.Context(), rs.Logger, rs.Journal, v)
		if msg != "" {
			v.Flashes = []string{msg}
		}
		sse := datastar.NewSSE(w, r)
		sse.MergeFragments(fragment(v))
		return
	}

	if msg != "" {
		_ = rs.Flashes.Add(w, r, msg)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// refererPath is the path of the page that sent r, home when unknown.
func refererPath(r *http.Request) string {
	u, err := url.Parse(r.Referer())
	if err != nil || u.Path == "" {
		return "/"
	}
	return u.Path
}
