package sessions

import (
	"context"
	"net/http"
	"time"

	"github.com/debankfi/debank/internal/store"
	"github.com/gorilla/sessions"
)

type contextKey string

const stateContextKey contextKey = "state"

func WithState(ctx context.Context, s store.State) context.Context {
	return context.WithValue(ctx, stateContextKey, s)
}

// GetState will return the state snapshot in the Context.
// If it isn't found, ok is false.
func GetState(ctx context.Context) (store.State, bool) {
	val := ctx.Value(stateContextKey)
	if val == nil {
		return store.State{}, false
	}

	s, ok := val.(store.State)
	if !ok {
		panic("sessions: state context value of wrong type")
	}
	return s, true
}

const flashSession = "debank"

// Flashes keeps one-shot messages in a signed cookie between a POST and the
// page it redirects to.
type Flashes struct {
	store sessions.Store
}

func NewFlashes(key []byte, secure bool) *Flashes {
	cs := sessions.NewCookieStore(key)
	cs.Options.Path = "/"
	cs.Options.HttpOnly = true
	cs.Options.MaxAge = int((time.Hour * 24).Seconds())
	cs.Options.Secure = secure
	cs.Options.SameSite = http.SameSiteLaxMode
	return &Flashes{store: cs}
}

func (f *Flashes) Add(w http.ResponseWriter, r *http.Request, msg string) error {
	s, err := f.store.Get(r, flashSession)
	if err != nil && s == nil {
		return err
	}
	s.AddFlash(msg)
	return s.Save(r, w)
}

// Pop returns and clears the pending messages. A broken cookie reads as
// no messages.
func (f *Flashes) Pop(w http.ResponseWriter, r *http.Request) []string {
	s, err := f.store.Get(r, flashSession)
	if err != nil && s == nil {
		return nil
	}
	raw := s.Flashes()
	if len(raw) == 0 {
		return nil
	}
	_ = s.Save(r, w)

	msgs := make([]string, 0, len(raw))
	for _, v := range raw {
		if m, ok := v.(string); ok {
			msgs = append(msgs, m)
		}
	}
	return msgs
}
