package store

import (
	"math/big"
	"time"

	"github.com/debankfi/debank/internal/accounts"
	"github.com/ethereum/go-ethereum/common"
)

// Action is a plain state transition request. The set is closed.
type Action interface {
	Type() string
	action()
}

type SetSession struct {
	Session *Session
}

// SendStarted is dispatched right before a contract send is issued.
type SendStarted struct {
	ID     string
	Kind   accounts.TxKind
	Amount *big.Int
	At     time.Time
}

type SendConfirmed struct {
	ID     string
	TxHash common.Hash
	Block  uint64
}

type SendFailed struct {
	ID  string
	Err string
}

type AuthorizationRequested struct{}

type AlertRaised struct {
	Alert Alert
}

type AlertCleared struct{}

type SetTheme struct {
	Theme Theme
}

type ToggleTheme struct{}

func (SetSession) Type() string             { return "setSession" }
func (SendStarted) Type() string            { return "sendStarted" }
func (SendConfirmed) Type() string          { return "sendConfirmed" }
func (SendFailed) Type() string             { return "sendFailed" }
func (AuthorizationRequested) Type() string { return "authorizationRequested" }
func (AlertRaised) Type() string            { return "alertRaised" }
func (AlertCleared) Type() string           { return "alertCleared" }
func (SetTheme) Type() string               { return "setTheme" }
func (ToggleTheme) Type() string            { return "toggleTheme" }

func (SetSession) action()             {}
func (SendStarted) action()            {}
func (SendConfirmed) action()          {}
func (SendFailed) action()             {}
func (AuthorizationRequested) action() {}
func (AlertRaised) action()            {}
func (AlertCleared) action()           {}
func (SetTheme) action()               {}
func (ToggleTheme) action()            {}
