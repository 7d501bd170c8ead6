package store

import (
	"math/big"
	"time"

	"github.com/debankfi/debank/internal/accounts"
	"github.com/ethereum/go-ethereum/common"
)

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// Session is a full snapshot of the user and bank as read after the wallet
// connected. It is only ever replaced as a whole.
type Session struct {
	User      User      `json:"user"`
	Bank      Bank      `json:"bank"`
	NetworkID uint64    `json:"networkId"`
	Block     uint64    `json:"block"`
	BlockTime time.Time `json:"blockTime"`
	LoadedAt  time.Time `json:"loadedAt"`
}

type User struct {
	Address        common.Address    `json:"address"`
	EthBalance     *big.Int          `json:"ethBalance"`
	TokenBalance   *big.Int          `json:"tokenBalance"`
	TokenAllowance *big.Int          `json:"tokenAllowance"` // granted to the bank
	Account        *accounts.Account `json:"account"`
}

type Bank struct {
	Address          common.Address `json:"address"`
	EthBalance       *big.Int       `json:"ethBalance"`
	TokenAddress     common.Address `json:"tokenAddress"`
	TokenName        string         `json:"tokenName"`
	TokenSymbol      string         `json:"tokenSymbol"`
	TokenTotalSupply *big.Int       `json:"tokenTotalSupply"`
	IsMinter         bool           `json:"isMinter"` // bank holds the token's minter role
}

// Pending is the send waiting for its receipt.
type Pending struct {
	ID        string          `json:"id"`
	Kind      accounts.TxKind `json:"kind"`
	Amount    *big.Int        `json:"amount,omitempty"`
	StartedAt time.Time       `json:"startedAt"`
}

// Failure is the last send that was rejected or reverted.
type Failure struct {
	ID      string          `json:"id"`
	Kind    accounts.TxKind `json:"kind"`
	Message string          `json:"message"`
}

// Confirmation is the last send that was mined successfully.
type Confirmation struct {
	ID     string          `json:"id"`
	Kind   accounts.TxKind `json:"kind"`
	TxHash common.Hash     `json:"txHash"`
	Block  uint64          `json:"block"`
}

type AlertKind string

const (
	AlertConfiguration AlertKind = "configuration"
	AlertAuthorization AlertKind = "authorization"
)

// Alert blocks the whole UI until the user fixes its cause.
type Alert struct {
	Kind    AlertKind `json:"kind"`
	Message string    `json:"message"`
}

type State struct {
	Session *Session `json:"session"`
	Theme   Theme    `json:"theme"`

	// Loading covers the whole span from dispatch to receipt. It sits
	// outside Session so a reload never clears it.
	Loading bool          `json:"loading"`
	Pending *Pending      `json:"pending,omitempty"`
	Failure *Failure      `json:"failure,omitempty"`
	Last    *Confirmation `json:"last,omitempty"`

	Alert                 *Alert `json:"alert,omitempty"`
	AwaitingAuthorization bool   `json:"awaitingAuthorization"`
}

func Initial() State {
	return State{Theme: ThemeLight}
}
