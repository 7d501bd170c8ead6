package debank

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/dchest/uniuri"
	"github.com/debankfi/debank/internal/accounts"
	"github.com/debankfi/debank/internal/contracts"
	"github.com/debankfi/debank/internal/events"
	"github.com/debankfi/debank/internal/provider"
	"github.com/debankfi/debank/internal/store"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

var (
	ErrSendInFlight = errors.New("debank: a transaction is already pending")
	ErrNotConnected = errors.New("debank: wallet not connected")
	ErrNoCollateral = errors.New("debank: no collateral to repay")
	ErrRejected     = errors.New("debank: account access was rejected")

	// Lifecycle requests that do not fit the current state. They leave the
	// store untouched.
	ErrNotAwaitingAuthorization = errors.New("debank: no authorization pending")
	ErrConnected                = errors.New("debank: wallet already connected")
)

// Wallet is the part of the provider bridge the service drives.
type Wallet interface {
	contracts.Signer
	RequiresAuthorization() bool
	RequestAccounts(ctx context.Context, passphrase string) (common.Address, error)
	Account() common.Address
	NetworkID(ctx context.Context) (uint64, error)
	BalanceAt(ctx context.Context, addr common.Address) (*big.Int, error)
	LatestBlock(ctx context.Context) (*types.Header, error)
}

type DetectFunc func(ctx context.Context) (Wallet, error)

// BindFunc resolves the deployed contracts on networkID.
type BindFunc func(ctx context.Context, w Wallet, networkID uint64) (contracts.Token, contracts.Bank, error)

type Journal interface {
	Record(ctx context.Context, e events.Entry) error
}

type Deps struct {
	Store   *store.Store
	Logger  *slog.Logger
	Detect  DetectFunc
	Bind    BindFunc
	Journal Journal // optional
	Now     func() time.Time
}

// Service runs the console's operations against the wallet and contracts and
// reports every transition to the store.
type Service struct {
	store   *store.Store
	logger  *slog.Logger
	detect  DetectFunc
	bind    BindFunc
	journal Journal
	now     func() time.Time

	// base outlives requests; sends wait for receipts on it.
	base context.Context

	// lifecycle serializes Start, Authorize, Reject and Retry.
	lifecycle sync.Mutex

	mu       sync.Mutex
	wallet   Wallet
	token    contracts.Token
	bank     contracts.Bank
	inFlight bool

	wg sync.WaitGroup
}

func New(base context.Context, deps Deps) *Service {
	s := &Service{
		store:   deps.Store,
		logger:  deps.Logger,
		detect:  deps.Detect,
		bind:    deps.Bind,
		journal: deps.Journal,
		now:     deps.Now,
		base:    base,
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Start detects the provider. A missing or broken provider raises a single
// configuration alert and nothing else happens.
func (s *Service) Start(ctx context.Context) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	return s.start(ctx)
}

func (s *Service) start(ctx context.Context) error {
	w, err := s.detect(ctx)
	if err != nil {
		s.raise(ctx, err)
		return err
	}

	s.mu.Lock()
	s.wallet = w
	s.token, s.bank = nil, nil
	s.mu.Unlock()

	if w.RequiresAuthorization() {
		s.store.Dispatch(store.AuthorizationRequested{})
		return nil
	}
	return s.authorize(ctx, "")
}

// Authorize unlocks the wallet with passphrase. It only runs while the
// connect prompt is showing.
func (s *Service) Authorize(ctx context.Context, passphrase string) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	if !s.store.State().AwaitingAuthorization {
		return ErrNotAwaitingAuthorization
	}
	return s.authorize(ctx, passphrase)
}

func (s *Service) authorize(ctx context.Context, passphrase string) error {
	s.mu.Lock()
	w := s.wallet
	s.mu.Unlock()
	if w == nil {
		return ErrNotConnected
	}

	account, err := w.RequestAccounts(ctx, passphrase)
	if err != nil {
		s.raise(ctx, err)
		return err
	}

	networkID, err := w.NetworkID(ctx)
	if err != nil {
		err = fmt.Errorf("%w: %v", provider.ErrProviderUnavailable, err)
		s.raise(ctx, err)
		return err
	}

	token, bank, err := s.bind(ctx, w, networkID)
	if err != nil {
		s.raise(ctx, err)
		return err
	}

	s.mu.Lock()
	s.token, s.bank = token, bank
	s.mu.Unlock()

	s.logger.LogAttrs(ctx, slog.LevelInfo, "wallet connected",
		slog.String("account", account.Hex()),
		slog.Uint64("network", networkID),
		slog.String("bank", bank.Address().Hex()),
	)
	return s.Reload(ctx)
}

// Reject records that the user refused account access.
func (s *Service) Reject(ctx context.Context) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	if !s.store.State().AwaitingAuthorization {
		return ErrNotAwaitingAuthorization
	}
	s.raise(ctx, ErrRejected)
	return nil
}

// Retry clears the blocking alert and detects the provider again. A working
// session is left alone.
func (s *Service) Retry(ctx context.Context) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	st := s.store.State()
	if st.Alert == nil && st.Session != nil {
		return ErrConnected
	}
	s.mu.Lock()
	inFlight := s.inFlight
	s.mu.Unlock()
	if inFlight {
		return ErrSendInFlight
	}

	s.store.Dispatch(store.AlertCleared{})
	return s.start(ctx)
}

// Reload reads a fresh snapshot of the user and the bank and replaces the
// session with it.
func (s *Service) Reload(ctx context.Context) error {
	s.mu.Lock()
	w, token, bank := s.wallet, s.token, s.bank
	s.mu.Unlock()
	if w == nil || token == nil || bank == nil {
		return ErrNotConnected
	}

	sess, err := s.snapshot(ctx, w, token, bank)
	if err != nil {
		s.logger.LogAttrs(ctx, slog.LevelError, "session reload failed", slog.String("error", err.Error()))
		return fmt.Errorf("debank: reload: %w", err)
	}
	s.store.Dispatch(store.SetSession{Session: sess})
	return nil
}

func (s *Service) snapshot(ctx context.Context, w Wallet, token contracts.Token, bank contracts.Bank) (*store.Session, error) {
	user := w.Account()
	bankAddr := bank.Address()

	networkID, err := w.NetworkID(ctx)
	if err != nil {
		return nil, err
	}
	userEth, err := w.BalanceAt(ctx, user)
	if err != nil {
		return nil, err
	}
	userTokens, err := token.BalanceOf(ctx, user)
	if err != nil {
		return nil, err
	}
	allowance, err := token.Allowance(ctx, user, bankAddr)
	if err != nil {
		return nil, err
	}
	account, err := bank.Accounts(ctx, user)
	if err != nil {
		return nil, err
	}
	bankEth, err := w.BalanceAt(ctx, bankAddr)
	if err != nil {
		return nil, err
	}
	supply, err := token.TotalSupply(ctx)
	if err != nil {
		return nil, err
	}
	name, err := token.Name(ctx)
	if err != nil {
		return nil, err
	}
	symbol, err := token.Symbol(ctx)
	if err != nil {
		return nil, err
	}
	minter, err := token.Minter(ctx)
	if err != nil {
		return nil, err
	}
	head, err := w.LatestBlock(ctx)
	if err != nil {
		return nil, err
	}

	return &store.Session{
		User: store.User{
			Address:        user,
			EthBalance:     userEth,
			TokenBalance:   userTokens,
			TokenAllowance: allowance,
			Account:        account,
		},
		Bank: store.Bank{
			Address:          bankAddr,
			EthBalance:       bankEth,
			TokenAddress:     token.Address(),
			TokenName:        name,
			TokenSymbol:      symbol,
			TokenTotalSupply: supply,
			IsMinter:         minter == bankAddr,
		},
		NetworkID: networkID,
		Block:     head.Number.Uint64(),
		BlockTime: time.Unix(int64(head.Time), 0).UTC(),
		LoadedAt:  s.now().UTC(),
	}, nil
}

func (s *Service) DepositETH(ctx context.Context, amount *big.Int) (string, error) {
	return s.send(ctx, accounts.TxDeposit, amount, func(ctx context.Context, _ contracts.Token, bank contracts.Bank) (*types.Receipt, error) {
		return bank.DepositETH(ctx, amount)
	})
}

func (s *Service) WithdrawETH(ctx context.Context) (string, error) {
	return s.send(ctx, accounts.TxWithdraw, nil, func(ctx context.Context, _ contracts.Token, bank contracts.Bank) (*types.Receipt, error) {
		return bank.WithdrawETH(ctx)
	})
}

func (s *Service) BorrowDBC(ctx context.Context, amount *big.Int) (string, error) {
	return s.send(ctx, accounts.TxBorrow, amount, func(ctx context.Context, _ contracts.Token, bank contracts.Bank) (*types.Receipt, error) {
		return bank.BorrowDBC(ctx, amount)
	})
}

// ApproveDBC lets the bank pull back the loan, which is half the collateral
// on the current session.
func (s *Service) ApproveDBC(ctx context.Context) (string, error) {
	var collateral *big.Int
	if sess := s.store.State().Session; sess != nil && sess.User.Account != nil {
		collateral = sess.User.Account.Collateral
	}
	if collateral == nil || collateral.Sign() <= 0 {
		return "", ErrNoCollateral
	}
	amount := accounts.ExpectedLoan(collateral)

	return s.send(ctx, accounts.TxApprove, amount, func(ctx context.Context, token contracts.Token, bank contracts.Bank) (*types.Receipt, error) {
		return token.Approve(ctx, bank.Address(), amount)
	})
}

func (s *Service) ReturnDBC(ctx context.Context) (string, error) {
	return s.send(ctx, accounts.TxReturn, nil, func(ctx context.Context, _ contracts.Token, bank contracts.Bank) (*types.Receipt, error) {
		return bank.ReturnDBC(ctx)
	})
}

// Wait blocks until every started send has settled.
func (s *Service) Wait() {
	s.wg.Wait()
}

type sendFunc func(ctx context.Context, token contracts.Token, bank contracts.Bank) (*types.Receipt, error)

// send marks the store as loading before it returns and leaves the
// transaction to a goroutine. Only one send runs at a time.
func (s *Service) send(ctx context.Context, kind accounts.TxKind, amount *big.Int, call sendFunc) (string, error) {
	s.mu.Lock()
	if s.wallet == nil || s.token == nil || s.bank == nil {
		s.mu.Unlock()
		return "", ErrNotConnected
	}
	if s.inFlight {
		s.mu.Unlock()
		return "", ErrSendInFlight
	}
	s.inFlight = true
	token, bank, account := s.token, s.bank, s.wallet.Account()
	s.mu.Unlock()

	id := uniuri.NewLen(12)
	s.store.Dispatch(store.SendStarted{ID: id, Kind: kind, Amount: amount, At: s.now()})
	s.logger.LogAttrs(ctx, slog.LevelInfo, "transaction sent",
		slog.String("id", id),
		slog.String("kind", kind.String()),
		slog.String("account", account.Hex()),
	)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		receipt, err := call(s.base, token, bank)
		s.settle(id, kind, amount, account, receipt, err)
	}()
	return id, nil
}

func (s *Service) settle(id string, kind accounts.TxKind, amount *big.Int, account common.Address, receipt *types.Receipt, err error) {
	ctx := s.base

	s.mu.Lock()
	s.inFlight = false
	s.mu.Unlock()

	entry := events.Entry{
		ID:      id,
		Kind:    kind,
		Account: account,
		Amount:  amount,
		At:      s.now().UTC(),
	}
	if receipt != nil {
		entry.TxHash = receipt.TxHash
		if receipt.BlockNumber != nil {
			entry.Block = receipt.BlockNumber.Uint64()
		}
	}

	if err != nil {
		entry.Status = events.StatusFailed
		entry.Error = err.Error()
		s.store.Dispatch(store.SendFailed{ID: id, Err: err.Error()})
		s.logger.LogAttrs(ctx, slog.LevelError, "transaction failed",
			slog.String("id", id),
			slog.String("kind", kind.String()),
			slog.String("error", err.Error()),
		)
	} else {
		entry.Status = events.StatusConfirmed
		s.store.Dispatch(store.SendConfirmed{ID: id, TxHash: entry.TxHash, Block: entry.Block})
		s.logger.LogAttrs(ctx, slog.LevelInfo, "transaction confirmed",
			slog.String("id", id),
			slog.String("kind", kind.String()),
			slog.String("tx", entry.TxHash.Hex()),
			slog.Uint64("block", entry.Block),
		)
	}

	if s.journal != nil {
		if jerr := s.journal.Record(ctx, entry); jerr != nil {
			s.logger.LogAttrs(ctx, slog.LevelWarn, "journal write failed",
				slog.String("id", id),
				slog.String("error", jerr.Error()),
			)
		}
	}

	if err == nil {
		_ = s.Reload(ctx)
	}
}

func (s *Service) raise(ctx context.Context, err error) {
	alert := Classify(err)
	s.logger.LogAttrs(ctx, slog.LevelWarn, "alert raised",
		slog.String("kind", string(alert.Kind)),
		slog.String("error", err.Error()),
	)
	s.store.Dispatch(store.AlertRaised{Alert: alert})
}

// Classify turns a startup or authorization error into the alert shown to
// the user.
func Classify(err error) store.Alert {
	switch {
	case errors.Is(err, ErrRejected), errors.Is(err, provider.ErrAuthorizationRejected):
		return store.Alert{Kind: store.AlertAuthorization, Message: "Account access was rejected."}
	case errors.Is(err, provider.ErrNoAccounts):
		return store.Alert{Kind: store.AlertAuthorization, Message: "The wallet has no accounts to connect."}
	case errors.Is(err, provider.ErrNoProvider):
		return store.Alert{Kind: store.AlertConfiguration, Message: "No Ethereum provider found. Set RPC_URL to a node endpoint."}
	case errors.Is(err, provider.ErrProviderUnavailable):
		return store.Alert{Kind: store.AlertConfiguration, Message: "The Ethereum provider is not reachable."}
	case errors.Is(err, provider.ErrNoWallet):
		return store.Alert{Kind: store.AlertConfiguration, Message: "No wallet configured. Set KEYSTORE_DIR or PRIVATE_KEY."}
	case errors.Is(err, contracts.ErrUnknownNetwork), errors.Is(err, contracts.ErrMissingAddress):
		return store.Alert{Kind: store.AlertConfiguration, Message: "DeBank is not deployed on the connected network."}
	default:
		return store.Alert{Kind: store.AlertConfiguration, Message: err.Error()}
	}
}
