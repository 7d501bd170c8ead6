package debank

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/debankfi/debank/internal/accounts"
	"github.com/debankfi/debank/internal/contracts"
	"github.com/debankfi/debank/internal/events"
	"github.com/debankfi/debank/internal/provider"
	"github.com/debankfi/debank/internal/store"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	userAddr  = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	bankAddr  = common.HexToAddress("0x00000000000000000000000000000000000000b1")
	tokenAddr = common.HexToAddress("0x00000000000000000000000000000000000000c1")
)

type fakeWallet struct {
	needsAuth  bool
	passphrase string
}

func (w *fakeWallet) Backend() contracts.Backend              { return nil }
func (w *fakeWallet) Transactor() (*bind.TransactOpts, error) { return &bind.TransactOpts{From: userAddr}, nil }
func (w *fakeWallet) RequiresAuthorization() bool             { return w.needsAuth }
func (w *fakeWallet) Account() common.Address                 { return userAddr }

func (w *fakeWallet) RequestAccounts(_ context.Context, passphrase string) (common.Address, error) {
	if w.needsAuth && passphrase != w.passphrase {
		return common.Address{}, provider.ErrAuthorizationRejected
	}
	return userAddr, nil
}

func (w *fakeWallet) NetworkID(context.Context) (uint64, error) { return 5777, nil }

func (w *fakeWallet) BalanceAt(_ context.Context, addr common.Address) (*big.Int, error) {
	if addr == bankAddr {
		return big.NewInt(3e18), nil
	}
	return big.NewInt(1e18), nil
}

func (w *fakeWallet) LatestBlock(context.Context) (*types.Header, error) {
	return &types.Header{Number: big.NewInt(42), Time: 1700000000}, nil
}

// chain is the fake token and bank. Every send blocks until the test
// releases it.
type chain struct {
	mu       sync.Mutex
	account  *accounts.Account
	approved *big.Int
	spender  common.Address
	sends    []accounts.TxKind

	release chan error
}

func newChain() *chain {
	return &chain{release: make(chan error)}
}

func (c *chain) mine(kind accounts.TxKind, apply func()) (*types.Receipt, error) {
	c.mu.Lock()
	c.sends = append(c.sends, kind)
	c.mu.Unlock()

	if err := <-c.release; err != nil {
		return nil, err
	}
	c.mu.Lock()
	apply()
	c.mu.Unlock()
	return &types.Receipt{
		Status:      types.ReceiptStatusSuccessful,
		TxHash:      common.HexToHash("0xfeed"),
		BlockNumber: big.NewInt(43),
	}, nil
}

type fakeToken struct{ c *chain }

func (t fakeToken) Address() common.Address                        { return tokenAddr }
func (t fakeToken) Name(context.Context) (string, error)           { return "Decentralized Bank Currency", nil }
func (t fakeToken) Symbol(context.Context) (string, error)         { return "DBC", nil }
func (t fakeToken) TotalSupply(context.Context) (*big.Int, error)  { return big.NewInt(5e15), nil }
func (t fakeToken) Minter(context.Context) (common.Address, error) { return bankAddr, nil }

func (t fakeToken) BalanceOf(context.Context, common.Address) (*big.Int, error) {
	return big.NewInt(0), nil
}

func (t fakeToken) Allowance(context.Context, common.Address, common.Address) (*big.Int, error) {
	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	if t.c.approved == nil {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(t.c.approved), nil
}

func (t fakeToken) Approve(_ context.Context, spender common.Address, amount *big.Int) (*types.Receipt, error) {
	return t.c.mine(accounts.TxApprove, func() {
		t.c.spender = spender
		t.c.approved = amount
	})
}

type fakeBank struct{ c *chain }

func (b fakeBank) Address() common.Address { return bankAddr }

func (b fakeBank) Accounts(context.Context, common.Address) (*accounts.Account, error) {
	b.c.mu.Lock()
	defer b.c.mu.Unlock()
	if b.c.account == nil {
		return nil, nil
	}
	acc := *b.c.account
	return &acc, nil
}

func (b fakeBank) DepositETH(_ context.Context, value *big.Int) (*types.Receipt, error) {
	return b.c.mine(accounts.TxDeposit, func() {
		b.c.account = &accounts.Account{Balance: value, IsDeposited: true}
	})
}

func (b fakeBank) WithdrawETH(context.Context) (*types.Receipt, error) {
	return b.c.mine(accounts.TxWithdraw, func() { b.c.account = &accounts.Account{} })
}

func (b fakeBank) BorrowDBC(_ context.Context, value *big.Int) (*types.Receipt, error) {
	return b.c.mine(accounts.TxBorrow, func() {
		b.c.account = &accounts.Account{Collateral: value, IsBorrowed: true}
	})
}

func (b fakeBank) ReturnDBC(context.Context) (*types.Receipt, error) {
	return b.c.mine(accounts.TxReturn, func() { b.c.account = &accounts.Account{} })
}

type memJournal struct {
	mu      sync.Mutex
	entries []events.Entry
}

func (j *memJournal) Record(_ context.Context, e events.Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, e)
	return nil
}

type fixture struct {
	svc     *Service
	store   *store.Store
	chain   *chain
	wallet  *fakeWallet
	journal *memJournal
	binds   int
}

func newFixture(t *testing.T, detectErr error) *fixture {
	t.Helper()
	f := &fixture{
		store:   store.New(store.Initial()),
		chain:   newChain(),
		wallet:  &fakeWallet{passphrase: "hunter2"},
		journal: &memJournal{},
	}
	f.svc = New(context.Background(), Deps{
		Store: f.store,
		Detect: func(context.Context) (Wallet, error) {
			if detectErr != nil {
				return nil, detectErr
			}
			return f.wallet, nil
		},
		Bind: func(context.Context, Wallet, uint64) (contracts.Token, contracts.Bank, error) {
			f.binds++
			return fakeToken{f.chain}, fakeBank{f.chain}, nil
		},
		Journal: f.journal,
		Now:     func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) },
	})
	return f
}

func (f *fixture) connect(t *testing.T) {
	t.Helper()
	require.NoError(t, f.svc.Start(context.Background()))
	require.NotNil(t, f.store.State().Session)
}

func TestStartWithoutProviderRaisesOneConfigurationAlert(t *testing.T) {
	f := newFixture(t, provider.ErrNoProvider)

	var alerts int
	f.store.Subscribe(func(_, _ store.State, a store.Action) {
		if _, ok := a.(store.AlertRaised); ok {
			alerts++
		}
	})

	err := f.svc.Start(context.Background())
	assert.ErrorIs(t, err, provider.ErrNoProvider)
	assert.Equal(t, 1, alerts)
	assert.Equal(t, 0, f.binds)

	s := f.store.State()
	require.NotNil(t, s.Alert)
	assert.Equal(t, store.AlertConfiguration, s.Alert.Kind)
	assert.Nil(t, s.Session)

	_, err = f.svc.DepositETH(context.Background(), big.NewInt(1e16))
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.Empty(t, f.chain.sends)
}

func TestStartLoadsSession(t *testing.T) {
	f := newFixture(t, nil)
	f.connect(t)

	sess := f.store.State().Session
	assert.Equal(t, userAddr, sess.User.Address)
	assert.Equal(t, "1000000000000000000", sess.User.EthBalance.String())
	assert.Nil(t, sess.User.Account)
	assert.Equal(t, bankAddr, sess.Bank.Address)
	assert.Equal(t, "3000000000000000000", sess.Bank.EthBalance.String())
	assert.Equal(t, "DBC", sess.Bank.TokenSymbol)
	assert.True(t, sess.Bank.IsMinter)
	assert.Equal(t, uint64(5777), sess.NetworkID)
	assert.Equal(t, uint64(42), sess.Block)
	assert.Equal(t, 1, f.binds)
}

func TestAuthorization(t *testing.T) {
	f := newFixture(t, nil)
	f.wallet.needsAuth = true
	ctx := context.Background()

	require.NoError(t, f.svc.Start(ctx))
	assert.True(t, f.store.State().AwaitingAuthorization)
	assert.Nil(t, f.store.State().Session)
	assert.Equal(t, 0, f.binds)

	err := f.svc.Authorize(ctx, "wrong")
	assert.ErrorIs(t, err, provider.ErrAuthorizationRejected)
	require.NotNil(t, f.store.State().Alert)
	assert.Equal(t, store.AlertAuthorization, f.store.State().Alert.Kind)

	require.NoError(t, f.svc.Retry(ctx))
	assert.Nil(t, f.store.State().Alert)
	assert.True(t, f.store.State().AwaitingAuthorization)

	require.NoError(t, f.svc.Authorize(ctx, "hunter2"))
	assert.False(t, f.store.State().AwaitingAuthorization)
	assert.NotNil(t, f.store.State().Session)
}

func TestReject(t *testing.T) {
	f := newFixture(t, nil)
	f.wallet.needsAuth = true
	require.NoError(t, f.svc.Start(context.Background()))

	require.NoError(t, f.svc.Reject(context.Background()))
	s := f.store.State()
	require.NotNil(t, s.Alert)
	assert.Equal(t, store.AlertAuthorization, s.Alert.Kind)
	assert.Equal(t, "Account access was rejected.", s.Alert.Message)
	assert.False(t, s.AwaitingAuthorization)
}

func TestConnectRequestsLeaveWorkingSessionAlone(t *testing.T) {
	f := newFixture(t, nil)
	f.wallet.needsAuth = true
	ctx := context.Background()

	require.NoError(t, f.svc.Start(ctx))
	require.NoError(t, f.svc.Authorize(ctx, "hunter2"))
	sess := f.store.State().Session
	require.NotNil(t, sess)

	// a second tab still showing the prompt
	assert.ErrorIs(t, f.svc.Authorize(ctx, "typo"), ErrNotAwaitingAuthorization)
	assert.ErrorIs(t, f.svc.Reject(ctx), ErrNotAwaitingAuthorization)
	assert.ErrorIs(t, f.svc.Retry(ctx), ErrConnected)

	s := f.store.State()
	assert.Nil(t, s.Alert)
	assert.False(t, s.AwaitingAuthorization)
	assert.Same(t, sess, s.Session)
	assert.Equal(t, 1, f.binds)
}

func TestRetryDuringSendKeepsReload(t *testing.T) {
	f := newFixture(t, nil)
	f.connect(t)
	ctx := context.Background()

	_, err := f.svc.DepositETH(ctx, big.NewInt(1e16))
	require.NoError(t, err)
	assert.ErrorIs(t, f.svc.Retry(ctx), ErrConnected)

	f.chain.release <- nil
	f.svc.Wait()

	s := f.store.State()
	assert.False(t, s.Loading)
	require.NotNil(t, s.Session.User.Account)
	assert.True(t, s.Session.User.Account.IsDeposited)
	assert.Equal(t, 1, f.binds)
}

func TestSendsSetLoadingBeforeTheReceipt(t *testing.T) {
	ops := map[accounts.TxKind]func(*Service) (string, error){
		accounts.TxDeposit:  func(s *Service) (string, error) { return s.DepositETH(context.Background(), big.NewInt(1e16)) },
		accounts.TxWithdraw: func(s *Service) (string, error) { return s.WithdrawETH(context.Background()) },
		accounts.TxBorrow:   func(s *Service) (string, error) { return s.BorrowDBC(context.Background(), big.NewInt(1e16)) },
		accounts.TxReturn:   func(s *Service) (string, error) { return s.ReturnDBC(context.Background()) },
	}

	for kind, op := range ops {
		t.Run(kind.String(), func(t *testing.T) {
			f := newFixture(t, nil)
			f.connect(t)

			id, err := op(f.svc)
			require.NoError(t, err)

			// the chain has not answered yet
			s := f.store.State()
			assert.True(t, s.Loading)
			require.NotNil(t, s.Pending)
			assert.Equal(t, id, s.Pending.ID)
			assert.Equal(t, kind, s.Pending.Kind)

			f.chain.release <- nil
			f.svc.Wait()

			s = f.store.State()
			assert.False(t, s.Loading)
			require.NotNil(t, s.Last)
			assert.Equal(t, id, s.Last.ID)
			assert.Equal(t, uint64(43), s.Last.Block)
		})
	}
}

func TestConfirmedSendReloadsSession(t *testing.T) {
	f := newFixture(t, nil)
	f.connect(t)
	assert.Equal(t, store.FormDeposit, store.SelectForms(f.store.State().Session).Deposit)

	_, err := f.svc.DepositETH(context.Background(), big.NewInt(2e16))
	require.NoError(t, err)
	f.chain.release <- nil
	f.svc.Wait()

	sess := f.store.State().Session
	require.NotNil(t, sess.User.Account)
	assert.True(t, sess.User.Account.IsDeposited)
	assert.Equal(t, store.FormWithdraw, store.SelectForms(sess).Deposit)

	require.Len(t, f.journal.entries, 1)
	e := f.journal.entries[0]
	assert.Equal(t, events.StatusConfirmed, e.Status)
	assert.Equal(t, accounts.TxDeposit, e.Kind)
	assert.Equal(t, userAddr, e.Account)
	assert.Equal(t, "20000000000000000", e.Amount.String())
}

func TestSecondSendWhileInFlight(t *testing.T) {
	f := newFixture(t, nil)
	f.connect(t)

	first, err := f.svc.DepositETH(context.Background(), big.NewInt(1e16))
	require.NoError(t, err)

	_, err = f.svc.BorrowDBC(context.Background(), big.NewInt(1e16))
	assert.ErrorIs(t, err, ErrSendInFlight)
	assert.Equal(t, first, f.store.State().Pending.ID)

	f.chain.release <- nil
	f.svc.Wait()
	assert.Equal(t, []accounts.TxKind{accounts.TxDeposit}, f.chain.sends)

	_, err = f.svc.WithdrawETH(context.Background())
	require.NoError(t, err)
	f.chain.release <- nil
	f.svc.Wait()
}

func TestFailedSend(t *testing.T) {
	f := newFixture(t, nil)
	f.connect(t)

	id, err := f.svc.WithdrawETH(context.Background())
	require.NoError(t, err)
	f.chain.release <- errors.New("execution reverted")
	f.svc.Wait()

	s := f.store.State()
	assert.False(t, s.Loading)
	require.NotNil(t, s.Failure)
	assert.Equal(t, id, s.Failure.ID)
	assert.Equal(t, "execution reverted", s.Failure.Message)

	require.Len(t, f.journal.entries, 1)
	assert.Equal(t, events.StatusFailed, f.journal.entries[0].Status)
	assert.Equal(t, "execution reverted", f.journal.entries[0].Error)
}

func TestApproveDBC(t *testing.T) {
	f := newFixture(t, nil)
	f.connect(t)

	_, err := f.svc.ApproveDBC(context.Background())
	assert.ErrorIs(t, err, ErrNoCollateral)

	_, err = f.svc.BorrowDBC(context.Background(), big.NewInt(1e16))
	require.NoError(t, err)
	f.chain.release <- nil
	f.svc.Wait()
	assert.True(t, store.NeedsApproval(f.store.State().Session))

	_, err = f.svc.ApproveDBC(context.Background())
	require.NoError(t, err)
	f.chain.release <- nil
	f.svc.Wait()

	assert.Equal(t, bankAddr, f.chain.spender)
	assert.Equal(t, "5000000000000000", f.chain.approved.String())
	assert.False(t, store.NeedsApproval(f.store.State().Session))
	assert.Equal(t, store.FormReturn, store.SelectForms(f.store.State().Session).Borrow)
}

func TestClassify(t *testing.T) {
	cases := []struct {
		err  error
		kind store.AlertKind
	}{
		{provider.ErrNoProvider, store.AlertConfiguration},
		{provider.ErrProviderUnavailable, store.AlertConfiguration},
		{provider.ErrNoWallet, store.AlertConfiguration},
		{contracts.ErrUnknownNetwork, store.AlertConfiguration},
		{provider.ErrAuthorizationRejected, store.AlertAuthorization},
		{provider.ErrNoAccounts, store.AlertAuthorization},
		{ErrRejected, store.AlertAuthorization},
	}
	for _, c := range cases {
		assert.Equal(t, c.kind, Classify(c.err).Kind, c.err.Error())
	}
}
