package provider

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/debankfi/debank/internal/contracts"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Configuration errors, nothing can be sent until the operator fixes them.
var (
	ErrNoProvider          = errors.New("provider: no ethereum provider configured")
	ErrProviderUnavailable = errors.New("provider: ethereum provider unreachable")
	ErrNoWallet            = errors.New("provider: no keystore or private key configured")
)

// Authorization errors.
var (
	ErrNoAccounts            = errors.New("provider: keystore has no accounts")
	ErrAuthorizationRejected = errors.New("provider: account access rejected")
	ErrNotAuthorized         = errors.New("provider: account not authorized yet")
)

type Config struct {
	RPCURL      string `yaml:"rpc_url"`
	KeystoreDir string `yaml:"keystore_dir"`
	Account     string `yaml:"account"`     // optional, keystore account to unlock
	PrivateKey  string `yaml:"private_key"` // hex, legacy wallets
}

// Backend defines the subset of the Ethereum RPC the console needs.
type Backend interface {
	contracts.Backend
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	NetworkID(ctx context.Context) (*big.Int, error)
	ChainID(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
}

type DialFunc func(ctx context.Context, rawurl string) (Backend, error)

// Dial connects to a node over JSON-RPC.
func Dial(ctx context.Context, rawurl string) (Backend, error) {
	c, err := ethclient.DialContext(ctx, rawurl)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Bridge is the handle to the wallet provider. It is created once at
// startup and passed to whoever needs the chain.
type Bridge struct {
	backend Backend
	chainID *big.Int

	ks  *keystore.KeyStore
	key *ecdsa.PrivateKey

	preferred common.Address

	mu      sync.RWMutex
	account common.Address
	opts    *bind.TransactOpts
}

// Detect finds the provider described by cfg. A keystore wallet needs
// RequestAccounts before it can sign, a raw key is usable right away.
func Detect(ctx context.Context, cfg Config, dial DialFunc) (*Bridge, error) {
	if strings.TrimSpace(cfg.RPCURL) == "" {
		return nil, ErrNoProvider
	}

	backend, err := dial(ctx, strings.TrimSpace(cfg.RPCURL))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	chainID, err := backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	b := &Bridge{backend: backend, chainID: chainID}
	if cfg.Account != "" {
		if !common.IsHexAddress(cfg.Account) {
			return nil, fmt.Errorf("%w: invalid account %q", ErrNoWallet, cfg.Account)
		}
		b.preferred = common.HexToAddress(cfg.Account)
	}

	switch {
	case cfg.KeystoreDir != "":
		b.ks = openKeystore(cfg.KeystoreDir)
	case cfg.PrivateKey != "":
		key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
		if err != nil {
			return nil, fmt.Errorf("%w: bad private key: %v", ErrNoWallet, err)
		}
		b.key = key
	default:
		return nil, ErrNoWallet
	}
	return b, nil
}

var keystores = struct {
	sync.Mutex
	byDir map[string]*keystore.KeyStore
}{byDir: make(map[string]*keystore.KeyStore)}

// openKeystore returns the keystore for dir, opening it on first use. A
// keystore watches its directory for as long as it lives, so each dir gets
// one for the whole process.
func openKeystore(dir string) *keystore.KeyStore {
	keystores.Lock()
	defer keystores.Unlock()
	if ks, ok := keystores.byDir[dir]; ok {
		return ks
	}
	ks := keystore.NewKeyStore(dir, keystore.StandardScryptN, keystore.StandardScryptP)
	keystores.byDir[dir] = ks
	return ks
}

// RequiresAuthorization reports whether RequestAccounts needs the user's
// passphrase.
func (b *Bridge) RequiresAuthorization() bool {
	return b.ks != nil
}

// RequestAccounts unlocks the wallet and makes its address the active
// account.
func (b *Bridge) RequestAccounts(ctx context.Context, passphrase string) (common.Address, error) {
	if b.key != nil {
		opts, err := bind.NewKeyedTransactorWithChainID(b.key, b.chainID)
		if err != nil {
			return common.Address{}, err
		}
		b.setAccount(opts.From, opts)
		return opts.From, nil
	}

	accs := b.ks.Accounts()
	if len(accs) == 0 {
		return common.Address{}, ErrNoAccounts
	}
	acc := accs[0]
	if b.preferred != (common.Address{}) {
		found := false
		for _, a := range accs {
			if a.Address == b.preferred {
				acc, found = a, true
				break
			}
		}
		if !found {
			return common.Address{}, fmt.Errorf("%w: %s", ErrNoAccounts, b.preferred.Hex())
		}
	}

	if err := b.ks.Unlock(acc, passphrase); err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrAuthorizationRejected, err)
	}
	opts, err := bind.NewKeyStoreTransactorWithChainID(b.ks, acc, b.chainID)
	if err != nil {
		return common.Address{}, err
	}
	b.setAccount(acc.Address, opts)
	return acc.Address, nil
}

func (b *Bridge) setAccount(addr common.Address, opts *bind.TransactOpts) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.account = addr
	b.opts = opts
}

// Account returns the active account, the zero address before
// authorization.
func (b *Bridge) Account() common.Address {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.account
}

func (b *Bridge) Transactor() (*bind.TransactOpts, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.opts == nil {
		return nil, ErrNotAuthorized
	}
	return b.opts, nil
}

func (b *Bridge) Backend() contracts.Backend {
	return b.backend
}

func (b *Bridge) NetworkID(ctx context.Context) (uint64, error) {
	id, err := b.backend.NetworkID(ctx)
	if err != nil {
		return 0, fmt.Errorf("provider: network id: %w", err)
	}
	if !id.IsUint64() {
		return 0, fmt.Errorf("provider: network id %s out of range", id)
	}
	return id.Uint64(), nil
}

func (b *Bridge) BalanceAt(ctx context.Context, addr common.Address) (*big.Int, error) {
	bal, err := b.backend.BalanceAt(ctx, addr, nil)
	if err != nil {
		return nil, fmt.Errorf("provider: balance of %s: %w", addr.Hex(), err)
	}
	return bal, nil
}

// LatestBlock returns the head header.
func (b *Bridge) LatestBlock(ctx context.Context) (*types.Header, error) {
	h, err := b.backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("provider: latest block: %w", err)
	}
	return h, nil
}
