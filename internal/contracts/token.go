package contracts

import (
	"context"
	"math/big"

	"github.com/debankfi/debank/internal/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Token is the DBC token surface the console uses.
type Token interface {
	Address() common.Address
	Name(ctx context.Context) (string, error)
	Symbol(ctx context.Context) (string, error)
	TotalSupply(ctx context.Context) (*big.Int, error)
	Minter(ctx context.Context) (common.Address, error)
	BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error)
	Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error)
	Approve(ctx context.Context, spender common.Address, amount *big.Int) (*types.Receipt, error)
}

type TokenProxy struct {
	p *proxy
}

func NewToken(address common.Address, s Signer) (*TokenProxy, error) {
	p, err := newProxy(TokenContract, address, s)
	if err != nil {
		return nil, err
	}
	return &TokenProxy{p: p}, nil
}

func (t *TokenProxy) Address() common.Address {
	return t.p.address
}

func (t *TokenProxy) Name(ctx context.Context) (string, error) {
	return one[string](t.p.read(ctx, "name"))
}

func (t *TokenProxy) Symbol(ctx context.Context) (string, error) {
	return one[string](t.p.read(ctx, "symbol"))
}

func (t *TokenProxy) TotalSupply(ctx context.Context) (*big.Int, error) {
	return one[*big.Int](t.p.read(ctx, "totalSupply"))
}

func (t *TokenProxy) Minter(ctx context.Context) (common.Address, error) {
	return one[common.Address](t.p.read(ctx, "minter"))
}

func (t *TokenProxy) BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error) {
	return one[*big.Int](t.p.read(ctx, "balanceOf", owner))
}

func (t *TokenProxy) Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error) {
	return one[*big.Int](t.p.read(ctx, "allowance", owner, spender))
}

func (t *TokenProxy) Approve(ctx context.Context, spender common.Address, amount *big.Int) (*types.Receipt, error) {
	return t.p.send(ctx, accounts.TxApprove.Method(), nil, spender, amount)
}
