package contracts

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/debankfi/debank/internal/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Bank is the DeBank contract surface the console uses.
type Bank interface {
	Address() common.Address
	Accounts(ctx context.Context, owner common.Address) (*accounts.Account, error)
	DepositETH(ctx context.Context, value *big.Int) (*types.Receipt, error)
	WithdrawETH(ctx context.Context) (*types.Receipt, error)
	BorrowDBC(ctx context.Context, value *big.Int) (*types.Receipt, error)
	ReturnDBC(ctx context.Context) (*types.Receipt, error)
}

type BankProxy struct {
	p *proxy
}

func NewBank(address common.Address, s Signer) (*BankProxy, error) {
	p, err := newProxy(BankContract, address, s)
	if err != nil {
		return nil, err
	}
	return &BankProxy{p: p}, nil
}

func (b *BankProxy) Address() common.Address {
	return b.p.address
}

func (b *BankProxy) Accounts(ctx context.Context, owner common.Address) (*accounts.Account, error) {
	out, err := b.p.read(ctx, "accounts", owner)
	if err != nil {
		return nil, err
	}
	return decodeAccount(out)
}

func (b *BankProxy) DepositETH(ctx context.Context, value *big.Int) (*types.Receipt, error) {
	return b.p.send(ctx, accounts.TxDeposit.Method(), value)
}

func (b *BankProxy) WithdrawETH(ctx context.Context) (*types.Receipt, error) {
	return b.p.send(ctx, accounts.TxWithdraw.Method(), nil)
}

func (b *BankProxy) BorrowDBC(ctx context.Context, value *big.Int) (*types.Receipt, error) {
	return b.p.send(ctx, accounts.TxBorrow.Method(), value)
}

func (b *BankProxy) ReturnDBC(ctx context.Context) (*types.Receipt, error) {
	return b.p.send(ctx, accounts.TxReturn.Method(), nil)
}

// decodeAccount unpacks the public mapping getter
// (balance, collateral, timestamp, isDeposited, isBorrowed).
func decodeAccount(out []any) (*accounts.Account, error) {
	if len(out) != 5 {
		return nil, fmt.Errorf("%w: accounts returned %d values", ErrUnexpectedOutput, len(out))
	}
	balance, ok1 := out[0].(*big.Int)
	collateral, ok2 := out[1].(*big.Int)
	ts, ok3 := out[2].(*big.Int)
	deposited, ok4 := out[3].(bool)
	borrowed, ok5 := out[4].(bool)
	if !ok1 || !ok2 || !ok3 || !ok4 || !ok5 {
		return nil, fmt.Errorf("%w: accounts tuple", ErrUnexpectedOutput)
	}

	acc := &accounts.Account{
		Balance:     balance,
		Collateral:  collateral,
		IsDeposited: deposited,
		IsBorrowed:  borrowed,
	}
	if ts.Sign() > 0 && ts.IsInt64() {
		acc.Timestamp = time.Unix(ts.Int64(), 0).UTC()
	}
	return acc, nil
}
