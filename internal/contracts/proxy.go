package contracts

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

const (
	TokenContract = "Token"
	BankContract  = "DeBank"
)

//go:embed abi/*.json
var abiFS embed.FS

var (
	ErrUnknownContract  = errors.New("contracts: unknown contract")
	ErrUnexpectedOutput = errors.New("contracts: unexpected call output")
	ErrReverted         = errors.New("contracts: transaction reverted")
)

// Backend is the node connection a proxy reads, sends and waits through.
// *ethclient.Client satisfies it.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
}

// Signer hands out the backend and the transact options of the authorized
// account.
type Signer interface {
	Backend() Backend
	Transactor() (*bind.TransactOpts, error)
}

// RevertError is returned when a transaction was mined but the contract
// rejected it.
type RevertError struct {
	Contract string
	Method   string
	TxHash   common.Hash
	Block    *big.Int
}

func (e *RevertError) Error() string {
	return fmt.Sprintf("contracts: %s.%s reverted in tx %s", e.Contract, e.Method, e.TxHash.Hex())
}

func (e *RevertError) Is(target error) bool {
	return target == ErrReverted
}

// ParseABI returns the embedded ABI of a deployed contract.
func ParseABI(name string) (abi.ABI, error) {
	b, err := abiFS.ReadFile("abi/" + name + ".json")
	if err != nil {
		return abi.ABI{}, fmt.Errorf("%w: %s", ErrUnknownContract, name)
	}
	return abi.JSON(bytes.NewReader(b))
}

// proxy is the read/send surface every typed contract is built on.
type proxy struct {
	name    string
	address common.Address
	bound   *bind.BoundContract
	backend Backend
	signer  Signer
}

func newProxy(name string, address common.Address, s Signer) (*proxy, error) {
	parsed, err := ParseABI(name)
	if err != nil {
		return nil, err
	}
	backend := s.Backend()
	return &proxy{
		name:    name,
		address: address,
		bound:   bind.NewBoundContract(address, parsed, backend, backend, backend),
		backend: backend,
		signer:  s,
	}, nil
}

func (p *proxy) read(ctx context.Context, method string, args ...any) ([]any, error) {
	var out []any
	if err := p.bound.Call(&bind.CallOpts{Context: ctx}, &out, method, args...); err != nil {
		return nil, fmt.Errorf("contracts: %s.%s: %w", p.name, method, err)
	}
	return out, nil
}

// send submits a transaction and blocks until it is mined. Only a receipt
// with a success status counts as confirmed.
func (p *proxy) send(ctx context.Context, method string, value *big.Int, args ...any) (*types.Receipt, error) {
	base, err := p.signer.Transactor()
	if err != nil {
		return nil, err
	}
	opts := *base
	opts.Context = ctx
	opts.Value = value

	tx, err := p.bound.Transact(&opts, method, args...)
	if err != nil {
		return nil, fmt.Errorf("contracts: %s.%s: %w", p.name, method, err)
	}

	receipt, err := bind.WaitMined(ctx, p.backend, tx)
	if err != nil {
		return nil, fmt.Errorf("contracts: %s.%s: waiting for %s: %w", p.name, method, tx.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return receipt, &RevertError{
			Contract: p.name,
			Method:   method,
			TxHash:   receipt.TxHash,
			Block:    receipt.BlockNumber,
		}
	}
	return receipt, nil
}

func one[T any](out []any, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	if len(out) != 1 {
		return zero, fmt.Errorf("%w: %d values", ErrUnexpectedOutput, len(out))
	}
	v, ok := out[0].(T)
	if !ok {
		return zero, fmt.Errorf("%w: got %T", ErrUnexpectedOutput, out[0])
	}
	return v, nil
}
