package accounts

import (
	"math/big"
	"time"
)

// Account mirrors the bank contract's per-address record. The contract owns
// it, this package only reads it.
type Account struct {
	Balance     *big.Int  `json:"balance"`
	Collateral  *big.Int  `json:"collateral"`
	Timestamp   time.Time `json:"timestamp"`
	IsDeposited bool      `json:"isDeposited"`
	IsBorrowed  bool      `json:"isBorrowed"`
}

// Deposited treats a missing account the same as one without a deposit.
func (a *Account) Deposited() bool {
	return a != nil && a.IsDeposited
}

func (a *Account) Borrowed() bool {
	return a != nil && a.IsBorrowed
}

// Debt is the DBC the bank minted against the current collateral, which is
// also the allowance it needs before a return.
func (a *Account) Debt() *big.Int {
	if a == nil || a.Collateral == nil {
		return new(big.Int)
	}
	return ExpectedLoan(a.Collateral)
}

// Loan and fee policy as published by the bank contract. These values are
// only shown to the user, the contract does the real arithmetic.
const (
	LoanDivisor = 2  // 50% of the collateral is minted as DBC
	FeeDivisor  = 10 // 10% of the collateral is kept on return
)

// ExpectedLoan is the DBC a borrow of collateral wei should mint.
func ExpectedLoan(collateral *big.Int) *big.Int {
	if collateral == nil {
		return new(big.Int)
	}
	return new(big.Int).Quo(collateral, big.NewInt(LoanDivisor))
}

// ExpectedRefund is the ETH paid back by a return, after the fee.
func ExpectedRefund(collateral *big.Int) *big.Int {
	if collateral == nil {
		return new(big.Int)
	}
	fee := new(big.Int).Quo(collateral, big.NewInt(FeeDivisor))
	return new(big.Int).Sub(collateral, fee)
}
