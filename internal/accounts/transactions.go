package accounts

import "fmt"

type TxKind int32

const (
	// Payable bank calls, these carry ETH

	TxDeposit TxKind = 0
	TxBorrow  TxKind = 1

	// Bank calls without value

	TxWithdraw TxKind = 10
	TxReturn   TxKind = 11

	// Token calls

	TxApprove TxKind = 20
)

// Method is the contract method the kind maps to.
func (k TxKind) Method() string {
	switch k {
	case TxDeposit:
		return "depositETH"
	case TxBorrow:
		return "borrowDBC"
	case TxWithdraw:
		return "withdrawETH"
	case TxReturn:
		return "returnDBC"
	case TxApprove:
		return "approve"
	default:
		return ""
	}
}

func (k TxKind) IsPayable() bool {
	return k == TxDeposit || k == TxBorrow
}

func (k TxKind) String() string {
	switch k {
	case TxDeposit:
		return "deposit"
	case TxBorrow:
		return "borrow"
	case TxWithdraw:
		return "withdraw"
	case TxReturn:
		return "return"
	case TxApprove:
		return "approve"
	default:
		return "unknown"
	}
}

// MarshalText lets kinds travel as words in JSON and log attributes.
func (k TxKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *TxKind) UnmarshalText(b []byte) error {
	for _, c := range []TxKind{TxDeposit, TxBorrow, TxWithdraw, TxReturn, TxApprove} {
		if c.String() == string(b) {
			*k = c
			return nil
		}
	}
	return fmt.Errorf("accounts: unknown tx kind %q", b)
}
