package units

import (
	"errors"
	"math/big"
	"strings"

	"github.com/dustin/go-humanize"
)

// Ether is the number of decimals of the chain's native unit.
const Ether = 18

var (
	ErrInvalidAmount  = errors.New("units: invalid amount")
	ErrNegativeAmount = errors.New("units: negative amount")
	ErrTooPrecise     = errors.New("units: more than 18 decimals")
)

var weiPerEther = new(big.Int).Exp(big.NewInt(10), big.NewInt(Ether), nil)

// MinAmount is the smallest amount the forms accept, 0.01 ETH.
var MinAmount = new(big.Int).Exp(big.NewInt(10), big.NewInt(Ether-2), nil)

// ParseEther converts a decimal ether string into wei without going
// through floating point, so "0.01" is exactly 10^16.
func ParseEther(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrInvalidAmount
	}
	if strings.HasPrefix(s, "-") {
		return nil, ErrNegativeAmount
	}
	s = strings.TrimPrefix(s, "+")

	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" && frac == "" {
		return nil, ErrInvalidAmount
	}
	if len(frac) > Ether {
		return nil, ErrTooPrecise
	}
	if !allDigits(whole) || !allDigits(frac) {
		return nil, ErrInvalidAmount
	}

	digits := whole + frac + strings.Repeat("0", Ether-len(frac))
	wei, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return nil, ErrInvalidAmount
	}
	return wei, nil
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// FormatEther renders wei as ether with thousands separators and at most
// maxDecimals fractional digits (truncated, trailing zeros dropped).
func FormatEther(wei *big.Int, maxDecimals int) string {
	if wei == nil {
		return "0"
	}
	neg := wei.Sign() < 0
	abs := new(big.Int).Abs(wei)

	whole, rem := new(big.Int).QuoRem(abs, weiPerEther, new(big.Int))

	out := humanize.BigComma(whole)
	if maxDecimals > Ether {
		maxDecimals = Ether
	}
	if maxDecimals > 0 && rem.Sign() != 0 {
		frac := rem.String()
		frac = strings.Repeat("0", Ether-len(frac)) + frac
		frac = strings.TrimRight(frac[:maxDecimals], "0")
		if frac != "" {
			out += "." + frac
		}
	}
	if neg {
		out = "-" + out
	}
	return out
}
