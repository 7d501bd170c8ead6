package helpers

import (
	"math/big"
	"os"

	"github.com/debankfi/debank/internal/units"
	"github.com/ethereum/go-ethereum/common"
	. "maragu.dev/gomponents"
)

// RenderStaticToRaw will return an empty string when the file isn't found
func RenderStaticToRaw(filePath string) Node {
	stuff, err := os.ReadFile("web/static/" + filePath)
	if err != nil {
		return Raw("")
	}

	return Raw(string(stuff))
}

// Eth formats a wei amount for display, four decimals at most.
func Eth(wei *big.Int) string {
	return units.FormatEther(wei, 4) + " ETH"
}

// Token formats an 18 decimal token amount with its symbol.
func Token(amount *big.Int, symbol string) string {
	if symbol == "" {
		symbol = "DBC"
	}
	return units.FormatEther(amount, 4) + " " + symbol
}

func Address(a common.Address) string {
	if a == (common.Address{}) {
		return "-"
	}
	return a.Hex()
}

// ShortHash keeps the first and last four hex digits.
func ShortHash(h common.Hash) string {
	if h == (common.Hash{}) {
		return "-"
	}
	s := h.Hex()
	return s[:6] + "…" + s[len(s)-4:]
}
