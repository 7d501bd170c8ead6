package contracts

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrUnknownNetwork = errors.New("contracts: contract not deployed on network")
	ErrMissingAddress = errors.New("contracts: missing deployment address")
)

// artifact is the part of a truffle build file the console needs.
type artifact struct {
	ContractName string `json:"contractName"`
	Networks     map[string]struct {
		Address string `json:"address"`
	} `json:"networks"`
}

// Manifest maps contract names to their deployed address per network id.
type Manifest struct {
	addrs map[string]map[string]string
}

// LoadManifest reads every build artifact (*.json, any depth) in fsys.
// Files without a networks section are skipped.
func LoadManifest(fsys fs.FS) (*Manifest, error) {
	matches, err := doublestar.Glob(fsys, "**/*.json")
	if err != nil {
		return nil, err
	}

	m := &Manifest{addrs: make(map[string]map[string]string)}
	for _, p := range matches {
		b, err := fs.ReadFile(fsys, p)
		if err != nil {
			return nil, err
		}
		var a artifact
		if err := json.Unmarshal(b, &a); err != nil {
			return nil, fmt.Errorf("contracts: parse %s: %w", p, err)
		}
		if a.Networks == nil {
			continue
		}

		name := a.ContractName
		if name == "" {
			name = strings.TrimSuffix(path.Base(p), ".json")
		}
		nets := make(map[string]string, len(a.Networks))
		for id, n := range a.Networks {
			nets[id] = n.Address
		}
		m.addrs[name] = nets
	}
	return m, nil
}

// Address looks up where contract is deployed on networkID. It never falls
// back to another network.
func (m *Manifest) Address(contract string, networkID uint64) (common.Address, error) {
	nets, ok := m.addrs[contract]
	if !ok {
		return common.Address{}, fmt.Errorf("%w: %s", ErrUnknownContract, contract)
	}
	addr, ok := nets[strconv.FormatUint(networkID, 10)]
	if !ok {
		return common.Address{}, fmt.Errorf("%w: %s on network %d", ErrUnknownNetwork, contract, networkID)
	}
	if !common.IsHexAddress(addr) || common.HexToAddress(addr) == (common.Address{}) {
		return common.Address{}, fmt.Errorf("%w: %s on network %d", ErrMissingAddress, contract, networkID)
	}
	return common.HexToAddress(addr), nil
}

// Bind builds the token and bank proxies for networkID.
func (m *Manifest) Bind(s Signer, networkID uint64) (Token, Bank, error) {
	tokenAddr, err := m.Address(TokenContract, networkID)
	if err != nil {
		return nil, nil, err
	}
	bankAddr, err := m.Address(BankContract, networkID)
	if err != nil {
		return nil, nil, err
	}

	token, err := NewToken(tokenAddr, s)
	if err != nil {
		return nil, nil, err
	}
	bank, err := NewBank(bankAddr, s)
	if err != nil {
		return nil, nil, err
	}
	return token, bank, nil
}
