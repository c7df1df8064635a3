package params

import (
	"errors"
	"fmt"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"

	"github.com/uhyunpark/mintedexchange/pkg/app/core/access"
	"github.com/uhyunpark/mintedexchange/pkg/app/core/state"
	"github.com/uhyunpark/mintedexchange/pkg/app/core/strategy"
	"github.com/uhyunpark/mintedexchange/pkg/crypto"
)

// Strategy kinds accepted in a genesis file.
const (
	StrategyFixedPrice     = "fixed_price"
	StrategyAnyItem        = "any_item_from_collection"
	StrategyPrivateSale    = "private_sale"
	StrategyDutchAuction   = "dutch_auction"
	StrategyEnglishAuction = "english_auction"
)

var strategyKinds = map[string]bool{
	StrategyFixedPrice:     true,
	StrategyAnyItem:        true,
	StrategyPrivateSale:    true,
	StrategyDutchAuction:   true,
	StrategyEnglishAuction: true,
}

// Address is a hex address that must pass EIP-55 validation when mixed-case.
type Address common.Address

func (a *Address) UnmarshalYAML(n *yaml.Node) error {
	addr, err := crypto.ParseAddress(n.Value)
	if err != nil {
		return fmt.Errorf("line %d: %q: %w", n.Line, n.Value, err)
	}
	*a = Address(addr)
	return nil
}

func (a Address) Common() common.Address { return common.Address(a) }

func (a Address) IsZero() bool { return a == Address{} }

// Amount is a non-negative decimal integer. Quoting large values is optional.
type Amount struct{ big.Int }

func (a *Amount) UnmarshalYAML(n *yaml.Node) error {
	if _, ok := a.SetString(n.Value, 10); !ok || a.Sign() < 0 {
		return fmt.Errorf("line %d: %q is not a non-negative integer", n.Line, n.Value)
	}
	return nil
}

// Big returns a copy; nil amounts read as zero.
func (a *Amount) Big() *big.Int {
	if a == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(&a.Int)
}

// Genesis is the initial deployment: strategy and transfer manager
// identities, the first whitelists, and the starting world.
type Genesis struct {
	Owner            Address          `yaml:"owner"`
	Managers         Managers         `yaml:"managers"`
	Currencies       []Address        `yaml:"currencies"`
	TransferManagers TransferManagers `yaml:"transferManagers"`
	Strategies       []StrategySpec   `yaml:"strategies"`
	Collections      []CollectionSpec `yaml:"collections"`
	Balances         []Balance        `yaml:"balances"`
	NativeBalances   []NativeBalance  `yaml:"nativeBalances"`
	Approvals        []Approval       `yaml:"approvals"`
	Roles            []RoleGrant      `yaml:"roles"`
	Royalties        []RoyaltyEntry   `yaml:"royalties"`
}

// Managers are the addresses reported for the pluggable components.
type Managers struct {
	Currency         Address `yaml:"currency"`
	Execution        Address `yaml:"execution"`
	Royalty          Address `yaml:"royalty"`
	TransferSelector Address `yaml:"transferSelector"`
}

// Transfer manager addresses used when the genesis leaves them unset.
var (
	DefaultERC721TransferManager             = common.HexToAddress("0x0000000000000000000000000000000000000721")
	DefaultERC1155TransferManager            = common.HexToAddress("0x0000000000000000000000000000000000001155")
	DefaultNonCompliantERC721TransferManager = common.HexToAddress("0x0000000000000000000000000000000000000722")
)

type TransferManagers struct {
	ERC721             Address `yaml:"erc721"`
	ERC1155            Address `yaml:"erc1155"`
	NonCompliantERC721 Address `yaml:"nonCompliantErc721"`
}

type StrategySpec struct {
	Kind    string  `yaml:"kind"`
	Address Address `yaml:"address"`
	// ProtocolFeeBps defaults to Fees.StandardProtocolFeeBps.
	ProtocolFeeBps *uint64 `yaml:"protocolFeeBps"`
	// MinAuctionLengthS defaults to Dutch.MinAuctionLength. Dutch only.
	MinAuctionLengthS uint64 `yaml:"minAuctionLengthS"`
	// Disabled strategies are registered but not whitelisted.
	Disabled bool `yaml:"disabled"`
}

type CollectionSpec struct {
	Address  Address      `yaml:"address"`
	Standard string       `yaml:"standard"` // erc721, erc1155 or noncompliant-erc721
	Owner    Address      `yaml:"owner"`
	Admin    Address      `yaml:"admin"`
	ERC2981  *ERC2981Spec `yaml:"erc2981"`
	Tokens   []TokenSpec  `yaml:"tokens"`
}

type ERC2981Spec struct {
	Receiver Address `yaml:"receiver"`
	Bps      uint64  `yaml:"bps"`
}

type TokenSpec struct {
	ID     Amount  `yaml:"id"`
	Owner  Address `yaml:"owner"`
	Amount *Amount `yaml:"amount"` // ERC1155 only, defaults to 1
}

type Balance struct {
	Currency Address `yaml:"currency"`
	Holder   Address `yaml:"holder"`
	Amount   Amount  `yaml:"amount"`
}

type NativeBalance struct {
	Holder Address `yaml:"holder"`
	Amount Amount  `yaml:"amount"`
}

type Approval struct {
	Collection Address `yaml:"collection"`
	Owner      Address `yaml:"owner"`
	Operator   Address `yaml:"operator"`
}

type RoleGrant struct {
	Role    string  `yaml:"role"`
	Account Address `yaml:"account"`
}

type RoyaltyEntry struct {
	Collection Address `yaml:"collection"`
	Setter     Address `yaml:"setter"`
	Receiver   Address `yaml:"receiver"`
	FeeBps     uint64  `yaml:"feeBps"`
}

// Resolved fills unset addresses with the defaults.
func (t TransferManagers) Resolved() (erc721, erc1155, nonCompliant common.Address) {
	pick := func(a Address, def common.Address) common.Address {
		if a.IsZero() {
			return def
		}
		return a.Common()
	}
	return pick(t.ERC721, DefaultERC721TransferManager),
		pick(t.ERC1155, DefaultERC1155TransferManager),
		pick(t.NonCompliantERC721, DefaultNonCompliantERC721TransferManager)
}

// LoadGenesis reads and validates a YAML genesis file.
func LoadGenesis(path string) (*Genesis, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read genesis: %w", err)
	}
	return ParseGenesis(raw)
}

func ParseGenesis(raw []byte) (*Genesis, error) {
	var g Genesis
	if err := yaml.Unmarshal(raw, &g); err != nil {
		return nil, fmt.Errorf("parse genesis: %w", err)
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return &g, nil
}

// Validate checks cross-references that the YAML decoder cannot.
func (g *Genesis) Validate() error {
	var errs []error

	seen := make(map[Address]bool)
	for i, s := range g.Strategies {
		if !strategyKinds[s.Kind] {
			errs = append(errs, fmt.Errorf("strategies[%d]: unknown kind %q", i, s.Kind))
		}
		if s.Address.IsZero() {
			errs = append(errs, fmt.Errorf("strategies[%d]: address is required", i))
		}
		if seen[s.Address] {
			errs = append(errs, fmt.Errorf("strategies[%d]: duplicate address", i))
		}
		seen[s.Address] = true
		if s.ProtocolFeeBps != nil && *s.ProtocolFeeBps > 10000 {
			errs = append(errs, fmt.Errorf("strategies[%d]: protocol fee exceeds 10000", i))
		}
		if s.MinAuctionLengthS != 0 {
			if s.Kind != StrategyDutchAuction {
				errs = append(errs, fmt.Errorf("strategies[%d]: minAuctionLengthS applies to dutch_auction only", i))
			} else if s.MinAuctionLengthS < strategy.MinAuctionLengthFloor {
				errs = append(errs, fmt.Errorf("strategies[%d]: minAuctionLengthS below %d", i, strategy.MinAuctionLengthFloor))
			}
		}
	}

	collections := make(map[Address]state.Standard)
	for i, c := range g.Collections {
		std, ok := state.ParseStandard(c.Standard)
		if !ok {
			errs = append(errs, fmt.Errorf("collections[%d]: unknown standard %q", i, c.Standard))
			continue
		}
		if c.Address.IsZero() {
			errs = append(errs, fmt.Errorf("collections[%d]: address is required", i))
		}
		collections[c.Address] = std
		if c.ERC2981 != nil && c.ERC2981.Bps > 10000 {
			errs = append(errs, fmt.Errorf("collections[%d]: erc2981 bps exceeds 10000", i))
		}
		for j, tok := range c.Tokens {
			if tok.Owner.IsZero() {
				errs = append(errs, fmt.Errorf("collections[%d].tokens[%d]: owner is required", i, j))
			}
			if tok.Amount != nil && std != state.ERC1155 {
				errs = append(errs, fmt.Errorf("collections[%d].tokens[%d]: amount applies to erc1155 only", i, j))
			}
		}
	}

	for i, a := range g.Approvals {
		if _, ok := collections[a.Collection]; !ok {
			errs = append(errs, fmt.Errorf("approvals[%d]: unknown collection", i))
		}
	}
	for i, r := range g.Roles {
		if _, err := access.ParseRole(r.Role); err != nil {
			errs = append(errs, fmt.Errorf("roles[%d]: %w", i, err))
		}
		if r.Account.IsZero() {
			errs = append(errs, fmt.Errorf("roles[%d]: account is required", i))
		}
	}
	for i, r := range g.Royalties {
		if r.Collection.IsZero() {
			errs = append(errs, fmt.Errorf("royalties[%d]: collection is required", i))
		}
	}
	return errors.Join(errs...)
}
