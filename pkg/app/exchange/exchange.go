// Package exchange is the settlement orchestrator. It checks a pair of
// orders, prices them through their strategy, pays fees, royalty and the
// seller, moves the asset and retires the maker nonces, all or nothing.
package exchange

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/uhyunpark/mintedexchange/pkg/app/core/access"
	"github.com/uhyunpark/mintedexchange/pkg/app/core/errs"
	"github.com/uhyunpark/mintedexchange/pkg/app/core/nonce"
	"github.com/uhyunpark/mintedexchange/pkg/app/core/order"
	"github.com/uhyunpark/mintedexchange/pkg/app/core/royalty"
	"github.com/uhyunpark/mintedexchange/pkg/app/core/state"
	"github.com/uhyunpark/mintedexchange/pkg/app/core/transfer"
	"github.com/uhyunpark/mintedexchange/pkg/app/core/whitelist"
	"github.com/uhyunpark/mintedexchange/pkg/crypto"
	"github.com/uhyunpark/mintedexchange/pkg/metrics"
	"github.com/uhyunpark/mintedexchange/pkg/util"
)

var (
	ErrWrongSides         = errs.New(errs.Structural, "Order: Wrong sides")
	ErrTakerNotSender     = errs.New(errs.Structural, "Order: Taker must be the sender")
	ErrOrderExpired       = errs.New(errs.Staleness, "Order: Matching order expired")
	ErrOutsideWindow      = errs.New(errs.Staleness, "Order: Outside validity window")
	ErrExecutionInvalid   = errs.New(errs.Ineligible, "Strategy: Execution invalid")
	ErrCurrencyNotWETH    = errs.New(errs.Structural, "Order: Currency must be WETH")
	ErrValueTooHigh       = errs.New(errs.Structural, "Order: Msg.value too high")
	ErrNoMakerMatchAccess = errs.New(errs.Authorization, "MintedExchange: no permission to call match maker order")
	ErrNullAddress        = errs.New(errs.Structural, "Owner: Cannot be null address")
	ErrNotAuctionStrategy = errs.New(errs.Structural, "Owner: Strategy has no auction length")
)

// Config is the static identity of one exchange deployment.
type Config struct {
	Address              common.Address // verifying contract and transfer caller
	ChainID              int64
	DomainName           string
	DomainVersion        string
	Owner                common.Address
	WETH                 common.Address
	ProtocolFeeRecipient common.Address
	OpenBeta             bool

	// Addresses of the pluggable components until an Update* call replaces them.
	CurrencyManager  common.Address
	ExecutionManager common.Address
	RoyaltyManager   common.Address
	TransferSelector common.Address
}

// Components are the collaborators the exchange drives.
type Components struct {
	Nonces        *nonce.Ledger
	World         *state.World
	Currencies    *whitelist.CurrencyManager
	Strategies    *whitelist.ExecutionManager
	Royalty       *royalty.Manager
	RoyaltySetter *royalty.Setter
	Transfers     *transfer.Selector
	Roles         *access.Roles // defaults to every role held by Config.Owner
	Events        *EventLog     // defaults to an unpersisted log
	Clock         util.Clock    // defaults to the wall clock
	Metrics       *metrics.Collector
	Log           *zap.SugaredLogger
}

// Exchange serializes every state-changing call with one mutex, standing in
// for a chain's serial execution.
type Exchange struct {
	mu sync.Mutex

	address  common.Address
	weth     common.Address
	verifier *order.Verifier

	nonces        *nonce.Ledger
	world         *state.World
	currencies    *whitelist.CurrencyManager
	strategies    *whitelist.ExecutionManager
	royalty       *royalty.Manager
	royaltySetter *royalty.Setter
	transfers     *transfer.Selector
	roles         *access.Roles

	currencyManagerAddr  common.Address
	executionManagerAddr common.Address
	royaltyManagerAddr   common.Address
	transferSelectorAddr common.Address

	protocolFeeRecipient common.Address
	openBeta             bool

	events  *EventLog
	clock   util.Clock
	metrics *metrics.Collector
	log     *zap.SugaredLogger

	timeMu   sync.RWMutex
	pinned   bool
	pinnedAt uint64
}

func New(cfg Config, c Components) (*Exchange, error) {
	if cfg.Address == (common.Address{}) {
		return nil, fmt.Errorf("exchange address is required")
	}
	if c.Nonces == nil || c.World == nil || c.Currencies == nil || c.Strategies == nil ||
		c.Royalty == nil || c.RoyaltySetter == nil || c.Transfers == nil {
		return nil, fmt.Errorf("exchange components are incomplete")
	}

	domain := crypto.DefaultDomain(cfg.ChainID, cfg.Address)
	if cfg.DomainName != "" {
		domain.Name = cfg.DomainName
	}
	if cfg.DomainVersion != "" {
		domain.Version = cfg.DomainVersion
	}
	verifier, err := order.NewVerifier(domain)
	if err != nil {
		return nil, fmt.Errorf("failed to build verifier: %w", err)
	}

	log := util.OrNop(c.Log)
	roles := c.Roles
	if roles == nil {
		roles = access.NewRoles(cfg.Owner)
	}
	events := c.Events
	if events == nil {
		events, _ = NewEventLog(nil, log)
	}
	clock := c.Clock
	if clock == nil {
		clock = util.RealClock{}
	}

	return &Exchange{
		address:              cfg.Address,
		weth:                 cfg.WETH,
		verifier:             verifier,
		nonces:               c.Nonces,
		world:                c.World,
		currencies:           c.Currencies,
		strategies:           c.Strategies,
		royalty:              c.Royalty,
		royaltySetter:        c.RoyaltySetter,
		transfers:            c.Transfers,
		roles:                roles,
		currencyManagerAddr:  cfg.CurrencyManager,
		executionManagerAddr: cfg.ExecutionManager,
		royaltyManagerAddr:   cfg.RoyaltyManager,
		transferSelectorAddr: cfg.TransferSelector,
		protocolFeeRecipient: cfg.ProtocolFeeRecipient,
		openBeta:             cfg.OpenBeta,
		events:               events,
		clock:                clock,
		metrics:              c.Metrics,
		log:                  log,
	}, nil
}

// ---------------------------------------------------------------------------
// Read views. They take the lock so they never observe a half-applied call.

func (e *Exchange) Address() common.Address { return e.address }
func (e *Exchange) WETH() common.Address    { return e.weth }

func (e *Exchange) Verifier() *order.Verifier { return e.verifier }

func (e *Exchange) DomainSeparator() common.Hash { return e.verifier.DomainSeparator() }

func (e *Exchange) OrderHash(o *order.MakerOrder) (common.Hash, error) { return o.Hash() }

func (e *Exchange) Events() *EventLog { return e.events }

func (e *Exchange) World() *state.World { return e.world }

func (e *Exchange) Nonces() *nonce.Ledger { return e.nonces }

func (e *Exchange) Roles() *access.Roles { return e.roles }

func (e *Exchange) CurrencyManager() *whitelist.CurrencyManager {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.currencies
}

func (e *Exchange) ExecutionManager() *whitelist.ExecutionManager {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.strategies
}

func (e *Exchange) RoyaltyFeeManager() *royalty.Manager {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.royalty
}

func (e *Exchange) RoyaltyFeeSetter() *royalty.Setter {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.royaltySetter
}

func (e *Exchange) TransferSelectorNFT() *transfer.Selector {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.transfers
}

// ManagerAddresses are the identities of the pluggable components.
type ManagerAddresses struct {
	CurrencyManager     common.Address `json:"currencyManager"`
	ExecutionManager    common.Address `json:"executionManager"`
	RoyaltyFeeManager   common.Address `json:"royaltyFeeManager"`
	TransferSelectorNFT common.Address `json:"transferSelectorNFT"`
}

func (e *Exchange) ManagerAddresses() ManagerAddresses {
	e.mu.Lock()
	defer e.mu.Unlock()
	return ManagerAddresses{
		CurrencyManager:     e.currencyManagerAddr,
		ExecutionManager:    e.executionManagerAddr,
		RoyaltyFeeManager:   e.royaltyManagerAddr,
		TransferSelectorNFT: e.transferSelectorAddr,
	}
}

func (e *Exchange) ProtocolFeeRecipient() common.Address {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.protocolFeeRecipient
}

func (e *Exchange) MakerMatchOpenBeta() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.openBeta
}

// IsUserOrderNonceExecutedOrCancelled reports the individual state of a
// nonce. Nonces below the minimum are not reported here.
func (e *Exchange) IsUserOrderNonceExecutedOrCancelled(signer common.Address, n uint64) (bool, error) {
	st, err := e.nonces.Status(signer, n)
	if err != nil {
		return false, err
	}
	return st != nonce.Open, nil
}

func (e *Exchange) UserMinOrderNonce(signer common.Address) (uint64, error) {
	return e.nonces.MinNonce(signer)
}

// IsOrderUsable reports whether the maker nonce of o can still settle.
func (e *Exchange) IsOrderUsable(o *order.MakerOrder) (bool, error) {
	return e.nonces.IsUsable(o.Signer, o.Nonce)
}

// ---------------------------------------------------------------------------
// Helpers

// PinTime makes every entry point judge orders at now instead of the clock
// until release runs. The node pins each block's timestamp.
func (e *Exchange) PinTime(now uint64) (release func()) {
	e.timeMu.Lock()
	e.pinned, e.pinnedAt = true, now
	e.timeMu.Unlock()
	return func() {
		e.timeMu.Lock()
		e.pinned = false
		e.timeMu.Unlock()
	}
}

func (e *Exchange) now() uint64 {
	e.timeMu.RLock()
	defer e.timeMu.RUnlock()
	if e.pinned {
		return e.pinnedAt
	}
	return util.UnixNow(e.clock)
}

func (e *Exchange) emit(name string, now uint64, fields map[string]string) Event {
	return e.events.emit(Event{Name: name, Time: now, Fields: fields})
}

func hexAddr(a common.Address) string { return a.Hex() }

func bigStr(x *big.Int) string {
	if x == nil {
		return "0"
	}
	return x.String()
}

func u64(x uint64) string { return fmt.Sprintf("%d", x) }
