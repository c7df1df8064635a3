package node

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/uhyunpark/mintedexchange/params"
	"github.com/uhyunpark/mintedexchange/pkg/app/core/access"
	"github.com/uhyunpark/mintedexchange/pkg/app/core/book"
	"github.com/uhyunpark/mintedexchange/pkg/app/core/nonce"
	"github.com/uhyunpark/mintedexchange/pkg/app/core/royalty"
	"github.com/uhyunpark/mintedexchange/pkg/app/core/state"
	"github.com/uhyunpark/mintedexchange/pkg/app/core/strategy"
	"github.com/uhyunpark/mintedexchange/pkg/app/core/transfer"
	"github.com/uhyunpark/mintedexchange/pkg/app/core/whitelist"
	"github.com/uhyunpark/mintedexchange/pkg/app/exchange"
	"github.com/uhyunpark/mintedexchange/pkg/metrics"
	"github.com/uhyunpark/mintedexchange/pkg/storage"
	"github.com/uhyunpark/mintedexchange/pkg/util"
)

// Deps are the process-level resources a stack is built on. Everything but
// Store may be nil.
type Deps struct {
	Store   *storage.Store
	WAL     storage.WAL
	Metrics *metrics.Collector
	Clock   util.Clock
	Log     *zap.SugaredLogger
}

// Stack is a fully wired exchange node.
type Stack struct {
	Exchange *exchange.Exchange
	Book     *book.Book
	App      *App
	World    *state.World
	// Resumed is set when the world and settings came from the store rather
	// than from genesis.
	Resumed bool
}

// Bootstrap wires an exchange node. The genesis always supplies the strategy
// and transfer manager implementations. The world, the royalty registry
// entries and the admin settings come from genesis on the first start and
// from the store afterwards.
func Bootstrap(cfg params.Config, gen *params.Genesis, deps Deps) (*Stack, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if gen == nil {
		gen = &params.Genesis{}
	}
	log := util.OrNop(deps.Log)
	store := deps.Store

	owner := cfg.Exchange.Owner
	if !gen.Owner.IsZero() {
		owner = gen.Owner.Common()
	}

	world, resumed, err := LoadWorld(store)
	if err != nil {
		return nil, err
	}
	if !resumed {
		if world, err = BuildWorld(gen, cfg.Exchange.WETH); err != nil {
			return nil, err
		}
	}

	currencies := whitelist.NewCurrencyManager()
	for _, c := range append([]common.Address{cfg.Exchange.WETH}, commonAddresses(gen.Currencies)...) {
		if c == (common.Address{}) || currencies.IsCurrencyWhitelisted(c) {
			continue
		}
		if err := currencies.AddCurrency(c); err != nil {
			return nil, err
		}
	}

	strategies := whitelist.NewExecutionManager()
	for i, spec := range gen.Strategies {
		impl := buildStrategy(spec, cfg)
		if spec.Disabled {
			strategies.Register(impl)
			continue
		}
		if err := strategies.AddStrategy(impl); err != nil {
			return nil, fmt.Errorf("strategies[%d]: %w", i, err)
		}
	}

	registry, err := royalty.NewRegistry(store, cfg.Royalty.FeeLimitBps)
	if err != nil {
		return nil, fmt.Errorf("failed to open royalty registry: %w", err)
	}
	if !resumed {
		for i, r := range gen.Royalties {
			err := registry.UpdateRoyaltyInfoForCollection(r.Collection.Common(), r.Setter.Common(), r.Receiver.Common(), r.FeeBps)
			if err != nil {
				return nil, fmt.Errorf("royalties[%d]: %w", i, err)
			}
		}
	}

	erc721, erc1155, nonCompliant := gen.TransferManagers.Resolved()
	exchangeAddr := cfg.Exchange.Address
	selector := transfer.NewSelector(world,
		transfer.NewERC721Manager(erc721, exchangeAddr, world),
		transfer.NewERC1155Manager(erc1155, exchangeAddr, world),
		transfer.NewNonCompliantERC721Manager(nonCompliant, exchangeAddr, world))

	roles := access.NewRoles(owner)
	for _, g := range gen.Roles {
		role, err := access.ParseRole(g.Role)
		if err != nil {
			return nil, err
		}
		roles.Grant(role, g.Account.Common())
	}

	events, err := exchange.NewEventLog(store, log.Named("events"))
	if err != nil {
		return nil, fmt.Errorf("failed to open event log: %w", err)
	}
	ledger := nonce.NewLedger(store)

	ex, err := exchange.New(exchange.Config{
		Address:              exchangeAddr,
		ChainID:              cfg.Exchange.ChainID,
		DomainName:           cfg.Exchange.DomainName,
		DomainVersion:        cfg.Exchange.DomainVersion,
		Owner:                owner,
		WETH:                 cfg.Exchange.WETH,
		ProtocolFeeRecipient: cfg.Exchange.ProtocolFeeRecipient,
		OpenBeta:             cfg.Exchange.OpenBeta,
		CurrencyManager:      gen.Managers.Currency.Common(),
		ExecutionManager:     gen.Managers.Execution.Common(),
		RoyaltyManager:       gen.Managers.Royalty.Common(),
		TransferSelector:     gen.Managers.TransferSelector.Common(),
	}, exchange.Components{
		Nonces:        ledger,
		World:         world,
		Currencies:    currencies,
		Strategies:    strategies,
		Royalty:       royalty.NewManager(registry, world),
		RoyaltySetter: royalty.NewSetter(registry, world),
		Transfers:     selector,
		Roles:         roles,
		Events:        events,
		Clock:         deps.Clock,
		Metrics:       deps.Metrics,
		Log:           log.Named("exchange"),
	})
	if err != nil {
		return nil, err
	}

	settings, ok, err := LoadSettings(store)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	if ok {
		if err := ex.ImportSettings(*settings); err != nil {
			return nil, fmt.Errorf("failed to restore settings: %w", err)
		}
	}

	b, err := book.New(store, ex.Verifier(), ledger, log.Named("book"))
	if err != nil {
		return nil, fmt.Errorf("failed to open order book: %w", err)
	}
	app, err := New(Config{
		MaxBlockBytes: cfg.Node.MaxBlockBytes,
		MempoolLimit:  cfg.Node.MempoolLimit,
	}, ex, store, b, deps.WAL, deps.Metrics, log.Named("node"))
	if err != nil {
		return nil, err
	}

	log.Infow("exchange_bootstrapped",
		"address", exchangeAddr.Hex(),
		"chainId", cfg.Exchange.ChainID,
		"owner", owner.Hex(),
		"strategies", strategies.WhitelistedStrategyCount(),
		"currencies", currencies.WhitelistedCurrencyCount(),
		"resumed", resumed,
		"height", app.Height())

	return &Stack{Exchange: ex, Book: b, App: app, World: world, Resumed: resumed}, nil
}

// BuildWorld creates the initial world described by gen. Native balances
// are credited before anything else so genesis can pre-wrap WETH.
func BuildWorld(gen *params.Genesis, weth common.Address) (*state.World, error) {
	w := state.NewWorld()

	for _, n := range gen.NativeBalances {
		if err := w.CreditNative(n.Holder.Common(), n.Amount.Big()); err != nil {
			return nil, err
		}
	}

	for i, c := range gen.Collections {
		std, ok := state.ParseStandard(c.Standard)
		if !ok {
			return nil, fmt.Errorf("collections[%d]: unknown standard %q", i, c.Standard)
		}
		info := state.CollectionInfo{
			Address:  c.Address.Common(),
			Standard: std,
			Owner:    c.Owner.Common(),
			Admin:    c.Admin.Common(),
		}
		if c.ERC2981 != nil {
			info.HasERC2981 = true
			info.RoyaltyReceiver = c.ERC2981.Receiver.Common()
			info.RoyaltyBps = c.ERC2981.Bps
		}
		if err := w.RegisterCollection(info); err != nil {
			return nil, fmt.Errorf("collections[%d]: %w", i, err)
		}
		for j, tok := range c.Tokens {
			var err error
			if std == state.ERC1155 {
				amount := tok.Amount.Big()
				if tok.Amount == nil {
					amount.SetInt64(1)
				}
				err = w.MintERC1155(info.Address, tok.Owner.Common(), tok.ID.Big(), amount)
			} else {
				err = w.MintERC721(info.Address, tok.Owner.Common(), tok.ID.Big())
			}
			if err != nil {
				return nil, fmt.Errorf("collections[%d].tokens[%d]: %w", i, j, err)
			}
		}
	}

	for i, b := range gen.Balances {
		var err error
		if b.Currency.Common() == weth && weth != (common.Address{}) {
			// WETH is backed by native value.
			if err = w.CreditNative(b.Holder.Common(), b.Amount.Big()); err == nil {
				err = w.Deposit(weth, b.Holder.Common(), b.Amount.Big())
			}
		} else {
			err = w.Mint(b.Currency.Common(), b.Holder.Common(), b.Amount.Big())
		}
		if err != nil {
			return nil, fmt.Errorf("balances[%d]: %w", i, err)
		}
	}

	for i, a := range gen.Approvals {
		if err := w.SetApprovalForAll(a.Collection.Common(), a.Owner.Common(), a.Operator.Common(), true); err != nil {
			return nil, fmt.Errorf("approvals[%d]: %w", i, err)
		}
	}

	w.Commit()
	return w, nil
}

func buildStrategy(spec params.StrategySpec, cfg params.Config) strategy.Strategy {
	fee := cfg.Fees.StandardProtocolFeeBps
	if spec.ProtocolFeeBps != nil {
		fee = *spec.ProtocolFeeBps
	}
	addr := spec.Address.Common()
	switch spec.Kind {
	case params.StrategyAnyItem:
		return strategy.NewAnyItemFromCollection(addr, fee)
	case params.StrategyPrivateSale:
		return strategy.NewPrivateSale(addr, fee)
	case params.StrategyDutchAuction:
		minLength := uint64(cfg.Dutch.MinAuctionLength / time.Second)
		if spec.MinAuctionLengthS != 0 {
			minLength = spec.MinAuctionLengthS
		}
		return strategy.NewDutchAuction(addr, fee, minLength)
	case params.StrategyEnglishAuction:
		return strategy.NewEnglishAuction(addr, fee)
	default:
		return strategy.NewFixedPrice(addr, fee)
	}
}

func commonAddresses(in []params.Address) []common.Address {
	out := make([]common.Address, len(in))
	for i, a := range in {
		out[i] = a.Common()
	}
	return out
}
