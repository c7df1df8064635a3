// sign-order builds and signs a maker order against the exchange domain in
// the environment, then prints the JSON body for POST /api/v1/orders and the
// typed data a wallet would show.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math/big"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/shopspring/decimal"

	"github.com/uhyunpark/mintedexchange/params"
	"github.com/uhyunpark/mintedexchange/pkg/app/core/order"
	"github.com/uhyunpark/mintedexchange/pkg/crypto"
)

type options struct {
	envPath    string
	keyHex     string
	bid        bool
	collection string
	tokenID    string
	amount     string
	price      string
	decimals   int
	strategy   string
	currency   string
	nonce      uint64
	ttl        time.Duration
	minPct     uint64
	params     string
}

func main() {
	var opts options
	flag.StringVar(&opts.keyHex, "key", "", "hex private key (a fresh key is generated when empty)")
	flag.BoolVar(&opts.bid, "bid", false, "sign a bid instead of an ask")
	flag.StringVar(&opts.collection, "collection", "", "collection address")
	flag.StringVar(&opts.tokenID, "token-id", "0", "token id")
	flag.StringVar(&opts.amount, "amount", "1", "token amount")
	flag.StringVar(&opts.price, "price", "", "unit price in whole currency units, e.g. 1.5")
	flag.IntVar(&opts.decimals, "decimals", 18, "currency decimals")
	flag.StringVar(&opts.strategy, "strategy", "", "strategy address")
	flag.StringVar(&opts.currency, "currency", "", "currency address (defaults to WETH_ADDRESS)")
	flag.Uint64Var(&opts.nonce, "nonce", 0, "order nonce")
	flag.DurationVar(&opts.ttl, "ttl", 24*time.Hour, "validity window starting now")
	flag.Uint64Var(&opts.minPct, "min-pct", 8500, "minimum share of the price the seller must receive, in bps")
	flag.StringVar(&opts.params, "params", "0x", "strategy params as hex")
	flag.StringVar(&opts.envPath, "env", "", ".env file to read the exchange domain from")
	flag.Parse()

	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(opts options) error {
	cfg, err := params.LoadFromEnv(opts.envPath)
	if err != nil {
		return err
	}

	// Step 1: Generate or load key
	var signer *crypto.Signer
	if opts.keyHex == "" {
		if signer, err = crypto.GenerateKey(); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Generated key %s (KEEP SECRET!)\n", signer.PrivateKeyHex())
	} else if signer, err = crypto.FromPrivateKeyHex(opts.keyHex); err != nil {
		return err
	}

	// Step 2: Build order
	units, err := ParseUnits(opts.price, int32(opts.decimals))
	if err != nil {
		return fmt.Errorf("price: %w", err)
	}
	currency := opts.currency
	if currency == "" {
		currency = cfg.Exchange.WETH.Hex()
	}
	extra, err := hexutil.Decode(opts.params)
	if err != nil {
		return fmt.Errorf("params: %w", err)
	}
	now := uint64(time.Now().Unix())
	payload := &order.MakerOrderPayload{
		IsOrderAsk:         !opts.bid,
		Signer:             signer.Address().Hex(),
		Collection:         opts.collection,
		Price:              units.String(),
		TokenID:            opts.tokenID,
		Amount:             opts.amount,
		Strategy:           opts.strategy,
		Currency:           currency,
		Nonce:              opts.nonce,
		StartTime:          now,
		EndTime:            now + uint64(opts.ttl/time.Second),
		MinPercentageToAsk: opts.minPct,
		Params:             extra,
	}
	o, err := payload.ToMakerOrder()
	if err != nil {
		return err
	}

	// Step 3: Sign order with EIP-712
	domain := crypto.DefaultDomain(cfg.Exchange.ChainID, cfg.Exchange.Address)
	if cfg.Exchange.DomainName != "" {
		domain.Name = cfg.Exchange.DomainName
	}
	if cfg.Exchange.DomainVersion != "" {
		domain.Version = cfg.Exchange.DomainVersion
	}
	verifier, err := order.NewVerifier(domain)
	if err != nil {
		return err
	}
	if err := verifier.Sign(signer, o); err != nil {
		return err
	}
	if err := verifier.Verify(o); err != nil {
		return fmt.Errorf("signature does not verify: %w", err)
	}
	hash, err := o.Hash()
	if err != nil {
		return err
	}

	typed, err := verifier.TypedDataJSON(o)
	if err != nil {
		return err
	}
	body, err := json.MarshalIndent(order.FromMakerOrder(o), "", "  ")
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Order %s signed by %s on chain %d\n", hash.Hex(), signer.Address().Hex(), cfg.Exchange.ChainID)
	fmt.Fprintln(os.Stderr, "Typed data:")
	fmt.Fprintln(os.Stderr, typed)
	fmt.Fprintln(os.Stderr, "POST /api/v1/orders body:")
	fmt.Println(string(body))
	return nil
}

// ParseUnits converts a decimal amount like "1.5" into base units.
func ParseUnits(s string, decimals int32) (*big.Int, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, err
	}
	scaled := d.Shift(decimals)
	if !scaled.Equal(scaled.Truncate(0)) {
		return nil, fmt.Errorf("%s has more than %d decimals", s, decimals)
	}
	if scaled.Sign() <= 0 {
		return nil, fmt.Errorf("%s must be positive", s)
	}
	return scaled.BigInt(), nil
}
