package params

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"

	"github.com/uhyunpark/mintedexchange/pkg/app/core/strategy"
	"github.com/uhyunpark/mintedexchange/pkg/crypto"
)

// DevExchangeAddress is the verifying contract identity used when
// EXCHANGE_ADDRESS is not set.
var DevExchangeAddress = common.HexToAddress("0x000000000000000000000000000000000000E1C5")

type Exchange struct {
	ChainID              int64
	Address              common.Address
	DomainName           string
	DomainVersion        string
	WETH                 common.Address
	ProtocolFeeRecipient common.Address
	Owner                common.Address
	OpenBeta             bool
}

type Fees struct {
	// StandardProtocolFeeBps applies to strategies whose genesis entry sets
	// no fee of its own.
	StandardProtocolFeeBps uint64
}

type Royalty struct {
	FeeLimitBps uint64
}

type Dutch struct {
	MinAuctionLength time.Duration
}

type Node struct {
	DataDir       string // empty = in-memory store
	LogFile       string
	LogLevel      string
	APIAddr       string
	BlockInterval time.Duration
	GenesisPath   string

	RateLimit      float64 // API submissions per second per client, 0 = unlimited
	RateBurst      int
	AllowedOrigins []string
	MempoolLimit   int
	MaxBlockBytes  int64
}

type P2P struct {
	Enabled    bool
	ListenAddr string
	Bootstrap  []string
}

type Config struct {
	Exchange Exchange
	Fees     Fees
	Royalty  Royalty
	Dutch    Dutch
	Node     Node
	P2P      P2P
}

func Default() Config {
	return Config{
		Exchange: Exchange{
			ChainID:       1337,
			Address:       DevExchangeAddress,
			DomainName:    "MintedExchange",
			DomainVersion: "1",
			OpenBeta:      true,
		},
		Fees:    Fees{StandardProtocolFeeBps: 200},
		Royalty: Royalty{FeeLimitBps: 9500},
		Dutch:   Dutch{MinAuctionLength: 15 * time.Minute},
		Node: Node{
			LogLevel:       "info",
			APIAddr:        ":8080",
			BlockInterval:  200 * time.Millisecond,
			RateBurst:      20,
			AllowedOrigins: []string{"http://localhost:3000", "http://localhost:3001"},
			MempoolLimit:   10000,
		},
		P2P: P2P{ListenAddr: "/ip4/0.0.0.0/tcp/4001"},
	}
}

// LoadFromEnv loads configuration from .env file (if exists) and environment variables
// Priority: ENV > .env file > defaults
func LoadFromEnv(envPath string) (Config, error) {
	cfg := Default()

	// Missing .env files are fine
	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	var err error
	set := func(key string, parse func(string) error) {
		if err != nil {
			return
		}
		if v := os.Getenv(key); v != "" {
			if perr := parse(v); perr != nil {
				err = fmt.Errorf("%s: %w", key, perr)
			}
		}
	}

	set("CHAIN_ID", func(v string) (e error) {
		cfg.Exchange.ChainID, e = strconv.ParseInt(v, 10, 64)
		return
	})
	set("EXCHANGE_ADDRESS", addressInto(&cfg.Exchange.Address))
	set("WETH_ADDRESS", addressInto(&cfg.Exchange.WETH))
	set("PROTOCOL_FEE_RECIPIENT", addressInto(&cfg.Exchange.ProtocolFeeRecipient))
	set("EXCHANGE_OWNER", addressInto(&cfg.Exchange.Owner))
	set("MAKER_MATCH_OPEN_BETA", boolInto(&cfg.Exchange.OpenBeta))
	set("PROTOCOL_FEE_BPS", bpsInto(&cfg.Fees.StandardProtocolFeeBps))
	set("ROYALTY_FEE_LIMIT_BPS", bpsInto(&cfg.Royalty.FeeLimitBps))
	set("DUTCH_MIN_AUCTION_LENGTH_S", func(v string) error {
		s, e := strconv.ParseUint(v, 10, 32)
		if e == nil && s < strategy.MinAuctionLengthFloor {
			e = fmt.Errorf("%d is below the %d second floor", s, strategy.MinAuctionLengthFloor)
		}
		cfg.Dutch.MinAuctionLength = time.Duration(s) * time.Second
		return e
	})

	set("DATA_DIR", stringInto(&cfg.Node.DataDir))
	set("LOG_FILE", stringInto(&cfg.Node.LogFile))
	set("LOG_LEVEL", stringInto(&cfg.Node.LogLevel))
	set("API_ADDR", stringInto(&cfg.Node.APIAddr))
	set("GENESIS_FILE", stringInto(&cfg.Node.GenesisPath))
	set("BLOCK_INTERVAL_MS", func(v string) error {
		ms, e := strconv.Atoi(v)
		if e == nil && ms <= 0 {
			e = fmt.Errorf("must be positive")
		}
		cfg.Node.BlockInterval = time.Duration(ms) * time.Millisecond
		return e
	})
	set("API_RATE_LIMIT", func(v string) (e error) {
		cfg.Node.RateLimit, e = strconv.ParseFloat(v, 64)
		return
	})
	set("API_RATE_BURST", func(v string) (e error) {
		cfg.Node.RateBurst, e = strconv.Atoi(v)
		return
	})
	set("API_CORS_ORIGINS", listInto(&cfg.Node.AllowedOrigins))
	set("MEMPOOL_LIMIT", func(v string) (e error) {
		cfg.Node.MempoolLimit, e = strconv.Atoi(v)
		return
	})
	set("MAX_BLOCK_BYTES", func(v string) (e error) {
		cfg.Node.MaxBlockBytes, e = strconv.ParseInt(v, 10, 64)
		return
	})

	set("P2P_ENABLED", boolInto(&cfg.P2P.Enabled))
	set("P2P_LISTEN", stringInto(&cfg.P2P.ListenAddr))
	set("P2P_BOOTSTRAP", listInto(&cfg.P2P.Bootstrap))

	return cfg, err
}

func addressInto(dst *common.Address) func(string) error {
	return func(v string) (err error) {
		*dst, err = crypto.ParseAddress(v)
		return
	}
}

func boolInto(dst *bool) func(string) error {
	return func(v string) (err error) {
		*dst, err = strconv.ParseBool(v)
		return
	}
}

func bpsInto(dst *uint64) func(string) error {
	return func(v string) error {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return err
		}
		if n > 10000 {
			return fmt.Errorf("%d exceeds 10000 basis points", n)
		}
		*dst = n
		return nil
	}
}

func stringInto(dst *string) func(string) error {
	return func(v string) error {
		*dst = v
		return nil
	}
}

func listInto(dst *[]string) func(string) error {
	return func(v string) error {
		var out []string
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		*dst = out
		return nil
	}
}
