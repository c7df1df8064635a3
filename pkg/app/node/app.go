// Package node is the sequencer that stands in for a chain runtime. It
// authenticates caller-signed envelopes, queues them in the bucketed
// mempool and applies them to the exchange one at a time, block by block,
// writing a receipt for each.
package node

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/uhyunpark/mintedexchange/pkg/app/core/book"
	"github.com/uhyunpark/mintedexchange/pkg/app/core/errs"
	"github.com/uhyunpark/mintedexchange/pkg/app/core/mempool"
	"github.com/uhyunpark/mintedexchange/pkg/app/core/state"
	"github.com/uhyunpark/mintedexchange/pkg/app/exchange"
	"github.com/uhyunpark/mintedexchange/pkg/metrics"
	"github.com/uhyunpark/mintedexchange/pkg/storage"
	"github.com/uhyunpark/mintedexchange/pkg/util"
)

const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

var (
	heightKey   = storage.MetaKey("height")
	worldKey    = storage.MetaKey("world")
	settingsKey = storage.MetaKey("settings")
)

// Receipt records the outcome of one applied transaction.
type Receipt struct {
	TxHash common.Hash      `json:"txHash"`
	Type   TxType           `json:"type"`
	Caller string           `json:"caller"`
	Height uint64           `json:"height"`
	Time   uint64           `json:"time"`
	Status string           `json:"status"`
	Error  string           `json:"error,omitempty"`
	Class  string           `json:"class,omitempty"`
	Events []exchange.Event `json:"events,omitempty"`
}

// BlockResult summarizes one ApplyBlock call.
type BlockResult struct {
	Height uint64
	Txs    int
	Failed int
	Pruned int
	Root   common.Hash
}

type Config struct {
	MaxBlockBytes int64 // 0 = unbounded
	MempoolLimit  int   // 0 = unbounded
}

type App struct {
	exchange *exchange.Exchange
	world    *state.World
	store    *storage.Store
	mempool  *mempool.Mempool
	book     *book.Book // optional
	wal      storage.WAL
	metrics  *metrics.Collector
	log      *zap.SugaredLogger
	cfg      Config

	mu      sync.Mutex // serializes ApplyBlock
	height  uint64
	pending sync.Map // tx hash → struct{}, admitted but not yet applied
}

// New builds the app and resumes the block height from the store. book, wal
// and m may be nil.
func New(cfg Config, ex *exchange.Exchange, store *storage.Store, b *book.Book, wal storage.WAL, m *metrics.Collector, log *zap.SugaredLogger) (*App, error) {
	if wal == nil {
		wal = storage.NewNopWAL()
	}
	height, err := store.GetUint64(heightKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load height: %w", err)
	}
	return &App{
		exchange: ex,
		world:    ex.World(),
		store:    store,
		mempool:  mempool.NewMempool(cfg.MempoolLimit),
		book:     b,
		wal:      wal,
		metrics:  m,
		log:      util.OrNop(log),
		cfg:      cfg,
		height:   height,
	}, nil
}

// LoadWorld returns the world persisted by the last block, if any.
func LoadWorld(store *storage.Store) (*state.World, bool, error) {
	var dump state.Dump
	ok, err := store.GetJSON(worldKey, &dump)
	if err != nil || !ok {
		return nil, false, err
	}
	w, err := state.Import(&dump)
	if err != nil {
		return nil, false, fmt.Errorf("failed to import world: %w", err)
	}
	return w, true, nil
}

// LoadSettings returns the exchange settings persisted by the last block, if any.
func LoadSettings(store *storage.Store) (*exchange.Settings, bool, error) {
	var s exchange.Settings
	ok, err := store.GetJSON(settingsKey, &s)
	if err != nil || !ok {
		return nil, false, err
	}
	return &s, true, nil
}

func (a *App) Exchange() *exchange.Exchange { return a.exchange }

func (a *App) Height() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.height
}

func (a *App) MempoolSize() int { return a.mempool.Len() }

// Submit authenticates raw and queues it for the next block. now is used for
// the deadline check.
func (a *App) Submit(raw []byte, now uint64) (common.Hash, error) {
	env, err := Decode(raw)
	if err != nil {
		return common.Hash{}, err
	}
	hash, err := env.Authenticate()
	if err != nil {
		return common.Hash{}, err
	}
	if env.Deadline != 0 && env.Deadline < now {
		return common.Hash{}, ErrDeadlineExpired
	}
	if _, ok, err := a.Receipt(hash); err != nil {
		return common.Hash{}, err
	} else if ok {
		return common.Hash{}, ErrDuplicateTx
	}
	if _, loaded := a.pending.LoadOrStore(hash, struct{}{}); loaded {
		return common.Hash{}, ErrDuplicateTx
	}
	if !a.mempool.PushRaw(raw) {
		a.pending.Delete(hash)
		return common.Hash{}, ErrMempoolFull
	}
	a.metrics.SetMempoolSize(a.mempool.Len())
	a.log.Debugw("tx_submitted", "hash", hash.Hex(), "type", env.Type, "caller", env.Caller)
	return hash, nil
}

// Pending reports whether hash was admitted and is still waiting for a block.
func (a *App) Pending(hash common.Hash) bool {
	_, ok := a.pending.Load(hash)
	return ok
}

// Receipt returns the stored receipt of an applied tx.
func (a *App) Receipt(hash common.Hash) (*Receipt, bool, error) {
	var r Receipt
	ok, err := a.store.GetJSON(storage.ReceiptKey(hash), &r)
	if err != nil || !ok {
		return nil, false, err
	}
	return &r, true, nil
}

// ApplyBlock drains the mempool in bucket order and applies every tx. Every
// tx in the block, its receipt and the book prune all see the same now.
func (a *App) ApplyBlock(now uint64) (BlockResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	release := a.exchange.PinTime(now)
	defer release()

	txs := a.mempool.SelectForBlock(a.cfg.MaxBlockBytes)
	height := a.height + 1
	res := BlockResult{Height: height, Txs: len(txs)}

	batch := a.store.NewBatch()
	for _, raw := range txs {
		r := a.applyTx(raw, height, now)
		if r.Status != StatusOK {
			res.Failed++
		}
		if r.TxHash != (common.Hash{}) {
			batch.SetJSON(storage.ReceiptKey(r.TxHash), r)
			a.pending.Delete(r.TxHash)
		}
		rec := storage.WALRecord{Height: height, TxHash: r.TxHash, Type: string(r.Type), Status: r.Status}
		if err := a.wal.Append(rec); err != nil {
			a.log.Errorw("wal_append_failed", "height", height, "tx", r.TxHash.Hex(), "err", err)
		}
	}

	if a.book != nil {
		pruned, err := a.book.Prune(now)
		if err != nil {
			a.log.Errorw("book_prune_failed", "height", height, "err", err)
		}
		res.Pruned = pruned
		a.metrics.SetBookSize(a.book.Len())
	}

	root, err := a.world.Root()
	if err != nil {
		return res, err
	}
	res.Root = root
	batch.SetJSON(worldKey, a.world.Export())
	batch.SetJSON(settingsKey, a.exchange.ExportSettings())
	batch.Set(heightKey, storage.EncodeUint64(height))
	if err := batch.Commit(); err != nil {
		return res, fmt.Errorf("failed to commit block %d: %w", height, err)
	}
	a.height = height

	a.metrics.SetBlockHeight(height)
	a.metrics.SetMempoolSize(a.mempool.Len())
	if len(txs) > 0 {
		a.log.Infow("block_applied", "height", height, "txs", len(txs), "failed", res.Failed,
			"pruned", res.Pruned, "root", root.Hex())
	}
	return res, nil
}

func (a *App) applyTx(raw []byte, height, now uint64) *Receipt {
	start := time.Now()
	r := &Receipt{Height: height, Time: now, Status: StatusOK}

	fail := func(err error) *Receipt {
		r.Status = StatusFailed
		r.Error = errs.ReasonOf(err)
		r.Class = errs.ClassOf(err).String()
		a.metrics.ObserveTx(string(r.Type), r.Status, time.Since(start))
		a.log.Infow("tx_failed", "hash", r.TxHash.Hex(), "type", r.Type, "caller", r.Caller,
			"reason", r.Error, "class", r.Class, "err", err)
		return r
	}

	env, err := Decode(raw)
	if err != nil {
		return fail(err)
	}
	r.Type, r.Caller = env.Type, env.Caller
	hash, err := env.Authenticate()
	if err != nil {
		return fail(err)
	}
	r.TxHash = hash
	if env.Deadline != 0 && env.Deadline < now {
		return fail(ErrDeadlineExpired)
	}
	value, err := env.value()
	if err != nil {
		return fail(err)
	}

	ev, err := a.dispatch(env, env.caller(), value)
	if err != nil {
		return fail(err)
	}
	if ev.Name != "" {
		r.Events = []exchange.Event{ev}
	}
	a.metrics.ObserveTx(string(r.Type), r.Status, time.Since(start))
	return r
}

// Run applies a block every interval until ctx is cancelled.
func (a *App) Run(ctx context.Context, clock util.Clock, interval time.Duration) error {
	a.log.Infow("sequencer_started", "interval", interval.String(), "height", a.Height())
	for {
		select {
		case <-ctx.Done():
			a.log.Infow("sequencer_stopped", "height", a.Height())
			return ctx.Err()
		case <-clock.After(interval):
			if _, err := a.ApplyBlock(util.UnixNow(clock)); err != nil {
				a.log.Errorw("block_failed", "err", err)
				return err
			}
		}
	}
}
