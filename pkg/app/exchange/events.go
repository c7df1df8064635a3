package exchange

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/uhyunpark/mintedexchange/pkg/storage"
	"github.com/uhyunpark/mintedexchange/pkg/util"
)

// Event names.
const (
	EventTakerBid                        = "TakerBid"
	EventTakerAsk                        = "TakerAsk"
	EventMakerMatch                      = "MakerMatch"
	EventCancelAllOrders                 = "CancelAllOrders"
	EventCancelMultipleOrders            = "CancelMultipleOrders"
	EventNewCurrencyManager              = "NewCurrencyManager"
	EventNewExecutionManager             = "NewExecutionManager"
	EventNewRoyaltyFeeManager            = "NewRoyaltyFeeManager"
	EventNewTransferSelectorNFT          = "NewTransferSelectorNFT"
	EventNewProtocolFeeRecipient         = "NewProtocolFeeRecipient"
	EventMakerMatchOpenBetaUpdated       = "MakerMatchOpenBetaUpdated"
	EventCurrencyWhitelisted             = "CurrencyWhitelisted"
	EventCurrencyRemoved                 = "CurrencyRemoved"
	EventStrategyWhitelisted             = "StrategyWhitelisted"
	EventStrategyRemoved                 = "StrategyRemoved"
	EventCollectionTransferManagerAdded  = "CollectionTransferManagerAdded"
	EventCollectionTransferManagerRemove = "CollectionTransferManagerRemoved"
	EventNewRoyaltyFeeLimit              = "NewRoyaltyFeeLimit"
	EventRoyaltyFeeUpdate                = "RoyaltyFeeUpdate"
	EventNewMinimumAuctionLength         = "NewMinimumAuctionLengthInSeconds"
	EventRoleGranted                     = "RoleGranted"
	EventRoleRevoked                     = "RoleRevoked"
	EventApprovalForAll                  = "ApprovalForAll"
)

// Event is an exchange log entry. Field values are strings: addresses in
// checksummed hex and integers in decimal.
type Event struct {
	Seq    uint64            `json:"seq"`
	Name   string            `json:"name"`
	Time   uint64            `json:"time"`
	Fields map[string]string `json:"fields"`
}

// Sink receives every emitted event, in order, while the exchange lock is
// held. Implementations must not block.
type Sink interface {
	OnEvent(Event)
}

type SinkFunc func(Event)

func (f SinkFunc) OnEvent(ev Event) { f(ev) }

var eventSeqKey = storage.MetaKey("eventSeq")

// EventLog numbers events and fans them out to sinks. When a store is set,
// events are also appended under event:<seq>.
type EventLog struct {
	store *storage.Store
	log   *zap.SugaredLogger

	mu    sync.Mutex
	seq   uint64
	sinks []Sink
}

// NewEventLog resumes numbering from the store, if any.
func NewEventLog(store *storage.Store, log *zap.SugaredLogger) (*EventLog, error) {
	l := &EventLog{store: store, log: util.OrNop(log)}
	if store != nil {
		seq, err := store.GetUint64(eventSeqKey)
		if err != nil {
			return nil, err
		}
		l.seq = seq
	}
	return l, nil
}

func (l *EventLog) Subscribe(s Sink) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sinks = append(l.sinks, s)
}

// Seq is the sequence number of the last event.
func (l *EventLog) Seq() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.seq
}

func (l *EventLog) emit(ev Event) Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.seq++
	ev.Seq = l.seq
	if l.store != nil {
		b := l.store.NewBatch()
		b.SetJSON(storage.EventKey(ev.Seq), ev)
		b.Set(eventSeqKey, storage.EncodeUint64(ev.Seq))
		if err := b.Commit(); err != nil {
			l.log.Errorw("event_persist_failed", "seq", ev.Seq, "name", ev.Name, "err", err)
		}
	}
	for _, s := range l.sinks {
		s.OnEvent(ev)
	}
	return ev
}

// Since returns up to limit persisted events with Seq > after.
func (l *EventLog) Since(after uint64, limit int) ([]Event, error) {
	if l.store == nil {
		return nil, nil
	}
	var (
		out      []Event
		firstErr error
	)
	err := l.store.ScanFrom(storage.EventPrefix(), storage.EventKey(after+1), func(_, val []byte) bool {
		var ev Event
		if err := json.Unmarshal(val, &ev); err != nil {
			firstErr = err
			return false
		}
		out = append(out, ev)
		return limit <= 0 || len(out) < limit
	})
	if err != nil {
		return nil, err
	}
	return out, firstErr
}
