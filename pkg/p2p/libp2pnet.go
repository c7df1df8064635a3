// Package p2p relays signed maker orders between nodes over libp2p
// gossipsub. Only orders whose signature verifies against the local EIP-712
// domain are accepted or forwarded.
package p2p

import (
	"context"
	"sync"

	libp2p "github.com/libp2p/go-libp2p"
	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	ma "github.com/multiformats/go-multiaddr"
	"go.uber.org/zap"

	"github.com/uhyunpark/mintedexchange/pkg/app/core/order"
	"github.com/uhyunpark/mintedexchange/pkg/util"
)

const TopicOrders = "/minted-exchange/orders/1"

// OrderHandler receives every valid order gossiped by a remote peer.
type OrderHandler func(o *order.MakerOrder) error

type Config struct {
	ListenAddr string
	Bootstrap  []string
	Logger     *zap.SugaredLogger
}

type OrderGossip struct {
	h        host.Host
	ps       *pubsub.PubSub
	topic    *pubsub.Topic
	sub      *pubsub.Subscription
	verifier *order.Verifier
	log      *zap.SugaredLogger

	muH     sync.RWMutex
	handler OrderHandler

	received, rejected uint64
	muStats            sync.Mutex
}

func NewOrderGossip(ctx context.Context, cfg Config, verifier *order.Verifier) (*OrderGossip, error) {
	var opts []libp2p.Option
	if cfg.ListenAddr != "" {
		maddr, err := ma.NewMultiaddr(cfg.ListenAddr)
		if err != nil {
			return nil, err
		}
		opts = append(opts, libp2p.ListenAddrs(maddr))
	}
	h, err := libp2p.New(opts...)
	if err != nil {
		return nil, err
	}
	ps, err := pubsub.NewGossipSub(ctx, h)
	if err != nil {
		h.Close()
		return nil, err
	}

	g := &OrderGossip{h: h, ps: ps, verifier: verifier, log: util.OrNop(cfg.Logger)}

	if err := ps.RegisterTopicValidator(TopicOrders, g.validate); err != nil {
		h.Close()
		return nil, err
	}
	if g.topic, err = ps.Join(TopicOrders); err != nil {
		h.Close()
		return nil, err
	}
	if g.sub, err = g.topic.Subscribe(); err != nil {
		h.Close()
		return nil, err
	}

	for _, bs := range cfg.Bootstrap {
		if err := connectMultiaddr(ctx, h, bs); err != nil {
			g.log.Warnw("bootstrap_connect_failed", "addr", bs, "err", err)
		}
	}

	go g.handleOrders(ctx)

	g.log.Infow("libp2p_ready", "peer", h.ID().String(), "listen", cfg.ListenAddr, "topic", TopicOrders)
	return g, nil
}

func connectMultiaddr(ctx context.Context, h host.Host, addr string) error {
	m, err := ma.NewMultiaddr(addr)
	if err != nil {
		return err
	}
	info, err := peer.AddrInfoFromP2pAddr(m)
	if err != nil {
		return err
	}
	return h.Connect(ctx, *info)
}

func (g *OrderGossip) SetHandler(fn OrderHandler) { g.muH.Lock(); g.handler = fn; g.muH.Unlock() }

func (g *OrderGossip) Host() host.Host { return g.h }

// Addrs returns the dialable multiaddrs of this node, including its peer id.
func (g *OrderGossip) Addrs() []string {
	suffix := "/p2p/" + g.h.ID().String()
	out := make([]string, 0, len(g.h.Addrs()))
	for _, a := range g.h.Addrs() {
		out = append(out, a.String()+suffix)
	}
	return out
}

// Connect dials a peer given as a full multiaddr.
func (g *OrderGossip) Connect(ctx context.Context, addr string) error {
	return connectMultiaddr(ctx, g.h, addr)
}

func (g *OrderGossip) Peers() int { return len(g.ps.ListPeers(TopicOrders)) }

// Stats returns how many remote orders were delivered and rejected.
func (g *OrderGossip) Stats() (received, rejected uint64) {
	g.muStats.Lock()
	defer g.muStats.Unlock()
	return g.received, g.rejected
}

// Publish broadcasts a signed order. It does not verify o; callers publish
// only what their book accepted.
func (g *OrderGossip) Publish(ctx context.Context, o *order.MakerOrder) error {
	data, err := encodeOrder(o)
	if err != nil {
		return err
	}
	return g.topic.Publish(ctx, data)
}

func (g *OrderGossip) Close() error {
	g.sub.Cancel()
	if err := g.topic.Close(); err != nil {
		g.log.Warnw("topic_close_failed", "err", err)
	}
	return g.h.Close()
}

// validate runs before a message is delivered or forwarded. The decoded
// order is attached to the message for the reader.
func (g *OrderGossip) validate(_ context.Context, from peer.ID, msg *pubsub.Message) bool {
	o, err := g.checkOrder(msg.Data)
	if err != nil {
		g.log.Debugw("gossip_order_rejected", "from", from.String(), "err", err)
		g.muStats.Lock()
		g.rejected++
		g.muStats.Unlock()
		return false
	}
	msg.ValidatorData = o
	return true
}

func (g *OrderGossip) checkOrder(data []byte) (*order.MakerOrder, error) {
	o, err := decodeOrder(data)
	if err != nil {
		return nil, err
	}
	if err := g.verifier.Verify(o); err != nil {
		return nil, err
	}
	return o, nil
}

// inbound

func (g *OrderGossip) handleOrders(ctx context.Context) {
	for {
		msg, err := g.sub.Next(ctx)
		if err != nil {
			return
		}
		if msg.ReceivedFrom == g.h.ID() {
			continue
		}
		o, ok := msg.ValidatorData.(*order.MakerOrder)
		if !ok {
			continue
		}

		g.muStats.Lock()
		g.received++
		g.muStats.Unlock()

		g.muH.RLock()
		fn := g.handler
		g.muH.RUnlock()
		if fn == nil {
			continue
		}
		if err := fn(o); err != nil {
			g.log.Debugw("gossip_order_dropped", "from", msg.ReceivedFrom.String(), "order", o.String(), "err", err)
		}
	}
}
