package metrics

import (
	"math/big"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollector(t *testing.T) {
	c := NewCollector()

	c.ObserveMatch("taker_bid", "fixed_price", "0xweth", big.NewInt(100))
	c.ObserveMatch("taker_bid", "fixed_price", "0xweth", big.NewInt(50))
	c.ObserveMatchFailure("staleness")
	c.ObserveCancel("all")
	c.ObserveTx("matchAskWithTakerBid", "ok", 3*time.Millisecond)
	c.SetMempoolSize(7)

	if got := testutil.ToFloat64(c.matches.WithLabelValues("taker_bid", "fixed_price")); got != 2 {
		t.Errorf("matches = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.volume.WithLabelValues("0xweth")); got != 150 {
		t.Errorf("volume = %v, want 150", got)
	}
	if got := testutil.ToFloat64(c.matchFailures.WithLabelValues("staleness")); got != 1 {
		t.Errorf("failures = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.mempoolSize); got != 7 {
		t.Errorf("mempool size = %v, want 7", got)
	}

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "exchange_matches_total") {
		t.Error("handler output missing exchange_matches_total")
	}
}

func TestNilCollectorIsNoop(t *testing.T) {
	var c *Collector
	c.ObserveMatch("taker_bid", "fixed_price", "0xweth", big.NewInt(1))
	c.ObserveMatchFailure("internal")
	c.ObserveCancel("many")
	c.ObserveTx("x", "ok", time.Second)
	c.SetMempoolSize(1)
	c.SetBookSize(1)
	c.SetBlockHeight(1)
}
