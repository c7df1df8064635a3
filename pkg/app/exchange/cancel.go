package exchange

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// CancelAllOrdersForSender invalidates every caller nonce below minNonce.
func (e *Exchange) CancelAllOrdersForSender(caller common.Address, minNonce uint64) (Event, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.nonces.CancelAllBelow(caller, minNonce); err != nil {
		return Event{}, err
	}
	e.metrics.ObserveCancel("all")
	e.log.Infow("orders_cancelled_below", "user", caller.Hex(), "new_min_nonce", minNonce)
	return e.emit(EventCancelAllOrders, e.now(), map[string]string{
		"user":        hexAddr(caller),
		"newMinNonce": u64(minNonce),
	}), nil
}

// CancelMultipleMakerOrders cancels the listed caller nonces, all or none.
func (e *Exchange) CancelMultipleMakerOrders(caller common.Address, nonces []uint64) (Event, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.nonces.CancelMany(caller, nonces); err != nil {
		return Event{}, err
	}
	e.metrics.ObserveCancel("many")
	e.log.Infow("orders_cancelled", "user", caller.Hex(), "count", len(nonces))

	list := make([]string, len(nonces))
	for i, n := range nonces {
		list[i] = u64(n)
	}
	return e.emit(EventCancelMultipleOrders, e.now(), map[string]string{
		"user":        hexAddr(caller),
		"orderNonces": strings.Join(list, ","),
	}), nil
}
