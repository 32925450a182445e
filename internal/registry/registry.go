// Package registry holds the static event-type to handler dispatch map,
// partitioned by venue family so whole families can be toggled off at
// startup.
package registry

import (
	"github.com/sui-indexer/onchain-indexer/internal/handler"
	"github.com/sui-indexer/onchain-indexer/internal/handler/dex"
	"github.com/sui-indexer/onchain-indexer/internal/handler/lending"
	"github.com/sui-indexer/onchain-indexer/internal/handler/oracle"
	"github.com/sui-indexer/onchain-indexer/internal/rpc"
	"github.com/sui-indexer/onchain-indexer/internal/store"
)

// Handlers is the built event-type -> handler map. Lookup is O(1) on the
// event-type string; a missing mapping means "ignore this event", not an
// error, since a checkpoint's events are overwhelmingly unrelated to the
// curated venue set.
type Handlers struct {
	byEventType map[string]handler.Handler
}

// Options gates whole venue-family partitions, mirroring the
// arbitrage_enabled/liquidation_enabled config flags. Oracle is never
// gated.
type Options struct {
	ArbitrageEnabled   bool
	LiquidationEnabled bool
}

// New wraps an already-built event-type -> handler map, for callers (tests,
// ad-hoc tools) that want a Handlers without going through Build's venue
// wiring.
func New(byEventType map[string]handler.Handler) *Handlers {
	return &Handlers{byEventType: byEventType}
}

// Build walks the static event-type -> handler-slot mapping once at
// startup, partitioned into the dex, lending and oracle slots.
func Build(rpcClient rpc.Client, st store.Store, opts Options) *Handlers {
	h := &Handlers{byEventType: make(map[string]handler.Handler)}

	if opts.ArbitrageEnabled {
		h.addDEX(rpcClient, st)
	}
	if opts.LiquidationEnabled {
		h.addLending(rpcClient, st)
	}
	h.addOracle(st)

	return h
}

func (h *Handlers) addDEX(rpcClient rpc.Client, st store.Store) {
	cetus := dex.NewCetus(rpcClient, st)
	h.byEventType[dex.CetusSwapEventType] = cetus
	h.byEventType[dex.CetusAddLiquidityEventType] = cetus
	h.byEventType[dex.CetusRemoveLiquidityEventType] = cetus

	turbos := dex.NewTurbos(rpcClient, st)
	h.byEventType[dex.TurbosSwapEventType] = turbos
	h.byEventType[dex.TurbosMintEventType] = turbos
	h.byEventType[dex.TurbosBurnEventType] = turbos

	bluemove := dex.NewBluemove(rpcClient, st)
	h.byEventType[dex.BluemoveSwapEventType] = bluemove

	aftermath := dex.NewAftermath(rpcClient, st)
	h.byEventType[dex.AftermathSwapEventType] = aftermath
}

func (h *Handlers) addLending(rpcClient rpc.Client, st store.Store) {
	navi := lending.NewNavi(rpcClient, st)
	h.byEventType[lending.NaviDepositEventType] = navi
	h.byEventType[lending.NaviWithdrawEventType] = navi
	h.byEventType[lending.NaviBorrowEventType] = navi
	h.byEventType[lending.NaviRepayEventType] = navi
	h.byEventType[lending.NaviIndexUpdateEventType] = navi

	scallop := lending.NewScallop(rpcClient, st)
	h.byEventType[lending.ScallopDepositEventType] = scallop
	h.byEventType[lending.ScallopWithdrawEventType] = scallop
	h.byEventType[lending.ScallopBorrowEventType] = scallop
	h.byEventType[lending.ScallopRepayEventType] = scallop

	suilend := lending.NewSuiLend(rpcClient, st)
	h.byEventType[lending.SuiLendDepositEventType] = suilend
	h.byEventType[lending.SuiLendWithdrawEventType] = suilend
	h.byEventType[lending.SuiLendBorrowEventType] = suilend
	h.byEventType[lending.SuiLendRepayEventType] = suilend
}

func (h *Handlers) addOracle(st store.Store) {
	pyth := oracle.NewPyth(st)
	h.byEventType[oracle.PythPriceFeedUpdateEventType] = pyth
}

// Lookup returns the handler registered for eventType, or nil if none is
// (or the owning partition was disabled at construction).
func (h *Handlers) Lookup(eventType string) handler.Handler {
	return h.byEventType[eventType]
}
