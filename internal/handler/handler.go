// Package handler defines the venue-family handler contract: every
// handler exposes EventIdentity for intra-checkpoint dedup plus
// ProcessRawEvent/ProcessTxEvent for the two surface forms of an event.
// Outcome is the classified result downstream consumers (arbitrage and
// liquidation workers) subscribe to; the indexer itself only needs
// outcomes to be producible and logged.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/sui-indexer/onchain-indexer/internal/chain"
)

// Event-level error taxonomy. Each is non-fatal: the checkpoint worker
// logs it, skips the event, and continues.
var (
	ErrInvalidPayload    = errors.New("handler: invalid payload")
	ErrUnknownEventType  = errors.New("handler: unknown event type")
	ErrOwnershipMismatch = errors.New("handler: sender does not own claimed obligation")
	ErrNotFound          = errors.New("handler: required row not found")
)

// Kind tags the structured outcome a handler invocation produces.
type Kind int

const (
	KindVoid Kind = iota
	KindDEXSwap
	KindDEXLiquidity
	KindLendingDeposit
	KindLendingWithdraw
	KindLendingBorrow
	KindLendingRepay
	KindLendingLiquidate
	KindLendingIndexUpdate
	KindOraclePrice
)

func (k Kind) String() string {
	switch k {
	case KindDEXSwap:
		return "dex_swap"
	case KindDEXLiquidity:
		return "dex_liquidity"
	case KindLendingDeposit:
		return "lending_deposit"
	case KindLendingWithdraw:
		return "lending_withdraw"
	case KindLendingBorrow:
		return "lending_borrow"
	case KindLendingRepay:
		return "lending_repay"
	case KindLendingLiquidate:
		return "lending_liquidate"
	case KindLendingIndexUpdate:
		return "lending_index_update"
	case KindOraclePrice:
		return "oracle_price"
	default:
		return "void"
	}
}

// Outcome is the classified structured result of one handler invocation.
// Fields not relevant to Kind are left at their zero value.
type Outcome struct {
	Kind     Kind
	Venue    string
	PoolID   string
	Platform string
	Sender   string
	CoinType string
	FeedID   string

	SpotMagnitude uint64
	SpotNegative  bool
	PublishTimeMs uint64
}

// Void is the outcome for an invocation that updated nothing notable.
var Void = Outcome{Kind: KindVoid}

// Handler is the three-operation contract every venue-family handler
// implements.
type Handler interface {
	// EventIdentity names the logical entity eventType/contents updates,
	// for intra-checkpoint dedup. Returns ErrInvalidPayload if the decode
	// prefix needed to name the entity fails.
	EventIdentity(eventType string, contents []byte) (chain.Identity, error)

	// ProcessRawEvent handles one event carried in its raw binary form.
	ProcessRawEvent(ctx context.Context, eventType, sender string, contents []byte, txDigest string) (Outcome, error)

	// ProcessTxEvent handles the JSON read-API form of the same event.
	ProcessTxEvent(ctx context.Context, eventType, sender string, value json.RawMessage, txDigest string) (Outcome, error)
}

// Identity joins the given parts with "|", the shape every handler's
// event identities share ("venue|type|pool_id", "platform|sender|type").
func Identity(parts ...string) chain.Identity {
	return chain.Identity(strings.Join(parts, "|"))
}

// PoolCoinsFromType extracts the ordered coin type parameters from a Move
// object type string such as "0x2::pool::Pool<0x2::sui::SUI,0x...::usdc::USDC>",
// the way handlers recover a pool's declared coin ordering since it is not
// duplicated in content.fields.
func PoolCoinsFromType(objType string) []string {
	open := strings.IndexByte(objType, '<')
	closeIdx := strings.LastIndexByte(objType, '>')
	if open < 0 || closeIdx < 0 || closeIdx < open {
		return nil
	}
	inner := objType[open+1 : closeIdx]
	parts := strings.Split(inner, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}
