// Package lending implements the handlers for the three lending
// platforms: Navi (asset-index), Scallop and SuiLend (per-obligation).
package lending

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/sui-indexer/onchain-indexer/internal/chain"
	"github.com/sui-indexer/onchain-indexer/internal/codec"
	"github.com/sui-indexer/onchain-indexer/internal/handler"
	"github.com/sui-indexer/onchain-indexer/internal/rpc"
	"github.com/sui-indexer/onchain-indexer/internal/store"
)

const (
	NaviDepositEventType     = "0xnavi::lending::DepositEvent"
	NaviWithdrawEventType    = "0xnavi::lending::WithdrawEvent"
	NaviBorrowEventType      = "0xnavi::lending::BorrowEvent"
	NaviRepayEventType       = "0xnavi::lending::RepayEvent"
	NaviIndexUpdateEventType = "0xnavi::lending::IndexUpdateEvent"

	// NaviStorageObjectID is the shared storage object the reserve->coin
	// lookup dev-inspects against.
	NaviStorageObjectID = "0xnavi::storage::Storage"
)

type naviIndexUpdateEventJSON struct {
	Reserve     uint8  `json:"reserve"`
	BorrowIndex string `json:"borrow_index"`
	SupplyIndex string `json:"supply_index"`
}

// Navi implements handler.Handler for the asset-index lending platform.
// Navi keys portfolios directly on the sender address; there is no
// obligation object, so ObligationID is always empty and no ownership
// check is performed.
type Navi struct {
	rpc    rpc.Client
	store  store.Store
	shared *store.SharedObjects
	codec  codec.Navi
}

func NewNavi(rpcClient rpc.Client, st store.Store) *Navi {
	return &Navi{rpc: rpcClient, store: st, shared: newSharedObjects(rpcClient, st)}
}

func (h *Navi) EventIdentity(eventType string, contents []byte) (chain.Identity, error) {
	switch eventType {
	case NaviDepositEventType, NaviWithdrawEventType, NaviBorrowEventType, NaviRepayEventType:
		rec, err := h.codec.DecodeActionRaw(contents, eventType == NaviWithdrawEventType)
		if err != nil {
			return "", handler.ErrInvalidPayload
		}
		return handler.Identity("navi", rec.Sender, actionKind(eventType)), nil
	case NaviIndexUpdateEventType:
		// The identity is keyed on the reserve index itself, not a
		// sender — every index update for one reserve is redundant with
		// the latest in the same checkpoint.
		if len(contents) < 1 {
			return "", handler.ErrInvalidPayload
		}
		return handler.Identity("navi", "index", fmt.Sprintf("%d", contents[0])), nil
	default:
		return "", handler.ErrUnknownEventType
	}
}

func actionKind(eventType string) string {
	switch eventType {
	case NaviDepositEventType:
		return "deposit"
	case NaviWithdrawEventType:
		return "withdraw"
	case NaviBorrowEventType:
		return "borrow"
	case NaviRepayEventType:
		return "repay"
	default:
		return "unknown"
	}
}

func (h *Navi) ProcessRawEvent(ctx context.Context, eventType, sender string, contents []byte, txDigest string) (handler.Outcome, error) {
	switch eventType {
	case NaviIndexUpdateEventType:
		if len(contents) < 17 {
			return handler.Outcome{}, handler.ErrInvalidPayload
		}
		reserve := contents[0]
		borrowIndex := binary.LittleEndian.Uint64(contents[1:9])
		supplyIndex := binary.LittleEndian.Uint64(contents[9:17])
		return handler.Outcome{Kind: handler.KindLendingIndexUpdate, Platform: "navi", CoinType: fmt.Sprintf("reserve-%d:%d:%d", reserve, borrowIndex, supplyIndex)}, nil
	case NaviDepositEventType, NaviWithdrawEventType, NaviBorrowEventType, NaviRepayEventType:
		rec, err := h.codec.DecodeActionRaw(contents, eventType == NaviWithdrawEventType)
		if err != nil {
			return handler.Outcome{}, handler.ErrInvalidPayload
		}
		return h.applyAction(ctx, eventType, rec)
	default:
		return handler.Outcome{}, handler.ErrUnknownEventType
	}
}

func (h *Navi) ProcessTxEvent(ctx context.Context, eventType, sender string, value json.RawMessage, txDigest string) (handler.Outcome, error) {
	switch eventType {
	case NaviIndexUpdateEventType:
		var ev naviIndexUpdateEventJSON
		if err := json.Unmarshal(value, &ev); err != nil {
			return handler.Outcome{}, handler.ErrInvalidPayload
		}
		return handler.Outcome{Kind: handler.KindLendingIndexUpdate, Platform: "navi", CoinType: fmt.Sprintf("reserve-%d:%s:%s", ev.Reserve, ev.BorrowIndex, ev.SupplyIndex)}, nil
	case NaviDepositEventType, NaviWithdrawEventType, NaviBorrowEventType, NaviRepayEventType:
		rec, err := h.codec.DecodeActionJSON(value)
		if err != nil {
			return handler.Outcome{}, err
		}
		return h.applyAction(ctx, eventType, rec)
	default:
		return handler.Outcome{}, handler.ErrUnknownEventType
	}
}

// reserveCoinType resolves a reserve index to its coin type by
// dev-inspecting the storage object; reserve indices are not exposed as
// plain object fields.
func (h *Navi) reserveCoinType(ctx context.Context, reserveIndex uint8) (string, error) {
	storageVersion, err := h.shared.InitialSharedVersion(ctx, NaviStorageObjectID)
	if err != nil {
		return "", err
	}
	out, err := h.rpc.DevInspectTransactionBlock(ctx, "", ownershipPTB(NaviStorageObjectID, storageVersion, []byte{reserveIndex}))
	if err != nil {
		return "", fmt.Errorf("navi: reserve coin type lookup: %w", err)
	}
	if len(out) == 0 {
		return fmt.Sprintf("reserve-%d", reserveIndex), nil
	}
	return string(out[0]), nil
}

func (h *Navi) applyAction(ctx context.Context, eventType string, rec codec.LendingActionRecord) (handler.Outcome, error) {
	coinType, err := h.reserveCoinType(ctx, rec.ReserveIndex)
	if err != nil {
		return handler.Outcome{}, err
	}

	if err := h.store.UpsertCoin(ctx, store.CoinUpsert{CoinType: coinType}); err != nil {
		return handler.Outcome{}, fmt.Errorf("navi: ensure coin: %w", err)
	}

	borrower, _, err := h.store.GetOrCreateBorrower(ctx, "navi", rec.Sender)
	if err != nil {
		return handler.Outcome{}, fmt.Errorf("navi: get or create borrower: %w", err)
	}

	balance, err := fetchBalance(ctx, h.rpc, h.shared, NaviStorageObjectID, rec.Sender, coinType, rec.Amount)
	if err != nil {
		return handler.Outcome{}, err
	}
	amountStr := fmt.Sprintf("%d", balance)

	switch eventType {
	case NaviDepositEventType, NaviWithdrawEventType:
		if err := h.store.UpsertUserDeposit(ctx, store.UserDepositUpsert{
			Platform: "navi",
			Borrower: borrower.Address,
			CoinType: coinType,
			Amount:   amountStr,
		}); err != nil {
			return handler.Outcome{}, fmt.Errorf("navi: upsert deposit: %w", err)
		}
		if eventType == NaviDepositEventType {
			return handler.Outcome{Kind: handler.KindLendingDeposit, Platform: "navi", Sender: rec.Sender, CoinType: coinType}, nil
		}
		return handler.Outcome{Kind: handler.KindLendingWithdraw, Platform: "navi", Sender: rec.Sender, CoinType: coinType}, nil
	case NaviBorrowEventType, NaviRepayEventType:
		if err := h.store.UpsertUserBorrow(ctx, store.UserBorrowUpsert{
			Platform: "navi",
			Borrower: borrower.Address,
			CoinType: coinType,
			Amount:   amountStr,
		}); err != nil {
			return handler.Outcome{}, fmt.Errorf("navi: upsert borrow: %w", err)
		}
		if eventType == NaviBorrowEventType {
			return handler.Outcome{Kind: handler.KindLendingBorrow, Platform: "navi", Sender: rec.Sender, CoinType: coinType}, nil
		}
		return handler.Outcome{Kind: handler.KindLendingRepay, Platform: "navi", Sender: rec.Sender, CoinType: coinType}, nil
	default:
		return handler.Outcome{}, handler.ErrUnknownEventType
	}
}

