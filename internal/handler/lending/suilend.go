package lending

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/guregu/null"

	"github.com/sui-indexer/onchain-indexer/internal/chain"
	"github.com/sui-indexer/onchain-indexer/internal/codec"
	"github.com/sui-indexer/onchain-indexer/internal/handler"
	"github.com/sui-indexer/onchain-indexer/internal/rpc"
	"github.com/sui-indexer/onchain-indexer/internal/store"
)

const (
	SuiLendDepositEventType  = "0xsuilend::lending_market::DepositEvent"
	SuiLendWithdrawEventType = "0xsuilend::lending_market::RedeemEvent"
	SuiLendBorrowEventType   = "0xsuilend::lending_market::BorrowEvent"
	SuiLendRepayEventType    = "0xsuilend::lending_market::RepayEvent"

	// SuiLendMarketObjectID is the shared lending-market object referenced
	// by every SuiLend obligation lookup.
	SuiLendMarketObjectID = "0xsuilend::lending_market::LendingMarket"

	// SuiLendObligationCapType filters get_owned_objects to the sender's
	// obligation-ownership capability objects.
	SuiLendObligationCapType = "0xsuilend::lending_market::ObligationOwnerCap"
)

// suilendBorrowExtraU64Fields accounts for the origination_fee_amount u64
// the Borrow wire layout carries after amount, per
// codec.SuiLend.DecodeActionRaw's doc comment.
const suilendBorrowExtraU64Fields = 1

// SuiLend implements handler.Handler for the per-obligation SuiLend
// lending platform. Unlike Scallop, SuiLend events never carry a sender
// address in the payload itself; the caller's enclosing transaction
// sender is the only source of it.
//
// SuiLend's owned-obligation lookup is intentionally asymmetric: a
// first-ever lookup for an address returns the fetched obligation id
// without persisting it, and only a cached row whose obligation_id has
// gone stale is overwritten.
type SuiLend struct {
	rpc    rpc.Client
	store  store.Store
	shared *store.SharedObjects
	codec  codec.SuiLend
}

func NewSuiLend(rpcClient rpc.Client, st store.Store) *SuiLend {
	return &SuiLend{rpc: rpcClient, store: st, shared: newSharedObjects(rpcClient, st)}
}

func (h *SuiLend) extraFields(eventType string) int {
	if eventType == SuiLendBorrowEventType {
		return suilendBorrowExtraU64Fields
	}
	return 0
}

func suilendActionKind(eventType string) (string, error) {
	switch eventType {
	case SuiLendDepositEventType:
		return "deposit", nil
	case SuiLendWithdrawEventType:
		return "withdraw", nil
	case SuiLendBorrowEventType:
		return "borrow", nil
	case SuiLendRepayEventType:
		return "repay", nil
	default:
		return "", handler.ErrUnknownEventType
	}
}

func (h *SuiLend) EventIdentity(eventType string, contents []byte) (chain.Identity, error) {
	kind, err := suilendActionKind(eventType)
	if err != nil {
		return "", err
	}
	rec, err := h.codec.DecodeActionRaw(contents, h.extraFields(eventType))
	if err != nil {
		return "", handler.ErrInvalidPayload
	}
	// The payload itself carries no sender; the identity is keyed on the
	// obligation id instead, which is unique to one owner.
	return handler.Identity("suilend", rec.ObligationID, kind), nil
}

func (h *SuiLend) ProcessRawEvent(ctx context.Context, eventType, sender string, contents []byte, txDigest string) (handler.Outcome, error) {
	if _, err := suilendActionKind(eventType); err != nil {
		return handler.Outcome{}, err
	}
	rec, err := h.codec.DecodeActionRaw(contents, h.extraFields(eventType))
	if err != nil {
		return handler.Outcome{}, handler.ErrInvalidPayload
	}
	rec.Sender = sender
	return h.applyAction(ctx, eventType, rec)
}

func (h *SuiLend) ProcessTxEvent(ctx context.Context, eventType, sender string, value json.RawMessage, txDigest string) (handler.Outcome, error) {
	var (
		rec codec.LendingActionRecord
		err error
	)
	switch eventType {
	case SuiLendDepositEventType:
		rec, err = h.codec.DecodeDepositJSON(value)
	case SuiLendWithdrawEventType:
		rec, err = h.codec.DecodeWithdrawJSON(value)
	case SuiLendBorrowEventType:
		rec, err = h.codec.DecodeBorrowJSON(value)
	case SuiLendRepayEventType:
		rec, err = h.codec.DecodeRepayJSON(value)
	default:
		return handler.Outcome{}, handler.ErrUnknownEventType
	}
	if err != nil {
		return handler.Outcome{}, err
	}
	rec.Sender = sender
	return h.applyAction(ctx, eventType, rec)
}

func (h *SuiLend) applyAction(ctx context.Context, eventType string, rec codec.LendingActionRecord) (handler.Outcome, error) {
	owns, err := h.senderOwnsObligation(ctx, rec.Sender, rec.ObligationID)
	if err != nil {
		return handler.Outcome{}, err
	}
	if !owns {
		return handler.Outcome{}, handler.ErrOwnershipMismatch
	}

	if err := h.store.UpsertCoin(ctx, store.CoinUpsert{CoinType: rec.CoinType}); err != nil {
		return handler.Outcome{}, fmt.Errorf("suilend: ensure coin: %w", err)
	}

	if err := h.cacheObligation(ctx, rec.Sender, rec.ObligationID); err != nil {
		return handler.Outcome{}, err
	}

	balance, err := fetchBalance(ctx, h.rpc, h.shared, SuiLendMarketObjectID, rec.Sender, rec.CoinType, rec.Amount)
	if err != nil {
		return handler.Outcome{}, err
	}
	amountStr := fmt.Sprintf("%d", balance)

	switch eventType {
	case SuiLendDepositEventType, SuiLendWithdrawEventType:
		if err := h.store.UpsertUserDeposit(ctx, store.UserDepositUpsert{
			Platform:     "suilend",
			Borrower:     rec.Sender,
			CoinType:     rec.CoinType,
			Amount:       amountStr,
			ObligationID: null.StringFrom(rec.ObligationID),
		}); err != nil {
			return handler.Outcome{}, fmt.Errorf("suilend: upsert deposit: %w", err)
		}
		if eventType == SuiLendDepositEventType {
			return handler.Outcome{Kind: handler.KindLendingDeposit, Platform: "suilend", Sender: rec.Sender, CoinType: rec.CoinType}, nil
		}
		return handler.Outcome{Kind: handler.KindLendingWithdraw, Platform: "suilend", Sender: rec.Sender, CoinType: rec.CoinType}, nil
	case SuiLendBorrowEventType, SuiLendRepayEventType:
		if err := h.store.UpsertUserBorrow(ctx, store.UserBorrowUpsert{
			Platform:     "suilend",
			Borrower:     rec.Sender,
			CoinType:     rec.CoinType,
			Amount:       amountStr,
			ObligationID: null.StringFrom(rec.ObligationID),
		}); err != nil {
			return handler.Outcome{}, fmt.Errorf("suilend: upsert borrow: %w", err)
		}
		if eventType == SuiLendBorrowEventType {
			return handler.Outcome{Kind: handler.KindLendingBorrow, Platform: "suilend", Sender: rec.Sender, CoinType: rec.CoinType}, nil
		}
		return handler.Outcome{Kind: handler.KindLendingRepay, Platform: "suilend", Sender: rec.Sender, CoinType: rec.CoinType}, nil
	default:
		return handler.Outcome{}, handler.ErrUnknownEventType
	}
}

// senderOwnsObligation verifies the claimed obligation against the
// sender's ObligationOwnerCap objects: unlike Scallop's dev-inspect
// capability check, SuiLend exposes ownership directly as owned cap
// objects, so the check pages through get_owned_objects and reads each
// cap's obligation_id field. No cap naming the obligation means the
// sender does not own it.
func (h *SuiLend) senderOwnsObligation(ctx context.Context, sender, obligationID string) (bool, error) {
	cursor := ""
	for {
		page, err := h.rpc.GetOwnedObjects(ctx, sender, rpc.ObjectFilter{StructType: SuiLendObligationCapType}, cursor)
		if err != nil {
			return false, fmt.Errorf("suilend: list obligation caps: %w", err)
		}
		for _, ref := range page.Data {
			obj, err := h.rpc.GetObjectWithOptions(ctx, ref.ObjectID)
			if err != nil {
				return false, fmt.Errorf("suilend: fetch obligation cap %s: %w", ref.ObjectID, err)
			}
			var f struct {
				ObligationID string `json:"obligation_id"`
			}
			if len(obj.Fields) > 0 && json.Unmarshal(obj.Fields, &f) == nil && f.ObligationID == obligationID {
				return true, nil
			}
		}
		if !page.HasNext {
			return false, nil
		}
		cursor = page.NextCursor
	}
}

// cacheObligation implements the asymmetric caching behavior: a
// first-ever lookup (the Borrower row was just created by this call)
// leaves the obligation id unpersisted, since GetOrCreateBorrower's zero
// value already reflects "no confirmed obligation yet". Only a
// pre-existing row whose cached obligation_id has gone stale is
// overwritten.
func (h *SuiLend) cacheObligation(ctx context.Context, sender, obligationID string) error {
	borrower, created, err := h.store.GetOrCreateBorrower(ctx, "suilend", sender)
	if err != nil {
		return fmt.Errorf("suilend: get or create borrower: %w", err)
	}
	if created {
		return nil
	}
	if borrower.ObligationID.Valid && borrower.ObligationID.String == obligationID {
		return nil
	}
	if err := h.store.SetBorrowerObligation(ctx, "suilend", sender, obligationID); err != nil {
		return fmt.Errorf("suilend: set borrower obligation: %w", err)
	}
	return nil
}
