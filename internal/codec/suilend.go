package codec

import "encoding/json"

// SuiLend decodes the per-obligation lending events for the SuiLend
// platform. Unlike Scallop, the event itself carries no sender field; the
// sender comes from the enclosing transaction.
type SuiLend struct{}

// DecodeActionRaw decodes the shared deposit/withdraw/repay wire layout:
// lending_market_id address, coin_type TypeName, reserve_id address,
// obligation_id address, amount u64. Borrow additionally carries an
// origination_fee_amount u64 after the amount; extraU64Fields skips it.
func (SuiLend) DecodeActionRaw(b []byte, extraU64Fields int) (LendingActionRecord, error) {
	r := newByteReader(b)
	if _, err := r.address(); err != nil { // lending_market_id, unused by the core
		return LendingActionRecord{}, ErrInvalidPayload
	}
	coinTypeBytes, err := r.bytesVec()
	if err != nil {
		return LendingActionRecord{}, ErrInvalidPayload
	}
	if _, err := r.address(); err != nil { // reserve_id, unused by the core
		return LendingActionRecord{}, ErrInvalidPayload
	}
	obligation, err := r.address()
	if err != nil {
		return LendingActionRecord{}, ErrInvalidPayload
	}
	amount, err := r.u64()
	if err != nil {
		return LendingActionRecord{}, ErrInvalidPayload
	}
	for i := 0; i < extraU64Fields; i++ {
		if _, err := r.u64(); err != nil {
			return LendingActionRecord{}, ErrInvalidPayload
		}
	}
	return LendingActionRecord{
		ObligationID: obligation,
		CoinType:     string(coinTypeBytes),
		Amount:       amount,
	}, nil
}

type suilendActionEventJSON struct {
	LendingMarketID string       `json:"lending_market_id"`
	CoinType        jsonTypeName `json:"coin_type"`
	ReserveID       string       `json:"reserve_id"`
	ObligationID    string       `json:"obligation_id"`
	CtokenAmount    string       `json:"ctoken_amount"`
	LiquidityAmount string       `json:"liquidity_amount"`
}

func (SuiLend) DecodeDepositJSON(data json.RawMessage) (LendingActionRecord, error) {
	return decodeSuilendJSON(data, true)
}

func (SuiLend) DecodeWithdrawJSON(data json.RawMessage) (LendingActionRecord, error) {
	return decodeSuilendJSON(data, true)
}

func (SuiLend) DecodeBorrowJSON(data json.RawMessage) (LendingActionRecord, error) {
	return decodeSuilendJSON(data, false)
}

func (SuiLend) DecodeRepayJSON(data json.RawMessage) (LendingActionRecord, error) {
	return decodeSuilendJSON(data, false)
}

func decodeSuilendJSON(data json.RawMessage, ctoken bool) (LendingActionRecord, error) {
	var ev suilendActionEventJSON
	if err := json.Unmarshal(data, &ev); err != nil {
		return LendingActionRecord{}, ErrInvalidPayload
	}
	amountStr := ev.LiquidityAmount
	if ctoken {
		amountStr = ev.CtokenAmount
	}
	amount, err := parseUint64(amountStr)
	if err != nil {
		return LendingActionRecord{}, err
	}
	return LendingActionRecord{
		ObligationID: ev.ObligationID,
		CoinType:     ev.CoinType.Name,
		Amount:       amount,
	}, nil
}
