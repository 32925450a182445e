package codec

import "encoding/json"

// Navi decodes the asset-index lending events. Navi keys portfolios
// directly on the sender address; there is no obligation object, so
// LendingActionRecord.ObligationID is always empty.
type Navi struct{}

// DecodeActionRaw decodes the shared deposit/withdraw/borrow/repay wire
// layout: reserve u8, sender address, [to address, for withdraw only],
// amount u64. withdraw carries an extra `to` field the core does not need.
func (Navi) DecodeActionRaw(b []byte, hasTo bool) (LendingActionRecord, error) {
	r := newByteReader(b)
	reserve, err := r.u8()
	if err != nil {
		return LendingActionRecord{}, ErrInvalidPayload
	}
	sender, err := r.address()
	if err != nil {
		return LendingActionRecord{}, ErrInvalidPayload
	}
	if hasTo {
		if _, err := r.address(); err != nil {
			return LendingActionRecord{}, ErrInvalidPayload
		}
	}
	amount, err := r.u64()
	if err != nil {
		return LendingActionRecord{}, ErrInvalidPayload
	}
	return LendingActionRecord{
		Sender:       sender,
		ReserveIndex: reserve,
		Amount:       amount,
	}, nil
}

type naviActionEventJSON struct {
	Reserve uint8  `json:"reserve"`
	Sender  string `json:"sender"`
	To      string `json:"to,omitempty"`
	Amount  string `json:"amount"`
}

func (Navi) DecodeActionJSON(data json.RawMessage) (LendingActionRecord, error) {
	var ev naviActionEventJSON
	if err := json.Unmarshal(data, &ev); err != nil {
		return LendingActionRecord{}, ErrInvalidPayload
	}
	amount, err := parseUint64(ev.Amount)
	if err != nil {
		return LendingActionRecord{}, err
	}
	return LendingActionRecord{
		Sender:       ev.Sender,
		ReserveIndex: ev.Reserve,
		Amount:       amount,
	}, nil
}
