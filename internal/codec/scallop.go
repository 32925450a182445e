package codec

import "encoding/json"

// Scallop decodes the per-obligation lending events. Every action names an
// `obligation` object id that the handler must verify actually belongs to
// the sender before acting on it.
type Scallop struct{}

// DecodeActionRaw decodes the shared deposit/withdraw/repay wire layout:
// sender address, obligation address, asset TypeName (ULEB128-len-prefixed
// UTF8 string), amount u64. Borrow additionally carries three u64 fee
// fields and a u64 timestamp after amount; extraU64Fields lets the caller skip
// past them since the core does not need them.
func (Scallop) DecodeActionRaw(b []byte, extraU64Fields int) (LendingActionRecord, error) {
	r := newByteReader(b)
	sender, err := r.address()
	if err != nil {
		return LendingActionRecord{}, ErrInvalidPayload
	}
	obligation, err := r.address()
	if err != nil {
		return LendingActionRecord{}, ErrInvalidPayload
	}
	assetNameBytes, err := r.bytesVec()
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
		Sender:       sender,
		ObligationID: obligation,
		CoinType:     string(assetNameBytes),
		Amount:       amount,
	}, nil
}

type scallopActionEventJSON struct {
	Provider      string       `json:"provider"`
	Taker         string       `json:"taker"`
	Borrower      string       `json:"borrower"`
	Repayer       string       `json:"repayer"`
	Obligation    string       `json:"obligation"`
	DepositAsset  jsonTypeName `json:"deposit_asset"`
	WithdrawAsset jsonTypeName `json:"withdraw_asset"`
	Asset2        jsonTypeName `json:"asset"`
	Amount        string       `json:"amount"`
	DepositAmount string       `json:"deposit_amount"`
	WithdrawAmt   string       `json:"withdraw_amount"`
}

type jsonTypeName struct {
	Name string `json:"name"`
}

// DecodeDepositJSON, DecodeWithdrawJSON, DecodeBorrowJSON and
// DecodeRepayJSON each target a slightly different JSON field naming
// (provider/taker/borrower/repayer for the sender, deposit_asset /
// withdraw_asset / asset for the coin type) but produce the same record.

func (Scallop) DecodeDepositJSON(data json.RawMessage) (LendingActionRecord, error) {
	var ev scallopActionEventJSON
	if err := json.Unmarshal(data, &ev); err != nil {
		return LendingActionRecord{}, ErrInvalidPayload
	}
	amount, err := parseUint64(firstNonEmpty(ev.DepositAmount, ev.Amount))
	if err != nil {
		return LendingActionRecord{}, err
	}
	return LendingActionRecord{
		Sender:       ev.Provider,
		ObligationID: ev.Obligation,
		CoinType:     ev.DepositAsset.Name,
		Amount:       amount,
	}, nil
}

func (Scallop) DecodeWithdrawJSON(data json.RawMessage) (LendingActionRecord, error) {
	var ev scallopActionEventJSON
	if err := json.Unmarshal(data, &ev); err != nil {
		return LendingActionRecord{}, ErrInvalidPayload
	}
	amount, err := parseUint64(firstNonEmpty(ev.WithdrawAmt, ev.Amount))
	if err != nil {
		return LendingActionRecord{}, err
	}
	return LendingActionRecord{
		Sender:       ev.Taker,
		ObligationID: ev.Obligation,
		CoinType:     ev.WithdrawAsset.Name,
		Amount:       amount,
	}, nil
}

func (Scallop) DecodeBorrowJSON(data json.RawMessage) (LendingActionRecord, error) {
	var ev scallopActionEventJSON
	if err := json.Unmarshal(data, &ev); err != nil {
		return LendingActionRecord{}, ErrInvalidPayload
	}
	amount, err := parseUint64(ev.Amount)
	if err != nil {
		return LendingActionRecord{}, err
	}
	return LendingActionRecord{
		Sender:       ev.Borrower,
		ObligationID: ev.Obligation,
		CoinType:     ev.Asset2.Name,
		Amount:       amount,
	}, nil
}

func (Scallop) DecodeRepayJSON(data json.RawMessage) (LendingActionRecord, error) {
	var ev scallopActionEventJSON
	if err := json.Unmarshal(data, &ev); err != nil {
		return LendingActionRecord{}, ErrInvalidPayload
	}
	amount, err := parseUint64(ev.Amount)
	if err != nil {
		return LendingActionRecord{}, err
	}
	return LendingActionRecord{
		Sender:       ev.Repayer,
		ObligationID: ev.Obligation,
		CoinType:     ev.Asset2.Name,
		Amount:       amount,
	}, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
