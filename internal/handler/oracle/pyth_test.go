package oracle

import (
	"context"
	"encoding/base64"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sui-indexer/onchain-indexer/internal/handler"
	"github.com/sui-indexer/onchain-indexer/internal/store"
)

type fakeStore struct {
	snapshots []store.PriceSnapshotUpsert
	err       error
}

func (s *fakeStore) UpsertPool(ctx context.Context, u store.PoolUpsert) error         { return nil }
func (s *fakeStore) UpsertPoolTick(ctx context.Context, u store.PoolTickUpsert) error { return nil }
func (s *fakeStore) UpsertCoin(ctx context.Context, u store.CoinUpsert) error         { return nil }
func (s *fakeStore) ApplyPriceSnapshot(ctx context.Context, u store.PriceSnapshotUpsert) error {
	if s.err != nil {
		return s.err
	}
	s.snapshots = append(s.snapshots, u)
	return nil
}
func (s *fakeStore) GetOrCreateBorrower(ctx context.Context, platform, address string) (store.Borrower, bool, error) {
	return store.Borrower{}, true, nil
}
func (s *fakeStore) SetBorrowerObligation(ctx context.Context, platform, address, obligationID string) error {
	return nil
}
func (s *fakeStore) UpsertUserDeposit(ctx context.Context, u store.UserDepositUpsert) error { return nil }
func (s *fakeStore) UpsertUserBorrow(ctx context.Context, u store.UserBorrowUpsert) error   { return nil }
func (s *fakeStore) GetSharedObject(ctx context.Context, objectID string) (store.SharedObject, bool, error) {
	return store.SharedObject{}, false, nil
}
func (s *fakeStore) PutSharedObject(ctx context.Context, objectID string, initialSharedVersion uint64) error {
	return nil
}
func (s *fakeStore) LatestMetric(ctx context.Context) (*store.Metric, error) { return nil, nil }
func (s *fakeStore) InsertMetric(ctx context.Context, m store.Metric) error  { return nil }

func priceFeedJSON(feedIDBase64 string, spotMag, spotNeg, expoNeg, expoMag, ts, emaMag, emaTs string) []byte {
	return []byte(fmt.Sprintf(`{
		"price_feed": {
			"price_identifier": {"bytes": "%s"},
			"price": {
				"price": {"negative": %s, "magnitude": "%s"},
				"conf": "1",
				"expo": {"negative": %s, "magnitude": "%s"},
				"timestamp": "%s"
			},
			"ema_price": {
				"price": {"negative": false, "magnitude": "%s"},
				"conf": "1",
				"expo": {"negative": false, "magnitude": "0"},
				"timestamp": "%s"
			}
		},
		"timestamp": "%s"
	}`, feedIDBase64, spotNeg, spotMag, expoNeg, expoMag, ts, emaMag, emaTs, ts))
}

func TestPythEmptyRawIdentityFailsAndTxEventCarriesHexFeedID(t *testing.T) {
	feedID := base64.StdEncoding.EncodeToString([]byte{0xAB, 0xCD})
	h := NewPyth(&fakeStore{})

	id, err := h.EventIdentity(PythPriceFeedUpdateEventType, []byte{}) // raw path not exercised by this fixture
	require.Error(t, err)
	require.Empty(t, id)

	// ProcessTxEvent is the JSON-decode leg and is what this fixture drives.
	data := priceFeedJSON(feedID, "100", "false", "false", "2", "1000", "99", "1000")
	outcome, err := h.ProcessTxEvent(context.Background(), PythPriceFeedUpdateEventType, "0xsender", data, "0xdigest")
	require.NoError(t, err)
	require.Equal(t, handler.KindOraclePrice, outcome.Kind)
	require.Equal(t, "0xabcd", outcome.FeedID)
	require.Equal(t, uint64(100), outcome.SpotMagnitude)
	require.False(t, outcome.SpotNegative)
}

func TestPythProcessTxEventAppliesSnapshot(t *testing.T) {
	st := &fakeStore{}
	h := NewPyth(st)
	feedID := base64.StdEncoding.EncodeToString([]byte{0x01, 0x02, 0x03})

	data := priceFeedJSON(feedID, "5000", "true", "false", "8", "123456", "12", "123456")
	_, err := h.ProcessTxEvent(context.Background(), PythPriceFeedUpdateEventType, "0xsender", data, "0xdigest")
	require.NoError(t, err)
	require.Len(t, st.snapshots, 1)
	require.Equal(t, "0x010203", st.snapshots[0].FeedID)
	require.Equal(t, uint64(5000), st.snapshots[0].SpotMagnitude)
	require.True(t, st.snapshots[0].SpotNegative)
	require.Equal(t, uint64(123456), st.snapshots[0].PublishTimeMs)
}

func TestPythRejectsUnknownEventType(t *testing.T) {
	h := NewPyth(&fakeStore{})
	_, err := h.ProcessTxEvent(context.Background(), "0xother::module::Event", "0xsender", []byte(`{}`), "0xdigest")
	require.ErrorIs(t, err, handler.ErrUnknownEventType)
}

func TestPythProcessTxEventSurfacesStoreFailure(t *testing.T) {
	st := &fakeStore{err: fmt.Errorf("store: apply price snapshot: %w", store.ErrDatabase)}
	h := NewPyth(st)
	feedID := base64.StdEncoding.EncodeToString([]byte{0x01})
	data := priceFeedJSON(feedID, "1", "false", "false", "0", "1", "1", "1")

	_, err := h.ProcessTxEvent(context.Background(), PythPriceFeedUpdateEventType, "0xsender", data, "0xdigest")
	require.Error(t, err)
}
