package dex

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sui-indexer/onchain-indexer/internal/rpc"
	"github.com/sui-indexer/onchain-indexer/internal/store"
)

// fakeRPC serves canned get-object responses keyed by object id.
type fakeRPC struct {
	objects map[string]rpc.Object
	calls   []string
}

func (f *fakeRPC) GetObjectWithOptions(ctx context.Context, objectID string) (rpc.Object, error) {
	f.calls = append(f.calls, objectID)
	if obj, ok := f.objects[objectID]; ok {
		return obj, nil
	}
	return rpc.Object{ObjectID: objectID}, nil
}

func (f *fakeRPC) DevInspectTransactionBlock(ctx context.Context, sender string, ptb []byte) ([][]byte, error) {
	return nil, nil
}

func (f *fakeRPC) GetOwnedObjects(ctx context.Context, owner string, filter rpc.ObjectFilter, cursor string) (rpc.ObjectPage, error) {
	return rpc.ObjectPage{}, nil
}

// fakeStore records pool and tick upserts.
type fakeStore struct {
	pools []store.PoolUpsert
	ticks []store.PoolTickUpsert
}

func (s *fakeStore) UpsertPool(ctx context.Context, u store.PoolUpsert) error {
	s.pools = append(s.pools, u)
	return nil
}

func (s *fakeStore) UpsertPoolTick(ctx context.Context, u store.PoolTickUpsert) error {
	s.ticks = append(s.ticks, u)
	return nil
}

func (s *fakeStore) UpsertCoin(ctx context.Context, u store.CoinUpsert) error { return nil }
func (s *fakeStore) ApplyPriceSnapshot(ctx context.Context, u store.PriceSnapshotUpsert) error {
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

func addrBytes(fill byte) []byte {
	b := make([]byte, 32)
	for i := range b {
		b[i] = fill
	}
	return b
}

func addrHex(fill byte) string {
	return "0x" + strings.Repeat(fmt.Sprintf("%02x", fill), 32)
}

func appendU64(b []byte, v uint64) []byte {
	var t [8]byte
	binary.LittleEndian.PutUint64(t[:], v)
	return append(b, t[:]...)
}

func appendU128(b []byte, lo, hi uint64) []byte {
	return appendU64(appendU64(b, lo), hi)
}

func appendU32(b []byte, v uint32) []byte {
	var t [4]byte
	binary.LittleEndian.PutUint32(t[:], v)
	return append(b, t[:]...)
}

func poolObject(objType string, fields interface{}) rpc.Object {
	raw, _ := json.Marshal(fields)
	return rpc.Object{Type: objType, Fields: raw}
}
