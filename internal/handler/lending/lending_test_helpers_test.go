package lending

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sui-indexer/onchain-indexer/internal/rpc"
	"github.com/sui-indexer/onchain-indexer/internal/store"
)

// Raw-event encoding helpers: the wire layouts under test are fixed-width
// little-endian fields plus ULEB128-length-prefixed strings, so tests
// assemble payloads by hand.

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

// appendShortVec length-prefixes s as a single ULEB128 byte; every string
// under test is shorter than 128 bytes.
func appendShortVec(b []byte, s string) []byte {
	return append(append(b, byte(len(s))), s...)
}

// fakeRPC is a rpc.Client test double whose dev-inspect, get-object and
// owned-objects responses are supplied per test, since the real client
// talks to a live RPC endpoint.
type fakeRPC struct {
	devInspectFn func(sender string, ptb []byte) ([][]byte, error)
	getObjectFn  func(objectID string) (uint64, error)
	objects      map[string]rpc.Object
	ownedPage    rpc.ObjectPage
}

func (f *fakeRPC) GetObjectWithOptions(ctx context.Context, objectID string) (rpc.Object, error) {
	if obj, ok := f.objects[objectID]; ok {
		return obj, nil
	}
	if f.getObjectFn != nil {
		v, err := f.getObjectFn(objectID)
		return rpc.Object{ObjectID: objectID, InitialSharedVersion: v}, err
	}
	return rpc.Object{}, nil
}

func (f *fakeRPC) DevInspectTransactionBlock(ctx context.Context, sender string, ptb []byte) ([][]byte, error) {
	if f.devInspectFn != nil {
		return f.devInspectFn(sender, ptb)
	}
	return nil, nil
}

func (f *fakeRPC) GetOwnedObjects(ctx context.Context, owner string, filter rpc.ObjectFilter, cursor string) (rpc.ObjectPage, error) {
	return f.ownedPage, nil
}

// obligationCapRPC wires one ObligationOwnerCap naming obligationID into
// a fakeRPC, enough for the SuiLend ownership check to pass.
func obligationCapRPC(obligationID string) *fakeRPC {
	fields, _ := json.Marshal(map[string]string{"obligation_id": obligationID})
	return &fakeRPC{
		objects: map[string]rpc.Object{
			"0xcap": {ObjectID: "0xcap", Fields: fields},
		},
		ownedPage: rpc.ObjectPage{Data: []rpc.ObjectRef{{ObjectID: "0xcap"}}},
	}
}

// fakeStore implements store.Store, recording the calls each lending test
// cares about.
type fakeStore struct {
	borrowers          map[string]store.Borrower
	deposits           []store.UserDepositUpsert
	borrows            []store.UserBorrowUpsert
	coins              []store.CoinUpsert
	sharedObjects      map[string]uint64
	setObligationCalls []string
	createBorrowerErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		borrowers:     make(map[string]store.Borrower),
		sharedObjects: make(map[string]uint64),
	}
}

func (s *fakeStore) UpsertPool(ctx context.Context, u store.PoolUpsert) error         { return nil }
func (s *fakeStore) UpsertPoolTick(ctx context.Context, u store.PoolTickUpsert) error { return nil }
func (s *fakeStore) UpsertCoin(ctx context.Context, u store.CoinUpsert) error {
	s.coins = append(s.coins, u)
	return nil
}
func (s *fakeStore) ApplyPriceSnapshot(ctx context.Context, u store.PriceSnapshotUpsert) error {
	return nil
}

func (s *fakeStore) GetOrCreateBorrower(ctx context.Context, platform, address string) (store.Borrower, bool, error) {
	if s.createBorrowerErr != nil {
		return store.Borrower{}, false, s.createBorrowerErr
	}
	key := platform + "|" + address
	if b, ok := s.borrowers[key]; ok {
		return b, false, nil
	}
	b := store.Borrower{Platform: platform, Address: address, Status: store.BorrowerPending}
	s.borrowers[key] = b
	return b, true, nil
}

func (s *fakeStore) SetBorrowerObligation(ctx context.Context, platform, address, obligationID string) error {
	s.setObligationCalls = append(s.setObligationCalls, obligationID)
	key := platform + "|" + address
	b := s.borrowers[key]
	b.ObligationID.SetValid(obligationID)
	s.borrowers[key] = b
	return nil
}

func (s *fakeStore) UpsertUserDeposit(ctx context.Context, u store.UserDepositUpsert) error {
	s.deposits = append(s.deposits, u)
	return nil
}

func (s *fakeStore) UpsertUserBorrow(ctx context.Context, u store.UserBorrowUpsert) error {
	s.borrows = append(s.borrows, u)
	return nil
}

func (s *fakeStore) GetSharedObject(ctx context.Context, objectID string) (store.SharedObject, bool, error) {
	v, ok := s.sharedObjects[objectID]
	if !ok {
		return store.SharedObject{}, false, nil
	}
	return store.SharedObject{ObjectID: objectID, InitialSharedVersion: v}, true, nil
}

func (s *fakeStore) PutSharedObject(ctx context.Context, objectID string, initialSharedVersion uint64) error {
	s.sharedObjects[objectID] = initialSharedVersion
	return nil
}

func (s *fakeStore) LatestMetric(ctx context.Context) (*store.Metric, error) { return nil, nil }
func (s *fakeStore) InsertMetric(ctx context.Context, m store.Metric) error  { return nil }
