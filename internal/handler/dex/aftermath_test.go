package dex

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sui-indexer/onchain-indexer/internal/rpc"
)

func TestAftermathDescalesBalancesByCoinScalar(t *testing.T) {
	pool := addrHex(0xC1)
	rpcClient := &fakeRPC{objects: map[string]rpc.Object{
		pool: poolObject(
			"0xaftermath::pool::Pool<0x2::sui::SUI, 0x5::usdc::USDC>",
			map[string]interface{}{
				"balances": map[string]string{
					"0x2::sui::SUI":   "5000000000000000000",
					"0x5::usdc::USDC": "1250000000",
				},
				"decimal_scalars": map[string]string{
					"0x2::sui::SUI":   "1000000000",
					"0x5::usdc::USDC": "1000000",
				},
			},
		),
	}}
	st := &fakeStore{}
	h := NewAftermath(rpcClient, st)

	_, err := h.ProcessRawEvent(context.Background(), AftermathSwapEventType, addrHex(0x01), addrBytes(0xC1), "0xdigest")
	require.NoError(t, err)

	require.Len(t, st.pools, 1)
	require.Equal(t, []string{"5000000000.000000000", "1250.000000000"}, st.pools[0].Reserves)
}

func TestDescaleBalanceHandlesZeroAndMalformedScalars(t *testing.T) {
	require.Equal(t, "100", descaleBalance("100", "0"), "zero scalar leaves the raw balance")
	require.Equal(t, "100", descaleBalance("100", "not-a-number"))
	require.Equal(t, "0", descaleBalance("garbage", "10"))
}

func TestBluemoveSwapStoresRawReserves(t *testing.T) {
	pool := addrHex(0xD1)
	rpcClient := &fakeRPC{objects: map[string]rpc.Object{
		pool: poolObject(
			"0xbluemove::swap::Pool<0x2::sui::SUI, 0x5::usdc::USDC>",
			map[string]string{"reserve_x": "1000", "reserve_y": "2000"},
		),
	}}
	st := &fakeStore{}
	h := NewBluemove(rpcClient, st)

	_, err := h.ProcessRawEvent(context.Background(), BluemoveSwapEventType, addrHex(0x01), addrBytes(0xD1), "0xdigest")
	require.NoError(t, err)

	require.Len(t, st.pools, 1)
	require.Equal(t, []string{"1000", "2000"}, st.pools[0].Reserves)
	require.Empty(t, st.ticks, "constant-product pools never write ticks")
}
