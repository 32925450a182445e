package codec

import (
	"encoding/binary"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTickSignRoundTrip(t *testing.T) {
	samples := []int32{0, 1, -1, 443636, -443636, math.MaxInt32, math.MinInt32, 100, -100}
	for _, want := range samples {
		bits := BitsFromI32(want)
		got := I32FromBits(bits)
		require.Equal(t, want, got, "round trip for %d via bits %d", want, bits)
	}
}

func TestI32FromBitsSignBit(t *testing.T) {
	require.Equal(t, int32(5), I32FromBits(5))
	require.Equal(t, int32(-5), I32FromBits(BitsFromI32(-5)))
}

func TestU128DecimalString(t *testing.T) {
	require.Equal(t, "0", u128DecimalString(0, 0))
	require.Equal(t, "12345", u128DecimalString(12345, 0))
	require.Equal(t, "18446744073709551615", u128DecimalString(math.MaxUint64, 0))
	// 2^64 = hi limb 1, lo limb 0.
	require.Equal(t, "18446744073709551616", u128DecimalString(0, 1))
	// 2^128 - 1.
	require.Equal(t, "340282366920938463463374607431768211455", u128DecimalString(math.MaxUint64, math.MaxUint64))
}

func TestByteReaderULEB128(t *testing.T) {
	r := newByteReader([]byte{0x80, 0x01, 'h', 'i'})
	n, err := r.uleb128Len()
	require.NoError(t, err)
	require.Equal(t, 128, n)

	r = newByteReader(append([]byte{2}, []byte("hi")...))
	v, err := r.bytesVec()
	require.NoError(t, err)
	require.Equal(t, "hi", string(v))
}

func TestByteReaderTruncationIsInvalidPayload(t *testing.T) {
	r := newByteReader([]byte{1, 2, 3})
	_, err := r.u64()
	require.ErrorIs(t, err, ErrInvalidPayload)

	r = newByteReader([]byte{5, 'a'})
	_, err = r.bytesVec()
	require.ErrorIs(t, err, ErrInvalidPayload)
}

func addr(fill byte) []byte {
	b := make([]byte, 32)
	for i := range b {
		b[i] = fill
	}
	return b
}

func addrHex(fill byte) string {
	var sb strings.Builder
	sb.WriteString("0x")
	for i := 0; i < 32; i++ {
		sb.WriteByte("0123456789abcdef"[fill>>4])
		sb.WriteByte("0123456789abcdef"[fill&0x0f])
	}
	return sb.String()
}

func u64le(v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return b[:]
}

func u32le(v uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return b[:]
}

func TestCetusLiquidityRawDecode(t *testing.T) {
	var b []byte
	b = append(b, addr(0xA1)...)
	b = append(b, addr(0xB2)...)
	b = append(b, u32le(BitsFromI32(-443636))...)
	b = append(b, u32le(BitsFromI32(443636))...)
	b = append(b, u64le(12345)...) // liquidity lo
	b = append(b, u64le(0)...)     // liquidity hi
	b = append(b, u64le(99999)...) // after lo
	b = append(b, u64le(0)...)     // after hi
	b = append(b, u64le(10)...)    // amount_a
	b = append(b, u64le(20)...)    // amount_b

	rec, err := Cetus{}.DecodeAddLiquidityRaw(b)
	require.NoError(t, err)
	require.Equal(t, addrHex(0xA1), rec.PoolID)
	require.Equal(t, addrHex(0xB2), rec.PositionID)
	require.Equal(t, int32(-443636), rec.TickLower)
	require.Equal(t, int32(443636), rec.TickUpper)
	require.Equal(t, "12345", rec.Liquidity)
	require.Equal(t, "99999", rec.AfterLiquidity)
	require.Equal(t, uint64(10), rec.AmountA)
	require.Equal(t, uint64(20), rec.AmountB)
	require.True(t, rec.HasLiquidity)
}

func TestCetusLiquidityJSONMatchesRaw(t *testing.T) {
	raw := func() []byte {
		var b []byte
		b = append(b, addr(0xA1)...)
		b = append(b, addr(0xB2)...)
		b = append(b, u32le(BitsFromI32(-60))...)
		b = append(b, u32le(BitsFromI32(60))...)
		b = append(b, u64le(777)...)
		b = append(b, u64le(0)...)
		b = append(b, u64le(777)...)
		b = append(b, u64le(0)...)
		b = append(b, u64le(1)...)
		b = append(b, u64le(2)...)
		return b
	}()
	fromRaw, err := Cetus{}.DecodeAddLiquidityRaw(raw)
	require.NoError(t, err)

	jsonForm := []byte(`{
		"pool": "` + addrHex(0xA1) + `",
		"position": "` + addrHex(0xB2) + `",
		"tick_lower": {"bits": ` + "4294967236" + `},
		"tick_upper": {"bits": 60},
		"liquidity": "777",
		"after_liquidity": "777",
		"amount_a": "1",
		"amount_b": "2"
	}`)
	fromJSON, err := Cetus{}.DecodeAddLiquidityJSON(jsonForm)
	require.NoError(t, err)

	require.Equal(t, fromRaw, fromJSON, "the two codecs target one canonical record")
}

func TestScallopActionRawDecode(t *testing.T) {
	coinType := "0x2::sui::SUI"
	var b []byte
	b = append(b, addr(0x01)...)
	b = append(b, addr(0x02)...)
	b = append(b, byte(len(coinType)))
	b = append(b, coinType...)
	b = append(b, u64le(500)...)

	rec, err := Scallop{}.DecodeActionRaw(b, 0)
	require.NoError(t, err)
	require.Equal(t, addrHex(0x01), rec.Sender)
	require.Equal(t, addrHex(0x02), rec.ObligationID)
	require.Equal(t, coinType, rec.CoinType)
	require.Equal(t, uint64(500), rec.Amount)

	// A borrow payload carries trailing fee/timestamp u64s past amount.
	borrow := append(append([]byte{}, b...), u64le(1)...)
	borrow = append(borrow, u64le(2)...)
	borrow = append(borrow, u64le(3)...)
	borrow = append(borrow, u64le(4)...)
	rec, err = Scallop{}.DecodeActionRaw(borrow, 4)
	require.NoError(t, err)
	require.Equal(t, uint64(500), rec.Amount)

	// The same payload without them is truncated.
	_, err = Scallop{}.DecodeActionRaw(b, 4)
	require.ErrorIs(t, err, ErrInvalidPayload)
}

func TestSuiLendActionRawDecode(t *testing.T) {
	coinType := "0x5::usdc::USDC"
	var b []byte
	b = append(b, addr(0x10)...) // lending_market_id
	b = append(b, byte(len(coinType)))
	b = append(b, coinType...)
	b = append(b, addr(0x20)...) // reserve_id
	b = append(b, addr(0x30)...) // obligation_id
	b = append(b, u64le(900)...)

	rec, err := SuiLend{}.DecodeActionRaw(b, 0)
	require.NoError(t, err)
	require.Empty(t, rec.Sender, "the payload carries no sender")
	require.Equal(t, addrHex(0x30), rec.ObligationID)
	require.Equal(t, coinType, rec.CoinType)
	require.Equal(t, uint64(900), rec.Amount)
}

func TestNaviActionRawDecode(t *testing.T) {
	var b []byte
	b = append(b, 5)
	b = append(b, addr(0x44)...)
	b = append(b, u64le(1000)...)

	rec, err := Navi{}.DecodeActionRaw(b, false)
	require.NoError(t, err)
	require.Equal(t, uint8(5), rec.ReserveIndex)
	require.Equal(t, addrHex(0x44), rec.Sender)
	require.Equal(t, uint64(1000), rec.Amount)
	require.Empty(t, rec.ObligationID)

	// Withdraw carries a `to` address between sender and amount.
	var w []byte
	w = append(w, 5)
	w = append(w, addr(0x44)...)
	w = append(w, addr(0x55)...)
	w = append(w, u64le(1000)...)
	rec, err = Navi{}.DecodeActionRaw(w, true)
	require.NoError(t, err)
	require.Equal(t, uint64(1000), rec.Amount)
}

func TestPythUpdateRawDecode(t *testing.T) {
	feedID := []byte{0xAB, 0xCD, 0xEF}
	price := func(neg bool, mag uint64, expoNeg bool, expoMag uint64, ts uint64) []byte {
		var b []byte
		if neg {
			b = append(b, 1)
		} else {
			b = append(b, 0)
		}
		b = append(b, u64le(mag)...)
		b = append(b, u64le(7)...) // conf
		if expoNeg {
			b = append(b, 1)
		} else {
			b = append(b, 0)
		}
		b = append(b, u64le(expoMag)...)
		b = append(b, u64le(ts)...)
		return b
	}

	var b []byte
	b = append(b, byte(len(feedID)))
	b = append(b, feedID...)
	b = append(b, price(false, 654321, true, 8, 1700000000)...) // spot
	b = append(b, price(false, 654000, true, 8, 1700000000)...) // ema
	b = append(b, u64le(1700000000)...)                         // outer timestamp

	rec, err := Pyth{}.DecodeUpdateRaw(b)
	require.NoError(t, err)
	require.Equal(t, feedID, rec.FeedIDBytes)
	require.Equal(t, uint64(654321), rec.SpotMagnitude)
	require.False(t, rec.SpotNegative)
	require.Equal(t, uint64(654000), rec.EMAMagnitude)
	require.Equal(t, uint64(8), rec.ExpoMagnitude)
	require.True(t, rec.ExpoNegative)
	require.Equal(t, uint64(1700000000), rec.PublishTimestamp)
	require.Equal(t, "0xabcdef", FeedIDHex(rec.FeedIDBytes))
}

func TestBluemoveAndAftermathSwapRawDecode(t *testing.T) {
	payload := append(addr(0x77), []byte("trailing fields the core skips")...)

	bm, err := Bluemove{}.DecodeSwapRaw(payload)
	require.NoError(t, err)
	require.Equal(t, addrHex(0x77), bm.PoolID)

	am, err := Aftermath{}.DecodeSwapRaw(payload)
	require.NoError(t, err)
	require.Equal(t, addrHex(0x77), am.PoolID)
}

func TestTurbosMintRawDecode(t *testing.T) {
	var b []byte
	b = append(b, addr(0x66)...)
	b = append(b, addr(0x67)...)
	b = append(b, u32le(BitsFromI32(-100))...)
	b = append(b, u32le(BitsFromI32(100))...)
	b = append(b, u64le(1)...)
	b = append(b, u64le(2)...)
	b = append(b, u64le(333)...)
	b = append(b, u64le(0)...)

	ev, err := Turbos{}.DecodeMintRaw(b)
	require.NoError(t, err)
	require.Equal(t, addrHex(0x66), ev.PoolID)
	require.Equal(t, addrHex(0x67), ev.Owner)
	require.Equal(t, int32(-100), ev.TickLower)
	require.Equal(t, "333", ev.Liquidity)
}
