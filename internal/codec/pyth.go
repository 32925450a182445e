package codec

import (
	"encoding/hex"
	"encoding/json"
)

// Pyth decodes price-feed update events. Price and exponent are carried as
// unsigned magnitude + sign bit, exactly as emitted on chain; the handler
// renders the feed id as 0x-hex and passes the signed-magnitude pair
// through unchanged, leaving recomposition to readers.
type Pyth struct{}

// DecodeUpdateRaw decodes a PriceFeedUpdateEvent: price_feed.price_identifier
// (bytes vec), price_feed.price (I64 price: {negative bool, magnitude u64},
// conf u64, expo I64, timestamp u64), price_feed.ema_price (same shape),
// then the outer timestamp u64.
func (Pyth) DecodeUpdateRaw(b []byte) (PriceUpdateRecord, error) {
	r := newByteReader(b)
	feedID, err := r.bytesVec()
	if err != nil {
		return PriceUpdateRecord{}, ErrInvalidPayload
	}
	spotNeg, spotMag, expoNeg, expoMag, _, publishTS, err := readPythPrice(r)
	if err != nil {
		return PriceUpdateRecord{}, err
	}
	emaNeg, emaMag, _, _, _, _, err := readPythPrice(r)
	if err != nil {
		return PriceUpdateRecord{}, err
	}
	if _, err := r.u64(); err != nil { // outer timestamp, redundant with price.timestamp
		return PriceUpdateRecord{}, ErrInvalidPayload
	}
	return PriceUpdateRecord{
		FeedIDBytes:      feedID,
		SpotMagnitude:    spotMag,
		SpotNegative:     spotNeg,
		EMAMagnitude:     emaMag,
		EMANegative:      emaNeg,
		ExpoMagnitude:    expoMag,
		ExpoNegative:     expoNeg,
		PublishTimestamp: publishTS,
	}, nil
}

// readPythPrice reads one Price{price: I64, conf: u64, expo: I64, timestamp: u64}.
func readPythPrice(r *byteReader) (priceNeg bool, priceMag uint64, expoNeg bool, expoMag uint64, conf uint64, timestamp uint64, err error) {
	priceNeg, err = r.bool()
	if err != nil {
		return
	}
	priceMag, err = r.u64()
	if err != nil {
		return
	}
	conf, err = r.u64()
	if err != nil {
		return
	}
	expoNeg, err = r.bool()
	if err != nil {
		return
	}
	expoMag, err = r.u64()
	if err != nil {
		return
	}
	timestamp, err = r.u64()
	if err != nil {
		return
	}
	return
}

type pythI64JSON struct {
	Negative  bool   `json:"negative"`
	Magnitude string `json:"magnitude"`
}

type pythPriceJSON struct {
	Price     pythI64JSON `json:"price"`
	Conf      string      `json:"conf"`
	Expo      pythI64JSON `json:"expo"`
	Timestamp string      `json:"timestamp"`
}

type pythPriceFeedJSON struct {
	PriceIdentifier struct {
		Bytes []byte `json:"bytes"`
	} `json:"price_identifier"`
	Price    pythPriceJSON `json:"price"`
	EmaPrice pythPriceJSON `json:"ema_price"`
}

type pythUpdateEventJSON struct {
	PriceFeed pythPriceFeedJSON `json:"price_feed"`
	Timestamp string            `json:"timestamp"`
}

func (Pyth) DecodeUpdateJSON(data json.RawMessage) (PriceUpdateRecord, error) {
	var ev pythUpdateEventJSON
	if err := json.Unmarshal(data, &ev); err != nil {
		return PriceUpdateRecord{}, ErrInvalidPayload
	}
	spotMag, err := parseUint64(ev.PriceFeed.Price.Price.Magnitude)
	if err != nil {
		return PriceUpdateRecord{}, err
	}
	expoMag, err := parseUint64(ev.PriceFeed.Price.Expo.Magnitude)
	if err != nil {
		return PriceUpdateRecord{}, err
	}
	emaMag, err := parseUint64(ev.PriceFeed.EmaPrice.Price.Magnitude)
	if err != nil {
		return PriceUpdateRecord{}, err
	}
	publishTS, err := parseUint64(ev.PriceFeed.Price.Timestamp)
	if err != nil {
		return PriceUpdateRecord{}, err
	}
	return PriceUpdateRecord{
		FeedIDBytes:      ev.PriceFeed.PriceIdentifier.Bytes,
		SpotMagnitude:    spotMag,
		SpotNegative:     ev.PriceFeed.Price.Price.Negative,
		EMAMagnitude:     emaMag,
		EMANegative:      ev.PriceFeed.EmaPrice.Price.Negative,
		ExpoMagnitude:    expoMag,
		ExpoNegative:     ev.PriceFeed.Price.Expo.Negative,
		PublishTimestamp: publishTS,
	}, nil
}

// FeedIDHex renders the feed identifier bytes as a 0x-prefixed hex string,
// the canonical form used as the Coin.PythFeedID join key.
func FeedIDHex(b []byte) string {
	return "0x" + hex.EncodeToString(b)
}
