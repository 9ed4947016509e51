package kalshi

import (
	"encoding/json"
	"fmt"

	"github.com/alanyoungcy/arbmonitor/internal/domain"
	"github.com/alanyoungcy/arbmonitor/internal/normalize"
)

// --------------------------------------------------------------------------
// Kalshi API DTOs
// --------------------------------------------------------------------------

// KalshiMarket represents a market as returned by the Kalshi REST API.
// Prices are integer cents.
type KalshiMarket struct {
	Ticker       string `json:"ticker"`
	EventTicker  string `json:"event_ticker"`
	Title        string `json:"title"`
	Subtitle     string `json:"subtitle"`
	Status       string `json:"status"` // "open", "closed", "settled"
	YesBid       int64  `json:"yes_bid"`
	YesAsk       int64  `json:"yes_ask"`
	NoBid        int64  `json:"no_bid"`
	NoAsk        int64  `json:"no_ask"`
	LastPrice    int64  `json:"last_price"`
	Volume24H    int64  `json:"volume_24h"`
	OpenInterest int64  `json:"open_interest"`
	CloseTime    string `json:"close_time"`
}

// KalshiOrderbook holds the resting bids on both sides of a market. Either
// side is null in the API response when it is empty.
type KalshiOrderbook struct {
	Yes []KalshiPriceLevel `json:"yes"`
	No  []KalshiPriceLevel `json:"no"`
}

// KalshiPriceLevel is a single price+quantity entry in the Kalshi orderbook.
// On the wire it is a [price, quantity] pair.
type KalshiPriceLevel struct {
	Price    int64 // in cents (1-99)
	Quantity int64
}

// UnmarshalJSON accepts the [price, quantity] pair form and the object form
// {"price":..,"quantity":..}.
func (l *KalshiPriceLevel) UnmarshalJSON(data []byte) error {
	var pair []int64
	if err := json.Unmarshal(data, &pair); err == nil {
		if len(pair) != 2 {
			return fmt.Errorf("kalshi: price level has %d elements, want 2", len(pair))
		}
		l.Price, l.Quantity = pair[0], pair[1]
		return nil
	}

	var obj struct {
		Price    int64 `json:"price"`
		Quantity int64 `json:"quantity"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("kalshi: decode price level: %w", err)
	}
	l.Price, l.Quantity = obj.Price, obj.Quantity
	return nil
}

// MarshalJSON writes the pair form.
func (l KalshiPriceLevel) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int64{l.Price, l.Quantity})
}

// KalshiErrorResponse represents a Kalshi API error response.
type KalshiErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// --------------------------------------------------------------------------
// Conversion helpers
// --------------------------------------------------------------------------

// ToQuote normalizes the market and, when available, its orderbook. A nil
// orderbook yields a quote with best prices and no depth.
func (m KalshiMarket) ToQuote(ob *KalshiOrderbook) domain.Quote {
	book := normalize.CentsBook{YesBid: m.YesBid, YesAsk: m.YesAsk}
	if ob != nil {
		book.Yes = centLevels(ob.Yes)
		book.No = centLevels(ob.No)
	}

	q := normalize.Cents(book)
	q.Venue = domain.VenueKalshi
	q.Instrument = m.Ticker
	q.Title = m.Title
	q.LastPrice = normalize.Probability(m.LastPrice)
	q.Volume24h = m.Volume24H
	q.OpenInterest = m.OpenInterest
	return q
}

func centLevels(in []KalshiPriceLevel) []normalize.CentLevel {
	out := make([]normalize.CentLevel, 0, len(in))
	for _, l := range in {
		out = append(out, normalize.CentLevel{Price: l.Price, Size: l.Quantity})
	}
	return out
}
