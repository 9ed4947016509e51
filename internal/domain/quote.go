package domain

import "time"

// Venue names a market platform.
type Venue string

const (
	VenueKalshi     Venue = "Kalshi"
	VenuePolymarket Venue = "Polymarket"
)

// PriceLevel is a single price+size entry in an orderbook. Price is on the
// probability scale.
type PriceLevel struct {
	Price float64 `json:"price"`
	Size  float64 `json:"size"`
}

// Quote is the venue-independent view of one binary market. BestBid and
// BestAsk are 0 when the side has no resting order. Bids are sorted
// descending and Asks ascending. A quote is never mutated after construction.
type Quote struct {
	Venue        Venue        `json:"venue"`
	Instrument   string       `json:"instrument"`
	Title        string       `json:"title,omitempty"`
	BestBid      float64      `json:"best_bid"`
	BestAsk      float64      `json:"best_ask"`
	Bids         []PriceLevel `json:"bids"`
	Asks         []PriceLevel `json:"asks"`
	LastPrice    float64      `json:"last_price,omitempty"`
	Volume24h    int64        `json:"volume_24h,omitempty"`
	OpenInterest int64        `json:"open_interest,omitempty"`
	ReceivedAt   time.Time    `json:"received_at"`
}

// HasBid reports whether the quote carries a resting bid.
func (q Quote) HasBid() bool { return q.BestBid > 0 }

// HasAsk reports whether the quote carries a resting ask.
func (q Quote) HasAsk() bool { return q.BestAsk > 0 }

// Inverted reports whether the best bid is above the best ask. Such books are
// kept as-is.
func (q Quote) Inverted() bool {
	return q.HasAsk() && q.BestBid > q.BestAsk
}

// MarketState maps each venue to its most recent quote. A venue is absent
// until its first successful fetch.
type MarketState map[Venue]Quote

// Clone returns a shallow copy of the state. Quotes are immutable values so
// sharing their level slices is safe.
func (s MarketState) Clone() MarketState {
	out := make(MarketState, len(s))
	for v, q := range s {
		out[v] = q
	}
	return out
}

// Pair returns the quotes for a and b, and whether both are present.
func (s MarketState) Pair(a, b Venue) (Quote, Quote, bool) {
	qa, okA := s[a]
	qb, okB := s[b]
	return qa, qb, okA && okB
}
