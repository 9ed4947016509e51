// Package normalize converts venue-native orderbook payloads into
// domain.Quote values on the probability scale.
package normalize

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/arbmonitor/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// Limits on decimal strings accepted by ParseFloat. Converting a value with
// an extreme exponent to float64 does not finish in practical time.
const (
	maxDecimalLen      = 64
	maxDecimalExponent = 32
	maxDecimalDigits   = 32
)

// CentLevel is a price+size pair quoted in integer cents.
type CentLevel struct {
	Price int64
	Size  int64
}

// CentsBook is a cent-quoted binary market. Yes holds resting bids for the
// yes outcome and No holds resting bids for the no outcome. Nil depth means
// the depth request was unavailable.
type CentsBook struct {
	YesBid int64
	YesAsk int64
	Yes    []CentLevel
	No     []CentLevel
}

// StringLevel is a price+size pair encoded as decimal strings.
type StringLevel struct {
	Price string
	Size  string
}

// Probability converts a cent quote to the probability scale, so 60 becomes
// exactly 0.6.
func Probability(cents int64) float64 {
	return decimal.New(cents, -2).InexactFloat64()
}

// complement converts a no-side cent price into the equivalent yes ask.
func complement(cents int64) float64 {
	return hundred.Sub(decimal.NewFromInt(cents)).Div(hundred).InexactFloat64()
}

// Cents normalizes a cent-quoted book. Best prices come from the top-level
// yes_bid/yes_ask quotes. A no bid at p cents is a yes ask at 100-p.
func Cents(book CentsBook) domain.Quote {
	bids := make([]domain.PriceLevel, 0, len(book.Yes))
	for _, l := range book.Yes {
		bids = append(bids, domain.PriceLevel{Price: Probability(l.Price), Size: float64(l.Size)})
	}
	asks := make([]domain.PriceLevel, 0, len(book.No))
	for _, l := range book.No {
		asks = append(asks, domain.PriceLevel{Price: complement(l.Price), Size: float64(l.Size)})
	}
	sortBids(bids)
	sortAsks(asks)

	return domain.Quote{
		BestBid: Probability(book.YesBid),
		BestAsk: Probability(book.YesAsk),
		Bids:    bids,
		Asks:    asks,
	}
}

// Decimal normalizes a book whose levels are decimal strings. A field that
// fails to parse becomes 0 and its level is kept.
func Decimal(bids, asks []StringLevel) domain.Quote {
	b := parseLevels(bids)
	a := parseLevels(asks)
	sortBids(b)
	sortAsks(a)

	q := domain.Quote{Bids: b, Asks: a}
	if len(b) > 0 {
		q.BestBid = b[0].Price
	}
	if len(a) > 0 {
		q.BestAsk = a[0].Price
	}
	return q
}

// ParseFloat parses a decimal string, returning 0 when it is malformed or
// outside the bounds a venue price or size can take.
func ParseFloat(s string) float64 {
	s = strings.TrimSpace(s)
	if len(s) > maxDecimalLen {
		return 0
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0
	}
	if exp := d.Exponent(); exp > maxDecimalExponent || exp < -maxDecimalExponent {
		return 0
	}
	if d.NumDigits() > maxDecimalDigits {
		return 0
	}
	return d.InexactFloat64()
}

func parseLevels(in []StringLevel) []domain.PriceLevel {
	out := make([]domain.PriceLevel, 0, len(in))
	for _, l := range in {
		out = append(out, domain.PriceLevel{Price: ParseFloat(l.Price), Size: ParseFloat(l.Size)})
	}
	return out
}

func sortBids(levels []domain.PriceLevel) {
	sort.SliceStable(levels, func(i, j int) bool { return levels[i].Price > levels[j].Price })
}

func sortAsks(levels []domain.PriceLevel) {
	sort.SliceStable(levels, func(i, j int) bool { return levels[i].Price < levels[j].Price })
}
