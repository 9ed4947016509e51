// Package arbitrage decides whether two venue quotes for the same binary
// outcome can be traded against each other for a riskless spread.
package arbitrage

import "github.com/alanyoungcy/arbmonitor/internal/domain"

// Detect compares the best prices of a and b. It first checks selling on a
// against buying on b, then the reverse direction; the first match wins.
// A zero ask means the venue has no offer and never qualifies as a buy leg.
func Detect(a, b domain.Quote) (domain.Opportunity, bool) {
	if a.BestBid > b.BestAsk && b.BestAsk > 0 {
		return domain.NewOpportunity(b.Venue, b.BestAsk, a.Venue, a.BestBid), true
	}
	if b.BestBid > a.BestAsk && a.BestAsk > 0 {
		return domain.NewOpportunity(a.Venue, a.BestAsk, b.Venue, b.BestBid), true
	}
	return domain.Opportunity{}, false
}

// Spreads returns the two directional edges used by the console summary:
// sellA is a's bid minus b's ask and sellB is b's bid minus a's ask. Either
// is reported as 0 when the buy side has no ask.
func Spreads(a, b domain.Quote) (sellA, sellB float64) {
	if b.HasAsk() {
		sellA = a.BestBid - b.BestAsk
	}
	if a.HasAsk() {
		sellB = b.BestBid - a.BestAsk
	}
	return sellA, sellB
}
