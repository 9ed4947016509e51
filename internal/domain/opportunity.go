package domain

import "time"

// Opportunity is a detected cross-venue price discrepancy: buying on BuyVenue
// at BuyPrice and selling on SellVenue at SellPrice yields ProfitAbs per unit.
type Opportunity struct {
	BuyVenue  Venue   `json:"buy_venue"`
	SellVenue Venue   `json:"sell_venue"`
	BuyPrice  float64 `json:"buy_price"`
	SellPrice float64 `json:"sell_price"`
	ProfitAbs float64 `json:"profit_abs"`
	ProfitPct float64 `json:"profit_pct"`
}

// NewOpportunity derives the profit fields from the two legs. buyPrice must
// be positive.
func NewOpportunity(buyVenue Venue, buyPrice float64, sellVenue Venue, sellPrice float64) Opportunity {
	profit := sellPrice - buyPrice
	return Opportunity{
		BuyVenue:  buyVenue,
		SellVenue: sellVenue,
		BuyPrice:  buyPrice,
		SellPrice: sellPrice,
		ProfitAbs: profit,
		ProfitPct: profit / buyPrice * 100,
	}
}

// ProfitCents is the absolute profit expressed in cents per contract.
func (o Opportunity) ProfitCents() float64 {
	return o.ProfitAbs * 100
}

// OpportunityEvent is an opportunity enriched for the journal, the signal
// bus and alerts.
type OpportunityEvent struct {
	ID string `json:"id"`
	Opportunity
	BuyInstrument  string    `json:"buy_instrument"`
	SellInstrument string    `json:"sell_instrument"`
	DetectedAt     time.Time `json:"detected_at"`
}

// NewOpportunityEvent attaches the instruments of both legs from state.
func NewOpportunityEvent(id string, opp Opportunity, state MarketState, at time.Time) OpportunityEvent {
	return OpportunityEvent{
		ID:             id,
		Opportunity:    opp,
		BuyInstrument:  state[opp.BuyVenue].Instrument,
		SellInstrument: state[opp.SellVenue].Instrument,
		DetectedAt:     at,
	}
}
