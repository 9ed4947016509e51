package polymarket

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/alanyoungcy/arbmonitor/internal/domain"
	"github.com/alanyoungcy/arbmonitor/internal/normalize"
)

// flexBool unmarshals from JSON bool or string ("true"/"false") so Gamma API
// responses work whether "active" is sent as bool or string.
type flexBool bool

func (f *flexBool) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = flexBool(b)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*f = flexBool(strings.EqualFold(s, "true") || s == "1")
	return nil
}

// --------------------------------------------------------------------------
// Gamma API DTOs
// --------------------------------------------------------------------------

// APIEvent is an event returned by the Gamma /events endpoint.
type APIEvent struct {
	ID      string      `json:"id"`
	Title   string      `json:"title"`
	Slug    string      `json:"slug"`
	Active  flexBool    `json:"active"`
	Closed  bool        `json:"closed"`
	Markets []APIMarket `json:"markets"`
}

// APIMarket is a market nested in a Gamma event. Outcomes and ClobTokenIDs
// are JSON-encoded string arrays.
type APIMarket struct {
	ID           string   `json:"id"`
	Question     string   `json:"question"`
	ConditionID  string   `json:"conditionId"`
	Slug         string   `json:"slug"`
	Active       flexBool `json:"active"`
	Closed       bool     `json:"closed"`
	Outcomes     string   `json:"outcomes"`
	ClobTokenIDs string   `json:"clobTokenIds"`
}

// OutcomeTokens decodes the parallel outcome and token id arrays.
func (m APIMarket) OutcomeTokens() (outcomes, tokenIDs []string, err error) {
	if err := json.Unmarshal([]byte(m.Outcomes), &outcomes); err != nil {
		return nil, nil, fmt.Errorf("decode outcomes: %w", err)
	}
	if err := json.Unmarshal([]byte(m.ClobTokenIDs), &tokenIDs); err != nil {
		return nil, nil, fmt.Errorf("decode clobTokenIds: %w", err)
	}
	return outcomes, tokenIDs, nil
}

// --------------------------------------------------------------------------
// WebSocket DTOs
// --------------------------------------------------------------------------

// SubscribeMessage is the handshake sent once after dialing the market
// channel. It encodes as {"auth":{},"assets_ids":[...],"type":"MARKET"}.
type SubscribeMessage struct {
	Auth      struct{} `json:"auth"`
	AssetsIDs []string `json:"assets_ids"`
	Type      string   `json:"type"`
}

// NewSubscribeMessage builds the market-channel handshake for assetIDs.
func NewSubscribeMessage(assetIDs []string) SubscribeMessage {
	return SubscribeMessage{AssetsIDs: assetIDs, Type: "MARKET"}
}

// wsEnvelope carries the fields used to route an inbound frame.
type wsEnvelope struct {
	EventType string `json:"event_type"`
	Type      string `json:"type"`
}

func (e wsEnvelope) kind() string {
	if e.EventType != "" {
		return e.EventType
	}
	return e.Type
}

// BookMessage represents a full orderbook snapshot delivered over WebSocket.
type BookMessage struct {
	EventType string         `json:"event_type"`
	AssetID   string         `json:"asset_id"`
	Market    string         `json:"market"`
	Bids      []WSPriceLevel `json:"bids"`
	Asks      []WSPriceLevel `json:"asks"`
	Timestamp string         `json:"timestamp"`
	Hash      string         `json:"hash"`
}

// WSPriceLevel is a single bid/ask level in the WebSocket orderbook data.
type WSPriceLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// --------------------------------------------------------------------------
// Conversion helpers
// --------------------------------------------------------------------------

// ToQuote normalizes the snapshot. Unparseable price or size strings become 0.
func (b BookMessage) ToQuote() domain.Quote {
	q := normalize.Decimal(stringLevels(b.Bids), stringLevels(b.Asks))
	q.Venue = domain.VenuePolymarket
	q.Instrument = b.AssetID
	return q
}

func stringLevels(in []WSPriceLevel) []normalize.StringLevel {
	out := make([]normalize.StringLevel, 0, len(in))
	for _, l := range in {
		out = append(out, normalize.StringLevel{Price: l.Price, Size: l.Size})
	}
	return out
}

// decodeBooks extracts every book snapshot from a frame. A frame is a single
// JSON object or an array of them; other message kinds and malformed entries
// are skipped.
func decodeBooks(raw []byte) []BookMessage {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return nil
	}

	var items []json.RawMessage
	if trimmed[0] == '[' {
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil
		}
	} else {
		items = []json.RawMessage{raw}
	}

	var books []BookMessage
	for _, item := range items {
		var env wsEnvelope
		if err := json.Unmarshal(item, &env); err != nil || env.kind() != "book" {
			continue
		}
		var book BookMessage
		if err := json.Unmarshal(item, &book); err != nil {
			continue
		}
		books = append(books, book)
	}
	return books
}
