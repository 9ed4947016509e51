package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/arbmonitor/internal/domain"
)

// QuoteCache implements domain.QuoteCache with one Redis hash per venue at
// "quote:{venue}". Each write replaces every field; the key expires after
// ttl so a stopped monitor does not leave a quote that looks live.
type QuoteCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewQuoteCache creates a QuoteCache backed by the given Client.
func NewQuoteCache(c *Client, ttl time.Duration) *QuoteCache {
	return &QuoteCache{rdb: c.Underlying(), ttl: ttl}
}

func quoteKey(venue domain.Venue) string {
	return "quote:" + string(venue)
}

// SetQuote overwrites the cached quote for q.Venue.
func (qc *QuoteCache) SetQuote(ctx context.Context, q domain.Quote) error {
	book, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("redis: marshal quote %s: %w", q.Venue, err)
	}

	key := quoteKey(q.Venue)
	fields := map[string]interface{}{
		"instrument": q.Instrument,
		"best_bid":   strconv.FormatFloat(q.BestBid, 'f', -1, 64),
		"best_ask":   strconv.FormatFloat(q.BestAsk, 'f', -1, 64),
		"ts":         strconv.FormatInt(q.ReceivedAt.UnixNano(), 10),
		"quote":      book,
	}

	_, err = qc.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, fields)
		if qc.ttl > 0 {
			pipe.Expire(ctx, key, qc.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis: set quote %s: %w", q.Venue, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.QuoteCache = (*QuoteCache)(nil)
