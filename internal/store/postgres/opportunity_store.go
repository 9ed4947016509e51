package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/arbmonitor/internal/domain"
)

// OpportunityStore implements domain.OpportunityStore using PostgreSQL.
type OpportunityStore struct {
	pool *pgxpool.Pool
}

// NewOpportunityStore creates an OpportunityStore backed by the given pool.
func NewOpportunityStore(pool *pgxpool.Pool) *OpportunityStore {
	return &OpportunityStore{pool: pool}
}

const opportunitySelectCols = `id, buy_venue, sell_venue, buy_instrument, sell_instrument,
	buy_price, sell_price, profit_abs, profit_pct, detected_at`

// Insert journals one opportunity. Re-inserting an existing id is a no-op.
func (s *OpportunityStore) Insert(ctx context.Context, ev domain.OpportunityEvent) error {
	const query = `
		INSERT INTO opportunities (
			id, buy_venue, sell_venue, buy_instrument, sell_instrument,
			buy_price, sell_price, profit_abs, profit_pct, detected_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10
		)
		ON CONFLICT (id) DO NOTHING`

	_, err := s.pool.Exec(ctx, query,
		ev.ID, string(ev.BuyVenue), string(ev.SellVenue), ev.BuyInstrument, ev.SellInstrument,
		ev.BuyPrice, ev.SellPrice, ev.ProfitAbs, ev.ProfitPct, ev.DetectedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert opportunity %s: %w", ev.ID, err)
	}
	return nil
}

// ListRecent returns the most recent opportunities, newest first. A
// non-positive limit returns every row.
func (s *OpportunityStore) ListRecent(ctx context.Context, limit int) ([]domain.OpportunityEvent, error) {
	query := `SELECT ` + opportunitySelectCols + ` FROM opportunities ORDER BY detected_at DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list recent opportunities: %w", err)
	}
	defer rows.Close()

	var events []domain.OpportunityEvent
	for rows.Next() {
		var (
			ev        domain.OpportunityEvent
			buyVenue  string
			sellVenue string
		)
		if err := rows.Scan(
			&ev.ID, &buyVenue, &sellVenue, &ev.BuyInstrument, &ev.SellInstrument,
			&ev.BuyPrice, &ev.SellPrice, &ev.ProfitAbs, &ev.ProfitPct, &ev.DetectedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan opportunity: %w", err)
		}
		ev.BuyVenue = domain.Venue(buyVenue)
		ev.SellVenue = domain.Venue(sellVenue)
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate opportunities: %w", err)
	}
	return events, nil
}

// Compile-time interface check.
var _ domain.OpportunityStore = (*OpportunityStore)(nil)
