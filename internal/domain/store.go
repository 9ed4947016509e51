package domain

import "context"

// OpportunityStore journals detected opportunities.
type OpportunityStore interface {
	Insert(ctx context.Context, ev OpportunityEvent) error
	ListRecent(ctx context.Context, limit int) ([]OpportunityEvent, error)
}
