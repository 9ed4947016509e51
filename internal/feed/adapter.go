// Package feed adapts venue clients into the two update disciplines the
// monitor merges: a pull feed fetched on demand and a push feed read from a
// streaming connection.
package feed

import (
	"context"

	"github.com/alanyoungcy/arbmonitor/internal/domain"
)

// PullAdapter fetches a fresh quote on request.
type PullAdapter interface {
	Venue() domain.Venue
	Fetch(ctx context.Context) (domain.Quote, error)
}

// PushAdapter reads quotes from a streaming connection. ReadNext returns
// ctx.Err() when ctx ends before a quote arrives. A transport failure moves
// the adapter to Disconnected; recovery is the caller's job via Connect.
type PushAdapter interface {
	Venue() domain.Venue
	Connect(ctx context.Context) error
	ReadNext(ctx context.Context) (domain.Quote, error)
	State() ConnState
	Close() error
}

// ConnState is the connection lifecycle of a PushAdapter.
type ConnState int32

const (
	Disconnected ConnState = iota
	Connecting
	Connected
)

func (s ConnState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "unknown"
	}
}
