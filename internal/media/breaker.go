package media

import (
	"context"
	"errors"
	"fmt"

	"github.com/vidtube/backend/internal/resilience"
)

// BreakerGateway stops calling a failing media host for a while.
type BreakerGateway struct {
	next    Gateway
	uploads *resilience.Breaker[Asset]
}

var _ Gateway = (*BreakerGateway)(nil)

// NewBreakerGateway wraps next in a circuit breaker named name.
func NewBreakerGateway(name string, next Gateway, settings resilience.Settings) *BreakerGateway {
	return &BreakerGateway{next: next, uploads: resilience.NewBreaker[Asset](name, settings)}
}

// Upload forwards to the wrapped gateway unless the breaker is open. The local
// file is removed either way.
func (g *BreakerGateway) Upload(ctx context.Context, localPath string, kind Kind) (Asset, error) {
	asset, err := g.uploads.Execute(func() (Asset, error) {
		return g.next.Upload(ctx, localPath, kind)
	})
	if errors.Is(err, resilience.ErrOpen) {
		removeLocal(ctx, localPath)
		return Asset{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return asset, err
}

// Remove bypasses the breaker.
func (g *BreakerGateway) Remove(ctx context.Context, asset Asset) error {
	return g.next.Remove(ctx, asset)
}
