package feed

import (
	"context"

	"github.com/spotvoice/spotvoice/pkg/types"
)

// Provider defines the interface for fetching hourly spot prices.
type Provider interface {
	// FetchPrices returns every hourly entry the feed currently publishes,
	// sorted by timestamp ascending. The slice is never empty on success.
	FetchPrices(ctx context.Context) ([]types.Price, error)
}

// Configured sets up the default spot-hinta.fi provider.
func Configured() *SpotHinta {
	return configuredSpotHinta()
}
