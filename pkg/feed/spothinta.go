package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/levenlabs/go-lflag"
	"github.com/spotvoice/spotvoice/pkg/common"
	"github.com/spotvoice/spotvoice/pkg/log"
	"github.com/spotvoice/spotvoice/pkg/types"
)

var (
	// ErrUnavailable means the feed could not be reached at all.
	ErrUnavailable = errors.New("price feed unavailable")
	// ErrEmpty means the feed answered but the payload held no records.
	ErrEmpty = errors.New("price feed returned no data")
	// ErrUnparseable means every record was dropped during parsing.
	ErrUnparseable = errors.New("price feed data could not be parsed")
)

// SpotHinta implements the Provider interface for the spot-hinta.fi API.
// It retrieves today's and tomorrow's hourly electricity prices for Finland.
type SpotHinta struct {
	apiURL string
	region string
	client *http.Client
}

// configuredSpotHinta sets up flags for the spot-hinta.fi feed and returns the instance.
// It uses lflag to register command-line flags for configuration.
func configuredSpotHinta() *SpotHinta {
	s := &SpotHinta{
		client: common.HTTPClient(10 * time.Second),
	}
	apiURL := lflag.String("feed-api-url", "https://api.spot-hinta.fi/TodayAndDayForward", "URL for the spot-hinta.fi price API")
	region := lflag.String("feed-region", "FI", "Price region code sent to the feed")

	lflag.Do(func() {
		s.apiURL = *apiURL
		s.region = *region
	})

	return s
}

// Validate ensures the configuration is valid.
func (s *SpotHinta) Validate() error {
	if s.apiURL == "" {
		return fmt.Errorf("feed-api-url is required")
	}
	if _, err := url.Parse(s.apiURL); err != nil {
		return fmt.Errorf("failed to parse feed url (%s): %w", s.apiURL, err)
	}
	if s.region == "" {
		return fmt.Errorf("feed-region is required")
	}
	return nil
}

// spotHintaEntry represents one record of the JSON returned by spot-hinta.fi.
// Pointer fields distinguish missing fields from zero values.
type spotHintaEntry struct {
	DateTime     *string  `json:"DateTime"`
	PriceWithTax *float64 `json:"PriceWithTax"`
}

// FetchPrices retrieves every published hourly price, sorted ascending.
// Records missing a timestamp or price are dropped rather than failing the
// whole fetch; the fetch fails only when nothing usable remains.
func (s *SpotHinta) FetchPrices(ctx context.Context) ([]types.Price, error) {
	u, err := url.Parse(s.apiURL)
	if err != nil {
		return nil, fmt.Errorf("invalid api url: %w", err)
	}

	params := url.Values{}
	params.Set("priceResolution", "60")
	params.Set("region", s.region)
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	log.Ctx(ctx).DebugContext(ctx, "fetching prices from spot-hinta", slog.String("url", u.String()))

	resp, err := s.client.Do(req)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to fetch prices", slog.Any("error", err))
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var data []spotHintaEntry
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to decode spot-hinta response", slog.Any("error", err))
		return nil, fmt.Errorf("%w: %v", ErrEmpty, err)
	}
	if len(data) == 0 {
		return nil, ErrEmpty
	}

	prices := make([]types.Price, 0, len(data))
	for _, item := range data {
		if item.DateTime == nil || item.PriceWithTax == nil {
			continue
		}
		// The feed returns either an offset suffix (+02:00) or a trailing Z,
		// both of which RFC 3339 parsing handles.
		ts, err := time.Parse(time.RFC3339, *item.DateTime)
		if err != nil {
			log.Ctx(ctx).WarnContext(ctx, "failed to parse spot-hinta timestamp", slog.String("value", *item.DateTime), slog.Any("error", err))
			continue
		}
		prices = append(prices, types.Price{
			TS:        ts,
			EurPerKWH: *item.PriceWithTax,
		})
	}

	if len(prices) == 0 {
		return nil, ErrUnparseable
	}

	sort.Slice(prices, func(i, j int) bool {
		return prices[i].TS.Before(prices[j].TS)
	})

	log.Ctx(ctx).DebugContext(
		ctx,
		"fetched prices",
		slog.Int("count", len(prices)),
		slog.Time("earliest", prices[0].TS),
		slog.Time("latest", prices[len(prices)-1].TS),
	)

	return prices, nil
}
