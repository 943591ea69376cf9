package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/levenlabs/go-lflag"
	"github.com/spotvoice/spotvoice/pkg/log"
	"github.com/spotvoice/spotvoice/pkg/types"
)

var (
	// ErrNoForwardData means no usable entries exist from the current hour onward.
	ErrNoForwardData = errors.New("no prices available for the upcoming hours")
	// ErrNoRemainingToday means no entries remain for the current local day.
	ErrNoRemainingToday = errors.New("no remaining price entries for today")
)

// windowHours is the length of the appliance run-window being recommended.
const windowHours = 3

// Controller holds the decision parameters for the run-now analysis.
type Controller struct {
	// thresholdCents is the price, in cents per kilowatt-hour, at or below
	// which a run-window qualifies.
	thresholdCents float64
	// tomorrowHour is the local hour after which tomorrow's published prices
	// are consulted when today has no qualifying window.
	tomorrowHour int
}

// NewController creates a Controller with the default decision parameters.
func NewController() *Controller {
	return &Controller{
		thresholdCents: 7.0,
		tomorrowHour:   14,
	}
}

// Configured sets up flags for the Controller and returns the instance.
// It uses lflag to register command-line flags for configuration.
func Configured() *Controller {
	c := NewController()
	threshold := lflag.String("price-threshold-cents", "7.0", "Price in cents/kWh at or below which a run-window qualifies")
	tomorrowHour := lflag.String("tomorrow-hour", strconv.Itoa(c.tomorrowHour), "Local hour after which tomorrow's prices are consulted")

	lflag.Do(func() {
		v, err := strconv.ParseFloat(*threshold, 64)
		if err != nil {
			panic(fmt.Errorf("invalid price-threshold-cents (%s): %w", *threshold, err))
		}
		c.thresholdCents = v
		h, err := strconv.Atoi(*tomorrowHour)
		if err != nil {
			panic(fmt.Errorf("invalid tomorrow-hour (%s): %w", *tomorrowHour, err))
		}
		c.tomorrowHour = h
	})

	return c
}

// HourStart converts now into the zone carried by the first price entry
// (UTC when the series is empty) and zeroes everything below the hour.
// All comparisons against feed timestamps must use this value so that "the
// current hour" is unambiguous even when the caller's clock is in a
// different zone than the feed.
func HourStart(now time.Time, prices []types.Price) time.Time {
	loc := time.UTC
	if len(prices) > 0 {
		loc = prices[0].TS.Location()
	}
	local := now.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), local.Hour(), 0, 0, 0, loc)
}

// ForwardWindow returns up to n entries going forward from the current hour.
// When no entry matches hourStart exactly, the entry immediately preceding
// the first later entry is treated as current so that a gap in the hourly
// grid still yields the most recent known price. Fewer than n entries near
// the end of the data is not an error.
func ForwardWindow(prices []types.Price, hourStart time.Time, n int) ([]types.Price, error) {
	if len(prices) == 0 {
		return nil, ErrNoForwardData
	}

	idx := -1
	for i, p := range prices {
		if p.TS.Equal(hourStart) {
			idx = i
			break
		}
		if p.TS.After(hourStart) {
			if i > 0 {
				idx = i - 1
			} else {
				idx = i
			}
			break
		}
	}
	if idx == -1 {
		idx = len(prices) - 1
	}

	end := idx + n
	if end > len(prices) {
		end = len(prices)
	}
	window := prices[idx:end]
	if len(window) == 0 {
		return nil, ErrNoForwardData
	}
	return window, nil
}

// TodayRemaining returns the entries on hourStart's local calendar day at or
// after hourStart, the current hour included.
func TodayRemaining(prices []types.Price, hourStart time.Time) ([]types.Price, error) {
	loc := hourStart.Location()
	y, m, d := hourStart.Date()

	var remaining []types.Price
	for _, p := range prices {
		local := p.TS.In(loc)
		py, pm, pd := local.Date()
		if py == y && pm == m && pd == d && !local.Before(hourStart) {
			remaining = append(remaining, p)
		}
	}
	if len(remaining) == 0 {
		return nil, ErrNoRemainingToday
	}
	return remaining, nil
}

// TomorrowEntries returns every entry on the local calendar day after
// hourStart's day, with no time-of-day filter.
func TomorrowEntries(prices []types.Price, hourStart time.Time) []types.Price {
	loc := hourStart.Location()
	y, m, d := hourStart.AddDate(0, 0, 1).Date()

	var tomorrow []types.Price
	for _, p := range prices {
		local := p.TS.In(loc)
		py, pm, pd := local.Date()
		if py == y && pm == m && pd == d {
			tomorrow = append(tomorrow, p)
		}
	}
	return tomorrow
}

// CheapestHour returns the entry with the minimum price among the given
// entries, the chronologically earliest winning on ties. The entries must be
// non-empty and sorted ascending by timestamp.
func CheapestHour(entries []types.Price) types.Price {
	cheapest := entries[0]
	for _, p := range entries[1:] {
		if p.EurPerKWH < cheapest.EurPerKWH {
			cheapest = p
		}
	}
	return cheapest
}

// Recommend runs the run-now analysis against the full price series.
//
// Tiers, in priority order:
//  1. the next three hours are all strictly below the threshold: run now.
//  2. the earliest three-hour window today with every hour at or below the
//     threshold: run at its start.
//  3. after the tomorrow-hour, when today has no qualifying window, consult
//     tomorrow's windows; none there either means no good times at all.
//  4. otherwise the cheapest three-hour window remaining today by summed
//     price, or insufficient-data when fewer than three hours remain.
func (c *Controller) Recommend(ctx context.Context, prices []types.Price, hourStart time.Time) (types.Recommendation, error) {
	today, err := TodayRemaining(prices, hourStart)
	if err != nil {
		return types.Recommendation{}, err
	}

	log.Ctx(ctx).DebugContext(ctx, "running recommendation analysis",
		slog.Time("hourStart", hourStart),
		slog.Int("remainingToday", len(today)),
		slog.Float64("thresholdCents", c.thresholdCents),
	)

	// Tier 1: the three hours starting now are all strictly below the
	// threshold. Note the strict < here versus the <= in the window scans.
	if len(today) >= windowHours {
		cheapNow := true
		for _, p := range today[:windowHours] {
			if p.Cents() >= c.thresholdCents {
				cheapNow = false
				break
			}
		}
		if cheapNow {
			return types.Recommendation{Kind: types.RunNow}, nil
		}
	}

	// Tier 2: earliest qualifying window today, not the globally cheapest.
	if start, ok := firstQualifyingWindow(today, c.thresholdCents); ok {
		return types.Recommendation{Kind: types.RunAtTime, At: start}, nil
	}

	// Tier 3: late enough in the day that tomorrow's prices are published.
	if hourStart.Hour() >= c.tomorrowHour {
		tomorrow := TomorrowEntries(prices, hourStart)
		starts := qualifyingWindowStarts(tomorrow, c.thresholdCents, 3)
		if len(starts) == 0 {
			return types.Recommendation{Kind: types.NoGoodWindow}, nil
		}
		return types.Recommendation{Kind: types.RunTomorrow, Tomorrow: starts}, nil
	}

	// Tier 4: no qualifying window and too early to consult tomorrow.
	if len(today) < windowHours {
		return types.Recommendation{Kind: types.InsufficientData}, nil
	}
	return types.Recommendation{Kind: types.RunAtTime, At: cheapestWindowStart(today)}, nil
}

// firstQualifyingWindow returns the start of the earliest contiguous
// three-entry window where every price is at or below the threshold.
func firstQualifyingWindow(entries []types.Price, thresholdCents float64) (time.Time, bool) {
	starts := qualifyingWindowStarts(entries, thresholdCents, 1)
	if len(starts) == 0 {
		return time.Time{}, false
	}
	return starts[0], true
}

// qualifyingWindowStarts scans every contiguous three-entry window, sliding
// by one, and collects up to limit start times where every price is at or
// below the threshold.
func qualifyingWindowStarts(entries []types.Price, thresholdCents float64, limit int) []time.Time {
	var starts []time.Time
	for i := 0; i+windowHours <= len(entries); i++ {
		qualifies := true
		for _, p := range entries[i : i+windowHours] {
			if p.Cents() > thresholdCents {
				qualifies = false
				break
			}
		}
		if qualifies {
			starts = append(starts, entries[i].TS)
			if len(starts) == limit {
				break
			}
		}
	}
	return starts
}

// cheapestWindowStart returns the start of the three-entry window with the
// minimum summed price, the earliest start winning on ties. The entries must
// hold at least three elements.
func cheapestWindowStart(entries []types.Price) time.Time {
	best := 0
	bestSum := 0.0
	for i := 0; i+windowHours <= len(entries); i++ {
		sum := 0.0
		for _, p := range entries[i : i+windowHours] {
			sum += p.EurPerKWH
		}
		if i == 0 || sum < bestSum {
			best = i
			bestSum = sum
		}
	}
	return entries[best].TS
}
