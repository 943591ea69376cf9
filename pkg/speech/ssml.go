package speech

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spotvoice/spotvoice/pkg/controller"
	"github.com/spotvoice/spotvoice/pkg/feed"
	"github.com/spotvoice/spotvoice/pkg/types"
)

// fullOverviewEntries is how many hours the price overview covers: the
// current hour plus the next three.
const fullOverviewEntries = 4

// fmtCents renders a price in cents per kilowatt-hour with one decimal, the
// way it should be spoken.
func fmtCents(p types.Price) string {
	return fmt.Sprintf("%.1f", p.Cents())
}

// fmtClock renders a timestamp as a zero-padded 24-hour clock time in the
// given zone.
func fmtClock(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("15:04")
}

func sayCardinal(v string) string {
	return `<say-as interpret-as="cardinal">` + v + `</say-as>`
}

func sayTime(v string) string {
	return `<say-as interpret-as="time">` + v + `</say-as>`
}

// OverviewBody builds the current-price overview SSML body from the forward
// window (current hour first, up to four entries). Short pauses separate the
// clauses so the numbers stay intelligible.
func OverviewBody(window []types.Price) string {
	parts := []string{
		`The current electricity spot price in Finland is <break time="200ms"/> ` +
			sayCardinal(fmtCents(window[0])) + ` cents per kilowatt-hour. <break time="100ms"/>`,
	}

	labels := []string{"Next hour", "in two hours", "in three hours"}
	for i, label := range labels {
		if i+1 >= len(window) {
			break
		}
		parts = append(parts, label+` <break time="150ms"/> `+
			sayCardinal(fmtCents(window[i+1]))+` cents <break time="100ms"/>`)
	}

	body := strings.Join(parts, " ")
	if len(window) < fullOverviewEntries {
		body += ` <break time="200ms"/> I couldn't find price information for all of the next three hours.`
	}
	return body
}

// OverviewText builds the plain-text overview used for the companion card.
func OverviewText(window []types.Price) string {
	message := fmt.Sprintf("The current electricity spot price in Finland is %s cents per kilowatt-hour.", fmtCents(window[0]))

	labels := []string{"Next hour", "in two hours", "in three hours"}
	var parts []string
	for i, label := range labels {
		if i+1 >= len(window) {
			break
		}
		parts = append(parts, fmt.Sprintf("%s %s cents", label, fmtCents(window[i+1])))
	}

	switch len(parts) {
	case 0:
	case 1:
		message += fmt.Sprintf(" %s.", parts[0])
	case 2:
		message += fmt.Sprintf(" %s, and %s.", parts[0], parts[1])
	default:
		message += fmt.Sprintf(" %s, %s, and %s.", parts[0], parts[1], parts[2])
	}

	if len(window) < fullOverviewEntries {
		message += " I couldn't find price information for all of the next three hours."
	}
	return message
}

// CheapestBody builds the cheapest-hour report SSML body.
func CheapestBody(cheapest types.Price, loc *time.Location) string {
	return `The lowest electricity spot price in Finland today is ` +
		sayCardinal(fmtCents(cheapest)) + ` cents per kilowatt-hour at ` +
		sayTime(fmtClock(cheapest.TS, loc)) + `.`
}

// RecommendationBody builds the run-now answer SSML body for a decision.
func RecommendationBody(rec types.Recommendation, loc *time.Location) string {
	switch rec.Kind {
	case types.RunNow:
		return `Yes, now is a good time.`
	case types.RunAtTime:
		return `Not right now. A cheaper three-hour window starts at ` +
			sayTime(fmtClock(rec.At, loc)) + `.`
	case types.RunTomorrow:
		times := make([]string, len(rec.Tomorrow))
		for i, t := range rec.Tomorrow {
			times[i] = sayTime(fmtClock(t, loc))
		}
		body := `Tomorrow run it at ` + times[0]
		switch len(times) {
		case 1:
		case 2:
			body += ` or ` + times[1]
		default:
			body += `, ` + times[1] + `, or ` + times[2]
		}
		return body + `.`
	case types.NoGoodWindow:
		return `No good times today or tomorrow.`
	case types.InsufficientData:
		return `I couldn't find a three-hour window remaining today.`
	}
	return `I'm not sure right now.`
}

// FallbackBody maps a feed or selection failure to its spoken apology. Every
// failure resolves to speech here; nothing propagates past the response
// boundary.
func FallbackBody(err error) string {
	switch {
	case errors.Is(err, feed.ErrEmpty):
		return `I'm sorry, I couldn't find any electricity price data right now.`
	case errors.Is(err, feed.ErrUnparseable):
		return `I'm sorry, I couldn't parse the electricity price data.`
	case errors.Is(err, controller.ErrNoForwardData):
		return `I'm sorry, I couldn't determine the spot prices for the next hours.`
	case errors.Is(err, controller.ErrNoRemainingToday):
		return `I'm sorry, I couldn't find any remaining electricity price entries for today.`
	}
	return `I'm sorry, I couldn't retrieve the electricity price at this moment. Please try again later.`
}
