package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/spotvoice/spotvoice/pkg/controller"
	"github.com/spotvoice/spotvoice/pkg/log"
	"github.com/spotvoice/spotvoice/pkg/speech"
	"github.com/spotvoice/spotvoice/pkg/types"
)

// forwardHours is how many hours the price overview covers, the current hour
// included.
const forwardHours = 4

// requestEnvelope is the voice platform's inbound webhook shape. Only the
// request type and intent name matter to this skill.
type requestEnvelope struct {
	Request struct {
		Type   string `json:"type"`
		Intent struct {
			Name string `json:"name"`
		} `json:"intent"`
	} `json:"request"`
}

// handleSkill classifies the inbound request and dispatches to the matching
// answer. A malformed or unrecognized request still gets the price overview
// rather than an error; availability wins over precision here.
func (s *Server) handleSkill(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req requestEnvelope
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to decode request envelope", slog.Any("error", err))
	}

	var env speech.Envelope
	switch req.Request.Type {
	case "LaunchRequest":
		env = s.composer.Compose(speech.Launch, speech.GreetingBody)
	case "IntentRequest":
		switch req.Request.Intent.Name {
		case "AMAZON.StopIntent", "AMAZON.CancelIntent":
			env = s.composer.Compose(speech.Farewell, speech.FarewellBody)
		case "CheapestPriceIntent":
			env = s.cheapestResponse(r)
		case "ShouldIRunMachineIntent":
			env = s.recommendationResponse(r)
		default:
			// GetSpotPriceIntent, AMAZON.FallbackIntent and anything
			// unrecognized all get the overview.
			env = s.overviewResponse(r)
		}
	default:
		env = s.overviewResponse(r)
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(env); err != nil {
		panic(http.ErrAbortHandler)
	}
}

// fetchAligned performs the single feed fetch for this invocation and aligns
// the current instant to the feed's hourly grid.
func (s *Server) fetchAligned(r *http.Request) ([]types.Price, time.Time, error) {
	ctx := r.Context()
	prices, err := s.provider.FetchPrices(ctx)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to fetch prices", slog.Any("error", err))
		return nil, time.Time{}, err
	}
	return prices, controller.HourStart(s.now(), prices), nil
}

func (s *Server) overviewResponse(r *http.Request) speech.Envelope {
	prices, hourStart, err := s.fetchAligned(r)
	if err != nil {
		return s.composer.Compose(speech.Intent, speech.FallbackBody(err))
	}

	window, err := controller.ForwardWindow(prices, hourStart, forwardHours)
	if err != nil {
		return s.composer.Compose(speech.Intent, speech.FallbackBody(err))
	}

	return s.composer.
		Compose(speech.Intent, speech.OverviewBody(window)).
		WithCard("Electricity Spot Price", speech.OverviewText(window))
}

func (s *Server) cheapestResponse(r *http.Request) speech.Envelope {
	prices, hourStart, err := s.fetchAligned(r)
	if err != nil {
		return s.composer.Compose(speech.Intent, speech.FallbackBody(err))
	}

	today, err := controller.TodayRemaining(prices, hourStart)
	if err != nil {
		return s.composer.Compose(speech.Intent, speech.FallbackBody(err))
	}

	cheapest := controller.CheapestHour(today)
	return s.composer.Compose(speech.Intent, speech.CheapestBody(cheapest, hourStart.Location()))
}

func (s *Server) recommendationResponse(r *http.Request) speech.Envelope {
	prices, hourStart, err := s.fetchAligned(r)
	if err != nil {
		return s.composer.Compose(speech.Intent, speech.FallbackBody(err))
	}

	rec, err := s.controller.Recommend(r.Context(), prices, hourStart)
	if err != nil {
		return s.composer.Compose(speech.Intent, speech.FallbackBody(err))
	}

	return s.composer.Compose(speech.Intent, speech.RecommendationBody(rec, hourStart.Location()))
}
