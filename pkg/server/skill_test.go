package server

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/spotvoice/spotvoice/pkg/controller"
	"github.com/spotvoice/spotvoice/pkg/feed"
	"github.com/spotvoice/spotvoice/pkg/speech"
	"github.com/spotvoice/spotvoice/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var helsinki = time.FixedZone("EET", 2*3600)

// mockProvider returns canned prices and records how often it was called.
type mockProvider struct {
	prices []types.Price
	err    error
	calls  int
}

func (m *mockProvider) FetchPrices(ctx context.Context) ([]types.Price, error) {
	m.calls++
	return m.prices, m.err
}

func newTestServer(p feed.Provider, now time.Time) *Server {
	return &Server{
		provider:   p,
		controller: controller.NewController(),
		composer:   speech.NewComposer(rand.New(rand.NewSource(1))),
		now:        func() time.Time { return now },
	}
}

func pricesAt(start time.Time, eur ...float64) []types.Price {
	out := make([]types.Price, len(eur))
	for i, p := range eur {
		out[i] = types.Price{TS: start.Add(time.Duration(i) * time.Hour), EurPerKWH: p}
	}
	return out
}

func postSkill(t *testing.T, srv *Server, body string) speech.Envelope {
	t.Helper()
	req := httptest.NewRequest("POST", "/", strings.NewReader(body))
	w := httptest.NewRecorder()
	srv.setupHandler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var env speech.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func intentBody(name string) string {
	return fmt.Sprintf(`{"request":{"type":"IntentRequest","intent":{"name":%q}}}`, name)
}

func hasClosingPhrase(ssml string) bool {
	for _, phrase := range speech.ClosingPhrases() {
		if strings.Contains(ssml, phrase) {
			return true
		}
	}
	return false
}

func TestSkillRouting(t *testing.T) {
	now := time.Date(2026, 3, 10, 10, 20, 0, 0, helsinki)
	hourStart := time.Date(2026, 3, 10, 10, 0, 0, 0, helsinki)

	t.Run("LaunchRequest", func(t *testing.T) {
		p := &mockProvider{}
		srv := newTestServer(p, now)

		env := postSkill(t, srv, `{"request":{"type":"LaunchRequest"}}`)
		ssml := env.Response.OutputSpeech.SSML
		assert.Contains(t, ssml, "Welcome to Finnish spot prices.")
		assert.False(t, env.Response.ShouldEndSession)
		assert.Nil(t, env.Response.Reprompt)
		assert.False(t, hasClosingPhrase(ssml))
		assert.Zero(t, p.calls, "launch should not hit the feed")
	})

	t.Run("StopIntent", func(t *testing.T) {
		for _, name := range []string{"AMAZON.StopIntent", "AMAZON.CancelIntent"} {
			p := &mockProvider{}
			srv := newTestServer(p, now)

			env := postSkill(t, srv, intentBody(name))
			assert.Equal(t, "<speak>Goodbye.</speak>", env.Response.OutputSpeech.SSML)
			assert.True(t, env.Response.ShouldEndSession)
			assert.Nil(t, env.Response.Reprompt)
			assert.Zero(t, p.calls)
		}
	})

	t.Run("GetSpotPriceIntent", func(t *testing.T) {
		p := &mockProvider{prices: pricesAt(hourStart, 0.05, 0.06, 0.07, 0.08)}
		srv := newTestServer(p, now)

		env := postSkill(t, srv, intentBody("GetSpotPriceIntent"))
		ssml := env.Response.OutputSpeech.SSML
		assert.Contains(t, ssml, `<say-as interpret-as="cardinal">5.0</say-as> cents per kilowatt-hour`)
		assert.Contains(t, ssml, `<say-as interpret-as="cardinal">8.0</say-as>`)
		assert.True(t, hasClosingPhrase(ssml))
		assert.False(t, env.Response.ShouldEndSession)
		require.NotNil(t, env.Response.Reprompt)
		require.NotNil(t, env.Response.Card)
		assert.Equal(t, "The current electricity spot price in Finland is 5.0 cents per kilowatt-hour. Next hour 6.0 cents, in two hours 7.0 cents, and in three hours 8.0 cents.", env.Response.Card.Content)
		assert.Equal(t, 1, p.calls, "one fetch per invocation")
	})

	t.Run("CheapestPriceIntent", func(t *testing.T) {
		p := &mockProvider{prices: pricesAt(hourStart, 0.05, 0.04, 0.03, 0.06)}
		srv := newTestServer(p, now)

		env := postSkill(t, srv, intentBody("CheapestPriceIntent"))
		ssml := env.Response.OutputSpeech.SSML
		assert.Contains(t, ssml, `<say-as interpret-as="cardinal">3.0</say-as>`)
		assert.Contains(t, ssml, `<say-as interpret-as="time">12:00</say-as>`)
		assert.True(t, hasClosingPhrase(ssml))
		assert.Equal(t, 1, p.calls)
	})

	t.Run("ShouldIRunMachineIntent_Yes", func(t *testing.T) {
		p := &mockProvider{prices: pricesAt(hourStart, 0.05, 0.05, 0.05, 0.05, 0.05, 0.05)}
		srv := newTestServer(p, now)

		env := postSkill(t, srv, intentBody("ShouldIRunMachineIntent"))
		ssml := env.Response.OutputSpeech.SSML
		assert.Contains(t, ssml, "Yes, now is a good time.")
		assert.True(t, hasClosingPhrase(ssml))
	})

	t.Run("ShouldIRunMachineIntent_Later", func(t *testing.T) {
		p := &mockProvider{prices: pricesAt(hourStart, 0.09, 0.09, 0.09, 0.05, 0.05, 0.05)}
		srv := newTestServer(p, now)

		env := postSkill(t, srv, intentBody("ShouldIRunMachineIntent"))
		ssml := env.Response.OutputSpeech.SSML
		assert.NotContains(t, ssml, "Yes, now is a good time.")
		assert.Contains(t, ssml, `<say-as interpret-as="time">13:00</say-as>`)
	})

	t.Run("ShouldIRunMachineIntent_InsufficientData", func(t *testing.T) {
		p := &mockProvider{prices: pricesAt(hourStart, 0.10, 0.10)}
		srv := newTestServer(p, now)

		env := postSkill(t, srv, intentBody("ShouldIRunMachineIntent"))
		ssml := env.Response.OutputSpeech.SSML
		assert.Contains(t, ssml, "I couldn't find a three-hour window remaining today.")
		assert.True(t, hasClosingPhrase(ssml))
		assert.False(t, env.Response.ShouldEndSession)
	})

	t.Run("ShouldIRunMachineIntent_Tomorrow", func(t *testing.T) {
		evening := time.Date(2026, 3, 10, 15, 0, 0, 0, helsinki)
		var prices []types.Price
		prices = append(prices, pricesAt(evening, 0.10, 0.10, 0.10, 0.10, 0.10, 0.10, 0.10, 0.10, 0.10)...)
		for h := 0; h < 24; h++ {
			price := 0.10
			if h >= 8 && h <= 10 {
				price = 0.05
			}
			prices = append(prices, types.Price{
				TS:        time.Date(2026, 3, 11, h, 0, 0, 0, helsinki),
				EurPerKWH: price,
			})
		}
		p := &mockProvider{prices: prices}
		srv := newTestServer(p, evening.Add(25*time.Minute))

		env := postSkill(t, srv, intentBody("ShouldIRunMachineIntent"))
		ssml := env.Response.OutputSpeech.SSML
		assert.Contains(t, ssml, "Tomorrow run it at")
		assert.Contains(t, ssml, `<say-as interpret-as="time">08:00</say-as>`)
		assert.True(t, hasClosingPhrase(ssml))
	})

	t.Run("FallbackIntent", func(t *testing.T) {
		p := &mockProvider{prices: pricesAt(hourStart, 0.05, 0.06, 0.07, 0.08)}
		srv := newTestServer(p, now)

		env := postSkill(t, srv, intentBody("AMAZON.FallbackIntent"))
		assert.Contains(t, env.Response.OutputSpeech.SSML, "The current electricity spot price in Finland is")
	})

	t.Run("UnknownIntent", func(t *testing.T) {
		p := &mockProvider{prices: pricesAt(hourStart, 0.05)}
		srv := newTestServer(p, now)

		env := postSkill(t, srv, intentBody("SomethingElseEntirely"))
		assert.Contains(t, env.Response.OutputSpeech.SSML, "The current electricity spot price in Finland is")
	})

	t.Run("MalformedBody", func(t *testing.T) {
		p := &mockProvider{prices: pricesAt(hourStart, 0.05, 0.06, 0.07, 0.08)}
		srv := newTestServer(p, now)

		env := postSkill(t, srv, `not even json`)
		assert.Contains(t, env.Response.OutputSpeech.SSML, "The current electricity spot price in Finland is")
		assert.False(t, env.Response.ShouldEndSession)
	})

	t.Run("FeedUnavailable", func(t *testing.T) {
		p := &mockProvider{err: fmt.Errorf("wrapped: %w", feed.ErrUnavailable)}
		srv := newTestServer(p, now)

		env := postSkill(t, srv, intentBody("GetSpotPriceIntent"))
		assert.Contains(t, env.Response.OutputSpeech.SSML, "I'm sorry, I couldn't retrieve the electricity price at this moment.")
		assert.False(t, env.Response.ShouldEndSession)
	})

	t.Run("FeedEmpty", func(t *testing.T) {
		p := &mockProvider{err: feed.ErrEmpty}
		srv := newTestServer(p, now)

		env := postSkill(t, srv, intentBody("CheapestPriceIntent"))
		assert.Contains(t, env.Response.OutputSpeech.SSML, "I'm sorry, I couldn't find any electricity price data right now.")
	})

	t.Run("Healthz", func(t *testing.T) {
		srv := newTestServer(&mockProvider{}, now)
		req := httptest.NewRequest("GET", "/healthz", nil)
		w := httptest.NewRecorder()
		srv.setupHandler().ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}
