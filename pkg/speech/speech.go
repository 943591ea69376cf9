package speech

import (
	"math/rand"
	"time"
)

// Variant is the closed set of response shapes the skill produces. It decides
// whether a closing phrase is appended, whether a reprompt is attached and
// whether the session ends.
type Variant int

const (
	// Launch is the session-opening greeting: session stays open, no
	// closing phrase, no reprompt.
	Launch Variant = iota
	// Intent is a normal answer: closing phrase appended, session stays
	// open with the fixed reprompt.
	Intent
	// Farewell acknowledges stop/cancel and ends the session.
	Farewell
)

// closingPhrases is the fixed pool of session-keepalive phrases appended to
// intent responses. Each carries its own pause so it reads as a separate
// sentence.
var closingPhrases = []string{
	`<break time="300ms"/> Anything else I can check for you?`,
	`<break time="300ms"/> Is there anything else you would like to know?`,
	`<break time="250ms"/> Would you like to hear anything else?`,
	`<break time="300ms"/> Can I help with anything else?`,
	`<break time="250ms"/> What else can I look up for you?`,
	`<break time="300ms"/> Let me know if you need anything else.`,
	`<break time="250ms"/> Just ask if you want to hear more.`,
	`<break time="300ms"/> Happy to check something else if you like.`,
}

// ClosingPhrases returns the closing phrase pool.
func ClosingPhrases() []string {
	return closingPhrases
}

const repromptBody = `You can ask for the current electricity price, the cheapest hour today, or whether now is a good time to run an appliance.`

// GreetingBody is the session-opening greeting spoken on launch.
const GreetingBody = `Welcome to Finnish spot prices. ` + repromptBody

// FarewellBody is the fixed stop/cancel acknowledgement.
const FarewellBody = `Goodbye.`

// Composer turns SSML bodies into platform response envelopes. The random
// source only drives closing phrase selection and is injectable so tests can
// pin the choice.
type Composer struct {
	rnd *rand.Rand
}

// NewComposer creates a Composer using the given random source. A nil source
// falls back to one seeded from the clock.
func NewComposer(rnd *rand.Rand) *Composer {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Composer{rnd: rnd}
}

// Envelope is the versioned response wrapper the voice platform expects.
type Envelope struct {
	Version  string   `json:"version"`
	Response Response `json:"response"`
}

// Response carries the speech, optional card and session control.
type Response struct {
	OutputSpeech     *OutputSpeech `json:"outputSpeech"`
	Card             *Card         `json:"card,omitempty"`
	Reprompt         *Reprompt     `json:"reprompt,omitempty"`
	ShouldEndSession bool          `json:"shouldEndSession"`
}

// OutputSpeech holds one SSML document.
type OutputSpeech struct {
	Type string `json:"type"`
	SSML string `json:"ssml"`
}

// Reprompt is spoken when the user stays silent after an open-session answer.
type Reprompt struct {
	OutputSpeech OutputSpeech `json:"outputSpeech"`
}

// Card is the optional plain-text companion shown in the platform app.
type Card struct {
	Type    string `json:"type"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Compose wraps an SSML body (no outer speak tag) into an envelope for the
// given variant. Intent responses get one randomly chosen closing phrase
// appended inside the speak tag, before it closes.
func (c *Composer) Compose(v Variant, body string) Envelope {
	resp := Response{}
	switch v {
	case Intent:
		closing := closingPhrases[c.rnd.Intn(len(closingPhrases))]
		resp.OutputSpeech = &OutputSpeech{
			Type: "SSML",
			SSML: "<speak>" + body + " " + closing + "</speak>",
		}
		resp.Reprompt = &Reprompt{
			OutputSpeech: OutputSpeech{
				Type: "SSML",
				SSML: "<speak>" + repromptBody + "</speak>",
			},
		}
	case Farewell:
		resp.OutputSpeech = &OutputSpeech{
			Type: "SSML",
			SSML: "<speak>" + body + "</speak>",
		}
		resp.ShouldEndSession = true
	default:
		resp.OutputSpeech = &OutputSpeech{
			Type: "SSML",
			SSML: "<speak>" + body + "</speak>",
		}
	}
	return Envelope{Version: "1.0", Response: resp}
}

// WithCard returns a copy of the envelope carrying a simple text card.
func (e Envelope) WithCard(title, content string) Envelope {
	e.Response.Card = &Card{
		Type:    "Simple",
		Title:   title,
		Content: content,
	}
	return e
}
