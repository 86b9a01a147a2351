package rss

import (
	"math"
	"strings"
	"unicode"

	"github.com/couchcryptid/signal-fusion-service/internal/domain"
)

type term struct {
	phrase string
	weight float64
}

// Risk-on phrases are scanned and blanked first so "de-escalation" is not
// also read as "escalation".
var riskOnTerms = []term{
	{"de-escalat", 25},
	{"ceasefire", 25},
	{"cease-fire", 25},
	{"truce", 20},
	{"peace deal", 25},
	{"agreement", 12},
	{"talks resume", 15},
	{"rate cut", 15},
	{"stimulus", 15},
	{"rally", 12},
	{"record high", 12},
	{"rebound", 10},
}

var riskOffTerms = []term{
	{"missile", 30},
	{"nuclear", 30},
	{"invasion", 35},
	{" war ", 25},
	{" wars ", 25},
	{"attack", 25},
	{"strike", 20},
	{"blockade", 30},
	{"escalat", 25},
	{"explosion", 25},
	{"earthquake", 25},
	{"tsunami", 30},
	{"sanction", 20},
	{"tariff", 15},
	{"embargo", 25},
	{"default", 25},
	{"crash", 25},
	{"selloff", 20},
	{"sell-off", 20},
	{"plunge", 20},
	{"evacuat", 20},
	{"drill", 10},
	{"tension", 15},
	{"shortage", 15},
}

const (
	baseStrength   = 10
	hitConfidence  = 0.5
	confidenceStep = 0.05
	maxConfidence  = 0.7
)

// sentiment is the lexicon reading of one headline.
type sentiment struct {
	strength   float64
	direction  domain.Direction
	confidence float64
	hits       int
}

// score reads a headline against the lexicon. Strength is a base of 10 plus
// the weight of every matched phrase, capped at 100. Direction follows the
// heavier side; equal non-zero weights are ambiguous.
func score(text string) sentiment {
	text = " " + strings.Map(foldRune, text) + " "

	var on, off float64
	hits := 0
	for _, t := range riskOnTerms {
		if strings.Contains(text, t.phrase) {
			on += t.weight
			hits++
			text = strings.ReplaceAll(text, t.phrase, " ")
		}
	}
	for _, t := range riskOffTerms {
		if strings.Contains(text, t.phrase) {
			off += t.weight
			hits++
		}
	}

	s := sentiment{
		strength:   math.Min(100, baseStrength+on+off),
		direction:  domain.DirectionNeutral,
		confidence: math.Min(maxConfidence, hitConfidence+confidenceStep*float64(hits-1)),
		hits:       hits,
	}
	switch {
	case off > on:
		s.direction = domain.DirectionRiskOff
	case on > off:
		s.direction = domain.DirectionRiskOn
	case on > 0:
		s.direction = domain.DirectionAmbiguous
	}
	return s
}

// foldRune lowercases letters and turns punctuation into spaces so phrases
// with explicit word boundaries match at the edges of a headline.
func foldRune(r rune) rune {
	if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' {
		return unicode.ToLower(r)
	}
	return ' '
}
