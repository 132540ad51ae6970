// Package labels defines the fixed set of toxicity labels tracked by the
// moderation pipeline and the projection from raw classifier output onto it.
package labels

import "strings"

// Tracked is the closed set of labels every scoring result carries, in the
// order they appear in tabular output.
var Tracked = []string{
	"toxic",
	"severe_toxic",
	"obscene",
	"threat",
	"insult",
	"identity_hate",
}

// DefaultFlagThreshold is the probability at or above which a single label
// marks the whole text as flagged.
const DefaultFlagThreshold = 0.5

// Scores holds one probability per tracked label. A zero Scores is valid and
// means "no label crossed zero probability".
type Scores struct {
	Toxic        float64
	SevereToxic  float64
	Obscene      float64
	Threat       float64
	Insult       float64
	IdentityHate float64
}

// FromRaw projects arbitrary classifier output onto the tracked label set.
// Keys are matched case-insensitively; labels the classifier did not return
// default to 0.0 and labels outside the tracked set are ignored.
func FromRaw(raw map[string]float64) Scores {
	var s Scores
	for name, p := range raw {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "toxic":
			s.Toxic = p
		case "severe_toxic":
			s.SevereToxic = p
		case "obscene":
			s.Obscene = p
		case "threat":
			s.Threat = p
		case "insult":
			s.Insult = p
		case "identity_hate":
			s.IdentityHate = p
		}
	}
	return s
}

// FromMap builds Scores from a map already keyed by tracked label names,
// e.g. a decoded cache entry.
func FromMap(m map[string]float64) Scores {
	return FromRaw(m)
}

// Map returns the scores keyed by tracked label name. Every tracked label is
// present in the result.
func (s Scores) Map() map[string]float64 {
	return map[string]float64{
		"toxic":         s.Toxic,
		"severe_toxic":  s.SevereToxic,
		"obscene":       s.Obscene,
		"threat":        s.Threat,
		"insult":        s.Insult,
		"identity_hate": s.IdentityHate,
	}
}

// Values returns the scores in Tracked order.
func (s Scores) Values() []float64 {
	return []float64{s.Toxic, s.SevereToxic, s.Obscene, s.Threat, s.Insult, s.IdentityHate}
}

// Flagged reports whether any tracked label probability is at or above the
// threshold.
func (s Scores) Flagged(threshold float64) bool {
	for _, v := range s.Values() {
		if v >= threshold {
			return true
		}
	}
	return false
}

// Primary returns the probability of the "toxic" label, the pipeline's
// headline score.
func (s Scores) Primary() float64 {
	return s.Toxic
}
