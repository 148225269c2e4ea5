package ai

import (
	"math/rand"

	"github.com/lab1702/fleetmind/game"
)

// Personality selects an agent's baseline behavior dials.
type Personality int

const (
	Balanced Personality = iota
	Aggressive
	Cautious
	Loyal
	Loner
)

var personalityNames = map[Personality]string{
	Balanced:   "balanced",
	Aggressive: "aggressive",
	Cautious:   "cautious",
	Loyal:      "loyal",
	Loner:      "loner",
}

func (p Personality) String() string {
	if name, ok := personalityNames[p]; ok {
		return name
	}
	return "unknown"
}

// Dials are the normalized behavior weights a personality produces.
// All values live in [0, 1].
type Dials struct {
	Aggressiveness float64
	Caution        float64
	Teamwork       float64
}

// PersonalityData maps each personality to its baseline dials.
var PersonalityData = map[Personality]Dials{
	Balanced:   {Aggressiveness: 0.5, Caution: 0.5, Teamwork: 0.5},
	Aggressive: {Aggressiveness: 0.85, Caution: 0.2, Teamwork: 0.45},
	Cautious:   {Aggressiveness: 0.3, Caution: 0.8, Teamwork: 0.55},
	Loyal:      {Aggressiveness: 0.5, Caution: 0.45, Teamwork: 0.9},
	Loner:      {Aggressiveness: 0.65, Caution: 0.55, Teamwork: 0.15},
}

// personalityJitter is the spread applied around the baseline dials at
// the easiest difficulty. Higher tiers shrink it so squads act more
// uniformly disciplined.
const personalityJitter = 0.15

// RandomizedDials returns the personality's dials with per-agent noise.
// The jitter shrinks as the difficulty midpoint rises.
func RandomizedDials(p Personality, difficultyScore float64, rng *rand.Rand) Dials {
	base := PersonalityData[p]
	spread := personalityJitter * (1.0 - 0.5*game.Clamp01(difficultyScore))
	jitter := func(v float64) float64 {
		return game.Clamp01(v + (rng.Float64()*2-1)*spread)
	}
	return Dials{
		Aggressiveness: jitter(base.Aggressiveness),
		Caution:        jitter(base.Caution),
		Teamwork:       jitter(base.Teamwork),
	}
}

// RandomPersonality draws a personality with balanced slightly favored.
func RandomPersonality(rng *rand.Rand) Personality {
	roll := rng.Float64()
	switch {
	case roll < 0.28:
		return Balanced
	case roll < 0.48:
		return Aggressive
	case roll < 0.68:
		return Cautious
	case roll < 0.86:
		return Loyal
	default:
		return Loner
	}
}
