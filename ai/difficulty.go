package ai

import (
	"fmt"
	"sync"

	"github.com/lab1702/fleetmind/game"
)

// Level is one of the five difficulty tiers.
type Level int

const (
	VeryEasy Level = iota
	Easy
	Medium
	Hard
	VeryHard
)

var levelNames = map[Level]string{
	VeryEasy: "very_easy",
	Easy:     "easy",
	Medium:   "medium",
	Hard:     "hard",
	VeryHard: "very_hard",
}

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return "unknown"
}

// ParseLevel maps a config string to its tier.
func ParseLevel(s string) (Level, error) {
	switch s {
	case "very_easy":
		return VeryEasy, nil
	case "easy":
		return Easy, nil
	case "medium":
		return Medium, nil
	case "hard":
		return Hard, nil
	case "very_hard":
		return VeryHard, nil
	}
	return Medium, fmt.Errorf("unknown difficulty level %q", s)
}

// LevelForScore maps a score in [0, 1] to its tier.
func LevelForScore(score float64) Level {
	switch {
	case score <= 0.2:
		return VeryEasy
	case score <= 0.4:
		return Easy
	case score <= 0.6:
		return Medium
	case score <= 0.8:
		return Hard
	default:
		return VeryHard
	}
}

// Midpoint returns the center score of the tier's band.
func (l Level) Midpoint() float64 {
	switch l {
	case VeryEasy:
		return 0.1
	case Easy:
		return 0.3
	case Hard:
		return 0.7
	case VeryHard:
		return 0.9
	default:
		return 0.5
	}
}

// Enhancements are the tier-wide multipliers applied to agent baseline
// stats and squad behavior. Multipliers scale baselines; they never
// compound across tier changes.
type Enhancements struct {
	SpeedMult                float64
	HealthMult               float64
	AccuracyMult             float64
	DetectionMult            float64
	AggressionMult           float64
	TeamworkMult             float64
	ReactionTimeMult         float64
	SpacingMult              float64
	FormationComplexity      FormationComplexity
	MaxSimultaneousAttackers int
}

// EnhancementData maps each tier to its multipliers. Medium is the
// neutral baseline.
var EnhancementData = map[Level]Enhancements{
	VeryEasy: {
		SpeedMult: 0.8, HealthMult: 0.8, AccuracyMult: 0.6,
		DetectionMult: 0.8, AggressionMult: 0.7, TeamworkMult: 0.6,
		ReactionTimeMult: 1.4, SpacingMult: 1.3,
		FormationComplexity: ComplexitySimple, MaxSimultaneousAttackers: 3,
	},
	Easy: {
		SpeedMult: 0.9, HealthMult: 0.9, AccuracyMult: 0.8,
		DetectionMult: 0.9, AggressionMult: 0.85, TeamworkMult: 0.8,
		ReactionTimeMult: 1.2, SpacingMult: 1.15,
		FormationComplexity: ComplexitySimple, MaxSimultaneousAttackers: 4,
	},
	Medium: {
		SpeedMult: 1.0, HealthMult: 1.0, AccuracyMult: 1.0,
		DetectionMult: 1.0, AggressionMult: 1.0, TeamworkMult: 1.0,
		ReactionTimeMult: 1.0, SpacingMult: 1.0,
		FormationComplexity: ComplexityStandard, MaxSimultaneousAttackers: 6,
	},
	Hard: {
		SpeedMult: 1.15, HealthMult: 1.2, AccuracyMult: 1.15,
		DetectionMult: 1.15, AggressionMult: 1.2, TeamworkMult: 1.2,
		ReactionTimeMult: 0.85, SpacingMult: 0.9,
		FormationComplexity: ComplexityStandard, MaxSimultaneousAttackers: 8,
	},
	VeryHard: {
		SpeedMult: 1.3, HealthMult: 1.4, AccuracyMult: 1.3,
		DetectionMult: 1.3, AggressionMult: 1.4, TeamworkMult: 1.4,
		ReactionTimeMult: 0.7, SpacingMult: 0.8,
		FormationComplexity: ComplexityAdvanced, MaxSimultaneousAttackers: 10,
	},
}

// Target score formula
const (
	targetBase = 0.5

	survivalHighSecs = 120.0
	survivalLowSecs  = 30.0
	survivalBonus    = 0.2
	survivalPenalty  = 0.3

	kdrHigh    = 2.0
	kdrLow     = 0.5
	kdrBonus   = 0.3
	kdrPenalty = 0.2

	accuracyHigh    = 0.8
	accuracyLow     = 0.3
	accuracyBonus   = 0.1
	accuracyPenalty = 0.1

	streakThreshold = 3
	streakPenalty   = 0.4

	noDeathSecs  = 180.0
	noDeathBonus = 0.2
)

// computeTarget derives the target score from a performance snapshot.
// Terms with no data yet (no completed lives, no combat, no shots) are
// skipped instead of penalizing a fresh session.
func computeTarget(p PlayerPerformance) float64 {
	target := targetBase

	if p.Deaths > 0 {
		if p.AvgSurvivalTime > survivalHighSecs {
			target += survivalBonus
		} else if p.AvgSurvivalTime < survivalLowSecs {
			target -= survivalPenalty
		}
	}

	if p.Kills > 0 || p.Deaths > 0 {
		if p.KillDeathRatio > kdrHigh {
			target += kdrBonus
		} else if p.KillDeathRatio < kdrLow {
			target -= kdrPenalty
		}
	}

	if p.ShotsFired > 0 {
		if p.Accuracy > accuracyHigh {
			target += accuracyBonus
		} else if p.Accuracy < accuracyLow {
			target -= accuracyPenalty
		}
	}

	if p.RecentDeathStreak >= streakThreshold {
		target -= streakPenalty
	}

	if p.TimeSinceLastDeath > noDeathSecs {
		target += noDeathBonus
	}

	return game.Clamp01(target)
}

// smooth moves score toward target by the adaptation rate.
func smooth(score, target, rate float64) float64 {
	return game.Clamp01(score + (target-score)*rate)
}

// Controller closes the difficulty loop: every evaluation interval it
// snapshots player performance, nudges the score toward the computed
// target, and on tier crossings hands the new enhancements to the
// apply callback.
type Controller struct {
	mu      sync.Mutex
	tracker *Tracker
	cfg     DifficultyConfig
	score   float64
	level   Level
	accum   float64
	apply   func(Level, Enhancements)
}

func NewController(tracker *Tracker, cfg DifficultyConfig, apply func(Level, Enhancements)) (*Controller, error) {
	level, err := ParseLevel(cfg.InitialLevel)
	if err != nil {
		return nil, err
	}
	return &Controller{
		tracker: tracker,
		cfg:     cfg,
		score:   level.Midpoint(),
		level:   level,
		apply:   apply,
	}, nil
}

// Update advances the evaluation accumulator by dt seconds.
func (c *Controller) Update(dt float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accum += dt
	for c.accum >= c.cfg.EvaluationInterval {
		c.accum -= c.cfg.EvaluationInterval
		c.evaluateLocked()
	}
}

// Evaluate forces one evaluation step immediately.
func (c *Controller) Evaluate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.evaluateLocked()
}

func (c *Controller) evaluateLocked() {
	p := c.tracker.Snapshot()
	target := computeTarget(p)
	c.score = smooth(c.score, target, c.cfg.AdaptationRate)

	next := LevelForScore(c.score)
	if next == c.level {
		return
	}
	prev := c.level
	c.level = next
	if c.apply != nil {
		c.apply(next, EnhancementData[next])
	}
	postEvent(NotifyTierChanged, TierEvent{
		Previous: prev.String(),
		Current:  next.String(),
		Score:    c.score,
	})
}

// SetDifficulty pins the score to the tier midpoint and reapplies the
// tier's enhancements regardless of the previous tier.
func (c *Controller) SetDifficulty(l Level) {
	c.mu.Lock()
	defer c.mu.Unlock()
	prev := c.level
	c.level = l
	c.score = l.Midpoint()
	if c.apply != nil {
		c.apply(l, EnhancementData[l])
	}
	if prev != l {
		postEvent(NotifyTierChanged, TierEvent{
			Previous: prev.String(),
			Current:  l.String(),
			Score:    c.score,
		})
	}
}

// Score returns the current difficulty score.
func (c *Controller) Score() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.score
}

// Level returns the current tier.
func (c *Controller) Level() Level {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.level
}

// Enhancements returns the current tier's multipliers.
func (c *Controller) Enhancements() Enhancements {
	c.mu.Lock()
	defer c.mu.Unlock()
	return EnhancementData[c.level]
}
