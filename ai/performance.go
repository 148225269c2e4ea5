package ai

import "sync"

// Performance tracking
const (
	// perfWindowSize bounds the survival-time sample window.
	perfWindowSize = 10

	// deathStreakWindow is how far back deaths count toward a streak,
	// in seconds.
	deathStreakWindow = 60.0

	// flawlessKDR stands in for kills/deaths when the player has kills
	// but no deaths yet.
	flawlessKDR = 10.0
)

// PlayerPerformance is a point-in-time summary of how the player is doing.
type PlayerPerformance struct {
	AvgSurvivalTime    float64 `json:"avgSurvivalTime"`
	KillDeathRatio     float64 `json:"killDeathRatio"`
	Accuracy           float64 `json:"accuracy"`
	ShotsFired         int     `json:"shotsFired"`
	Kills              int     `json:"kills"`
	Deaths             int     `json:"deaths"`
	RecentDeathStreak  int     `json:"recentDeathStreak"`
	TimeSinceLastDeath float64 `json:"timeSinceLastDeath"`
}

// Tracker accumulates raw player combat events and derives the summary
// metrics the difficulty controller consumes. All times are simulation
// seconds.
type Tracker struct {
	mu         sync.Mutex
	now        float64
	survival   []float64
	deathTimes []float64
	kills      int
	deaths     int
	shots      int
	hits       int
}

func NewTracker() *Tracker {
	return &Tracker{}
}

// Advance moves the tracker clock forward by dt seconds.
func (t *Tracker) Advance(dt float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.now += dt
}

// Now returns the tracker clock.
func (t *Tracker) Now() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.now
}

// RecordDeath logs a player death that ended a life of survivalTime
// seconds. The survival sample window keeps the most recent
// perfWindowSize entries.
func (t *Tracker) RecordDeath(survivalTime float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.deaths++
	t.deathTimes = append(t.deathTimes, t.now)
	t.survival = append(t.survival, survivalTime)
	if len(t.survival) > perfWindowSize {
		t.survival = t.survival[len(t.survival)-perfWindowSize:]
	}
}

// RecordKill logs a player kill.
func (t *Tracker) RecordKill() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.kills++
}

// RecordShot logs one shot and whether it hit.
func (t *Tracker) RecordShot(hit bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.shots++
	if hit {
		t.hits++
	}
}

// Snapshot derives the current performance summary.
func (t *Tracker) Snapshot() PlayerPerformance {
	t.mu.Lock()
	defer t.mu.Unlock()

	p := PlayerPerformance{
		ShotsFired: t.shots,
		Kills:      t.kills,
		Deaths:     t.deaths,
	}

	if len(t.survival) > 0 {
		var sum float64
		for _, s := range t.survival {
			sum += s
		}
		p.AvgSurvivalTime = sum / float64(len(t.survival))
	}

	switch {
	case t.deaths > 0:
		p.KillDeathRatio = float64(t.kills) / float64(t.deaths)
	case t.kills > 0:
		p.KillDeathRatio = flawlessKDR
	}

	if t.shots > 0 {
		p.Accuracy = float64(t.hits) / float64(t.shots)
	}

	cutoff := t.now - deathStreakWindow
	for i := len(t.deathTimes) - 1; i >= 0; i-- {
		if t.deathTimes[i] < cutoff {
			break
		}
		p.RecentDeathStreak++
	}

	if len(t.deathTimes) > 0 {
		p.TimeSinceLastDeath = t.now - t.deathTimes[len(t.deathTimes)-1]
	} else {
		p.TimeSinceLastDeath = t.now
	}

	return p
}
