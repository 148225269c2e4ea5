package ai

import (
	"sync"

	"github.com/google/uuid"
	"github.com/lab1702/fleetmind/game"
)

// Knowledge store tuning
const (
	// ThreatCellSize quantizes reported positions so repeated sightings
	// of the same area overwrite one record instead of accumulating.
	ThreatCellSize = 200.0

	// IntelCorrelateDist merges reports on the same subject closer than
	// this into one record with boosted confidence.
	IntelCorrelateDist = 300.0

	// IntelCapacity bounds the intel database; oldest entries are evicted.
	IntelCapacity = 128

	// IntelConfidenceBoost is added per corroborating report.
	IntelConfidenceBoost = 0.15
)

// ThreatRecord is one known hostile presence.
type ThreatRecord struct {
	Level    int
	Position game.Vec3
	LastSeen float64 // simulation seconds
	Source   uuid.UUID
}

// ThreatDB maps observed positions to threat info. Writes are
// last-write-wins per quantized cell; no freshness invariant is
// enforced beyond that.
type ThreatDB struct {
	mu      sync.RWMutex
	threats map[[3]int]ThreatRecord
}

func NewThreatDB() *ThreatDB {
	return &ThreatDB{threats: make(map[[3]int]ThreatRecord)}
}

func threatCell(pos game.Vec3) [3]int {
	return [3]int{
		int(pos.X / ThreatCellSize),
		int(pos.Y / ThreatCellSize),
		int(pos.Z / ThreatCellSize),
	}
}

// Report records a threat sighting, replacing any prior record for the
// same cell.
func (db *ThreatDB) Report(pos game.Vec3, level int, now float64, source uuid.UUID) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.threats[threatCell(pos)] = ThreatRecord{
		Level:    level,
		Position: pos,
		LastSeen: now,
		Source:   source,
	}
}

// Raise increases the threat level near pos, creating a record if none
// exists. Used for retaliation signals such as ally losses.
func (db *ThreatDB) Raise(pos game.Vec3, delta int, now float64, source uuid.UUID) {
	db.mu.Lock()
	defer db.mu.Unlock()
	cell := threatCell(pos)
	rec := db.threats[cell]
	rec.Level += delta
	rec.Position = pos
	rec.LastSeen = now
	rec.Source = source
	db.threats[cell] = rec
}

// ThreatAt returns the record covering pos, if any.
func (db *ThreatDB) ThreatAt(pos game.Vec3) (ThreatRecord, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	rec, ok := db.threats[threatCell(pos)]
	return rec, ok
}

// ThreatsNear returns all records within radius of pos.
func (db *ThreatDB) ThreatsNear(pos game.Vec3, radius float64) []ThreatRecord {
	db.mu.RLock()
	defer db.mu.RUnlock()
	var result []ThreatRecord
	for _, rec := range db.threats {
		if game.Distance(pos, rec.Position) <= radius {
			result = append(result, rec)
		}
	}
	return result
}

// Prune drops records not refreshed within maxAge seconds of now.
func (db *ThreatDB) Prune(now, maxAge float64) {
	db.mu.Lock()
	defer db.mu.Unlock()
	for cell, rec := range db.threats {
		if now-rec.LastSeen > maxAge {
			delete(db.threats, cell)
		}
	}
}

// Len returns the number of live threat records.
func (db *ThreatDB) Len() int {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return len(db.threats)
}

// AllyStatus is the last self-reported state of one agent.
type AllyStatus struct {
	HealthRatio float64
	Position    game.Vec3
	Velocity    game.Vec3
	InCombat    bool
	Ammo        int
	ReportedAt  float64
}

// AllyTracker maps agents to their last reported status. Last write wins.
type AllyTracker struct {
	mu       sync.RWMutex
	statuses map[uuid.UUID]AllyStatus
}

func NewAllyTracker() *AllyTracker {
	return &AllyTracker{statuses: make(map[uuid.UUID]AllyStatus)}
}

func (t *AllyTracker) Update(id uuid.UUID, status AllyStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.statuses[id] = status
}

func (t *AllyTracker) Status(id uuid.UUID) (AllyStatus, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.statuses[id]
	return s, ok
}

// Forget removes an agent's record, typically on destruction.
func (t *AllyTracker) Forget(id uuid.UUID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.statuses, id)
}

// Each calls fn for every tracked ally. fn must not call back into the
// tracker.
func (t *AllyTracker) Each(fn func(id uuid.UUID, status AllyStatus)) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for id, s := range t.statuses {
		fn(id, s)
	}
}

func (t *AllyTracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.statuses)
}

// IntelRecord is one correlated intelligence report.
type IntelRecord struct {
	Subject    string
	Position   game.Vec3
	Confidence float64
	ReportedAt float64
	Source     uuid.UUID
	Reports    int // corroborating report count
}

// IntelDB accumulates intelligence reports. Reports on the same subject
// near an existing record merge into it and boost its confidence;
// otherwise records append, oldest evicted past capacity.
type IntelDB struct {
	mu      sync.Mutex
	records []IntelRecord
	cap     int
}

func NewIntelDB() *IntelDB {
	return &IntelDB{cap: IntelCapacity}
}

func (db *IntelDB) Record(rec IntelRecord) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for i := range db.records {
		existing := &db.records[i]
		if existing.Subject != rec.Subject {
			continue
		}
		if game.Distance(existing.Position, rec.Position) > IntelCorrelateDist {
			continue
		}
		existing.Position = rec.Position
		existing.Confidence = game.Clamp01(existing.Confidence + IntelConfidenceBoost)
		existing.ReportedAt = rec.ReportedAt
		existing.Source = rec.Source
		existing.Reports++
		return
	}

	rec.Reports = 1
	db.records = append(db.records, rec)
	if len(db.records) > db.cap {
		db.records = db.records[len(db.records)-db.cap:]
	}
}

// Recent returns up to n records, newest last.
func (db *IntelDB) Recent(n int) []IntelRecord {
	db.mu.Lock()
	defer db.mu.Unlock()
	if n > len(db.records) {
		n = len(db.records)
	}
	out := make([]IntelRecord, n)
	copy(out, db.records[len(db.records)-n:])
	return out
}

func (db *IntelDB) Len() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.records)
}
