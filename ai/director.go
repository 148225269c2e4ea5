package ai

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/lab1702/fleetmind/game"
)

const (
	threatMaxAge        = 30.0
	threatPruneInterval = 5.0
	squadSpawnJitter    = 200.0
)

// Services bundles the shared systems every agent depends on. They are
// constructed once and injected; nothing here is package-global.
type Services struct {
	Hub        *Hub
	Threats    *ThreatDB
	Allies     *AllyTracker
	Intel      *IntelDB
	Formations *FormationManager
	Limiter    *EngagementLimiter
	Player     *PlayerTrack
	PlayerID   uuid.UUID
	Rand       *rand.Rand
	Comms      EndpointConfig
	Clock      func() float64
	States     *StateSet
	Intents    *IntentBuffer
}

// NewServices wires a fresh service set. Clock must return simulation
// seconds; the director supplies its own tick clock.
func NewServices(cfg Config, rng *rand.Rand, clock func() float64) *Services {
	if clock == nil {
		clock = func() float64 { return 0 }
	}
	return &Services{
		Hub:        NewHub(cfg.Comms.Range),
		Threats:    NewThreatDB(),
		Allies:     NewAllyTracker(),
		Intel:      NewIntelDB(),
		Formations: NewFormationManager(),
		Limiter:    NewEngagementLimiter(EnhancementData[Medium].MaxSimultaneousAttackers),
		Player:     &PlayerTrack{},
		PlayerID:   uuid.New(),
		Rand:       rng,
		Comms:      cfg.Comms.Endpoint(),
		Clock:      clock,
		States:     NewStateSet(),
		Intents:    NewIntentBuffer(),
	}
}

// EngagementLimiter caps how many agents may hold an attack slot at
// once. Acquire is idempotent for a holder; raising the cap admits
// more, lowering it lets current holders drain out naturally.
type EngagementLimiter struct {
	mu        sync.Mutex
	cap       int
	attackers map[uuid.UUID]struct{}
}

func NewEngagementLimiter(cap int) *EngagementLimiter {
	return &EngagementLimiter{
		cap:       cap,
		attackers: make(map[uuid.UUID]struct{}),
	}
}

// Acquire takes an attack slot. Returns true if the caller already
// holds one or a slot is free.
func (l *EngagementLimiter) Acquire(id uuid.UUID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.attackers[id]; ok {
		return true
	}
	if len(l.attackers) >= l.cap {
		return false
	}
	l.attackers[id] = struct{}{}
	return true
}

// Release frees the caller's slot, if held.
func (l *EngagementLimiter) Release(id uuid.UUID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.attackers, id)
}

// SetCap changes the slot count.
func (l *EngagementLimiter) SetCap(n int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if n < 1 {
		n = 1
	}
	l.cap = n
}

func (l *EngagementLimiter) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.attackers)
}

func (l *EngagementLimiter) Cap() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cap
}

// PlayerTrack is the shared view of the player ship the executing layer
// feeds each tick. Agents sample it during perception.
type PlayerTrack struct {
	mu   sync.Mutex
	pos  game.Vec3
	vel  game.Vec3
	seen bool
}

// Set publishes the player's current kinematic state.
func (t *PlayerTrack) Set(pos, vel game.Vec3) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pos = pos
	t.vel = vel
	t.seen = true
}

// Clear marks the player absent, e.g. between death and respawn.
func (t *PlayerTrack) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seen = false
}

// Sample returns the last published state and whether one exists.
func (t *PlayerTrack) Sample() (pos, vel game.Vec3, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pos, t.vel, t.seen
}

// Director owns the agent population and drives everything one tick at
// a time: perception, state machines, endpoint drains, and the
// difficulty loop. The caller integrates movement from drained intents.
type Director struct {
	cfg     Config
	sv      *Services
	tracker *Tracker
	ctrl    *Controller

	mu       sync.RWMutex
	agents   map[uuid.UUID]*Agent
	order    []uuid.UUID
	counters map[game.ShipClass]int

	clock      float64
	pruneAccum float64
}

func NewDirector(cfg Config) (*Director, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	seed := cfg.Sim.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	d := &Director{
		cfg:      cfg,
		tracker:  NewTracker(),
		agents:   make(map[uuid.UUID]*Agent),
		counters: make(map[game.ShipClass]int),
	}
	d.sv = NewServices(cfg, rand.New(rand.NewSource(seed)), func() float64 { return d.clock })

	ctrl, err := NewController(d.tracker, cfg.Difficulty, d.applyEnhancements)
	if err != nil {
		return nil, err
	}
	d.ctrl = ctrl

	enh := ctrl.Enhancements()
	d.sv.Limiter.SetCap(enh.MaxSimultaneousAttackers)
	d.sv.Formations.ApplySpacing(enh.SpacingMult)
	return d, nil
}

// Services exposes the shared systems, mainly for the hosting layer
// and tests.
func (d *Director) Services() *Services {
	return d.sv
}

// Tracker returns the player performance tracker the executing layer
// records combat events into.
func (d *Director) Tracker() *Tracker {
	return d.tracker
}

// Controller returns the difficulty controller.
func (d *Director) Controller() *Controller {
	return d.ctrl
}

// PlayerID is the well-known id agents use to address the player.
func (d *Director) PlayerID() uuid.UUID {
	return d.sv.PlayerID
}

// Clock returns the current simulation time in seconds.
func (d *Director) Clock() float64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.clock
}

// Spawn creates and registers one agent, applying the current tier's
// enhancements before its first tick.
func (d *Director) Spawn(name string, class game.ShipClass, p Personality, pos game.Vec3) *Agent {
	score := d.ctrl.Score()
	enh := d.ctrl.Enhancements()

	a := NewAgent(d.sv, name, class, p, pos, score)
	a.ApplyEnhancements(enh)
	d.sv.Hub.Register(a.ID, a.endpoint, a.Position)
	a.Start()

	d.mu.Lock()
	d.agents[a.ID] = a
	d.order = append(d.order, a.ID)
	d.mu.Unlock()

	postEvent(NotifyAgentSpawned, AgentEvent{ID: a.ID.String(), Name: a.Name, Class: a.Class.String()})
	log.Info("agent spawned", "name", a.Name, "class", a.Class, "personality", a.Personality)
	return a
}

// SpawnSquad spawns n agents around center and binds them into one
// formation, downgraded to the geometry the current tier allows. The
// first agent spawned leads the formation.
func (d *Director) SpawnSquad(n int, ft FormationType, center game.Vec3) []*Agent {
	if n <= 0 {
		return nil
	}
	ft = ft.Downgrade(d.ctrl.Enhancements().FormationComplexity)
	fid := d.sv.Formations.Create(ft, center, game.Vec3{Z: 1}, 1)

	agents := make([]*Agent, 0, n)
	for i := 0; i < n; i++ {
		class := d.squadClass(i)
		pos := center.Add(game.Vec3{
			X: (d.sv.Rand.Float64()*2 - 1) * squadSpawnJitter,
			Y: (d.sv.Rand.Float64()*2 - 1) * squadSpawnJitter * 0.3,
			Z: (d.sv.Rand.Float64()*2 - 1) * squadSpawnJitter,
		})
		a := d.Spawn(d.nextName(class), class, RandomPersonality(d.sv.Rand), pos)
		if _, err := d.sv.Formations.Join(fid, a.ID); err != nil {
			log.Warn("formation join failed", "agent", a.Name, "err", err)
		}
		agents = append(agents, a)
	}
	return agents
}

// squadClass picks a ship class for squad slot i. Slot 0 gets a
// cruiser to anchor the wing.
func (d *Director) squadClass(i int) game.ShipClass {
	if i == 0 {
		return game.ShipCruiser
	}
	roll := d.sv.Rand.Float64()
	switch {
	case roll < 0.5:
		return game.ShipFighter
	case roll < 0.8:
		return game.ShipInterceptor
	case roll < 0.95:
		return game.ShipBomber
	default:
		return game.ShipCarrier
	}
}

func (d *Director) nextName(class game.ShipClass) string {
	d.mu.Lock()
	d.counters[class]++
	n := d.counters[class]
	d.mu.Unlock()
	return fmt.Sprintf("%s-%d", game.ShipData[class].Name, n)
}

// Destroy removes an agent. The loss is broadcast to ships in range
// before the endpoint unregisters, so neighbors can react.
func (d *Director) Destroy(id, killer uuid.UUID) {
	d.mu.Lock()
	a, ok := d.agents[id]
	if !ok {
		d.mu.Unlock()
		return
	}
	delete(d.agents, id)
	for i, oid := range d.order {
		if oid == id {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
	d.mu.Unlock()

	a.destroyed = true
	d.sv.Hub.Broadcast(Message{
		Type:      MsgAllyDestroyed,
		Sender:    id,
		Position:  a.Position,
		Timestamp: d.clock,
		Broadcast: true,
		Priority:  PriorityHigh,
		Payload: AllyDestroyedPayload{
			AgentID:  id,
			Position: a.Position,
			Killer:   killer,
		},
	})
	d.sv.Hub.Unregister(id)
	d.sv.Formations.Leave(id)
	d.sv.Limiter.Release(id)
	d.sv.Allies.Forget(id)

	postEvent(NotifyAgentDestroyed, AgentEvent{ID: id.String(), Name: a.Name, Class: a.Class.String()})
	log.Info("agent destroyed", "name", a.Name, "killer", killer)
}

// Update advances the engine one tick of dt seconds.
func (d *Director) Update(dt float64) {
	d.mu.Lock()
	d.clock += dt
	d.mu.Unlock()

	d.tracker.Advance(dt)
	d.reapDestroyed()

	d.mu.Lock()
	for _, id := range d.order {
		a := d.agents[id]
		d.sv.Hub.UpdatePosition(a.ID, a.Position)
	}
	d.sv.Hub.Reindex()

	for _, id := range d.order {
		d.agents[id].Update(dt)
	}
	for _, id := range d.order {
		d.agents[id].endpoint.Update(dt)
	}
	d.mu.Unlock()

	d.pruneAccum += dt
	if d.pruneAccum >= threatPruneInterval {
		d.pruneAccum = 0
		d.sv.Threats.Prune(d.clock, threatMaxAge)
	}

	d.ctrl.Update(dt)
}

func (d *Director) reapDestroyed() {
	d.mu.RLock()
	var dead []*Agent
	for _, a := range d.agents {
		if a.Destroyed() {
			dead = append(dead, a)
		}
	}
	d.mu.RUnlock()
	for _, a := range dead {
		d.Destroy(a.ID, a.lastAttacker)
	}
}

// DrainIntents hands the tick's accumulated intents to the executing
// layer.
func (d *Director) DrainIntents() []Intent {
	return d.sv.Intents.Drain()
}

// Agent looks up a live agent by id.
func (d *Director) Agent(id uuid.UUID) (*Agent, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	a, ok := d.agents[id]
	return a, ok
}

// Count returns the live agent count.
func (d *Director) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.agents)
}

// Each calls fn for every live agent in spawn order.
func (d *Director) Each(fn func(a *Agent)) {
	d.mu.RLock()
	ids := append([]uuid.UUID(nil), d.order...)
	d.mu.RUnlock()
	for _, id := range ids {
		d.mu.RLock()
		a, ok := d.agents[id]
		d.mu.RUnlock()
		if ok {
			fn(a)
		}
	}
}

// OrderFormation creates a formation at dest and orders every agent
// into it. Returns the formation id.
func (d *Director) OrderFormation(ft FormationType, dest game.Vec3) uuid.UUID {
	ft = ft.Downgrade(d.ctrl.Enhancements().FormationComplexity)
	fid := d.sv.Formations.Create(ft, dest, game.Vec3{Z: 1}, 1)

	d.mu.RLock()
	ids := append([]uuid.UUID(nil), d.order...)
	now := d.clock
	d.mu.RUnlock()

	for _, id := range ids {
		d.sv.Hub.Send(Message{
			Type:      MsgFormationOrder,
			Target:    id,
			Position:  dest,
			Timestamp: now,
			Priority:  PriorityHigh,
			Payload: FormationOrderPayload{
				FormationID: fid,
				Type:        ft,
				Destination: dest,
			},
		})
	}
	log.Info("formation ordered", "type", ft, "agents", len(ids))
	return fid
}

// OrderManeuver sends a tactical order to every agent.
func (d *Director) OrderManeuver(m Maneuver, pos game.Vec3) {
	d.mu.RLock()
	ids := append([]uuid.UUID(nil), d.order...)
	now := d.clock
	d.mu.RUnlock()

	for _, id := range ids {
		d.sv.Hub.Send(Message{
			Type:      MsgTacticalOrder,
			Target:    id,
			Position:  pos,
			Timestamp: now,
			Priority:  PriorityUrgent,
			Payload: TacticalOrderPayload{
				Maneuver: m,
				Position: pos,
			},
		})
	}
	log.Info("maneuver ordered", "maneuver", m, "agents", len(ids))
}

// DirectorStatus is the monitoring snapshot of the whole engine.
type DirectorStatus struct {
	Clock       float64           `json:"clock"`
	AgentCount  int               `json:"agentCount"`
	Agents      []AgentStatus     `json:"agents"`
	Formations  []FormationStatus `json:"formations"`
	Level       string            `json:"level"`
	Score       float64           `json:"score"`
	Performance PlayerPerformance `json:"performance"`
	Attackers   int               `json:"attackers"`
}

// Snapshot assembles the monitoring view.
func (d *Director) Snapshot() DirectorStatus {
	level := d.ctrl.Level().String()
	score := d.ctrl.Score()
	perf := d.tracker.Snapshot()
	formations := d.sv.Formations.Snapshot()
	attackers := d.sv.Limiter.Count()

	d.mu.RLock()
	defer d.mu.RUnlock()
	st := DirectorStatus{
		Clock:       d.clock,
		AgentCount:  len(d.agents),
		Agents:      make([]AgentStatus, 0, len(d.agents)),
		Formations:  formations,
		Level:       level,
		Score:       score,
		Performance: perf,
		Attackers:   attackers,
	}
	for _, id := range d.order {
		st.Agents = append(st.Agents, d.agents[id].Status())
	}
	return st
}

// applyEnhancements is the difficulty controller's callback: retune
// every live agent from its baseline, then the squad-level knobs.
func (d *Director) applyEnhancements(l Level, e Enhancements) {
	d.mu.Lock()
	for _, id := range d.order {
		d.agents[id].ApplyEnhancements(e)
	}
	d.mu.Unlock()

	d.sv.Formations.ApplySpacing(e.SpacingMult)
	d.sv.Limiter.SetCap(e.MaxSimultaneousAttackers)
	log.Info("difficulty tier applied", "level", l, "maxAttackers", e.MaxSimultaneousAttackers)
}
