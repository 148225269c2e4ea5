package server

import (
	"math"
	"math/rand"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/lab1702/fleetmind/ai"
	"github.com/lab1702/fleetmind/game"
)

// Simulation tuning
const (
	playerMaxHealth    = 400.0
	playerRespawnSecs  = 4.0
	playerFireInterval = 0.5
	playerAttackRange  = 900.0
	playerAccuracy     = 0.7
	playerShotDamage   = 14.0

	// Player flight path. The hosted player flies a fixed wandering
	// loop so the engine has a live contact to hunt.
	playerPathRadius = 1800.0
	playerPathHeight = 300.0
	playerPathRateX  = 0.11
	playerPathRateY  = 0.23
	playerPathRateZ  = 0.07

	// spreadHitPenalty converts fire dispersion into lost hit chance.
	spreadHitPenalty = 0.5

	reinforceInterval = 15.0
	spawnRingRadius   = 3000.0
)

// weaponDamage is per-shot hull damage by ship class.
var weaponDamage = map[game.ShipClass]float64{
	game.ShipFighter:     6,
	game.ShipInterceptor: 5,
	game.ShipBomber:      18,
	game.ShipCruiser:     12,
	game.ShipCarrier:     8,
}

type playerShip struct {
	Pos       game.Vec3
	Vel       game.Vec3
	Health    float64
	Alive     bool
	SpawnedAt float64
	RespawnAt float64
}

// World hosts the engine in a self-contained demo simulation: it flies
// the player ship, integrates agent intents into kinematics, resolves
// weapon fire, and records the combat outcomes that drive the
// difficulty loop.
type World struct {
	cfg      ai.Config
	director *ai.Director
	rng      *rand.Rand

	mu             sync.Mutex
	clock          float64
	player         playerShip
	fireAccum      float64
	reinforceAccum float64
}

// NewWorld builds the demo world around an engine and spawns the
// opening squad.
func NewWorld(cfg ai.Config, d *ai.Director) *World {
	seed := cfg.Sim.Seed
	if seed == 0 {
		seed = 1
	}
	w := &World{
		cfg:      cfg,
		director: d,
		rng:      rand.New(rand.NewSource(seed + 1)),
	}
	w.player = playerShip{
		Pos:    playerPathAt(0),
		Health: playerMaxHealth,
		Alive:  true,
	}
	d.Services().Player.Set(w.player.Pos, game.Vec3{})

	if cfg.Sim.Agents > 0 {
		ft, _ := ai.ParseFormationType(cfg.Sim.Formation)
		d.SpawnSquad(cfg.Sim.Agents, ft, w.spawnCenter())
	}
	return w
}

// Director returns the hosted engine.
func (w *World) Director() *ai.Director {
	return w.director
}

// Step advances the whole simulation by dt seconds. Called from the
// server tick loop only.
func (w *World) Step(dt float64) {
	w.mu.Lock()
	w.clock += dt
	w.mu.Unlock()

	w.advancePlayer(dt)
	w.director.Update(dt)
	w.applyIntents(w.director.DrainIntents(), dt)
	w.playerCombat(dt)
	w.reinforce(dt)
}

// playerPathAt is the player's scripted flight path.
func playerPathAt(t float64) game.Vec3 {
	return game.Vec3{
		X: playerPathRadius * math.Sin(t*playerPathRateX),
		Y: playerPathHeight * math.Sin(t*playerPathRateY),
		Z: playerPathRadius * math.Cos(t*playerPathRateZ),
	}
}

func (w *World) advancePlayer(dt float64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.player.Alive {
		if w.clock < w.player.RespawnAt {
			return
		}
		w.player.Alive = true
		w.player.Health = playerMaxHealth
		w.player.SpawnedAt = w.clock
		w.player.Pos = playerPathAt(w.clock)
		w.player.Vel = game.Vec3{}
		log.Info("player respawned", "clock", w.clock)
	}

	next := playerPathAt(w.clock)
	if dt > 0 {
		w.player.Vel = next.Sub(w.player.Pos).Scale(1 / dt)
	}
	w.player.Pos = next
	w.director.Services().Player.Set(w.player.Pos, w.player.Vel)
}

// applyIntents integrates the tick's drained intents: moves and aims
// turn the hull within the class turn rate, fire resolves instantly
// against the player.
func (w *World) applyIntents(intents []ai.Intent, dt float64) {
	for _, in := range intents {
		a, ok := w.director.Agent(in.Agent)
		if !ok || a.Destroyed() {
			continue
		}
		switch in.Kind {
		case ai.IntentMove:
			w.moveAgent(a, in, dt)
		case ai.IntentAim:
			w.turnAgent(a, in.Aim, dt)
		case ai.IntentFire:
			w.resolveShot(a, in)
		case ai.IntentStop:
			a.Velocity = game.Vec3{}
		}
	}
}

func (w *World) moveAgent(a *ai.Agent, in ai.Intent, dt float64) {
	dir := in.Dest.Sub(a.Position)
	if dir.IsZero() {
		return
	}
	a.Forward = game.RotateToward(a.Forward, dir.Normalize(), a.Eff.RotationSpeed*dt)
	_, up, _ := game.Basis(a.Forward)
	a.Up = up

	speed := in.Speed
	if speed <= 0 || speed > a.Eff.Speed {
		speed = a.Eff.Speed
	}
	a.Velocity = a.Forward.Scale(speed)
	a.Position = game.ClampToWorld(a.Position.Add(a.Velocity.Scale(dt)))
}

func (w *World) turnAgent(a *ai.Agent, at game.Vec3, dt float64) {
	dir := at.Sub(a.Position)
	if dir.IsZero() {
		return
	}
	a.Forward = game.RotateToward(a.Forward, dir.Normalize(), a.Eff.RotationSpeed*dt)
	_, up, _ := game.Basis(a.Forward)
	a.Up = up
}

func (w *World) resolveShot(a *ai.Agent, in ai.Intent) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.player.Alive {
		return
	}
	chance := game.Clamp01(a.Eff.Accuracy - in.Spread*spreadHitPenalty)
	if w.rng.Float64() > chance {
		return
	}
	w.player.Health -= weaponDamage[a.Class]
	if w.player.Health <= 0 {
		w.killPlayerLocked(a.ID)
	}
}

func (w *World) killPlayerLocked(killer uuid.UUID) {
	survival := w.clock - w.player.SpawnedAt
	w.player.Alive = false
	w.player.Health = 0
	w.player.RespawnAt = w.clock + playerRespawnSecs

	w.director.Tracker().RecordDeath(survival)
	w.director.Services().Player.Clear()
	log.Info("player destroyed", "killer", killer, "survival", survival)
}

// playerCombat is the scripted return fire: every interval the player
// shoots the nearest agent in range, feeding shots, hits, and kills
// into the performance tracker.
func (w *World) playerCombat(dt float64) {
	w.mu.Lock()
	if !w.player.Alive {
		w.fireAccum = 0
		w.mu.Unlock()
		return
	}
	w.fireAccum += dt
	ready := w.fireAccum >= playerFireInterval
	if ready {
		w.fireAccum -= playerFireInterval
	}
	pos := w.player.Pos
	w.mu.Unlock()

	if !ready {
		return
	}
	target := w.nearestAgent(pos)
	if target == nil || game.Distance(pos, target.Position) > playerAttackRange {
		return
	}

	hit := w.rng.Float64() < playerAccuracy
	w.director.Tracker().RecordShot(hit)
	if !hit {
		return
	}
	if target.TakeDamage(playerShotDamage, w.director.PlayerID(), pos) {
		w.director.Tracker().RecordKill()
	}
}

func (w *World) nearestAgent(pos game.Vec3) *ai.Agent {
	var best *ai.Agent
	bestDist := math.MaxFloat64
	w.director.Each(func(a *ai.Agent) {
		if a.Destroyed() {
			return
		}
		d := game.Distance(pos, a.Position)
		if d < bestDist {
			bestDist = d
			best = a
		}
	})
	return best
}

// reinforce tops the population back up to the configured strength.
func (w *World) reinforce(dt float64) {
	w.mu.Lock()
	w.reinforceAccum += dt
	due := w.reinforceAccum >= reinforceInterval
	if due {
		w.reinforceAccum = 0
	}
	w.mu.Unlock()

	if !due {
		return
	}
	missing := w.cfg.Sim.Agents - w.director.Count()
	if missing <= 0 {
		return
	}
	ft, _ := ai.ParseFormationType(w.cfg.Sim.Formation)
	w.director.SpawnSquad(missing, ft, w.spawnCenter())
	log.Info("reinforcements spawned", "count", missing)
}

// spawnCenter picks a point on the spawn ring around the play area.
func (w *World) spawnCenter() game.Vec3 {
	angle := w.rng.Float64() * 2 * math.Pi
	return game.Vec3{
		X: math.Sin(angle) * spawnRingRadius,
		Z: math.Cos(angle) * spawnRingRadius,
	}
}

// PlayerStatus is the monitoring view of the hosted player ship.
type PlayerStatus struct {
	Position  game.Vec3 `json:"position"`
	Velocity  game.Vec3 `json:"velocity"`
	Health    float64   `json:"health"`
	MaxHealth float64   `json:"maxHealth"`
	Alive     bool      `json:"alive"`
}

// Player returns the monitoring view of the player ship.
func (w *World) Player() PlayerStatus {
	w.mu.Lock()
	defer w.mu.Unlock()
	return PlayerStatus{
		Position:  w.player.Pos,
		Velocity:  w.player.Vel,
		Health:    w.player.Health,
		MaxHealth: playerMaxHealth,
		Alive:     w.player.Alive,
	}
}

// Clock returns the simulation time in seconds.
func (w *World) Clock() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.clock
}
