package ai

import (
	"github.com/google/uuid"
	"github.com/lab1702/fleetmind/game"
)

// Agent tuning
const (
	// statusInterval is how often an agent broadcasts its status.
	statusInterval = 1.0

	// baseReactionSecs is the neutral decision delay before the
	// difficulty reaction multiplier.
	baseReactionSecs = 0.4

	// detectionCautionBonus widens perception for cautious agents.
	detectionCautionBonus = 0.25

	defaultAmmo     = 240
	ammoRegenPerSec = 2.0

	// repairPerSec is the hull repair rate while out of combat.
	repairPerSec = 2.0

	// maxSpreadRad is the fire dispersion at zero effective accuracy.
	maxSpreadRad = 0.35
)

// Agent is one NPC combat ship. Decision logic lives in the shared
// states; the agent carries identity, kinematic pose, effective stats,
// behavior dials, and the scratch fields states coordinate through.
// Movement and weapon effects leave only as intents.
type Agent struct {
	ID          uuid.UUID
	Name        string
	Class       game.ShipClass
	Personality Personality

	Position game.Vec3
	Velocity game.Vec3
	Forward  game.Vec3
	Up       game.Vec3

	Health float64
	Base   game.ShipStats // unmodified class baseline
	Eff    game.ShipStats // baseline times current tier multipliers
	Enh    Enhancements

	BaseDials      Dials
	Aggressiveness float64
	Caution        float64
	Teamwork       float64

	Target             uuid.UUID
	LastKnownPlayerPos game.Vec3
	lastSeenAt         float64
	playerVisible      bool
	playerPos          game.Vec3
	playerVel          game.Vec3

	AssistTarget uuid.UUID
	AssistPos    game.Vec3
	EscortTarget uuid.UUID
	escortedBy   uuid.UUID

	sv       *Services
	machine  Machine
	endpoint *Endpoint

	destroyed bool

	Ammo      int
	ammoRegen float64

	waypoint         game.Vec3
	hasWaypoint      bool
	station          game.Vec3 // patrol anchor
	decisionTimer    float64
	fireTimer        float64
	statusTimer      float64
	coordTimer       float64
	evadeUntil       float64
	underFireAt      float64
	flankSign        float64
	supportRequested bool
	lastAttacker     uuid.UUID
	lastAttackerPos  game.Vec3
}

// NewAgent builds an agent at pos with its class baseline stats and
// personality dials jittered for the current difficulty score. The
// agent is idle until Start.
func NewAgent(sv *Services, name string, class game.ShipClass, p Personality, pos game.Vec3, difficultyScore float64) *Agent {
	base := game.ShipData[class]
	a := &Agent{
		ID:          uuid.New(),
		Name:        name,
		Class:       class,
		Personality: p,
		Position:    pos,
		Forward:     game.Vec3{Z: 1},
		Up:          game.WorldUp,
		Health:      base.MaxHealth,
		Base:        base,
		Eff:         base,
		station:     pos,
		Ammo:        defaultAmmo,
		flankSign:   1,
		underFireAt: -1e9,
		sv:          sv,
	}
	a.BaseDials = RandomizedDials(p, difficultyScore, sv.Rand)
	a.Aggressiveness = a.BaseDials.Aggressiveness
	a.Caution = a.BaseDials.Caution
	a.Teamwork = a.BaseDials.Teamwork
	a.endpoint = NewEndpoint(a.ID, sv.Hub, sv.Comms, sv.Clock, a.handleMessage)
	return a
}

// Start drops the agent into its initial patrol.
func (a *Agent) Start() {
	a.machine.ChangeState(a, a.sv.States.Patrol)
}

// Update runs one decision tick: refresh perception, advance timers,
// step the state machine, and emit the periodic status broadcast.
func (a *Agent) Update(dt float64) {
	if a.destroyed {
		return
	}
	a.perceive(a.sv.Clock())
	a.tickTimers(dt)
	a.machine.Update(a, dt)
	a.maybeReportStatus()
}

func (a *Agent) perceive(now float64) {
	pos, vel, ok := a.sv.Player.Sample()
	if !ok {
		a.playerVisible = false
		return
	}
	radius := a.Eff.DetectionRange * (1 + detectionCautionBonus*a.Caution)
	if game.Distance(a.Position, pos) <= radius {
		a.playerVisible = true
		a.playerPos = pos
		a.playerVel = vel
		a.LastKnownPlayerPos = pos
		a.lastSeenAt = now
	} else {
		a.playerVisible = false
	}
}

func (a *Agent) tickTimers(dt float64) {
	if a.decisionTimer > 0 {
		a.decisionTimer -= dt
	}
	if a.fireTimer > 0 {
		a.fireTimer -= dt
	}
	if a.statusTimer > 0 {
		a.statusTimer -= dt
	}
	if a.coordTimer > 0 {
		a.coordTimer -= dt
	}
	a.ammoRegen += ammoRegenPerSec * dt
	for a.ammoRegen >= 1 && a.Ammo < defaultAmmo {
		a.ammoRegen--
		a.Ammo++
	}
	if !a.InCombat() && a.Health < a.Eff.MaxHealth {
		a.Health = min(a.Health+repairPerSec*dt, a.Eff.MaxHealth)
	}
}

func (a *Agent) maybeReportStatus() {
	if a.statusTimer > 0 {
		return
	}
	a.statusTimer = statusInterval
	a.endpoint.SendBroadcast(MsgStatusUpdate, a.Position, PriorityLow, StatusUpdatePayload{
		HealthRatio: a.HealthRatio(),
		Position:    a.Position,
		Velocity:    a.Velocity,
		InCombat:    a.InCombat(),
		Ammo:        a.Ammo,
	})
}

// TakeDamage applies damage and records the attacker for retaliation.
// Returns true once the agent is destroyed.
func (a *Agent) TakeDamage(amount float64, attacker uuid.UUID, from game.Vec3) bool {
	if a.destroyed {
		return true
	}
	a.Health -= amount
	a.lastAttacker = attacker
	a.lastAttackerPos = from
	a.underFireAt = a.sv.Clock()
	if a.Health <= 0 {
		a.Health = 0
		a.destroyed = true
	}
	return a.destroyed
}

// ApplyEnhancements recomputes effective stats from the class baseline
// and the tier multipliers. The health ratio carries across max-health
// changes so a tier swap never heals or wounds in absolute terms.
// Attack range and turn rate stay at baseline.
func (a *Agent) ApplyEnhancements(e Enhancements) {
	ratio := 1.0
	if a.Eff.MaxHealth > 0 {
		ratio = a.Health / a.Eff.MaxHealth
	}

	a.Enh = e
	a.Eff = a.Base
	a.Eff.MaxHealth = a.Base.MaxHealth * e.HealthMult
	a.Eff.Speed = a.Base.Speed * e.SpeedMult
	a.Eff.Accuracy = game.Clamp01(a.Base.Accuracy * e.AccuracyMult)
	a.Eff.DetectionRange = a.Base.DetectionRange * e.DetectionMult
	a.Health = ratio * a.Eff.MaxHealth

	a.Aggressiveness = game.Clamp01(a.BaseDials.Aggressiveness * e.AggressionMult)
	a.Caution = a.BaseDials.Caution
	a.Teamwork = game.Clamp01(a.BaseDials.Teamwork * e.TeamworkMult)
}

// HealthRatio returns health as a fraction of effective max health.
func (a *Agent) HealthRatio() float64 {
	if a.Eff.MaxHealth <= 0 {
		return 0
	}
	return a.Health / a.Eff.MaxHealth
}

// Destroyed reports whether the agent has been killed.
func (a *Agent) Destroyed() bool {
	return a.destroyed
}

// Right returns the agent's right axis.
func (a *Agent) Right() game.Vec3 {
	return a.Forward.Cross(a.Up)
}

// InCombat reports whether the agent is pursuing, attacking, or evading.
func (a *Agent) InCombat() bool {
	cur := a.machine.Current()
	s := a.sv.States
	return cur == s.Pursue || cur == s.Attack || cur == s.Evade
}

// StateName returns the active state's name for telemetry.
func (a *Agent) StateName() string {
	return a.machine.CurrentName()
}

// Endpoint returns the agent's comms endpoint.
func (a *Agent) Endpoint() *Endpoint {
	return a.endpoint
}

// reactionDelay is the decision pause between engagements, shortened
// or stretched by the tier's reaction multiplier.
func (a *Agent) reactionDelay() float64 {
	if a.Enh.ReactionTimeMult <= 0 {
		return baseReactionSecs
	}
	return baseReactionSecs * a.Enh.ReactionTimeMult
}

// fireReady reports whether the weapon can fire this tick.
func (a *Agent) fireReady() bool {
	return a.fireTimer <= 0 && a.Ammo > 0
}

func (a *Agent) resetFireTimer() {
	if a.Eff.FireRate > 0 {
		a.fireTimer = 1 / a.Eff.FireRate
	}
	if a.Ammo > 0 {
		a.Ammo--
	}
}

// attackSpread converts effective accuracy into a dispersion angle.
func (a *Agent) attackSpread() float64 {
	return (1 - a.Eff.Accuracy) * maxSpreadRad
}

// AgentStatus is the monitoring view of one agent.
type AgentStatus struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Class       string    `json:"class"`
	State       string    `json:"state"`
	Personality string    `json:"personality"`
	Health      float64   `json:"health"`
	MaxHealth   float64   `json:"maxHealth"`
	Position    game.Vec3 `json:"position"`
}

// Status returns the monitoring view of the agent.
func (a *Agent) Status() AgentStatus {
	return AgentStatus{
		ID:          a.ID.String(),
		Name:        a.Name,
		Class:       a.Class.String(),
		State:       a.machine.CurrentName(),
		Personality: a.Personality.String(),
		Health:      a.Health,
		MaxHealth:   a.Eff.MaxHealth,
		Position:    a.Position,
	}
}
