package ai

import (
	"github.com/google/uuid"
	"github.com/lab1702/fleetmind/game"
)

// State behavior tuning
const (
	patrolRadius       = 600.0
	patrolSpeedFactor  = 0.6
	waypointArriveDist = 60.0

	contactFreshSecs   = 3.0
	pursuitStaleSecs   = 10.0
	pursuitThreatLevel = 3

	attackBreakFactor       = 1.15
	optimalRangeBase        = 0.55
	optimalRangeCautionSpan = 0.35

	evadeHealthRatio   = 0.3
	evadeRecoverRatio  = 0.5
	evadeCalmSecs      = 4.0
	dodgeDistance      = 250.0
	supportHealthRatio = 0.4
	recentHitSecs      = 1.5

	coordInterval    = 5.0
	coordMinTeamwork = 0.5

	regroupDist      = 400.0
	slotArriveDist   = 80.0
	assistArriveDist = 150.0
	escortOffsetDist = 90.0

	defendRangeFactor = 1.5
)

// StateSet is the shared set of states every agent runs on. States hold
// no per-agent data; everything they touch lives on the agent or in the
// services.
type StateSet struct {
	Patrol  *State
	Pursue  *State
	Attack  *State
	Evade   *State
	Regroup *State
	Escort  *State
}

func NewStateSet() *StateSet {
	s := &StateSet{}

	s.Patrol = &State{
		Name: "patrol",
		Enter: func(a *Agent) {
			a.Target = uuid.Nil
			a.hasWaypoint = false
			a.supportRequested = false
		},
		Next: func(a *Agent) *State {
			now := a.sv.Clock()
			if now < a.evadeUntil {
				return s.Evade
			}
			if now-a.underFireAt < recentHitSecs && a.HealthRatio() < 0.6 {
				return s.Evade
			}
			if a.contactFresh(now) || a.AssistTarget != uuid.Nil {
				return s.Pursue
			}
			if a.EscortTarget != uuid.Nil {
				return s.Escort
			}
			if slot, ok := a.sv.Formations.SlotPosition(a.ID); ok {
				if game.Distance(a.Position, slot) > regroupDist {
					return s.Regroup
				}
			}
			return nil
		},
		Update: func(a *Agent, dt float64) {
			if slot, ok := a.sv.Formations.SlotPosition(a.ID); ok {
				a.moveTowardAt(a.separated(slot), a.Eff.Speed*patrolSpeedFactor)
				return
			}
			if !a.hasWaypoint || game.Distance(a.Position, a.waypoint) < waypointArriveDist {
				a.waypoint = a.randomWaypoint()
				a.hasWaypoint = true
			}
			a.moveTowardAt(a.separated(a.waypoint), a.Eff.Speed*patrolSpeedFactor)
		},
	}

	s.Pursue = &State{
		Name: "pursue",
		Enter: func(a *Agent) {
			a.decisionTimer = a.reactionDelay()
			if a.Target == uuid.Nil {
				a.Target = a.sv.PlayerID
			}
			if a.playerVisible {
				a.endpoint.SendBroadcast(MsgTargetSighted, a.Position, PriorityHigh, TargetSightedPayload{
					TargetID:    a.sv.PlayerID,
					Position:    a.playerPos,
					Velocity:    a.playerVel,
					ThreatLevel: pursuitThreatLevel,
				})
			}
		},
		Next: func(a *Agent) *State {
			now := a.sv.Clock()
			if a.HealthRatio() < evadeHealthRatio || now < a.evadeUntil {
				return s.Evade
			}
			if a.playerVisible {
				dist := game.Distance(a.Position, a.playerPos)
				if dist <= a.Eff.AttackRange && a.sv.Limiter.Acquire(a.ID) {
					return s.Attack
				}
				return nil
			}
			if a.AssistTarget == uuid.Nil && now-a.lastSeenAt > pursuitStaleSecs {
				a.endpoint.SendBroadcast(MsgIntelReport, a.Position, PriorityLow, IntelReportPayload{
					Subject:    "contact_lost",
					Position:   a.LastKnownPlayerPos,
					Confidence: 0.5,
				})
				return s.Patrol
			}
			return nil
		},
		Update: func(a *Agent, dt float64) {
			if a.decisionTimer > 0 {
				return
			}
			if a.playerVisible {
				aim, _, ok := InterceptPoint(a.Position, a.playerPos, a.playerVel, a.Eff.Speed)
				if !ok {
					aim = a.playerPos
				}
				a.moveToward(a.separated(aim))
				a.aimAt(a.playerPos)
				return
			}
			if a.AssistTarget != uuid.Nil {
				if game.Distance(a.Position, a.AssistPos) < assistArriveDist {
					a.AssistTarget = uuid.Nil
				} else {
					a.moveToward(a.separated(a.AssistPos))
				}
				return
			}
			a.moveToward(a.separated(a.LastKnownPlayerPos))
		},
	}

	s.Attack = &State{
		Name: "attack",
		Enter: func(a *Agent) {
			a.decisionTimer = a.reactionDelay()
			a.endpoint.SendBroadcast(MsgEngaging, a.Position, PriorityNormal, EngagingPayload{
				TargetID: a.Target,
				Position: a.playerPos,
			})
		},
		Exit: func(a *Agent) {
			a.sv.Limiter.Release(a.ID)
		},
		Next: func(a *Agent) *State {
			now := a.sv.Clock()
			if a.HealthRatio() < evadeHealthRatio || now < a.evadeUntil {
				return s.Evade
			}
			if !a.playerVisible {
				return s.Pursue
			}
			if game.Distance(a.Position, a.playerPos) > a.Eff.AttackRange*attackBreakFactor {
				return s.Pursue
			}
			return nil
		},
		Update: func(a *Agent, dt float64) {
			if a.decisionTimer > 0 {
				return
			}
			dist := game.Distance(a.Position, a.playerPos)
			optimal := a.Eff.AttackRange * (optimalRangeBase + optimalRangeCautionSpan*(1-a.Aggressiveness))

			switch {
			case dist > optimal*1.05:
				a.moveToward(a.separated(a.playerPos))
			case dist < optimal*0.8:
				back := a.Position.Sub(a.playerPos).Normalize().Scale(optimal)
				a.moveToward(a.separated(a.playerPos.Add(back)))
			default:
				// Strafe so the agent is not a sitting target.
				orbit := a.Right().Scale(a.flankSign * optimal * 0.5)
				a.moveTowardAt(a.separated(a.Position.Add(orbit)), a.Eff.Speed*0.8)
			}

			a.aimAt(a.playerPos)
			if a.fireReady() && dist <= a.Eff.AttackRange {
				aim, _, ok := InterceptPoint(a.Position, a.playerPos, a.playerVel, a.Eff.ProjectileSpeed)
				if !ok {
					aim = a.playerPos
				}
				a.fireAt(aim, a.attackSpread())
				a.resetFireTimer()
			}

			a.maybeCoordinate()
		},
	}

	s.Evade = &State{
		Name: "evade",
		Enter: func(a *Agent) {
			if !a.supportRequested && a.HealthRatio() < supportHealthRatio {
				a.supportRequested = true
				a.endpoint.SendBroadcast(MsgSupportRequest, a.Position, PriorityUrgent, SupportRequestPayload{
					HealthRatio: a.HealthRatio(),
					Position:    a.Position,
					EnemyCount:  1,
				})
			}
		},
		Next: func(a *Agent) *State {
			now := a.sv.Clock()
			if now < a.evadeUntil {
				return nil
			}
			if a.HealthRatio() >= evadeRecoverRatio {
				if a.contactFresh(now) {
					return s.Pursue
				}
				return s.Patrol
			}
			if !a.playerVisible && now-a.underFireAt > evadeCalmSecs {
				return s.Patrol
			}
			return nil
		},
		Update: func(a *Agent, dt float64) {
			now := a.sv.Clock()
			threat := a.LastKnownPlayerPos
			if now-a.underFireAt < recentHitSecs && !a.lastAttackerPos.IsZero() {
				threat = a.lastAttackerPos
			} else if a.playerVisible {
				threat = a.playerPos
			}
			dir := a.dodgeDirection(threat)
			a.moveToward(a.Position.Add(dir.Scale(dodgeDistance)))
		},
	}

	s.Regroup = &State{
		Name: "regroup",
		Next: func(a *Agent) *State {
			now := a.sv.Clock()
			if a.HealthRatio() < evadeHealthRatio || now < a.evadeUntil {
				return s.Evade
			}
			if a.contactFresh(now) {
				return s.Pursue
			}
			slot, ok := a.sv.Formations.SlotPosition(a.ID)
			if !ok || game.Distance(a.Position, slot) <= slotArriveDist {
				return s.Patrol
			}
			return nil
		},
		Update: func(a *Agent, dt float64) {
			if slot, ok := a.sv.Formations.SlotPosition(a.ID); ok {
				a.moveToward(a.separated(slot))
			}
		},
	}

	s.Escort = &State{
		Name: "escort",
		Next: func(a *Agent) *State {
			now := a.sv.Clock()
			if a.HealthRatio() < evadeHealthRatio || now < a.evadeUntil {
				return s.Evade
			}
			if a.EscortTarget == uuid.Nil {
				return s.Patrol
			}
			st, ok := a.sv.Allies.Status(a.EscortTarget)
			if !ok {
				a.EscortTarget = uuid.Nil
				return s.Patrol
			}
			if a.playerVisible && game.Distance(a.playerPos, st.Position) < a.Eff.AttackRange*defendRangeFactor {
				return s.Pursue
			}
			return nil
		},
		Update: func(a *Agent, dt float64) {
			st, ok := a.sv.Allies.Status(a.EscortTarget)
			if !ok {
				return
			}
			heading := st.Velocity
			if heading.IsZero() {
				heading = a.Forward
			}
			_, _, right := game.Basis(heading)
			dest := st.Position.Add(right.Scale(escortOffsetDist * a.flankSign))
			a.moveToward(a.separated(dest))
		},
	}

	return s
}

// contactFresh reports whether the agent has current or recent contact
// with the player, direct or relayed.
func (a *Agent) contactFresh(now float64) bool {
	if a.playerVisible {
		return true
	}
	return a.lastSeenAt > 0 && now-a.lastSeenAt <= contactFreshSecs
}

// randomWaypoint picks the next patrol point around the agent's station.
func (a *Agent) randomWaypoint() game.Vec3 {
	r := a.sv.Rand
	dir := game.Vec3{
		X: r.Float64()*2 - 1,
		Y: (r.Float64()*2 - 1) * 0.3,
		Z: r.Float64()*2 - 1,
	}
	if dir.IsZero() {
		dir = game.Vec3{Z: 1}
	}
	return a.station.Add(dir.Normalize().Scale(patrolRadius * (0.3 + 0.7*r.Float64())))
}

// maybeCoordinate lets a formation leader in combat sync its wing onto
// the current target.
func (a *Agent) maybeCoordinate() {
	if a.coordTimer > 0 || a.Teamwork < coordMinTeamwork {
		return
	}
	fid, ok := a.sv.Formations.FormationOf(a.ID)
	if !ok {
		return
	}
	leader, ok := a.sv.Formations.Leader(fid)
	if !ok || leader != a.ID {
		return
	}
	a.coordTimer = coordInterval
	a.endpoint.SendBroadcast(MsgCoordinatedAttack, a.Position, PriorityHigh, CoordinatedAttackPayload{
		TargetID: a.Target,
		Position: a.LastKnownPlayerPos,
	})
}
