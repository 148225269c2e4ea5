package ai

import (
	"github.com/google/uuid"
	"github.com/lab1702/fleetmind/game"
)

// Support and escort scoring
const (
	assistMinHealth       = 0.5
	assistMaxRange        = 2200.0
	assistHealthWeight    = 0.4
	assistProximityWeight = 0.3
	assistTeamworkWeight  = 0.3
	assistValuePenalty    = 0.15
	maxAssistValue        = 5.0
	assistThreshold       = 0.5

	allyLossAggression = 0.1
	allyLossThreat     = 2

	escortMinHealth = 0.5
	scatterSecs     = 3.0
)

// handleMessage reacts to one inbound message. Payloads of the wrong
// concrete type for their message type are dropped.
func (a *Agent) handleMessage(msg Message) {
	switch msg.Type {
	case MsgTargetSighted:
		if p, ok := msg.Payload.(TargetSightedPayload); ok {
			a.onTargetSighted(msg, p)
		}
	case MsgSupportRequest:
		if p, ok := msg.Payload.(SupportRequestPayload); ok {
			a.onSupportRequest(msg, p)
		}
	case MsgSupportConfirm:
		if _, ok := msg.Payload.(SupportConfirmPayload); ok {
			a.supportRequested = false
		}
	case MsgEngaging:
		if p, ok := msg.Payload.(EngagingPayload); ok {
			a.onEngaging(msg, p)
		}
	case MsgAllyDestroyed:
		if p, ok := msg.Payload.(AllyDestroyedPayload); ok {
			a.onAllyDestroyed(msg, p)
		}
	case MsgFormationOrder:
		if p, ok := msg.Payload.(FormationOrderPayload); ok {
			a.onFormationOrder(p)
		}
	case MsgTacticalOrder:
		if p, ok := msg.Payload.(TacticalOrderPayload); ok {
			a.onTacticalOrder(p)
		}
	case MsgStatusUpdate:
		if p, ok := msg.Payload.(StatusUpdatePayload); ok {
			a.sv.Allies.Update(msg.Sender, AllyStatus{
				HealthRatio: p.HealthRatio,
				Position:    p.Position,
				Velocity:    p.Velocity,
				InCombat:    p.InCombat,
				Ammo:        p.Ammo,
				ReportedAt:  msg.Timestamp,
			})
		}
	case MsgCoordinatedAttack:
		if p, ok := msg.Payload.(CoordinatedAttackPayload); ok {
			a.Target = p.TargetID
			a.LastKnownPlayerPos = p.Position
			a.lastSeenAt = msg.Timestamp
		}
	case MsgEscortRequest:
		if p, ok := msg.Payload.(EscortRequestPayload); ok {
			a.onEscortRequest(msg, p)
		}
	case MsgEscortConfirm:
		if p, ok := msg.Payload.(EscortConfirmPayload); ok {
			if p.EscortID == a.ID {
				a.escortedBy = msg.Sender
			}
		}
	case MsgIntelReport:
		if p, ok := msg.Payload.(IntelReportPayload); ok {
			a.sv.Intel.Record(IntelRecord{
				Subject:    p.Subject,
				Position:   p.Position,
				Confidence: p.Confidence,
				ReportedAt: msg.Timestamp,
				Source:     msg.Sender,
			})
		}
	}
}

func (a *Agent) onTargetSighted(msg Message, p TargetSightedPayload) {
	a.sv.Threats.Report(p.Position, p.ThreatLevel, msg.Timestamp, msg.Sender)

	// A relayed contact counts as contact, but direct sight wins.
	if !a.playerVisible {
		a.LastKnownPlayerPos = p.Position
		a.lastSeenAt = msg.Timestamp
	}

	if fid, ok := a.sv.Formations.FormationOf(a.ID); ok {
		if leader, ok := a.sv.Formations.Leader(fid); ok && leader == a.ID {
			a.sv.Formations.SetDestination(fid, p.Position)
		}
	}
}

func (a *Agent) onSupportRequest(msg Message, p SupportRequestPayload) {
	if a.HealthRatio() < assistMinHealth {
		return
	}
	if a.AssistTarget != uuid.Nil {
		return
	}

	dist := game.Distance(a.Position, p.Position)
	score := assistHealthWeight*(1-p.HealthRatio) +
		assistProximityWeight*(1-game.Clamp01(dist/assistMaxRange)) +
		assistTeamworkWeight*a.Teamwork -
		assistValuePenalty*(a.Base.Value/maxAssistValue)
	if score < assistThreshold {
		return
	}

	speed := a.Eff.Speed
	if speed < 1 {
		speed = 1
	}
	a.endpoint.SendTo(msg.Sender, MsgSupportConfirm, a.Position, PriorityHigh, SupportConfirmPayload{
		ETA: dist / speed,
	})
	a.AssistTarget = msg.Sender
	a.AssistPos = p.Position
}

func (a *Agent) onEngaging(msg Message, p EngagingPayload) {
	if !a.playerVisible && p.TargetID != uuid.Nil {
		a.LastKnownPlayerPos = p.Position
		a.lastSeenAt = msg.Timestamp
	}
	if fid, ok := a.sv.Formations.FormationOf(a.ID); ok {
		if leader, ok := a.sv.Formations.Leader(fid); ok && leader == a.ID {
			a.sv.Formations.SetDestination(fid, p.Position)
		}
	}
}

func (a *Agent) onAllyDestroyed(msg Message, p AllyDestroyedPayload) {
	a.sv.Threats.Raise(p.Position, allyLossThreat, msg.Timestamp, msg.Sender)
	a.Aggressiveness = game.Clamp01(a.Aggressiveness + allyLossAggression)
	a.sv.Allies.Forget(p.AgentID)

	if a.AssistTarget == p.AgentID {
		a.AssistTarget = uuid.Nil
	}
	if a.EscortTarget == p.AgentID {
		a.EscortTarget = uuid.Nil
	}
	if a.escortedBy == p.AgentID {
		a.escortedBy = uuid.Nil
	}
}

func (a *Agent) onFormationOrder(p FormationOrderPayload) {
	a.sv.Formations.Leave(a.ID)
	if _, err := a.sv.Formations.Join(p.FormationID, a.ID); err != nil {
		// Formation may have disbanded between order and delivery.
		return
	}
	a.sv.Formations.SetType(p.FormationID, p.Type)
	if !p.Destination.IsZero() {
		a.sv.Formations.SetDestination(p.FormationID, p.Destination)
	}
}

func (a *Agent) onTacticalOrder(p TacticalOrderPayload) {
	switch p.Maneuver {
	case ManeuverScatter:
		a.evadeUntil = a.sv.Clock() + scatterSecs
	case ManeuverReform:
		a.evadeUntil = 0
		a.hasWaypoint = false
		a.decisionTimer = 0
	case ManeuverFlank:
		a.flankSign = -a.flankSign
	}
}

func (a *Agent) onEscortRequest(msg Message, p EscortRequestPayload) {
	if a.EscortTarget != uuid.Nil || a.escortedBy != uuid.Nil {
		return
	}
	if a.InCombat() || a.HealthRatio() < escortMinHealth {
		return
	}
	a.endpoint.SendTo(msg.Sender, MsgEscortConfirm, a.Position, PriorityNormal, EscortConfirmPayload{
		EscortID: p.EscortID,
	})
	a.EscortTarget = p.EscortID
	a.waypoint = p.Position
	a.hasWaypoint = true
}
