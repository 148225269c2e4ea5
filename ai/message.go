package ai

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/lab1702/fleetmind/game"
)

// Message types exchanged between agents
type MessageType int

const (
	MsgTargetSighted MessageType = iota
	MsgSupportRequest
	MsgSupportConfirm
	MsgEngaging
	MsgAllyDestroyed
	MsgFormationOrder
	MsgTacticalOrder
	MsgStatusUpdate
	MsgCoordinatedAttack
	MsgEscortRequest
	MsgEscortConfirm
	MsgIntelReport
)

var messageTypeNames = map[MessageType]string{
	MsgTargetSighted:     "target_sighted",
	MsgSupportRequest:    "support_request",
	MsgSupportConfirm:    "support_confirm",
	MsgEngaging:          "engaging",
	MsgAllyDestroyed:     "ally_destroyed",
	MsgFormationOrder:    "formation_order",
	MsgTacticalOrder:     "tactical_order",
	MsgStatusUpdate:      "status_update",
	MsgCoordinatedAttack: "coordinated_attack",
	MsgEscortRequest:     "escort_request",
	MsgEscortConfirm:     "escort_confirm",
	MsgIntelReport:       "intel_report",
}

func (t MessageType) String() string {
	if name, ok := messageTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// Message priority levels
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
	PriorityUrgent
)

// Payload is the closed set of per-type message payloads. Handlers
// type-switch on the concrete payload rather than casting opaque data;
// a payload of the wrong concrete type for its message type is ignored.
type Payload interface {
	payload()
}

// TargetSightedPayload reports a spotted hostile contact.
type TargetSightedPayload struct {
	TargetID    uuid.UUID
	Position    game.Vec3
	Velocity    game.Vec3
	ThreatLevel int
}

// SupportRequestPayload asks nearby allies for combat assistance.
type SupportRequestPayload struct {
	HealthRatio float64
	Position    game.Vec3
	EnemyCount  int
}

// SupportConfirmPayload acknowledges a support request.
type SupportConfirmPayload struct {
	ETA float64 // estimated seconds until arrival
}

// EngagingPayload announces the sender has opened combat on a target.
type EngagingPayload struct {
	TargetID uuid.UUID
	Position game.Vec3
}

// AllyDestroyedPayload reports the loss of an allied ship.
type AllyDestroyedPayload struct {
	AgentID  uuid.UUID
	Position game.Vec3
	Killer   uuid.UUID
}

// FormationOrderPayload instructs recipients to assume a formation.
type FormationOrderPayload struct {
	FormationID uuid.UUID
	Type        FormationType
	Destination game.Vec3
}

// Maneuver identifies a tactical-order action.
type Maneuver int

const (
	ManeuverScatter Maneuver = iota
	ManeuverReform
	ManeuverFlank
)

func (m Maneuver) String() string {
	switch m {
	case ManeuverScatter:
		return "scatter"
	case ManeuverReform:
		return "reform"
	case ManeuverFlank:
		return "flank"
	}
	return "unknown"
}

// ParseManeuver resolves a maneuver name.
func ParseManeuver(s string) (Maneuver, error) {
	switch s {
	case "scatter":
		return ManeuverScatter, nil
	case "reform":
		return ManeuverReform, nil
	case "flank":
		return ManeuverFlank, nil
	}
	return ManeuverScatter, fmt.Errorf("unknown maneuver %q", s)
}

// TacticalOrderPayload instructs recipients to execute a maneuver.
type TacticalOrderPayload struct {
	Maneuver Maneuver
	Position game.Vec3
}

// StatusUpdatePayload is a periodic self-report consumed by the ally tracker.
type StatusUpdatePayload struct {
	HealthRatio float64
	Position    game.Vec3
	Velocity    game.Vec3
	InCombat    bool
	Ammo        int
}

// CoordinatedAttackPayload synchronizes recipients onto one target.
type CoordinatedAttackPayload struct {
	TargetID uuid.UUID
	Position game.Vec3
}

// EscortRequestPayload asks for an escort on the named ship.
type EscortRequestPayload struct {
	EscortID uuid.UUID
	Position game.Vec3
}

// EscortConfirmPayload accepts an escort request.
type EscortConfirmPayload struct {
	EscortID uuid.UUID
}

// IntelReportPayload carries correlated intelligence for the intel database.
type IntelReportPayload struct {
	Subject    string
	Position   game.Vec3
	Confidence float64
}

func (TargetSightedPayload) payload()     {}
func (SupportRequestPayload) payload()    {}
func (SupportConfirmPayload) payload()    {}
func (EngagingPayload) payload()          {}
func (AllyDestroyedPayload) payload()     {}
func (FormationOrderPayload) payload()    {}
func (TacticalOrderPayload) payload()     {}
func (StatusUpdatePayload) payload()      {}
func (CoordinatedAttackPayload) payload() {}
func (EscortRequestPayload) payload()     {}
func (EscortConfirmPayload) payload()     {}
func (IntelReportPayload) payload()       {}

// Message is an immutable value routed between agents. Ownership passes
// to the hub on broadcast, or to the single recipient on a directed send.
type Message struct {
	Type      MessageType
	Sender    uuid.UUID
	Target    uuid.UUID // zero UUID when broadcast or unaddressed
	Position  game.Vec3
	Payload   Payload
	Timestamp float64 // simulation seconds, stamped at enqueue
	Broadcast bool
	Priority  Priority
}
