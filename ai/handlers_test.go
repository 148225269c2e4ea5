package ai

import (
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/lab1702/fleetmind/game"
)

func TestTargetSightedFeedsThreatsAndMemory(t *testing.T) {
	sv := newTestServices(nil)
	a := newTestAgent(sv, game.ShipFighter, game.Vec3{})
	contact := game.Vec3{X: 2000}

	a.handleMessage(Message{
		Type:      MsgTargetSighted,
		Sender:    uuid.New(),
		Timestamp: 4.0,
		Payload:   TargetSightedPayload{Position: contact, ThreatLevel: 3},
	})

	rec, ok := sv.Threats.ThreatAt(contact)
	if !ok || rec.Level != 3 {
		t.Errorf("threat %+v (%v), want level 3", rec, ok)
	}
	if a.LastKnownPlayerPos != contact || a.lastSeenAt != 4.0 {
		t.Errorf("relayed contact not remembered: %v at %v", a.LastKnownPlayerPos, a.lastSeenAt)
	}
}

func TestTargetSightedDirectSightWins(t *testing.T) {
	sv := newTestServices(nil)
	a := newTestAgent(sv, game.ShipFighter, game.Vec3{})
	direct := game.Vec3{X: 100}
	a.playerVisible = true
	a.LastKnownPlayerPos = direct

	a.handleMessage(Message{
		Type:      MsgTargetSighted,
		Sender:    uuid.New(),
		Timestamp: 4.0,
		Payload:   TargetSightedPayload{Position: game.Vec3{X: 5000}, ThreatLevel: 1},
	})

	if a.LastKnownPlayerPos != direct {
		t.Errorf("relay overwrote direct sight: %v", a.LastKnownPlayerPos)
	}
}

func TestTargetSightedLeaderRetargetsFormation(t *testing.T) {
	sv := newTestServices(nil)
	a := newTestAgent(sv, game.ShipFighter, game.Vec3{})
	fid := sv.Formations.Create(FormationVee, game.Vec3{}, game.Vec3{Z: 1}, 1)
	sv.Formations.Join(fid, a.ID)
	contact := game.Vec3{X: 1500, Z: 800}

	a.handleMessage(Message{
		Type:      MsgTargetSighted,
		Sender:    uuid.New(),
		Timestamp: 1.0,
		Payload:   TargetSightedPayload{Position: contact, ThreatLevel: 2},
	})

	f, _ := sv.Formations.Get(fid)
	if f.Destination != contact {
		t.Errorf("formation destination %v, want %v", f.Destination, contact)
	}
}

func TestSupportRequestConfirmsWhenAble(t *testing.T) {
	sv := newTestServices(nil)
	a := newTestAgent(sv, game.ShipFighter, game.Vec3{})
	sv.Hub.Register(a.ID, a.Endpoint(), a.Position)

	var confirms []Message
	requester := NewEndpoint(uuid.New(), sv.Hub, sv.Comms, nil, func(m Message) {
		if m.Type == MsgSupportConfirm {
			confirms = append(confirms, m)
		}
	})
	sv.Hub.Register(requester.AgentID(), requester, game.Vec3{X: 100})

	a.handleMessage(Message{
		Type:      MsgSupportRequest,
		Sender:    requester.AgentID(),
		Timestamp: 2.0,
		Payload:   SupportRequestPayload{HealthRatio: 0.1, Position: game.Vec3{X: 100}, EnemyCount: 2},
	})

	if a.AssistTarget != requester.AgentID() {
		t.Fatalf("assist target %v, want requester", a.AssistTarget)
	}
	if a.AssistPos != (game.Vec3{X: 100}) {
		t.Errorf("assist position %v, want {100 0 0}", a.AssistPos)
	}

	a.Endpoint().Update(sv.Comms.ProcessingInterval)
	requester.Update(sv.Comms.ProcessingInterval)

	if len(confirms) != 1 {
		t.Fatalf("confirms %d, want 1", len(confirms))
	}
	p := confirms[0].Payload.(SupportConfirmPayload)
	wantETA := 100 / a.Eff.Speed
	if math.Abs(p.ETA-wantETA) > 1e-9 {
		t.Errorf("ETA %v, want %v", p.ETA, wantETA)
	}
	if confirms[0].Priority != PriorityHigh {
		t.Errorf("priority %v, want high", confirms[0].Priority)
	}
}

func TestSupportRequestGates(t *testing.T) {
	t.Run("Wounded responder declines", func(t *testing.T) {
		sv := newTestServices(nil)
		a := newTestAgent(sv, game.ShipFighter, game.Vec3{})
		a.Health = a.Eff.MaxHealth * 0.4

		a.handleMessage(Message{
			Type:    MsgSupportRequest,
			Sender:  uuid.New(),
			Payload: SupportRequestPayload{HealthRatio: 0.1, Position: game.Vec3{X: 50}},
		})
		if a.AssistTarget != uuid.Nil {
			t.Error("wounded agent accepted a support request")
		}
	})

	t.Run("Busy responder declines", func(t *testing.T) {
		sv := newTestServices(nil)
		a := newTestAgent(sv, game.ShipFighter, game.Vec3{})
		busy := uuid.New()
		a.AssistTarget = busy

		a.handleMessage(Message{
			Type:    MsgSupportRequest,
			Sender:  uuid.New(),
			Payload: SupportRequestPayload{HealthRatio: 0.1, Position: game.Vec3{X: 50}},
		})
		if a.AssistTarget != busy {
			t.Error("busy agent switched assist targets")
		}
	})

	t.Run("Marginal plea scores below the threshold", func(t *testing.T) {
		sv := newTestServices(nil)
		a := newTestAgent(sv, game.ShipFighter, game.Vec3{})

		a.handleMessage(Message{
			Type:    MsgSupportRequest,
			Sender:  uuid.New(),
			Payload: SupportRequestPayload{HealthRatio: 0.45, Position: game.Vec3{X: assistMaxRange}},
		})
		if a.AssistTarget != uuid.Nil {
			t.Error("marginal request accepted")
		}
	})
}

func TestSupportConfirmClearsPendingFlag(t *testing.T) {
	sv := newTestServices(nil)
	a := newTestAgent(sv, game.ShipFighter, game.Vec3{})
	a.supportRequested = true

	a.handleMessage(Message{
		Type:    MsgSupportConfirm,
		Sender:  uuid.New(),
		Payload: SupportConfirmPayload{ETA: 3},
	})
	if a.supportRequested {
		t.Error("pending support flag survived a confirmation")
	}
}

func TestAllyDestroyedRaisesStakes(t *testing.T) {
	sv := newTestServices(nil)
	a := newTestAgent(sv, game.ShipFighter, game.Vec3{})
	fallen := uuid.New()
	site := game.Vec3{X: 800}
	sv.Allies.Update(fallen, AllyStatus{HealthRatio: 0.2})
	a.AssistTarget = fallen
	a.escortedBy = fallen
	before := a.Aggressiveness

	a.handleMessage(Message{
		Type:      MsgAllyDestroyed,
		Sender:    uuid.New(),
		Timestamp: 9.0,
		Payload:   AllyDestroyedPayload{AgentID: fallen, Position: site},
	})

	rec, ok := sv.Threats.ThreatAt(site)
	if !ok || rec.Level != allyLossThreat {
		t.Errorf("threat %+v (%v), want level %d", rec, ok, allyLossThreat)
	}
	if a.Aggressiveness <= before {
		t.Error("loss did not raise aggression")
	}
	if _, ok := sv.Allies.Status(fallen); ok {
		t.Error("fallen ally still tracked")
	}
	if a.AssistTarget != uuid.Nil || a.escortedBy != uuid.Nil {
		t.Error("references to the fallen ally survived")
	}
}

func TestFormationOrderMovesAgent(t *testing.T) {
	sv := newTestServices(nil)
	a := newTestAgent(sv, game.ShipFighter, game.Vec3{})
	old := sv.Formations.Create(FormationLine, game.Vec3{}, game.Vec3{Z: 1}, 1)
	sv.Formations.Join(old, a.ID)
	next := sv.Formations.Create(FormationVee, game.Vec3{}, game.Vec3{Z: 1}, 1)
	dest := game.Vec3{X: 900}

	a.handleMessage(Message{
		Type:    MsgFormationOrder,
		Sender:  uuid.New(),
		Payload: FormationOrderPayload{FormationID: next, Type: FormationBox, Destination: dest},
	})

	if fid, _ := a.sv.Formations.FormationOf(a.ID); fid != next {
		t.Fatalf("agent in %v, want %v", fid, next)
	}
	f, _ := sv.Formations.Get(next)
	if f.Type != FormationBox {
		t.Errorf("type %v, want box", f.Type)
	}
	if f.Destination != dest {
		t.Errorf("destination %v, want %v", f.Destination, dest)
	}
	if got := len(sv.Formations.Members(old)); got != 0 {
		t.Errorf("old formation still has %d members", got)
	}
}

func TestFormationOrderZeroDestinationKeepsCurrent(t *testing.T) {
	sv := newTestServices(nil)
	a := newTestAgent(sv, game.ShipFighter, game.Vec3{})
	dest := game.Vec3{X: 123, Z: 456}
	fid := sv.Formations.Create(FormationVee, dest, game.Vec3{Z: 1}, 1)

	a.handleMessage(Message{
		Type:    MsgFormationOrder,
		Sender:  uuid.New(),
		Payload: FormationOrderPayload{FormationID: fid, Type: FormationVee},
	})

	f, _ := sv.Formations.Get(fid)
	if f.Destination != dest {
		t.Errorf("destination %v, want unchanged %v", f.Destination, dest)
	}
}

func TestTacticalOrders(t *testing.T) {
	sv := newTestServices(func() float64 { return 10.0 })
	a := newTestAgent(sv, game.ShipFighter, game.Vec3{})

	t.Run("Scatter starts an evade window", func(t *testing.T) {
		a.handleMessage(Message{
			Type:    MsgTacticalOrder,
			Sender:  uuid.New(),
			Payload: TacticalOrderPayload{Maneuver: ManeuverScatter},
		})
		if a.evadeUntil != 10.0+scatterSecs {
			t.Errorf("evade until %v, want %v", a.evadeUntil, 10.0+scatterSecs)
		}
	})

	t.Run("Reform clears the window and forces a fresh decision", func(t *testing.T) {
		a.hasWaypoint = true
		a.decisionTimer = 2
		a.handleMessage(Message{
			Type:    MsgTacticalOrder,
			Sender:  uuid.New(),
			Payload: TacticalOrderPayload{Maneuver: ManeuverReform},
		})
		if a.evadeUntil != 0 || a.hasWaypoint || a.decisionTimer != 0 {
			t.Errorf("reform left evadeUntil=%v hasWaypoint=%v decisionTimer=%v", a.evadeUntil, a.hasWaypoint, a.decisionTimer)
		}
	})

	t.Run("Flank flips the approach side", func(t *testing.T) {
		before := a.flankSign
		a.handleMessage(Message{
			Type:    MsgTacticalOrder,
			Sender:  uuid.New(),
			Payload: TacticalOrderPayload{Maneuver: ManeuverFlank},
		})
		if a.flankSign != -before {
			t.Errorf("flank sign %v, want %v", a.flankSign, -before)
		}
	})
}

func TestStatusUpdateFeedsAllyTracker(t *testing.T) {
	sv := newTestServices(nil)
	a := newTestAgent(sv, game.ShipFighter, game.Vec3{})
	sender := uuid.New()

	a.handleMessage(Message{
		Type:      MsgStatusUpdate,
		Sender:    sender,
		Timestamp: 6.5,
		Payload:   StatusUpdatePayload{HealthRatio: 0.7, Position: game.Vec3{X: 40}, InCombat: true, Ammo: 12},
	})

	st, ok := sv.Allies.Status(sender)
	if !ok {
		t.Fatal("sender not tracked")
	}
	if st.HealthRatio != 0.7 || !st.InCombat || st.Ammo != 12 || st.ReportedAt != 6.5 {
		t.Errorf("status %+v, want the reported values", st)
	}
}

func TestCoordinatedAttackSetsTarget(t *testing.T) {
	sv := newTestServices(nil)
	a := newTestAgent(sv, game.ShipFighter, game.Vec3{})
	target := uuid.New()
	pos := game.Vec3{X: 777}

	a.handleMessage(Message{
		Type:      MsgCoordinatedAttack,
		Sender:    uuid.New(),
		Timestamp: 3.0,
		Payload:   CoordinatedAttackPayload{TargetID: target, Position: pos},
	})

	if a.Target != target || a.LastKnownPlayerPos != pos || a.lastSeenAt != 3.0 {
		t.Errorf("target %v at %v seen %v, want coordinated values", a.Target, a.LastKnownPlayerPos, a.lastSeenAt)
	}
}

func TestEscortHandshake(t *testing.T) {
	sv := newTestServices(nil)
	escortee := uuid.New()
	rally := game.Vec3{X: 300}

	t.Run("Healthy idle agent takes the escort", func(t *testing.T) {
		a := newTestAgent(sv, game.ShipFighter, game.Vec3{})
		a.handleMessage(Message{
			Type:    MsgEscortRequest,
			Sender:  escortee,
			Payload: EscortRequestPayload{EscortID: escortee, Position: rally},
		})
		if a.EscortTarget != escortee {
			t.Fatalf("escort target %v, want %v", a.EscortTarget, escortee)
		}
		if !a.hasWaypoint || a.waypoint != rally {
			t.Error("escort rally point not set")
		}
	})

	t.Run("Agent in combat declines", func(t *testing.T) {
		a := newTestAgent(sv, game.ShipFighter, game.Vec3{})
		a.machine.ChangeState(a, sv.States.Attack)
		a.handleMessage(Message{
			Type:    MsgEscortRequest,
			Sender:  escortee,
			Payload: EscortRequestPayload{EscortID: escortee, Position: rally},
		})
		if a.EscortTarget != uuid.Nil {
			t.Error("fighting agent accepted an escort")
		}
	})

	t.Run("Confirm binds only the named escortee", func(t *testing.T) {
		a := newTestAgent(sv, game.ShipFighter, game.Vec3{})
		guard := uuid.New()

		a.handleMessage(Message{
			Type:    MsgEscortConfirm,
			Sender:  guard,
			Payload: EscortConfirmPayload{EscortID: uuid.New()},
		})
		if a.escortedBy != uuid.Nil {
			t.Error("bound to a confirmation meant for someone else")
		}

		a.handleMessage(Message{
			Type:    MsgEscortConfirm,
			Sender:  guard,
			Payload: EscortConfirmPayload{EscortID: a.ID},
		})
		if a.escortedBy != guard {
			t.Errorf("escorted by %v, want %v", a.escortedBy, guard)
		}
	})
}

func TestIntelReportRecorded(t *testing.T) {
	sv := newTestServices(nil)
	a := newTestAgent(sv, game.ShipFighter, game.Vec3{})
	sender := uuid.New()

	a.handleMessage(Message{
		Type:      MsgIntelReport,
		Sender:    sender,
		Timestamp: 8.0,
		Payload:   IntelReportPayload{Subject: "player", Position: game.Vec3{X: 1200}, Confidence: 0.6},
	})

	recent := sv.Intel.Recent(1)
	if len(recent) != 1 {
		t.Fatal("intel not recorded")
	}
	rec := recent[0]
	if rec.Subject != "player" || rec.Source != sender || rec.ReportedAt != 8.0 {
		t.Errorf("record %+v, want the reported sighting", rec)
	}
}

func TestWrongPayloadTypeIsDropped(t *testing.T) {
	sv := newTestServices(nil)
	a := newTestAgent(sv, game.ShipFighter, game.Vec3{})

	a.handleMessage(Message{
		Type:    MsgTargetSighted,
		Sender:  uuid.New(),
		Payload: StatusUpdatePayload{HealthRatio: 0.5},
	})

	if sv.Threats.Len() != 0 {
		t.Error("mistyped payload produced a threat record")
	}
	if a.LastKnownPlayerPos != (game.Vec3{}) {
		t.Error("mistyped payload moved the contact memory")
	}
}
