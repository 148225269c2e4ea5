package ai

import (
	"testing"

	"github.com/google/uuid"
	"github.com/lab1702/fleetmind/game"
)

// combatRig drives a single agent against a scripted player position
// with a hand-advanced clock.
type combatRig struct {
	sv    *Services
	agent *Agent
	now   float64
}

func newCombatRig(t *testing.T) *combatRig {
	t.Helper()
	r := &combatRig{}
	r.sv = newTestServices(func() float64 { return r.now })
	r.agent = newTestAgent(r.sv, game.ShipFighter, game.Vec3{})
	r.sv.Hub.Register(r.agent.ID, r.agent.Endpoint(), r.agent.Position)
	r.agent.Start()
	return r
}

// tick advances the clock and runs one agent update.
func (r *combatRig) tick(dt float64) {
	r.now += dt
	r.agent.Update(dt)
}

func TestPatrolToPursueOnContact(t *testing.T) {
	r := newCombatRig(t)
	if r.agent.StateName() != "patrol" {
		t.Fatalf("initial state %q, want patrol", r.agent.StateName())
	}

	r.sv.Player.Set(game.Vec3{X: 400}, game.Vec3{Z: 20})
	r.tick(0.1)

	if r.agent.StateName() != "pursue" {
		t.Fatalf("state %q after contact, want pursue", r.agent.StateName())
	}
	if r.agent.Target != r.sv.PlayerID {
		t.Errorf("target %v, want the player", r.agent.Target)
	}
}

func TestPursueToAttackInsideWeaponRange(t *testing.T) {
	r := newCombatRig(t)
	r.sv.Player.Set(game.Vec3{X: 400}, game.Vec3{})
	r.tick(0.1)

	r.sv.Player.Set(game.Vec3{X: 200}, game.Vec3{})
	r.tick(0.1)

	if r.agent.StateName() != "attack" {
		t.Fatalf("state %q inside weapon range, want attack", r.agent.StateName())
	}
	if r.sv.Limiter.Count() != 1 {
		t.Errorf("attack slots held %d, want 1", r.sv.Limiter.Count())
	}
}

func TestPursueHoldsWhenAttackSlotsFull(t *testing.T) {
	r := newCombatRig(t)
	r.sv.Limiter.SetCap(1)
	if !r.sv.Limiter.Acquire(uuid.New()) {
		t.Fatal("could not seed the only attack slot")
	}

	r.sv.Player.Set(game.Vec3{X: 200}, game.Vec3{})
	r.tick(0.1)
	r.tick(0.1)

	if r.agent.StateName() != "pursue" {
		t.Errorf("state %q with slots full, want pursue", r.agent.StateName())
	}
}

func TestAttackFiresOnceDecisionTimerElapses(t *testing.T) {
	r := newCombatRig(t)
	r.sv.Player.Set(game.Vec3{X: 200}, game.Vec3{})
	r.tick(0.1)
	r.tick(0.1)
	if r.agent.StateName() != "attack" {
		t.Fatalf("state %q, want attack", r.agent.StateName())
	}

	// Burn the reaction delay, then watch one armed tick.
	r.tick(0.25)
	r.sv.Intents.Drain()
	ammo := r.agent.Ammo
	r.tick(0.25)

	intents := r.sv.Intents.Drain()
	var kinds []IntentKind
	for _, in := range intents {
		kinds = append(kinds, in.Kind)
	}
	want := []IntentKind{IntentMove, IntentAim, IntentFire}
	if len(kinds) != len(want) {
		t.Fatalf("intents %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("intents %v, want %v", kinds, want)
		}
	}
	if r.agent.Ammo != ammo-1 {
		t.Errorf("ammo %d, want %d after firing", r.agent.Ammo, ammo-1)
	}
}

func TestAttackBreaksOffWhenTargetLeaves(t *testing.T) {
	r := newCombatRig(t)
	r.sv.Player.Set(game.Vec3{X: 200}, game.Vec3{})
	r.tick(0.1)
	r.tick(0.1)

	breakDist := r.agent.Eff.AttackRange*attackBreakFactor + 50
	r.sv.Player.Set(game.Vec3{X: breakDist}, game.Vec3{})
	r.tick(0.1)

	if r.agent.StateName() != "pursue" {
		t.Errorf("state %q beyond break range, want pursue", r.agent.StateName())
	}
	if r.sv.Limiter.Count() != 0 {
		t.Errorf("attack slots held %d after breaking off, want 0", r.sv.Limiter.Count())
	}
}

func TestEvadeOnCriticalHealth(t *testing.T) {
	r := newCombatRig(t)
	r.sv.Player.Set(game.Vec3{X: 200}, game.Vec3{})
	r.tick(0.1)
	r.tick(0.1)

	r.agent.TakeDamage(r.agent.Eff.MaxHealth*0.75, uuid.New(), game.Vec3{X: 200})
	r.tick(0.1)

	if r.agent.StateName() != "evade" {
		t.Fatalf("state %q at critical health, want evade", r.agent.StateName())
	}
	if !r.agent.supportRequested {
		t.Error("critically wounded agent did not call for support")
	}
	if r.sv.Limiter.Count() != 0 {
		t.Errorf("attack slots held %d while evading, want 0", r.sv.Limiter.Count())
	}
}

func TestEvadeRecoversToPatrol(t *testing.T) {
	r := newCombatRig(t)
	r.sv.Player.Set(game.Vec3{X: 200}, game.Vec3{})
	r.tick(0.1)
	r.tick(0.1)
	r.agent.TakeDamage(r.agent.Eff.MaxHealth*0.75, uuid.New(), game.Vec3{X: 200})
	r.tick(0.1)
	if r.agent.StateName() != "evade" {
		t.Fatalf("state %q, want evade", r.agent.StateName())
	}

	r.sv.Player.Clear()
	r.agent.Health = r.agent.Eff.MaxHealth * 0.6
	r.now += 30
	r.tick(0.1)

	if r.agent.StateName() != "patrol" {
		t.Errorf("state %q after recovering, want patrol", r.agent.StateName())
	}
}

func TestPursuitGoesStaleAndReportsIntel(t *testing.T) {
	r := newCombatRig(t)

	var intel []Message
	obs := NewEndpoint(uuid.New(), r.sv.Hub, r.sv.Comms, nil, func(m Message) {
		if m.Type == MsgIntelReport {
			intel = append(intel, m)
		}
	})
	r.sv.Hub.Register(obs.AgentID(), obs, game.Vec3{X: 50})

	r.sv.Player.Set(game.Vec3{X: 400}, game.Vec3{})
	r.tick(0.1)
	if r.agent.StateName() != "pursue" {
		t.Fatalf("state %q, want pursue", r.agent.StateName())
	}

	r.sv.Player.Clear()
	r.now += pursuitStaleSecs + 1
	r.tick(0.1)

	if r.agent.StateName() != "patrol" {
		t.Fatalf("state %q after losing the trail, want patrol", r.agent.StateName())
	}

	r.agent.Endpoint().Update(r.sv.Comms.ProcessingInterval)
	obs.Update(r.sv.Comms.ProcessingInterval)

	if len(intel) != 1 {
		t.Fatalf("intel reports %d, want 1", len(intel))
	}
	p := intel[0].Payload.(IntelReportPayload)
	if p.Subject != "contact_lost" {
		t.Errorf("subject %q, want %q", p.Subject, "contact_lost")
	}
	if p.Position != (game.Vec3{X: 400}) {
		t.Errorf("position %v, want the last known contact", p.Position)
	}
}

func TestRegroupWhenFarFromSlot(t *testing.T) {
	r := newCombatRig(t)
	fid := r.sv.Formations.Create(FormationVee, game.Vec3{X: 2000}, game.Vec3{Z: 1}, 1)
	r.sv.Formations.Join(fid, r.agent.ID)

	r.tick(0.1)
	if r.agent.StateName() != "regroup" {
		t.Fatalf("state %q far from slot, want regroup", r.agent.StateName())
	}

	// Teleport onto the slot; the agent settles back into patrol.
	slot, _ := r.sv.Formations.SlotPosition(r.agent.ID)
	r.agent.Position = slot
	r.tick(0.1)
	if r.agent.StateName() != "patrol" {
		t.Errorf("state %q on slot, want patrol", r.agent.StateName())
	}
}

func TestEscortShadowsAndDefends(t *testing.T) {
	r := newCombatRig(t)
	ward := uuid.New()
	r.agent.EscortTarget = ward
	r.sv.Allies.Update(ward, AllyStatus{Position: game.Vec3{X: 300}, Velocity: game.Vec3{Z: 30}, ReportedAt: 0})

	r.tick(0.1)
	if r.agent.StateName() != "escort" {
		t.Fatalf("state %q with an escort target, want escort", r.agent.StateName())
	}

	intents := r.sv.Intents.Drain()
	if len(intents) == 0 || intents[0].Kind != IntentMove {
		t.Fatalf("intents %v, want a move toward the ward", intents)
	}
	offset := game.Distance(intents[0].Dest, game.Vec3{X: 300})
	if offset < escortOffsetDist*0.5 || offset > escortOffsetDist*1.5 {
		t.Errorf("escort station %v units off the ward, want near %v", offset, escortOffsetDist)
	}

	// A threat near the ward pulls the escort into the fight.
	r.sv.Player.Set(game.Vec3{X: 350}, game.Vec3{})
	r.tick(0.1)
	if r.agent.StateName() != "pursue" {
		t.Errorf("state %q with the ward threatened, want pursue", r.agent.StateName())
	}
}

func TestEscortFallsBackToPatrolWhenWardLost(t *testing.T) {
	r := newCombatRig(t)
	ward := uuid.New()
	r.agent.EscortTarget = ward
	r.sv.Allies.Update(ward, AllyStatus{Position: game.Vec3{X: 300}})
	r.tick(0.1)
	if r.agent.StateName() != "escort" {
		t.Fatalf("state %q, want escort", r.agent.StateName())
	}

	r.sv.Allies.Forget(ward)
	r.tick(0.1)

	if r.agent.StateName() != "patrol" {
		t.Errorf("state %q with the ward gone, want patrol", r.agent.StateName())
	}
	if r.agent.EscortTarget != uuid.Nil {
		t.Error("escort target not cleared")
	}
}
