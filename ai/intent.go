package ai

import (
	"sync"

	"github.com/google/uuid"
	"github.com/lab1702/fleetmind/game"
)

// Intent kinds emitted toward the physics/weapons layer
type IntentKind int

const (
	IntentMove IntentKind = iota
	IntentAim
	IntentFire
	IntentStop
)

func (k IntentKind) String() string {
	switch k {
	case IntentMove:
		return "move"
	case IntentAim:
		return "aim"
	case IntentFire:
		return "fire"
	case IntentStop:
		return "stop"
	}
	return "unknown"
}

// Intent is a single movement or attack request from one agent. The AI
// core never moves geometry or spawns projectiles itself; the executing
// layer drains intents each tick and applies them.
type Intent struct {
	Agent uuid.UUID
	Kind  IntentKind
	Dest  game.Vec3 // move destination
	Aim   game.Vec3 // aim/fire point
	Speed float64   // requested speed for move intents
	// Spread widens fire dispersion as effective accuracy drops;
	// 0 means a perfectly aimed shot.
	Spread float64
}

// IntentBuffer collects intents across one tick for the executing
// layer to drain.
type IntentBuffer struct {
	mu    sync.Mutex
	items []Intent
}

func NewIntentBuffer() *IntentBuffer {
	return &IntentBuffer{}
}

func (b *IntentBuffer) Push(i Intent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items = append(b.items, i)
}

// Drain returns all buffered intents in push order and empties the
// buffer.
func (b *IntentBuffer) Drain() []Intent {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.items
	b.items = nil
	return out
}

func (b *IntentBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}
