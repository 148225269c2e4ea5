package ai

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/google/uuid"
	"github.com/lab1702/fleetmind/game"
)

// FormationType selects the slot geometry of a formation.
type FormationType int

const (
	FormationLine FormationType = iota
	FormationVee
	FormationDiamond
	FormationBox
	FormationSphere
	FormationHelix
)

var formationNames = map[FormationType]string{
	FormationLine:    "line",
	FormationVee:     "vee",
	FormationDiamond: "diamond",
	FormationBox:     "box",
	FormationSphere:  "sphere",
	FormationHelix:   "helix",
}

func (ft FormationType) String() string {
	if name, ok := formationNames[ft]; ok {
		return name
	}
	return "unknown"
}

// ParseFormationType maps a config string to its formation type.
func ParseFormationType(s string) (FormationType, error) {
	switch s {
	case "line":
		return FormationLine, nil
	case "vee", "v":
		return FormationVee, nil
	case "diamond":
		return FormationDiamond, nil
	case "box":
		return FormationBox, nil
	case "sphere":
		return FormationSphere, nil
	case "helix":
		return FormationHelix, nil
	}
	return FormationLine, fmt.Errorf("unknown formation type %q", s)
}

// FormationComplexity gates which geometries a difficulty tier may use.
type FormationComplexity int

const (
	ComplexitySimple FormationComplexity = iota
	ComplexityStandard
	ComplexityAdvanced
)

// Complexity returns the tier class a geometry belongs to.
func (ft FormationType) Complexity() FormationComplexity {
	switch ft {
	case FormationLine, FormationVee:
		return ComplexitySimple
	case FormationDiamond, FormationBox:
		return ComplexityStandard
	default:
		return ComplexityAdvanced
	}
}

// Allowed reports whether the geometry is usable at complexity c.
func (ft FormationType) Allowed(c FormationComplexity) bool {
	return ft.Complexity() <= c
}

// Downgrade returns ft if allowed at c, else the richest allowed
// fallback of the same family feel.
func (ft FormationType) Downgrade(c FormationComplexity) FormationType {
	if ft.Allowed(c) {
		return ft
	}
	if c >= ComplexityStandard {
		return FormationDiamond
	}
	return FormationVee
}

// Formation is a shared flight pattern. Agents occupy numbered slots;
// slot world positions derive from the destination, heading, and the
// geometry's local offsets.
type Formation struct {
	ID          uuid.UUID
	Type        FormationType
	Scale       float64
	Destination game.Vec3
	Heading     game.Vec3

	spacing float64 // difficulty spacing multiplier
}

// DefaultFormationScale is the slot spacing in world units at scale 1.
const DefaultFormationScale = 120.0

var goldenAngle = math.Pi * (3 - math.Sqrt(5))

// slotOffset returns the local-space offset of a slot in units of the
// formation scale. X is right, Y is up, Z is along the heading.
func slotOffset(ft FormationType, slot int) game.Vec3 {
	if slot == 0 && ft != FormationDiamond && ft != FormationBox {
		return game.Vec3{}
	}
	switch ft {
	case FormationLine:
		k := float64((slot + 1) / 2)
		if slot%2 == 0 {
			k = -k
		}
		return game.Vec3{X: k}
	case FormationVee:
		k := float64((slot + 1) / 2)
		x := k * 0.9
		if slot%2 == 0 {
			x = -x
		}
		return game.Vec3{X: x, Z: -k * 1.2}
	case FormationDiamond:
		ring := [4]game.Vec3{
			{Z: 1}, {X: 1}, {Z: -1}, {X: -1},
		}
		layer := float64(slot/4 + 1)
		return ring[slot%4].Scale(layer)
	case FormationBox:
		corner := game.Vec3{X: -1, Y: -1, Z: -1}
		if slot&1 != 0 {
			corner.X = 1
		}
		if slot&2 != 0 {
			corner.Y = 1
		}
		if slot&4 != 0 {
			corner.Z = 1
		}
		layer := float64(slot/8 + 1)
		return corner.Scale(layer)
	case FormationSphere:
		j := slot % 16
		layer := float64(slot/16 + 1)
		y := 1 - 2*(float64(j)+0.5)/16
		r := math.Sqrt(1 - y*y)
		theta := goldenAngle * float64(j)
		return game.Vec3{X: r * math.Cos(theta), Y: y, Z: r * math.Sin(theta)}.Scale(layer)
	case FormationHelix:
		angle := float64(slot) * math.Pi / 4
		return game.Vec3{X: math.Cos(angle), Y: float64(slot) * 0.5, Z: math.Sin(angle)}
	}
	return game.Vec3{}
}

// SlotPosition returns the world position of a slot.
func (f *Formation) SlotPosition(slot int) game.Vec3 {
	off := slotOffset(f.Type, slot)
	fwd, up, right := game.Basis(f.Heading)
	spacing := f.Scale * f.spacing
	return f.Destination.
		Add(right.Scale(off.X * spacing)).
		Add(up.Scale(off.Y * spacing)).
		Add(fwd.Scale(off.Z * spacing))
}

var (
	ErrAlreadyInFormation = errors.New("agent already in a formation")
	ErrUnknownFormation   = errors.New("unknown formation")
)

// FormationManager owns every formation and the membership table.
// An agent holds at most one slot anywhere; joining while already
// placed fails rather than silently moving the agent.
type FormationManager struct {
	mu         sync.RWMutex
	formations map[uuid.UUID]*Formation
	members    map[uuid.UUID][]uuid.UUID // formation -> slot-ordered agents
	membership map[uuid.UUID]uuid.UUID   // agent -> formation
}

func NewFormationManager() *FormationManager {
	return &FormationManager{
		formations: make(map[uuid.UUID]*Formation),
		members:    make(map[uuid.UUID][]uuid.UUID),
		membership: make(map[uuid.UUID]uuid.UUID),
	}
}

// Create registers a new empty formation and returns its id.
func (m *FormationManager) Create(ft FormationType, dest, heading game.Vec3, scale float64) uuid.UUID {
	if scale <= 0 {
		scale = 1
	}
	f := &Formation{
		ID:          uuid.New(),
		Type:        ft,
		Scale:       scale * DefaultFormationScale,
		Destination: dest,
		Heading:     heading,
		spacing:     1,
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.formations[f.ID] = f
	return f.ID
}

// Disband removes a formation and frees all its members.
func (m *FormationManager) Disband(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, agent := range m.members[id] {
		delete(m.membership, agent)
	}
	delete(m.members, id)
	delete(m.formations, id)
}

// Join places an agent in the next free slot. It fails if the agent
// already holds a slot in any formation.
func (m *FormationManager) Join(formationID, agentID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if current, ok := m.membership[agentID]; ok {
		return 0, fmt.Errorf("%w: agent %s is in formation %s", ErrAlreadyInFormation, agentID, current)
	}
	if _, ok := m.formations[formationID]; !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownFormation, formationID)
	}
	slot := len(m.members[formationID])
	m.members[formationID] = append(m.members[formationID], agentID)
	m.membership[agentID] = formationID
	return slot, nil
}

// Leave frees an agent's slot, compacting later members down one slot
// each. Unknown agents are ignored.
func (m *FormationManager) Leave(agentID uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fid, ok := m.membership[agentID]
	if !ok {
		return
	}
	delete(m.membership, agentID)
	slots := m.members[fid]
	for i, id := range slots {
		if id == agentID {
			m.members[fid] = append(slots[:i], slots[i+1:]...)
			break
		}
	}
}

// FormationOf returns the formation an agent belongs to.
func (m *FormationManager) FormationOf(agentID uuid.UUID) (uuid.UUID, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	fid, ok := m.membership[agentID]
	return fid, ok
}

// SlotOf returns the agent's slot index in its formation.
func (m *FormationManager) SlotOf(agentID uuid.UUID) (int, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	fid, ok := m.membership[agentID]
	if !ok {
		return 0, false
	}
	for i, id := range m.members[fid] {
		if id == agentID {
			return i, true
		}
	}
	return 0, false
}

// SlotPosition returns the agent's assigned world position, if placed.
func (m *FormationManager) SlotPosition(agentID uuid.UUID) (game.Vec3, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	fid, ok := m.membership[agentID]
	if !ok {
		return game.Vec3{}, false
	}
	f := m.formations[fid]
	for i, id := range m.members[fid] {
		if id == agentID {
			return f.SlotPosition(i), true
		}
	}
	return game.Vec3{}, false
}

// Get returns a copy of the formation's shared fields.
func (m *FormationManager) Get(id uuid.UUID) (Formation, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.formations[id]
	if !ok {
		return Formation{}, false
	}
	return *f, true
}

// Members returns the slot-ordered member list.
func (m *FormationManager) Members(id uuid.UUID) []uuid.UUID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]uuid.UUID, len(m.members[id]))
	copy(out, m.members[id])
	return out
}

// Leader returns the agent in slot 0.
func (m *FormationManager) Leader(id uuid.UUID) (uuid.UUID, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	slots := m.members[id]
	if len(slots) == 0 {
		return uuid.UUID{}, false
	}
	return slots[0], true
}

// SetDestination moves the formation's anchor point.
func (m *FormationManager) SetDestination(id uuid.UUID, dest game.Vec3) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f, ok := m.formations[id]; ok {
		f.Destination = dest
	}
}

// SetHeading turns the formation. Zero headings are ignored.
func (m *FormationManager) SetHeading(id uuid.UUID, heading game.Vec3) {
	if heading.IsZero() {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if f, ok := m.formations[id]; ok {
		f.Heading = heading
	}
}

// SetType swaps the geometry in place; members keep their slots.
func (m *FormationManager) SetType(id uuid.UUID, ft FormationType) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f, ok := m.formations[id]; ok {
		f.Type = ft
	}
}

// ApplySpacing sets the spacing multiplier on every formation. The
// difficulty controller calls this on tier changes.
func (m *FormationManager) ApplySpacing(mult float64) {
	if mult <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range m.formations {
		f.spacing = mult
	}
}

// Count returns the number of live formations.
func (m *FormationManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.formations)
}

// FormationStatus is the monitoring view of one formation.
type FormationStatus struct {
	ID          uuid.UUID `json:"id"`
	Type        string    `json:"type"`
	Members     int       `json:"members"`
	Destination game.Vec3 `json:"destination"`
}

// Snapshot returns the monitoring view of all formations.
func (m *FormationManager) Snapshot() []FormationStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]FormationStatus, 0, len(m.formations))
	for id, f := range m.formations {
		out = append(out, FormationStatus{
			ID:          id,
			Type:        f.Type.String(),
			Members:     len(m.members[id]),
			Destination: f.Destination,
		})
	}
	return out
}
