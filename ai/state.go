package ai

// State is one mode of agent behavior. Enter and Exit run on
// transitions; Update runs every tick while the state is active; Next
// proposes the state to switch to, or nil to stay.
type State struct {
	Name   string
	Enter  func(a *Agent)
	Exit   func(a *Agent)
	Update func(a *Agent, dt float64)
	Next   func(a *Agent) *State
}

// Machine drives one agent through its states. Each tick it evaluates
// the transition first, then updates whichever state is then active.
type Machine struct {
	current *State
}

// Current returns the active state, nil before the first ChangeState.
func (m *Machine) Current() *State {
	return m.current
}

// CurrentName returns the active state's name, or empty.
func (m *Machine) CurrentName() string {
	if m.current == nil {
		return ""
	}
	return m.current.Name
}

// ChangeState switches to next, running Exit on the old state and Enter
// on the new one. Switching to the already-active state is a no-op.
func (m *Machine) ChangeState(a *Agent, next *State) {
	if next == nil || next == m.current {
		return
	}
	if m.current != nil && m.current.Exit != nil {
		m.current.Exit(a)
	}
	m.current = next
	if next.Enter != nil {
		next.Enter(a)
	}
}

// Update runs one tick: the transition candidate is evaluated against
// the current state, any switch happens, and the resulting state's
// Update runs.
func (m *Machine) Update(a *Agent, dt float64) {
	if m.current == nil {
		return
	}
	if m.current.Next != nil {
		m.ChangeState(a, m.current.Next(a))
	}
	if m.current.Update != nil {
		m.current.Update(a, dt)
	}
}
