package ai

import (
	"math"

	"github.com/google/uuid"
	"github.com/lab1702/fleetmind/game"
)

// Navigation tuning
const (
	// separationRadius is how close a reported ally must be before the
	// steering push kicks in.
	separationRadius = 60.0

	// separationGain scales the steering push away from crowded allies.
	separationGain = 0.8

	// dodgeSampleStep is the angular resolution of dodge candidates.
	dodgeSampleStep = math.Pi / 6

	worstScore = -1e18
)

// InterceptPoint solves where to aim so a projectile fired now at
// projSpeed meets a target moving at constant velocity. Returns the aim
// point, the flight time, and whether a forward-in-time solution
// exists. Without one the current target position comes back with
// ok=false so callers can fall back to a direct shot.
func InterceptPoint(shooterPos, targetPos, targetVel game.Vec3, projSpeed float64) (game.Vec3, float64, bool) {
	if projSpeed <= 0 {
		return targetPos, 0, false
	}

	rel := targetPos.Sub(shooterPos)
	distSq := rel.Dot(rel)
	if distSq < 1e-9 {
		// Target is on top of the shooter.
		return targetPos, 1e-6, true
	}

	velSq := targetVel.Dot(targetVel)
	if velSq < 1e-9 {
		// Stationary target, fire directly at it.
		return targetPos, math.Sqrt(distSq) / projSpeed, true
	}

	// |targetPos + targetVel*t - shooterPos| = projSpeed*t expands to
	// a*t^2 + b*t + c = 0.
	a := velSq - projSpeed*projSpeed
	b := 2 * rel.Dot(targetVel)
	c := distSq

	if math.Abs(a) < 1e-9 {
		// Same speeds, the quadratic degenerates to linear.
		if math.Abs(b) < 1e-9 {
			return targetPos, 0, false
		}
		t := -c / b
		if t < 0 {
			return targetPos, 0, false
		}
		return targetPos.Add(targetVel.Scale(t)), t, true
	}

	discriminant := b*b - 4*a*c
	if discriminant < 0 {
		// Target outruns the projectile.
		return targetPos, 0, false
	}

	sqrtDiscriminant := math.Sqrt(discriminant)
	t1 := (-b + sqrtDiscriminant) / (2 * a)
	t2 := (-b - sqrtDiscriminant) / (2 * a)

	var t float64
	switch {
	case t1 > 0 && t2 > 0:
		t = math.Min(t1, t2)
	case t1 > 0:
		t = t1
	case t2 > 0:
		t = t2
	default:
		return targetPos, 0, false
	}

	return targetPos.Add(targetVel.Scale(t)), t, true
}

// moveToward pushes a move intent at the agent's effective speed.
func (a *Agent) moveToward(dest game.Vec3) {
	a.moveTowardAt(dest, a.Eff.Speed)
}

// moveTowardAt pushes a move intent at an explicit speed.
func (a *Agent) moveTowardAt(dest game.Vec3, speed float64) {
	a.sv.Intents.Push(Intent{
		Agent: a.ID,
		Kind:  IntentMove,
		Dest:  dest,
		Speed: speed,
	})
}

// aimAt pushes an aim intent toward a world point.
func (a *Agent) aimAt(point game.Vec3) {
	a.sv.Intents.Push(Intent{
		Agent: a.ID,
		Kind:  IntentAim,
		Aim:   point,
	})
}

// fireAt pushes a fire intent with the given dispersion.
func (a *Agent) fireAt(point game.Vec3, spread float64) {
	a.sv.Intents.Push(Intent{
		Agent:  a.ID,
		Kind:   IntentFire,
		Aim:    point,
		Spread: spread,
	})
}

// stop pushes a stop intent.
func (a *Agent) stop() {
	a.sv.Intents.Push(Intent{
		Agent: a.ID,
		Kind:  IntentStop,
	})
}

// separated bends a destination away from allies reported inside the
// separation radius so squads do not stack on a shared waypoint.
func (a *Agent) separated(dest game.Vec3) game.Vec3 {
	var push game.Vec3
	a.sv.Allies.Each(func(id uuid.UUID, st AllyStatus) {
		if id == a.ID {
			return
		}
		d := game.Distance(a.Position, st.Position)
		if d >= separationRadius || d < 1e-6 {
			return
		}
		away := a.Position.Sub(st.Position).Normalize()
		push = push.Add(away.Scale((separationRadius - d) / separationRadius))
	})
	if push.IsZero() {
		return dest
	}
	return dest.Add(push.Scale(separationRadius * separationGain))
}

// dodgeDirection scores evasion headings around the away-from-threat
// direction and returns the best. Candidates keep distance from the
// threat first, then favor continuing the current motion.
func (a *Agent) dodgeDirection(threat game.Vec3) game.Vec3 {
	away := a.Position.Sub(threat)
	if away.IsZero() {
		away = a.Forward.Scale(-1)
	}
	away = away.Normalize()
	vel := a.Velocity.Normalize()

	bestDir := away
	bestScore := worstScore

	for delta := 0.0; delta < math.Pi; delta += dodgeSampleStep {
		for sign := -1; sign <= 1; sign += 2 {
			if delta == 0 && sign == -1 {
				continue
			}
			testDir := game.RotateAround(away, game.WorldUp, float64(sign)*delta)

			score := testDir.Dot(away) * 2
			if !vel.IsZero() {
				score += testDir.Dot(vel)
			}
			score += (a.sv.Rand.Float64() - 0.5) * 0.2

			if score > bestScore {
				bestScore = score
				bestDir = testDir
			}
		}
	}

	return bestDir
}
