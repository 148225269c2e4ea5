package game

import (
	"math"
	"testing"
)

const (
	// Test tolerance for floating point comparisons
	vecTolerance   = 1e-9
	angleTolerance = 1e-6
)

func vecApproxEqual(a, b Vec3, tol float64) bool {
	return math.Abs(a.X-b.X) <= tol &&
		math.Abs(a.Y-b.Y) <= tol &&
		math.Abs(a.Z-b.Z) <= tol
}

func TestVecBasics(t *testing.T) {
	a := Vec3{1, 2, 3}
	b := Vec3{4, -5, 6}

	if got, want := a.Add(b), (Vec3{5, -3, 9}); got != want {
		t.Errorf("Add: got %v, want %v", got, want)
	}
	if got, want := a.Sub(b), (Vec3{-3, 7, -3}); got != want {
		t.Errorf("Sub: got %v, want %v", got, want)
	}
	if got, want := a.Scale(2), (Vec3{2, 4, 6}); got != want {
		t.Errorf("Scale: got %v, want %v", got, want)
	}
	if got, want := a.Dot(b), 1*4.0+2*(-5.0)+3*6.0; got != want {
		t.Errorf("Dot: got %v, want %v", got, want)
	}
	if got, want := (Vec3{3, 4, 0}).Length(), 5.0; got != want {
		t.Errorf("Length: got %v, want %v", got, want)
	}
	if got, want := Distance(Vec3{1, 0, 0}, Vec3{1, 3, 4}), 5.0; got != want {
		t.Errorf("Distance: got %v, want %v", got, want)
	}
}

func TestCrossFollowsRightHandRule(t *testing.T) {
	x := Vec3{1, 0, 0}
	y := Vec3{0, 1, 0}
	z := Vec3{0, 0, 1}

	if got := x.Cross(y); !vecApproxEqual(got, z, vecTolerance) {
		t.Errorf("x cross y: got %v, want %v", got, z)
	}
	if got := y.Cross(z); !vecApproxEqual(got, x, vecTolerance) {
		t.Errorf("y cross z: got %v, want %v", got, x)
	}
}

func TestNormalize(t *testing.T) {
	t.Run("Unit length result", func(t *testing.T) {
		n := Vec3{3, 4, 12}.Normalize()
		if got := n.Length(); math.Abs(got-1) > vecTolerance {
			t.Errorf("length after normalize: got %v, want 1", got)
		}
	})

	t.Run("Zero vector normalizes to itself", func(t *testing.T) {
		if got := (Vec3{}).Normalize(); !got.IsZero() {
			t.Errorf("got %v, want zero vector", got)
		}
	})
}

func TestLerp(t *testing.T) {
	a := Vec3{0, 0, 0}
	b := Vec3{10, 20, -10}
	if got, want := Lerp(a, b, 0), a; got != want {
		t.Errorf("t=0: got %v, want %v", got, want)
	}
	if got, want := Lerp(a, b, 1), b; got != want {
		t.Errorf("t=1: got %v, want %v", got, want)
	}
	if got, want := Lerp(a, b, 0.5), (Vec3{5, 10, -5}); got != want {
		t.Errorf("t=0.5: got %v, want %v", got, want)
	}
}

func TestRotateAround(t *testing.T) {
	// Quarter turn of +X around +Y lands on -Z.
	got := RotateAround(Vec3{1, 0, 0}, WorldUp, math.Pi/2)
	want := Vec3{0, 0, -1}
	if !vecApproxEqual(got, want, 1e-9) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestRotateToward(t *testing.T) {
	t.Run("Snaps when target within max angle", func(t *testing.T) {
		cur := Vec3{0, 0, 1}
		tgt := Vec3{0.1, 0, 1}.Normalize()
		got := RotateToward(cur, tgt, math.Pi)
		if !vecApproxEqual(got, tgt, vecTolerance) {
			t.Errorf("got %v, want %v", got, tgt)
		}
	})

	t.Run("Clamps turn to max angle", func(t *testing.T) {
		cur := Vec3{0, 0, 1}
		tgt := Vec3{1, 0, 0}
		max := math.Pi / 8
		got := RotateToward(cur, tgt, max)
		cos := Clamp(cur.Dot(got), -1, 1)
		if turned := math.Acos(cos); math.Abs(turned-max) > angleTolerance {
			t.Errorf("turned %v radians, want %v", turned, max)
		}
		if l := got.Length(); math.Abs(l-1) > angleTolerance {
			t.Errorf("result length %v, want 1", l)
		}
	})

	t.Run("Opposed directions still make progress", func(t *testing.T) {
		cur := Vec3{0, 0, 1}
		tgt := Vec3{0, 0, -1}
		got := RotateToward(cur, tgt, math.Pi/4)
		if vecApproxEqual(got, cur, vecTolerance) {
			t.Error("expected rotation away from current direction")
		}
	})
}

func TestBasisIsOrthonormal(t *testing.T) {
	dirs := []Vec3{
		{0, 0, 1},
		{1, 2, 3},
		{0, 1, 0}, // parallel to WorldUp
		{-4, 0.001, 2},
	}
	for _, d := range dirs {
		fwd, up, right := Basis(d)
		for name, v := range map[string]Vec3{"fwd": fwd, "up": up, "right": right} {
			if l := v.Length(); math.Abs(l-1) > 1e-9 {
				t.Errorf("Basis(%v): %s length %v, want 1", d, name, l)
			}
		}
		if dot := fwd.Dot(up); math.Abs(dot) > 1e-9 {
			t.Errorf("Basis(%v): fwd.up = %v, want 0", d, dot)
		}
		if dot := fwd.Dot(right); math.Abs(dot) > 1e-9 {
			t.Errorf("Basis(%v): fwd.right = %v, want 0", d, dot)
		}
		if dot := up.Dot(right); math.Abs(dot) > 1e-9 {
			t.Errorf("Basis(%v): up.right = %v, want 0", d, dot)
		}
	}
}

func TestClamp(t *testing.T) {
	if got := Clamp(5, 0, 1); got != 1 {
		t.Errorf("got %v, want 1", got)
	}
	if got := Clamp(-5, 0, 1); got != 0 {
		t.Errorf("got %v, want 0", got)
	}
	if got := Clamp01(0.25); got != 0.25 {
		t.Errorf("got %v, want 0.25", got)
	}
}

func TestClampToWorld(t *testing.T) {
	inside := Vec3{100, -200, 300}
	if got := ClampToWorld(inside); got != inside {
		t.Errorf("got %v, want %v unchanged", got, inside)
	}

	outside := Vec3{WorldExtent * 2, 0, -WorldExtent * 3}
	got := ClampToWorld(outside)
	want := Vec3{WorldExtent, 0, -WorldExtent}
	if got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if !InWorld(got) {
		t.Errorf("clamped point %v reported outside the world", got)
	}
	if InWorld(outside) {
		t.Errorf("point %v reported inside the world", outside)
	}
}
