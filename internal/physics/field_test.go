package physics

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func tetrahedron() []Body {
	return []Body{
		{Pos: mgl64.Vec3{0, 0, 0}, Radius: 0.1},
		{Pos: mgl64.Vec3{1, 0, 0}, Radius: 0.1},
		{Pos: mgl64.Vec3{0, 1, 0}, Radius: 0.1},
		{Pos: mgl64.Vec3{0, 0, 1}, Radius: 0.1},
	}
}

func isFinite(v mgl64.Vec3) bool {
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

func TestAccelerations_Length(t *testing.T) {
	p := DefaultParams()
	for _, n := range []int{2, 3, 17, 64} {
		bodies := NewBodies(n, DefaultInit(), NewRand(int64(n)))
		accels := Accelerations(bodies, p)
		if len(accels) != n {
			t.Errorf("n=%d: expected %d accelerations, got %d", n, n, len(accels))
		}
		for i, a := range accels {
			if !isFinite(a) {
				t.Errorf("n=%d: acceleration %d not finite: %v", n, i, a)
			}
		}
	}
}

func TestAccelerations_Attractive(t *testing.T) {
	bodies := tetrahedron()
	accels := Accelerations(bodies, DefaultParams())
	centroid := Centroid(bodies)

	for i, a := range accels {
		if !isFinite(a) {
			t.Fatalf("acceleration %d not finite: %v", i, a)
		}
		inward := centroid.Sub(bodies[i].Pos)
		if a.Dot(inward) <= 0 {
			t.Errorf("body %d: acceleration %v does not point toward centroid", i, a)
		}
	}

	// Origin body: three unit-distance neighbours, each G*r^3 along its axis.
	want := DefaultGravity * 0.001
	for k := 0; k < 3; k++ {
		if math.Abs(accels[0][k]-want) > 1e-12 {
			t.Errorf("origin accel[%d] = %g, want %g", k, accels[0][k], want)
		}
	}
}

func TestAccelerations_OrderIndependent(t *testing.T) {
	p := DefaultParams()
	bodies := NewBodies(32, DefaultInit(), NewRand(7))
	forward := Accelerations(bodies, p)

	reversed := make([]Body, len(bodies))
	for i := range bodies {
		reversed[len(bodies)-1-i] = bodies[i]
	}
	backward := Accelerations(reversed, p)

	for i := range bodies {
		a := forward[i]
		b := backward[len(bodies)-1-i]
		scale := math.Max(a.Len(), 1)
		if a.Sub(b).Len() > 1e-9*scale {
			t.Errorf("body %d: %v vs %v after reordering", i, a, b)
		}
	}
}

func TestAccelerations_CollisionPushesApart(t *testing.T) {
	p := DefaultParams()
	p.Gravity = 0
	bodies := []Body{
		{Pos: mgl64.Vec3{0, 0, 0}, Radius: 0.1},
		{Pos: mgl64.Vec3{0.15, 0, 0}, Radius: 0.1},
	}
	accels := Accelerations(bodies, p)

	if accels[0][0] >= 0 {
		t.Errorf("left body should be pushed to -x, got %v", accels[0])
	}
	if accels[1][0] <= 0 {
		t.Errorf("right body should be pushed to +x, got %v", accels[1])
	}
	// Equal masses: equal and opposite.
	if math.Abs(accels[0][0]+accels[1][0]) > 1e-9 {
		t.Errorf("spring accelerations not symmetric: %v, %v", accels[0], accels[1])
	}
}

func TestAccelerations_ApproachingWidensOverlap(t *testing.T) {
	p := DefaultParams()
	p.Gravity = 0
	resting := []Body{
		{Pos: mgl64.Vec3{0, 0, 0}, Radius: 0.1},
		{Pos: mgl64.Vec3{0.2005, 0, 0}, Radius: 0.1},
	}
	approaching := Clone(resting)
	approaching[1].Vel = mgl64.Vec3{-10, 0, 0}

	a := Accelerations(resting, p)
	b := Accelerations(approaching, p)
	if math.Abs(b[0][0]) <= math.Abs(a[0][0]) {
		t.Errorf("closing velocity should strengthen the spring: resting %v, approaching %v", a[0], b[0])
	}
}

func TestAccelerations_IdenticalPositionsSkipped(t *testing.T) {
	bodies := []Body{
		{Pos: mgl64.Vec3{1, 2, 3}, Radius: 0.1},
		{Pos: mgl64.Vec3{1, 2, 3}, Radius: 0.2},
	}
	accels := Accelerations(bodies, DefaultParams())
	for i, a := range accels {
		if a != (mgl64.Vec3{}) {
			t.Errorf("coincident body %d should feel nothing, got %v", i, a)
		}
	}
}

func TestAccelerationsRange_MatchesFull(t *testing.T) {
	p := DefaultParams()
	bodies := NewBodies(20, DefaultInit(), NewRand(3))
	full := Accelerations(bodies, p)

	split := make([]mgl64.Vec3, len(bodies))
	AccelerationsRange(split, bodies, p, 0, 7)
	AccelerationsRange(split, bodies, p, 7, 20)

	for i := range full {
		if full[i] != split[i] {
			t.Errorf("body %d: ranged %v != full %v", i, split[i], full[i])
		}
	}
}
