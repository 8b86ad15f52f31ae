// Package camera is a free-flying first-person camera driven by held
// movement actions and accumulated look deltas, advanced on a fixed step.
package camera

import (
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

const (
	Speed       = 2.0
	SlowSpeed   = 0.4
	RollRate    = 1.0   // radians per second
	Sensitivity = 0.001 // radians per look unit
	StepTime    = 100 * time.Microsecond
)

type Action int

const (
	Forward Action = iota
	Backward
	Right
	Left
	Down
	Up
	RollRight
	RollLeft
	numActions
)

var actionNames = [numActions]string{"forward", "backward", "right", "left", "down", "up", "roll-right", "roll-left"}

func (a Action) String() string {
	if a < 0 || a >= numActions {
		return "unknown"
	}
	return actionNames[a]
}

type Camera struct {
	Position mgl64.Vec3
	Rotation mgl64.Quat
	Slow     bool

	held     [numActions]bool
	pitchUp  float64
	yawRight float64
}

// New places the camera two units down -X, turned to face the origin.
func New() *Camera {
	return &Camera{
		Position: mgl64.Vec3{-2, 0, 0},
		Rotation: mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{0, 1, 0}),
	}
}

// Set holds or releases a movement action.
func (c *Camera) Set(a Action, active bool) {
	if a >= 0 && a < numActions {
		c.held[a] = active
	}
}

func (c *Camera) Held(a Action) bool {
	return a >= 0 && a < numActions && c.held[a]
}

// Release drops every held action.
func (c *Camera) Release() {
	c.held = [numActions]bool{}
}

// Look queues a pitch/yaw turn applied on the next step. Positive dx turns
// right, positive dy turns down.
func (c *Camera) Look(dx, dy float64) {
	c.pitchUp -= Sensitivity * dy
	c.yawRight += Sensitivity * dx
}

// Update advances in whole StepTime increments and returns the time
// consumed; the remainder is left for the caller to carry over.
func (c *Camera) Update(dt time.Duration) time.Duration {
	var stepped time.Duration
	for dt >= StepTime {
		dt -= StepTime
		stepped += StepTime
		c.step()
	}
	return stepped
}

func (c *Camera) step() {
	var vel mgl64.Vec3
	axis := func(pos, neg Action, unit mgl64.Vec3) {
		if c.held[pos] {
			vel = vel.Add(unit)
		}
		if c.held[neg] {
			vel = vel.Sub(unit)
		}
	}
	axis(Forward, Backward, mgl64.Vec3{0, 0, 1})
	axis(Right, Left, mgl64.Vec3{1, 0, 0})
	axis(Down, Up, mgl64.Vec3{0, 1, 0})

	roll := 0.0
	if c.held[RollRight] {
		roll++
	}
	if c.held[RollLeft] {
		roll--
	}

	speed := Speed
	if c.Slow {
		speed = SlowSpeed
	}
	h := StepTime.Seconds()
	c.Position = c.Position.Add(c.Rotation.Rotate(vel.Mul(h * speed)))

	c.Rotation = c.Rotation.
		Mul(mgl64.QuatRotate(RollRate*roll*h, mgl64.Vec3{0, 0, 1})).
		Mul(mgl64.QuatRotate(c.pitchUp, mgl64.Vec3{1, 0, 0})).
		Mul(mgl64.QuatRotate(c.yawRight, mgl64.Vec3{0, 1, 0})).
		Normalize()
	c.pitchUp = 0
	c.yawRight = 0
}

// WorldToCamera moves the camera to the origin and undoes its rotation, so
// camera space looks down +Z.
func (c *Camera) WorldToCamera() mgl64.Mat4 {
	trans := mgl64.Translate3D(-c.Position[0], -c.Position[1], -c.Position[2])
	return c.Rotation.Conjugate().Mat4().Mul4(trans)
}
