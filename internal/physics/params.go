package physics

const (
	DefaultDt                 = 0.001
	DefaultGravity            = 40.0
	DefaultGap                = 0.001
	DefaultStiffness          = 1.0
	DefaultDamping            = 0.2
	DefaultSystemRadius       = 5.0
	DefaultContainmentDamping = 0.99
)

// Params holds the constants shared by the acceleration field and the
// integrator. Dt is in seconds.
type Params struct {
	Dt                 float64
	Gravity            float64
	Gap                float64
	Stiffness          float64
	Damping            float64 // in (0,1); below ~0.05 collisions turn jittery
	SystemRadius       float64
	ContainmentDamping float64 // velocity factor applied outside SystemRadius
}

func DefaultParams() Params {
	return Params{
		Dt:                 DefaultDt,
		Gravity:            DefaultGravity,
		Gap:                DefaultGap,
		Stiffness:          DefaultStiffness,
		Damping:            DefaultDamping,
		SystemRadius:       DefaultSystemRadius,
		ContainmentDamping: DefaultContainmentDamping,
	}
}
