package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/marblesim/internal/physics"
)

const (
	DefaultBodies    = 256
	DefaultDt        = time.Millisecond
	DefaultMaxBehind = time.Second
	DefaultFrameRate = 30
	DefaultBackend   = "cpu"
)

var ErrInvalid = errors.New("invalid config")

type Config struct {
	Bodies    int           `yaml:"bodies"`
	Seed      int64         `yaml:"seed"`
	Backend   string        `yaml:"backend"`
	Workers   int           `yaml:"workers"`
	Dt        time.Duration `yaml:"dt"`
	MaxBehind time.Duration `yaml:"max_behind"`
	FrameRate int           `yaml:"frame_rate"`
	Physics   PhysicsConfig `yaml:"physics"`
	Init      InitConfig    `yaml:"init"`
}

type PhysicsConfig struct {
	Gravity            float64 `yaml:"gravity"`
	Gap                float64 `yaml:"gap"`
	Stiffness          float64 `yaml:"stiffness"`
	Damping            float64 `yaml:"damping"`
	SystemRadius       float64 `yaml:"system_radius"`
	ContainmentDamping float64 `yaml:"containment_damping"`
}

type InitConfig struct {
	Spread      float64 `yaml:"spread"`
	Spin        float64 `yaml:"spin"`
	RadiusScale float64 `yaml:"radius_scale"`
	RadiusMin   float64 `yaml:"radius_min"`
}

func DefaultConfig() *Config {
	ip := physics.DefaultInit()
	return &Config{
		Bodies:    DefaultBodies,
		Seed:      1,
		Backend:   DefaultBackend,
		Dt:        DefaultDt,
		MaxBehind: DefaultMaxBehind,
		FrameRate: DefaultFrameRate,
		Physics: PhysicsConfig{
			Gravity:            physics.DefaultGravity,
			Gap:                physics.DefaultGap,
			Stiffness:          physics.DefaultStiffness,
			Damping:            physics.DefaultDamping,
			SystemRadius:       physics.DefaultSystemRadius,
			ContainmentDamping: physics.DefaultContainmentDamping,
		},
		Init: InitConfig{
			Spread:      ip.Spread,
			Spin:        ip.Spin,
			RadiusScale: ip.RadiusScale,
			RadiusMin:   ip.RadiusMin,
		},
	}
}

// Load reads a yaml document on top of the defaults, so a file only needs
// the keys it changes.
func Load(path string) (*Config, error) {
	return LoadOver(path, DefaultConfig())
}

// LoadOver reads a yaml document on top of a copy of base, such as a preset.
// base is not modified.
func LoadOver(path string, base *Config) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := *base
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	switch {
	case c.Bodies < 1:
		return fmt.Errorf("%w: bodies must be at least 1, got %d", ErrInvalid, c.Bodies)
	case c.Dt <= 0:
		return fmt.Errorf("%w: dt must be positive, got %s", ErrInvalid, c.Dt)
	case c.MaxBehind < c.Dt:
		return fmt.Errorf("%w: max_behind %s is shorter than dt %s", ErrInvalid, c.MaxBehind, c.Dt)
	case c.FrameRate < 1:
		return fmt.Errorf("%w: frame_rate must be at least 1, got %d", ErrInvalid, c.FrameRate)
	case c.Workers < 0:
		return fmt.Errorf("%w: workers must not be negative, got %d", ErrInvalid, c.Workers)
	case c.Physics.Damping <= 0 || c.Physics.Damping >= 1:
		return fmt.Errorf("%w: physics.damping must be in (0,1), got %g", ErrInvalid, c.Physics.Damping)
	case c.Physics.SystemRadius <= 0:
		return fmt.Errorf("%w: physics.system_radius must be positive, got %g", ErrInvalid, c.Physics.SystemRadius)
	case c.Physics.ContainmentDamping <= 0 || c.Physics.ContainmentDamping > 1:
		return fmt.Errorf("%w: physics.containment_damping must be in (0,1], got %g", ErrInvalid, c.Physics.ContainmentDamping)
	case c.Init.RadiusScale <= 0 || c.Init.RadiusMin <= 0:
		return fmt.Errorf("%w: init radius_scale and radius_min must be positive", ErrInvalid)
	}
	return nil
}

func (c *Config) Params() physics.Params {
	return physics.Params{
		Dt:                 c.Dt.Seconds(),
		Gravity:            c.Physics.Gravity,
		Gap:                c.Physics.Gap,
		Stiffness:          c.Physics.Stiffness,
		Damping:            c.Physics.Damping,
		SystemRadius:       c.Physics.SystemRadius,
		ContainmentDamping: c.Physics.ContainmentDamping,
	}
}

func (c *Config) InitParams() physics.InitParams {
	return physics.InitParams{
		Spread:      c.Init.Spread,
		Spin:        c.Init.Spin,
		RadiusScale: c.Init.RadiusScale,
		RadiusMin:   c.Init.RadiusMin,
	}
}

// FrameInterval is the wall time between rendered frames.
func (c *Config) FrameInterval() time.Duration {
	return time.Second / time.Duration(c.FrameRate)
}
