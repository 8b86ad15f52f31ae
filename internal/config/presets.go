package config

import "sort"

// Presets carry the constant sets the simulation has been tuned with.
var Presets = map[string]func() *Config{
	"marble": DefaultConfig,
	"worker": func() *Config {
		cfg := DefaultConfig()
		cfg.Physics.Gravity = 80
		return cfg
	},
	"legacy": func() *Config {
		cfg := DefaultConfig()
		cfg.Bodies = 100
		cfg.Physics.Gravity = 5
		cfg.Physics.Gap = 1e-4
		cfg.Physics.Stiffness = 10
		cfg.Physics.Damping = 0.5
		return cfg
	},
	"swarm": func() *Config {
		cfg := DefaultConfig()
		cfg.Bodies = 1024
		cfg.Init.RadiusScale = 0.015
		return cfg
	},
}

// GetPreset returns a fresh copy of the named preset, or nil.
func GetPreset(name string) *Config {
	build, ok := Presets[name]
	if !ok {
		return nil
	}
	return build()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
