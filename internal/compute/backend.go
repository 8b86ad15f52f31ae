package compute

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/marblesim/internal/physics"
)

type Backend interface {
	Name() string
	Accelerations(bodies []physics.Body, p physics.Params) []mgl64.Vec3
	Cleanup()
}

// NewBackend looks a backend up by name. workers <= 0 means one per CPU.
func NewBackend(name string, workers int) (Backend, error) {
	switch name {
	case "", "cpu":
		return NewCPUBackend(workers), nil
	case "serial":
		return NewSerialBackend(), nil
	default:
		return nil, fmt.Errorf("unknown backend: %s (available: %v)", name, ListBackends())
	}
}

// BackendLabel names a backend for logs and tables, with its goroutine
// count when it fans out.
func BackendLabel(b Backend) string {
	if c, ok := b.(*CPUBackend); ok {
		return fmt.Sprintf("%s (%d workers)", c.Name(), c.Workers())
	}
	return b.Name()
}

func ListBackends() []string {
	return []string{"cpu", "serial"}
}

type SerialBackend struct{}

func NewSerialBackend() *SerialBackend { return &SerialBackend{} }

func (s *SerialBackend) Name() string    { return "serial" }
func (s *SerialBackend) Cleanup()        {}

func (s *SerialBackend) Accelerations(bodies []physics.Body, p physics.Params) []mgl64.Vec3 {
	return physics.Accelerations(bodies, p)
}
