package spheretree

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/marblesim/internal/physics"
)

// NoChild marks both child slots of a leaf.
const NoChild int32 = -1

// Sphere is a leaf input: one body, already in the caller's coordinate space.
type Sphere struct {
	Center mgl64.Vec3
	Radius float64
	Color  uint32
}

// Node is one slot of the flat tree. Leaves occupy the first N slots and
// keep their Sphere's color; internal nodes follow in merge order with
// Color 0 and child indices strictly below their own, so the root is last.
type Node struct {
	Center mgl64.Vec3
	Radius float64
	Left   int32
	Right  int32
	Color  uint32
}

func (n Node) IsLeaf() bool { return n.Left == NoChild && n.Right == NoChild }

// Root returns the index of the root node, or -1 for an empty tree.
func Root(nodes []Node) int { return len(nodes) - 1 }

// Leaves projects bodies through view (homogeneous divide included).
// Radii are left in world units.
func Leaves(bodies []physics.Body, view mgl64.Mat4) []Sphere {
	leaves := make([]Sphere, len(bodies))
	for i, b := range bodies {
		leaves[i] = Sphere{
			Center: mgl64.TransformCoordinate(b.Pos, view),
			Radius: b.Radius,
			Color:  b.Color,
		}
	}
	return leaves
}

// enclose returns a sphere containing both a and b. In the general case it is
// the sphere spanning the two outward tangent points on the line through the
// centers. When one sphere already holds the other, the outer one is kept.
func enclose(a, b Node) (mgl64.Vec3, float64) {
	rel := b.Center.Sub(a.Center)
	d := rel.Len()
	if a.Radius >= d+b.Radius {
		return a.Center, a.Radius
	}
	if b.Radius >= d+a.Radius {
		return b.Center, b.Radius
	}

	// d > 0 here: coincident centers always nest.
	dir := rel.Mul(1 / d)
	outA := a.Center.Sub(dir.Mul(a.Radius))
	outB := b.Center.Add(dir.Mul(b.Radius))
	return outA.Add(outB).Mul(0.5), (d + a.Radius + b.Radius) / 2
}

func cube(r float64) float64 { return r * r * r }

// joinCost is the volume a merge would add, up to the common 4π/3 factor.
func joinCost(a, b Node) float64 {
	_, r := enclose(a, b)
	return cube(r) - cube(a.Radius) - cube(b.Radius)
}

// Contains reports whether outer encloses inner to within tol.
func Contains(outer, inner Node, tol float64) bool {
	return outer.Radius+tol >= outer.Center.Sub(inner.Center).Len()+inner.Radius
}

// Depth returns the number of levels below the root, 0 for a lone leaf.
func Depth(nodes []Node) int {
	if len(nodes) == 0 {
		return 0
	}
	depth := make([]int, len(nodes))
	deepest := 0
	for i := len(nodes) - 1; i >= 0; i-- {
		n := nodes[i]
		if n.IsLeaf() {
			continue
		}
		for _, c := range [2]int32{n.Left, n.Right} {
			depth[c] = depth[i] + 1
			if depth[c] > deepest {
				deepest = depth[c]
			}
		}
	}
	return deepest
}

// Walk visits nodes depth-first from the root using an explicit stack, the
// way a GPU traversal does. Children of a node are skipped when visit
// returns false.
func Walk(nodes []Node, visit func(i int, n Node) bool) {
	if len(nodes) == 0 {
		return
	}
	stack := make([]int32, 1, 64)
	stack[0] = int32(Root(nodes))
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := nodes[i]
		if !visit(int(i), n) || n.IsLeaf() {
			continue
		}
		stack = append(stack, n.Right, n.Left)
	}
}
