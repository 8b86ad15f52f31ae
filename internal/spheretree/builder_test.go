package spheretree_test

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/marblesim/internal/physics"
	"github.com/san-kum/marblesim/internal/spheretree"
)

const tol = 1e-9

func row(xs ...float64) []spheretree.Sphere {
	out := make([]spheretree.Sphere, len(xs))
	for i, x := range xs {
		out[i] = spheretree.Sphere{Center: mgl64.Vec3{x, 0, 0}, Radius: 0.1, Color: uint32(i + 1)}
	}
	return out
}

var _ = Describe("BuildLeaves", func() {
	It("returns nil for no leaves", func() {
		Expect(spheretree.BuildLeaves(nil)).To(BeNil())
		Expect(spheretree.Validate(nil, 0, tol)).To(Succeed())
	})

	It("returns the lone leaf as root", func() {
		nodes := spheretree.BuildLeaves(row(3))
		Expect(nodes).To(HaveLen(1))
		Expect(nodes[0].IsLeaf()).To(BeTrue())
		Expect(spheretree.Root(nodes)).To(Equal(0))
		Expect(spheretree.Depth(nodes)).To(Equal(0))
	})

	It("pairs the two clusters and puts the root last", func() {
		nodes := spheretree.BuildLeaves(row(0, 1, 10, 11))
		Expect(nodes).To(HaveLen(7))
		Expect(spheretree.Root(nodes)).To(Equal(6))
		Expect(spheretree.Validate(nodes, 4, tol)).To(Succeed())

		Expect(nodes[4].Left).To(BeEquivalentTo(2))
		Expect(nodes[4].Right).To(BeEquivalentTo(3))
		Expect(nodes[5].Left).To(BeEquivalentTo(0))
		Expect(nodes[5].Right).To(BeEquivalentTo(1))
		Expect(nodes[6].Left).To(BeEquivalentTo(5))
		Expect(nodes[6].Right).To(BeEquivalentTo(4))

		Expect(nodes[4].Center[0]).To(BeNumerically("~", 10.5, tol))
		Expect(nodes[4].Radius).To(BeNumerically("~", 0.6, tol))
		Expect(nodes[6].Radius).To(BeNumerically("~", 5.6, tol))
		Expect(spheretree.Depth(nodes)).To(Equal(2))

		for i := 4; i < 7; i++ {
			n := nodes[i]
			Expect(spheretree.Contains(n, nodes[n.Left], tol)).To(BeTrue())
			Expect(spheretree.Contains(n, nodes[n.Right], tol)).To(BeTrue())
		}
	})

	It("keeps leaf colors and gives internal nodes none", func() {
		nodes := spheretree.BuildLeaves(row(0, 1, 10, 11))
		for i := 0; i < 4; i++ {
			Expect(nodes[i].Color).To(BeEquivalentTo(i + 1))
		}
		for i := 4; i < 7; i++ {
			Expect(nodes[i].Color).To(BeZero())
		}
	})

	It("breaks equal costs toward the lowest index", func() {
		nodes := spheretree.BuildLeaves(row(0, 1, 2))
		Expect(nodes[3].Left).To(BeEquivalentTo(0))
		Expect(nodes[3].Right).To(BeEquivalentTo(1))
		Expect(nodes[4].Left).To(BeEquivalentTo(3))
		Expect(nodes[4].Right).To(BeEquivalentTo(2))
	})

	It("keeps the outer sphere when one child holds the other", func() {
		leaves := []spheretree.Sphere{
			{Center: mgl64.Vec3{0, 0, 0}, Radius: 5},
			{Center: mgl64.Vec3{1, 0, 0}, Radius: 0.1},
		}
		nodes := spheretree.BuildLeaves(leaves)
		Expect(nodes[2].Center).To(Equal(mgl64.Vec3{0, 0, 0}))
		Expect(nodes[2].Radius).To(Equal(5.0))
		Expect(spheretree.Validate(nodes, 2, tol)).To(Succeed())
	})

	It("handles coincident centers", func() {
		leaves := []spheretree.Sphere{
			{Center: mgl64.Vec3{1, 2, 3}, Radius: 0.2},
			{Center: mgl64.Vec3{1, 2, 3}, Radius: 0.2},
		}
		nodes := spheretree.BuildLeaves(leaves)
		Expect(nodes[2].Radius).To(Equal(0.2))
		Expect(spheretree.Validate(nodes, 2, tol)).To(Succeed())
	})

	Context("with a random system", func() {
		var bodies []physics.Body

		BeforeEach(func() {
			bodies = physics.NewBodies(256, physics.DefaultInit(), physics.NewRand(42))
		})

		It("satisfies every structural invariant", func() {
			nodes := spheretree.Build(bodies, mgl64.Ident4())
			Expect(nodes).To(HaveLen(511))
			Expect(spheretree.Validate(nodes, len(bodies), tol)).To(Succeed())
		})

		It("is deterministic", func() {
			view := mgl64.Translate3D(0, 0, -8)
			Expect(spheretree.Build(bodies, view)).To(Equal(spheretree.Build(bodies, view)))
		})

		It("visits every node once through Walk", func() {
			nodes := spheretree.Build(bodies, mgl64.Ident4())
			seen := make(map[int]int)
			leaves := 0
			spheretree.Walk(nodes, func(i int, n spheretree.Node) bool {
				seen[i]++
				if n.IsLeaf() {
					leaves++
				}
				return true
			})
			Expect(seen).To(HaveLen(len(nodes)))
			Expect(leaves).To(Equal(len(bodies)))
		})

		It("prunes subtrees when the visitor declines", func() {
			nodes := spheretree.Build(bodies, mgl64.Ident4())
			visited := 0
			spheretree.Walk(nodes, func(int, spheretree.Node) bool {
				visited++
				return false
			})
			Expect(visited).To(Equal(1))
		})
	})
})

var _ = Describe("Build", func() {
	It("builds the tetrahedron at the origin", func() {
		bodies := []physics.Body{
			{Pos: mgl64.Vec3{0, 0, 0}, Radius: 0.1},
			{Pos: mgl64.Vec3{1, 0, 0}, Radius: 0.1},
			{Pos: mgl64.Vec3{0, 1, 0}, Radius: 0.1},
			{Pos: mgl64.Vec3{0, 0, 1}, Radius: 0.1},
		}
		nodes := spheretree.Build(bodies, mgl64.Ident4())

		Expect(nodes).To(HaveLen(7))
		Expect(spheretree.Root(nodes)).To(Equal(6))
		Expect(spheretree.Validate(nodes, 4, tol)).To(Succeed())

		// Every pair touching the origin costs the same; the lowest index wins.
		Expect(nodes[4].Left).To(BeEquivalentTo(1))
		Expect(nodes[4].Right).To(BeEquivalentTo(0))
		Expect(nodes[5].Left).To(BeEquivalentTo(2))
		Expect(nodes[5].Right).To(BeEquivalentTo(3))
		Expect(nodes[6].Left).To(BeEquivalentTo(4))
		Expect(nodes[6].Right).To(BeEquivalentTo(5))

		for i := 4; i < 7; i++ {
			n := nodes[i]
			Expect(spheretree.Contains(n, nodes[n.Left], tol)).To(BeTrue(), "node %d left", i)
			Expect(spheretree.Contains(n, nodes[n.Right], tol)).To(BeTrue(), "node %d right", i)
		}
	})
})

var _ = Describe("Leaves", func() {
	It("projects through the view with a homogeneous divide", func() {
		bodies := []physics.Body{{Pos: mgl64.Vec3{0.5, -0.25, -3}, Radius: 0.1, Color: 7}}
		proj := mgl64.Perspective(mgl64.DegToRad(60), 1, 0.1, 100)

		want := proj.Mul4x1(bodies[0].Pos.Vec4(1))
		leaves := spheretree.Leaves(bodies, proj)

		Expect(leaves).To(HaveLen(1))
		Expect(leaves[0].Center.ApproxEqual(want.Vec3().Mul(1 / want.W()))).To(BeTrue())
		Expect(leaves[0].Radius).To(Equal(0.1))
		Expect(leaves[0].Color).To(BeEquivalentTo(7))
	})
})

var _ = Describe("Validate", func() {
	var nodes []spheretree.Node

	BeforeEach(func() {
		nodes = spheretree.BuildLeaves(row(0, 1, 10, 11))
	})

	DescribeTable("rejects a broken tree",
		func(breakIt func([]spheretree.Node)) {
			breakIt(nodes)
			Expect(spheretree.Validate(nodes, 4, tol)).To(MatchError(spheretree.ErrMalformed))
		},
		Entry("leaf with a child", func(n []spheretree.Node) { n[0].Left = 1 }),
		Entry("forward reference", func(n []spheretree.Node) { n[4].Left = 5 }),
		Entry("shared child", func(n []spheretree.Node) { n[5].Left = 2 }),
		Entry("shrunken parent", func(n []spheretree.Node) { n[6].Radius = 1 }),
	)

	It("rejects the wrong node count", func() {
		Expect(spheretree.Validate(nodes[:6], 4, tol)).To(MatchError(spheretree.ErrMalformed))
	})
})

var _ = Describe("Encode", func() {
	It("writes one packed record per node", func() {
		nodes := spheretree.BuildLeaves(row(0, 1, 10, 11))
		var buf bytes.Buffer
		Expect(spheretree.Encode(&buf, nodes)).To(Succeed())
		Expect(buf.Len()).To(Equal(len(nodes) * spheretree.NodeSize))

		raw := buf.Bytes()
		leaf := raw[2*spheretree.NodeSize : 3*spheretree.NodeSize]
		Expect(math.Float32frombits(binary.LittleEndian.Uint32(leaf[0:4]))).To(Equal(float32(10)))
		Expect(math.Float32frombits(binary.LittleEndian.Uint32(leaf[12:16]))).To(Equal(float32(0.1)))
		Expect(int32(binary.LittleEndian.Uint32(leaf[16:20]))).To(Equal(spheretree.NoChild))
		Expect(binary.LittleEndian.Uint32(leaf[24:28])).To(BeEquivalentTo(3))
		Expect(binary.LittleEndian.Uint32(leaf[28:32])).To(BeZero())

		root := raw[6*spheretree.NodeSize:]
		Expect(int32(binary.LittleEndian.Uint32(root[16:20]))).To(BeEquivalentTo(5))
		Expect(int32(binary.LittleEndian.Uint32(root[20:24]))).To(BeEquivalentTo(4))
	})
})
