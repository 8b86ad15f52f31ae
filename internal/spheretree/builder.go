package spheretree

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/marblesim/internal/physics"
)

// Build projects bodies through view and builds the hierarchy over them.
func Build(bodies []physics.Body, view mgl64.Mat4) []Node {
	return BuildLeaves(Leaves(bodies, view))
}

// BuildLeaves returns 2N-1 nodes for N leaves (nil for none). Leaf i keeps
// slot i; the k-th merge lands in slot N+k and the root in the last slot.
func BuildLeaves(leaves []Sphere) []Node {
	n := len(leaves)
	if n == 0 {
		return nil
	}

	total := 2*n - 1
	nodes := make([]Node, total)
	active := make([]bool, total)
	onChain := make([]bool, total)
	for i, l := range leaves {
		nodes[i] = Node{Center: l.Center, Radius: l.Radius, Left: NoChild, Right: NoChild, Color: l.Color}
		active[i] = true
	}

	b := &builder{nodes: nodes, active: active, onChain: onChain, next: n}
	for remaining := n; remaining > 1; remaining-- {
		b.mergeOnce()
	}
	return nodes
}

type builder struct {
	nodes   []Node
	active  []bool
	onChain []bool
	chain   []int
	next    int
}

func (b *builder) push(i int) {
	b.chain = append(b.chain, i)
	b.onChain[i] = true
}

func (b *builder) pop() {
	top := b.chain[len(b.chain)-1]
	b.chain = b.chain[:len(b.chain)-1]
	b.onChain[top] = false
}

// top drops inactive entries and reseeds an empty chain with the
// highest-index active cluster.
func (b *builder) top() int {
	for {
		if len(b.chain) == 0 {
			for i := b.next - 1; i >= 0; i-- {
				if b.active[i] {
					b.push(i)
					break
				}
			}
		}
		t := b.chain[len(b.chain)-1]
		if b.active[t] {
			return t
		}
		b.pop()
	}
}

// nearest scans every other active cluster; the first minimum wins, so equal
// costs go to the lowest index.
func (b *builder) nearest(cur int) int {
	best, bestCost := -1, 0.0
	for i := 0; i < b.next; i++ {
		if i == cur || !b.active[i] {
			continue
		}
		c := joinCost(b.nodes[cur], b.nodes[i])
		if best < 0 || c < bestCost {
			best, bestCost = i, c
		}
	}
	return best
}

// mergeOnce extends the chain until it finds a reciprocal pair and merges it.
func (b *builder) mergeOnce() {
	for {
		cur := b.top()
		near := b.nearest(cur)

		if len(b.chain) >= 2 && b.chain[len(b.chain)-2] == near {
			b.pop()
			b.pop()
			b.join(cur, near)
			return
		}

		// The join cost is not reducible, so a freshly merged cluster can
		// pull the chain back onto itself. Merge greedily instead of looping.
		if b.onChain[near] {
			b.pop()
			b.join(cur, near)
			return
		}

		b.push(near)
	}
}

func (b *builder) join(left, right int) {
	l, r := b.nodes[left], b.nodes[right]
	center, radius := enclose(l, r)
	b.nodes[b.next] = Node{
		Center: center,
		Radius: radius,
		Left:   int32(left),
		Right:  int32(right),
	}
	b.active[left] = false
	b.active[right] = false
	b.active[b.next] = true
	b.next++
}
