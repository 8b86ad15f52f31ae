package spheretree

import (
	"errors"
	"fmt"
)

var ErrMalformed = errors.New("malformed sphere tree")

// Validate checks the structural invariants of a built tree: 2N-1 nodes for
// n leaves, leaves first, children strictly below their parent, every
// non-root node referenced exactly once, and each internal sphere holding its
// children to within tol.
func Validate(nodes []Node, n int, tol float64) error {
	if n == 0 {
		if len(nodes) != 0 {
			return fmt.Errorf("%w: %d nodes for no leaves", ErrMalformed, len(nodes))
		}
		return nil
	}
	if len(nodes) != 2*n-1 {
		return fmt.Errorf("%w: %d nodes for %d leaves, want %d", ErrMalformed, len(nodes), n, 2*n-1)
	}

	refs := make([]int, len(nodes))
	for i, node := range nodes {
		if i < n {
			if !node.IsLeaf() {
				return fmt.Errorf("%w: leaf %d has children %d,%d", ErrMalformed, i, node.Left, node.Right)
			}
			continue
		}
		for _, c := range [2]int32{node.Left, node.Right} {
			if c < 0 || int(c) >= i {
				return fmt.Errorf("%w: node %d has child %d", ErrMalformed, i, c)
			}
			refs[c]++
			if !Contains(node, nodes[c], tol) {
				return fmt.Errorf("%w: node %d does not contain child %d", ErrMalformed, i, c)
			}
		}
		if node.Left == node.Right {
			return fmt.Errorf("%w: node %d has the same child twice", ErrMalformed, i)
		}
	}

	root := Root(nodes)
	for i, r := range refs {
		want := 1
		if i == root {
			want = 0
		}
		if r != want {
			return fmt.Errorf("%w: node %d referenced %d times", ErrMalformed, i, r)
		}
	}
	return nil
}
