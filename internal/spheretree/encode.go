package spheretree

import (
	"encoding/binary"
	"fmt"
	"io"
)

// NodeSize is the byte size of one encoded node.
const NodeSize = 32

// gpuNode mirrors the storage-buffer layout the fragment shader reads.
type gpuNode struct {
	X, Y, Z float32
	Radius  float32
	Left    int32
	Right   int32
	Color   uint32
	_       uint32
}

// Encode writes nodes as packed little-endian records, NodeSize bytes each.
func Encode(w io.Writer, nodes []Node) error {
	buf := make([]gpuNode, len(nodes))
	for i, n := range nodes {
		buf[i] = gpuNode{
			X:      float32(n.Center[0]),
			Y:      float32(n.Center[1]),
			Z:      float32(n.Center[2]),
			Radius: float32(n.Radius),
			Left:   n.Left,
			Right:  n.Right,
			Color:  n.Color,
		}
	}
	if err := binary.Write(w, binary.LittleEndian, buf); err != nil {
		return fmt.Errorf("encode sphere tree: %w", err)
	}
	return nil
}
