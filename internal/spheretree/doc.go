// Package spheretree builds the per-frame bounding-sphere hierarchy that the
// renderer traverses.
//
// The tree is a flat array of [Node] values with int32 child indices: leaves
// occupy [0,N), internal nodes [N,2N-1) in creation order, and the root is
// always the last element. Every internal node refers only to lower slots, so
// the array can be uploaded as-is and walked without pointers.
//
// Construction is nearest-neighbour-chain agglomeration with the volume a
// merge would add as its cost. It is single-threaded and deterministic:
// identical leaves in identical order produce an identical array.
package spheretree
