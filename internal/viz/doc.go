// Package viz is the live terminal viewer.
//
// [Model] is a Bubble Tea program that owns the frame loop: each frame it
// advances the camera, asks the scheduler to catch up with the wall clock,
// rebuilds the sphere tree in camera space and hands it to a [Renderer].
// Physics results arrive as messages and are applied between frames.
//
// [TermRenderer] walks the flat tree with an explicit stack, culling
// subtrees whose bounding sphere misses the view, and rasterizes the leaves
// into a braille [Canvas] with a per-dot depth test.
//
// # Key Bindings
//
//	W/A/S/D   - Move forward/left/back/right
//	R/F       - Move up/down
//	[ ]       - Roll left/right
//	Arrows    - Turn
//	Ctrl+S    - Toggle slow movement
//	Space     - Pause/Resume physics
//	B         - Toggle bounding spheres
//	T         - Cycle color themes
//	Q         - Quit
package viz
