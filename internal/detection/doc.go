// Package detection finds and classifies a single road sign in an RGB frame.
//
// The pipeline is built to run under a tight CPU and memory budget:
//
//  1. Scale scan: tile sizes are derived from the frame height using a
//     strictly descending list of scales, so large (near) signs are tried
//     before small (far) ones.
//  2. Position scan: each scale is swept with a stride of half the tile,
//     giving 50% overlap between neighbouring tiles.
//  3. Candidate filter: a colour test (red fraction plus whole-vs-centre
//     contrast) rejects most tiles before any model call.
//  4. Patch preparation: the tile is copied into a reusable scratch patch and
//     nearest-neighbour resized to the classifier input.
//  5. Classification: pixels are mapped to [-1,1] and scored by an Oracle.
//  6. Decision: a stable softmax yields confidence and margin; the first tile
//     whose confidence and margin clear the policy ends the scan.
//
// # Resources
//
// NewDetector obtains both scratch buffers from an Allocator and checks the
// oracle's tensor shapes once. Scans reuse that memory and allocate nothing
// per tile. Only one scan may run on a Detector at a time.
//
// # Liveness
//
// After every Config.YieldEvery classifier invocations the scanner calls its
// yield function (runtime.Gosched unless replaced), so a long scan never
// monopolises its processor. ScanContext additionally checks for
// cancellation at those points.
//
// # Errors
//
// Only construction can fail (ErrInvalidConfig, ErrAllocation). During a scan
// a failing Oracle call is logged and the tile skipped; a frame too small for
// any scale simply ends Exhausted.
package detection
