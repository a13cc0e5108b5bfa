// Package imaging provides the frame and patch rasters the detector works on,
// plus the loading, cropping, sampling and annotation helpers around them.
//
// Image is a packed RGB888 raster, three bytes per pixel with no padding
// between rows. Frames decoded from disk or HTTP uploads are resampled to
// the configured camera resolution and packed once, so the scan loop reads
// pixels without going through image.Image.
//
// # Coordinate System
//
// All pixel coordinates are 0-based with the origin at the top-left corner:
//   - X: horizontal position (0 = leftmost pixel)
//   - Y: vertical position (0 = topmost pixel)
//   - A tile is the square (x, y) to (x+size, y+size), exclusive at the far edges
//
// # Patches
//
// Patch is a fixed-capacity scratch raster over a caller-supplied buffer.
// Extract copies a tile into it and ResizeInto resamples it to the
// classifier input with nearest-neighbour sampling. Neither allocates.
//
// # Color
//
// HSV and IsRedLike implement the red test shared by the candidate filter,
// the bounding box helper and SampleColor. Arithmetic is float32.
//
// # Thread Safety
//
// FrameCache is safe for concurrent use. Cached frames are shared and must
// be treated as read-only. A Patch belongs to one goroutine.
//
// # Error Handling
//
// Functions return errors for tiles or points outside the image, empty or
// inconsistent buffers, and file I/O or encoding failures.
package imaging
