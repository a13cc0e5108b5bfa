package imaging

import (
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/disintegration/imaging"
)

// FrameSize is the resolution frames are resampled to before scanning.
// A zero Width or Height keeps the decoded resolution.
type FrameSize struct {
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// IsZero reports whether no resampling is requested.
func (f FrameSize) IsZero() bool { return f.Width <= 0 || f.Height <= 0 }

// FrameCache provides thread-safe caching of decoded frames to avoid
// redundant disk reads and conversions.
//
// Frames are keyed by path and stored already packed as RGB888 at the
// cache's frame size, so repeated scans of the same photo skip decoding.
//
// FrameCache is safe for concurrent use by multiple goroutines.
type FrameCache struct {
	mu     sync.RWMutex
	size   FrameSize
	frames map[string]*Image
}

// NewFrameCache creates an empty cache that resamples frames to size.
func NewFrameCache(size FrameSize) *FrameCache {
	return &FrameCache{
		size:   size,
		frames: make(map[string]*Image),
	}
}

// Size returns the resolution frames are resampled to.
func (c *FrameCache) Size() FrameSize { return c.size }

// Load retrieves a frame from the cache or decodes it from disk.
//
// Supported formats are PNG, JPEG and GIF. The frame is resampled to the
// cache's FrameSize (when set) and packed as RGB888.
func (c *FrameCache) Load(path string) (*Image, error) {
	c.mu.RLock()
	if frame, ok := c.frames[path]; ok {
		c.mu.RUnlock()
		return frame, nil
	}
	c.mu.RUnlock()

	img, err := imgio.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}

	frame, err := PrepareFrame(img, c.size)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.frames[path] = frame
	c.mu.Unlock()

	return frame, nil
}

// Clear removes all frames from the cache.
func (c *FrameCache) Clear() {
	c.mu.Lock()
	c.frames = make(map[string]*Image)
	c.mu.Unlock()
}

// Evict removes a specific frame from the cache by its path.
func (c *FrameCache) Evict(path string) {
	c.mu.Lock()
	delete(c.frames, path)
	c.mu.Unlock()
}

// DecodeFrame decodes an encoded image stream (JPEG, PNG or GIF) and prepares
// it for scanning.
func DecodeFrame(r io.Reader, size FrameSize) (*Image, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return PrepareFrame(img, size)
}

// PrepareFrame resamples img to size (if set) and packs it as RGB888.
func PrepareFrame(img image.Image, size FrameSize) (*Image, error) {
	var nrgba *image.NRGBA
	b := img.Bounds()
	if !size.IsZero() && (b.Dx() != size.Width || b.Dy() != size.Height) {
		nrgba = imaging.Resize(img, size.Width, size.Height, imaging.Lanczos)
	} else {
		nrgba = imaging.Clone(img)
	}
	return FromImage(nrgba)
}

// FrameInfo contains metadata about a frame file.
type FrameInfo struct {
	// Width and Height are the dimensions of the prepared frame.
	Width  int `json:"width"`
	Height int `json:"height"`

	// SourceWidth and SourceHeight are the dimensions stored in the file.
	SourceWidth  int `json:"source_width"`
	SourceHeight int `json:"source_height"`

	// Format is "png", "jpeg", "gif" or "unknown", detected from the extension.
	Format string `json:"format"`

	// FileSizeBytes is the size of the file on disk in bytes.
	FileSizeBytes int64 `json:"file_size_bytes"`
}

// LoadFrameInfo loads a frame into the cache and reports its metadata.
func LoadFrameInfo(cache *FrameCache, path string) (*FrameInfo, error) {
	frame, err := cache.Load(path)
	if err != nil {
		return nil, err
	}

	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read image header: %w", err)
	}

	format := "unknown"
	switch filepath.Ext(path) {
	case ".png":
		format = "png"
	case ".jpg", ".jpeg":
		format = "jpeg"
	case ".gif":
		format = "gif"
	}

	return &FrameInfo{
		Width:         frame.Width,
		Height:        frame.Height,
		SourceWidth:   cfg.Width,
		SourceHeight:  cfg.Height,
		Format:        format,
		FileSizeBytes: stat.Size(),
	}, nil
}

// SaveImage writes img to path, choosing PNG or JPEG from the extension.
func SaveImage(path string, img image.Image) error {
	encoder := imgio.PNGEncoder()
	switch filepath.Ext(path) {
	case ".jpg", ".jpeg":
		encoder = imgio.JPEGEncoder(90)
	}
	if err := imgio.Save(path, img, encoder); err != nil {
		return fmt.Errorf("failed to save image: %w", err)
	}
	return nil
}
