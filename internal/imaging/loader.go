package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
)

// ImageCache provides thread-safe caching of loaded frames to avoid redundant disk reads.
//
// The cache stores normalized frames keyed by their file path. Once a frame is
// loaded, subsequent Load() calls for the same path return the cached copy without
// disk I/O. Cached frames are shared and must be treated as read-only.
//
// ImageCache is safe for concurrent use by multiple goroutines.
//
// # Memory Management
//
// Cached frames remain in memory until explicitly removed via Evict() or Clear().
type ImageCache struct {
	mu     sync.RWMutex
	images map[string]*image.NRGBA
}

// NewImageCache creates and initializes a new empty image cache.
func NewImageCache() *ImageCache {
	return &ImageCache{
		images: make(map[string]*image.NRGBA),
	}
}

// Load retrieves a frame from the cache or loads it from disk if not cached.
//
// Phone and camera JPEGs are rotated according to their EXIF orientation so
// the utensil appears the way the photographer saw it. Supported formats are
// PNG, JPEG, and GIF.
func (c *ImageCache) Load(path string) (*image.NRGBA, error) {
	c.mu.RLock()
	if img, ok := c.images[path]; ok {
		c.mu.RUnlock()
		return img, nil
	}
	c.mu.RUnlock()

	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	frame := Normalize(img)

	c.mu.Lock()
	c.images[path] = frame
	c.mu.Unlock()

	return frame, nil
}

// Clear removes all frames from the cache.
func (c *ImageCache) Clear() {
	c.mu.Lock()
	c.images = make(map[string]*image.NRGBA)
	c.mu.Unlock()
}

// Evict removes a specific frame from the cache by its path.
func (c *ImageCache) Evict(path string) {
	c.mu.Lock()
	delete(c.images, path)
	c.mu.Unlock()
}

// Len returns the number of cached frames.
func (c *ImageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.images)
}

// Normalize returns an 8-bit NRGBA copy of img with a zero origin.
//
// Every pipeline stage indexes pixels as y*Stride+x*4, so frames are normalized
// once on entry. An *image.NRGBA that already has a zero origin is returned as is.
func Normalize(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok && n.Bounds().Min == (image.Point{}) {
		return n
	}
	return imaging.Clone(img)
}

// DecodeBase64 decodes a frame from either a data URL
// ("data:image/jpeg;base64,...") or a raw base64 payload.
func DecodeBase64(payload string) (*image.NRGBA, error) {
	b64 := strings.TrimSpace(payload)
	if strings.HasPrefix(b64, "data:") {
		comma := strings.IndexByte(b64, ',')
		if comma < 0 {
			return nil, fmt.Errorf("malformed data URL")
		}
		b64 = b64[comma+1:]
	}
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 image: %w", err)
	}
	img, err := imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return Normalize(img), nil
}

// ImageInfo contains metadata about a loaded frame.
type ImageInfo struct {
	// Width is the frame width in pixels.
	Width int `json:"width"`

	// Height is the frame height in pixels.
	Height int `json:"height"`

	// Format is the detected format from the extension: "png", "jpeg", "gif", or "unknown".
	Format string `json:"format"`

	// FileSizeBytes is the size of the file on disk in bytes.
	FileSizeBytes int64 `json:"file_size_bytes"`

	// SuggestedMinRadius and SuggestedMaxRadius are the Hough radius bounds the
	// pipeline derives for a frame of this size when none are configured.
	SuggestedMinRadius int `json:"suggested_min_radius"`
	SuggestedMaxRadius int `json:"suggested_max_radius"`
}

// LoadImageInfo loads a frame and returns metadata about it.
func LoadImageInfo(cache *ImageCache, path string) (*ImageInfo, error) {
	img, err := cache.Load(path)
	if err != nil {
		return nil, err
	}

	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	format := "unknown"
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		format = "png"
	case ".jpg", ".jpeg":
		format = "jpeg"
	case ".gif":
		format = "gif"
	}

	bounds := img.Bounds()
	minR, maxR := RadiusBounds(bounds.Dx(), bounds.Dy())
	return &ImageInfo{
		Width:              bounds.Dx(),
		Height:             bounds.Dy(),
		Format:             format,
		FileSizeBytes:      stat.Size(),
		SuggestedMinRadius: minR,
		SuggestedMaxRadius: maxR,
	}, nil
}

// RadiusBounds derives Hough radius bounds from the frame size: the utensil is
// assumed to span between a quarter and the whole of the shorter side.
func RadiusBounds(width, height int) (int, int) {
	short := width
	if height < short {
		short = height
	}
	minR := short / 8
	if minR < 30 {
		minR = 30
	}
	maxR := short / 2
	if maxR < 60 {
		maxR = 60
	}
	return minR, maxR
}
