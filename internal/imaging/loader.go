package imaging

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"  // Register BMP format decoder
	_ "golang.org/x/image/tiff" // Register TIFF format decoder

	apperrors "github.com/ironsheep/wire-analysis/internal/errors"
	"github.com/ironsheep/wire-analysis/internal/mask"
)

// ImageCache provides thread-safe caching of decoded images to avoid
// redundant disk reads.
//
// Images are keyed by the exact path string given to Load. A micrograph
// analysed by several tool calls is decoded once.
//
// # Memory Management
//
// Cached images remain in memory until removed via Evict() or Clear().
// Microscopy frames are large, so long-running servers should evict a path
// once a run is done with it.
type ImageCache struct {
	mu     sync.RWMutex
	images map[string]image.Image
}

// NewImageCache creates and initializes a new empty image cache.
func NewImageCache() *ImageCache {
	return &ImageCache{
		images: make(map[string]image.Image),
	}
}

// Load retrieves an image from the cache or decodes it from disk.
//
// # Errors
//
//   - MissingInput if the file does not exist
//   - InvalidInput if the file is not a PNG, JPEG, GIF, TIFF or BMP image
//   - a wrapped I/O error for anything else
func (c *ImageCache) Load(path string) (image.Image, error) {
	c.mu.RLock()
	if img, ok := c.images[path]; ok {
		c.mu.RUnlock()
		return img, nil
	}
	c.mu.RUnlock()

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperrors.NewMissingInput(fmt.Sprintf("image %s not found", path), err)
		}
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, apperrors.NewInvalidInput(fmt.Sprintf("failed to decode image %s", path), err)
	}

	c.mu.Lock()
	c.images[path] = img
	c.mu.Unlock()

	return img, nil
}

// Clear removes all images from the cache.
func (c *ImageCache) Clear() {
	c.mu.Lock()
	c.images = make(map[string]image.Image)
	c.mu.Unlock()
}

// Evict removes a specific image from the cache by its path. Unknown paths
// are ignored.
func (c *ImageCache) Evict(path string) {
	c.mu.Lock()
	delete(c.images, path)
	c.mu.Unlock()
}

// LoadMask decodes the image at path and thresholds its luminance at level:
// pixels at or above level become foreground. With featuresWhite the result
// is inverted so the bright features end up as background.
func LoadMask(cache *ImageCache, path string, level uint8, featuresWhite bool) (*mask.Mask, error) {
	img, err := cache.Load(path)
	if err != nil {
		return nil, err
	}
	m := mask.FromImage(img, level)
	if featuresWhite {
		m = m.Invert()
	}
	return m, nil
}

// MaskInfo describes a mask file before any pipeline runs on it.
type MaskInfo struct {
	// Width and Height are the image dimensions in pixels.
	Width  int `json:"width"`
	Height int `json:"height"`

	// Format is detected from the file extension: "png", "jpeg", "gif",
	// "tiff", "bmp" or "unknown".
	Format string `json:"format"`

	// Foreground counts matrix pixels and Background counts feature pixels,
	// after thresholding.
	Foreground int `json:"foreground_pixels"`
	Background int `json:"background_pixels"`

	// FeatureFraction is Background over the total pixel count.
	FeatureFraction float64 `json:"feature_fraction"`

	// FileSizeBytes is the size of the file on disk.
	FileSizeBytes int64 `json:"file_size_bytes"`
}

// LoadMaskInfo loads a mask through the cache and reports its size, format
// and pixel balance. A feature fraction far above one half usually means
// featuresWhite has the wrong value.
func LoadMaskInfo(cache *ImageCache, path string, level uint8, featuresWhite bool) (*MaskInfo, error) {
	m, err := LoadMask(cache, path, level, featuresWhite)
	if err != nil {
		return nil, err
	}

	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	fg := m.Count()
	total := m.Width * m.Height
	info := &MaskInfo{
		Width:         m.Width,
		Height:        m.Height,
		Format:        formatOf(path),
		Foreground:    fg,
		Background:    total - fg,
		FileSizeBytes: stat.Size(),
	}
	if total > 0 {
		info.FeatureFraction = float64(total-fg) / float64(total)
	}
	return info, nil
}

func formatOf(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "png"
	case ".jpg", ".jpeg":
		return "jpeg"
	case ".gif":
		return "gif"
	case ".tif", ".tiff":
		return "tiff"
	case ".bmp":
		return "bmp"
	}
	return "unknown"
}

// SaveImage writes img to path. The encoder follows the extension; TIFF
// output is deflate-compressed.
func SaveImage(path string, img image.Image) error {
	if err := imaging.Save(img, path); err != nil {
		return fmt.Errorf("failed to save image %s: %w", path, err)
	}
	return nil
}

// SaveMask writes m as an 8-bit gray image. With featuresWhite the features
// (background pixels) are written white, the form LoadMask reads back with
// the same flag.
func SaveMask(path string, m *mask.Mask, featuresWhite bool) error {
	if featuresWhite {
		m = m.Invert()
	}
	return SaveImage(path, m.Image())
}
