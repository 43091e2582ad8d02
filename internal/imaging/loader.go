package imaging

import (
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
	_ "golang.org/x/image/webp" // Register WebP format decoder

	"github.com/ironsheep/stencil-tools-mcp/internal/stencil"
)

// DefaultMaxDimension is the longest side, in pixels, a source image is
// scaled down to before processing.
const DefaultMaxDimension = 1200

// Source is a decoded photograph ready for the stencil pipeline.
type Source struct {
	// Path is the file the image was read from.
	Path string

	// Pixels is the (possibly downscaled) image as an immutable buffer.
	Pixels stencil.PixelBuffer

	// OriginalWidth and OriginalHeight are the decoded dimensions before
	// fitting, after EXIF orientation has been applied.
	OriginalWidth  int
	OriginalHeight int

	// Format is derived from the file extension: "png", "jpeg", "gif",
	// "webp" or "unknown".
	Format string
}

// Scaled reports whether the image was reduced to fit the maximum dimension.
func (s *Source) Scaled() bool {
	return s.Pixels.Width() != s.OriginalWidth || s.Pixels.Height() != s.OriginalHeight
}

// ImageCache provides thread-safe caching of loaded sources to avoid
// redundant disk reads and resizing.
//
// Sources are keyed by their file path. Once loaded, subsequent Load calls
// for the same path return the cached copy. Cached sources remain in memory
// until Evict or Clear is called.
//
// # Example Usage
//
//	cache := imaging.NewImageCache(imaging.DefaultMaxDimension)
//	src, err := cache.Load("/path/to/photo.jpg")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	arts, err := stencil.Process(src.Pixels, stencil.DefaultSettings(), stencil.TierHigh)
type ImageCache struct {
	maxDim int

	mu      sync.RWMutex
	sources map[string]*Source
}

// NewImageCache creates an empty cache that fits images to maxDim pixels on
// the longer side. A non-positive maxDim selects DefaultMaxDimension.
func NewImageCache(maxDim int) *ImageCache {
	if maxDim <= 0 {
		maxDim = DefaultMaxDimension
	}
	return &ImageCache{
		maxDim:  maxDim,
		sources: make(map[string]*Source),
	}
}

// MaxDimension returns the longer-side limit applied to loaded images.
func (c *ImageCache) MaxDimension() int {
	return c.maxDim
}

// Load retrieves a source from the cache or decodes it from disk.
//
// Parameters:
//   - path: Absolute or relative file path. Supported formats are PNG, JPEG,
//     GIF and WebP.
//
// Returns:
//   - *Source: The decoded image, EXIF-oriented and fitted so that neither
//     side exceeds the cache's maximum dimension, preserving aspect ratio.
//     Images already within the limit are not resampled.
//   - error: Non-nil if the file cannot be opened or decoded, or decodes to
//     an empty image.
//
// Different paths to the same file result in separate cache entries.
func (c *ImageCache) Load(path string) (*Source, error) {
	c.mu.RLock()
	if src, ok := c.sources[path]; ok {
		c.mu.RUnlock()
		return src, nil
	}
	c.mu.RUnlock()

	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to open image: %w", err)
		}
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	src, err := newSource(path, img, c.maxDim)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.sources[path] = src
	c.mu.Unlock()

	return src, nil
}

func newSource(path string, img image.Image, maxDim int) (*Source, error) {
	b := img.Bounds()
	if b.Empty() {
		return nil, fmt.Errorf("image %s: %w", path, stencil.ErrEmptyBuffer)
	}

	fitted := img
	if b.Dx() > maxDim || b.Dy() > maxDim {
		fitted = imaging.Fit(img, maxDim, maxDim, imaging.Lanczos)
	}

	return &Source{
		Path:           path,
		Pixels:         stencil.FromImage(fitted),
		OriginalWidth:  b.Dx(),
		OriginalHeight: b.Dy(),
		Format:         formatFromPath(path),
	}, nil
}

// Clear removes all sources from the cache.
func (c *ImageCache) Clear() {
	c.mu.Lock()
	c.sources = make(map[string]*Source)
	c.mu.Unlock()
}

// Evict removes a specific source from the cache by its path.
// If the path is not cached, this method does nothing.
func (c *ImageCache) Evict(path string) {
	c.mu.Lock()
	delete(c.sources, path)
	c.mu.Unlock()
}

// SourceInfo contains metadata about a loaded source.
type SourceInfo struct {
	// Width and Height are the dimensions the pipeline works on.
	Width  int `json:"width"`
	Height int `json:"height"`

	// OriginalWidth and OriginalHeight are the dimensions before fitting.
	OriginalWidth  int `json:"original_width"`
	OriginalHeight int `json:"original_height"`

	// Scaled is true if the image was reduced to fit MaxDimension.
	Scaled       bool `json:"scaled"`
	MaxDimension int  `json:"max_dimension"`

	// Format is the detected image format, based on file extension.
	Format string `json:"format"`

	// FileSizeBytes is the size of the image file on disk in bytes.
	FileSizeBytes int64 `json:"file_size_bytes"`
}

// LoadSourceInfo loads a source into the cache (if not already cached) and
// returns its metadata.
//
// Parameters:
//   - cache: The image cache to use for loading. Must not be nil.
//   - path: Path to the image file.
//
// Returns:
//   - *SourceInfo: Metadata about the source.
//   - error: Non-nil if the image cannot be loaded or the file cannot be stat'd.
func LoadSourceInfo(cache *ImageCache, path string) (*SourceInfo, error) {
	src, err := cache.Load(path)
	if err != nil {
		return nil, err
	}

	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	return &SourceInfo{
		Width:          src.Pixels.Width(),
		Height:         src.Pixels.Height(),
		OriginalWidth:  src.OriginalWidth,
		OriginalHeight: src.OriginalHeight,
		Scaled:         src.Scaled(),
		MaxDimension:   cache.maxDim,
		Format:         src.Format,
		FileSizeBytes:  stat.Size(),
	}, nil
}

func formatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "png"
	case ".jpg", ".jpeg":
		return "jpeg"
	case ".gif":
		return "gif"
	case ".webp":
		return "webp"
	}
	return "unknown"
}
