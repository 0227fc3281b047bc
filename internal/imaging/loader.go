package imaging

import (
	"fmt"
	"image"
	"os"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
)

// ImageCache keeps decoded card photos in memory, keyed by file path.
//
// Photos are decoded with EXIF auto-orientation applied, so a phone picture
// taken in portrait is cached upright and contour coordinates refer to the
// image as a viewer sees it.
//
// ImageCache is safe for concurrent use by multiple goroutines.
//
// # Memory Management
//
// Cached images remain in memory until removed via Evict() or Clear(). Card
// photos are typically several megapixels; long-running servers that scan
// many cards should evict photos they are done with.
//
// # Example Usage
//
//	cache := imaging.NewImageCache()
//	img, err := cache.Load("scans/card_001.jpg")
//	if err != nil {
//	    return err
//	}
//	contour, err := detection.Detect(img)
type ImageCache struct {
	mu     sync.RWMutex
	images map[string]image.Image
}

// NewImageCache creates an empty image cache.
func NewImageCache() *ImageCache {
	return &ImageCache{
		images: make(map[string]image.Image),
	}
}

// Load returns the decoded image at path, reading it from disk on first use.
//
// Supported formats are those registered with the image package and
// disintegration/imaging: JPEG, PNG, GIF, BMP and TIFF. The cache key is the
// exact path string, so relative and absolute paths to one file are cached
// separately.
//
// # Errors
//
//   - Returns error if the file does not exist or cannot be read
//   - Returns error if the file is not a decodable image
func (c *ImageCache) Load(path string) (image.Image, error) {
	c.mu.RLock()
	if img, ok := c.images[path]; ok {
		c.mu.RUnlock()
		return img, nil
	}
	c.mu.RUnlock()

	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to load image: %w", err)
	}

	c.mu.Lock()
	c.images[path] = img
	c.mu.Unlock()

	return img, nil
}

// Len returns the number of cached images.
func (c *ImageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.images)
}

// Clear removes all images from the cache.
func (c *ImageCache) Clear() {
	c.mu.Lock()
	c.images = make(map[string]image.Image)
	c.mu.Unlock()
}

// Evict removes the image cached under path. Unknown paths are ignored.
func (c *ImageCache) Evict(path string) {
	c.mu.Lock()
	delete(c.images, path)
	c.mu.Unlock()
}

// ImageInfo describes a loaded card photo.
type ImageInfo struct {
	// Width is the image width in pixels after orientation correction.
	Width int `json:"width"`

	// Height is the image height in pixels after orientation correction.
	Height int `json:"height"`

	// Format is derived from the file extension: "jpeg", "png", "gif",
	// "bmp", "tiff" or "unknown".
	Format string `json:"format"`

	// ColorModel names the decoded pixel layout, e.g. "ycbcr" for most JPEG
	// photos or "gray" for grayscale scans.
	ColorModel string `json:"color_model"`

	// Detectable reports whether the card detector accepts the image. Single
	// channel images are rejected.
	Detectable bool `json:"detectable"`

	// FileSizeBytes is the size of the file on disk.
	FileSizeBytes int64 `json:"file_size_bytes"`
}

// LoadImageInfo loads the image at path through the cache and describes it.
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
	if f, err := imaging.FormatFromFilename(path); err == nil {
		format = strings.ToLower(f.String())
	}

	model := colorModelName(img)
	bounds := img.Bounds()
	return &ImageInfo{
		Width:         bounds.Dx(),
		Height:        bounds.Dy(),
		Format:        format,
		ColorModel:    model,
		Detectable:    model != "gray" && model != "gray16" && model != "alpha" && model != "alpha16",
		FileSizeBytes: stat.Size(),
	}, nil
}

func colorModelName(img image.Image) string {
	switch img.(type) {
	case *image.YCbCr:
		return "ycbcr"
	case *image.RGBA:
		return "rgba"
	case *image.NRGBA:
		return "nrgba"
	case *image.RGBA64:
		return "rgba64"
	case *image.NRGBA64:
		return "nrgba64"
	case *image.Gray:
		return "gray"
	case *image.Gray16:
		return "gray16"
	case *image.Alpha:
		return "alpha"
	case *image.Alpha16:
		return "alpha16"
	case *image.Paletted:
		return "paletted"
	case *image.CMYK:
		return "cmyk"
	default:
		return "unknown"
	}
}

// DimensionsResult contains the width and height of an image.
type DimensionsResult struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// GetDimensions returns the dimensions of the image at path, loading it into
// the cache if needed.
func GetDimensions(cache *ImageCache, path string) (*DimensionsResult, error) {
	img, err := cache.Load(path)
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	return &DimensionsResult{
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}, nil
}
