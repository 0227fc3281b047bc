package imaging

import (
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/ironsheep/card-scanner/internal/detection"
)

// writePhoto saves img under name in a temp dir, encoding by extension.
func writePhoto(t *testing.T, name string, img image.Image) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create %s: %v", name, err)
	}
	defer f.Close()

	switch filepath.Ext(name) {
	case ".jpg", ".jpeg":
		err = jpeg.Encode(f, img, &jpeg.Options{Quality: 95})
	default:
		err = png.Encode(f, img)
	}
	if err != nil {
		t.Fatalf("failed to encode %s: %v", name, err)
	}
	return path
}

func TestImageCache_LoadCardPhoto(t *testing.T) {
	cache := NewImageCache()
	if cache.Len() != 0 {
		t.Fatalf("new cache should be empty, got %d images", cache.Len())
	}

	card := image.Rect(30, 40, 150, 210)
	path := writePhoto(t, "card.png", createCardImage(180, 250, card))

	img, err := cache.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := img.Bounds(); got.Dx() != 180 || got.Dy() != 250 {
		t.Errorf("unexpected dimensions: got %dx%d, want 180x250", got.Dx(), got.Dy())
	}

	again, err := cache.Load(path)
	if err != nil {
		t.Fatalf("second Load failed: %v", err)
	}
	if again != img {
		t.Error("second Load did not return the cached image")
	}

	// A cached photo goes straight into detection.
	contour, err := detection.Detect(img)
	if err != nil {
		t.Fatalf("Detect on cached image failed: %v", err)
	}
	if got := detection.BoundingRect(contour); got != card {
		t.Errorf("card bounds: got %v, want %v", got, card)
	}
}

func TestImageCache_LoadErrors(t *testing.T) {
	garbage := filepath.Join(t.TempDir(), "garbage.png")
	if err := os.WriteFile(garbage, []byte("not an image"), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	tests := map[string]string{
		"missing": filepath.Join(t.TempDir(), "missing.png"),
		"garbage": garbage,
	}
	for name, path := range tests {
		t.Run(name, func(t *testing.T) {
			cache := NewImageCache()
			if _, err := cache.Load(path); err == nil {
				t.Error("Load should fail")
			}
			if cache.Len() != 0 {
				t.Error("failed loads must not be cached")
			}
		})
	}
}

func TestImageCache_EvictAndClear(t *testing.T) {
	cache := NewImageCache()
	first := writePhoto(t, "first.png", createCardImage(40, 60, image.Rect(5, 5, 35, 55)))
	second := writePhoto(t, "second.png", createCardImage(40, 60, image.Rect(10, 10, 30, 50)))

	for _, p := range []string{first, second} {
		if _, err := cache.Load(p); err != nil {
			t.Fatalf("Load(%s) failed: %v", p, err)
		}
	}
	if cache.Len() != 2 {
		t.Fatalf("expected 2 cached images, got %d", cache.Len())
	}

	cache.Evict(first)
	cache.Evict("/never/loaded.png")
	if cache.Len() != 1 {
		t.Errorf("Evict: expected 1 cached image, got %d", cache.Len())
	}

	cache.Clear()
	if cache.Len() != 0 {
		t.Errorf("Clear did not empty cache: %d images remain", cache.Len())
	}

	// Evicted photos are read back from disk.
	if _, err := cache.Load(first); err != nil {
		t.Fatalf("Load after Clear failed: %v", err)
	}
	if cache.Len() != 1 {
		t.Errorf("expected 1 cached image, got %d", cache.Len())
	}
}

func TestImageCache_ConcurrentLoads(t *testing.T) {
	cache := NewImageCache()
	paths := make([]string, 4)
	for i := range paths {
		paths[i] = writePhoto(t, "card.png", createCardImage(60, 80, image.Rect(10, 10, 50, 70)))
	}

	var wg sync.WaitGroup
	errs := make(chan error, 64)
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(path string) {
			defer wg.Done()
			if _, err := cache.Load(path); err != nil {
				errs <- err
			}
		}(paths[i%len(paths)])
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent Load error: %v", err)
	}
	if cache.Len() != len(paths) {
		t.Errorf("expected %d cached images, got %d", len(paths), cache.Len())
	}
}

func TestLoadImageInfo(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 20, 30))

	tests := []struct {
		name       string
		img        image.Image
		format     string
		colorModel string
		detectable bool
	}{
		{"photo.png", createCardImage(200, 150, image.Rect(20, 20, 180, 130)), "png", "rgba", true},
		{"photo.jpg", createCardImage(64, 48, image.Rect(8, 8, 56, 40)), "jpeg", "ycbcr", true},
		{"scan.png", gray, "png", "gray", false},
		{"photo.xyz", createCardImage(10, 10, image.Rect(2, 2, 8, 8)), "unknown", "rgba", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writePhoto(t, tt.name, tt.img)

			info, err := LoadImageInfo(NewImageCache(), path)
			if err != nil {
				t.Fatalf("LoadImageInfo failed: %v", err)
			}

			want := tt.img.Bounds()
			if info.Width != want.Dx() || info.Height != want.Dy() {
				t.Errorf("size: got %dx%d, want %dx%d", info.Width, info.Height, want.Dx(), want.Dy())
			}
			if info.Format != tt.format {
				t.Errorf("Format: got %s, want %s", info.Format, tt.format)
			}
			if info.ColorModel != tt.colorModel {
				t.Errorf("ColorModel: got %s, want %s", info.ColorModel, tt.colorModel)
			}
			if info.Detectable != tt.detectable {
				t.Errorf("Detectable: got %v, want %v", info.Detectable, tt.detectable)
			}
			if info.FileSizeBytes <= 0 {
				t.Error("FileSizeBytes should be positive")
			}
		})
	}
}

func TestLoadImageInfo_NonExistent(t *testing.T) {
	_, err := LoadImageInfo(NewImageCache(), filepath.Join(t.TempDir(), "missing.jpg"))
	if err == nil {
		t.Error("LoadImageInfo should fail for a missing photo")
	}
}

func TestGetDimensions(t *testing.T) {
	cache := NewImageCache()
	path := writePhoto(t, "wide.png", createCardImage(300, 200, image.Rect(100, 20, 200, 180)))

	dims, err := GetDimensions(cache, path)
	if err != nil {
		t.Fatalf("GetDimensions failed: %v", err)
	}
	if dims.Width != 300 || dims.Height != 200 {
		t.Errorf("got %dx%d, want 300x200", dims.Width, dims.Height)
	}

	if _, err := GetDimensions(cache, filepath.Join(t.TempDir(), "missing.png")); err == nil {
		t.Error("GetDimensions should fail for a missing photo")
	}
}
