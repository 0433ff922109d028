package imaging

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"

	apperrors "github.com/ironsheep/wire-analysis/internal/errors"
	"github.com/ironsheep/wire-analysis/internal/mask"
)

// createTestImage writes a PNG filled with c and returns its path.
func createTestImage(t *testing.T, width, height int, c color.Color) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return writePNG(t, "solid.png", img)
}

// createMaskImage writes a white micrograph mask with a black w x h feature
// at (fx, fy), the polarity the small pipeline expects.
func createMaskImage(t *testing.T, width, height, fx, fy, w, h int) string {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if x >= fx && x < fx+w && y >= fy && y < fy+h {
				continue
			}
			img.SetGray(x, y, color.Gray{Y: 255})
		}
	}
	return writePNG(t, "mask.png", img)
}

func writePNG(t *testing.T, name string, img image.Image) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create file: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return path
}

func TestNewImageCache(t *testing.T) {
	cache := NewImageCache()
	if cache == nil || cache.images == nil {
		t.Fatal("NewImageCache returned an uninitialized cache")
	}
}

func TestImageCache_Load(t *testing.T) {
	cache := NewImageCache()
	imgPath := createTestImage(t, 100, 80, color.RGBA{255, 0, 0, 255})

	img1, err := cache.Load(imgPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	bounds := img1.Bounds()
	if bounds.Dx() != 100 || bounds.Dy() != 80 {
		t.Errorf("unexpected dimensions: got %dx%d, want 100x80", bounds.Dx(), bounds.Dy())
	}

	// Second load should return cached image
	img2, err := cache.Load(imgPath)
	if err != nil {
		t.Fatalf("second Load failed: %v", err)
	}
	if img1 != img2 {
		t.Error("second Load did not return cached image")
	}
}

func TestImageCache_Load_NonExistent(t *testing.T) {
	cache := NewImageCache()
	_, err := cache.Load(filepath.Join(t.TempDir(), "absent.tif"))
	if !apperrors.IsKind(err, apperrors.KindMissingInput) {
		t.Errorf("got %v, want MissingInput", err)
	}
}

func TestImageCache_Load_InvalidImage(t *testing.T) {
	cache := NewImageCache()
	path := filepath.Join(t.TempDir(), "invalid.png")
	if err := os.WriteFile(path, []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := cache.Load(path)
	if !apperrors.IsKind(err, apperrors.KindInvalidInput) {
		t.Errorf("got %v, want InvalidInput", err)
	}
}

func TestImageCache_ClearAndEvict(t *testing.T) {
	cache := NewImageCache()
	a := createTestImage(t, 10, 10, color.White)
	b := createTestImage(t, 10, 10, color.Black)
	for _, p := range []string{a, b} {
		if _, err := cache.Load(p); err != nil {
			t.Fatalf("Load failed: %v", err)
		}
	}

	cache.Evict(a)
	cache.Evict("/nonexistent/path") // no-op
	cache.mu.RLock()
	_, hasA := cache.images[a]
	_, hasB := cache.images[b]
	cache.mu.RUnlock()
	if hasA || !hasB {
		t.Errorf("after Evict: hasA=%v hasB=%v, want false true", hasA, hasB)
	}

	cache.Clear()
	cache.mu.RLock()
	count := len(cache.images)
	cache.mu.RUnlock()
	if count != 0 {
		t.Errorf("Clear did not empty cache: %d images remain", count)
	}
}

func TestImageCache_ConcurrentAccess(t *testing.T) {
	cache := NewImageCache()
	imgPath := createTestImage(t, 50, 50, color.RGBA{128, 128, 128, 255})

	var wg sync.WaitGroup
	errs := make(chan error, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := cache.Load(imgPath); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent Load error: %v", err)
	}
}

func TestLoadMask_Polarity(t *testing.T) {
	path := createMaskImage(t, 20, 10, 4, 2, 6, 3)
	cache := NewImageCache()

	m, err := LoadMask(cache, path, 128, false)
	if err != nil {
		t.Fatalf("LoadMask failed: %v", err)
	}
	if m.Foreground(5, 3) || !m.Foreground(0, 0) {
		t.Error("dark feature should be background, bright matrix foreground")
	}
	if got := m.Count(); got != 200-18 {
		t.Errorf("foreground count: got %d, want 182", got)
	}

	inv, err := LoadMask(cache, path, 128, true)
	if err != nil {
		t.Fatalf("LoadMask failed: %v", err)
	}
	if !inv.Foreground(5, 3) || inv.Foreground(0, 0) {
		t.Error("featuresWhite should invert the mask")
	}
}

func TestLoadMaskInfo(t *testing.T) {
	path := createMaskImage(t, 20, 10, 0, 0, 5, 4)

	info, err := LoadMaskInfo(NewImageCache(), path, 128, false)
	if err != nil {
		t.Fatalf("LoadMaskInfo failed: %v", err)
	}
	if info.Width != 20 || info.Height != 10 || info.Format != "png" {
		t.Errorf("unexpected info %+v", info)
	}
	if info.Background != 20 || info.Foreground != 180 {
		t.Errorf("pixel balance: got %d/%d, want 180/20", info.Foreground, info.Background)
	}
	if info.FeatureFraction != 0.1 {
		t.Errorf("FeatureFraction: got %g, want 0.1", info.FeatureFraction)
	}
	if info.FileSizeBytes <= 0 {
		t.Error("FileSizeBytes should be positive")
	}
}

func TestFormatOf(t *testing.T) {
	tests := []struct {
		path   string
		format string
	}{
		{"a.png", "png"},
		{"a.jpg", "jpeg"},
		{"a.JPEG", "jpeg"},
		{"a.gif", "gif"},
		{"image_wires.tif", "tiff"},
		{"a.tiff", "tiff"},
		{"a.bmp", "bmp"},
		{"a.npy", "unknown"},
	}
	for _, tt := range tests {
		if got := formatOf(tt.path); got != tt.format {
			t.Errorf("formatOf(%q): got %s, want %s", tt.path, got, tt.format)
		}
	}
}

func TestSaveMask_RoundTrip(t *testing.T) {
	m := mask.New(12, 8).Invert()
	for y := 2; y < 5; y++ {
		for x := 3; x < 9; x++ {
			m.Set(x, y, false)
		}
	}

	for _, name := range []string{"image_wires.tif", "image_wires.png", "image_wires.bmp"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			if err := SaveMask(path, m, true); err != nil {
				t.Fatalf("SaveMask failed: %v", err)
			}

			// Written with features white, so a plain load sees them as foreground.
			raw, err := LoadMask(NewImageCache(), path, 128, false)
			if err != nil {
				t.Fatalf("LoadMask failed: %v", err)
			}
			if !raw.Foreground(4, 3) || raw.Foreground(0, 0) {
				t.Error("features were not written white")
			}

			back, err := LoadMask(NewImageCache(), path, 128, true)
			if err != nil {
				t.Fatalf("LoadMask failed: %v", err)
			}
			if !back.Equal(m) {
				t.Errorf("round trip changed the mask:\n got %v\nwant %v", back, m)
			}
		})
	}
}
