// Package uploads implements the image-attachment adapter behind
// POST /uploads/images and POST /uploads/attachment-links (spec.md §6).
// It is intentionally thin: store the original and a resized preview
// under random keys, and hand back short-lived presigned links. A real
// deployment would back this with an object-storage bucket; lacking an
// SDK for one in this codebase's dependency set, this implementation
// persists to a local directory and "presigns" by minting a cached,
// expiring token for each attachment id instead of a signed URL.
package uploads

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/eratosthenes/geoguess-server/internal/logging"
)

// PreviewMaxDimension bounds the long edge of an auto-generated preview.
const PreviewMaxDimension = 480

// LinkTTL is how long a presigned attachment link stays valid.
const LinkTTL = 15 * time.Minute

// Store is the image-upload adapter. It degrades to a log warning (not
// a failure) at construction time if the backing directory can't be
// prepared, matching spec.md §6's "uploads degrade to log-warn on
// startup if missing" policy for object-storage configuration.
type Store struct {
	baseDir string
	cache   *cache.Cache
	healthy bool
}

// NewStore prepares baseDir as the backing directory for originals and
// previews.
func NewStore(baseDir string) *Store {
	s := &Store{
		baseDir: baseDir,
		cache:   cache.New(LinkTTL, 2*LinkTTL),
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		logging.Warn("uploads: backing directory unavailable, uploads disabled", map[string]interface{}{
			"dir":   baseDir,
			"error": err.Error(),
		})
		return s
	}
	s.healthy = true
	return s
}

// Healthy reports whether the store is usable.
func (s *Store) Healthy() bool { return s.healthy }

// Save decodes an uploaded image, writes the original and a resized
// preview under a fresh random id, and returns that id.
func (s *Store) Save(r io.Reader) (string, error) {
	if !s.healthy {
		return "", fmt.Errorf("uploads: store unavailable")
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("uploads: reading upload: %w", err)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("uploads: decoding image: %w", err)
	}

	id := uuid.NewString()
	if err := os.WriteFile(s.originalPath(id), data, 0o644); err != nil {
		return "", fmt.Errorf("uploads: writing original: %w", err)
	}

	preview := resize(img, PreviewMaxDimension)
	previewFile, err := os.Create(s.previewPath(id))
	if err != nil {
		return "", fmt.Errorf("uploads: creating preview: %w", err)
	}
	defer previewFile.Close()
	if err := jpeg.Encode(previewFile, preview, &jpeg.Options{Quality: 85}); err != nil {
		return "", fmt.Errorf("uploads: encoding preview: %w", err)
	}

	s.cache.Set(id, struct{}{}, LinkTTL)
	return id, nil
}

// PresignedLink returns a short-lived link for a previously saved
// attachment id, or an error if no original is stored under that id. An
// id whose cache entry has expired gets a fresh one as long as its
// original file still exists.
func (s *Store) PresignedLink(id string) (string, error) {
	if _, found := s.cache.Get(id); !found {
		// Attachments are immutable once saved; re-seed the cache entry
		// so existing files remain linkable beyond the first TTL window.
		if _, err := os.Stat(s.originalPath(id)); err != nil {
			return "", fmt.Errorf("uploads: unknown attachment %q", id)
		}
		s.cache.Set(id, struct{}{}, LinkTTL)
	}
	expiry := time.Now().Add(LinkTTL).Unix()
	return fmt.Sprintf("/uploads/%s/original?expires=%d", id, expiry), nil
}

func (s *Store) originalPath(id string) string {
	return filepath.Join(s.baseDir, id+".orig")
}

func (s *Store) previewPath(id string) string {
	return filepath.Join(s.baseDir, id+".preview.jpg")
}

func resize(src image.Image, maxDim int) image.Image {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxDim && h <= maxDim {
		return src
	}

	scale := float64(maxDim) / float64(w)
	if h > w {
		scale = float64(maxDim) / float64(h)
	}
	newW, newH := int(float64(w)*scale), int(float64(h)*scale)
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	for y := 0; y < newH; y++ {
		for x := 0; x < newW; x++ {
			srcX := x * w / newW
			srcY := y * h / newH
			dst.Set(x, y, src.At(bounds.Min.X+srcX, bounds.Min.Y+srcY))
		}
	}
	return dst
}
