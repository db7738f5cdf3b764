// internal/domain/product/storage.go
package product

import (
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nfnt/resize"
	"github.com/your-org/storefront/internal/config"
)

var (
	ErrImageTooLarge    = errors.New("image too large")
	ErrImageUnsupported = errors.New("unsupported image type")
	ErrImageInvalid     = errors.New("image could not be decoded")
)

// ImageStore saves product images on local disk. PNG and JPEG images wider
// than maxWidth are scaled down keeping their aspect ratio.
type ImageStore struct {
	root       string
	maxSize    int64
	maxWidth   int
	extensions map[string]bool
}

// NewImageStore creates an image store rooted at the configured storage path
func NewImageStore(cfg *config.Config) *ImageStore {
	exts := make(map[string]bool, len(cfg.Upload.AllowedExtensions))
	for _, e := range cfg.Upload.AllowedExtensions {
		exts[strings.ToLower(strings.TrimPrefix(e, "."))] = true
	}
	return &ImageStore{
		root:       cfg.External.Storage.LocalPath,
		maxSize:    cfg.Upload.MaxSize,
		maxWidth:   cfg.Upload.MaxImageWidth,
		extensions: exts,
	}
}

// Save validates and writes an uploaded image, returning the stored filename
func (s *ImageStore) Save(header *multipart.FileHeader) (string, error) {
	if err := s.validate(header); err != nil {
		return "", err
	}

	src, err := header.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open upload: %w", err)
	}
	defer src.Close()

	if err := os.MkdirAll(s.root, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	filename := generateUniqueFilename(header.Filename)
	fullPath := filepath.Join(s.root, filename)

	dst, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}

	err = s.write(dst, src, filepath.Ext(filename))
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(fullPath)
		return "", err
	}

	return filename, nil
}

func (s *ImageStore) write(dst io.Writer, src multipart.File, ext string) error {
	scalable := ext == ".png" || ext == ".jpg" || ext == ".jpeg"
	if s.maxWidth <= 0 || !scalable {
		return copyImage(dst, src)
	}

	cfg, _, err := image.DecodeConfig(src)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrImageInvalid, err)
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to rewind upload: %w", err)
	}
	if cfg.Width <= s.maxWidth {
		return copyImage(dst, src)
	}

	img, _, err := image.Decode(src)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrImageInvalid, err)
	}
	scaled := resize.Resize(uint(s.maxWidth), 0, img, resize.Lanczos3)

	if ext == ".png" {
		err = png.Encode(dst, scaled)
	} else {
		err = jpeg.Encode(dst, scaled, &jpeg.Options{Quality: 85})
	}
	if err != nil {
		return fmt.Errorf("failed to encode image: %w", err)
	}
	return nil
}

func copyImage(dst io.Writer, src io.Reader) error {
	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("failed to save file: %w", err)
	}
	return nil
}

// Delete removes a stored image. Missing files are ignored.
func (s *ImageStore) Delete(filename string) error {
	if filename == "" {
		return nil
	}
	err := os.Remove(filepath.Join(s.root, filepath.Base(filename)))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete image: %w", err)
	}
	return nil
}

func (s *ImageStore) validate(header *multipart.FileHeader) error {
	if s.maxSize > 0 && header.Size > s.maxSize {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrImageTooLarge, header.Size, s.maxSize)
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(header.Filename), "."))
	if !s.extensions[ext] {
		return fmt.Errorf("%w: %q", ErrImageUnsupported, ext)
	}
	return nil
}

func generateUniqueFilename(original string) string {
	ext := strings.ToLower(filepath.Ext(original))
	return fmt.Sprintf("%d_%s%s", time.Now().Unix(), uuid.New().String()[:8], ext)
}
