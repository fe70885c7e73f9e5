// Package media normalises uploaded images and stores them under the uploads directory.
package media

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/png"
	"io"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/fjod/go_restaurant/internal/domain"
	"github.com/google/uuid"
)

const (
	maxDimension = 1200
	jpegQuality  = 85
	// URLPrefix is where stored files are served from.
	URLPrefix = "/uploads/"
)

var ErrTooLarge = errors.New("upload exceeds size limit")

type Store struct {
	dir     string
	maxSize int64
}

func NewStore(dir string, maxSize int64) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads dir: %w", err)
	}
	return &Store{dir: dir, maxSize: maxSize}, nil
}

func (s *Store) Dir() string {
	return s.dir
}

// SaveImage decodes r, fits it within 1200x1200 and writes it as JPEG.
// The returned URL is relative to the server root. field names the form field for validation errors.
func (s *Store) SaveImage(r io.Reader, field string) (string, error) {
	limited := io.LimitReader(r, s.maxSize+1)
	counter := &countingReader{r: limited}

	img, err := imaging.Decode(counter, imaging.AutoOrientation(true))
	if counter.n > s.maxSize {
		return "", domain.NewValidationError(field, ErrTooLarge.Error())
	}
	if err != nil {
		return "", domain.NewValidationError(field, "file is not a supported image")
	}

	b := img.Bounds()
	if b.Dx() > maxDimension || b.Dy() > maxDimension {
		img = imaging.Fit(img, maxDimension, maxDimension, imaging.Lanczos)
	}

	name := uuid.NewString() + ".jpg"
	if err := s.write(name, img); err != nil {
		return "", err
	}
	return URLPrefix + name, nil
}

func (s *Store) write(name string, img image.Image) error {
	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return fmt.Errorf("create upload: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := imaging.Encode(tmp, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		tmp.Close()
		return fmt.Errorf("encode upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close upload: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		return fmt.Errorf("store upload: %w", err)
	}
	return nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
