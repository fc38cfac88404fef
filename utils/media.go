package utils

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// ErrNotImage is returned when an upload is not an accepted image type.
var ErrNotImage = errors.New("upload is not an accepted image")

// imageTypes maps the accepted image types to the extension files are stored with.
// Script-capable formats such as SVG are left out since /media/ serves from the app's origin.
var imageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"image/bmp":  ".bmp",
}

// DetectImage sniffs r and returns the stored extension for an accepted image type.
func DetectImage(r io.Reader) (string, bool) {
	mt, err := mimetype.DetectReader(r)
	if err != nil {
		return "", false
	}
	ext, ok := imageTypes[mt.String()]
	return ext, ok
}

// ImageStorage persists uploaded post images and maps stored names to public URLs.
type ImageStorage interface {
	Save(ctx context.Context, file *multipart.FileHeader) (string, error)
	Delete(ctx context.Context, name string) error
	URL(name string) string
}

// LocalStorage keeps images below Root on local disk and serves them under URLPrefix.
type LocalStorage struct {
	Root      string
	URLPrefix string
}

// NewLocalStorage returns a LocalStorage rooted at root.
func NewLocalStorage(root, urlPrefix string) *LocalStorage {
	return &LocalStorage{Root: root, URLPrefix: urlPrefix}
}

// Save writes file as posts/<uuid><ext> and returns that relative name. The
// extension follows the sniffed content; the client's filename is ignored.
func (s *LocalStorage) Save(_ context.Context, file *multipart.FileHeader) (string, error) {
	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	ext, ok := DetectImage(src)
	if !ok {
		return "", ErrNotImage
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewind upload: %w", err)
	}

	name := path.Join("posts", uuid.NewString()+ext)
	dstPath := filepath.Join(s.Root, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(dstPath), 0o755); err != nil {
		return "", fmt.Errorf("create media dir: %w", err)
	}

	out, err := os.Create(dstPath)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", dstPath, err)
	}
	if _, err := io.Copy(out, src); err != nil {
		_ = out.Close()
		_ = os.Remove(dstPath)
		return "", fmt.Errorf("write %s: %w", dstPath, err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dstPath)
		return "", err
	}
	return name, nil
}

func (s *LocalStorage) Delete(_ context.Context, name string) error {
	if name == "" {
		return nil
	}
	err := os.Remove(filepath.Join(s.Root, filepath.FromSlash(path.Clean("/"+name))))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// URL returns the public address of a stored image, or "" for none.
func (s *LocalStorage) URL(name string) string {
	if name == "" {
		return ""
	}
	return strings.TrimSuffix(s.URLPrefix, "/") + "/" + name
}
