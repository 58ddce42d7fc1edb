package local

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"njcrashes/internal/domain"
	"njcrashes/internal/port"
)

// localStorage keeps objects as files under root/<bucket>/<key>.
type localStorage struct {
	fs   afero.Fs
	root string
}

// NewLocalStorage creates an ObjectStorage rooted at dir on the local disk.
func NewLocalStorage(dir string) (port.ObjectStorage, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("local storage root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("local storage root: %w", err)
	}
	return &localStorage{fs: afero.NewBasePathFs(afero.NewOsFs(), abs), root: abs}, nil
}

// NewFromFs wraps an arbitrary afero filesystem; root is only used to build URLs.
func NewFromFs(fsys afero.Fs, root string) port.ObjectStorage {
	return &localStorage{fs: fsys, root: root}
}

func objectPath(bucket, key string) (string, error) {
	if bucket == "" || key == "" {
		return "", fmt.Errorf("local storage: empty bucket or key")
	}
	p := path.Clean("/" + bucket + "/" + strings.TrimPrefix(key, "/"))
	if !strings.HasPrefix(p, "/"+bucket+"/") {
		return "", fmt.Errorf("local storage: key %q escapes bucket %q", key, bucket)
	}
	return filepath.FromSlash(p), nil
}

func (l *localStorage) Upload(_ context.Context, input port.UploadInput) (*port.UploadOutput, error) {
	p, err := objectPath(input.Bucket, input.Key)
	if err != nil {
		return nil, err
	}
	if err := l.fs.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return nil, fmt.Errorf("local upload: %w", err)
	}
	if err := afero.WriteReader(l.fs, p, input.Body); err != nil {
		return nil, fmt.Errorf("local upload: %w", err)
	}
	return &port.UploadOutput{Location: l.url(p)}, nil
}

func (l *localStorage) Download(_ context.Context, bucket, key string) ([]byte, error) {
	p, err := objectPath(bucket, key)
	if err != nil {
		return nil, err
	}
	data, err := afero.ReadFile(l.fs, p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("local download %s/%s: %w", bucket, key, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("local download: %w", err)
	}
	return data, nil
}

func (l *localStorage) Delete(_ context.Context, bucket, key string) error {
	p, err := objectPath(bucket, key)
	if err != nil {
		return err
	}
	if err := l.fs.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("local delete: %w", err)
	}
	return nil
}

// GetPresignedURL returns a file:// URL; local files do not expire.
func (l *localStorage) GetPresignedURL(_ context.Context, bucket, key string, _ int64) (string, error) {
	p, err := objectPath(bucket, key)
	if err != nil {
		return "", err
	}
	return l.url(p), nil
}

func (l *localStorage) url(p string) string {
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(filepath.Join(l.root, p))}
	return u.String()
}
