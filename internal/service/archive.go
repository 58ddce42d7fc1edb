package service

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path"
	"strings"

	"njcrashes/internal/domain"
)

var zipMagic = []byte("PK\x03\x04")

// isZip reports whether data starts with a ZIP local file header.
func isZip(data []byte) bool {
	return bytes.HasPrefix(data, zipMagic)
}

// extractText returns the contents of the archive member named want, or of the
// only .txt member when want is empty or absent.
func extractText(data []byte, want string) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("opening zip: %w", err)
	}
	var match, onlyText *zip.File
	texts := 0
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		base := path.Base(f.Name)
		if want != "" && strings.EqualFold(base, want) {
			match = f
			break
		}
		if strings.EqualFold(path.Ext(base), ".txt") {
			onlyText = f
			texts++
		}
	}
	if match == nil {
		if texts != 1 {
			return nil, fmt.Errorf("%w: zip has %d text members and none named %q", domain.ErrNotFound, texts, want)
		}
		match = onlyText
	}

	rc, err := match.Open()
	if err != nil {
		return nil, fmt.Errorf("opening zip member %s: %w", match.Name, err)
	}
	defer rc.Close()
	out, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("reading zip member %s: %w", match.Name, err)
	}
	return out, nil
}
