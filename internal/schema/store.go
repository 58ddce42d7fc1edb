package schema

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"

	"njcrashes/internal/domain"
)

//go:embed layouts
var layoutFS embed.FS

// DefaultLayouts returns the embedded descriptors, laid out as <era>/<Label>.json.
func DefaultLayouts() fs.FS {
	sub, err := fs.Sub(layoutFS, "layouts")
	if err != nil {
		panic(err)
	}
	return sub
}

// Store loads base schemas from descriptor files in fsys. Lookups go through
// the Cache passed to NewStore.
type Store struct {
	fsys  fs.FS
	cache *Cache
}

// NewStore creates a Store over fsys. A nil cache gets a private one.
func NewStore(fsys fs.FS, cache *Cache) *Store {
	if cache == nil {
		cache = NewCache()
	}
	return &Store{fsys: fsys, cache: cache}
}

// Load returns the base schema for (kind, era).
func (s *Store) Load(kind domain.RecordKind, era domain.Era) (*domain.Schema, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %d", domain.ErrUnknownRecordKind, int(kind))
	}
	return s.cache.GetOrLoad(kind, era, func() (*domain.Schema, error) {
		return s.read(kind, era)
	})
}

// ForYear returns the base schema of the era containing year.
func (s *Store) ForYear(kind domain.RecordKind, year int) (*domain.Schema, error) {
	era, err := domain.EraForYear(year)
	if err != nil {
		return nil, err
	}
	return s.Load(kind, era)
}

func (s *Store) read(kind domain.RecordKind, era domain.Era) (*domain.Schema, error) {
	for _, ext := range DescriptorExtensions {
		name := path.Join(string(era), kind.Label()+ext)
		data, err := fs.ReadFile(s.fsys, name)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("reading descriptor %s: %w", name, err)
		}
		fields, err := ParseDescriptor(name, data)
		if err != nil {
			return nil, fmt.Errorf("parsing descriptor %s: %w", name, err)
		}
		return domain.NewSchema(kind, era, fields)
	}
	return nil, fmt.Errorf("%w: %s/%s", domain.ErrSchemaNotFound, era, kind.Label())
}
