package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
)

// ErrNotFound is returned when no profile exists for the requested identity.
var ErrNotFound = errors.New("profile not found")

// Store is the profile persistence collaborator. The matching engine only
// reads from it; onboarding writes through Upsert.
type Store interface {
	// List returns every completed profile.
	List(ctx context.Context) ([]*Profile, error)
	Get(ctx context.Context, id string) (*Profile, error)
	// Upsert writes a complete or partial profile keyed by its id.
	Upsert(ctx context.Context, p *Profile) error
	Close() error
}

// Store drivers.
const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
)

// Open returns the store for the given driver.
func Open(driver, path string) (Store, error) {
	var (
		store Store
		err   error
	)
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", DriverFile:
		store, err = NewFileStore(path)
	case DriverSQLite:
		store, err = NewSQLiteStore(path)
	default:
		return nil, fmt.Errorf("unsupported profile store driver: %s", driver)
	}
	if err != nil {
		return nil, err
	}
	return store, nil
}

// FileStore keeps profiles in a JSON array on disk.
type FileStore struct {
	path string

	mu       sync.RWMutex
	profiles []*Profile
}

// NewFileStore loads the profiles stored at path. A missing file is treated as
// an empty store and created on the first Upsert.
func NewFileStore(path string) (*FileStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("profiles file path is required")
	}

	profiles, err := ReadFile(path)
	if err != nil {
		return nil, err
	}

	return &FileStore{path: path, profiles: profiles}, nil
}

// ReadFile decodes a JSON array of profiles. A missing file yields no profiles.
func ReadFile(path string) ([]*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading profiles file %q: %w", path, err)
	}

	if strings.TrimSpace(string(data)) == "" {
		return nil, nil
	}

	var profiles []*Profile
	if err := json.Unmarshal(data, &profiles); err != nil {
		return nil, fmt.Errorf("decoding profiles file %q: %w", path, err)
	}

	return profiles, nil
}

func (s *FileStore) List(_ context.Context) ([]*Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*Profile, 0, len(s.profiles))
	for _, p := range s.profiles {
		if p.Eligible() {
			result = append(result, p)
		}
	}
	return result, nil
}

func (s *FileStore) Get(_ context.Context, id string) (*Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.profiles {
		if p != nil && p.ID == id {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
}

func (s *FileStore) Upsert(_ context.Context, p *Profile) error {
	if p == nil || strings.TrimSpace(p.ID) == "" {
		return errors.New("profile id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	replaced := false
	for idx, existing := range s.profiles {
		if existing != nil && existing.ID == p.ID {
			s.profiles[idx] = existing.Merge(p)
			replaced = true
			break
		}
	}
	if !replaced {
		s.profiles = append(s.profiles, p)
	}

	return s.flush()
}

func (s *FileStore) flush() error {
	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("opening profiles file %q: %w", s.path, err)
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s.profiles); err != nil {
		return fmt.Errorf("writing profiles file %q: %w", s.path, err)
	}
	return nil
}

func (s *FileStore) Close() error { return nil }
