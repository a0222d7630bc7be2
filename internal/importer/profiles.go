package importer

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// Profile is a named, reusable custom-import mapping.
type Profile struct {
	Name    string        `json:"name" yaml:"name"`
	Options CustomOptions `json:"options" yaml:"options"`
}

// ProfileStore persists import profiles to a YAML file so a mapping set up
// once for an instrument keeps working across runs.
type ProfileStore struct {
	mu   sync.Mutex
	path string
}

func NewProfileStore(path string) *ProfileStore {
	return &ProfileStore{path: path}
}

func (s *ProfileStore) List() ([]Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *ProfileStore) Get(name string) (Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	profiles, err := s.load()
	if err != nil {
		return Profile{}, err
	}
	for _, p := range profiles {
		if p.Name == name {
			return p, nil
		}
	}
	return Profile{}, fmt.Errorf("importer: profile %q not found", name)
}

// Save adds or replaces a profile by name.
func (s *ProfileStore) Save(p Profile) error {
	if p.Name == "" {
		return fmt.Errorf("importer: profile name cannot be empty")
	}
	if _, err := NewCustom(p.Options); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	profiles, err := s.load()
	if err != nil {
		return err
	}
	replaced := false
	for i := range profiles {
		if profiles[i].Name == p.Name {
			profiles[i] = p
			replaced = true
			break
		}
	}
	if !replaced {
		profiles = append(profiles, p)
	}
	sort.SliceStable(profiles, func(i, j int) bool { return profiles[i].Name < profiles[j].Name })
	return s.store(profiles)
}

func (s *ProfileStore) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	profiles, err := s.load()
	if err != nil {
		return err
	}
	kept := profiles[:0]
	for _, p := range profiles {
		if p.Name != name {
			kept = append(kept, p)
		}
	}
	if len(kept) == len(profiles) {
		return fmt.Errorf("importer: profile %q not found", name)
	}
	return s.store(kept)
}

func (s *ProfileStore) load() ([]Profile, error) {
	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var profiles []Profile
	if err := yaml.Unmarshal(raw, &profiles); err != nil {
		return nil, fmt.Errorf("importer: parsing profiles %s: %w", s.path, err)
	}
	return profiles, nil
}

func (s *ProfileStore) store(profiles []Profile) error {
	raw, err := yaml.Marshal(profiles)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(s.path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(s.path, raw, 0o644)
}
