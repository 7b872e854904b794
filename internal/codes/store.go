// Package codes manages the persisted one-time-code entries and their
// time-based code computation.
package codes

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Code is one stored authenticator entry.
type Code struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Issuer string `json:"issuer,omitempty"`
	Secret string `json:"secret"`
	Digits int    `json:"digits"`
	Period int    `json:"period"`
}

// Current returns the code value valid at the given instant.
func (c Code) Current(at time.Time) (string, error) {
	return Generate(c.Secret, at, c.Digits, c.Period)
}

// Store is the JSON-file backed collection of codes. All methods are safe
// for concurrent use.
type Store struct {
	path string

	mu    sync.RWMutex
	codes []Code
}

// Open reads the store file, creating an empty store if the file does not
// exist yet.
func Open(path string) (*Store, error) {
	s := &Store{path: path}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading code store: %w", err)
	}
	if err := json.Unmarshal(data, &s.codes); err != nil {
		return nil, fmt.Errorf("error unmarshalling code store: %w", err)
	}
	return s, nil
}

// List returns a snapshot of the stored codes.
func (s *Store) List() []Code {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Code(nil), s.codes...)
}

// Add validates the entry, assigns it an id and persists the store.
func (s *Store) Add(code Code) (Code, error) {
	if code.Name == "" {
		return Code{}, fmt.Errorf("code entry needs a name")
	}
	if _, err := decodeSecret(code.Secret); err != nil {
		return Code{}, err
	}
	if code.Digits == 0 {
		code.Digits = 6
	}
	if code.Period == 0 {
		code.Period = 30
	}
	code.ID = uuid.New().String()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes = append(s.codes, code)
	if err := s.save(); err != nil {
		s.codes = s.codes[:len(s.codes)-1]
		return Code{}, err
	}
	return code, nil
}

// AddURI parses an otpauth URI and adds the resulting entry. Duplicate
// scans of the same QR code are treated as success without adding a second
// entry.
func (s *Store) AddURI(raw string) (Code, bool, error) {
	code, err := ParseURI(raw)
	if err != nil {
		return Code{}, false, err
	}

	s.mu.RLock()
	for _, existing := range s.codes {
		if existing.Secret == code.Secret && existing.Name == code.Name {
			s.mu.RUnlock()
			return existing, false, nil
		}
	}
	s.mu.RUnlock()

	added, err := s.Add(code)
	if err != nil {
		return Code{}, false, err
	}
	return added, true, nil
}

// Remove deletes the entry with the given id and persists the store.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, code := range s.codes {
		if code.ID == id {
			backup := s.codes
			s.codes = append(append([]Code(nil), s.codes[:i]...), s.codes[i+1:]...)
			if err := s.save(); err != nil {
				s.codes = backup
				return err
			}
			return nil
		}
	}
	return fmt.Errorf("no code with id %s", id)
}

// save writes the store file. Caller holds the write lock.
func (s *Store) save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("error creating store directory: %w", err)
	}
	data, err := json.MarshalIndent(s.codes, "", "  ")
	if err != nil {
		return fmt.Errorf("error marshalling code store: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("error writing code store: %w", err)
	}
	return nil
}
