package ps

import (
	"encoding/json"
	"fmt"

	"github.com/jmolero/ComandaDB/core"
)

// LoadCollection returns the decoded records stored under name. A missing
// collection or an empty name reads as an empty collection.
func (s *Store) LoadCollection(name string) ([]core.Record, error) {
	if err := s.ensureInitialized(); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.loadLocked(name)
}

func (s *Store) loadLocked(name string) ([]core.Record, error) {
	data, exists := s.readKey(name)
	if !exists {
		return nil, nil
	}

	var records []core.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to unmarshal collection %s: %w", name, err)
	}

	return records, nil
}

// SaveCollection replaces the collection contents in a single commit.
func (s *Store) SaveCollection(name string, records []core.Record, identity core.Identity, message string) (Transaction, error) {
	if err := s.ensureInitialized(); err != nil {
		return Transaction{}, err
	}
	if name == "" {
		return Transaction{}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.saveLocked(name, records, identity, message)
}

func (s *Store) saveLocked(name string, records []core.Record, identity core.Identity, message string) (Transaction, error) {
	if records == nil {
		records = []core.Record{}
	}

	data, err := json.Marshal(records)
	if err != nil {
		return Transaction{}, fmt.Errorf("failed to marshal collection %s: %w", name, err)
	}

	return s.writeKeys(map[string][]byte{name: data}, identity, message)
}

// Mutate runs a read-modify-write cycle on one collection under the write
// lock: fn receives the current records and returns the replacement set,
// which is committed atomically. An empty collection name still runs fn
// against an empty set but commits nothing.
func (s *Store) Mutate(name string, identity core.Identity, message string, fn func(records []core.Record) ([]core.Record, error)) (Transaction, error) {
	if err := s.ensureInitialized(); err != nil {
		return Transaction{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var records []core.Record
	var err error
	if name != "" {
		records, err = s.loadLocked(name)
		if err != nil {
			return Transaction{}, err
		}
	}

	updated, err := fn(records)
	if err != nil {
		return Transaction{}, err
	}

	if name == "" {
		return Transaction{}, nil
	}

	return s.saveLocked(name, updated, identity, message)
}

// ImportCollections replaces the named collections in a single commit and
// marks the store seeded. Used when loading a snapshot.
func (s *Store) ImportCollections(collections map[string][]core.Record, identity core.Identity, message string) (Transaction, error) {
	if err := s.ensureInitialized(); err != nil {
		return Transaction{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	updates := map[string][]byte{
		initializedKey: []byte("true"),
	}

	for name, records := range collections {
		if name == "" || name == initializedKey {
			continue
		}
		if records == nil {
			records = []core.Record{}
		}
		data, err := json.Marshal(records)
		if err != nil {
			return Transaction{}, fmt.Errorf("failed to marshal collection %s: %w", name, err)
		}
		updates[name] = data
	}

	return s.writeKeys(updates, identity, message)
}

// Collections lists the stored collection names, excluding bookkeeping keys.
func (s *Store) Collections() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var names []string
	for _, key := range s.listKeys() {
		if key == initializedKey {
			continue
		}
		names = append(names, key)
	}

	return names
}
