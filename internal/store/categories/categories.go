// Package categories implements the durable category vocabulary: the
// predefined set baked into the binary merged with dynamically created
// categories persisted as a single JSON document.
package categories

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"

	"insitegent/internal/store"
)

// Store is the file-backed category store. Writers are serialized with a
// mutex around the whole read-merge-write cycle so concurrent runs that
// invent the same category cannot lose each other's phrases.
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore returns a Store persisting dynamic categories at path.
// The file is created lazily on first write; absence reads as empty.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// All returns the predefined categories merged with the persisted dynamic
// ones. Dynamic phrases are appended to a same-named predefined entry
// (exact-string duplicates skipped); predefined phrases are always retained.
func (s *Store) All(ctx context.Context) map[string][]string {
	s.mu.Lock()
	dynamic := s.loadDynamic()
	s.mu.Unlock()

	return mergeVocabulary(Predefined(), dynamic)
}

// AddDynamic registers name as a dynamic category seeded with phrases, or
// appends the phrases an existing entry does not already hold. The whole
// updated dynamic set is written back synchronously. A write failure is
// logged but the call still reports success: the category is usable in
// memory for the remainder of the run.
func (s *Store) AddDynamic(ctx context.Context, name string, phrases []string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		log.Warn("ignoring dynamic category with empty name")
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dynamic := s.loadDynamic()
	existing, ok := dynamic[name]
	if ok {
		dynamic[name] = appendMissing(existing, phrases)
	} else {
		dynamic[name] = appendMissing(nil, phrases)
		log.Infof("created new dynamic category: %s", name)
	}

	if err := s.saveDynamic(dynamic); err != nil {
		log.WithFields(log.Fields{
			"category": name,
			"path":     s.path,
		}).Errorf("failed to persist dynamic categories: %v", err)
	}
	return true
}

// Exists reports whether name (after trimming) is in the merged vocabulary.
func (s *Store) Exists(ctx context.Context, name string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	_, ok := s.All(ctx)[name]
	return ok
}

// loadDynamic reads the persisted dynamic set. Any read or parse failure
// degrades to an empty set so the run proceeds on predefined categories.
// Callers must hold s.mu.
func (s *Store) loadDynamic() map[string][]string {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warnf("failed to read dynamic categories from %s: %v", s.path, err)
		}
		return map[string][]string{}
	}

	var dynamic map[string][]string
	if err := json.Unmarshal(data, &dynamic); err != nil {
		log.Warnf("malformed dynamic categories file %s, treating as empty: %v", s.path, err)
		return map[string][]string{}
	}
	if dynamic == nil {
		return map[string][]string{}
	}
	return dynamic
}

// saveDynamic writes the whole dynamic set back as one document, via a
// temp file and rename so readers never observe a partial write.
// Callers must hold s.mu.
func (s *Store) saveDynamic(dynamic map[string][]string) error {
	data, err := json.MarshalIndent(dynamic, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal dynamic categories: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create categories directory '%s': %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".categories-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp categories file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp categories file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp categories file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace categories file: %w", err)
	}

	log.Debugf("saved %d dynamic categories to %s", len(dynamic), s.path)
	return nil
}

func mergeVocabulary(base, overlay map[string][]string) map[string][]string {
	for name, phrases := range overlay {
		if existing, ok := base[name]; ok {
			base[name] = appendMissing(existing, phrases)
		} else {
			base[name] = appendMissing(nil, phrases)
		}
	}
	return base
}

// appendMissing appends the phrases of extra that existing does not already
// contain, preserving order and skipping empties.
func appendMissing(existing, extra []string) []string {
	seen := make(map[string]struct{}, len(existing))
	out := append([]string(nil), existing...)
	for _, p := range existing {
		seen[p] = struct{}{}
	}
	for _, p := range extra {
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

var _ store.CategoryStore = (*Store)(nil)
