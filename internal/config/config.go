// Package config loads the coordinator's Config from a
// YAML file and watches it for edits, feeding the "Config changed"
// transition without restarting any session.
package config

import (
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/naripok/complete-coordinator/internal/logger"
	"github.com/naripok/complete-coordinator/internal/types"
)

// Store holds the live Config and lets callers read it without racing
// a concurrent reload.
type Store struct {
	mu   sync.RWMutex
	cfg  types.Config
	path string
}

// Load reads path (if non-empty and it exists) over Default().
func Load(path string) (*Store, error) {
	s := &Store{cfg: types.Default(), path: path}
	if path == "" {
		return s, nil
	}
	if err := s.reload(); err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, err
	}
	return s, nil
}

func (s *Store) reload() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}
	cfg := types.Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return err
	}
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
	return nil
}

// Get returns a copy of the current config.
func (s *Store) Get() types.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Update merges patch into the live config in place (no session
// restart).
func (s *Store) Update(patch func(*types.Config)) {
	s.mu.Lock()
	patch(&s.cfg)
	s.mu.Unlock()
}

// Watch watches the backing file for writes and reloads on change,
// invoking onChange after each successful reload. The returned func
// stops the watcher; it runs until then, logging watcher errors and
// continuing.
func (s *Store) Watch(onChange func(types.Config)) (func() error, error) {
	if s.path == "" {
		return func() error { return nil }, nil
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(s.path); err != nil {
		w.Close()
		return nil, err
	}

	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if err := s.reload(); err != nil {
					logger.Warn("config reload failed: %v", err)
					continue
				}
				logger.Info("config reloaded from %s", s.path)
				if onChange != nil {
					onChange(s.Get())
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Warn("config watcher error: %v", err)
			}
		}
	}()

	return w.Close, nil
}
