// Copyright 2025 agentmesh authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package network

import (
	"fmt"
	"sync/atomic"
)

// snapshot is the immutable value swapped atomically by Store: the full
// set of networks currently installed, keyed by name.
type snapshot struct {
	networks map[string]*AgentNetwork
}

// Store is the hot-reloadable collection of AgentNetworks. Reads never
// block on writes: Get/List take a single atomic load of the current
// snapshot.
type Store struct {
	current atomic.Pointer[snapshot]
}

// NewStore returns an empty Store.
func NewStore() *Store {
	s := &Store{}
	s.current.Store(&snapshot{networks: map[string]*AgentNetwork{}})
	return s
}

// Get returns the named network, or false if it is not installed.
func (s *Store) Get(name string) (*AgentNetwork, bool) {
	snap := s.current.Load()
	n, ok := snap.networks[name]
	return n, ok
}

// List returns every installed network name, sorted.
func (s *Store) List() []string {
	snap := s.current.Load()
	names := make([]string, 0, len(snap.networks))
	for name := range snap.networks {
		names = append(names, name)
	}
	sortStrings(names)
	return names
}

// Install adds or replaces a single network by name, copy-on-write over
// the current snapshot so in-flight Get/List calls are unaffected.
func (s *Store) Install(n *AgentNetwork) {
	for {
		old := s.current.Load()
		next := &snapshot{networks: make(map[string]*AgentNetwork, len(old.networks)+1)}
		for k, v := range old.networks {
			next.networks[k] = v
		}
		next.networks[n.Name] = n
		if s.current.CompareAndSwap(old, next) {
			return
		}
	}
}

// Remove drops a network by name. Returns false if it was not present.
func (s *Store) Remove(name string) bool {
	for {
		old := s.current.Load()
		if _, ok := old.networks[name]; !ok {
			return false
		}
		next := &snapshot{networks: make(map[string]*AgentNetwork, len(old.networks))}
		for k, v := range old.networks {
			if k != name {
				next.networks[k] = v
			}
		}
		if s.current.CompareAndSwap(old, next) {
			return true
		}
	}
}

// ReplaceAll atomically swaps the entire installed set, used when a
// manifest reload produces a complete new generation: the whole set
// flips together, never partially.
func (s *Store) ReplaceAll(networks []*AgentNetwork) {
	next := &snapshot{networks: make(map[string]*AgentNetwork, len(networks))}
	for _, n := range networks {
		next.networks[n.Name] = n
	}
	s.current.Store(next)
}

// Provider is the indirection a long-lived consumer (an HTTP handler, a
// session) holds instead of a *Store directly, so a ManifestWatcher can
// swap the backing store's contents without consumers re-resolving
// anything.
type Provider interface {
	Get(name string) (*AgentNetwork, bool)
	List() []string
}

var _ Provider = (*Store)(nil)

// ErrNotFound is returned by lookups against a name the Provider has no
// network for.
type ErrNotFound struct{ Name string }

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("network %q not found", e.Name)
}

// MustGet is a convenience wrapper returning ErrNotFound instead of a bool.
func MustGet(p Provider, name string) (*AgentNetwork, error) {
	n, ok := p.Get(name)
	if !ok {
		return nil, &ErrNotFound{Name: name}
	}
	return n, nil
}
