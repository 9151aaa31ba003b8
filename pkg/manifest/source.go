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

// Package manifest implements the hot-reload loop that keeps a
// network.Store in sync with an external source of truth, by file, by
// poll, or by a watched key/value store.
package manifest

import "context"

// Entry is one manifest document read from a Source, keyed by its
// logical name (usually the file's base name, or the etcd key).
type Entry struct {
	Name string
	Data []byte
}

// Source abstracts where manifest documents come from. Load returns the
// current full set; Watch returns a channel that fires whenever that set
// may have changed, so the caller can re-Load.
type Source interface {
	Load(ctx context.Context) ([]Entry, error)
	Watch(ctx context.Context) (<-chan struct{}, error)
	Close() error
}
