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

package manifest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// FileSource reads every *.hocon/*.yaml/*.yml file in a directory and
// watches the directory with fsnotify for changes, debouncing rapid
// writes the way editors and atomic-rename deploy tools produce them.
type FileSource struct {
	dir    string
	logger *zap.Logger

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	closed  bool
}

var manifestExtensions = map[string]bool{
	".hocon": true,
	".yaml":  true,
	".yml":   true,
}

// NewFileSource returns a Source reading every manifest file directly
// under dir (non-recursive, matching a flat registry directory).
func NewFileSource(dir string, logger *zap.Logger) (*FileSource, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("manifest: resolve dir: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileSource{dir: abs, logger: logger}, nil
}

func (s *FileSource) Load(ctx context.Context) ([]Entry, error) {
	files, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("manifest: read dir %s: %w", s.dir, err)
	}
	var names []string
	for _, f := range files {
		if f.IsDir() || !manifestExtensions[strings.ToLower(filepath.Ext(f.Name()))] {
			continue
		}
		names = append(names, f.Name())
	}
	sort.Strings(names)

	entries := make([]Entry, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(s.dir, name))
		if err != nil {
			s.logger.Warn("manifest: skipping unreadable file", zap.String("file", name), zap.Error(err))
			continue
		}
		entries = append(entries, Entry{Name: strings.TrimSuffix(name, filepath.Ext(name)), Data: data})
	}
	return entries, nil
}

// Watch mirrors the source's FileProvider.watchLoop: watch the directory
// (not individual files, since editors rename-over-write) and debounce
// rapid successive events into a single reload signal.
func (s *FileSource) Watch(ctx context.Context) (<-chan struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, fmt.Errorf("manifest: file source is closed")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("manifest: create watcher: %w", err)
	}
	if err := watcher.Add(s.dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("manifest: watch dir %s: %w", s.dir, err)
	}
	s.watcher = watcher

	ch := make(chan struct{}, 1)
	go s.watchLoop(ctx, watcher, ch)

	s.logger.Info("manifest: watching directory", zap.String("dir", s.dir))
	return ch, nil
}

func (s *FileSource) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, ch chan<- struct{}) {
	defer close(ch)
	defer watcher.Close()

	var debounce *time.Timer
	const debounceDelay = 150 * time.Millisecond

	signal := func() {
		if debounce != nil {
			debounce.Stop()
		}
		debounce = time.AfterFunc(debounceDelay, func() {
			select {
			case ch <- struct{}{}:
			default:
			}
		})
	}

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			ext := strings.ToLower(filepath.Ext(event.Name))
			if !manifestExtensions[ext] {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				signal()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.logger.Error("manifest: watcher error", zap.Error(err))
		}
	}
}

func (s *FileSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.watcher != nil {
		err := s.watcher.Close()
		s.watcher = nil
		return err
	}
	return nil
}
