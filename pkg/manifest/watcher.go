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
	"sync"

	"go.uber.org/zap"

	"github.com/agentmesh/agentmesh/pkg/network"
	"github.com/agentmesh/agentmesh/pkg/network/validate"
)

// Watcher keeps a network.Store's installed set in lock-step with a
// Source, performing
// an initial load before returning from Start and then reacting to every
// subsequent Watch signal. A reload that fails validation leaves the
// store's previous generation untouched and logs the rejection — a bad
// manifest edit never takes an already-running network down.
type Watcher struct {
	source  Source
	store   *network.Store
	opts    validate.Options
	logger  *zap.Logger
	loadOpt network.LoadOptions

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds a Watcher over source, publishing into store.
func New(source Source, store *network.Store, opts validate.Options, logger *zap.Logger) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		source: source,
		store:  store,
		opts:   opts,
		logger: logger,
		// Individual bad manifests are skipped rather than failing the
		// whole reload, matching Load's per-entry-skip mode: a typo in
		// one registry file should not take every other network down.
		loadOpt: network.LoadOptions{SkipInvalidAgents: true},
	}
}

// Start performs the first load synchronously (so Start's caller knows
// the store is populated before serving traffic) then begins watching
// for further changes in the background.
func (w *Watcher) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	if err := w.reload(ctx); err != nil {
		w.logger.Error("manifest: initial load failed", zap.Error(err))
	}

	ch, err := w.source.Watch(ctx)
	if err != nil {
		cancel()
		return err
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for range ch {
			if err := w.reload(ctx); err != nil {
				w.logger.Error("manifest: reload failed", zap.Error(err))
			}
		}
	}()
	return nil
}

// Stop cancels the watch loop and waits for it to exit.
func (w *Watcher) Stop() error {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
	return w.source.Close()
}

func (w *Watcher) reload(ctx context.Context) error {
	entries, err := w.source.Load(ctx)
	if err != nil {
		return err
	}

	networks := make([]*network.AgentNetwork, 0, len(entries))
	for _, e := range entries {
		n, err := network.Load(e.Data, w.loadOpt)
		if err != nil {
			w.logger.Warn("manifest: skipping invalid network", zap.String("entry", e.Name), zap.Error(err))
			continue
		}
		findings := validate.Run(n, validate.Default(w.opts))
		if validate.HasErrors(findings) {
			w.logger.Warn("manifest: network failed validation",
				zap.String("network", n.Name), zap.Any("findings", findings))
			continue
		}
		for _, f := range findings {
			w.logger.Info("manifest: validation warning", zap.String("network", n.Name), zap.String("finding", f.String()))
		}
		networks = append(networks, n)
	}

	w.store.ReplaceAll(networks)
	w.logger.Info("manifest: reloaded", zap.Int("network_count", len(networks)))
	return nil
}
