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
	"crypto/sha256"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DefaultPollSchedule polls every thirty seconds; NewPollingSource uses
// it when given an empty schedule.
const DefaultPollSchedule = "@every 30s"

// PollingSource wraps another Source, re-Loading it on a cron schedule
// and emitting a reload signal only when the digest of the loaded set
// actually changed. It works over any Source, including ones with no native watch capability (an
// EtcdSource behind a read-only proxy, or a network filesystem where
// inotify events don't propagate).
type PollingSource struct {
	inner    Source
	schedule string
	logger   *zap.Logger

	mu       sync.Mutex
	lastHash [32]byte
	cronRun  *cron.Cron
}

// NewPollingSource wraps inner with a cron schedule. An empty schedule
// uses DefaultPollSchedule.
func NewPollingSource(inner Source, schedule string, logger *zap.Logger) *PollingSource {
	if schedule == "" {
		schedule = DefaultPollSchedule
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PollingSource{inner: inner, schedule: schedule, logger: logger}
}

func (p *PollingSource) Load(ctx context.Context) ([]Entry, error) {
	return p.inner.Load(ctx)
}

func (p *PollingSource) Watch(ctx context.Context) (<-chan struct{}, error) {
	ch := make(chan struct{}, 1)
	c := cron.New()
	p.mu.Lock()
	p.cronRun = c
	p.mu.Unlock()

	_, err := c.AddFunc(p.schedule, func() {
		entries, err := p.inner.Load(ctx)
		if err != nil {
			p.logger.Warn("manifest: poll failed", zap.Error(err))
			return
		}
		hash := digestEntries(entries)
		p.mu.Lock()
		changed := hash != p.lastHash
		p.lastHash = hash
		p.mu.Unlock()
		if changed {
			select {
			case ch <- struct{}{}:
			default:
			}
		}
	})
	if err != nil {
		return nil, err
	}
	c.Start()

	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
		close(ch)
	}()

	return ch, nil
}

func (p *PollingSource) Close() error {
	p.mu.Lock()
	c := p.cronRun
	p.mu.Unlock()
	if c != nil {
		c.Stop()
	}
	return p.inner.Close()
}

func digestEntries(entries []Entry) [32]byte {
	h := sha256.New()
	for _, e := range entries {
		h.Write([]byte(e.Name))
		h.Write([]byte{0})
		h.Write(e.Data)
		h.Write([]byte{0})
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
