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
	"strings"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
)

// EtcdSource reads every key under a prefix as one manifest Entry, named
// by the key's suffix after the prefix. It is the alternate Source for
// operators running a centralized registry instead of a shared
// filesystem: the key prefix plays the role a registry directory plays
// for FileSource.
type EtcdSource struct {
	client  *clientv3.Client
	prefix  string
	owned   bool
}

// EtcdConfig mirrors the fields the source's integration tests exercise.
type EtcdConfig struct {
	Endpoints   []string
	DialTimeout time.Duration
	Prefix      string
}

// NewEtcdSource dials an etcd cluster and returns a Source over cfg.Prefix.
func NewEtcdSource(cfg EtcdConfig) (*EtcdSource, error) {
	dialTimeout := cfg.DialTimeout
	if dialTimeout == 0 {
		dialTimeout = 5 * time.Second
	}
	client, err := clientv3.New(clientv3.Config{
		Endpoints:   cfg.Endpoints,
		DialTimeout: dialTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("manifest: dial etcd: %w", err)
	}
	return &EtcdSource{client: client, prefix: cfg.Prefix, owned: true}, nil
}

// NewEtcdSourceFromClient wraps a pre-constructed client, transferring no
// ownership: Close will not close the client.
func NewEtcdSourceFromClient(client *clientv3.Client, prefix string) *EtcdSource {
	return &EtcdSource{client: client, prefix: prefix}
}

func (s *EtcdSource) Load(ctx context.Context) ([]Entry, error) {
	resp, err := s.client.Get(ctx, s.prefix, clientv3.WithPrefix())
	if err != nil {
		return nil, fmt.Errorf("manifest: etcd get prefix %s: %w", s.prefix, err)
	}
	entries := make([]Entry, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		name := strings.TrimPrefix(string(kv.Key), s.prefix)
		name = strings.TrimPrefix(name, "/")
		entries = append(entries, Entry{Name: name, Data: kv.Value})
	}
	return entries, nil
}

func (s *EtcdSource) Watch(ctx context.Context) (<-chan struct{}, error) {
	ch := make(chan struct{}, 1)
	watchCh := s.client.Watch(ctx, s.prefix, clientv3.WithPrefix())
	go func() {
		defer close(ch)
		for resp := range watchCh {
			if resp.Err() != nil {
				continue
			}
			if len(resp.Events) == 0 {
				continue
			}
			select {
			case ch <- struct{}{}:
			default:
			}
		}
	}()
	return ch, nil
}

func (s *EtcdSource) Close() error {
	if s.owned {
		return s.client.Close()
	}
	return nil
}
