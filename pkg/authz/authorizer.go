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

// Package authz implements the Authorizer: actor x action x resource
// decisions, a list/query primitive over agent resources, and a
// grant/revoke pair for writing facts. A NullAuthorizer
// short-circuits every decision to allowed, for deployments that never
// configure a backend.
package authz

import "context"

// Resource identifies one object an authorization decision is made
// about, e.g. {Type: "AgentNetwork", ID: "hello_world"}.
type Resource struct {
	Type string
	ID   string
}

// Authorizer is the three-primitive decision interface. Allow takes the
// actor id plus whatever claims/metadata the streaming-session boundary
// extracted from the caller's credentials.
type Authorizer interface {
	// Allow answers whether actorID may perform action on resource,
	// given the metadata extracted from the caller's credentials.
	Allow(ctx context.Context, actorID string, metadata map[string]any, action, resource string) (bool, error)

	// List returns the ids of every resourceType object actorID has
	// relation to.
	List(ctx context.Context, actorID, relation, resourceType string) ([]string, error)

	// Grant records that actorID has relation to resource. The returned
	// bool is false when the fact already existed.
	Grant(ctx context.Context, actorID, relation string, resource Resource) (bool, error)

	// Revoke removes the fact that actorID has relation to resource. The
	// returned bool is false when the fact did not exist.
	Revoke(ctx context.Context, actorID, relation string, resource Resource) (bool, error)
}

// NullAuthorizer accepts every decision and reports every actor as
// related to every resource it is asked to List, so a deployment with no
// backend still satisfies a list_agents() call against every known
// agent.
type NullAuthorizer struct {
	// KnownResources seeds the List response, since a NullAuthorizer has
	// no fact store of its own to enumerate.
	KnownResources map[string][]string
}

func NewNullAuthorizer() *NullAuthorizer {
	return &NullAuthorizer{KnownResources: map[string][]string{}}
}

func (n *NullAuthorizer) Allow(ctx context.Context, actorID string, metadata map[string]any, action, resource string) (bool, error) {
	return true, nil
}

func (n *NullAuthorizer) List(ctx context.Context, actorID, relation, resourceType string) ([]string, error) {
	return append([]string(nil), n.KnownResources[resourceType]...), nil
}

func (n *NullAuthorizer) Grant(ctx context.Context, actorID, relation string, resource Resource) (bool, error) {
	ids := n.KnownResources[resource.Type]
	for _, id := range ids {
		if id == resource.ID {
			return false, nil
		}
	}
	n.KnownResources[resource.Type] = append(ids, resource.ID)
	return true, nil
}

func (n *NullAuthorizer) Revoke(ctx context.Context, actorID, relation string, resource Resource) (bool, error) {
	ids := n.KnownResources[resource.Type]
	for i, id := range ids {
		if id == resource.ID {
			n.KnownResources[resource.Type] = append(ids[:i], ids[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}
