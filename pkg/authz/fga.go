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

package authz

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/openfga/go-sdk/client"
	"github.com/openfga/go-sdk/credentials"
)

// FGABackend is a production Authorizer backed by OpenFGA: actor and
// resource are flattened to OpenFGA's "type:id" tuple convention,
// actorType/resourceType default to "User" and the resource's Type
// field respectively.
type FGABackend struct {
	client *client.OpenFgaClient

	// StoreName is looked up (or created) lazily on first use, so
	// construction never talks to the server: store initialization is
	// idempotent and happens on first actual call.
	StoreName string

	mu          sync.Mutex
	initialized bool
}

// FGAConfig configures a new FGABackend. APIURL and APIToken mirror the
// FGA_API_URL / FGA_API_TOKEN environment variables the original
// implementation reads.
type FGAConfig struct {
	APIURL    string
	APIToken  string
	StoreName string
}

// NewFGABackend builds a backend bound to apiURL; the store itself is
// not created or looked up until the first call that needs it.
func NewFGABackend(cfg FGAConfig) (*FGABackend, error) {
	if cfg.StoreName == "" {
		cfg.StoreName = "default"
	}

	clientCfg := &client.ClientConfiguration{ApiUrl: cfg.APIURL}
	if cfg.APIToken != "" {
		clientCfg.Credentials = &credentials.Credentials{
			Method: credentials.CredentialsMethodApiToken,
			Config: &credentials.Config{ApiToken: cfg.APIToken},
		}
	}

	fgaClient, err := client.NewSdkClient(clientCfg)
	if err != nil {
		return nil, fmt.Errorf("authz: build OpenFGA client: %w", err)
	}

	return &FGABackend{client: fgaClient, StoreName: cfg.StoreName}, nil
}

// ensureStore finds or creates StoreName and binds the client to it.
// Idempotent: once initialized, subsequent calls are no-ops.
func (b *FGABackend) ensureStore(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.initialized {
		return nil
	}

	stores, err := b.client.ListStores(ctx).Execute()
	if err != nil {
		return fmt.Errorf("authz: list OpenFGA stores: %w", err)
	}

	var storeID string
	for _, s := range stores.Stores {
		if s.Name == b.StoreName {
			storeID = s.Id
			break
		}
	}
	if storeID == "" {
		created, err := b.client.CreateStore(ctx).Body(client.ClientCreateStoreRequest{Name: b.StoreName}).Execute()
		if err != nil {
			return fmt.Errorf("authz: create OpenFGA store %q: %w", b.StoreName, err)
		}
		storeID = created.Id
	}

	if err := b.client.SetStoreId(storeID); err != nil {
		return fmt.Errorf("authz: bind OpenFGA store id: %w", err)
	}
	b.initialized = true
	return nil
}

func tupleUser(actorType, actorID string) string {
	return fmt.Sprintf("%s:%s", actorType, actorID)
}

func tupleObject(resourceType, resourceID string) string {
	return fmt.Sprintf("%s:%s", resourceType, resourceID)
}

// Allow implements Authorizer.Allow as a single OpenFGA Check call. The
// resource string is "type:id"; metadata's "actor_type" key overrides
// the default "User" actor type if present.
func (b *FGABackend) Allow(ctx context.Context, actorID string, metadata map[string]any, action, resource string) (bool, error) {
	if err := b.ensureStore(ctx); err != nil {
		return false, err
	}

	actorType := "User"
	if t, ok := metadata["actor_type"].(string); ok && t != "" {
		actorType = t
	}

	resp, err := b.client.Check(ctx).Body(client.ClientCheckRequest{
		User:     tupleUser(actorType, actorID),
		Relation: action,
		Object:   resource,
	}).Execute()
	if err != nil {
		return false, fmt.Errorf("authz: check %s/%s/%s: %w", actorID, action, resource, err)
	}
	return resp.GetAllowed(), nil
}

// List implements Authorizer.List by asking OpenFGA for every object of
// resourceType the actor has relation to.
func (b *FGABackend) List(ctx context.Context, actorID, relation, resourceType string) ([]string, error) {
	if err := b.ensureStore(ctx); err != nil {
		return nil, err
	}

	resp, err := b.client.ListObjects(ctx).Body(client.ClientListObjectsRequest{
		User:     tupleUser("User", actorID),
		Relation: relation,
		Type:     resourceType,
	}).Execute()
	if err != nil {
		return nil, fmt.Errorf("authz: list %s objects for %s/%s: %w", resourceType, actorID, relation, err)
	}

	ids := make([]string, 0, len(resp.GetObjects()))
	for _, obj := range resp.GetObjects() {
		if _, id, ok := strings.Cut(obj, ":"); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// Grant implements Authorizer.Grant by writing one relationship tuple.
// An already-existing tuple is reported as "nothing changed" (false),
// not an error.
func (b *FGABackend) Grant(ctx context.Context, actorID, relation string, resource Resource) (bool, error) {
	if err := b.ensureStore(ctx); err != nil {
		return false, err
	}

	_, err := b.client.WriteTuples(ctx).Body([]client.ClientTupleKey{{
		User:     tupleUser("User", actorID),
		Relation: relation,
		Object:   tupleObject(resource.Type, resource.ID),
	}}).Execute()
	if err != nil {
		if strings.Contains(err.Error(), "already existed") {
			return false, nil
		}
		return false, fmt.Errorf("authz: grant %s/%s on %s:%s: %w", actorID, relation, resource.Type, resource.ID, err)
	}
	return true, nil
}

// Revoke implements Authorizer.Revoke by deleting one relationship
// tuple. A tuple that was never written is reported as "nothing
// changed" (false), not an error.
func (b *FGABackend) Revoke(ctx context.Context, actorID, relation string, resource Resource) (bool, error) {
	if err := b.ensureStore(ctx); err != nil {
		return false, err
	}

	_, err := b.client.DeleteTuples(ctx).Body([]client.ClientTupleKeyWithoutCondition{{
		User:     tupleUser("User", actorID),
		Relation: relation,
		Object:   tupleObject(resource.Type, resource.ID),
	}}).Execute()
	if err != nil {
		if strings.Contains(err.Error(), "did not exist") {
			return false, nil
		}
		return false, fmt.Errorf("authz: revoke %s/%s on %s:%s: %w", actorID, relation, resource.Type, resource.ID, err)
	}
	return true, nil
}
