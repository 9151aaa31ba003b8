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
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// TokenValidator verifies a bearer token at the streaming-session
// boundary and extracts the actor id plus whatever metadata the
// authorizer needs to make a decision.
type TokenValidator struct {
	cache    *jwk.Cache
	jwksURL  string
	issuer   string
	audience string

	// ActorIDClaim and ActorIDMetadataKey mirror AGENT_AUTHORIZER_ACTOR_KEY
	// and AGENT_AUTHORIZER_ACTOR_ID_METADATA_KEY: the former names the JWT
	// claim holding the actor id, the latter the key under which it is
	// also surfaced in the metadata map handed to Authorizer.Allow.
	ActorIDClaim       string
	ActorIDMetadataKey string
}

// NewTokenValidator builds a validator that auto-fetches and caches the
// issuer's JWKS, refreshed at most every 15 minutes to absorb key
// rotation without a restart.
func NewTokenValidator(jwksURL, issuer, audience string) (*TokenValidator, error) {
	ctx := context.Background()

	cache := jwk.NewCache(ctx)
	if err := cache.Register(jwksURL, jwk.WithMinRefreshInterval(15*time.Minute)); err != nil {
		return nil, fmt.Errorf("authz: register JWKS url: %w", err)
	}
	if _, err := cache.Refresh(ctx, jwksURL); err != nil {
		return nil, fmt.Errorf("authz: fetch JWKS from %s: %w", jwksURL, err)
	}

	return &TokenValidator{
		cache:              cache,
		jwksURL:            jwksURL,
		issuer:             issuer,
		audience:           audience,
		ActorIDClaim:       "sub",
		ActorIDMetadataKey: "actor_id",
	}, nil
}

// Actor is what ValidateToken hands the streaming session to pass on to
// Authorizer.Allow.
type Actor struct {
	ID       string
	Metadata map[string]any
}

// ValidateToken verifies tokenString's signature, issuer, audience, and
// expiry against the cached JWKS, then extracts the actor id and the
// rest of the claims as metadata.
func (v *TokenValidator) ValidateToken(ctx context.Context, tokenString string) (*Actor, error) {
	keyset, err := v.cache.Get(ctx, v.jwksURL)
	if err != nil {
		return nil, fmt.Errorf("authz: get JWKS: %w", err)
	}

	token, err := jwt.Parse(
		[]byte(tokenString),
		jwt.WithKeySet(keyset),
		jwt.WithValidate(true),
		jwt.WithIssuer(v.issuer),
		jwt.WithAudience(v.audience),
	)
	if err != nil {
		return nil, fmt.Errorf("authz: invalid token: %w", err)
	}

	metadata := map[string]any{}
	for iter := token.Iterate(ctx); iter.Next(ctx); {
		pair := iter.Pair()
		if key, ok := pair.Key.(string); ok {
			metadata[key] = pair.Value
		}
	}

	actorID := token.Subject()
	if claim, ok := metadata[v.ActorIDClaim]; ok {
		if s, ok := claim.(string); ok {
			actorID = s
		}
	}
	metadata[v.ActorIDMetadataKey] = actorID

	return &Actor{ID: actorID, Metadata: metadata}, nil
}
