package authz

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

func generateTestKeyPair(t *testing.T) (*rsa.PrivateKey, *rsa.PublicKey) {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	return priv, &priv.PublicKey
}

func testJWKS(t *testing.T, pub *rsa.PublicKey) jwk.Set {
	t.Helper()
	key, err := jwk.FromRaw(pub)
	if err != nil {
		t.Fatal(err)
	}
	if err := key.Set(jwk.KeyIDKey, "test-key-id"); err != nil {
		t.Fatal(err)
	}
	if err := key.Set(jwk.AlgorithmKey, jwa.RS256); err != nil {
		t.Fatal(err)
	}
	set := jwk.NewSet()
	if err := set.AddKey(key); err != nil {
		t.Fatal(err)
	}
	return set
}

func signTestJWT(t *testing.T, priv *rsa.PrivateKey, issuer, audience, subject string, claims map[string]any) string {
	t.Helper()
	token := jwt.New()
	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
	}
	must(token.Set(jwt.IssuerKey, issuer))
	must(token.Set(jwt.AudienceKey, audience))
	must(token.Set(jwt.SubjectKey, subject))
	must(token.Set(jwt.ExpirationKey, time.Now().Add(time.Hour)))
	for k, v := range claims {
		must(token.Set(k, v))
	}

	key, err := jwk.FromRaw(priv)
	if err != nil {
		t.Fatal(err)
	}
	if err := key.Set(jwk.KeyIDKey, "test-key-id"); err != nil {
		t.Fatal(err)
	}

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.RS256, key))
	if err != nil {
		t.Fatal(err)
	}
	return string(signed)
}

func startJWKSServer(t *testing.T, keyset jwk.Set) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := json.Marshal(keyset)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(body)
	}))
}

func TestTokenValidator_ValidateToken_ExtractsActorAndMetadata(t *testing.T) {
	priv, pub := generateTestKeyPair(t)
	server := startJWKSServer(t, testJWKS(t, pub))
	defer server.Close()

	issuer, audience, subject := "https://issuer.example", "agentmesh-api", "user-123"
	validator, err := NewTokenValidator(server.URL, issuer, audience)
	if err != nil {
		t.Fatal(err)
	}

	token := signTestJWT(t, priv, issuer, audience, subject, map[string]any{
		"role": "operator",
	})

	actor, err := validator.ValidateToken(context.Background(), token)
	if err != nil {
		t.Fatal(err)
	}
	if actor.ID != subject {
		t.Fatalf("got actor id %q", actor.ID)
	}
	if actor.Metadata["role"] != "operator" {
		t.Fatalf("got metadata %#v", actor.Metadata)
	}
	if actor.Metadata[validator.ActorIDMetadataKey] != subject {
		t.Fatalf("expected actor id metadata key to be populated, got %#v", actor.Metadata)
	}
}

func TestTokenValidator_ValidateToken_RejectsWrongAudience(t *testing.T) {
	priv, pub := generateTestKeyPair(t)
	server := startJWKSServer(t, testJWKS(t, pub))
	defer server.Close()

	issuer := "https://issuer.example"
	validator, err := NewTokenValidator(server.URL, issuer, "agentmesh-api")
	if err != nil {
		t.Fatal(err)
	}

	token := signTestJWT(t, priv, issuer, "some-other-audience", "user-123", nil)

	if _, err := validator.ValidateToken(context.Background(), token); err == nil {
		t.Fatal("expected a wrong-audience token to be rejected")
	}
}
