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

package httpclient

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNew_Defaults(t *testing.T) {
	c := New()
	if c.maxRetries != 5 {
		t.Fatalf("got maxRetries = %d, want 5", c.maxRetries)
	}
	if c.baseDelay != 2*time.Second {
		t.Fatalf("got baseDelay = %v, want 2s", c.baseDelay)
	}
}

func TestNew_Options(t *testing.T) {
	httpClient := &http.Client{Timeout: 5 * time.Second}
	c := New(WithHTTPClient(httpClient), WithMaxRetries(1), WithBaseDelay(10*time.Millisecond))
	if c.client != httpClient {
		t.Fatal("expected WithHTTPClient to set the underlying client")
	}
	if c.maxRetries != 1 {
		t.Fatalf("got maxRetries = %d, want 1", c.maxRetries)
	}
	if c.baseDelay != 10*time.Millisecond {
		t.Fatalf("got baseDelay = %v, want 10ms", c.baseDelay)
	}
}

func TestDefaultStrategy(t *testing.T) {
	cases := map[int]RetryStrategy{
		http.StatusOK:                  NoRetry,
		http.StatusBadRequest:          NoRetry,
		http.StatusTooManyRequests:     SmartRetry,
		http.StatusInternalServerError: ConservativeRetry,
		http.StatusBadGateway:          ConservativeRetry,
		http.StatusServiceUnavailable:  ConservativeRetry,
	}
	for status, want := range cases {
		if got := DefaultStrategy(status); got != want {
			t.Errorf("DefaultStrategy(%d) = %v, want %v", status, got, want)
		}
	}
}

func TestClient_Do_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(WithMaxRetries(0))
	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	resp, err := c.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("got status %d", resp.StatusCode)
	}
}

func TestClient_Do_RetriesThenSucceeds(t *testing.T) {
	var attempts int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(WithMaxRetries(3), WithBaseDelay(time.Millisecond))
	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	resp, err := c.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("got status %d", resp.StatusCode)
	}
	if attempts != 3 {
		t.Fatalf("got %d attempts, want 3", attempts)
	}
}

func TestClient_Do_MaxRetriesExceeded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(WithMaxRetries(1), WithBaseDelay(time.Millisecond))
	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	_, err := c.Do(req)
	if err == nil {
		t.Fatal("expected an error after exhausting retries")
	}
	var retryErr *RetryableError
	if !errors.As(err, &retryErr) {
		t.Fatalf("got %T, want *RetryableError", err)
	}
}

func TestClient_Do_NetworkError(t *testing.T) {
	c := New(WithMaxRetries(0))
	req, _ := http.NewRequest(http.MethodGet, "http://127.0.0.1:0", nil)
	if _, err := c.Do(req); err == nil {
		t.Fatal("expected a network error")
	}
}

func TestClient_Do_RebuildsReplayableBody(t *testing.T) {
	var attempts int
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		buf, _ := io.ReadAll(r.Body)
		gotBody = string(buf)
		if attempts < 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(WithMaxRetries(2), WithBaseDelay(time.Millisecond))
	req, _ := http.NewRequest(http.MethodPost, srv.URL, strings.NewReader("hello"))
	if _, err := c.Do(req); err != nil {
		t.Fatal(err)
	}
	if gotBody != "hello" {
		t.Fatalf("got body %q on final attempt, want %q", gotBody, "hello")
	}
}
