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

package httpapi

import (
	"net/http"
	"strings"
)

const defaultAllowedHeaders = "Content-Type, Authorization"

// ParseAllowedCORSHeaders splits the comma-separated value of
// AGENT_ALLOW_CORS_HEADERS into a header list, trimming whitespace and
// dropping empty entries.
func ParseAllowedCORSHeaders(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	headers := make([]string, 0, len(parts))
	for _, p := range parts {
		if h := strings.TrimSpace(p); h != "" {
			headers = append(headers, h)
		}
	}
	return headers
}

// corsMiddleware allows every origin (this is an API surface meant for
// browser-based agent UIs behind arbitrary hosts) and widens the allowed
// header set with whatever AGENT_ALLOW_CORS_HEADERS configured.
func corsMiddleware(extraHeaders []string) func(http.Handler) http.Handler {
	allowedHeaders := defaultAllowedHeaders
	if len(extraHeaders) > 0 {
		allowedHeaders = allowedHeaders + ", " + strings.Join(extraHeaders, ", ")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", allowedHeaders)

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
