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

package builtintools

import "github.com/agentmesh/agentmesh/pkg/codedtool"

// Register binds every coded tool this package ships under its
// canonical symbolic class path, so manifests can reference either the
// fully-qualified path or a unique shorter suffix (pkg/codedtool's
// suffix resolution).
func Register(r *codedtool.Resolver) {
	r.Register("agentmesh/internal/builtintools.Accountant", func() codedtool.Tool {
		return &Accountant{}
	})
}
