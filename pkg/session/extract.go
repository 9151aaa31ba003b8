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

package session

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	jsonFenceRe    = regexp.MustCompile(`(?s)` + "```json" + `\s*\n?(.*?)` + "```")
	genericFenceRe = regexp.MustCompile(`(?s)` + "```" + `\s*\n?(.*?)` + "```")
)

// extractStructure pulls at most one JSON block out of an agent's free
// text: a fenced ```json block, else a fenced ``` block without a
// language tag, else a bare brace-balanced {...}. The returned text has
// the block removed and its surrounding whitespace normalized. Malformed
// or absent JSON leaves structure nil and text unchanged.
func extractStructure(text string) (structure map[string]any, cleaned string) {
	if loc := jsonFenceRe.FindStringSubmatchIndex(text); loc != nil {
		if s, t, ok := tryExtract(text, loc[0], loc[1], loc[2], loc[3]); ok {
			return s, t
		}
	}
	if loc := genericFenceRe.FindStringSubmatchIndex(text); loc != nil {
		if s, t, ok := tryExtract(text, loc[0], loc[1], loc[2], loc[3]); ok {
			return s, t
		}
	}
	if start := strings.IndexByte(text, '{'); start >= 0 {
		if end, ok := matchingBrace(text, start); ok {
			if s, t, ok := tryExtract(text, start, end+1, start, end+1); ok {
				return s, t
			}
		}
	}
	return nil, text
}

func tryExtract(text string, blockStart, blockEnd, capStart, capEnd int) (map[string]any, string, bool) {
	candidate := strings.TrimSpace(text[capStart:capEnd])
	var structure map[string]any
	if err := json.Unmarshal([]byte(candidate), &structure); err != nil {
		return nil, "", false
	}
	remainder := text[:blockStart] + text[blockEnd:]
	return structure, normalizeWhitespace(remainder), true
}

// matchingBrace finds the index of the '}' closing the '{' at start,
// honoring string literals so braces inside a JSON string don't throw
// off the depth count.
func matchingBrace(s string, start int) (int, bool) {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

func normalizeWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t")
	}
	collapsed := strings.Join(lines, "\n")
	for strings.Contains(collapsed, "\n\n\n") {
		collapsed = strings.ReplaceAll(collapsed, "\n\n\n", "\n\n")
	}
	return strings.TrimSpace(collapsed)
}
