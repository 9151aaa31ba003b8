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

// Command agentmesh-validate checks a single network manifest for
// structural and semantic problems without starting a server.
//
// Usage:
//
//	agentmesh-validate network.yaml
//	agentmesh-validate --include-cycles --json-output network.yaml
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"github.com/agentmesh/agentmesh/pkg/network"
	"github.com/agentmesh/agentmesh/pkg/network/validate"
)

// CLI is the single-command surface agentmesh-validate exposes: there is
// no subcommand tree, just the one file-argument invocation.
type CLI struct {
	ManifestFile  string `arg:"" name:"manifest-file" help:"Path to the network manifest (.hocon/.yaml/.yml) to validate." type:"existingfile"`
	Verbose       bool   `help:"Print every finding, including warnings, instead of just a pass/fail summary."`
	IncludeCycles bool   `name:"include-cycles" help:"Permit a cyclic reference graph instead of failing validation (cycles are rejected by default)."`
	ExternalAgents string `name:"external-agents" help:"Comma-separated allow-list of hosts (host[:port]) permitted in http(s):// external-agent references." placeholder:"CSV"`
	MCPServers    string `name:"mcp-servers" help:"Comma-separated allow-list of MCP server names permitted in mcp:<server>/<tool> references." placeholder:"CSV"`
	JSONOutput    bool   `name:"json-output" help:"Emit findings as a JSON array instead of human-readable text."`
	RegistryDir   string `name:"registry-dir" help:"Unused by a single-file validation; accepted for parity with the server's --registry-dir." type:"path"`
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func main() {
	_ = godotenv.Load()

	var cli CLI
	kong.Parse(&cli,
		kong.Name("agentmesh-validate"),
		kong.Description("Validate a single agentmesh network manifest."),
		kong.UsageOnError(),
	)

	os.Exit(run(&cli))
}

// run performs the validation and returns the process exit code: 0 for a
// clean pass, 1 for manifest findings at error severity, 2 for an I/O or
// parse failure that never reached the validators at all.
func run(cli *CLI) int {
	data, err := os.ReadFile(cli.ManifestFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "agentmesh-validate: read %s: %v\n", cli.ManifestFile, err)
		return 2
	}

	n, err := network.Load(data, network.LoadOptions{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "agentmesh-validate: parse %s: %v\n", cli.ManifestFile, err)
		return 2
	}

	opts := validate.Options{
		IncludeCycles:     cli.IncludeCycles,
		AllowedExternal:   splitCSV(cli.ExternalAgents),
		AllowedMCPServers: splitCSV(cli.MCPServers),
	}
	findings := validate.Run(n, validate.Default(opts))

	if cli.JSONOutput {
		printJSON(n.Name, findings)
	} else {
		printText(n.Name, findings, cli.Verbose)
	}

	if validate.HasErrors(findings) {
		return 1
	}
	return 0
}

func printText(networkName string, findings []validate.Finding, verbose bool) {
	if len(findings) == 0 {
		fmt.Printf("%s: ok, no findings\n", networkName)
		return
	}
	errors, warnings := 0, 0
	for _, f := range findings {
		if f.Severity == validate.SeverityError {
			errors++
		} else {
			warnings++
		}
		if f.Severity == validate.SeverityError || verbose {
			fmt.Println(f.String())
		}
	}
	fmt.Printf("%s: %d error(s), %d warning(s)\n", networkName, errors, warnings)
}

func printJSON(networkName string, findings []validate.Finding) {
	out := struct {
		Network  string             `json:"network"`
		Findings []validate.Finding `json:"findings"`
	}{Network: networkName, Findings: findings}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(out)
}
