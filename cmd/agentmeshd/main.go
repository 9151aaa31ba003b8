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

// Command agentmeshd serves a directory of network manifests over the
// streaming-chat HTTP API, reloading them as the directory (or an etcd
// prefix) changes underneath it.
//
// Usage:
//
//	agentmeshd serve --registry-dir ./networks
//	agentmeshd serve --registry-dir ./networks --etcd localhost:2379 --etcd-prefix /agentmesh/
//	agentmeshd version
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/agentmesh/agentmesh/pkg/authz"
	"github.com/agentmesh/agentmesh/pkg/codedtool"
	"github.com/agentmesh/agentmesh/pkg/httpclient"
	"github.com/agentmesh/agentmesh/pkg/llm"
	"github.com/agentmesh/agentmesh/pkg/manifest"
	"github.com/agentmesh/agentmesh/pkg/network"
	"github.com/agentmesh/agentmesh/pkg/network/validate"
	"github.com/agentmesh/agentmesh/pkg/session"
	"github.com/agentmesh/agentmesh/pkg/toolbox"
	"github.com/agentmesh/agentmesh/pkg/transport/httpapi"
)

const version = "0.1.0"

// CLI is a kong struct-of-subcommands: each subcommand is a field tagged
// cmd:"" with its own Run method.
type CLI struct {
	Version VersionCmd `cmd:"" help:"Show version information."`
	Serve   ServeCmd   `cmd:"" help:"Start the agentmesh server."`
}

type VersionCmd struct{}

func (c *VersionCmd) Run(cli *CLI) error {
	fmt.Println("agentmeshd " + version)
	return nil
}

type ServeCmd struct {
	RegistryDir string `name:"registry-dir" help:"Directory of *.hocon/*.yaml network manifests to serve." default:"./networks" type:"path"`
	Etcd        string `name:"etcd" help:"Comma-separated etcd endpoints; when set, manifests are read from etcd instead of RegistryDir." placeholder:"HOST:PORT,..."`
	EtcdPrefix  string `name:"etcd-prefix" help:"Key prefix to watch when --etcd is set." default:"/agentmesh/"`
	Port        int    `help:"Port to listen on." default:"8080"`
	IncludeCycles bool `name:"include-cycles" help:"Permit networks containing a reference cycle (rejected by default)."`
	ExternalAgents string `name:"external-agents" help:"Comma-separated allow-list of hosts (host[:port]) permitted in http(s):// external-agent references." placeholder:"CSV"`
	MCPServers     string `name:"mcp-servers" help:"Comma-separated allow-list of MCP server names permitted in mcp:<server>/<tool> references." placeholder:"CSV"`
	RequireAuth    bool   `name:"require-auth" help:"Reject chat requests lacking a valid bearer token instead of treating them as anonymous."`
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

func (c *ServeCmd) buildSource(logger *zap.Logger) (manifest.Source, error) {
	if c.Etcd != "" {
		return manifest.NewEtcdSource(manifest.EtcdConfig{
			Endpoints: splitCSV(c.Etcd),
			Prefix:    c.EtcdPrefix,
		})
	}
	return manifest.NewFileSource(c.RegistryDir, logger)
}

// buildAuthorizer selects an Authorizer from AGENT_AUTHORIZER: "fga"
// talks to an OpenFGA server configured via FGA_API_URL/FGA_API_TOKEN,
// anything else (including unset) falls back to a NullAuthorizer that
// allows every decision.
func buildAuthorizer() (authz.Authorizer, error) {
	switch os.Getenv("AGENT_AUTHORIZER") {
	case "fga":
		return authz.NewFGABackend(authz.FGAConfig{
			APIURL:    os.Getenv("FGA_API_URL"),
			APIToken:  os.Getenv("FGA_API_TOKEN"),
			StoreName: os.Getenv("FGA_STORE_NAME"),
		})
	default:
		return authz.NewNullAuthorizer(), nil
	}
}

// buildTokenValidator returns nil (auth disabled) unless the JWKS
// environment variables the streaming-session boundary needs are set.
func buildTokenValidator() (*authz.TokenValidator, error) {
	jwksURL := os.Getenv("AGENT_JWKS_URL")
	if jwksURL == "" {
		return nil, nil
	}
	v, err := authz.NewTokenValidator(jwksURL, os.Getenv("AGENT_JWT_ISSUER"), os.Getenv("AGENT_JWT_AUDIENCE"))
	if err != nil {
		return nil, fmt.Errorf("agentmeshd: build token validator: %w", err)
	}
	if claim := os.Getenv("AGENT_AUTHORIZER_ACTOR_KEY"); claim != "" {
		v.ActorIDClaim = claim
	}
	if key := os.Getenv("AGENT_AUTHORIZER_ACTOR_ID_METADATA_KEY"); key != "" {
		v.ActorIDMetadataKey = key
	}
	return v, nil
}

func (c *ServeCmd) Run(cli *CLI) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("agentmeshd: build logger: %w", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("agentmeshd: shutting down")
		cancel()
	}()

	source, err := c.buildSource(logger)
	if err != nil {
		return fmt.Errorf("agentmeshd: build manifest source: %w", err)
	}

	store := network.NewStore()
	watcher := manifest.New(source, store, validate.Options{
		IncludeCycles:     c.IncludeCycles,
		AllowedExternal:   splitCSV(c.ExternalAgents),
		AllowedMCPServers: splitCSV(c.MCPServers),
	}, logger)
	if err := watcher.Start(ctx); err != nil {
		return fmt.Errorf("agentmeshd: start manifest watcher: %w", err)
	}
	defer watcher.Stop()

	resources := llm.NewResources(llm.DefaultRegistry(), llm.ReachInShutdown)
	authorizer, err := buildAuthorizer()
	if err != nil {
		return fmt.Errorf("agentmeshd: build authorizer: %w", err)
	}
	tokenValidator, err := buildTokenValidator()
	if err != nil {
		return err
	}

	runner := &session.Runner{
		Networks:          store,
		Authorizer:        authorizer,
		Resources:         resources,
		ToolboxRegistry:   toolbox.NewRegistry(),
		CodedToolResolver: codedtool.NewResolver(),
		ExternalClient:    httpclient.New(),
		Logger:            logger,
	}

	handler := &httpapi.Handler{
		Runner:         runner,
		TokenValidator: tokenValidator,
		RequireAuth:    c.RequireAuth,
		CORSHeaders:    httpapi.ParseAllowedCORSHeaders(os.Getenv("AGENT_ALLOW_CORS_HEADERS")),
		Logger:         logger,
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", c.Port),
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("agentmeshd: listening", zap.Int("port", c.Port), zap.String("registry_dir", c.RegistryDir))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("agentmeshd: serve: %w", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return srv.Shutdown(shutdownCtx)
}

func main() {
	_ = godotenv.Load()

	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("agentmeshd"),
		kong.Description("agentmesh multi-agent orchestration server"),
		kong.UsageOnError(),
	)
	ctx.FatalIfErrorf(ctx.Run(&cli))
}
