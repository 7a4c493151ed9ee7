/*
Copyright © 2024 Ryan Painter paintersrp@gmail.com

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package serve

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Paintersrp/portal/internal/mcpserver"
	"github.com/Paintersrp/portal/internal/server"
	"github.com/Paintersrp/portal/internal/state"
)

func NewCmdServe(s *state.State) *cobra.Command {
	var (
		addr  string
		watch bool
		noMCP bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the documentation over HTTP.",
		Long: heredoc.Doc(`
			This command serves the documentation portal. Pages are rendered at
			/docs/..., the navigation tree is at /api/tree and search at
			/api/search. Protected scopes require a bearer token issued with
			"portal token". Unprotected scopes are also exposed to MCP clients
			at /mcp.

			With --watch the docs map is rebuilt and every scope reindexed when
			markdown below the docs root changes.

			Examples:
			  portal serve
			  portal serve --addr 127.0.0.1:9000 --watch
			  portal serve --no-mcp
		`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = s.Config.Server.Addr
			}
			return run(cmd.Context(), s, addr, watch, noMCP)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address, server.addr from the config when empty.")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Rebuild and reindex when the docs change.")
	cmd.Flags().BoolVar(&noMCP, "no-mcp", false, "Do not mount the MCP endpoint.")

	return cmd
}

func run(ctx context.Context, s *state.State, addr string, watch, noMCP bool) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := newServer(s, noMCP)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.ListenAndServe(ctx, addr)
	})
	if watch {
		g.Go(func() error {
			return s.Watch(ctx)
		})
	}
	return g.Wait()
}

func newServer(s *state.State, noMCP bool) *server.Server {
	sessions := s.Sessions()

	opts := server.Options{
		Config:    s.Config,
		Source:    s.Source,
		Fetcher:   s.Fetcher,
		Sessions:  sessions,
		Authority: s.Authority,
		Logger:    s.Logger,
	}
	if !noMCP {
		opts.MCP = mcpserver.HTTPHandler(mcpserver.New(mcpserver.Options{
			Config:   s.Config,
			Sessions: sessions,
			Source:   s.Source,
			Fetcher:  s.Fetcher,
			Allow: func(scope string) bool {
				return !s.Config.IsProtected(scope)
			},
			Logger: s.Logger,
		}))
	}
	return server.New(opts)
}
