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
package mcp

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"github.com/Paintersrp/portal/internal/mcpserver"
	"github.com/Paintersrp/portal/internal/state"
)

func NewCmdMcp(s *state.State) *cobra.Command {
	var publicOnly bool

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the documentation to an MCP client over stdio.",
		Long: heredoc.Doc(`
			This command runs a Model Context Protocol server on stdin and
			stdout with three tools: search_docs, get_page and list_pages.
			Every configured scope is available unless --public-only is given.

			Examples:
			  portal mcp
			  portal mcp --public-only --docs ./site
		`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), s, options(s, publicOnly))
		},
	}

	cmd.Flags().BoolVar(&publicOnly, "public-only", false, "Hide protected scopes.")

	return cmd
}

func options(s *state.State, publicOnly bool) *mcpserver.Options {
	opts := &mcpserver.Options{
		Config:   s.Config,
		Sessions: s.Sessions(),
		Source:   s.Source,
		Fetcher:  s.Fetcher,
		Logger:   s.Logger,
	}
	if publicOnly {
		opts.Allow = func(scope string) bool {
			return !s.Config.IsProtected(scope)
		}
	}
	return opts
}

func run(ctx context.Context, s *state.State, opts *mcpserver.Options) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	s.Logger.Printf("mcp: serving %d scopes on stdio", len(s.Config.Scopes))
	err := mcpserver.ServeStdio(ctx, mcpserver.New(*opts))
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
