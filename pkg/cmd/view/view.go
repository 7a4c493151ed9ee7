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
package view

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Paintersrp/portal/internal/docsmap"
	"github.com/Paintersrp/portal/internal/fzf"
	"github.com/Paintersrp/portal/internal/render"
	"github.com/Paintersrp/portal/internal/state"
)

var pick = func(ctx context.Context, p *fzf.Picker, query string) (docsmap.Entry, error) {
	return p.Pick(ctx, query)
}

func NewCmdView(s *state.State) *cobra.Command {
	var (
		scope string
		raw   bool
		width int
	)

	cmd := &cobra.Command{
		Use:     "view [query]",
		Aliases: []string{"v", "read"},
		Short:   "Pick a page with a fuzzy finder and print it.",
		Long: heredoc.Doc(`
			This command lists the pages of the docs map in a fuzzy finder with
			a rendered preview. The chosen page is rendered for the terminal, or
			printed as markdown with --raw. An optional query seeds the finder.

			Examples:
			  portal view                  // Fuzzyfind every page
			  portal view install          // Fuzzyfind with query
			  portal v --scope internal    // Only internal pages
			  portal view faq --raw > faq.md
		`),
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := ""
			if len(args) == 1 {
				query = args[0]
			}
			return run(cmd, s, query, scope, raw, width)
		},
	}

	cmd.Flags().StringVar(&scope, "scope", "", "Scope to pick from, every scope when empty.")
	cmd.Flags().BoolVar(&raw, "raw", false, "Print the markdown source.")
	cmd.Flags().IntVarP(&width, "width", "w", 0, "Word wrap width, the terminal width when zero.")

	return cmd
}

func run(cmd *cobra.Command, s *state.State, query, scope string, raw bool, width int) error {
	if scope != "" && !s.Config.HasScope(scope) {
		return fmt.Errorf("%w: %s", docsmap.ErrUnknownScope, scope)
	}

	ctx := cmd.Context()
	tree, err := s.Source.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load docs map: %w", err)
	}

	picker := fzf.NewPicker(s.Fetcher, s.Indexer.Entries(tree, scope), "Select a page to view.")
	entry, err := pick(ctx, picker, query)
	if err != nil {
		if errors.Is(err, fzf.ErrNoSelection) {
			return nil
		}
		return fmt.Errorf("page selection error: %w", err)
	}

	content, err := s.Fetcher.Fetch(ctx, entry.Page.Path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", entry.Page.Path, err)
	}

	out := cmd.OutOrStdout()
	if raw {
		_, err := fmt.Fprint(out, content)
		return err
	}

	rendered, err := render.Terminal(content, wrapWidth(width))
	if err != nil {
		return fmt.Errorf("failed to render %s: %w", entry.Page.Path, err)
	}
	_, err = fmt.Fprint(out, rendered)
	return err
}

func wrapWidth(flag int) int {
	if flag > 0 {
		return flag
	}
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 && w < render.DefaultWidth {
		return w
	}
	return render.DefaultWidth
}
