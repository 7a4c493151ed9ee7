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
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"github.com/Paintersrp/portal/internal/docsmap"
	"github.com/Paintersrp/portal/internal/services/session"
	"github.com/Paintersrp/portal/internal/state"
)

const indexTimeout = 2 * time.Minute

func NewCmdSearch(s *state.State) *cobra.Command {
	var (
		scope  string
		asJSON bool
		limit  int
	)

	cmd := &cobra.Command{
		Use:     "search [term]",
		Aliases: []string{"s", "find"},
		Short:   "Search the documentation from the command line.",
		Long: heredoc.Doc(`
			This command indexes the pages of one scope, or of every scope when
			--scope is omitted, and prints the pages matching the term ordered
			by score. Titles weigh most, then descriptions, then tags, then
			occurrences in the page body.

			Examples:
			  portal search install
			  portal search "rate limit" --scope internal
			  portal search agent --json --limit 5
		`),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, s, args[0], scope, limit, asJSON)
		},
	}

	cmd.Flags().StringVar(&scope, "scope", "", "Scope to search, every scope when empty.")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the results as JSON.")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of results, unlimited when zero.")

	return cmd
}

func run(cmd *cobra.Command, s *state.State, term, scope string, limit int, asJSON bool) error {
	if scope != "" && !s.Config.HasScope(scope) {
		return fmt.Errorf("%w: %s", docsmap.ErrUnknownScope, scope)
	}
	if limit < 0 {
		return fmt.Errorf("limit cannot be negative")
	}

	sess := s.NewSession(scope)
	defer sess.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), indexTimeout)
	defer cancel()
	if err := sess.Wait(ctx); err != nil {
		return fmt.Errorf("indexing did not finish: %w", err)
	}
	if stats := sess.Stats(); stats.LastError != "" {
		return fmt.Errorf("failed to load docs map: %s", stats.LastError)
	}

	snap := sess.Snapshot(term)
	if limit > 0 && len(snap.Results) > limit {
		snap.Results = snap.Results[:limit]
	}

	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	}
	printResults(out, snap)
	return nil
}

func printResults(w io.Writer, snap session.Snapshot) {
	if len(snap.Results) == 0 {
		fmt.Fprintf(w, "No results for %q in %d documents.\n", snap.Term, snap.DocumentCount)
		return
	}

	for _, r := range snap.Results {
		title := r.Title
		if r.Section != "" {
			title = r.Section + " / " + title
		}
		fmt.Fprintf(w, "%s (%d)\n  %s\n", title, r.Score, r.Path)
		if len(r.ContentMatches) > 0 {
			fmt.Fprintf(w, "  %s\n", strings.Join(strings.Fields(r.ContentMatches[0].Context), " "))
		}
	}
	fmt.Fprintf(w, "%d of %d documents matched.\n", len(snap.Results), snap.DocumentCount)
}
