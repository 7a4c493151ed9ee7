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
package tui

import (
	"context"
	"fmt"
	"io"

	"github.com/MakeNowJust/heredoc/v2"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/Paintersrp/portal/internal/docsmap"
	"github.com/Paintersrp/portal/internal/state"
	"github.com/Paintersrp/portal/internal/tui/search"
)

func NewCmdTui(s *state.State) *cobra.Command {
	var scope string

	cmd := &cobra.Command{
		Use:     "tui",
		Aliases: []string{"t", "ui"},
		Short:   "Open the interactive search screen.",
		Long: heredoc.Doc(`
			This command opens a search screen over the documentation. Results
			update as you type, enter previews the selected page, tab cycles
			through the scopes and ctrl+y copies the page path.

			Examples:
			  portal tui
			  portal tui --scope internal
		`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return Run(cmd.Context(), s, scope)
		},
	}

	cmd.Flags().StringVar(&scope, "scope", "", "Scope to start in, every scope when empty.")

	return cmd
}

// Run shows the search screen until the user quits.
func Run(ctx context.Context, s *state.State, scope string) error {
	if scope != "" && !s.Config.HasScope(scope) {
		return fmt.Errorf("%w: %s", docsmap.ErrUnknownScope, scope)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	// Log lines would tear the alternate screen.
	logs := s.Logger.Writer()
	s.Logger.SetOutput(io.Discard)
	defer s.Logger.SetOutput(logs)

	sess := s.NewSession(scope)
	defer sess.Close()

	m := search.New(search.Options{
		Session:  sess,
		Fetcher:  s.Fetcher,
		Scopes:   append([]string{""}, s.Config.ScopeNames()...),
		Debounce: s.Config.Search.Debounce,
	})
	defer m.Close()

	if _, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil {
		return fmt.Errorf("error running search screen: %w", err)
	}
	return nil
}
