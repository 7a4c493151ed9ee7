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
package build

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/erikgeiser/promptkit/confirmation"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Paintersrp/portal/internal/docsmap"
	"github.com/Paintersrp/portal/internal/state"
)

var (
	interactive = func() bool { return term.IsTerminal(int(os.Stdin.Fd())) }
	confirm     = func(prompt string) (bool, error) {
		return confirmation.New(prompt, confirmation.No).RunPrompt()
	}
)

func NewCmdBuild(s *state.State) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:     "build",
		Aliases: []string{"b"},
		Short:   "Generate the docs map from the documentation root.",
		Long: heredoc.Doc(`
			This command walks the documentation root, reads the front matter of
			every markdown page and writes the resulting navigation tree to the
			docs map file. Each top level directory is a scope.

			When a docs map already exists you are asked before it is replaced,
			unless --force is given or the command is not run from a terminal.

			Examples:
			  portal build
			  portal build --force --map ./site/docs-map.json
		`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, s, force)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Replace an existing docs map without asking.")

	return cmd
}

func run(cmd *cobra.Command, s *state.State, force bool) error {
	out := cmd.OutOrStdout()

	if !force && interactive() {
		if _, err := os.Stat(s.Config.MapFile); err == nil {
			ok, err := confirm(fmt.Sprintf("Replace %s?", s.Config.MapFile))
			if err != nil {
				return fmt.Errorf("confirmation error: %w", err)
			}
			if !ok {
				fmt.Fprintln(out, "Build cancelled.")
				return nil
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}

	m, err := s.Rebuild(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to build docs map: %w", err)
	}

	printSummary(out, m, s.Config.ScopeNames())
	fmt.Fprintf(out, "Wrote %s\n", s.Config.MapFile)
	return nil
}

func printSummary(w io.Writer, m docsmap.Map, order []string) {
	for _, scope := range m.ScopeOrder(order) {
		sections, pages := docsmap.Count(m[scope])
		fmt.Fprintf(w, "%-10s %d sections, %d pages\n", scope+":", sections, pages)
	}
}
