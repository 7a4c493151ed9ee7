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
package root

import (
	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Paintersrp/portal/internal/constants"
	"github.com/Paintersrp/portal/internal/state"
	"github.com/Paintersrp/portal/pkg/cmd/build"
	"github.com/Paintersrp/portal/pkg/cmd/mcp"
	"github.com/Paintersrp/portal/pkg/cmd/search"
	"github.com/Paintersrp/portal/pkg/cmd/serve"
	"github.com/Paintersrp/portal/pkg/cmd/token"
	"github.com/Paintersrp/portal/pkg/cmd/tui"
	"github.com/Paintersrp/portal/pkg/cmd/view"
)

var (
	docsRoot string
	mapFile  string
	quiet    bool
)

func NewCmdRoot(s *state.State) (*cobra.Command, error) {
	cmd := &cobra.Command{
		Use:     constants.AppName,
		Short:   "Browse, search and serve a scoped documentation tree.",
		Version: constants.Version,
		Long: heredoc.Doc(`
			Portal turns a directory of markdown pages into a navigable
			documentation map split into scopes, such as public and internal.

			Pages can be searched from the command line or an interactive
			search screen, previewed in the terminal, and served over HTTP
			and MCP with token protected scopes.

			Examples:
			  portal build                 // Regenerate docs-map.json
			  portal search install        // Search every scope
			  portal view --docs ./site    // Pick a page to read
			  portal serve --watch         // Serve and rebuild on change
		`),
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return s.Load(state.Options{Quiet: quiet, Stderr: cmd.ErrOrStderr()})
		},
		// Run the search screen by default
		RunE: func(cmd *cobra.Command, args []string) error {
			return tui.Run(cmd.Context(), s, "")
		},
	}

	cmd.PersistentFlags().
		StringVarP(&docsRoot, "docs", "d", "", "Documentation root directory.")
	viper.BindPFlag("docs_root", cmd.PersistentFlags().Lookup("docs"))

	cmd.PersistentFlags().
		StringVarP(&mapFile, "map", "m", "", "Path of the generated docs map.")
	viper.BindPFlag("map_file", cmd.PersistentFlags().Lookup("map"))

	cmd.PersistentFlags().
		BoolVarP(&quiet, "quiet", "q", false, "Discard log output.")

	cmd.AddCommand(
		build.NewCmdBuild(s),
		search.NewCmdSearch(s),
		tui.NewCmdTui(s),
		view.NewCmdView(s),
		serve.NewCmdServe(s),
		token.NewCmdToken(s),
		mcp.NewCmdMcp(s),
	)

	return cmd, nil
}
