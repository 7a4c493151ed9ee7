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
package token

import (
	"fmt"
	"time"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"github.com/Paintersrp/portal/internal/auth"
	"github.com/Paintersrp/portal/internal/docsmap"
	"github.com/Paintersrp/portal/internal/state"
)

func NewCmdToken(s *state.State) *cobra.Command {
	var (
		subject string
		scopes  []string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for protected scopes.",
		Long: heredoc.Doc(`
			This command signs a token with server.jwt_secret that grants the
			given scopes. Pass it to the server in an Authorization header
			("Bearer <token>") or as the access_token query parameter.
			The scope "*" grants every scope.

			Examples:
			  portal token --subject ci --scope internal
			  portal token --subject alice --scope "*" --ttl 2h
		`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return issue(cmd, s, subject, scopes, ttl)
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "", "Who the token is issued to.")
	cmd.Flags().StringSliceVar(&scopes, "scope", nil, "Scope granted by the token, repeatable.")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime, server.token_ttl from the config when zero.")
	cmd.MarkFlagRequired("subject")
	cmd.MarkFlagRequired("scope")

	return cmd
}

func issue(cmd *cobra.Command, s *state.State, subject string, scopes []string, ttl time.Duration) error {
	if s.Authority == nil {
		return fmt.Errorf("%w: set server.jwt_secret or PORTAL_SERVER_JWT_SECRET", auth.ErrNoSecret)
	}
	for _, scope := range scopes {
		if scope != "*" && !s.Config.HasScope(scope) {
			return fmt.Errorf("%w: %s", docsmap.ErrUnknownScope, scope)
		}
	}

	token, err := s.Authority.Issue(subject, scopes, ttl)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
