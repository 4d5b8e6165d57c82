// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

func askCmd(o *options) *cobra.Command {
	var session string

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a question about an analyzed session",
		Long: `Answers a question from the descriptions indexed under a session.
Sessions outlive the process only with the pgvector backend.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := o.app(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			answer, err := a.Questions.Ask(cmd.Context(), session, strings.Join(args, " "))
			if err != nil {
				return err
			}
			return o.print(cmd.OutOrStdout(), answer, answer.Answer)
		},
	}

	cmd.Flags().StringVarP(&session, "session", "s", "", "Session id returned by analyze")
	_ = cmd.MarkFlagRequired("session")
	return cmd
}
