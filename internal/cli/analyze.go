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
	"fmt"
	"strings"

	"github.com/jaycherian/gcp-go-video-chat/internal/core/model"
	"github.com/spf13/cobra"
)

type analyzeOutput struct {
	*model.AnalysisResult
	Answers []*model.Answer `json:"answers,omitempty"`
}

func analyzeCmd(o *options) *cobra.Command {
	var questions []string

	cmd := &cobra.Command{
		Use:   "analyze <path>...",
		Short: "Describe and index videos",
		Long: `Uploads each video, waits for it to become active, describes it and
indexes the description under a new session. Paths may be local files or
gs:// URIs. Questions given with --ask are answered against the session
before the command exits.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := o.app(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.Analysis.Analyze(cmd.Context(), args)
			if err != nil {
				return err
			}
			out := &analyzeOutput{AnalysisResult: result}
			for _, q := range questions {
				answer, err := a.Questions.Ask(cmd.Context(), result.SessionID, q)
				if err != nil {
					return err
				}
				out.Answers = append(out.Answers, answer)
			}
			return o.print(cmd.OutOrStdout(), out, formatAnalysis(out))
		},
	}

	cmd.Flags().StringArrayVarP(&questions, "ask", "q", nil, "Question to answer after the analysis (repeatable)")
	return cmd
}

func formatAnalysis(out *analyzeOutput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "session: %s\n", out.SessionID)
	for i, d := range out.Descriptions {
		fmt.Fprintf(&b, "\n[%d] %s\n", i+1, d)
	}
	for _, a := range out.Answers {
		fmt.Fprintf(&b, "\nQ: %s\nA: %s\n", a.Question, a.Answer)
	}
	return strings.TrimRight(b.String(), "\n")
}
