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

// Package services exposes the two pipelines to the API and CLI layers.
//
// AnalysisService creates a session per call and runs the analysis workflow
// once per video. QuestionService answers a question against the namespace
// of the session the caller names. Neither keeps any per-request state of
// its own, so concurrent calls are isolated by session.
package services

import (
	"context"

	"github.com/jaycherian/gcp-go-video-chat/internal/core/commands"
	"github.com/jaycherian/gcp-go-video-chat/internal/core/cor"
)

// run executes workflow with in on cor.CtxIn. The caller closes the
// returned context.
func run(ctx context.Context, workflow cor.Command, in string, params map[string]interface{}) cor.Context {
	chainCtx := cor.NewBaseContextWith(ctx)
	chainCtx.Add(cor.CtxIn, in)
	for k, v := range params {
		chainCtx.Add(k, v)
	}
	if workflow.IsExecutable(chainCtx) {
		workflow.Execute(chainCtx)
	}
	return chainCtx
}

func namespaceParams(namespace string) map[string]interface{} {
	return map[string]interface{}{commands.GetNamespaceParameterName(): namespace}
}
