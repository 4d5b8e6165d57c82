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

package workflow

import (
	"errors"
	"fmt"

	"github.com/jaycherian/gcp-go-video-chat/internal/cloud"
	"github.com/jaycherian/gcp-go-video-chat/internal/core/commands"
	"github.com/jaycherian/gcp-go-video-chat/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-chat/internal/store"
)

// QuestionAnswerWorkflow takes a question on cor.CtxIn and the session
// namespace under commands.GetNamespaceParameterName, and leaves the answer
// on cor.CtxIn:
//
//	retrieve-context -> generate-answer
type QuestionAnswerWorkflow struct {
	cor.BaseCommand
	chain cor.Chain
}

func (q *QuestionAnswerWorkflow) Execute(context cor.Context) {
	q.chain.Execute(context)
}

func NewQuestionAnswerWorkflow(
	config *cloud.Config,
	serviceClients *cloud.ServiceClients,
	vectors store.VectorStore) (*QuestionAnswerWorkflow, error) {

	switch {
	case serviceClients.Embedder == nil:
		return nil, errors.New("question workflow needs an embedder")
	case serviceClients.AnswerModel == nil:
		return nil, errors.New("question workflow needs an answer model")
	case vectors == nil:
		return nil, errors.New("question workflow needs a vector store")
	}

	answer, err := commands.NewAnswerGenerator("generate-answer", serviceClients.AnswerModel, config.PromptTemplates.Answer)
	if err != nil {
		return nil, fmt.Errorf("failed to build question workflow: %w", err)
	}

	chain := cor.NewBaseChain("question-answer-workflow")
	chain.AddCommand(commands.NewContextRetriever("retrieve-context", serviceClients.Embedder, vectors, config.Retrieval.TopK))
	chain.AddCommand(answer)

	return &QuestionAnswerWorkflow{
		BaseCommand: *cor.NewBaseCommand("question-answer-workflow"),
		chain:       chain,
	}, nil
}
