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

package commands

import (
	"log/slog"
	"strings"

	"github.com/jaycherian/gcp-go-video-chat/internal/cloud"
	"github.com/jaycherian/gcp-go-video-chat/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-chat/internal/core/model"
	"github.com/jaycherian/gcp-go-video-chat/internal/errs"
	"github.com/jaycherian/gcp-go-video-chat/internal/store"
)

// ContextRetriever turns the question on its input into a
// *model.RetrievedContext holding the top k chunks of the session namespace.
//
// An embedding or search failure does not fail the chain. The context is
// replaced with model.RetrievalErrorContext and marked Degraded so the answer
// stage still runs. Only cancellation is reported as an error.
type ContextRetriever struct {
	cor.BaseCommand
	embedder cloud.Embedder
	vectors  store.VectorStore
	k        int
}

// NewContextRetriever builds the retrieval stage of the question workflow.
//
// Inputs:
//   - name: The command name used for spans and metrics.
//   - embedder: Embeds the question with the same model used for chunks.
//   - vectors: The store searched within the session namespace.
//   - k: The number of chunks to retrieve. Values below 1 use 4.
//
// Outputs:
//   - *ContextRetriever: The command. Its output is a *model.RetrievedContext.
func NewContextRetriever(name string, embedder cloud.Embedder, vectors store.VectorStore, k int) *ContextRetriever {
	if k <= 0 {
		k = 4
	}
	return &ContextRetriever{BaseCommand: *cor.NewBaseCommand(name), embedder: embedder, vectors: vectors, k: k}
}

func (r *ContextRetriever) Execute(context cor.Context) {
	question, _ := context.Get(r.GetInputParam()).(string)
	namespace, ok := namespaceOf(context)
	if !ok {
		r.Fail(context, errs.Newf(errs.KindInternal, r.GetName(), "no namespace on the workflow context"))
		return
	}

	matches, err := r.search(context, namespace, question)
	if err != nil && context.GetContext().Err() != nil {
		r.Fail(context, classify(context.GetContext(), errs.KindRetrieval, r.GetName(), err))
		return
	}

	out := &model.RetrievedContext{Question: question}
	if err != nil {
		r.GetErrorCounter().Add(context.GetContext(), 1)
		slog.Error("retrieval failed, answering without context",
			"kind", errs.KindRetrieval, "namespace", namespace, "error", err)
		out.Context = model.RetrievalErrorContext
		out.Degraded = true
	} else {
		texts := make([]string, len(matches))
		for i, m := range matches {
			texts[i] = m.Text
		}
		out.Context = strings.Join(texts, model.ContextSeparator)
		out.Matches = matches
		r.GetSuccessCounter().Add(context.GetContext(), 1)
	}

	context.Add(GetRetrievedContextParameterName(), out)
	context.Add(r.GetOutputParam(), out)
}

func (r *ContextRetriever) search(context cor.Context, namespace string, question string) ([]*model.Match, error) {
	vector, err := r.embedder.EmbedQuery(context.GetContext(), question)
	if err != nil {
		return nil, err
	}
	return r.vectors.Search(context.GetContext(), namespace, vector, r.k)
}
