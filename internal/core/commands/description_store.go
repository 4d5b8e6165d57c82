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

	"github.com/jaycherian/gcp-go-video-chat/internal/cloud"
	"github.com/jaycherian/gcp-go-video-chat/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-chat/internal/core/model"
	"github.com/jaycherian/gcp-go-video-chat/internal/errs"
	"github.com/jaycherian/gcp-go-video-chat/internal/store"
)

// DescriptionStore embeds the chunks on its input in one batch and appends
// them to the vector store under the session namespace. The output is the
// number of chunks written.
type DescriptionStore struct {
	cor.BaseCommand
	embedder cloud.Embedder
	vectors  store.VectorStore
}

func NewDescriptionStore(name string, embedder cloud.Embedder, vectors store.VectorStore) *DescriptionStore {
	return &DescriptionStore{BaseCommand: *cor.NewBaseCommand(name), embedder: embedder, vectors: vectors}
}

func (s *DescriptionStore) IsExecutable(context cor.Context) bool {
	if !s.BaseCommand.IsExecutable(context) {
		return false
	}
	chunks, ok := context.Get(s.GetInputParam()).([]*model.Chunk)
	return ok && len(chunks) > 0
}

func (s *DescriptionStore) Execute(context cor.Context) {
	chunks := context.Get(s.GetInputParam()).([]*model.Chunk)
	namespace, ok := namespaceOf(context)
	if !ok {
		s.Fail(context, errs.Newf(errs.KindInternal, s.GetName(), "no namespace on the workflow context"))
		return
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := s.embedder.EmbedDocuments(context.GetContext(), texts)
	if err != nil {
		s.Fail(context, classify(context.GetContext(), errs.KindStorage, s.GetName(), err))
		return
	}
	if err = s.vectors.Add(context.GetContext(), namespace, chunks, vectors); err != nil {
		s.Fail(context, classify(context.GetContext(), errs.KindStorage, s.GetName(), err))
		return
	}

	slog.Debug("stored description chunks", "namespace", namespace, "chunks", len(chunks))
	s.Succeed(context, len(chunks))
}
