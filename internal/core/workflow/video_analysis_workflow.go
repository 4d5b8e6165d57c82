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

// Package workflow assembles the commands into the chains the services run.
//
// VideoAnalysisWorkflow takes one video reference on cor.CtxIn, the session
// namespace under commands.GetNamespaceParameterName and, optionally, the
// *model.Session under commands.GetSessionParameterName:
//
//	video-source -> media-upload -> mark-active -> generate-description ->
//	mark-described -> chunk-description -> store-description ->
//	mark-stored [-> cleanup-uploaded-media]
//
// The mark-* steps record the session's progress in the session store.
// When it finishes without errors the description is available under
// commands.GetDescriptionParameterName.
package workflow

import (
	"errors"
	"fmt"

	"github.com/jaycherian/gcp-go-video-chat/internal/cloud"
	"github.com/jaycherian/gcp-go-video-chat/internal/core/chunking"
	"github.com/jaycherian/gcp-go-video-chat/internal/core/commands"
	"github.com/jaycherian/gcp-go-video-chat/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-chat/internal/core/model"
	"github.com/jaycherian/gcp-go-video-chat/internal/store"
)

type VideoAnalysisWorkflow struct {
	cor.BaseCommand
	config         *cloud.Config
	serviceClients *cloud.ServiceClients
	vectors        store.VectorStore
	sessions       store.SessionStore
	chain          cor.Chain
}

func (m *VideoAnalysisWorkflow) Execute(context cor.Context) {
	m.chain.Execute(context)
}

func (m *VideoAnalysisWorkflow) initializeChain() error {
	generator, err := m.serviceClients.AgentModel(m.config)
	if err != nil {
		return err
	}
	splitter, err := chunking.NewRecursiveCharacterSplitter(m.config.Chunking.ChunkSize, m.config.Chunking.ChunkOverlap)
	if err != nil {
		return err
	}

	out := cor.NewBaseChain(m.GetName())
	out.AddCommand(commands.NewVideoSource("video-source", m.serviceClients.StorageClient, m.config.Storage.TempFilePrefix))
	out.AddCommand(commands.NewMediaUpload("media-upload", m.serviceClients.Files, cloud.NewPollPolicy(m.config.Ingestion)))
	out.AddCommand(commands.NewSessionProgress("mark-active", m.sessions, model.SessionActive))
	out.AddCommand(commands.NewDescriptionGenerator("generate-description", generator, m.config.PromptTemplates.Description))
	out.AddCommand(commands.NewSessionProgress("mark-described", m.sessions, model.SessionDescribed))
	out.AddCommand(commands.NewDescriptionChunker("chunk-description", splitter))
	out.AddCommand(commands.NewDescriptionStore("store-description", m.serviceClients.Embedder, m.vectors))
	out.AddCommand(commands.NewSessionProgress("mark-stored", m.sessions, model.SessionStored))
	if m.config.Ingestion.DeleteUploadedMedia {
		out.AddCommand(commands.NewMediaCleanup("cleanup-uploaded-media", m.serviceClients.Files))
	}
	m.chain = out
	return nil
}

// NewVideoAnalysisWorkflow builds the analysis chain over the clients'
// Files service, agent model and embedder. sessions may be nil.
func NewVideoAnalysisWorkflow(
	config *cloud.Config,
	serviceClients *cloud.ServiceClients,
	vectors store.VectorStore,
	sessions store.SessionStore) (*VideoAnalysisWorkflow, error) {

	switch {
	case serviceClients.Files == nil:
		return nil, errors.New("analysis workflow needs a files service")
	case serviceClients.Embedder == nil:
		return nil, errors.New("analysis workflow needs an embedder")
	case vectors == nil:
		return nil, errors.New("analysis workflow needs a vector store")
	}

	out := &VideoAnalysisWorkflow{
		BaseCommand:    *cor.NewBaseCommand("video-analysis-workflow"),
		config:         config,
		serviceClients: serviceClients,
		vectors:        vectors,
		sessions:       sessions,
	}
	if err := out.initializeChain(); err != nil {
		return nil, fmt.Errorf("failed to build analysis workflow: %w", err)
	}
	return out, nil
}
