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

// Package app wires configuration, clients, stores, workflows and services
// into one container shared by the server and the command line tool.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/jaycherian/gcp-go-video-chat/internal/cloud"
	"github.com/jaycherian/gcp-go-video-chat/internal/core/services"
	"github.com/jaycherian/gcp-go-video-chat/internal/core/workflow"
	"github.com/jaycherian/gcp-go-video-chat/internal/store"
)

// App holds the shared dependencies of a running process.
type App struct {
	Config    *cloud.Config
	Clients   *cloud.ServiceClients
	Vectors   store.VectorStore
	Sessions  store.SessionStore
	Analysis  *services.AnalysisService
	Questions *services.QuestionService
}

// LoadConfig reads the TOML files from dir for runtime, overlays the
// environment secrets and validates the result. Blank arguments keep
// whatever GCP_CONFIG_PREFIX and GCP_RUNTIME already say.
func LoadConfig(dir string, runtime string) (*cloud.Config, error) {
	if dir != "" {
		if err := os.Setenv(cloud.EnvConfigFilePrefix, dir); err != nil {
			return nil, err
		}
	}
	if runtime != "" {
		if err := os.Setenv(cloud.EnvConfigRuntime, runtime); err != nil {
			return nil, err
		}
	}

	config := cloud.NewConfig()
	if err := cloud.LoadConfig(config); err != nil {
		return nil, err
	}
	secrets, err := cloud.LoadSecrets()
	if err != nil {
		return nil, err
	}
	secrets.Apply(config)
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

// New builds the clients and everything that depends on them.
func New(ctx context.Context, config *cloud.Config) (*App, error) {
	clients, err := cloud.NewCloudServiceClients(ctx, config)
	if err != nil {
		return nil, err
	}
	out, err := NewWithClients(ctx, config, clients)
	if err != nil {
		clients.Close()
		return nil, err
	}
	return out, nil
}

// NewWithClients builds the stores, workflows and services over clients.
func NewWithClients(ctx context.Context, config *cloud.Config, clients *cloud.ServiceClients) (*App, error) {
	if clients.Embedder == nil {
		return nil, errors.New("an embedder is required")
	}
	vectors, sessions, err := store.New(ctx, config, clients, clients.Embedder.Dimensions())
	if err != nil {
		return nil, err
	}

	analysisWorkflow, err := workflow.NewVideoAnalysisWorkflow(config, clients, vectors, sessions)
	if err != nil {
		return nil, err
	}
	questionWorkflow, err := workflow.NewQuestionAnswerWorkflow(config, clients, vectors)
	if err != nil {
		return nil, err
	}

	slog.Info("application initialized",
		"vector_store", config.VectorStore.Kind,
		"agent_model", config.Application.AgentModel,
		"embedding_model", config.Application.EmbeddingModel,
		"answer_model", config.Application.AnswerModel)

	analysis := services.NewAnalysisService(analysisWorkflow, sessions)
	analysis.MaxVideos = config.Server.MaxVideosPerRequest

	return &App{
		Config:    config,
		Clients:   clients,
		Vectors:   vectors,
		Sessions:  sessions,
		Analysis:  analysis,
		Questions: services.NewQuestionService(questionWorkflow, sessions),
	}, nil
}

// StartListeners attaches the trigger workflow to every configured
// subscription and starts receiving until ctx is done.
func (a *App) StartListeners(ctx context.Context) int {
	if len(a.Clients.PubSubListeners) == 0 {
		return 0
	}
	trigger := workflow.NewVideoTriggerWorkflow(a.Config, a.Analysis)
	for key, listener := range a.Clients.PubSubListeners {
		listener.SetCommand(trigger)
		listener.Listen(ctx)
		slog.Debug("started listener", "key", key)
	}
	return len(a.Clients.PubSubListeners)
}

// Close releases the clients.
func (a *App) Close() {
	if a.Clients != nil {
		a.Clients.Close()
	}
}
