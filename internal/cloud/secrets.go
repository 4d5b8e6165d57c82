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

package cloud

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Secrets are never read from TOML. They come from the process environment,
// optionally seeded from a .env file in the working directory.
type Secrets struct {
	GoogleAPIKey   string `envconfig:"GOOGLE_API_KEY"`
	OpenAIAPIKey   string `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL  string `envconfig:"OPENAI_BASE_URL"`
	DatabaseURL    string `envconfig:"DATABASE_URL"`
	MilvusAddress  string `envconfig:"MILVUS_ADDRESS"`
	MilvusUsername string `envconfig:"MILVUS_USERNAME"`
	MilvusPassword string `envconfig:"MILVUS_PASSWORD"`
	MilvusAPIKey   string `envconfig:"MILVUS_API_KEY"`
}

// LoadSecrets reads Secrets from the environment. A missing .env file is not
// an error.
func LoadSecrets() (*Secrets, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}
	var s Secrets
	if err := envconfig.Process("", &s); err != nil {
		return nil, fmt.Errorf("failed to process secrets: %w", err)
	}
	return &s, nil
}

// Apply copies the secrets into config. Non-secret values that the
// environment overrides (base URL, Milvus address) only replace the TOML
// value when set.
func (s *Secrets) Apply(config *Config) {
	config.Application.GoogleAPIKey = s.GoogleAPIKey
	config.OpenAI.APIKey = s.OpenAIAPIKey
	if s.OpenAIBaseURL != "" {
		config.OpenAI.BaseURL = s.OpenAIBaseURL
	}
	config.VectorStore.DatabaseURL = s.DatabaseURL
	if s.MilvusAddress != "" {
		config.VectorStore.MilvusAddress = s.MilvusAddress
	}
	config.VectorStore.MilvusUsername = s.MilvusUsername
	config.VectorStore.MilvusPassword = s.MilvusPassword
	config.VectorStore.MilvusAPIKey = s.MilvusAPIKey
}

// Validate reports every missing credential the configured backends need.
// The server refuses to start when it returns an error.
func (c *Config) Validate() error {
	var errs []error
	if c.Application.GoogleAPIKey == "" {
		errs = append(errs, errors.New("GOOGLE_API_KEY is required"))
	}
	if (c.Storage.Enabled || len(c.TopicSubscriptions) > 0) && c.Application.GoogleProjectId == "" {
		errs = append(errs, errors.New("google_project_id is required for storage and subscriptions"))
	}
	if _, ok := c.GetAgentModel(); !ok {
		errs = append(errs, fmt.Errorf("agent model %q is not configured", c.Application.AgentModel))
	}
	em, ok := c.GetEmbeddingModel()
	if !ok {
		errs = append(errs, fmt.Errorf("embedding model %q is not configured", c.Application.EmbeddingModel))
	} else if em.Provider == ProviderOpenAI && c.OpenAI.APIKey == "" {
		errs = append(errs, errors.New("OPENAI_API_KEY is required for the openai embedding provider"))
	}
	if _, ok := c.GetAnswerModel(); !ok {
		errs = append(errs, fmt.Errorf("answer model %q is not configured", c.Application.AnswerModel))
	} else if c.OpenAI.APIKey == "" {
		errs = append(errs, errors.New("OPENAI_API_KEY is required for the answer model"))
	}
	switch c.VectorStore.Kind {
	case VectorStoreMemory:
	case VectorStorePgVector:
		if c.VectorStore.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the pgvector store"))
		}
	case VectorStoreMilvus:
		if c.VectorStore.MilvusAddress == "" {
			errs = append(errs, errors.New("MILVUS_ADDRESS is required for the milvus store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown vector store kind %q", c.VectorStore.Kind))
	}
	if c.Chunking.ChunkSize <= 0 || c.Chunking.ChunkOverlap < 0 || c.Chunking.ChunkOverlap >= c.Chunking.ChunkSize {
		errs = append(errs, fmt.Errorf("invalid chunking %d/%d", c.Chunking.ChunkSize, c.Chunking.ChunkOverlap))
	}
	if c.Retrieval.TopK <= 0 {
		errs = append(errs, fmt.Errorf("retrieval top_k must be positive, got %d", c.Retrieval.TopK))
	}
	return errors.Join(errs...)
}
