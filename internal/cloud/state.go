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

// Package cloud. This file builds ServiceClients, the container for every
// external client the application uses.
//
// Logic Flow:
//  1. NewCloudServiceClients is called once at startup with the loaded Config.
//  2. The Gemini client is always created; its Files service uploads videos
//     and its Models service describes them.
//  3. The OpenAI client backs the embedder and the answer model.
//  4. Storage and Pub/Sub clients are created only when enabled.
//  5. A Postgres pool or a Milvus client is created for the configured
//     vector store.
package cloud

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"github.com/jackc/pgx/v5/pgxpool"
	milvus "github.com/milvus-io/milvus-sdk-go/v2/client"
	openai "github.com/sashabaranov/go-openai"
	"google.golang.org/genai"
)

// ServiceClients holds the shared clients. Optional clients are nil when
// their feature is disabled.
type ServiceClients struct {
	StorageClient   *storage.Client
	PubsubClient    *pubsub.Client
	GenAIClient     *genai.Client
	OpenAIClient    *openai.Client
	PgPool          *pgxpool.Pool
	MilvusClient    milvus.Client
	Files           FileService
	PubSubListeners map[string]*PubSubListener
	AgentModels     map[string]ContentGenerator
	Embedder        Embedder
	AnswerModel     ChatCompleter
}

// Close releases every client that was created.
func (c *ServiceClients) Close() {
	if c.StorageClient != nil {
		_ = c.StorageClient.Close()
	}
	if c.PubsubClient != nil {
		_ = c.PubsubClient.Close()
	}
	if c.PgPool != nil {
		c.PgPool.Close()
	}
	if c.MilvusClient != nil {
		_ = c.MilvusClient.Close()
	}
}

// AgentModel returns the configured description model.
func (c *ServiceClients) AgentModel(config *Config) (ContentGenerator, error) {
	m, ok := c.AgentModels[config.Application.AgentModel]
	if !ok {
		return nil, fmt.Errorf("agent model %q is not configured", config.Application.AgentModel)
	}
	return m, nil
}

// NewGenerateContentConfig converts a GeminiModel into a request config.
func NewGenerateContentConfig(values GeminiModel) *genai.GenerateContentConfig {
	out := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](values.Temperature),
		TopP:             genai.Ptr[float32](values.TopP),
		MaxOutputTokens:  values.MaxTokens,
		SafetySettings:   DefaultSafetySettings,
		ResponseMIMEType: values.OutputFormat,
	}
	if values.TopK > 0 {
		out.TopK = genai.Ptr[float32](values.TopK)
	}
	if values.SystemInstructions != "" {
		out.SystemInstruction = &genai.Content{Parts: []*genai.Part{NewTextPart(values.SystemInstructions)}}
	}
	return out
}

// NewPgPool connects to url and pings it.
func NewPgPool(ctx context.Context, url string, maxConns int32) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}
	if maxConns > 0 {
		poolConfig.MaxConns = maxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}

// NewCloudServiceClients creates the clients config asks for. On error every
// client created so far is closed.
func NewCloudServiceClients(ctx context.Context, config *Config) (_ *ServiceClients, err error) {
	cloud := &ServiceClients{
		PubSubListeners: make(map[string]*PubSubListener),
		AgentModels:     make(map[string]ContentGenerator),
	}
	defer func() {
		if err != nil {
			cloud.Close()
		}
	}()

	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.Application.GoogleAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	cloud.GenAIClient = gc
	cloud.Files = gc.Files

	for amKey, values := range config.AgentModels {
		cloud.AgentModels[amKey] = NewQuotaAwareModel(NewGenerateContentConfig(values), values.Model, gc.Models, values.RateLimit)
		slog.Debug("configured agent model", "key", amKey, "model", values.Model)
	}

	cloud.OpenAIClient = NewOpenAIClient(config.OpenAI)
	embedding, ok := config.GetEmbeddingModel()
	if !ok {
		return nil, fmt.Errorf("embedding model %q is not configured", config.Application.EmbeddingModel)
	}
	switch embedding.Provider {
	case ProviderGemini:
		cloud.Embedder = NewGeminiEmbedder(gc.Models, embedding)
	case ProviderOpenAI, "":
		cloud.Embedder = NewOpenAIEmbedder(cloud.OpenAIClient, embedding)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", embedding.Provider)
	}
	answer, _ := config.GetAnswerModel()
	cloud.AnswerModel = NewOpenAIChatModel(cloud.OpenAIClient, answer)

	if config.Storage.Enabled {
		if cloud.StorageClient, err = storage.NewClient(ctx); err != nil {
			return nil, fmt.Errorf("failed to create storage client: %w", err)
		}
	}

	if len(config.TopicSubscriptions) > 0 {
		if cloud.PubsubClient, err = pubsub.NewClient(ctx, config.Application.GoogleProjectId); err != nil {
			return nil, fmt.Errorf("failed to create pubsub client: %w", err)
		}
		for subKey, values := range config.TopicSubscriptions {
			listener, err := NewPubSubListener(cloud.PubsubClient, values.Name, nil)
			if err != nil {
				return nil, err
			}
			cloud.PubSubListeners[subKey] = listener
		}
	}

	switch config.VectorStore.Kind {
	case VectorStorePgVector:
		if cloud.PgPool, err = NewPgPool(ctx, config.VectorStore.DatabaseURL, config.VectorStore.MaxConns); err != nil {
			return nil, err
		}
	case VectorStoreMilvus:
		cloud.MilvusClient, err = milvus.NewClient(ctx, milvus.Config{
			Address:  config.VectorStore.MilvusAddress,
			Username: config.VectorStore.MilvusUsername,
			Password: config.VectorStore.MilvusPassword,
			APIKey:   config.VectorStore.MilvusAPIKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to milvus: %w", err)
		}
	case VectorStoreMemory:
	default:
		return nil, errors.New("unknown vector store kind " + config.VectorStore.Kind)
	}

	return cloud, nil
}
