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
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

const (
	DefaultEmbeddingModel      = openai.SmallEmbedding3
	DefaultEmbeddingDimensions = 1024
	DefaultAnswerModel         = openai.GPT3Dot5Turbo
)

var (
	ErrEmptyText       = errors.New("text cannot be empty")
	ErrWrongDimensions = errors.New("embedding has wrong dimensions")
	ErrNoCompletion    = errors.New("no completion choices returned")
)

// Embedder turns text into vectors. EmbedDocuments returns one vector per
// input in input order.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

// ChatCompleter answers a single rendered prompt.
type ChatCompleter interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// EmbeddingAPI is the subset of *openai.Client the embedder calls.
type EmbeddingAPI interface {
	CreateEmbeddings(ctx context.Context, conv openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
}

// ChatAPI is the subset of *openai.Client the chat model calls.
type ChatAPI interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// NewOpenAIClient builds a client, honoring a custom base URL.
func NewOpenAIClient(config OpenAI) *openai.Client {
	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	return openai.NewClientWithConfig(clientConfig)
}

func perMinute(n int) *rate.Limiter {
	if n <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(n)), n)
}

// OpenAIEmbedder calls the embeddings endpoint with a fixed output size.
type OpenAIEmbedder struct {
	api        EmbeddingAPI
	model      openai.EmbeddingModel
	dimensions int
	limiter    *rate.Limiter
}

// NewOpenAIEmbedder returns an embedder for config, defaulting to
// text-embedding-3-small at 1024 dimensions.
func NewOpenAIEmbedder(api EmbeddingAPI, config EmbeddingModel) *OpenAIEmbedder {
	model := openai.EmbeddingModel(config.Model)
	if model == "" {
		model = DefaultEmbeddingModel
	}
	dimensions := config.Dimensions
	if dimensions <= 0 {
		dimensions = DefaultEmbeddingDimensions
	}
	return &OpenAIEmbedder{
		api:        api,
		model:      model,
		dimensions: dimensions,
		limiter:    perMinute(config.MaxRequestsPerMinute),
	}
}

func (e *OpenAIEmbedder) Dimensions() int {
	return e.dimensions
}

func (e *OpenAIEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	for _, t := range texts {
		if strings.TrimSpace(t) == "" {
			return nil, ErrEmptyText
		}
	}
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	resp, err := e.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:      texts,
		Model:      e.model,
		Dimensions: e.dimensions,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data))
	}
	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, fmt.Errorf("embedding index %d out of range", d.Index)
		}
		if len(d.Embedding) != e.dimensions {
			return nil, fmt.Errorf("%w: expected %d, got %d", ErrWrongDimensions, e.dimensions, len(d.Embedding))
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}

func (e *OpenAIEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// OpenAIChatModel sends the prompt as a single user message.
type OpenAIChatModel struct {
	api     ChatAPI
	config  ChatModel
	limiter *rate.Limiter
}

// NewOpenAIChatModel returns a chat model for config, defaulting to
// gpt-3.5-turbo.
func NewOpenAIChatModel(api ChatAPI, config ChatModel) *OpenAIChatModel {
	if config.Model == "" {
		config.Model = DefaultAnswerModel
	}
	limit := config.RateLimit
	if limit <= 0 {
		limit = 1
	}
	return &OpenAIChatModel{
		api:     api,
		config:  config,
		limiter: rate.NewLimiter(rate.Every(time.Second), limit),
	}
}

// requestTemperature maps a configured 0 to the smallest positive float.
// The request field is omitempty, so a literal 0 would be dropped and the
// API would fall back to its default of 1.
func (m *OpenAIChatModel) requestTemperature() float32 {
	if m.config.Temperature == 0 {
		return math.SmallestNonzeroFloat32
	}
	return m.config.Temperature
}

func (m *OpenAIChatModel) Complete(ctx context.Context, prompt string) (string, error) {
	if err := m.limiter.Wait(ctx); err != nil {
		return "", err
	}
	resp, err := m.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       m.config.Model,
		Temperature: m.requestTemperature(),
		MaxTokens:   m.config.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoCompletion
	}
	return resp.Choices[0].Message.Content, nil
}
