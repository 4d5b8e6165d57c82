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
	"fmt"

	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// EmbedContentAPI is the subset of *genai.Models used for embeddings.
type EmbedContentAPI interface {
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

// GeminiEmbedder embeds with a Gemini embedding model.
type GeminiEmbedder struct {
	api        EmbedContentAPI
	model      string
	dimensions int
	limiter    *rate.Limiter
}

func NewGeminiEmbedder(api EmbedContentAPI, config EmbeddingModel) *GeminiEmbedder {
	dimensions := config.Dimensions
	if dimensions <= 0 {
		dimensions = DefaultEmbeddingDimensions
	}
	return &GeminiEmbedder{
		api:        api,
		model:      config.Model,
		dimensions: dimensions,
		limiter:    perMinute(config.MaxRequestsPerMinute),
	}
}

func (e *GeminiEmbedder) Dimensions() int {
	return e.dimensions
}

func (e *GeminiEmbedder) embed(ctx context.Context, texts []string, task string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	contents := make([]*genai.Content, len(texts))
	for i, t := range texts {
		if t == "" {
			return nil, ErrEmptyText
		}
		contents[i] = &genai.Content{Parts: []*genai.Part{NewTextPart(t)}}
	}
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	dims := int32(e.dimensions)
	resp, err := e.api.EmbedContent(ctx, e.model, contents, &genai.EmbedContentConfig{
		TaskType:             task,
		OutputDimensionality: &dims,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to embed content: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Embeddings))
	}
	out := make([][]float32, len(texts))
	for i, emb := range resp.Embeddings {
		if len(emb.Values) != e.dimensions {
			return nil, fmt.Errorf("%w: expected %d, got %d", ErrWrongDimensions, e.dimensions, len(emb.Values))
		}
		out[i] = emb.Values
	}
	return out, nil
}

func (e *GeminiEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	return e.embed(ctx, texts, "RETRIEVAL_DOCUMENT")
}

func (e *GeminiEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.embed(ctx, []string{text}, "RETRIEVAL_QUERY")
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}
