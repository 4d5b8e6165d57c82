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

// Package cloud. This file wraps the Gemini models client with a per-model
// rate limiter.
package cloud

import (
	"context"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// ModelsAPI is the subset of *genai.Models the wrapper calls.
type ModelsAPI interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// QuotaAwareGenerativeAIModel binds a model name and generation config to a
// models client and blocks callers once the per-second burst is spent.
type QuotaAwareGenerativeAIModel struct {
	GenerativeContentConfig *genai.GenerateContentConfig
	ModelName               string
	ModelHandle             ModelsAPI
	RateLimit               *rate.Limiter
}

// NewQuotaAwareModel returns a wrapper allowing requestsPerSecond calls in a
// burst, refilled at one per second. A non-positive rate means one.
func NewQuotaAwareModel(config *genai.GenerateContentConfig, name string, models ModelsAPI, requestsPerSecond int) *QuotaAwareGenerativeAIModel {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 1
	}
	return &QuotaAwareGenerativeAIModel{
		GenerativeContentConfig: config,
		ModelName:               name,
		ModelHandle:             models,
		RateLimit:               rate.NewLimiter(rate.Every(time.Second), requestsPerSecond),
	}
}

// GenerateContent waits for a token and makes one call. Retries are the
// caller's job, see GenerateMultiModalResponse.
func (q *QuotaAwareGenerativeAIModel) GenerateContent(ctx context.Context, content []*genai.Content) (*genai.GenerateContentResponse, error) {
	if err := q.RateLimit.Wait(ctx); err != nil {
		return nil, err
	}
	return q.ModelHandle.GenerateContent(ctx, q.ModelName, content, q.GenerativeContentConfig)
}
