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

// Package cloud. This file holds the hierarchical configuration loader and
// the retrying multimodal generation helper.
//
// Functions:
//   - LoadConfig: Reads configs/.env.toml and then overlays
//     configs/.env.<GCP_RUNTIME>.toml.
//   - GenerateMultiModalResponse: Calls a ContentGenerator with bounded
//     retries and records token usage.
//   - NewTextPart, NewFileData: Part factories for multimodal prompts.
package cloud

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel/metric"
	"google.golang.org/genai"
)

const (
	ConfigFileBaseName  = ".env"
	ConfigFileExtension = ".toml"
	ConfigSeparator     = "."
	EnvConfigFilePrefix = "GCP_CONFIG_PREFIX" // Directory holding the config files.
	EnvConfigRuntime    = "GCP_RUNTIME"       // e.g. "local", "test", "prod".
	MaxRetries          = 3
)

// RetryInterval is the first wait between generation retries.
var RetryInterval = 2 * time.Second

func fileExists(in string) bool {
	_, err := os.Stat(in)
	return !errors.Is(err, os.ErrNotExist)
}

// ConfigFiles returns the base and runtime override file names.
func ConfigFiles() (base string, override string) {
	prefix := os.Getenv(EnvConfigFilePrefix)
	if len(prefix) > 0 && !strings.HasSuffix(prefix, string(os.PathSeparator)) {
		prefix = prefix + string(os.PathSeparator)
	}
	runtime := os.Getenv(EnvConfigRuntime)
	if runtime == "" {
		runtime = "test"
	}
	base = prefix + ConfigFileBaseName + ConfigFileExtension
	override = prefix + ConfigFileBaseName + ConfigSeparator + runtime + ConfigFileExtension
	return base, override
}

// LoadConfig decodes the base file and then the runtime override into
// baseConfig. Missing files are skipped.
func LoadConfig(baseConfig interface{}) error {
	base, override := ConfigFiles()
	for _, name := range []string{base, override} {
		if !fileExists(name) {
			slog.Debug("configuration file not found", "file", name)
			continue
		}
		if _, err := toml.DecodeFile(name, baseConfig); err != nil {
			return fmt.Errorf("failed to decode configuration file %s: %w", name, err)
		}
		slog.Info("loaded configuration file", "file", name)
	}
	return nil
}

// ContentGenerator is the generation surface of QuotaAwareGenerativeAIModel.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, content []*genai.Content) (*genai.GenerateContentResponse, error)
}

// GenerateMultiModalResponse sends content to model, retrying up to
// MaxRetries times with exponential backoff. It stops early when ctx is done.
// The returned text is the concatenation of every candidate part.
func GenerateMultiModalResponse(
	ctx context.Context,
	inputTokenCounter metric.Int64Counter,
	outputTokenCounter metric.Int64Counter,
	retryCounter metric.Int64Counter,
	model ContentGenerator,
	content []*genai.Content) (string, error) {

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = RetryInterval
	b.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(b, MaxRetries), ctx)

	attempt := 0
	var resp *genai.GenerateContentResponse
	err := backoff.Retry(func() error {
		if attempt > 0 {
			retryCounter.Add(ctx, 1)
		}
		attempt++
		var err error
		resp, err = model.GenerateContent(ctx, content)
		if err != nil && ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		return err
	}, policy)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", err
	}

	if resp.UsageMetadata != nil {
		inputTokenCounter.Add(ctx, int64(resp.UsageMetadata.PromptTokenCount))
		outputTokenCounter.Add(ctx, int64(resp.UsageMetadata.CandidatesTokenCount))
	}

	var value strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			value.WriteString(part.Text)
		}
	}
	return value.String(), nil
}

// NewTextPart returns a single text part.
func NewTextPart(in string) *genai.Part {
	return &genai.Part{Text: in}
}

// NewFileData returns a part referencing an uploaded file.
func NewFileData(uri string, mimeType string) *genai.Part {
	return &genai.Part{FileData: &genai.FileData{FileURI: uri, MIMEType: mimeType}}
}

// NewUserContent wraps parts in a single user turn.
func NewUserContent(parts ...*genai.Part) []*genai.Content {
	return []*genai.Content{{Role: "user", Parts: parts}}
}
