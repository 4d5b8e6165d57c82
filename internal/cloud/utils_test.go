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

package cloud_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jaycherian/gcp-go-video-chat/internal/cloud"
	test "github.com/jaycherian/gcp-go-video-chat/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

func counters(t *testing.T) (metric.Int64Counter, metric.Int64Counter, metric.Int64Counter) {
	t.Helper()
	meter := noop.NewMeterProvider().Meter("test")
	in, err := meter.Int64Counter("in")
	require.NoError(t, err)
	out, err := meter.Int64Counter("out")
	require.NoError(t, err)
	retry, err := meter.Int64Counter("retry")
	require.NoError(t, err)
	return in, out, retry
}

func withFastRetries(t *testing.T) {
	prev := cloud.RetryInterval
	cloud.RetryInterval = time.Millisecond
	t.Cleanup(func() { cloud.RetryInterval = prev })
}

func TestGenerateMultiModalResponseRetries(t *testing.T) {
	withFastRetries(t)
	in, out, retry := counters(t)
	gen := &test.FakeGenerator{Text: "a red car", FailTimes: 2, Err: errors.New("unavailable")}

	value, err := cloud.GenerateMultiModalResponse(context.Background(), in, out, retry, gen, cloud.NewUserContent(cloud.NewTextPart("describe")))
	require.NoError(t, err)
	assert.Equal(t, "a red car", value)
	assert.Equal(t, 3, gen.Calls)
}

func TestGenerateMultiModalResponseGivesUp(t *testing.T) {
	withFastRetries(t)
	in, out, retry := counters(t)
	boom := errors.New("unavailable")
	gen := &test.FakeGenerator{FailTimes: 100, Err: boom}

	_, err := cloud.GenerateMultiModalResponse(context.Background(), in, out, retry, gen, cloud.NewUserContent(cloud.NewTextPart("describe")))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, cloud.MaxRetries+1, gen.Calls)
}

func TestGenerateMultiModalResponseCanceled(t *testing.T) {
	withFastRetries(t)
	in, out, retry := counters(t)
	gen := &test.FakeGenerator{Text: "never"}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := cloud.GenerateMultiModalResponse(ctx, in, out, retry, gen, cloud.NewUserContent(cloud.NewTextPart("describe")))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, gen.Calls)
}

func TestLoadConfigOverlaysRuntimeFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env.toml"), []byte(`
[application]
name = "base"
agent_model = "describer"

[retrieval]
top_k = 4

[agent_models.describer]
model = "gemini-2.5-flash"
rate_limit = 2
`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env.unit.toml"), []byte(`
[retrieval]
top_k = 6
`), 0o600))
	t.Setenv(cloud.EnvConfigFilePrefix, dir)
	t.Setenv(cloud.EnvConfigRuntime, "unit")

	config := cloud.NewConfig()
	require.NoError(t, cloud.LoadConfig(config))
	assert.Equal(t, "base", config.Application.Name)
	assert.Equal(t, 6, config.Retrieval.TopK)
	assert.Equal(t, 1000, config.Chunking.ChunkSize)
	m, ok := config.GetAgentModel()
	require.True(t, ok)
	assert.Equal(t, "gemini-2.5-flash", m.Model)
}

func TestLoadConfigRejectsBadToml(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env.toml"), []byte("[application\n"), 0o600))
	t.Setenv(cloud.EnvConfigFilePrefix, dir)
	t.Setenv(cloud.EnvConfigRuntime, "unit")

	assert.Error(t, cloud.LoadConfig(cloud.NewConfig()))
}

func TestTestConfigLoads(t *testing.T) {
	config := test.GetConfig()
	_, ok := config.GetAgentModel()
	assert.True(t, ok)
	_, ok = config.GetEmbeddingModel()
	assert.True(t, ok)
	assert.Equal(t, cloud.VectorStoreMemory, config.VectorStore.Kind)
}

func TestHTTPWriteTimeoutCoversLargestBatch(t *testing.T) {
	config := cloud.NewConfig()
	assert.Equal(t, 1800*time.Second, config.HTTPWriteTimeout())

	config.Server.MaxVideosPerRequest = 10
	config.Ingestion.ActivationTimeoutSecs = 60
	assert.Equal(t, 1200*time.Second, config.HTTPWriteTimeout())

	config.Server.MaxVideosPerRequest = 0
	assert.Zero(t, config.HTTPWriteTimeout())
}
