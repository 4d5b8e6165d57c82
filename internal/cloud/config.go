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

// Package cloud defines the application configuration, loaded from TOML
// files with secrets overlaid from the environment, and the clients for the
// external services the pipelines call.
//
// Structs:
//   - PromptTemplates: The text sent to the description and answer models.
//   - GeminiModel: A multimodal model used to describe videos.
//   - EmbeddingModel: A text embedding model.
//   - ChatModel: A chat-completion model used to answer questions.
//   - Ingestion: Upload and activation polling settings.
//   - VectorStore: Which vector index backend to use and how to reach it.
//   - Config: The root of all configuration.
package cloud

import (
	"time"

	"google.golang.org/genai"
)

// DefaultSafetySettings leaves every harm category unblocked. Descriptions of
// arbitrary user video would otherwise come back empty.
var DefaultSafetySettings = []*genai.SafetySetting{
	{
		Category:  genai.HarmCategoryDangerousContent,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategoryHarassment,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategoryHateSpeech,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategorySexuallyExplicit,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
}

// Vector store backends.
const (
	VectorStoreMemory   = "memory"
	VectorStorePgVector = "pgvector"
	VectorStoreMilvus   = "milvus"
)

// Embedding providers.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// PromptTemplates holds the prompts. Answer is a Go text/template rendered
// with .Context and .Question.
type PromptTemplates struct {
	Description string `toml:"description"`
	Answer      string `toml:"answer"`
}

// GeminiModel configures a generative model used for video description.
type GeminiModel struct {
	Model              string  `toml:"model"`               // e.g. "gemini-2.5-flash".
	SystemInstructions string  `toml:"system_instructions"` // Optional system instruction.
	Temperature        float32 `toml:"temperature"`
	TopP               float32 `toml:"top_p"`
	TopK               float32 `toml:"top_k"`
	MaxTokens          int32   `toml:"max_tokens"`
	OutputFormat       string  `toml:"output_format"` // Response MIME type, "text/plain" for descriptions.
	RateLimit          int     `toml:"rate_limit"`    // Requests per second (burst).
}

// EmbeddingModel configures a text embedding model.
type EmbeddingModel struct {
	Provider             string `toml:"provider"` // "openai" or "gemini".
	Model                string `toml:"model"`
	Dimensions           int    `toml:"dimensions"`
	MaxRequestsPerMinute int    `toml:"max_requests_per_minute"`
}

// ChatModel configures a chat-completion model used for answers.
type ChatModel struct {
	Model       string  `toml:"model"`
	Temperature float32 `toml:"temperature"`
	MaxTokens   int     `toml:"max_tokens"`
	RateLimit   int     `toml:"rate_limit"` // Requests per second (burst).
}

// TopicSubscription is a Pub/Sub subscription that triggers analyses.
type TopicSubscription struct {
	Name             string `toml:"name"`
	DeadLetterTopic  string `toml:"dead_letter_topic"`
	TimeoutInSeconds int    `toml:"timeout_in_seconds"`
}

// Storage configures GCS access for gs:// inputs.
type Storage struct {
	Enabled        bool   `toml:"enabled"`
	InputBucket    string `toml:"input_bucket"`     // Bucket whose finalize events trigger analysis.
	TempFilePrefix string `toml:"temp_file_prefix"` // Prefix for downloaded temp files.
}

// Ingestion configures upload and the wait for the ACTIVE state.
type Ingestion struct {
	PollInitialIntervalMs int     `toml:"poll_initial_interval_ms"`
	PollMaxIntervalMs     int     `toml:"poll_max_interval_ms"`
	PollMultiplier        float64 `toml:"poll_multiplier"`
	ActivationTimeoutSecs int     `toml:"activation_timeout_seconds"`
	DeleteUploadedMedia   bool    `toml:"delete_uploaded_media"`
}

// PollInitialInterval returns the first wait between status checks.
func (i Ingestion) PollInitialInterval() time.Duration {
	return time.Duration(i.PollInitialIntervalMs) * time.Millisecond
}

// PollMaxInterval caps the wait between status checks.
func (i Ingestion) PollMaxInterval() time.Duration {
	return time.Duration(i.PollMaxIntervalMs) * time.Millisecond
}

// ActivationTimeout bounds the whole wait.
func (i Ingestion) ActivationTimeout() time.Duration {
	return time.Duration(i.ActivationTimeoutSecs) * time.Second
}

// Chunking configures the description splitter.
type Chunking struct {
	ChunkSize    int `toml:"chunk_size"`
	ChunkOverlap int `toml:"chunk_overlap"`
}

// Retrieval configures the similarity search.
type Retrieval struct {
	TopK int `toml:"top_k"`
}

// VectorStore selects and configures the vector index.
type VectorStore struct {
	Kind             string `toml:"kind"` // "memory", "pgvector" or "milvus".
	Table            string `toml:"table"`
	Collection       string `toml:"collection"`
	RunMigrations    bool   `toml:"run_migrations"`
	MaxConns         int32  `toml:"max_conns"`
	DatabaseURL      string `toml:"-"`
	MilvusAddress    string `toml:"milvus_address"`
	MilvusUsername   string `toml:"-"`
	MilvusPassword   string `toml:"-"`
	MilvusAPIKey     string `toml:"-"`
	MilvusSearchEf   int    `toml:"milvus_search_ef"`
	MilvusShardCount int32  `toml:"milvus_shard_count"`
}

// OpenAI holds client settings shared by embedding and chat models.
type OpenAI struct {
	APIKey  string `toml:"-"`
	BaseURL string `toml:"base_url"`
}

// Config is the root configuration.
type Config struct {
	Application struct {
		Name            string `toml:"name"`
		GoogleProjectId string `toml:"google_project_id"`
		GoogleLocation  string `toml:"location"`
		GoogleAPIKey    string `toml:"-"`
		AgentModel      string `toml:"agent_model"`     // Key into AgentModels used for descriptions.
		EmbeddingModel  string `toml:"embedding_model"` // Key into EmbeddingModels.
		AnswerModel     string `toml:"answer_model"`    // Key into AnswerModels.
	} `toml:"application"`
	Server struct {
		Port                int `toml:"port"`
		ReadTimeoutSeconds  int `toml:"read_timeout_seconds"`
		WriteTimeoutSeconds int `toml:"write_timeout_seconds"`  // Allowance for generation and indexing.
		MaxVideosPerRequest int `toml:"max_videos_per_request"` // 0 allows any batch size.
	} `toml:"server"`
	Logging struct {
		Level string `toml:"level"`
		File  string `toml:"file"`
	} `toml:"logging"`
	Telemetry struct {
		Enabled bool `toml:"enabled"`
	} `toml:"telemetry"`
	Storage            Storage                      `toml:"storage"`
	Ingestion          Ingestion                    `toml:"ingestion"`
	Chunking           Chunking                     `toml:"chunking"`
	Retrieval          Retrieval                    `toml:"retrieval"`
	VectorStore        VectorStore                  `toml:"vector_store"`
	OpenAI             OpenAI                       `toml:"openai"`
	PromptTemplates    PromptTemplates              `toml:"prompt_templates"`
	TopicSubscriptions map[string]TopicSubscription `toml:"topic_subscriptions"`
	AgentModels        map[string]GeminiModel       `toml:"agent_models"`
	EmbeddingModels    map[string]EmbeddingModel    `toml:"embedding_models"`
	AnswerModels       map[string]ChatModel         `toml:"answer_models"`
}

// NewConfig returns a Config with its maps initialized and the defaults set
// that the TOML files may override.
func NewConfig() *Config {
	c := &Config{
		TopicSubscriptions: make(map[string]TopicSubscription),
		AgentModels:        make(map[string]GeminiModel),
		EmbeddingModels:    make(map[string]EmbeddingModel),
		AnswerModels:       make(map[string]ChatModel),
	}
	c.Application.Name = "video-chat"
	c.Application.AgentModel = "describer"
	c.Application.EmbeddingModel = "default"
	c.Application.AnswerModel = "default"
	c.Server.Port = 8080
	c.Server.ReadTimeoutSeconds = 20
	c.Server.WriteTimeoutSeconds = 600
	c.Server.MaxVideosPerRequest = 4
	c.Logging.Level = "info"
	c.Storage.TempFilePrefix = "video-source-"
	c.Ingestion = Ingestion{
		PollInitialIntervalMs: 2000,
		PollMaxIntervalMs:     10000,
		PollMultiplier:        1.5,
		ActivationTimeoutSecs: 300,
	}
	c.Chunking = Chunking{ChunkSize: 1000, ChunkOverlap: 200}
	c.Retrieval = Retrieval{TopK: 4}
	c.VectorStore = VectorStore{
		Kind:             VectorStoreMemory,
		Table:            "description_chunks",
		Collection:       "description_chunks",
		RunMigrations:    true,
		MaxConns:         10,
		MilvusAddress:    "localhost:19530",
		MilvusSearchEf:   74,
		MilvusShardCount: 2,
	}
	c.PromptTemplates = PromptTemplates{}
	return c
}

// HTTPWriteTimeout is the server write timeout: write_timeout_seconds plus
// one activation wait per video of the largest allowed batch. Without a
// batch limit no bound is safe, so it returns 0 and writes never time out.
func (c *Config) HTTPWriteTimeout() time.Duration {
	if c.Server.MaxVideosPerRequest <= 0 {
		return 0
	}
	return time.Duration(c.Server.WriteTimeoutSeconds)*time.Second +
		time.Duration(c.Server.MaxVideosPerRequest)*c.Ingestion.ActivationTimeout()
}

// GetAgentModel returns the configured description model.
func (c *Config) GetAgentModel() (GeminiModel, bool) {
	m, ok := c.AgentModels[c.Application.AgentModel]
	return m, ok
}

// GetEmbeddingModel returns the configured embedding model.
func (c *Config) GetEmbeddingModel() (EmbeddingModel, bool) {
	m, ok := c.EmbeddingModels[c.Application.EmbeddingModel]
	return m, ok
}

// GetAnswerModel returns the configured answer model.
func (c *Config) GetAnswerModel() (ChatModel, bool) {
	m, ok := c.AnswerModels[c.Application.AnswerModel]
	return m, ok
}
