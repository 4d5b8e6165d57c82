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

package test

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"sync"

	"github.com/jaycherian/gcp-go-video-chat/internal/cloud"
	"google.golang.org/genai"
)

// FakeFileService is an in-memory cloud.FileService. Each uploaded file
// reports PROCESSING for PendingPolls Get calls and then FinalState.
type FakeFileService struct {
	mu           sync.Mutex
	PendingPolls int
	FinalState   genai.FileState
	UploadErr    error
	GetErr       error // Returned by every Get when set.
	files        map[string]*genai.File
	polls        map[string]int
	Deleted      []string
	Uploaded     []string
}

func NewFakeFileService() *FakeFileService {
	return &FakeFileService{
		FinalState: genai.FileStateActive,
		files:      make(map[string]*genai.File),
		polls:      make(map[string]int),
	}
}

func (f *FakeFileService) UploadFromPath(_ context.Context, path string, config *genai.UploadFileConfig) (*genai.File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.UploadErr != nil {
		return nil, f.UploadErr
	}
	name := fmt.Sprintf("files/%d", len(f.files)+1)
	file := &genai.File{
		Name:  name,
		URI:   "https://generativelanguage.googleapis.com/v1beta/" + name,
		State: genai.FileStateProcessing,
	}
	if config != nil {
		file.MIMEType = config.MIMEType
		file.DisplayName = config.DisplayName
	}
	f.files[name] = file
	f.Uploaded = append(f.Uploaded, path)
	return file, nil
}

func (f *FakeFileService) Get(_ context.Context, name string, _ *genai.GetFileConfig) (*genai.File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.GetErr != nil {
		return nil, f.GetErr
	}
	file, ok := f.files[name]
	if !ok {
		return nil, fmt.Errorf("file %s not found", name)
	}
	f.polls[name]++
	out := *file
	if f.polls[name] > f.PendingPolls {
		out.State = f.FinalState
	}
	return &out, nil
}

func (f *FakeFileService) Delete(_ context.Context, name string, _ *genai.DeleteFileConfig) (*genai.DeleteFileResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.files, name)
	f.Deleted = append(f.Deleted, name)
	return &genai.DeleteFileResponse{}, nil
}

// ByURI returns the uploaded file whose URI is uri, or nil.
func (f *FakeFileService) ByURI(uri string) *genai.File {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, file := range f.files {
		if file.URI == uri {
			out := *file
			return &out
		}
	}
	return nil
}

// Polls returns how many times name was polled.
func (f *FakeFileService) Polls(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.polls[name]
}

// FakeGenerator is a cloud.ContentGenerator returning a fixed text, or the
// output of Reply when set. The first FailTimes calls fail with Err.
type FakeGenerator struct {
	mu        sync.Mutex
	Text      string
	Reply     func(content []*genai.Content) string
	FailTimes int
	Err       error
	Calls     int
	Requests  [][]*genai.Content
}

func (g *FakeGenerator) GenerateContent(ctx context.Context, content []*genai.Content) (*genai.GenerateContentResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Calls++
	g.Requests = append(g.Requests, content)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if g.Calls <= g.FailTimes {
		return nil, g.Err
	}
	text := g.Text
	if g.Reply != nil {
		text = g.Reply(content)
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Role: "model", Parts: []*genai.Part{{Text: text}}},
		}},
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{PromptTokenCount: 10, CandidatesTokenCount: 5},
	}, nil
}

// FakeEmbedder hashes words into a small bag-of-words vector, so texts
// sharing words score higher under cosine similarity.
type FakeEmbedder struct {
	Dims int
	Err  error
}

var _ cloud.Embedder = (*FakeEmbedder)(nil)

func (e *FakeEmbedder) Dimensions() int {
	if e.Dims <= 0 {
		return 16
	}
	return e.Dims
}

func (e *FakeEmbedder) vector(text string) []float32 {
	v := make([]float32, e.Dimensions())
	for _, w := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(strings.Trim(w, ".,!?")))
		v[h.Sum32()%uint32(len(v))]++
	}
	var norm float64
	for _, x := range v {
		norm += float64(x * x)
	}
	if norm == 0 {
		v[0] = 1
		return v
	}
	n := float32(math.Sqrt(norm))
	for i := range v {
		v[i] /= n
	}
	return v
}

func (e *FakeEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	if e.Err != nil {
		return nil, e.Err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.vector(t)
	}
	return out, nil
}

func (e *FakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	v, err := e.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return v[0], nil
}

// FakeChatModel records prompts and returns Answer, or the output of Reply
// when set.
type FakeChatModel struct {
	mu      sync.Mutex
	Answer  string
	Reply   func(prompt string) string
	Err     error
	Prompts []string
}

var _ cloud.ChatCompleter = (*FakeChatModel)(nil)

func (m *FakeChatModel) Complete(_ context.Context, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Prompts = append(m.Prompts, prompt)
	if m.Err != nil {
		return "", m.Err
	}
	if m.Reply != nil {
		return m.Reply(prompt), nil
	}
	return m.Answer, nil
}

// FakeClients is a cloud.ServiceClients backed by fakes. The agent model is
// registered under the configured agent model key.
type FakeClients struct {
	*cloud.ServiceClients
	FakeFiles     *FakeFileService
	FakeGenerator *FakeGenerator
	FakeEmbedder  *FakeEmbedder
	FakeChat      *FakeChatModel
}

func NewFakeClients(config *cloud.Config) *FakeClients {
	out := &FakeClients{
		FakeFiles:     NewFakeFileService(),
		FakeGenerator: &FakeGenerator{Text: "A short video."},
		FakeEmbedder:  &FakeEmbedder{Dims: 1024},
		FakeChat:      &FakeChatModel{Answer: "ok"},
	}
	out.ServiceClients = &cloud.ServiceClients{
		Files:       out.FakeFiles,
		AgentModels: map[string]cloud.ContentGenerator{config.Application.AgentModel: out.FakeGenerator},
		Embedder:    out.FakeEmbedder,
		AnswerModel: out.FakeChat,
	}
	return out
}
