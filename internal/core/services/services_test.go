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

package services_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jaycherian/gcp-go-video-chat/internal/cloud"
	"github.com/jaycherian/gcp-go-video-chat/internal/core/model"
	"github.com/jaycherian/gcp-go-video-chat/internal/core/services"
	"github.com/jaycherian/gcp-go-video-chat/internal/core/workflow"
	"github.com/jaycherian/gcp-go-video-chat/internal/errs"
	"github.com/jaycherian/gcp-go-video-chat/internal/store"
	test "github.com/jaycherian/gcp-go-video-chat/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

// recordingSessions remembers the ids of created sessions.
type recordingSessions struct {
	*store.MemorySessionStore
	mu  sync.Mutex
	ids []string
}

func (r *recordingSessions) Create(ctx context.Context, session *model.Session) error {
	r.mu.Lock()
	r.ids = append(r.ids, session.ID)
	r.mu.Unlock()
	return r.MemorySessionStore.Create(ctx, session)
}

type fixture struct {
	clients  *test.FakeClients
	sessions *recordingSessions
	vectors  *store.MemoryVectorStore
	analysis *services.AnalysisService
	question *services.QuestionService
}

func newFixture(t *testing.T, config *cloud.Config) *fixture {
	t.Helper()
	f := &fixture{clients: test.NewFakeClients(config), sessions: &recordingSessions{MemorySessionStore: store.NewMemorySessionStore()}}
	f.vectors = store.NewMemoryVectorStore(f.clients.FakeEmbedder.Dimensions())

	analysis, err := workflow.NewVideoAnalysisWorkflow(config, f.clients.ServiceClients, f.vectors, f.sessions)
	require.NoError(t, err)
	qa, err := workflow.NewQuestionAnswerWorkflow(config, f.clients.ServiceClients, f.vectors)
	require.NoError(t, err)

	f.analysis = services.NewAnalysisService(analysis, f.sessions)
	f.question = services.NewQuestionService(qa, f.sessions)
	return f
}

func writeVideo(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("not really a video"), 0o600))
	return path
}

// promptParts splits a rendered answer prompt into its context and question.
func promptParts(prompt string) (string, string) {
	_, rest, _ := strings.Cut(prompt, "Context: ")
	context, question, _ := strings.Cut(rest, "Question : ")
	return strings.TrimSpace(context), strings.TrimSpace(question)
}

// groundedReply answers with the first context sentence mentioning the last
// word of the question.
func groundedReply(prompt string) string {
	context, question := promptParts(prompt)
	words := strings.Fields(strings.ToLower(question))
	if len(words) == 0 {
		return model.RefusalPhrase
	}
	keyword := strings.Trim(words[len(words)-1], "?.")
	for _, sentence := range strings.SplitAfter(context, ".") {
		if strings.Contains(strings.ToLower(sentence), keyword) {
			return strings.TrimSpace(sentence)
		}
	}
	return model.RefusalPhrase
}

func TestAnalyzeThenAsk(t *testing.T) {
	f := newFixture(t, test.GetConfig())
	f.clients.FakeGenerator.Text = "A red convertible drives along the coast. The driver photographs a lighthouse."
	f.clients.FakeChat.Reply = groundedReply

	result, err := f.analysis.Analyze(t.Context(), []string{writeVideo(t, "clip.mp4")})
	require.NoError(t, err)
	assert.Len(t, result.Namespace, model.NamespaceLength)
	assert.Equal(t, []string{f.clients.FakeGenerator.Text}, result.Descriptions)

	session, err := f.question.Session(t.Context(), result.SessionID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionReady, session.Status)
	assert.Equal(t, result.Namespace, session.Namespace)

	answer, err := f.question.Ask(t.Context(), result.SessionID, "what does the driver photograph, a lighthouse?")
	require.NoError(t, err)
	assert.Equal(t, result.SessionID, answer.SessionID)
	assert.Equal(t, "The driver photographs a lighthouse.", answer.Answer)

	answer, err = f.question.Ask(t.Context(), result.SessionID, "who won the election")
	require.NoError(t, err)
	assert.Equal(t, model.RefusalPhrase, answer.Answer)
}

func TestAskWithoutSession(t *testing.T) {
	f := newFixture(t, test.GetConfig())

	_, err := f.question.Ask(t.Context(), "6a1e1a7e-0000-0000-0000-000000000000", "anything")
	assert.ErrorIs(t, err, errs.ErrSessionNotFound)
	assert.Equal(t, 404, errs.KindOf(err).HttpStatus())

	_, err = f.question.Ask(t.Context(), "", "anything")
	assert.Equal(t, errs.KindInvalidRequest, errs.KindOf(err))

	_, err = f.question.Ask(t.Context(), "some-id", "  ")
	assert.Equal(t, errs.KindInvalidRequest, errs.KindOf(err))
	assert.Empty(t, f.clients.FakeChat.Prompts)
}

func TestAskBeforeSessionIsReady(t *testing.T) {
	f := newFixture(t, test.GetConfig())
	session := model.NewSession([]string{"clip.mp4"})
	session.Transition(model.SessionUploading)
	require.NoError(t, f.sessions.Create(t.Context(), session))

	_, err := f.question.Ask(t.Context(), session.ID, "anything")
	assert.ErrorIs(t, err, errs.ErrSessionNotReady)
}

func TestConcurrentAnalysesAreIsolated(t *testing.T) {
	f := newFixture(t, test.GetConfig())
	descriptions := map[string]string{
		"car.mp4":  "A red car waits at a crossing.",
		"boat.mp4": "A blue boat leaves the harbour.",
	}
	f.clients.FakeGenerator.Reply = func(content []*genai.Content) string {
		file := f.clients.FakeFiles.ByURI(content[0].Parts[0].FileData.FileURI)
		return descriptions[file.DisplayName]
	}
	// Echo the retrieved context so the test can see what was searched.
	f.clients.FakeChat.Reply = func(prompt string) string {
		context, _ := promptParts(prompt)
		return context
	}

	results := make(map[string]*model.AnalysisResult)
	var mu sync.Mutex
	var wg sync.WaitGroup
	for name := range descriptions {
		path := writeVideo(t, name)
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := f.analysis.Analyze(context.Background(), []string{path})
			assert.NoError(t, err)
			mu.Lock()
			results[name] = result
			mu.Unlock()
		}()
	}
	wg.Wait()
	require.Len(t, results, 2)
	require.NotEqual(t, results["car.mp4"].Namespace, results["boat.mp4"].Namespace)

	for name, result := range results {
		answer, err := f.question.Ask(t.Context(), result.SessionID, "what is in the video")
		require.NoError(t, err)
		assert.Equal(t, descriptions[name], answer.Answer)
	}
}

func TestAnalyzeRejectsOversizedBatch(t *testing.T) {
	f := newFixture(t, test.GetConfig())
	f.analysis.MaxVideos = 2

	paths := []string{writeVideo(t, "a.mp4"), writeVideo(t, "b.mp4"), writeVideo(t, "c.mp4")}
	_, err := f.analysis.Analyze(t.Context(), paths)
	assert.ErrorIs(t, err, errs.ErrInvalidRequest)
	assert.Empty(t, f.sessions.ids)
	assert.Empty(t, f.clients.FakeFiles.Uploaded)

	result, err := f.analysis.Analyze(t.Context(), paths[:2])
	require.NoError(t, err)
	assert.Len(t, result.Descriptions, 2)
}

func TestAnalyzeActivationTimeout(t *testing.T) {
	config := *test.GetConfig()
	config.Ingestion.ActivationTimeoutSecs = 1
	f := newFixture(t, &config)
	f.clients.FakeFiles.PendingPolls = 1 << 30

	start := time.Now()
	_, err := f.analysis.Analyze(t.Context(), []string{writeVideo(t, "clip.mp4")})
	assert.ErrorIs(t, err, errs.ErrActivationTimeout)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Zero(t, f.clients.FakeGenerator.Calls)
}

func TestAnalyzeCanceled(t *testing.T) {
	f := newFixture(t, test.GetConfig())
	f.clients.FakeFiles.PendingPolls = 1 << 30

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := f.analysis.Analyze(ctx, []string{writeVideo(t, "clip.mp4")})
	assert.ErrorIs(t, err, errs.ErrCanceled)
}

func TestAnalyzeAbortsBatchOnFirstFailure(t *testing.T) {
	f := newFixture(t, test.GetConfig())
	missing := filepath.Join(t.TempDir(), "missing.mp4")

	result, err := f.analysis.Analyze(t.Context(), []string{writeVideo(t, "clip.mp4"), missing, writeVideo(t, "never.mp4")})
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Equal(t, errs.KindInvalidRequest, errs.KindOf(err))
	assert.Equal(t, 1, f.clients.FakeGenerator.Calls)
	assert.Len(t, f.clients.FakeFiles.Uploaded, 1)
}

func TestAnalyzeMarksSessionFailed(t *testing.T) {
	f := newFixture(t, test.GetConfig())
	f.clients.FakeFiles.FinalState = genai.FileStateFailed

	_, err := f.analysis.Analyze(t.Context(), []string{writeVideo(t, "clip.mp4")})
	require.ErrorIs(t, err, errs.ErrActivation)

	// The failed session is the only one in the store.
	var failed *model.Session
	require.Len(t, f.sessions.ids, 1)
	for _, id := range f.sessions.ids {
		s, err := f.question.Session(t.Context(), id)
		require.NoError(t, err)
		failed = s
	}
	require.NotNil(t, failed)
	assert.Equal(t, model.SessionFailed, failed.Status)
	assert.NotEmpty(t, failed.Error)

	_, err = f.question.Ask(t.Context(), failed.ID, "anything")
	assert.ErrorIs(t, err, errs.ErrSessionNotReady)
}

func TestAnalyzeRejectsEmptyBatch(t *testing.T) {
	f := newFixture(t, test.GetConfig())

	_, err := f.analysis.Analyze(t.Context(), nil)
	assert.Equal(t, errs.KindInvalidRequest, errs.KindOf(err))
	_, err = f.analysis.Analyze(t.Context(), []string{"clip.mp4", " "})
	assert.Equal(t, errs.KindInvalidRequest, errs.KindOf(err))
}
