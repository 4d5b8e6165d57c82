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

package store_test

import (
	"context"
	"sync"
	"testing"

	"github.com/jaycherian/gcp-go-video-chat/internal/core/model"
	"github.com/jaycherian/gcp-go-video-chat/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chunks(texts ...string) []*model.Chunk {
	out := make([]*model.Chunk, len(texts))
	for i, t := range texts {
		out[i] = &model.Chunk{Index: i, Text: t}
	}
	return out
}

func TestMemoryVectorStoreSearchOrder(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryVectorStore(3)
	require.NoError(t, s.Add(ctx, "ns", chunks("x", "y", "xy"), [][]float32{{1, 0, 0}, {0, 1, 0}, {1, 1, 0}}))

	matches, err := s.Search(ctx, "ns", []float32{1, 0.1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "x", matches[0].Text)
	assert.Equal(t, "xy", matches[1].Text)
	assert.Greater(t, matches[0].Score, matches[1].Score)
}

func TestMemoryVectorStoreNamespacesAreIsolated(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryVectorStore(2)
	require.NoError(t, s.Add(ctx, "a", chunks("from a"), [][]float32{{1, 0}}))
	require.NoError(t, s.Add(ctx, "b", chunks("from b"), [][]float32{{1, 0}}))

	matches, err := s.Search(ctx, "a", []float32{1, 0}, 10)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "from a", matches[0].Text)

	matches, err = s.Search(ctx, "missing", []float32{1, 0}, 10)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestMemoryVectorStoreIsAppendOnly(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryVectorStore(2)
	require.NoError(t, s.Add(ctx, "ns", chunks("one"), [][]float32{{1, 0}}))
	require.NoError(t, s.Add(ctx, "ns", chunks("two"), [][]float32{{0, 1}}))
	assert.Equal(t, 2, s.Len("ns"))
}

func TestMemoryVectorStoreRejectsBadBatches(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryVectorStore(2)
	assert.ErrorIs(t, s.Add(ctx, "ns", chunks("a"), [][]float32{{1, 0, 0}}), store.ErrDimensionMismatch)
	assert.Error(t, s.Add(ctx, "ns", chunks("a", "b"), [][]float32{{1, 0}}))
	_, err := s.Search(ctx, "ns", []float32{1}, 1)
	assert.ErrorIs(t, err, store.ErrDimensionMismatch)
}

func TestMemoryVectorStoreConcurrentAdds(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryVectorStore(2)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Add(ctx, "ns", chunks("c"), [][]float32{{1, 1}})
			_, _ = s.Search(ctx, "ns", []float32{1, 1}, 4)
		}()
	}
	wg.Wait()
	assert.Equal(t, 20, s.Len("ns"))
}

func TestMemorySessionStore(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemorySessionStore()

	_, err := s.Get(ctx, "nope")
	assert.ErrorIs(t, err, store.ErrSessionNotFound)

	session := model.NewSession([]string{"a.mp4"})
	require.NoError(t, s.Create(ctx, session))

	// Mutating the caller's copy does not leak into the store.
	session.Videos[0] = "changed.mp4"
	got, err := s.Get(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.mp4"}, got.Videos)
	assert.Equal(t, model.SessionIdle, got.Status)

	got.Transition(model.SessionReady)
	require.NoError(t, s.Update(ctx, got))
	got, err = s.Get(ctx, session.ID)
	require.NoError(t, err)
	assert.True(t, got.IsReady())

	assert.ErrorIs(t, s.Update(ctx, model.NewSession(nil)), store.ErrSessionNotFound)
}
