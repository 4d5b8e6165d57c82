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

package store

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/jaycherian/gcp-go-video-chat/internal/core/model"
)

type memoryEntry struct {
	chunk  model.Chunk
	vector []float32
	norm   float64
}

// MemoryVectorStore is a brute-force cosine index kept in process memory.
type MemoryVectorStore struct {
	mu         sync.RWMutex
	dims       int
	namespaces map[string][]memoryEntry
}

// NewMemoryVectorStore returns an empty index. A dims of zero accepts any
// vector size.
func NewMemoryVectorStore(dims int) *MemoryVectorStore {
	return &MemoryVectorStore{dims: dims, namespaces: make(map[string][]memoryEntry)}
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func (s *MemoryVectorStore) Add(_ context.Context, namespace string, chunks []*model.Chunk, vectors [][]float32) error {
	if err := checkBatch(chunks, vectors, s.dims); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range chunks {
		v := append([]float32(nil), vectors[i]...)
		s.namespaces[namespace] = append(s.namespaces[namespace], memoryEntry{chunk: *c, vector: v, norm: norm(v)})
	}
	return nil
}

func (s *MemoryVectorStore) Search(_ context.Context, namespace string, vector []float32, k int) ([]*model.Match, error) {
	if s.dims > 0 && len(vector) != s.dims {
		return nil, ErrDimensionMismatch
	}
	if k <= 0 {
		return nil, nil
	}
	qn := norm(vector)

	s.mu.RLock()
	entries := s.namespaces[namespace]
	matches := make([]*model.Match, 0, len(entries))
	for _, e := range entries {
		if len(e.vector) != len(vector) {
			continue
		}
		var dot float64
		for i := range vector {
			dot += float64(vector[i]) * float64(e.vector[i])
		}
		var score float64
		if qn > 0 && e.norm > 0 {
			score = dot / (qn * e.norm)
		}
		matches = append(matches, &model.Match{Chunk: e.chunk, Score: float32(score)})
	}
	s.mu.RUnlock()

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// Len returns the number of chunks stored under namespace.
func (s *MemoryVectorStore) Len(namespace string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.namespaces[namespace])
}

// MemorySessionStore keeps sessions for the life of the process.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*model.Session
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]*model.Session)}
}

func clone(s *model.Session) *model.Session {
	out := *s
	out.Videos = append([]string(nil), s.Videos...)
	return &out
}

func (m *MemorySessionStore) Create(_ context.Context, session *model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.ID] = clone(session)
	return nil
}

func (m *MemorySessionStore) Get(_ context.Context, id string) (*model.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return clone(s), nil
}

func (m *MemorySessionStore) Update(_ context.Context, session *model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[session.ID]; !ok {
		return ErrSessionNotFound
	}
	m.sessions[session.ID] = clone(session)
	return nil
}
