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

// Package store persists description chunks and sessions.
//
// A VectorStore holds chunk embeddings partitioned by namespace; searches
// never cross namespaces. A SessionStore maps session ids to sessions. Both
// have an in-memory implementation, and Postgres (pgvector) and Milvus
// implementations selected by the vector_store.kind setting.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jaycherian/gcp-go-video-chat/internal/cloud"
	"github.com/jaycherian/gcp-go-video-chat/internal/core/model"
)

var (
	// ErrSessionNotFound is returned by SessionStore.Get for unknown ids.
	ErrSessionNotFound = errors.New("session not found")
	// ErrDimensionMismatch is returned when a vector does not match the index.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)

// VectorStore indexes chunk embeddings under a namespace.
type VectorStore interface {
	// Add appends chunks with their embeddings. vectors[i] belongs to chunks[i].
	Add(ctx context.Context, namespace string, chunks []*model.Chunk, vectors [][]float32) error
	// Search returns up to k chunks of namespace, best match first.
	Search(ctx context.Context, namespace string, vector []float32, k int) ([]*model.Match, error)
}

// SessionStore persists sessions by id.
type SessionStore interface {
	Create(ctx context.Context, session *model.Session) error
	Get(ctx context.Context, id string) (*model.Session, error)
	Update(ctx context.Context, session *model.Session) error
}

func checkBatch(chunks []*model.Chunk, vectors [][]float32, dims int) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("got %d chunks and %d vectors", len(chunks), len(vectors))
	}
	for i, v := range vectors {
		if dims > 0 && len(v) != dims {
			return fmt.Errorf("%w: vector %d has %d dimensions, index has %d", ErrDimensionMismatch, i, len(v), dims)
		}
	}
	return nil
}

// New builds the stores selected by config.VectorStore.Kind. dims is the
// embedding size. Postgres sessions are used with the pgvector backend;
// otherwise sessions live in memory.
func New(ctx context.Context, config *cloud.Config, clients *cloud.ServiceClients, dims int) (VectorStore, SessionStore, error) {
	switch config.VectorStore.Kind {
	case cloud.VectorStoreMemory, "":
		return NewMemoryVectorStore(dims), NewMemorySessionStore(), nil
	case cloud.VectorStorePgVector:
		if clients.PgPool == nil {
			return nil, nil, errors.New("pgvector store needs a database pool")
		}
		if config.VectorStore.RunMigrations {
			if err := Migrate(config.VectorStore.DatabaseURL); err != nil {
				return nil, nil, err
			}
		}
		vs, err := NewPgVectorStore(clients.PgPool, dims)
		if err != nil {
			return nil, nil, err
		}
		return vs, NewPgSessionStore(clients.PgPool), nil
	case cloud.VectorStoreMilvus:
		if clients.MilvusClient == nil {
			return nil, nil, errors.New("milvus store needs a client")
		}
		vs, err := NewMilvusVectorStore(ctx, clients.MilvusClient, MilvusOptions{
			Collection: config.VectorStore.Collection,
			Dimensions: dims,
			SearchEf:   config.VectorStore.MilvusSearchEf,
			ShardCount: config.VectorStore.MilvusShardCount,
		})
		if err != nil {
			return nil, nil, err
		}
		slog.Info("sessions are kept in memory with the milvus backend")
		return vs, NewMemorySessionStore(), nil
	}
	return nil, nil, fmt.Errorf("unknown vector store kind %q", config.VectorStore.Kind)
}
