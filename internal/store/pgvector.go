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
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jaycherian/gcp-go-video-chat/internal/core/model"
	"github.com/pgvector/pgvector-go"
)

// PgExecutor is the subset of *pgxpool.Pool the Postgres stores use.
type PgExecutor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ PgExecutor = (*pgxpool.Pool)(nil)

// PgVectorStore keeps chunks in the description_chunks table.
type PgVectorStore struct {
	db PgExecutor
}

// NewPgVectorStore returns a store over db. dims must match the schema.
func NewPgVectorStore(db PgExecutor, dims int) (*PgVectorStore, error) {
	if dims != PgDimensions {
		return nil, fmt.Errorf("%w: embedding model has %d dimensions, schema has %d", ErrDimensionMismatch, dims, PgDimensions)
	}
	return &PgVectorStore{db: db}, nil
}

const insertChunk = `
	INSERT INTO description_chunks (namespace, source, chunk_index, start_offset, end_offset, content, embedding)
	VALUES ($1, $2, $3, $4, $5, $6, $7)`

// Add inserts the batch in one transaction.
func (s *PgVectorStore) Add(ctx context.Context, namespace string, chunks []*model.Chunk, vectors [][]float32) (err error) {
	if err := checkBatch(chunks, vectors, PgDimensions); err != nil {
		return err
	}
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	batch := &pgx.Batch{}
	for i, c := range chunks {
		batch.Queue(insertChunk, namespace, c.Source, c.Index, c.Start, c.End, c.Text, pgvector.NewVector(vectors[i]))
	}
	results := tx.SendBatch(ctx, batch)
	for range chunks {
		if _, err = results.Exec(); err != nil {
			_ = results.Close()
			return fmt.Errorf("failed to insert chunk: %w", err)
		}
	}
	if err = results.Close(); err != nil {
		return fmt.Errorf("failed to insert chunks: %w", err)
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit chunks: %w", err)
	}
	return nil
}

// Search returns the k chunks of namespace closest to vector by cosine
// distance. The scan is exact over the namespace's rows.
func (s *PgVectorStore) Search(ctx context.Context, namespace string, vector []float32, k int) ([]*model.Match, error) {
	if len(vector) != PgDimensions {
		return nil, ErrDimensionMismatch
	}
	if k <= 0 {
		return nil, nil
	}
	vec := pgvector.NewVector(vector)
	rows, err := s.db.Query(ctx, `
		SELECT chunk_index, start_offset, end_offset, source, content,
		       1 - (embedding <=> $1) AS similarity
		FROM description_chunks
		WHERE namespace = $2
		ORDER BY embedding <=> $1
		LIMIT $3`, vec, namespace, k)
	if err != nil {
		return nil, fmt.Errorf("failed to search chunks: %w", err)
	}
	defer rows.Close()

	var matches []*model.Match
	for rows.Next() {
		m := &model.Match{}
		var similarity float64
		if err := rows.Scan(&m.Index, &m.Start, &m.End, &m.Source, &m.Text, &similarity); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		m.Score = float32(similarity)
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// PgSessionStore keeps sessions in the sessions table.
type PgSessionStore struct {
	db PgExecutor
}

func NewPgSessionStore(db PgExecutor) *PgSessionStore {
	return &PgSessionStore{db: db}
}

func videos(session *model.Session) []string {
	if session.Videos == nil {
		return []string{}
	}
	return session.Videos
}

func (s *PgSessionStore) Create(ctx context.Context, session *model.Session) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO sessions (id, namespace, status, videos, error, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		session.ID, session.Namespace, string(session.Status), videos(session), session.Error, session.CreatedAt, session.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (s *PgSessionStore) Get(ctx context.Context, id string) (*model.Session, error) {
	session := &model.Session{}
	var status string
	err := s.db.QueryRow(ctx, `
		SELECT id, namespace, status, videos, error, created_at, updated_at
		FROM sessions WHERE id = $1`, id,
	).Scan(&session.ID, &session.Namespace, &status, &session.Videos, &session.Error, &session.CreatedAt, &session.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	session.Status = model.SessionStatus(status)
	return session, nil
}

func (s *PgSessionStore) Update(ctx context.Context, session *model.Session) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE sessions SET status = $2, videos = $3, error = $4, updated_at = $5
		WHERE id = $1`,
		session.ID, string(session.Status), videos(session), session.Error, session.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}
