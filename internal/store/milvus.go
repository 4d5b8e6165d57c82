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
	"fmt"
	"strings"

	"github.com/jaycherian/gcp-go-video-chat/internal/core/model"
	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

// Milvus field names.
const (
	milvusNamespace = "namespace"
	milvusSource    = "source"
	milvusIndex     = "chunk_index"
	milvusStart     = "start_offset"
	milvusEnd       = "end_offset"
	milvusContent   = "content"
	milvusVector    = "vector"
)

// MilvusOptions configures the collection.
type MilvusOptions struct {
	Collection string
	Dimensions int
	SearchEf   int
	ShardCount int32
}

// MilvusVectorStore keeps chunks in a Milvus collection with an HNSW cosine
// index. Namespaces are a filtered scalar field.
type MilvusVectorStore struct {
	mc   client.Client
	opts MilvusOptions
}

// NewMilvusVectorStore creates the collection and index when missing and
// loads the collection.
func NewMilvusVectorStore(ctx context.Context, mc client.Client, opts MilvusOptions) (*MilvusVectorStore, error) {
	if opts.Dimensions <= 0 {
		return nil, fmt.Errorf("milvus store needs a positive dimension, got %d", opts.Dimensions)
	}
	if opts.SearchEf <= 0 {
		opts.SearchEf = 74
	}
	if opts.ShardCount <= 0 {
		opts.ShardCount = 2
	}
	s := &MilvusVectorStore{mc: mc, opts: opts}
	if err := s.ensureSchemaAndIndex(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *MilvusVectorStore) ensureSchemaAndIndex(ctx context.Context) error {
	has, err := s.mc.HasCollection(ctx, s.opts.Collection)
	if err != nil {
		return fmt.Errorf("has collection: %w", err)
	}
	if !has {
		schema := entity.NewSchema().WithName(s.opts.Collection).WithDescription("video description chunks")
		schema.WithField(entity.NewField().WithName("id").WithIsAutoID(true).WithIsPrimaryKey(true).WithDataType(entity.FieldTypeInt64))
		schema.WithField(entity.NewField().WithName(milvusNamespace).WithDataType(entity.FieldTypeVarChar).WithMaxLength(64))
		schema.WithField(entity.NewField().WithName(milvusSource).WithDataType(entity.FieldTypeVarChar).WithMaxLength(2048))
		schema.WithField(entity.NewField().WithName(milvusIndex).WithDataType(entity.FieldTypeInt64))
		schema.WithField(entity.NewField().WithName(milvusStart).WithDataType(entity.FieldTypeInt64))
		schema.WithField(entity.NewField().WithName(milvusEnd).WithDataType(entity.FieldTypeInt64))
		schema.WithField(entity.NewField().WithName(milvusContent).WithDataType(entity.FieldTypeVarChar).WithMaxLength(8192))
		schema.WithField(entity.NewField().WithName(milvusVector).WithDataType(entity.FieldTypeFloatVector).WithDim(int64(s.opts.Dimensions)))

		if err := s.mc.CreateCollection(ctx, schema, s.opts.ShardCount); err != nil {
			return fmt.Errorf("create collection: %w", err)
		}
		idx, err := entity.NewIndexHNSW(entity.COSINE, 8, 200)
		if err != nil {
			return fmt.Errorf("new hnsw index: %w", err)
		}
		if err := s.mc.CreateIndex(ctx, s.opts.Collection, milvusVector, idx, false, client.WithIndexName("idx_vector")); err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	if err := s.mc.LoadCollection(ctx, s.opts.Collection, false); err != nil {
		return fmt.Errorf("load collection: %w", err)
	}
	return nil
}

func (s *MilvusVectorStore) Add(ctx context.Context, namespace string, chunks []*model.Chunk, vectors [][]float32) error {
	if err := checkBatch(chunks, vectors, s.opts.Dimensions); err != nil {
		return err
	}
	if len(chunks) == 0 {
		return nil
	}
	n := len(chunks)
	namespaces := make([]string, n)
	sources := make([]string, n)
	indexes := make([]int64, n)
	starts := make([]int64, n)
	ends := make([]int64, n)
	contents := make([]string, n)
	for i, c := range chunks {
		namespaces[i] = namespace
		sources[i] = c.Source
		indexes[i] = int64(c.Index)
		starts[i] = int64(c.Start)
		ends[i] = int64(c.End)
		contents[i] = c.Text
	}
	_, err := s.mc.Insert(ctx, s.opts.Collection, "",
		entity.NewColumnVarChar(milvusNamespace, namespaces),
		entity.NewColumnVarChar(milvusSource, sources),
		entity.NewColumnInt64(milvusIndex, indexes),
		entity.NewColumnInt64(milvusStart, starts),
		entity.NewColumnInt64(milvusEnd, ends),
		entity.NewColumnVarChar(milvusContent, contents),
		entity.NewColumnFloatVector(milvusVector, s.opts.Dimensions, vectors),
	)
	if err != nil {
		return fmt.Errorf("insert chunks: %w", err)
	}
	return nil
}

func namespaceFilter(namespace string) string {
	return fmt.Sprintf("%s == \"%s\"", milvusNamespace, strings.ReplaceAll(namespace, "\"", "\\\""))
}

func (s *MilvusVectorStore) Search(ctx context.Context, namespace string, vector []float32, k int) ([]*model.Match, error) {
	if len(vector) != s.opts.Dimensions {
		return nil, ErrDimensionMismatch
	}
	if k <= 0 {
		return nil, nil
	}
	sp, err := entity.NewIndexHNSWSearchParam(s.opts.SearchEf)
	if err != nil {
		return nil, fmt.Errorf("search param: %w", err)
	}
	results, err := s.mc.Search(ctx, s.opts.Collection, []string{}, namespaceFilter(namespace),
		[]string{milvusSource, milvusIndex, milvusStart, milvusEnd, milvusContent},
		[]entity.Vector{entity.FloatVector(vector)}, milvusVector, entity.COSINE, k, sp,
		client.WithSearchQueryConsistencyLevel(entity.ClStrong))
	if err != nil {
		return nil, fmt.Errorf("search chunks: %w", err)
	}

	var matches []*model.Match
	for _, r := range results {
		cols := map[string]entity.Column{}
		for _, c := range r.Fields {
			cols[c.Name()] = c
		}
		for i := 0; i < r.ResultCount; i++ {
			m := &model.Match{Score: r.Scores[i]}
			if c, ok := cols[milvusContent].(*entity.ColumnVarChar); ok && i < c.Len() {
				m.Text = c.Data()[i]
			}
			if c, ok := cols[milvusSource].(*entity.ColumnVarChar); ok && i < c.Len() {
				m.Source = c.Data()[i]
			}
			if c, ok := cols[milvusIndex].(*entity.ColumnInt64); ok && i < c.Len() {
				m.Index = int(c.Data()[i])
			}
			if c, ok := cols[milvusStart].(*entity.ColumnInt64); ok && i < c.Len() {
				m.Start = int(c.Data()[i])
			}
			if c, ok := cols[milvusEnd].(*entity.ColumnInt64); ok && i < c.Len() {
				m.End = int(c.Data()[i])
			}
			matches = append(matches, m)
		}
	}
	return matches, nil
}
