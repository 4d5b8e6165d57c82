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
	"errors"
	"testing"

	"github.com/jaycherian/gcp-go-video-chat/internal/core/model"
	"github.com/jaycherian/gcp-go-video-chat/internal/store"
	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeMilvus records the calls the vector store makes. Methods it does not
// override panic through the nil embedded interface.
type fakeMilvus struct {
	client.Client

	exists  bool
	created *entity.Schema
	index   entity.Index
	loaded  int

	inserted []entity.Column

	expr    string
	outputs []string
	topK    int
	metric  entity.MetricType
	vectors []entity.Vector
	results []client.SearchResult
	err     error
}

func (f *fakeMilvus) HasCollection(_ context.Context, _ string) (bool, error) {
	return f.exists, nil
}

func (f *fakeMilvus) CreateCollection(_ context.Context, schema *entity.Schema, _ int32, _ ...client.CreateCollectionOption) error {
	f.created = schema
	f.exists = true
	return nil
}

func (f *fakeMilvus) CreateIndex(_ context.Context, _ string, _ string, idx entity.Index, _ bool, _ ...client.IndexOption) error {
	f.index = idx
	return nil
}

func (f *fakeMilvus) LoadCollection(_ context.Context, _ string, _ bool, _ ...client.LoadCollectionOption) error {
	f.loaded++
	return nil
}

func (f *fakeMilvus) Insert(_ context.Context, _ string, _ string, columns ...entity.Column) (entity.Column, error) {
	f.inserted = columns
	return nil, f.err
}

func (f *fakeMilvus) Search(_ context.Context, _ string, _ []string, expr string, outputFields []string,
	vectors []entity.Vector, _ string, metricType entity.MetricType, topK int, _ entity.SearchParam,
	_ ...client.SearchQueryOptionFunc) ([]client.SearchResult, error) {
	f.expr = expr
	f.outputs = outputFields
	f.topK = topK
	f.metric = metricType
	f.vectors = vectors
	return f.results, f.err
}

func newMilvusStore(t *testing.T, mc *fakeMilvus) *store.MilvusVectorStore {
	t.Helper()
	vs, err := store.NewMilvusVectorStore(context.Background(), mc, store.MilvusOptions{Collection: "chunks", Dimensions: 3})
	require.NoError(t, err)
	return vs
}

func TestMilvusCreatesCollectionOnce(t *testing.T) {
	mc := &fakeMilvus{}
	newMilvusStore(t, mc)
	require.NotNil(t, mc.created)
	assert.Equal(t, "chunks", mc.created.CollectionName)
	require.NotNil(t, mc.index)
	assert.Equal(t, entity.HNSW, mc.index.IndexType())
	assert.Equal(t, 1, mc.loaded)

	existing := &fakeMilvus{exists: true}
	newMilvusStore(t, existing)
	assert.Nil(t, existing.created)
	assert.Nil(t, existing.index)
	assert.Equal(t, 1, existing.loaded)

	_, err := store.NewMilvusVectorStore(context.Background(), &fakeMilvus{}, store.MilvusOptions{Collection: "chunks"})
	assert.Error(t, err)
}

func TestMilvusAddColumns(t *testing.T) {
	mc := &fakeMilvus{}
	vs := newMilvusStore(t, mc)

	err := vs.Add(context.Background(), "ns01", []*model.Chunk{
		{Index: 0, Text: "a red car", Start: 0, End: 9, Source: "a.mp4"},
		{Index: 1, Text: "a blue boat", Start: 7, End: 18, Source: "a.mp4"},
	}, [][]float32{{1, 0, 0}, {0, 1, 0}})
	require.NoError(t, err)

	cols := map[string]entity.Column{}
	for _, c := range mc.inserted {
		cols[c.Name()] = c
	}
	require.Len(t, cols, 7)
	assert.Equal(t, []string{"ns01", "ns01"}, cols["namespace"].(*entity.ColumnVarChar).Data())
	assert.Equal(t, []string{"a red car", "a blue boat"}, cols["content"].(*entity.ColumnVarChar).Data())
	assert.Equal(t, []int64{0, 1}, cols["chunk_index"].(*entity.ColumnInt64).Data())
	assert.Equal(t, []int64{9, 18}, cols["end_offset"].(*entity.ColumnInt64).Data())
	assert.Equal(t, []string{"a.mp4", "a.mp4"}, cols["source"].(*entity.ColumnVarChar).Data())
	assert.Equal(t, [][]float32{{1, 0, 0}, {0, 1, 0}}, cols["vector"].(*entity.ColumnFloatVector).Data())

	mc.inserted = nil
	require.NoError(t, vs.Add(context.Background(), "ns01", nil, nil))
	assert.Nil(t, mc.inserted)

	err = vs.Add(context.Background(), "ns01", []*model.Chunk{{Text: "x"}}, [][]float32{{1, 0}})
	assert.ErrorIs(t, err, store.ErrDimensionMismatch)
}

func TestMilvusSearch(t *testing.T) {
	mc := &fakeMilvus{results: []client.SearchResult{{
		ResultCount: 2,
		Scores:      []float32{0.9, 0.4},
		Fields: client.ResultSet{
			entity.NewColumnVarChar("source", []string{"a.mp4", "b.mp4"}),
			entity.NewColumnInt64("chunk_index", []int64{3, 0}),
			entity.NewColumnInt64("start_offset", []int64{120, 0}),
			entity.NewColumnInt64("end_offset", []int64{180, 60}),
			entity.NewColumnVarChar("content", []string{"a blue boat", "a red car"}),
		},
	}}}
	vs := newMilvusStore(t, mc)

	matches, err := vs.Search(context.Background(), "ns01", []float32{0, 1, 0}, 4)
	require.NoError(t, err)

	assert.Equal(t, `namespace == "ns01"`, mc.expr)
	assert.Equal(t, 4, mc.topK)
	assert.Equal(t, entity.COSINE, mc.metric)
	assert.ElementsMatch(t, []string{"source", "chunk_index", "start_offset", "end_offset", "content"}, mc.outputs)
	require.Len(t, mc.vectors, 1)
	assert.Equal(t, entity.FloatVector([]float32{0, 1, 0}), mc.vectors[0])

	require.Len(t, matches, 2)
	assert.Equal(t, &model.Match{
		Chunk: model.Chunk{Index: 3, Text: "a blue boat", Start: 120, End: 180, Source: "a.mp4"},
		Score: 0.9,
	}, matches[0])
	assert.Equal(t, "a red car", matches[1].Text)
	assert.Equal(t, "b.mp4", matches[1].Source)
	assert.Equal(t, 0, matches[1].Index)
}

func TestMilvusSearchEscapesNamespace(t *testing.T) {
	mc := &fakeMilvus{}
	vs := newMilvusStore(t, mc)

	_, err := vs.Search(context.Background(), `a"b`, []float32{1, 0, 0}, 1)
	require.NoError(t, err)
	assert.Equal(t, `namespace == "a\"b"`, mc.expr)
}

func TestMilvusSearchEdges(t *testing.T) {
	mc := &fakeMilvus{}
	vs := newMilvusStore(t, mc)

	_, err := vs.Search(context.Background(), "ns01", []float32{1, 0}, 2)
	assert.ErrorIs(t, err, store.ErrDimensionMismatch)

	matches, err := vs.Search(context.Background(), "ns01", []float32{1, 0, 0}, 0)
	require.NoError(t, err)
	assert.Empty(t, matches)
	assert.Zero(t, mc.topK)

	mc.err = errors.New("unavailable")
	_, err = vs.Search(context.Background(), "ns01", []float32{1, 0, 0}, 2)
	assert.ErrorIs(t, err, mc.err)
}
