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

package chunking_test

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/jaycherian/gcp-go-video-chat/internal/core/chunking"
	"github.com/jaycherian/gcp-go-video-chat/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func description(paragraphs int) string {
	var sb strings.Builder
	for p := 0; p < paragraphs; p++ {
		if p > 0 {
			sb.WriteString("\n\n")
		}
		for s := 0; s < 12; s++ {
			fmt.Fprintf(&sb, "Scene %d shot %d: a café owner pours coffee while the camera pans left. ", p, s)
		}
	}
	return sb.String()
}

// checkChunks asserts the chunking invariants and that the chunks rebuild text.
func checkChunks(t *testing.T, text string, chunks []*model.Chunk, size, overlap int) {
	t.Helper()
	runes := []rune(text)
	require.NotEmpty(t, chunks)
	assert.Equal(t, 0, chunks[0].Start)
	assert.Equal(t, len(runes), chunks[len(chunks)-1].End)

	var rebuilt strings.Builder
	prevEnd := 0
	for i, c := range chunks {
		assert.Equal(t, i, c.Index)
		assert.LessOrEqual(t, utf8.RuneCountInString(c.Text), size, "chunk %d too long", i)
		assert.Equal(t, string(runes[c.Start:c.End]), c.Text)
		assert.NotEmpty(t, strings.TrimSpace(c.Text), "chunk %d is blank", i)
		if i > 0 {
			assert.LessOrEqual(t, c.Start, prevEnd, "gap before chunk %d", i)
			assert.Greater(t, c.End, prevEnd, "chunk %d makes no progress", i)
			assert.LessOrEqual(t, prevEnd-c.Start, overlap, "chunk %d overlaps too much", i)
			assert.True(t, strings.HasSuffix(chunks[i-1].Text, string(runes[c.Start:prevEnd])))
		}
		rebuilt.WriteString(string(runes[prevEnd:c.End]))
		prevEnd = c.End
	}
	assert.Equal(t, text, rebuilt.String())
}

func TestSplitShortTextIsOneChunk(t *testing.T) {
	s, err := chunking.NewRecursiveCharacterSplitter(chunking.DefaultChunkSize, chunking.DefaultChunkOverlap)
	require.NoError(t, err)

	chunks := s.Split("A dog runs across a beach.", "clip.mp4")
	require.Len(t, chunks, 1)
	assert.Equal(t, "A dog runs across a beach.", chunks[0].Text)
	assert.Equal(t, "clip.mp4", chunks[0].Source)
}

func TestSplitLongDescription(t *testing.T) {
	s, err := chunking.NewRecursiveCharacterSplitter(chunking.DefaultChunkSize, chunking.DefaultChunkOverlap)
	require.NoError(t, err)

	text := description(6)
	chunks := s.Split(text, "")
	assert.Greater(t, len(chunks), 1)
	checkChunks(t, text, chunks, chunking.DefaultChunkSize, chunking.DefaultChunkOverlap)
}

func TestSplitSmallSizes(t *testing.T) {
	text := description(2)
	for _, tc := range []struct{ size, overlap int }{
		{50, 10}, {100, 0}, {237, 60}, {10, 9},
	} {
		t.Run(fmt.Sprintf("%d-%d", tc.size, tc.overlap), func(t *testing.T) {
			s, err := chunking.NewRecursiveCharacterSplitter(tc.size, tc.overlap)
			require.NoError(t, err)
			checkChunks(t, text, s.Split(text, ""), tc.size, tc.overlap)
		})
	}
}

// longParagraphs builds paragraphs that are each longer than the default
// chunk size, so the paragraph separator ends up on an oversized piece.
func longParagraphs() string {
	first := strings.Repeat("The camera pans across the crowded market. ", 30)
	second := strings.Repeat("A vendor wraps two loaves of bread in paper. ", 25)
	return first + "\n\n" + second + "\n\nThe crowd thins out as the sun sets."
}

func TestSplitOversizedParagraphsHaveNoBlankChunks(t *testing.T) {
	s, err := chunking.NewRecursiveCharacterSplitter(chunking.DefaultChunkSize, chunking.DefaultChunkOverlap)
	require.NoError(t, err)

	text := longParagraphs()
	chunks := s.Split(text, "market.mp4")
	checkChunks(t, text, chunks, chunking.DefaultChunkSize, chunking.DefaultChunkOverlap)
}

func TestSplitWhitespaceRuns(t *testing.T) {
	text := "\n\n  " + strings.Repeat("word ", 40) + "\n\n\n\n" + strings.Repeat("next ", 40) + " \n\n"
	for _, tc := range []struct{ size, overlap int }{
		{60, 15}, {100, 0}, {1000, 200},
	} {
		t.Run(fmt.Sprintf("%d-%d", tc.size, tc.overlap), func(t *testing.T) {
			s, err := chunking.NewRecursiveCharacterSplitter(tc.size, tc.overlap)
			require.NoError(t, err)
			checkChunks(t, text, s.Split(text, ""), tc.size, tc.overlap)
		})
	}
}

func TestSplitWordLongerThanChunk(t *testing.T) {
	s, err := chunking.NewRecursiveCharacterSplitter(10, 2)
	require.NoError(t, err)

	text := "short " + strings.Repeat("é", 35) + " tail"
	chunks := s.Split(text, "")
	checkChunks(t, text, chunks, 10, 2)
}

func TestSplitBlankText(t *testing.T) {
	s, err := chunking.NewRecursiveCharacterSplitter(100, 10)
	require.NoError(t, err)
	assert.Empty(t, s.Split("", ""))
	assert.Empty(t, s.Split(" \n\n\t ", ""))
	assert.Empty(t, s.SplitText(""))
}

func TestSplitTextMatchesSplit(t *testing.T) {
	s, err := chunking.NewRecursiveCharacterSplitter(80, 20)
	require.NoError(t, err)
	text := description(1)

	texts := s.SplitText(text)
	chunks := s.Split(text, "")
	require.Len(t, texts, len(chunks))
	for i := range texts {
		assert.Equal(t, chunks[i].Text, texts[i])
	}
}

func TestNewRecursiveCharacterSplitterValidates(t *testing.T) {
	for _, tc := range []struct{ size, overlap int }{
		{0, 0}, {-1, 0}, {10, -1}, {10, 10}, {10, 11},
	} {
		_, err := chunking.NewRecursiveCharacterSplitter(tc.size, tc.overlap)
		assert.Error(t, err, "%d/%d", tc.size, tc.overlap)
	}
}
