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

// Package chunking splits descriptions into bounded, overlapping chunks for
// embedding.
//
// The splitter is recursive: it cuts the text on the first separator that
// occurs in it ("\n\n", then "\n", then " ", then between characters), packs
// the pieces greedily into chunks of at most ChunkSize characters, and
// re-splits any single piece that is still too large with the next
// separator. Separators stay attached to the piece they end, and a piece
// that is only whitespace is folded into its neighbour, so no chunk is blank.
// Nothing is trimmed: every chunk is an exact substring of the input and the
// input can be rebuilt from the chunks by dropping each chunk's overlap.
package chunking

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/jaycherian/gcp-go-video-chat/internal/core/model"
)

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// DefaultSeparators are tried in order. The empty separator splits between
// characters and must stay last.
var DefaultSeparators = []string{"\n\n", "\n", " ", ""}

// RecursiveCharacterSplitter splits text on a hierarchy of separators.
// Sizes are measured in characters (runes), not bytes.
type RecursiveCharacterSplitter struct {
	ChunkSize    int
	ChunkOverlap int
	Separators   []string
}

// NewRecursiveCharacterSplitter validates the sizes and returns a splitter
// using DefaultSeparators.
func NewRecursiveCharacterSplitter(chunkSize, chunkOverlap int) (*RecursiveCharacterSplitter, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		return nil, fmt.Errorf("chunk overlap must be in [0, %d), got %d", chunkSize, chunkOverlap)
	}
	return &RecursiveCharacterSplitter{
		ChunkSize:    chunkSize,
		ChunkOverlap: chunkOverlap,
		Separators:   DefaultSeparators,
	}, nil
}

// span is a half-open rune range into the text being split.
type span struct {
	start, end int
}

func (s span) len() int { return s.end - s.start }

// SplitText returns the chunks of text. Blank text yields no chunks.
func (s *RecursiveCharacterSplitter) SplitText(text string) []string {
	chunks := s.Split(text, "")
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Text
	}
	return out
}

// Split returns the chunks of text with their offsets. source is copied onto
// every chunk.
func (s *RecursiveCharacterSplitter) Split(text string, source string) []*model.Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	runes := []rune(text)
	separators := s.Separators
	if len(separators) == 0 || separators[len(separators)-1] != "" {
		separators = append(append([]string{}, separators...), "")
	}
	spans := s.split(runes, span{0, len(runes)}, separators)

	out := make([]*model.Chunk, 0, len(spans))
	for i, sp := range spans {
		out = append(out, &model.Chunk{
			Index:  i,
			Text:   string(runes[sp.start:sp.end]),
			Start:  sp.start,
			End:    sp.end,
			Source: source,
		})
	}
	return out
}

func (s *RecursiveCharacterSplitter) split(text []rune, within span, separators []string) []span {
	separator, rest := pickSeparator(text[within.start:within.end], separators)

	var out, fitting []span
	for _, piece := range cut(text, within, separator, s.ChunkSize) {
		if piece.len() <= s.ChunkSize {
			fitting = append(fitting, piece)
			continue
		}
		if len(fitting) > 0 {
			out = append(out, s.merge(fitting)...)
			fitting = nil
		}
		out = append(out, s.split(text, piece, rest)...)
	}
	if len(fitting) > 0 {
		out = append(out, s.merge(fitting)...)
	}
	return out
}

// merge packs contiguous pieces into chunks no longer than ChunkSize. When a
// chunk is emitted, pieces are dropped from its front until what remains is
// no longer than ChunkOverlap; the remainder starts the next chunk.
func (s *RecursiveCharacterSplitter) merge(pieces []span) []span {
	var out, window []span
	total := 0
	for _, piece := range pieces {
		n := piece.len()
		if total+n > s.ChunkSize && len(window) > 0 {
			out = append(out, span{window[0].start, window[len(window)-1].end})
			for len(window) > 0 && (total > s.ChunkOverlap || total+n > s.ChunkSize) {
				total -= window[0].len()
				window = window[1:]
			}
		}
		window = append(window, piece)
		total += n
	}
	if len(window) > 0 {
		out = append(out, span{window[0].start, window[len(window)-1].end})
	}
	return out
}

// pickSeparator returns the first separator present in text and the
// separators after it.
func pickSeparator(text []rune, separators []string) (string, []string) {
	for i, sep := range separators {
		if sep == "" || indexRunes(text, []rune(sep), 0) >= 0 {
			return sep, separators[i+1:]
		}
	}
	return "", nil
}

// cut splits the span on separator, keeping the separator at the end of the
// piece before it. The empty separator yields single characters; there a
// whitespace character is only folded while the piece stays within maxLen,
// so that level never needs another split.
func cut(text []rune, within span, separator string, maxLen int) []span {
	var out []span
	if separator == "" {
		out = make([]span, 0, within.len())
		for i := within.start; i < within.end; i++ {
			out = append(out, span{i, i + 1})
		}
		return foldBlank(text, out, maxLen)
	}
	sep := []rune(separator)
	pos := within.start
	for pos < within.end {
		idx := indexRunes(text[:within.end], sep, pos)
		if idx < 0 {
			out = append(out, span{pos, within.end})
			break
		}
		out = append(out, span{pos, idx + len(sep)})
		pos = idx + len(sep)
	}
	return foldBlank(text, out, 0)
}

// foldBlank joins every whitespace-only piece onto the piece before it, or
// onto the piece after it when it leads. Pieces are contiguous, so joining
// keeps them exact substrings. A positive maxLen caps the joined length.
func foldBlank(text []rune, pieces []span, maxLen int) []span {
	fits := func(s span) bool { return maxLen <= 0 || s.len() <= maxLen }

	out := make([]span, 0, len(pieces))
	pending := -1 // start of leading blank pieces not yet joined
	for _, piece := range pieces {
		blank := isBlank(text[piece.start:piece.end])
		switch {
		case blank && len(out) > 0 && fits(span{out[len(out)-1].start, piece.end}):
			out[len(out)-1].end = piece.end
		case blank && len(out) == 0:
			if pending < 0 {
				pending = piece.start
			}
		case pending >= 0 && fits(span{pending, piece.end}):
			out = append(out, span{pending, piece.end})
			pending = -1
		default:
			if pending >= 0 {
				out = append(out, span{pending, piece.start})
				pending = -1
			}
			out = append(out, piece)
		}
	}
	if pending >= 0 {
		out = append(out, span{pending, pieces[len(pieces)-1].end})
	}
	return out
}

func isBlank(text []rune) bool {
	for _, r := range text {
		if !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

func indexRunes(text, sep []rune, from int) int {
	for i := from; i+len(sep) <= len(text); i++ {
		match := true
		for j := range sep {
			if text[i+j] != sep[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}
