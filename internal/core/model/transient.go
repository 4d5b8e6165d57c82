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

// Package model defines the core data structures for the application.
// This file, `transient.go`, contains the values that only live for the
// duration of a single workflow execution. They are handed from command to
// command through the chain context and are never written anywhere as-is.
package model

import "google.golang.org/genai"

// AssetState is the lifecycle state of a video held by the media service.
type AssetState string

const (
	AssetUploading AssetState = "uploading"
	AssetActive    AssetState = "active"
	AssetFailed    AssetState = "failed"
)

// AssetStateFromFile maps the Files API state onto our lifecycle.
func AssetStateFromFile(state genai.FileState) AssetState {
	switch state {
	case genai.FileStateActive:
		return AssetActive
	case genai.FileStateFailed:
		return AssetFailed
	default:
		return AssetUploading
	}
}

// VideoAsset is a transient reference to a video uploaded to the media
// service. Only the URI and MIME type are needed by the model.
type VideoAsset struct {
	Name        string     `json:"name"`         // The service-side identifier, e.g. "files/abc123".
	DisplayName string     `json:"display_name"` // The name shown in the service console.
	URI         string     `json:"uri"`          // The retrievable media URI handed to the model.
	MIMEType    string     `json:"mime_type"`    // e.g. "video/mp4".
	SourcePath  string     `json:"source_path"`  // The path or gs:// URI the caller submitted.
	State       AssetState `json:"state"`
}

// NewVideoAsset converts a Files API handle into a VideoAsset.
func NewVideoAsset(file *genai.File, sourcePath string) *VideoAsset {
	return &VideoAsset{
		Name:        file.Name,
		DisplayName: file.DisplayName,
		URI:         file.URI,
		MIMEType:    file.MIMEType,
		SourcePath:  sourcePath,
		State:       AssetStateFromFile(file.State),
	}
}

// Chunk is a contiguous substring of a description. Start and End are rune
// offsets into the description, so Text == []rune(description)[Start:End].
type Chunk struct {
	Index  int    `json:"index"`
	Text   string `json:"text"`
	Start  int    `json:"start"`
	End    int    `json:"end"`
	Source string `json:"source,omitempty"` // The video the description came from.
}

// Match is a chunk returned from a similarity search.
type Match struct {
	Chunk
	Score float32 `json:"score"`
}

// RetrievedContext is the output of the retriever and the input of the
// answer generator.
type RetrievedContext struct {
	Context  string   // The matched chunk texts joined by blank lines.
	Question string   // The question exactly as asked.
	Matches  []*Match // The raw matches, empty when Degraded.
	Degraded bool     // True when the retrieval failed and the sentinel context was used.
}

// Answer is the result of the question-answering pipeline.
type Answer struct {
	SessionID string `json:"session_id"`
	Question  string `json:"question"`
	Answer    string `json:"answer"`
}

// AnalysisResult is returned by a successful analyze call.
type AnalysisResult struct {
	SessionID    string   `json:"session_id"`
	Namespace    string   `json:"namespace"`
	Descriptions []string `json:"descriptions"`
}
