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

package model

// Default prompt text. Both can be overridden in the [prompt_templates]
// section of the configuration.
const (
	// DefaultDescriptionPrompt is sent alongside the video file.
	DefaultDescriptionPrompt = "Please analyze this video in detail. Create a Detailed Description"

	// RefusalPhrase is what the answer model is told to reply when the
	// context does not contain the answer. The spelling is part of the
	// client-visible contract.
	RefusalPhrase = "Could Not Find Relevent Info in the Context"

	// DefaultAnswerTemplate is rendered with a RetrievedContext.
	DefaultAnswerTemplate = `
    -Answer the Question Precisely
    -always answer from the given context below
    -if not present in the context, say "` + RefusalPhrase + `"

    Context: {{.Context}}

    Question : {{.Question}}

    `

	// RetrievalErrorContext replaces the context when retrieval fails.
	RetrievalErrorContext = "Error retrieving documents"

	// ContextSeparator joins retrieved chunk texts.
	ContextSeparator = "\n\n"
)
