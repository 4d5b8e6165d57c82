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

// Package cor (Chain of Responsibility) provides the building blocks the
// analysis and question-answering pipelines are composed from. A workflow is
// a Chain of Commands sharing one Context; each Command reads its input from
// the Context, does one unit of work, and writes its output back.
package cor

import (
	"context"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// CtxIn and CtxOut are the keys a BaseChain pipes between commands: after
// each command, the value it left under CtxOut becomes the next command's
// CtxIn.
const (
	CtxIn  = "__IN__"
	CtxOut = "__OUT__"
)

// Context is the property bag carried through a single workflow execution.
type Context interface {
	// SetContext sets the Go context used for cancellation and tracing.
	SetContext(context context.Context)

	// GetContext returns the current Go context.
	GetContext() context.Context

	// Add stores a value under key and returns the Context for chaining.
	Add(key string, value interface{}) Context

	// AddError records an error, keyed by the name of the command that
	// produced it.
	AddError(key string, err error)

	// GetErrors returns every recorded error keyed by command name.
	GetErrors() map[string]error

	// Err returns the first error recorded, or nil.
	Err() error

	// Get returns the value stored under key, or nil.
	Get(key string) interface{}

	// Remove deletes the value stored under key.
	Remove(key string)

	// HasErrors reports whether any command recorded an error.
	HasErrors() bool

	// AddTempFile tracks a file to delete on Close.
	AddTempFile(file string)

	// GetTempFiles returns the tracked temp files.
	GetTempFiles() []string

	// Close deletes all tracked temp files. Defer it when the context is
	// created.
	Close()
}

// Executable is anything with an Execute step.
type Executable interface {
	Execute(context Context)
}

// Command is an atomic, testable unit of work.
type Command interface {
	Executable

	// GetName returns the command name used for spans, metrics and error keys.
	GetName() string

	// GetInputParam returns the context key holding the command's input.
	GetInputParam() string

	// GetOutputParam returns the context key the command writes its output to.
	GetOutputParam() string

	// IsExecutable reports whether the context holds what Execute needs.
	IsExecutable(context Context) bool

	GetTracer() trace.Tracer
	GetMeter() metric.Meter
	GetSuccessCounter() metric.Int64Counter
	GetErrorCounter() metric.Int64Counter
}

// Chain is a Command that runs other Commands in order, so chains nest.
type Chain interface {
	Command

	// ContinueOnFailure controls whether the chain keeps going after a
	// command records an error. The default is to stop.
	ContinueOnFailure(bool) Chain

	// AddCommand appends a command to the chain.
	AddCommand(command Command) Chain
}
