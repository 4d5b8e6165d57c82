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

package cor

import (
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// MeterNamespace is the instrumentation scope every command meter uses.
const MeterNamespace = "github.com/jaycherian/gcp-go-video-chat"

// BaseCommand carries the name, parameter keys and instrumentation every
// command needs. Concrete commands embed it.
type BaseCommand struct {
	Name            string
	InputParamName  string // Defaults to CtxIn.
	OutputParamName string // Defaults to CtxOut.
	Tracer          trace.Tracer
	Meter           metric.Meter
	SuccessCounter  metric.Int64Counter // <name>.counter.success
	ErrorCounter    metric.Int64Counter // <name>.counter.error
}

// NewBaseCommand creates a command with its tracer and counters taken from
// the global OpenTelemetry providers.
//
// Inputs:
//   - name: The command name. It names the tracer and prefixes the
//     "<name>.counter.success" and "<name>.counter.error" counters.
//
// Outputs:
//   - *BaseCommand: A command reading from and writing to the default
//     input and output parameters. A counter that cannot be created is
//     logged and left nil.
func NewBaseCommand(name string) *BaseCommand {
	meter := otel.Meter(MeterNamespace)

	successCounter, err := meter.Int64Counter(fmt.Sprintf("%s.counter.success", name))
	if err != nil {
		slog.Warn("failed to create success counter", "command", name, "error", err)
	}
	errorCounter, err := meter.Int64Counter(fmt.Sprintf("%s.counter.error", name))
	if err != nil {
		slog.Warn("failed to create error counter", "command", name, "error", err)
	}

	return &BaseCommand{
		Name:           name,
		Tracer:         otel.Tracer(name),
		Meter:          meter,
		SuccessCounter: successCounter,
		ErrorCounter:   errorCounter,
	}
}

func (c *BaseCommand) GetName() string {
	return c.Name
}

// IsExecutable requires a Go context and a value under the input key.
func (c *BaseCommand) IsExecutable(context Context) bool {
	return context != nil && context.GetContext() != nil && context.Get(c.GetInputParam()) != nil
}

func (c *BaseCommand) GetInputParam() string {
	if len(c.InputParamName) == 0 {
		return CtxIn
	}
	return c.InputParamName
}

func (c *BaseCommand) GetOutputParam() string {
	if len(c.OutputParamName) == 0 {
		return CtxOut
	}
	return c.OutputParamName
}

func (c *BaseCommand) GetTracer() trace.Tracer {
	return c.Tracer
}

func (c *BaseCommand) GetMeter() metric.Meter {
	return c.Meter
}

func (c *BaseCommand) GetSuccessCounter() metric.Int64Counter {
	return c.SuccessCounter
}

func (c *BaseCommand) GetErrorCounter() metric.Int64Counter {
	return c.ErrorCounter
}

// Fail bumps the error counter and records err against this command.
func (c *BaseCommand) Fail(context Context, err error) {
	c.GetErrorCounter().Add(context.GetContext(), 1)
	context.AddError(c.GetName(), err)
}

// Succeed bumps the success counter and writes out to the output key.
func (c *BaseCommand) Succeed(context Context, out interface{}) {
	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(c.GetOutputParam(), out)
}
