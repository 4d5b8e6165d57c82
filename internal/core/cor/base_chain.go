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

// Package cor (Chain of Responsibility). This file defines BaseChain, the
// default Chain.
//
// Logic Flow:
//  1. A span is opened for the whole chain.
//  2. For each command, the chain stops if an earlier command recorded an
//     error (unless continueOnFailure is set) or if the Go context has been
//     canceled. Cancellation is recorded as an error against the chain.
//  3. A command whose IsExecutable is false is skipped and its span marked
//     as an error; it does not fail the chain.
//  4. The command runs under its own child span. The shared context's Go
//     context is reset afterwards so sibling spans stay siblings.
//  5. The command's CtxOut value is moved to CtxIn for the next command.
package cor

import (
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// BaseChain runs its commands sequentially.
type BaseChain struct {
	BaseCommand
	continueOnFailure bool
	commands          []Command
}

// NewBaseChain creates an empty chain. Commands are added with AddCommand
// and run in the order they were added.
//
// Inputs:
//   - name: The chain name, used in spans and log lines.
//
// Outputs:
//   - *BaseChain: A chain that stops at the first failed command.
func NewBaseChain(name string) *BaseChain {
	return &BaseChain{BaseCommand: *NewBaseCommand(name)}
}

func (c *BaseChain) ContinueOnFailure(continueOnFailure bool) Chain {
	c.continueOnFailure = continueOnFailure
	return c
}

func (c *BaseChain) AddCommand(command Command) Chain {
	c.commands = append(c.commands, command)
	return c
}

// Commands returns the commands in execution order.
func (c *BaseChain) Commands() []Command {
	return c.commands
}

// IsExecutable only needs a Go context; the first command checks its own input.
func (c *BaseChain) IsExecutable(context Context) bool {
	return context != nil && context.GetContext() != nil
}

func (c *BaseChain) Execute(chCtx Context) {
	parentCtx := chCtx.GetContext()
	outerCtx, chainSpan := c.Tracer.Start(parentCtx, fmt.Sprintf("%s_execute", c.GetName()))
	defer chainSpan.End()
	defer chCtx.SetContext(parentCtx)

	for _, command := range c.commands {
		if chCtx.HasErrors() && !c.continueOnFailure {
			chainSpan.AddEvent("skipping remaining commands", trace.WithAttributes(attribute.String("next", command.GetName())))
			break
		}
		if err := outerCtx.Err(); err != nil {
			chCtx.AddError(c.GetName(), fmt.Errorf("chain %s stopped before %s: %w", c.GetName(), command.GetName(), err))
			break
		}

		commandContext, commandSpan := c.Tracer.Start(outerCtx, command.GetName())

		executed := command.IsExecutable(chCtx)
		if executed {
			chCtx.SetContext(commandContext)
			command.Execute(chCtx)
			chCtx.SetContext(outerCtx)
		} else {
			commandSpan.SetStatus(codes.Error, fmt.Sprintf("command not executable: %s", command.GetName()))
		}

		if err, failed := chCtx.GetErrors()[command.GetName()]; failed {
			commandSpan.RecordError(err)
			commandSpan.SetStatus(codes.Error, err.Error())
		} else if executed {
			commandSpan.SetStatus(codes.Ok, "")
		}
		commandSpan.End()

		outputValue := chCtx.Get(CtxOut)
		chCtx.Remove(CtxIn)
		if outputValue != nil {
			chCtx.Add(CtxIn, outputValue)
		}
		chCtx.Remove(CtxOut)
	}

	if chCtx.HasErrors() {
		chainSpan.SetStatus(codes.Error, "chain failed to execute")
	} else {
		chainSpan.SetStatus(codes.Ok, "")
	}
}
