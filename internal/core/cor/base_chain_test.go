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

package cor_test

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/jaycherian/gcp-go-video-chat/internal/core/cor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// upper writes the upper-cased input string to the output.
type upper struct {
	cor.BaseCommand
}

func (u *upper) Execute(context cor.Context) {
	u.Succeed(context, strings.ToUpper(context.Get(u.GetInputParam()).(string)))
}

// suffix appends a fixed string to its input.
type suffix struct {
	cor.BaseCommand
	value string
}

func (s *suffix) Execute(context cor.Context) {
	s.Succeed(context, context.Get(s.GetInputParam()).(string)+s.value)
}

// failing always records an error.
type failing struct {
	cor.BaseCommand
	err error
}

func (f *failing) Execute(context cor.Context) {
	f.Fail(context, f.err)
}

// cancelling cancels the Go context it was given and passes its input on.
type cancelling struct {
	cor.BaseCommand
	cancel context.CancelFunc
}

func (c *cancelling) Execute(context cor.Context) {
	c.cancel()
	c.Succeed(context, context.Get(c.GetInputParam()))
}

func TestChainPipesOutputToInput(t *testing.T) {
	chain := cor.NewBaseChain("pipe")
	chain.AddCommand(&upper{BaseCommand: *cor.NewBaseCommand("upper")})
	chain.AddCommand(&suffix{BaseCommand: *cor.NewBaseCommand("suffix"), value: "!"})

	chainCtx := cor.NewBaseContextWith(context.Background())
	chainCtx.Add(cor.CtxIn, "hello")
	chain.Execute(chainCtx)

	require.False(t, chainCtx.HasErrors())
	assert.Equal(t, "HELLO!", chainCtx.Get(cor.CtxIn))
	assert.Nil(t, chainCtx.Get(cor.CtxOut))
}

func TestChainStopsOnFirstError(t *testing.T) {
	boom := errors.New("boom")
	chain := cor.NewBaseChain("stop")
	chain.AddCommand(&failing{BaseCommand: *cor.NewBaseCommand("first"), err: boom})
	chain.AddCommand(&failing{BaseCommand: *cor.NewBaseCommand("second"), err: errors.New("never")})

	chainCtx := cor.NewBaseContextWith(context.Background())
	chainCtx.Add(cor.CtxIn, "x")
	chain.Execute(chainCtx)

	assert.Len(t, chainCtx.GetErrors(), 1)
	assert.ErrorIs(t, chainCtx.Err(), boom)
}

func TestChainContinueOnFailureKeepsErrorOrder(t *testing.T) {
	first := errors.New("first")
	chain := cor.NewBaseChain("continue")
	chain.ContinueOnFailure(true)
	chain.AddCommand(&failing{BaseCommand: *cor.NewBaseCommand("a"), err: first})
	chain.AddCommand(&upper{BaseCommand: *cor.NewBaseCommand("b")})

	chainCtx := cor.NewBaseContextWith(context.Background())
	chainCtx.Add(cor.CtxIn, "x")
	chain.Execute(chainCtx)

	// The failing command produced no output, so "b" had nothing to run on.
	assert.Len(t, chainCtx.GetErrors(), 1)
	assert.Equal(t, first, chainCtx.Err())
}

func TestChainStopsWhenContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	chain := cor.NewBaseChain("cancel")
	chain.AddCommand(&cancelling{BaseCommand: *cor.NewBaseCommand("cancel-it"), cancel: cancel})
	chain.AddCommand(&upper{BaseCommand: *cor.NewBaseCommand("never-runs")})

	chainCtx := cor.NewBaseContextWith(ctx)
	chainCtx.Add(cor.CtxIn, "x")
	chain.Execute(chainCtx)

	require.True(t, chainCtx.HasErrors())
	assert.ErrorIs(t, chainCtx.Err(), context.Canceled)
	assert.Equal(t, "x", chainCtx.Get(cor.CtxIn))
	assert.Equal(t, ctx, chainCtx.GetContext())
}

func TestChainSkipsNonExecutableCommand(t *testing.T) {
	chain := cor.NewBaseChain("skip")
	chain.AddCommand(&upper{BaseCommand: *cor.NewBaseCommand("no-input")})

	chainCtx := cor.NewBaseContextWith(context.Background())
	chain.Execute(chainCtx)

	assert.False(t, chainCtx.HasErrors())
}

func TestContextCloseRemovesTempFiles(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "cor-")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	chainCtx := cor.NewBaseContext()
	chainCtx.AddTempFile(f.Name())
	chainCtx.Close()

	_, err = os.Stat(f.Name())
	assert.True(t, os.IsNotExist(err))
	assert.Empty(t, chainCtx.GetTempFiles())
}
