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

package cloud

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"google.golang.org/genai"
)

// FileService is the subset of *genai.Files used for video ingestion.
type FileService interface {
	UploadFromPath(ctx context.Context, path string, config *genai.UploadFileConfig) (*genai.File, error)
	Get(ctx context.Context, name string, config *genai.GetFileConfig) (*genai.File, error)
	Delete(ctx context.Context, name string, config *genai.DeleteFileConfig) (*genai.DeleteFileResponse, error)
}

var (
	// ErrFileFailed is returned when the service reports FAILED processing.
	ErrFileFailed = errors.New("file processing failed")
	// ErrFileNotActive is returned when polling stops before ACTIVE.
	ErrFileNotActive = errors.New("file did not become active")
)

// PollPolicy bounds WaitForActive.
type PollPolicy struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	Timeout         time.Duration
}

// NewPollPolicy reads the policy from the ingestion config.
func NewPollPolicy(in Ingestion) PollPolicy {
	return PollPolicy{
		InitialInterval: in.PollInitialInterval(),
		MaxInterval:     in.PollMaxInterval(),
		Multiplier:      in.PollMultiplier,
		Timeout:         in.ActivationTimeout(),
	}
}

func (p PollPolicy) backOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		b.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		b.MaxInterval = p.MaxInterval
	}
	if p.Multiplier >= 1 {
		b.Multiplier = p.Multiplier
	}
	b.RandomizationFactor = 0
	// The deadline is carried by the context so the last Get error is not
	// mistaken for the timeout.
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// WaitForActive polls name until its state is ACTIVE. It returns
// ErrFileFailed when the service reports FAILED, a wrapped
// context.DeadlineExceeded when the policy timeout elapses while the file is
// still processing, and ctx.Err() when the caller cancels. Get errors are
// retried; if the last check before the timeout failed, that error is
// returned instead.
func WaitForActive(ctx context.Context, files FileService, name string, policy PollPolicy) (*genai.File, error) {
	pollCtx := ctx
	if policy.Timeout > 0 {
		var cancel context.CancelFunc
		pollCtx, cancel = context.WithTimeout(ctx, policy.Timeout)
		defer cancel()
	}

	var file *genai.File
	var lastGetErr error
	attempts := 0
	op := func() error {
		attempts++
		f, err := files.Get(pollCtx, name, nil)
		if err != nil {
			if pollCtx.Err() != nil {
				return backoff.Permanent(pollCtx.Err())
			}
			slog.Warn("failed to get file state", "file", name, "attempt", attempts, "error", err)
			lastGetErr = err
			return err
		}
		lastGetErr = nil
		file = f
		switch f.State {
		case genai.FileStateActive:
			return nil
		case genai.FileStateFailed:
			return backoff.Permanent(ErrFileFailed)
		default:
			return ErrFileNotActive
		}
	}

	err := backoff.Retry(op, backoff.WithContext(policy.backOff(), pollCtx))
	if err == nil {
		return file, nil
	}
	if errors.Is(err, ErrFileFailed) {
		return file, fmt.Errorf("%s: %w", name, err)
	}
	if ctx.Err() != nil {
		return file, ctx.Err()
	}
	if lastGetErr != nil {
		return file, fmt.Errorf("%s: status check failed after %d attempts: %w", name, attempts, lastGetErr)
	}
	if pollCtx.Err() != nil {
		return file, fmt.Errorf("%s not active after %s (%d checks): %w", name, policy.Timeout, attempts, context.DeadlineExceeded)
	}
	return file, err
}
