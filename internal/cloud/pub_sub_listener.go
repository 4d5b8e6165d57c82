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

// Package cloud. This file defines PubSubListener, which feeds the payload of
// every message on a subscription into a cor.Command.
//
// Messages whose command succeeds are acked. Failed messages are nacked so
// the subscription's retry and dead-letter policy applies.
package cloud

import (
	"context"
	"errors"
	"log/slog"

	"cloud.google.com/go/pubsub"
	"github.com/jaycherian/gcp-go-video-chat/internal/core/cor"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ErrNoCommand is returned when a message arrives before SetCommand.
var ErrNoCommand = errors.New("listener has no command")

// PubSubListener binds a subscription to the command that processes it.
type PubSubListener struct {
	client       *pubsub.Client
	subscription *pubsub.Subscription
	command      cor.Command
}

// NewPubSubListener creates a listener for subscriptionID. command may be nil
// and attached later with SetCommand.
func NewPubSubListener(pubsubClient *pubsub.Client, subscriptionID string, command cor.Command) (*PubSubListener, error) {
	if pubsubClient == nil {
		return nil, errors.New("pubsub client is required")
	}
	return &PubSubListener{
		client:       pubsubClient,
		subscription: pubsubClient.Subscription(subscriptionID),
		command:      command,
	}, nil
}

// SetCommand attaches command unless one is already set.
func (m *PubSubListener) SetCommand(command cor.Command) {
	if m.command == nil {
		m.command = command
	}
}

// Command returns the attached command.
func (m *PubSubListener) Command() cor.Command {
	return m.command
}

// Handle runs the command on one payload and returns the first error the
// chain recorded.
func (m *PubSubListener) Handle(ctx context.Context, data []byte) error {
	return HandleMessage(ctx, m.command, data)
}

// HandleMessage runs command with data as its input under its own span.
func HandleMessage(ctx context.Context, command cor.Command, data []byte) error {
	if command == nil {
		return ErrNoCommand
	}
	spanCtx, span := otel.Tracer("message-listener").Start(ctx, "receive-message")
	defer span.End()
	span.SetAttributes(attribute.String("msg", string(data)))

	chainCtx := cor.NewBaseContextWith(spanCtx)
	defer chainCtx.Close()
	chainCtx.Add(cor.CtxIn, string(data))

	command.Execute(chainCtx)

	if err := chainCtx.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed")
		return err
	}
	span.SetStatus(codes.Ok, "success")
	return nil
}

// Listen receives messages in a background goroutine until ctx is done.
func (m *PubSubListener) Listen(ctx context.Context) {
	slog.Info("listening", "subscription", m.subscription.ID())
	go func() {
		err := m.subscription.Receive(ctx, func(msgCtx context.Context, msg *pubsub.Message) {
			if err := m.Handle(msgCtx, msg.Data); err != nil {
				slog.Error("failed to process message", "subscription", m.subscription.ID(), "message_id", msg.ID, "error", err)
				msg.Nack()
				return
			}
			msg.Ack()
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("error receiving messages", "subscription", m.subscription.ID(), "error", err)
		}
	}()
}
