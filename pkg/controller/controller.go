// Package controller drives one conversation turn at a time: it calls the
// model, consumes its chunk stream, executes requested tool calls through the
// bridge, and emits the ordered outbound event sequence for the client.
package controller

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/ThinhNguyen0811/map-bot/pkg/domain"
	"github.com/ThinhNguyen0811/map-bot/pkg/metrics"
	"github.com/ThinhNguyen0811/map-bot/pkg/model"
	"github.com/ThinhNguyen0811/map-bot/pkg/protocol"
	"github.com/ThinhNguyen0811/map-bot/pkg/session"
)

// Indicator texts shown while a turn is in flight.
const (
	statusThinking   = "thinking…"
	statusGenerating = "generating response…"
)

// errorMessage is the single generic failure surfaced to the client. Turn
// failures never tear the session down.
const errorMessage = "Sorry, something went wrong while handling your request. Please try again."

// maxToolRounds caps model→tool→model iterations within one turn.
const maxToolRounds = 8

// defaultInstructions is the built-in system prompt.
const defaultInstructions = `You are a helpful map assistant. You help users find places, plan routes, and explore locations.

Use the available tools to look up real geographic data, and answer conversationally in Markdown. When a tool has already placed results on the user's map, refer to the map instead of repeating raw coordinates.`

// ToolInvoker is the tool-execution contract the controller depends on.
type ToolInvoker interface {
	Tools() []domain.ToolDescriptor
	Invoke(ctx context.Context, name string, arguments map[string]any) domain.RawResult
}

// Controller orchestrates turns for all sessions. It holds no per-turn state;
// each turn owns an accumulator that dies with it.
type Controller struct {
	provider     model.Provider
	tools        ToolInvoker
	modelName    string
	instructions string
	logger       *slog.Logger
}

// New creates a Controller. instructions may be empty to use the built-in
// system prompt.
func New(provider model.Provider, tools ToolInvoker, modelName, instructions string, logger *slog.Logger) *Controller {
	if instructions == "" {
		instructions = defaultInstructions
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		provider:     provider,
		tools:        tools,
		modelName:    modelName,
		instructions: instructions,
		logger:       logger,
	}
}

// HandleTurn runs one user turn to completion. Any failure while driving the
// agent is absorbed here: the client sees a single generic error event and
// the session stays usable for the next turn. The thinking indicator is
// cleared exactly once per turn on every path.
func (c *Controller) HandleTurn(ctx context.Context, sess *session.Session, userText string) {
	acc := newAccumulator()
	emit := func(ev protocol.Outbound) {
		if err := sess.Send(ev); err != nil {
			c.logger.Debug("dropped outbound event", "session", sess.ID(), "type", ev.Type, "error", err)
		}
	}

	emit(protocol.Thinking(statusThinking))

	finalText, err := c.runTurn(ctx, sess, userText, acc, emit)
	if err != nil {
		c.logger.Error("turn failed", "session", sess.ID(), "error", err)
		metrics.TurnsTotal.WithLabelValues("error").Inc()
		emit(protocol.Error(errorMessage))
	} else {
		metrics.TurnsTotal.WithLabelValues("ok").Inc()
		c.logger.Info("turn complete",
			"session", sess.ID(),
			"tools", acc.toolNames,
			"chars", len(finalText))
		emit(protocol.StreamEnd(finalText, acc.action))

		sess.AppendTurns(domain.Turn{Role: domain.RoleUser, Text: userText})
		if finalText != "" {
			sess.AppendTurns(domain.Turn{Role: domain.RoleAssistant, Text: finalText})
		}
	}

	if !acc.cleared {
		acc.cleared = true
		emit(protocol.ThinkingDone())
	}
}

// runTurn drives the model/tool loop for one turn and returns the final
// response text.
func (c *Controller) runTurn(ctx context.Context, sess *session.Session, userText string, acc *accumulator, emit func(protocol.Outbound)) (string, error) {
	messages := messagesFromHistory(sess.History())
	messages = append(messages, model.Message{
		Role:    domain.RoleUser,
		Content: []model.Content{{Type: model.ContentTypeText, Text: userText}},
	})

	for round := 0; round < maxToolRounds; round++ {
		final, calls, err := c.streamRound(ctx, messages, acc, emit)
		if err != nil {
			return "", err
		}

		if len(calls) == 0 {
			text := acc.String()
			if !acc.started {
				// The model returned a single non-streamed answer
				// instead of incremental tokens.
				text = textOf(final)
			}
			return text, nil
		}

		messages = append(messages, final)
		for _, call := range calls {
			messages = append(messages, c.executeTool(ctx, sess, call, acc, emit))
		}
	}

	c.logger.Warn("tool round cap reached", "session", sess.ID(), "cap", maxToolRounds)
	return acc.String(), nil
}

// streamRound performs one model call, forwarding text fragments as they
// arrive and collecting any tool calls.
func (c *Controller) streamRound(ctx context.Context, messages []model.Message, acc *accumulator, emit func(protocol.Outbound)) (model.Message, []domain.ToolCall, error) {
	stream, err := c.provider.Stream(ctx, c.modelName, c.instructions, messages, c.tools.Tools())
	if err != nil {
		return model.Message{}, nil, err
	}
	defer stream.Close()

	// Offsets in stream events are relative to this round's response; the
	// accumulator spans the whole turn.
	base := acc.Len()
	replayOffset := 0
	var calls []domain.ToolCall

	for {
		ev, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return model.Message{}, nil, err
		}

		// Direct token path.
		c.forward(acc, emit, base+ev.Offset, ev.Delta)

		// Event-log replay path. Both paths describe the same response,
		// so the offset-based check forwards each fragment exactly once
		// no matter which path delivers it first.
		if text := ExtractText(ev.Raw); text != "" {
			c.forward(acc, emit, base+replayOffset, text)
			replayOffset += len(text)
		}

		calls = append(calls, ev.Calls...)
	}

	final, err := stream.Final()
	if err != nil {
		return model.Message{}, nil, err
	}
	return final, calls, nil
}

// forward pushes the unseen part of a fragment to the client. The first
// forwarded token clears the thinking indicator.
func (c *Controller) forward(acc *accumulator, emit func(protocol.Outbound), offset int, fragment string) {
	novel := acc.advance(offset, fragment)
	if novel == "" {
		return
	}
	if !acc.cleared {
		acc.cleared = true
		emit(protocol.ThinkingDone())
	}
	acc.started = true
	emit(protocol.Stream(novel))
}

// executeTool runs one tool call, surfaces its map action (first one per turn
// wins), and returns the result message to feed back to the model. Tool
// failures come back as error bodies, never as Go errors, so the model can
// explain them conversationally.
func (c *Controller) executeTool(ctx context.Context, sess *session.Session, call domain.ToolCall, acc *accumulator, emit func(protocol.Outbound)) model.Message {
	emit(protocol.Thinking(statusUsing(call.Name)))
	acc.toolNames = append(acc.toolNames, call.Name)

	start := time.Now()
	inv := domain.ToolInvocation{
		Name:      call.Name,
		Arguments: call.Input,
		Result:    c.tools.Invoke(ctx, call.Name, call.Input),
	}
	inv.Elapsed = time.Since(start)

	outcome := "ok"
	if inv.Result.IsError {
		outcome = "error"
	}
	metrics.ToolCallsTotal.WithLabelValues(inv.Name, outcome).Inc()
	metrics.ToolCallDuration.WithLabelValues(inv.Name).Observe(inv.Elapsed.Seconds())
	c.logger.Info("tool call complete",
		"session", sess.ID(),
		"tool", inv.Name,
		"elapsed", inv.Elapsed,
		"isError", inv.Result.IsError)

	if acc.action == nil {
		if action := domain.ParseMapAction(inv.Result.Text); action != nil {
			acc.action = action
			emit(protocol.MapUpdate(action))
		}
	}

	emit(protocol.Thinking(statusGenerating))

	return model.Message{
		Role: domain.RoleTool,
		Content: []model.Content{{
			Type: model.ContentTypeToolResult,
			ToolResult: &model.ToolResultContent{
				ToolCallID: call.ID,
				Name:       call.Name,
				Body:       resultBody(inv.Result.Text),
			},
		}},
	}
}

// resultBody parses a tool result document for the model. Non-JSON results
// are wrapped so the model always sees a structured body.
func resultBody(text string) map[string]any {
	var body map[string]any
	if err := json.Unmarshal([]byte(text), &body); err == nil && body != nil {
		return body
	}
	return map[string]any{"result": text}
}

func statusUsing(toolName string) string {
	return "using " + strings.ReplaceAll(toolName, "_", " ") + "…"
}

func messagesFromHistory(turns []domain.Turn) []model.Message {
	var messages []model.Message
	for _, turn := range turns {
		messages = append(messages, model.Message{
			Role:    turn.Role,
			Content: []model.Content{{Type: model.ContentTypeText, Text: turn.Text}},
		})
	}
	return messages
}

func textOf(msg model.Message) string {
	for _, c := range msg.Content {
		if c.Type == model.ContentTypeText {
			return c.Text
		}
	}
	return ""
}
