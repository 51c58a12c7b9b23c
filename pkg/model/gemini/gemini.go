// Package gemini implements model.Provider using the Google Gen AI SDK.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"github.com/ThinhNguyen0811/map-bot/pkg/domain"
	"github.com/ThinhNguyen0811/map-bot/pkg/model"
)

// Provider implements model.Provider using the Google Gen AI SDK.
type Provider struct {
	client *genai.Client
}

// Verify interface compliance.
var _ model.Provider = (*Provider)(nil)

// New creates a new Gemini provider.
func New(ctx context.Context, apiKey string) (*Provider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &Provider{client: client}, nil
}

// Name returns the provider identifier.
func (p *Provider) Name() string { return "gemini" }

// Stream sends a conversation context to the LLM and returns a chunk stream.
func (p *Provider) Stream(ctx context.Context, modelName, instructions string, messages []model.Message, tools []domain.ToolDescriptor) (model.ModelStream, error) {
	slog.Debug("Gemini.Stream", "model", modelName, "messageCount", len(messages), "toolCount", len(tools))

	var systemInstruction *genai.Content
	if instructions != "" {
		systemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: instructions}},
		}
	}

	contents := contentsFromMessages(messages)

	config := &genai.GenerateContentConfig{
		SystemInstruction: systemInstruction,
	}
	if decls := DeclarationsFromDescriptors(tools); len(decls) > 0 {
		config.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}

	streamCtx, cancel := context.WithCancel(ctx)
	next, stop := iter.Pull2(p.client.Models.GenerateContentStream(streamCtx, modelName, contents, config))

	return &geminiStream{
		next: next,
		stop: stop,
		cancel: func() {
			stop()
			cancel()
		},
	}, nil
}

func contentsFromMessages(messages []model.Message) []*genai.Content {
	var contents []*genai.Content
	for _, msg := range messages {
		var parts []*genai.Part
		for _, c := range msg.Content {
			switch c.Type {
			case model.ContentTypeText:
				parts = append(parts, &genai.Part{Text: c.Text})
			case model.ContentTypeToolCall:
				if c.ToolCall != nil {
					parts = append(parts, &genai.Part{
						FunctionCall: &genai.FunctionCall{
							ID:   c.ToolCall.ID,
							Name: c.ToolCall.Name,
							Args: c.ToolCall.Input,
						},
					})
				}
			case model.ContentTypeToolResult:
				if c.ToolResult != nil {
					parts = append(parts, &genai.Part{
						FunctionResponse: &genai.FunctionResponse{
							ID:       c.ToolResult.ToolCallID,
							Name:     c.ToolResult.Name,
							Response: c.ToolResult.Body,
						},
					})
				}
			}
		}
		if len(parts) == 0 {
			continue
		}

		role := "user"
		if msg.Role == domain.RoleAssistant {
			role = "model"
		}
		contents = append(contents, &genai.Content{Role: role, Parts: parts})
	}
	return contents
}

// DeclarationsFromDescriptors translates tool descriptors into the function
// declarations the Gemini API binds against. Enumerated string parameters
// constrain to the literal value set; unknown primitive types degrade to an
// unconstrained parameter instead of failing declaration construction.
func DeclarationsFromDescriptors(tools []domain.ToolDescriptor) []*genai.FunctionDeclaration {
	var decls []*genai.FunctionDeclaration
	for _, tool := range tools {
		params := &genai.Schema{
			Type:       genai.TypeObject,
			Properties: map[string]*genai.Schema{},
			Required:   tool.Required,
		}
		for name, p := range tool.Parameters {
			params.Properties[name] = schemaFromParameter(p)
		}
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        tool.Name,
			Description: tool.Description,
			Parameters:  params,
		})
	}
	return decls
}

func schemaFromParameter(p domain.Parameter) *genai.Schema {
	s := &genai.Schema{Description: p.Description}
	switch p.Type {
	case "string":
		s.Type = genai.TypeString
		if len(p.Enum) > 0 {
			s.Enum = p.Enum
		}
	case "number":
		s.Type = genai.TypeNumber
	case "integer":
		s.Type = genai.TypeInteger
	case "boolean":
		s.Type = genai.TypeBoolean
	case "array":
		s.Type = genai.TypeArray
	case "object":
		s.Type = genai.TypeObject
	default:
		// Leave the type unspecified: the parameter accepts any value.
		s.Type = genai.TypeUnspecified
	}
	return s
}

// geminiStream adapts the Gemini streaming iterator to model.ModelStream.
type geminiStream struct {
	next   func() (*genai.GenerateContentResponse, error, bool)
	stop   func()
	cancel func()

	fullText strings.Builder
	calls    []domain.ToolCall
	done     bool
	err      error
}

func (s *geminiStream) Recv() (model.StreamEvent, error) {
	if s.err != nil {
		return model.StreamEvent{}, s.err
	}
	if s.done {
		return model.StreamEvent{}, io.EOF
	}

	for {
		resp, err, ok := s.next()
		if !ok {
			s.done = true
			return model.StreamEvent{}, io.EOF
		}
		if err != nil {
			s.err = err
			return model.StreamEvent{}, err
		}
		if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
			continue
		}

		content := resp.Candidates[0].Content
		ev := model.StreamEvent{Offset: s.fullText.Len()}

		var delta strings.Builder
		for _, part := range content.Parts {
			if part.Text != "" {
				delta.WriteString(part.Text)
			}
			if part.FunctionCall != nil {
				fc := part.FunctionCall
				id := fc.ID
				if id == "" {
					id = "call-" + uuid.New().String()
				}
				call := domain.ToolCall{ID: id, Name: fc.Name, Input: fc.Args}
				ev.Calls = append(ev.Calls, call)
				s.calls = append(s.calls, call)
			}
		}
		ev.Delta = delta.String()
		s.fullText.WriteString(ev.Delta)

		// The event-log form of the same chunk. Marshal failures only cost
		// the replay path; the direct path still carries the text.
		if raw, err := json.Marshal(content); err == nil {
			ev.Raw = raw
		}

		return ev, nil
	}
}

func (s *geminiStream) Final() (model.Message, error) {
	if s.err != nil {
		return model.Message{}, s.err
	}

	var content []model.Content
	if s.fullText.Len() > 0 {
		content = append(content, model.Content{
			Type: model.ContentTypeText,
			Text: s.fullText.String(),
		})
	}
	for i := range s.calls {
		content = append(content, model.Content{
			Type:     model.ContentTypeToolCall,
			ToolCall: &s.calls[i],
		})
	}

	return model.Message{Role: domain.RoleAssistant, Content: content}, nil
}

func (s *geminiStream) Close() error {
	s.cancel()
	return nil
}
