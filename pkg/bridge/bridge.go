// Package bridge connects the agent to the external tool-execution endpoint
// over the Model Context Protocol. It loads the tool catalog once at startup,
// caches it for the process lifetime, and converts per-call failures into
// structured error bodies instead of surfacing them as Go errors.
package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	mcpclient "github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"gopkg.in/yaml.v3"

	"github.com/ThinhNguyen0811/map-bot/pkg/domain"
)

// Duration is a time.Duration that unmarshals from YAML strings like "30s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("parsing duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

const defaultCallTimeout = 30 * time.Second

// Transport selects how the bridge reaches the tool-execution endpoint.
type Transport string

const (
	// TransportHTTP connects to a streamable HTTP MCP server.
	TransportHTTP Transport = "http"
	// TransportStdio spawns the MCP server as a child process.
	TransportStdio Transport = "stdio"
)

// Config holds the tool-execution endpoint settings.
type Config struct {
	Transport Transport `yaml:"transport"`

	// HTTP transport.
	URL string `yaml:"url"`

	// Stdio transport.
	Command string            `yaml:"command"`
	Args    []string          `yaml:"args"`
	Env     map[string]string `yaml:"env"`

	// CallTimeout bounds one tool invocation. Zero means the default.
	CallTimeout Duration `yaml:"call_timeout"`
}

// endpoint is the subset of the MCP client the bridge depends on.
type endpoint interface {
	Start(ctx context.Context) error
	Initialize(ctx context.Context, request mcp.InitializeRequest) (*mcp.InitializeResult, error)
	ListTools(ctx context.Context, request mcp.ListToolsRequest) (*mcp.ListToolsResult, error)
	CallTool(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)
	Ping(ctx context.Context) error
	Close() error
}

// Bridge exposes the endpoint's tools to the agent. It is safe for concurrent
// use: the descriptor cache is read-only after Connect.
type Bridge struct {
	client      endpoint
	needStart   bool
	callTimeout time.Duration
	logger      *slog.Logger

	tools []domain.ToolDescriptor
}

// New creates a bridge for the configured endpoint. The connection is not
// established until Connect.
func New(cfg Config, logger *slog.Logger) (*Bridge, error) {
	if logger == nil {
		logger = slog.Default()
	}

	timeout := time.Duration(cfg.CallTimeout)
	if timeout == 0 {
		timeout = defaultCallTimeout
	}

	b := &Bridge{
		callTimeout: timeout,
		logger:      logger.With("component", "bridge"),
	}

	switch cfg.Transport {
	case TransportHTTP, "":
		if cfg.URL == "" {
			return nil, fmt.Errorf("tool endpoint URL is required for http transport")
		}
		client, err := mcpclient.NewStreamableHttpClient(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("creating http client: %w", err)
		}
		b.client = client
		b.needStart = true
	case TransportStdio:
		if cfg.Command == "" {
			return nil, fmt.Errorf("tool endpoint command is required for stdio transport")
		}
		var env []string
		for k, v := range cfg.Env {
			env = append(env, k+"="+v)
		}
		client, err := mcpclient.NewStdioMCPClient(cfg.Command, env, cfg.Args...)
		if err != nil {
			return nil, fmt.Errorf("starting stdio client: %w", err)
		}
		b.client = client
	default:
		return nil, fmt.Errorf("unknown tool endpoint transport: %q", cfg.Transport)
	}

	return b, nil
}

// newWithEndpoint wires a prebuilt endpoint, used by tests.
func newWithEndpoint(ep endpoint, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{
		client:      ep,
		callTimeout: defaultCallTimeout,
		logger:      logger.With("component", "bridge"),
	}
}

// Connect establishes the endpoint session and loads the tool catalog. This
// happens exactly once per process lifetime; a failure here is fatal to
// startup, since no agent can run without its toolset.
func (b *Bridge) Connect(ctx context.Context) error {
	if b.needStart {
		if err := b.client.Start(ctx); err != nil {
			return fmt.Errorf("transport start: %w", err)
		}
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{
		Name:    "map-bot",
		Version: "1.0.0",
	}

	initResult, err := b.client.Initialize(ctx, initReq)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	b.logger.Info("connected to tool endpoint",
		"server", initResult.ServerInfo.Name,
		"version", initResult.ServerInfo.Version)

	listed, err := b.client.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return fmt.Errorf("listing tools: %w", err)
	}

	b.tools = descriptorsFromTools(listed.Tools)
	b.logger.Info("loaded tool catalog", "count", len(b.tools))
	return nil
}

// Tools returns the cached descriptor list.
func (b *Bridge) Tools() []domain.ToolDescriptor {
	return b.tools
}

// Healthy reports whether the endpoint connection is currently established.
func (b *Bridge) Healthy(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return b.client.Ping(ctx) == nil
}

// Close shuts down the endpoint connection.
func (b *Bridge) Close() error {
	return b.client.Close()
}

// Invoke executes one tool call. Failures never escape as Go errors: the
// result body carries an error indicator instead, so the agent can explain
// the failure to the user. Each call is bounded by the configured timeout.
func (b *Bridge) Invoke(ctx context.Context, name string, arguments map[string]any) domain.RawResult {
	ctx, cancel := context.WithTimeout(ctx, b.callTimeout)
	defer cancel()

	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = arguments

	result, err := b.client.CallTool(ctx, req)
	if err != nil {
		b.logger.Warn("tool call failed", "tool", name, "error", err)
		return errorResult(fmt.Sprintf("tool %s failed: %v", name, err))
	}

	text := textFromContents(result.Content)
	if result.IsError {
		if strings.TrimSpace(text) == "" {
			return errorResult(fmt.Sprintf("tool %s reported an error", name))
		}
		if !looksLikeErrorDoc(text) {
			return domain.RawResult{Text: errorDoc(text), IsError: true}
		}
		return domain.RawResult{Text: text, IsError: true}
	}

	return domain.RawResult{Text: text}
}

func textFromContents(contents []mcp.Content) string {
	var combined strings.Builder
	for _, item := range contents {
		tc, ok := item.(mcp.TextContent)
		if !ok || tc.Text == "" {
			continue
		}
		if combined.Len() > 0 {
			combined.WriteString("\n")
		}
		combined.WriteString(tc.Text)
	}
	return combined.String()
}

func looksLikeErrorDoc(text string) bool {
	var doc struct {
		Error string `json:"error"`
	}
	return json.Unmarshal([]byte(text), &doc) == nil && doc.Error != ""
}

func errorResult(msg string) domain.RawResult {
	return domain.RawResult{Text: errorDoc(msg), IsError: true}
}

func errorDoc(msg string) string {
	payload, _ := json.Marshal(map[string]string{"error": msg})
	return string(payload)
}

// descriptorsFromTools translates the MCP tool catalog into descriptors.
// Schema details the translation does not understand are dropped rather than
// rejected, so a schema-drifting server still yields usable tools.
func descriptorsFromTools(tools []mcp.Tool) []domain.ToolDescriptor {
	descriptors := make([]domain.ToolDescriptor, 0, len(tools))
	for _, tool := range tools {
		desc := domain.ToolDescriptor{
			Name:        tool.Name,
			Description: tool.Description,
			Parameters:  map[string]domain.Parameter{},
			Required:    tool.InputSchema.Required,
		}
		for name, prop := range tool.InputSchema.Properties {
			desc.Parameters[name] = parameterFromProperty(prop)
		}
		descriptors = append(descriptors, desc)
	}
	return descriptors
}

func parameterFromProperty(prop any) domain.Parameter {
	var p domain.Parameter
	m, ok := prop.(map[string]any)
	if !ok {
		return p
	}
	if t, ok := m["type"].(string); ok {
		p.Type = t
	}
	if d, ok := m["description"].(string); ok {
		p.Description = d
	}
	if values, ok := m["enum"].([]any); ok {
		for _, v := range values {
			if s, ok := v.(string); ok {
				p.Enum = append(p.Enum, s)
			}
		}
	}
	return p
}
