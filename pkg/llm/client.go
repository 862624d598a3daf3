package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// ChatClient is the completion surface used by the dashboard generator.
type ChatClient interface {
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)
	ChatStructured(ctx context.Context, req *ChatRequest, target any) error
	Close() error
}

// Client talks to an OpenAI-compatible chat completion endpoint.
type Client struct {
	config       *Config
	openaiClient *openai.Client
	logger       Logger
	retryHandler *RetryHandler
	httpClient   *http.Client
}

var _ ChatClient = (*Client)(nil)

// ClientOption configures optional client behaviour.
type ClientOption func(*Client)

// WithLogger replaces the logx-backed logger.
func WithLogger(logger Logger) ClientOption {
	return func(c *Client) { c.logger = logger }
}

// WithRetryHandler replaces the retry policy derived from MaxRetries.
func WithRetryHandler(handler *RetryHandler) ClientOption {
	return func(c *Client) { c.retryHandler = handler }
}

// WithHTTPClient sets the transport used by the SDK.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = client }
}

// NewClient validates cfg and builds a client.
func NewClient(cfg *Config, opts ...ClientOption) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("llm: config cannot be nil")
	}
	clientCfg := cfg.Clone()
	if err := clientCfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{config: clientCfg}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = NewLogger(clientCfg.LogLevel)
	}
	if c.retryHandler == nil {
		c.retryHandler = NewRetryHandler(RetryConfig{MaxRetries: clientCfg.MaxRetries})
	}

	oaOpts := []option.RequestOption{
		option.WithAPIKey(clientCfg.APIKey),
		option.WithBaseURL(clientCfg.BaseURL),
		option.WithRequestTimeout(clientCfg.Timeout),
		// retries are owned by RetryHandler
		option.WithMaxRetries(0),
	}
	if c.httpClient != nil {
		oaOpts = append(oaOpts, option.WithHTTPClient(c.httpClient))
	}
	oa := openai.NewClient(oaOpts...)
	c.openaiClient = &oa
	return c, nil
}

// Chat performs one completion request under the retry policy.
func (c *Client) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	if req == nil {
		return nil, errors.New("llm: request cannot be nil")
	}
	params, modelID, err := c.buildParams(req)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	var completion *openai.ChatCompletion
	err = c.retryHandler.Do(ctx, func() error {
		resp, callErr := c.openaiClient.Chat.Completions.New(ctx, params)
		if callErr != nil {
			c.logger.Warn(ctx, "llm chat attempt failed", Fields{"model": modelID, "error": callErr.Error()})
			return callErr
		}
		completion = resp
		return nil
	})
	if err != nil {
		c.logger.Error(ctx, fmt.Errorf("llm chat: %w", err), Fields{"model": modelID})
		return nil, fmt.Errorf("llm chat: %w", err)
	}

	result := convertCompletion(completion)
	c.logger.Info(ctx, "llm chat", Fields{
		"model":       modelID,
		"duration_ms": time.Since(start).Milliseconds(),
		"tokens":      result.Usage.TotalTokens,
	})
	return result, nil
}

// ChatStructured asks for JSON matching the schema of target, a pointer to a
// struct, and decodes the first choice into it.
func (c *Client) ChatStructured(ctx context.Context, req *ChatRequest, target any) error {
	if req == nil {
		return errors.New("llm: request cannot be nil")
	}
	value := reflect.ValueOf(target)
	if target == nil || value.Kind() != reflect.Ptr || value.IsNil() {
		return errors.New("llm: structured target must be a non-nil pointer")
	}
	schema, err := GenerateSchema(target)
	if err != nil {
		return err
	}

	structured := *req
	structured.ResponseFormat = &ResponseFormat{
		Type:   "json_schema",
		Name:   schemaName(value.Type().Elem()),
		Schema: schema,
		Strict: true,
	}
	resp, err := c.Chat(ctx, &structured)
	if err != nil {
		return err
	}
	if len(resp.Choices) == 0 {
		return errors.New("llm: empty structured response")
	}
	if err := ParseStructured(resp.Text(), target); err != nil {
		c.logger.Warn(ctx, "llm structured reply rejected", Fields{"model": resp.Model, "error": err.Error()})
		return err
	}
	return nil
}

// GetConfig returns a copy of the client configuration.
func (c *Client) GetConfig() *Config {
	return c.config.Clone()
}

// Close releases idle connections of an injected transport.
func (c *Client) Close() error {
	if c.httpClient != nil {
		c.httpClient.CloseIdleConnections()
	}
	return nil
}

func (c *Client) buildParams(req *ChatRequest) (openai.ChatCompletionNewParams, string, error) {
	if len(req.Messages) == 0 {
		return openai.ChatCompletionNewParams{}, "", errors.New("llm: request requires at least one message")
	}
	modelID, defaults := c.config.ResolveModel(req.Model)

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(modelID),
		Messages: messageParams(req.Messages),
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	} else if defaults.Temperature != nil {
		params.Temperature = openai.Float(*defaults.Temperature)
	}
	if req.MaxTokens != nil {
		params.MaxCompletionTokens = openai.Int(int64(*req.MaxTokens))
	} else if defaults.MaxTokens != nil {
		params.MaxCompletionTokens = openai.Int(int64(*defaults.MaxTokens))
	}
	if rf := req.ResponseFormat; rf != nil {
		format, err := responseFormatParam(rf)
		if err != nil {
			return openai.ChatCompletionNewParams{}, "", err
		}
		params.ResponseFormat = format
	}
	return params, modelID, nil
}

func messageParams(msgs []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch strings.ToLower(m.Role) {
		case RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case RoleAssistant:
			out = append(out, openai.ChatCompletionMessageParamOfAssistant(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

func responseFormatParam(rf *ResponseFormat) (openai.ChatCompletionNewParamsResponseFormatUnion, error) {
	switch strings.ToLower(rf.Type) {
	case "", "text":
		return openai.ChatCompletionNewParamsResponseFormatUnion{}, nil
	case "json_object":
		val := shared.NewResponseFormatJSONObjectParam()
		return openai.ChatCompletionNewParamsResponseFormatUnion{OfJSONObject: &val}, nil
	case "json_schema":
		name := rf.Name
		if name == "" {
			name = "structured_output"
		}
		schema := shared.ResponseFormatJSONSchemaJSONSchemaParam{
			Name:   name,
			Schema: rf.Schema,
			Strict: openai.Bool(rf.Strict),
		}
		if rf.Description != "" {
			schema.Description = openai.String(rf.Description)
		}
		val := shared.ResponseFormatJSONSchemaParam{JSONSchema: schema}
		val.Type = val.Type.Default()
		return openai.ChatCompletionNewParamsResponseFormatUnion{OfJSONSchema: &val}, nil
	default:
		return openai.ChatCompletionNewParamsResponseFormatUnion{}, fmt.Errorf("llm: unsupported response format %q", rf.Type)
	}
}

func convertCompletion(resp *openai.ChatCompletion) *ChatResponse {
	result := &ChatResponse{
		ID:      resp.ID,
		Model:   resp.Model,
		Created: resp.Created,
		Usage: Usage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
	}
	for _, choice := range resp.Choices {
		result.Choices = append(result.Choices, Choice{
			Index:        int(choice.Index),
			Message:      Message{Role: string(choice.Message.Role), Content: choice.Message.Content},
			FinishReason: choice.FinishReason,
		})
	}
	return result
}

func schemaName(t reflect.Type) string {
	if name := strings.ToLower(t.Name()); name != "" {
		return name
	}
	return "structured_output"
}
