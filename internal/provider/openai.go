package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	skgerrors "skg/internal/errors"
	"skg/internal/storage"
)

const (
	defaultEmbeddingModel = string(openai.SmallEmbedding3)
	defaultChatModel      = "gpt-4o-mini"
)

// OpenAI implements Embedder and Justifier against the OpenAI API.
type OpenAI struct {
	client         *openai.Client
	embeddingModel string
	chatModel      string
}

// Option configures an OpenAI provider.
type Option func(*OpenAI)

// WithEmbeddingModel overrides the embedding model.
func WithEmbeddingModel(model string) Option {
	return func(o *OpenAI) { o.embeddingModel = model }
}

// WithChatModel overrides the chat model used for justification.
func WithChatModel(model string) Option {
	return func(o *OpenAI) { o.chatModel = model }
}

// NewOpenAI creates a provider with the given API key.
func NewOpenAI(apiKey string, opts ...Option) (*OpenAI, error) {
	if apiKey == "" {
		return nil, skgerrors.New(skgerrors.ConfigInvalid, "openai api key is required")
	}
	o := &OpenAI{
		client:         openai.NewClient(apiKey),
		embeddingModel: defaultEmbeddingModel,
		chatModel:      defaultChatModel,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Embed returns a semantic embedding for text.
func (o *OpenAI) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := o.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(o.embeddingModel),
		Input: []string{text},
	})
	if err != nil {
		return nil, skgerrors.Wrap(skgerrors.ProviderUnavailable, "create embedding", err)
	}
	if len(resp.Data) == 0 {
		return nil, skgerrors.New(skgerrors.ProviderUnavailable, "embedding response was empty")
	}
	return resp.Data[0].Embedding, nil
}

// justificationSchema is the shape the model must return. Enforced via
// JSON response format plus unmarshal validation.
type justificationSchema struct {
	Purpose    string  `json:"purpose"`
	Taxonomy   string  `json:"taxonomy"`
	Confidence float64 `json:"confidence"`
}

const justifySystemPrompt = `You are a senior engineer documenting a codebase.
Given one code symbol, respond with JSON only:
{"purpose": "<one-sentence business purpose>",
 "taxonomy": "<one of: domain-logic, infrastructure, glue, utility, test-support>",
 "confidence": <0.0-1.0>}`

// GenerateJustification asks the model for a structured justification of
// one entity.
func (o *OpenAI) GenerateJustification(ctx context.Context, req JustificationRequest) (*storage.Justification, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Symbol: %s (%s)\nFile: %s\n", req.Name, req.Kind, req.FilePath)
	if req.Signature != "" {
		fmt.Fprintf(&sb, "Signature: %s\n", req.Signature)
	}
	if req.Body != "" {
		fmt.Fprintf(&sb, "Body:\n%s\n", req.Body)
	}
	if len(req.CalleePurposes) > 0 {
		fmt.Fprintf(&sb, "Purposes of symbols it calls:\n- %s\n",
			strings.Join(req.CalleePurposes, "\n- "))
	}

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.chatModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: justifySystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: sb.String()},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, skgerrors.Wrap(skgerrors.ProviderUnavailable, "generate justification", err)
	}
	if len(resp.Choices) == 0 {
		return nil, skgerrors.New(skgerrors.ProviderUnavailable, "justification response had no choices")
	}

	var parsed justificationSchema
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &parsed); err != nil {
		return nil, skgerrors.Wrap(skgerrors.ProviderUnavailable, "justification response was not valid JSON", err)
	}
	if parsed.Purpose == "" {
		return nil, skgerrors.New(skgerrors.ProviderUnavailable, "justification response missing purpose")
	}
	if parsed.Confidence < 0 || parsed.Confidence > 1 {
		parsed.Confidence = 0
	}

	return &storage.Justification{
		EntityID:   req.EntityID,
		Purpose:    parsed.Purpose,
		Taxonomy:   parsed.Taxonomy,
		Confidence: parsed.Confidence,
	}, nil
}

var (
	_ Embedder  = (*OpenAI)(nil)
	_ Justifier = (*OpenAI)(nil)
)
