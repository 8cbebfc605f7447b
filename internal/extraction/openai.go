package extraction

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAI implements the Engine interface using an OpenAI-compatible
// vision chat model. It also implements TextExtractor so the pipeline can
// fall back to visible-text currency resolution.
type OpenAI struct {
	client *openai.Client
	model  string
}

// NewOpenAI creates a new OpenAI Engine instance. baseURL may be empty for
// the default API endpoint, or point at an Azure/compatible deployment.
func NewOpenAI(apiKey, baseURL, modelName string) (*OpenAI, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}
	if modelName == "" {
		modelName = openai.GPT4o
	}

	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}

	return &OpenAI{
		client: openai.NewClientWithConfig(config),
		model:  modelName,
	}, nil
}

// Name identifies the engine
func (o *OpenAI) Name() string {
	return "openai"
}

// Extract analyzes a receipt and returns the raw field map
func (o *OpenAI) Extract(ctx context.Context, imageData []byte, contentType string) (*RawFields, error) {
	text, err := o.complete(ctx, imageData, contentType, extractPrompt)
	if err != nil {
		return nil, err
	}

	fields, err := parseFieldsJSON(text)
	if err != nil {
		return nil, fmt.Errorf("parsing field map: %w", err)
	}

	return fields, nil
}

// ExtractText transcribes the visible text of a document
func (o *OpenAI) ExtractText(ctx context.Context, imageData []byte, contentType string) (string, error) {
	return o.complete(ctx, imageData, contentType, visibleTextPrompt)
}

func (o *OpenAI) complete(ctx context.Context, imageData []byte, contentType, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	// Prepare image data (convert to PNG if needed)
	finalImageData, err := prepareImageData(imageData, contentType)
	if err != nil {
		return "", err
	}

	imageURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(finalImageData)

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: prompt,
					},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL: imageURL,
						},
					},
				},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("creating chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from openai")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Close closes the OpenAI engine. The underlying client is stateless.
func (o *OpenAI) Close() error {
	return nil
}
