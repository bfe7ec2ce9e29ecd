package surface

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	openai "github.com/sashabaranov/go-openai"

	"github.com/tastrails/trails/server/internal/lib/gpx"
)

// OpenAI system prompt for road surface classification
const SystemPrompt = `You classify the surface of roads and tracks in Tasmania, Australia, from their name alone.

Surface types:
- paved: sealed bitumen or concrete roads, highways and town streets
- unpaved: gravel, forestry, fire trails and 4WD tracks open to vehicles
- trail: walking tracks, mountain bike trails, boardwalks and paths closed to cars
- unknown: the name gives no useful signal

Use local knowledge where you have it (e.g. "Lyell Highway" is sealed, "Overland Track" is a walking track, "Jacks Track" in the Tarkine is 4WD).
Confidence is your probability that the surface type is correct, between 0 and 1. Prefer "unknown" with confidence 0.5 over guessing.`

// RoadSurfaceSchema defines the JSON schema for structured classification output
var RoadSurfaceSchema = openai.ChatCompletionResponseFormatJSONSchema{
	Name:   "road_surface",
	Strict: true,
	Schema: json.RawMessage(`{
		"type": "object",
		"properties": {
			"surface_type": {
				"type": "string",
				"enum": ["paved", "unpaved", "trail", "unknown"],
				"description": "Most likely surface of the named road or track"
			},
			"confidence": {
				"type": "number",
				"description": "Probability the surface type is correct, 0 to 1"
			}
		},
		"required": ["surface_type", "confidence"],
		"additionalProperties": false
	}`),
}

// chatClient is the subset of *openai.Client the classifier uses
type chatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// openAIClassifier implements NameClassifier using OpenAI structured output
type openAIClassifier struct {
	client chatClient
	model  string
}

// NewOpenAIClassifier creates a NameClassifier backed by OpenAI
func NewOpenAIClassifier(apiKey, model string) NameClassifier {
	if apiKey == "" {
		return &openAIClassifier{client: nil, model: model}
	}
	return &openAIClassifier{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

func (o *openAIClassifier) ClassifyRoad(ctx context.Context, name string) (Classification, error) {
	if name == gpx.UnknownRoad {
		return unknownClassification, nil
	}
	if o.client == nil {
		return Classification{}, errors.New("OpenAI client not initialized - missing API key")
	}

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: SystemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf("Road or track name: %s", name),
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type:       openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &RoadSurfaceSchema,
		},
		Temperature: 0.1,
		MaxTokens:   100,
	})
	if err != nil {
		return Classification{}, fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Classification{}, errors.New("no response from OpenAI API")
	}

	var c Classification
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &c); err != nil {
		return Classification{}, fmt.Errorf("failed to parse OpenAI JSON response: %w", err)
	}

	if !c.SurfaceType.Valid() {
		return unknownClassification, nil
	}
	if math.IsNaN(c.Confidence) {
		c.Confidence = 0.5
	}
	c.Confidence = math.Max(0, math.Min(1, c.Confidence))
	return c, nil
}
