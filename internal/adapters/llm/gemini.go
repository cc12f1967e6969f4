package llm

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"github.com/PabloGalante/taskchat/internal/domain"
)

const DefaultGeminiModel = "gemini-2.5-flash-lite"

type GeminiConfig struct {
	// APIKey selects the Gemini API backend. Without it, Project and
	// Location select Vertex AI using application default credentials.
	APIKey   string
	Project  string
	Location string

	Model           string
	Temperature     float32
	MaxOutputTokens int32
}

type GeminiClient struct {
	client          *genai.Client
	modelName       string
	temperature     float32
	maxOutputTokens int32
}

// NewGeminiClient creates an LLMClient backed by Gemini, on Vertex AI or the Gemini API.
func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	cc := &genai.ClientConfig{}
	switch {
	case cfg.APIKey != "":
		cc.APIKey = cfg.APIKey
		cc.Backend = genai.BackendGeminiAPI
	case cfg.Project != "" && cfg.Location != "":
		cc.Project = cfg.Project
		cc.Location = cfg.Location
		cc.Backend = genai.BackendVertexAI
	default:
		return nil, errors.New("gemini: either an API key or a GCP project and location are required")
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = DefaultGeminiModel
	}
	temp := cfg.Temperature
	if temp <= 0 {
		temp = DefaultTemperature
	}
	maxTokens := cfg.MaxOutputTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxOutputTokens
	}

	return &GeminiClient{
		client:          client,
		modelName:       model,
		temperature:     temp,
		maxOutputTokens: maxTokens,
	}, nil
}

// Complete implements domain.LLMClient. The reply is constrained to JSON
// matching the intent shape.
func (g *GeminiClient) Complete(ctx context.Context, prompt domain.Prompt) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(prompt.User, genai.RoleUser),
	}

	temp := g.temperature
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(prompt.System, genai.RoleUser),
		Temperature:       &temp,
		MaxOutputTokens:   g.maxOutputTokens,
		ResponseMIMEType:  "application/json",
		ResponseSchema:    intentResponseSchema(),
	}

	res, err := g.client.Models.GenerateContent(ctx, g.modelName, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}

	text := res.Text()
	if text == "" {
		return "", errors.New("gemini returned empty text")
	}
	return text, nil
}

func intentResponseSchema() *genai.Schema {
	nullable := true
	zero, one := 0.0, 1.0

	str := func(desc string) *genai.Schema {
		return &genai.Schema{Type: genai.TypeString, Description: desc, Nullable: &nullable}
	}

	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"action": {
				Type: genai.TypeString,
				Enum: []string{"create", "read", "update", "delete", "complete"},
			},
			"confidence":       {Type: genai.TypeNumber, Minimum: &zero, Maximum: &one},
			"task_id":          {Type: genai.TypeInteger, Nullable: &nullable},
			"task_title":       str("title of the task the user refers to"),
			"new_title":        str("replacement title for update"),
			"task_description": str("optional longer description"),
			"query_filter": {
				Type:     genai.TypeObject,
				Nullable: &nullable,
				Properties: map[string]*genai.Schema{
					"is_completed": {Type: genai.TypeBoolean, Nullable: &nullable},
					"search_term":  str("substring to search titles for"),
				},
			},
			"ambiguous":            {Type: genai.TypeBoolean},
			"clarification_needed": str("question to ask when ambiguous"),
		},
		Required: []string{"action", "confidence", "ambiguous"},
	}
}

var _ domain.LLMClient = (*GeminiClient)(nil)
