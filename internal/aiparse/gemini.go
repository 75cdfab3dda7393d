// Package aiparse turns saved listings into structured JSON with Gemini.
package aiparse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"jobmate/jobsearch-service/internal/model"
)

// ErrInvalidJSON is returned when the model answer is not a JSON object.
var ErrInvalidJSON = errors.New("model returned invalid JSON")

// Generator produces a JSON answer for a prompt.
type Generator interface {
	GenerateJSON(ctx context.Context, prompt string) (string, error)
}

// GeminiClient is a Generator backed by the Gemini API in JSON mode.
type GeminiClient struct {
	client *genai.Client
	model  string
}

// NewGeminiClient creates a client for modelName.
func NewGeminiClient(ctx context.Context, apiKey, modelName string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create Gemini client: %w", err)
	}
	return &GeminiClient{client: client, model: modelName}, nil
}

// GenerateJSON sends prompt with a JSON response MIME type.
func (c *GeminiClient) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	m := c.client.GenerativeModel(c.model)
	m.SetTemperature(0.1)
	m.ResponseMIMEType = "application/json"

	resp, err := m.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	text, err := responseText(resp)
	if err != nil {
		return "", err
	}
	return cleanJSONBlock(text), nil
}

// Close releases the underlying connection.
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}
	c := resp.Candidates[0]
	if c.Content == nil || len(c.Content.Parts) == 0 {
		return "", fmt.Errorf("no content in response")
	}

	var parts []string
	for _, p := range c.Content.Parts {
		if t, ok := p.(genai.Text); ok {
			parts = append(parts, string(t))
		}
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("no text parts in response")
	}
	return strings.Join(parts, ""), nil
}

// cleanJSONBlock strips a markdown code fence around a JSON answer.
func cleanJSONBlock(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

// maxDescriptionRunes bounds the description sent to the model.
const maxDescriptionRunes = 4000

const promptTemplate = `请从以下职位信息中提取关键信息，并只输出一个 JSON 对象，格式如下:
{
  "job_title": "",
  "company": "",
  "location": "",
  "salary_range": "",
  "requirements": {
    "education": "",
    "experience_years": "",
    "skills": [],
    "certifications": [],
    "other": []
  },
  "responsibilities": [],
  "benefits": [],
  "keywords": []
}

【职位】%s
【公司】%s
【地点】%s
【薪资】%s
【经验】%s
【学历】%s
【职位描述】
%s`

func buildPrompt(l model.Listing) string {
	desc := []rune(l.Description)
	if len(desc) > maxDescriptionRunes {
		desc = desc[:maxDescriptionRunes]
	}
	return fmt.Sprintf(promptTemplate,
		l.Title, l.Company, l.Location, l.SalaryRange, l.ExperienceRequired, l.Education, string(desc))
}

// Parser extracts structured job data from listings.
type Parser struct {
	gen Generator
	log *zap.Logger
}

// NewParser returns a Parser using gen.
func NewParser(gen Generator, log *zap.Logger) *Parser {
	if log == nil {
		log = zap.NewNop()
	}
	return &Parser{gen: gen, log: log.Named("aiparse")}
}

// ParseListing asks the model for the structured form of l. The result is
// always a JSON object.
func (p *Parser) ParseListing(ctx context.Context, l model.Listing) (json.RawMessage, error) {
	answer, err := p.gen.GenerateJSON(ctx, buildPrompt(l))
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", l.Title, err)
	}
	answer = cleanJSONBlock(answer)

	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(answer), &obj); err != nil {
		p.log.Debug("unparseable model answer", zap.String("title", l.Title), zap.String("answer", answer))
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	if obj == nil {
		return nil, fmt.Errorf("%w: null", ErrInvalidJSON)
	}
	return json.RawMessage(answer), nil
}
