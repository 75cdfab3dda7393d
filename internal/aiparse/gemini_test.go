package aiparse

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobmate/jobsearch-service/internal/model"
)

type stubGenerator struct {
	answer string
	err    error
	prompt string
}

func (s *stubGenerator) GenerateJSON(_ context.Context, prompt string) (string, error) {
	s.prompt = prompt
	return s.answer, s.err
}

func TestCleanJSONBlock(t *testing.T) {
	cases := map[string]string{
		"```json\n{\"a\":1}\n```": `{"a":1}`,
		"```\n{\"a\":1}```":       `{"a":1}`,
		"  {\"a\":1}  ":           `{"a":1}`,
		"":                        "",
	}
	for in, want := range cases {
		assert.Equal(t, want, cleanJSONBlock(in), "input %q", in)
	}
}

func TestResponseText(t *testing.T) {
	resp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []genai.Part{genai.Text(`{"a":`), genai.Text(`1}`)}},
	}}}
	got, err := responseText(resp)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, got)

	_, err = responseText(&genai.GenerateContentResponse{})
	assert.Error(t, err)
	_, err = responseText(&genai.GenerateContentResponse{Candidates: []*genai.Candidate{{}}})
	assert.Error(t, err)
	_, err = responseText(&genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []genai.Part{genai.Blob{MIMEType: "image/png"}}},
	}}})
	assert.Error(t, err)
}

func TestParser_ParseListing(t *testing.T) {
	gen := &stubGenerator{answer: "```json\n{\"job_title\":\"Go 工程师\",\"keywords\":[\"go\"]}\n```"}
	p := NewParser(gen, nil)

	l := model.Listing{Title: "Go 工程师", Company: "A", Location: "深圳", Description: "负责后端开发"}
	got, err := p.ParseListing(context.Background(), l)
	require.NoError(t, err)
	assert.JSONEq(t, `{"job_title":"Go 工程师","keywords":["go"]}`, string(got))
	assert.Contains(t, gen.prompt, "【职位】Go 工程师")
	assert.Contains(t, gen.prompt, "负责后端开发")
}

func TestParser_RejectsNonObjects(t *testing.T) {
	for _, answer := range []string{"not json", "null", "[1,2]"} {
		p := NewParser(&stubGenerator{answer: answer}, nil)
		_, err := p.ParseListing(context.Background(), model.Listing{Title: "x"})
		assert.ErrorIs(t, err, ErrInvalidJSON, answer)
	}
}

func TestParser_GeneratorError(t *testing.T) {
	boom := errors.New("quota")
	p := NewParser(&stubGenerator{err: boom}, nil)
	_, err := p.ParseListing(context.Background(), model.Listing{Title: "x"})
	assert.ErrorIs(t, err, boom)
}

func TestBuildPrompt_TruncatesDescription(t *testing.T) {
	long := strings.Repeat("字", maxDescriptionRunes+50)
	prompt := buildPrompt(model.Listing{Description: long})
	assert.Equal(t, maxDescriptionRunes, strings.Count(prompt, "字"))
}

func TestNewGeminiClient_RequiresKey(t *testing.T) {
	_, err := NewGeminiClient(context.Background(), "", "gemini-1.5-flash")
	assert.Error(t, err)
}
