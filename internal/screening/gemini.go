package screening

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"hirelane/pipeline-service/internal/credentials"
	"hirelane/pipeline-service/internal/pipeline"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-1.5-flash"

// KeyResolver finds the API key to use for a job owner.
type KeyResolver interface {
	Resolve(ctx context.Context, userID string, kind credentials.Kind) (credentials.Credentials, error)
}

// Gemini scores resumes with Google Gemini. A client is built per call
// because the key depends on the job owner.
type Gemini struct {
	keys    KeyResolver
	model   string
	timeout time.Duration
}

// NewGemini returns a Gemini scorer.
func NewGemini(keys KeyResolver, model string, timeout time.Duration) *Gemini {
	if model == "" {
		model = DefaultGeminiModel
	}
	return &Gemini{keys: keys, model: model, timeout: timeout}
}

var _ pipeline.Scorer = (*Gemini)(nil)

// Score implements pipeline.Scorer.
func (g *Gemini) Score(ctx context.Context, resume pipeline.ResumeContent, job pipeline.JobContext) (pipeline.ScreeningResult, error) {
	cred, err := g.keys.Resolve(ctx, job.OwnerID, credentials.KindGemini)
	if err != nil {
		return pipeline.ScreeningResult{}, err
	}
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cred.Key))
	if err != nil {
		return pipeline.ScreeningResult{}, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(g.model)
	model.SetTemperature(0.1) // Low temperature for consistent output
	model.ResponseMIMEType = "application/json"

	parts, err := geminiParts(resume, job)
	if err != nil {
		return pipeline.ScreeningResult{}, err
	}
	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return pipeline.ScreeningResult{}, fmt.Errorf("failed to generate content: %w", err)
	}
	text, err := extractTextFromResponse(resp)
	if err != nil {
		return pipeline.ScreeningResult{}, err
	}
	return ParseResponse(text)
}

func geminiParts(resume pipeline.ResumeContent, job pipeline.JobContext) ([]genai.Part, error) {
	parts := []genai.Part{genai.Text(BuildPrompt(job))}
	switch {
	case resume.Text != "":
		parts = append(parts, genai.Text(resumeTextPart(resume.Text)))
	case len(resume.Document) > 0:
		mime := resume.ContentType
		if mime == "" {
			mime = "application/pdf"
		}
		parts = append(parts, genai.Blob{MIMEType: mime, Data: resume.Document})
	default:
		return nil, errors.New("no resume content")
	}
	return parts, nil
}

// extractTextFromResponse extracts text from Gemini API response
func extractTextFromResponse(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("no content in response")
	}

	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}

	if len(parts) == 0 {
		return "", fmt.Errorf("no text parts in response")
	}

	return strings.Join(parts, ""), nil
}
