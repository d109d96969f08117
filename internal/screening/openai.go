package screening

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"hirelane/pipeline-service/internal/credentials"
	"hirelane/pipeline-service/internal/pipeline"
)

// DefaultOpenAIModel is used when no model is configured.
const DefaultOpenAIModel = "gpt-4o-mini"

// OpenAI scores resumes with the OpenAI chat completions API.
type OpenAI struct {
	keys    KeyResolver
	model   string
	timeout time.Duration
	opts    []option.RequestOption
}

// NewOpenAI returns an OpenAI scorer. opts are appended to every client,
// e.g. option.WithBaseURL for a compatible gateway.
func NewOpenAI(keys KeyResolver, model string, timeout time.Duration, opts ...option.RequestOption) *OpenAI {
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAI{keys: keys, model: model, timeout: timeout, opts: opts}
}

var _ pipeline.Scorer = (*OpenAI)(nil)

// Score implements pipeline.Scorer.
func (o *OpenAI) Score(ctx context.Context, resume pipeline.ResumeContent, job pipeline.JobContext) (pipeline.ScreeningResult, error) {
	cred, err := o.keys.Resolve(ctx, job.OwnerID, credentials.KindOpenAI)
	if err != nil {
		return pipeline.ScreeningResult{}, err
	}
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	user, err := openAIResumeMessage(resume)
	if err != nil {
		return pipeline.ScreeningResult{}, err
	}

	client := openai.NewClient(append([]option.RequestOption{option.WithAPIKey(cred.Key)}, o.opts...)...)
	params := openai.ChatCompletionNewParams{
		Model: o.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(BuildPrompt(job)),
			user,
		},
		Temperature: openai.Float(0.1),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	}

	completion, err := client.Chat.Completions.New(ctx, params)
	if err != nil {
		return pipeline.ScreeningResult{}, fmt.Errorf("openai chat completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return pipeline.ScreeningResult{}, errors.New("no choices in response")
	}
	return ParseResponse(completion.Choices[0].Message.Content)
}

func openAIResumeMessage(resume pipeline.ResumeContent) (openai.ChatCompletionMessageParamUnion, error) {
	switch {
	case resume.Text != "":
		return openai.UserMessage(resumeTextPart(resume.Text)), nil
	case len(resume.Document) > 0:
		mime := resume.ContentType
		if mime == "" {
			mime = "application/pdf"
		}
		dataURL := fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(resume.Document))
		return openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
			openai.TextContentPart("The candidate resume is attached."),
			openai.FileContentPart(openai.ChatCompletionContentPartFileFileParam{
				FileData: openai.String(dataURL),
				Filename: openai.String("resume.pdf"),
			}),
		}), nil
	default:
		return openai.ChatCompletionMessageParamUnion{}, errors.New("no resume content")
	}
}
