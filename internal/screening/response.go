// Package screening scores resumes against a job with a generative model.
//
// Two providers are supported: Gemini (text or inline PDF) and OpenAI
// (text or PDF file part). Both ask for the same JSON reply, which is
// validated against responseSchema before it is trusted.
package screening

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"hirelane/pipeline-service/internal/pipeline"
)

// responseSchema is the contract of a model reply. A null score means the
// model could not assess the resume.
const responseSchema = `{
  "type": "object",
  "required": ["score", "reason"],
  "properties": {
    "score":  {"type": ["number", "null"], "minimum": 0, "maximum": 100},
    "reason": {"type": "string"}
  }
}`

var schemaLoader = gojsonschema.NewStringLoader(responseSchema)

// InvalidResponseError is returned when a model reply does not match
// responseSchema.
type InvalidResponseError struct {
	Problems []string
}

func (e *InvalidResponseError) Error() string {
	return "invalid model response: " + strings.Join(e.Problems, "; ")
}

// ParseResponse validates and decodes a model reply.
func ParseResponse(text string) (pipeline.ScreeningResult, error) {
	text = cleanJSONBlock(text)
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewStringLoader(text))
	if err != nil {
		return pipeline.ScreeningResult{}, fmt.Errorf("decode model response: %w", err)
	}
	if !result.Valid() {
		problems := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			problems = append(problems, desc.String())
		}
		return pipeline.ScreeningResult{}, &InvalidResponseError{Problems: problems}
	}

	var reply struct {
		Score  *float64 `json:"score"`
		Reason string   `json:"reason"`
	}
	if err := json.Unmarshal([]byte(text), &reply); err != nil {
		return pipeline.ScreeningResult{}, fmt.Errorf("decode model response: %w", err)
	}

	out := pipeline.ScreeningResult{Reason: strings.TrimSpace(reply.Reason)}
	if reply.Score != nil {
		s := int(math.Round(*reply.Score))
		out.Score = &s
	}
	return out, nil
}

// cleanJSONBlock removes markdown code block wrappers from JSON
func cleanJSONBlock(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}
