package pipeline_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hirelane/pipeline-service/internal/pipeline"
)

var pdfBytes = []byte("%PDF-1.4\n% test document\n")

func validationField(t *testing.T, err error) string {
	t.Helper()
	var ve *pipeline.ValidationError
	require.True(t, errors.As(err, &ve), "want *ValidationError, got %v", err)
	return ve.Field
}

func TestValidateApplication_NameAndEmailAlwaysRequired(t *testing.T) {
	err := pipeline.ValidateApplication(pipeline.FormConfig{}, &pipeline.ApplicationInput{Email: "a@b.co"})
	assert.Equal(t, "name", validationField(t, err))

	err = pipeline.ValidateApplication(pipeline.FormConfig{}, &pipeline.ApplicationInput{Name: "Ada"})
	assert.Equal(t, "email", validationField(t, err))

	err = pipeline.ValidateApplication(pipeline.FormConfig{}, &pipeline.ApplicationInput{Name: "Ada", Email: "not-an-email"})
	assert.Equal(t, "email", validationField(t, err))
	assert.Contains(t, err.Error(), "valid email")

	assert.NoError(t, pipeline.ValidateApplication(pipeline.FormConfig{}, &pipeline.ApplicationInput{Name: " Ada ", Email: "ada@example.com"}))
}

func TestValidateApplication_ConfiguredFields(t *testing.T) {
	fc := pipeline.FormConfig{IncludeNoticePeriod: true, IncludeCurrentOrg: true, IncludeYearsExperience: true}
	in := pipeline.ApplicationInput{Name: "Ada", Email: "ada@example.com"}

	err := pipeline.ValidateApplication(fc, &in)
	assert.Equal(t, "noticePeriod", validationField(t, err), "first missing field in form order")
	assert.Contains(t, err.Error(), "Notice Period is required")

	in.NoticePeriod = "30 days"
	in.CurrentOrg = "   "
	err = pipeline.ValidateApplication(fc, &in)
	assert.Equal(t, "currentOrg", validationField(t, err), "whitespace is not a value")

	in.CurrentOrg = "Analytical Engines"
	in.YearsOfExperience = "5"
	assert.NoError(t, pipeline.ValidateApplication(fc, &in))
}

func TestValidateApplication_UnrequestedFieldsIgnored(t *testing.T) {
	in := pipeline.ApplicationInput{Name: "Ada", Email: "ada@example.com", PortfolioURL: "not a url"}
	assert.NoError(t, pipeline.ValidateApplication(pipeline.FormConfig{}, &in))
}

func TestValidateApplication_Portfolio(t *testing.T) {
	fc := pipeline.FormConfig{IncludePortfolio: true}
	in := pipeline.ApplicationInput{Name: "Ada", Email: "ada@example.com"}
	assert.NoError(t, pipeline.ValidateApplication(fc, &in), "portfolio stays optional")

	in.PortfolioURL = "not a url"
	assert.Equal(t, "portfolioUrl", validationField(t, pipeline.ValidateApplication(fc, &in)))

	in.PortfolioURL = "https://ada.dev"
	assert.NoError(t, pipeline.ValidateApplication(fc, &in))
}

func TestValidateApplication_Resume(t *testing.T) {
	fc := pipeline.FormConfig{IncludeResume: true}
	in := pipeline.ApplicationInput{Name: "Ada", Email: "ada@example.com"}

	err := pipeline.ValidateApplication(fc, &in)
	assert.Equal(t, "resume", validationField(t, err))
	assert.Contains(t, err.Error(), "Resume is required")

	in.Resume = &pipeline.Upload{Filename: "cv.docx", ContentType: "application/msword", Data: []byte("PK\x03\x04")}
	err = pipeline.ValidateApplication(fc, &in)
	assert.Contains(t, err.Error(), "must be a PDF")

	in.Resume = &pipeline.Upload{Filename: "cv.pdf", ContentType: "application/octet-stream", Data: pdfBytes}
	assert.NoError(t, pipeline.ValidateApplication(fc, &in), "PDF magic is enough")
}

func TestFormConfig_Rules(t *testing.T) {
	rules := pipeline.FormConfig{IncludeCurrentOrg: true}.Rules()
	assert.Equal(t, map[string]any{
		"name":       "required",
		"email":      "required,email",
		"currentOrg": "required",
	}, rules)
}

func TestValidateJob(t *testing.T) {
	in := pipeline.JobInput{Title: " ", Description: "A long enough description"}
	assert.Equal(t, "title", validationField(t, pipeline.ValidateJob(&in)))

	in = pipeline.JobInput{Title: "Go Engineer", Description: "short"}
	err := pipeline.ValidateJob(&in)
	assert.Equal(t, "description", validationField(t, err))
	assert.Contains(t, err.Error(), "at least 10")

	in = pipeline.JobInput{Title: "  Go Engineer  ", Description: "Build the pipeline service"}
	require.NoError(t, pipeline.ValidateJob(&in))
	assert.Equal(t, "Go Engineer", in.Title)
}

func TestValidateAssignment(t *testing.T) {
	file := &pipeline.Upload{Filename: "solution.zip", Data: []byte("zip")}

	assert.Equal(t, "assignment", validationField(t, pipeline.ValidateAssignment(&pipeline.AssignmentInput{})))
	assert.Equal(t, "assignment", validationField(t, pipeline.ValidateAssignment(&pipeline.AssignmentInput{Link: "https://github.com/ada/x", File: file})))
	assert.Equal(t, "assignmentLink", validationField(t, pipeline.ValidateAssignment(&pipeline.AssignmentInput{Link: "ftp://example.com/x"})))

	assert.NoError(t, pipeline.ValidateAssignment(&pipeline.AssignmentInput{Link: " https://github.com/ada/x "}))
	assert.NoError(t, pipeline.ValidateAssignment(&pipeline.AssignmentInput{File: file}))
}
