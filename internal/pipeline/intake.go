package pipeline

import (
	"bytes"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// MinResumeTextLen is the shortest extracted text trusted for text-mode
// screening. Shorter extractions fall back to document mode.
const MinResumeTextLen = 50

// Upload is a file received from a form.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// IsPDF reports whether the upload is a PDF by declared type or magic bytes.
func (u *Upload) IsPDF() bool {
	if u == nil {
		return false
	}
	if strings.EqualFold(u.ContentType, "application/pdf") {
		return true
	}
	return bytes.HasPrefix(u.Data, []byte("%PDF-"))
}

// ApplicationInput is a public application form submission.
type ApplicationInput struct {
	JobID             string
	Name              string
	Email             string
	PortfolioURL      string
	NoticePeriod      string
	CurrentOrg        string
	YearsOfExperience string
	Resume            *Upload
}

// AssignmentInput is an assignment submission: a link or a file.
type AssignmentInput struct {
	Link string
	File *Upload
}

// JobInput is the payload to create a job.
type JobInput struct {
	Title             string     `json:"title" validate:"required,min=2"`
	Description       string     `json:"description" validate:"required,min=10"`
	Responsibilities  string     `json:"responsibilities"`
	Keywords          string     `json:"keywords"`
	AssignmentDetails string     `json:"assignmentDetails"`
	FormConfig        FormConfig `json:"formConfig"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// formField is one application field governed by FormConfig.
type formField struct {
	key   string
	label string
}

// Field order is the order errors are reported in.
var formFields = []formField{
	{"name", "Name"},
	{"email", "Email"},
	{"noticePeriod", "Notice Period"},
	{"currentOrg", "Current Organization"},
	{"yearsOfExperience", "Years of Experience"},
	{"portfolioUrl", "Portfolio URL"},
}

// Rules returns the declarative field requirements for an application to a
// job with this config, in validator tag syntax.
func (fc FormConfig) Rules() map[string]any {
	rules := map[string]any{
		"name":  "required",
		"email": "required,email",
	}
	if fc.IncludeNoticePeriod {
		rules["noticePeriod"] = "required"
	}
	if fc.IncludeCurrentOrg {
		rules["currentOrg"] = "required"
	}
	if fc.IncludeYearsExperience {
		rules["yearsOfExperience"] = "required"
	}
	if fc.IncludePortfolio {
		rules["portfolioUrl"] = "omitempty,url"
	}
	return rules
}

func (in *ApplicationInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.PortfolioURL = strings.TrimSpace(in.PortfolioURL)
	in.NoticePeriod = strings.TrimSpace(in.NoticePeriod)
	in.CurrentOrg = strings.TrimSpace(in.CurrentOrg)
	in.YearsOfExperience = strings.TrimSpace(in.YearsOfExperience)
}

func (in *ApplicationInput) values() map[string]any {
	return map[string]any{
		"name":              in.Name,
		"email":             in.Email,
		"noticePeriod":      in.NoticePeriod,
		"currentOrg":        in.CurrentOrg,
		"yearsOfExperience": in.YearsOfExperience,
		"portfolioUrl":      in.PortfolioURL,
	}
}

// ValidateApplication checks in against the job's form config. It returns
// the first failing field as a *ValidationError.
func ValidateApplication(fc FormConfig, in *ApplicationInput) error {
	in.normalize()
	failed := validate.ValidateMap(in.values(), fc.Rules())
	for _, f := range formFields {
		err, ok := failed[f.key]
		if !ok {
			continue
		}
		return &ValidationError{Field: f.key, Msg: describe(f.label, err)}
	}
	if fc.IncludeResume {
		if in.Resume == nil || len(in.Resume.Data) == 0 {
			return &ValidationError{Field: "resume", Msg: "Resume is required"}
		}
		if !in.Resume.IsPDF() {
			return &ValidationError{Field: "resume", Msg: "Resume must be a PDF file"}
		}
	}
	return nil
}

// ValidateJob checks a job creation payload.
func ValidateJob(in *JobInput) error {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	if err := validate.Struct(in); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) && len(ve) > 0 {
			fe := ve[0]
			return &ValidationError{Field: fe.Field(), Msg: describeTag(fe.Field(), fe.Tag(), fe.Param())}
		}
		return &ValidationError{Msg: err.Error()}
	}
	return nil
}

// ValidateAssignment checks that exactly one submission source is present.
func ValidateAssignment(in *AssignmentInput) error {
	in.Link = strings.TrimSpace(in.Link)
	hasFile := in.File != nil && len(in.File.Data) > 0
	switch {
	case in.Link != "" && hasFile:
		return &ValidationError{Field: "assignment", Msg: "Provide either a link or a file, not both"}
	case in.Link != "":
		if err := validate.Var(in.Link, "http_url"); err != nil {
			return &ValidationError{Field: "assignmentLink", Msg: "Assignment link must be an http(s) URL"}
		}
		return nil
	case hasFile:
		return nil
	default:
		return &ValidationError{Field: "assignment", Msg: "Please provide either a link or a file"}
	}
}

func describe(label string, err any) string {
	var ve validator.ValidationErrors
	if e, ok := err.(error); ok && errors.As(e, &ve) && len(ve) > 0 {
		return describeTag(label, ve[0].Tag(), ve[0].Param())
	}
	return fmt.Sprintf("%s is invalid", label)
}

func describeTag(label, tag, param string) string {
	switch tag {
	case "required":
		return fmt.Sprintf("%s is required", label)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", label)
	case "url", "http_url":
		return fmt.Sprintf("%s must be a valid URL", label)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", label, param)
	default:
		return fmt.Sprintf("%s is invalid", label)
	}
}
