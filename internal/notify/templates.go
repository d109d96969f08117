package notify

import (
	"bytes"
	"fmt"
	"html/template"
)

var layout = template.Must(template.New("layout").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; line-height: 1.5; color: #1f2937;">
<div style="max-width: 600px; margin: 0 auto; padding: 24px;">
{{block "content" .}}{{end}}
<p style="margin-top: 32px; color: #6b7280; font-size: 12px;">This message was sent by the hiring team for {{.JobTitle}}.</p>
</div>
</body>
</html>`))

var (
	assignmentTmpl = mustContent(`
<h2>Hi {{.Name}},</h2>
<p>Thanks for applying to <strong>{{.JobTitle}}</strong>. We liked your profile and would like you to complete a short assignment.</p>
<div style="background: #f3f4f6; padding: 16px; border-radius: 6px; white-space: pre-wrap;">{{.Details}}</div>
<p><a href="{{.Link}}" style="display: inline-block; padding: 10px 20px; background: #2563eb; color: #fff; text-decoration: none; border-radius: 6px;">Submit your assignment</a></p>`)

	rejectionTmpl = mustContent(`
<h2>Hi {{.Name}},</h2>
<p>Thank you for your interest in <strong>{{.JobTitle}}</strong>.</p>
<p>{{.Reason}}</p>
<p>We wish you the best in your search.</p>`)

	approvalTmpl = mustContent(`
<h2>Hi {{.Name}},</h2>
<p>Good news! You have moved to the interview stage for <strong>{{.JobTitle}}</strong>.</p>
<p>Pick one of the proposed times that works for you:</p>
<p><a href="{{.BookingLink}}" style="display: inline-block; padding: 10px 20px; background: #16a34a; color: #fff; text-decoration: none; border-radius: 6px;">Book your interview</a></p>`)
)

func mustContent(body string) *template.Template {
	t := template.Must(layout.Clone())
	return template.Must(t.New("content").Parse(body))
}

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return "", fmt.Errorf("render email: %w", err)
	}
	return buf.String(), nil
}
