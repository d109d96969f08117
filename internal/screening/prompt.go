package screening

import (
	"fmt"
	"strings"

	"hirelane/pipeline-service/internal/pipeline"
)

// BuildPrompt returns the recruiter instruction for job. The resume itself
// is sent as a separate part.
func BuildPrompt(job pipeline.JobContext) string {
	var b strings.Builder
	b.WriteString("You are an expert HR recruiter. Compare the candidate resume against the job description, responsibilities and keywords.\n\n")
	fmt.Fprintf(&b, "Job Title:\n%q\n\n", job.Title)
	fmt.Fprintf(&b, "Job Description:\n%q\n\n", job.Description)
	if job.Responsibilities != "" {
		fmt.Fprintf(&b, "Responsibilities:\n%q\n\n", job.Responsibilities)
	}
	if job.Keywords != "" {
		fmt.Fprintf(&b, "Keywords:\n%q\n\n", job.Keywords)
	}
	fmt.Fprintf(&b, `Task:
1. Evaluate the relevance of the resume to the job.
2. Assign a score from 0 to 100. (%d is the passing threshold).
3. Provide a brief, honest reason for the score.
   - If the score is below %d, explain what is missing.
   - Otherwise, highlight strengths.
4. If the resume is unreadable or unrelated content, set score to null and say why.

Output ONLY strict JSON format:
{"score": 0-100 or null, "reason": "One sentence explanation"}
`, pipeline.PassThreshold, pipeline.PassThreshold)
	return b.String()
}

func resumeTextPart(text string) string {
	return "Candidate Resume Text:\n" + text
}
