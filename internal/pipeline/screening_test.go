package pipeline_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"hirelane/pipeline-service/internal/pipeline"
)

func intPtr(v int) *int { return &v }

func TestAdjudicate_Thresholds(t *testing.T) {
	assert.Equal(t, pipeline.Indeterminate, pipeline.Adjudicate(nil))
	assert.Equal(t, pipeline.Pass, pipeline.Adjudicate(intPtr(70)), "exactly 70 passes")
	assert.Equal(t, pipeline.Fail, pipeline.Adjudicate(intPtr(69)))

	for s := 0; s <= 100; s++ {
		want := pipeline.Fail
		if s >= pipeline.PassThreshold {
			want = pipeline.Pass
		}
		assert.Equal(t, want, pipeline.Adjudicate(intPtr(s)), "score %d", s)
	}
}

func TestOutcome_Status(t *testing.T) {
	assert.Equal(t, pipeline.StatusAssignmentSent, pipeline.Pass.Status())
	assert.Equal(t, pipeline.StatusRejected, pipeline.Fail.Status())
	assert.Equal(t, pipeline.StatusApplied, pipeline.Indeterminate.Status())
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "PASS", pipeline.Pass.String())
	assert.Equal(t, "FAIL", pipeline.Fail.String())
	assert.Equal(t, "INDETERMINATE", pipeline.Indeterminate.String())
}
