package pipeline

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStepStateTransitions(t *testing.T) {
	tests := []struct {
		name        string
		apply       func(*StepState)
		wantStatus  StepStatus
		wantMessage string
		hasDuration bool
	}{
		{
			name:       "new state is pending",
			apply:      func(*StepState) {},
			wantStatus: StepStatusPending,
		},
		{
			name:        "start then complete",
			apply:       func(s *StepState) { s.Start(); time.Sleep(time.Millisecond); s.Complete() },
			wantStatus:  StepStatusCompleted,
			hasDuration: true,
		},
		{
			name:        "start then fail",
			apply:       func(s *StepState) { s.Start(); s.Fail(errors.New("bad column")) },
			wantStatus:  StepStatusFailed,
			wantMessage: "bad column",
			hasDuration: true,
		},
		{
			name:        "skip",
			apply:       func(s *StepState) { s.Skip("normalize failed") },
			wantStatus:  StepStatusSkipped,
			wantMessage: "normalize failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := NewStepState("id", "Name")
			tt.apply(st)

			assert.Equal(t, tt.wantStatus, st.GetStatus())
			assert.Equal(t, tt.wantMessage, st.Message)
			if tt.hasDuration {
				assert.NotNil(t, st.StartTime)
				assert.NotNil(t, st.EndTime)
				assert.GreaterOrEqual(t, st.Duration(), time.Duration(0))
			} else {
				assert.Zero(t, st.Duration())
			}
		})
	}
}

func TestBaseStep(t *testing.T) {
	b := NewBaseStep("normalize", "Normalize values")
	assert.Equal(t, "normalize", b.ID())
	assert.Equal(t, "Normalize values", b.Name())
}
