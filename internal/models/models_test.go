package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRoleValidate(t *testing.T) {
	for _, r := range Roles {
		assert.NoError(t, r.Validate(), r)
	}
	assert.Error(t, Role("refactor").Validate())
	assert.Error(t, Role("").Validate())
}

func TestStateIsTerminal(t *testing.T) {
	tests := []struct {
		state State
		want  bool
	}{
		{StateGenerating, false},
		{StateRunning, false},
		{StateFixing, false},
		{StateSuccessPath, false},
		{StateSucceeded, true},
		{StateExhausted, true},
		{StateFailed, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.state.IsTerminal())
		})
	}
}

func TestExecutionResult(t *testing.T) {
	ok := ExecutionResult{ExitCode: 0, Duration: 1500 * time.Microsecond}
	assert.True(t, ok.Succeeded())
	assert.False(t, ok.LaunchFailed())
	assert.InDelta(t, 1.5, ok.Millis(), 1e-9)

	failed := ExecutionResult{ExitCode: 2}
	assert.False(t, failed.Succeeded())
	assert.False(t, failed.LaunchFailed())

	launch := ExecutionResult{ExitCode: LaunchFailedExitCode, Stderr: "exec: not found"}
	assert.False(t, launch.Succeeded())
	assert.True(t, launch.LaunchFailed())
	assert.Zero(t, launch.Millis())
}

func TestSummarySucceeded(t *testing.T) {
	s := &Summary{State: StateSucceeded}
	assert.True(t, s.Succeeded())

	s.State = StateExhausted
	assert.False(t, s.Succeeded())
}
