package models

import "time"

// State is a Feedback Loop Controller state.
type State string

// Controller states
const (
	StateGenerating  State = "GENERATING"
	StateRunning     State = "RUNNING"
	StateFixing      State = "FIXING"
	StateSuccessPath State = "SUCCESS_PATH"
	StateSucceeded   State = "SUCCEEDED"
	StateExhausted   State = "EXHAUSTED"
	StateFailed      State = "FAILED" // external service failure, terminal for the run only
)

// IsTerminal reports whether no further transitions follow s.
func (s State) IsTerminal() bool {
	switch s {
	case StateSucceeded, StateExhausted, StateFailed:
		return true
	}
	return false
}

// LintOutcome summarizes how the lint sub-loop ended.
type LintOutcome string

// Lint outcomes
const (
	LintNotRun      LintOutcome = ""
	LintClean       LintOutcome = "clean"
	LintStillIssues LintOutcome = "still-has-issues"
)

// Summary is the final report of one develop session.
type Summary struct {
	SessionID    string
	Description  string
	ArtifactPath string
	State        State
	Attempts     int // Run attempts made before reaching the success path or exhaustion
	FixRequests  int
	LastResult   ExecutionResult

	// Optimization
	Optimized      bool          // Optimize transform was requested and persisted
	OptimizedRunOK bool          // Optimized artifact exited 0
	Improved       bool          // OptimizedRunOK and strictly faster
	Before         time.Duration // Duration of the last successful pre-optimize run
	After          time.Duration // Duration of the optimized run

	// Lint sub-loop
	Lint           LintOutcome
	LintRounds     int // lint-fix transforms issued
	LintChecks     int // quality gate invocations
	LastLintReport LintReport

	Err       error // External-service failure that ended the run, if any
	StartedAt time.Time
	EndedAt   time.Time
}

// Succeeded reports whether the artifact ran cleanly at least once.
func (s *Summary) Succeeded() bool {
	return s.State == StateSucceeded
}
