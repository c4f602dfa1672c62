package models

import "time"

// LaunchFailedExitCode marks an ExecutionResult whose process never started.
const LaunchFailedExitCode = -1

// ExecutionResult is an immutable snapshot of one artifact run.
type ExecutionResult struct {
	ExitCode int           // Process exit status, LaunchFailedExitCode if it never started
	Stdout   string        // Captured standard output
	Stderr   string        // Captured standard error (launch error text on launch failure)
	Duration time.Duration // Wall-clock time of the run, zero on launch failure
}

// Succeeded reports whether the run exited with status 0.
func (r ExecutionResult) Succeeded() bool {
	return r.ExitCode == 0
}

// LaunchFailed reports whether the result is the synthetic launch-failure sentinel.
func (r ExecutionResult) LaunchFailed() bool {
	return r.ExitCode == LaunchFailedExitCode
}

// Millis returns the run duration in fractional milliseconds.
func (r ExecutionResult) Millis() float64 {
	return float64(r.Duration) / float64(time.Millisecond)
}

// LintReport is the outcome of one quality gate check.
type LintReport struct {
	HasIssues bool   // True when the lint tool exited non-zero
	Output    string // Stdout followed by stderr
}
