package logger

import "github.com/harrison/megacoder/internal/models"

// Multi fans every message out to several loggers in order.
type Multi []Logger

// NewMulti builds a Multi, skipping nil loggers.
func NewMulti(loggers ...Logger) Multi {
	m := make(Multi, 0, len(loggers))
	for _, l := range loggers {
		if l != nil {
			m = append(m, l)
		}
	}
	return m
}

func (m Multi) LogTrace(message string) {
	for _, l := range m {
		l.LogTrace(message)
	}
}

func (m Multi) LogDebug(message string) {
	for _, l := range m {
		l.LogDebug(message)
	}
}

func (m Multi) LogInfo(message string) {
	for _, l := range m {
		l.LogInfo(message)
	}
}

func (m Multi) LogWarn(message string) {
	for _, l := range m {
		l.LogWarn(message)
	}
}

func (m Multi) LogError(message string) {
	for _, l := range m {
		l.LogError(message)
	}
}

func (m Multi) LogSuccess(message string) {
	for _, l := range m {
		l.LogSuccess(message)
	}
}

func (m Multi) LogProgramOutput(output string) {
	for _, l := range m {
		l.LogProgramOutput(output)
	}
}

func (m Multi) LogAttempt(attempt, max int) {
	for _, l := range m {
		l.LogAttempt(attempt, max)
	}
}

func (m Multi) LogSummary(summary models.Summary) {
	for _, l := range m {
		l.LogSummary(summary)
	}
}
