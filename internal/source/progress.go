package source

import "go.uber.org/zap"

// Monitor receives coarse progress reporting from a load: the step count,
// per-step descriptions, step advancement, and the final human-readable
// result. It is a narrow reporting boundary, not part of the resolution
// logic; implementations render it however suits their surface.
type Monitor interface {
	// SetStepCount announces how many steps the operation has.
	SetStepCount(n int)

	// SetDescription describes the current step.
	SetDescription(desc string)

	// Advance marks the current step as finished.
	Advance()

	// SetResult reports a final, user-facing result message.
	SetResult(msg string)
}

// NopMonitor discards all progress reporting.
type NopMonitor struct{}

// SetStepCount implements Monitor.
func (NopMonitor) SetStepCount(int) {}

// SetDescription implements Monitor.
func (NopMonitor) SetDescription(string) {}

// Advance implements Monitor.
func (NopMonitor) Advance() {}

// SetResult implements Monitor.
func (NopMonitor) SetResult(string) {}

// LogMonitor renders progress into the structured log.
type LogMonitor struct {
	log  *zap.SugaredLogger
	step int
	max  int
}

// NewLogMonitor creates a Monitor that logs each step and result.
func NewLogMonitor(log *zap.SugaredLogger) *LogMonitor {
	return &LogMonitor{log: log}
}

// SetStepCount implements Monitor.
func (m *LogMonitor) SetStepCount(n int) {
	m.max = n
	m.step = 0
}

// SetDescription implements Monitor.
func (m *LogMonitor) SetDescription(desc string) {
	m.log.Infof("[%d/%d] %s", m.step, m.max, desc)
}

// Advance implements Monitor.
func (m *LogMonitor) Advance() {
	if m.step < m.max {
		m.step++
	}
}

// SetResult implements Monitor.
func (m *LogMonitor) SetResult(msg string) {
	m.log.Infof("%s", msg)
}
