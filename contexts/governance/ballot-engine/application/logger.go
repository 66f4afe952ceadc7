package application

import (
	"log/slog"

	"ballotbox/contexts/governance/ballot-engine/ports"
)

// Module is the value of the "module" log key for this bounded context.
const Module = "governance/ballot-engine"

// ResolveLogger guarantees a non-nil logger for application/worker code paths.
func ResolveLogger(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}

// Observe forwards a command outcome to recorder when one is configured.
func Observe(recorder ports.MetricsRecorder, command string, outcome string) {
	if recorder == nil {
		return
	}
	recorder.ObserveCommand(command, outcome)
}
