package asupersync

import (
	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// Logger is the runtime driver's operator-facing logging surface. Trace
// events (the data product consumed by trace.Recorder/trace.Replay) never
// flow through here — this is strictly for the things a human operator
// needs to notice: obligation leaks, refinement-firewall violations outside
// debug builds, and supervisor-style warnings, the same separation of
// concerns the teacher keeps between its Results channel (data) and
// nothing-else (the teacher does not log at all, so this type has no
// direct teacher ancestor beyond its backing library).
type Logger struct {
	l *logiface.Logger[*stumpy.Event]
}

// NewLogger builds a Logger writing newline-delimited JSON through stumpy,
// logiface's backend contributed by the retrieved example pack.
func NewLogger() *Logger {
	return &Logger{l: stumpy.L.New(stumpy.L.WithStumpy())}
}

// NewDiscardLogger builds a Logger that drops every event, for tests and
// for RuntimeConfig.Trace == TraceOff callers that want no operator noise
// either.
func NewDiscardLogger() *Logger {
	return &Logger{l: stumpy.L.New(
		stumpy.L.WithStumpy(),
		stumpy.L.WithWriter(logiface.WriterFunc[*stumpy.Event](func(*stumpy.Event) error { return nil })),
	)}
}

// ObligationLeak reports how many obligations were still open when a region
// closed. The runtime calls it with a zero taskID, since the report covers
// the whole region.
func (lg *Logger) ObligationLeak(taskID TaskID, regionID RegionID, count int) {
	lg.l.Warning().
		Str("task", taskID.String()).
		Str("region", regionID.String()).
		Int64("leaked_count", int64(count)).
		Log("obligation leak detected at region close")
}

// RefinementViolation reports a named refinement-firewall rule violation
// found while replaying a recorded trace outside a debug build.
func (lg *Logger) RefinementViolation(rule string, detail string) {
	lg.l.Err().
		Str("rule", rule).
		Str("detail", detail).
		Log("refinement firewall violation")
}

// SupervisionWarning reports a non-fatal runtime condition worth an
// operator's attention (admission rejection storms, reactor backend
// fallback, and similar), the counterpart to a worker-pool supervisor's
// warning channel.
func (lg *Logger) SupervisionWarning(msg string, fields map[string]string) {
	b := lg.l.Warning()
	for k, v := range fields {
		b = b.Str(k, v)
	}
	b.Log(msg)
}
