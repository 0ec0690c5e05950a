package trace

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
)

// Recorder appends Events to an underlying writer as JSONL, prefixed by a
// Header line, assigning strictly increasing sequence numbers. It is the
// data-product counterpart to the runtime's operator-facing Logger: trace
// events are never routed through logiface, since they are a structured
// artifact meant for Replay/Compare, not a human log line.
type Recorder struct {
	mu     sync.Mutex
	w      *bufio.Writer
	seq    uint64
	header Header
	wrote  bool
}

// NewRecorder builds a Recorder over w, stamping the trace with a fresh
// run id (via github.com/google/uuid, this package's external, human-facing
// identifier, distinct from the runtime's internal arena-based TaskID/
// RegionID) and seed.
func NewRecorder(w io.Writer, seed uint64) *Recorder {
	return &Recorder{
		w: bufio.NewWriter(w),
		header: Header{
			SchemaVersion: SchemaVersion,
			RunID:         uuid.NewString(),
			Seed:          seed,
		},
	}
}

// RunID returns the trace's run identifier.
func (r *Recorder) RunID() string { return r.header.RunID }

// Record appends one event, assigning it the next sequence number and
// ignoring whatever Seq the caller set. It writes the header first if this
// is the first call.
func (r *Recorder) Record(evt Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.wrote {
		if err := r.writeLine(r.header); err != nil {
			return err
		}
		r.wrote = true
	}
	r.seq++
	evt.Seq = r.seq
	return r.writeLine(evt)
}

func (r *Recorder) writeLine(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("trace: encode: %w", err)
	}
	if _, err := r.w.Write(b); err != nil {
		return err
	}
	return r.w.WriteByte('\n')
}

// Flush flushes buffered output to the underlying writer.
func (r *Recorder) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.w.Flush()
}

// RecordNamed is a convenience used by lab.Runner's trace sink: it builds an
// Event from a free-form event name and task id string, rather than
// requiring the caller to construct an Event directly. The runtime driver's
// own trace sink calls Record instead.
func (r *Recorder) RecordNamed(taskIDString string, name string, fields map[string]any) error {
	return r.Record(Event{Kind: Kind(name), TaskID: taskIDString, Fields: fields})
}
