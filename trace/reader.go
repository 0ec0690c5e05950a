package trace

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
)

// Read parses a trace from r: a Header line followed by Event lines. A
// truncated or corrupt event line (such as a partial write from a crashed
// run) ends the read without an error: that line and every line after it
// are dropped, and Read does not report how much it dropped.
func Read(r io.Reader) (Header, []Event, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var header Header
	var events []Event
	first := true

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if first {
			if err := json.Unmarshal(line, &header); err != nil {
				return Header{}, nil, fmt.Errorf("trace: invalid header: %w", err)
			}
			first = false
			continue
		}
		var evt Event
		if err := json.Unmarshal(line, &evt); err != nil {
			// Corrupt tail: stop reading rather than fail. A trace is
			// useful for replay up to the last fully-written event.
			break
		}
		events = append(events, evt)
	}
	if err := scanner.Err(); err != nil {
		return header, events, err
	}
	if first {
		return Header{}, nil, fmt.Errorf("trace: empty input, no header")
	}
	if header.SchemaVersion != SchemaVersion {
		return header, events, fmt.Errorf("trace: unsupported schema version %d (want %d)", header.SchemaVersion, SchemaVersion)
	}
	return header, events, nil
}

// Normalize returns a copy of events with volatile fields removed (wall-
// clock TimeNS is kept since callers compare within one virtual-time
// domain, but any "addr"/"goroutine"-style debug fields under Fields that
// would differ between two otherwise-equivalent runs are stripped), so two
// recordings of the same logical run compare equal even if captured under
// different process instances. volatileKeys names the Fields keys to drop;
// with none given, Normalize returns events itself, unchanged.
func Normalize(events []Event, volatileKeys ...string) []Event {
	if len(volatileKeys) == 0 {
		return events
	}
	drop := make(map[string]struct{}, len(volatileKeys))
	for _, k := range volatileKeys {
		drop[k] = struct{}{}
	}
	out := make([]Event, len(events))
	for i, e := range events {
		if len(e.Fields) == 0 {
			out[i] = e
			continue
		}
		fields := make(map[string]any, len(e.Fields))
		for k, v := range e.Fields {
			if _, skip := drop[k]; skip {
				continue
			}
			fields[k] = v
		}
		e.Fields = fields
		out[i] = e
	}
	return out
}
