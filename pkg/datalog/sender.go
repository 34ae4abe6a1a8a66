package datalog

import "github.com/fieldtrace/telemetry-bridge/pkg/timesync"

// StartEntry declares a new entry. Returns ErrAlreadyExists if name is
// already declared (the caller should check Summary first if it wants to
// tolerate redeclaration, as the frontend write path does).
func (s Sender) StartEntry(name, entryType, metadata string) error {
	cmd := command{kind: recordStart, name: name, typ: entryType, metadata: metadata, done: make(chan error, 1)}
	return s.submit(cmd)
}

// Append writes payload to name at the current time.
func (s Sender) Append(name string, payload []byte) error {
	return s.AppendAt(name, timesync.NowMicros(), payload)
}

// AppendAt writes payload to name at the given microsecond timestamp.
// A timestamp earlier than the entry's last mark is clamped to that
// mark's timestamp plus one and logged (see DESIGN.md Open Question
// decisions).
func (s Sender) AppendAt(name string, micros int64, payload []byte) error {
	cmd := command{kind: recordData, name: name, micros: micros, payload: payload, done: make(chan error, 1)}
	return s.submit(cmd)
}

// Finish marks name as closed. Marks may no longer be appended to it.
func (s Sender) Finish(name string) error {
	cmd := command{kind: recordFinish, name: name, done: make(chan error, 1)}
	return s.submit(cmd)
}

func (s Sender) submit(cmd command) error {
	select {
	case <-s.w.closed:
		return ErrClosed
	default:
	}
	select {
	case s.w.cmds <- cmd:
	case <-s.w.closed:
		return ErrClosed
	}
	return <-cmd.done
}

// Writer returns the underlying Writer for read operations (Summary,
// Marks, AllEntries). Senders are safe to pass around and clone; reads
// against the Writer take only a brief RWMutex, never blocking on I/O.
func (s Sender) Writer() *Writer { return s.w }
