// Package query implements the read-only polling surface (§4.6):
// PollTopic, PollTopicWithHistory, AllEntriesOfFile, and the
// supplemented full-dump AllEntriesAsObject. Readers never touch an
// engine directly and never suspend or mutate engine state.
package query

import (
	"fmt"

	"github.com/fieldtrace/telemetry-bridge/internal/nt4"
	"github.com/fieldtrace/telemetry-bridge/internal/registry"
	"github.com/fieldtrace/telemetry-bridge/pkg/datalog"
	"github.com/fieldtrace/telemetry-bridge/pkg/value"
)

var ErrTopicNotFound = nt4.ErrTopicNotFound

// Surface is the process-wide read path over a Registry and a Datalog
// Writer's live index.
type Surface struct {
	reg *registry.Registry
}

func NewSurface(reg *registry.Registry) *Surface {
	return &Surface{reg: reg}
}

// PollTopic returns the most recent value observed for topic on the
// client identified by id.
func (s *Surface) PollTopic(id nt4.ClientID, topic string) (value.Timestamped, error) {
	engine, ok := s.reg.Get(id)
	if !ok {
		return value.Timestamped{}, fmt.Errorf("query: client %s not running", id)
	}
	tv, ok := engine.Latest(topic)
	if !ok {
		return value.Timestamped{}, fmt.Errorf("%w: %s", ErrTopicNotFound, topic)
	}
	return tv, nil
}

// PollTopicWithHistory returns the marks recorded for topic in the
// datalog with timestamps strictly after afterMicros, read under the
// client's identity-prefixed entry name, as the key convention
// "identity/topic" (spec.md §4.6; see DESIGN.md Open Question decisions).
func (s *Surface) PollTopicWithHistory(w *datalog.Writer, id nt4.ClientID, topic string, afterMicros int64) ([]datalog.Mark, error) {
	name := id.Identity + "/" + topic
	marks, err := w.Marks(name)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	out := make([]datalog.Mark, 0, len(marks))
	for _, m := range marks {
		if m.Micros > afterMicros {
			out = append(out, m)
		}
	}
	return out, nil
}

// AllEntriesOfFile lists every entry summary recorded in w.
func (s *Surface) AllEntriesOfFile(w *datalog.Writer) []datalog.Summary {
	return w.Summaries()
}

// AllEntriesAsObject returns every entry in w as a value.Object whose
// per-field history is the entry's complete mark sequence, matching the
// original source's retrieve_dl_daemon_data full-dump query
// (datalog/tauri_cmds.rs).
func (s *Surface) AllEntriesAsObject(w *datalog.Writer) (*value.Object, error) {
	obj := value.NewObject()
	for _, summary := range w.Summaries() {
		marks, err := w.Marks(summary.Name)
		if err != nil {
			continue
		}
		key := value.ParseKey(summary.Name)
		hist := make([]value.Timestamped, 0, len(marks))
		for _, m := range marks {
			v, err := value.FromDatalog(summary.Type, m.Payload)
			if err != nil {
				continue
			}
			hist = append(hist, value.Timestamped{Value: v, Micros: m.Micros})
		}
		if len(hist) > 0 {
			obj.AddField(key, hist[len(hist)-1])
			obj.SetHistory(key, hist)
		}
	}
	return obj, nil
}
