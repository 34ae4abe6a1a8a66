package value

import "fmt"

// Timestamped pairs a Value with the microsecond timestamp it was
// observed at (client-clock microseconds; the engine converts server
// timestamps through the Time Bridge).
type Timestamped struct {
	Value  Value
	Micros int64
}

// Field is a single named, timestamped value within an Object.
type Field struct {
	Key         Key
	Timestamped Timestamped
}

// Object is an ordered collection of fields, each with an optional
// history of prior timestamped values, plus a top-level last-update
// timestamp. Invariants (spec.md §3):
//   - at most one field per Key
//   - a field's history, if present, ends with its current live value
//   - history timestamps are non-decreasing
type Object struct {
	order   []string
	fields  map[string]Field
	history map[string][]Timestamped
	Micros  int64
}

func NewObject() *Object {
	return &Object{
		fields:  make(map[string]Field),
		history: make(map[string][]Timestamped),
	}
}

// AddField inserts or replaces a field without recording history.
func (o *Object) AddField(k Key, tv Timestamped) {
	key := k.String()
	if _, exists := o.fields[key]; !exists {
		o.order = append(o.order, key)
	}
	o.fields[key] = Field{Key: k, Timestamped: tv}
	if tv.Micros > o.Micros {
		o.Micros = tv.Micros
	}
}

// AddFieldWithHistory inserts or replaces a field and appends tv to its
// history, enforcing the non-decreasing-timestamp invariant by dropping
// (and logging via the caller) any out-of-order sample instead of
// corrupting history order.
func (o *Object) AddFieldWithHistory(k Key, tv Timestamped) error {
	key := k.String()
	if hist := o.history[key]; len(hist) > 0 {
		last := hist[len(hist)-1]
		if tv.Micros < last.Micros {
			return fmt.Errorf("value: out-of-order history sample for %s: %d < %d", key, tv.Micros, last.Micros)
		}
	}
	o.AddField(k, tv)
	o.history[key] = append(o.history[key], tv)
	return nil
}

// GetField returns the live value for key, if present.
func (o *Object) GetField(key Key) (Field, bool) {
	f, ok := o.fields[key.String()]
	return f, ok
}

// GetFieldWithHistory returns the full history for key, oldest first.
func (o *Object) GetFieldWithHistory(key Key) []Timestamped {
	hist := o.history[key.String()]
	out := make([]Timestamped, len(hist))
	copy(out, hist)
	return out
}

// SetHistory replaces the stored history for key wholesale, e.g. when
// loading a windowed slice from the datalog.
func (o *Object) SetHistory(key Key, hist []Timestamped) {
	o.history[key.String()] = append([]Timestamped(nil), hist...)
}

// Fields returns all live fields in insertion order.
func (o *Object) Fields() []Field {
	out := make([]Field, 0, len(o.order))
	for _, key := range o.order {
		out = append(out, o.fields[key])
	}
	return out
}

// UpdateFields merges another Object's live fields into o, field by
// field, without touching history.
func (o *Object) UpdateFields(other *Object) {
	for _, f := range other.Fields() {
		o.AddField(f.Key, f.Timestamped)
	}
}

// UpdateAll merges another Object's fields and appends to history for
// each, used when folding a batch of engine-observed samples.
func (o *Object) UpdateAll(other *Object) []error {
	var errs []error
	for _, f := range other.Fields() {
		if err := o.AddFieldWithHistory(f.Key, f.Timestamped); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

func (o *Object) UpdateTimestamp(micros int64) {
	if micros > o.Micros {
		o.Micros = micros
	}
}
