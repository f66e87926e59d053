// Package trace implements the observational trace channel: named values
// whose changes and accesses are recorded with the simulation tick at which
// they happen. Tracing never alters simulated behavior.
package trace

import (
	"fmt"
	"strings"
)

type Kind uint8

const (
	Change Kind = iota // value changed
	Read               // value read by the bus
	Write              // value written by the bus
)

func (k Kind) String() string {
	switch k {
	case Change:
		return "change"
	case Read:
		return "read"
	case Write:
		return "write"
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// A Record is one trace event.
type Record struct {
	Tick int64
	Name string
	Kind Kind
	Old  uint32
	New  uint32
	Text string // New, formatted by the value formatter
}

// A Sink receives trace records.
type Sink interface {
	Record(r Record)
}

// A Clock provides the timestamp of trace records.
type Clock interface {
	Now() int64
}

// Tracer dispatches trace records from all registries to a sink. The zero
// value and a nil *Tracer are valid, tracing is then off.
type Tracer struct {
	clock Clock
	sink  Sink

	regs []*Registry
}

func NewTracer(clock Clock) *Tracer {
	return &Tracer{clock: clock}
}

// SetSink attaches a sink, nil turns tracing off.
func (t *Tracer) SetSink(s Sink) {
	t.sink = s
}

// On reports whether records are currently emitted.
func (t *Tracer) On() bool {
	return t != nil && t.sink != nil
}

func (t *Tracer) now() int64 {
	if t.clock == nil {
		return 0
	}
	return t.clock.Now()
}

func (t *Tracer) emit(r Record) {
	if !t.On() {
		return
	}
	r.Tick = t.now()
	t.sink.Record(r)
}

// Registry returns a new registry whose value names are prefixed with
// prefix.
func (t *Tracer) Registry(prefix string) *Registry {
	r := &Registry{prefix: prefix, tracer: t}
	if t != nil {
		t.regs = append(t.regs, r)
	}
	return r
}

// Names returns the full names of all registered values, in registration
// order.
func (t *Tracer) Names() []string {
	if t == nil {
		return nil
	}
	var names []string
	for _, r := range t.regs {
		names = append(names, r.Names()...)
	}
	return names
}

// Find returns the value registered under its full name.
func (t *Tracer) Find(name string) (*Value, bool) {
	if t == nil {
		return nil, false
	}
	for _, r := range t.regs {
		if v, ok := r.Find(name); ok {
			return v, true
		}
	}
	return nil, false
}

// Registry groups the trace values of one hardware unit.
type Registry struct {
	prefix string
	tracer *Tracer
	values []*Value
}

func (r *Registry) Prefix() string { return r.prefix }

func (r *Registry) fullName(name string) string {
	if r.prefix == "" {
		return name
	}
	return r.prefix + "." + name
}

// Register creates a value named name within the registry. format may be nil,
// values are then formatted as 2-digit hexadecimal.
func (r *Registry) Register(name string, format func(uint32) string) *Value {
	if format == nil {
		format = Hex8
	}
	v := &Value{
		name:   r.fullName(name),
		format: format,
		reg:    r,
	}
	r.values = append(r.values, v)
	return v
}

// Unregister removes v from the registry. v stays usable but stops emitting.
func (r *Registry) Unregister(v *Value) {
	for i, vv := range r.values {
		if vv == v {
			r.values = append(r.values[:i], r.values[i+1:]...)
			v.reg = nil
			return
		}
	}
}

func (r *Registry) Find(name string) (*Value, bool) {
	for _, v := range r.values {
		if v.name == name {
			return v, true
		}
	}
	return nil, false
}

func (r *Registry) Names() []string {
	names := make([]string, len(r.values))
	for i, v := range r.values {
		names[i] = v.name
	}
	return names
}

// On reports whether tracing is on for the registry.
func (r *Registry) On() bool {
	return r != nil && r.tracer.On()
}

// Value is a named traced quantity.
type Value struct {
	name    string
	val     uint32
	written bool
	format  func(uint32) string
	reg     *Registry
}

func (v *Value) Name() string   { return v.name }
func (v *Value) Value() uint32  { return v.val }
func (v *Value) Written() bool  { return v.written }
func (v *Value) String() string { return v.name + "=" + v.format(v.val) }

func (v *Value) emit(kind Kind, old, val uint32) {
	if v.reg == nil {
		return
	}
	v.reg.tracer.emit(Record{
		Name: v.name,
		Kind: kind,
		Old:  old,
		New:  val,
		Text: v.format(val),
	})
}

// SetWritten sets the initial value of v, without emitting a record.
func (v *Value) SetWritten(val uint32) {
	if v == nil {
		return
	}
	v.val = val
	v.written = true
}

// Change records a new value. Nothing is emitted if the value didn't change
// since the last record.
func (v *Value) Change(val uint32) {
	if v == nil {
		return
	}
	old := v.val
	if v.written && old == val {
		return
	}
	v.val = val
	v.written = true
	v.emit(Change, old, val)
}

// ChangeMask records a change of the bits selected by mask.
func (v *Value) ChangeMask(val, mask uint32) {
	if v == nil {
		return
	}
	v.Change(v.val&^mask | val&mask)
}

// Access records a bus access, without changing the value.
func (v *Value) Access(kind Kind, val uint32) {
	if v == nil {
		return
	}
	v.emit(kind, v.val, val)
}

// Hex8 formats a byte value.
func Hex8(val uint32) string {
	return fmt.Sprintf("%02x", uint8(val))
}

// Char formats a value holding a single character (pin states).
func Char(val uint32) string {
	return string(rune(val))
}

// Dump writes the current value of all values of the tracer, one per line.
func (t *Tracer) Dump() string {
	if t == nil {
		return ""
	}
	var sb strings.Builder
	for _, r := range t.regs {
		for _, v := range r.values {
			sb.WriteString(v.String())
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}
