package trace

import (
	"fmt"
	"io"

	"github.com/go-faster/jx"

	"avrsim/emu/log"
)

// TextSink writes one line per record:
//
//	<tick> <name> <old>-><new>     (change)
//	<tick> <name>--><new>          (read)
//	<tick> <name>=<new>            (write)
type TextSink struct {
	W io.Writer
}

func (s TextSink) Record(r Record) {
	var err error
	switch r.Kind {
	case Read:
		_, err = fmt.Fprintf(s.W, "%d %s-->%s\n", r.Tick, r.Name, r.Text)
	case Write:
		_, err = fmt.Fprintf(s.W, "%d %s=%s\n", r.Tick, r.Name, r.Text)
	default:
		_, err = fmt.Fprintf(s.W, "%d %s %x->%s\n", r.Tick, r.Name, r.Old, r.Text)
	}
	if err != nil {
		log.ModTrace.ErrorZ("trace write failed").Error("err", err).End()
	}
}

// JSONSink writes records as JSON lines:
//
//	{"tick":12,"name":"PORTB.DDRB","kind":"change","old":0,"new":1,"text":"01"}
type JSONSink struct {
	W io.Writer

	enc jx.Encoder
}

func NewJSONSink(w io.Writer) *JSONSink {
	return &JSONSink{W: w}
}

func (s *JSONSink) Record(r Record) {
	e := &s.enc
	e.Reset()
	EncodeRecord(e, r)
	e.RawStr("\n")
	if _, err := s.W.Write(e.Bytes()); err != nil {
		log.ModTrace.ErrorZ("trace write failed").Error("err", err).End()
	}
}

// EncodeRecord encodes r as a JSON object.
func EncodeRecord(e *jx.Encoder, r Record) {
	e.ObjStart()
	e.FieldStart("tick")
	e.Int64(r.Tick)
	e.FieldStart("name")
	e.Str(r.Name)
	e.FieldStart("kind")
	e.Str(r.Kind.String())
	e.FieldStart("old")
	e.UInt32(r.Old)
	e.FieldStart("new")
	e.UInt32(r.New)
	e.FieldStart("text")
	e.Str(r.Text)
	e.ObjEnd()
}

// DecodeRecord decodes a record encoded by EncodeRecord.
func DecodeRecord(d *jx.Decoder) (Record, error) {
	var r Record
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "tick":
			r.Tick, err = d.Int64()
		case "name":
			r.Name, err = d.Str()
		case "kind":
			var s string
			s, err = d.Str()
			switch s {
			case "read":
				r.Kind = Read
			case "write":
				r.Kind = Write
			default:
				r.Kind = Change
			}
		case "old":
			r.Old, err = d.UInt32()
		case "new":
			r.New, err = d.UInt32()
		case "text":
			r.Text, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
	return r, err
}

// Memory is a Sink keeping records in memory.
type Memory struct {
	Records []Record
}

func (m *Memory) Record(r Record) {
	m.Records = append(m.Records, r)
}

// Named returns the records of the value with the given full name.
func (m *Memory) Named(name string) []Record {
	var recs []Record
	for _, r := range m.Records {
		if r.Name == name {
			recs = append(recs, r)
		}
	}
	return recs
}

func (m *Memory) Reset() {
	m.Records = m.Records[:0]
}
