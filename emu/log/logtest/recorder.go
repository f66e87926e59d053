// Package logtest provides a logrus hook recording emitted records, so that
// tests can assert on diagnostics.
package logtest

import (
	"io"
	"sync"
	"testing"

	"gopkg.in/Sirupsen/logrus.v0"

	"avrsim/emu/log"
)

// Record is a captured log record.
type Record struct {
	Level  logrus.Level
	Module string
	Msg    string
	Fields map[string]any
}

// Recorder is a logrus.Hook keeping all fired records.
type Recorder struct {
	mu      sync.Mutex
	records []Record
}

func (r *Recorder) Levels() []logrus.Level {
	return []logrus.Level{
		logrus.PanicLevel,
		logrus.FatalLevel,
		logrus.ErrorLevel,
		logrus.WarnLevel,
		logrus.InfoLevel,
		logrus.DebugLevel,
	}
}

func (r *Recorder) Fire(e *logrus.Entry) error {
	rec := Record{
		Level:  e.Level,
		Msg:    e.Message,
		Fields: make(map[string]any, len(e.Data)),
	}
	for k, v := range e.Data {
		if k == "_mod" {
			rec.Module, _ = v.(string)
			continue
		}
		rec.Fields[k] = v
	}

	r.mu.Lock()
	r.records = append(r.records, rec)
	r.mu.Unlock()
	return nil
}

// Records returns a copy of the records captured so far.
func (r *Recorder) Records() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Record(nil), r.records...)
}

// Reset forgets all captured records.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.records = nil
	r.mu.Unlock()
}

// Count returns the number of records at level lvl or more severe.
func (r *Recorder) Count(lvl logrus.Level) int {
	n := 0
	for _, rec := range r.Records() {
		if rec.Level <= lvl {
			n++
		}
	}
	return n
}

// Warnings returns the number of warning (or more severe) records.
func (r *Recorder) Warnings() int {
	return r.Count(logrus.WarnLevel)
}

// Messages returns the messages of all records emitted by module mod.
func (r *Recorder) Messages(mod string) []string {
	var msgs []string
	for _, rec := range r.Records() {
		if rec.Module == mod {
			msgs = append(msgs, rec.Msg)
		}
	}
	return msgs
}

// Capture installs a new Recorder for the duration of the test. Log output is
// discarded unless testing is verbose.
func Capture(tb testing.TB) *Recorder {
	tb.Helper()

	r := &Recorder{}
	log.ResetHooks()
	log.AddHook(r)
	if !testing.Verbose() {
		log.SetOutput(io.Discard)
	}
	tb.Cleanup(func() {
		log.ResetHooks()
		log.SetOutput(stderr)
	})
	return r
}
