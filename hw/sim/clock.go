// Package sim drives the hardware units in virtual time. Time is an integer
// number of ticks; nothing here relates to wall-clock time.
package sim

import (
	"container/heap"

	"avrsim/emu/log"
	"avrsim/hw/hwdefs"
)

type event struct {
	at  int64
	seq uint64 // insertion order, to break ties
	s   hwdefs.Stepper
}

type eventQueue []event

func (q eventQueue) Len() int { return len(q) }
func (q eventQueue) Less(i, j int) bool {
	if q[i].at != q[j].at {
		return q[i].at < q[j].at
	}
	return q[i].seq < q[j].seq
}
func (q eventQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *eventQueue) Push(x any)   { *q = append(*q, x.(event)) }
func (q *eventQueue) Pop() any {
	old := *q
	e := old[len(old)-1]
	*q = old[:len(old)-1]
	return e
}

// Clock is a discrete-event scheduler. Steppers are run in deadline order;
// steppers due at the same tick run in the order they were (re)scheduled.
type Clock struct {
	now   int64
	seq   uint64
	queue eventQueue
}

func NewClock() *Clock {
	return &Clock{}
}

// Now returns the current simulation tick.
func (c *Clock) Now() int64 { return c.now }

// AddLogContext adds the current tick to every log record.
func (c *Clock) AddLogContext(z *log.EntryZ) {
	z.Int64("tick", c.now)
}

// Add schedules s to be stepped at the current tick.
func (c *Clock) Add(s hwdefs.Stepper) {
	c.AddAt(c.now, s)
}

// AddAt schedules s to be stepped at tick at.
func (c *Clock) AddAt(at int64, s hwdefs.Stepper) {
	if at < c.now {
		at = c.now
	}
	c.seq++
	heap.Push(&c.queue, event{at: at, seq: c.seq, s: s})
}

// Remove deschedules s.
func (c *Clock) Remove(s hwdefs.Stepper) {
	for i := range c.queue {
		if c.queue[i].s == s {
			heap.Remove(&c.queue, i)
			return
		}
	}
}

// Pending returns the number of scheduled steppers.
func (c *Clock) Pending() int { return len(c.queue) }

// Step runs the earliest scheduled stepper, advancing time to its deadline.
// It returns false if nothing is scheduled.
func (c *Clock) Step() bool {
	if len(c.queue) == 0 {
		return false
	}
	e := heap.Pop(&c.queue).(event)
	c.now = e.at
	_, next := e.s.Step()
	if next > 0 {
		c.AddAt(c.now+next, e.s)
	} else {
		log.ModSim.DebugZ("stepper descheduled").End()
	}
	return true
}

// Run runs all steppers due up to and including tick until, then sets the
// current time to until.
func (c *Clock) Run(until int64) {
	for len(c.queue) > 0 && c.queue[0].at <= until {
		c.Step()
	}
	if until > c.now {
		c.now = until
	}
}

// RunFor runs the simulation for the given number of ticks.
func (c *Clock) RunFor(ticks int64) {
	c.Run(c.now + ticks)
}

// Reset clears the schedule and rewinds time to 0.
func (c *Clock) Reset() {
	c.now = 0
	c.seq = 0
	c.queue = c.queue[:0]
}
