// Package stats aggregates what virtual users observe during a run: request
// latencies and status codes per endpoint, check results, task outcomes and
// transport errors.
package stats

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	hdrhistogram "github.com/HdrHistogram/hdrhistogram-go"
)

const (
	// latencies are recorded in microseconds between 1µs and 10 minutes
	minLatency  = 1
	maxLatency  = int64(10 * time.Minute / time.Microsecond)
	sigFigures  = 3
	maxTimeline = 200000
)

// Sample is one completed request.
type Sample struct {
	// Name groups requests in the report, e.g. "/short/[shortUrl]".
	Name    string
	Method  string
	Status  int
	Latency time.Duration
	Size    int64
	// Err is the transport error, if any.
	Err    error
	Failed bool
	At     time.Time
}

// Observer is notified of every recorded event, e.g. to export metrics.
type Observer interface {
	ObserveRequest(s Sample)
	ObserveCheck(name string, passed bool)
	ObserveTask(name string, outcome Outcome)
	ObserveUsers(n int)
}

// Outcome classifies the end of one task execution.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeFailure
	OutcomeSkipped
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeFailure:
		return "failure"
	case OutcomeSkipped:
		return "skipped"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

type entry struct {
	method      string
	name        string
	requests    int64
	failures    int64
	bytes       int64
	statusCodes map[int]int64
	latencies   *hdrhistogram.Histogram
}

func newEntry(method, name string) *entry {
	return &entry{
		method:      method,
		name:        name,
		statusCodes: map[int]int64{},
		latencies:   hdrhistogram.New(minLatency, maxLatency, sigFigures),
	}
}

func (e *entry) add(s Sample) {
	e.requests++
	e.bytes += s.Size
	if s.Failed || s.Err != nil {
		e.failures++
	}
	if s.Err == nil {
		e.statusCodes[s.Status]++
	}
	_ = e.latencies.RecordValue(clamp(s.Latency.Microseconds()))
}

func clamp(us int64) int64 {
	if us < minLatency {
		return minLatency
	}
	if us > maxLatency {
		return maxLatency
	}
	return us
}

// Point is a request latency at a moment of the run, used for plotting.
type Point struct {
	Elapsed time.Duration
	Latency time.Duration
}

type taskCounts struct {
	runs, failures, skips int64
}

// Collector is safe for concurrent use by all virtual users.
type Collector struct {
	mu        sync.Mutex
	start     time.Time
	users     int
	entries   map[string]*entry
	total     *entry
	checks    map[string]*Check
	tasks     map[string]*taskCounts
	errors    map[string]int64
	timeline  []Point
	observers []Observer
	now       func() time.Time
}

// New returns an empty collector; the run starts now.
func New(observers ...Observer) *Collector {
	c := &Collector{
		entries:   map[string]*entry{},
		total:     newEntry("", "Aggregated"),
		checks:    map[string]*Check{},
		tasks:     map[string]*taskCounts{},
		errors:    map[string]int64{},
		observers: observers,
		now:       time.Now,
	}
	c.start = c.now()

	return c
}

// RecordRequest adds one completed request.
func (c *Collector) RecordRequest(s Sample) {
	c.mu.Lock()
	key := s.Method + " " + s.Name
	e, ok := c.entries[key]
	if !ok {
		e = newEntry(s.Method, s.Name)
		c.entries[key] = e
	}
	e.add(s)
	c.total.add(s)

	if s.Err != nil {
		c.errors[fmt.Sprintf("%s %s: %s", s.Method, s.Name, collapseError(s.Err.Error()))]++
	} else if s.Failed {
		c.errors[fmt.Sprintf("%s %s: unexpected status %d", s.Method, s.Name, s.Status)]++
	}

	if len(c.timeline) < maxTimeline {
		at := s.At
		if at.IsZero() {
			at = c.now()
		}
		c.timeline = append(c.timeline, Point{Elapsed: at.Sub(c.start), Latency: s.Latency})
	}
	c.mu.Unlock()

	for _, o := range c.observers {
		o.ObserveRequest(s)
	}
}

// RecordCheck adds the result of one named check.
func (c *Collector) RecordCheck(name string, passed bool) {
	c.mu.Lock()
	check, ok := c.checks[name]
	if !ok {
		check = &Check{Name: name}
		c.checks[name] = check
	}
	if passed {
		check.Passes++
	} else {
		check.Fails++
	}
	c.mu.Unlock()

	for _, o := range c.observers {
		o.ObserveCheck(name, passed)
	}
}

// RecordTask adds the outcome of one task execution.
func (c *Collector) RecordTask(name string, outcome Outcome) {
	c.mu.Lock()
	t, ok := c.tasks[name]
	if !ok {
		t = &taskCounts{}
		c.tasks[name] = t
	}
	switch outcome {
	case OutcomeSkipped:
		t.skips++
	case OutcomeFailure:
		t.runs++
		t.failures++
	default:
		t.runs++
	}
	c.mu.Unlock()

	for _, o := range c.observers {
		o.ObserveTask(name, outcome)
	}
}

// SetUsers records how many virtual users are running.
func (c *Collector) SetUsers(n int) {
	c.mu.Lock()
	c.users = n
	c.mu.Unlock()

	for _, o := range c.observers {
		o.ObserveUsers(n)
	}
}

// Timeline returns the latency of each request against its elapsed time.
func (c *Collector) Timeline() []Point {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]Point(nil), c.timeline...)
}

// collapseError makes groups of similar errors identical
func collapseError(e string) string {
	// Get "http://localhost:3001/short/x": read tcp 127.0.0.1:63204->127.0.0.1:3001: read: connection reset by peer
	for _, suffix := range []string{
		"read: connection reset by peer",
		"write: broken pipe",
		"connect: connection refused",
		"i/o timeout",
		"context deadline exceeded (Client.Timeout exceeded while awaiting headers)",
	} {
		if strings.HasSuffix(e, suffix) {
			return suffix
		}
	}
	return e
}

// Snapshot summarizes everything recorded so far.
func (c *Collector) Snapshot() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()

	end := c.now()
	elapsed := end.Sub(c.start)

	s := Summary{
		Start:   c.start,
		End:     end,
		Users:   c.users,
		Total:   c.total.endpoint(elapsed),
		Skipped: map[string]int64{},
	}
	for _, e := range c.entries {
		s.Endpoints = append(s.Endpoints, e.endpoint(elapsed))
	}
	sort.Slice(s.Endpoints, func(i, j int) bool {
		if s.Endpoints[i].Name == s.Endpoints[j].Name {
			return s.Endpoints[i].Method < s.Endpoints[j].Method
		}
		return s.Endpoints[i].Name < s.Endpoints[j].Name
	})

	for _, check := range c.checks {
		s.Checks = append(s.Checks, *check)
	}
	sort.Slice(s.Checks, func(i, j int) bool { return s.Checks[i].Name < s.Checks[j].Name })

	for name, t := range c.tasks {
		s.Tasks = append(s.Tasks, Task{Name: name, Runs: t.runs, Failures: t.failures, Skips: t.skips})
		if t.skips > 0 {
			s.Skipped[name] = t.skips
		}
	}
	sort.Slice(s.Tasks, func(i, j int) bool { return s.Tasks[i].Name < s.Tasks[j].Name })

	for msg, n := range c.errors {
		s.Errors = append(s.Errors, ErrorCount{Error: msg, Count: n})
	}
	sort.Slice(s.Errors, func(i, j int) bool {
		if s.Errors[i].Count == s.Errors[j].Count {
			return s.Errors[i].Error < s.Errors[j].Error
		}
		return s.Errors[i].Count > s.Errors[j].Count
	})

	return s
}

func (e *entry) endpoint(elapsed time.Duration) Endpoint {
	ep := Endpoint{
		Method:      e.method,
		Name:        e.name,
		Requests:    e.requests,
		Failures:    e.failures,
		Bytes:       e.bytes,
		StatusCodes: make(map[int]int64, len(e.statusCodes)),
	}
	for code, n := range e.statusCodes {
		ep.StatusCodes[code] = n
	}
	if e.requests == 0 {
		return ep
	}

	us := func(v int64) time.Duration { return time.Duration(v) * time.Microsecond }
	ep.Min = us(e.latencies.Min())
	ep.Max = us(e.latencies.Max())
	ep.Mean = time.Duration(e.latencies.Mean() * float64(time.Microsecond))
	ep.P50 = us(e.latencies.ValueAtQuantile(50))
	ep.P95 = us(e.latencies.ValueAtQuantile(95))
	ep.P99 = us(e.latencies.ValueAtQuantile(99))
	if elapsed > 0 {
		ep.RPS = float64(e.requests) / elapsed.Seconds()
	}

	return ep
}
