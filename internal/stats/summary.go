package stats

import "time"

// Summary is a point-in-time view of a Collector.
type Summary struct {
	Start     time.Time        `json:"start"`
	End       time.Time        `json:"end"`
	Users     int              `json:"users"`
	Endpoints []Endpoint       `json:"endpoints"`
	Total     Endpoint         `json:"total"`
	Checks    []Check          `json:"checks"`
	Tasks     []Task           `json:"tasks"`
	Skipped   map[string]int64 `json:"skipped"`
	Errors    []ErrorCount     `json:"errors"`
}

// Endpoint holds the statistics of one method and request name.
type Endpoint struct {
	Method      string        `json:"method"`
	Name        string        `json:"name"`
	Requests    int64         `json:"requests"`
	Failures    int64         `json:"failures"`
	Bytes       int64         `json:"bytes"`
	StatusCodes map[int]int64 `json:"status_codes"`
	Min         time.Duration `json:"min"`
	Mean        time.Duration `json:"mean"`
	P50         time.Duration `json:"p50"`
	P95         time.Duration `json:"p95"`
	P99         time.Duration `json:"p99"`
	Max         time.Duration `json:"max"`
	RPS         float64       `json:"rps"`
}

// Check counts the results of one named assertion.
type Check struct {
	Name   string `json:"name"`
	Passes int64  `json:"passes"`
	Fails  int64  `json:"fails"`
}

// Task counts the executions of one profile task. Skipped executions are not
// runs.
type Task struct {
	Name     string `json:"name"`
	Runs     int64  `json:"runs"`
	Failures int64  `json:"failures"`
	Skips    int64  `json:"skips"`
}

// ErrorCount is one collapsed error message and how often it happened.
type ErrorCount struct {
	Error string `json:"error"`
	Count int64  `json:"count"`
}

// Elapsed is the duration covered by the summary.
func (s Summary) Elapsed() time.Duration {
	return s.End.Sub(s.Start)
}

// CheckSuccessRate is the ratio of passed checks, or 1 when nothing was checked.
func (s Summary) CheckSuccessRate() float64 {
	var passes, total int64
	for _, c := range s.Checks {
		passes += c.Passes
		total += c.Passes + c.Fails
	}
	if total == 0 {
		return 1
	}
	return float64(passes) / float64(total)
}

// FailureRatio is the ratio of failed requests, or 0 when nothing was sent.
func (e Endpoint) FailureRatio() float64 {
	if e.Requests == 0 {
		return 0
	}
	return float64(e.Failures) / float64(e.Requests)
}
