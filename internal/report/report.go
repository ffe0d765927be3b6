// Package report turns the statistics of a finished run into a report:
// a printable summary, threshold verdicts and a latency plot.
package report

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/patric-chuzhbe/urlshrtload/internal/stats"
)

// Mode tells how the load was generated.
type Mode string

const (
	ModeUsers  Mode = "users"
	ModeAttack Mode = "attack"
)

// Report describes a finished run. It is what the report sinks persist.
type Report struct {
	ID           string        `json:"id"`
	Timestamp    time.Time     `json:"@timestamp"`
	ReporterHost string        `json:"reporter_host"`
	Host         string        `json:"host"`
	Profile      string        `json:"profile"`
	Mode         Mode          `json:"mode"`
	Users        int           `json:"users"`
	SpawnRate    float64       `json:"spawn_rate,omitempty"`
	AttackRate   int           `json:"attack_rate,omitempty"`
	Start        time.Time     `json:"start"`
	End          time.Time     `json:"end"`
	Elapsed      time.Duration `json:"elapsed"`
	SuccessRate  float64       `json:"check_success_rate"`
	Violations   []string      `json:"threshold_violations"`
	Summary      stats.Summary `json:"summary"`
}

// Meta is what a report needs to know besides the statistics.
type Meta struct {
	Host       string
	Profile    string
	Mode       Mode
	SpawnRate  float64
	AttackRate int
}

// New builds the report of a run and evaluates thresholds against it.
func New(meta Meta, summary stats.Summary, thresholds Thresholds) Report {
	this, _ := os.Hostname()

	return Report{
		ID:           uuid.NewString(),
		Timestamp:    summary.End,
		ReporterHost: this,
		Host:         meta.Host,
		Profile:      meta.Profile,
		Mode:         meta.Mode,
		Users:        summary.Users,
		SpawnRate:    meta.SpawnRate,
		AttackRate:   meta.AttackRate,
		Start:        summary.Start,
		End:          summary.End,
		Elapsed:      summary.Elapsed(),
		SuccessRate:  summary.CheckSuccessRate(),
		Violations:   thresholds.Evaluate(summary),
		Summary:      summary,
	}
}

// Passed tells whether no threshold was violated.
func (r Report) Passed() bool {
	return len(r.Violations) == 0
}

// Thresholds are the acceptance criteria of a run. Zero values disable them.
type Thresholds struct {
	P95         time.Duration
	SuccessRate float64
}

// Evaluate lists the violated thresholds.
func (t Thresholds) Evaluate(s stats.Summary) []string {
	violations := []string{}

	if t.P95 > 0 {
		for _, e := range s.Endpoints {
			if e.P95 > t.P95 {
				violations = append(violations, fmt.Sprintf("%s %s: p95 %s > %s", e.Method, e.Name, e.P95, t.P95))
			}
		}
	}

	if t.SuccessRate > 0 {
		if rate := s.CheckSuccessRate(); rate < t.SuccessRate {
			violations = append(violations, fmt.Sprintf("check success rate %.4f < %.4f", rate, t.SuccessRate))
		}
	}

	return violations
}
