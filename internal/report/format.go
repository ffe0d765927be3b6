package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/thoas/go-funk"

	"github.com/patric-chuzhbe/urlshrtload/internal/stats"
)

const padding = 30

type tuple struct {
	first, second string
}

// tuples renders aligned "name ..... value" lines.
type tuples struct {
	data []tuple
}

func (ts *tuples) add(first string, second interface{}) {
	ts.data = append(ts.data, tuple{first, fmt.Sprint(second)})
}

func (ts tuples) format(indent string) string {
	lines := make([]string, 0, len(ts.data))
	for _, t := range ts.data {
		first := t.first
		if n := padding - len(first); n > 0 {
			first += " " + strings.Repeat(".", n)
		}
		lines = append(lines, indent+first+" "+t.second)
	}
	return strings.Join(lines, "\n")
}

func percent(part, total int64) string {
	if total == 0 {
		return "-"
	}
	return fmt.Sprintf("%.2f%%", 100*float64(part)/float64(total))
}

func formatEndpoint(sb *strings.Builder, e stats.Endpoint) {
	fmt.Fprintf(sb, "%s %s\n", e.Method, e.Name)

	codes := funk.Keys(e.StatusCodes).([]int)
	sort.Ints(codes)
	for _, code := range codes {
		n := e.StatusCodes[code]
		fmt.Fprintf(sb, "  [%d]\t%d responses (%s)\n", code, n, percent(n, e.Requests))
	}

	metrics := tuples{}
	metrics.add("requests", e.Requests)
	metrics.add("failures", fmt.Sprintf("%d (%s)", e.Failures, percent(e.Failures, e.Requests)))
	metrics.add("requests per second", fmt.Sprintf("%.2f", e.RPS))
	if e.Requests > 0 {
		metrics.add("latency min", e.Min)
		metrics.add("latency mean", e.Mean)
		metrics.add("latency p50", e.P50)
		metrics.add("latency p95", e.P95)
		metrics.add("latency p99", e.P99)
		metrics.add("latency max", e.Max)
	}
	sb.WriteString(metrics.format("  "))
	sb.WriteString("\n")
}

// Format renders the report the way it is printed at the end of a run.
func Format(r Report) string {
	var sb strings.Builder

	header := tuples{}
	header.add("run", r.ID)
	header.add("host", r.Host)
	header.add("profile", r.Profile)
	header.add("mode", r.Mode)
	header.add("users", r.Users)
	header.add("elapsed", r.Elapsed.Round(time.Millisecond))
	sb.WriteString(header.format(""))
	sb.WriteString("\n\n")

	for _, e := range r.Summary.Endpoints {
		formatEndpoint(&sb, e)
		sb.WriteString("\n")
	}
	if len(r.Summary.Endpoints) > 1 {
		formatEndpoint(&sb, r.Summary.Total)
		sb.WriteString("\n")
	}

	if len(r.Summary.Errors) > 0 {
		var total int64
		for _, e := range r.Summary.Errors {
			total += e.Count
		}
		fmt.Fprintf(&sb, "%d errors:\n", total)
		for _, e := range r.Summary.Errors {
			fmt.Fprintf(&sb, "  [%d]\t%s\n", e.Count, e.Error)
		}
		sb.WriteString("\n")
	}

	if len(r.Summary.Checks) > 0 {
		sb.WriteString("checks:\n")
		checks := tuples{}
		for _, c := range r.Summary.Checks {
			checks.add(c.Name, fmt.Sprintf("%d passed, %d failed (%s)", c.Passes, c.Fails, percent(c.Passes, c.Passes+c.Fails)))
		}
		sb.WriteString(checks.format("  "))
		sb.WriteString("\n\n")
	}

	if len(r.Summary.Tasks) > 0 {
		sb.WriteString("tasks:\n")
		tasks := tuples{}
		for _, t := range r.Summary.Tasks {
			tasks.add(t.Name, fmt.Sprintf("%d runs, %d failed, %d skipped", t.Runs, t.Failures, t.Skips))
		}
		sb.WriteString(tasks.format("  "))
		sb.WriteString("\n\n")
	}

	if r.Passed() {
		sb.WriteString("all thresholds passed\n")
	} else {
		sb.WriteString("threshold violations:\n")
		for _, v := range r.Violations {
			fmt.Fprintf(&sb, "  %s\n", v)
		}
	}

	return sb.String()
}
