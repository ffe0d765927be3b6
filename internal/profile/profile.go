// Package profile defines the traffic profiles a run can use: weighted tasks
// performed by every virtual user, separated by a random wait.
package profile

import (
	"context"
	"math/rand"
	"sort"
	"time"

	"github.com/patric-chuzhbe/urlshrtload/internal/user"
)

// Task is one action of a profile. Weight is relative to the other tasks of
// the same profile.
type Task struct {
	Name   string
	Weight int
	Run    func(ctx context.Context, u *user.VirtualUser) error
}

// Wait is a pause drawn uniformly from [Min, Max] wait units.
type Wait struct {
	Min, Max float64
}

// Between returns a wait of min to max units.
func Between(min, max float64) Wait {
	return Wait{Min: min, Max: max}
}

// Constant returns a wait of exactly units.
func Constant(units float64) Wait {
	return Wait{Min: units, Max: units}
}

// Next draws the next pause.
func (w Wait) Next(rnd *rand.Rand, unit time.Duration) time.Duration {
	units := w.Min
	if w.Max > w.Min {
		units += rnd.Float64() * (w.Max - w.Min)
	}
	return time.Duration(units * float64(unit))
}

// Profile is a named set of tasks.
type Profile struct {
	Name        string
	Description string
	Tasks       []Task
	Wait        Wait
}

// TotalWeight sums the weights of all tasks.
func (p Profile) TotalWeight() int {
	total := 0
	for _, t := range p.Tasks {
		if t.Weight > 0 {
			total += t.Weight
		}
	}
	return total
}

// Pick chooses a task with probability weight/TotalWeight. Tasks with no
// positive weight are never chosen.
func (p Profile) Pick(rnd *rand.Rand) Task {
	n := rnd.Intn(p.TotalWeight())
	for _, t := range p.Tasks {
		if t.Weight <= 0 {
			continue
		}
		if n < t.Weight {
			return t
		}
		n -= t.Weight
	}
	// unreachable while TotalWeight > 0
	return p.Tasks[len(p.Tasks)-1]
}

var (
	profiles = make(map[string]Profile)
)

// Choices lists the profile names
func Choices() []string {
	choices := make([]string, 0, len(profiles))
	for k := range profiles {
		choices = append(choices, k)
	}
	sort.Strings(choices)
	return choices
}

// Get fetches a registered profile by name
func Get(name string) (Profile, bool) {
	p, ok := profiles[name]
	return p, ok
}

// Register a profile by name. It panics on a profile no task can ever be
// picked from, since profiles are registered from init functions.
func Register(p Profile) {
	if p.TotalWeight() <= 0 {
		panic("profile " + p.Name + " has no weighted task")
	}
	profiles[p.Name] = p
}
