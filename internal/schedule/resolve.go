// Package schedule resolves task start dates from "anterior" precedence
// references, which are either literal dates or another task's id.
package schedule

import (
	"strings"
	"time"

	"jornada/internal/dates"
	"jornada/internal/domain"
)

// PhaseSeparator distinguishes leaf task ids ("1.2") from phase headings ("1").
const PhaseSeparator = "."

// IsPhase reports whether d is a non-schedulable phase heading.
func IsPhase(d domain.Delivery) bool {
	return !strings.Contains(string(d.ID), PhaseSeparator)
}

// EndDate is start + max(duration-1, 0) days; a task spans its start day.
func EndDate(start time.Time, duration domain.Days) time.Time {
	n := int(duration) - 1
	if n < 0 {
		n = 0
	}
	return dates.AddDays(start, n)
}

// visited is the set of task ids on the current resolution chain. It is
// never mutated after creation; with returns a copy so sibling branches
// cannot observe each other's visits.
type visited map[string]struct{}

func (v visited) with(id string) visited {
	next := make(visited, len(v)+1)
	for k := range v {
		next[k] = struct{}{}
	}
	next[id] = struct{}{}
	return next
}

// Resolver resolves start dates for one task list. Results are memoized;
// every task has a single predecessor, so a task's start does not depend on
// which chain reached it. A Resolver is not safe for concurrent use.
type Resolver struct {
	tasks []domain.Delivery
	byID  map[string]int
	memo  map[string]result
}

type result struct {
	start time.Time
	ok    bool
}

// NewResolver indexes tasks by id. Duplicate ids resolve to the first row.
func NewResolver(tasks []domain.Delivery) *Resolver {
	byID := make(map[string]int, len(tasks))
	for i, t := range tasks {
		id := string(t.ID)
		if id == "" {
			continue
		}
		if _, dup := byID[id]; !dup {
			byID[id] = i
		}
	}
	return &Resolver{tasks: tasks, byID: byID, memo: map[string]result{}}
}

// Start returns the effective start date of task, or false when the chain is
// empty, dangling, cyclic, or ends in something that is neither a date nor a
// known task.
func (r *Resolver) Start(task domain.Delivery) (time.Time, bool) {
	return r.resolve(task, visited{})
}

// Span returns the inclusive [start, end] of task.
func (r *Resolver) Span(task domain.Delivery) (start, end time.Time, ok bool) {
	start, ok = r.Start(task)
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	return start, EndDate(start, task.Duracao), true
}

func (r *Resolver) resolve(task domain.Delivery, seen visited) (time.Time, bool) {
	id := string(task.ID)
	canonical := false
	if id != "" {
		if _, loop := seen[id]; loop {
			return time.Time{}, false
		}
		canonical = r.isCanonical(id, task)
		if res, hit := r.memo[id]; hit && canonical {
			return res.start, res.ok
		}
		seen = seen.with(id)
	}
	start, ok := r.resolveAnterior(string(task.Anterior), seen)
	if canonical {
		r.memo[id] = result{start: start, ok: ok}
	}
	return start, ok
}

func (r *Resolver) resolveAnterior(anterior string, seen visited) (time.Time, bool) {
	if anterior == "" {
		return time.Time{}, false
	}
	if t, ok := dates.Parse(anterior); ok {
		return t, true
	}
	idx, found := r.byID[anterior]
	if !found {
		return time.Time{}, false
	}
	prev := r.tasks[idx]
	prevStart, ok := r.resolve(prev, seen)
	if !ok {
		return time.Time{}, false
	}
	return dates.AddDays(EndDate(prevStart, prev.Duracao), 1), true
}

// isCanonical guards the memo against a caller passing a task value that is
// not the indexed row for its id (duplicates, or a task outside the list).
func (r *Resolver) isCanonical(id string, task domain.Delivery) bool {
	idx, ok := r.byID[id]
	return ok && r.tasks[idx] == task
}

// ResolveStart resolves one task against allTasks with a fresh visited set.
func ResolveStart(task domain.Delivery, allTasks []domain.Delivery) (time.Time, bool) {
	return NewResolver(allTasks).Start(task)
}
