package pipeline

import (
	"github.com/iancoleman/orderedmap"
)

// PassResult is one walk of one pass.
type PassResult struct {
	Stage     Stage
	Iteration int
	Rewrites  int
}

// Report lists every walk of a run in execution order.
type Report struct {
	Passes []PassResult
	Final  Stage
}

func (r *Report) add(stage Stage, iteration, rewrites int) {
	r.Passes = append(r.Passes, PassResult{
		Stage:     stage,
		Iteration: iteration,
		Rewrites:  rewrites,
	})
}

// Rewrites sums the rewrites of every walk of stage.
func (r *Report) Rewrites(stage Stage) int {
	total := 0
	for _, p := range r.Passes {
		if p.Stage == stage {
			total += p.Rewrites
		}
	}
	return total
}

// Iterations counts the walks of stage.
func (r *Report) Iterations(stage Stage) int {
	n := 0
	for _, p := range r.Passes {
		if p.Stage == stage {
			n++
		}
	}
	return n
}

func (r *Report) Total() int {
	total := 0
	for _, p := range r.Passes {
		total += p.Rewrites
	}
	return total
}

// MarshalJSON keeps keys in a fixed, readable order.
func (r *Report) MarshalJSON() ([]byte, error) {
	passes := make([]*orderedmap.OrderedMap, 0, len(r.Passes))
	for _, p := range r.Passes {
		o := orderedmap.New()
		o.Set("stage", p.Stage.String())
		o.Set("iteration", p.Iteration)
		o.Set("rewrites", p.Rewrites)
		passes = append(passes, o)
	}

	report := orderedmap.New()
	report.Set("final", r.Final.String())
	report.Set("rewrites", r.Total())
	report.Set("passes", passes)
	return report.MarshalJSON()
}
