package pipeline

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// stageFunc does one unit of pipeline work. A stage may only write the
// state fields it owns; concurrent siblings rely on that.
type stageFunc func(ctx context.Context, s *State) error

// stage is a named unit of work with declared dependency edges. Some edges
// are join-only: they order execution without passing data. A nil run is
// valid for stages that exist only to order others.
type stage struct {
	name string
	deps []string
	run  stageFunc
}

// graph is a fixed stage topology. It is built once, holds no run state,
// and is shared read-only across concurrent runs.
type graph struct {
	stages []stage
}

// execute runs the stages in waves: every stage whose dependencies have all
// completed runs concurrently with its ready siblings, so a fan-in barrier
// is fully satisfied before anything gated on it starts. A stage error
// cancels the run and propagates to the caller.
func (g graph) execute(ctx context.Context, s *State) error {
	done := make(map[string]bool, len(g.stages))
	for len(done) < len(g.stages) {
		var wave []stage
		for _, st := range g.stages {
			if done[st.name] {
				continue
			}
			ready := true
			for _, dep := range st.deps {
				if !done[dep] {
					ready = false
					break
				}
			}
			if ready {
				wave = append(wave, st)
			}
		}
		if len(wave) == 0 {
			return fmt.Errorf("stage graph is unsatisfiable: %d of %d stages completed", len(done), len(g.stages))
		}

		eg, gctx := errgroup.WithContext(ctx)
		for _, st := range wave {
			eg.Go(func() error {
				if st.run == nil {
					return nil
				}
				if err := st.run(gctx, s); err != nil {
					return fmt.Errorf("stage %s: %w", st.name, err)
				}
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			return err
		}
		for _, st := range wave {
			done[st.name] = true
		}
	}
	return nil
}
