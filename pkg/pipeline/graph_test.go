package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
)

// recordingGraph builds a graph whose stages append their name to a shared
// order slice, for asserting barrier behavior.
func recordingGraph(stages []stage) (graph, func() []string) {
	var mu sync.Mutex
	var order []string

	wrapped := make([]stage, len(stages))
	for i, st := range stages {
		name, run := st.name, st.run
		wrapped[i] = stage{name: name, deps: st.deps, run: func(ctx context.Context, s *State) error {
			if run != nil {
				if err := run(ctx, s); err != nil {
					return err
				}
			}
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return nil
		}}
	}
	return graph{stages: wrapped}, func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), order...)
	}
}

func indexOf(order []string, name string) int {
	for i, n := range order {
		if n == name {
			return i
		}
	}
	return -1
}

func TestExecuteRespectsDependencyOrder(t *testing.T) {
	g, order := recordingGraph([]stage{
		{name: "a"},
		{name: "b"},
		{name: "join", deps: []string{"a", "b"}},
		{name: "c", deps: []string{"join"}},
		{name: "d", deps: []string{"join"}},
		{name: "final", deps: []string{"c", "d"}},
	})

	if err := g.execute(context.Background(), &State{}); err != nil {
		t.Fatalf("execute() error = %v", err)
	}

	got := order()
	if len(got) != 6 {
		t.Fatalf("executed %d stages, want 6: %v", len(got), got)
	}
	for _, edge := range [][2]string{
		{"a", "join"}, {"b", "join"},
		{"join", "c"}, {"join", "d"},
		{"c", "final"}, {"d", "final"},
	} {
		if indexOf(got, edge[0]) > indexOf(got, edge[1]) {
			t.Errorf("stage %q ran before its dependency %q: %v", edge[1], edge[0], got)
		}
	}
}

func TestExecuteReportsUnsatisfiableTopology(t *testing.T) {
	tests := []struct {
		name   string
		stages []stage
	}{
		{
			name: "cycle",
			stages: []stage{
				{name: "a", deps: []string{"b"}},
				{name: "b", deps: []string{"a"}},
			},
		},
		{
			name: "unknown dependency",
			stages: []stage{
				{name: "a", deps: []string{"ghost"}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := graph{stages: tt.stages}
			err := g.execute(context.Background(), &State{})
			if err == nil {
				t.Fatal("execute() should fail for an unsatisfiable topology")
			}
			if !strings.Contains(err.Error(), "unsatisfiable") {
				t.Errorf("error = %v, want unsatisfiable topology report", err)
			}
		})
	}
}

func TestExecuteAllowsOrderingOnlyStages(t *testing.T) {
	ran := false
	g := graph{stages: []stage{
		{name: "barrier"},
		{name: "work", deps: []string{"barrier"}, run: func(ctx context.Context, s *State) error {
			ran = true
			return nil
		}},
	}}

	if err := g.execute(context.Background(), &State{}); err != nil {
		t.Fatalf("execute() error = %v, a stage without work must be a no-op", err)
	}
	if !ran {
		t.Error("stage gated on an ordering-only stage never ran")
	}
}

func TestExecuteStageErrorNamesStage(t *testing.T) {
	boom := errors.New("boom")
	g := graph{stages: []stage{
		{name: "ok"},
		{name: "broken", deps: []string{"ok"}, run: func(ctx context.Context, s *State) error {
			return boom
		}},
	}}

	err := g.execute(context.Background(), &State{})
	if !errors.Is(err, boom) {
		t.Fatalf("execute() error = %v, want wrapped boom", err)
	}
	if !strings.Contains(err.Error(), "stage broken") {
		t.Errorf("error %q should name the failing stage", err)
	}
}
