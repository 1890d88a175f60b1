package merge

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/cool-RR/git-cascade/internal/cascade"
)

func chainGraph(chains ...[]string) *cascade.Graph {
	g := cascade.NewGraph()
	for _, c := range chains {
		g.AddChain(c)
	}
	return g
}

func TestScheduleOrder(t *testing.T) {
	tests := []struct {
		name         string
		graph        *cascade.Graph
		destinations []string
		want         []string
	}{
		{
			name:         "upstream first regardless of request order",
			graph:        chainGraph([]string{"a", "b", "c"}),
			destinations: []string{"c", "a", "b"},
			want:         []string{"a", "b", "c"},
		},
		{
			name:         "transitive order holds without the intermediate",
			graph:        chainGraph([]string{"a", "b", "c"}),
			destinations: []string{"c", "a"},
			want:         []string{"a", "c"},
		},
		{
			name:         "unrelated destinations keep first-seen order",
			graph:        chainGraph([]string{"a", "b"}, []string{"x", "y"}),
			destinations: []string{"x", "a", "y", "b"},
			want:         []string{"x", "a", "y", "b"},
		},
		{
			name:         "diamond orders both middles before the join",
			graph:        chainGraph([]string{"a", "b", "d"}, []string{"a", "c", "d"}),
			destinations: []string{"d", "c", "b", "a"},
			want:         []string{"a", "b", "c", "d"},
		},
		{
			name:         "cycle falls back to the given order",
			graph:        chainGraph([]string{"a", "b", "a"}),
			destinations: []string{"b", "a"},
			want:         []string{"b", "a"},
		},
		{
			name:         "nil graph keeps the given order",
			graph:        nil,
			destinations: []string{"c", "a", "b"},
			want:         []string{"c", "a", "b"},
		},
		{
			name:         "single destination",
			graph:        chainGraph([]string{"a", "b"}),
			destinations: []string{"b"},
			want:         []string{"b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := scheduleOrder(tt.graph, tt.destinations)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("scheduleOrder mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
