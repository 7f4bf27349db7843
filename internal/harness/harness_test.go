package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunIsDeterministic(t *testing.T) {
	sc := &Scenario{
		Name: "repeat",
		Pacers: []PacerSpec{
			{Name: "a", Dt: 0.5, Until: 2},
			{Name: "b", Dt: 1, Until: 2},
		},
		Futures:  []FutureSpec{{ID: "f", At: 1.5}},
		Controls: []ControlSpec{{ID: "c"}},
		MaxTime:  10,
	}

	first, err := Run(sc)
	require.NoError(t, err)
	second, err := Run(sc)
	require.NoError(t, err)

	firstJSON, err := first.MarshalTrace()
	require.NoError(t, err)
	secondJSON, err := second.MarshalTrace()
	require.NoError(t, err)
	assert.Equal(t, string(firstJSON), string(secondJSON))
}

func TestRunStopsAtMaxTime(t *testing.T) {
	sc := &Scenario{
		Name:    "horizon",
		Pacers:  []PacerSpec{{Name: "a", Dt: 1, Until: 100}},
		MaxTime: 3,
	}
	result, err := Run(sc)
	require.NoError(t, err)
	got, ok := result.Final.Time()
	require.True(t, ok)
	assert.Equal(t, 3.0, got)
}

func TestRunImmediatesByPriority(t *testing.T) {
	sc := &Scenario{
		Name:   "immediates",
		Pacers: []PacerSpec{{Name: "tick", Dt: 1, Until: 1}},
		Immediates: []ImmediateSpec{
			{ID: "lo", Priority: 1},
			{ID: "hi", Priority: 9},
		},
		MaxTime: 5,
	}
	result, err := Run(sc)
	require.NoError(t, err)

	var order []string
	for _, e := range result.Trace {
		if e.Type == "immediate" {
			order = append(order, e.ActionID)
		}
	}
	assert.Equal(t, []string{"hi", "lo"}, order)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		sc   Scenario
		want string
	}{
		{"missing name", Scenario{MaxTime: 1}, "needs a name"},
		{"bad max time", Scenario{Name: "x"}, "max_time"},
		{"bad dt", Scenario{Name: "x", MaxTime: 1, Pacers: []PacerSpec{{Name: "p"}}}, "positive dt"},
		{"unnamed pacer", Scenario{Name: "x", MaxTime: 1, Pacers: []PacerSpec{{Dt: 1}}}, "without a name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.sc.Validate()
			require.Error(t, err)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}
