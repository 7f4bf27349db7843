package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoldenTwoRates(t *testing.T) {
	sc, err := Load("testdata/two_rates.yaml")
	require.NoError(t, err)
	RunWithGolden(t, sc)
}

func TestGoldenPriorityChain(t *testing.T) {
	RunWithGolden(t, &Scenario{
		Name:   "priority_chain",
		Pacers: []PacerSpec{{Name: "tick", Dt: 1, Until: 1}},
		Immediates: []ImmediateSpec{
			{ID: "hi", Priority: 9},
			{ID: "lo", Priority: 1},
		},
		Controls: []ControlSpec{{ID: "watch"}},
		MaxTime:  5,
	})
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/bad.yaml"
	writeFile(t, path, "name: x\nmax_time: 1\nbogus: true\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsInvalidScenario(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/bad.yaml"
	writeFile(t, path, "name: x\nmax_time: 0\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.ErrorContains(t, err, "max_time")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(t.TempDir() + "/nope.yaml")
	assert.Error(t, err)
}
