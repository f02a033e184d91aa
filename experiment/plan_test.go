package experiment_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/afs"

	"github.com/AntonStoeckl/contention-lab/contention"
	"github.com/AntonStoeckl/contention-lab/experiment"
)

const couponDropPlan = `
name: coupon-drop
repeat: 3
runs:
  - strategy: Unsynchronized
    capacity: 2
    participants: 5
  - strategy: OPTIMISTIC
    capacity: 1
    participants: 4
`

func Test_ParsePlan_NormalizesStrategies(t *testing.T) {
	// act
	plan, err := experiment.ParsePlan([]byte(couponDropPlan))

	// assert
	require.NoError(t, err)
	assert.Equal(t, "coupon-drop", plan.Name)
	assert.Equal(t, 3, plan.Repeat)
	assert.Equal(t, []experiment.RunSpec{
		{Strategy: contention.Race, Capacity: 2, Participants: 5},
		{Strategy: contention.Optimistic, Capacity: 1, Participants: 4},
	}, plan.Runs)
	assert.Equal(t, 6, plan.TotalRuns())
}

func Test_ParsePlan_DefaultsRepeatToOne(t *testing.T) {
	plan, err := experiment.ParsePlan([]byte("runs: [{strategy: pessimistic, capacity: 0, participants: 1}]"))

	require.NoError(t, err)
	assert.Equal(t, 1, plan.Repeat)
}

func Test_ParsePlan_RejectsInvalidPlans(t *testing.T) {
	testCases := []struct {
		name    string
		yaml    string
		wantErr error
	}{
		{name: "no runs", yaml: "name: empty", wantErr: experiment.ErrEmptyPlan},
		{
			name:    "negative repeat",
			yaml:    "repeat: -1\nruns: [{strategy: race, capacity: 1, participants: 1}]",
			wantErr: experiment.ErrInvalidRepeat,
		},
		{
			name:    "unknown strategy",
			yaml:    "runs: [{strategy: lottery, capacity: 1, participants: 1}]",
			wantErr: contention.ErrUnknownStrategy,
		},
		{
			name:    "negative capacity",
			yaml:    "runs: [{strategy: race, capacity: -2, participants: 1}]",
			wantErr: contention.ErrInvalidCapacity,
		},
		{
			name:    "no participants",
			yaml:    "runs: [{strategy: race, capacity: 2, participants: 0}]",
			wantErr: contention.ErrInvalidParticipantCount,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := experiment.ParsePlan([]byte(tc.yaml))

			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func Test_ParsePlan_InvalidRunsNameTheirPosition(t *testing.T) {
	_, err := experiment.ParsePlan([]byte("runs: [{strategy: race, capacity: 1, participants: 1}, {strategy: x, capacity: 1, participants: 1}]"))

	require.ErrorIs(t, err, experiment.ErrInvalidRunSpec)
	assert.Contains(t, err.Error(), "invalid run 2")
}

func Test_ParsePlan_MalformedYAML(t *testing.T) {
	_, err := experiment.ParsePlan([]byte("runs: [unterminated"))

	assert.Error(t, err)
}

func Test_LoadPlan_FromLocalFile(t *testing.T) {
	// setup
	path := filepath.Join(t.TempDir(), "plan.yaml")
	require.NoError(t, os.WriteFile(path, []byte(couponDropPlan), 0o600))

	// act
	plan, err := experiment.LoadPlan(t.Context(), afs.New(), path)

	// assert
	require.NoError(t, err)
	assert.Equal(t, "coupon-drop", plan.Name)
}

func Test_LoadPlan_MissingFile(t *testing.T) {
	_, err := experiment.LoadPlan(t.Context(), afs.New(), filepath.Join(t.TempDir(), "missing.yaml"))

	assert.ErrorIs(t, err, experiment.ErrLoadingPlanFailed)
}
