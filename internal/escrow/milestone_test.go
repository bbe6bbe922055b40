package escrow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crowdvault/internal/model"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func allocs(pcts ...int) []MilestoneAllocation {
	out := make([]MilestoneAllocation, 0, len(pcts))
	for i, pct := range pcts {
		out = append(out, MilestoneAllocation{
			Title:             "phase",
			Deadline:          testNow.AddDate(0, i+1, 0),
			FundingPercentage: pct,
		})
	}
	return out
}

func testProject(goal int64, pcts ...int) *model.Project {
	ms, err := NewMilestoneSchedule(goal, allocs(pcts...), testNow)
	if err != nil {
		panic(err)
	}
	for i := range ms {
		ms[i].ID = int64(i + 1)
		ms[i].ProjectID = 1
	}
	return &model.Project{
		ID:          1,
		CreatorID:   10,
		FundingGoal: goal,
		Status:      model.ProjectVerified,
		Deadline:    testNow.AddDate(0, 1, 0),
		Milestones:  ms,
	}
}

func TestNewMilestoneSchedule(t *testing.T) {
	tests := []struct {
		name    string
		goal    int64
		pcts    []int
		wantErr bool
	}{
		{name: "sums to 100", goal: 5_000_000, pcts: []int{40, 35, 25}},
		{name: "single milestone", goal: 100, pcts: []int{100}},
		{name: "sum 90 rejected", goal: 5_000_000, pcts: []int{50, 30, 10}, wantErr: true},
		{name: "sum 99 rejected", goal: 5_000_000, pcts: []int{33, 33, 33}, wantErr: true},
		{name: "sum 101 rejected", goal: 5_000_000, pcts: []int{34, 34, 33}, wantErr: true},
		{name: "zero percentage rejected", goal: 5_000_000, pcts: []int{0, 100}, wantErr: true},
		{name: "empty list rejected", goal: 5_000_000, pcts: nil, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ms, err := NewMilestoneSchedule(tt.goal, allocs(tt.pcts...), testNow)
			if tt.wantErr {
				require.Error(t, err)
				var ve *ValidationError
				assert.ErrorAs(t, err, &ve)
				assert.Nil(t, ms)
				return
			}
			require.NoError(t, err)
			require.Len(t, ms, len(tt.pcts))
			assert.Equal(t, model.MilestoneInProgress, ms[0].Status)
			for _, m := range ms[1:] {
				assert.Equal(t, model.MilestonePending, m.Status)
			}
			var total int64
			for _, m := range ms {
				total += m.ReleasableAmount
			}
			assert.Equal(t, tt.goal, total, "snapshots must sum to goal")
		})
	}
}

func TestNewMilestoneScheduleSnapshotsReleasable(t *testing.T) {
	ms, err := NewMilestoneSchedule(5_000_000, allocs(40, 35, 25), testNow)
	require.NoError(t, err)
	assert.Equal(t, int64(2_000_000), ms[0].ReleasableAmount)
	assert.Equal(t, int64(1_750_000), ms[1].ReleasableAmount)
	assert.Equal(t, int64(1_250_000), ms[2].ReleasableAmount)
}

func TestNewMilestoneScheduleRoundingRemainder(t *testing.T) {
	// 100,001 cents over [33,33,34]: integer division loses cents that the
	// final milestone must absorb.
	ms, err := NewMilestoneSchedule(100_001, allocs(33, 33, 34), testNow)
	require.NoError(t, err)
	var total int64
	for _, m := range ms {
		total += m.ReleasableAmount
	}
	assert.Equal(t, int64(100_001), total)
}

func TestReportProgress(t *testing.T) {
	tests := []struct {
		name        string
		milestoneID int64
		actorID     int64
		pct         int
		wantErr     any
	}{
		{name: "creator reports on in-progress", milestoneID: 1, actorID: 10, pct: 50},
		{name: "non-creator rejected", milestoneID: 1, actorID: 99, pct: 50, wantErr: &AuthorizationError{}},
		{name: "pending milestone rejected", milestoneID: 2, actorID: 10, pct: 50, wantErr: &StateError{}},
		{name: "out of range rejected", milestoneID: 1, actorID: 10, pct: 101, wantErr: &ValidationError{}},
		{name: "unknown milestone rejected", milestoneID: 9, actorID: 10, pct: 10, wantErr: &StateError{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testProject(5_000_000, 40, 35, 25)
			err := ReportProgress(p, tt.milestoneID, tt.actorID, tt.pct)
			switch want := tt.wantErr.(type) {
			case nil:
				require.NoError(t, err)
				assert.Equal(t, tt.pct, p.Milestones[0].CompletionPercentage)
			case *AuthorizationError:
				assert.ErrorAs(t, err, &want)
			case *StateError:
				assert.ErrorAs(t, err, &want)
			case *ValidationError:
				assert.ErrorAs(t, err, &want)
			}
		})
	}
}

func TestRequestCompletionRequiresDeclaredFull(t *testing.T) {
	p := testProject(5_000_000, 40, 35, 25)

	err := RequestCompletion(p, 1, 10, testNow)
	var se *StateError
	require.ErrorAs(t, err, &se, "90%% progress must not enter review")

	require.NoError(t, ReportProgress(p, 1, 10, 100))
	require.NoError(t, RequestCompletion(p, 1, 10, testNow))
	assert.Equal(t, model.MilestonePendingApproval, p.Milestones[0].Status)
	require.NotNil(t, p.Milestones[0].ReviewStartedAt)
	assert.Equal(t, testNow, *p.Milestones[0].ReviewStartedAt)

	// Already in review: a second request is illegal.
	err = RequestCompletion(p, 1, 10, testNow)
	assert.ErrorAs(t, err, &se)
}

func TestResolveMilestoneAdvancesExactlyOne(t *testing.T) {
	p := testProject(5_000_000, 40, 35, 25)
	require.NoError(t, ReportProgress(p, 1, 10, 100))
	require.NoError(t, RequestCompletion(p, 1, 10, testNow))

	require.NoError(t, ResolveMilestone(p, 1, OutcomeApproved, testNow))

	assert.Equal(t, model.MilestoneCompleted, p.Milestones[0].Status)
	assert.Equal(t, model.MilestoneInProgress, p.Milestones[1].Status)
	assert.Equal(t, model.MilestonePending, p.Milestones[2].Status)
	assert.Equal(t, model.ProjectVerified, p.Status)
}

func TestResolveLastMilestoneCompletesProject(t *testing.T) {
	p := testProject(5_000_000, 40, 35, 25)
	for _, id := range []int64{1, 2, 3} {
		require.NoError(t, ReportProgress(p, id, 10, 100))
		require.NoError(t, RequestCompletion(p, id, 10, testNow))
		require.NoError(t, ResolveMilestone(p, id, OutcomeApproved, testNow))
	}
	assert.Equal(t, model.ProjectCompleted, p.Status)
}

func TestResolveMilestoneDispute(t *testing.T) {
	p := testProject(5_000_000, 40, 35, 25)
	require.NoError(t, ReportProgress(p, 1, 10, 100))
	require.NoError(t, RequestCompletion(p, 1, 10, testNow))

	require.NoError(t, ResolveMilestone(p, 1, OutcomeDisputed, testNow))
	assert.Equal(t, model.MilestoneDisputed, p.Milestones[0].Status)
	require.NotNil(t, p.Milestones[0].DisputedAt)
	// Dispute does not advance the sequence.
	assert.Equal(t, model.MilestonePending, p.Milestones[1].Status)

	// The override path may still approve a disputed milestone.
	require.NoError(t, ResolveMilestone(p, 1, OutcomeApproved, testNow))
	assert.Equal(t, model.MilestoneCompleted, p.Milestones[0].Status)
	assert.Nil(t, p.Milestones[0].DisputedAt)
	assert.Equal(t, model.MilestoneInProgress, p.Milestones[1].Status)
}

func TestCompletedMilestoneNeverReopens(t *testing.T) {
	p := testProject(5_000_000, 50, 50)
	require.NoError(t, ReportProgress(p, 1, 10, 100))
	require.NoError(t, RequestCompletion(p, 1, 10, testNow))
	require.NoError(t, ResolveMilestone(p, 1, OutcomeApproved, testNow))

	var se *StateError
	assert.ErrorAs(t, ResolveMilestone(p, 1, OutcomeDisputed, testNow), &se)
	assert.ErrorAs(t, ReportProgress(p, 1, 10, 50), &se)
	assert.Equal(t, model.MilestoneCompleted, p.Milestones[0].Status)
}

// At most one milestone may ever be in-progress or pending-approval.
func TestSingleActiveMilestoneInvariant(t *testing.T) {
	p := testProject(5_000_000, 40, 35, 25)

	countActive := func() int {
		n := 0
		for _, m := range p.Milestones {
			if m.Status == model.MilestoneInProgress || m.Status == model.MilestonePendingApproval {
				n++
			}
		}
		return n
	}

	assert.Equal(t, 1, countActive())
	require.NoError(t, ReportProgress(p, 1, 10, 100))
	require.NoError(t, RequestCompletion(p, 1, 10, testNow))
	assert.Equal(t, 1, countActive())
	require.NoError(t, ResolveMilestone(p, 1, OutcomeApproved, testNow))
	assert.Equal(t, 1, countActive())

	// Progress on the not-yet-active milestone stays illegal.
	var se *StateError
	assert.ErrorAs(t, ReportProgress(p, 3, 10, 10), &se)
	assert.Equal(t, 1, countActive())
}
