package escrow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crowdvault/internal/model"
)

func TestApplyContribution(t *testing.T) {
	tests := []struct {
		name    string
		status  model.ProjectStatus
		amount  int64
		wantErr any
	}{
		{name: "verified project accepts", status: model.ProjectVerified, amount: 100},
		{name: "active project accepts", status: model.ProjectActive, amount: 100},
		{name: "pending project rejects", status: model.ProjectPending, amount: 100, wantErr: &StateError{}},
		{name: "flagged project rejects", status: model.ProjectFlagged, amount: 100, wantErr: &StateError{}},
		{name: "failed project rejects", status: model.ProjectFailed, amount: 100, wantErr: &StateError{}},
		{name: "zero amount rejects", status: model.ProjectVerified, amount: 0, wantErr: &ValidationError{}},
		{name: "negative amount rejects", status: model.ProjectVerified, amount: -5, wantErr: &ValidationError{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testProject(5_000_000, 40, 35, 25)
			p.Status = tt.status
			before := p.CurrentFunding
			_, err := ApplyContribution(p, tt.amount, true, testNow)
			switch want := tt.wantErr.(type) {
			case nil:
				require.NoError(t, err)
				assert.Equal(t, before+tt.amount, p.CurrentFunding)
				assert.Equal(t, 1, p.Backers)
			case *StateError:
				assert.ErrorAs(t, err, &want)
				assert.Equal(t, before, p.CurrentFunding, "failed contribution must not mutate")
			case *ValidationError:
				assert.ErrorAs(t, err, &want)
				assert.Equal(t, before, p.CurrentFunding, "failed contribution must not mutate")
			}
		})
	}
}

func TestApplyContributionGoalReachedStampedOnce(t *testing.T) {
	p := testProject(1000, 100)

	reached, err := ApplyContribution(p, 600, true, testNow)
	require.NoError(t, err)
	assert.False(t, reached)
	assert.Nil(t, p.GoalReachedAt)

	reached, err = ApplyContribution(p, 400, true, testNow)
	require.NoError(t, err)
	assert.True(t, reached)
	require.NotNil(t, p.GoalReachedAt)

	assert.Equal(t, testNow, *p.GoalReachedAt)
	assert.Equal(t, 2, p.Backers)
}

func TestApplyContributionNeverExceedsGoal(t *testing.T) {
	p := testProject(5_000_000, 40, 35, 25)

	reached, err := ApplyContribution(p, 5_000_000, true, testNow)
	require.NoError(t, err)
	assert.True(t, reached)

	// A fully funded project cannot collect more escrow.
	_, err = ApplyContribution(p, 1_000_000, true, testNow.Add(1))
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, int64(5_000_000), p.CurrentFunding)
	assert.Equal(t, 1, p.Backers)

	// Partial headroom only admits what fits.
	q := testProject(1000, 100)
	_, err = ApplyContribution(q, 900, true, testNow)
	require.NoError(t, err)
	_, err = ApplyContribution(q, 200, true, testNow)
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, int64(900), q.CurrentFunding)

	reached, err = ApplyContribution(q, 100, true, testNow)
	require.NoError(t, err)
	assert.True(t, reached)
}

func TestReleaseAmount(t *testing.T) {
	p := testProject(5_000_000, 40, 35, 25)
	p.CurrentFunding = 5_000_000
	m := p.MilestoneByID(1)

	// Not yet completed: no release.
	_, err := ReleaseAmount(p, m, 0)
	var se *StateError
	require.ErrorAs(t, err, &se)

	m.Status = model.MilestoneCompleted
	amount, err := ReleaseAmount(p, m, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2_000_000), amount)
}

func TestReleaseAmountDefersWhenUnderFunded(t *testing.T) {
	p := testProject(5_000_000, 40, 35, 25)
	p.CurrentFunding = 1_500_000 // goal not yet collected mid-flight
	m := p.MilestoneByID(1)
	m.Status = model.MilestoneCompleted

	_, err := ReleaseAmount(p, m, 0)
	var iee *InsufficientEscrowError
	require.ErrorAs(t, err, &iee)
	assert.Equal(t, int64(1), iee.MilestoneID)
	assert.Equal(t, int64(2_000_000), iee.Amount)
	assert.Equal(t, int64(500_000), iee.Shortfall)
}

func TestReleaseAmountCumulative(t *testing.T) {
	p := testProject(5_000_000, 40, 35, 25)
	p.CurrentFunding = 3_000_000
	m2 := p.MilestoneByID(2)
	m2.Status = model.MilestoneCompleted

	// 2,000,000 already released; 1,750,000 more would exceed collected funds.
	_, err := ReleaseAmount(p, m2, 2_000_000)
	var iee *InsufficientEscrowError
	require.ErrorAs(t, err, &iee)
	assert.Equal(t, int64(750_000), iee.Shortfall)
}

func TestCanSettle(t *testing.T) {
	p := testProject(5_000_000, 40, 35, 25)
	payout := model.Payout{ProjectID: 1, MilestoneID: 1, Amount: 2_000_000, Status: model.PayoutOwed}

	p.CurrentFunding = 1_500_000
	assert.False(t, CanSettle(p, payout, 0))

	p.CurrentFunding = 2_000_000
	assert.True(t, CanSettle(p, payout, 0))

	// Earlier paid-out escrow counts against the balance.
	p.CurrentFunding = 3_000_000
	assert.False(t, CanSettle(p, payout, 1_500_000))
}

// The snapshot never changes even if the displayed goal were altered later.
func TestReleasableAmountIsSnapshotted(t *testing.T) {
	p := testProject(5_000_000, 40, 35, 25)
	snapshot := p.Milestones[0].ReleasableAmount

	p.FundingGoal = 9_999_999
	p.CurrentFunding = 9_999_999
	m := p.MilestoneByID(1)
	m.Status = model.MilestoneCompleted

	amount, err := ReleaseAmount(p, m, 0)
	require.NoError(t, err)
	assert.Equal(t, snapshot, amount)
}

func TestRefundShare(t *testing.T) {
	tests := []struct {
		name        string
		status      model.ProjectStatus
		funding     int64
		backerTotal int64
		released    int64
		want        int64
		wantErr     bool
	}{
		{
			// Scenario D: nothing released, full contribution back.
			name:   "no releases refunds in full",
			status: model.ProjectFailed, funding: 3_000_000,
			backerTotal: 1_200_000, released: 0, want: 1_200_000,
		},
		{
			name:   "partial release refunds pro-rata",
			status: model.ProjectFailed, funding: 4_000_000,
			backerTotal: 1_000_000, released: 2_000_000, want: 500_000,
		},
		{
			name:   "everything released refunds nothing",
			status: model.ProjectFailed, funding: 4_000_000,
			backerTotal: 1_000_000, released: 4_000_000, want: 0,
		},
		{
			name:   "active project cannot refund",
			status: model.ProjectActive, funding: 4_000_000,
			backerTotal: 1_000_000, wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testProject(5_000_000, 40, 35, 25)
			p.Status = tt.status
			p.CurrentFunding = tt.funding
			got, err := RefundShare(p, tt.backerTotal, tt.released)
			if tt.wantErr {
				var se *StateError
				assert.ErrorAs(t, err, &se)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
