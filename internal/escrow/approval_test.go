package escrow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crowdvault/internal/model"
)

var testPolicy = ApprovalPolicy{
	QuorumFraction: 0.5,
	VotingWindow:   7 * 24 * time.Hour,
}

func projectInReview(t *testing.T) *model.Project {
	t.Helper()
	p := testProject(5_000_000, 40, 35, 25)
	require.NoError(t, ReportProgress(p, 1, 10, 100))
	require.NoError(t, RequestCompletion(p, 1, 10, testNow))
	return p
}

func TestValidateVote(t *testing.T) {
	tests := []struct {
		name        string
		milestoneID int64
		contributed int64
		value       model.VoteValue
		wantErr     any
	}{
		{name: "contributing backer confirms", milestoneID: 1, contributed: 100, value: model.VoteConfirm},
		{name: "one cent is enough", milestoneID: 1, contributed: 1, value: model.VoteReject},
		{name: "non-contributor rejected", milestoneID: 1, contributed: 0, value: model.VoteConfirm, wantErr: &AuthorizationError{}},
		{name: "bad vote value", milestoneID: 1, contributed: 100, value: "abstain", wantErr: &ValidationError{}},
		{name: "milestone not in review", milestoneID: 2, contributed: 100, value: model.VoteConfirm, wantErr: &StateError{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := projectInReview(t)
			err := ValidateVote(p, tt.milestoneID, 42, tt.contributed, tt.value)
			switch want := tt.wantErr.(type) {
			case nil:
				assert.NoError(t, err)
			case *AuthorizationError:
				assert.ErrorAs(t, err, &want)
			case *ValidationError:
				assert.ErrorAs(t, err, &want)
			case *StateError:
				assert.ErrorAs(t, err, &want)
			}
		})
	}
}

func TestEvaluateTallyBeforeExpiry(t *testing.T) {
	tests := []struct {
		name     string
		tally    Tally
		want     Outcome
		resolved bool
	}{
		{
			name:     "clear majority resolves early",
			tally:    Tally{Confirm: 3, Reject: 0, Eligible: 4},
			want:     OutcomeApproved,
			resolved: true,
		},
		{
			name:     "lead still beatable waits",
			tally:    Tally{Confirm: 2, Reject: 0, Eligible: 4},
			resolved: false,
		},
		{
			name:     "exact tie with all voted disputes",
			tally:    Tally{Confirm: 2, Reject: 2, Eligible: 4},
			want:     OutcomeDisputed,
			resolved: true,
		},
		{
			name:     "unanimous reject disputes",
			tally:    Tally{Confirm: 0, Reject: 4, Eligible: 4},
			want:     OutcomeDisputed,
			resolved: true,
		},
		{
			name:     "no votes waits",
			tally:    Tally{Eligible: 4},
			resolved: false,
		},
		{
			name:     "sole eligible backer confirms",
			tally:    Tally{Confirm: 1, Eligible: 1},
			want:     OutcomeApproved,
			resolved: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := projectInReview(t)
			m := p.MilestoneByID(1)
			got, resolved := EvaluateTally(m, tt.tally, testPolicy, testNow.Add(time.Hour))
			assert.Equal(t, tt.resolved, resolved)
			if tt.resolved {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestEvaluateTallyAfterExpiry(t *testing.T) {
	expired := testNow.Add(testPolicy.VotingWindow + time.Hour)

	tests := []struct {
		name  string
		tally Tally
		want  Outcome
	}{
		{
			// Scenario B: 1 of 4 voted, below 50% quorum.
			name:  "below quorum disputes, never approves",
			tally: Tally{Confirm: 1, Reject: 0, Eligible: 4},
			want:  OutcomeDisputed,
		},
		{
			name:  "quorum met with confirm majority approves",
			tally: Tally{Confirm: 2, Reject: 0, Eligible: 4},
			want:  OutcomeApproved,
		},
		{
			name:  "tie disputes",
			tally: Tally{Confirm: 1, Reject: 1, Eligible: 4},
			want:  OutcomeDisputed,
		},
		{
			name:  "reject majority disputes",
			tally: Tally{Confirm: 1, Reject: 2, Eligible: 4},
			want:  OutcomeDisputed,
		},
		{
			name:  "zero votes disputes",
			tally: Tally{Eligible: 4},
			want:  OutcomeDisputed,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := projectInReview(t)
			m := p.MilestoneByID(1)
			got, resolved := EvaluateTally(m, tt.tally, testPolicy, expired)
			require.True(t, resolved, "an expired window always resolves")
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluateTallyIgnoresMilestonesNotInReview(t *testing.T) {
	p := testProject(5_000_000, 40, 35, 25)
	m := p.MilestoneByID(1) // in-progress, never entered review
	_, resolved := EvaluateTally(m, Tally{Confirm: 4, Eligible: 4}, testPolicy, testNow)
	assert.False(t, resolved)
}

func TestValidateOverride(t *testing.T) {
	tests := []struct {
		name     string
		actor    model.Role
		decision Outcome
		dispute  bool // dispute the milestone before validating
		wantErr  any
	}{
		{name: "admin approves pending review", actor: model.RoleAdmin, decision: OutcomeApproved},
		{name: "admin disputes pending review", actor: model.RoleAdmin, decision: OutcomeDisputed},
		{name: "admin approves disputed milestone", actor: model.RoleAdmin, decision: OutcomeApproved, dispute: true},
		{name: "re-disputing is a no-op rejected", actor: model.RoleAdmin, decision: OutcomeDisputed, dispute: true, wantErr: &StateError{}},
		{name: "backer cannot override", actor: model.RoleBacker, decision: OutcomeApproved, wantErr: &AuthorizationError{}},
		{name: "creator cannot override", actor: model.RoleCreator, decision: OutcomeApproved, wantErr: &AuthorizationError{}},
		{name: "bad decision", actor: model.RoleAdmin, decision: "maybe", wantErr: &ValidationError{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := projectInReview(t)
			if tt.dispute {
				require.NoError(t, ResolveMilestone(p, 1, OutcomeDisputed, testNow))
			}
			err := ValidateOverride(p, 1, tt.actor, tt.decision)
			switch want := tt.wantErr.(type) {
			case nil:
				assert.NoError(t, err)
			case *StateError:
				assert.ErrorAs(t, err, &want)
			case *AuthorizationError:
				assert.ErrorAs(t, err, &want)
			case *ValidationError:
				assert.ErrorAs(t, err, &want)
			}
		})
	}
}
