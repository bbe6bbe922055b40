package escrow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crowdvault/internal/model"
)

func TestSubmitForReview(t *testing.T) {
	tests := []struct {
		name    string
		kyc     model.KycStatus
		mutate  func(p *model.Project)
		wantErr any
	}{
		{name: "approved creator submits", kyc: model.KycApproved},
		{name: "pending KYC rejected", kyc: model.KycPending, wantErr: &AuthorizationError{}},
		{name: "rejected KYC rejected", kyc: model.KycRejected, wantErr: &AuthorizationError{}},
		{
			name: "past deadline rejected",
			kyc:  model.KycApproved,
			mutate: func(p *model.Project) {
				p.Deadline = testNow.AddDate(0, 0, -1)
			},
			wantErr: &ValidationError{},
		},
		{
			name: "already verified cannot re-submit",
			kyc:  model.KycApproved,
			mutate: func(p *model.Project) {
				p.Status = model.ProjectVerified
			},
			wantErr: &StateError{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testProject(5_000_000, 40, 35, 25)
			p.Status = ""
			if tt.mutate != nil {
				tt.mutate(p)
			}
			err := SubmitForReview(p, tt.kyc, testNow)
			switch want := tt.wantErr.(type) {
			case nil:
				require.NoError(t, err)
				assert.Equal(t, model.ProjectPending, p.Status)
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

func TestAdminVerifyAndFlag(t *testing.T) {
	p := testProject(5_000_000, 40, 35, 25)
	p.Status = model.ProjectPending

	var ae *AuthorizationError
	assert.ErrorAs(t, AdminVerify(p, model.RoleCreator, testNow), &ae)

	require.NoError(t, AdminVerify(p, model.RoleAdmin, testNow))
	assert.Equal(t, model.ProjectVerified, p.Status)

	// Verified projects cannot be verified or flagged again.
	var se *StateError
	assert.ErrorAs(t, AdminVerify(p, model.RoleAdmin, testNow), &se)
	assert.ErrorAs(t, AdminFlag(p, model.RoleAdmin, 1, "spam", testNow), &se)
}

func TestAdminFlagRequiresReason(t *testing.T) {
	p := testProject(5_000_000, 40, 35, 25)
	p.Status = model.ProjectPending

	var ve *ValidationError
	assert.ErrorAs(t, AdminFlag(p, model.RoleAdmin, 7, "", testNow), &ve)
	assert.Equal(t, model.ProjectPending, p.Status)

	require.NoError(t, AdminFlag(p, model.RoleAdmin, 7, "duplicate listing", testNow))
	assert.Equal(t, model.ProjectFlagged, p.Status)
	assert.Equal(t, "duplicate listing", p.FlagReason)
	require.NotNil(t, p.FlaggedBy)
	assert.Equal(t, int64(7), *p.FlaggedBy)
	require.NotNil(t, p.FlaggedAt)
}

func TestActivate(t *testing.T) {
	p := testProject(5_000_000, 40, 35, 25)

	var se *StateError
	assert.ErrorAs(t, Activate(p, testNow), &se, "goal not met")

	p.CurrentFunding = 5_000_000
	require.NoError(t, Activate(p, testNow))
	assert.Equal(t, model.ProjectActive, p.Status)

	assert.ErrorAs(t, Activate(p, testNow), &se, "already active")
}

func TestEvaluateDeadline(t *testing.T) {
	deadline := testNow.AddDate(0, 1, 0)
	after := deadline.Add(time.Hour)

	tests := []struct {
		name     string
		status   model.ProjectStatus
		funding  int64
		now      time.Time
		failed   bool
		endState model.ProjectStatus
	}{
		{name: "before deadline no-op", status: model.ProjectVerified, funding: 0, now: testNow, endState: model.ProjectVerified},
		{name: "past deadline underfunded fails", status: model.ProjectVerified, funding: 3_000_000, now: after, failed: true, endState: model.ProjectFailed},
		{name: "past deadline goal met stays", status: model.ProjectActive, funding: 5_000_000, now: after, endState: model.ProjectActive},
		{name: "pending project untouched", status: model.ProjectPending, funding: 0, now: after, endState: model.ProjectPending},
		{name: "completed project untouched", status: model.ProjectCompleted, funding: 5_000_000, now: after, endState: model.ProjectCompleted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testProject(5_000_000, 40, 35, 25)
			p.Status = tt.status
			p.CurrentFunding = tt.funding
			p.Deadline = deadline

			assert.Equal(t, tt.failed, EvaluateDeadline(p, tt.now))
			assert.Equal(t, tt.endState, p.Status)

			// Re-running the same tick must not regress anything.
			assert.False(t, EvaluateDeadline(p, tt.now))
			assert.Equal(t, tt.endState, p.Status)
		})
	}
}

func TestEvaluateDisputeGrace(t *testing.T) {
	pol := LifecyclePolicy{DisputeGrace: 14 * 24 * time.Hour}

	p := testProject(5_000_000, 40, 35, 25)
	require.NoError(t, ReportProgress(p, 1, 10, 100))
	require.NoError(t, RequestCompletion(p, 1, 10, testNow))
	require.NoError(t, ResolveMilestone(p, 1, OutcomeDisputed, testNow))

	assert.False(t, EvaluateDisputeGrace(p, pol, testNow.Add(24*time.Hour)))
	assert.Equal(t, model.ProjectVerified, p.Status)

	assert.True(t, EvaluateDisputeGrace(p, pol, testNow.Add(pol.DisputeGrace+time.Hour)))
	assert.Equal(t, model.ProjectFailed, p.Status)

	// Idempotent on the next tick.
	assert.False(t, EvaluateDisputeGrace(p, pol, testNow.Add(pol.DisputeGrace+2*time.Hour)))
	assert.Equal(t, model.ProjectFailed, p.Status)
}
