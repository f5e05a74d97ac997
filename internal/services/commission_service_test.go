package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"dealdesk/internal/models"
	apperrors "dealdesk/pkg/errors"
)

func newCommissionFixture(t *testing.T) (*gorm.DB, *CommissionService) {
	t.Helper()
	db, _, notifications := newNotificationFixture(t)
	svc, err := NewCommissionService(db, notifications)
	require.NoError(t, err)
	return db, svc
}

func TestCreateCommissionNotifiesAdvisorAndAdmins(t *testing.T) {
	db, svc := newCommissionFixture(t)

	admin := createUser(t, db, "admin@example.com", models.RoleAdmin, true)
	advisor := createUser(t, db, "advisor@example.com", models.RoleAdvisor, true)

	commission, err := svc.Create(context.Background(), CreateCommissionInput{
		AdvisorUserID: advisor.ID,
		OpportunityID: "opp-1",
		Kind:          models.KindMna,
		BasisPoints:   150,
		Notes:         " sourced the buyer ",
	})
	require.NoError(t, err)
	require.Equal(t, models.CommissionPending, commission.Status)
	require.Equal(t, "sourced the buyer", commission.Note)

	var rows []models.Notification
	require.NoError(t, db.Where("type = ?", models.NotificationCommissionCreated).Find(&rows).Error)
	recipients := map[string]int{}
	for _, row := range rows {
		recipients[row.UserID]++
	}
	require.Equal(t, 1, recipients[advisor.ID])
	require.Equal(t, 1, recipients[admin.ID])
}

func TestCreateCommissionRejectsNonAdvisors(t *testing.T) {
	db, svc := newCommissionFixture(t)
	investor := createUser(t, db, "investor@example.com", models.RoleInvestor, true)

	_, err := svc.Create(context.Background(), CreateCommissionInput{
		AdvisorUserID: investor.ID,
		OpportunityID: "opp-1",
		Kind:          models.KindMna,
		BasisPoints:   100,
	})
	require.Error(t, err)

	_, err = svc.Create(context.Background(), CreateCommissionInput{
		AdvisorUserID: "missing",
		OpportunityID: "opp-1",
		Kind:          models.KindMna,
		BasisPoints:   100,
	})
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestCreateCommissionValidatesBasisPoints(t *testing.T) {
	db, svc := newCommissionFixture(t)
	advisor := createUser(t, db, "advisor@example.com", models.RoleAdvisor, true)

	for _, bps := range []int{0, -5, 10001} {
		_, err := svc.Create(context.Background(), CreateCommissionInput{
			AdvisorUserID: advisor.ID,
			OpportunityID: "opp-1",
			Kind:          models.KindMna,
			BasisPoints:   bps,
		})
		require.Error(t, err)
	}
}

func TestCommissionLifecycleTransitions(t *testing.T) {
	db, svc := newCommissionFixture(t)
	advisor := createUser(t, db, "advisor@example.com", models.RoleAdvisor, true)

	commission, err := svc.Create(context.Background(), CreateCommissionInput{
		AdvisorUserID: advisor.ID,
		OpportunityID: "opp-1",
		Kind:          models.KindRealEstate,
		BasisPoints:   200,
	})
	require.NoError(t, err)

	// PAID before APPROVED is a conflict.
	_, err = svc.MarkPaid(context.Background(), commission.ID)
	require.ErrorIs(t, err, apperrors.ErrConflict)

	approved, err := svc.Approve(context.Background(), commission.ID)
	require.NoError(t, err)
	require.Equal(t, models.CommissionApproved, approved.Status)

	_, err = svc.Approve(context.Background(), commission.ID)
	require.ErrorIs(t, err, apperrors.ErrConflict)

	paid, err := svc.MarkPaid(context.Background(), commission.ID)
	require.NoError(t, err)
	require.Equal(t, models.CommissionPaid, paid.Status)

	var rows []models.Notification
	require.NoError(t, db.Where("type = ?", models.NotificationCommissionStatusMoved).Find(&rows).Error)
	require.Len(t, rows, 2)
}

func TestListCommissionsFilters(t *testing.T) {
	db, svc := newCommissionFixture(t)
	a := createUser(t, db, "a@example.com", models.RoleAdvisor, true)
	b := createUser(t, db, "b@example.com", models.RoleAdvisor, true)

	mk := func(advisorID, oppID string, kind models.OpportunityKind) *models.Commission {
		c, err := svc.Create(context.Background(), CreateCommissionInput{
			AdvisorUserID: advisorID,
			OpportunityID: oppID,
			Kind:          kind,
			BasisPoints:   100,
		})
		require.NoError(t, err)
		return c
	}

	first := mk(a.ID, "opp-1", models.KindMna)
	mk(a.ID, "opp-2", models.KindRealEstate)
	mk(b.ID, "opp-1", models.KindMna)

	_, err := svc.Approve(context.Background(), first.ID)
	require.NoError(t, err)

	byAdvisor, err := svc.List(context.Background(), ListCommissionsInput{AdvisorUserID: a.ID})
	require.NoError(t, err)
	require.Len(t, byAdvisor, 2)

	byStatus, err := svc.List(context.Background(), ListCommissionsInput{Status: models.CommissionApproved})
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	require.Equal(t, first.ID, byStatus[0].ID)

	byDeal, err := svc.List(context.Background(), ListCommissionsInput{
		Opportunity: models.OpportunityRef{Kind: models.KindMna, ID: "opp-1"},
	})
	require.NoError(t, err)
	require.Len(t, byDeal, 2)
}
