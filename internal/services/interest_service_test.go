package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"dealdesk/internal/models"
	apperrors "dealdesk/pkg/errors"
)

func newInterestFixture(t *testing.T) (*gorm.DB, *recordingBroadcaster, *InterestService, *OpportunityService) {
	t.Helper()
	db, rec, notifications := newNotificationFixture(t)
	opportunities, err := NewOpportunityService(db, notifications)
	require.NoError(t, err)
	interests, err := NewInterestService(db, notifications)
	require.NoError(t, err)
	return db, rec, interests, opportunities
}

func TestExpressInterestUpsertsAndNotifiesStaff(t *testing.T) {
	db, _, interests, opportunities := newInterestFixture(t)

	admin := createUser(t, db, "admin@example.com", models.RoleAdmin, true)
	team := createUser(t, db, "team@example.com", models.RoleTeam, true)
	investor := createUser(t, db, "investor@example.com", models.RoleInvestor, true)
	ref := createMnaOpportunity(t, opportunities, "Project Borealis")

	dto, err := interests.Express(context.Background(), investor.ID, ref)
	require.NoError(t, err)
	require.True(t, dto.Interested)
	require.False(t, dto.NdaSigned)

	// Expressing again converges on the same row.
	again, err := interests.Express(context.Background(), investor.ID, ref)
	require.NoError(t, err)
	require.Equal(t, dto.ID, again.ID)

	var count int64
	require.NoError(t, db.Model(&models.MnaInterest{}).Count(&count).Error)
	require.EqualValues(t, 1, count)

	// No deal assignments exist, so the access request falls back to staff.
	var rows []models.Notification
	require.NoError(t, db.Where("type = ?", models.NotificationAccessRequest).Find(&rows).Error)
	recipients := map[string]int{}
	for _, row := range rows {
		recipients[row.UserID]++
	}
	require.Equal(t, 2, recipients[admin.ID])
	require.Equal(t, 2, recipients[team.ID])
	require.Zero(t, recipients[investor.ID])
}

func TestExpressInterestPrefersInvolvedUsers(t *testing.T) {
	db, _, interests, opportunities := newInterestFixture(t)

	createUser(t, db, "admin@example.com", models.RoleAdmin, true)
	owner := createUser(t, db, "owner@example.com", models.RoleTeam, true)
	investor := createUser(t, db, "investor@example.com", models.RoleInvestor, true)

	dto, err := opportunities.Create(context.Background(), CreateOpportunityInput{
		Kind:                    models.KindMna,
		Name:                    "Assigned Deal",
		ClientAcquisitionUserID: owner.ID,
	})
	require.NoError(t, err)
	ref := models.OpportunityRef{Kind: models.KindMna, ID: dto.ID}

	_, err = interests.Express(context.Background(), investor.ID, ref)
	require.NoError(t, err)

	var rows []models.Notification
	require.NoError(t, db.Where("type = ?", models.NotificationAccessRequest).Find(&rows).Error)
	require.Len(t, rows, 1)
	require.Equal(t, owner.ID, rows[0].UserID)
	require.Equal(t, investor.ID, *rows[0].RelatedUserID)
}

func TestDeclineRecordsReasonWithoutNotifying(t *testing.T) {
	db, rec, interests, opportunities := newInterestFixture(t)

	createUser(t, db, "admin@example.com", models.RoleAdmin, true)
	investor := createUser(t, db, "investor@example.com", models.RoleInvestor, true)
	ref := createMnaOpportunity(t, opportunities, "Passed Deal")

	dto, err := interests.Decline(context.Background(), investor.ID, ref, "  outside mandate ")
	require.NoError(t, err)
	require.False(t, dto.Interested)
	require.Equal(t, "outside mandate", dto.NotInterestedReason)

	var count int64
	require.NoError(t, db.Model(&models.Notification{}).Count(&count).Error)
	require.Zero(t, count)
	require.Zero(t, rec.broadcastCount())
}

func TestMarkProcessedNotifiesInvestor(t *testing.T) {
	db, _, interests, opportunities := newInterestFixture(t)

	investor := createUser(t, db, "investor@example.com", models.RoleInvestor, true)
	ref := createMnaOpportunity(t, opportunities, "Busy Deal")

	_, err := interests.Decline(context.Background(), investor.ID, ref, "")
	require.NoError(t, err)

	dto, err := interests.MarkProcessed(context.Background(), investor.ID, ref)
	require.NoError(t, err)
	require.True(t, dto.Processed)
	require.False(t, dto.Interested)

	var rows []models.Notification
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	require.Equal(t, models.NotificationInterestProcessed, rows[0].Type)
	require.Equal(t, investor.ID, rows[0].UserID)
}

func TestUpsertValidatesReference(t *testing.T) {
	db, _, interests, _ := newInterestFixture(t)
	investor := createUser(t, db, "investor@example.com", models.RoleInvestor, true)

	interested := true
	_, err := interests.Upsert(context.Background(), investor.ID, models.OpportunityRef{}, InterestUpdate{Interested: &interested})
	require.ErrorIs(t, err, apperrors.ErrBadRequest)

	_, err = interests.Upsert(context.Background(), " ", models.OpportunityRef{Kind: models.KindMna, ID: "x"}, InterestUpdate{})
	require.ErrorIs(t, err, apperrors.ErrBadRequest)
}

func TestIssueNdaCreatesDocumentOnce(t *testing.T) {
	db, _, interests, opportunities := newInterestFixture(t)

	investor := createUser(t, db, "investor@example.com", models.RoleInvestor, true)
	ref := createMnaOpportunity(t, opportunities, "NDA Deal")

	doc, err := interests.IssueNda(context.Background(), investor.ID, ref, "prov-doc-1")
	require.NoError(t, err)
	require.Equal(t, models.EsignSent, doc.Status)
	require.Equal(t, investor.Email, doc.RecipientEmail)
	require.Equal(t, ref, doc.Ref())

	_, err = interests.IssueNda(context.Background(), investor.ID, ref, "prov-doc-1")
	require.ErrorIs(t, err, apperrors.ErrConflict)

	_, err = interests.IssueNda(context.Background(), "missing", ref, "prov-doc-2")
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}
