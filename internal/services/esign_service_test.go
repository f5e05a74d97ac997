package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"dealdesk/internal/models"
	"dealdesk/internal/realtime"
	apperrors "dealdesk/pkg/errors"
)

const testSharedKey = "whk_test_secret"

type esignFixture struct {
	db            *gorm.DB
	rec           *recordingBroadcaster
	interests     *InterestService
	opportunities *OpportunityService
	esign         *EsignService
}

func newEsignFixture(t *testing.T) esignFixture {
	t.Helper()
	db, rec, notifications := newNotificationFixture(t)
	opportunities, err := NewOpportunityService(db, notifications)
	require.NoError(t, err)
	interests, err := NewInterestService(db, notifications)
	require.NoError(t, err)
	esign, err := NewEsignService(db, interests, notifications, testSharedKey)
	require.NoError(t, err)
	return esignFixture{db: db, rec: rec, interests: interests, opportunities: opportunities, esign: esign}
}

func (f esignFixture) issueNda(t *testing.T, userID string, ref models.OpportunityRef, docID string) {
	t.Helper()
	_, err := f.interests.IssueNda(context.Background(), userID, ref, docID)
	require.NoError(t, err)
}

func completedEvent(docID string) WebhookEvent {
	return WebhookEvent{
		Event: WebhookDocumentStateChanged,
		Data: WebhookEventData{
			ID:        docID,
			SharedKey: testSharedKey,
			Status:    WebhookStatusCompleted,
		},
	}
}

func TestVerifySharedKey(t *testing.T) {
	f := newEsignFixture(t)

	require.NoError(t, f.esign.VerifySharedKey(testSharedKey))
	require.ErrorIs(t, f.esign.VerifySharedKey("wrong"), apperrors.ErrWebhookSignature)
	require.ErrorIs(t, f.esign.VerifySharedKey(""), apperrors.ErrWebhookSignature)
}

func TestDocumentCompletedSignsNdaAndNotifies(t *testing.T) {
	f := newEsignFixture(t)

	admin := createUser(t, f.db, "admin@example.com", models.RoleAdmin, true)
	investor := createUser(t, f.db, "investor@example.com", models.RoleInvestor, true)
	ref := createMnaOpportunity(t, f.opportunities, "Signed Deal")
	f.issueNda(t, investor.ID, ref, "doc-1")

	f.esign.ProcessEvents(context.Background(), []WebhookEvent{completedEvent("doc-1")})

	interest, err := f.interests.Get(context.Background(), investor.ID, ref)
	require.NoError(t, err)
	require.True(t, interest.Interested)
	require.True(t, interest.NdaSigned)

	var doc models.EsignDocument
	require.NoError(t, f.db.Where("provider_document_id = ?", "doc-1").First(&doc).Error)
	require.Equal(t, models.EsignCompleted, doc.Status)
	require.NotNil(t, doc.CompletedAt)

	var rows []models.Notification
	require.NoError(t, f.db.Where("type = ?", models.NotificationNdaSigned).Find(&rows).Error)
	require.Len(t, rows, 1)
	require.Equal(t, admin.ID, rows[0].UserID)
	require.Equal(t, investor.ID, *rows[0].RelatedUserID)

	// The signer gets a live status push on their own stream.
	f.rec.mu.Lock()
	pushes := append([]recorded(nil), f.rec.userPushes...)
	f.rec.mu.Unlock()
	require.Len(t, pushes, 1)
	require.Equal(t, realtime.StreamNdaStatus, pushes[0].Stream)
	require.Equal(t, investor.ID, pushes[0].UserID)
}

func TestDocumentCompletedOnFreshUserCreatesInterestRow(t *testing.T) {
	f := newEsignFixture(t)

	createUser(t, f.db, "admin@example.com", models.RoleAdmin, true)
	investor := createUser(t, f.db, "investor@example.com", models.RoleInvestor, true)
	ref := createMnaOpportunity(t, f.opportunities, "Direct NDA Deal")
	f.issueNda(t, investor.ID, ref, "doc-2")

	// No prior interest row exists; the callback itself creates it.
	f.esign.ProcessEvents(context.Background(), []WebhookEvent{completedEvent("doc-2")})

	var count int64
	require.NoError(t, f.db.Model(&models.MnaInterest{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestDuplicateDeliveryConvergesRowButRepeatsNotifications(t *testing.T) {
	f := newEsignFixture(t)

	createUser(t, f.db, "admin@example.com", models.RoleAdmin, true)
	investor := createUser(t, f.db, "investor@example.com", models.RoleInvestor, true)
	ref := createMnaOpportunity(t, f.opportunities, "Retried Deal")
	f.issueNda(t, investor.ID, ref, "doc-3")

	f.esign.ProcessEvents(context.Background(), []WebhookEvent{completedEvent("doc-3")})
	f.esign.ProcessEvents(context.Background(), []WebhookEvent{completedEvent("doc-3")})

	// The interest row stays singular while the staff fan-out repeats: there
	// is no delivery ledger, so a provider retry produces a second batch.
	var interestCount int64
	require.NoError(t, f.db.Model(&models.MnaInterest{}).Count(&interestCount).Error)
	require.EqualValues(t, 1, interestCount)

	var notificationCount int64
	require.NoError(t, f.db.Model(&models.Notification{}).
		Where("type = ?", models.NotificationNdaSigned).
		Count(&notificationCount).Error)
	require.EqualValues(t, 2, notificationCount)
	require.Equal(t, 2, f.rec.broadcastCount())
}

func TestDocumentDeclinedPushesStatusOnly(t *testing.T) {
	f := newEsignFixture(t)

	createUser(t, f.db, "admin@example.com", models.RoleAdmin, true)
	investor := createUser(t, f.db, "investor@example.com", models.RoleInvestor, true)
	ref := createMnaOpportunity(t, f.opportunities, "Declined Deal")
	f.issueNda(t, investor.ID, ref, "doc-4")

	f.esign.ProcessEvents(context.Background(), []WebhookEvent{{
		Event: WebhookDocumentStateChanged,
		Data: WebhookEventData{
			ID:        "doc-4",
			SharedKey: testSharedKey,
			Status:    WebhookStatusDeclined,
		},
	}})

	var doc models.EsignDocument
	require.NoError(t, f.db.Where("provider_document_id = ?", "doc-4").First(&doc).Error)
	require.Equal(t, models.EsignDeclined, doc.Status)

	// No interest row and no persisted notification, just the live push.
	var interestCount int64
	require.NoError(t, f.db.Model(&models.MnaInterest{}).Count(&interestCount).Error)
	require.Zero(t, interestCount)

	var notificationCount int64
	require.NoError(t, f.db.Model(&models.Notification{}).Count(&notificationCount).Error)
	require.Zero(t, notificationCount)

	f.rec.mu.Lock()
	pushes := len(f.rec.userPushes)
	f.rec.mu.Unlock()
	require.Equal(t, 1, pushes)
}

func TestUnknownDocumentAndEventAreSkipped(t *testing.T) {
	f := newEsignFixture(t)

	createUser(t, f.db, "admin@example.com", models.RoleAdmin, true)
	investor := createUser(t, f.db, "investor@example.com", models.RoleInvestor, true)
	ref := createMnaOpportunity(t, f.opportunities, "Quiet Deal")
	f.issueNda(t, investor.ID, ref, "doc-5")

	f.esign.ProcessEvents(context.Background(), []WebhookEvent{
		completedEvent("doc-which-does-not-exist"),
		{Event: "document.viewed", Data: WebhookEventData{ID: "doc-5", SharedKey: testSharedKey}},
		{Event: WebhookDocumentStateChanged, Data: WebhookEventData{ID: "doc-5", Status: "document.viewed"}},
		{Event: WebhookDocumentStateChanged, Data: WebhookEventData{Status: WebhookStatusCompleted}},
	})

	var doc models.EsignDocument
	require.NoError(t, f.db.Where("provider_document_id = ?", "doc-5").First(&doc).Error)
	require.Equal(t, models.EsignSent, doc.Status)

	var notificationCount int64
	require.NoError(t, f.db.Model(&models.Notification{}).Count(&notificationCount).Error)
	require.Zero(t, notificationCount)
}

func TestNewEsignServiceValidatesDependencies(t *testing.T) {
	db, _, notifications := newNotificationFixture(t)
	interests, err := NewInterestService(db, notifications)
	require.NoError(t, err)

	_, err = NewEsignService(nil, interests, notifications, testSharedKey)
	require.Error(t, err)
	_, err = NewEsignService(db, nil, notifications, testSharedKey)
	require.Error(t, err)
	_, err = NewEsignService(db, interests, nil, testSharedKey)
	require.Error(t, err)
	_, err = NewEsignService(db, interests, notifications, "  ")
	require.Error(t, err)
}
