package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"medwatch/config"
	"medwatch/internal/logger"
	"medwatch/internal/models"
	"medwatch/internal/queue"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeNotificationRepo struct {
	created *models.Notification
	sent    []uuid.UUID
	failed  map[uuid.UUID]string
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{failed: map[uuid.UUID]string{}}
}

func (f *fakeNotificationRepo) Create(ctx context.Context, notification *models.Notification) error {
	notification.ID = uuid.New()
	f.created = notification
	return nil
}

func (f *fakeNotificationRepo) CreateTx(ctx context.Context, tx *gorm.DB, notification *models.Notification) error {
	return f.Create(ctx, notification)
}

func (f *fakeNotificationRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Notification, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeNotificationRepo) MarkSent(ctx context.Context, id uuid.UUID) error {
	f.sent = append(f.sent, id)
	return nil
}

func (f *fakeNotificationRepo) MarkFailed(ctx context.Context, id uuid.UUID, lastError string) error {
	f.failed[id] = lastError
	return nil
}

func (f *fakeNotificationRepo) FindStuckPending(ctx context.Context, olderThan time.Time) ([]models.Notification, error) {
	return nil, nil
}

func TestHandleDispatchTaskDropsMalformedPayloads(t *testing.T) {
	ns := &NotifierService{log: logger.New("notifierTest")}

	tests := []struct {
		name    string
		payload []byte
	}{
		{"not json", []byte("not-json")},
		{"wrong id format", []byte(`{"notification_id":"not-a-uuid"}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := asynq.NewTask(queue.DispatchNotificationTask, tt.payload)

			err := ns.HandleDispatchTask(context.Background(), task)

			assert.Error(t, err)
			assert.True(t, errors.Is(err, asynq.SkipRetry),
				"malformed payloads must not be retried")
		})
	}
}

func TestSendAdHocRecordsLedgerOutcome(t *testing.T) {
	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"messages":1}`))
	}))
	defer gateway.Close()

	repo := newFakeNotificationRepo()
	ns := &NotifierService{
		notifications: repo,
		sms: NewSMSService(config.Config{
			SMSAPIKey:  "test-key",
			SMSBaseURL: gateway.URL,
		}),
		log: logger.New("notifierTest"),
	}

	result, err := ns.SendAdHoc(context.Background(), "0701234567", "Visit scheduled")

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, result.StatusCode)
	require.NotNil(t, repo.created, "the relay must leave a ledger row")
	assert.Equal(t, models.NotificationAdHoc, repo.created.Kind)
	assert.Equal(t, "+256701234567", repo.created.Recipients)
	assert.Contains(t, repo.sent, repo.created.ID)
}

func TestSendAdHocMarksGatewayRejectionFailed(t *testing.T) {
	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":"invalid recipient"}`))
	}))
	defer gateway.Close()

	repo := newFakeNotificationRepo()
	ns := &NotifierService{
		notifications: repo,
		sms: NewSMSService(config.Config{
			SMSAPIKey:  "test-key",
			SMSBaseURL: gateway.URL,
		}),
		log: logger.New("notifierTest"),
	}

	result, err := ns.SendAdHoc(context.Background(), "0701234567", "hello")

	require.NoError(t, err, "a gateway rejection is a relay result, not a server error")
	assert.Equal(t, http.StatusUnprocessableEntity, result.StatusCode)
	assert.Empty(t, repo.sent)
	assert.Contains(t, repo.failed[repo.created.ID], "gateway status 422")
}

func TestLifecycleMessages(t *testing.T) {
	inspection := &models.Inspection{
		SerialNumber: "NDA-000007",
		FacilityName: "Sunrise Drug Shop",
	}
	impoundment := &models.Impoundment{
		BoxesImpounded: 12,
	}

	inStore := InStoreMessage(inspection, impoundment)
	assert.Contains(t, inStore, "12 box(es)")
	assert.Contains(t, inStore, "Sunrise Drug Shop")
	assert.Contains(t, inStore, "NDA-000007")

	release := &models.Release{
		BoxesReleased: 5,
		ClientName:    "Okello Pharmacy Ltd",
		ReleaseDate:   time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC),
	}
	releaseMsg := ReleaseMessage(inspection, release)
	assert.Contains(t, releaseMsg, "5 box(es)")
	assert.Contains(t, releaseMsg, "Okello Pharmacy Ltd")
	assert.Contains(t, releaseMsg, "20 Aug 2026")

	reminder := ReminderMessage(inspection, impoundment, 45)
	assert.Contains(t, reminder, "45 days")
	assert.Contains(t, reminder, "NDA-000007")
}
