package lifecycleController

import (
	"context"
	"errors"
	"testing"
	"time"

	"medwatch/internal/logger"
	. "medwatch/internal/models"
	"medwatch/internal/services"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func testController() *LifecycleController {
	return &LifecycleController{log: logger.New("lifecycleControllerTest")}
}

type fakeImpoundmentRepo struct {
	claimWon bool
	claimErr error
	claims   []uuid.UUID
}

func (f *fakeImpoundmentRepo) CreateTx(ctx context.Context, tx *gorm.DB, impoundment *Impoundment) error {
	return nil
}

func (f *fakeImpoundmentRepo) GetByInspectionID(ctx context.Context, inspectionID uuid.UUID) (*Impoundment, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeImpoundmentRepo) UpdateTx(ctx context.Context, tx *gorm.DB, impoundment *Impoundment) error {
	return nil
}

func (f *fakeImpoundmentRepo) CreateReleaseTx(ctx context.Context, tx *gorm.DB, release *Release) error {
	return nil
}

func (f *fakeImpoundmentRepo) ClaimReminderTx(
	ctx context.Context,
	tx *gorm.DB,
	id uuid.UUID,
	sentAt time.Time,
) (bool, error) {
	f.claims = append(f.claims, id)
	return f.claimWon, f.claimErr
}

func (f *fakeImpoundmentRepo) FindReminderCandidates(ctx context.Context, inStoreBefore time.Time) ([]Impoundment, error) {
	return nil, nil
}

type fakeNotificationRepo struct {
	createTxErr error
	staged      []*Notification
}

func (f *fakeNotificationRepo) Create(ctx context.Context, notification *Notification) error {
	return nil
}

func (f *fakeNotificationRepo) CreateTx(ctx context.Context, tx *gorm.DB, notification *Notification) error {
	if f.createTxErr != nil {
		return f.createTxErr
	}
	f.staged = append(f.staged, notification)
	return nil
}

func (f *fakeNotificationRepo) GetByID(ctx context.Context, id uuid.UUID) (*Notification, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeNotificationRepo) MarkSent(ctx context.Context, id uuid.UUID) error {
	return nil
}

func (f *fakeNotificationRepo) MarkFailed(ctx context.Context, id uuid.UUID, lastError string) error {
	return nil
}

func (f *fakeNotificationRepo) FindStuckPending(ctx context.Context, olderThan time.Time) ([]Notification, error) {
	return nil, nil
}

func validReleaseRequest() ReleaseRequest {
	return ReleaseRequest{
		Revision:         3,
		ReleaseDate:      "2026-08-20T10:00:00Z",
		ClientName:       "Okello Pharmacy Ltd",
		Telephone:        "0701234567",
		ReleasingOfficer: "J. Amoding",
		BoxesReleased:    FlexInt(10),
		ConsentConfirmed: true,
		ConfirmationText: "release",
	}
}

func releaseFixture() (*Inspection, *Impoundment) {
	inspection := &Inspection{
		SerialNumber: "NDA-000042",
		FacilityName: "Sunrise Drug Shop",
	}
	impoundment := &Impoundment{
		BoxesImpounded: 10,
		BoxStatus:      BoxStatusInStore,
	}
	return inspection, impoundment
}

func TestValidateReleaseAccepted(t *testing.T) {
	c := testController()
	inspection, impoundment := releaseFixture()

	releaseDate, err := c.validateRelease(c.log, inspection, impoundment, validReleaseRequest())

	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC), releaseDate.UTC())
}

func TestValidateReleaseBoxBounds(t *testing.T) {
	c := testController()
	inspection, impoundment := releaseFixture()

	tests := []struct {
		name  string
		boxes int
		valid bool
	}{
		{"all boxes", 10, true},
		{"partial", 4, true},
		{"single box", 1, true},
		{"zero", 0, false},
		{"negative", -2, false},
		{"more than impounded", 11, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validReleaseRequest()
			req.BoxesReleased = FlexInt(tt.boxes)

			_, err := c.validateRelease(c.log, inspection, impoundment, req)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.True(t, errors.Is(err, ErrValidation))
			}
		})
	}
}

func TestValidateReleaseRejectsMissingFields(t *testing.T) {
	c := testController()
	inspection, impoundment := releaseFixture()

	mutations := map[string]func(*ReleaseRequest){
		"zero revision":      func(r *ReleaseRequest) { r.Revision = 0 },
		"missing date":       func(r *ReleaseRequest) { r.ReleaseDate = "" },
		"malformed date":     func(r *ReleaseRequest) { r.ReleaseDate = "20/08/2026" },
		"missing client":     func(r *ReleaseRequest) { r.ClientName = "   " },
		"implausible phone":  func(r *ReleaseRequest) { r.Telephone = "not-a-phone" },
		"missing officer":    func(r *ReleaseRequest) { r.ReleasingOfficer = "" },
		"consent unchecked":  func(r *ReleaseRequest) { r.ConsentConfirmed = false },
		"wrong confirmation": func(r *ReleaseRequest) { r.ConfirmationText = "delete" },
	}

	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			req := validReleaseRequest()
			mutate(&req)

			_, err := c.validateRelease(c.log, inspection, impoundment, req)
			assert.True(t, errors.Is(err, ErrValidation), "expected validation error, got %v", err)
		})
	}
}

func TestConfirmationMatches(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		serial string
		want   bool
	}{
		{"exact word", "release", "NDA-000042", true},
		{"uppercase word", "RELEASE", "NDA-000042", true},
		{"word with whitespace", "  Release  ", "NDA-000042", true},
		{"serial number", "NDA-000042", "NDA-000042", true},
		{"serial lowercase", "nda-000042", "NDA-000042", true},
		{"wrong word", "released", "NDA-000042", false},
		{"wrong serial", "NDA-000041", "NDA-000042", false},
		{"empty text", "", "NDA-000042", false},
		{"empty text and serial", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, confirmationMatches(tt.text, tt.serial))
		})
	}
}

func reminderController(impoundments *fakeImpoundmentRepo, notifications *fakeNotificationRepo) *LifecycleController {
	return &LifecycleController{
		impoundmentRepo: impoundments,
		notifier:        services.NewNotifierService(notifications, nil, nil),
		log:             logger.New("lifecycleControllerTest"),
	}
}

func TestClaimAndStageCommitsClaimWithNotification(t *testing.T) {
	impoundments := &fakeImpoundmentRepo{claimWon: true}
	notifications := &fakeNotificationRepo{}
	c := reminderController(impoundments, notifications)

	notification := &Notification{Kind: NotificationReminder, Recipients: "0701234567"}
	won, err := c.claimAndStage(context.Background(), nil, uuid.New(), time.Now(), notification)

	require.NoError(t, err)
	assert.True(t, won)
	require.Len(t, notifications.staged, 1)
	assert.Equal(t, NotificationReminder, notifications.staged[0].Kind)
}

func TestClaimAndStageFailedStageReturnsError(t *testing.T) {
	// The claim and the staged notification share one transaction; an error
	// here rolls both back, so a lost stage never burns the one reminder a
	// record gets
	impoundments := &fakeImpoundmentRepo{claimWon: true}
	notifications := &fakeNotificationRepo{createTxErr: errors.New("insert failed")}
	c := reminderController(impoundments, notifications)

	notification := &Notification{Kind: NotificationReminder, Recipients: "0701234567"}
	won, err := c.claimAndStage(context.Background(), nil, uuid.New(), time.Now(), notification)

	require.Error(t, err, "a staging failure must abort the claiming transaction")
	assert.False(t, won)
}

func TestClaimAndStageLostClaimSkipsStaging(t *testing.T) {
	impoundments := &fakeImpoundmentRepo{claimWon: false}
	notifications := &fakeNotificationRepo{}
	c := reminderController(impoundments, notifications)

	notification := &Notification{Kind: NotificationReminder, Recipients: "0701234567"}
	won, err := c.claimAndStage(context.Background(), nil, uuid.New(), time.Now(), notification)

	require.NoError(t, err)
	assert.False(t, won)
	assert.Empty(t, notifications.staged, "a lost claim must not stage a duplicate reminder")
}

func TestValidateReleaseAcceptsSerialConfirmation(t *testing.T) {
	c := testController()
	inspection, impoundment := releaseFixture()

	req := validReleaseRequest()
	req.ConfirmationText = inspection.SerialNumber

	_, err := c.validateRelease(c.log, inspection, impoundment, req)
	assert.NoError(t, err)
}
