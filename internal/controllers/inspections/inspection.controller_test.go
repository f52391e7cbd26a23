package inspectionController

import (
	"context"
	"errors"
	"testing"
	"time"

	"medwatch/internal/logger"
	. "medwatch/internal/models"
	"medwatch/internal/repositories"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type fakeInspectionRepo struct {
	inspections []Inspection
	listQuery   repositories.ListQuery
}

func (f *fakeInspectionRepo) CreateTx(ctx context.Context, tx *gorm.DB, inspection *Inspection) error {
	return nil
}

func (f *fakeInspectionRepo) GetByID(ctx context.Context, id uuid.UUID) (*Inspection, error) {
	for i := range f.inspections {
		if f.inspections[i].ID == id {
			return &f.inspections[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeInspectionRepo) GetBySerialNumber(ctx context.Context, serialNumber string) (*Inspection, error) {
	for i := range f.inspections {
		if f.inspections[i].SerialNumber == serialNumber {
			return &f.inspections[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

// List truncates at the same clamped page size the real repository applies.
func (f *fakeInspectionRepo) List(ctx context.Context, query repositories.ListQuery) ([]Inspection, error) {
	f.listQuery = query
	limit := repositories.EffectiveLimit(query.Limit)
	if len(f.inspections) > limit {
		return f.inspections[:limit], nil
	}
	return f.inspections, nil
}

func (f *fakeInspectionRepo) PatchWithRevision(
	ctx context.Context,
	tx *gorm.DB,
	id uuid.UUID,
	revision int,
	updates map[string]any,
) error {
	return nil
}

func (f *fakeInspectionRepo) InvalidateCache(ctx context.Context, id uuid.UUID) error {
	return nil
}

func testController(repo repositories.InspectionRepository) *InspectionController {
	return &InspectionController{
		inspectionRepo: repo,
		log:            logger.New("inspectionControllerTest"),
	}
}

func inspectionsCreatedAt(times ...time.Time) []Inspection {
	inspections := make([]Inspection, len(times))
	for i, ts := range times {
		inspections[i].ID = uuid.New()
		inspections[i].CreatedAt = ts
	}
	return inspections
}

func TestFormatSerialNumber(t *testing.T) {
	assert.Equal(t, "NDA-000001", FormatSerialNumber(1))
	assert.Equal(t, "NDA-000042", FormatSerialNumber(42))
	assert.Equal(t, "NDA-123456", FormatSerialNumber(123456))
	assert.Equal(t, "NDA-1234567", FormatSerialNumber(1234567))
}

func TestListReturnsCursorOnFullPage(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	times := make([]time.Time, 3)
	for i := range times {
		times[i] = base.Add(-time.Duration(i) * time.Hour)
	}

	repo := &fakeInspectionRepo{inspections: inspectionsCreatedAt(times...)}
	c := testController(repo)

	response, err := c.List(context.Background(), ListInspectionsRequest{Limit: 3})

	require.NoError(t, err)
	require.NotNil(t, response.NextBefore)
	assert.Equal(t, times[2], *response.NextBefore, "cursor must be the oldest row on the page")
	assert.Equal(t, 3, repo.listQuery.Limit)
}

func TestListOmitsCursorOnShortPage(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	repo := &fakeInspectionRepo{inspections: inspectionsCreatedAt(base)}
	c := testController(repo)

	response, err := c.List(context.Background(), ListInspectionsRequest{Limit: 3})

	require.NoError(t, err)
	assert.Nil(t, response.NextBefore)
}

func TestListEmitsCursorWhenLimitExceedsMaxPageSize(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	times := make([]time.Time, 150)
	for i := range times {
		times[i] = base.Add(-time.Duration(i) * time.Minute)
	}

	repo := &fakeInspectionRepo{inspections: inspectionsCreatedAt(times...)}
	c := testController(repo)

	response, err := c.List(context.Background(), ListInspectionsRequest{Limit: 200})

	require.NoError(t, err)
	require.Len(t, response.Inspections, repositories.MaxPageSize)
	require.NotNil(t, response.NextBefore,
		"a page capped at the max size is still full; older rows must stay reachable")
	assert.Equal(t, times[repositories.MaxPageSize-1], *response.NextBefore)
}

func TestListForwardsCursorAndDistrict(t *testing.T) {
	before := time.Date(2026, 7, 15, 0, 0, 0, 0, time.UTC)
	repo := &fakeInspectionRepo{}
	c := testController(repo)

	_, err := c.List(context.Background(), ListInspectionsRequest{
		Before:   &before,
		District: "Kampala",
	})

	require.NoError(t, err)
	require.NotNil(t, repo.listQuery.Before)
	assert.Equal(t, before, *repo.listQuery.Before)
	assert.Equal(t, "Kampala", repo.listQuery.District)
}

func TestCreateValidation(t *testing.T) {
	c := testController(&fakeInspectionRepo{})
	user := &User{}

	tests := []struct {
		name string
		req  CreateInspectionRequest
	}{
		{"missing facility name", CreateInspectionRequest{}},
		{"blank facility name", CreateInspectionRequest{FacilityName: "   "}},
		{
			"invalid facility type",
			CreateInspectionRequest{FacilityName: "Shop", FacilityType: "warehouse"},
		},
		{
			"malformed inspection date",
			CreateInspectionRequest{FacilityName: "Shop", InspectionDate: "yesterday"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Create(context.Background(), user, tt.req)
			assert.True(t, errors.Is(err, ErrValidation), "expected validation error, got %v", err)
		})
	}
}

func TestBuildImpoundmentValidation(t *testing.T) {
	c := testController(&fakeInspectionRepo{})
	log := c.log

	valid := &ImpoundmentInput{
		BoxesImpounded:  FlexInt(8),
		Officer:         "J. Amoding",
		ImpoundmentDate: "2026-08-01T09:00:00Z",
		Reasons:         []string{"expired stock"},
	}

	impoundment, err := c.buildImpoundment(log, valid)
	require.NoError(t, err)
	assert.Equal(t, 8, impoundment.BoxesImpounded)
	assert.Equal(t, BoxStatusNotYetInStore, impoundment.BoxStatus)
	assert.Equal(t, InventoryPendingReview, impoundment.InventoryStatus)

	_, err = c.buildImpoundment(log, &ImpoundmentInput{BoxesImpounded: FlexInt(0), Officer: "X"})
	assert.True(t, errors.Is(err, ErrValidation))

	_, err = c.buildImpoundment(log, &ImpoundmentInput{BoxesImpounded: FlexInt(-3), Officer: "X"})
	assert.True(t, errors.Is(err, ErrValidation))

	_, err = c.buildImpoundment(log, &ImpoundmentInput{BoxesImpounded: FlexInt(5)})
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestPatchRequiresRevisionAndFields(t *testing.T) {
	c := testController(&fakeInspectionRepo{})
	user := &User{}

	_, err := c.Patch(context.Background(), user, uuid.New(), PatchInspectionRequest{})
	assert.True(t, errors.Is(err, ErrValidation))

	_, err = c.Patch(context.Background(), user, uuid.New(), PatchInspectionRequest{Revision: 2})
	assert.True(t, errors.Is(err, ErrValidation), "patch with no fields must be rejected")
}

func TestGetBySerialNumber(t *testing.T) {
	inspection := Inspection{SerialNumber: "NDA-000042"}
	inspection.ID = uuid.New()
	repo := &fakeInspectionRepo{inspections: []Inspection{inspection}}
	c := testController(repo)

	found, err := c.GetBySerialNumber(context.Background(), "NDA-000042")
	require.NoError(t, err)
	assert.Equal(t, inspection.ID, found.ID)

	_, err = c.GetBySerialNumber(context.Background(), "NDA-999999")
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = c.GetBySerialNumber(context.Background(), "   ")
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestDeriveProgress(t *testing.T) {
	checklist := map[string]any{
		"premises.license":  "yes",
		"premises.signage":  "",
		"storage.coldChain": "no",
		"notes":             "follow up",
	}

	progress := deriveProgress(checklist)

	assert.Equal(t, map[string]int{"answered": 1, "total": 2}, progress["premises"])
	assert.Equal(t, map[string]int{"answered": 1, "total": 1}, progress["storage"])
	assert.Equal(t, map[string]int{"answered": 1, "total": 1}, progress["notes"])
}

func TestPatchChecklistRefreshesProgress(t *testing.T) {
	c := testController(&fakeInspectionRepo{})
	checklist := map[string]any{
		"premises.license": "yes",
		"premises.signage": "",
	}

	updates, err := c.buildPatchUpdates(c.log, PatchInspectionRequest{
		Revision:  1,
		Checklist: checklist,
	})
	require.NoError(t, err)

	progress, ok := updates["progress"].(datatypes.JSONMap)
	require.True(t, ok, "a checklist patch must refresh the stored counters")
	assert.Equal(t, map[string]int{"answered": 1, "total": 2}, progress["premises"])

	explicit := map[string]any{"premises": map[string]int{"answered": 2, "total": 2}}
	updates, err = c.buildPatchUpdates(c.log, PatchInspectionRequest{
		Revision:  1,
		Checklist: checklist,
		Progress:  explicit,
	})
	require.NoError(t, err)
	assert.Equal(t, datatypes.JSONMap(explicit), updates["progress"],
		"caller-supplied progress wins over the derived counters")
}
