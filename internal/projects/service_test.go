package projects

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/siteboss-backend/internal/access/accesstest"
	"github.com/angelmondragon/siteboss-backend/pkg/db/dbtest"
	"github.com/angelmondragon/siteboss-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/siteboss-backend/pkg/errors"
	"github.com/angelmondragon/siteboss-backend/pkg/geocode"
	"github.com/angelmondragon/siteboss-backend/pkg/pagination"
	"github.com/angelmondragon/siteboss-backend/pkg/types"
)

type stubGeocoder struct {
	address string
	err     error
	calls   int
}

func (s *stubGeocoder) Reverse(context.Context, float64, float64) (string, error) {
	s.calls++
	return s.address, s.err
}

func newTestService(t *testing.T, geo *stubGeocoder) *service {
	t.Helper()
	var reverser geocode.Reverser
	if geo != nil {
		reverser = geo
	}
	svc, err := NewService(NewRepository(dbtest.Open(t)), reverser)
	require.NoError(t, err)
	impl := svc.(*service)
	impl.now = func() time.Time { return time.Date(2026, 3, 14, 15, 4, 5, 0, time.UTC) }
	return impl
}

func floatPtr(v float64) *float64 { return &v }

func TestCreateDefaultsStatusAndStartDate(t *testing.T) {
	svc := newTestService(t, nil)
	owner := accesstest.Owner()

	project, err := svc.Create(context.Background(), owner, CreateProjectInput{
		Name:     "  Skyline Tower ",
		Location: "Baner, Pune",
		Budget:   types.NewLooseAmount(decimal.NewFromInt(2500000)),
		Progress: types.NewLooseAmount(decimal.NewFromInt(140)),
	})
	require.NoError(t, err)
	assert.Equal(t, "Skyline Tower", project.Name)
	assert.Equal(t, enums.ProjectStatusActive, project.Status)
	assert.Equal(t, "2026-03-14", project.StartDate.String())
	assert.Equal(t, 100, project.Progress)
	assert.True(t, project.Budget.Equal(decimal.NewFromInt(2500000)))
}

func TestCreateReverseGeocodesMissingLocation(t *testing.T) {
	geo := &stubGeocoder{address: "Hinjewadi Phase 1, Pune"}
	svc := newTestService(t, geo)

	project, err := svc.Create(context.Background(), accesstest.Owner(), CreateProjectInput{
		Name:      "Metro Depot",
		Latitude:  floatPtr(18.59),
		Longitude: floatPtr(73.73),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, geo.calls)
	assert.Equal(t, "Hinjewadi Phase 1, Pune", project.Location)
	require.NotNil(t, project.Latitude)
}

func TestCreateRejectsMissingFields(t *testing.T) {
	svc := newTestService(t, &stubGeocoder{err: errors.New("offline")})
	owner := accesstest.Owner()

	_, err := svc.Create(context.Background(), owner, CreateProjectInput{Location: "Pune"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.Create(context.Background(), owner, CreateProjectInput{
		Name: "No Address", Latitude: floatPtr(1), Longitude: floatPtr(2),
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "geocoder failure leaves location empty")

	_, err = svc.Create(context.Background(), owner, CreateProjectInput{
		Name: "Negative", Location: "Pune", Budget: types.NewLooseAmount(decimal.NewFromInt(-1)),
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.Create(context.Background(), owner, CreateProjectInput{Name: "Bad", Location: "Pune", Status: "PAUSED"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	stored, err := svc.List(context.Background(), owner, ListParams{})
	require.NoError(t, err)
	assert.Empty(t, stored.Items, "rejected projects must not be written")
}

func TestCreatedProjectIsListed(t *testing.T) {
	svc := newTestService(t, nil)
	owner := accesstest.Owner()
	ctx := context.Background()

	start, err := types.ParseDate("2026-05-01")
	require.NoError(t, err)
	created, err := svc.Create(ctx, owner, CreateProjectInput{
		Name:      "Riverside Homes",
		Location:  "Kharadi, Pune",
		Budget:    types.NewLooseAmount(decimal.RequireFromString("1850000.50")),
		StartDate: start,
		Status:    "PLANNING",
	})
	require.NoError(t, err)

	listed, err := svc.List(ctx, owner, ListParams{})
	require.NoError(t, err)
	require.Len(t, listed.Items, 1)
	got := listed.Items[0]
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "Riverside Homes", got.Name)
	assert.Equal(t, "Kharadi, Pune", got.Location)
	assert.True(t, got.Budget.Equal(decimal.RequireFromString("1850000.50")), got.Budget.String())
	assert.Equal(t, "2026-05-01", got.StartDate.String())
	assert.Equal(t, enums.ProjectStatusPlanning, got.Status)
	assert.Zero(t, got.Progress)
}

func TestCreateForbiddenForWorkers(t *testing.T) {
	svc := newTestService(t, nil)
	owner := accesstest.Owner()

	_, err := svc.Create(context.Background(), accesstest.Supervisor(owner, uuid.New()), CreateProjectInput{Name: "X", Location: "Y"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
}

func TestUpdateClampsProgressAndScopesOwner(t *testing.T) {
	svc := newTestService(t, nil)
	owner := accesstest.Owner()
	ctx := context.Background()

	created, err := svc.Create(ctx, owner, CreateProjectInput{Name: "Villa", Location: "Goa"})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, owner, created.ID, UpdateProjectInput{
		Progress: types.NewLooseAmount(decimal.NewFromInt(-20)),
	})
	require.NoError(t, err)
	assert.Equal(t, 0, updated.Progress)

	status := "DELAYED"
	updated, err = svc.Update(ctx, owner, created.ID, UpdateProjectInput{
		Status:   &status,
		Progress: types.NewLooseAmount(decimal.RequireFromString("55.9")),
	})
	require.NoError(t, err)
	assert.Equal(t, enums.ProjectStatusDelayed, updated.Status)
	assert.Equal(t, 55, updated.Progress)

	_, err = svc.Update(ctx, accesstest.Owner(), created.ID, UpdateProjectInput{Status: &status})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	blank := " "
	_, err = svc.Update(ctx, owner, created.ID, UpdateProjectInput{Name: &blank})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestListFiltersByStatusAndDelete(t *testing.T) {
	svc := newTestService(t, nil)
	owner := accesstest.Owner()
	ctx := context.Background()

	active, err := svc.Create(ctx, owner, CreateProjectInput{Name: "A", Location: "Pune"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, owner, CreateProjectInput{Name: "B", Location: "Pune", Status: "PLANNING"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, accesstest.Owner(), CreateProjectInput{Name: "C", Location: "Pune"})
	require.NoError(t, err)

	all, err := svc.List(ctx, owner, ListParams{})
	require.NoError(t, err)
	assert.Len(t, all.Items, 2)
	assert.Empty(t, all.Cursor)

	planning, err := svc.List(ctx, owner, ListParams{Status: "PLANNING"})
	require.NoError(t, err)
	require.Len(t, planning.Items, 1)
	assert.Equal(t, "B", planning.Items[0].Name)

	_, err = svc.List(ctx, owner, ListParams{Params: pagination.Params{Cursor: "%%%"}})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	require.NoError(t, svc.Delete(ctx, owner, active.ID))
	_, err = svc.Get(ctx, owner, active.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestGetRestrictsWorkersToTheirProject(t *testing.T) {
	svc := newTestService(t, nil)
	owner := accesstest.Owner()
	ctx := context.Background()

	project, err := svc.Create(ctx, owner, CreateProjectInput{Name: "Mall", Location: "Nagpur"})
	require.NoError(t, err)

	got, err := svc.Get(ctx, accesstest.Supervisor(owner, project.ID), project.ID)
	require.NoError(t, err)
	assert.Equal(t, "Mall", got.Name)

	_, err = svc.Get(ctx, accesstest.Supervisor(owner, uuid.New()), project.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
}

func TestClampProgress(t *testing.T) {
	assert.Equal(t, 0, ClampProgress(decimal.NewFromInt(-5)))
	assert.Equal(t, 100, ClampProgress(decimal.NewFromInt(101)))
	assert.Equal(t, 42, ClampProgress(decimal.NewFromInt(42)))
}
