package labor

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/siteboss-backend/internal/access/accesstest"
	"github.com/angelmondragon/siteboss-backend/pkg/db/dbtest"
	"github.com/angelmondragon/siteboss-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/siteboss-backend/pkg/errors"
)

func newTestService(t *testing.T) Service {
	t.Helper()
	svc, err := NewService(NewRepository(dbtest.Open(t)))
	require.NoError(t, err)
	return svc
}

func TestRosterAttendance(t *testing.T) {
	svc := newTestService(t)
	owner := accesstest.Owner()
	site := uuid.New()
	supervisor := accesstest.Supervisor(owner, site)
	ctx := context.Background()

	ramesh, err := svc.Add(ctx, supervisor, AddLaborInput{Name: " Ramesh ", Type: "mason"})
	require.NoError(t, err)
	assert.Equal(t, "Ramesh", ramesh.Name)
	assert.Equal(t, enums.LaborTypeMason, ramesh.Type)
	assert.False(t, ramesh.Present)
	assert.Equal(t, site, ramesh.ProjectID)

	suresh, err := svc.Add(ctx, supervisor, AddLaborInput{Name: "Suresh"})
	require.NoError(t, err)
	assert.Equal(t, enums.LaborTypeHelper, suresh.Type)

	toggled, err := svc.Toggle(ctx, supervisor, ramesh.ID)
	require.NoError(t, err)
	assert.True(t, toggled.Present)

	summary, err := svc.Summary(ctx, supervisor, nil)
	require.NoError(t, err)
	assert.Equal(t, &Summary{Present: 1, Total: 2}, summary)

	toggled, err = svc.Toggle(ctx, supervisor, ramesh.ID)
	require.NoError(t, err)
	assert.False(t, toggled.Present)

	summary, err = svc.Summary(ctx, owner, &site)
	require.NoError(t, err)
	assert.Equal(t, &Summary{Present: 0, Total: 2}, summary)

	res, err := svc.List(ctx, owner, ListParams{ProjectID: &site})
	require.NoError(t, err)
	assert.Len(t, res.Items, 2)

	require.NoError(t, svc.Delete(ctx, supervisor, suresh.ID))
	res, err = svc.List(ctx, supervisor, ListParams{})
	require.NoError(t, err)
	assert.Len(t, res.Items, 1)
}

func TestRosterValidationAndScope(t *testing.T) {
	svc := newTestService(t)
	owner := accesstest.Owner()
	site := uuid.New()
	supervisor := accesstest.Supervisor(owner, site)
	ctx := context.Background()

	_, err := svc.Add(ctx, supervisor, AddLaborInput{Name: ""})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	_, err = svc.Add(ctx, supervisor, AddLaborInput{Name: "A", Type: "Plumber"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	_, err = svc.Summary(ctx, owner, nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	_, err = svc.List(ctx, accesstest.StoreKeeper(owner, site), ListParams{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	other := uuid.New()
	foreign, err := svc.Add(ctx, owner, AddLaborInput{Name: "Elsewhere", ProjectID: &other})
	require.NoError(t, err)
	_, err = svc.Toggle(ctx, supervisor, foreign.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	_, err = svc.Toggle(ctx, owner, foreign.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
}
